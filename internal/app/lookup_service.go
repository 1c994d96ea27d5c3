package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"lexdesk/internal/model"
	"lexdesk/internal/repository"
)

type LookupCache interface {
	Get(ctx context.Context, key string, dst interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}) error
	Flush(ctx context.Context) error
}

// LookupService serves the geo tables. The tables only change when reseeded
// so reads go through the cache.
type LookupService struct {
	geoRepo *repository.GeoRepository
	cache   LookupCache
	log     *zap.Logger
}

func NewLookupService(geoRepo *repository.GeoRepository, cache LookupCache, log *zap.Logger) *LookupService {
	return &LookupService{geoRepo: geoRepo, cache: cache, log: log}
}

func cached[T any](ctx context.Context, s *LookupService, key string, load func() ([]T, error)) ([]T, error) {
	if s.cache != nil {
		var out []T
		hit, err := s.cache.Get(ctx, key, &out)
		if err != nil {
			s.log.Warn("lookup cache read failed", zap.String("key", key), zap.Error(err))
		} else if hit {
			return out, nil
		}
	}

	list, err := load()
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []T{}
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, key, list); err != nil {
			s.log.Warn("lookup cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return list, nil
}

func (s *LookupService) ListCountries(ctx context.Context) ([]model.Country, error) {
	return cached(ctx, s, "countries", s.geoRepo.ListCountries)
}

func (s *LookupService) ListStates(ctx context.Context, countryID uint) ([]model.DeptoState, error) {
	if countryID == 0 {
		return nil, ErrInvalidInput
	}
	return cached(ctx, s, fmt.Sprintf("states:%d", countryID), func() ([]model.DeptoState, error) {
		return s.geoRepo.ListStates(countryID)
	})
}

func (s *LookupService) ListCities(ctx context.Context, stateID uint) ([]model.CityMunicipality, error) {
	if stateID == 0 {
		return nil, ErrInvalidInput
	}
	return cached(ctx, s, fmt.Sprintf("cities:%d", stateID), func() ([]model.CityMunicipality, error) {
		return s.geoRepo.ListCities(stateID)
	})
}

type GeoSeed struct {
	Countries []model.Country          `yaml:"countries"`
	States    []model.DeptoState       `yaml:"states"`
	Cities    []model.CityMunicipality `yaml:"cities"`
}

// Seed upserts the geo tables and drops the cached copies.
func (s *LookupService) Seed(ctx context.Context, seed GeoSeed) error {
	if err := s.geoRepo.Upsert(seed.Countries, seed.States, seed.Cities); err != nil {
		return err
	}
	if s.cache != nil {
		if err := s.cache.Flush(ctx); err != nil {
			s.log.Warn("flush lookup cache failed", zap.Error(err))
		}
	}
	return nil
}
