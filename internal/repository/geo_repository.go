package repository

import (
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"lexdesk/internal/model"
)

type GeoRepository struct {
	db *gorm.DB
}

func NewGeoRepository(db *gorm.DB) *GeoRepository {
	return &GeoRepository{db: db}
}

func (r *GeoRepository) ListCountries() ([]model.Country, error) {
	var list []model.Country
	if err := r.db.Order("name ASC").Find(&list).Error; err != nil {
		return nil, fmt.Errorf("list countries failed: %w", err)
	}
	return list, nil
}

func (r *GeoRepository) ListStates(countryID uint) ([]model.DeptoState, error) {
	var list []model.DeptoState
	if err := r.db.Where("country_id = ?", countryID).Order("name ASC").Find(&list).Error; err != nil {
		return nil, fmt.Errorf("list states failed: %w", err)
	}
	return list, nil
}

func (r *GeoRepository) ListCities(stateID uint) ([]model.CityMunicipality, error) {
	var list []model.CityMunicipality
	if err := r.db.Where("state_id = ?", stateID).Order("name ASC").Find(&list).Error; err != nil {
		return nil, fmt.Errorf("list cities failed: %w", err)
	}
	return list, nil
}

// ValidateLocation checks that the given ids exist and nest correctly. Nil
// ids are skipped.
func (r *GeoRepository) ValidateLocation(countryID, stateID, cityID *uint) (bool, error) {
	if countryID != nil {
		var n int64
		if err := r.db.Model(&model.Country{}).Where("id = ?", *countryID).Count(&n).Error; err != nil {
			return false, fmt.Errorf("check country failed: %w", err)
		}
		if n == 0 {
			return false, nil
		}
	}
	if stateID != nil {
		q := r.db.Model(&model.DeptoState{}).Where("id = ?", *stateID)
		if countryID != nil {
			q = q.Where("country_id = ?", *countryID)
		}
		var n int64
		if err := q.Count(&n).Error; err != nil {
			return false, fmt.Errorf("check state failed: %w", err)
		}
		if n == 0 {
			return false, nil
		}
	}
	if cityID != nil {
		q := r.db.Model(&model.CityMunicipality{}).Where("id = ?", *cityID)
		if stateID != nil {
			q = q.Where("state_id = ?", *stateID)
		}
		var n int64
		if err := q.Count(&n).Error; err != nil {
			return false, fmt.Errorf("check city failed: %w", err)
		}
		if n == 0 {
			return false, nil
		}
	}
	return true, nil
}

// Upsert writes seed rows keyed on primary key.
func (r *GeoRepository) Upsert(countries []model.Country, states []model.DeptoState, cities []model.CityMunicipality) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if len(countries) > 0 {
			if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&countries).Error; err != nil {
				return fmt.Errorf("upsert countries failed: %w", err)
			}
		}
		if len(states) > 0 {
			if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&states).Error; err != nil {
				return fmt.Errorf("upsert states failed: %w", err)
			}
		}
		if len(cities) > 0 {
			if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).CreateInBatches(&cities, 500).Error; err != nil {
				return fmt.Errorf("upsert cities failed: %w", err)
			}
		}
		return nil
	})
}
