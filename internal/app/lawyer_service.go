package app

import (
	"strings"

	"lexdesk/internal/repository"
)

type LawyerService struct {
	userRepo *repository.UserRepository
	now      Clock
}

func NewLawyerService(userRepo *repository.UserRepository) *LawyerService {
	return &LawyerService{userRepo: userRepo, now: systemClock}
}

// ListVisibleLawyers is the public directory: verified lawyers whose
// subscription is currently active, pro plans first.
func (s *LawyerService) ListVisibleLawyers(filter repository.LawyerFilter) ([]repository.VisibleLawyer, error) {
	filter.Specialty = strings.TrimSpace(filter.Specialty)
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	lawyers, err := s.userRepo.ListVisibleLawyers(filter, s.now())
	if err != nil {
		return nil, err
	}
	if lawyers == nil {
		lawyers = []repository.VisibleLawyer{}
	}
	return lawyers, nil
}
