package lawyer

import (
	"context"
	"errors"
)

// ErrInvalidRate signals a negative hourly rate.
var ErrInvalidRate = errors.New("lawyer: hourly rate must be non-negative")

// ProfileStore abstracts repository operations for the service.
type ProfileStore interface {
	GetByID(ctx context.Context, id string) (Profile, error)
	List(ctx context.Context, specialtySlug string, limit int) ([]Profile, error)
	UpdateOwn(ctx context.Context, ownerUserID string, params UpdateParams) (Profile, error)
	ListSpecialties(ctx context.Context) ([]Specialty, error)
}

// Service exposes business-level lawyer directory operations.
type Service struct {
	repo ProfileStore
}

// NewService builds a Service using the provided repository.
func NewService(repo ProfileStore) *Service {
	return &Service{repo: repo}
}

// GetByID returns the lawyer profile for the given identifier.
func (s *Service) GetByID(ctx context.Context, id string) (Profile, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns up to limit lawyer profiles, optionally filtered by specialty.
func (s *Service) List(ctx context.Context, specialtySlug string, limit int) ([]Profile, error) {
	return s.repo.List(ctx, specialtySlug, limit)
}

// UpdateOwn applies profile edits for the calling lawyer.
func (s *Service) UpdateOwn(ctx context.Context, ownerUserID string, params UpdateParams) (Profile, error) {
	if params.HourlyRate != nil && *params.HourlyRate < 0 {
		return Profile{}, ErrInvalidRate
	}
	if params.YearsExperience != nil && *params.YearsExperience < 0 {
		return Profile{}, errors.New("lawyer: years of experience must be non-negative")
	}
	return s.repo.UpdateOwn(ctx, ownerUserID, params)
}

// ListSpecialties returns all practice areas.
func (s *Service) ListSpecialties(ctx context.Context) ([]Specialty, error) {
	return s.repo.ListSpecialties(ctx)
}
