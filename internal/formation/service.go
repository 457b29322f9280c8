package formation

import (
	"context"
	"errors"
	"time"

	"formation/internal/calendar"
)

// Store is the persistence surface the service needs.
type Store interface {
	Insert(ctx context.Context, f Formation) (Formation, error)
	Get(ctx context.Context, id string) (Formation, error)
	List(ctx context.Context) ([]Formation, error)
}

// Service validates and coordinates formation operations.
type Service struct {
	store Store
}

// NewService creates a service backed by a store.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// Create validates the date range and persists the formation.
func (s *Service) Create(ctx context.Context, f Formation) (Formation, error) {
	if f.Title == "" {
		return Formation{}, errors.New("formation: title required")
	}
	f.StartDate = calendar.DateOnly(f.StartDate)
	f.EndDate = calendar.DateOnly(f.EndDate)
	if f.EndDate.Before(f.StartDate) {
		return Formation{}, ErrInvalidRange
	}
	return s.store.Insert(ctx, f)
}

// Get returns a formation by id.
func (s *Service) Get(ctx context.Context, id string) (Formation, error) {
	return s.store.Get(ctx, id)
}

// List returns all formations.
func (s *Service) List(ctx context.Context) ([]Formation, error) {
	return s.store.List(ctx)
}

// SessionDays returns the weekday session dates for a formation's range.
func (s *Service) SessionDays(ctx context.Context, id string) ([]time.Time, error) {
	f, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return calendar.SessionDays(f.StartDate, f.EndDate), nil
}
