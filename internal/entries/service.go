package entries

import (
	"context"
	"log"

	"classtrack/internal/apperr"
	"classtrack/internal/bus"
	"classtrack/internal/model"
)

// Service coordinates legacy entry CRUD.
type Service struct {
	repo *Repository
	bus  bus.Bus
}

// NewService creates a service backed by a repository and an event bus.
func NewService(repo *Repository, b bus.Bus) *Service {
	return &Service{repo: repo, bus: b}
}

// List returns all entries, newest first.
func (s *Service) List(ctx context.Context) ([]model.Entry, error) {
	return s.repo.List(ctx)
}

// Create inserts a new entry and signals a refresh.
func (s *Service) Create(ctx context.Context, name, date, note string) (*model.Entry, error) {
	e, err := s.repo.Insert(ctx, name, date, note)
	if err != nil {
		return nil, err
	}
	s.refresh(ctx)
	return e, nil
}

// Update rewrites an existing entry. Unknown ids are rejected; the old
// behavior of updating blind and returning an undefined record was a
// latent defect.
func (s *Service) Update(ctx context.Context, id int64, name, date, note string) (*model.Entry, error) {
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, apperr.NotFound("entry", id)
	}
	e, err := s.repo.Update(ctx, id, name, date, note)
	if err != nil {
		return nil, err
	}
	s.refresh(ctx)
	return e, nil
}

// Delete removes an entry by id.
func (s *Service) Delete(ctx context.Context, id int64) error {
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if existing == nil {
		return apperr.NotFound("entry", id)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.refresh(ctx)
	return nil
}

func (s *Service) refresh(ctx context.Context) {
	if err := s.bus.Publish(ctx, bus.Event{Name: bus.EventRefresh}); err != nil {
		log.Printf("entries: publish refresh failed: %v", err)
	}
}
