package students

import (
	"context"
	"log"

	"classtrack/internal/apperr"
	"classtrack/internal/bus"
	"classtrack/internal/model"
)

// Service coordinates student management and broadcasts every mutation.
type Service struct {
	repo *Repository
	bus  bus.Bus
}

// NewService creates a service backed by a repository and an event bus.
func NewService(repo *Repository, b bus.Bus) *Service {
	return &Service{repo: repo, bus: b}
}

// List returns all students ordered by name.
func (s *Service) List(ctx context.Context) ([]model.Student, error) {
	return s.repo.List(ctx)
}

// Create validates, inserts and announces a new student. Course zero is
// a valid value; only a missing course is rejected.
func (s *Service) Create(ctx context.Context, name, group string, course *int) (*model.Student, error) {
	if name == "" {
		return nil, apperr.Validation("name is required")
	}
	if group == "" {
		return nil, apperr.Validation("group is required")
	}
	if course == nil {
		return nil, apperr.Validation("course is required")
	}
	st, err := s.repo.Insert(ctx, name, group, *course)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, bus.Event{Name: bus.EventStudentAdded, Payload: st})
	return st, nil
}

// Delete removes a student and cascades to their marks.
func (s *Service) Delete(ctx context.Context, id int64) error {
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if existing == nil {
		return apperr.NotFound("student", id)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.publish(ctx, bus.Event{Name: bus.EventStudentDeleted, Payload: id})
	return nil
}

// BatchItem is the outcome of one entry in a batch create.
type BatchItem struct {
	Student *model.Student `json:"student,omitempty"`
	Error   string         `json:"error,omitempty"`
}

// BatchResult summarizes a batch create.
type BatchResult struct {
	Success bool        `json:"success"`
	Added   int         `json:"added"`
	Errors  int         `json:"errors"`
	Results []BatchItem `json:"results"`
}

// NewStudent is one batch-create input entry.
type NewStudent struct {
	Name   string `json:"name"`
	Group  string `json:"group"`
	Course *int   `json:"course"`
}

// BatchCreate processes entries independently in input order. A failed
// entry is recorded and does not abort the rest; each success announces
// its own student_added.
func (s *Service) BatchCreate(ctx context.Context, items []NewStudent) BatchResult {
	result := BatchResult{Results: make([]BatchItem, 0, len(items))}
	for _, item := range items {
		st, err := s.Create(ctx, item.Name, item.Group, item.Course)
		if err != nil {
			result.Errors++
			result.Results = append(result.Results, BatchItem{Error: err.Error()})
			continue
		}
		result.Added++
		result.Results = append(result.Results, BatchItem{Student: st})
	}
	result.Success = true
	return result
}

func (s *Service) publish(ctx context.Context, evt bus.Event) {
	if err := s.bus.Publish(ctx, evt); err != nil {
		log.Printf("students: publish %s failed: %v", evt.Name, err)
	}
}
