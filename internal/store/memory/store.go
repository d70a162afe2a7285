// internal/store/memory/store.go
package memory

import (
	"context"
	"sync"

	apperrors "hosting-assessment/internal/common/errors"
	"hosting-assessment/internal/models"
)

// Store keeps assessments in process memory. Every read and write copies the record.
type Store struct {
	mu      sync.RWMutex
	records map[string]*models.Assessment
}

func New() *Store {
	return &Store{records: make(map[string]*models.Assessment)}
}

func (s *Store) Create(_ context.Context, record *models.Assessment) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[record.ID]; exists {
		return "", apperrors.NewConflictError(record.ID)
	}
	s.records[record.ID] = record.Clone()
	return record.ID, nil
}

func (s *Store) Get(_ context.Context, id string) (*models.Assessment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.records[id]
	if !ok {
		return nil, apperrors.NewNotFoundError(id)
	}
	return record.Clone(), nil
}

func (s *Store) Update(_ context.Context, record *models.Assessment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[record.ID]; !ok {
		return apperrors.NewNotFoundError(record.ID)
	}
	s.records[record.ID] = record.Clone()
	return nil
}

func (s *Store) CompareAndSwap(_ context.Context, record *models.Assessment, expected models.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.records[record.ID]
	if !ok {
		return apperrors.NewNotFoundError(record.ID)
	}
	if current.Status != expected {
		return apperrors.NewInvalidTransitionError(record.ID, string(current.Status))
	}
	s.records[record.ID] = record.Clone()
	return nil
}

func (s *Store) List(_ context.Context) ([]*models.Assessment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Assessment, 0, len(s.records))
	for _, r := range s.records {
		out = append(out, r.Clone())
	}
	return out, nil
}
