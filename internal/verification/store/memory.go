package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"jojo/internal/verification/models"
	id "jojo/pkg/domain"
	"jojo/pkg/platform/sentinel"
)

// InMemory keeps records in process memory. Used in development and tests.
type InMemory struct {
	mu           sync.RWMutex
	records      map[id.VerificationID]*models.Record
	byInstructor map[id.UserID]id.VerificationID
}

func NewInMemory() *InMemory {
	return &InMemory{
		records:      make(map[id.VerificationID]*models.Record),
		byInstructor: make(map[id.UserID]id.VerificationID),
	}
}

// Create inserts a new record. One record per instructor.
func (s *InMemory) Create(_ context.Context, r *models.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byInstructor[r.InstructorID]; exists {
		return fmt.Errorf("verification for instructor %s: %w", r.InstructorID, sentinel.ErrAlreadyExists)
	}
	if _, exists := s.records[r.ID]; exists {
		return fmt.Errorf("verification %s: %w", r.ID, sentinel.ErrAlreadyExists)
	}
	r.Version = 1
	s.records[r.ID] = r.Clone()
	s.byInstructor[r.InstructorID] = r.ID
	return nil
}

func (s *InMemory) FindByID(_ context.Context, recordID id.VerificationID) (*models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[recordID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return r.Clone(), nil
}

func (s *InMemory) FindByInstructor(_ context.Context, instructorID id.UserID) (*models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	recordID, ok := s.byInstructor[instructorID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return s.records[recordID].Clone(), nil
}

// Update replaces the record if its version still matches the stored one.
// On success r.Version is advanced.
func (s *InMemory) Update(_ context.Context, r *models.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.records[r.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if current.Version != r.Version {
		return fmt.Errorf("verification %s at version %d, have %d: %w", r.ID, current.Version, r.Version, sentinel.ErrConflict)
	}
	next := r.Clone()
	next.Version = r.Version + 1
	s.records[r.ID] = next
	r.Version = next.Version
	return nil
}

// List returns one page of records matching the filter plus the total match count.
func (s *InMemory) List(_ context.Context, f models.ListFilter) ([]*models.Record, int64, error) {
	s.mu.RLock()
	matched := make([]*models.Record, 0, len(s.records))
	for _, r := range s.records {
		if f.Status != "" && r.Status != f.Status {
			continue
		}
		if f.EducationStatus != "" && r.Education.OverallStatus != f.EducationStatus {
			continue
		}
		matched = append(matched, r.Clone())
	}
	s.mu.RUnlock()

	sort.SliceStable(matched, func(i, j int) bool {
		less := compareRecords(matched[i], matched[j], f.Sort)
		if less == 0 {
			return matched[i].ID.String() < matched[j].ID.String()
		}
		if f.Descending {
			return less > 0
		}
		return less < 0
	})

	total := int64(len(matched))
	start := f.Offset()
	if start < 0 || start >= len(matched) {
		return []*models.Record{}, total, nil
	}
	end := start + f.Limit
	if f.Limit <= 0 || end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}

func compareRecords(a, b *models.Record, field string) int {
	switch field {
	case "createdAt":
		return a.CreatedAt.Compare(b.CreatedAt)
	case "progressPercentage":
		return a.Progress().Percentage - b.Progress().Percentage
	case "submittedAt":
		switch {
		case a.SubmittedAt == nil && b.SubmittedAt == nil:
			return 0
		case a.SubmittedAt == nil:
			return -1
		case b.SubmittedAt == nil:
			return 1
		}
		return a.SubmittedAt.Compare(*b.SubmittedAt)
	default:
		return a.LastUpdatedAt.Compare(b.LastUpdatedAt)
	}
}
