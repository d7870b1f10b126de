package schedule

import (
	"context"
	"sync"

	"meeting-orchestrator/internal/common/errors"
)

// Store is the persistence surface for interview schedules. Persistence is
// an external collaborator of the scheduling core; anything beyond these
// three operations belongs to the surrounding CRM.
type Store interface {
	// Create persists a new schedule record
	Create(ctx context.Context, schedule *InterviewSchedule) error
	// FindByID returns the record or a not-found error
	FindByID(ctx context.Context, id string) (*InterviewSchedule, error)
	// Update overwrites an existing record
	Update(ctx context.Context, schedule *InterviewSchedule) error
}

// MemoryStore is an in-memory Store for tests and single-process use.
type MemoryStore struct {
	mu        sync.RWMutex
	schedules map[string]InterviewSchedule
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		schedules: make(map[string]InterviewSchedule),
	}
}

// Create persists a new record; duplicate ids are rejected.
func (s *MemoryStore) Create(ctx context.Context, schedule *InterviewSchedule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.schedules[schedule.ID]; exists {
		return errors.ValidationError("schedule with id " + schedule.ID + " already exists")
	}
	s.schedules[schedule.ID] = cloneSchedule(schedule)
	return nil
}

// FindByID returns a copy of the stored record.
func (s *MemoryStore) FindByID(ctx context.Context, id string) (*InterviewSchedule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored, exists := s.schedules[id]
	if !exists {
		return nil, errors.NotFoundError("interview schedule " + id)
	}
	out := cloneSchedule(&stored)
	return &out, nil
}

// Update overwrites an existing record.
func (s *MemoryStore) Update(ctx context.Context, schedule *InterviewSchedule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.schedules[schedule.ID]; !exists {
		return errors.NotFoundError("interview schedule " + schedule.ID)
	}
	s.schedules[schedule.ID] = cloneSchedule(schedule)
	return nil
}

// cloneSchedule copies the record so callers cannot mutate stored state.
func cloneSchedule(schedule *InterviewSchedule) InterviewSchedule {
	out := *schedule
	if schedule.Attendees != nil {
		out.Attendees = append([]string(nil), schedule.Attendees...)
	}
	return out
}
