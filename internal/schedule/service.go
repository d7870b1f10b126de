package schedule

import (
	"context"
	"time"

	"github.com/lucsky/cuid"

	"meeting-orchestrator/internal/common/errors"
	"meeting-orchestrator/internal/common/logging"
	"meeting-orchestrator/internal/providers"
)

const (
	// minDuration and maxDuration bound the interview window accepted from
	// callers
	minDuration = 15 * time.Minute
	maxDuration = 480 * time.Minute
)

// MeetingScheduler is the orchestrator surface the service depends on.
type MeetingScheduler interface {
	// Schedule always returns a usable meeting, degrading to fallback
	Schedule(ctx context.Context, req *providers.MeetingRequest) *providers.MeetingResult
	// Update is best-effort; failures are swallowed by the scheduler
	Update(ctx context.Context, kind providers.Kind, meetingID string, update *providers.MeetingUpdate)
	// Cancel is best-effort with the same contract as Update
	Cancel(ctx context.Context, kind providers.Kind, meetingID string)
}

// ScheduleRequest is the input to ScheduleInterview.
type ScheduleRequest struct {
	Title       string
	Description string
	ScheduledAt time.Time
	Duration    time.Duration
	Attendees   []string
	MeetingKind providers.Kind
}

// Validate enforces the caller-facing business window on top of the
// defensive checks the provider contract performs.
func (r *ScheduleRequest) Validate() error {
	if r.Title == "" {
		return errors.ValidationError("interview title is required")
	}
	if r.ScheduledAt.IsZero() {
		return errors.ValidationError("interview date is required")
	}
	if r.Duration < minDuration || r.Duration > maxDuration {
		return errors.ValidationError("interview duration must be between 15 and 480 minutes")
	}
	return nil
}

// UpdateRequest is a sparse update to an existing schedule. Nil fields are
// unchanged; a non-nil empty attendee list clears the attendees.
type UpdateRequest struct {
	Title       *string
	Description *string
	ScheduledAt *time.Time
	Duration    *time.Duration
	Attendees   []string
}

// Service coordinates the meeting orchestrator with schedule persistence.
// Local persistence always wins over remote consistency: a schedule change
// lands in the store even when the remote meeting could not be touched.
type Service struct {
	scheduler MeetingScheduler
	store     Store
	logger    logging.Logger
	now       func() time.Time
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithLogger sets the service's logger.
func WithLogger(logger logging.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		s.now = now
	}
}

// NewService creates the schedule service.
func NewService(scheduler MeetingScheduler, store Store, opts ...ServiceOption) *Service {
	s := &Service{
		scheduler: scheduler,
		store:     store,
		logger:    logging.GetGlobalLogger(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ScheduleInterview obtains a meeting from the orchestrator and persists the
// schedule record in SCHEDULED state. The meeting is guaranteed: when every
// provider fails the record carries the fallback link.
func (s *Service) ScheduleInterview(ctx context.Context, req *ScheduleRequest) (*InterviewSchedule, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	result := s.scheduler.Schedule(ctx, &providers.MeetingRequest{
		Title:       req.Title,
		Description: req.Description,
		StartTime:   req.ScheduledAt,
		Duration:    req.Duration,
		Attendees:   req.Attendees,
		Kind:        req.MeetingKind,
	})

	now := s.now().UTC()
	sched := &InterviewSchedule{
		ID:              cuid.New(),
		Title:           req.Title,
		Description:     req.Description,
		MeetingKind:     req.MeetingKind,
		MeetingID:       result.MeetingID,
		CalendarEventID: result.CalendarEventID,
		JoinURL:         result.JoinURL,
		Status:          StatusScheduled,
		ScheduledAt:     req.ScheduledAt.UTC(),
		Duration:        req.Duration,
		Attendees:       req.Attendees,
		UsedFallback:    result.UsedFallback,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.store.Create(ctx, sched); err != nil {
		return nil, err
	}

	if result.UsedFallback {
		s.logger.Info("Interview scheduled on fallback room",
			logging.String("schedule_id", sched.ID),
			logging.String("reason", string(result.FallbackReason)))
	}

	return sched, nil
}

// RescheduleInterview applies a sparse update. Persistence is first-class:
// the record is updated before the best-effort remote call, and a date
// change moves the status to RESCHEDULED.
func (s *Service) RescheduleInterview(ctx context.Context, id string, req *UpdateRequest) (*InterviewSchedule, error) {
	sched, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	dateChanged := req.ScheduledAt != nil && !req.ScheduledAt.UTC().Equal(sched.ScheduledAt)
	if dateChanged {
		next, err := sched.Status.Transition(StatusRescheduled)
		if err != nil {
			return nil, err
		}
		sched.Status = next
	} else if sched.Status.Terminal() {
		return nil, errors.ValidationError("cannot update a " + string(sched.Status) + " interview schedule")
	}

	if req.Title != nil {
		sched.Title = *req.Title
	}
	if req.Description != nil {
		sched.Description = *req.Description
	}
	if req.ScheduledAt != nil {
		sched.ScheduledAt = req.ScheduledAt.UTC()
	}
	if req.Duration != nil {
		if *req.Duration < minDuration || *req.Duration > maxDuration {
			return nil, errors.ValidationError("interview duration must be between 15 and 480 minutes")
		}
		sched.Duration = *req.Duration
	}
	if req.Attendees != nil {
		sched.Attendees = req.Attendees
	}
	sched.UpdatedAt = s.now().UTC()

	if err := s.store.Update(ctx, sched); err != nil {
		return nil, err
	}

	if sched.HasProviderMeeting() {
		s.scheduler.Update(ctx, sched.MeetingKind, sched.ProviderMeetingID(), &providers.MeetingUpdate{
			Title:       req.Title,
			Description: req.Description,
			StartTime:   req.ScheduledAt,
			Duration:    req.Duration,
			Attendees:   req.Attendees,
		})
	}

	return sched, nil
}

// CancelInterview cancels the schedule. The remote cancel is best-effort;
// the persistence-level cancel always proceeds.
func (s *Service) CancelInterview(ctx context.Context, id string) (*InterviewSchedule, error) {
	sched, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	next, err := sched.Status.Transition(StatusCancelled)
	if err != nil {
		return nil, err
	}

	if sched.HasProviderMeeting() {
		s.scheduler.Cancel(ctx, sched.MeetingKind, sched.ProviderMeetingID())
	}

	sched.Status = next
	sched.UpdatedAt = s.now().UTC()
	if err := s.store.Update(ctx, sched); err != nil {
		return nil, err
	}

	return sched, nil
}

// CompleteInterview marks the schedule completed. Completion is determined
// by the surrounding CRM, not inferred from meeting state.
func (s *Service) CompleteInterview(ctx context.Context, id string) (*InterviewSchedule, error) {
	sched, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	next, err := sched.Status.Transition(StatusCompleted)
	if err != nil {
		return nil, err
	}

	sched.Status = next
	sched.UpdatedAt = s.now().UTC()
	if err := s.store.Update(ctx, sched); err != nil {
		return nil, err
	}

	return sched, nil
}

// GetInterview returns the stored schedule record.
func (s *Service) GetInterview(ctx context.Context, id string) (*InterviewSchedule, error) {
	return s.store.FindByID(ctx, id)
}
