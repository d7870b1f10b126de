// Package schedule owns the interview-schedule entity: its status lifecycle,
// its persistence surface and the service that ties scheduling to the
// meeting orchestrator.
package schedule

import (
	"time"

	"meeting-orchestrator/internal/common/errors"
	"meeting-orchestrator/internal/providers"
)

// Status is the lifecycle state of an interview schedule.
type Status string

const (
	// StatusScheduled is the initial state after a successful scheduling
	StatusScheduled Status = "SCHEDULED"
	// StatusRescheduled marks a schedule whose date was changed after creation
	StatusRescheduled Status = "RESCHEDULED"
	// StatusCancelled is terminal
	StatusCancelled Status = "CANCELLED"
	// StatusCompleted is terminal and externally driven
	StatusCompleted Status = "COMPLETED"
)

// transitions lists the reachable next states per status. Terminal states
// have no entries.
var transitions = map[Status][]Status{
	StatusScheduled:   {StatusCancelled, StatusRescheduled, StatusCompleted},
	StatusRescheduled: {StatusCancelled, StatusRescheduled, StatusCompleted},
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusScheduled, StatusRescheduled, StatusCancelled, StatusCompleted:
		return true
	}
	return false
}

// Terminal reports whether no further transitions are allowed from s.
func (s Status) Terminal() bool {
	return s == StatusCancelled || s == StatusCompleted
}

// CanTransitionTo reports whether moving from s to next is allowed.
func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Transition validates and returns the next status, or a validation error
// naming both states when the move is not allowed.
func (s Status) Transition(next Status) (Status, error) {
	if !next.Valid() {
		return s, errors.ValidationError("unknown schedule status: " + string(next))
	}
	if !s.CanTransitionTo(next) {
		return s, errors.ValidationError("cannot transition schedule from " + string(s) + " to " + string(next))
	}
	return next, nil
}

// InterviewSchedule is the persisted schedule record. The meeting id and
// calendar event id are empty when the meeting came from the fallback room
// or the provider did not assign one.
type InterviewSchedule struct {
	ID              string         `json:"id"`
	Title           string         `json:"title"`
	Description     string         `json:"description,omitempty"`
	MeetingKind     providers.Kind `json:"meeting_kind"`
	MeetingID       string         `json:"meeting_id,omitempty"`
	CalendarEventID string         `json:"calendar_event_id,omitempty"`
	JoinURL         string         `json:"join_url"`
	Status          Status         `json:"status"`
	ScheduledAt     time.Time      `json:"scheduled_at"`
	Duration        time.Duration  `json:"duration"`
	Attendees       []string       `json:"attendees"`
	UsedFallback    bool           `json:"used_fallback"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// HasProviderMeeting reports whether a remote meeting exists that update and
// cancel calls should be routed to.
func (s *InterviewSchedule) HasProviderMeeting() bool {
	return !s.UsedFallback && (s.MeetingID != "" || s.CalendarEventID != "")
}

// ProviderMeetingID returns the id the owning provider knows the meeting by.
// The calendar provider addresses meetings by calendar event id.
func (s *InterviewSchedule) ProviderMeetingID() string {
	if s.MeetingKind == providers.KindCalendar && s.CalendarEventID != "" {
		return s.CalendarEventID
	}
	return s.MeetingID
}
