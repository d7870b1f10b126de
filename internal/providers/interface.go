// Package providers defines the contract between the meeting orchestrator and
// the conferencing providers it delegates to, along with the value objects
// that cross that boundary.
package providers

import (
	"context"
	"time"

	"meeting-orchestrator/internal/common/errors"
)

// Kind identifies which provider a meeting request targets.
type Kind string

const (
	// KindCalendar is the calendar-integrated provider: the meeting link is a
	// side effect of creating a calendar event
	KindCalendar Kind = "CALENDAR_PROVIDER"
	// KindMeeting is the dedicated meeting-scheduling provider
	KindMeeting Kind = "MEETING_PROVIDER"
)

// FallbackReason records why the orchestrator degraded to the fallback room.
type FallbackReason string

const (
	// FallbackNone means the preferred provider serviced the request
	FallbackNone FallbackReason = ""
	// FallbackNotConfigured means the requested provider has no credentials
	FallbackNotConfigured FallbackReason = "not_configured"
	// FallbackCallFailed means the provider call errored at runtime
	FallbackCallFailed FallbackReason = "call_failed"
	// FallbackUnknownKind means the request carried an unrecognized provider kind
	FallbackUnknownKind FallbackReason = "unknown_meeting_type"
)

// MeetingRequest describes one meeting to schedule. It is a value object:
// construct it once and do not mutate it.
type MeetingRequest struct {
	Title       string
	Description string
	StartTime   time.Time
	Duration    time.Duration
	Attendees   []string
	Kind        Kind
}

// EndTime returns the meeting end derived from start + duration, in UTC.
func (r *MeetingRequest) EndTime() time.Time {
	return r.StartTime.UTC().Add(r.Duration)
}

// Validate rejects requests no provider could service. Upstream validation
// enforces the 15-480 minute business window; this is the defensive floor.
func (r *MeetingRequest) Validate() error {
	if r.Title == "" {
		return errors.ValidationError("meeting title is required")
	}
	if r.StartTime.IsZero() {
		return errors.ValidationError("meeting start time is required")
	}
	if r.Duration <= 0 {
		return errors.ValidationError("meeting duration must be positive")
	}
	return nil
}

// MeetingResult is the outcome of a successful scheduling attempt. The caller
// attaches it to the interview-schedule record; this core does not persist it.
type MeetingResult struct {
	// JoinURL is the meeting link attendees use
	JoinURL string
	// MeetingID is the provider-assigned meeting id, always a string even
	// when the provider reports a numeric id
	MeetingID string
	// CalendarEventID is set only by the calendar provider
	CalendarEventID string
	// Password is the optional provider-assigned access password
	Password string
	// UsedFallback is true when the fallback room serviced the request
	UsedFallback bool
	// FallbackReason says why, when UsedFallback is true
	FallbackReason FallbackReason
}

// MeetingUpdate is a sparse partial update: nil fields are unchanged and must
// never clear provider-side state. This replaces the strip-undefined-keys
// pattern with an explicit optional-field value.
type MeetingUpdate struct {
	Title       *string
	Description *string
	StartTime   *time.Time
	Duration    *time.Duration
	// Attendees nil means unchanged; an empty non-nil slice clears the list
	Attendees []string
}

// Empty reports whether the update carries no changes.
func (u *MeetingUpdate) Empty() bool {
	return u == nil ||
		(u.Title == nil && u.Description == nil && u.StartTime == nil &&
			u.Duration == nil && u.Attendees == nil)
}

// MeetingDetails is the provider's current view of an existing meeting.
type MeetingDetails struct {
	JoinURL    string
	ProviderID string
	Status     string
}

// Provider is implemented by each conferencing provider client. Every method
// is best-effort from the orchestrator's perspective: failures are converted
// to fallback results or swallowed with logging, never propagated to callers.
type Provider interface {
	// Kind identifies which requests this provider services
	Kind() Kind
	// Configured reports whether the client holds working static credentials;
	// the orchestrator short-circuits to fallback when false
	Configured() bool
	// CreateMeeting schedules a new meeting and returns its link and ids
	CreateMeeting(ctx context.Context, req *MeetingRequest) (*MeetingResult, error)
	// UpdateMeeting applies a sparse update to an existing meeting
	UpdateMeeting(ctx context.Context, meetingID string, update *MeetingUpdate) error
	// CancelMeeting removes an existing meeting
	CancelMeeting(ctx context.Context, meetingID string) error
	// GetMeetingDetails fetches the provider's current view of a meeting
	GetMeetingDetails(ctx context.Context, meetingID string) (*MeetingDetails, error)
}
