package orchestrator

import (
	"sync"
	"time"

	"meeting-orchestrator/internal/common/logging"
	"meeting-orchestrator/internal/providers"
)

// EventType classifies orchestrator degradation events.
type EventType string

const (
	// EventFallback is emitted when Schedule degrades to the fallback room
	EventFallback EventType = "fallback"
	// EventUpdateFailed is emitted when a remote update was swallowed
	EventUpdateFailed EventType = "update_failed"
	// EventCancelFailed is emitted when a remote cancel was swallowed
	EventCancelFailed EventType = "cancel_failed"
)

// Event records one degradation decision. Swallowing provider failures is a
// deliberate policy; the event stream is how operators detect a provider
// that is persistently failing instead of reading process logs.
type Event struct {
	Type      EventType
	Kind      providers.Kind
	MeetingID string
	Reason    providers.FallbackReason
	Err       error
	At        time.Time
}

// EventSink receives degradation events. Emit must not block the scheduling
// path and must not panic.
type EventSink interface {
	Emit(event Event)
}

// LoggingSink writes every event to the structured log. It is the default
// sink.
type LoggingSink struct {
	logger logging.Logger
}

// NewLoggingSink creates a sink over the given logger.
func NewLoggingSink(logger logging.Logger) *LoggingSink {
	return &LoggingSink{logger: logger}
}

// Emit logs the event at warn level.
func (s *LoggingSink) Emit(event Event) {
	fields := []logging.Field{
		logging.String("event", string(event.Type)),
		logging.String("provider_kind", string(event.Kind)),
	}
	if event.MeetingID != "" {
		fields = append(fields, logging.String("meeting_id", event.MeetingID))
	}
	if event.Reason != providers.FallbackNone {
		fields = append(fields, logging.String("reason", string(event.Reason)))
	}
	if event.Err != nil {
		fields = append(fields, logging.Err(event.Err))
	}
	s.logger.Warn("Provider degradation", fields...)
}

// RecordingSink retains events in memory. Tests and diagnostics use it to
// assert on degradation behavior.
type RecordingSink struct {
	mu     sync.Mutex
	events []Event
}

// NewRecordingSink creates an empty recording sink.
func NewRecordingSink() *RecordingSink {
	return &RecordingSink{}
}

// Emit appends the event.
func (s *RecordingSink) Emit(event Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
}

// Events returns a copy of everything recorded so far.
func (s *RecordingSink) Events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Event, len(s.events))
	copy(out, s.events)
	return out
}
