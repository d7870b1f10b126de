// Package orchestrator routes meeting operations to the configured provider
// and guarantees a usable result by degrading to the fallback room. Fallback
// is the only path guaranteed to succeed; every provider path is best-effort.
package orchestrator

import (
	"context"
	"time"

	"meeting-orchestrator/internal/common/errors"
	"meeting-orchestrator/internal/common/logging"
	"meeting-orchestrator/internal/providers"
	"meeting-orchestrator/internal/providers/jitsi"
)

// Orchestrator owns the provider routing and fallback policy.
type Orchestrator struct {
	calendar providers.Provider
	meeting  providers.Provider
	fallback *jitsi.RoomGenerator
	sink     EventSink
	logger   logging.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithEventSink replaces the default logging sink.
func WithEventSink(sink EventSink) Option {
	return func(o *Orchestrator) {
		o.sink = sink
	}
}

// WithLogger sets the orchestrator's logger.
func WithLogger(logger logging.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// New creates an orchestrator over the two provider clients and the fallback
// generator. Either provider may be nil or unconfigured; requests for it
// degrade to fallback.
func New(calendar providers.Provider, meeting providers.Provider, fallback *jitsi.RoomGenerator, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		calendar: calendar,
		meeting:  meeting,
		fallback: fallback,
		logger:   logging.GetGlobalLogger(),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.sink == nil {
		o.sink = NewLoggingSink(o.logger)
	}
	return o
}

// Schedule returns a meeting for the request. It is a total function: it
// never returns an error and never panics, because the caller's schedule
// must go out with a working join link no matter what the providers do.
func (o *Orchestrator) Schedule(ctx context.Context, req *providers.MeetingRequest) (result *providers.MeetingResult) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("Recovered panic during scheduling", nil,
				logging.Any("panic", r),
				logging.String("provider_kind", string(req.Kind)))
			result = o.fallbackResult(req.Kind, "", providers.FallbackCallFailed, nil)
		}
	}()

	switch req.Kind {
	case providers.KindCalendar:
		return o.scheduleWith(ctx, o.calendar, req)
	case providers.KindMeeting:
		return o.scheduleWith(ctx, o.meeting, req)
	default:
		// No request should reach this point with an unvalidated kind, but
		// an unknown value must not crash the scheduling path.
		return o.fallbackResult(req.Kind, "", providers.FallbackUnknownKind, nil)
	}
}

// scheduleWith attempts one provider and degrades on any failure.
func (o *Orchestrator) scheduleWith(ctx context.Context, provider providers.Provider, req *providers.MeetingRequest) *providers.MeetingResult {
	if provider == nil || !provider.Configured() {
		return o.fallbackResult(req.Kind, "", providers.FallbackNotConfigured, nil)
	}

	result, err := provider.CreateMeeting(ctx, req)
	if err != nil {
		reason := providers.FallbackCallFailed
		if errors.IsType(err, errors.ErrTypeCredentialsMissing) ||
			errors.IsType(err, errors.ErrTypeProviderUnavailable) {
			reason = providers.FallbackNotConfigured
		}
		return o.fallbackResult(req.Kind, "", reason, err)
	}
	return result
}

// fallbackResult allocates a fallback room and emits the degradation event.
func (o *Orchestrator) fallbackResult(kind providers.Kind, meetingID string, reason providers.FallbackReason, cause error) *providers.MeetingResult {
	room := o.fallback.Generate()

	o.emit(Event{
		Type:      EventFallback,
		Kind:      kind,
		MeetingID: meetingID,
		Reason:    reason,
		Err:       cause,
		At:        time.Now(),
	})

	return &providers.MeetingResult{
		JoinURL:        room.JoinURL,
		MeetingID:      room.RoomID,
		UsedFallback:   true,
		FallbackReason: reason,
	}
}

// Update routes a sparse update to the provider that owns the meeting.
// Failures are logged and swallowed: the schedule update must still land at
// the persistence layer even when the remote meeting could not be touched.
func (o *Orchestrator) Update(ctx context.Context, kind providers.Kind, meetingID string, update *providers.MeetingUpdate) {
	provider := o.providerFor(kind)
	if provider == nil || !provider.Configured() {
		o.emit(Event{
			Type:      EventUpdateFailed,
			Kind:      kind,
			MeetingID: meetingID,
			Reason:    providers.FallbackNotConfigured,
			At:        time.Now(),
		})
		return
	}

	if err := provider.UpdateMeeting(ctx, meetingID, update); err != nil {
		o.emit(Event{
			Type:      EventUpdateFailed,
			Kind:      kind,
			MeetingID: meetingID,
			Reason:    providers.FallbackCallFailed,
			Err:       err,
			At:        time.Now(),
		})
	}
}

// Cancel routes a cancellation, with the same swallow-and-log contract as
// Update.
func (o *Orchestrator) Cancel(ctx context.Context, kind providers.Kind, meetingID string) {
	provider := o.providerFor(kind)
	if provider == nil || !provider.Configured() {
		o.emit(Event{
			Type:      EventCancelFailed,
			Kind:      kind,
			MeetingID: meetingID,
			Reason:    providers.FallbackNotConfigured,
			At:        time.Now(),
		})
		return
	}

	if err := provider.CancelMeeting(ctx, meetingID); err != nil {
		o.emit(Event{
			Type:      EventCancelFailed,
			Kind:      kind,
			MeetingID: meetingID,
			Reason:    providers.FallbackCallFailed,
			Err:       err,
			At:        time.Now(),
		})
	}
}

// GetDetails passes through to the owning provider. Unlike Schedule this is
// a read, so errors propagate to the caller.
func (o *Orchestrator) GetDetails(ctx context.Context, kind providers.Kind, meetingID string) (*providers.MeetingDetails, error) {
	provider := o.providerFor(kind)
	if provider == nil {
		return nil, errors.ProviderUnavailable(string(kind), nil)
	}
	return provider.GetMeetingDetails(ctx, meetingID)
}

func (o *Orchestrator) providerFor(kind providers.Kind) providers.Provider {
	switch kind {
	case providers.KindCalendar:
		return o.calendar
	case providers.KindMeeting:
		return o.meeting
	default:
		return nil
	}
}

// emit never lets a sink failure interfere with scheduling.
func (o *Orchestrator) emit(event Event) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("Event sink panicked", nil, logging.Any("panic", r))
		}
	}()
	o.sink.Emit(event)
}
