// Package google implements the calendar provider client. The meeting link
// is allocated by the provider as a side effect of creating a calendar event
// with a conference-create directive, never passed in.
package google

import (
	"context"
	stderrors "errors"
	"net"
	"time"

	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"meeting-orchestrator/internal/common/errors"
	"meeting-orchestrator/internal/common/logging"
	"meeting-orchestrator/internal/common/utils"
	"meeting-orchestrator/internal/providers"
)

// defaultCalendarID targets the service account's primary calendar.
const defaultCalendarID = "primary"

// conferenceSolutionType selects the provider's built-in video conferencing.
const conferenceSolutionType = "hangoutsMeet"

// defaultCallTimeout bounds every provider call so a hung provider cannot
// stall the scheduling path.
const defaultCallTimeout = 10 * time.Second

// Config holds the static configuration for the calendar provider.
type Config struct {
	// CredentialsFile is the path to the service account key file
	CredentialsFile string
	// CalendarID is the calendar events are created on; defaults to "primary"
	CalendarID string
}

// Client wraps the calendar API service. The service handle is built once at
// startup; when construction fails the client stays disabled for the process
// lifetime and every call returns ProviderUnavailable with the recorded
// reason. Call sites check Configured(), not a silent no-op handle.
type Client struct {
	service     *calendar.Service
	calendarID  string
	callTimeout time.Duration
	initErr     error
	logger      logging.Logger
}

// Option configures client construction.
type Option func(*clientOptions)

type clientOptions struct {
	logger      logging.Logger
	clientOpts  []option.ClientOption
	callTimeout time.Duration
}

// WithLogger sets the client's logger.
func WithLogger(logger logging.Logger) Option {
	return func(o *clientOptions) {
		o.logger = logger
	}
}

// WithClientOptions appends raw API client options. Tests use this to point
// the service at an httptest server.
func WithClientOptions(opts ...option.ClientOption) Option {
	return func(o *clientOptions) {
		o.clientOpts = append(o.clientOpts, opts...)
	}
}

// WithCallTimeout overrides the per-call deadline applied to every API call.
// Non-positive values keep the default.
func WithCallTimeout(timeout time.Duration) Option {
	return func(o *clientOptions) {
		if timeout > 0 {
			o.callTimeout = timeout
		}
	}
}

// NewClient builds the calendar client. A missing credentials file or a
// failed service construction does not return an error: the client comes up
// disabled so the orchestrator degrades to fallback instead of crashing the
// process at startup.
func NewClient(ctx context.Context, config Config, opts ...Option) *Client {
	o := &clientOptions{
		logger:      logging.GetGlobalLogger(),
		callTimeout: defaultCallTimeout,
	}
	for _, opt := range opts {
		opt(o)
	}

	c := &Client{
		calendarID:  config.CalendarID,
		callTimeout: o.callTimeout,
		logger:      o.logger,
	}
	if c.calendarID == "" {
		c.calendarID = defaultCalendarID
	}

	if config.CredentialsFile == "" && len(o.clientOpts) == 0 {
		c.initErr = errors.CredentialsMissing("calendar credentials file")
		c.logger.Info("Calendar provider disabled: no credentials configured")
		return c
	}

	clientOpts := o.clientOpts
	if config.CredentialsFile != "" {
		clientOpts = append([]option.ClientOption{
			option.WithCredentialsFile(config.CredentialsFile),
			option.WithScopes(calendar.CalendarScope),
		}, clientOpts...)
	}

	service, err := calendar.NewService(ctx, clientOpts...)
	if err != nil {
		c.initErr = errors.ProviderUnavailable("calendar", err)
		c.logger.Error("Calendar provider disabled: service construction failed", err,
			logging.String("credentials_file", config.CredentialsFile))
		return c
	}

	c.service = service
	return c
}

// Kind identifies the requests this client services.
func (c *Client) Kind() providers.Kind {
	return providers.KindCalendar
}

// Configured reports whether the underlying service was constructed.
func (c *Client) Configured() bool {
	return c.service != nil
}

// unavailable returns the reason recorded at construction time.
func (c *Client) unavailable() error {
	if c.initErr != nil {
		return c.initErr
	}
	return errors.ProviderUnavailable("calendar", nil)
}

// callContext bounds one provider operation with the per-call deadline.
func (c *Client) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.callTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.callTimeout)
}

// CreateMeeting creates a calendar event carrying a conference-create
// directive; the provider allocates the meeting link as a side effect. The
// per-call conference request id makes the single retry idempotent.
func (c *Client) CreateMeeting(ctx context.Context, req *providers.MeetingRequest) (*providers.MeetingResult, error) {
	if c.service == nil {
		return nil, c.unavailable()
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	ctx, cancel := c.callContext(ctx)
	defer cancel()

	attendees := make([]*calendar.EventAttendee, 0, len(req.Attendees))
	for _, email := range req.Attendees {
		attendees = append(attendees, &calendar.EventAttendee{
			Email:          email,
			ResponseStatus: "needsAction",
		})
	}

	event := &calendar.Event{
		Summary:     req.Title,
		Description: req.Description,
		Start: &calendar.EventDateTime{
			DateTime: req.StartTime.UTC().Format(time.RFC3339),
			TimeZone: "UTC",
		},
		End: &calendar.EventDateTime{
			DateTime: req.EndTime().Format(time.RFC3339),
			TimeZone: "UTC",
		},
		Attendees: attendees,
		ConferenceData: &calendar.ConferenceData{
			CreateRequest: &calendar.CreateConferenceRequest{
				RequestId: utils.GenerateConferenceRequestID(),
				ConferenceSolutionKey: &calendar.ConferenceSolutionKey{
					Type: conferenceSolutionType,
				},
			},
		},
	}

	var created *calendar.Event
	err := utils.RetryWithBackoff(ctx, transientRetryConfig(), func() error {
		var callErr error
		created, callErr = c.service.Events.Insert(c.calendarID, event).
			ConferenceDataVersion(1).
			Context(ctx).
			Do()
		return callErr
	})
	if err != nil {
		return nil, errors.ProviderRequestFailed("failed to create calendar event", err)
	}

	joinURL, err := extractJoinURL(created)
	if err != nil {
		return nil, err
	}

	meetingID := created.Id
	if created.ConferenceData != nil && created.ConferenceData.ConferenceId != "" {
		meetingID = created.ConferenceData.ConferenceId
	}

	return &providers.MeetingResult{
		JoinURL:         joinURL,
		MeetingID:       meetingID,
		CalendarEventID: created.Id,
	}, nil
}

// extractJoinURL maps the conference payload onto a join URL with explicit
// shape validation. A nominally successful event without a usable entry
// point is a provider failure, not an empty string.
func extractJoinURL(event *calendar.Event) (string, error) {
	if event.ConferenceData == nil || len(event.ConferenceData.EntryPoints) == 0 {
		if event.HangoutLink != "" {
			return event.HangoutLink, nil
		}
		return "", errors.ProviderRequestFailed("calendar event is missing conference entry points", nil)
	}

	uri := event.ConferenceData.EntryPoints[0].Uri
	if uri == "" {
		return "", errors.ProviderRequestFailed("calendar event conference entry point has no URI", nil)
	}
	return uri, nil
}

// UpdateMeeting patches only the changed fields. Omitted fields never clear
// event state server-side: Patch sends nothing for fields left unset, and an
// explicitly empty attendee list is force-sent to clear it.
func (c *Client) UpdateMeeting(ctx context.Context, eventID string, update *providers.MeetingUpdate) error {
	if c.service == nil {
		return c.unavailable()
	}
	if update.Empty() {
		return nil
	}
	ctx, cancel := c.callContext(ctx)
	defer cancel()

	patch := &calendar.Event{}
	if update.Title != nil {
		patch.Summary = *update.Title
		if *update.Title == "" {
			patch.ForceSendFields = append(patch.ForceSendFields, "Summary")
		}
	}
	if update.Description != nil {
		patch.Description = *update.Description
		if *update.Description == "" {
			patch.ForceSendFields = append(patch.ForceSendFields, "Description")
		}
	}
	if update.Attendees != nil {
		attendees := make([]*calendar.EventAttendee, 0, len(update.Attendees))
		for _, email := range update.Attendees {
			attendees = append(attendees, &calendar.EventAttendee{
				Email:          email,
				ResponseStatus: "needsAction",
			})
		}
		patch.Attendees = attendees
		if len(attendees) == 0 {
			patch.ForceSendFields = append(patch.ForceSendFields, "Attendees")
		}
	}

	if update.StartTime != nil || update.Duration != nil {
		start, end, err := c.resolveEventTimes(ctx, eventID, update)
		if err != nil {
			return err
		}
		patch.Start = &calendar.EventDateTime{DateTime: start.Format(time.RFC3339), TimeZone: "UTC"}
		patch.End = &calendar.EventDateTime{DateTime: end.Format(time.RFC3339), TimeZone: "UTC"}
	}

	_, err := c.service.Events.Patch(c.calendarID, eventID, patch).Context(ctx).Do()
	if err != nil {
		return errors.ProviderRequestFailed("failed to update calendar event", err)
	}
	return nil
}

// resolveEventTimes computes the new start and end. When only one of start
// or duration changed, the other side comes from the stored event.
func (c *Client) resolveEventTimes(ctx context.Context, eventID string, update *providers.MeetingUpdate) (time.Time, time.Time, error) {
	var start time.Time
	var duration time.Duration

	if update.StartTime != nil {
		start = update.StartTime.UTC()
	}
	if update.Duration != nil {
		duration = *update.Duration
	}

	if update.StartTime == nil || update.Duration == nil {
		existing, err := c.service.Events.Get(c.calendarID, eventID).Context(ctx).Do()
		if err != nil {
			return time.Time{}, time.Time{}, errors.ProviderRequestFailed("failed to fetch calendar event for update", err)
		}

		curStart, curEnd, err := parseEventTimes(existing)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		if update.StartTime == nil {
			start = curStart
		}
		if update.Duration == nil {
			duration = curEnd.Sub(curStart)
		}
	}

	return start, start.Add(duration), nil
}

func parseEventTimes(event *calendar.Event) (time.Time, time.Time, error) {
	if event.Start == nil || event.End == nil {
		return time.Time{}, time.Time{}, errors.ProviderRequestFailed("calendar event is missing start or end", nil)
	}
	start, err := time.Parse(time.RFC3339, event.Start.DateTime)
	if err != nil {
		return time.Time{}, time.Time{}, errors.ProviderRequestFailed("calendar event start is not parseable", err)
	}
	end, err := time.Parse(time.RFC3339, event.End.DateTime)
	if err != nil {
		return time.Time{}, time.Time{}, errors.ProviderRequestFailed("calendar event end is not parseable", err)
	}
	return start.UTC(), end.UTC(), nil
}

// CancelMeeting deletes the calendar event. Events already gone count as
// cancelled.
func (c *Client) CancelMeeting(ctx context.Context, eventID string) error {
	if c.service == nil {
		return c.unavailable()
	}
	ctx, cancel := c.callContext(ctx)
	defer cancel()

	err := c.service.Events.Delete(c.calendarID, eventID).Context(ctx).Do()
	if err != nil {
		if gerr, ok := err.(*googleapi.Error); ok && (gerr.Code == 404 || gerr.Code == 410) {
			return nil
		}
		return errors.ProviderRequestFailed("failed to cancel calendar event", err)
	}
	return nil
}

// GetMeetingDetails fetches the stored event and maps it back to the
// provider-neutral shape.
func (c *Client) GetMeetingDetails(ctx context.Context, eventID string) (*providers.MeetingDetails, error) {
	if c.service == nil {
		return nil, c.unavailable()
	}
	ctx, cancel := c.callContext(ctx)
	defer cancel()

	event, err := c.service.Events.Get(c.calendarID, eventID).Context(ctx).Do()
	if err != nil {
		return nil, errors.ProviderRequestFailed("failed to fetch calendar event", err)
	}

	joinURL, err := extractJoinURL(event)
	if err != nil {
		return nil, err
	}

	return &providers.MeetingDetails{
		JoinURL:    joinURL,
		ProviderID: event.Id,
		Status:     event.Status,
	}, nil
}

// transientRetryConfig retries once, quickly, and only on transport-level
// failures. API-level rejections are never retried.
func transientRetryConfig() utils.RetryConfig {
	return utils.RetryConfig{
		MaxAttempts:   2,
		InitialDelay:  200 * time.Millisecond,
		MaxDelay:      200 * time.Millisecond,
		BackoffFactor: 1.0,
		RetryableErrors: func(err error) bool {
			if _, ok := err.(*googleapi.Error); ok {
				return false
			}
			var netErr net.Error
			if stderrors.As(err, &netErr) {
				return true
			}
			return false
		},
	}
}
