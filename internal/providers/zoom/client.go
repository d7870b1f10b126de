// Package zoom implements the dedicated meeting provider client: OAuth
// account-credentials token exchange plus the meeting CRUD API.
package zoom

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"meeting-orchestrator/internal/circuitbreaker"
	"meeting-orchestrator/internal/common/errors"
	commonhttp "meeting-orchestrator/internal/common/http"
	"meeting-orchestrator/internal/common/logging"
	"meeting-orchestrator/internal/providers"
	"meeting-orchestrator/internal/token"
)

const (
	defaultBaseURL  = "https://api.zoom.us/v2"
	defaultTokenURL = "https://zoom.us/oauth/token"
	defaultUserID   = "me"

	// defaultCallTimeout bounds every provider call so a hung provider
	// cannot stall the scheduling path
	defaultCallTimeout = 10 * time.Second

	// meetingTypeScheduled is the provider's code for a one-off scheduled
	// meeting (as opposed to instant or recurring)
	meetingTypeScheduled = 2
)

// Config holds the static credentials for the meeting provider. All three
// credential fields must be present for the client to be usable.
type Config struct {
	AccountID    string
	ClientID     string
	ClientSecret string
	// UserID is the acting user meetings are created under; defaults to "me"
	UserID string
	// BaseURL and TokenURL are overridable for tests
	BaseURL  string
	TokenURL string
}

// Validate checks that all required static credentials are present.
func (c *Config) Validate() error {
	if c.AccountID == "" {
		return errors.CredentialsMissing("account_id")
	}
	if c.ClientID == "" {
		return errors.CredentialsMissing("client_id")
	}
	if c.ClientSecret == "" {
		return errors.CredentialsMissing("client_secret")
	}
	return nil
}

// Client talks to the meeting provider API. API calls and token exchanges
// each run behind their own circuit breaker.
type Client struct {
	config       Config
	httpClient   *http.Client
	tokens       *token.Cache
	tokenStorage token.Storage
	apiBreaker   *circuitbreaker.GoBreakerAdapter
	authBreaker  *circuitbreaker.GoBreakerAdapter
	logger       logging.Logger
	callTimeout  time.Duration
	configured   bool
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client, for tests.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithLogger sets the client's logger.
func WithLogger(logger logging.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithTokenStorage persists bearer tokens across restarts.
func WithTokenStorage(storage token.Storage) Option {
	return func(c *Client) {
		c.tokenStorage = storage
	}
}

// WithCallTimeout overrides the per-call timeout bounding every HTTP round
// trip, including token exchanges. Non-positive values keep the default.
func WithCallTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.callTimeout = timeout
		}
	}
}

// NewClient creates a meeting provider client. Missing credentials do not
// fail construction: the client reports Configured() == false and every call
// returns CredentialsMissing, letting the orchestrator degrade gracefully.
func NewClient(config Config, opts ...Option) *Client {
	if config.UserID == "" {
		config.UserID = defaultUserID
	}
	if config.BaseURL == "" {
		config.BaseURL = defaultBaseURL
	}
	if config.TokenURL == "" {
		config.TokenURL = defaultTokenURL
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")

	c := &Client{
		config:      config,
		logger:      logging.GetGlobalLogger(),
		callTimeout: defaultCallTimeout,
		configured:  config.Validate() == nil,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = commonhttp.NewHTTPClientWithTimeout(c.callTimeout)
	}

	c.apiBreaker = circuitbreaker.NewGoBreaker("zoom-api", circuitbreaker.ProviderConfig, c.logger)
	c.authBreaker = circuitbreaker.NewGoBreaker("zoom-oauth", circuitbreaker.OAuthConfig, c.logger)

	tokenOpts := []token.Option{token.WithLogger(c.logger)}
	if c.tokenStorage != nil {
		tokenOpts = append(tokenOpts, token.WithStorage(c.tokenStorage))
	}
	c.tokens = token.NewCache("zoom", c.refreshToken, tokenOpts...)

	return c
}

// Kind identifies the requests this client services.
func (c *Client) Kind() providers.Kind {
	return providers.KindMeeting
}

// Configured reports whether all three static credentials are present. The
// orchestrator checks this before calling to avoid a doomed network round trip.
func (c *Client) Configured() bool {
	return c.configured
}

// tokenResponse is the token endpoint's success payload.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
	Scope       string `json:"scope,omitempty"`
}

// tokenErrorResponse is the token endpoint's failure payload.
type tokenErrorResponse struct {
	Error  string `json:"error"`
	Reason string `json:"reason"`
}

// refreshToken exchanges the account credentials for a bearer token. The
// provider wants HTTP Basic auth of client id:secret with the grant passed
// as query parameters rather than a form body.
func (c *Client) refreshToken(ctx context.Context) (*token.Token, error) {
	if err := c.config.Validate(); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("grant_type", "account_credentials")
	params.Set("account_id", c.config.AccountID)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.TokenURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, errors.AuthProviderError("failed to create token request", err)
	}
	req.SetBasicAuth(c.config.ClientID, c.config.ClientSecret)

	var resp *http.Response
	err = c.authBreaker.Execute(ctx, func() error {
		var httpErr error
		resp, httpErr = c.httpClient.Do(req)
		return httpErr
	})
	if err != nil {
		return nil, errors.AuthProviderError("token request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.classifyAuthError(resp)
	}

	var tokenResp tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return nil, errors.AuthProviderError("failed to decode token response", err)
	}
	if tokenResp.AccessToken == "" {
		return nil, errors.AuthProviderError("token response missing access token", nil)
	}

	expiry := time.Now()
	if tokenResp.ExpiresIn > 0 {
		expiry = expiry.Add(time.Duration(tokenResp.ExpiresIn) * time.Second)
	}

	return &token.Token{
		AccessToken: tokenResp.AccessToken,
		TokenType:   tokenResp.TokenType,
		Expiry:      expiry,
	}, nil
}

// classifyAuthError maps the provider's token rejection onto a distinct
// error code so operators can tell bad client credentials from a bad
// account id in the logs.
func (c *Client) classifyAuthError(resp *http.Response) error {
	var errResp tokenErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&errResp); err != nil {
		return errors.AuthProviderError(
			fmt.Sprintf("token request rejected with status %d", resp.StatusCode), nil)
	}

	reason := strings.ToLower(errResp.Reason)
	switch {
	case errResp.Error == "invalid_client":
		return errors.AuthProviderError(
			"provider rejected the client id or client secret", nil).
			WithCode(errors.AuthCodeInvalidClient)
	case strings.Contains(errResp.Error, "account") || strings.Contains(reason, "account"):
		return errors.AuthProviderError(
			"provider rejected the account id", nil).
			WithCode(errors.AuthCodeInvalidAccount)
	default:
		return errors.AuthProviderError(
			fmt.Sprintf("token request rejected: %s %s", errResp.Error, errResp.Reason), nil)
	}
}

// meetingSettings carries the fixed meeting policy. These are deliberate
// policy choices for interviews, not user-configurable knobs.
type meetingSettings struct {
	HostVideo        bool   `json:"host_video"`
	ParticipantVideo bool   `json:"participant_video"`
	JoinBeforeHost   bool   `json:"join_before_host"`
	WaitingRoom      bool   `json:"waiting_room"`
	ApprovalType     int    `json:"approval_type"`
	Audio            string `json:"audio"`
	AutoRecording    string `json:"auto_recording"`
	EnforceLogin     bool   `json:"enforce_login"`
}

// approvalTypeAutomatic auto-approves registrants.
const approvalTypeAutomatic = 0

func defaultMeetingSettings() meetingSettings {
	return meetingSettings{
		HostVideo:        true,
		ParticipantVideo: true,
		JoinBeforeHost:   false,
		WaitingRoom:      false,
		ApprovalType:     approvalTypeAutomatic,
		Audio:            "both",
		AutoRecording:    "none",
		EnforceLogin:     false,
	}
}

type createMeetingRequest struct {
	Topic     string          `json:"topic"`
	Type      int             `json:"type"`
	StartTime string          `json:"start_time"`
	Duration  int             `json:"duration"`
	Agenda    string          `json:"agenda,omitempty"`
	Settings  meetingSettings `json:"settings"`
}

type meetingResponse struct {
	ID       int64  `json:"id"`
	JoinURL  string `json:"join_url"`
	Password string `json:"password,omitempty"`
	Status   string `json:"status,omitempty"`
}

// CreateMeeting schedules a new meeting under the configured acting user.
func (c *Client) CreateMeeting(ctx context.Context, req *providers.MeetingRequest) (*providers.MeetingResult, error) {
	if !c.configured {
		return nil, errors.CredentialsMissing("meeting provider credentials")
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	body := createMeetingRequest{
		Topic:     req.Title,
		Type:      meetingTypeScheduled,
		StartTime: req.StartTime.UTC().Format(time.RFC3339),
		Duration:  int(req.Duration.Minutes()),
		Agenda:    req.Description,
		Settings:  defaultMeetingSettings(),
	}

	var meeting meetingResponse
	path := fmt.Sprintf("/users/%s/meetings", url.PathEscape(c.config.UserID))
	if err := c.doJSON(ctx, http.MethodPost, path, body, http.StatusCreated, &meeting); err != nil {
		return nil, err
	}

	if meeting.JoinURL == "" {
		return nil, errors.ProviderRequestFailed("meeting response missing join URL", nil)
	}

	return &providers.MeetingResult{
		JoinURL:   meeting.JoinURL,
		MeetingID: strconv.FormatInt(meeting.ID, 10),
		Password:  meeting.Password,
	}, nil
}

// UpdateMeeting applies a sparse update: only fields set on the update value
// are sent, so unchanged meeting state is never clobbered. The attendee list
// is not part of the provider's meeting object and is ignored here.
func (c *Client) UpdateMeeting(ctx context.Context, meetingID string, update *providers.MeetingUpdate) error {
	if !c.configured {
		return errors.CredentialsMissing("meeting provider credentials")
	}
	if update.Empty() {
		return nil
	}

	body := make(map[string]interface{})
	if update.Title != nil {
		body["topic"] = *update.Title
	}
	if update.Description != nil {
		body["agenda"] = *update.Description
	}
	if update.StartTime != nil {
		body["start_time"] = update.StartTime.UTC().Format(time.RFC3339)
	}
	if update.Duration != nil {
		body["duration"] = int(update.Duration.Minutes())
	}
	if len(body) == 0 {
		return nil
	}

	path := "/meetings/" + url.PathEscape(meetingID)
	return c.doJSON(ctx, http.MethodPatch, path, body, http.StatusNoContent, nil)
}

// CancelMeeting deletes a meeting. A meeting the provider no longer knows
// about counts as cancelled.
func (c *Client) CancelMeeting(ctx context.Context, meetingID string) error {
	if !c.configured {
		return errors.CredentialsMissing("meeting provider credentials")
	}

	path := "/meetings/" + url.PathEscape(meetingID)
	err := c.doJSON(ctx, http.MethodDelete, path, nil, http.StatusNoContent, nil)
	if err != nil && errors.IsType(err, errors.ErrTypeNotFound) {
		return nil
	}
	return err
}

// GetMeetingDetails fetches the provider's current view of a meeting.
func (c *Client) GetMeetingDetails(ctx context.Context, meetingID string) (*providers.MeetingDetails, error) {
	if !c.configured {
		return nil, errors.CredentialsMissing("meeting provider credentials")
	}

	var meeting meetingResponse
	path := "/meetings/" + url.PathEscape(meetingID)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, http.StatusOK, &meeting); err != nil {
		return nil, err
	}

	return &providers.MeetingDetails{
		JoinURL:    meeting.JoinURL,
		ProviderID: strconv.FormatInt(meeting.ID, 10),
		Status:     meeting.Status,
	}, nil
}

// doJSON runs one authenticated API call through the circuit breaker.
// wantStatus is the single status the endpoint returns on success; out is
// decoded from the body when non-nil.
func (c *Client) doJSON(ctx context.Context, method, path string, body interface{}, wantStatus int, out interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return errors.ProviderRequestFailed("failed to encode request body", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.config.BaseURL+path, reqBody)
	if err != nil {
		return errors.ProviderRequestFailed("failed to create request", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	authHeader, err := c.tokens.AuthorizationHeader(ctx)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", authHeader)

	var resp *http.Response
	err = c.apiBreaker.Execute(ctx, func() error {
		var httpErr error
		resp, httpErr = c.httpClient.Do(req)
		return httpErr
	})
	if err != nil {
		return errors.ProviderRequestFailed(fmt.Sprintf("%s %s failed", method, path), err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == wantStatus:
		// fall through to decode
	case resp.StatusCode == http.StatusUnauthorized:
		// A rejected token mid-lifetime means the cached token is stale;
		// drop it so the next call refreshes.
		c.tokens.Invalidate(ctx)
		return errors.ProviderRequestFailed(
			fmt.Sprintf("%s %s rejected with status 401", method, path), nil)
	case resp.StatusCode == http.StatusNotFound:
		return errors.NotFoundError("meeting")
	default:
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return errors.ProviderRequestFailed(
			fmt.Sprintf("%s %s returned status %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(payload))), nil)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return errors.ProviderRequestFailed("failed to decode response body", err)
		}
	}
	return nil
}
