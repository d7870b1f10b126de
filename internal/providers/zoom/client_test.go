package zoom

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"meeting-orchestrator/internal/common/errors"
	"meeting-orchestrator/internal/providers"
)

func testConfig(tokenURL, baseURL string) Config {
	return Config{
		AccountID:    "acct-1",
		ClientID:     "client-1",
		ClientSecret: "secret-1",
		TokenURL:     tokenURL,
		BaseURL:      baseURL,
	}
}

// newTokenServer returns a mock OAuth token endpoint that validates the
// account-credentials grant shape.
func newTokenServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST to token endpoint, got %s", r.Method)
		}
		if got := r.URL.Query().Get("grant_type"); got != "account_credentials" {
			t.Errorf("expected grant_type=account_credentials, got %q", got)
		}
		if got := r.URL.Query().Get("account_id"); got != "acct-1" {
			t.Errorf("expected account_id=acct-1, got %q", got)
		}
		user, pass, ok := r.BasicAuth()
		if !ok || user != "client-1" || pass != "secret-1" {
			t.Errorf("expected basic auth client-1:secret-1, got %q:%q ok=%v", user, pass, ok)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"access_token": "test-access-token",
			"token_type":   "bearer",
			"expires_in":   3600,
		})
	}))
}

func baseRequest() *providers.MeetingRequest {
	return &providers.MeetingRequest{
		Title:     "Eng Interview",
		StartTime: time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC),
		Duration:  30 * time.Minute,
		Attendees: []string{"a@x.com", "b@x.com"},
		Kind:      providers.KindMeeting,
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		config Config
		valid  bool
	}{
		{"all credentials present", Config{AccountID: "a", ClientID: "b", ClientSecret: "c"}, true},
		{"missing account id", Config{ClientID: "b", ClientSecret: "c"}, false},
		{"missing client id", Config{AccountID: "a", ClientSecret: "c"}, false},
		{"missing client secret", Config{AccountID: "a", ClientID: "b"}, false},
		{"empty config", Config{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.valid && err != nil {
				t.Errorf("expected valid config, got %v", err)
			}
			if !tt.valid && !errors.IsType(err, errors.ErrTypeCredentialsMissing) {
				t.Errorf("expected CredentialsMissing, got %v", err)
			}
		})
	}
}

func TestClient_Configured(t *testing.T) {
	if !NewClient(testConfig("http://unused", "http://unused")).Configured() {
		t.Error("expected configured client")
	}
	if NewClient(Config{ClientID: "only"}).Configured() {
		t.Error("expected unconfigured client with partial credentials")
	}
}

func TestClient_Kind(t *testing.T) {
	if kind := NewClient(Config{}).Kind(); kind != providers.KindMeeting {
		t.Errorf("expected %s, got %s", providers.KindMeeting, kind)
	}
}

func TestClient_CreateMeeting(t *testing.T) {
	tokenSrv := newTokenServer(t)
	defer tokenSrv.Close()

	apiSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/users/me/meetings" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "bearer test-access-token" {
			t.Errorf("unexpected authorization header %q", got)
		}

		var body createMeetingRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("failed to decode request body: %v", err)
		}
		if body.Topic != "Eng Interview" {
			t.Errorf("expected topic carried through, got %q", body.Topic)
		}
		if body.Type != meetingTypeScheduled {
			t.Errorf("expected scheduled meeting type, got %d", body.Type)
		}
		if body.Duration != 30 {
			t.Errorf("expected duration 30 minutes, got %d", body.Duration)
		}
		if body.StartTime != "2024-01-01T10:00:00Z" {
			t.Errorf("expected UTC RFC3339 start, got %q", body.StartTime)
		}
		if !body.Settings.HostVideo || !body.Settings.ParticipantVideo {
			t.Error("expected video on for host and participant")
		}
		if body.Settings.JoinBeforeHost || body.Settings.WaitingRoom || body.Settings.EnforceLogin {
			t.Error("expected join-before-host, waiting room and forced login disabled")
		}
		if body.Settings.Audio != "both" || body.Settings.AutoRecording != "none" {
			t.Errorf("unexpected audio/recording policy: %+v", body.Settings)
		}

		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"id":       int64(987654321),
			"join_url": "https://zoom.example.com/j/987654321",
			"password": "s3cret",
		})
	}))
	defer apiSrv.Close()

	client := NewClient(testConfig(tokenSrv.URL, apiSrv.URL))
	result, err := client.CreateMeeting(context.Background(), baseRequest())
	if err != nil {
		t.Fatalf("CreateMeeting failed: %v", err)
	}

	if result.MeetingID != "987654321" {
		t.Errorf("expected stringified numeric id, got %q", result.MeetingID)
	}
	if result.JoinURL != "https://zoom.example.com/j/987654321" {
		t.Errorf("unexpected join URL %q", result.JoinURL)
	}
	if result.Password != "s3cret" {
		t.Errorf("expected password carried through, got %q", result.Password)
	}
	if result.UsedFallback {
		t.Error("expected direct provider result")
	}
}

func TestClient_CreateMeeting_Unconfigured(t *testing.T) {
	client := NewClient(Config{})

	_, err := client.CreateMeeting(context.Background(), baseRequest())
	if !errors.IsType(err, errors.ErrTypeCredentialsMissing) {
		t.Errorf("expected CredentialsMissing, got %v", err)
	}
}

func TestClient_CreateMeeting_MissingJoinURL(t *testing.T) {
	tokenSrv := newTokenServer(t)
	defer tokenSrv.Close()

	apiSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]interface{}{"id": int64(1)})
	}))
	defer apiSrv.Close()

	client := NewClient(testConfig(tokenSrv.URL, apiSrv.URL))
	_, err := client.CreateMeeting(context.Background(), baseRequest())
	if !errors.IsType(err, errors.ErrTypeProviderRequest) {
		t.Errorf("expected ProviderRequestFailed for missing join URL, got %v", err)
	}
}

func TestClient_TokenErrorClassification(t *testing.T) {
	tests := []struct {
		name         string
		status       int
		body         map[string]string
		expectedCode string
	}{
		{
			"invalid client credentials",
			http.StatusBadRequest,
			map[string]string{"error": "invalid_client", "reason": "Invalid client_id or client_secret"},
			errors.AuthCodeInvalidClient,
		},
		{
			"invalid account id",
			http.StatusBadRequest,
			map[string]string{"error": "invalid_request", "reason": "Invalid account id"},
			errors.AuthCodeInvalidAccount,
		},
		{
			"generic rejection",
			http.StatusInternalServerError,
			map[string]string{"error": "server_error", "reason": "try again"},
			"",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				json.NewEncoder(w).Encode(tt.body)
			}))
			defer tokenSrv.Close()

			client := NewClient(testConfig(tokenSrv.URL, "http://unused"))
			_, err := client.CreateMeeting(context.Background(), baseRequest())

			if !errors.IsType(err, errors.ErrTypeAuthProvider) {
				t.Fatalf("expected AuthProviderError, got %v", err)
			}
			if got := errors.GetCode(err); got != tt.expectedCode {
				t.Errorf("expected code %q, got %q", tt.expectedCode, got)
			}
		})
	}
}

func TestClient_UpdateMeeting_SparseBody(t *testing.T) {
	tokenSrv := newTokenServer(t)
	defer tokenSrv.Close()

	var received map[string]interface{}
	apiSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch {
			t.Errorf("expected PATCH, got %s", r.Method)
		}
		if r.URL.Path != "/meetings/123" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Fatalf("failed to decode body: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer apiSrv.Close()

	client := NewClient(testConfig(tokenSrv.URL, apiSrv.URL))
	newTitle := "Panel Interview"
	newStart := time.Date(2024, 2, 1, 14, 0, 0, 0, time.UTC)

	err := client.UpdateMeeting(context.Background(), "123", &providers.MeetingUpdate{
		Title:     &newTitle,
		StartTime: &newStart,
	})
	if err != nil {
		t.Fatalf("UpdateMeeting failed: %v", err)
	}

	if len(received) != 2 {
		t.Errorf("expected exactly the two changed fields, got %v", received)
	}
	if received["topic"] != "Panel Interview" {
		t.Errorf("expected topic update, got %v", received["topic"])
	}
	if received["start_time"] != "2024-02-01T14:00:00Z" {
		t.Errorf("expected start_time update, got %v", received["start_time"])
	}
	if _, present := received["duration"]; present {
		t.Error("unchanged duration must not be sent")
	}
}

func TestClient_UpdateMeeting_EmptyUpdateSkipsCall(t *testing.T) {
	called := false
	apiSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer apiSrv.Close()

	client := NewClient(testConfig(apiSrv.URL, apiSrv.URL))
	if err := client.UpdateMeeting(context.Background(), "123", &providers.MeetingUpdate{}); err != nil {
		t.Fatalf("empty update should be a no-op, got %v", err)
	}
	if called {
		t.Error("empty update must not reach the provider")
	}
}

func TestClient_CancelMeeting(t *testing.T) {
	tokenSrv := newTokenServer(t)
	defer tokenSrv.Close()

	apiSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete || r.URL.Path != "/meetings/123" {
			t.Errorf("unexpected call %s %s", r.Method, r.URL.Path)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer apiSrv.Close()

	client := NewClient(testConfig(tokenSrv.URL, apiSrv.URL))
	if err := client.CancelMeeting(context.Background(), "123"); err != nil {
		t.Fatalf("CancelMeeting failed: %v", err)
	}
}

func TestClient_CancelMeeting_AlreadyGone(t *testing.T) {
	tokenSrv := newTokenServer(t)
	defer tokenSrv.Close()

	apiSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer apiSrv.Close()

	client := NewClient(testConfig(tokenSrv.URL, apiSrv.URL))
	if err := client.CancelMeeting(context.Background(), "123"); err != nil {
		t.Errorf("cancelling an unknown meeting should succeed, got %v", err)
	}
}

func TestClient_GetMeetingDetails(t *testing.T) {
	tokenSrv := newTokenServer(t)
	defer tokenSrv.Close()

	apiSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/meetings/123" {
			t.Errorf("unexpected call %s %s", r.Method, r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"id":       int64(123),
			"join_url": "https://zoom.example.com/j/123",
			"status":   "waiting",
		})
	}))
	defer apiSrv.Close()

	client := NewClient(testConfig(tokenSrv.URL, apiSrv.URL))
	details, err := client.GetMeetingDetails(context.Background(), "123")
	if err != nil {
		t.Fatalf("GetMeetingDetails failed: %v", err)
	}
	if details.ProviderID != "123" || details.JoinURL != "https://zoom.example.com/j/123" || details.Status != "waiting" {
		t.Errorf("unexpected details %+v", details)
	}
}

func TestClient_TokenReusedAcrossCalls(t *testing.T) {
	tokenCalls := 0
	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenCalls++
		json.NewEncoder(w).Encode(map[string]interface{}{
			"access_token": "tok",
			"token_type":   "bearer",
			"expires_in":   3600,
		})
	}))
	defer tokenSrv.Close()

	apiSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"id":       int64(1),
			"join_url": "https://zoom.example.com/j/1",
		})
	}))
	defer apiSrv.Close()

	client := NewClient(testConfig(tokenSrv.URL, apiSrv.URL))
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if _, err := client.GetMeetingDetails(ctx, "1"); err != nil {
			t.Fatalf("call %d failed: %v", i, err)
		}
	}

	if tokenCalls != 1 {
		t.Errorf("expected one token exchange for three API calls, got %d", tokenCalls)
	}
}

func TestNewClient_CallTimeout(t *testing.T) {
	client := NewClient(testConfig("", ""))
	if client.httpClient.Timeout != defaultCallTimeout {
		t.Errorf("expected default call timeout %v, got %v", defaultCallTimeout, client.httpClient.Timeout)
	}

	custom := NewClient(testConfig("", ""), WithCallTimeout(2*time.Second))
	if custom.httpClient.Timeout != 2*time.Second {
		t.Errorf("expected 2s call timeout, got %v", custom.httpClient.Timeout)
	}

	ignored := NewClient(testConfig("", ""), WithCallTimeout(0))
	if ignored.httpClient.Timeout != defaultCallTimeout {
		t.Errorf("expected non-positive timeout to keep the default, got %v", ignored.httpClient.Timeout)
	}
}
