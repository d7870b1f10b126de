package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meeting-orchestrator/internal/providers"
	"meeting-orchestrator/internal/schedule"
)

// staticScheduler always returns the same meeting, so handler tests never
// touch a provider.
type staticScheduler struct{}

func (staticScheduler) Schedule(ctx context.Context, req *providers.MeetingRequest) *providers.MeetingResult {
	return &providers.MeetingResult{
		JoinURL:   "https://meet.example.com/room",
		MeetingID: "m-1",
	}
}

func (staticScheduler) Update(ctx context.Context, kind providers.Kind, meetingID string, update *providers.MeetingUpdate) {
}

func (staticScheduler) Cancel(ctx context.Context, kind providers.Kind, meetingID string) {}

func newTestRouter() *mux.Router {
	service := schedule.NewService(staticScheduler{}, schedule.NewMemoryStore())
	router := mux.NewRouter()
	New(service, nil, nil).RegisterRoutes(router)
	return router
}

func createInterview(t *testing.T, router *mux.Router) schedule.InterviewSchedule {
	t.Helper()

	body := `{
		"title": "Eng Interview",
		"scheduled_at": "2024-01-01T10:00:00Z",
		"duration_minutes": 30,
		"attendees": ["a@x.com", "b@x.com"],
		"meeting_kind": "MEETING_PROVIDER"
	}`

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/interviews", bytes.NewBufferString(body)))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created schedule.InterviewSchedule
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	return created
}

func TestScheduleInterview(t *testing.T) {
	router := newTestRouter()

	created := createInterview(t, router)

	assert.NotEmpty(t, created.ID)
	assert.Equal(t, schedule.StatusScheduled, created.Status)
	assert.Equal(t, "https://meet.example.com/room", created.JoinURL)
}

func TestScheduleInterview_BadRequests(t *testing.T) {
	router := newTestRouter()

	tests := []struct {
		name string
		body string
	}{
		{"malformed JSON", `{`},
		{"bad timestamp", `{"title":"x","scheduled_at":"tomorrow","duration_minutes":30}`},
		{"missing title", `{"scheduled_at":"2024-01-01T10:00:00Z","duration_minutes":30}`},
		{"duration out of window", `{"title":"x","scheduled_at":"2024-01-01T10:00:00Z","duration_minutes":5}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/interviews", bytes.NewBufferString(tt.body)))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestGetInterview(t *testing.T) {
	router := newTestRouter()
	created := createInterview(t, router)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/interviews/"+created.ID, nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var found schedule.InterviewSchedule
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &found))
	assert.Equal(t, created.ID, found.ID)
}

func TestGetInterview_NotFound(t *testing.T) {
	router := newTestRouter()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/interviews/missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRescheduleInterview(t *testing.T) {
	router := newTestRouter()
	created := createInterview(t, router)

	body := `{"scheduled_at": "2024-02-01T09:00:00Z"}`
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPatch, "/api/interviews/"+created.ID, bytes.NewBufferString(body)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var updated schedule.InterviewSchedule
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.Equal(t, schedule.StatusRescheduled, updated.Status)
}

func TestCancelInterview(t *testing.T) {
	router := newTestRouter()
	created := createInterview(t, router)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/interviews/"+created.ID, nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var cancelled schedule.InterviewSchedule
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cancelled))
	assert.Equal(t, schedule.StatusCancelled, cancelled.Status)

	// Second cancel hits the terminal state
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/interviews/"+created.ID, nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCompleteInterview(t *testing.T) {
	router := newTestRouter()
	created := createInterview(t, router)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/interviews/%s/complete", created.ID), nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var completed schedule.InterviewSchedule
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &completed))
	assert.Equal(t, schedule.StatusCompleted, completed.Status)
}

func TestHealthCheck(t *testing.T) {
	router := newTestRouter()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHealthCheck_Unhealthy(t *testing.T) {
	service := schedule.NewService(staticScheduler{}, schedule.NewMemoryStore())
	router := mux.NewRouter()
	New(service, func() error { return fmt.Errorf("db gone") }, nil).RegisterRoutes(router)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
