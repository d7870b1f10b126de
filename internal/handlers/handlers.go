// Package handlers exposes the interview schedule service over a thin JSON
// API. Routing depth, auth guards and the rest of the CRM surface live
// elsewhere.
package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"meeting-orchestrator/internal/common/errors"
	"meeting-orchestrator/internal/common/logging"
	"meeting-orchestrator/internal/providers"
	"meeting-orchestrator/internal/schedule"
)

// Handlers holds the API dependencies.
type Handlers struct {
	service *schedule.Service
	health  func() error
	logger  logging.Logger
}

// New creates the API handlers. healthCheck may be nil when there is no
// backing store to probe.
func New(service *schedule.Service, healthCheck func() error, logger logging.Logger) *Handlers {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	return &Handlers{
		service: service,
		health:  healthCheck,
		logger:  logger,
	}
}

// RegisterRoutes attaches all endpoints to the router.
func (h *Handlers) RegisterRoutes(router *mux.Router) {
	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/interviews", h.ScheduleInterview).Methods("POST")
	api.HandleFunc("/interviews/{id}", h.GetInterview).Methods("GET")
	api.HandleFunc("/interviews/{id}", h.RescheduleInterview).Methods("PATCH")
	api.HandleFunc("/interviews/{id}", h.CancelInterview).Methods("DELETE")
	api.HandleFunc("/interviews/{id}/complete", h.CompleteInterview).Methods("POST")

	router.HandleFunc("/health", h.HealthCheck).Methods("GET")
}

// scheduleRequest is the JSON body for creating an interview schedule.
type scheduleRequest struct {
	Title           string   `json:"title"`
	Description     string   `json:"description,omitempty"`
	ScheduledAt     string   `json:"scheduled_at"`
	DurationMinutes int      `json:"duration_minutes"`
	Attendees       []string `json:"attendees"`
	MeetingKind     string   `json:"meeting_kind"`
}

// updateRequest is the sparse JSON body for rescheduling. Absent fields stay
// unchanged.
type updateRequest struct {
	Title           *string  `json:"title,omitempty"`
	Description     *string  `json:"description,omitempty"`
	ScheduledAt     *string  `json:"scheduled_at,omitempty"`
	DurationMinutes *int     `json:"duration_minutes,omitempty"`
	Attendees       []string `json:"attendees,omitempty"`
}

// ScheduleInterview creates a schedule with a guaranteed meeting link.
func (h *Handlers) ScheduleInterview(w http.ResponseWriter, r *http.Request) {
	var body scheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.respondError(w, errors.ValidationError("invalid JSON body"))
		return
	}

	scheduledAt, err := time.Parse(time.RFC3339, body.ScheduledAt)
	if err != nil {
		h.respondError(w, errors.ValidationError("scheduled_at must be an RFC3339 timestamp"))
		return
	}

	sched, err := h.service.ScheduleInterview(r.Context(), &schedule.ScheduleRequest{
		Title:       body.Title,
		Description: body.Description,
		ScheduledAt: scheduledAt,
		Duration:    time.Duration(body.DurationMinutes) * time.Minute,
		Attendees:   body.Attendees,
		MeetingKind: providers.Kind(body.MeetingKind),
	})
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.respondJSON(w, http.StatusCreated, sched)
}

// GetInterview returns a stored schedule.
func (h *Handlers) GetInterview(w http.ResponseWriter, r *http.Request) {
	sched, err := h.service.GetInterview(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, sched)
}

// RescheduleInterview applies a sparse update.
func (h *Handlers) RescheduleInterview(w http.ResponseWriter, r *http.Request) {
	var body updateRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.respondError(w, errors.ValidationError("invalid JSON body"))
		return
	}

	update := &schedule.UpdateRequest{
		Title:       body.Title,
		Description: body.Description,
		Attendees:   body.Attendees,
	}
	if body.ScheduledAt != nil {
		scheduledAt, err := time.Parse(time.RFC3339, *body.ScheduledAt)
		if err != nil {
			h.respondError(w, errors.ValidationError("scheduled_at must be an RFC3339 timestamp"))
			return
		}
		update.ScheduledAt = &scheduledAt
	}
	if body.DurationMinutes != nil {
		duration := time.Duration(*body.DurationMinutes) * time.Minute
		update.Duration = &duration
	}

	sched, err := h.service.RescheduleInterview(r.Context(), mux.Vars(r)["id"], update)
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, sched)
}

// CancelInterview cancels a schedule; the remote meeting cancel is
// best-effort behind the service.
func (h *Handlers) CancelInterview(w http.ResponseWriter, r *http.Request) {
	sched, err := h.service.CancelInterview(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, sched)
}

// CompleteInterview marks a schedule completed.
func (h *Handlers) CompleteInterview(w http.ResponseWriter, r *http.Request) {
	sched, err := h.service.CompleteInterview(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, sched)
}

// HealthCheck reports process and store health.
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	if h.health != nil {
		if err := h.health(); err != nil {
			h.respondJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "unhealthy",
				"error":  err.Error(),
			})
			return
		}
	}
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handlers) respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("Failed to encode response", err)
	}
}

func (h *Handlers) respondError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch errors.GetType(err) {
	case errors.ErrTypeValidation:
		status = http.StatusBadRequest
	case errors.ErrTypeNotFound:
		status = http.StatusNotFound
	}

	if status == http.StatusInternalServerError {
		h.logger.Error("Request failed", err)
	}

	h.respondJSON(w, status, map[string]string{"error": err.Error()})
}
