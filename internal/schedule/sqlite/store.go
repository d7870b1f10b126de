// Package sqlite provides the SQLite-backed interview schedule store.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"meeting-orchestrator/internal/common/errors"
	"meeting-orchestrator/internal/providers"
	"meeting-orchestrator/internal/schedule"
)

// Store implements schedule.Store on SQLite.
type Store struct {
	db *sql.DB
}

// NewStore opens the database at the given path and runs migrations.
func NewStore(databasePath string) (*Store, error) {
	if databasePath == "" {
		return nil, fmt.Errorf("database path is required")
	}

	db, err := sql.Open("sqlite3", databasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return s, nil
}

// Close closes the underlying database handle.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Health pings the database.
func (s *Store) Health() error {
	return s.db.Ping()
}

func (s *Store) migrate() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS interview_schedules (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			description TEXT DEFAULT '',
			meeting_kind TEXT NOT NULL,
			meeting_id TEXT DEFAULT '',
			calendar_event_id TEXT DEFAULT '',
			join_url TEXT NOT NULL,
			status TEXT NOT NULL,
			scheduled_at DATETIME NOT NULL,
			duration_minutes INTEGER NOT NULL,
			attendees TEXT DEFAULT '[]',
			used_fallback BOOLEAN DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_interview_schedules_status ON interview_schedules(status)`,
		`CREATE INDEX IF NOT EXISTS idx_interview_schedules_scheduled_at ON interview_schedules(scheduled_at)`,
	}

	for _, query := range queries {
		if _, err := s.db.Exec(query); err != nil {
			return fmt.Errorf("failed to execute migration query: %w", err)
		}
	}

	return nil
}

// Create persists a new schedule record.
func (s *Store) Create(ctx context.Context, sched *schedule.InterviewSchedule) error {
	attendees, err := json.Marshal(sched.Attendees)
	if err != nil {
		return fmt.Errorf("failed to serialize attendees: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO interview_schedules
			(id, title, description, meeting_kind, meeting_id, calendar_event_id,
			 join_url, status, scheduled_at, duration_minutes, attendees,
			 used_fallback, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sched.ID, sched.Title, sched.Description, string(sched.MeetingKind),
		sched.MeetingID, sched.CalendarEventID, sched.JoinURL, string(sched.Status),
		sched.ScheduledAt.UTC(), int(sched.Duration.Minutes()), string(attendees),
		sched.UsedFallback, sched.CreatedAt.UTC(), sched.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to insert schedule: %w", err)
	}
	return nil
}

// FindByID returns the schedule record or a not-found error.
func (s *Store) FindByID(ctx context.Context, id string) (*schedule.InterviewSchedule, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, title, description, meeting_kind, meeting_id, calendar_event_id,
			join_url, status, scheduled_at, duration_minutes, attendees,
			used_fallback, created_at, updated_at
		 FROM interview_schedules WHERE id = ?`, id)

	var sched schedule.InterviewSchedule
	var meetingKind, status, attendees string
	var durationMinutes int
	var scheduledAt, createdAt, updatedAt time.Time

	err := row.Scan(&sched.ID, &sched.Title, &sched.Description, &meetingKind,
		&sched.MeetingID, &sched.CalendarEventID, &sched.JoinURL, &status,
		&scheduledAt, &durationMinutes, &attendees, &sched.UsedFallback,
		&createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, errors.NotFoundError("interview schedule " + id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query schedule: %w", err)
	}

	sched.MeetingKind = providers.Kind(meetingKind)
	sched.Status = schedule.Status(status)
	sched.ScheduledAt = scheduledAt.UTC()
	sched.Duration = time.Duration(durationMinutes) * time.Minute
	sched.CreatedAt = createdAt.UTC()
	sched.UpdatedAt = updatedAt.UTC()

	if err := json.Unmarshal([]byte(attendees), &sched.Attendees); err != nil {
		return nil, fmt.Errorf("failed to deserialize attendees: %w", err)
	}

	return &sched, nil
}

// Update overwrites an existing record.
func (s *Store) Update(ctx context.Context, sched *schedule.InterviewSchedule) error {
	attendees, err := json.Marshal(sched.Attendees)
	if err != nil {
		return fmt.Errorf("failed to serialize attendees: %w", err)
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE interview_schedules SET
			title = ?, description = ?, meeting_kind = ?, meeting_id = ?,
			calendar_event_id = ?, join_url = ?, status = ?, scheduled_at = ?,
			duration_minutes = ?, attendees = ?, used_fallback = ?, updated_at = ?
		 WHERE id = ?`,
		sched.Title, sched.Description, string(sched.MeetingKind), sched.MeetingID,
		sched.CalendarEventID, sched.JoinURL, string(sched.Status),
		sched.ScheduledAt.UTC(), int(sched.Duration.Minutes()), string(attendees),
		sched.UsedFallback, sched.UpdatedAt.UTC(), sched.ID)
	if err != nil {
		return fmt.Errorf("failed to update schedule: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return errors.NotFoundError("interview schedule " + sched.ID)
	}
	return nil
}
