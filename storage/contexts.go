package storage

import (
	"time"

	"github.com/gennadis/facultydash/internal/logger"
	"github.com/gennadis/facultydash/internal/session"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

// Visit records one activation of a context
type Visit struct {
	session.Context
	Action    string    `db:"action"`
	Timestamp time.Time `db:"timestamp"`
}

// Contexts is a storage for context activations
type Contexts struct {
	db  *sqlx.DB
	log *logger.Logger
}

// NewContexts creates a new Contexts storage
func NewContexts(db *sqlx.DB, log *logger.Logger) (*Contexts, error) {
	createVisitsTable := `
	CREATE TABLE IF NOT EXISTS context_visits (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		course_id TEXT NOT NULL,
		division TEXT NOT NULL,
		action TEXT NOT NULL,
		timestamp DATETIME DEFAULT CURRENT_TIMESTAMP
	)
	`
	if _, err := db.Exec(createVisitsTable); err != nil {
		return nil, errors.Wrap(err, "failed to create context_visits table")
	}

	return &Contexts{db: db, log: log}, nil
}

// Read returns all visits, most recent first
func (s *Contexts) Read() ([]Visit, error) {
	var visits []Visit
	err := s.db.Select(&visits, "SELECT course_id, division, action, timestamp FROM context_visits ORDER BY seq DESC")
	if err != nil {
		return nil, errors.Wrap(err, "failed to get context visits")
	}

	s.log.Debug("read context visits", "count", len(visits))
	return visits, nil
}

// Write records a visit
func (s *Contexts) Write(visit Visit) error {
	if visit.Timestamp.IsZero() {
		visit.Timestamp = time.Now()
	}
	insertQuery := "INSERT INTO context_visits (course_id, division, action, timestamp) VALUES (?, ?, ?, ?)"
	if _, err := s.db.Exec(insertQuery, visit.CourseID, visit.Division, visit.Action, visit.Timestamp); err != nil {
		return errors.Wrapf(err, "failed to insert visit of %s", visit.ID())
	}

	s.log.Debug("context visit recorded",
		"context_id", visit.ID(),
		"action", visit.Action,
	)
	return nil
}
