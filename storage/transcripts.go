package storage

import (
	"time"

	"github.com/gennadis/facultydash/internal/chat"
	"github.com/gennadis/facultydash/internal/logger"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

// Transcripts stores chat turns per context
type Transcripts struct {
	db  *sqlx.DB
	log *logger.Logger
}

// NewTranscripts creates a new Transcripts storage
func NewTranscripts(db *sqlx.DB, log *logger.Logger) (*Transcripts, error) {
	createTurnsTable := `
	CREATE TABLE IF NOT EXISTS chat_turns (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		context_id TEXT NOT NULL,
		role TEXT NOT NULL,
		content TEXT NOT NULL,
		timestamp DATETIME DEFAULT CURRENT_TIMESTAMP
	)
	`
	if _, err := db.Exec(createTurnsTable); err != nil {
		return nil, errors.Wrap(err, "failed to create chat_turns table")
	}

	return &Transcripts{db: db, log: log}, nil
}

// Read returns the transcript of a context in append order
func (s *Transcripts) Read(contextID string) ([]chat.Turn, error) {
	var turns []chat.Turn
	err := s.db.Select(&turns, "SELECT id, context_id, role, content, timestamp FROM chat_turns WHERE context_id = ? ORDER BY seq ASC", contextID)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get chat turns for context %s", contextID)
	}

	s.log.Debug("read chat turns",
		"context_id", contextID,
		"count", len(turns),
	)
	return turns, nil
}

// Append writes a turn at the end of its context's transcript
func (s *Transcripts) Append(turn chat.Turn) error {
	if turn.Timestamp.IsZero() {
		turn.Timestamp = time.Now()
	}
	insertQuery := "INSERT INTO chat_turns (id, context_id, role, content, timestamp) VALUES (?, ?, ?, ?, ?)"
	if _, err := s.db.Exec(insertQuery, turn.ID, turn.ContextID, turn.Role, turn.Content, turn.Timestamp); err != nil {
		return errors.Wrapf(err, "failed to insert chat turn %s", turn.ID)
	}

	s.log.Debug("chat turn appended",
		"id", turn.ID,
		"context_id", turn.ContextID,
		"role", string(turn.Role),
	)
	return nil
}

// Clear deletes the transcript of a context
func (s *Transcripts) Clear(contextID string) error {
	res, err := s.db.Exec("DELETE FROM chat_turns WHERE context_id = ?", contextID)
	if err != nil {
		return errors.Wrapf(err, "failed to delete chat turns for context %s", contextID)
	}

	n, _ := res.RowsAffected()
	s.log.Debug("chat turns cleared",
		"context_id", contextID,
		"count", n,
	)
	return nil
}
