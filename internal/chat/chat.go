package chat

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleFaculty Role = "faculty"
	RoleAI      Role = "ai"
	// RoleError marks a local turn recording a failed reply. It is shown to
	// the user but never sent back as history.
	RoleError Role = "error"
)

// SuggestedQuestions are the canned prompts offered next to the chat input
var SuggestedQuestions = []string{
	"What are the hardest concepts here?",
	"Generate a quick quiz",
	"What should students know before this class?",
}

// Turn is one entry of a context's chat transcript
type Turn struct {
	ID        string    `json:"-" db:"id"`
	ContextID string    `json:"-" db:"context_id"`
	Role      Role      `json:"role" db:"role"`
	Content   string    `json:"content" db:"content"`
	Timestamp time.Time `json:"-" db:"timestamp"`
}

// NewTurn creates a new Turn for the given context
func NewTurn(contextID string, role Role, content string) Turn {
	return Turn{
		ID:        uuid.NewString(),
		ContextID: contextID,
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	}
}

// Message is the wire form of a turn in the chat history
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// History converts a transcript to wire messages, dropping error turns
func History(turns []Turn) []Message {
	history := make([]Message, 0, len(turns))
	for _, t := range turns {
		if t.Role == RoleError {
			continue
		}
		history = append(history, Message{Role: t.Role, Content: t.Content})
	}
	return history
}
