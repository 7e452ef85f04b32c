package chat

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistoryDropsErrorTurns(t *testing.T) {
	turns := []Turn{
		NewTurn("CS101/A", RoleFaculty, "first"),
		NewTurn("CS101/A", RoleError, "no reply"),
		NewTurn("CS101/A", RoleFaculty, "second"),
		NewTurn("CS101/A", RoleAI, "answer"),
	}

	assert.Equal(t, []Message{
		{Role: RoleFaculty, Content: "first"},
		{Role: RoleFaculty, Content: "second"},
		{Role: RoleAI, Content: "answer"},
	}, History(turns))
}

func TestHistoryEncodesAsEmptyList(t *testing.T) {
	out, err := json.Marshal(History(nil))
	require.NoError(t, err)
	assert.Equal(t, "[]", string(out))
}

func TestNewTurn(t *testing.T) {
	a := NewTurn("CS101/A", RoleFaculty, "hi")
	b := NewTurn("CS101/A", RoleFaculty, "hi")
	assert.NotEqual(t, a.ID, b.ID)
	assert.False(t, a.Timestamp.IsZero())
}
