package artifact

import (
	"bytes"
	"encoding/json"

	"github.com/pkg/errors"
)

// Summary is the AI summary derived from a context's materials
type Summary struct {
	Summary           Points       `json:"summary" yaml:"summary"`
	KeyConcepts       []KeyConcept `json:"key_concepts" yaml:"key_concepts"`
	DiscussionPrompts []string     `json:"discussion_prompts" yaml:"discussion_prompts"`
}

type KeyConcept struct {
	Concept     string `json:"concept" yaml:"concept"`
	Explanation string `json:"explanation" yaml:"explanation"`
}

// Points holds the summary text. The backend sends either a list of points
// or one text blob; a blob becomes a single point.
type Points []string

func (p *Points) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*p = nil
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var blob string
		if err := json.Unmarshal(data, &blob); err != nil {
			return errors.Wrap(err, "failed to decode summary text")
		}
		if blob == "" {
			*p = nil
			return nil
		}
		*p = Points{blob}
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return errors.Wrap(err, "failed to decode summary points")
	}
	*p = list
	return nil
}

// Clone returns a deep copy
func (s Summary) Clone() Summary {
	return Summary{
		Summary:           append(Points(nil), s.Summary...),
		KeyConcepts:       append([]KeyConcept(nil), s.KeyConcepts...),
		DiscussionPrompts: append([]string(nil), s.DiscussionPrompts...),
	}
}
