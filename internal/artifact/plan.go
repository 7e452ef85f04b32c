package artifact

import (
	"bytes"
	"encoding/json"

	"github.com/pkg/errors"
)

var ErrNoSuchBlock = errors.New("no such plan block")

// Plan is the AI session plan. It may be edited locally after generation.
type Plan struct {
	SessionTitle string  `json:"session_title" yaml:"session_title"`
	Blocks       []Block `json:"blocks" yaml:"blocks"`
}

type Block struct {
	Duration  Text     `json:"duration" yaml:"duration"`
	Type      string   `json:"type" yaml:"type"`
	Title     string   `json:"title" yaml:"title"`
	Activity  string   `json:"activity" yaml:"activity"`
	Questions []string `json:"questions" yaml:"questions,omitempty"`
}

// Text decodes from either a JSON string or a JSON number ("10 min" or 10)
type Text string

func (t *Text) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*t = ""
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = Text(s)
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return errors.Wrapf(err, "unexpected value %s", data)
		}
		*t = Text(n.String())
	}
	return nil
}

type BlockField string

const (
	FieldDuration BlockField = "duration"
	FieldType     BlockField = "type"
	FieldTitle    BlockField = "title"
	FieldActivity BlockField = "activity"
)

// SetBlockField edits one field of block idx
func (p *Plan) SetBlockField(idx int, field BlockField, value string) error {
	if idx < 0 || idx >= len(p.Blocks) {
		return errors.Wrapf(ErrNoSuchBlock, "block %d", idx)
	}
	b := &p.Blocks[idx]
	switch field {
	case FieldDuration:
		b.Duration = Text(value)
	case FieldType:
		b.Type = value
	case FieldTitle:
		b.Title = value
	case FieldActivity:
		b.Activity = value
	default:
		return errors.Errorf("unknown block field %q", field)
	}
	return nil
}

// SetQuestion replaces question qIdx of block blockIdx
func (p *Plan) SetQuestion(blockIdx, qIdx int, value string) error {
	if blockIdx < 0 || blockIdx >= len(p.Blocks) {
		return errors.Wrapf(ErrNoSuchBlock, "block %d", blockIdx)
	}
	questions := p.Blocks[blockIdx].Questions
	if qIdx < 0 || qIdx >= len(questions) {
		return errors.Errorf("block %d has no question %d", blockIdx, qIdx)
	}
	questions[qIdx] = value
	return nil
}

// Clone returns a deep copy
func (p Plan) Clone() Plan {
	out := Plan{SessionTitle: p.SessionTitle, Blocks: make([]Block, len(p.Blocks))}
	for i, b := range p.Blocks {
		b.Questions = append([]string(nil), b.Questions...)
		out.Blocks[i] = b
	}
	return out
}
