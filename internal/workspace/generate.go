package workspace

import (
	"context"
	"fmt"
	"strings"

	"github.com/gennadis/facultydash/internal/artifact"
	"github.com/gennadis/facultydash/internal/chat"
	"github.com/gennadis/facultydash/internal/notify"
	"github.com/gennadis/facultydash/internal/session"
	"github.com/pkg/errors"
)

// requireMaterials captures the active context, failing when it has no
// materials to generate from.
func (w *Workspace) requireMaterials() (session.Context, uint64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.active.IsSet() {
		return session.Context{}, 0, ErrNoContext
	}
	if w.materials.IsEmpty() {
		return session.Context{}, 0, ErrNoMaterials
	}
	return w.active, w.epoch, nil
}

// GenerateSummary asks the backend for a summary of the active context's
// materials and stores it. Concurrent calls for the same context share one
// request.
func (w *Workspace) GenerateSummary(ctx context.Context) (*artifact.Summary, error) {
	sc, epoch, err := w.requireMaterials()
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("%s#%d", sc.ID(), epoch)
	v, err, _ := w.summaryGroup.Do(key, func() (interface{}, error) {
		return w.generateSummary(ctx, sc, epoch)
	})
	if err != nil {
		return nil, err
	}
	s := v.(artifact.Summary).Clone()
	return &s, nil
}

func (w *Workspace) generateSummary(ctx context.Context, sc session.Context, epoch uint64) (artifact.Summary, error) {
	done := w.track(&w.busy.summary)
	summary, err := w.api.GenerateSummary(ctx, sc)
	done()
	if err != nil {
		w.log.Error("Summary generation failed", "context", sc.ID(), "error", err)
		w.notify(notify.Error(failureMessage(err, "Summary generation failed", "Connection error during summary generation")))
		return artifact.Summary{}, err
	}

	w.mu.Lock()
	if w.staleLocked(epoch) {
		w.mu.Unlock()
		w.log.Debug("Dropping summary of inactive context", "context", sc.ID())
		return artifact.Summary{}, ErrStaleContext
	}
	stored := summary.Clone()
	w.summary = &stored
	w.mu.Unlock()

	w.notify(notify.Success("Summary generated!"))
	return stored.Clone(), nil
}

// GeneratePlan asks the backend for a session plan and stores it, leaving
// edit mode.
func (w *Workspace) GeneratePlan(ctx context.Context) (*artifact.Plan, error) {
	sc, epoch, err := w.requireMaterials()
	if err != nil {
		return nil, err
	}

	w.mu.Lock()
	if !w.staleLocked(epoch) {
		w.editingPlan = false
	}
	w.mu.Unlock()

	done := w.track(&w.busy.plan)
	plan, err := w.api.GeneratePlan(ctx, sc)
	done()
	if err != nil {
		w.log.Error("Plan generation failed", "context", sc.ID(), "error", err)
		w.notify(notify.Error(failureMessage(err, "Plan generation failed", "Connection error during plan generation")))
		return nil, err
	}

	w.mu.Lock()
	if w.staleLocked(epoch) {
		w.mu.Unlock()
		return nil, ErrStaleContext
	}
	stored := plan.Clone()
	w.plan = &stored
	w.mu.Unlock()

	w.notify(notify.Success("Session plan ready!"))
	out := stored.Clone()
	return &out, nil
}

// BeginPlanEdit enters plan edit mode
func (w *Workspace) BeginPlanEdit() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.plan == nil {
		return ErrNoPlan
	}
	w.editingPlan = true
	return nil
}

// SavePlanEdit leaves edit mode, keeping the edits
func (w *Workspace) SavePlanEdit() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.plan == nil {
		return ErrNoPlan
	}
	w.editingPlan = false
	return nil
}

func (w *Workspace) editPlan(fn func(p *artifact.Plan) error) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.plan == nil {
		return ErrNoPlan
	}
	if !w.editingPlan {
		return ErrNotEditing
	}
	return fn(w.plan)
}

func (w *Workspace) SetPlanTitle(title string) error {
	return w.editPlan(func(p *artifact.Plan) error {
		p.SessionTitle = title
		return nil
	})
}

func (w *Workspace) SetPlanBlockField(block int, field artifact.BlockField, value string) error {
	return w.editPlan(func(p *artifact.Plan) error {
		return p.SetBlockField(block, field, value)
	})
}

func (w *Workspace) SetPlanQuestion(block, question int, value string) error {
	return w.editPlan(func(p *artifact.Plan) error {
		return p.SetQuestion(block, question, value)
	})
}

// SendChat appends the question to the transcript, asks the assistant with
// the prior turns as history and appends the answer. A failed request
// appends an error turn instead. Blank questions are ignored.
func (w *Workspace) SendChat(ctx context.Context, question string) (*chat.Turn, error) {
	if strings.TrimSpace(question) == "" {
		return nil, nil
	}

	w.mu.Lock()
	sc, epoch := w.active, w.epoch
	if !sc.IsSet() {
		w.mu.Unlock()
		return nil, ErrNoContext
	}
	prior, err := w.transcripts.Read(sc.ID())
	if err == nil {
		err = w.transcripts.Append(chat.NewTurn(sc.ID(), chat.RoleFaculty, question))
	}
	w.mu.Unlock()
	if err != nil {
		return nil, errors.Wrap(err, "failed to record question")
	}

	done := w.track(&w.busy.chat)
	answer, err := w.api.Chat(ctx, sc, question, chat.History(prior))
	done()

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.staleLocked(epoch) {
		w.log.Debug("Dropping chat reply of inactive context", "context", sc.ID())
		return nil, ErrStaleContext
	}

	if err != nil {
		w.log.Error("Chat request failed", "context", sc.ID(), "error", err)
		turn := chat.NewTurn(sc.ID(), chat.RoleError,
			failureMessage(err, "The assistant could not answer. Please try again.", "Connection error. Please try again."))
		if appendErr := w.transcripts.Append(turn); appendErr != nil {
			w.log.Error("Failed to record chat error", "error", appendErr)
		}
		return &turn, err
	}

	turn := chat.NewTurn(sc.ID(), chat.RoleAI, answer)
	if err := w.transcripts.Append(turn); err != nil {
		return nil, errors.Wrap(err, "failed to record answer")
	}
	return &turn, nil
}
