package workspace

import (
	"context"
	"sync"
	"time"

	"github.com/gennadis/facultydash/internal/artifact"
	"github.com/gennadis/facultydash/internal/chat"
	"github.com/gennadis/facultydash/internal/client"
	"github.com/gennadis/facultydash/internal/logger"
	"github.com/gennadis/facultydash/internal/material"
	"github.com/gennadis/facultydash/internal/notify"
	"github.com/gennadis/facultydash/internal/session"
	"github.com/gennadis/facultydash/storage"
	"github.com/pkg/errors"
	"golang.org/x/sync/singleflight"
)

const defaultMailDismissDelay = 2 * time.Second

// ValidationError is a local precondition failure; no request was sent.
type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string { return e.msg }

var (
	ErrNoContext       = &ValidationError{msg: "select a course and division first"}
	ErrNoMaterials     = &ValidationError{msg: "upload a file or add a URL first"}
	ErrNoDivisions     = &ValidationError{msg: "Please select at least one division."}
	ErrNoUploads       = &ValidationError{msg: "no files to upload"}
	ErrIndexOutOfRange = &ValidationError{msg: "no material at that position"}
	ErrNoSuchMaterial  = &ValidationError{msg: "no such material"}
	ErrNoPlan          = &ValidationError{msg: "generate a session plan first"}
	ErrNotEditing      = &ValidationError{msg: "the session plan is not in edit mode"}
)

// ErrStaleContext is returned when a response arrives for a context that
// was switched away from while the request was in flight. The response is
// dropped.
var ErrStaleContext = errors.New("response belongs to a context that is no longer active")

// IsValidation reports whether err is a local validation failure
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// Backend is the part of the dashboard API the workspace drives
type Backend interface {
	ListMaterials(ctx context.Context, sc session.Context) (*client.MaterialList, error)
	UploadMaterials(ctx context.Context, sc session.Context, uploads []client.Upload) error
	AddURL(ctx context.Context, sc session.Context, link string) error
	RemoveMaterial(ctx context.Context, sc session.Context, source string) error
	ClearMaterial(ctx context.Context, sc session.Context) error
	GenerateSummary(ctx context.Context, sc session.Context) (*artifact.Summary, error)
	GeneratePlan(ctx context.Context, sc session.Context) (*artifact.Plan, error)
	Chat(ctx context.Context, sc session.Context, question string, history []chat.Message) (string, error)
	EmailMaterial(ctx context.Context, req client.EmailRequest) (int, error)
}

// TranscriptStore holds chat turns per context
type TranscriptStore interface {
	Read(contextID string) ([]chat.Turn, error)
	Append(turn chat.Turn) error
	Clear(contextID string) error
}

// VisitRecorder is told about every context activation
type VisitRecorder interface {
	Write(visit storage.Visit) error
}

type Option func(*Workspace)

func WithNotifier(n notify.Notifier) Option {
	return func(w *Workspace) { w.notifier = n }
}

func WithLogger(l *logger.Logger) Option {
	return func(w *Workspace) { w.log = l }
}

func WithVisits(v VisitRecorder) Option {
	return func(w *Workspace) { w.visits = v }
}

func WithMailDismissDelay(d time.Duration) Option {
	return func(w *Workspace) { w.mailDismissDelay = d }
}

// Status is a snapshot of the workspace flags
type Status struct {
	Context           session.Context
	Files             int
	URLs              int
	HasSummary        bool
	HasPlan           bool
	EditingPlan       bool
	Uploading         bool
	GeneratingSummary bool
	GeneratingPlan    bool
	SendingChat       bool
	SendingMail       bool
	MailOpen          bool
}

type busyCounters struct {
	uploading, summary, plan, chat, mail int
}

// Workspace is the session material state of one faculty member: the
// active context and everything derived from it. All methods are safe for
// concurrent use; the lock is never held across a backend call.
type Workspace struct {
	api         Backend
	transcripts TranscriptStore
	visits      VisitRecorder
	notifier    notify.Notifier
	log         *logger.Logger

	mailDismissDelay time.Duration
	summaryGroup     singleflight.Group

	mu          sync.Mutex
	detector    session.Detector
	active      session.Context
	courseName  string
	epoch       uint64
	materials   material.Set
	urlInput    string
	summary     *artifact.Summary
	plan        *artifact.Plan
	editingPlan bool
	busy        busyCounters
	mail        mailComposer
}

// New creates a Workspace with no active context
func New(api Backend, transcripts TranscriptStore, opts ...Option) *Workspace {
	w := &Workspace{
		api:              api,
		transcripts:      transcripts,
		notifier:         notify.Nop,
		log:              logger.Nop(),
		mailDismissDelay: defaultMailDismissDelay,
		mail:             newMailComposer(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// SetContext makes sc the active context. On a switch the previous
// context's artifacts are dropped locally, the server is asked to clear
// them (best effort) and the new context's materials are fetched.
func (w *Workspace) SetContext(ctx context.Context, sc session.Context, courseName string) session.Transition {
	w.mu.Lock()
	t := w.detector.Observe(sc)
	if t.Action == session.ActionNone {
		w.mu.Unlock()
		return t
	}
	if t.Action == session.ActionSwitch {
		w.resetLocked(t.Previous)
		w.epoch++
	}
	w.active = sc
	if courseName != "" && courseName != w.courseName {
		w.mail.form.Subject = "Session Material - " + courseName
	}
	w.courseName = courseName
	w.mu.Unlock()

	w.log.Info("Context observed",
		"action", t.Action.String(),
		"previous", t.Previous.ID(),
		"current", sc.ID(),
	)
	if w.visits != nil {
		if err := w.visits.Write(storage.Visit{Context: sc, Action: t.Action.String()}); err != nil {
			w.log.Warn("Failed to record context visit", "error", err)
		}
	}

	if t.Action == session.ActionSwitch {
		if err := w.api.ClearMaterial(ctx, t.Previous); err != nil {
			w.log.Warn("Failed to clear previous context (continuing)", "context", t.Previous.ID(), "error", err)
		}
	}

	// sync failures are already logged and never reach the user
	_ = w.Sync(ctx)
	return t
}

// Reset forgets the active context and everything derived from it. In
// flight responses are dropped. Nothing is sent to the server.
func (w *Workspace) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.resetLocked(w.active)
	w.active = session.Context{}
	w.detector.Reset()
	w.epoch++
	w.urlInput = ""
	w.courseName = ""
	if w.mail.dismiss != nil {
		w.mail.dismiss.Stop()
	}
	w.mail = newMailComposer()
}

// resetLocked drops the materials and every derived artifact. Callers hold w.mu.
func (w *Workspace) resetLocked(sc session.Context) {
	w.materials = material.Set{}
	w.summary = nil
	w.plan = nil
	w.editingPlan = false
	if sc.IsSet() {
		if err := w.transcripts.Clear(sc.ID()); err != nil {
			w.log.Error("Failed to clear chat transcript", "context", sc.ID(), "error", err)
		}
	}
}

// begin captures the active context and its epoch for a request
func (w *Workspace) begin() (session.Context, uint64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.active.IsSet() {
		return session.Context{}, 0, ErrNoContext
	}
	return w.active, w.epoch, nil
}

// staleLocked reports whether a request issued at epoch lost its context.
// Callers hold w.mu.
func (w *Workspace) staleLocked(epoch uint64) bool {
	return w.epoch != epoch
}

func (w *Workspace) track(counter *int) func() {
	w.mu.Lock()
	*counter++
	w.mu.Unlock()
	return func() {
		w.mu.Lock()
		*counter--
		w.mu.Unlock()
	}
}

func (w *Workspace) notify(n notify.Notice) {
	w.notifier.Notify(n)
}

// failureMessage picks the text shown for err: the server's own message,
// serverFallback for a bare server error, connFallback when unreachable.
func failureMessage(err error, serverFallback, connFallback string) string {
	if errors.Is(err, client.ErrConnectivity) {
		return connFallback
	}
	return client.UserMessage(err, serverFallback)
}

func (w *Workspace) Context() session.Context {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.active
}

// Materials returns a copy of the local material set
func (w *Workspace) Materials() material.Set {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.materials.Clone()
}

// Summary returns a copy of the current summary, or nil
func (w *Workspace) Summary() *artifact.Summary {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.summary == nil {
		return nil
	}
	s := w.summary.Clone()
	return &s
}

// Plan returns a copy of the current session plan, or nil
func (w *Workspace) Plan() *artifact.Plan {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.plan == nil {
		return nil
	}
	p := w.plan.Clone()
	return &p
}

// Transcript returns the chat turns of the active context
func (w *Workspace) Transcript() ([]chat.Turn, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.active.IsSet() {
		return nil, nil
	}
	return w.transcripts.Read(w.active.ID())
}

func (w *Workspace) Status() Status {
	w.mu.Lock()
	defer w.mu.Unlock()
	return Status{
		Context:           w.active,
		Files:             len(w.materials.Files),
		URLs:              len(w.materials.URLs),
		HasSummary:        w.summary != nil,
		HasPlan:           w.plan != nil,
		EditingPlan:       w.editingPlan,
		Uploading:         w.busy.uploading > 0,
		GeneratingSummary: w.busy.summary > 0,
		GeneratingPlan:    w.busy.plan > 0,
		SendingChat:       w.busy.chat > 0,
		SendingMail:       w.busy.mail > 0,
		MailOpen:          w.mail.open,
	}
}
