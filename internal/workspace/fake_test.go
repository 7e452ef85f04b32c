package workspace

import (
	"context"
	"sync"
	"testing"

	"github.com/gennadis/facultydash/internal/artifact"
	"github.com/gennadis/facultydash/internal/chat"
	"github.com/gennadis/facultydash/internal/client"
	"github.com/gennadis/facultydash/internal/logger"
	"github.com/gennadis/facultydash/internal/notify"
	"github.com/gennadis/facultydash/internal/session"
	"github.com/gennadis/facultydash/storage"
	"github.com/stretchr/testify/require"
)

var (
	cs101A = session.New("CS101", "A")
	cs101B = session.New("CS101", "B")
)

// fakeBackend keeps materials per context in memory and records every call
type fakeBackend struct {
	mu        sync.Mutex
	materials map[string]*client.MaterialList
	calls     []string

	listHook func(n int, sc session.Context) (*client.MaterialList, error)
	listN    int

	uploadErr error
	addURLErr error
	removeErr error
	clearErr  error

	summary      *artifact.Summary
	summaryErr   error
	summaryGate  chan struct{}
	summaryCalls int

	plan    *artifact.Plan
	planErr error

	chatAnswer    string
	chatErr       error
	chatHistories [][]chat.Message

	mailErr error
	mails   []client.EmailRequest
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		materials: make(map[string]*client.MaterialList),
		summary: &artifact.Summary{
			Summary:           artifact.Points{"Recursion basics"},
			KeyConcepts:       []artifact.KeyConcept{{Concept: "Base case", Explanation: "Stops recursion"}},
			DiscussionPrompts: []string{"Where does recursion hurt?"},
		},
		plan: &artifact.Plan{
			SessionTitle: "Recursion",
			Blocks: []artifact.Block{
				{Duration: "10 min", Type: "intro", Title: "Warm up", Activity: "Quiz", Questions: []string{"What is a base case?"}},
				{Duration: "20 min", Type: "activity", Title: "Pair coding", Activity: "Write factorial"},
			},
		},
		chatAnswer: "Start with the base case.",
	}
}

func (f *fakeBackend) seed(sc session.Context, files, urls []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.materials[sc.ID()] = &client.MaterialList{Files: files, URLs: urls}
}

func (f *fakeBackend) record(call string) {
	f.calls = append(f.calls, call)
}

func (f *fakeBackend) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeBackend) list(sc session.Context) *client.MaterialList {
	l, ok := f.materials[sc.ID()]
	if !ok {
		l = &client.MaterialList{Files: []string{}, URLs: []string{}}
		f.materials[sc.ID()] = l
	}
	return l
}

func (f *fakeBackend) ListMaterials(_ context.Context, sc session.Context) (*client.MaterialList, error) {
	f.mu.Lock()
	f.record("list " + sc.ID())
	n := f.listN
	f.listN++
	hook := f.listHook
	if hook == nil {
		l := f.list(sc)
		out := &client.MaterialList{
			Files: append([]string{}, l.Files...),
			URLs:  append([]string{}, l.URLs...),
		}
		f.mu.Unlock()
		return out, nil
	}
	f.mu.Unlock()
	return hook(n, sc)
}

func (f *fakeBackend) UploadMaterials(_ context.Context, sc session.Context, uploads []client.Upload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("upload " + sc.ID())
	if f.uploadErr != nil {
		return f.uploadErr
	}
	l := f.list(sc)
	for _, u := range uploads {
		l.Files = append(l.Files, u.Name)
	}
	return nil
}

func (f *fakeBackend) AddURL(_ context.Context, sc session.Context, link string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("add-url " + sc.ID())
	if f.addURLErr != nil {
		return f.addURLErr
	}
	l := f.list(sc)
	l.URLs = append(l.URLs, link)
	return nil
}

func (f *fakeBackend) RemoveMaterial(_ context.Context, sc session.Context, source string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("remove " + sc.ID() + " " + source)
	if f.removeErr != nil {
		return f.removeErr
	}
	l := f.list(sc)
	l.Files = dropAll(l.Files, source)
	l.URLs = dropAll(l.URLs, source)
	return nil
}

func dropAll(items []string, source string) []string {
	out := []string{}
	for _, it := range items {
		if it != source {
			out = append(out, it)
		}
	}
	return out
}

func (f *fakeBackend) ClearMaterial(_ context.Context, sc session.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("clear " + sc.ID())
	if f.clearErr != nil {
		return f.clearErr
	}
	delete(f.materials, sc.ID())
	return nil
}

func (f *fakeBackend) GenerateSummary(_ context.Context, sc session.Context) (*artifact.Summary, error) {
	f.mu.Lock()
	f.record("summary " + sc.ID())
	f.summaryCalls++
	gate := f.summaryGate
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.summaryErr != nil {
		return nil, f.summaryErr
	}
	s := f.summary.Clone()
	return &s, nil
}

func (f *fakeBackend) SummaryCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.summaryCalls
}

func (f *fakeBackend) GeneratePlan(_ context.Context, sc session.Context) (*artifact.Plan, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("plan " + sc.ID())
	if f.planErr != nil {
		return nil, f.planErr
	}
	p := f.plan.Clone()
	return &p, nil
}

func (f *fakeBackend) Chat(_ context.Context, sc session.Context, question string, history []chat.Message) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("chat " + sc.ID())
	f.chatHistories = append(f.chatHistories, history)
	if f.chatErr != nil {
		return "", f.chatErr
	}
	return f.chatAnswer, nil
}

func (f *fakeBackend) EmailMaterial(_ context.Context, req client.EmailRequest) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("mail " + req.CourseID)
	if f.mailErr != nil {
		return 0, f.mailErr
	}
	f.mails = append(f.mails, req)
	return 12 * len(req.Divisions), nil
}

func newTranscripts(t *testing.T) *storage.Transcripts {
	t.Helper()
	db, err := storage.NewSqliteDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	transcripts, err := storage.NewTranscripts(db, logger.Nop())
	require.NoError(t, err)
	return transcripts
}

func newTestWorkspace(t *testing.T, api *fakeBackend, opts ...Option) (*Workspace, *notify.Recorder) {
	t.Helper()
	rec := &notify.Recorder{}
	opts = append([]Option{WithNotifier(rec), WithLogger(logger.Nop())}, opts...)
	return New(api, newTranscripts(t), opts...), rec
}

// activate makes sc the active context and drops the calls it caused
func activate(t *testing.T, w *Workspace, api *fakeBackend, sc session.Context) {
	t.Helper()
	w.SetContext(context.Background(), sc, "Data Structures")
	api.mu.Lock()
	api.calls = nil
	api.mu.Unlock()
}

var errServer = &client.APIError{Status: 500, Message: ""}

var errOffline = &client.TransportError{Op: "request failed", Err: context.DeadlineExceeded}
