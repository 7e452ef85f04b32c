package workspace

import (
	"context"
	"testing"

	"github.com/gennadis/facultydash/internal/client"
	"github.com/gennadis/facultydash/internal/notify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpload(t *testing.T) {
	api := newFakeBackend()
	w, rec := newTestWorkspace(t, api)
	activate(t, w, api, cs101A)

	err := w.Upload(context.Background(), []client.Upload{
		{Name: "lecture1.pdf", Data: []byte("%PDF-1.4")},
		{Name: "notes.txt", Data: []byte("hello")},
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"upload CS101/A", "list CS101/A"}, api.Calls())
	assert.Equal(t, []string{"lecture1.pdf", "notes.txt"}, w.Materials().FileNames())
	last, _ := rec.Last()
	assert.Equal(t, notify.Success("Files uploaded successfully!"), last)
	assert.False(t, w.Status().Uploading)
}

func TestUploadFailure(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "server message", err: &client.APIError{Status: 413, Message: "File too large"}, want: "File too large"},
		{name: "server without message", err: errServer, want: "Upload failed"},
		{name: "offline", err: errOffline, want: "Connection error during upload"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := newFakeBackend()
			api.seed(cs101A, []string{"a.pdf"}, nil)
			w, rec := newTestWorkspace(t, api)
			activate(t, w, api, cs101A)
			api.uploadErr = tt.err

			err := w.Upload(context.Background(), []client.Upload{{Name: "b.pdf", Data: []byte("x")}})

			assert.ErrorIs(t, err, tt.err)
			assert.Equal(t, []string{"upload CS101/A"}, api.Calls())
			assert.Equal(t, []string{"a.pdf"}, w.Materials().FileNames())
			last, _ := rec.Last()
			assert.Equal(t, notify.Error(tt.want), last)
			assert.False(t, w.Status().Uploading)
		})
	}
}

func TestUploadPreconditions(t *testing.T) {
	api := newFakeBackend()
	w, _ := newTestWorkspace(t, api)

	err := w.Upload(context.Background(), []client.Upload{{Name: "a.pdf"}})
	assert.ErrorIs(t, err, ErrNoContext)

	activate(t, w, api, cs101A)
	err = w.Upload(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNoUploads)
	assert.Empty(t, api.Calls())
}

func TestAddURL(t *testing.T) {
	api := newFakeBackend()
	w, rec := newTestWorkspace(t, api)
	activate(t, w, api, cs101A)
	w.SetURLInput("  https://example.com/slides  ")

	require.NoError(t, w.AddURL(context.Background(), ""))

	assert.Equal(t, []string{"add-url CS101/A", "list CS101/A"}, api.Calls())
	assert.Equal(t, []string{"https://example.com/slides"}, w.Materials().URLStrings())
	assert.Empty(t, w.URLInput())
	last, _ := rec.Last()
	assert.Equal(t, notify.Success("URL added successfully!"), last)
}

func TestAddURLFailureKeepsInput(t *testing.T) {
	api := newFakeBackend()
	api.addURLErr = &client.APIError{Status: 400, Message: "Invalid URL"}
	w, rec := newTestWorkspace(t, api)
	activate(t, w, api, cs101A)

	err := w.AddURL(context.Background(), "not a url")

	require.Error(t, err)
	assert.Equal(t, "not a url", w.URLInput())
	assert.Empty(t, w.Materials().URLs)
	last, _ := rec.Last()
	assert.Equal(t, notify.Error("Invalid URL"), last)
}

func TestAddURLBlankIsNoop(t *testing.T) {
	api := newFakeBackend()
	w, rec := newTestWorkspace(t, api)
	activate(t, w, api, cs101A)

	require.NoError(t, w.AddURL(context.Background(), "   "))
	assert.Empty(t, api.Calls())
	assert.Empty(t, rec.Notices())
}

func TestRemoveFileKeepsOthers(t *testing.T) {
	api := newFakeBackend()
	api.seed(cs101A, []string{"a.pdf", "b.pdf"}, []string{"https://example.com"})
	w, rec := newTestWorkspace(t, api)
	activate(t, w, api, cs101A)
	keep := w.Materials().Files[1]

	require.NoError(t, w.RemoveFile(context.Background(), 0))

	assert.Equal(t, []string{"remove CS101/A a.pdf"}, api.Calls())
	m := w.Materials()
	require.Len(t, m.Files, 1)
	assert.Equal(t, keep, m.Files[0])
	assert.Len(t, m.URLs, 1)
	assert.Empty(t, rec.Notices())
}

func TestRemoveLastItemClearsContext(t *testing.T) {
	api := newFakeBackend()
	api.seed(cs101A, []string{"a.pdf"}, nil)
	w, _ := newTestWorkspace(t, api)
	activate(t, w, api, cs101A)
	_, err := w.GenerateSummary(context.Background())
	require.NoError(t, err)
	activate(t, w, api, cs101A)

	require.NoError(t, w.RemoveFile(context.Background(), 0))

	assert.Equal(t, []string{"remove CS101/A a.pdf", "clear CS101/A"}, api.Calls())
	assert.True(t, w.Materials().IsEmpty())
	assert.Nil(t, w.Summary())
}

func TestRemoveURLNotifies(t *testing.T) {
	api := newFakeBackend()
	api.seed(cs101A, []string{"a.pdf"}, []string{"https://example.com"})
	w, rec := newTestWorkspace(t, api)
	activate(t, w, api, cs101A)

	require.NoError(t, w.RemoveURL(context.Background(), 0))

	assert.Equal(t, []string{"remove CS101/A https://example.com"}, api.Calls())
	last, _ := rec.Last()
	assert.Equal(t, notify.Success("Reference removed"), last)
}

func TestRemoveFailureResyncs(t *testing.T) {
	api := newFakeBackend()
	api.seed(cs101A, []string{"a.pdf"}, []string{"https://example.com"})
	api.removeErr = errOffline
	w, rec := newTestWorkspace(t, api)
	activate(t, w, api, cs101A)

	err := w.RemoveURL(context.Background(), 0)

	assert.ErrorIs(t, err, client.ErrConnectivity)
	assert.Equal(t, []string{"remove CS101/A https://example.com", "list CS101/A"}, api.Calls())
	assert.Equal(t, []string{"https://example.com"}, w.Materials().URLStrings())
	last, _ := rec.Last()
	assert.Equal(t, notify.Error("Connection error"), last)
}

func TestRemoveOutOfRange(t *testing.T) {
	api := newFakeBackend()
	api.seed(cs101A, []string{"a.pdf"}, nil)
	w, _ := newTestWorkspace(t, api)
	activate(t, w, api, cs101A)

	err := w.RemoveFile(context.Background(), 3)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
	assert.True(t, IsValidation(err))

	err = w.RemoveURL(context.Background(), 0)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
	assert.Empty(t, api.Calls())
}

func TestRemoveMaterialByID(t *testing.T) {
	api := newFakeBackend()
	api.seed(cs101A, []string{"a.pdf", "a.pdf"}, nil)
	w, _ := newTestWorkspace(t, api)
	activate(t, w, api, cs101A)
	second := w.Materials().Files[1]

	require.NoError(t, w.RemoveMaterial(context.Background(), second.ID))

	m := w.Materials()
	require.Len(t, m.Files, 1)
	assert.NotEqual(t, second.ID, m.Files[0].ID)

	err := w.RemoveMaterial(context.Background(), second.ID)
	assert.ErrorIs(t, err, ErrNoSuchMaterial)
}

func TestClearAll(t *testing.T) {
	api := newFakeBackend()
	api.seed(cs101A, []string{"a.pdf"}, []string{"https://example.com"})
	w, rec := newTestWorkspace(t, api)
	ctx := context.Background()
	activate(t, w, api, cs101A)
	_, err := w.GeneratePlan(ctx)
	require.NoError(t, err)
	_, err = w.SendChat(ctx, "hello")
	require.NoError(t, err)

	require.NoError(t, w.ClearAll(ctx))

	st := w.Status()
	assert.Zero(t, st.Files+st.URLs)
	assert.False(t, st.HasPlan)
	turns, err := w.Transcript()
	require.NoError(t, err)
	assert.Empty(t, turns)
	last, _ := rec.Last()
	assert.Equal(t, notify.Success("Session cleared, ready for new upload"), last)
}

func TestClearAllFailureKeepsState(t *testing.T) {
	api := newFakeBackend()
	api.seed(cs101A, []string{"a.pdf"}, nil)
	w, rec := newTestWorkspace(t, api)
	activate(t, w, api, cs101A)
	api.clearErr = errServer

	err := w.ClearAll(context.Background())

	require.Error(t, err)
	assert.Equal(t, []string{"a.pdf"}, w.Materials().FileNames())
	last, _ := rec.Last()
	assert.Equal(t, notify.Error("Failed to clear session"), last)
}
