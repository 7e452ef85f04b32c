package workspace

import (
	"context"
	"testing"
	"time"

	"github.com/gennadis/facultydash/internal/notify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mailRequest(divs ...string) MailRequest {
	return MailRequest{
		Divisions:      divs,
		Subject:        "Session Material - Data Structures",
		Message:        "Please review before class.",
		IncludeSummary: true,
	}
}

func TestSendMailRequiresDivisions(t *testing.T) {
	api := newFakeBackend()
	api.seed(cs101A, []string{"a.pdf"}, nil)
	w, _ := newTestWorkspace(t, api)
	activate(t, w, api, cs101A)

	_, err := w.SendMail(context.Background(), mailRequest(" ", ""))

	assert.ErrorIs(t, err, ErrNoDivisions)
	assert.True(t, IsValidation(err))
	assert.Empty(t, api.Calls())
	status, ok := w.MailStatus()
	require.True(t, ok)
	assert.Equal(t, MailStatus{Level: notify.LevelError, Message: "Please select at least one division."}, status)
}

func TestSendMailGeneratesMissingSummaryOnce(t *testing.T) {
	api := newFakeBackend()
	api.seed(cs101A, []string{"a.pdf"}, []string{"https://example.com"})
	w, rec := newTestWorkspace(t, api)
	activate(t, w, api, cs101A)

	res, err := w.SendMail(context.Background(), mailRequest("A", "B", "A"))

	require.NoError(t, err)
	assert.Equal(t, 24, res.Sent)
	assert.Equal(t, []string{"summary CS101/A", "mail CS101"}, api.Calls())
	require.Len(t, api.mails, 1)
	sent := api.mails[0]
	assert.Equal(t, []string{"A", "B"}, sent.Divisions)
	assert.Equal(t, []string{"a.pdf"}, sent.Filenames)
	assert.Equal(t, []string{"https://example.com"}, sent.URLs)
	require.NotNil(t, sent.Summary)
	assert.Equal(t, w.Summary(), sent.Summary)

	assert.Contains(t, rec.Notices(), notify.Info("Generating AI summary before sending..."))
	last, _ := rec.Last()
	assert.Equal(t, notify.Success("Sent 24 emails!"), last)
	status, _ := w.MailStatus()
	assert.Equal(t, "Successfully sent 24 notification emails!", status.Message)
}

func TestSendMailReusesSummary(t *testing.T) {
	api := newFakeBackend()
	api.seed(cs101A, []string{"a.pdf"}, nil)
	w, _ := newTestWorkspace(t, api)
	ctx := context.Background()
	activate(t, w, api, cs101A)
	_, err := w.GenerateSummary(ctx)
	require.NoError(t, err)

	_, err = w.SendMail(ctx, mailRequest("C"))

	require.NoError(t, err)
	assert.Equal(t, 1, api.SummaryCalls())
}

func TestSendMailWithoutSummary(t *testing.T) {
	api := newFakeBackend()
	api.seed(cs101A, []string{"a.pdf"}, nil)
	w, _ := newTestWorkspace(t, api)
	ctx := context.Background()
	activate(t, w, api, cs101A)
	_, err := w.GenerateSummary(ctx)
	require.NoError(t, err)

	req := mailRequest("D")
	req.IncludeSummary = false
	_, err = w.SendMail(ctx, req)

	require.NoError(t, err)
	require.Len(t, api.mails, 1)
	assert.Nil(t, api.mails[0].Summary)
}

func TestSendMailAbortsWhenSummaryFails(t *testing.T) {
	api := newFakeBackend()
	api.seed(cs101A, []string{"a.pdf"}, nil)
	api.summaryErr = errServer
	w, _ := newTestWorkspace(t, api)
	activate(t, w, api, cs101A)

	_, err := w.SendMail(context.Background(), mailRequest("A"))

	assert.ErrorIs(t, err, ErrSummaryUnavailable)
	assert.Equal(t, []string{"summary CS101/A"}, api.Calls())
	assert.Empty(t, api.mails)
	status, _ := w.MailStatus()
	assert.Equal(t, MailStatus{Level: notify.LevelError, Message: "Failed to generate summary. Cannot proceed with summary inclusion."}, status)
}

func TestSendMailFailure(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus string
		wantNotice string
	}{
		{name: "server", err: errServer, wantStatus: "Failed to send emails.", wantNotice: "Failed to send emails"},
		{name: "offline", err: errOffline, wantStatus: "Error connecting to server.", wantNotice: "Connection error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := newFakeBackend()
			api.seed(cs101A, []string{"a.pdf"}, nil)
			api.mailErr = tt.err
			w, rec := newTestWorkspace(t, api)
			activate(t, w, api, cs101A)
			w.OpenMail()

			req := mailRequest("A")
			req.IncludeSummary = false
			_, err := w.SendMail(context.Background(), req)

			assert.ErrorIs(t, err, tt.err)
			status, _ := w.MailStatus()
			assert.Equal(t, tt.wantStatus, status.Message)
			last, _ := rec.Last()
			assert.Equal(t, notify.Error(tt.wantNotice), last)
			assert.True(t, w.MailOpen())
			assert.False(t, w.Status().SendingMail)
		})
	}
}

func TestSendMailClosesComposer(t *testing.T) {
	api := newFakeBackend()
	api.seed(cs101A, []string{"a.pdf"}, nil)
	w, _ := newTestWorkspace(t, api, WithMailDismissDelay(20*time.Millisecond))
	activate(t, w, api, cs101A)
	w.OpenMail()

	req := mailRequest("E")
	req.IncludeSummary = false
	_, err := w.SendMail(context.Background(), req)
	require.NoError(t, err)

	assert.True(t, w.MailOpen())
	assert.Eventually(t, func() bool { return !w.MailOpen() }, time.Second, 5*time.Millisecond)
}

func TestMailForm(t *testing.T) {
	w, _ := newTestWorkspace(t, newFakeBackend())

	form := w.MailForm()
	assert.True(t, form.IncludeSummary)
	assert.Empty(t, form.Divisions)

	w.UpdateMailForm(func(r *MailRequest) {
		r.ToggleDivision("A")
		r.ToggleDivision("C")
		r.ToggleDivision("A")
		r.Message = "See you Monday"
	})

	form = w.MailForm()
	assert.Equal(t, []string{"C"}, form.Divisions)
	assert.Equal(t, "See you Monday", form.Message)

	form.Divisions[0] = "Z"
	assert.Equal(t, []string{"C"}, w.MailForm().Divisions)
}
