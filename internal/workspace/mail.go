package workspace

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gennadis/facultydash/internal/artifact"
	"github.com/gennadis/facultydash/internal/client"
	"github.com/gennadis/facultydash/internal/notify"
	"github.com/pkg/errors"
)

// MailDivisions are the divisions a notification can be addressed to
var MailDivisions = []string{"A", "B", "C", "D", "E"}

// ErrSummaryUnavailable aborts a mail that should carry a summary when none
// could be generated.
var ErrSummaryUnavailable = errors.New("summary unavailable, mail not sent")

const summaryUnavailableStatus = "Failed to generate summary. Cannot proceed with summary inclusion."

// MailRequest is the mail composer form
type MailRequest struct {
	Divisions      []string
	Subject        string
	Message        string
	IncludeSummary bool
}

// ToggleDivision adds div when absent and removes it otherwise
func (r *MailRequest) ToggleDivision(div string) {
	for i, d := range r.Divisions {
		if d == div {
			r.Divisions = append(r.Divisions[:i:i], r.Divisions[i+1:]...)
			return
		}
	}
	r.Divisions = append(r.Divisions, div)
}

// divisionSet returns the trimmed, deduplicated divisions in order
func (r MailRequest) divisionSet() []string {
	seen := make(map[string]bool, len(r.Divisions))
	out := make([]string, 0, len(r.Divisions))
	for _, d := range r.Divisions {
		d = strings.TrimSpace(d)
		if d == "" || seen[d] {
			continue
		}
		seen[d] = true
		out = append(out, d)
	}
	return out
}

type MailResult struct {
	Sent int
}

// MailStatus is the message shown inside the composer
type MailStatus struct {
	Level   notify.Level
	Message string
}

type mailComposer struct {
	open    bool
	form    MailRequest
	status  *MailStatus
	dismiss *time.Timer
}

func newMailComposer() mailComposer {
	return mailComposer{form: MailRequest{IncludeSummary: true}}
}

// OpenMail shows the composer with a fresh status
func (w *Workspace) OpenMail() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.mail.dismiss != nil {
		w.mail.dismiss.Stop()
		w.mail.dismiss = nil
	}
	w.mail.open = true
	w.mail.status = nil
}

func (w *Workspace) CloseMail() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.mail.open = false
	w.mail.status = nil
}

func (w *Workspace) MailOpen() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.mail.open
}

// MailForm returns a copy of the composer form
func (w *Workspace) MailForm() MailRequest {
	w.mu.Lock()
	defer w.mu.Unlock()
	form := w.mail.form
	form.Divisions = append([]string(nil), form.Divisions...)
	return form
}

// UpdateMailForm edits the composer form in place
func (w *Workspace) UpdateMailForm(fn func(*MailRequest)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	fn(&w.mail.form)
}

// MailStatus returns the composer status, if any
func (w *Workspace) MailStatus() (MailStatus, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.mail.status == nil {
		return MailStatus{}, false
	}
	return *w.mail.status, true
}

func (w *Workspace) setMailStatus(level notify.Level, msg string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if msg == "" {
		w.mail.status = nil
		return
	}
	w.mail.status = &MailStatus{Level: level, Message: msg}
}

// SendMail notifies the students of the given divisions about the active
// context's materials. When the summary is to be included and none exists
// yet, one is generated first; the mail is never sent without it.
func (w *Workspace) SendMail(ctx context.Context, req MailRequest) (*MailResult, error) {
	divisions := req.divisionSet()
	if len(divisions) == 0 {
		w.setMailStatus(notify.LevelError, ErrNoDivisions.Error())
		return nil, ErrNoDivisions
	}
	sc, epoch, err := w.begin()
	if err != nil {
		return nil, err
	}

	done := w.track(&w.busy.mail)
	defer done()

	summary := w.Summary()
	if req.IncludeSummary && summary == nil {
		w.setMailStatus(notify.LevelInfo, "Generating AI summary before sending...")
		w.notify(notify.Info("Generating AI summary before sending..."))
		summary, err = w.GenerateSummary(ctx)
		if err != nil || summary == nil {
			w.log.Warn("Mail aborted without summary", "context", sc.ID(), "error", err)
			w.setMailStatus(notify.LevelError, summaryUnavailableStatus)
			return nil, ErrSummaryUnavailable
		}
	}
	w.setMailStatus(notify.LevelInfo, "")

	w.mu.Lock()
	if w.staleLocked(epoch) {
		w.mu.Unlock()
		return nil, ErrStaleContext
	}
	body := client.EmailRequest{
		CourseID:  sc.CourseID,
		Divisions: divisions,
		Subject:   req.Subject,
		Message:   req.Message,
		Filenames: w.materials.FileNames(),
		URLs:      w.materials.URLStrings(),
	}
	w.mu.Unlock()
	if req.IncludeSummary {
		body.Summary = summaryPtr(summary)
	}

	sent, err := w.api.EmailMaterial(ctx, body)
	if err != nil {
		w.log.Error("Failed to send emails", "course_id", sc.CourseID, "divisions", divisions, "error", err)
		if errors.Is(err, client.ErrConnectivity) {
			w.setMailStatus(notify.LevelError, "Error connecting to server.")
			w.notify(notify.Error("Connection error"))
		} else {
			w.setMailStatus(notify.LevelError, "Failed to send emails.")
			w.notify(notify.Error("Failed to send emails"))
		}
		return nil, err
	}

	w.log.Info("Notification emails sent", "course_id", sc.CourseID, "divisions", divisions, "sent", sent)
	w.setMailStatus(notify.LevelSuccess, fmt.Sprintf("Successfully sent %d notification emails!", sent))
	w.notify(notify.Success(fmt.Sprintf("Sent %d emails!", sent)))
	w.scheduleMailDismiss()
	return &MailResult{Sent: sent}, nil
}

func summaryPtr(s *artifact.Summary) *artifact.Summary {
	if s == nil {
		return nil
	}
	c := s.Clone()
	return &c
}

// scheduleMailDismiss closes the composer after the dismiss delay
func (w *Workspace) scheduleMailDismiss() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.mail.dismiss != nil {
		w.mail.dismiss.Stop()
	}
	if w.mailDismissDelay <= 0 {
		w.mail.open = false
		w.mail.dismiss = nil
		return
	}
	w.mail.dismiss = time.AfterFunc(w.mailDismissDelay, func() {
		w.mu.Lock()
		w.mail.open = false
		w.mail.dismiss = nil
		w.mu.Unlock()
	})
}
