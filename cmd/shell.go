package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"unicode"

	"github.com/fatih/color"
	"github.com/gennadis/facultydash/internal/artifact"
	"github.com/gennadis/facultydash/internal/chat"
	"github.com/gennadis/facultydash/internal/client"
	"github.com/gennadis/facultydash/internal/session"
	"github.com/gennadis/facultydash/internal/workspace"
	"github.com/pkg/errors"
)

var (
	errNotLoggedIn = errors.New("log in first: login <email> <password>")
	errUsage       = errors.New("wrong arguments, see help")

	headerColor = color.New(color.Bold)
	errorColor  = color.New(color.FgRed)
	dimColor    = color.New(color.Faint)
)

const helpText = `Commands:
  login <email> <password>        sign in
  logout                          clear all materials on the server and sign out
  verify                          check that the session is still valid
  courses                         list assigned courses and divisions
  use <course> [division]         switch to a course (and division)
  division <division>             switch division within the course
  status                          show the active context and busy flags
  visits                          show the contexts visited this session
  sync                            refetch the material list
  ls                              list files and URLs
  upload <path>...                upload files
  url [link]                      add a reference URL (no link: retry the pending one)
  rm-file <n>, rm-url <n>         remove the n-th file or URL
  clear                           delete all materials and artifacts of the context
  summary [generate]              show or generate the AI summary
  summary export <fmt> [file]     export the summary (markdown, html, yaml, json)
  plan [generate]                 show or generate the session plan
  plan edit | plan save           enter or leave plan edit mode
  plan title <text>               set the session title
  plan set <block> <field> <text> set duration, type, title or activity of a block
  plan question <block> <n> <text>
  plan export <fmt> [file]        export the plan
  chat <question>                 ask the AI assistant
  suggest [n]                     list suggested questions or ask the n-th one
  history                         show the chat transcript
  mail [show|open|close]          show, open or close the mail composer
  mail div <X>...                 toggle divisions A to E
  mail subject <text>, mail message <text>, mail summary on|off
  mail send                       send the notification emails
  help, quit`

type shell struct {
	app      *app
	in       io.Reader
	out      io.Writer
	selector *session.Selector
}

func newShell(a *app, in io.Reader, out io.Writer) *shell {
	return &shell{app: a, in: in, out: out}
}

func (s *shell) run(ctx context.Context) error {
	fmt.Fprintln(s.out, "facultydash shell. Type help for commands.")
	scanner := bufio.NewScanner(s.in)
	for {
		fmt.Fprint(s.out, s.prompt())
		if !scanner.Scan() {
			fmt.Fprintln(s.out)
			return scanner.Err()
		}
		quit, err := s.exec(ctx, scanner.Text())
		if err != nil && reportable(err) {
			errorColor.Fprintf(s.out, "error: %v\n", err)
		}
		if quit {
			return nil
		}
	}
}

func (s *shell) prompt() string {
	if sc := s.app.ws.Context(); sc.IsSet() {
		return sc.ID() + "> "
	}
	return "facultydash> "
}

// reportable filters out errors the workspace already showed as a notice
func reportable(err error) bool {
	if errors.Is(err, workspace.ErrStaleContext) {
		return false
	}
	var apiErr *client.APIError
	if errors.As(err, &apiErr) || errors.Is(err, client.ErrConnectivity) {
		return false
	}
	return true
}

// restAfter returns line without its first n words
func restAfter(line string, n int) string {
	rest := strings.TrimSpace(line)
	for i := 0; i < n && rest != ""; i++ {
		idx := strings.IndexFunc(rest, unicode.IsSpace)
		if idx < 0 {
			return ""
		}
		rest = strings.TrimSpace(rest[idx:])
	}
	return rest
}

// position parses a 1-based position into an index
func position(arg string) (int, error) {
	n, err := strconv.Atoi(arg)
	if err != nil || n < 1 {
		return 0, errors.Errorf("%q is not a position (1, 2, ...)", arg)
	}
	return n - 1, nil
}

func (s *shell) exec(ctx context.Context, line string) (bool, error) {
	args := strings.Fields(line)
	if len(args) == 0 {
		return false, nil
	}
	cmd := strings.ToLower(args[0])

	switch cmd {
	case "quit", "exit":
		return true, nil
	case "help":
		fmt.Fprintln(s.out, helpText)
		return false, nil
	case "login":
		return false, s.login(ctx, args[1:])
	}

	if s.selector == nil {
		return false, errNotLoggedIn
	}

	ws := s.app.ws
	switch cmd {
	case "logout":
		s.logout(ctx)
	case "verify":
		return false, s.verify(ctx)
	case "courses":
		printCourses(s.out, s.selector)
	case "use":
		if len(args) < 2 {
			return false, errUsage
		}
		division := ""
		if len(args) > 2 {
			division = args[2]
		}
		if err := s.selector.Select(args[1], division); err != nil {
			return false, err
		}
		s.activate(ctx)
	case "division":
		if len(args) != 2 {
			return false, errUsage
		}
		if err := s.selector.SelectDivision(args[1]); err != nil {
			return false, err
		}
		s.activate(ctx)
	case "status":
		s.printStatus()
	case "visits":
		return false, s.printVisits()
	case "sync":
		if err := ws.Sync(ctx); err != nil {
			return false, err
		}
		s.printMaterials()
	case "ls":
		s.printMaterials()
	case "upload":
		return false, s.upload(ctx, args[1:])
	case "url":
		return false, ws.AddURL(ctx, restAfter(line, 1))
	case "rm-file", "rm-url":
		if len(args) != 2 {
			return false, errUsage
		}
		idx, err := position(args[1])
		if err != nil {
			return false, err
		}
		if cmd == "rm-file" {
			return false, ws.RemoveFile(ctx, idx)
		}
		return false, ws.RemoveURL(ctx, idx)
	case "clear":
		return false, ws.ClearAll(ctx)
	case "summary":
		return false, s.summary(ctx, args[1:])
	case "plan":
		return false, s.plan(ctx, line, args[1:])
	case "chat":
		return false, s.chat(ctx, restAfter(line, 1))
	case "suggest":
		if len(args) == 1 {
			for i, q := range chat.SuggestedQuestions {
				fmt.Fprintf(s.out, "  %d. %s\n", i+1, q)
			}
			return false, nil
		}
		idx, err := position(args[1])
		if err != nil || idx >= len(chat.SuggestedQuestions) {
			return false, errUsage
		}
		return false, s.chat(ctx, chat.SuggestedQuestions[idx])
	case "history":
		return false, s.printHistory()
	case "mail":
		return false, s.mail(ctx, line, args[1:])
	default:
		return false, errors.Errorf("unknown command %q, see help", cmd)
	}
	return false, nil
}

func (s *shell) login(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return errUsage
	}
	profile, err := s.app.auth.Login(ctx, args[0], args[1])
	if err != nil {
		return errors.New(client.UserMessage(err, "Login failed"))
	}
	s.app.ws.Reset()
	s.selector = session.NewSelector(profile.Courses)
	fmt.Fprintf(s.out, "Signed in as %s\n", profile.FacultyEmail)
	s.activate(ctx)
	return nil
}

func (s *shell) logout(ctx context.Context) {
	s.app.auth.Logout(ctx)
	s.app.ws.Reset()
	s.selector = nil
	fmt.Fprintln(s.out, "Signed out")
}

func (s *shell) verify(ctx context.Context) error {
	if err := s.app.auth.Verify(ctx); err != nil {
		s.app.ws.Reset()
		s.selector = nil
		return err
	}
	fmt.Fprintln(s.out, "Session is valid")
	return nil
}

// activate hands the selector's context to the workspace
func (s *shell) activate(ctx context.Context) {
	sc := s.selector.Current()
	if !sc.IsSet() {
		fmt.Fprintln(s.out, "No course assigned")
		return
	}
	tr := s.app.ws.SetContext(ctx, sc, s.selector.CourseName())
	if tr.Action == session.ActionSwitch {
		dimColor.Fprintf(s.out, "Left %s, its materials were cleared\n", tr.Previous.ID())
	}
	headerColor.Fprintf(s.out, "%s (%s), Division %s\n", s.selector.CourseName(), sc.CourseID, sc.Division)
	s.printMaterials()
}

func printCourses(out io.Writer, sel *session.Selector) {
	current := sel.Current()
	for _, c := range sel.Courses() {
		marker := " "
		if c.ID == current.CourseID {
			marker = "*"
		}
		fmt.Fprintf(out, "%s %s  %s  divisions: %s\n", marker, c.ID, c.Name, strings.Join(sel.DivisionsOf(c.ID), ", "))
	}
}

func (s *shell) printStatus() {
	st := s.app.ws.Status()
	fmt.Fprintf(s.out, "context:   %s\n", st.Context)
	fmt.Fprintf(s.out, "materials: %d files, %d urls\n", st.Files, st.URLs)
	fmt.Fprintf(s.out, "summary:   %t\n", st.HasSummary)
	fmt.Fprintf(s.out, "plan:      %t (editing %t)\n", st.HasPlan, st.EditingPlan)
	fmt.Fprintf(s.out, "mail:      open %t\n", st.MailOpen)
	if input := s.app.ws.URLInput(); input != "" {
		fmt.Fprintf(s.out, "pending url: %s\n", input)
	}
}

func (s *shell) printVisits() error {
	visits, err := s.app.visits.Read()
	if err != nil {
		return err
	}
	for _, v := range visits {
		fmt.Fprintf(s.out, "%s  %-8s %s\n", v.Timestamp.Format("15:04:05"), v.Action, v.ID())
	}
	return nil
}

func (s *shell) printMaterials() {
	m := s.app.ws.Materials()
	if m.IsEmpty() {
		dimColor.Fprintln(s.out, "No materials yet. Upload files or add a URL.")
		return
	}
	if len(m.Files) > 0 {
		headerColor.Fprintln(s.out, "Files")
		for i, f := range m.Files {
			fmt.Fprintf(s.out, "  %d. %s\n", i+1, f.Source)
		}
	}
	if len(m.URLs) > 0 {
		headerColor.Fprintln(s.out, "URLs")
		for i, u := range m.URLs {
			fmt.Fprintf(s.out, "  %d. %s\n", i+1, u.Source)
		}
	}
}

func (s *shell) upload(ctx context.Context, paths []string) error {
	if len(paths) == 0 {
		return errUsage
	}
	uploads := make([]client.Upload, 0, len(paths))
	for _, p := range paths {
		u, err := client.ReadUpload(p)
		if err != nil {
			return err
		}
		uploads = append(uploads, u)
	}
	if err := s.app.ws.Upload(ctx, uploads); err != nil {
		return err
	}
	s.printMaterials()
	return nil
}

func (s *shell) summary(ctx context.Context, args []string) error {
	ws := s.app.ws
	if len(args) == 0 {
		summary := ws.Summary()
		if summary == nil {
			dimColor.Fprintln(s.out, "No summary yet: summary generate")
			return nil
		}
		fmt.Fprint(s.out, artifact.SummaryMarkdown(*summary))
		return nil
	}

	switch args[0] {
	case "generate":
		summary, err := ws.GenerateSummary(ctx)
		if err != nil {
			return err
		}
		fmt.Fprint(s.out, artifact.SummaryMarkdown(*summary))
	case "export":
		summary := ws.Summary()
		if summary == nil {
			return errors.New("no summary to export")
		}
		return s.export(args[1:], func(f artifact.Format) ([]byte, error) {
			return artifact.ExportSummary(*summary, f)
		})
	default:
		return errUsage
	}
	return nil
}

func (s *shell) plan(ctx context.Context, line string, args []string) error {
	ws := s.app.ws
	if len(args) == 0 {
		p := ws.Plan()
		if p == nil {
			dimColor.Fprintln(s.out, "No session plan yet: plan generate")
			return nil
		}
		fmt.Fprint(s.out, artifact.PlanMarkdown(*p))
		return nil
	}

	switch args[0] {
	case "generate":
		p, err := ws.GeneratePlan(ctx)
		if err != nil {
			return err
		}
		fmt.Fprint(s.out, artifact.PlanMarkdown(*p))
	case "edit":
		return ws.BeginPlanEdit()
	case "save":
		return ws.SavePlanEdit()
	case "title":
		return ws.SetPlanTitle(restAfter(line, 2))
	case "set":
		if len(args) < 3 {
			return errUsage
		}
		block, err := position(args[1])
		if err != nil {
			return err
		}
		return ws.SetPlanBlockField(block, artifact.BlockField(strings.ToLower(args[2])), restAfter(line, 4))
	case "question":
		if len(args) < 3 {
			return errUsage
		}
		block, err := position(args[1])
		if err != nil {
			return err
		}
		q, err := position(args[2])
		if err != nil {
			return err
		}
		return ws.SetPlanQuestion(block, q, restAfter(line, 4))
	case "export":
		p := ws.Plan()
		if p == nil {
			return workspace.ErrNoPlan
		}
		return s.export(args[1:], func(f artifact.Format) ([]byte, error) {
			return artifact.ExportPlan(*p, f)
		})
	default:
		return errUsage
	}
	return nil
}

// export renders with the format in args[0] to the file in args[1], or to
// the terminal when no file is given.
func (s *shell) export(args []string, render func(artifact.Format) ([]byte, error)) error {
	if len(args) == 0 {
		return errUsage
	}
	f, err := artifact.ParseFormat(args[0])
	if err != nil {
		return err
	}
	data, err := render(f)
	if err != nil {
		return err
	}
	if len(args) < 2 {
		_, err := s.out.Write(data)
		return err
	}
	if err := os.WriteFile(args[1], data, 0o644); err != nil {
		return errors.Wrapf(err, "failed to write %s", args[1])
	}
	fmt.Fprintf(s.out, "Wrote %s\n", args[1])
	return nil
}

func (s *shell) chat(ctx context.Context, question string) error {
	if question == "" {
		return errUsage
	}
	turn, err := s.app.ws.SendChat(ctx, question)
	if turn != nil {
		printTurn(s.out, *turn)
	}
	return err
}

func printTurn(out io.Writer, t chat.Turn) {
	switch t.Role {
	case chat.RoleFaculty:
		headerColor.Fprint(out, "you: ")
	case chat.RoleAI:
		headerColor.Fprint(out, "ai:  ")
	default:
		errorColor.Fprint(out, "!!   ")
	}
	fmt.Fprintln(out, t.Content)
}

func (s *shell) printHistory() error {
	turns, err := s.app.ws.Transcript()
	if err != nil {
		return err
	}
	if len(turns) == 0 {
		dimColor.Fprintln(s.out, "No messages yet")
	}
	for _, t := range turns {
		printTurn(s.out, t)
	}
	return nil
}

func (s *shell) mail(ctx context.Context, line string, args []string) error {
	ws := s.app.ws
	sub := "show"
	if len(args) > 0 {
		sub = args[0]
	}

	switch sub {
	case "show":
	case "open":
		ws.OpenMail()
	case "close":
		ws.CloseMail()
		return nil
	case "div":
		if len(args) < 2 {
			return errUsage
		}
		for _, d := range args[1:] {
			d = strings.ToUpper(d)
			if !validDivision(d) {
				return errors.Errorf("division %q is not one of %s", d, strings.Join(workspace.MailDivisions, ", "))
			}
			ws.UpdateMailForm(func(r *workspace.MailRequest) { r.ToggleDivision(d) })
		}
	case "subject":
		text := restAfter(line, 2)
		ws.UpdateMailForm(func(r *workspace.MailRequest) { r.Subject = text })
	case "message":
		text := restAfter(line, 2)
		ws.UpdateMailForm(func(r *workspace.MailRequest) { r.Message = text })
	case "summary":
		if len(args) != 2 || (args[1] != "on" && args[1] != "off") {
			return errUsage
		}
		on := args[1] == "on"
		ws.UpdateMailForm(func(r *workspace.MailRequest) { r.IncludeSummary = on })
	case "send":
		if !ws.MailOpen() {
			ws.OpenMail()
		}
		_, err := ws.SendMail(ctx, ws.MailForm())
		s.printMailStatus()
		if errors.Is(err, workspace.ErrSummaryUnavailable) || errors.Is(err, workspace.ErrNoDivisions) {
			return nil
		}
		return err
	default:
		return errUsage
	}

	form := ws.MailForm()
	fmt.Fprintf(s.out, "divisions: %s\n", strings.Join(form.Divisions, ", "))
	fmt.Fprintf(s.out, "subject:   %s\n", form.Subject)
	fmt.Fprintf(s.out, "message:   %s\n", form.Message)
	fmt.Fprintf(s.out, "summary:   %t\n", form.IncludeSummary)
	s.printMailStatus()
	return nil
}

func validDivision(d string) bool {
	for _, v := range workspace.MailDivisions {
		if v == d {
			return true
		}
	}
	return false
}

func (s *shell) printMailStatus() {
	if st, ok := s.app.ws.MailStatus(); ok {
		dimColor.Fprintf(s.out, "[%s] %s\n", st.Level, st.Message)
	}
}
