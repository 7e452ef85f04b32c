package notify

import (
	"io"
	"sync"

	"github.com/fatih/color"
)

type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
	LevelInfo    Level = "info"
)

// Notice is a short message shown to the user after an action
type Notice struct {
	Level   Level
	Message string
}

func Success(msg string) Notice { return Notice{Level: LevelSuccess, Message: msg} }
func Error(msg string) Notice { return Notice{Level: LevelError, Message: msg} }
func Info(msg string) Notice { return Notice{Level: LevelInfo, Message: msg} }

type Notifier interface {
	Notify(Notice)
}

// Func adapts a function to Notifier
type Func func(Notice)

func (f Func) Notify(n Notice) { f(n) }

// Nop drops every notice
var Nop = Func(func(Notice) {})

// Console prints notices as colored lines
type Console struct {
	mu  sync.Mutex
	out io.Writer
}

func NewConsole(out io.Writer) *Console {
	return &Console{out: out}
}

var (
	successColor = color.New(color.FgGreen, color.Bold)
	errorColor   = color.New(color.FgRed, color.Bold)
	infoColor    = color.New(color.FgCyan)
)

func (c *Console) Notify(n Notice) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch n.Level {
	case LevelSuccess:
		successColor.Fprintf(c.out, "✔ %s\n", n.Message)
	case LevelError:
		errorColor.Fprintf(c.out, "✖ %s\n", n.Message)
	default:
		infoColor.Fprintf(c.out, "• %s\n", n.Message)
	}
}

// Recorder keeps every notice in order
type Recorder struct {
	mu      sync.Mutex
	notices []Notice
}

func (r *Recorder) Notify(n Notice) {
	r.mu.Lock()
	r.notices = append(r.notices, n)
	r.mu.Unlock()
}

func (r *Recorder) Notices() []Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notice(nil), r.notices...)
}

// Last returns the most recent notice
func (r *Recorder) Last() (Notice, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.notices) == 0 {
		return Notice{}, false
	}
	return r.notices[len(r.notices)-1], true
}
