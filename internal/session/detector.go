package session

// Action is what a context transition requires from the workspace
type Action int

const (
	// ActionNone means the current context is unset; nothing to do.
	ActionNone Action = iota
	// ActionActivate means the context is valid and unchanged (or seen for
	// the first time); local state is only resynced with the server.
	ActionActivate
	// ActionSwitch means a valid context replaced a different valid one;
	// the previous context must be cleared before the new one is fetched.
	ActionSwitch
)

func (a Action) String() string {
	switch a {
	case ActionActivate:
		return "activate"
	case ActionSwitch:
		return "switch"
	default:
		return "none"
	}
}

// Transition is the outcome of observing a context
type Transition struct {
	Action   Action
	Previous Context
	Current  Context
}

// Classify decides the transition between prev and cur
func Classify(prev, cur Context) Action {
	if !cur.IsSet() {
		return ActionNone
	}
	if prev.IsSet() && prev != cur {
		return ActionSwitch
	}
	return ActionActivate
}

// Detector remembers the last valid context it observed. It is not safe for
// concurrent use; the owner serializes calls.
type Detector struct {
	last Context
}

// Observe classifies cur against the last valid context and records cur
// when it is fully set.
func (d *Detector) Observe(cur Context) Transition {
	t := Transition{
		Action:   Classify(d.last, cur),
		Previous: d.last,
		Current:  cur,
	}
	if cur.IsSet() {
		d.last = cur
	}
	return t
}

// Last returns the last valid context observed
func (d *Detector) Last() Context {
	return d.last
}

// Reset forgets the last context
func (d *Detector) Reset() {
	d.last = Context{}
}
