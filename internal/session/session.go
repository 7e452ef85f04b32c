package session

import "fmt"

// Context identifies the (course, division) pair that scopes materials and
// every artifact derived from them.
type Context struct {
	CourseID string `json:"course_id" db:"course_id"`
	Division string `json:"division" db:"division"`
}

// New creates a new Context
func New(courseID, division string) Context {
	return Context{CourseID: courseID, Division: division}
}

// IsSet reports whether both fields are present. A partially filled
// Context is not a context at all.
func (c Context) IsSet() bool {
	return c.CourseID != "" && c.Division != ""
}

// ID returns the storage key of the context
func (c Context) ID() string {
	return c.CourseID + "/" + c.Division
}

func (c Context) String() string {
	if !c.IsSet() {
		return "<unset>"
	}
	return fmt.Sprintf("%s div %s", c.CourseID, c.Division)
}
