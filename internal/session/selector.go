package session

import "github.com/pkg/errors"

var (
	ErrUnknownCourse   = errors.New("unknown course")
	ErrUnknownDivision = errors.New("division is not assigned for this course")
)

// Assignment is one course/division pair the faculty member teaches
type Assignment struct {
	CourseID   string `json:"course_id"`
	CourseName string `json:"course_name"`
	Division   string `json:"division"`
}

// Course is a distinct course taken from the assignments
type Course struct {
	ID   string
	Name string
}

// UniqueCourses returns the distinct courses in first-seen order. When the
// same course appears with different names the last name wins.
func UniqueCourses(assignments []Assignment) []Course {
	index := make(map[string]int, len(assignments))
	courses := make([]Course, 0, len(assignments))
	for _, a := range assignments {
		if i, ok := index[a.CourseID]; ok {
			courses[i].Name = a.CourseName
			continue
		}
		index[a.CourseID] = len(courses)
		courses = append(courses, Course{ID: a.CourseID, Name: a.CourseName})
	}
	return courses
}

// Divisions returns the divisions assigned for courseID in assignment order
func Divisions(assignments []Assignment, courseID string) []string {
	if courseID == "" {
		return nil
	}
	var divisions []string
	for _, a := range assignments {
		if a.CourseID == courseID {
			divisions = append(divisions, a.Division)
		}
	}
	return divisions
}

// CourseName returns the display name of courseID or "" if unknown
func CourseName(assignments []Assignment, courseID string) string {
	for _, c := range UniqueCourses(assignments) {
		if c.ID == courseID {
			return c.Name
		}
	}
	return ""
}

// Selector resolves the active context from the user's picks, falling back
// to the first course and the first division of the selected course.
type Selector struct {
	assignments []Assignment
	courseID    string
	division    string
}

// NewSelector creates a Selector with defaults applied
func NewSelector(assignments []Assignment) *Selector {
	s := &Selector{assignments: assignments}
	s.resolve()
	return s
}

func (s *Selector) resolve() {
	if s.courseID == "" {
		if courses := UniqueCourses(s.assignments); len(courses) > 0 {
			s.courseID = courses[0].ID
		}
	}
	if s.division == "" {
		if divisions := Divisions(s.assignments, s.courseID); len(divisions) > 0 {
			s.division = divisions[0]
		}
	}
}

// SelectCourse picks a course and resets the division to the course's first one
func (s *Selector) SelectCourse(courseID string) error {
	if len(Divisions(s.assignments, courseID)) == 0 {
		return errors.Wrapf(ErrUnknownCourse, "course %q", courseID)
	}
	s.courseID = courseID
	s.division = ""
	s.resolve()
	return nil
}

// SelectDivision picks a division of the current course
func (s *Selector) SelectDivision(division string) error {
	for _, d := range Divisions(s.assignments, s.courseID) {
		if d == division {
			s.division = division
			return nil
		}
	}
	return errors.Wrapf(ErrUnknownDivision, "division %q of course %q", division, s.courseID)
}

// Select picks course and division in one step
func (s *Selector) Select(courseID, division string) error {
	if err := s.SelectCourse(courseID); err != nil {
		return err
	}
	if division == "" {
		return nil
	}
	return s.SelectDivision(division)
}

func (s *Selector) Current() Context {
	return New(s.courseID, s.division)
}

func (s *Selector) CourseName() string {
	return CourseName(s.assignments, s.courseID)
}

func (s *Selector) Courses() []Course {
	return UniqueCourses(s.assignments)
}

func (s *Selector) Divisions() []string {
	return Divisions(s.assignments, s.courseID)
}

// DivisionsOf lists the divisions assigned for any course
func (s *Selector) DivisionsOf(courseID string) []string {
	return Divisions(s.assignments, courseID)
}
