package models

import "time"

// Weekday is the closed set of teaching days. Sunday is not a
// teaching day and is deliberately absent.
type Weekday string

const (
	Monday    Weekday = "Monday"
	Tuesday   Weekday = "Tuesday"
	Wednesday Weekday = "Wednesday"
	Thursday  Weekday = "Thursday"
	Friday    Weekday = "Friday"
	Saturday  Weekday = "Saturday"
)

// Weekdays lists the valid teaching days in order.
var Weekdays = []Weekday{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday}

// ValidWeekday reports whether day belongs to the enumeration.
func ValidWeekday(day string) bool {
	for _, d := range Weekdays {
		if string(d) == day {
			return true
		}
	}
	return false
}

// TimetableEntry is one class-session record. Start and end times keep
// their display form alongside minute offsets; every comparison uses
// the minutes.
type TimetableEntry struct {
	ID         string    `db:"id" json:"id"`
	ClassGroup string    `db:"class_group" json:"class_group"`
	CourseCode string    `db:"course_code" json:"course_code"`
	Subject    string    `db:"subject" json:"subject"`
	Group      string    `db:"group_name" json:"group"`
	TeacherID  *string   `db:"teacher_id" json:"teacher_id,omitempty"`
	Day        Weekday   `db:"day" json:"day"`
	StartTime  string    `db:"start_time" json:"start_time"`
	EndTime    string    `db:"end_time" json:"end_time"`
	StartMin   int       `db:"start_min" json:"-"`
	EndMin     int       `db:"end_min" json:"-"`
	Location   string    `db:"location" json:"location"`
	Semester   string    `db:"semester" json:"semester"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// TimetableFilter describes query params for listing entries.
type TimetableFilter struct {
	ClassGroup string
	CourseCode string
	Group      string
	TeacherID  string
	Day        string
	Semester   string
	Page       int
	PageSize   int
}

// TimetableConflictError is returned when a proposed slot collides
// with entries already assigned to the teacher on that day. It carries
// the full conflict list so the caller can decide to retry with merge.
type TimetableConflictError struct {
	Message     string           `json:"message"`
	Conflicts   []TimetableEntry `json:"conflicts"`
	Remediation string           `json:"remediation,omitempty"`
}

// Error implements the error interface.
func (e *TimetableConflictError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return e.Message
}
