package models

import "time"

// EventStatus tracks an event through its lifecycle.
type EventStatus string

const (
	EventUpcoming  EventStatus = "Upcoming"
	EventOngoing   EventStatus = "Ongoing"
	EventCompleted EventStatus = "Completed"
	EventCancelled EventStatus = "Cancelled"
)

// EventMode is how the event is delivered.
type EventMode string

const (
	EventOnline  EventMode = "Online"
	EventOffline EventMode = "Offline"
	EventHybrid  EventMode = "Hybrid"
)

// Event is a college event open for registration.
type Event struct {
	ID                   string      `db:"id" json:"id"`
	SerialNumber         int         `db:"serial_number" json:"serial_number"`
	SchoolName           string      `db:"school_name" json:"school_name"`
	Name                 string      `db:"name" json:"name"`
	StartDate            time.Time   `db:"start_date" json:"start_date"`
	EndDate              time.Time   `db:"end_date" json:"end_date"`
	Level                string      `db:"level" json:"level"`
	Mode                 EventMode   `db:"mode" json:"mode"`
	Category             string      `db:"category" json:"category"`
	TargetGroup          string      `db:"target_group" json:"target_group"`
	Objective            string      `db:"objective" json:"objective"`
	RegistrationDeadline *time.Time  `db:"registration_deadline" json:"registration_deadline,omitempty"`
	MaxParticipants      *int        `db:"max_participants" json:"max_participants,omitempty"`
	Status               EventStatus `db:"status" json:"status"`
	CreatedBy            string      `db:"created_by" json:"created_by"`
	CreatedAt            time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time   `db:"updated_at" json:"updated_at"`
}

// EventParticipant records one registration for an event.
type EventParticipant struct {
	ID           string    `db:"id" json:"id"`
	EventID      string    `db:"event_id" json:"event_id"`
	UserID       string    `db:"user_id" json:"user_id"`
	Name         string    `db:"name" json:"name"`
	Email        string    `db:"email" json:"email"`
	ClassGroup   *string   `db:"class_group" json:"class_group,omitempty"`
	RegisteredAt time.Time `db:"registered_at" json:"registered_at"`
}

// EventFilter describes query params for listing events.
type EventFilter struct {
	Status     string
	SchoolName string
	Level      string
	Search     string
	Page       int
	PageSize   int
}
