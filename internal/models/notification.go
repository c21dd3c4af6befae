package models

import "time"

// NotificationType categorises in-app notifications.
type NotificationType string

const (
	NotificationAssignment     NotificationType = "assignment"
	NotificationAnnouncement   NotificationType = "announcement"
	NotificationExam           NotificationType = "exam"
	NotificationUrgent         NotificationType = "urgent"
	NotificationGeneral        NotificationType = "general"
	NotificationClassScheduled NotificationType = "class_scheduled"
	NotificationClassAssigned  NotificationType = "class_assigned"
	NotificationClassCancelled NotificationType = "class_cancelled"
	NotificationTeacherChanged NotificationType = "teacher_changed"
)

// ValidNotificationType reports whether t is a known type.
func ValidNotificationType(t string) bool {
	switch NotificationType(t) {
	case NotificationAssignment, NotificationAnnouncement, NotificationExam,
		NotificationUrgent, NotificationGeneral, NotificationClassScheduled,
		NotificationClassAssigned, NotificationClassCancelled, NotificationTeacherChanged:
		return true
	}
	return false
}

// Notification is a single in-app message addressed to one user.
type Notification struct {
	ID          string           `db:"id" json:"id"`
	RecipientID string           `db:"recipient_id" json:"recipient_id"`
	Title       string           `db:"title" json:"title"`
	Message     string           `db:"message" json:"message"`
	Type        NotificationType `db:"type" json:"type"`
	Read        bool             `db:"read" json:"read"`
	Attachment  *string          `db:"attachment" json:"attachment,omitempty"`
	CreatedAt   time.Time        `db:"created_at" json:"created_at"`
}
