package models

import "time"

// UserRole represents the roles recognised by the college backend.
type UserRole string

const (
	RoleAdmin   UserRole = "ADMIN"
	RoleTeacher UserRole = "TEACHER"
	RoleStudent UserRole = "STUDENT"
)

// User is an account managed by the external identity service. This
// API reads users to resolve teachers and notification recipients; it
// never mutates them.
type User struct {
	ID         string    `db:"id" json:"id"`
	Email      string    `db:"email" json:"email"`
	FullName   string    `db:"full_name" json:"full_name"`
	Role       UserRole  `db:"role" json:"role"`
	ClassGroup *string   `db:"class_group" json:"class_group,omitempty"`
	Department *string   `db:"department" json:"department,omitempty"`
	StudentID  *string   `db:"student_id" json:"student_id,omitempty"`
	EmployeeID *string   `db:"employee_id" json:"employee_id,omitempty"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
