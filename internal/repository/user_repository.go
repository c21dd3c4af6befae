package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/campushub/college-admin-api/internal/models"
)

const userColumns = "id, email, full_name, role, class_group, department, student_id, employee_id, created_at, updated_at"

// UserRepository reads user records. The users table is owned by the
// identity service; this API never writes to it.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new user repository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// FindByID loads a user by id.
func (r *UserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	query := fmt.Sprintf("SELECT %s FROM users WHERE id = $1", userColumns)
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		return nil, err
	}
	return &user, nil
}

// ListByClassGroupAndRole returns the users of a cohort with the given
// role, used for class-wide notification fan-out.
func (r *UserRepository) ListByClassGroupAndRole(ctx context.Context, classGroup string, role models.UserRole) ([]models.User, error) {
	query := fmt.Sprintf("SELECT %s FROM users WHERE class_group = $1 AND role = $2", userColumns)
	var users []models.User
	if err := r.db.SelectContext(ctx, &users, query, classGroup, role); err != nil {
		return nil, fmt.Errorf("list users by class group: %w", err)
	}
	return users, nil
}

// ListByRole returns all users holding a role.
func (r *UserRepository) ListByRole(ctx context.Context, role models.UserRole) ([]models.User, error) {
	query := fmt.Sprintf("SELECT %s FROM users WHERE role = $1", userColumns)
	var users []models.User
	if err := r.db.SelectContext(ctx, &users, query, role); err != nil {
		return nil, fmt.Errorf("list users by role: %w", err)
	}
	return users, nil
}
