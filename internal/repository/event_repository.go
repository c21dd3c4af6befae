package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campushub/college-admin-api/internal/models"
)

const eventColumns = "id, serial_number, school_name, name, start_date, end_date, level, mode, category, target_group, objective, registration_deadline, max_participants, status, created_by, created_at, updated_at"

// EventRepository provides persistence for events and registrations.
type EventRepository struct {
	db *sqlx.DB
}

// NewEventRepository creates a new event repository.
func NewEventRepository(db *sqlx.DB) *EventRepository {
	return &EventRepository{db: db}
}

// List returns events with optional filtering and pagination.
func (r *EventRepository) List(ctx context.Context, filter models.EventFilter) ([]models.Event, int, error) {
	base := "FROM events WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.SchoolName != "" {
		conditions = append(conditions, fmt.Sprintf("school_name = $%d", len(args)+1))
		args = append(args, filter.SchoolName)
	}
	if filter.Level != "" {
		conditions = append(conditions, fmt.Sprintf("level = $%d", len(args)+1))
		args = append(args, filter.Level)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(name ILIKE $%d OR objective ILIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+filter.Search+"%")
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY start_date DESC LIMIT %d OFFSET %d", eventColumns, base, size, offset)
	var events []models.Event
	if err := r.db.SelectContext(ctx, &events, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list events: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count events: %w", err)
	}

	return events, total, nil
}

// FindByID loads an event by id.
func (r *EventRepository) FindByID(ctx context.Context, id string) (*models.Event, error) {
	query := fmt.Sprintf("SELECT %s FROM events WHERE id = $1", eventColumns)
	var event models.Event
	if err := r.db.GetContext(ctx, &event, query, id); err != nil {
		return nil, err
	}
	return &event, nil
}

// Create stores a new event, assigning the next serial number.
func (r *EventRepository) Create(ctx context.Context, event *models.Event) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if event.CreatedAt.IsZero() {
		event.CreatedAt = now
	}
	event.UpdatedAt = now

	if err := r.db.GetContext(ctx, &event.SerialNumber, `SELECT COALESCE(MAX(serial_number), 0) + 1 FROM events`); err != nil {
		return fmt.Errorf("next event serial number: %w", err)
	}

	const query = `INSERT INTO events (id, serial_number, school_name, name, start_date, end_date, level, mode, category, target_group, objective, registration_deadline, max_participants, status, created_by, created_at, updated_at) VALUES (:id, :serial_number, :school_name, :name, :start_date, :end_date, :level, :mode, :category, :target_group, :objective, :registration_deadline, :max_participants, :status, :created_by, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, event); err != nil {
		return fmt.Errorf("create event: %w", err)
	}
	return nil
}

// Update modifies an event record.
func (r *EventRepository) Update(ctx context.Context, event *models.Event) error {
	event.UpdatedAt = time.Now().UTC()
	const query = `UPDATE events SET school_name = :school_name, name = :name, start_date = :start_date, end_date = :end_date, level = :level, mode = :mode, category = :category, target_group = :target_group, objective = :objective, registration_deadline = :registration_deadline, max_participants = :max_participants, status = :status, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, event); err != nil {
		return fmt.Errorf("update event: %w", err)
	}
	return nil
}

// Delete removes an event and its registrations.
func (r *EventRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete event: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM event_participants WHERE event_id = $1`, id); err != nil {
		return fmt.Errorf("delete event participants: %w", err)
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM events WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit delete event: %w", err)
	}
	return nil
}

// ListParticipants returns the registrations for an event.
func (r *EventRepository) ListParticipants(ctx context.Context, eventID string) ([]models.EventParticipant, error) {
	const query = `SELECT id, event_id, user_id, name, email, class_group, registered_at FROM event_participants WHERE event_id = $1 ORDER BY registered_at ASC`
	var participants []models.EventParticipant
	if err := r.db.SelectContext(ctx, &participants, query, eventID); err != nil {
		return nil, fmt.Errorf("list event participants: %w", err)
	}
	return participants, nil
}

// CountParticipants returns the number of registrations for an event.
func (r *EventRepository) CountParticipants(ctx context.Context, eventID string) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM event_participants WHERE event_id = $1`, eventID); err != nil {
		return 0, fmt.Errorf("count event participants: %w", err)
	}
	return count, nil
}

// IsRegistered reports whether the user already registered.
func (r *EventRepository) IsRegistered(ctx context.Context, eventID, userID string) (bool, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM event_participants WHERE event_id = $1 AND user_id = $2`, eventID, userID); err != nil {
		return false, fmt.Errorf("check event registration: %w", err)
	}
	return count > 0, nil
}

// AddParticipant stores a registration.
func (r *EventRepository) AddParticipant(ctx context.Context, p *models.EventParticipant) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.RegisteredAt.IsZero() {
		p.RegisteredAt = time.Now().UTC()
	}
	const query = `INSERT INTO event_participants (id, event_id, user_id, name, email, class_group, registered_at) VALUES (:id, :event_id, :user_id, :name, :email, :class_group, :registered_at)`
	if _, err := r.db.NamedExecContext(ctx, query, p); err != nil {
		return fmt.Errorf("add event participant: %w", err)
	}
	return nil
}

// RemoveParticipant drops a registration.
func (r *EventRepository) RemoveParticipant(ctx context.Context, eventID, userID string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM event_participants WHERE event_id = $1 AND user_id = $2`, eventID, userID)
	if err != nil {
		return 0, fmt.Errorf("remove event participant: %w", err)
	}
	return res.RowsAffected()
}
