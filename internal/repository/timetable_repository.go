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

const timetableColumns = "id, class_group, course_code, subject, group_name, teacher_id, day, start_time, end_time, start_min, end_min, location, semester, created_at, updated_at"

// TimetableRepository provides persistence for timetable entries.
type TimetableRepository struct {
	db *sqlx.DB
}

// NewTimetableRepository creates a new timetable repository.
func NewTimetableRepository(db *sqlx.DB) *TimetableRepository {
	return &TimetableRepository{db: db}
}

// List returns timetable entries with optional filtering and pagination,
// ordered by day and start time.
func (r *TimetableRepository) List(ctx context.Context, filter models.TimetableFilter) ([]models.TimetableEntry, int, error) {
	base := "FROM timetable_entries WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.ClassGroup != "" {
		conditions = append(conditions, fmt.Sprintf("class_group = $%d", len(args)+1))
		args = append(args, filter.ClassGroup)
	}
	if filter.CourseCode != "" {
		conditions = append(conditions, fmt.Sprintf("course_code = $%d", len(args)+1))
		args = append(args, filter.CourseCode)
	}
	if filter.Group != "" {
		conditions = append(conditions, fmt.Sprintf("group_name = $%d", len(args)+1))
		args = append(args, filter.Group)
	}
	if filter.TeacherID != "" {
		conditions = append(conditions, fmt.Sprintf("teacher_id = $%d", len(args)+1))
		args = append(args, filter.TeacherID)
	}
	if filter.Day != "" {
		conditions = append(conditions, fmt.Sprintf("day = $%d", len(args)+1))
		args = append(args, filter.Day)
	}
	if filter.Semester != "" {
		conditions = append(conditions, fmt.Sprintf("semester = $%d", len(args)+1))
		args = append(args, filter.Semester)
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
		size = 50
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY day ASC, start_min ASC LIMIT %d OFFSET %d", timetableColumns, base, size, offset)
	var entries []models.TimetableEntry
	if err := r.db.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list timetable entries: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count timetable entries: %w", err)
	}

	return entries, total, nil
}

// FindByID loads an entry by id.
func (r *TimetableRepository) FindByID(ctx context.Context, id string) (*models.TimetableEntry, error) {
	query := fmt.Sprintf("SELECT %s FROM timetable_entries WHERE id = $1", timetableColumns)
	var entry models.TimetableEntry
	if err := r.db.GetContext(ctx, &entry, query, id); err != nil {
		return nil, err
	}
	return &entry, nil
}

// FindConflicts returns entries assigned to the teacher on the given
// day whose half-open [start,end) interval intersects the probe
// interval. excludeID, when non-empty, drops the entry being updated
// so it cannot conflict with its own prior state.
func (r *TimetableRepository) FindConflicts(ctx context.Context, teacherID string, day models.Weekday, startMin, endMin int, excludeID string) ([]models.TimetableEntry, error) {
	query := fmt.Sprintf(`SELECT %s FROM timetable_entries WHERE teacher_id = $1 AND day = $2 AND start_min < $3 AND end_min > $4`, timetableColumns)
	args := []interface{}{teacherID, day, endMin, startMin}
	if excludeID != "" {
		query += " AND id <> $5"
		args = append(args, excludeID)
	}

	var entries []models.TimetableEntry
	if err := r.db.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, fmt.Errorf("find timetable conflicts: %w", err)
	}
	return entries, nil
}

// ListByClassGroup returns the weekly timetable for a student cohort.
func (r *TimetableRepository) ListByClassGroup(ctx context.Context, classGroup string) ([]models.TimetableEntry, error) {
	query := fmt.Sprintf("SELECT %s FROM timetable_entries WHERE class_group = $1 ORDER BY day ASC, start_min ASC", timetableColumns)
	var entries []models.TimetableEntry
	if err := r.db.SelectContext(ctx, &entries, query, classGroup); err != nil {
		return nil, fmt.Errorf("list timetable by class group: %w", err)
	}
	return entries, nil
}

// ListByTeacher returns entries taught by a teacher.
func (r *TimetableRepository) ListByTeacher(ctx context.Context, teacherID string) ([]models.TimetableEntry, error) {
	query := fmt.Sprintf("SELECT %s FROM timetable_entries WHERE teacher_id = $1 ORDER BY day ASC, start_min ASC", timetableColumns)
	var entries []models.TimetableEntry
	if err := r.db.SelectContext(ctx, &entries, query, teacherID); err != nil {
		return nil, fmt.Errorf("list timetable by teacher: %w", err)
	}
	return entries, nil
}

// Create stores a new timetable entry.
func (r *TimetableRepository) Create(ctx context.Context, entry *models.TimetableEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = now
	}
	entry.UpdatedAt = now

	const query = `INSERT INTO timetable_entries (id, class_group, course_code, subject, group_name, teacher_id, day, start_time, end_time, start_min, end_min, location, semester, created_at, updated_at) VALUES (:id, :class_group, :course_code, :subject, :group_name, :teacher_id, :day, :start_time, :end_time, :start_min, :end_min, :location, :semester, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, entry); err != nil {
		return fmt.Errorf("create timetable entry: %w", err)
	}
	return nil
}

// Update modifies a timetable entry.
func (r *TimetableRepository) Update(ctx context.Context, entry *models.TimetableEntry) error {
	entry.UpdatedAt = time.Now().UTC()
	const query = `UPDATE timetable_entries SET class_group = :class_group, course_code = :course_code, subject = :subject, group_name = :group_name, teacher_id = :teacher_id, day = :day, start_time = :start_time, end_time = :end_time, start_min = :start_min, end_min = :end_min, location = :location, semester = :semester, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, entry); err != nil {
		return fmt.Errorf("update timetable entry: %w", err)
	}
	return nil
}

// Delete removes a timetable entry by id.
func (r *TimetableRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM timetable_entries WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete timetable entry: %w", err)
	}
	return nil
}
