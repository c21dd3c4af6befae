package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/campushub/college-admin-api/internal/models"
	appErrors "github.com/campushub/college-admin-api/pkg/errors"
	"github.com/campushub/college-admin-api/pkg/export"
	"github.com/campushub/college-admin-api/pkg/keylock"
	"github.com/campushub/college-admin-api/pkg/timeslot"
)

// Merge modes accepted by Reassign.
const (
	MergeModeMerge   = "merge"
	MergeModeReplace = "replace"
)

type timetableRepository interface {
	List(ctx context.Context, filter models.TimetableFilter) ([]models.TimetableEntry, int, error)
	FindByID(ctx context.Context, id string) (*models.TimetableEntry, error)
	FindConflicts(ctx context.Context, teacherID string, day models.Weekday, startMin, endMin int, excludeID string) ([]models.TimetableEntry, error)
	ListByClassGroup(ctx context.Context, classGroup string) ([]models.TimetableEntry, error)
	ListByTeacher(ctx context.Context, teacherID string) ([]models.TimetableEntry, error)
	Create(ctx context.Context, entry *models.TimetableEntry) error
	Update(ctx context.Context, entry *models.TimetableEntry) error
	Delete(ctx context.Context, id string) error
}

type teacherDirectory interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// classNotifier delivers best-effort notifications. Failures are
// logged by the timetable service and never surfaced to callers.
type classNotifier interface {
	NotifyClass(ctx context.Context, classGroup, title, message string, kind models.NotificationType) error
	NotifyTeacher(ctx context.Context, teacherID, title, message string, kind models.NotificationType) error
}

// CreateTimetableRequest describes payload for scheduling a class.
type CreateTimetableRequest struct {
	ClassGroup string `json:"class_group" validate:"required"`
	CourseCode string `json:"course_code" validate:"required"`
	Subject    string `json:"subject" validate:"required"`
	Group      string `json:"group"`
	TeacherID  string `json:"teacher_id"`
	Day        string `json:"day" validate:"required"`
	StartTime  string `json:"start_time" validate:"required"`
	EndTime    string `json:"end_time" validate:"required"`
	Location   string `json:"location" validate:"required"`
	Semester   string `json:"semester"`
}

// UpdateTimetableRequest mirrors the create payload for updates.
type UpdateTimetableRequest CreateTimetableRequest

// ReassignRequest moves an entry to another teacher.
type ReassignRequest struct {
	TimetableID  string `json:"timetable_id" validate:"required"`
	NewTeacherID string `json:"new_teacher_id" validate:"required"`
	MergeMode    string `json:"merge_mode" validate:"required,oneof=merge replace"`
}

// CheckOverlapRequest probes a slot without mutating anything. The
// HTTP layer fills TeacherID with the calling user when it is omitted.
type CheckOverlapRequest struct {
	Day       string `json:"day" validate:"required"`
	StartTime string `json:"start_time" validate:"required"`
	EndTime   string `json:"end_time" validate:"required"`
	TeacherID string `json:"teacher_id"`
}

// CheckOverlapResult reports the probe outcome.
type CheckOverlapResult struct {
	HasOverlap bool                    `json:"has_overlap"`
	Conflicts  []models.TimetableEntry `json:"conflicts"`
}

// TimetableService coordinates schedule mutations and the conflict
// rules around them: for any teacher and day no two entries may hold
// overlapping [start,end) intervals, unless a reassignment explicitly
// merges.
type TimetableService struct {
	repo      timetableRepository
	users     teacherDirectory
	notifier  classNotifier
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	locks     *keylock.KeyLock

	defaultSemester string
	pdf             *export.PDFExporter
	csv             *export.CSVExporter
}

// NewTimetableService instantiates TimetableService.
func NewTimetableService(repo timetableRepository, users teacherDirectory, notifier classNotifier, cache *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, defaultSemester string) *TimetableService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if defaultSemester == "" {
		defaultSemester = "Fall 2025"
	}
	return &TimetableService{
		repo:            repo,
		users:           users,
		notifier:        notifier,
		cache:           cache,
		metrics:         metrics,
		validator:       validate,
		logger:          logger,
		locks:           keylock.New(),
		defaultSemester: defaultSemester,
		pdf:             export.NewPDFExporter(),
		csv:             export.NewCSVExporter(),
	}
}

// List returns timetable entries with pagination metadata.
func (s *TimetableService) List(ctx context.Context, filter models.TimetableFilter) ([]models.TimetableEntry, *models.Pagination, error) {
	entries, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list timetable entries")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 50
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return entries, pagination, nil
}

// ListByClassGroup returns the weekly timetable for a student cohort,
// served from cache when possible.
func (s *TimetableService) ListByClassGroup(ctx context.Context, classGroup string) ([]models.TimetableEntry, error) {
	cacheKey := "timetable:class:" + classGroup
	var cached []models.TimetableEntry
	if hit, _ := s.cache.Get(ctx, cacheKey, &cached); hit {
		return cached, nil
	}

	entries, err := s.repo.ListByClassGroup(ctx, classGroup)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list class timetable")
	}
	_ = s.cache.Set(ctx, cacheKey, entries, 0)
	return entries, nil
}

// ListByTeacher returns entries taught by a teacher.
func (s *TimetableService) ListByTeacher(ctx context.Context, teacherID string) ([]models.TimetableEntry, error) {
	entries, err := s.repo.ListByTeacher(ctx, teacherID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list teacher timetable")
	}
	return entries, nil
}

// Create validates and persists a new timetable entry. When a teacher
// is assigned, the slot must not overlap any class already assigned to
// that teacher on the same day; there is no merge path at creation.
func (s *TimetableService) Create(ctx context.Context, req CreateTimetableRequest) (*models.TimetableEntry, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid timetable payload")
	}

	entry, err := s.buildEntry(req)
	if err != nil {
		return nil, err
	}

	if entry.TeacherID != nil {
		if _, err := s.requireTeacher(ctx, *entry.TeacherID); err != nil {
			return nil, err
		}

		unlock := s.lockSlot(*entry.TeacherID, entry.Day)
		defer unlock()

		conflicts, err := s.repo.FindConflicts(ctx, *entry.TeacherID, entry.Day, entry.StartMin, entry.EndMin, "")
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to check timetable conflicts")
		}
		if len(conflicts) > 0 {
			s.metrics.RecordConflict()
			return nil, conflictError("teacher has a conflicting class at this time", conflicts, "")
		}

		if err := s.repo.Create(ctx, entry); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create timetable entry")
		}
	} else {
		if err := s.repo.Create(ctx, entry); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create timetable entry")
		}
	}

	s.invalidateClassCache(ctx, entry.ClassGroup)

	s.notifyBestEffort(ctx, entry.ClassGroup,
		fmt.Sprintf("New class scheduled: %s (%s - Group %s)", entry.Subject, entry.CourseCode, entry.Group),
		fmt.Sprintf("%s has a new %s class on %s from %s to %s in %s", entry.ClassGroup, entry.Subject, entry.Day, entry.StartTime, entry.EndTime, entry.Location),
		models.NotificationClassScheduled)
	if entry.TeacherID != nil {
		s.notifyTeacherBestEffort(ctx, *entry.TeacherID,
			fmt.Sprintf("New class assigned: %s (%s - Group %s)", entry.Subject, entry.CourseCode, entry.Group),
			fmt.Sprintf("You have been assigned to teach %s (%s - Group %s) to %s on %s from %s to %s", entry.Subject, entry.CourseCode, entry.Group, entry.ClassGroup, entry.Day, entry.StartTime, entry.EndTime),
			models.NotificationClassAssigned)
	}

	return entry, nil
}

// Reassign moves an existing entry to a new teacher. Conflicts with
// the new teacher's schedule block the move unless the caller
// acknowledges them with merge mode, in which case the double booking
// is allowed to stand; no structural merging takes place.
func (s *TimetableService) Reassign(ctx context.Context, req ReassignRequest) (*models.TimetableEntry, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid reassign payload")
	}

	entry, err := s.repo.FindByID(ctx, req.TimetableID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "timetable entry not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable entry")
	}

	teacher, err := s.requireTeacher(ctx, req.NewTeacherID)
	if err != nil {
		return nil, err
	}

	unlock := s.lockSlot(req.NewTeacherID, entry.Day)
	defer unlock()

	// The entry is still stored under its old teacher, so it cannot
	// self-conflict on the teacher field; no exclusion needed here.
	conflicts, err := s.repo.FindConflicts(ctx, req.NewTeacherID, entry.Day, entry.StartMin, entry.EndMin, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to check timetable conflicts")
	}
	if len(conflicts) > 0 && req.MergeMode != MergeModeMerge {
		s.metrics.RecordConflict()
		return nil, conflictError("teacher already has a class at the given time; choose merge to proceed", conflicts, MergeModeMerge)
	}

	entry.TeacherID = &req.NewTeacherID
	if err := s.repo.Update(ctx, entry); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reassign timetable entry")
	}

	s.invalidateClassCache(ctx, entry.ClassGroup)

	s.notifyBestEffort(ctx, entry.ClassGroup,
		fmt.Sprintf("Teacher changed for %s (%s - Group %s)", entry.Subject, entry.CourseCode, entry.Group),
		fmt.Sprintf("The class on %s at %s is now with %s", entry.Day, entry.StartTime, teacher.FullName),
		models.NotificationTeacherChanged)
	s.notifyTeacherBestEffort(ctx, req.NewTeacherID,
		"Class assigned to you",
		fmt.Sprintf("You have been assigned %s (%s - Group %s) on %s, %s-%s", entry.Subject, entry.CourseCode, entry.Group, entry.Day, entry.StartTime, entry.EndTime),
		models.NotificationClassAssigned)

	return entry, nil
}

// CheckOverlap reports conflicts for a probe slot without mutating
// anything.
func (s *TimetableService) CheckOverlap(ctx context.Context, req CheckOverlapRequest) (*CheckOverlapResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid overlap payload")
	}
	if !models.ValidWeekday(req.Day) {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid day %q", req.Day))
	}
	startMin, endMin, err := parseInterval(req.StartTime, req.EndTime)
	if err != nil {
		return nil, err
	}

	conflicts, err := s.repo.FindConflicts(ctx, req.TeacherID, models.Weekday(req.Day), startMin, endMin, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to check timetable conflicts")
	}
	if conflicts == nil {
		conflicts = []models.TimetableEntry{}
	}
	return &CheckOverlapResult{HasOverlap: len(conflicts) > 0, Conflicts: conflicts}, nil
}

// Update rewrites an entry. The conflict query excludes the entry's
// own id so it cannot collide with its prior state.
func (s *TimetableService) Update(ctx context.Context, id string, req UpdateTimetableRequest) (*models.TimetableEntry, error) {
	if err := s.validator.Struct(CreateTimetableRequest(req)); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid timetable payload")
	}

	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "timetable entry not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable entry")
	}

	updated, err := s.buildEntry(CreateTimetableRequest(req))
	if err != nil {
		return nil, err
	}
	updated.ID = existing.ID
	updated.CreatedAt = existing.CreatedAt

	if updated.TeacherID != nil {
		if _, err := s.requireTeacher(ctx, *updated.TeacherID); err != nil {
			return nil, err
		}

		unlock := s.lockSlot(*updated.TeacherID, updated.Day)
		defer unlock()

		conflicts, err := s.repo.FindConflicts(ctx, *updated.TeacherID, updated.Day, updated.StartMin, updated.EndMin, updated.ID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to check timetable conflicts")
		}
		if len(conflicts) > 0 {
			s.metrics.RecordConflict()
			return nil, conflictError("teacher has a conflicting class at this time", conflicts, "")
		}
	}

	if err := s.repo.Update(ctx, updated); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update timetable entry")
	}

	s.invalidateClassCache(ctx, existing.ClassGroup)
	if updated.ClassGroup != existing.ClassGroup {
		s.invalidateClassCache(ctx, updated.ClassGroup)
	}
	return updated, nil
}

// Delete removes an entry and notifies the cohort that the class is
// cancelled. Deletion is immediate and final.
func (s *TimetableService) Delete(ctx context.Context, id string) error {
	entry, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "timetable entry not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable entry")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete timetable entry")
	}

	s.invalidateClassCache(ctx, entry.ClassGroup)

	s.notifyBestEffort(ctx, entry.ClassGroup,
		fmt.Sprintf("Class cancelled: %s (%s - Group %s)", entry.Subject, entry.CourseCode, entry.Group),
		fmt.Sprintf("The %s class (%s - Group %s) on %s from %s to %s has been cancelled.", entry.Subject, entry.CourseCode, entry.Group, entry.Day, entry.StartTime, entry.EndTime),
		models.NotificationClassCancelled)
	return nil
}

// Export renders the weekly timetable of a cohort as PDF or CSV.
func (s *TimetableService) Export(ctx context.Context, classGroup, format string) ([]byte, string, error) {
	if classGroup == "" {
		return nil, "", appErrors.Clone(appErrors.ErrValidation, "class_group is required")
	}

	entries, err := s.repo.ListByClassGroup(ctx, classGroup)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class timetable")
	}

	dataset := export.Dataset{
		Headers: []string{"Day", "Start", "End", "Subject", "Course", "Group", "Location", "Semester"},
	}
	for _, e := range entries {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Day":      string(e.Day),
			"Start":    timeslot.FormatMinutes(e.StartMin),
			"End":      timeslot.FormatMinutes(e.EndMin),
			"Subject":  e.Subject,
			"Course":   e.CourseCode,
			"Group":    e.Group,
			"Location": e.Location,
			"Semester": e.Semester,
		})
	}

	switch strings.ToLower(format) {
	case "", "pdf":
		payload, err := s.pdf.Render(dataset, fmt.Sprintf("Timetable %s", classGroup))
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render timetable pdf")
		}
		return payload, "application/pdf", nil
	case "csv":
		payload, err := s.csv.Render(dataset)
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render timetable csv")
		}
		return payload, "text/csv", nil
	default:
		return nil, "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}
}

func (s *TimetableService) buildEntry(req CreateTimetableRequest) (*models.TimetableEntry, error) {
	if !models.ValidWeekday(req.Day) {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid day %q, must be one of Monday..Saturday", req.Day))
	}

	startMin, endMin, err := parseInterval(req.StartTime, req.EndTime)
	if err != nil {
		return nil, err
	}

	group := strings.TrimSpace(req.Group)
	if group == "" {
		group = "A"
	}
	semester := strings.TrimSpace(req.Semester)
	if semester == "" {
		semester = s.defaultSemester
	}

	entry := &models.TimetableEntry{
		ClassGroup: strings.TrimSpace(req.ClassGroup),
		CourseCode: strings.TrimSpace(req.CourseCode),
		Subject:    strings.TrimSpace(req.Subject),
		Group:      group,
		Day:        models.Weekday(req.Day),
		StartTime:  req.StartTime,
		EndTime:    req.EndTime,
		StartMin:   startMin,
		EndMin:     endMin,
		Location:   strings.TrimSpace(req.Location),
		Semester:   semester,
	}
	if teacherID := strings.TrimSpace(req.TeacherID); teacherID != "" {
		entry.TeacherID = &teacherID
	}
	return entry, nil
}

// requireTeacher verifies the referenced user exists and can teach.
func (s *TimetableService) requireTeacher(ctx context.Context, id string) (*models.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrUnknownTeacher, "teacher not found, check the teacher id")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}
	if user.Role != models.RoleTeacher {
		return nil, appErrors.Clone(appErrors.ErrNotATeacher, "selected user is not a teacher")
	}
	return user, nil
}

// lockSlot serializes the conflict-check-then-write window for one
// (teacher, day) pair, closing the race between concurrent mutations.
func (s *TimetableService) lockSlot(teacherID string, day models.Weekday) func() {
	key := teacherID + "|" + string(day)
	s.locks.Lock(key)
	return func() { s.locks.Unlock(key) }
}

func (s *TimetableService) invalidateClassCache(ctx context.Context, classGroup string) {
	if err := s.cache.Invalidate(ctx, "timetable:class:"+classGroup); err != nil {
		s.logger.Warn("failed to invalidate timetable cache", zap.String("class_group", classGroup), zap.Error(err))
	}
}

func (s *TimetableService) notifyBestEffort(ctx context.Context, classGroup, title, message string, kind models.NotificationType) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.NotifyClass(ctx, classGroup, title, message, kind); err != nil {
		s.logger.Warn("class notification failed", zap.String("class_group", classGroup), zap.Error(err))
	}
}

func (s *TimetableService) notifyTeacherBestEffort(ctx context.Context, teacherID, title, message string, kind models.NotificationType) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.NotifyTeacher(ctx, teacherID, title, message, kind); err != nil {
		s.logger.Warn("teacher notification failed", zap.String("teacher_id", teacherID), zap.Error(err))
	}
}

func parseInterval(start, end string) (int, int, error) {
	startMin, err := timeslot.ParseMinutes(start)
	if err != nil {
		return 0, 0, appErrors.Wrap(err, appErrors.ErrMalformedTime.Code, appErrors.ErrMalformedTime.Status, fmt.Sprintf("invalid start time %q", start))
	}
	endMin, err := timeslot.ParseMinutes(end)
	if err != nil {
		return 0, 0, appErrors.Wrap(err, appErrors.ErrMalformedTime.Code, appErrors.ErrMalformedTime.Status, fmt.Sprintf("invalid end time %q", end))
	}
	if startMin >= endMin {
		return 0, 0, appErrors.Clone(appErrors.ErrInvalidInterval, "start time must be before end time")
	}
	return startMin, endMin, nil
}

func conflictError(message string, conflicts []models.TimetableEntry, remediation string) error {
	domainErr := &models.TimetableConflictError{
		Message:     message,
		Conflicts:   conflicts,
		Remediation: remediation,
	}
	return appErrors.Wrap(domainErr, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, message)
}
