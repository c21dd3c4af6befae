package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/campushub/college-admin-api/internal/models"
	appErrors "github.com/campushub/college-admin-api/pkg/errors"
)

type conflictCall struct {
	teacherID string
	day       models.Weekday
	startMin  int
	endMin    int
	excludeID string
}

type mockTimetableRepo struct {
	items         map[string]*models.TimetableEntry
	conflicts     []models.TimetableEntry
	conflictErr   error
	conflictCalls []conflictCall
	created       []models.TimetableEntry
	updated       []models.TimetableEntry
	deleted       []string
	byClassGroup  []models.TimetableEntry
	byTeacher     []models.TimetableEntry
}

func (m *mockTimetableRepo) List(ctx context.Context, filter models.TimetableFilter) ([]models.TimetableEntry, int, error) {
	var entries []models.TimetableEntry
	for _, e := range m.items {
		entries = append(entries, *e)
	}
	return entries, len(entries), nil
}

func (m *mockTimetableRepo) FindByID(ctx context.Context, id string) (*models.TimetableEntry, error) {
	if entry, ok := m.items[id]; ok {
		cp := *entry
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockTimetableRepo) FindConflicts(ctx context.Context, teacherID string, day models.Weekday, startMin, endMin int, excludeID string) ([]models.TimetableEntry, error) {
	m.conflictCalls = append(m.conflictCalls, conflictCall{teacherID, day, startMin, endMin, excludeID})
	if m.conflictErr != nil {
		return nil, m.conflictErr
	}
	return m.conflicts, nil
}

func (m *mockTimetableRepo) ListByClassGroup(ctx context.Context, classGroup string) ([]models.TimetableEntry, error) {
	return m.byClassGroup, nil
}

func (m *mockTimetableRepo) ListByTeacher(ctx context.Context, teacherID string) ([]models.TimetableEntry, error) {
	return m.byTeacher, nil
}

func (m *mockTimetableRepo) Create(ctx context.Context, entry *models.TimetableEntry) error {
	if m.items == nil {
		m.items = make(map[string]*models.TimetableEntry)
	}
	if entry.ID == "" {
		entry.ID = "generated"
	}
	cp := *entry
	m.items[entry.ID] = &cp
	m.created = append(m.created, cp)
	return nil
}

func (m *mockTimetableRepo) Update(ctx context.Context, entry *models.TimetableEntry) error {
	if m.items == nil {
		m.items = make(map[string]*models.TimetableEntry)
	}
	cp := *entry
	m.items[entry.ID] = &cp
	m.updated = append(m.updated, cp)
	return nil
}

func (m *mockTimetableRepo) Delete(ctx context.Context, id string) error {
	delete(m.items, id)
	m.deleted = append(m.deleted, id)
	return nil
}

type mockUserDirectory struct {
	users map[string]*models.User
}

func (m *mockUserDirectory) FindByID(ctx context.Context, id string) (*models.User, error) {
	if user, ok := m.users[id]; ok {
		cp := *user
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

type notifyRecord struct {
	target string
	title  string
	kind   models.NotificationType
}

type mockNotifier struct {
	classNotices   []notifyRecord
	teacherNotices []notifyRecord
	err            error
}

func (m *mockNotifier) NotifyClass(ctx context.Context, classGroup, title, message string, kind models.NotificationType) error {
	m.classNotices = append(m.classNotices, notifyRecord{classGroup, title, kind})
	return m.err
}

func (m *mockNotifier) NotifyTeacher(ctx context.Context, teacherID, title, message string, kind models.NotificationType) error {
	m.teacherNotices = append(m.teacherNotices, notifyRecord{teacherID, title, kind})
	return m.err
}

func newTimetableService(repo *mockTimetableRepo, users *mockUserDirectory, notifier *mockNotifier) *TimetableService {
	cacheSvc := NewCacheService(nil, nil, 0, zap.NewNop(), false)
	return NewTimetableService(repo, users, notifier, cacheSvc, nil, validator.New(), zap.NewNop(), "Fall 2025")
}

func teacherUser(id string) *models.User {
	return &models.User{ID: id, Email: id + "@college.edu", FullName: "Dr. " + id, Role: models.RoleTeacher}
}

func validCreateRequest() CreateTimetableRequest {
	return CreateTimetableRequest{
		ClassGroup: "CS-3A",
		CourseCode: "CS301",
		Subject:    "Operating Systems",
		Group:      "A",
		TeacherID:  "t1",
		Day:        "Monday",
		StartTime:  "10:00",
		EndTime:    "11:30",
		Location:   "Lab 2",
	}
}

func TestTimetableServiceCreate(t *testing.T) {
	repo := &mockTimetableRepo{}
	users := &mockUserDirectory{users: map[string]*models.User{"t1": teacherUser("t1")}}
	notifier := &mockNotifier{}
	svc := newTimetableService(repo, users, notifier)

	entry, err := svc.Create(context.Background(), validCreateRequest())
	require.NoError(t, err)
	assert.Equal(t, 600, entry.StartMin)
	assert.Equal(t, 690, entry.EndMin)
	assert.Equal(t, "Fall 2025", entry.Semester)
	require.NotNil(t, entry.TeacherID)
	assert.Equal(t, "t1", *entry.TeacherID)

	require.Len(t, repo.conflictCalls, 1)
	assert.Empty(t, repo.conflictCalls[0].excludeID)
	assert.Len(t, repo.created, 1)

	require.Len(t, notifier.classNotices, 1)
	assert.Equal(t, "CS-3A", notifier.classNotices[0].target)
	assert.Equal(t, models.NotificationClassScheduled, notifier.classNotices[0].kind)
	require.Len(t, notifier.teacherNotices, 1)
	assert.Equal(t, models.NotificationClassAssigned, notifier.teacherNotices[0].kind)
}

func TestTimetableServiceCreateTwelveHourClock(t *testing.T) {
	repo := &mockTimetableRepo{}
	users := &mockUserDirectory{users: map[string]*models.User{"t1": teacherUser("t1")}}
	svc := newTimetableService(repo, users, &mockNotifier{})

	req := validCreateRequest()
	req.StartTime = "2:30 PM"
	req.EndTime = "4:00 PM"

	entry, err := svc.Create(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 870, entry.StartMin)
	assert.Equal(t, 960, entry.EndMin)
}

func TestTimetableServiceCreateConflict(t *testing.T) {
	busy := models.TimetableEntry{ID: "x1", Subject: "Databases", Day: models.Monday, StartMin: 630, EndMin: 720}
	repo := &mockTimetableRepo{conflicts: []models.TimetableEntry{busy}}
	users := &mockUserDirectory{users: map[string]*models.User{"t1": teacherUser("t1")}}
	notifier := &mockNotifier{}
	svc := newTimetableService(repo, users, notifier)

	_, err := svc.Create(context.Background(), validCreateRequest())
	require.Error(t, err)

	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)

	var conflictErr *models.TimetableConflictError
	require.True(t, errors.As(err, &conflictErr))
	require.Len(t, conflictErr.Conflicts, 1)
	assert.Equal(t, "x1", conflictErr.Conflicts[0].ID)

	assert.Empty(t, repo.created)
	assert.Empty(t, notifier.classNotices)
}

func TestTimetableServiceCreateMalformedTime(t *testing.T) {
	svc := newTimetableService(&mockTimetableRepo{}, &mockUserDirectory{users: map[string]*models.User{"t1": teacherUser("t1")}}, &mockNotifier{})

	req := validCreateRequest()
	req.StartTime = "25:00"
	_, err := svc.Create(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrMalformedTime.Code, appErrors.FromError(err).Code)
}

func TestTimetableServiceCreateInvalidInterval(t *testing.T) {
	svc := newTimetableService(&mockTimetableRepo{}, &mockUserDirectory{users: map[string]*models.User{"t1": teacherUser("t1")}}, &mockNotifier{})

	req := validCreateRequest()
	req.StartTime = "11:00"
	req.EndTime = "11:00"
	_, err := svc.Create(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidInterval.Code, appErrors.FromError(err).Code)
}

func TestTimetableServiceCreateUnknownTeacher(t *testing.T) {
	svc := newTimetableService(&mockTimetableRepo{}, &mockUserDirectory{}, &mockNotifier{})

	_, err := svc.Create(context.Background(), validCreateRequest())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnknownTeacher.Code, appErrors.FromError(err).Code)
}

func TestTimetableServiceCreateNotATeacher(t *testing.T) {
	student := &models.User{ID: "t1", Role: models.RoleStudent, FullName: "Student One"}
	svc := newTimetableService(&mockTimetableRepo{}, &mockUserDirectory{users: map[string]*models.User{"t1": student}}, &mockNotifier{})

	_, err := svc.Create(context.Background(), validCreateRequest())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotATeacher.Code, appErrors.FromError(err).Code)
}

func TestTimetableServiceCreateUnassignedSkipsConflictCheck(t *testing.T) {
	repo := &mockTimetableRepo{}
	svc := newTimetableService(repo, &mockUserDirectory{}, &mockNotifier{})

	req := validCreateRequest()
	req.TeacherID = ""
	entry, err := svc.Create(context.Background(), req)
	require.NoError(t, err)
	assert.Nil(t, entry.TeacherID)
	assert.Empty(t, repo.conflictCalls)
}

func TestTimetableServiceCreateConflictQueryFailure(t *testing.T) {
	repo := &mockTimetableRepo{conflictErr: errors.New("connection refused")}
	users := &mockUserDirectory{users: map[string]*models.User{"t1": teacherUser("t1")}}
	svc := newTimetableService(repo, users, &mockNotifier{})

	_, err := svc.Create(context.Background(), validCreateRequest())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrStoreUnavailable.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.created)
}

func TestTimetableServiceReassignBlockedWithoutMerge(t *testing.T) {
	oldTeacher := "t1"
	existing := &models.TimetableEntry{
		ID: "e1", ClassGroup: "CS-3A", Subject: "Operating Systems", TeacherID: &oldTeacher,
		Day: models.Monday, StartTime: "10:00", EndTime: "11:30", StartMin: 600, EndMin: 690,
	}
	busy := models.TimetableEntry{ID: "x1", Day: models.Monday, StartMin: 630, EndMin: 720}
	repo := &mockTimetableRepo{
		items:     map[string]*models.TimetableEntry{"e1": existing},
		conflicts: []models.TimetableEntry{busy},
	}
	users := &mockUserDirectory{users: map[string]*models.User{"t2": teacherUser("t2")}}
	svc := newTimetableService(repo, users, &mockNotifier{})

	_, err := svc.Reassign(context.Background(), ReassignRequest{
		TimetableID: "e1", NewTeacherID: "t2", MergeMode: MergeModeReplace,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)

	var conflictErr *models.TimetableConflictError
	require.True(t, errors.As(err, &conflictErr))
	assert.Equal(t, MergeModeMerge, conflictErr.Remediation)
	assert.Empty(t, repo.updated)
}

func TestTimetableServiceReassignMergeAllowsDoubleBooking(t *testing.T) {
	oldTeacher := "t1"
	existing := &models.TimetableEntry{
		ID: "e1", ClassGroup: "CS-3A", Subject: "Operating Systems", TeacherID: &oldTeacher,
		Day: models.Monday, StartTime: "10:00", EndTime: "11:30", StartMin: 600, EndMin: 690,
	}
	busy := models.TimetableEntry{ID: "x1", Day: models.Monday, StartMin: 630, EndMin: 720}
	repo := &mockTimetableRepo{
		items:     map[string]*models.TimetableEntry{"e1": existing},
		conflicts: []models.TimetableEntry{busy},
	}
	users := &mockUserDirectory{users: map[string]*models.User{"t2": teacherUser("t2")}}
	notifier := &mockNotifier{}
	svc := newTimetableService(repo, users, notifier)

	entry, err := svc.Reassign(context.Background(), ReassignRequest{
		TimetableID: "e1", NewTeacherID: "t2", MergeMode: MergeModeMerge,
	})
	require.NoError(t, err)
	require.NotNil(t, entry.TeacherID)
	assert.Equal(t, "t2", *entry.TeacherID)

	// Reassignment checks the new teacher's schedule without excluding
	// the moving entry; it is still filed under the old teacher.
	require.Len(t, repo.conflictCalls, 1)
	assert.Equal(t, "t2", repo.conflictCalls[0].teacherID)
	assert.Empty(t, repo.conflictCalls[0].excludeID)

	require.Len(t, notifier.classNotices, 1)
	assert.Equal(t, models.NotificationTeacherChanged, notifier.classNotices[0].kind)
	require.Len(t, notifier.teacherNotices, 1)
	assert.Equal(t, "t2", notifier.teacherNotices[0].target)
}

func TestTimetableServiceReassignMissingEntry(t *testing.T) {
	users := &mockUserDirectory{users: map[string]*models.User{"t2": teacherUser("t2")}}
	svc := newTimetableService(&mockTimetableRepo{}, users, &mockNotifier{})

	_, err := svc.Reassign(context.Background(), ReassignRequest{
		TimetableID: "missing", NewTeacherID: "t2", MergeMode: MergeModeReplace,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestTimetableServiceReassignInvalidMergeMode(t *testing.T) {
	svc := newTimetableService(&mockTimetableRepo{}, &mockUserDirectory{}, &mockNotifier{})

	_, err := svc.Reassign(context.Background(), ReassignRequest{
		TimetableID: "e1", NewTeacherID: "t2", MergeMode: "force",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestTimetableServiceCheckOverlap(t *testing.T) {
	busy := models.TimetableEntry{ID: "x1", Day: models.Friday, StartMin: 540, EndMin: 660}
	repo := &mockTimetableRepo{conflicts: []models.TimetableEntry{busy}}
	svc := newTimetableService(repo, &mockUserDirectory{}, &mockNotifier{})

	result, err := svc.CheckOverlap(context.Background(), CheckOverlapRequest{
		Day: "Friday", StartTime: "10:00", EndTime: "11:00", TeacherID: "t1",
	})
	require.NoError(t, err)
	assert.True(t, result.HasOverlap)
	require.Len(t, result.Conflicts, 1)
	assert.Equal(t, "x1", result.Conflicts[0].ID)
}

func TestTimetableServiceCheckOverlapClean(t *testing.T) {
	svc := newTimetableService(&mockTimetableRepo{}, &mockUserDirectory{}, &mockNotifier{})

	result, err := svc.CheckOverlap(context.Background(), CheckOverlapRequest{
		Day: "Friday", StartTime: "10:00", EndTime: "11:00", TeacherID: "t1",
	})
	require.NoError(t, err)
	assert.False(t, result.HasOverlap)
	assert.NotNil(t, result.Conflicts)
	assert.Empty(t, result.Conflicts)
}

func TestTimetableServiceUpdateExcludesOwnID(t *testing.T) {
	teacherID := "t1"
	existing := &models.TimetableEntry{
		ID: "e1", ClassGroup: "CS-3A", Subject: "Operating Systems", TeacherID: &teacherID,
		Day: models.Monday, StartMin: 600, EndMin: 690,
	}
	repo := &mockTimetableRepo{items: map[string]*models.TimetableEntry{"e1": existing}}
	users := &mockUserDirectory{users: map[string]*models.User{"t1": teacherUser("t1")}}
	svc := newTimetableService(repo, users, &mockNotifier{})

	_, err := svc.Update(context.Background(), "e1", UpdateTimetableRequest(validCreateRequest()))
	require.NoError(t, err)
	require.Len(t, repo.conflictCalls, 1)
	assert.Equal(t, "e1", repo.conflictCalls[0].excludeID)
	assert.Len(t, repo.updated, 1)
}

func TestTimetableServiceDeleteNotifiesClass(t *testing.T) {
	existing := &models.TimetableEntry{
		ID: "e1", ClassGroup: "CS-3A", Subject: "Operating Systems", CourseCode: "CS301", Group: "A",
		Day: models.Monday, StartTime: "10:00", EndTime: "11:30", StartMin: 600, EndMin: 690,
	}
	repo := &mockTimetableRepo{items: map[string]*models.TimetableEntry{"e1": existing}}
	notifier := &mockNotifier{}
	svc := newTimetableService(repo, &mockUserDirectory{}, notifier)

	require.NoError(t, svc.Delete(context.Background(), "e1"))
	assert.Equal(t, []string{"e1"}, repo.deleted)
	require.Len(t, notifier.classNotices, 1)
	assert.Equal(t, models.NotificationClassCancelled, notifier.classNotices[0].kind)
}

func TestTimetableServiceDeleteMissing(t *testing.T) {
	svc := newTimetableService(&mockTimetableRepo{}, &mockUserDirectory{}, &mockNotifier{})

	err := svc.Delete(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestTimetableServiceNotificationFailureDoesNotFailMutation(t *testing.T) {
	repo := &mockTimetableRepo{}
	users := &mockUserDirectory{users: map[string]*models.User{"t1": teacherUser("t1")}}
	notifier := &mockNotifier{err: errors.New("smtp down")}
	svc := newTimetableService(repo, users, notifier)

	_, err := svc.Create(context.Background(), validCreateRequest())
	require.NoError(t, err)
	assert.Len(t, repo.created, 1)
}

func TestTimetableServiceExportCSV(t *testing.T) {
	repo := &mockTimetableRepo{byClassGroup: []models.TimetableEntry{
		{Day: models.Monday, StartMin: 600, EndMin: 690, Subject: "Operating Systems", CourseCode: "CS301", Group: "A", Location: "Lab 2", Semester: "Fall 2025"},
	}}
	svc := newTimetableService(repo, &mockUserDirectory{}, &mockNotifier{})

	payload, contentType, err := svc.Export(context.Background(), "CS-3A", "csv")
	require.NoError(t, err)
	assert.Equal(t, "text/csv", contentType)
	assert.Contains(t, string(payload), "Operating Systems")
	assert.Contains(t, string(payload), "10:00")
}

func TestTimetableServiceExportPDF(t *testing.T) {
	repo := &mockTimetableRepo{}
	svc := newTimetableService(repo, &mockUserDirectory{}, &mockNotifier{})

	payload, contentType, err := svc.Export(context.Background(), "CS-3A", "pdf")
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", contentType)
	assert.NotEmpty(t, payload)
}

func TestTimetableServiceExportUnknownFormat(t *testing.T) {
	svc := newTimetableService(&mockTimetableRepo{}, &mockUserDirectory{}, &mockNotifier{})

	_, _, err := svc.Export(context.Background(), "CS-3A", "xlsx")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
