package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/campushub/college-admin-api/internal/handler"
	"github.com/campushub/college-admin-api/internal/middleware"
	"github.com/campushub/college-admin-api/internal/models"
	"github.com/campushub/college-admin-api/internal/service"
)

const routesSecret = "routes-secret"

type routesTimetableRepo struct {
	conflicts       []models.TimetableEntry
	lastConflictFor string
}

func (r *routesTimetableRepo) List(ctx context.Context, filter models.TimetableFilter) ([]models.TimetableEntry, int, error) {
	return nil, 0, nil
}

func (r *routesTimetableRepo) FindByID(ctx context.Context, id string) (*models.TimetableEntry, error) {
	return nil, sql.ErrNoRows
}

func (r *routesTimetableRepo) FindConflicts(ctx context.Context, teacherID string, day models.Weekday, startMin, endMin int, excludeID string) ([]models.TimetableEntry, error) {
	r.lastConflictFor = teacherID
	return r.conflicts, nil
}

func (r *routesTimetableRepo) ListByClassGroup(ctx context.Context, classGroup string) ([]models.TimetableEntry, error) {
	return nil, nil
}

func (r *routesTimetableRepo) ListByTeacher(ctx context.Context, teacherID string) ([]models.TimetableEntry, error) {
	return nil, nil
}

func (r *routesTimetableRepo) Create(ctx context.Context, entry *models.TimetableEntry) error {
	return nil
}

func (r *routesTimetableRepo) Update(ctx context.Context, entry *models.TimetableEntry) error {
	return nil
}

func (r *routesTimetableRepo) Delete(ctx context.Context, id string) error { return nil }

type routesUserDirectory struct{}

func (d *routesUserDirectory) FindByID(ctx context.Context, id string) (*models.User, error) {
	return nil, sql.ErrNoRows
}

func (d *routesUserDirectory) ListByClassGroupAndRole(ctx context.Context, classGroup string, role models.UserRole) ([]models.User, error) {
	return nil, nil
}

func (d *routesUserDirectory) ListByRole(ctx context.Context, role models.UserRole) ([]models.User, error) {
	return nil, nil
}

type routesNotificationRepo struct{}

func (r *routesNotificationRepo) Create(ctx context.Context, n *models.Notification) error {
	return nil
}

func (r *routesNotificationRepo) BulkCreate(ctx context.Context, notifications []models.Notification) error {
	return nil
}

func (r *routesNotificationRepo) ListByRecipient(ctx context.Context, recipientID string, limit int) ([]models.Notification, int, error) {
	return nil, 0, nil
}

func (r *routesNotificationRepo) MarkRead(ctx context.Context, id, recipientID string) (int64, error) {
	return 1, nil
}

func (r *routesNotificationRepo) MarkAllRead(ctx context.Context, recipientID string) error {
	return nil
}

func (r *routesNotificationRepo) Delete(ctx context.Context, id, recipientID string) (int64, error) {
	return 1, nil
}

func (r *routesNotificationRepo) DeleteRead(ctx context.Context, recipientID string) error {
	return nil
}

func routesToken(t *testing.T, userID string, role models.UserRole) string {
	t.Helper()
	claims := &models.JWTClaims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(routesSecret))
	require.NoError(t, err)
	return raw
}

func newTestRouter(t *testing.T, ttRepo *routesTimetableRepo) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	users := &routesUserDirectory{}
	cacheSvc := service.NewCacheService(nil, nil, 0, zap.NewNop(), false)
	timetableSvc := service.NewTimetableService(ttRepo, users, nil, cacheSvc, nil, nil, zap.NewNop(), "Fall 2025")
	notificationSvc := service.NewNotificationService(&routesNotificationRepo{}, users, nil, service.NotificationQueueConfig{}, nil, zap.NewNop())
	metricsSvc := service.NewMetricsService()

	r := gin.New()
	registerRoutes(r, "/api/v1", middleware.NewTokenVerifier(routesSecret, "", ""), apiHandlers{
		timetable:     handler.NewTimetableHandler(timetableSvc),
		notifications: handler.NewNotificationHandler(notificationSvc),
		events:        handler.NewEventHandler(nil),
		metrics:       handler.NewMetricsHandler(metricsSvc, nil),
	}, false)
	return r
}

func doJSON(r *gin.Engine, method, path, token, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestReassignRouteAllowsTeachers(t *testing.T) {
	r := newTestRouter(t, &routesTimetableRepo{})
	body := `{"timetable_id":"e1","new_teacher_id":"t2","merge_mode":"replace"}`

	// The stub holds no entries, so an authorized caller reaches the
	// service and gets a 404 rather than a 403 from the guard.
	w := doJSON(r, http.MethodPost, "/api/v1/timetable/reassign", routesToken(t, "t1", models.RoleTeacher), body)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(r, http.MethodPost, "/api/v1/timetable/reassign", routesToken(t, "a1", models.RoleAdmin), body)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(r, http.MethodPost, "/api/v1/timetable/reassign", routesToken(t, "s1", models.RoleStudent), body)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestCheckOverlapRouteOpenToAnyRole(t *testing.T) {
	repo := &routesTimetableRepo{conflicts: []models.TimetableEntry{
		{ID: "x1", Day: models.Monday, StartMin: 600, EndMin: 690},
	}}
	r := newTestRouter(t, repo)

	// No teacher_id in the payload: the probe runs against the
	// caller's own schedule.
	w := doJSON(r, http.MethodPost, "/api/v1/timetable/check-overlap",
		routesToken(t, "s1", models.RoleStudent),
		`{"day":"Monday","start_time":"10:00","end_time":"11:00"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "s1", repo.lastConflictFor)

	var envelope struct {
		Data service.CheckOverlapResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.True(t, envelope.Data.HasOverlap)
}

func TestTimetableMutationsStayAdminOnly(t *testing.T) {
	r := newTestRouter(t, &routesTimetableRepo{})

	w := doJSON(r, http.MethodPost, "/api/v1/timetable", routesToken(t, "t1", models.RoleTeacher),
		`{"class_group":"CS-3A","course_code":"CS301","subject":"OS","day":"Monday","start_time":"10:00","end_time":"11:00","location":"Lab 2"}`)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestNotificationReadRoutesUsePut(t *testing.T) {
	r := newTestRouter(t, &routesTimetableRepo{})
	token := routesToken(t, "s1", models.RoleStudent)

	w := doJSON(r, http.MethodPut, "/api/v1/notifications/read-all", token, "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = doJSON(r, http.MethodPut, "/api/v1/notifications/n1/read", token, "")
	assert.Equal(t, http.StatusNoContent, w.Code)
}
