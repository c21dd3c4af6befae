package service

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/campushub/college-admin-api/internal/models"
	appErrors "github.com/campushub/college-admin-api/pkg/errors"
	"github.com/campushub/college-admin-api/pkg/jobs"
	"github.com/campushub/college-admin-api/pkg/mailer"
)

type notificationRepository interface {
	Create(ctx context.Context, n *models.Notification) error
	BulkCreate(ctx context.Context, notifications []models.Notification) error
	ListByRecipient(ctx context.Context, recipientID string, limit int) ([]models.Notification, int, error)
	MarkRead(ctx context.Context, id, recipientID string) (int64, error)
	MarkAllRead(ctx context.Context, recipientID string) error
	Delete(ctx context.Context, id, recipientID string) (int64, error)
	DeleteRead(ctx context.Context, recipientID string) error
}

type recipientDirectory interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	ListByClassGroupAndRole(ctx context.Context, classGroup string, role models.UserRole) ([]models.User, error)
	ListByRole(ctx context.Context, role models.UserRole) ([]models.User, error)
}

// SendNotificationRequest is the admin-facing direct send payload.
type SendNotificationRequest struct {
	RecipientID string `json:"recipient_id" validate:"required"`
	Title       string `json:"title" validate:"required"`
	Message     string `json:"message" validate:"required"`
	Type        string `json:"type" validate:"required"`
	Attachment  string `json:"attachment"`
}

// NotificationService fans out in-app notifications and, when enabled,
// dispatches email copies on a background queue. Email delivery is
// at-most-once: failures are logged and dropped.
type NotificationService struct {
	repo      notificationRepository
	users     recipientDirectory
	sender    mailer.Sender
	queue     *jobs.Queue
	emailCopy bool
	validator *validator.Validate
	logger    *zap.Logger
}

// NotificationQueueConfig tunes the email dispatch workers.
type NotificationQueueConfig struct {
	Workers    int
	BufferSize int
	EmailCopy  bool
}

// NewNotificationService constructs the service and its email queue.
// Call Start before use and Stop on shutdown.
func NewNotificationService(repo notificationRepository, users recipientDirectory, sender mailer.Sender, cfg NotificationQueueConfig, validate *validator.Validate, logger *zap.Logger) *NotificationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &NotificationService{
		repo:      repo,
		users:     users,
		sender:    sender,
		emailCopy: cfg.EmailCopy,
		validator: validate,
		logger:    logger,
	}
	s.queue = jobs.NewQueue("notification-email", s.handleEmailJob, jobs.QueueConfig{
		Workers:    cfg.Workers,
		BufferSize: cfg.BufferSize,
		Logger:     logger,
	})
	return s
}

// Start launches the email dispatch workers.
func (s *NotificationService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the email dispatch workers.
func (s *NotificationService) Stop() {
	s.queue.Stop()
}

// Send delivers one notification to a specific user.
func (s *NotificationService) Send(ctx context.Context, req SendNotificationRequest) (*models.Notification, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid notification payload")
	}
	if !models.ValidNotificationType(req.Type) {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid notification type %q", req.Type))
	}

	recipient, err := s.users.FindByID(ctx, req.RecipientID)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "recipient not found")
	}

	notification := &models.Notification{
		RecipientID: req.RecipientID,
		Title:       req.Title,
		Message:     req.Message,
		Type:        models.NotificationType(req.Type),
	}
	if req.Attachment != "" {
		notification.Attachment = &req.Attachment
	}
	if err := s.repo.Create(ctx, notification); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store notification")
	}

	s.dispatchEmail(*recipient, req.Title, req.Message)
	return notification, nil
}

// NotifyClass fans one message out to every student of a cohort.
func (s *NotificationService) NotifyClass(ctx context.Context, classGroup, title, message string, kind models.NotificationType) error {
	students, err := s.users.ListByClassGroupAndRole(ctx, classGroup, models.RoleStudent)
	if err != nil {
		return fmt.Errorf("resolve class recipients: %w", err)
	}
	if len(students) == 0 {
		return nil
	}

	notifications := make([]models.Notification, 0, len(students))
	for _, student := range students {
		notifications = append(notifications, models.Notification{
			RecipientID: student.ID,
			Title:       title,
			Message:     message,
			Type:        kind,
		})
	}
	if err := s.repo.BulkCreate(ctx, notifications); err != nil {
		return fmt.Errorf("store class notifications: %w", err)
	}

	for _, student := range students {
		s.dispatchEmail(student, title, message)
	}
	return nil
}

// NotifyTeacher delivers one message to a teacher.
func (s *NotificationService) NotifyTeacher(ctx context.Context, teacherID, title, message string, kind models.NotificationType) error {
	teacher, err := s.users.FindByID(ctx, teacherID)
	if err != nil {
		return fmt.Errorf("resolve teacher recipient: %w", err)
	}
	notification := &models.Notification{
		RecipientID: teacherID,
		Title:       title,
		Message:     message,
		Type:        kind,
	}
	if err := s.repo.Create(ctx, notification); err != nil {
		return fmt.Errorf("store teacher notification: %w", err)
	}
	s.dispatchEmail(*teacher, title, message)
	return nil
}

// NotifyAdmins broadcasts a message to every admin account.
func (s *NotificationService) NotifyAdmins(ctx context.Context, title, message string, kind models.NotificationType) error {
	admins, err := s.users.ListByRole(ctx, models.RoleAdmin)
	if err != nil {
		return fmt.Errorf("resolve admin recipients: %w", err)
	}
	if len(admins) == 0 {
		return nil
	}
	notifications := make([]models.Notification, 0, len(admins))
	for _, admin := range admins {
		notifications = append(notifications, models.Notification{
			RecipientID: admin.ID,
			Title:       title,
			Message:     message,
			Type:        kind,
		})
	}
	if err := s.repo.BulkCreate(ctx, notifications); err != nil {
		return fmt.Errorf("store admin notifications: %w", err)
	}
	for _, admin := range admins {
		s.dispatchEmail(admin, title, message)
	}
	return nil
}

// List returns the newest notifications of a user plus their unread count.
func (s *NotificationService) List(ctx context.Context, recipientID string, limit int) ([]models.Notification, int, error) {
	notifications, unread, err := s.repo.ListByRecipient(ctx, recipientID, limit)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list notifications")
	}
	if notifications == nil {
		notifications = []models.Notification{}
	}
	return notifications, unread, nil
}

// MarkRead flags one notification as read.
func (s *NotificationService) MarkRead(ctx context.Context, id, recipientID string) error {
	affected, err := s.repo.MarkRead(ctx, id, recipientID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark notification read")
	}
	if affected == 0 {
		return appErrors.Clone(appErrors.ErrNotFound, "notification not found")
	}
	return nil
}

// MarkAllRead flags every notification of a user as read.
func (s *NotificationService) MarkAllRead(ctx context.Context, recipientID string) error {
	if err := s.repo.MarkAllRead(ctx, recipientID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark notifications read")
	}
	return nil
}

// Delete removes one notification owned by the user.
func (s *NotificationService) Delete(ctx context.Context, id, recipientID string) error {
	affected, err := s.repo.Delete(ctx, id, recipientID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete notification")
	}
	if affected == 0 {
		return appErrors.Clone(appErrors.ErrNotFound, "notification not found")
	}
	return nil
}

// ClearRead removes every read notification of a user.
func (s *NotificationService) ClearRead(ctx context.Context, recipientID string) error {
	if err := s.repo.DeleteRead(ctx, recipientID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to clear read notifications")
	}
	return nil
}

func (s *NotificationService) dispatchEmail(recipient models.User, subject, body string) {
	if !s.emailCopy || s.sender == nil || recipient.Email == "" {
		return
	}
	job := jobs.Job{
		ID:   uuid.NewString(),
		Type: "email",
		Payload: mailer.Message{
			ToName:    recipient.FullName,
			ToAddress: recipient.Email,
			Subject:   subject,
			TextBody:  body,
		},
	}
	if err := s.queue.Enqueue(job); err != nil {
		s.logger.Warn("email dispatch skipped", zap.String("recipient", recipient.ID), zap.Error(err))
	}
}

func (s *NotificationService) handleEmailJob(_ context.Context, job jobs.Job) error {
	msg, ok := job.Payload.(mailer.Message)
	if !ok {
		return fmt.Errorf("unexpected email payload type %T", job.Payload)
	}
	return s.sender.Send(msg)
}
