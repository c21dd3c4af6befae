package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/campushub/college-admin-api/internal/models"
	appErrors "github.com/campushub/college-admin-api/pkg/errors"
)

type eventRepository interface {
	List(ctx context.Context, filter models.EventFilter) ([]models.Event, int, error)
	FindByID(ctx context.Context, id string) (*models.Event, error)
	Create(ctx context.Context, event *models.Event) error
	Update(ctx context.Context, event *models.Event) error
	Delete(ctx context.Context, id string) error
	ListParticipants(ctx context.Context, eventID string) ([]models.EventParticipant, error)
	CountParticipants(ctx context.Context, eventID string) (int, error)
	IsRegistered(ctx context.Context, eventID, userID string) (bool, error)
	AddParticipant(ctx context.Context, p *models.EventParticipant) error
	RemoveParticipant(ctx context.Context, eventID, userID string) (int64, error)
}

// EventRequest is the create/update payload for events.
type EventRequest struct {
	SchoolName           string     `json:"school_name" validate:"required"`
	Name                 string     `json:"name" validate:"required"`
	StartDate            time.Time  `json:"start_date" validate:"required"`
	EndDate              time.Time  `json:"end_date" validate:"required"`
	Level                string     `json:"level" validate:"required"`
	Mode                 string     `json:"mode" validate:"required,oneof=Online Offline Hybrid"`
	Category             string     `json:"category" validate:"required"`
	TargetGroup          string     `json:"target_group" validate:"required"`
	Objective            string     `json:"objective"`
	RegistrationDeadline *time.Time `json:"registration_deadline"`
	MaxParticipants      *int       `json:"max_participants" validate:"omitempty,gt=0"`
	Status               string     `json:"status" validate:"omitempty,oneof=Upcoming Ongoing Completed Cancelled"`
}

// EventService manages college events and their registrations.
type EventService struct {
	repo      eventRepository
	users     recipientDirectory
	validator *validator.Validate
	logger    *zap.Logger
}

// NewEventService constructs an EventService.
func NewEventService(repo eventRepository, users recipientDirectory, validate *validator.Validate, logger *zap.Logger) *EventService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventService{repo: repo, users: users, validator: validate, logger: logger}
}

// List returns events matching the filter plus pagination metadata.
func (s *EventService) List(ctx context.Context, filter models.EventFilter) ([]models.Event, *models.Pagination, error) {
	events, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list events")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return events, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get loads one event with its participants.
func (s *EventService) Get(ctx context.Context, id string) (*models.Event, []models.EventParticipant, error) {
	event, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "event not found")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load event")
	}
	participants, err := s.repo.ListParticipants(ctx, id)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load event participants")
	}
	if participants == nil {
		participants = []models.EventParticipant{}
	}
	return event, participants, nil
}

// Create validates and stores a new event.
func (s *EventService) Create(ctx context.Context, req EventRequest, createdBy string) (*models.Event, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid event payload")
	}
	if !req.EndDate.After(req.StartDate) && !req.EndDate.Equal(req.StartDate) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end date must not be before start date")
	}

	status := models.EventStatus(req.Status)
	if status == "" {
		status = models.EventUpcoming
	}

	event := &models.Event{
		SchoolName:           req.SchoolName,
		Name:                 req.Name,
		StartDate:            req.StartDate,
		EndDate:              req.EndDate,
		Level:                req.Level,
		Mode:                 models.EventMode(req.Mode),
		Category:             req.Category,
		TargetGroup:          req.TargetGroup,
		Objective:            req.Objective,
		RegistrationDeadline: req.RegistrationDeadline,
		MaxParticipants:      req.MaxParticipants,
		Status:               status,
		CreatedBy:            createdBy,
	}
	if err := s.repo.Create(ctx, event); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create event")
	}
	return event, nil
}

// Update rewrites an event record.
func (s *EventService) Update(ctx context.Context, id string, req EventRequest) (*models.Event, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid event payload")
	}

	event, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "event not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load event")
	}

	event.SchoolName = req.SchoolName
	event.Name = req.Name
	event.StartDate = req.StartDate
	event.EndDate = req.EndDate
	event.Level = req.Level
	event.Mode = models.EventMode(req.Mode)
	event.Category = req.Category
	event.TargetGroup = req.TargetGroup
	event.Objective = req.Objective
	event.RegistrationDeadline = req.RegistrationDeadline
	event.MaxParticipants = req.MaxParticipants
	if req.Status != "" {
		event.Status = models.EventStatus(req.Status)
	}

	if err := s.repo.Update(ctx, event); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update event")
	}
	return event, nil
}

// Delete removes an event and its registrations.
func (s *EventService) Delete(ctx context.Context, id string) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "event not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load event")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete event")
	}
	return nil
}

// Register signs a user up for an event, enforcing the registration
// deadline, the capacity limit and one registration per user.
func (s *EventService) Register(ctx context.Context, eventID, userID string) (*models.EventParticipant, error) {
	event, err := s.repo.FindByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "event not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load event")
	}

	if event.Status == models.EventCancelled || event.Status == models.EventCompleted {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("event is %s and no longer open for registration", event.Status))
	}
	if event.RegistrationDeadline != nil && time.Now().UTC().After(*event.RegistrationDeadline) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "registration deadline has passed")
	}

	registered, err := s.repo.IsRegistered(ctx, eventID, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check registration")
	}
	if registered {
		return nil, appErrors.Clone(appErrors.ErrConflict, "already registered for this event")
	}

	if event.MaxParticipants != nil {
		count, err := s.repo.CountParticipants(ctx, eventID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count participants")
		}
		if count >= *event.MaxParticipants {
			return nil, appErrors.Clone(appErrors.ErrConflict, "event is full")
		}
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
	}

	participant := &models.EventParticipant{
		EventID:    eventID,
		UserID:     userID,
		Name:       user.FullName,
		Email:      user.Email,
		ClassGroup: user.ClassGroup,
	}
	if err := s.repo.AddParticipant(ctx, participant); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to register participant")
	}
	return participant, nil
}

// Unregister removes a user's registration.
func (s *EventService) Unregister(ctx context.Context, eventID, userID string) error {
	affected, err := s.repo.RemoveParticipant(ctx, eventID, userID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to remove registration")
	}
	if affected == 0 {
		return appErrors.Clone(appErrors.ErrNotFound, "registration not found")
	}
	return nil
}
