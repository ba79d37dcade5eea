package services

import (
	"context"
	"log/slog"
	"strings"

	"github.com/tbeaumont/folio/internal/models"
)

// MessageRepository defines the data access the contact service needs
type MessageRepository interface {
	Create(ctx context.Context, message *models.Message) (*models.Message, error)
	GetByID(ctx context.Context, id string) (*models.Message, error)
	List(ctx context.Context, unreadOnly bool, limit, offset int) ([]*models.Message, error)
	MarkRead(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}

// ContactService handles public contact-form submissions and the admin inbox
type ContactService struct {
	repo     MessageRepository
	mailer   Mailer
	activity ActivityRecorder
	logger   *slog.Logger
}

func NewContactService(repo MessageRepository, mailer Mailer, activity ActivityRecorder, logger *slog.Logger) *ContactService {
	return &ContactService{repo: repo, mailer: mailer, activity: activity, logger: logger}
}

// Submit stores a contact-form message and notifies the site owner. The
// notification is best effort: a mail failure never fails the submission.
func (s *ContactService) Submit(ctx context.Context, name, email, subject, body, ipAddress string) (*models.Message, error) {
	name = strings.TrimSpace(name)
	subject = strings.TrimSpace(subject)
	if name == "" || subject == "" || strings.TrimSpace(body) == "" {
		return nil, models.ErrBadRequest
	}

	message := &models.Message{
		Name:      name,
		Email:     strings.ToLower(strings.TrimSpace(email)),
		Subject:   subject,
		Body:      body,
		IPAddress: ipAddress,
	}

	created, err := s.repo.Create(ctx, message)
	if err != nil {
		s.logger.Error("failed to store contact message", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if err := s.mailer.SendContactNotification(ctx, created); err != nil {
		s.logger.Warn("failed to send contact notification", slog.String("message_id", created.ID), slog.Any("error", err))
	}

	activity := &models.Activity{
		ActivityType: models.ActivityMessageReceived,
		Description:  "Contact message from " + created.Name,
		IPAddress:    &created.IPAddress,
		Metadata:     models.ActivityMetadata{"message_id": created.ID},
	}
	if err := s.activity.Record(ctx, activity); err != nil {
		s.logger.Warn("failed to record activity", slog.Any("error", err))
	}

	return created, nil
}

func (s *ContactService) Get(ctx context.Context, id string) (*models.Message, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *ContactService) List(ctx context.Context, unreadOnly bool, limit, offset int) ([]*models.Message, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.List(ctx, unreadOnly, limit, offset)
}

func (s *ContactService) MarkRead(ctx context.Context, id string) error {
	return s.repo.MarkRead(ctx, id)
}

func (s *ContactService) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}
