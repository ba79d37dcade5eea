package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tbeaumont/folio/internal/models"
)

func TestContactService_Submit(t *testing.T) {
	repo := &MockMessageRepository{}
	activity := &MockActivityRepository{}

	notified := false
	mailer := &MockMailer{
		SendContactNotificationFunc: func(ctx context.Context, message *models.Message) error {
			notified = true
			return nil
		},
	}
	service := NewContactService(repo, mailer, activity, testLogger())

	message, err := service.Submit(context.Background(), " Ada ", "Ada@Example.com", "Hello", "I liked your site", "203.0.113.5")
	require.NoError(t, err)
	assert.Equal(t, "Ada", message.Name)
	assert.Equal(t, "ada@example.com", message.Email)
	assert.True(t, notified)
	assert.Equal(t, models.ActivityMessageReceived, activity.LastActivityType())
}

func TestContactService_Submit_RejectsBlankFields(t *testing.T) {
	service := NewContactService(&MockMessageRepository{}, &MockMailer{}, &MockActivityRepository{}, testLogger())

	_, err := service.Submit(context.Background(), "", "a@example.com", "Hi", "body", "")
	assert.ErrorIs(t, err, models.ErrBadRequest)

	_, err = service.Submit(context.Background(), "Ada", "a@example.com", "Hi", "   ", "")
	assert.ErrorIs(t, err, models.ErrBadRequest)
}

func TestContactService_Submit_SurvivesMailerFailure(t *testing.T) {
	mailer := &MockMailer{
		SendContactNotificationFunc: func(ctx context.Context, message *models.Message) error {
			return errors.New("ses throttled")
		},
	}
	service := NewContactService(&MockMessageRepository{}, mailer, &MockActivityRepository{}, testLogger())

	message, err := service.Submit(context.Background(), "Ada", "a@example.com", "Hi", "body", "")
	require.NoError(t, err)
	assert.NotNil(t, message)
}

func TestContactService_Submit_StorageFailure(t *testing.T) {
	repo := &MockMessageRepository{
		CreateFunc: func(ctx context.Context, message *models.Message) (*models.Message, error) {
			return nil, errors.New("connection refused")
		},
	}
	service := NewContactService(repo, &MockMailer{}, &MockActivityRepository{}, testLogger())

	_, err := service.Submit(context.Background(), "Ada", "a@example.com", "Hi", "body", "")
	assert.ErrorIs(t, err, models.ErrInternalServer)
}

func TestContactService_List_ClampsLimit(t *testing.T) {
	var gotLimit, gotOffset int
	repo := &MockMessageRepository{
		ListFunc: func(ctx context.Context, unreadOnly bool, limit, offset int) ([]*models.Message, error) {
			gotLimit, gotOffset = limit, offset
			return nil, nil
		},
	}
	service := NewContactService(repo, &MockMailer{}, &MockActivityRepository{}, testLogger())

	_, err := service.List(context.Background(), false, 0, -5)
	require.NoError(t, err)
	assert.Equal(t, 20, gotLimit)
	assert.Equal(t, 0, gotOffset)

	_, err = service.List(context.Background(), false, 500, 10)
	require.NoError(t, err)
	assert.Equal(t, 20, gotLimit)
	assert.Equal(t, 10, gotOffset)
}
