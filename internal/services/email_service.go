package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/tbeaumont/folio/internal/models"
)

// Mailer defines the outbound email operations. Both are best-effort from
// the caller's point of view; nothing in the request path depends on a send
// succeeding.
type Mailer interface {
	SendContactNotification(ctx context.Context, message *models.Message) error
	SendPasswordReset(ctx context.Context, email, resetLink string) error
}

// AWSSESMailer sends email through AWS SES
type AWSSESMailer struct {
	sesClient    *ses.Client
	fromAddress  string
	ownerAddress string
	logger       *slog.Logger
}

// NewAWSSESMailer creates an SES-backed mailer
func NewAWSSESMailer(region, fromAddress, ownerAddress string, logger *slog.Logger) (*AWSSESMailer, error) {
	cfg, err := awsconfig.LoadDefaultConfig(context.Background(), awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &AWSSESMailer{
		sesClient:    ses.NewFromConfig(cfg),
		fromAddress:  fromAddress,
		ownerAddress: ownerAddress,
		logger:       logger,
	}, nil
}

// SendContactNotification notifies the site owner of a new contact message
func (m *AWSSESMailer) SendContactNotification(ctx context.Context, message *models.Message) error {
	subject := fmt.Sprintf("New contact message: %s", message.Subject)
	textBody := fmt.Sprintf(`New message through the site contact form.

From:    %s <%s>
Subject: %s

%s
`, message.Name, message.Email, message.Subject, message.Body)

	return m.send(ctx, m.ownerAddress, subject, textBody)
}

// SendPasswordReset sends a password reset link
func (m *AWSSESMailer) SendPasswordReset(ctx context.Context, email, resetLink string) error {
	subject := "Reset your admin password"
	textBody := fmt.Sprintf(`A password reset was requested for your admin account.

Open this link to choose a new password:

%s

The link expires shortly and stops working as soon as the password changes.
If you did not request a reset, you can ignore this email.
`, resetLink)

	return m.send(ctx, email, subject, textBody)
}

func (m *AWSSESMailer) send(ctx context.Context, to, subject, textBody string) error {
	input := &ses.SendEmailInput{
		Source: aws.String(m.fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{to},
		},
		Message: &types.Message{
			Subject: &types.Content{
				Data:    aws.String(subject),
				Charset: aws.String("UTF-8"),
			},
			Body: &types.Body{
				Text: &types.Content{
					Data:    aws.String(textBody),
					Charset: aws.String("UTF-8"),
				},
			},
		},
	}

	if _, err := m.sesClient.SendEmail(ctx, input); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	m.logger.Info("email sent", slog.String("subject", subject))
	return nil
}

// NoopMailer drops all mail. Used when no from-address is configured
// (local development) and in tests.
type NoopMailer struct {
	logger *slog.Logger
}

func NewNoopMailer(logger *slog.Logger) *NoopMailer {
	return &NoopMailer{logger: logger}
}

func (m *NoopMailer) SendContactNotification(ctx context.Context, message *models.Message) error {
	m.logger.Info("email disabled, dropping contact notification", slog.String("message_id", message.ID))
	return nil
}

func (m *NoopMailer) SendPasswordReset(ctx context.Context, email, resetLink string) error {
	m.logger.Info("email disabled, dropping password reset mail")
	return nil
}
