package email

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/smtp"
	"strings"

	common_models "go-crm-automation/internal/common/models"
	"go-crm-automation/internal/config"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type sendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// EmailServiceImpl sends plain-text mail over SMTP and records every
// message in the emails collection. The returned id is the record id.
type EmailServiceImpl struct {
	Repo     EmailRepository
	host     string
	port     int
	user     string
	password string
	from     string
	sendMail sendMailFunc
	logger   *zap.Logger
}

func NewEmailService(cfg *config.Config, repo EmailRepository, logger *zap.Logger) *EmailServiceImpl {
	return &EmailServiceImpl{
		Repo:     repo,
		host:     cfg.SMTPHost,
		port:     cfg.SMTPPort,
		user:     cfg.SMTPUser,
		password: cfg.SMTPPassword,
		from:     cfg.SMTPFrom,
		sendMail: smtp.SendMail,
		logger:   logger,
	}
}

func (s *EmailServiceImpl) Send(ctx context.Context, to, subject, body string) (string, error) {
	if to == "" {
		return "", errors.New("recipient is required")
	}
	if strings.ContainsAny(to, "\r\n") {
		return "", fmt.Errorf("invalid recipient %q", to)
	}

	from := s.from
	if from == "" {
		from = s.user
	}
	companyID, _ := ctx.Value(common_models.CompanyIDKey).(string)

	record := &Email{
		ID:        primitive.NewObjectID(),
		CompanyID: companyID,
		From:      from,
		To:        []string{to},
		Subject:   subject,
		TextBody:  body,
		Status:    EmailQueued,
	}
	if err := s.Repo.Create(ctx, record); err != nil {
		return "", fmt.Errorf("failed to record email: %w", err)
	}

	if s.host == "" {
		s.logger.Info("smtp not configured, email recorded only", zap.String("to", to), zap.String("subject", subject))
		_ = s.Repo.UpdateStatus(ctx, record.ID, EmailLogged, "")
		return record.ID.Hex(), nil
	}

	msg := []byte(fmt.Sprintf("From: %s\r\n"+
		"To: %s\r\n"+
		"Subject: %s\r\n"+
		"MIME-Version: 1.0\r\n"+
		"Content-Type: text/plain; charset=\"utf-8\"\r\n"+
		"\r\n"+
		"%s\r\n", from, to, mime.QEncoding.Encode("utf-8", subject), body))

	var auth smtp.Auth
	if s.user != "" {
		auth = smtp.PlainAuth("", s.user, s.password, s.host)
	}
	addr := fmt.Sprintf("%s:%d", s.host, s.port)

	s.logger.Debug("sending email", zap.String("to", to), zap.String("addr", addr))
	err := s.sendMail(addr, auth, from, []string{to}, msg)

	status := EmailSent
	errMsg := ""
	if err != nil {
		status = EmailFailed
		errMsg = err.Error()
	}
	if updateErr := s.Repo.UpdateStatus(ctx, record.ID, status, errMsg); updateErr != nil {
		s.logger.Warn("failed to update email status", zap.String("email_id", record.ID.Hex()), zap.Error(updateErr))
	}

	if err != nil {
		return "", fmt.Errorf("failed to send email: %w", err)
	}
	return record.ID.Hex(), nil
}
