package services

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"

	"github.com/anjiri1684/training_academy/models"
	"github.com/anjiri1684/training_academy/notifications"
	"github.com/anjiri1684/training_academy/utils"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type ContactInput struct {
	Name    string `json:"name" validate:"required,max=120"`
	Email   string `json:"email" validate:"required,email"`
	Subject string `json:"subject" validate:"max=150"`
	Body    string `json:"body" validate:"required,max=4000"`
}

type ContactService struct {
	db       *gorm.DB
	clock    utils.Clock
	mailer   notifications.Mailer
	settings SettingsProvider
	log      logrus.FieldLogger
}

func NewContactService(db *gorm.DB, clock utils.Clock, mailer notifications.Mailer, settings SettingsProvider, log logrus.FieldLogger) *ContactService {
	return &ContactService{db: db, clock: clock, mailer: mailer, settings: settings, log: log}
}

func (s *ContactService) Submit(ctx context.Context, in ContactInput) (*models.ContactMessage, error) {
	msg := models.ContactMessage{
		Name:      strings.TrimSpace(in.Name),
		Email:     strings.TrimSpace(in.Email),
		Subject:   strings.TrimSpace(in.Subject),
		Body:      in.Body,
		CreatedAt: s.clock.Now(),
	}
	if err := s.db.WithContext(ctx).Create(&msg).Error; err != nil {
		return nil, fmt.Errorf("save contact message: %w", err)
	}

	if to := s.settings.Current().ContactEmail; to != "" {
		go notifications.Deliver(context.Background(), s.mailer, notifications.Message{
			ToEmail: to,
			Subject: "New contact message: " + msg.Subject,
			HTML:    fmt.Sprintf("<p><b>%s</b> (%s) wrote:</p><p>%s</p>", html.EscapeString(msg.Name), html.EscapeString(msg.Email), html.EscapeString(msg.Body)),
		}, s.log.WithField("contact_id", msg.ID))
	}
	return &msg, nil
}

func (s *ContactService) List(ctx context.Context, onlyOpen bool) ([]models.ContactMessage, error) {
	q := s.db.WithContext(ctx).Order("created_at desc")
	if onlyOpen {
		q = q.Where("handled = ?", false)
	}
	var out []models.ContactMessage
	if err := q.Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list contact messages: %w", err)
	}
	return out, nil
}

func (s *ContactService) MarkHandled(ctx context.Context, id, adminID uuid.UUID) (*models.ContactMessage, error) {
	var msg models.ContactMessage
	err := s.db.WithContext(ctx).First(&msg, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrMessageNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load contact message: %w", err)
	}
	if msg.Handled {
		return &msg, nil
	}

	now := s.clock.Now()
	msg.Handled = true
	msg.HandledAt = &now
	msg.HandledByID = &adminID
	err = s.db.WithContext(ctx).Model(&models.ContactMessage{}).Where("id = ?", msg.ID).
		Updates(map[string]any{"handled": true, "handled_at": now, "handled_by_id": adminID}).Error
	if err != nil {
		return nil, fmt.Errorf("mark contact message handled: %w", err)
	}
	return &msg, nil
}
