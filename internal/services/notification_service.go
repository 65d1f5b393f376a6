// internal/services/notification_service.go
package services

import (
	"fmt"
	"net/smtp"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fusionhq/fusion-backend/internal/config"
	"github.com/fusionhq/fusion-backend/internal/models"
)

type NotificationService struct {
	db     *gorm.DB
	config *config.Config
}

func NewNotificationService(db *gorm.DB, config *config.Config) *NotificationService {
	return &NotificationService{
		db:     db,
		config: config,
	}
}

// Notify inserts an in-app notification using the given db handle. Passing a
// transaction handle lets callers make the notification atomic with the
// mutation that caused it.
func (s *NotificationService) Notify(db *gorm.DB, userID uuid.UUID, nType models.NotificationType, title, message string, assetID *uuid.UUID) error {
	notification := &models.Notification{
		UserID:         userID,
		Type:           nType,
		Title:          title,
		Message:        message,
		RelatedAssetID: assetID,
	}

	if err := db.Create(notification).Error; err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}

	return nil
}

// NotifyContentFlagged records the flag notice for the asset's owner.
func (s *NotificationService) NotifyContentFlagged(db *gorm.DB, asset *models.Asset, reason string) error {
	title := "Content flagged: " + asset.Title
	message := fmt.Sprintf("Your asset %q was flagged during an automated duplicate-content scan: %s", asset.Title, reason)
	return s.Notify(db, asset.CreatorID, models.NotificationTypeContentFlagged, title, message, &asset.ID)
}

func (s *NotificationService) GetUserNotifications(userID uuid.UUID, unreadOnly bool, limit int) ([]models.Notification, error) {
	query := s.db.Where("user_id = ?", userID)
	if unreadOnly {
		query = query.Where("is_read = ?", false)
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	var notifications []models.Notification
	if err := query.Order("created_at DESC").Limit(limit).Find(&notifications).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch notifications: %w", err)
	}

	return notifications, nil
}

func (s *NotificationService) MarkRead(userID, notificationID uuid.UUID) error {
	result := s.db.Model(&models.Notification{}).
		Where("id = ? AND user_id = ?", notificationID, userID).
		Updates(map[string]interface{}{
			"is_read": true,
			"read_at": gorm.Expr("NOW()"),
		})

	if result.Error != nil {
		return fmt.Errorf("failed to mark notification read: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}

// SendEmail delivers a plain email when SMTP is configured; otherwise it is
// a no-op so development environments do not need a mail server.
func (s *NotificationService) SendEmail(to, subject, body string) error {
	if s.config.Email.SMTPHost == "" {
		return nil
	}

	auth := smtp.PlainAuth("", s.config.Email.SMTPUsername, s.config.Email.SMTPPassword, s.config.Email.SMTPHost)
	msg := []byte(fmt.Sprintf("To: %s\r\nSubject: %s\r\nContent-Type: text/html; charset=\"UTF-8\"\r\n\r\n%s", to, subject, body))
	addr := fmt.Sprintf("%s:%s", s.config.Email.SMTPHost, s.config.Email.SMTPPort)

	return smtp.SendMail(addr, auth, s.config.Email.FromEmail, []string{to}, msg)
}
