package notification

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type NotificationService interface {
	CreateRecord(ctx context.Context, kind, userID, companyID, title, message string, data map[string]interface{}) (string, error)
	GetUserNotifications(ctx context.Context, userID, companyID string, page, limit int64) ([]Notification, int64, error)
	GetUnreadCount(ctx context.Context, userID, companyID string) (int64, error)
	MarkAsRead(ctx context.Context, id, userID string) error
	MarkAllAsRead(ctx context.Context, userID, companyID string) error
}

type NotificationServiceImpl struct {
	repo NotificationRepository
}

func NewNotificationService(repo NotificationRepository) NotificationService {
	return &NotificationServiceImpl{
		repo: repo,
	}
}

// CreateRecord stores a task, note or call reminder and returns its id
func (s *NotificationServiceImpl) CreateRecord(ctx context.Context, kind, userID, companyID, title, message string, data map[string]interface{}) (string, error) {
	notification := &Notification{
		UserID:    userID,
		CompanyID: companyID,
		Title:     title,
		Message:   message,
		Type:      notificationType(kind),
		Data:      data,
	}
	if err := s.repo.Create(ctx, notification); err != nil {
		return "", fmt.Errorf("failed to create %s: %w", kind, err)
	}
	return notification.ID.Hex(), nil
}

func (s *NotificationServiceImpl) GetUserNotifications(ctx context.Context, userID, companyID string, page, limit int64) ([]Notification, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	return s.repo.GetByUser(ctx, userID, companyID, page, limit)
}

func (s *NotificationServiceImpl) GetUnreadCount(ctx context.Context, userID, companyID string) (int64, error) {
	return s.repo.GetUnreadCount(ctx, userID, companyID)
}

func (s *NotificationServiceImpl) MarkAsRead(ctx context.Context, id, userID string) error {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotificationNotFound
	}
	return s.repo.MarkAsRead(ctx, objID, userID)
}

func (s *NotificationServiceImpl) MarkAllAsRead(ctx context.Context, userID, companyID string) error {
	return s.repo.MarkAllAsRead(ctx, userID, companyID)
}

func notificationType(kind string) NotificationType {
	switch NotificationType(kind) {
	case NotificationTypeTask, NotificationTypeNote, NotificationTypeCallReminder:
		return NotificationType(kind)
	default:
		return NotificationTypeInfo
	}
}
