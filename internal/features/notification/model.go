package notification

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type NotificationType string

const (
	NotificationTypeInfo         NotificationType = "info"
	NotificationTypeTask         NotificationType = "task"
	NotificationTypeNote         NotificationType = "note"
	NotificationTypeCallReminder NotificationType = "call_reminder"
)

// Notification is a record left for a user to pick up: automation tasks,
// notes and call reminders all land here.
type Notification struct {
	ID        primitive.ObjectID     `bson:"_id,omitempty" json:"id"`
	UserID    string                 `bson:"user_id" json:"user_id"`
	CompanyID string                 `bson:"company_id" json:"company_id"`
	Title     string                 `bson:"title" json:"title"`
	Message   string                 `bson:"message" json:"message"`
	Type      NotificationType       `bson:"type" json:"type"`
	Data      map[string]interface{} `bson:"data,omitempty" json:"data,omitempty"`
	IsRead    bool                   `bson:"is_read" json:"is_read"`
	CreatedAt time.Time              `bson:"created_at" json:"created_at"`
	ReadAt    *time.Time             `bson:"read_at,omitempty" json:"read_at,omitempty"`
}
