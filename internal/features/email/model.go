package email

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type EmailStatus string

const (
	EmailQueued EmailStatus = "queued"
	EmailSent   EmailStatus = "sent"
	EmailFailed EmailStatus = "failed"
	// EmailLogged means no SMTP host is configured and the message was only recorded
	EmailLogged EmailStatus = "logged"
)

type Email struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	CompanyID string             `bson:"company_id,omitempty" json:"company_id,omitempty"`
	From      string             `bson:"from" json:"from"`
	To        []string           `bson:"to" json:"to"`
	Subject   string             `bson:"subject" json:"subject"`
	TextBody  string             `bson:"text_body" json:"text_body"`
	Status    EmailStatus        `bson:"status" json:"status"`
	ErrorMsg  string             `bson:"error_message,omitempty" json:"error_message,omitempty"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
	SentAt    *time.Time         `bson:"sent_at,omitempty" json:"sent_at,omitempty"`
}
