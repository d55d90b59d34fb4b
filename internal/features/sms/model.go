package sms

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type SMSStatus string

const (
	SMSQueued SMSStatus = "queued"
	SMSSent   SMSStatus = "sent"
	SMSFailed SMSStatus = "failed"
	SMSLogged SMSStatus = "logged"
)

type SMSMessage struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	CompanyID  string             `bson:"company_id,omitempty" json:"company_id,omitempty"`
	From       string             `bson:"from" json:"from"`
	To         string             `bson:"to" json:"to"`
	Body       string             `bson:"body" json:"body"`
	Status     SMSStatus          `bson:"status" json:"status"`
	ProviderID string             `bson:"provider_id,omitempty" json:"provider_id,omitempty"`
	ErrorMsg   string             `bson:"error_message,omitempty" json:"error_message,omitempty"`
	CreatedAt  time.Time          `bson:"created_at" json:"created_at"`
}

// gatewayRequest is the JSON body posted to the SMS gateway
type gatewayRequest struct {
	From    string `json:"from,omitempty"`
	To      string `json:"to"`
	Message string `json:"message"`
}

type gatewayResponse struct {
	ID    string `json:"id"`
	Error string `json:"error,omitempty"`
}
