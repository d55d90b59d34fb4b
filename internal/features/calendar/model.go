package calendar

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type CalendarEvent struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	CompanyID       string             `bson:"company_id" json:"company_id"`
	OwnerID         string             `bson:"owner_id" json:"owner_id"`
	Summary         string             `bson:"summary" json:"summary"`
	Description     string             `bson:"description,omitempty" json:"description,omitempty"`
	Start           time.Time          `bson:"start" json:"start"`
	End             time.Time          `bson:"end" json:"end"`
	DurationMinutes int                `bson:"duration_minutes" json:"duration_minutes"`
	Attendees       []string           `bson:"attendees,omitempty" json:"attendees,omitempty"`
	CreatedAt       time.Time          `bson:"created_at" json:"created_at"`
}
