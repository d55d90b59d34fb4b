package calendar

import (
	"context"
	"time"

	"go-crm-automation/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type CalendarRepository interface {
	Create(ctx context.Context, event *CalendarEvent) error
	ListBetween(ctx context.Context, companyID string, from, to time.Time) ([]CalendarEvent, error)
}

type CalendarRepositoryImpl struct {
	collection *mongo.Collection
}

func NewCalendarRepository(db *database.MongodbDB) CalendarRepository {
	return &CalendarRepositoryImpl{
		collection: db.DB.Collection("calendar_events"),
	}
}

func (r *CalendarRepositoryImpl) Create(ctx context.Context, event *CalendarEvent) error {
	event.CreatedAt = time.Now()
	_, err := r.collection.InsertOne(ctx, event)
	return err
}

func (r *CalendarRepositoryImpl) ListBetween(ctx context.Context, companyID string, from, to time.Time) ([]CalendarEvent, error) {
	filter := bson.M{
		"company_id": companyID,
		"start":      bson.M{"$gte": from, "$lt": to},
	}
	cursor, err := r.collection.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "start", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var events []CalendarEvent
	if err = cursor.All(ctx, &events); err != nil {
		return nil, err
	}
	return events, nil
}
