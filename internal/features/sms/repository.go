package sms

import (
	"context"
	"time"

	"go-crm-automation/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type SMSRepository interface {
	Create(ctx context.Context, msg *SMSMessage) error
	UpdateStatus(ctx context.Context, id primitive.ObjectID, status SMSStatus, providerID, errorMsg string) error
}

type SMSRepositoryImpl struct {
	col *mongo.Collection
}

func NewSMSRepository(db *database.MongodbDB) SMSRepository {
	return &SMSRepositoryImpl{
		col: db.DB.Collection("sms_messages"),
	}
}

func (r *SMSRepositoryImpl) Create(ctx context.Context, msg *SMSMessage) error {
	msg.CreatedAt = time.Now()
	_, err := r.col.InsertOne(ctx, msg)
	return err
}

func (r *SMSRepositoryImpl) UpdateStatus(ctx context.Context, id primitive.ObjectID, status SMSStatus, providerID, errorMsg string) error {
	_, err := r.col.UpdateByID(ctx, id, bson.M{"$set": bson.M{
		"status":        status,
		"provider_id":   providerID,
		"error_message": errorMsg,
	}})
	return err
}
