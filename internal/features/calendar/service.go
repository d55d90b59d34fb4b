package calendar

import (
	"context"
	"errors"
	"fmt"
	"time"

	common_models "go-crm-automation/internal/common/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type CalendarService interface {
	CreateEvent(ctx context.Context, summary, description string, start time.Time, durationMinutes int, attendees []string) (string, error)
	ListEvents(ctx context.Context, companyID string, from, to time.Time) ([]CalendarEvent, error)
}

type CalendarServiceImpl struct {
	repo CalendarRepository
}

func NewCalendarService(repo CalendarRepository) CalendarService {
	return &CalendarServiceImpl{repo: repo}
}

// CreateEvent stores an event owned by the user and company found in ctx
func (s *CalendarServiceImpl) CreateEvent(ctx context.Context, summary, description string, start time.Time, durationMinutes int, attendees []string) (string, error) {
	if summary == "" {
		return "", errors.New("event summary is required")
	}
	if durationMinutes <= 0 {
		return "", fmt.Errorf("invalid duration %d", durationMinutes)
	}

	companyID, _ := ctx.Value(common_models.CompanyIDKey).(string)
	ownerID, _ := ctx.Value(common_models.UserIDKey).(string)

	event := &CalendarEvent{
		ID:              primitive.NewObjectID(),
		CompanyID:       companyID,
		OwnerID:         ownerID,
		Summary:         summary,
		Description:     description,
		Start:           start,
		End:             start.Add(time.Duration(durationMinutes) * time.Minute),
		DurationMinutes: durationMinutes,
		Attendees:       attendees,
	}
	if err := s.repo.Create(ctx, event); err != nil {
		return "", fmt.Errorf("failed to create calendar event: %w", err)
	}
	return event.ID.Hex(), nil
}

func (s *CalendarServiceImpl) ListEvents(ctx context.Context, companyID string, from, to time.Time) ([]CalendarEvent, error) {
	return s.repo.ListBetween(ctx, companyID, from, to)
}
