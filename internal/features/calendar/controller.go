package calendar

import (
	"time"

	"go-crm-automation/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type CalendarController struct {
	service CalendarService
}

func NewCalendarController(service CalendarService) *CalendarController {
	return &CalendarController{service: service}
}

// ListEvents godoc
// @Summary List calendar events
// @Description Events between from and to (RFC3339); defaults to the next 7 days
// @Tags calendar
// @Produce json
// @Param from query string false "Range start"
// @Param to query string false "Range end"
// @Success 200 {array} CalendarEvent
// @Router /api/calendar/events [get]
func (c *CalendarController) ListEvents(ctx *fiber.Ctx) error {
	claims, ok := middleware.Claims(ctx)
	if !ok {
		return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	from := time.Now()
	if raw := ctx.Query("from"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid from"})
		}
		from = parsed
	}
	to := from.Add(7 * 24 * time.Hour)
	if raw := ctx.Query("to"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid to"})
		}
		to = parsed
	}

	events, err := c.service.ListEvents(ctx.UserContext(), claims.CompanyID, from, to)
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	if events == nil {
		events = []CalendarEvent{}
	}
	return ctx.JSON(events)
}
