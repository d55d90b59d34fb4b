package automation

import (
	"go-crm-automation/internal/common/api"
	"go-crm-automation/internal/config"
	"go-crm-automation/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type AutomationApi struct {
	controller *AutomationController
	config     *config.Config
}

func NewAutomationApi(controller *AutomationController, config *config.Config) api.Route {
	return &AutomationApi{
		controller: controller,
		config:     config,
	}
}

func (h *AutomationApi) Setup(app *fiber.App) {
	group := app.Group("/api/automation", middleware.AuthMiddleware(h.config.SkipAuth))

	group.Get("/flows", h.controller.ListFlows)
	group.Post("/flows", h.controller.CreateFlow)
	group.Get("/flows/:id", h.controller.GetFlow)
	group.Put("/flows/:id/active", h.controller.SetFlowActive)
	group.Delete("/flows/:id", h.controller.DeleteFlow)
	group.Post("/flows/:id/execute", h.controller.ExecuteFlow)

	group.Post("/events", h.controller.DispatchEvent)

	group.Get("/executions", h.controller.ListExecutions)
	group.Get("/executions/export", h.controller.ExportExecutions)
	group.Get("/executions/:id", h.controller.GetExecution)
}
