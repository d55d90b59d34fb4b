package automation

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"go-crm-automation/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type AutomationController struct {
	Service AutomationService
}

func NewAutomationController(service AutomationService) *AutomationController {
	return &AutomationController{
		Service: service,
	}
}

// CreateFlow godoc
// @Summary Create automation flow
// @Description Validate and store a new automation flow
// @Tags automation
// @Accept json
// @Produce json
// @Param flow body CreateFlowRequest true "Automation Flow"
// @Success 201 {object} AutomationResult
// @Failure 400 {object} map[string]interface{}
// @Failure 422 {object} AutomationResult
// @Router /api/automation/flows [post]
func (ctrl *AutomationController) CreateFlow(c *fiber.Ctx) error {
	claims, ok := middleware.Claims(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	var req CreateFlowRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": validationMessage(err)})
	}

	result := ctrl.Service.CreateFlow(c.UserContext(), req.toFlow(claims.UserID, claims.CompanyID))
	if !result.Success {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(result)
	}
	return c.Status(fiber.StatusCreated).JSON(result)
}

// ListFlows godoc
// @Summary List automation flows
// @Description List the company's automation flows, newest first
// @Tags automation
// @Produce json
// @Success 200 {array} AutomationFlow
// @Failure 500 {object} map[string]interface{}
// @Router /api/automation/flows [get]
func (ctrl *AutomationController) ListFlows(c *fiber.Ctx) error {
	claims, ok := middleware.Claims(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	flows, err := ctrl.Service.ListFlows(c.UserContext(), claims.CompanyID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	if flows == nil {
		flows = []AutomationFlow{}
	}
	return c.JSON(flows)
}

// GetFlow godoc
// @Summary Get automation flow
// @Tags automation
// @Produce json
// @Param id path string true "Flow ID"
// @Success 200 {object} AutomationFlow
// @Failure 404 {object} map[string]interface{}
// @Router /api/automation/flows/{id} [get]
func (ctrl *AutomationController) GetFlow(c *fiber.Ctx) error {
	claims, ok := middleware.Claims(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	flow, err := ctrl.Service.GetFlow(c.UserContext(), claims.CompanyID, c.Params("id"))
	if err != nil {
		return errorResponse(c, err, "Flow not found")
	}
	return c.JSON(flow)
}

// SetFlowActive godoc
// @Summary Activate or deactivate a flow
// @Tags automation
// @Accept json
// @Produce json
// @Param id path string true "Flow ID"
// @Param body body SetActiveRequest true "Active flag"
// @Success 200 {object} AutomationFlow
// @Failure 400 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /api/automation/flows/{id}/active [put]
func (ctrl *AutomationController) SetFlowActive(c *fiber.Ctx) error {
	claims, ok := middleware.Claims(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	var req SetActiveRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": validationMessage(err)})
	}

	flow, err := ctrl.Service.SetFlowActive(c.UserContext(), claims.CompanyID, c.Params("id"), *req.IsActive)
	if err != nil {
		return errorResponse(c, err, "Flow not found")
	}
	return c.JSON(flow)
}

// DeleteFlow godoc
// @Summary Delete automation flow
// @Tags automation
// @Param id path string true "Flow ID"
// @Success 204 {object} nil
// @Failure 404 {object} map[string]interface{}
// @Router /api/automation/flows/{id} [delete]
func (ctrl *AutomationController) DeleteFlow(c *fiber.Ctx) error {
	claims, ok := middleware.Claims(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	if err := ctrl.Service.DeleteFlow(c.UserContext(), claims.CompanyID, c.Params("id")); err != nil {
		return errorResponse(c, err, "Flow not found")
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ExecuteFlow godoc
// @Summary Execute automation flow
// @Description Run a flow once against the supplied trigger data. A failed run still returns 200 with success false.
// @Tags automation
// @Accept json
// @Produce json
// @Param id path string true "Flow ID"
// @Param body body ExecuteFlowRequest false "Trigger data"
// @Success 200 {object} AutomationResult
// @Failure 404 {object} AutomationResult
// @Failure 422 {object} AutomationResult
// @Router /api/automation/flows/{id}/execute [post]
func (ctrl *AutomationController) ExecuteFlow(c *fiber.Ctx) error {
	claims, ok := middleware.Claims(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	var req ExecuteFlowRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
		}
	}
	if req.TriggerData == nil {
		req.TriggerData = map[string]interface{}{}
	}

	result := ctrl.Service.ExecuteFlow(c.UserContext(), c.Params("id"), req.TriggerData, claims.UserID, claims.CompanyID)
	return c.Status(executionStatusCode(result)).JSON(result)
}

// DispatchEvent godoc
// @Summary Dispatch a trigger event
// @Description Run every active flow whose trigger matches the event
// @Tags automation
// @Accept json
// @Produce json
// @Param event body TriggerEventRequest true "Trigger event"
// @Success 200 {array} DispatchResult
// @Failure 400 {object} map[string]interface{}
// @Router /api/automation/events [post]
func (ctrl *AutomationController) DispatchEvent(c *fiber.Ctx) error {
	claims, ok := middleware.Claims(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	var req TriggerEventRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": validationMessage(err)})
	}
	if !knownTriggers[req.Type] {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": fmt.Sprintf("Unknown trigger type: %s", req.Type)})
	}

	results := ctrl.Service.DispatchTrigger(c.UserContext(), TriggerEvent{
		Type:      req.Type,
		CompanyID: claims.CompanyID,
		UserID:    claims.UserID,
		Data:      req.Data,
	})
	if results == nil {
		results = []DispatchResult{}
	}
	return c.JSON(results)
}

// ListExecutions godoc
// @Summary List executions
// @Tags automation
// @Produce json
// @Param flow_id query string false "Filter by flow"
// @Param status query string false "Filter by status"
// @Param limit query int false "Maximum rows" default(50)
// @Success 200 {array} AutomationExecution
// @Failure 500 {object} map[string]interface{}
// @Router /api/automation/executions [get]
func (ctrl *AutomationController) ListExecutions(c *fiber.Ctx) error {
	claims, ok := middleware.Claims(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	executions, err := ctrl.Service.ListExecutions(c.UserContext(), executionFilter(c, claims.CompanyID, 50))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	if executions == nil {
		executions = []AutomationExecution{}
	}
	return c.JSON(executions)
}

// ExportExecutions godoc
// @Summary Export executions as XLSX
// @Tags automation
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param flow_id query string false "Filter by flow"
// @Param status query string false "Filter by status"
// @Success 200 {file} file
// @Failure 500 {object} map[string]interface{}
// @Router /api/automation/executions/export [get]
func (ctrl *AutomationController) ExportExecutions(c *fiber.Ctx) error {
	claims, ok := middleware.Claims(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	data, err := ctrl.Service.ExportExecutions(c.UserContext(), executionFilter(c, claims.CompanyID, 1000))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	filename := fmt.Sprintf("automation_executions_%s.xlsx", time.Now().Format("20060102_150405"))
	c.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	return c.Send(data)
}

// GetExecution godoc
// @Summary Get execution
// @Tags automation
// @Produce json
// @Param id path string true "Execution ID"
// @Success 200 {object} AutomationExecution
// @Failure 404 {object} map[string]interface{}
// @Router /api/automation/executions/{id} [get]
func (ctrl *AutomationController) GetExecution(c *fiber.Ctx) error {
	claims, ok := middleware.Claims(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	execution, err := ctrl.Service.GetExecution(c.UserContext(), claims.CompanyID, c.Params("id"))
	if err != nil {
		return errorResponse(c, err, "Execution not found")
	}
	return c.JSON(execution)
}

func executionFilter(c *fiber.Ctx, companyID string, defaultLimit int64) ExecutionFilter {
	limit, err := strconv.ParseInt(c.Query("limit"), 10, 64)
	if err != nil || limit <= 0 {
		limit = defaultLimit
	}
	return ExecutionFilter{
		CompanyID: companyID,
		FlowID:    c.Query("flow_id"),
		Status:    ExecutionStatus(c.Query("status")),
		Limit:     limit,
	}
}

func errorResponse(c *fiber.Ctx, err error, notFound string) error {
	if IsNotFound(err) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": notFound})
	}
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
}

// executionStatusCode maps an engine result to HTTP. A run that started and
// failed is still a 200; only short-circuits before the run get an error code.
func executionStatusCode(result AutomationResult) int {
	switch {
	case result.Success:
		return fiber.StatusOK
	case result.Message == "Flow not found":
		return fiber.StatusNotFound
	case strings.HasPrefix(result.Message, "Execution limit reached"):
		return fiber.StatusUnprocessableEntity
	default:
		return fiber.StatusOK
	}
}
