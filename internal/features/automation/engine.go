package automation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AutomationEngine is the entry point other features use to create and run flows.
// It only sequences the validator, the repository and the execution manager.
type AutomationEngine struct {
	repo      AutomationRepository
	validator *FlowValidator
	manager   *ExecutionManager
	logger    *zap.Logger
	now       func() time.Time
}

func NewAutomationEngine(repo AutomationRepository, validator *FlowValidator, manager *ExecutionManager, logger *zap.Logger) *AutomationEngine {
	return &AutomationEngine{
		repo:      repo,
		validator: validator,
		manager:   manager,
		logger:    logger,
		now:       time.Now,
	}
}

func (e *AutomationEngine) CreateAutomationFlow(ctx context.Context, flow *AutomationFlow) AutomationResult {
	if res := e.validator.CheckUserLimits(ctx, flow.CreatedBy, flow.CompanyID); !res.Success {
		return res
	}
	if res := e.validator.ValidateFlow(flow); !res.Success {
		return res
	}

	assignActionIDs(flow.Actions)
	if err := e.repo.CreateFlow(ctx, flow); err != nil {
		e.logger.Error("failed to store automation flow", zap.String("company_id", flow.CompanyID), zap.Error(err))
		return failureResult(fmt.Sprintf("Failed to create flow: %v", err))
	}

	e.logger.Info("automation flow created",
		zap.String("flow_id", flow.ID),
		zap.String("company_id", flow.CompanyID),
		zap.String("trigger", string(flow.Trigger.Type)),
		zap.Int("actions", len(flow.Actions)),
	)
	return successResult("Flow created successfully", map[string]interface{}{"flowId": flow.ID})
}

// ExecuteFlow runs a stored flow once. Flows owned by another company are reported as not found.
func (e *AutomationEngine) ExecuteFlow(ctx context.Context, flowID string, triggerData map[string]interface{}, userID, companyID string) AutomationResult {
	flow, err := e.repo.GetFlow(ctx, flowID)
	if err != nil {
		if errors.Is(err, ErrFlowNotFound) {
			return failureResult("Flow not found")
		}
		e.logger.Error("failed to load automation flow", zap.String("flow_id", flowID), zap.Error(err))
		return failureResult(fmt.Sprintf("Failed to load flow: %v", err))
	}
	if companyID != "" && flow.CompanyID != companyID {
		return failureResult("Flow not found")
	}

	if res := e.validator.CheckExecutionLimits(ctx, userID, companyID); !res.Success {
		return res
	}

	execution := &AutomationExecution{
		FlowID:             flow.ID,
		LeadID:             firstString(triggerData, "leadId", "lead_id"),
		UserID:             userID,
		CompanyID:          companyID,
		Status:             ExecutionPending,
		CurrentActionIndex: 0,
		StartedAt:          e.now(),
		Logs:               []AutomationLog{},
		TriggerData:        triggerData,
	}
	if err := e.repo.CreateExecution(ctx, execution); err != nil {
		e.logger.Error("failed to create automation execution", zap.String("flow_id", flow.ID), zap.Error(err))
		return failureResult(fmt.Sprintf("Failed to create execution: %v", err))
	}

	return e.manager.ExecuteActions(ctx, flow, execution, buildVars(triggerData, flow, execution))
}

// buildVars is the interpolation context: trigger data plus run identity
func buildVars(triggerData map[string]interface{}, flow *AutomationFlow, execution *AutomationExecution) map[string]interface{} {
	vars := make(map[string]interface{}, len(triggerData)+5)
	for k, v := range triggerData {
		vars[k] = v
	}
	vars["userId"] = execution.UserID
	vars["companyId"] = execution.CompanyID
	vars["flowId"] = flow.ID
	vars["flowName"] = flow.Name
	vars["executionId"] = execution.ID
	if _, ok := vars["leadId"]; !ok && execution.LeadID != "" {
		vars["leadId"] = execution.LeadID
	}
	return vars
}

func assignActionIDs(actions []AutomationAction) {
	for i := range actions {
		if actions[i].ID == "" {
			actions[i].ID = uuid.NewString()
		}
		assignActionIDs(actions[i].NextActions)
	}
}
