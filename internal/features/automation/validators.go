package automation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

const executionWindow = time.Hour

// FlowValidator gates flow creation and execution. None of its checks mutate state.
type FlowValidator struct {
	repo     AutomationRepository
	limits   AutomationLimits
	scope    LimitScope
	registry *ExecutorRegistry
	now      func() time.Time
}

// NewFlowValidator builds a validator. A nil registry accepts only the built-in action kinds.
func NewFlowValidator(repo AutomationRepository, limits AutomationLimits, scope LimitScope, registry *ExecutorRegistry) *FlowValidator {
	if scope == "" {
		scope = LimitScopeCompany
	}
	return &FlowValidator{
		repo:     repo,
		limits:   limits,
		scope:    scope,
		registry: registry,
		now:      time.Now,
	}
}

// ValidateFlow checks the structure of a flow and returns the first violation
func (v *FlowValidator) ValidateFlow(flow *AutomationFlow) AutomationResult {
	if strings.TrimSpace(flow.Name) == "" {
		return failureResult("Flow name is required")
	}
	if flow.Trigger.Type == "" {
		return failureResult("Trigger type is required")
	}
	if !knownTriggers[flow.Trigger.Type] {
		return failureResult(fmt.Sprintf("Unknown trigger type: %s", flow.Trigger.Type))
	}
	if len(flow.Actions) > v.limits.MaxActionsPerFlow {
		return failureResult(fmt.Sprintf("Flow cannot have more than %d actions", v.limits.MaxActionsPerFlow))
	}
	for i, action := range flow.Actions {
		if res := v.validateAction(action, i+1, 1); !res.Success {
			return res
		}
	}
	if flow.Trigger.Type == TriggerTimeBased {
		if strings.TrimSpace(flow.Trigger.Schedule) == "" {
			return failureResult("Time based trigger requires a schedule")
		}
		if _, err := cron.ParseStandard(flow.Trigger.Schedule); err != nil {
			return failureResult(fmt.Sprintf("Invalid trigger schedule: %v", err))
		}
	}
	return successResult("Flow is valid", nil)
}

func (v *FlowValidator) validateAction(action AutomationAction, position, depth int) AutomationResult {
	if depth > v.limits.MaxChainDepth {
		return failureResult(fmt.Sprintf("Action chain cannot be deeper than %d levels", v.limits.MaxChainDepth))
	}
	if !v.supports(action.Type) {
		return failureResult(fmt.Sprintf("Action %d has unknown type: %s", position, action.Type))
	}
	if action.Delay != nil && *action.Delay < 0 {
		return failureResult(fmt.Sprintf("Action %d has a negative delay", position))
	}
	for _, next := range action.NextActions {
		if res := v.validateAction(next, position, depth+1); !res.Success {
			return res
		}
	}
	return successResult("", nil)
}

func (v *FlowValidator) supports(actionType ActionType) bool {
	if v.registry != nil {
		return v.registry.Supports(actionType)
	}
	switch actionType {
	case ActionEmail, ActionSMS, ActionTask, ActionNote, ActionCall, ActionCalendar:
		return true
	}
	return false
}

// CheckUserLimits fails once the stored flow count reaches MaxFlowsPerUser.
// The count covers the whole company unless the scope is user.
func (v *FlowValidator) CheckUserLimits(ctx context.Context, userID, companyID string) AutomationResult {
	filter := FlowFilter{CompanyID: companyID}
	if v.scope == LimitScopeUser {
		filter.CreatedBy = userID
	}

	count, err := v.repo.CountFlows(ctx, filter)
	if err != nil {
		return failureResult(fmt.Sprintf("Failed to check flow limits: %v", err))
	}
	if count >= int64(v.limits.MaxFlowsPerUser) {
		return failureResult(fmt.Sprintf("Maximum number of flows reached (%d)", v.limits.MaxFlowsPerUser))
	}
	return successResult("Within flow limits", nil)
}

// CheckExecutionLimits counts the company's executions started in the trailing hour
func (v *FlowValidator) CheckExecutionLimits(ctx context.Context, userID, companyID string) AutomationResult {
	count, err := v.repo.CountExecutions(ctx, ExecutionFilter{
		CompanyID: companyID,
		Since:     v.now().Add(-executionWindow),
	})
	if err != nil {
		return failureResult(fmt.Sprintf("Failed to check execution limits: %v", err))
	}
	if count >= int64(v.limits.MaxExecutionsPerHour) {
		return failureResult(fmt.Sprintf("Execution limit reached: maximum %d executions per hour", v.limits.MaxExecutionsPerHour))
	}
	return successResult("Within execution limits", nil)
}
