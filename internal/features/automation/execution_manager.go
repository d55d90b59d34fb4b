package automation

import (
	"context"
	"fmt"
	"time"

	common_models "go-crm-automation/internal/common/models"

	"go.uber.org/zap"
)

// ExecutionEvent describes one observable step of a run.
type ExecutionEvent struct {
	ExecutionID string          `json:"execution_id"`
	FlowID      string          `json:"flow_id"`
	CompanyID   string          `json:"company_id"`
	ActionIndex int             `json:"action_index"`
	Status      ExecutionStatus `json:"status"`
	Log         *AutomationLog  `json:"log,omitempty"`
	Timestamp   time.Time       `json:"timestamp"`
}

// ExecutionObserver receives progress events. Implementations must not block.
type ExecutionObserver interface {
	OnExecutionEvent(event ExecutionEvent)
}

type noopObserver struct{}

func (noopObserver) OnExecutionEvent(ExecutionEvent) {}

// ExecutionManager runs the actions of one execution strictly in order.
// Separate executions share nothing but the repository.
type ExecutionManager struct {
	repo      AutomationRepository
	executors ActionDispatcher
	delay     *SimulatedDelay
	observer  ExecutionObserver
	logger    *zap.Logger
	now       func() time.Time
}

func NewExecutionManager(repo AutomationRepository, executors ActionDispatcher, delay *SimulatedDelay, observer ExecutionObserver, logger *zap.Logger) *ExecutionManager {
	if observer == nil {
		observer = noopObserver{}
	}
	return &ExecutionManager{
		repo:      repo,
		executors: executors,
		delay:     delay,
		observer:  observer,
		logger:    logger,
		now:       time.Now,
	}
}

// run holds the mutable state of a single ExecuteActions call
type run struct {
	flow      *AutomationFlow
	execution *AutomationExecution
	logs      []AutomationLog
	logger    *zap.Logger
}

// ExecuteActions walks flow.Actions in order and stops at the first failure.
// The execution row must already exist with status pending.
func (m *ExecutionManager) ExecuteActions(ctx context.Context, flow *AutomationFlow, execution *AutomationExecution, vars map[string]interface{}) AutomationResult {
	r := &run{
		flow:      flow,
		execution: execution,
		logs:      append([]AutomationLog{}, execution.Logs...),
		logger: m.logger.With(
			zap.String("flow_id", flow.ID),
			zap.String("execution_id", execution.ID),
			zap.String("company_id", execution.CompanyID),
		),
	}

	executed := 0
	conditionSkipped := 0

	for i, action := range flow.Actions {
		if err := m.markRunning(ctx, r, i); err != nil {
			m.appendLog(r, i, action, LogError, err.Error(), nil)
			return m.fail(ctx, r, i, fmt.Sprintf("Action %d error: %v", i+1, err), err.Error())
		}

		if !EvaluateConditions(action.Conditions, vars) {
			m.appendLog(r, i, action, LogInfo, "Conditions not met, action skipped", nil)
			conditionSkipped++
			continue
		}

		if err := m.delay.Wait(ctx, action.Delay); err != nil {
			m.appendLog(r, i, action, LogError, err.Error(), nil)
			return m.fail(ctx, r, i, fmt.Sprintf("Action %d error: %v", i+1, err), err.Error())
		}

		result, err := m.invoke(ctx, action, vars, execution)
		if err != nil {
			m.appendLog(r, i, action, LogError, err.Error(), nil)
			return m.fail(ctx, r, i, fmt.Sprintf("Action %d error: %v", i+1, err), err.Error())
		}

		if !result.Success {
			if result.Skipped && continueOnSkip(flow, action) {
				m.appendLog(r, i, action, LogWarning, result.Message, result.Data)
				r.logger.Info("action skipped, continuing", zap.Int("action_index", i), zap.String("reason", result.Message))
				continue
			}
			m.appendLog(r, i, action, LogError, result.Message, result.Data)
			return m.fail(ctx, r, i, fmt.Sprintf("Action %d failed: %s", i+1, result.Message), result.Message)
		}

		m.appendLog(r, i, action, LogSuccess, result.Message, result.Data)
		executed++
	}

	status := ExecutionCompleted
	message := "Flow executed successfully"
	if len(flow.Actions) > 0 && conditionSkipped == len(flow.Actions) {
		status = ExecutionSkipped
		message = "Flow skipped: no action conditions were met"
	}

	warnings := collectWarnings(r.logs)
	if err := m.finish(ctx, r, status, ""); err != nil {
		warnings = append(warnings, fmt.Sprintf("Failed to persist final execution state: %v", err))
	}

	r.logger.Info("automation execution finished", zap.String("status", string(status)), zap.Int("executed_actions", executed))
	return AutomationResult{
		Success:  true,
		Message:  message,
		Data:     map[string]interface{}{"executedActions": executed},
		Warnings: warnings,
	}
}

// invoke runs one executor and converts a panic into an error. The run's
// identity is put on ctx so capabilities that read it from the request
// context also work for scheduled runs.
func (m *ExecutionManager) invoke(ctx context.Context, action AutomationAction, vars map[string]interface{}, execution *AutomationExecution) (result AutomationResult, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("%v", rec)
		}
	}()
	ctx = context.WithValue(ctx, common_models.UserIDKey, execution.UserID)
	ctx = context.WithValue(ctx, common_models.CompanyIDKey, execution.CompanyID)
	return m.executors.Execute(ctx, action, vars, execution.UserID, execution.CompanyID), nil
}

func (m *ExecutionManager) markRunning(ctx context.Context, r *run, index int) error {
	status := ExecutionRunning
	if err := m.repo.UpdateExecution(ctx, r.execution.ID, ExecutionUpdate{
		Status:             &status,
		CurrentActionIndex: &index,
	}); err != nil {
		return err
	}

	r.execution.Status = status
	r.execution.CurrentActionIndex = index
	m.observer.OnExecutionEvent(m.event(r, index, status, nil))
	return nil
}

func (m *ExecutionManager) appendLog(r *run, index int, action AutomationAction, status LogStatus, message string, data interface{}) {
	entry := AutomationLog{
		Timestamp: m.now(),
		Action:    fmt.Sprintf("%s:%s", action.Type, action.ID),
		Status:    status,
		Message:   message,
		Data:      data,
	}
	r.logs = append(r.logs, entry)
	m.observer.OnExecutionEvent(m.event(r, index, r.execution.Status, &entry))
}

func (m *ExecutionManager) fail(ctx context.Context, r *run, index int, message, errorMessage string) AutomationResult {
	r.logger.Warn("automation execution failed", zap.Int("action_index", index), zap.String("reason", errorMessage))
	if err := m.finish(ctx, r, ExecutionFailed, errorMessage); err != nil {
		r.logger.Error("failed to persist failed execution", zap.Error(err))
	}
	return failureResult(message)
}

// finish writes the terminal state. It outlives cancellation of ctx so a
// cancelled run is still recorded.
func (m *ExecutionManager) finish(ctx context.Context, r *run, status ExecutionStatus, errorMessage string) error {
	completedAt := m.now()
	update := ExecutionUpdate{
		Status:      &status,
		CompletedAt: &completedAt,
		Logs:        r.logs,
	}
	if errorMessage != "" {
		update.ErrorMessage = &errorMessage
	}

	r.execution.Status = status
	r.execution.CompletedAt = &completedAt
	r.execution.ErrorMessage = errorMessage
	r.execution.Logs = r.logs
	m.observer.OnExecutionEvent(m.event(r, r.execution.CurrentActionIndex, status, nil))

	if err := m.repo.UpdateExecution(context.WithoutCancel(ctx), r.execution.ID, update); err != nil {
		r.logger.Error("failed to persist execution state", zap.String("status", string(status)), zap.Error(err))
		return err
	}
	return nil
}

func (m *ExecutionManager) event(r *run, index int, status ExecutionStatus, entry *AutomationLog) ExecutionEvent {
	return ExecutionEvent{
		ExecutionID: r.execution.ID,
		FlowID:      r.flow.ID,
		CompanyID:   r.execution.CompanyID,
		ActionIndex: index,
		Status:      status,
		Log:         entry,
		Timestamp:   m.now(),
	}
}

func continueOnSkip(flow *AutomationFlow, action AutomationAction) bool {
	if action.ContinueOnSkip != nil {
		return *action.ContinueOnSkip
	}
	return flow.ContinueOnSkip
}

func collectWarnings(logs []AutomationLog) []string {
	var warnings []string
	for _, entry := range logs {
		if entry.Status == LogWarning {
			warnings = append(warnings, entry.Message)
		}
	}
	return warnings
}
