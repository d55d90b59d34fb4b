package automation

import (
	"context"
	"errors"

	common_models "go-crm-automation/internal/common/models"
	"go-crm-automation/internal/features/audit"

	"go.uber.org/zap"
)

type AutomationService interface {
	CreateFlow(ctx context.Context, flow *AutomationFlow) AutomationResult
	GetFlow(ctx context.Context, companyID, id string) (*AutomationFlow, error)
	ListFlows(ctx context.Context, companyID string) ([]AutomationFlow, error)
	SetFlowActive(ctx context.Context, companyID, id string, active bool) (*AutomationFlow, error)
	DeleteFlow(ctx context.Context, companyID, id string) error

	// Core Logic
	ExecuteFlow(ctx context.Context, flowID string, triggerData map[string]interface{}, userID, companyID string) AutomationResult
	DispatchTrigger(ctx context.Context, event TriggerEvent) []DispatchResult

	GetExecution(ctx context.Context, companyID, id string) (*AutomationExecution, error)
	ListExecutions(ctx context.Context, filter ExecutionFilter) ([]AutomationExecution, error)
	ExportExecutions(ctx context.Context, filter ExecutionFilter) ([]byte, error)
}

type AutomationServiceImpl struct {
	Repo         AutomationRepository
	Engine       *AutomationEngine
	Scheduler    *TriggerScheduler
	Delay        *SimulatedDelay
	AuditService audit.AuditService
	Logger       *zap.Logger
}

func NewAutomationService(repo AutomationRepository, engine *AutomationEngine, scheduler *TriggerScheduler, delay *SimulatedDelay, auditService audit.AuditService, logger *zap.Logger) AutomationService {
	return &AutomationServiceImpl{
		Repo:         repo,
		Engine:       engine,
		Scheduler:    scheduler,
		Delay:        delay,
		AuditService: auditService,
		Logger:       logger,
	}
}

func (s *AutomationServiceImpl) CreateFlow(ctx context.Context, flow *AutomationFlow) AutomationResult {
	result := s.Engine.CreateAutomationFlow(ctx, flow)
	if !result.Success {
		return result
	}

	s.audit(ctx, common_models.AuditActionAutomation, flow.ID, map[string]common_models.Change{
		"flow": {New: flow},
	})

	if err := s.Scheduler.Register(flow); err != nil {
		s.Logger.Warn("failed to schedule automation flow", zap.String("flow_id", flow.ID), zap.Error(err))
		result.Warnings = append(result.Warnings, "Flow stored but could not be scheduled: "+err.Error())
	}
	return result
}

// GetFlow returns ErrFlowNotFound for flows of other companies
func (s *AutomationServiceImpl) GetFlow(ctx context.Context, companyID, id string) (*AutomationFlow, error) {
	flow, err := s.Repo.GetFlow(ctx, id)
	if err != nil {
		return nil, err
	}
	if flow.CompanyID != companyID {
		return nil, ErrFlowNotFound
	}
	return flow, nil
}

func (s *AutomationServiceImpl) ListFlows(ctx context.Context, companyID string) ([]AutomationFlow, error) {
	return s.Repo.ListFlows(ctx, FlowFilter{CompanyID: companyID})
}

func (s *AutomationServiceImpl) SetFlowActive(ctx context.Context, companyID, id string, active bool) (*AutomationFlow, error) {
	flow, err := s.GetFlow(ctx, companyID, id)
	if err != nil {
		return nil, err
	}

	if err := s.Repo.SetFlowActive(ctx, id, active); err != nil {
		return nil, err
	}
	previous := flow.IsActive
	flow.IsActive = active

	s.audit(ctx, common_models.AuditActionUpdate, id, map[string]common_models.Change{
		"is_active": {Old: previous, New: active},
	})

	if active {
		if err := s.Scheduler.Register(flow); err != nil {
			s.Logger.Warn("failed to schedule automation flow", zap.String("flow_id", id), zap.Error(err))
		}
	} else {
		s.Scheduler.Unregister(id)
	}
	return flow, nil
}

func (s *AutomationServiceImpl) DeleteFlow(ctx context.Context, companyID, id string) error {
	flow, err := s.GetFlow(ctx, companyID, id)
	if err != nil {
		return err
	}

	s.Scheduler.Unregister(id)
	if err := s.Repo.DeleteFlow(ctx, id); err != nil {
		return err
	}

	s.audit(ctx, common_models.AuditActionDelete, id, map[string]common_models.Change{
		"flow": {Old: flow.Name, New: "DELETED"},
	})
	return nil
}

func (s *AutomationServiceImpl) ExecuteFlow(ctx context.Context, flowID string, triggerData map[string]interface{}, userID, companyID string) AutomationResult {
	result := s.Engine.ExecuteFlow(ctx, flowID, triggerData, userID, companyID)

	s.audit(ctx, common_models.AuditActionExecution, flowID, map[string]common_models.Change{
		"success": {New: result.Success},
		"message": {New: result.Message},
	})
	return result
}

// DispatchTrigger runs every active flow of the event's company whose trigger
// type matches and whose trigger conditions hold for the event data.
func (s *AutomationServiceImpl) DispatchTrigger(ctx context.Context, event TriggerEvent) []DispatchResult {
	flows, err := s.Repo.ListFlows(ctx, FlowFilter{
		CompanyID:   event.CompanyID,
		TriggerType: event.Type,
		ActiveOnly:  true,
	})
	if err != nil {
		s.Logger.Error("failed to load flows for trigger", zap.String("trigger", string(event.Type)), zap.String("company_id", event.CompanyID), zap.Error(err))
		return nil
	}

	results := make([]DispatchResult, 0, len(flows))
	for _, flow := range flows {
		if !EvaluateConditions(flow.Trigger.Conditions, event.Data) {
			continue
		}

		if err := s.Delay.Wait(ctx, flow.Trigger.Delay); err != nil {
			results = append(results, DispatchResult{FlowID: flow.ID, FlowName: flow.Name, Result: failureResult("Trigger delay interrupted: " + err.Error())})
			continue
		}

		results = append(results, DispatchResult{
			FlowID:   flow.ID,
			FlowName: flow.Name,
			Result:   s.ExecuteFlow(ctx, flow.ID, event.Data, event.UserID, event.CompanyID),
		})
	}

	s.Logger.Info("automation trigger dispatched",
		zap.String("trigger", string(event.Type)),
		zap.String("company_id", event.CompanyID),
		zap.Int("matched_flows", len(results)),
	)
	return results
}

func (s *AutomationServiceImpl) GetExecution(ctx context.Context, companyID, id string) (*AutomationExecution, error) {
	execution, err := s.Repo.GetExecution(ctx, id)
	if err != nil {
		return nil, err
	}
	if execution.CompanyID != companyID {
		return nil, ErrExecutionNotFound
	}
	return execution, nil
}

func (s *AutomationServiceImpl) ListExecutions(ctx context.Context, filter ExecutionFilter) ([]AutomationExecution, error) {
	return s.Repo.ListExecutions(ctx, filter)
}

func (s *AutomationServiceImpl) ExportExecutions(ctx context.Context, filter ExecutionFilter) ([]byte, error) {
	executions, err := s.Repo.ListExecutions(ctx, filter)
	if err != nil {
		return nil, err
	}
	return ExportExecutionsXLSX(executions)
}

func (s *AutomationServiceImpl) audit(ctx context.Context, action common_models.AuditAction, recordID string, changes map[string]common_models.Change) {
	if s.AuditService == nil {
		return
	}
	if err := s.AuditService.LogChange(ctx, action, "automation", recordID, changes); err != nil {
		s.Logger.Warn("failed to write audit log", zap.String("record_id", recordID), zap.Error(err))
	}
}

// IsNotFound reports whether err is one of the package's not-found sentinels
func IsNotFound(err error) bool {
	return errors.Is(err, ErrFlowNotFound) || errors.Is(err, ErrExecutionNotFound)
}
