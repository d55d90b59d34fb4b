package automation

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepository implements AutomationRepository in process memory.
// Used by tests and the demo seeder's dry run.
type MemoryRepository struct {
	mu         sync.RWMutex
	flows      map[string]AutomationFlow
	executions map[string]AutomationExecution
	now        func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		flows:      make(map[string]AutomationFlow),
		executions: make(map[string]AutomationExecution),
		now:        time.Now,
	}
}

func (r *MemoryRepository) CreateFlow(_ context.Context, flow *AutomationFlow) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if flow.ID == "" {
		flow.ID = uuid.NewString()
	}
	now := r.now()
	flow.CreatedAt = now
	flow.UpdatedAt = now
	r.flows[flow.ID] = *flow
	return nil
}

func (r *MemoryRepository) GetFlow(_ context.Context, id string) (*AutomationFlow, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	flow, ok := r.flows[id]
	if !ok {
		return nil, ErrFlowNotFound
	}
	return &flow, nil
}

func (r *MemoryRepository) ListFlows(_ context.Context, filter FlowFilter) ([]AutomationFlow, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var flows []AutomationFlow
	for _, flow := range r.flows {
		if matchesFlow(flow, filter) {
			flows = append(flows, flow)
		}
	}
	sort.Slice(flows, func(i, j int) bool { return flows[i].CreatedAt.After(flows[j].CreatedAt) })
	return flows, nil
}

func (r *MemoryRepository) CountFlows(ctx context.Context, filter FlowFilter) (int64, error) {
	flows, err := r.ListFlows(ctx, filter)
	return int64(len(flows)), err
}

func (r *MemoryRepository) SetFlowActive(_ context.Context, id string, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	flow, ok := r.flows[id]
	if !ok {
		return ErrFlowNotFound
	}
	flow.IsActive = active
	flow.UpdatedAt = r.now()
	r.flows[id] = flow
	return nil
}

func (r *MemoryRepository) DeleteFlow(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.flows[id]; !ok {
		return ErrFlowNotFound
	}
	delete(r.flows, id)
	return nil
}

func (r *MemoryRepository) CreateExecution(_ context.Context, execution *AutomationExecution) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if execution.ID == "" {
		execution.ID = uuid.NewString()
	}
	stored := *execution
	stored.Logs = append([]AutomationLog{}, execution.Logs...)
	r.executions[execution.ID] = stored
	return nil
}

func (r *MemoryRepository) UpdateExecution(_ context.Context, id string, update ExecutionUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	execution, ok := r.executions[id]
	if !ok {
		return ErrExecutionNotFound
	}
	if update.Status != nil {
		execution.Status = *update.Status
	}
	if update.CurrentActionIndex != nil {
		execution.CurrentActionIndex = *update.CurrentActionIndex
	}
	if update.CompletedAt != nil {
		completedAt := *update.CompletedAt
		execution.CompletedAt = &completedAt
	}
	if update.ErrorMessage != nil {
		execution.ErrorMessage = *update.ErrorMessage
	}
	if update.Logs != nil {
		execution.Logs = append([]AutomationLog{}, update.Logs...)
	}
	r.executions[id] = execution
	return nil
}

func (r *MemoryRepository) GetExecution(_ context.Context, id string) (*AutomationExecution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	execution, ok := r.executions[id]
	if !ok {
		return nil, ErrExecutionNotFound
	}
	execution.Logs = append([]AutomationLog{}, execution.Logs...)
	return &execution, nil
}

func (r *MemoryRepository) ListExecutions(_ context.Context, filter ExecutionFilter) ([]AutomationExecution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var executions []AutomationExecution
	for _, execution := range r.executions {
		if matchesExecution(execution, filter) {
			execution.Logs = append([]AutomationLog{}, execution.Logs...)
			executions = append(executions, execution)
		}
	}
	sort.Slice(executions, func(i, j int) bool { return executions[i].StartedAt.After(executions[j].StartedAt) })
	if filter.Limit > 0 && int64(len(executions)) > filter.Limit {
		executions = executions[:filter.Limit]
	}
	return executions, nil
}

func (r *MemoryRepository) CountExecutions(_ context.Context, filter ExecutionFilter) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var count int64
	for _, execution := range r.executions {
		if matchesExecution(execution, filter) {
			count++
		}
	}
	return count, nil
}

func matchesFlow(flow AutomationFlow, filter FlowFilter) bool {
	if filter.CompanyID != "" && flow.CompanyID != filter.CompanyID {
		return false
	}
	if filter.CreatedBy != "" && flow.CreatedBy != filter.CreatedBy {
		return false
	}
	if filter.TriggerType != "" && flow.Trigger.Type != filter.TriggerType {
		return false
	}
	if filter.ActiveOnly && !flow.IsActive {
		return false
	}
	return true
}

func matchesExecution(execution AutomationExecution, filter ExecutionFilter) bool {
	if filter.CompanyID != "" && execution.CompanyID != filter.CompanyID {
		return false
	}
	if filter.FlowID != "" && execution.FlowID != filter.FlowID {
		return false
	}
	if filter.Status != "" && execution.Status != filter.Status {
		return false
	}
	if !filter.Since.IsZero() && execution.StartedAt.Before(filter.Since) {
		return false
	}
	return true
}
