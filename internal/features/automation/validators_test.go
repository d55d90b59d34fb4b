package automation

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validFlow() *AutomationFlow {
	return &AutomationFlow{
		Name:      "Welcome",
		Trigger:   FlowTrigger{Type: TriggerLeadCreated},
		Actions:   []AutomationAction{{Type: ActionEmail, Content: "Hi"}},
		CompanyID: "company-1",
		CreatedBy: "user-1",
	}
}

func nestedActions(depth int) []AutomationAction {
	if depth == 0 {
		return nil
	}
	return []AutomationAction{{Type: ActionNote, Content: "x", NextActions: nestedActions(depth - 1)}}
}

func TestValidateFlow(t *testing.T) {
	validator := NewFlowValidator(NewMemoryRepository(), DefaultLimits(), "", nil)

	tests := []struct {
		name        string
		mutate      func(f *AutomationFlow)
		wantSuccess bool
		wantMessage string
	}{
		{
			name:        "Valid flow",
			mutate:      func(f *AutomationFlow) {},
			wantSuccess: true,
			wantMessage: "Flow is valid",
		},
		{
			name:        "Blank name",
			mutate:      func(f *AutomationFlow) { f.Name = "   " },
			wantMessage: "Flow name is required",
		},
		{
			name:        "Missing trigger",
			mutate:      func(f *AutomationFlow) { f.Trigger.Type = "" },
			wantMessage: "Trigger type is required",
		},
		{
			name:        "Unknown trigger",
			mutate:      func(f *AutomationFlow) { f.Trigger.Type = "deal_won" },
			wantMessage: "Unknown trigger type: deal_won",
		},
		{
			name: "Ten actions is the limit",
			mutate: func(f *AutomationFlow) {
				f.Actions = make([]AutomationAction, 10)
				for i := range f.Actions {
					f.Actions[i] = AutomationAction{Type: ActionNote, Content: "x"}
				}
			},
			wantSuccess: true,
			wantMessage: "Flow is valid",
		},
		{
			name: "Eleven actions",
			mutate: func(f *AutomationFlow) {
				f.Actions = make([]AutomationAction, 11)
				for i := range f.Actions {
					f.Actions[i] = AutomationAction{Type: ActionNote, Content: "x"}
				}
			},
			wantMessage: "Flow cannot have more than 10 actions",
		},
		{
			name:        "No actions is valid",
			mutate:      func(f *AutomationFlow) { f.Actions = nil },
			wantSuccess: true,
			wantMessage: "Flow is valid",
		},
		{
			name: "Unknown action type",
			mutate: func(f *AutomationFlow) {
				f.Actions = append(f.Actions, AutomationAction{Type: "fax"})
			},
			wantMessage: "Action 2 has unknown type: fax",
		},
		{
			name: "Negative delay",
			mutate: func(f *AutomationFlow) {
				f.Actions[0].Delay = floatPtr(-1)
			},
			wantMessage: "Action 1 has a negative delay",
		},
		{
			name:        "Chain of three levels",
			mutate:      func(f *AutomationFlow) { f.Actions = nestedActions(3) },
			wantSuccess: true,
			wantMessage: "Flow is valid",
		},
		{
			name:        "Chain of four levels",
			mutate:      func(f *AutomationFlow) { f.Actions = nestedActions(4) },
			wantMessage: "Action chain cannot be deeper than 3 levels",
		},
		{
			name: "Time based without schedule",
			mutate: func(f *AutomationFlow) {
				f.Trigger = FlowTrigger{Type: TriggerTimeBased}
			},
			wantMessage: "Time based trigger requires a schedule",
		},
		{
			name: "Time based with valid schedule",
			mutate: func(f *AutomationFlow) {
				f.Trigger = FlowTrigger{Type: TriggerTimeBased, Schedule: "0 8 * * 1"}
			},
			wantSuccess: true,
			wantMessage: "Flow is valid",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flow := validFlow()
			tt.mutate(flow)

			result := validator.ValidateFlow(flow)

			assert.Equal(t, tt.wantSuccess, result.Success)
			assert.Equal(t, tt.wantMessage, result.Message)
		})
	}
}

func TestValidateFlow_InvalidSchedule(t *testing.T) {
	validator := NewFlowValidator(NewMemoryRepository(), DefaultLimits(), "", nil)
	flow := validFlow()
	flow.Trigger = FlowTrigger{Type: TriggerTimeBased, Schedule: "every monday"}

	result := validator.ValidateFlow(flow)

	assert.False(t, result.Success)
	assert.Contains(t, result.Message, "Invalid trigger schedule:")
}

func TestValidateFlow_UsesRegistry(t *testing.T) {
	registry := NewExecutorRegistry()
	registry.Register(ActionEmail, &countingExecutor{})
	validator := NewFlowValidator(NewMemoryRepository(), DefaultLimits(), "", registry)

	flow := validFlow()
	flow.Actions = append(flow.Actions, AutomationAction{Type: ActionSMS})

	result := validator.ValidateFlow(flow)

	assert.Equal(t, "Action 2 has unknown type: sms", result.Message)
}

func TestValidateFlow_DoesNotMutate(t *testing.T) {
	validator := NewFlowValidator(NewMemoryRepository(), DefaultLimits(), "", nil)
	flow := validFlow()
	flow.Actions[0].NextActions = nestedActions(1)
	before := *flow
	before.Actions = append([]AutomationAction{}, flow.Actions...)

	first := validator.ValidateFlow(flow)
	second := validator.ValidateFlow(flow)

	assert.Equal(t, first, second)
	assert.Equal(t, before, *flow)
	assert.Empty(t, flow.ID)
	assert.Empty(t, flow.Actions[0].ID)
}

func seedFlows(t *testing.T, repo *MemoryRepository, n int, companyID, userID string) {
	t.Helper()
	for i := 0; i < n; i++ {
		flow := validFlow()
		flow.Name = fmt.Sprintf("Flow %d", i)
		flow.CompanyID = companyID
		flow.CreatedBy = userID
		require.NoError(t, repo.CreateFlow(context.Background(), flow))
	}
}

func TestCheckUserLimits(t *testing.T) {
	tests := []struct {
		name        string
		scope       LimitScope
		seed        func(t *testing.T, repo *MemoryRepository)
		wantSuccess bool
	}{
		{
			name:        "Nine flows leaves room",
			seed:        func(t *testing.T, repo *MemoryRepository) { seedFlows(t, repo, 9, "company-1", "user-1") },
			wantSuccess: true,
		},
		{
			name: "Ten flows is the limit",
			seed: func(t *testing.T, repo *MemoryRepository) { seedFlows(t, repo, 10, "company-1", "user-1") },
		},
		{
			name: "Company scope counts every creator",
			seed: func(t *testing.T, repo *MemoryRepository) {
				seedFlows(t, repo, 5, "company-1", "user-1")
				seedFlows(t, repo, 5, "company-1", "user-2")
			},
		},
		{
			name:  "User scope counts only the caller",
			scope: LimitScopeUser,
			seed: func(t *testing.T, repo *MemoryRepository) {
				seedFlows(t, repo, 5, "company-1", "user-1")
				seedFlows(t, repo, 5, "company-1", "user-2")
			},
			wantSuccess: true,
		},
		{
			name:        "Other companies are not counted",
			seed:        func(t *testing.T, repo *MemoryRepository) { seedFlows(t, repo, 10, "company-2", "user-1") },
			wantSuccess: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := NewMemoryRepository()
			tt.seed(t, repo)
			validator := NewFlowValidator(repo, DefaultLimits(), tt.scope, nil)

			result := validator.CheckUserLimits(context.Background(), "user-1", "company-1")

			assert.Equal(t, tt.wantSuccess, result.Success)
			if !tt.wantSuccess {
				assert.Equal(t, "Maximum number of flows reached (10)", result.Message)
			}
		})
	}
}

func TestCheckExecutionLimits(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	seed := func(t *testing.T, repo *MemoryRepository, n int, companyID string, startedAt time.Time) {
		t.Helper()
		for i := 0; i < n; i++ {
			require.NoError(t, repo.CreateExecution(context.Background(), &AutomationExecution{
				FlowID:    "flow-1",
				CompanyID: companyID,
				Status:    ExecutionCompleted,
				StartedAt: startedAt,
			}))
		}
	}

	tests := []struct {
		name        string
		seed        func(t *testing.T, repo *MemoryRepository)
		wantSuccess bool
	}{
		{
			name:        "Ninety nine in the window",
			seed:        func(t *testing.T, repo *MemoryRepository) { seed(t, repo, 99, "company-1", now.Add(-10*time.Minute)) },
			wantSuccess: true,
		},
		{
			name: "One hundred in the window",
			seed: func(t *testing.T, repo *MemoryRepository) { seed(t, repo, 100, "company-1", now.Add(-10*time.Minute)) },
		},
		{
			name: "Old runs fall out of the window",
			seed: func(t *testing.T, repo *MemoryRepository) {
				seed(t, repo, 99, "company-1", now.Add(-30*time.Minute))
				seed(t, repo, 50, "company-1", now.Add(-61*time.Minute))
			},
			wantSuccess: true,
		},
		{
			name:        "Other companies are not counted",
			seed:        func(t *testing.T, repo *MemoryRepository) { seed(t, repo, 100, "company-2", now) },
			wantSuccess: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := NewMemoryRepository()
			tt.seed(t, repo)
			validator := NewFlowValidator(repo, DefaultLimits(), "", nil)
			validator.now = func() time.Time { return now }

			result := validator.CheckExecutionLimits(context.Background(), "user-1", "company-1")

			assert.Equal(t, tt.wantSuccess, result.Success)
			if !tt.wantSuccess {
				assert.Equal(t, "Execution limit reached: maximum 100 executions per hour", result.Message)
			}
		})
	}
}

type countErrorRepo struct {
	*MemoryRepository
}

func (r countErrorRepo) CountFlows(context.Context, FlowFilter) (int64, error) {
	return 0, errors.New("connection refused")
}

func (r countErrorRepo) CountExecutions(context.Context, ExecutionFilter) (int64, error) {
	return 0, errors.New("connection refused")
}

func TestLimitChecks_RepositoryError(t *testing.T) {
	validator := NewFlowValidator(countErrorRepo{NewMemoryRepository()}, DefaultLimits(), "", nil)

	flows := validator.CheckUserLimits(context.Background(), "user-1", "company-1")
	executions := validator.CheckExecutionLimits(context.Background(), "user-1", "company-1")

	assert.Equal(t, "Failed to check flow limits: connection refused", flows.Message)
	assert.Equal(t, "Failed to check execution limits: connection refused", executions.Message)
}
