package automation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRepository_Executions(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	for i, status := range []ExecutionStatus{ExecutionCompleted, ExecutionFailed, ExecutionCompleted} {
		require.NoError(t, repo.CreateExecution(ctx, &AutomationExecution{
			FlowID:    "flow-1",
			CompanyID: "company-1",
			Status:    status,
			StartedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}
	require.NoError(t, repo.CreateExecution(ctx, &AutomationExecution{FlowID: "flow-2", CompanyID: "company-2", StartedAt: base}))

	all, err := repo.ListExecutions(ctx, ExecutionFilter{CompanyID: "company-1"})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.True(t, all[0].StartedAt.After(all[1].StartedAt), "newest first")

	limited, err := repo.ListExecutions(ctx, ExecutionFilter{CompanyID: "company-1", Limit: 2})
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	failed, err := repo.CountExecutions(ctx, ExecutionFilter{Status: ExecutionFailed})
	require.NoError(t, err)
	assert.Equal(t, int64(1), failed)

	recent, err := repo.CountExecutions(ctx, ExecutionFilter{CompanyID: "company-1", Since: base.Add(time.Minute)})
	require.NoError(t, err)
	assert.Equal(t, int64(2), recent)
}

func TestMemoryRepository_UpdateExecution(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	execution := &AutomationExecution{FlowID: "flow-1", Status: ExecutionPending, ErrorMessage: "keep"}
	require.NoError(t, repo.CreateExecution(ctx, execution))

	running := ExecutionRunning
	index := 2
	require.NoError(t, repo.UpdateExecution(ctx, execution.ID, ExecutionUpdate{Status: &running, CurrentActionIndex: &index}))

	stored, err := repo.GetExecution(ctx, execution.ID)
	require.NoError(t, err)
	assert.Equal(t, ExecutionRunning, stored.Status)
	assert.Equal(t, 2, stored.CurrentActionIndex)
	assert.Equal(t, "keep", stored.ErrorMessage)
	assert.Nil(t, stored.CompletedAt)

	assert.ErrorIs(t, repo.UpdateExecution(ctx, "missing", ExecutionUpdate{Status: &running}), ErrExecutionNotFound)
}

func TestMemoryRepository_Flows(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	flow := validFlow()
	require.NoError(t, repo.CreateFlow(ctx, flow))
	require.NotEmpty(t, flow.ID)
	assert.False(t, flow.CreatedAt.IsZero())

	active, err := repo.CountFlows(ctx, FlowFilter{ActiveOnly: true})
	require.NoError(t, err)
	assert.Zero(t, active)

	require.NoError(t, repo.SetFlowActive(ctx, flow.ID, true))
	active, err = repo.CountFlows(ctx, FlowFilter{ActiveOnly: true, TriggerType: TriggerLeadCreated})
	require.NoError(t, err)
	assert.Equal(t, int64(1), active)

	require.NoError(t, repo.DeleteFlow(ctx, flow.ID))
	_, err = repo.GetFlow(ctx, flow.ID)
	assert.ErrorIs(t, err, ErrFlowNotFound)
	assert.ErrorIs(t, repo.DeleteFlow(ctx, flow.ID), ErrFlowNotFound)
	assert.ErrorIs(t, repo.SetFlowActive(ctx, flow.ID, true), ErrFlowNotFound)
}

func TestFlowWhere(t *testing.T) {
	tests := []struct {
		name      string
		filter    FlowFilter
		wantWhere string
		wantArgs  []interface{}
	}{
		{name: "No filter", filter: FlowFilter{}, wantWhere: "", wantArgs: nil},
		{
			name:      "Company and creator",
			filter:    FlowFilter{CompanyID: "company-1", CreatedBy: "user-1"},
			wantWhere: " WHERE company_id = $1 AND created_by = $2",
			wantArgs:  []interface{}{"company-1", "user-1"},
		},
		{
			name:      "Active trigger lookup",
			filter:    FlowFilter{CompanyID: "company-1", TriggerType: TriggerLeadCreated, ActiveOnly: true},
			wantWhere: " WHERE company_id = $1 AND trigger_type = $2 AND is_active = true",
			wantArgs:  []interface{}{"company-1", TriggerLeadCreated},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			where, args := flowWhere(tt.filter)
			assert.Equal(t, tt.wantWhere, where)
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}

func TestExecutionWhere(t *testing.T) {
	since := time.Date(2026, 3, 1, 11, 0, 0, 0, time.UTC)

	where, args := executionWhere(ExecutionFilter{CompanyID: "company-1", Status: ExecutionFailed, Since: since})

	assert.Equal(t, " WHERE company_id = $1 AND status = $2 AND started_at >= $3", where)
	assert.Equal(t, []interface{}{"company-1", ExecutionFailed, since}, args)
}

func TestAutomationMigrations(t *testing.T) {
	migrations := automationMigrations()
	for version := 1; version <= len(migrations); version++ {
		_, ok := migrations[version]
		assert.True(t, ok, "missing migration %d", version)
	}
	assert.Contains(t, migrations[1], "CREATE TABLE automation_flows")
	assert.Contains(t, migrations[1], "CREATE TABLE automation_executions")
}
