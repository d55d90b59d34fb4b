package automation

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type runnerCall struct {
	FlowID, UserID, CompanyID string
	TriggerData               map[string]interface{}
}

type fakeRunner struct {
	mu    sync.Mutex
	calls []runnerCall
}

func (r *fakeRunner) ExecuteFlow(_ context.Context, flowID string, triggerData map[string]interface{}, userID, companyID string) AutomationResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, runnerCall{FlowID: flowID, UserID: userID, CompanyID: companyID, TriggerData: triggerData})
	return successResult("ok", nil)
}

func scheduledFlow(active bool) *AutomationFlow {
	return &AutomationFlow{
		Name:      "Weekly digest",
		Trigger:   FlowTrigger{Type: TriggerTimeBased, Schedule: "0 8 * * 1"},
		Actions:   []AutomationAction{{Type: ActionNote, Content: "digest"}},
		IsActive:  active,
		CompanyID: "company-1",
		CreatedBy: "user-1",
	}
}

func TestTriggerScheduler_Register(t *testing.T) {
	tests := []struct {
		name    string
		flow    *AutomationFlow
		wantErr bool
		want    bool
	}{
		{name: "Active time based flow", flow: scheduledFlow(true), want: true},
		{name: "Inactive flow is ignored", flow: scheduledFlow(false), want: false},
		{name: "Event triggered flow is ignored", flow: validFlow(), want: false},
		{
			name: "Bad schedule",
			flow: func() *AutomationFlow {
				f := scheduledFlow(true)
				f.Trigger.Schedule = "not a schedule"
				return f
			}(),
			wantErr: true,
			want:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scheduler := NewTriggerScheduler(NewMemoryRepository(), &fakeRunner{}, zap.NewNop())
			tt.flow.ID = "flow-1"

			err := scheduler.Register(tt.flow)

			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.want, scheduler.Scheduled("flow-1"))
		})
	}
}

func TestTriggerScheduler_ReRegisterAndUnregister(t *testing.T) {
	scheduler := NewTriggerScheduler(NewMemoryRepository(), &fakeRunner{}, zap.NewNop())
	flow := scheduledFlow(true)
	flow.ID = "flow-1"

	require.NoError(t, scheduler.Register(flow))
	require.NoError(t, scheduler.Register(flow))
	assert.Len(t, scheduler.scheduler.Entries(), 1)

	scheduler.Unregister("flow-1")
	assert.False(t, scheduler.Scheduled("flow-1"))
	assert.Empty(t, scheduler.scheduler.Entries())
}

func TestTriggerScheduler_StartLoadsActiveFlows(t *testing.T) {
	repo := NewMemoryRepository()
	active := scheduledFlow(true)
	inactive := scheduledFlow(false)
	event := validFlow()
	event.IsActive = true
	for _, flow := range []*AutomationFlow{active, inactive, event} {
		require.NoError(t, repo.CreateFlow(context.Background(), flow))
	}

	scheduler := NewTriggerScheduler(repo, &fakeRunner{}, zap.NewNop())
	require.NoError(t, scheduler.Start(context.Background()))
	defer scheduler.Stop()

	assert.True(t, scheduler.Scheduled(active.ID))
	assert.False(t, scheduler.Scheduled(inactive.ID))
	assert.False(t, scheduler.Scheduled(event.ID))
}

func TestTriggerScheduler_Fire(t *testing.T) {
	repo := NewMemoryRepository()
	runner := &fakeRunner{}
	scheduler := NewTriggerScheduler(repo, runner, zap.NewNop())

	active := scheduledFlow(true)
	require.NoError(t, repo.CreateFlow(context.Background(), active))
	paused := scheduledFlow(true)
	require.NoError(t, repo.CreateFlow(context.Background(), paused))
	require.NoError(t, repo.SetFlowActive(context.Background(), paused.ID, false))

	scheduler.fire(active.ID)
	scheduler.fire(paused.ID)
	scheduler.fire("deleted")

	require.Len(t, runner.calls, 1)
	call := runner.calls[0]
	assert.Equal(t, active.ID, call.FlowID)
	assert.Equal(t, "user-1", call.UserID)
	assert.Equal(t, "company-1", call.CompanyID)
	assert.Equal(t, map[string]interface{}{"trigger": "time_based"}, call.TriggerData)
}
