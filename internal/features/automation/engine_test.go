package automation

import (
	"context"
	"errors"
	"testing"
	"time"

	"go-crm-automation/internal/features/calendar"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestAutomationEngine_CreateAndExecute(t *testing.T) {
	h := newTestHarness(t)
	flow := h.storeFlow(t, &AutomationFlow{
		Name:    "New lead welcome",
		Trigger: FlowTrigger{Type: TriggerLeadCreated},
		Actions: []AutomationAction{
			{Type: ActionEmail, Content: "Hi {{name}}, budget {{budget}}"},
			{Type: ActionTask, Content: "Follow up with {{name}}", Delay: floatPtr(0)},
		},
		IsActive: true,
	})

	require.NotEmpty(t, flow.ID)
	for _, action := range flow.Actions {
		assert.NotEmpty(t, action.ID)
	}

	result := h.engine.ExecuteFlow(context.Background(), flow.ID, map[string]interface{}{
		"leadId": "lead-1",
		"name":   "Jane",
		"email":  "jane@example.com",
		"budget": 500,
	}, "user-1", "company-1")

	require.True(t, result.Success, result.Message)
	assert.Equal(t, "Flow executed successfully", result.Message)
	assert.Equal(t, map[string]interface{}{"executedActions": 2}, result.Data)
	assert.Empty(t, h.sleep.waits)

	require.Len(t, h.email.sent, 1)
	assert.Equal(t, "Hi Jane, budget 500", h.email.sent[0].Body)
	require.Len(t, h.sink.records, 1)
	assert.Equal(t, "task", h.sink.records[0].Kind)
	assert.Equal(t, "Follow up with Jane", h.sink.records[0].Message)
	assert.Equal(t, "lead-1", h.sink.records[0].Data["leadId"])

	executions, err := h.repo.ListExecutions(context.Background(), ExecutionFilter{FlowID: flow.ID})
	require.NoError(t, err)
	require.Len(t, executions, 1)
	execution := executions[0]
	assert.Equal(t, ExecutionCompleted, execution.Status)
	assert.Equal(t, "lead-1", execution.LeadID)
	assert.Equal(t, "user-1", execution.UserID)
	assert.Equal(t, "company-1", execution.CompanyID)
	assert.NotNil(t, execution.CompletedAt)
	require.Len(t, execution.Logs, 2)
	assert.Equal(t, "email:"+flow.Actions[0].ID, execution.Logs[0].Action)
	assert.Equal(t, "task:"+flow.Actions[1].ID, execution.Logs[1].Action)
}

func TestAutomationEngine_ExecuteFlow_NotFound(t *testing.T) {
	tests := []struct {
		name      string
		flowID    func(h *testHarness, t *testing.T) string
		companyID string
	}{
		{
			name:      "Unknown id",
			flowID:    func(*testHarness, *testing.T) string { return "missing" },
			companyID: "company-1",
		},
		{
			name: "Flow of another company",
			flowID: func(h *testHarness, t *testing.T) string {
				return h.storeFlow(t, validFlow()).ID
			},
			companyID: "company-2",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHarness(t)
			flowID := tt.flowID(h, t)

			result := h.engine.ExecuteFlow(context.Background(), flowID, map[string]interface{}{}, "user-1", tt.companyID)

			assert.False(t, result.Success)
			assert.Equal(t, "Flow not found", result.Message)
			count, err := h.repo.CountExecutions(context.Background(), ExecutionFilter{})
			require.NoError(t, err)
			assert.Zero(t, count)
		})
	}
}

func TestAutomationEngine_ExecuteFlow_RateLimited(t *testing.T) {
	h := newTestHarness(t)
	flow := h.storeFlow(t, validFlow())
	for i := 0; i < 100; i++ {
		require.NoError(t, h.repo.CreateExecution(context.Background(), &AutomationExecution{
			FlowID:    flow.ID,
			CompanyID: "company-1",
			StartedAt: time.Now().Add(-time.Minute),
		}))
	}

	result := h.engine.ExecuteFlow(context.Background(), flow.ID, map[string]interface{}{"email": "jane@example.com"}, "user-1", "company-1")

	assert.False(t, result.Success)
	assert.Equal(t, "Execution limit reached: maximum 100 executions per hour", result.Message)
	assert.Empty(t, h.email.sent)
}

func TestAutomationEngine_CreateAutomationFlow(t *testing.T) {
	t.Run("Returns the new id", func(t *testing.T) {
		h := newTestHarness(t)
		flow := validFlow()

		result := h.engine.CreateAutomationFlow(context.Background(), flow)

		require.True(t, result.Success)
		assert.Equal(t, "Flow created successfully", result.Message)
		assert.Equal(t, map[string]interface{}{"flowId": flow.ID}, result.Data)
		stored, err := h.repo.GetFlow(context.Background(), flow.ID)
		require.NoError(t, err)
		assert.Equal(t, flow.Name, stored.Name)
	})

	t.Run("Invalid flow is not stored", func(t *testing.T) {
		h := newTestHarness(t)
		flow := validFlow()
		flow.Name = ""

		result := h.engine.CreateAutomationFlow(context.Background(), flow)

		assert.False(t, result.Success)
		assert.Equal(t, "Flow name is required", result.Message)
		count, err := h.repo.CountFlows(context.Background(), FlowFilter{})
		require.NoError(t, err)
		assert.Zero(t, count)
	})

	t.Run("Flow limit is checked first", func(t *testing.T) {
		h := newTestHarness(t)
		seedFlows(t, h.repo, 10, "company-1", "user-1")
		flow := validFlow()
		flow.Name = ""

		result := h.engine.CreateAutomationFlow(context.Background(), flow)

		assert.Equal(t, "Maximum number of flows reached (10)", result.Message)
	})

	t.Run("Nested actions get ids", func(t *testing.T) {
		h := newTestHarness(t)
		flow := validFlow()
		flow.Actions = nestedActions(2)

		result := h.engine.CreateAutomationFlow(context.Background(), flow)

		require.True(t, result.Success)
		assert.NotEmpty(t, flow.Actions[0].ID)
		assert.NotEmpty(t, flow.Actions[0].NextActions[0].ID)
	})
}

type createErrorRepo struct {
	*MemoryRepository
}

func (createErrorRepo) CreateFlow(context.Context, *AutomationFlow) error {
	return errors.New("duplicate key")
}

func TestAutomationEngine_CreateAutomationFlow_StoreError(t *testing.T) {
	h := newTestHarness(t)
	repo := createErrorRepo{h.repo}
	engine := NewAutomationEngine(repo, NewFlowValidator(repo, DefaultLimits(), "", nil), h.manager, h.engine.logger)

	result := engine.CreateAutomationFlow(context.Background(), validFlow())

	assert.False(t, result.Success)
	assert.Equal(t, "Failed to create flow: duplicate key", result.Message)
}

func TestBuildVars(t *testing.T) {
	flow := &AutomationFlow{ID: "flow-1", Name: "Welcome"}
	execution := &AutomationExecution{ID: "exec-1", UserID: "user-1", CompanyID: "company-1", LeadID: "lead-9"}

	vars := buildVars(map[string]interface{}{"name": "Jane"}, flow, execution)

	assert.Equal(t, map[string]interface{}{
		"name":        "Jane",
		"userId":      "user-1",
		"companyId":   "company-1",
		"flowId":      "flow-1",
		"flowName":    "Welcome",
		"executionId": "exec-1",
		"leadId":      "lead-9",
	}, vars)
}

type storedEvents struct {
	events []*calendar.CalendarEvent
}

func (s *storedEvents) Create(_ context.Context, event *calendar.CalendarEvent) error {
	s.events = append(s.events, event)
	return nil
}

func (s *storedEvents) ListBetween(context.Context, string, time.Time, time.Time) ([]calendar.CalendarEvent, error) {
	return nil, nil
}

func TestAutomationEngine_ExecuteFlowWithoutRequestIdentity(t *testing.T) {
	events := &storedEvents{}
	logger := zap.NewNop()
	repo := NewMemoryRepository()
	registry := NewActionExecutors(&fakeEmailSender{}, &fakeSMSSender{}, calendar.NewCalendarService(events), &fakeSink{}, logger)
	validator := NewFlowValidator(repo, DefaultLimits(), LimitScopeCompany, registry)
	manager := NewExecutionManager(repo, registry, NewSimulatedDelay(time.Second), nil, logger)
	engine := NewAutomationEngine(repo, validator, manager, logger)

	flow := &AutomationFlow{
		Name:      "Scheduled demo booking",
		CompanyID: "company-1",
		CreatedBy: "user-1",
		Trigger:   FlowTrigger{Type: TriggerLeadCreated},
		Actions:   []AutomationAction{{Type: ActionCalendar, Content: "Demo call"}},
	}
	require.True(t, engine.CreateAutomationFlow(context.Background(), flow).Success)

	result := engine.ExecuteFlow(context.Background(), flow.ID, map[string]interface{}{}, "user-1", "company-1")

	require.True(t, result.Success, result.Message)
	require.Len(t, events.events, 1)
	assert.Equal(t, "company-1", events.events[0].CompanyID)
	assert.Equal(t, "user-1", events.events[0].OwnerID)
}
