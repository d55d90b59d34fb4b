package automation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
)

type sentEmail struct {
	To, Subject, Body string
}

type fakeEmailSender struct {
	mu   sync.Mutex
	sent []sentEmail
	err  error
}

func (f *fakeEmailSender) Send(_ context.Context, to, subject, body string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.sent = append(f.sent, sentEmail{To: to, Subject: subject, Body: body})
	return "msg-1", nil
}

type fakeSMSSender struct {
	sent []string
	err  error
}

func (f *fakeSMSSender) Send(_ context.Context, to, message string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.sent = append(f.sent, to+": "+message)
	return "sms-1", nil
}

type createdEvent struct {
	Summary   string
	Start     time.Time
	Duration  int
	Attendees []string
}

type fakeCalendar struct {
	events []createdEvent
	err    error
}

func (f *fakeCalendar) CreateEvent(_ context.Context, summary, _ string, start time.Time, durationMinutes int, attendees []string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.events = append(f.events, createdEvent{Summary: summary, Start: start, Duration: durationMinutes, Attendees: attendees})
	return "event-1", nil
}

type sinkRecord struct {
	Kind, UserID, CompanyID, Title, Message string
	Data                                    map[string]interface{}
}

type fakeSink struct {
	records []sinkRecord
	err     error
}

func (f *fakeSink) CreateRecord(_ context.Context, kind, userID, companyID, title, message string, data map[string]interface{}) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.records = append(f.records, sinkRecord{Kind: kind, UserID: userID, CompanyID: companyID, Title: title, Message: message, Data: data})
	return kind + "-1", nil
}

// countingExecutor records calls and returns a canned result
type countingExecutor struct {
	calls  int
	result AutomationResult
	panics interface{}
}

func (e *countingExecutor) Execute(context.Context, AutomationAction, map[string]interface{}, string, string) AutomationResult {
	e.calls++
	if e.panics != nil {
		panic(e.panics)
	}
	return e.result
}

// scriptedDispatcher returns results in order, one per call
type scriptedDispatcher struct {
	results []AutomationResult
	calls   []AutomationAction
}

func (d *scriptedDispatcher) Execute(_ context.Context, action AutomationAction, _ map[string]interface{}, _, _ string) AutomationResult {
	d.calls = append(d.calls, action)
	if len(d.calls) > len(d.results) {
		return successResult("ok", nil)
	}
	return d.results[len(d.calls)-1]
}

// failingUpdateRepo fails UpdateExecution once the call count passes failAfter
type failingUpdateRepo struct {
	*MemoryRepository
	failAfter int
	updates   int
}

func (r *failingUpdateRepo) UpdateExecution(ctx context.Context, id string, update ExecutionUpdate) error {
	r.updates++
	if r.updates > r.failAfter {
		return errors.New("write timeout")
	}
	return r.MemoryRepository.UpdateExecution(ctx, id, update)
}

type recordedObserver struct {
	mu     sync.Mutex
	events []ExecutionEvent
}

func (o *recordedObserver) OnExecutionEvent(event ExecutionEvent) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = append(o.events, event)
}

type recordingSleep struct {
	waits []time.Duration
	err   error
}

func (s *recordingSleep) sleep(_ context.Context, d time.Duration) error {
	s.waits = append(s.waits, d)
	return s.err
}

type testHarness struct {
	repo     *MemoryRepository
	email    *fakeEmailSender
	sms      *fakeSMSSender
	calendar *fakeCalendar
	sink     *fakeSink
	registry *ExecutorRegistry
	sleep    *recordingSleep
	observer *recordedObserver
	engine   *AutomationEngine
	manager  *ExecutionManager
	validate *FlowValidator
}

func newTestHarness(t *testing.T) *testHarness {
	t.Helper()

	h := &testHarness{
		repo:     NewMemoryRepository(),
		email:    &fakeEmailSender{},
		sms:      &fakeSMSSender{},
		calendar: &fakeCalendar{},
		sink:     &fakeSink{},
		sleep:    &recordingSleep{},
		observer: &recordedObserver{},
	}
	logger := zap.NewNop()
	h.registry = NewActionExecutors(h.email, h.sms, h.calendar, h.sink, logger)
	h.validate = NewFlowValidator(h.repo, DefaultLimits(), LimitScopeCompany, h.registry)

	delay := NewSimulatedDelay(5 * time.Second)
	delay.Sleep = h.sleep.sleep
	h.manager = NewExecutionManager(h.repo, h.registry, delay, h.observer, logger)
	h.engine = NewAutomationEngine(h.repo, h.validate, h.manager, logger)
	return h
}

func (h *testHarness) storeFlow(t *testing.T, flow *AutomationFlow) *AutomationFlow {
	t.Helper()
	if flow.CompanyID == "" {
		flow.CompanyID = "company-1"
	}
	if flow.CreatedBy == "" {
		flow.CreatedBy = "user-1"
	}
	res := h.engine.CreateAutomationFlow(context.Background(), flow)
	if !res.Success {
		t.Fatalf("failed to create flow: %s", res.Message)
	}
	return flow
}

func floatPtr(v float64) *float64 { return &v }

func boolPtr(v bool) *bool { return &v }
