package automation

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

const (
	defaultEmailSubject     = "Automated follow-up"
	defaultTaskDueHours     = 24
	defaultCalendarLead     = 24 * time.Hour
	defaultCalendarDuration = 30
)

// EmailSender delivers a single email and returns the provider message id.
type EmailSender interface {
	Send(ctx context.Context, to, subject, body string) (string, error)
}

// SMSSender delivers a single text message and returns the provider message id.
type SMSSender interface {
	Send(ctx context.Context, to, message string) (string, error)
}

// CalendarProvider creates a calendar event and returns its id.
type CalendarProvider interface {
	CreateEvent(ctx context.Context, summary, description string, start time.Time, durationMinutes int, attendees []string) (string, error)
}

// RecordSink persists task, note and call-reminder records for humans to pick up.
type RecordSink interface {
	CreateRecord(ctx context.Context, kind, userID, companyID, title, message string, data map[string]interface{}) (string, error)
}

// ActionExecutor performs the side effect of one action kind.
// Implementations report every failure through the result.
type ActionExecutor interface {
	Execute(ctx context.Context, action AutomationAction, vars map[string]interface{}, userID, companyID string) AutomationResult
}

// ActionDispatcher routes an action to the executor for its type.
type ActionDispatcher interface {
	Execute(ctx context.Context, action AutomationAction, vars map[string]interface{}, userID, companyID string) AutomationResult
}

type ExecutorRegistry struct {
	executors map[ActionType]ActionExecutor
}

func NewExecutorRegistry() *ExecutorRegistry {
	return &ExecutorRegistry{executors: make(map[ActionType]ActionExecutor)}
}

// NewActionExecutors registers the built-in executor for every action kind
func NewActionExecutors(email EmailSender, sms SMSSender, calendar CalendarProvider, sink RecordSink, logger *zap.Logger) *ExecutorRegistry {
	registry := NewExecutorRegistry()
	registry.Register(ActionEmail, &EmailExecutor{sender: email, logger: logger})
	registry.Register(ActionSMS, &SMSExecutor{sender: sms, logger: logger})
	registry.Register(ActionTask, &TaskExecutor{sink: sink, now: time.Now})
	registry.Register(ActionNote, &NoteExecutor{sink: sink})
	registry.Register(ActionCall, &CallExecutor{sink: sink})
	registry.Register(ActionCalendar, &CalendarExecutor{provider: calendar, now: time.Now})
	return registry
}

func (r *ExecutorRegistry) Register(actionType ActionType, executor ActionExecutor) {
	r.executors[actionType] = executor
}

func (r *ExecutorRegistry) Supports(actionType ActionType) bool {
	_, ok := r.executors[actionType]
	return ok
}

func (r *ExecutorRegistry) Execute(ctx context.Context, action AutomationAction, vars map[string]interface{}, userID, companyID string) AutomationResult {
	executor, ok := r.executors[action.Type]
	if !ok {
		return failureResult(fmt.Sprintf("Unknown action type: %s", action.Type))
	}
	return executor.Execute(ctx, action, vars, userID, companyID)
}

type EmailExecutor struct {
	sender EmailSender
	logger *zap.Logger
}

func (e *EmailExecutor) Execute(ctx context.Context, action AutomationAction, vars map[string]interface{}, userID, companyID string) AutomationResult {
	to := firstString(vars, "email", "leadEmail")
	if to == "" {
		return actionFailed("Email", "No email address available")
	}

	subject := Interpolate(metaString(action.Metadata, "subject"), vars)
	if subject == "" {
		subject = defaultEmailSubject
	}

	body := Interpolate(action.Content, vars)
	if override := metaString(action.Metadata, "body"); override != "" {
		body = Interpolate(override, vars)
	}

	messageID, err := e.sender.Send(ctx, to, subject, body)
	if err != nil {
		return actionFailed("Email", err.Error())
	}

	e.logger.Debug("automation email sent", zap.String("to", to), zap.String("message_id", messageID))
	return successResult(fmt.Sprintf("Email sent to %s", to), map[string]interface{}{
		"messageId": messageID,
		"to":        to,
	})
}

type SMSExecutor struct {
	sender SMSSender
	logger *zap.Logger
}

func (e *SMSExecutor) Execute(ctx context.Context, action AutomationAction, vars map[string]interface{}, userID, companyID string) AutomationResult {
	phone := firstString(vars, "phone")
	if phone == "" {
		return actionSkipped("SMS", "No phone number available")
	}

	messageID, err := e.sender.Send(ctx, phone, Interpolate(action.Content, vars))
	if err != nil {
		return actionFailed("SMS", err.Error())
	}

	e.logger.Debug("automation sms sent", zap.String("to", phone), zap.String("message_id", messageID))
	return successResult(fmt.Sprintf("SMS sent to %s", phone), map[string]interface{}{
		"messageId": messageID,
		"to":        phone,
	})
}

type TaskExecutor struct {
	sink RecordSink
	now  func() time.Time
}

func (e *TaskExecutor) Execute(ctx context.Context, action AutomationAction, vars map[string]interface{}, userID, companyID string) AutomationResult {
	description := Interpolate(action.Content, vars)

	dueHours := float64(defaultTaskDueHours)
	if h, ok := toFloat(action.Metadata["dueInHours"]); ok && h > 0 {
		dueHours = h
	}
	dueAt := e.now().Add(time.Duration(dueHours * float64(time.Hour)))

	title := Interpolate(metaString(action.Metadata, "title"), vars)
	if title == "" {
		title = "Follow-up task"
	}

	taskID, err := e.sink.CreateRecord(ctx, "task", userID, companyID, title, description, map[string]interface{}{
		"leadId":   vars["leadId"],
		"dueAt":    dueAt,
		"priority": metaString(action.Metadata, "priority"),
	})
	if err != nil {
		return actionFailed("Task", err.Error())
	}

	return successResult("Task created", map[string]interface{}{"taskId": taskID, "dueAt": dueAt})
}

type NoteExecutor struct {
	sink RecordSink
}

func (e *NoteExecutor) Execute(ctx context.Context, action AutomationAction, vars map[string]interface{}, userID, companyID string) AutomationResult {
	content := Interpolate(action.Content, vars)

	noteID, err := e.sink.CreateRecord(ctx, "note", userID, companyID, "Automation note", content, map[string]interface{}{
		"leadId": vars["leadId"],
	})
	if err != nil {
		return actionFailed("Note", err.Error())
	}

	return successResult("Note added", map[string]interface{}{"noteId": noteID})
}

type CallExecutor struct {
	sink RecordSink
}

func (e *CallExecutor) Execute(ctx context.Context, action AutomationAction, vars map[string]interface{}, userID, companyID string) AutomationResult {
	phone := firstString(vars, "phone")
	if phone == "" {
		return actionSkipped("Call", "No phone number available")
	}

	message := fmt.Sprintf("%s (%s)", Interpolate(action.Content, vars), phone)

	reminderID, err := e.sink.CreateRecord(ctx, "call_reminder", userID, companyID, "Call reminder", message, map[string]interface{}{
		"leadId": vars["leadId"],
		"phone":  phone,
	})
	if err != nil {
		return actionFailed("Call", err.Error())
	}

	return successResult(fmt.Sprintf("Call reminder created for %s", phone), map[string]interface{}{"reminderId": reminderID})
}

type CalendarExecutor struct {
	provider CalendarProvider
	now      func() time.Time
}

func (e *CalendarExecutor) Execute(ctx context.Context, action AutomationAction, vars map[string]interface{}, userID, companyID string) AutomationResult {
	start := e.now().Add(defaultCalendarLead)
	if raw := Interpolate(metaString(action.Metadata, "start"), vars); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return actionFailed("Calendar", fmt.Sprintf("invalid start time %q", raw))
		}
		start = parsed
	}

	duration := defaultCalendarDuration
	if d, ok := toFloat(action.Metadata["duration"]); ok && d > 0 {
		duration = int(d)
	}

	var attendees []string
	if email := firstString(vars, "email", "leadEmail"); email != "" {
		attendees = append(attendees, email)
	}

	summary := Interpolate(action.Content, vars)
	description := Interpolate(metaString(action.Metadata, "description"), vars)

	eventID, err := e.provider.CreateEvent(ctx, summary, description, start, duration, attendees)
	if err != nil {
		return actionFailed("Calendar", err.Error())
	}

	return successResult("Calendar event created", map[string]interface{}{
		"eventId":  eventID,
		"start":    start,
		"duration": duration,
	})
}

func actionFailed(kind, reason string) AutomationResult {
	return failureResult(fmt.Sprintf("%s action failed: %s", kind, reason))
}

func actionSkipped(kind, reason string) AutomationResult {
	return AutomationResult{
		Success: false,
		Message: fmt.Sprintf("%s action skipped: %s", kind, reason),
		Skipped: true,
	}
}

func firstString(vars map[string]interface{}, keys ...string) string {
	for _, key := range keys {
		if v, ok := vars[key]; ok && v != nil {
			if s := fmt.Sprint(v); s != "" {
				return s
			}
		}
	}
	return ""
}

func metaString(meta map[string]interface{}, key string) string {
	if meta == nil {
		return ""
	}
	if s, ok := meta[key].(string); ok {
		return s
	}
	return ""
}
