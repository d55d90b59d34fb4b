package automation

import (
	"time"
)

type TriggerType string

const (
	TriggerLeadCreated   TriggerType = "lead_created"
	TriggerLeadUpdated   TriggerType = "lead_updated"
	TriggerCallCompleted TriggerType = "call_completed"
	TriggerEmailOpened   TriggerType = "email_opened"
	TriggerCustom        TriggerType = "custom"
	TriggerTimeBased     TriggerType = "time_based"
)

var knownTriggers = map[TriggerType]bool{
	TriggerLeadCreated:   true,
	TriggerLeadUpdated:   true,
	TriggerCallCompleted: true,
	TriggerEmailOpened:   true,
	TriggerCustom:        true,
	TriggerTimeBased:     true,
}

type ActionType string

const (
	ActionEmail    ActionType = "email"
	ActionSMS      ActionType = "sms"
	ActionTask     ActionType = "task"
	ActionNote     ActionType = "note"
	ActionCall     ActionType = "call"
	ActionCalendar ActionType = "calendar"
)

type ConditionOperator string

const (
	OperatorEquals      ConditionOperator = "equals"
	OperatorContains    ConditionOperator = "contains"
	OperatorGreaterThan ConditionOperator = "greater_than"
	OperatorLessThan    ConditionOperator = "less_than"
	OperatorExists      ConditionOperator = "exists"
)

type Condition struct {
	Field    string            `json:"field" bson:"field"`
	Operator ConditionOperator `json:"operator" bson:"operator"`
	Value    interface{}       `json:"value,omitempty" bson:"value,omitempty"`
}

type FlowTrigger struct {
	Type       TriggerType `json:"type" bson:"type"`
	Conditions []Condition `json:"conditions" bson:"conditions"`
	Delay      *float64    `json:"delay,omitempty" bson:"delay,omitempty"`       // hours
	Schedule   string      `json:"schedule,omitempty" bson:"schedule,omitempty"` // cron expression, time_based only
}

// AutomationAction is one step of a flow. NextActions is stored and
// validated for depth but never executed.
type AutomationAction struct {
	ID             string                 `json:"id" bson:"id"`
	Type           ActionType             `json:"type" bson:"type"`
	Content        string                 `json:"content" bson:"content"`
	Delay          *float64               `json:"delay,omitempty" bson:"delay,omitempty"` // hours
	Conditions     []Condition            `json:"conditions,omitempty" bson:"conditions,omitempty"`
	Metadata       map[string]interface{} `json:"metadata,omitempty" bson:"metadata,omitempty"`
	NextActions    []AutomationAction     `json:"next_actions,omitempty" bson:"next_actions,omitempty"`
	ContinueOnSkip *bool                  `json:"continue_on_skip,omitempty" bson:"continue_on_skip,omitempty"`
}

type AutomationFlow struct {
	ID             string                 `json:"id" bson:"_id"`
	Name           string                 `json:"name" bson:"name"`
	Description    string                 `json:"description,omitempty" bson:"description,omitempty"`
	Trigger        FlowTrigger            `json:"trigger" bson:"trigger"`
	Actions        []AutomationAction     `json:"actions" bson:"actions"`
	IsActive       bool                   `json:"is_active" bson:"is_active"`
	ContinueOnSkip bool                   `json:"continue_on_skip" bson:"continue_on_skip"`
	CompanyID      string                 `json:"company_id" bson:"company_id"`
	CreatedBy      string                 `json:"created_by" bson:"created_by"`
	Industry       string                 `json:"industry,omitempty" bson:"industry,omitempty"`
	Metadata       map[string]interface{} `json:"metadata,omitempty" bson:"metadata,omitempty"`
	CreatedAt      time.Time              `json:"created_at" bson:"created_at"`
	UpdatedAt      time.Time              `json:"updated_at" bson:"updated_at"`
}

type ExecutionStatus string

const (
	ExecutionPending   ExecutionStatus = "pending"
	ExecutionRunning   ExecutionStatus = "running"
	ExecutionCompleted ExecutionStatus = "completed"
	ExecutionFailed    ExecutionStatus = "failed"
	ExecutionSkipped   ExecutionStatus = "skipped"
)

type LogStatus string

const (
	LogSuccess LogStatus = "success"
	LogError   LogStatus = "error"
	LogWarning LogStatus = "warning"
	LogInfo    LogStatus = "info"
)

type AutomationLog struct {
	Timestamp time.Time   `json:"timestamp" bson:"timestamp"`
	Action    string      `json:"action" bson:"action"` // "<type>:<id>"
	Status    LogStatus   `json:"status" bson:"status"`
	Message   string      `json:"message" bson:"message"`
	Data      interface{} `json:"data,omitempty" bson:"data,omitempty"`
}

type AutomationExecution struct {
	ID                 string                 `json:"id" bson:"_id"`
	FlowID             string                 `json:"flow_id" bson:"flow_id"`
	LeadID             string                 `json:"lead_id,omitempty" bson:"lead_id,omitempty"`
	UserID             string                 `json:"user_id" bson:"user_id"`
	CompanyID          string                 `json:"company_id" bson:"company_id"`
	Status             ExecutionStatus        `json:"status" bson:"status"`
	CurrentActionIndex int                    `json:"current_action_index" bson:"current_action_index"`
	StartedAt          time.Time              `json:"started_at" bson:"started_at"`
	CompletedAt        *time.Time             `json:"completed_at,omitempty" bson:"completed_at,omitempty"`
	ErrorMessage       string                 `json:"error_message,omitempty" bson:"error_message,omitempty"`
	Logs               []AutomationLog        `json:"logs" bson:"logs"`
	TriggerData        map[string]interface{} `json:"trigger_data,omitempty" bson:"trigger_data,omitempty"`
}

// ExecutionUpdate is a partial update; nil fields are left untouched.
type ExecutionUpdate struct {
	Status             *ExecutionStatus
	CurrentActionIndex *int
	CompletedAt        *time.Time
	ErrorMessage       *string
	Logs               []AutomationLog
}

// AutomationResult is the only shape callers of the engine branch on.
type AutomationResult struct {
	Success  bool        `json:"success"`
	Message  string      `json:"message"`
	Data     interface{} `json:"data,omitempty"`
	Warnings []string    `json:"warnings,omitempty"`
	// Skipped marks a soft skip: the action declined for missing input
	Skipped bool `json:"skipped,omitempty"`
}

type LimitScope string

const (
	LimitScopeCompany LimitScope = "company"
	LimitScopeUser    LimitScope = "user"
)

type AutomationLimits struct {
	MaxFlowsPerUser      int `json:"max_flows_per_user"`
	MaxActionsPerFlow    int `json:"max_actions_per_flow"`
	MaxExecutionsPerHour int `json:"max_executions_per_hour"`
	MaxChainDepth        int `json:"max_chain_depth"`
}

func DefaultLimits() AutomationLimits {
	return AutomationLimits{
		MaxFlowsPerUser:      10,
		MaxActionsPerFlow:    10,
		MaxExecutionsPerHour: 100,
		MaxChainDepth:        3,
	}
}

// TriggerEvent is something that happened in the CRM which may start flows.
type TriggerEvent struct {
	Type      TriggerType            `json:"type"`
	CompanyID string                 `json:"company_id"`
	UserID    string                 `json:"user_id"`
	Data      map[string]interface{} `json:"data"`
}

type DispatchResult struct {
	FlowID   string           `json:"flow_id"`
	FlowName string           `json:"flow_name"`
	Result   AutomationResult `json:"result"`
}

func successResult(message string, data interface{}) AutomationResult {
	return AutomationResult{Success: true, Message: message, Data: data}
}

func failureResult(message string) AutomationResult {
	return AutomationResult{Success: false, Message: message}
}
