package automation

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

type CreateFlowRequest struct {
	Name           string                 `json:"name" validate:"required,max=200"`
	Description    string                 `json:"description" validate:"max=1000"`
	Trigger        FlowTrigger            `json:"trigger"`
	Actions        []AutomationAction     `json:"actions" validate:"dive"`
	IsActive       bool                   `json:"is_active"`
	ContinueOnSkip bool                   `json:"continue_on_skip"`
	Industry       string                 `json:"industry" validate:"max=100"`
	Metadata       map[string]interface{} `json:"metadata"`
}

func (r CreateFlowRequest) toFlow(userID, companyID string) *AutomationFlow {
	return &AutomationFlow{
		Name:           strings.TrimSpace(r.Name),
		Description:    r.Description,
		Trigger:        r.Trigger,
		Actions:        r.Actions,
		IsActive:       r.IsActive,
		ContinueOnSkip: r.ContinueOnSkip,
		CompanyID:      companyID,
		CreatedBy:      userID,
		Industry:       r.Industry,
		Metadata:       r.Metadata,
	}
}

type SetActiveRequest struct {
	IsActive *bool `json:"is_active" validate:"required"`
}

type ExecuteFlowRequest struct {
	TriggerData map[string]interface{} `json:"trigger_data"`
}

type TriggerEventRequest struct {
	Type TriggerType            `json:"type" validate:"required"`
	Data map[string]interface{} `json:"data"`
}

// validationMessage flattens validator errors into one readable line
func validationMessage(err error) string {
	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return err.Error()
	}

	parts := make([]string, 0, len(validationErrors))
	for _, fieldErr := range validationErrors {
		parts = append(parts, fmt.Sprintf("%s failed on %s", fieldErr.Field(), fieldErr.Tag()))
	}
	return strings.Join(parts, "; ")
}
