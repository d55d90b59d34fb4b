package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"go-crm-automation/internal/config"
	"go-crm-automation/internal/database"
	"go-crm-automation/internal/features/automation"
	"go-crm-automation/internal/features/calendar"
	"go-crm-automation/internal/features/email"
	"go-crm-automation/internal/features/notification"
	"go-crm-automation/internal/features/sms"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

func hours(h float64) *float64 { return &h }

// demoFlows is a small lead-nurture set covering every action kind
func demoFlows(companyID, userID string) []*automation.AutomationFlow {
	return []*automation.AutomationFlow{
		{
			Name:        "New lead welcome",
			Description: "Welcome email, follow-up task and a discovery call slot",
			Trigger:     automation.FlowTrigger{Type: automation.TriggerLeadCreated},
			Actions: []automation.AutomationAction{
				{
					Type:    automation.ActionEmail,
					Content: "Hi {{name}}, thanks for your interest in {{product}}. We'll be in touch shortly.",
					Metadata: map[string]interface{}{
						"subject": "Welcome, {{name}}",
					},
				},
				{
					Type:    automation.ActionTask,
					Content: "Qualify {{name}} ({{email}}), budget {{budget}}",
					Delay:   hours(0),
					Metadata: map[string]interface{}{
						"title":      "Qualify new lead",
						"dueInHours": 4,
						"priority":   "high",
					},
				},
				{
					Type:    automation.ActionCalendar,
					Content: "Discovery call with {{name}}",
					Conditions: []automation.Condition{
						{Field: "budget", Operator: automation.OperatorGreaterThan, Value: 1000},
					},
					Metadata: map[string]interface{}{"duration": 45},
				},
				{
					Type:    automation.ActionSMS,
					Content: "Hi {{name}}, your account manager will call you today.",
				},
			},
			IsActive:       true,
			ContinueOnSkip: true,
			CompanyID:      companyID,
			CreatedBy:      userID,
			Industry:       "saas",
		},
		{
			Name:    "Missed call follow-up",
			Trigger: automation.FlowTrigger{Type: automation.TriggerCallCompleted, Conditions: []automation.Condition{{Field: "outcome", Operator: automation.OperatorEquals, Value: "no_answer"}}},
			Actions: []automation.AutomationAction{
				{Type: automation.ActionNote, Content: "Call to {{name}} went unanswered"},
				{Type: automation.ActionCall, Content: "Retry call to {{name}}"},
			},
			IsActive:  true,
			CompanyID: companyID,
			CreatedBy: userID,
		},
		{
			Name:    "Weekly pipeline digest",
			Trigger: automation.FlowTrigger{Type: automation.TriggerTimeBased, Schedule: "0 8 * * 1"},
			Actions: []automation.AutomationAction{
				{Type: automation.ActionNote, Content: "Weekly pipeline review for {{companyId}}"},
			},
			IsActive:  true,
			CompanyID: companyID,
			CreatedBy: userID,
		},
	}
}

func main() {
	companyID := flag.String("company", "dev-company-id", "company to seed flows for")
	userID := flag.String("user", "dev-admin-id", "user the flows are created by")
	run := flag.Bool("run", true, "execute the welcome flow once after seeding")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatal(err)
	}
	defer client.Disconnect(context.Background())

	mongoDB := &database.MongodbDB{DB: client.Database(cfg.DBName)}

	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	repo := automation.NewMongoAutomationRepository(mongoDB)
	if err := repo.EnsureIndexes(ctx); err != nil {
		log.Fatalf("failed to ensure indexes: %v", err)
	}

	registry := automation.NewActionExecutors(
		email.NewEmailService(cfg, email.NewEmailRepository(mongoDB), logger),
		sms.NewSMSService(cfg, sms.NewSMSRepository(mongoDB), logger),
		calendar.NewCalendarService(calendar.NewCalendarRepository(mongoDB)),
		notification.NewNotificationService(notification.NewNotificationRepository(mongoDB)),
		logger,
	)
	limits := automation.AutomationLimits{
		MaxFlowsPerUser:      cfg.Automation.MaxFlowsPerUser,
		MaxActionsPerFlow:    cfg.Automation.MaxActionsPerFlow,
		MaxExecutionsPerHour: cfg.Automation.MaxExecutionsPerHour,
		MaxChainDepth:        cfg.Automation.MaxChainDepth,
	}
	validator := automation.NewFlowValidator(repo, limits, automation.LimitScope(cfg.Automation.FlowLimitScope), registry)
	delay := automation.NewSimulatedDelay(time.Duration(cfg.Automation.DelayCapSeconds) * time.Second)
	manager := automation.NewExecutionManager(repo, registry, delay, nil, logger)
	engine := automation.NewAutomationEngine(repo, validator, manager, logger)

	fmt.Println("Seeding demo automation flows...")

	var welcomeID string
	for _, flow := range demoFlows(*companyID, *userID) {
		result := engine.CreateAutomationFlow(ctx, flow)
		if !result.Success {
			fmt.Printf("  skipped %q: %s\n", flow.Name, result.Message)
			continue
		}
		fmt.Printf("  created %q (%s)\n", flow.Name, flow.ID)
		if flow.Trigger.Type == automation.TriggerLeadCreated {
			welcomeID = flow.ID
		}
	}

	if !*run || welcomeID == "" {
		return
	}

	fmt.Println("Running the welcome flow for a demo lead...")
	result := engine.ExecuteFlow(ctx, welcomeID, map[string]interface{}{
		"leadId":  "demo-lead-1",
		"name":    "Jane Doe",
		"email":   "jane@example.com",
		"product": "Rich CRM",
		"budget":  5000,
	}, *userID, *companyID)

	fmt.Printf("  success=%v message=%q\n", result.Success, result.Message)
	for _, warning := range result.Warnings {
		fmt.Printf("  warning: %s\n", warning)
	}
}
