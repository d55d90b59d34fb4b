package main

import (
	"context"
	"fmt"
	"log"
	"time"

	common_api "go-crm-automation/internal/common/api"
	"go-crm-automation/internal/config"
	"go-crm-automation/internal/database"
	"go-crm-automation/internal/features/audit"
	"go-crm-automation/internal/features/automation"
	"go-crm-automation/internal/features/calendar"
	"go-crm-automation/internal/features/email"
	"go-crm-automation/internal/features/notification"
	"go-crm-automation/internal/features/sms"
	"go-crm-automation/internal/features/system"
	"go-crm-automation/internal/logger"
	"go-crm-automation/internal/middleware"
	"go-crm-automation/pkg/utils"

	_ "go-crm-automation/docs" // Import swagger docs

	"github.com/gofiber/fiber/v2"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

// NewFiberServer creates a new Fiber app instance
func NewFiberServer() *fiber.App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	app.Use(middleware.CORSMiddleware())

	return app
}

// AsRoute tags the constructor so Fx adds it to the "routes" group.
func AsRoute(f any) any {
	return fx.Annotate(
		f,
		fx.As(new(common_api.Route)),
		fx.ResultTags(`group:"routes"`),
	)
}

// RegisterAllRoutes calls Setup() on every member of the "routes" group.
func RegisterAllRoutes(app *fiber.App, routes []common_api.Route, logger *zap.Logger) {
	logger.Info("registering routes", zap.Int("count", len(routes)))
	for _, route := range routes {
		logger.Debug("setting up route", zap.String("route", fmt.Sprintf("%T", route)))
		route.Setup(app)
	}
}

var RegisterAllRoutesWithAnnotation = fx.Annotate(
	RegisterAllRoutes,
	fx.ParamTags(``, `group:"routes"`, ``),
)

// StartServer starts Fiber in a goroutine and shuts it down when the app exits.
func StartServer(lc fx.Lifecycle, app *fiber.App, cfg *config.Config) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				port := fmt.Sprintf(":%s", cfg.Port)
				if err := app.Listen(port); err != nil {
					log.Fatalf("Server failed to start: %v", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return app.Shutdown()
		},
	})
}

// NewAutomationRepository picks the flow/execution store from AUTOMATION_STORE
func NewAutomationRepository(cfg *config.Config, mongodb *database.MongodbDB, postgres *database.PostgresDB, logger *zap.Logger) automation.AutomationRepository {
	if cfg.AutomationStore == "postgres" {
		return automation.NewPostgresRepository(postgres.DB, logger)
	}
	return automation.NewMongoAutomationRepository(mongodb)
}

// NewActionRegistry binds every capability service to its action kind
func NewActionRegistry(
	emailService *email.EmailServiceImpl,
	smsService *sms.SMSServiceImpl,
	calendarService calendar.CalendarService,
	notificationService notification.NotificationService,
	logger *zap.Logger,
) *automation.ExecutorRegistry {
	return automation.NewActionExecutors(emailService, smsService, calendarService, notificationService, logger)
}

func NewFlowValidator(cfg *config.Config, repo automation.AutomationRepository, registry *automation.ExecutorRegistry) *automation.FlowValidator {
	limits := automation.AutomationLimits{
		MaxFlowsPerUser:      cfg.Automation.MaxFlowsPerUser,
		MaxActionsPerFlow:    cfg.Automation.MaxActionsPerFlow,
		MaxExecutionsPerHour: cfg.Automation.MaxExecutionsPerHour,
		MaxChainDepth:        cfg.Automation.MaxChainDepth,
	}
	return automation.NewFlowValidator(repo, limits, automation.LimitScope(cfg.Automation.FlowLimitScope), registry)
}

func NewSimulatedDelay(cfg *config.Config) *automation.SimulatedDelay {
	return automation.NewSimulatedDelay(time.Duration(cfg.Automation.DelayCapSeconds) * time.Second)
}

func NewExecutionManager(
	repo automation.AutomationRepository,
	registry *automation.ExecutorRegistry,
	delay *automation.SimulatedDelay,
	hub *system.ExecutionHub,
	logger *zap.Logger,
) *automation.ExecutionManager {
	return automation.NewExecutionManager(repo, registry, delay, hub, logger)
}

func NewTriggerScheduler(repo automation.AutomationRepository, engine *automation.AutomationEngine, logger *zap.Logger) *automation.TriggerScheduler {
	return automation.NewTriggerScheduler(repo, engine, logger)
}

// PrepareAutomationStore creates Mongo indexes or runs Postgres migrations
// before the scheduler loads flows.
func PrepareAutomationStore(lc fx.Lifecycle, repo automation.AutomationRepository, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
			defer cancel()

			switch store := repo.(type) {
			case *automation.AutomationRepositoryImpl:
				if err := store.EnsureIndexes(ctx); err != nil {
					logger.Warn("failed to ensure automation indexes", zap.Error(err))
				}
			case *automation.PostgresRepository:
				if err := store.RunMigrations(ctx); err != nil {
					return fmt.Errorf("automation migrations: %w", err)
				}
			}
			return nil
		},
	})
}

func StartScheduler(lc fx.Lifecycle, scheduler *automation.TriggerScheduler) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return scheduler.Start(ctx)
		},
		OnStop: func(ctx context.Context) error {
			scheduler.Stop()
			return nil
		},
	})
}

// @title           CRM Automation API
// @version         1.0
// @description     Automation flow engine: flows, trigger dispatch and execution history.
// @host            localhost:8080
// @BasePath        /
func main() {
	app := fx.New(
		fx.Provide(
			config.LoadConfig,
			database.NewDatabase,
			database.NewPostgres,
			logger.NewLogger,
			NewFiberServer,

			// Capabilities
			email.NewEmailRepository,
			email.NewEmailService,
			sms.NewSMSRepository,
			sms.NewSMSService,
			calendar.NewCalendarRepository,
			calendar.NewCalendarService,
			calendar.NewCalendarController,
			notification.NewNotificationRepository,
			notification.NewNotificationService,
			notification.NewNotificationController,
			audit.NewAuditRepository,
			audit.NewAuditService,
			audit.NewAuditController,

			// Automation engine
			NewAutomationRepository,
			NewActionRegistry,
			NewFlowValidator,
			NewSimulatedDelay,
			NewExecutionManager,
			automation.NewAutomationEngine,
			NewTriggerScheduler,
			automation.NewAutomationService,
			automation.NewAutomationController,

			// System
			system.NewExecutionHub,
			system.NewWebSocketController,
			system.NewDebugController,

			// Routes
			AsRoute(automation.NewAutomationApi),
			AsRoute(notification.NewNotificationApi),
			AsRoute(calendar.NewCalendarApi),
			AsRoute(audit.NewAuditApi),
			AsRoute(system.NewHealthApi),
			AsRoute(system.NewDebugApi),
			AsRoute(system.NewSwaggerApi),
			AsRoute(system.NewWebSocketApi),
		),
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log}
		}),
		fx.Invoke(
			func(cfg *config.Config) { utils.SetSecret(cfg.JWTSecret) },
			RegisterAllRoutesWithAnnotation,
			PrepareAutomationStore,
			StartScheduler,
			StartServer,
		),
	)

	app.Run()
}
