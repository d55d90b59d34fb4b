package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	JWTSecret   string
	MongoURI    string
	DBName      string
	SkipAuth    bool
	Environment string
	AppId       string

	// AutomationStore selects the flow/execution backend: "mongo" or "postgres"
	AutomationStore string
	PostgresDSN     string

	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	SMTPFrom     string

	SMSGatewayURL string
	SMSAPIKey     string
	SMSFrom       string

	Automation AutomationConfig
}

// AutomationConfig carries the engine limits and runtime policy.
type AutomationConfig struct {
	MaxFlowsPerUser      int
	MaxActionsPerFlow    int
	MaxExecutionsPerHour int
	MaxChainDepth        int
	FlowLimitScope       string // "company" or "user"
	DelayCapSeconds      int
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	} else {
		log.Println("Loaded .env file successfully")
	}

	return &Config{
		Port:        getEnv("PORT", "8080"),
		JWTSecret:   getEnv("JWT_SECRET", "secret"),
		MongoURI:    getEnv("MONGO_URI", "mongodb://localhost:27017"),
		DBName:      getEnv("DB_NAME", "go-crm"),
		SkipAuth:    getEnv("SKIP_AUTH", "false") == "true",
		Environment: getEnv("ENVIRONMENT", "development"),
		AppId:       getEnv("APP_ID", "go-crm-automation"),

		AutomationStore: getEnv("AUTOMATION_STORE", "mongo"),
		PostgresDSN:     getEnv("POSTGRES_DSN", ""),

		SMTPHost:     getEnv("SMTP_HOST", ""),
		SMTPPort:     getEnvInt("SMTP_PORT", 587),
		SMTPUser:     getEnv("SMTP_USER", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),
		SMTPFrom:     getEnv("SMTP_FROM", ""),

		SMSGatewayURL: getEnv("SMS_GATEWAY_URL", ""),
		SMSAPIKey:     getEnv("SMS_API_KEY", ""),
		SMSFrom:       getEnv("SMS_FROM", ""),

		Automation: AutomationConfig{
			MaxFlowsPerUser:      getEnvInt("AUTOMATION_MAX_FLOWS_PER_USER", 10),
			MaxActionsPerFlow:    getEnvInt("AUTOMATION_MAX_ACTIONS_PER_FLOW", 10),
			MaxExecutionsPerHour: getEnvInt("AUTOMATION_MAX_EXECUTIONS_PER_HOUR", 100),
			MaxChainDepth:        getEnvInt("AUTOMATION_MAX_CHAIN_DEPTH", 3),
			FlowLimitScope:       getEnv("AUTOMATION_FLOW_LIMIT_SCOPE", "company"),
			DelayCapSeconds:      getEnvInt("AUTOMATION_DELAY_CAP_SECONDS", 5),
		},
	}, nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("Invalid integer for %s=%q, using %d", key, value, fallback)
		return fallback
	}
	return n
}
