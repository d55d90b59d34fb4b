package database

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"go-crm-automation/internal/config"

	_ "github.com/lib/pq"
	"go.uber.org/fx"
)

// PostgresDB is only connected when AUTOMATION_STORE=postgres; DB is nil otherwise.
type PostgresDB struct {
	DB *sql.DB
}

// NewPostgres opens the Postgres pool used by the alternate automation store
func NewPostgres(lc fx.Lifecycle, cfg *config.Config) (*PostgresDB, error) {
	if cfg.AutomationStore != "postgres" {
		return &PostgresDB{}, nil
	}
	if cfg.PostgresDSN == "" {
		return nil, fmt.Errorf("POSTGRES_DSN is required when AUTOMATION_STORE=postgres")
	}

	db, err := sql.Open("postgres", cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetConnMaxIdleTime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	log.Println("Connected to Postgres!")

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			log.Println("Closing Postgres pool...")
			return db.Close()
		},
	})

	return &PostgresDB{DB: db}, nil
}
