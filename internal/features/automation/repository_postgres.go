package automation

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

func automationMigrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE automation_flows (
				id VARCHAR(64) PRIMARY KEY,
				company_id VARCHAR(255) NOT NULL,
				created_by VARCHAR(255) NOT NULL,
				name VARCHAR(255) NOT NULL,
				trigger_type VARCHAR(50) NOT NULL,
				is_active BOOLEAN NOT NULL DEFAULT false,
				definition JSONB NOT NULL,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);
			CREATE INDEX idx_automation_flows_company ON automation_flows(company_id, created_by);
			CREATE INDEX idx_automation_flows_trigger ON automation_flows(company_id, trigger_type, is_active);

			CREATE TABLE automation_executions (
				id VARCHAR(64) PRIMARY KEY,
				flow_id VARCHAR(64) NOT NULL,
				lead_id VARCHAR(255),
				user_id VARCHAR(255) NOT NULL,
				company_id VARCHAR(255) NOT NULL,
				status VARCHAR(20) NOT NULL,
				current_action_index INT NOT NULL DEFAULT 0,
				started_at TIMESTAMP WITH TIME ZONE NOT NULL,
				completed_at TIMESTAMP WITH TIME ZONE,
				error_message TEXT,
				logs JSONB NOT NULL DEFAULT '[]',
				trigger_data JSONB DEFAULT '{}'
			);
			CREATE INDEX idx_automation_executions_company_started ON automation_executions(company_id, started_at DESC);
			CREATE INDEX idx_automation_executions_flow ON automation_executions(flow_id, started_at DESC);
		`,
	}
}

// PostgresRepository stores flows as JSONB documents next to the
// columns the limit checks filter on.
type PostgresRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewPostgresRepository(db *sql.DB, logger *zap.Logger) *PostgresRepository {
	return &PostgresRepository{db: db, logger: logger}
}

// RunMigrations applies every migration newer than the recorded schema version
func (r *PostgresRepository) RunMigrations(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS automation_schema_migrations (
			version INT PRIMARY KEY,
			applied_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
		)`)
	if err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	var current int
	if err := r.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM automation_schema_migrations`).Scan(&current); err != nil {
		return fmt.Errorf("failed to get current schema version: %w", err)
	}

	migrations := automationMigrations()
	versions := make([]int, 0, len(migrations))
	for v := range migrations {
		versions = append(versions, v)
	}
	sort.Ints(versions)

	for _, version := range versions {
		if version <= current {
			continue
		}
		tx, err := r.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin migration %d: %w", version, err)
		}
		if _, err := tx.ExecContext(ctx, migrations[version]); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to apply migration %d: %w", version, err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO automation_schema_migrations (version) VALUES ($1)`, version); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", version, err)
		}
		r.logger.Info("applied automation migration", zap.Int("version", version))
	}
	return nil
}

func (r *PostgresRepository) CreateFlow(ctx context.Context, flow *AutomationFlow) error {
	flow.ID = uuid.NewString()
	now := time.Now()
	flow.CreatedAt = now
	flow.UpdatedAt = now

	definition, err := json.Marshal(flow)
	if err != nil {
		return fmt.Errorf("failed to marshal flow: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO automation_flows (id, company_id, created_by, name, trigger_type, is_active, definition, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		flow.ID, flow.CompanyID, flow.CreatedBy, flow.Name, flow.Trigger.Type, flow.IsActive, definition, flow.CreatedAt, flow.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert flow: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetFlow(ctx context.Context, id string) (*AutomationFlow, error) {
	row := r.db.QueryRowContext(ctx, `SELECT definition, is_active, updated_at FROM automation_flows WHERE id = $1`, id)

	flow, err := scanFlow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrFlowNotFound
		}
		return nil, fmt.Errorf("failed to scan flow: %w", err)
	}
	return flow, nil
}

func (r *PostgresRepository) ListFlows(ctx context.Context, filter FlowFilter) ([]AutomationFlow, error) {
	where, args := flowWhere(filter)
	rows, err := r.db.QueryContext(ctx, `SELECT definition, is_active, updated_at FROM automation_flows`+where+` ORDER BY created_at DESC`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query flows: %w", err)
	}
	defer rows.Close()

	var flows []AutomationFlow
	for rows.Next() {
		flow, err := scanFlow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan flow: %w", err)
		}
		flows = append(flows, *flow)
	}
	return flows, rows.Err()
}

func (r *PostgresRepository) CountFlows(ctx context.Context, filter FlowFilter) (int64, error) {
	where, args := flowWhere(filter)
	var count int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM automation_flows`+where, args...).Scan(&count)
	return count, err
}

func (r *PostgresRepository) SetFlowActive(ctx context.Context, id string, active bool) error {
	res, err := r.db.ExecContext(ctx, `UPDATE automation_flows SET is_active = $1, updated_at = NOW() WHERE id = $2`, active, id)
	if err != nil {
		return fmt.Errorf("failed to update flow: %w", err)
	}
	return requireAffected(res, ErrFlowNotFound)
}

func (r *PostgresRepository) DeleteFlow(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM automation_flows WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete flow: %w", err)
	}
	return requireAffected(res, ErrFlowNotFound)
}

func (r *PostgresRepository) CreateExecution(ctx context.Context, execution *AutomationExecution) error {
	execution.ID = uuid.NewString()
	if execution.Logs == nil {
		execution.Logs = []AutomationLog{}
	}

	logsJSON, err := json.Marshal(execution.Logs)
	if err != nil {
		return fmt.Errorf("failed to marshal logs: %w", err)
	}
	triggerJSON, err := json.Marshal(execution.TriggerData)
	if err != nil {
		return fmt.Errorf("failed to marshal trigger data: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO automation_executions (
			id, flow_id, lead_id, user_id, company_id, status, current_action_index,
			started_at, completed_at, error_message, logs, trigger_data
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		execution.ID, execution.FlowID, execution.LeadID, execution.UserID, execution.CompanyID,
		execution.Status, execution.CurrentActionIndex, execution.StartedAt, execution.CompletedAt,
		execution.ErrorMessage, logsJSON, triggerJSON)
	if err != nil {
		return fmt.Errorf("failed to insert execution: %w", err)
	}
	return nil
}

func (r *PostgresRepository) UpdateExecution(ctx context.Context, id string, update ExecutionUpdate) error {
	var sets []string
	var args []interface{}
	add := func(column string, value interface{}) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if update.Status != nil {
		add("status", *update.Status)
	}
	if update.CurrentActionIndex != nil {
		add("current_action_index", *update.CurrentActionIndex)
	}
	if update.CompletedAt != nil {
		add("completed_at", *update.CompletedAt)
	}
	if update.ErrorMessage != nil {
		add("error_message", *update.ErrorMessage)
	}
	if update.Logs != nil {
		logsJSON, err := json.Marshal(update.Logs)
		if err != nil {
			return fmt.Errorf("failed to marshal logs: %w", err)
		}
		add("logs", logsJSON)
	}
	if len(sets) == 0 {
		return nil
	}

	args = append(args, id)
	query := fmt.Sprintf(`UPDATE automation_executions SET %s WHERE id = $%d`, strings.Join(sets, ", "), len(args))
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update execution: %w", err)
	}
	return requireAffected(res, ErrExecutionNotFound)
}

const executionColumns = `id, flow_id, COALESCE(lead_id, ''), user_id, company_id, status, current_action_index,
	started_at, completed_at, COALESCE(error_message, ''), logs, trigger_data`

func (r *PostgresRepository) GetExecution(ctx context.Context, id string) (*AutomationExecution, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+executionColumns+` FROM automation_executions WHERE id = $1`, id)

	execution, err := scanExecution(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrExecutionNotFound
		}
		return nil, fmt.Errorf("failed to scan execution: %w", err)
	}
	return execution, nil
}

func (r *PostgresRepository) ListExecutions(ctx context.Context, filter ExecutionFilter) ([]AutomationExecution, error) {
	where, args := executionWhere(filter)
	query := `SELECT ` + executionColumns + ` FROM automation_executions` + where + ` ORDER BY started_at DESC`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query executions: %w", err)
	}
	defer rows.Close()

	var executions []AutomationExecution
	for rows.Next() {
		execution, err := scanExecution(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan execution: %w", err)
		}
		executions = append(executions, *execution)
	}
	return executions, rows.Err()
}

func (r *PostgresRepository) CountExecutions(ctx context.Context, filter ExecutionFilter) (int64, error) {
	where, args := executionWhere(filter)
	var count int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM automation_executions`+where, args...).Scan(&count)
	return count, err
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanFlow(row rowScanner) (*AutomationFlow, error) {
	var definition []byte
	var active bool
	var updatedAt time.Time
	if err := row.Scan(&definition, &active, &updatedAt); err != nil {
		return nil, err
	}

	var flow AutomationFlow
	if err := json.Unmarshal(definition, &flow); err != nil {
		return nil, fmt.Errorf("failed to unmarshal flow definition: %w", err)
	}
	// is_active and updated_at change without rewriting the definition
	flow.IsActive = active
	flow.UpdatedAt = updatedAt
	return &flow, nil
}

func scanExecution(row rowScanner) (*AutomationExecution, error) {
	var execution AutomationExecution
	var completedAt sql.NullTime
	var logsJSON, triggerJSON []byte

	err := row.Scan(
		&execution.ID, &execution.FlowID, &execution.LeadID, &execution.UserID, &execution.CompanyID,
		&execution.Status, &execution.CurrentActionIndex, &execution.StartedAt, &completedAt,
		&execution.ErrorMessage, &logsJSON, &triggerJSON,
	)
	if err != nil {
		return nil, err
	}

	if completedAt.Valid {
		execution.CompletedAt = &completedAt.Time
	}
	if err := json.Unmarshal(logsJSON, &execution.Logs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal logs: %w", err)
	}
	if len(triggerJSON) > 0 {
		if err := json.Unmarshal(triggerJSON, &execution.TriggerData); err != nil {
			return nil, fmt.Errorf("failed to unmarshal trigger data: %w", err)
		}
	}
	return &execution, nil
}

func flowWhere(filter FlowFilter) (string, []interface{}) {
	var clauses []string
	var args []interface{}
	if filter.CompanyID != "" {
		args = append(args, filter.CompanyID)
		clauses = append(clauses, fmt.Sprintf("company_id = $%d", len(args)))
	}
	if filter.CreatedBy != "" {
		args = append(args, filter.CreatedBy)
		clauses = append(clauses, fmt.Sprintf("created_by = $%d", len(args)))
	}
	if filter.TriggerType != "" {
		args = append(args, filter.TriggerType)
		clauses = append(clauses, fmt.Sprintf("trigger_type = $%d", len(args)))
	}
	if filter.ActiveOnly {
		clauses = append(clauses, "is_active = true")
	}
	return joinWhere(clauses), args
}

func executionWhere(filter ExecutionFilter) (string, []interface{}) {
	var clauses []string
	var args []interface{}
	if filter.CompanyID != "" {
		args = append(args, filter.CompanyID)
		clauses = append(clauses, fmt.Sprintf("company_id = $%d", len(args)))
	}
	if filter.FlowID != "" {
		args = append(args, filter.FlowID)
		clauses = append(clauses, fmt.Sprintf("flow_id = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		clauses = append(clauses, fmt.Sprintf("status = $%d", len(args)))
	}
	if !filter.Since.IsZero() {
		args = append(args, filter.Since)
		clauses = append(clauses, fmt.Sprintf("started_at >= $%d", len(args)))
	}
	return joinWhere(clauses), args
}

func joinWhere(clauses []string) string {
	if len(clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(clauses, " AND ")
}

func requireAffected(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}
