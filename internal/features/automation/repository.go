package automation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go-crm-automation/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	ErrFlowNotFound      = errors.New("flow not found")
	ErrExecutionNotFound = errors.New("execution not found")
)

type FlowFilter struct {
	CompanyID   string
	CreatedBy   string
	TriggerType TriggerType
	ActiveOnly  bool
}

type ExecutionFilter struct {
	CompanyID string
	FlowID    string
	Status    ExecutionStatus
	Since     time.Time
	Limit     int64
}

// AutomationRepository persists flows and executions. Executions are
// written by one run only, so updates never contend across runs.
type AutomationRepository interface {
	CreateFlow(ctx context.Context, flow *AutomationFlow) error
	GetFlow(ctx context.Context, id string) (*AutomationFlow, error)
	ListFlows(ctx context.Context, filter FlowFilter) ([]AutomationFlow, error)
	CountFlows(ctx context.Context, filter FlowFilter) (int64, error)
	SetFlowActive(ctx context.Context, id string, active bool) error
	DeleteFlow(ctx context.Context, id string) error

	CreateExecution(ctx context.Context, execution *AutomationExecution) error
	UpdateExecution(ctx context.Context, id string, update ExecutionUpdate) error
	GetExecution(ctx context.Context, id string) (*AutomationExecution, error)
	ListExecutions(ctx context.Context, filter ExecutionFilter) ([]AutomationExecution, error)
	CountExecutions(ctx context.Context, filter ExecutionFilter) (int64, error)
}

type AutomationRepositoryImpl struct {
	Flows      *mongo.Collection
	Executions *mongo.Collection
}

func NewMongoAutomationRepository(mongodb *database.MongodbDB) *AutomationRepositoryImpl {
	return &AutomationRepositoryImpl{
		Flows:      mongodb.DB.Collection("automation_flows"),
		Executions: mongodb.DB.Collection("automation_executions"),
	}
}

// EnsureIndexes creates the indexes backing the limit checks
func (r *AutomationRepositoryImpl) EnsureIndexes(ctx context.Context) error {
	_, err := r.Flows.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "company_id", Value: 1}, {Key: "created_by", Value: 1}}},
		{Keys: bson.D{{Key: "company_id", Value: 1}, {Key: "trigger.type", Value: 1}, {Key: "is_active", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create flow indexes: %w", err)
	}

	_, err = r.Executions.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "company_id", Value: 1}, {Key: "started_at", Value: -1}}},
		{Keys: bson.D{{Key: "flow_id", Value: 1}, {Key: "started_at", Value: -1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create execution indexes: %w", err)
	}
	return nil
}

func (r *AutomationRepositoryImpl) CreateFlow(ctx context.Context, flow *AutomationFlow) error {
	flow.ID = primitive.NewObjectID().Hex()
	now := time.Now()
	flow.CreatedAt = now
	flow.UpdatedAt = now
	_, err := r.Flows.InsertOne(ctx, flow)
	return err
}

func (r *AutomationRepositoryImpl) GetFlow(ctx context.Context, id string) (*AutomationFlow, error) {
	var flow AutomationFlow
	err := r.Flows.FindOne(ctx, bson.M{"_id": id}).Decode(&flow)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrFlowNotFound
		}
		return nil, err
	}
	return &flow, nil
}

func (r *AutomationRepositoryImpl) ListFlows(ctx context.Context, filter FlowFilter) ([]AutomationFlow, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := r.Flows.Find(ctx, flowQuery(filter), opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var flows []AutomationFlow
	if err = cursor.All(ctx, &flows); err != nil {
		return nil, err
	}
	return flows, nil
}

func (r *AutomationRepositoryImpl) CountFlows(ctx context.Context, filter FlowFilter) (int64, error) {
	return r.Flows.CountDocuments(ctx, flowQuery(filter))
}

func (r *AutomationRepositoryImpl) SetFlowActive(ctx context.Context, id string, active bool) error {
	res, err := r.Flows.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"is_active": active, "updated_at": time.Now()}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrFlowNotFound
	}
	return nil
}

func (r *AutomationRepositoryImpl) DeleteFlow(ctx context.Context, id string) error {
	res, err := r.Flows.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrFlowNotFound
	}
	return nil
}

func (r *AutomationRepositoryImpl) CreateExecution(ctx context.Context, execution *AutomationExecution) error {
	execution.ID = primitive.NewObjectID().Hex()
	if execution.Logs == nil {
		execution.Logs = []AutomationLog{}
	}
	_, err := r.Executions.InsertOne(ctx, execution)
	return err
}

func (r *AutomationRepositoryImpl) UpdateExecution(ctx context.Context, id string, update ExecutionUpdate) error {
	set := bson.M{}
	if update.Status != nil {
		set["status"] = *update.Status
	}
	if update.CurrentActionIndex != nil {
		set["current_action_index"] = *update.CurrentActionIndex
	}
	if update.CompletedAt != nil {
		set["completed_at"] = *update.CompletedAt
	}
	if update.ErrorMessage != nil {
		set["error_message"] = *update.ErrorMessage
	}
	if update.Logs != nil {
		set["logs"] = update.Logs
	}
	if len(set) == 0 {
		return nil
	}

	res, err := r.Executions.UpdateByID(ctx, id, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrExecutionNotFound
	}
	return nil
}

func (r *AutomationRepositoryImpl) GetExecution(ctx context.Context, id string) (*AutomationExecution, error) {
	var execution AutomationExecution
	err := r.Executions.FindOne(ctx, bson.M{"_id": id}).Decode(&execution)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrExecutionNotFound
		}
		return nil, err
	}
	return &execution, nil
}

func (r *AutomationRepositoryImpl) ListExecutions(ctx context.Context, filter ExecutionFilter) ([]AutomationExecution, error) {
	opts := options.Find().SetSort(bson.D{{Key: "started_at", Value: -1}})
	if filter.Limit > 0 {
		opts.SetLimit(filter.Limit)
	}

	cursor, err := r.Executions.Find(ctx, executionQuery(filter), opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var executions []AutomationExecution
	if err = cursor.All(ctx, &executions); err != nil {
		return nil, err
	}
	return executions, nil
}

func (r *AutomationRepositoryImpl) CountExecutions(ctx context.Context, filter ExecutionFilter) (int64, error) {
	return r.Executions.CountDocuments(ctx, executionQuery(filter))
}

func flowQuery(filter FlowFilter) bson.M {
	query := bson.M{}
	if filter.CompanyID != "" {
		query["company_id"] = filter.CompanyID
	}
	if filter.CreatedBy != "" {
		query["created_by"] = filter.CreatedBy
	}
	if filter.TriggerType != "" {
		query["trigger.type"] = filter.TriggerType
	}
	if filter.ActiveOnly {
		query["is_active"] = true
	}
	return query
}

func executionQuery(filter ExecutionFilter) bson.M {
	query := bson.M{}
	if filter.CompanyID != "" {
		query["company_id"] = filter.CompanyID
	}
	if filter.FlowID != "" {
		query["flow_id"] = filter.FlowID
	}
	if filter.Status != "" {
		query["status"] = filter.Status
	}
	if !filter.Since.IsZero() {
		query["started_at"] = bson.M{"$gte": filter.Since}
	}
	return query
}
