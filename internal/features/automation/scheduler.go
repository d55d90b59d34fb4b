package automation

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// FlowRunner executes a stored flow. Satisfied by *AutomationEngine.
type FlowRunner interface {
	ExecuteFlow(ctx context.Context, flowID string, triggerData map[string]interface{}, userID, companyID string) AutomationResult
}

// TriggerScheduler fires active time_based flows on their cron schedule.
type TriggerScheduler struct {
	repo   AutomationRepository
	runner FlowRunner
	logger *zap.Logger

	scheduler *cron.Cron
	entries   map[string]cron.EntryID
	mu        sync.Mutex
}

func NewTriggerScheduler(repo AutomationRepository, runner FlowRunner, logger *zap.Logger) *TriggerScheduler {
	return &TriggerScheduler{
		repo:      repo,
		runner:    runner,
		logger:    logger,
		scheduler: cron.New(),
		entries:   make(map[string]cron.EntryID),
	}
}

// Start registers every active time_based flow and starts the cron loop
func (s *TriggerScheduler) Start(ctx context.Context) error {
	flows, err := s.repo.ListFlows(ctx, FlowFilter{TriggerType: TriggerTimeBased, ActiveOnly: true})
	if err != nil {
		return fmt.Errorf("failed to load time based flows: %w", err)
	}

	for i := range flows {
		if err := s.Register(&flows[i]); err != nil {
			s.logger.Warn("failed to schedule automation flow", zap.String("flow_id", flows[i].ID), zap.Error(err))
		}
	}

	s.scheduler.Start()
	s.logger.Info("automation scheduler started", zap.Int("flows", len(flows)))
	return nil
}

func (s *TriggerScheduler) Stop() {
	done := s.scheduler.Stop()
	<-done.Done()
}

// Register schedules a flow, replacing any earlier entry for the same flow.
// Flows that are inactive or not time_based are ignored.
func (s *TriggerScheduler) Register(flow *AutomationFlow) error {
	if flow.Trigger.Type != TriggerTimeBased || !flow.IsActive {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if entryID, ok := s.entries[flow.ID]; ok {
		s.scheduler.Remove(entryID)
		delete(s.entries, flow.ID)
	}

	flowID := flow.ID
	entryID, err := s.scheduler.AddFunc(flow.Trigger.Schedule, func() { s.fire(flowID) })
	if err != nil {
		return fmt.Errorf("failed to add flow to scheduler: %w", err)
	}
	s.entries[flowID] = entryID
	return nil
}

func (s *TriggerScheduler) Unregister(flowID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entryID, ok := s.entries[flowID]; ok {
		s.scheduler.Remove(entryID)
		delete(s.entries, flowID)
	}
}

// Scheduled reports whether the flow currently has a cron entry
func (s *TriggerScheduler) Scheduled(flowID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries[flowID]
	return ok
}

func (s *TriggerScheduler) fire(flowID string) {
	ctx := context.Background()

	// Re-read so a flow deactivated since registration does not run
	flow, err := s.repo.GetFlow(ctx, flowID)
	if err != nil || !flow.IsActive {
		return
	}

	result := s.runner.ExecuteFlow(ctx, flow.ID, map[string]interface{}{"trigger": string(TriggerTimeBased)}, flow.CreatedBy, flow.CompanyID)
	if !result.Success {
		s.logger.Warn("scheduled automation flow failed",
			zap.String("flow_id", flow.ID),
			zap.String("company_id", flow.CompanyID),
			zap.String("reason", result.Message),
		)
	}
}
