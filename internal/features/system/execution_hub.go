package system

import (
	"sync"

	"go-crm-automation/internal/features/automation"

	"go.uber.org/zap"
)

const subscriberBuffer = 64

// ExecutionHub fans execution progress out to websocket subscribers of the
// same company. Slow subscribers lose events instead of stalling a run.
type ExecutionHub struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan automation.ExecutionEvent]struct{}
	logger      *zap.Logger
}

func NewExecutionHub(logger *zap.Logger) *ExecutionHub {
	return &ExecutionHub{
		subscribers: make(map[string]map[chan automation.ExecutionEvent]struct{}),
		logger:      logger,
	}
}

func (h *ExecutionHub) OnExecutionEvent(event automation.ExecutionEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for ch := range h.subscribers[event.CompanyID] {
		select {
		case ch <- event:
		default:
			h.logger.Debug("dropping execution event for slow subscriber", zap.String("execution_id", event.ExecutionID))
		}
	}
}

// Subscribe returns a channel of the company's events and a function that
// releases it. The channel is closed on release.
func (h *ExecutionHub) Subscribe(companyID string) (<-chan automation.ExecutionEvent, func()) {
	ch := make(chan automation.ExecutionEvent, subscriberBuffer)

	h.mu.Lock()
	if h.subscribers[companyID] == nil {
		h.subscribers[companyID] = make(map[chan automation.ExecutionEvent]struct{})
	}
	h.subscribers[companyID][ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subscribers[companyID], ch)
			if len(h.subscribers[companyID]) == 0 {
				delete(h.subscribers, companyID)
			}
			h.mu.Unlock()
			close(ch)
		})
	}
}

func (h *ExecutionHub) SubscriberCount(companyID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers[companyID])
}
