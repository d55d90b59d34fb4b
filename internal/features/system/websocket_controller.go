package system

import (
	"go-crm-automation/pkg/utils"

	"github.com/gofiber/contrib/websocket"
	"go.uber.org/zap"
)

type WebSocketController struct {
	hub    *ExecutionHub
	logger *zap.Logger
}

func NewWebSocketController(hub *ExecutionHub, logger *zap.Logger) *WebSocketController {
	return &WebSocketController{
		hub:    hub,
		logger: logger,
	}
}

// HandleExecutions streams the caller's company execution events as JSON
func (h *WebSocketController) HandleExecutions(c *websocket.Conn) {
	claims, ok := c.Locals(utils.UserClaimsKey).(*utils.UserClaims)
	if !ok {
		_ = c.WriteJSON(map[string]string{"error": "Unauthorized"})
		return
	}

	events, release := h.hub.Subscribe(claims.CompanyID)
	defer release()

	// The read loop only detects the client going away
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			if err := c.WriteJSON(event); err != nil {
				h.logger.Debug("websocket write failed", zap.Error(err))
				return
			}
		}
	}
}
