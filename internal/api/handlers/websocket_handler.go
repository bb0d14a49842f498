package handlers

import (
	"context"
	"sync"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/logsight/backend/internal/analysis"
	"github.com/logsight/backend/internal/poller"
	"github.com/logsight/backend/pkg/logger"
)

// WebSocketHandler streams analysis progress to the dashboard: one message
// per query-session transition, then the final result bundle.
type WebSocketHandler struct {
	engine *analysis.Engine
}

func NewWebSocketHandler(engine *analysis.Engine) *WebSocketHandler {
	return &WebSocketHandler{
		engine: engine,
	}
}

// wsSession serializes writes to one connection. The read loop and the
// analysis worker run concurrently, and both write.
type wsSession struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (s *wsSession) write(v interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteJSON(v)
}

// HandleConnection keeps reading while an analysis runs so a closed socket is
// noticed immediately; the read-loop exit cancels the context driving the
// polling loop. One analysis is in flight per connection at a time.
func (h *WebSocketHandler) HandleConnection(c *websocket.Conn) {
	logger.Info("WebSocket connection established")

	ctx, cancel := context.WithCancel(context.Background())
	session := &wsSession{conn: c}
	var workers sync.WaitGroup

	defer func() {
		cancel()
		workers.Wait()
		c.Close()
		logger.Info("WebSocket connection closed")
	}()

	running := make(chan struct{}, 1)

	for {
		var msg struct {
			Type    string           `json:"type"`
			Request analysis.Request `json:"request"`
		}

		if err := c.ReadJSON(&msg); err != nil {
			logger.Debug("WebSocket read ended", zap.Error(err))
			return
		}

		if msg.Type != "analysis" {
			continue
		}

		select {
		case running <- struct{}{}:
		default:
			session.write(map[string]interface{}{
				"type":  "error",
				"error": "analysis already in progress on this connection",
			})
			continue
		}

		workers.Add(1)
		go func(req analysis.Request) {
			defer workers.Done()
			defer func() { <-running }()

			if err := h.streamAnalysis(ctx, session, req); err != nil {
				logger.Error("Failed to stream analysis", zap.Error(err))
			}
		}(msg.Request)
	}
}

func (h *WebSocketHandler) streamAnalysis(ctx context.Context, session *wsSession, req analysis.Request) error {
	result, err := h.engine.RunWithProgress(ctx, req, func(s poller.Session) {
		h.sendProgress(session, s)
	})
	if err != nil {
		return session.write(map[string]interface{}{
			"type":     "error",
			"category": analysis.Categorize(err),
			"error":    err.Error(),
		})
	}

	return session.write(map[string]interface{}{
		"type":   "complete",
		"result": result,
	})
}

func (h *WebSocketHandler) sendProgress(session *wsSession, s poller.Session) {
	msg := map[string]interface{}{
		"type":     "progress",
		"query_id": s.QueryID,
		"status":   s.Status,
		"attempts": s.Attempts,
	}

	if err := session.write(msg); err != nil {
		logger.Debug("Failed to write progress message", zap.Error(err))
	}
}
