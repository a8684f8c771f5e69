package logstream

import (
	"bufio"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"devbay/internal/core/lifecycle"
)

func NewRequestHandler(lifecycleHandler lifecycle.LifecycleHandler, log *zap.Logger) *Handler {
	return &Handler{
		lifecycleHandler: lifecycleHandler,
		upgrader:         websocket.Upgrader{},
		log:              log,
	}
}

type Handler struct {
	lifecycleHandler lifecycle.LifecycleHandler
	upgrader         websocket.Upgrader
	log              *zap.Logger
}

// ServeHTTP handles GET /v1/instances/{instanceId}/logs/stream (WebSocket).
// Each log line becomes one text message; the stream ends when the
// container stops producing output or the client goes away.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	instanceId := chi.URLParam(r, "instanceId")
	if instanceId == "" {
		http.Error(w, "missing instance id", http.StatusBadRequest)
		return
	}

	up := h.upgrader
	if up.CheckOrigin == nil {
		up.CheckOrigin = func(r *http.Request) bool { return true }
	}

	ws, err := up.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer ws.Close()

	stream, err := h.lifecycleHandler.StreamLogs(r.Context(), instanceId)
	if err != nil {
		_ = ws.WriteMessage(websocket.TextMessage, []byte(fmt.Sprintf("open log stream failed: %v", err)))
		return
	}
	defer stream.Close()

	// drain client frames so close messages are noticed
	go func() {
		for {
			if _, _, err := ws.NextReader(); err != nil {
				stream.Close()
				return
			}
		}
	}()

	scanner := bufio.NewScanner(stream)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		if err := ws.WriteMessage(websocket.TextMessage, scanner.Bytes()); err != nil {
			return
		}
	}
	if err := scanner.Err(); err != nil {
		h.log.Debug("log stream ended", zap.String("instanceId", instanceId), zap.Error(err))
	}

	_ = ws.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "stream closed"),
		time.Now().Add(1*time.Second),
	)
}
