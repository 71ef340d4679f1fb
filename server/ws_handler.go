package server

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"JamFM/logger"
)

var wsUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

const (
	wsWriteTimeout = 10 * time.Second
	wsPingInterval = 30 * time.Second
)

// SessionEventsHandler streams session state snapshots to the client over a
// WebSocket. Every state change published for the session is forwarded as one
// JSON message; the connection carries no client-to-server commands.
func (h *APIHandler) SessionEventsHandler(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["sessionId"]

	// validate the session before upgrading so a bad ID gets a proper 404
	state, err := h.sessions.State(r.Context(), sessionID)
	if err != nil {
		respondError(w, err)
		return
	}

	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("websocket upgrade failed", logger.ErrorField(err))
		return
	}
	defer conn.Close()

	ctx := r.Context()
	events := h.sessionCache.Subscribe(ctx, sessionID)

	// initial snapshot so the client can render without waiting for a change
	conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	if err := conn.WriteJSON(state); err != nil {
		logger.Warn("websocket write failed", logger.ErrorField(err))
		return
	}

	// reader goroutine: we never expect client messages, but reading is what
	// surfaces the close frame
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(wsPingInterval)
	defer ping.Stop()

	for {
		select {
		case <-closed:
			return
		case <-ctx.Done():
			return
		case <-ping.C:
			conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case snapshot, ok := <-events:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteJSON(snapshot); err != nil {
				logger.Warn("websocket write failed",
					logger.String("sessionId", sessionID),
					logger.ErrorField(err))
				return
			}
		}
	}
}
