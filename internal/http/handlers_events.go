package httpx

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"

	"github.com/rejoiceinstitute/rejoice-web/internal/service"
)

const eventWriteTimeout = 5 * time.Second

// EventHandlers pushes session changes to page scripts over a websocket so the
// navigation bar can follow sign-in and sign-out without polling.
type EventHandlers struct {
	Sessions       SessionProvider
	Router         *service.RoleRouter
	Pages          PageURLs
	OriginPatterns []string
	Logger         *slog.Logger
}

func (h *EventHandlers) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

// Stream upgrades the connection and sends the session payload now and after
// every change.
// GET /auth/events.
func (h *EventHandlers) Stream(w http.ResponseWriter, r *http.Request) {
	store, ok := lookupStore(w, r, h.Sessions, h.logger())
	if !ok {
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: h.OriginPatterns})
	if err != nil {
		h.logger().WarnContext(r.Context(), "ws accept failed", "error", err)
		return
	}
	defer conn.CloseNow()

	// CloseRead discards client frames and cancels ctx when the peer goes away.
	ctx := conn.CloseRead(r.Context())
	for sess := range store.Watch(ctx) {
		msg, err := json.Marshal(newSessionPayload(sess, store.State(), h.Router, h.Pages))
		if err != nil {
			h.logger().ErrorContext(ctx, "encode session event", "error", err)
			return
		}
		writeCtx, cancel := context.WithTimeout(ctx, eventWriteTimeout)
		err = conn.Write(writeCtx, websocket.MessageText, msg)
		cancel()
		if err != nil {
			h.logger().DebugContext(ctx, "ws client gone", "error", err)
			return
		}
	}
	conn.Close(websocket.StatusNormalClosure, "")
}
