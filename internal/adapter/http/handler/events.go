package handler

import (
	"net/http"
	"time"

	"stablecoin-checkout/internal/core/ports"
	"stablecoin-checkout/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
)

// EventsHandler streams phase changes over a websocket.
type EventsHandler struct {
	checkoutSvc ports.CheckoutService
	upgrader    websocket.Upgrader
	log         zerolog.Logger
}

// NewEventsHandler creates a new EventsHandler.
func NewEventsHandler(checkoutSvc ports.CheckoutService, log zerolog.Logger) *EventsHandler {
	return &EventsHandler{
		checkoutSvc: checkoutSvc,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The session token authenticates the subscription; origin
			// restrictions belong to the deployment's proxy.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		log: log,
	}
}

// Stream handles GET /api/v1/checkout/sessions/:id/events. The current phase
// is sent immediately so a reconnecting client never misses state.
func (h *EventsHandler) Stream(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}

	session, err := h.checkoutSvc.GetSession(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	events, unsubscribe, err := h.checkoutSvc.Subscribe(id)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer unsubscribe()

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	// Reader goroutine: we never expect client messages, but reading is what
	// detects a dropped connection.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	first := ports.PhaseEvent{SessionID: session.ID, Phase: session.Phase, Error: session.LastError}
	if err := h.writeEvent(conn, first); err != nil {
		return
	}

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case event, open := <-events:
			if !open {
				// Session closed: say goodbye cleanly.
				_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session closed"))
				return
			}
			if err := h.writeEvent(conn, event); err != nil {
				return
			}
		}
	}
}

func (h *EventsHandler) writeEvent(conn *websocket.Conn, event ports.PhaseEvent) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(event); err != nil {
		h.log.Debug().Err(err).Msg("websocket write failed")
		return err
	}
	return nil
}
