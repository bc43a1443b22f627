package handlers

import (
	"context"
	"time"

	"github.com/anjiri1684/training_academy/services"
	"github.com/anjiri1684/training_academy/websocket"
	websocketcontrib "github.com/gofiber/contrib/websocket"
)

// ServeAvailability streams seat counts. The client first receives a
// snapshot of every open session, then one update per change.
func (h *Handler) ServeAvailability(c *websocketcontrib.Conn) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	sessions, err := h.Schedule.ListOpenSessions(ctx)
	cancel()
	if err != nil {
		h.Log.WithError(err).Error("availability snapshot")
		_ = c.Close()
		return
	}
	for _, s := range sessions {
		if err := c.WriteJSON(snapshot(s)); err != nil {
			_ = c.Close()
			return
		}
	}

	h.Hub.Register(c)
	defer h.Hub.Unregister(c)

	// The feed is one-way; reading only detects the close.
	for {
		if _, _, err := c.ReadMessage(); err != nil {
			if !websocketcontrib.IsCloseError(err, websocketcontrib.CloseGoingAway, websocketcontrib.CloseNormalClosure) {
				h.Log.WithError(err).Debug("availability feed read error")
			}
			return
		}
	}
}

func snapshot(s services.SessionAvailability) websocket.SeatsUpdate {
	return websocket.SeatsUpdate{SessionID: s.ID, SeatsLeft: s.SeatsLeft, Status: string(s.Status)}
}
