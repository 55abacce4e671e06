package watchparty

import (
	"time"

	"github.com/gorilla/websocket"

	"heimdall/models"
)

const (
	pingInterval = 30 * time.Second
	writeWait    = 10 * time.Second
	maxFrameSize = 4096
)

// Serve pumps frames between conn and the room until either side goes away.
// The caller has already joined m to the room; Serve leaves on return.
func (h *Hub) Serve(conn *websocket.Conn, code string, m *Member) {
	defer conn.Close()

	done := make(chan struct{})
	go h.writePump(conn, m, done)

	conn.SetReadLimit(maxFrameSize)
	for {
		var msg models.PartyMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug().Err(err).Str("room", code).Str("member", m.Name).Msg("watch party read failed")
			}
			break
		}
		msg.SentAt = time.Time{}
		if err := h.Broadcast(code, m, msg); err != nil {
			break
		}
	}

	h.Leave(code, m)
	<-done
}

func (h *Hub) writePump(conn *websocket.Conn, m *Member, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-m.Outbox():
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(msg); err != nil {
				h.logger.Debug().Err(err).Str("member", m.Name).Msg("watch party write failed")
				conn.Close()
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				conn.Close()
				return
			}
		}
	}
}
