package handlers

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"heimdall/internal/auth"
	"heimdall/models"
	"heimdall/services/watchparty"
)

// WatchPartyHandler manages watch party rooms and their websocket feeds.
type WatchPartyHandler struct {
	hub      *watchparty.Hub
	upgrader websocket.Upgrader
	logger   zerolog.Logger
}

// NewWatchPartyHandler creates the handler. checkOrigin vets websocket
// upgrades; nil accepts same-origin requests only.
func NewWatchPartyHandler(hub *watchparty.Hub, checkOrigin func(*http.Request) bool, logger zerolog.Logger) *WatchPartyHandler {
	return &WatchPartyHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
		logger: logger,
	}
}

func (h *WatchPartyHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]models.Room{"rooms": h.hub.List()})
}

func (h *WatchPartyHandler) Create(w http.ResponseWriter, r *http.Request) {
	var body struct {
		MediaType  string `json:"media_type"`
		MediaID    int64  `json:"media_id"`
		MediaTitle string `json:"media_title"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	room, err := h.hub.Create(auth.GetUsername(r), body.MediaType, body.MediaID, body.MediaTitle)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, room)
}

func (h *WatchPartyHandler) Get(w http.ResponseWriter, r *http.Request) {
	room, ok := h.hub.Get(mux.Vars(r)["code"])
	if !ok {
		writeMessage(w, http.StatusNotFound, "Room not found")
		return
	}
	writeJSON(w, http.StatusOK, room)
}

// Connect upgrades to a websocket and joins the caller to the room.
func (h *WatchPartyHandler) Connect(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]
	if _, ok := h.hub.Get(code); !ok {
		writeMessage(w, http.StatusNotFound, "Room not found")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Str("room", code).Msg("websocket upgrade failed")
		return
	}

	member, err := h.hub.Join(code, auth.GetUsername(r))
	if err != nil {
		msg := "join failed"
		if errors.Is(err, watchparty.ErrRoomNotFound) {
			msg = "room closed"
		}
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, msg))
		conn.Close()
		return
	}
	h.hub.Serve(conn, code, member)
}
