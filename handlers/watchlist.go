package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"heimdall/internal/auth"
	"heimdall/models"
	"heimdall/services/watchlist"
)

type watchlistService interface {
	List(username, profile string) ([]models.WatchlistItem, error)
	Add(username, profile string, item models.WatchlistItem) (bool, error)
	Remove(username, profile string, id int64) error
	DeleteProfile(username, profile string) (bool, error)
}

var _ watchlistService = (*watchlist.Service)(nil)

type WatchlistHandler struct {
	Service watchlistService
	logger  zerolog.Logger
}

func NewWatchlistHandler(service watchlistService, logger zerolog.Logger) *WatchlistHandler {
	return &WatchlistHandler{Service: service, logger: logger}
}

func profileParam(r *http.Request) string {
	if p := strings.TrimSpace(r.URL.Query().Get("profile")); p != "" {
		return p
	}
	return models.DefaultProfile
}

func (h *WatchlistHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.Service.List(auth.GetUsername(r), profileParam(r))
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *WatchlistHandler) Add(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Profile string                `json:"profile"`
		Item    *models.WatchlistItem `json:"item"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if body.Item == nil {
		writeMessage(w, http.StatusBadRequest, "No item provided")
		return
	}
	profile := strings.TrimSpace(body.Profile)
	if profile == "" {
		profile = models.DefaultProfile
	}

	added, err := h.Service.Add(auth.GetUsername(r), profile, *body.Item)
	if err != nil {
		h.fail(w, err)
		return
	}
	if !added {
		writeMessage(w, http.StatusOK, "Already in watchlist")
		return
	}
	writeMessage(w, http.StatusOK, "Added to watchlist")
}

func (h *WatchlistHandler) Remove(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid item id")
		return
	}
	if err := h.Service.Remove(auth.GetUsername(r), profileParam(r), id); err != nil {
		h.fail(w, err)
		return
	}
	writeMessage(w, http.StatusOK, "Removed from watchlist")
}

// DeleteProfile drops the whole watchlist of a profile, used when the
// profile itself is deleted.
func (h *WatchlistHandler) DeleteProfile(w http.ResponseWriter, r *http.Request) {
	found, err := h.Service.DeleteProfile(auth.GetUsername(r), mux.Vars(r)["name"])
	if err != nil {
		h.fail(w, err)
		return
	}
	if !found {
		writeMessage(w, http.StatusOK, "No watchlist data found")
		return
	}
	writeMessage(w, http.StatusOK, "Profile watchlist deleted")
}

func (h *WatchlistHandler) fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, watchlist.ErrUsernameRequired):
		writeMessage(w, http.StatusUnauthorized, "Not logged in")
	case errors.Is(err, watchlist.ErrIDRequired):
		writeMessage(w, http.StatusBadRequest, "No item provided")
	default:
		h.logger.Error().Err(err).Msg("watchlist write failed")
		writeMessage(w, http.StatusInternalServerError, "Internal server error")
	}
}
