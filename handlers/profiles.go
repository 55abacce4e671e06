package handlers

import (
	"net/http"

	"github.com/rs/zerolog"

	"heimdall/internal/auth"
	"heimdall/models"
	"heimdall/services/profiles"
)

type profileService interface {
	List(username string) []models.Profile
	Replace(username string, profiles []models.Profile) error
}

var _ profileService = (*profiles.Service)(nil)

type ProfilesHandler struct {
	Service profileService
	logger  zerolog.Logger
}

func NewProfilesHandler(service profileService, logger zerolog.Logger) *ProfilesHandler {
	return &ProfilesHandler{Service: service, logger: logger}
}

func (h *ProfilesHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]models.Profile{
		"profiles": h.Service.List(auth.GetUsername(r)),
	})
}

// Save replaces the account's profiles with the posted list.
func (h *ProfilesHandler) Save(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Profiles []models.Profile `json:"profiles"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		writeMessage(w, http.StatusBadRequest, "Error saving profiles")
		return
	}

	if err := h.Service.Replace(auth.GetUsername(r), body.Profiles); err != nil {
		h.logger.Warn().Err(err).Msg("save profiles")
		writeMessage(w, http.StatusBadRequest, "Error saving profiles")
		return
	}
	writeMessage(w, http.StatusOK, "Profiles saved successfully")
}
