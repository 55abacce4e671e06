package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"heimdall/services/capability"
)

// MusicHandler serves track search, stream resolution and lyrics.
type MusicHandler struct {
	Router dispatcher
}

func NewMusicHandler(router dispatcher) *MusicHandler {
	return &MusicHandler{Router: router}
}

func (h *MusicHandler) serve(w http.ResponseWriter, r *http.Request, req capability.Request) {
	resp := h.Router.Dispatch(r.Context(), req)
	writeJSON(w, resp.Status, resp.Body)
}

func (h *MusicHandler) Search(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, capability.Request{Kind: capability.KindSearch, Query: mux.Vars(r)["query"]})
}

func (h *MusicHandler) Stream(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	h.serve(w, r, capability.Request{Kind: capability.KindStream, Source: q.Get("source"), Ref: q.Get("id")})
}

func (h *MusicHandler) Lyrics(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	h.serve(w, r, capability.Request{Kind: capability.KindLyrics, Artist: q.Get("artist"), Title: q.Get("title")})
}
