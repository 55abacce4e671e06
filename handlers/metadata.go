package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"heimdall/services/capability"
	"heimdall/services/metadata"
)

type dispatcher interface {
	Dispatch(ctx context.Context, req capability.Request) capability.Response
}

var _ dispatcher = (*capability.Router)(nil)

// MetadataHandler serves TMDB browse, search and detail routes.
type MetadataHandler struct {
	Router dispatcher
}

func NewMetadataHandler(router dispatcher) *MetadataHandler {
	return &MetadataHandler{Router: router}
}

func (h *MetadataHandler) serve(w http.ResponseWriter, r *http.Request, q capability.MetadataQuery) {
	resp := h.Router.Dispatch(r.Context(), capability.Request{Kind: capability.KindMetadata, Metadata: q})
	writeJSON(w, resp.Status, resp.Body)
}

// List serves /api/movies/{category} and /api/tv/{category}.
func (h *MetadataHandler) List(mediaType string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.serve(w, r, capability.MetadataQuery{
			Op:        capability.OpList,
			MediaType: mediaType,
			Category:  mux.Vars(r)["category"],
		})
	}
}

func (h *MetadataHandler) Genres(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, capability.MetadataQuery{Op: capability.OpGenres, MediaType: mux.Vars(r)["mediaType"]})
}

func (h *MetadataHandler) Discover(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	h.serve(w, r, capability.MetadataQuery{
		Op: capability.OpDiscover,
		Discover: metadata.DiscoverQuery{
			MediaType: q.Get("type"),
			Genre:     q.Get("genre"),
			Year:      q.Get("year"),
			Sort:      q.Get("sort"),
			Page:      q.Get("page"),
		},
	})
}

func (h *MetadataHandler) Search(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, capability.MetadataQuery{Op: capability.OpSearch, Text: r.URL.Query().Get("q")})
}

func (h *MetadataHandler) Details(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id, err := strconv.ParseInt(vars["id"], 10, 64)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid id")
		return
	}
	h.serve(w, r, capability.MetadataQuery{Op: capability.OpDetails, MediaType: vars["mediaType"], ID: id})
}

func (h *MetadataHandler) Season(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id, err := strconv.ParseInt(vars["id"], 10, 64)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid id")
		return
	}
	season, err := strconv.Atoi(vars["season"])
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid season")
		return
	}
	h.serve(w, r, capability.MetadataQuery{Op: capability.OpSeason, ID: id, Season: season})
}
