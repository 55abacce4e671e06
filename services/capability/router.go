package capability

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/text/unicode/norm"

	"heimdall/models"
	"heimdall/services/fallback"
	"heimdall/services/lyrics"
	"heimdall/services/metadata"
	"heimdall/services/music"
)

// Metadata operations.
const (
	OpList     = "list"
	OpGenres   = "genres"
	OpDiscover = "discover"
	OpSearch   = "search"
	OpDetails  = "details"
	OpSeason   = "season"
)

const (
	msgMissingLyricsArgs = "Missing artist or title"
	msgLyricsNotFound    = "Lyrics not found in any source"
	msgMissingStreamArgs = "Missing source or id"
	msgInvalidMediaType  = "Invalid media type"
	msgTMDBErrorPrefix   = "Error fetching data from TMDB: "
)

// MetadataQuery selects one metadata operation and its arguments.
type MetadataQuery struct {
	Op        string
	MediaType string
	Category  string
	ID        int64
	Season    int
	Text      string
	Discover  metadata.DiscoverQuery
}

// Request is one inbound capability request. Only the fields of the selected
// Kind are read.
type Request struct {
	Kind Kind

	Query string // search

	Artist string // lyrics
	Title  string

	Source string // stream-resolve
	Ref    string

	Metadata MetadataQuery
}

// Response is the rendered outcome: an HTTP status and a JSON-encodable body.
type Response struct {
	Status int
	Body   any
}

// Router dispatches requests against an immutable Table.
type Router struct {
	table  *Table
	logger zerolog.Logger
}

func NewRouter(table *Table, logger zerolog.Logger) *Router {
	return &Router{table: table, logger: logger}
}

// Dispatch runs the chain for req.Kind and renders the result.
func (r *Router) Dispatch(ctx context.Context, req Request) Response {
	switch req.Kind {
	case KindSearch:
		return r.search(ctx, req)
	case KindLyrics:
		return r.lyrics(ctx, req)
	case KindStream:
		return r.stream(ctx, req)
	case KindMetadata:
		return r.metadata(ctx, req.Metadata)
	}
	return errorResponse(http.StatusBadRequest, "unknown capability "+string(req.Kind))
}

func (r *Router) search(ctx context.Context, req Request) Response {
	text := clean(req.Query)
	if text == "" {
		return Response{Status: http.StatusOK, Body: []models.SearchHit{}}
	}
	res := r.table.Search.Resolve(ctx, music.SearchQuery{Text: text})
	if !res.OK() {
		r.logger.Error().Err(res.Failure).Str("query", text).Msg("music search failed")
		return Response{Status: http.StatusOK, Body: []models.SearchHit{}}
	}
	hits := res.Value
	if hits == nil {
		hits = []models.SearchHit{}
	}
	return Response{Status: http.StatusOK, Body: hits}
}

func (r *Router) lyrics(ctx context.Context, req Request) Response {
	q := lyrics.Query{Artist: clean(req.Artist), Title: clean(req.Title)}
	if !q.Valid() {
		return errorResponse(http.StatusBadRequest, msgMissingLyricsArgs)
	}
	res := r.table.Lyrics.Resolve(ctx, q)
	if !res.OK() {
		return errorResponse(http.StatusNotFound, msgLyricsNotFound)
	}
	return Response{Status: http.StatusOK, Body: res.Value}
}

func (r *Router) stream(ctx context.Context, req Request) Response {
	source := strings.TrimSpace(req.Source)
	ref := strings.TrimSpace(req.Ref)
	if source == "" || ref == "" {
		return errorResponse(http.StatusBadRequest, msgMissingStreamArgs)
	}
	res := r.table.Stream.Resolve(ctx, music.StreamQuery{Source: source, Ref: ref})
	if !res.OK() {
		return errorResponse(http.StatusInternalServerError, res.Failure.Message())
	}
	return Response{Status: http.StatusOK, Body: res.Value}
}

func (r *Router) metadata(ctx context.Context, q MetadataQuery) Response {
	svc := r.table.Metadata

	var (
		body any
		err  error
	)
	switch q.Op {
	case OpList:
		body, err = svc.List(ctx, q.MediaType, q.Category)
	case OpGenres:
		body, err = svc.Genres(ctx, q.MediaType)
	case OpDiscover:
		body, err = svc.Discover(ctx, q.Discover)
	case OpSearch:
		body, err = svc.Search(ctx, clean(q.Text))
	case OpDetails:
		body, err = svc.Details(ctx, q.MediaType, q.ID)
	case OpSeason:
		body, err = svc.Season(ctx, q.ID, q.Season)
	default:
		err = metadata.ErrInvalidOperation
	}
	if err != nil {
		return r.metadataError(err)
	}
	return Response{Status: http.StatusOK, Body: body}
}

func (r *Router) metadataError(err error) Response {
	switch {
	case errors.Is(err, metadata.ErrInvalidMediaType):
		return Response{Status: http.StatusBadRequest, Body: map[string]string{"message": msgInvalidMediaType}}
	case errors.Is(err, metadata.ErrInvalidCategory):
		return Response{Status: http.StatusNotFound, Body: map[string]string{"message": "Not found"}}
	case errors.Is(err, metadata.ErrInvalidOperation):
		return errorResponse(http.StatusBadRequest, err.Error())
	}

	var f *fallback.Failure
	if !errors.As(err, &f) {
		r.logger.Error().Err(err).Msg("metadata request failed")
		return errorResponse(http.StatusInternalServerError, msgTMDBErrorPrefix+err.Error())
	}
	if errors.Is(f, fallback.ErrConfig) {
		return errorResponse(http.StatusInternalServerError, f.Message())
	}

	r.logger.Error().Err(f).Msg("metadata request failed")
	status := http.StatusInternalServerError
	if upstreamStatus(f) == http.StatusNotFound {
		status = http.StatusNotFound
	}
	return errorResponse(status, msgTMDBErrorPrefix+f.Message())
}

// upstreamStatus returns the HTTP status reported by the last provider that
// got a response, or 0.
func upstreamStatus(f *fallback.Failure) int {
	for i := len(f.Causes) - 1; i >= 0; i-- {
		if f.Causes[i].Status != 0 {
			return f.Causes[i].Status
		}
	}
	return f.Status
}

// clean trims free text and puts it in NFC so composed and decomposed input
// reach providers identically.
func clean(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

func errorResponse(status int, msg string) Response {
	return Response{Status: status, Body: map[string]string{"error": msg}}
}
