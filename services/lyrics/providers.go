// Package lyrics resolves song lyrics from a ranked list of public providers.
package lyrics

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"heimdall/models"
	"heimdall/services/fallback"
)

const (
	ProviderOVH    = "lyrics.ovh"
	ProviderLRCLIB = "lrclib"

	DefaultOVHURL    = "https://api.lyrics.ovh/v1"
	DefaultLRCLIBURL = "https://lrclib.net/api/get"
	DefaultTimeout   = 5 * time.Second
)

// Query identifies a song.
type Query struct {
	Artist string
	Title  string
}

// Valid reports whether both artist and title are present.
func (q Query) Valid() bool {
	return strings.TrimSpace(q.Artist) != "" && strings.TrimSpace(q.Title) != ""
}

// Field lists, in order, where each provider keeps the lyrics text.
var (
	ovhFields    = []string{"lyrics"}
	lrclibFields = []string{"plainLyrics", "syncedLyrics"}
)

// NewOVHProvider queries lyrics.ovh, which addresses songs by path.
func NewOVHProvider(baseURL string, timeout time.Duration, httpc *http.Client) fallback.Provider[Query, models.LyricsText] {
	if baseURL == "" {
		baseURL = DefaultOVHURL
	}
	base := strings.TrimRight(baseURL, "/")
	return fallback.Provider[Query, models.LyricsText]{
		Name:    ProviderOVH,
		Timeout: timeout,
		Call: func(ctx context.Context, q Query) (models.LyricsText, error) {
			endpoint := base + "/" + url.PathEscape(q.Artist) + "/" + url.PathEscape(q.Title)
			return fetch(ctx, httpc, endpoint, nil, ovhFields)
		},
	}
}

// NewLRCLIBProvider queries LRCLIB, preferring plain lyrics over synced ones.
func NewLRCLIBProvider(baseURL string, timeout time.Duration, httpc *http.Client) fallback.Provider[Query, models.LyricsText] {
	if baseURL == "" {
		baseURL = DefaultLRCLIBURL
	}
	return fallback.Provider[Query, models.LyricsText]{
		Name:    ProviderLRCLIB,
		Timeout: timeout,
		Call: func(ctx context.Context, q Query) (models.LyricsText, error) {
			params := url.Values{}
			params.Set("artist_name", q.Artist)
			params.Set("track_name", q.Title)
			return fetch(ctx, httpc, baseURL, params, lrclibFields)
		},
	}
}

func fetch(ctx context.Context, httpc *http.Client, endpoint string, params url.Values, fields []string) (models.LyricsText, error) {
	var payload map[string]any
	if err := fallback.GetJSON(ctx, httpc, endpoint, params, &payload); err != nil {
		return models.LyricsText{}, err
	}
	return Normalize(payload, fields)
}

// Normalize picks the first non-blank field from fields. A payload without
// any of them is a bad-shape failure.
func Normalize(payload map[string]any, fields []string) (models.LyricsText, error) {
	if payload == nil {
		return models.LyricsText{}, fallback.ShapeErrorf("empty lyrics payload")
	}
	text, err := fallback.RequireString(payload, fields...)
	if err != nil {
		return models.LyricsText{}, err
	}
	return models.LyricsText{Lyrics: text}, nil
}
