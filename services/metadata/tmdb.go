// Package metadata serves movie and TV metadata from TMDB.
package metadata

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
	ProviderTMDB = "tmdb"

	DefaultBaseURL  = "https://api.themoviedb.org/3"
	DefaultLanguage = "en-US"
	DefaultTimeout  = 10 * time.Second
	DefaultAttempts = 2
)

// MsgKeyMissing is reported when no TMDB API key is configured.
const MsgKeyMissing = "TMDB API key not configured"

// Config configures the TMDB provider.
type Config struct {
	APIKey   string
	BaseURL  string
	Language string
	Timeout  time.Duration
	Attempts uint
}

// Request is one TMDB GET: an endpoint path below the API root plus query
// parameters merged over the defaults.
type Request struct {
	Endpoint string
	Params   url.Values
}

// NewTMDBProvider returns the TMDB provider. A missing API key is reported on
// call as a config failure so the rest of the server still starts.
func NewTMDBProvider(cfg Config, httpc *http.Client) fallback.Provider[Request, models.MetadataItem] {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	language := cfg.Language
	if language == "" {
		language = DefaultLanguage
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	attempts := cfg.Attempts
	if attempts == 0 {
		attempts = DefaultAttempts
	}
	apiKey := strings.TrimSpace(cfg.APIKey)

	return fallback.Provider[Request, models.MetadataItem]{
		Name:     ProviderTMDB,
		Timeout:  timeout,
		Attempts: attempts,
		Call: func(ctx context.Context, req Request) (models.MetadataItem, error) {
			if apiKey == "" {
				return nil, fallback.ConfigErrorf(MsgKeyMissing)
			}

			params := url.Values{}
			params.Set("api_key", apiKey)
			params.Set("language", language)
			for k, vs := range req.Params {
				params[k] = append([]string(nil), vs...)
			}

			var payload models.MetadataItem
			if err := fallback.GetJSON(ctx, httpc, base+req.Endpoint, params, &payload); err != nil {
				return nil, err
			}
			if payload == nil {
				return nil, fallback.ShapeErrorf("TMDB returned an empty payload")
			}
			return payload, nil
		},
	}
}
