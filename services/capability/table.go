// Package capability routes inbound requests to the provider chain that
// serves them and renders the outcome as a status code and JSON body.
package capability

import (
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	"heimdall/config"
	"heimdall/internal/logging"
	"heimdall/models"
	"heimdall/services/fallback"
	"heimdall/services/lyrics"
	"heimdall/services/metadata"
	"heimdall/services/music"
)

// Kind names a capability.
type Kind string

const (
	KindSearch   Kind = music.CapabilitySearch
	KindLyrics   Kind = lyrics.Capability
	KindStream   Kind = music.CapabilityStream
	KindMetadata Kind = metadata.Capability
)

// Table holds one chain per capability. It is built once at startup and
// never modified.
type Table struct {
	Search   *fallback.Chain[music.SearchQuery, []models.SearchHit]
	Lyrics   *fallback.Chain[lyrics.Query, models.LyricsText]
	Stream   *fallback.Chain[music.StreamQuery, models.StreamURL]
	Metadata *metadata.Service
}

// BuildTable wires every chain from the settings.
func BuildTable(cfg config.Settings, httpc *http.Client, runner music.Runner, logger zerolog.Logger) (*Table, error) {
	if httpc == nil {
		httpc = http.DefaultClient
	}

	lyricsCfgs := make([]lyrics.ProviderConfig, 0, len(cfg.Lyrics.Providers))
	for _, p := range cfg.Lyrics.Providers {
		lyricsCfgs = append(lyricsCfgs, lyrics.ProviderConfig{
			Name:    p.Name,
			BaseURL: p.BaseURL,
			Timeout: p.Timeout.Duration,
		})
	}
	lyricsChain, err := lyrics.NewChain(lyricsCfgs, httpc, logging.Component(logger, string(KindLyrics)))
	if err != nil {
		return nil, fmt.Errorf("build lyrics chain: %w", err)
	}

	opts := music.Options{
		SearchLimit:   cfg.Extractor.SearchLimit,
		SearchPool:    cfg.Extractor.SearchPool,
		SearchTimeout: cfg.Extractor.SearchTimeout.Duration,
		StreamTimeout: cfg.Extractor.StreamTimeout.Duration,
	}

	metaLogger := logging.Component(logger, string(KindMetadata))
	meta := metadata.NewService(metadata.Config{
		APIKey:   cfg.TMDB.APIKey,
		BaseURL:  cfg.TMDB.BaseURL,
		Language: cfg.TMDB.Language,
		Timeout:  cfg.TMDB.Timeout.Duration,
		Attempts: cfg.TMDB.Attempts,
	}, httpc, metaLogger)

	return &Table{
		Search:   music.NewSearchChain(runner, opts, logging.Component(logger, string(KindSearch))),
		Lyrics:   lyricsChain,
		Stream:   music.NewStreamChain(runner, opts, logging.Component(logger, string(KindStream))),
		Metadata: meta,
	}, nil
}
