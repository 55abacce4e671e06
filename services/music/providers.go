package music

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"heimdall/models"
	"heimdall/services/fallback"
)

const (
	ProviderYTDLP = "yt-dlp"

	CapabilitySearch = "search"
	CapabilityStream = "stream-resolve"

	DefaultSearchLimit   = 5
	DefaultSearchPool    = 10
	DefaultSearchTimeout = 30 * time.Second
	DefaultStreamTimeout = 30 * time.Second

	searchSuffix = " official audio"
)

// SearchQuery is a free-text track search.
type SearchQuery struct {
	Text string
}

// StreamQuery identifies a track by source and the reference returned in a
// SearchHit.
type StreamQuery struct {
	Source string
	Ref    string
}

// Options tunes the extractor-backed providers.
type Options struct {
	SearchLimit   int
	SearchPool    int
	SearchTimeout time.Duration
	StreamTimeout time.Duration
}

func (o Options) withDefaults() Options {
	if o.SearchLimit <= 0 {
		o.SearchLimit = DefaultSearchLimit
	}
	if o.SearchPool < o.SearchLimit {
		o.SearchPool = max(DefaultSearchPool, o.SearchLimit)
	}
	if o.SearchTimeout <= 0 {
		o.SearchTimeout = DefaultSearchTimeout
	}
	if o.StreamTimeout <= 0 {
		o.StreamTimeout = DefaultStreamTimeout
	}
	return o
}

// SearchArgs builds the extractor invocation for a search over pool results.
func SearchArgs(text string, pool int) []string {
	return []string{
		"-J",
		"--no-warnings",
		"--ignore-errors",
		"--no-playlist",
		"-f", "bestaudio/best",
		fmt.Sprintf("ytsearch%d:%s%s", pool, text, searchSuffix),
	}
}

// StreamArgs builds the extractor invocation for resolving ref.
func StreamArgs(ref string) []string {
	return []string{
		"-J",
		"--no-warnings",
		"--no-playlist",
		"-f", "bestaudio/best",
		"--",
		ref,
	}
}

type searchPayload struct {
	Entries *[]json.RawMessage `json:"entries"`
}

// NewSearchProvider searches through the extractor. A payload without an
// entries list is a bad-shape failure; an empty list is a valid empty result.
func NewSearchProvider(runner Runner, opts Options) fallback.Provider[SearchQuery, []models.SearchHit] {
	opts = opts.withDefaults()
	return fallback.Provider[SearchQuery, []models.SearchHit]{
		Name:    ProviderYTDLP,
		Timeout: opts.SearchTimeout,
		Call: func(ctx context.Context, q SearchQuery) ([]models.SearchHit, error) {
			out, err := runner.Run(ctx, SearchArgs(q.Text, opts.SearchPool))
			if err != nil && len(out) == 0 {
				return nil, err
			}
			var payload searchPayload
			if jerr := json.Unmarshal(out, &payload); jerr != nil {
				if err != nil {
					return nil, err
				}
				return nil, &fallback.ShapeError{Detail: "decode search output", Err: jerr}
			}
			if payload.Entries == nil {
				return nil, fallback.ShapeErrorf("search output has no entries")
			}
			return NormalizeEntries(*payload.Entries, opts.SearchLimit), nil
		},
	}
}

// NewStreamProvider resolves a direct audio URL through the extractor.
func NewStreamProvider(runner Runner, opts Options) fallback.Provider[StreamQuery, models.StreamURL] {
	opts = opts.withDefaults()
	return fallback.Provider[StreamQuery, models.StreamURL]{
		Name:    ProviderYTDLP,
		Timeout: opts.StreamTimeout,
		Call: func(ctx context.Context, q StreamQuery) (models.StreamURL, error) {
			if !strings.EqualFold(q.Source, SourceYouTube) {
				return models.StreamURL{}, fallback.ShapeErrorf("Could not find stream URL")
			}
			out, err := runner.Run(ctx, StreamArgs(q.Ref))
			if err != nil {
				return models.StreamURL{}, err
			}
			info, err := fallback.DecodeObject(out)
			if err != nil {
				return models.StreamURL{}, err
			}
			return NormalizeStream(info)
		},
	}
}

// NewSearchChain returns the single-provider search chain.
func NewSearchChain(runner Runner, opts Options, logger zerolog.Logger) *fallback.Chain[SearchQuery, []models.SearchHit] {
	return fallback.NewChain(CapabilitySearch, logger, NewSearchProvider(runner, opts))
}

// NewStreamChain returns the single-provider stream resolution chain.
func NewStreamChain(runner Runner, opts Options, logger zerolog.Logger) *fallback.Chain[StreamQuery, models.StreamURL] {
	return fallback.NewChain(CapabilityStream, logger, NewStreamProvider(runner, opts))
}
