package metadata

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/pool"

	"heimdall/models"
	"heimdall/services/fallback"
)

// Capability is the chain name used in logs and failures.
const Capability = "metadata-fetch"

var (
	ErrInvalidMediaType = errors.New("invalid media type")
	ErrInvalidCategory  = errors.New("invalid category")
	ErrInvalidOperation = errors.New("invalid metadata operation")
)

// Service answers the browse, search and details queries of the web UI.
type Service struct {
	chain  *fallback.Chain[Request, models.MetadataItem]
	logger zerolog.Logger
}

// NewService builds the TMDB chain.
func NewService(cfg Config, httpc *http.Client, logger zerolog.Logger) *Service {
	return NewServiceWithChain(fallback.NewChain(Capability, logger, NewTMDBProvider(cfg, httpc)), logger)
}

// NewServiceWithChain wraps an existing chain.
func NewServiceWithChain(chain *fallback.Chain[Request, models.MetadataItem], logger zerolog.Logger) *Service {
	return &Service{chain: chain, logger: logger}
}

// Fetch runs one TMDB request through the chain. Failures are returned as
// *fallback.Failure.
func (s *Service) Fetch(ctx context.Context, endpoint string, params url.Values) (models.MetadataItem, error) {
	res := s.chain.Resolve(ctx, Request{Endpoint: endpoint, Params: params})
	if !res.OK() {
		return nil, res.Failure
	}
	return res.Value, nil
}

var listEndpoints = map[string]map[string]string{
	"movie": {
		"popular":   "/movie/popular",
		"trending":  "/trending/movie/week",
		"top-rated": "/movie/top_rated",
	},
	"tv": {
		"popular":   "/tv/popular",
		"trending":  "/trending/tv/week",
		"top-rated": "/tv/top_rated",
	},
}

// List returns one of the curated listings, e.g. ("movie", "trending").
func (s *Service) List(ctx context.Context, mediaType, category string) ([]models.MetadataItem, error) {
	byCategory, ok := listEndpoints[mediaType]
	if !ok {
		return nil, ErrInvalidMediaType
	}
	endpoint, ok := byCategory[category]
	if !ok {
		return nil, ErrInvalidCategory
	}
	data, err := s.Fetch(ctx, endpoint, nil)
	if err != nil {
		return nil, err
	}
	return items(data, "results"), nil
}

// Genres returns the genre list for movie or tv.
func (s *Service) Genres(ctx context.Context, mediaType string) ([]models.MetadataItem, error) {
	if !validMediaType(mediaType) {
		return nil, ErrInvalidMediaType
	}
	data, err := s.Fetch(ctx, "/genre/"+mediaType+"/list", nil)
	if err != nil {
		return nil, err
	}
	return items(data, "genres"), nil
}

// DiscoverQuery filters a discover listing. Empty fields are not sent.
type DiscoverQuery struct {
	MediaType string
	Genre     string
	Year      string
	Sort      string
	Page      string
}

// Discover returns one filtered page.
func (s *Service) Discover(ctx context.Context, q DiscoverQuery) (models.DiscoverPage, error) {
	mediaType := q.MediaType
	if mediaType == "" {
		mediaType = "movie"
	}
	if !validMediaType(mediaType) {
		return models.DiscoverPage{}, ErrInvalidMediaType
	}

	params := url.Values{}
	params.Set("sort_by", valueOr(q.Sort, "popularity.desc"))
	params.Set("include_adult", "false")
	params.Set("page", valueOr(q.Page, "1"))
	if q.Genre != "" {
		params.Set("with_genres", q.Genre)
	}
	if q.Year != "" {
		if mediaType == "movie" {
			params.Set("primary_release_year", q.Year)
		} else {
			params.Set("first_air_date_year", q.Year)
		}
	}

	data, err := s.Fetch(ctx, "/discover/"+mediaType, params)
	if err != nil {
		return models.DiscoverPage{}, err
	}
	return models.DiscoverPage{
		Results:    items(data, "results"),
		Page:       valueOrAny(data["page"], 1),
		TotalPages: valueOrAny(data["total_pages"], 1),
	}, nil
}

// MinSearchLength is the shortest query forwarded to TMDB.
const MinSearchLength = 2

// Search runs a multi search and keeps movies and shows that have a poster.
func (s *Service) Search(ctx context.Context, query string) ([]models.MetadataItem, error) {
	if len([]rune(strings.TrimSpace(query))) < MinSearchLength {
		return []models.MetadataItem{}, nil
	}

	params := url.Values{}
	params.Set("query", query)
	params.Set("include_adult", "false")
	data, err := s.Fetch(ctx, "/search/multi", params)
	if err != nil {
		return nil, err
	}

	filtered := []models.MetadataItem{}
	for _, item := range items(data, "results") {
		mt, _ := item["media_type"].(string)
		if !validMediaType(mt) {
			continue
		}
		if _, ok := fallback.FirstString(item, "poster_path"); !ok {
			continue
		}
		filtered = append(filtered, item)
	}
	return filtered, nil
}

// Details fetches a title and its recommendations concurrently. A failure
// of either lookup fails the whole request, details first.
func (s *Service) Details(ctx context.Context, mediaType string, id int64) (models.Details, error) {
	if !validMediaType(mediaType) {
		return models.Details{}, ErrInvalidMediaType
	}
	base := fmt.Sprintf("/%s/%d", mediaType, id)

	var (
		details, recs       models.MetadataItem
		detailsErr, recsErr error
	)
	p := pool.New().WithContext(ctx)
	p.Go(func(c context.Context) error {
		details, detailsErr = s.Fetch(c, base, nil)
		return detailsErr
	})
	p.Go(func(c context.Context) error {
		recs, recsErr = s.Fetch(c, base+"/recommendations", nil)
		return recsErr
	})
	_ = p.Wait()

	if detailsErr != nil {
		return models.Details{}, detailsErr
	}
	if recsErr != nil {
		return models.Details{}, recsErr
	}
	if _, ok := details["id"]; !ok {
		return models.Details{}, &fallback.Failure{
			Capability: Capability,
			Provider:   ProviderTMDB,
			Reason:     fallback.ReasonBadShape,
			Err:        fallback.ShapeErrorf("details payload has no id"),
		}
	}
	return models.Details{Details: details, Recommendations: items(recs, "results")}, nil
}

// Season returns one season of a show.
func (s *Service) Season(ctx context.Context, tvID int64, season int) (models.MetadataItem, error) {
	return s.Fetch(ctx, "/tv/"+strconv.FormatInt(tvID, 10)+"/season/"+strconv.Itoa(season), nil)
}

func validMediaType(mt string) bool {
	return mt == "movie" || mt == "tv"
}

// items returns the objects of the array at key, or an empty slice.
func items(data models.MetadataItem, key string) []models.MetadataItem {
	raw, _ := data[key].([]any)
	out := make([]models.MetadataItem, 0, len(raw))
	for _, r := range raw {
		if m, ok := r.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

func valueOr(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func valueOrAny(v any, def any) any {
	if v == nil {
		return def
	}
	return v
}
