package models

import "time"

// DefaultProfile is the profile name used when a request does not name one.
const DefaultProfile = "default"

// WatchlistItem is a TMDB title saved to a profile's watchlist. Only the id
// is significant for deduplication.
type WatchlistItem struct {
	ID           int64     `json:"id"`
	Title        string    `json:"title,omitempty"`
	Name         string    `json:"name,omitempty"`
	MediaType    string    `json:"media_type,omitempty"`
	PosterPath   string    `json:"poster_path,omitempty"`
	BackdropPath string    `json:"backdrop_path,omitempty"`
	Overview     string    `json:"overview,omitempty"`
	VoteAverage  float64   `json:"vote_average,omitempty"`
	ReleaseDate  string    `json:"release_date,omitempty"`
	FirstAirDate string    `json:"first_air_date,omitempty"`
	AddedAt      time.Time `json:"added_at,omitzero"`
}

// WatchlistKey is the storage key for one profile of one account.
func WatchlistKey(username, profile string) string {
	if profile == "" {
		profile = DefaultProfile
	}
	return username + ":" + profile
}
