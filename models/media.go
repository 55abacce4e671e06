package models

// MetadataItem is a TMDB JSON object passed through without reshaping.
type MetadataItem = map[string]any

// SearchHit is the canonical record for one extractor search result.
type SearchHit struct {
	Source   string  `json:"source"`
	ID       string  `json:"id"` // full page URL, fed back to stream resolution
	Title    string  `json:"title"`
	Artist   string  `json:"artist"`
	Image    string  `json:"image"`
	Duration float64 `json:"duration"`
}

// LyricsText is the canonical lyrics record.
type LyricsText struct {
	Lyrics string `json:"lyrics"`
}

// StreamURL is a direct, playable media URL.
type StreamURL struct {
	StreamURL string `json:"stream_url"`
}

// DiscoverPage is one page of a TMDB discover listing.
type DiscoverPage struct {
	Results    []MetadataItem `json:"results"`
	Page       any            `json:"page"`
	TotalPages any            `json:"total_pages"`
}

// Details bundles a title with its recommendations.
type Details struct {
	Details         MetadataItem   `json:"details"`
	Recommendations []MetadataItem `json:"recommendations"`
}
