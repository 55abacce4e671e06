package music

import (
	"encoding/json"
	"strings"

	"heimdall/models"
	"heimdall/services/fallback"
)

// SourceYouTube is the only source the extractor is wired for.
const SourceYouTube = "youtube"

const unknownArtist = "Unknown Artist"

// NormalizeEntries turns extractor search entries into at most limit hits.
// Null and malformed entries are skipped without failing the batch.
func NormalizeEntries(entries []json.RawMessage, limit int) []models.SearchHit {
	hits := make([]models.SearchHit, 0, limit)
	for _, raw := range entries {
		if len(hits) >= limit {
			break
		}
		entry, err := fallback.DecodeObject(raw)
		if err != nil {
			continue
		}
		hit, ok := normalizeEntry(entry)
		if !ok {
			continue
		}
		hits = append(hits, hit)
	}
	return hits
}

func normalizeEntry(entry map[string]any) (models.SearchHit, bool) {
	ref, ok := entryRef(entry)
	if !ok {
		return models.SearchHit{}, false
	}
	title, ok := fallback.FirstString(entry, "title")
	if !ok {
		return models.SearchHit{}, false
	}
	return models.SearchHit{
		Source:   SourceYouTube,
		ID:       ref,
		Title:    title,
		Artist:   fallback.StringOr(entry, unknownArtist, "uploader", "channel"),
		Image:    fallback.StringOr(entry, "", "thumbnail"),
		Duration: fallback.NumberOr(entry, "duration", 0),
	}, true
}

// entryRef is the page URL later handed back for stream resolution.
func entryRef(entry map[string]any) (string, bool) {
	if ref, ok := fallback.FirstString(entry, "webpage_url", "url"); ok {
		return ref, true
	}
	id, ok := fallback.FirstString(entry, "id")
	if !ok {
		return "", false
	}
	if strings.EqualFold(fallback.StringOr(entry, "", "extractor_key", "ie_key"), "Youtube") {
		return "https://www.youtube.com/watch?v=" + id, true
	}
	return "", false
}

// NormalizeStream extracts the direct media URL from an extractor info dict.
// When the top level carries no url the last audio-bearing format wins,
// matching the extractor's worst-to-best ordering.
func NormalizeStream(info map[string]any) (models.StreamURL, error) {
	if info == nil {
		return models.StreamURL{}, fallback.ShapeErrorf("Could not extract stream URL")
	}
	if u, ok := fallback.FirstString(info, "url"); ok {
		return models.StreamURL{StreamURL: u}, nil
	}

	formats, _ := info["formats"].([]any)
	for i := len(formats) - 1; i >= 0; i-- {
		f, ok := formats[i].(map[string]any)
		if !ok {
			continue
		}
		u, ok := fallback.FirstString(f, "url")
		if !ok {
			continue
		}
		if fallback.StringOr(f, "", "acodec") == "none" {
			continue
		}
		return models.StreamURL{StreamURL: u}, nil
	}
	return models.StreamURL{}, fallback.ShapeErrorf("Could not extract stream URL")
}
