package music

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"heimdall/services/fallback"
)

func rawEntries(t *testing.T, s string) []json.RawMessage {
	t.Helper()
	var out []json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(s), &out))
	return out
}

func TestNormalizeEntries(t *testing.T) {
	entries := rawEntries(t, `[
		null,
		{"title": "no ref"},
		{"webpage_url": "https://www.youtube.com/watch?v=a", "title": "A", "uploader": "Band", "thumbnail": "https://i/a.jpg", "duration": 215},
		{"webpage_url": "https://www.youtube.com/watch?v=b", "title": ""},
		{"id": "c", "extractor_key": "Youtube", "title": "C", "channel": "Chan"},
		{"url": "https://www.youtube.com/watch?v=d", "title": "D"},
		"garbage"
	]`)

	hits := NormalizeEntries(entries, 5)
	require.Len(t, hits, 3)

	assert.Equal(t, "https://www.youtube.com/watch?v=a", hits[0].ID)
	assert.Equal(t, "Band", hits[0].Artist)
	assert.Equal(t, "https://i/a.jpg", hits[0].Image)
	assert.Equal(t, float64(215), hits[0].Duration)
	assert.Equal(t, SourceYouTube, hits[0].Source)

	assert.Equal(t, "https://www.youtube.com/watch?v=c", hits[1].ID)
	assert.Equal(t, "Chan", hits[1].Artist)

	assert.Equal(t, "Unknown Artist", hits[2].Artist)
	assert.Equal(t, "", hits[2].Image)
	assert.Zero(t, hits[2].Duration)
}

func TestNormalizeEntries_Cap(t *testing.T) {
	var raw []json.RawMessage
	for i := 0; i < 10; i++ {
		if i == 1 || i == 3 {
			raw = append(raw, json.RawMessage("null"))
			continue
		}
		b, _ := json.Marshal(map[string]any{"webpage_url": "https://x/" + string(rune('a'+i)), "title": "t"})
		raw = append(raw, b)
	}

	hits := NormalizeEntries(raw, 5)
	require.Len(t, hits, 5)
	assert.Equal(t, "https://x/a", hits[0].ID)
	assert.Equal(t, "https://x/c", hits[1].ID)
	assert.Equal(t, "https://x/g", hits[4].ID, "entries past the cap are not read")
}

func TestNormalizeStream(t *testing.T) {
	got, err := NormalizeStream(map[string]any{"url": "https://cdn/audio"})
	require.NoError(t, err)
	assert.Equal(t, "https://cdn/audio", got.StreamURL)

	got, err = NormalizeStream(map[string]any{"formats": []any{
		map[string]any{"url": "https://cdn/low", "acodec": "opus"},
		map[string]any{"url": "https://cdn/video", "acodec": "none"},
		map[string]any{"acodec": "opus"},
	}})
	require.NoError(t, err)
	assert.Equal(t, "https://cdn/low", got.StreamURL)

	_, err = NormalizeStream(map[string]any{"title": "no url"})
	reason, _ := fallback.Classify(err)
	assert.Equal(t, fallback.ReasonBadShape, reason)
}

func TestSearchProvider(t *testing.T) {
	ctrl := gomock.NewController(t)
	runner := NewMockRunner(ctrl)

	runner.EXPECT().
		Run(gomock.Any(), SearchArgs("daft punk", DefaultSearchPool)).
		Return([]byte(`{"entries":[{"webpage_url":"https://y/1","title":"One More Time","uploader":"Daft Punk"}]}`), nil)

	chain := NewSearchChain(runner, Options{}, zerolog.Nop())
	res := chain.Resolve(context.Background(), SearchQuery{Text: "daft punk"})
	require.True(t, res.OK(), "unexpected failure: %v", res.Err())
	require.Len(t, res.Value, 1)
	assert.Equal(t, "One More Time", res.Value[0].Title)
}

func TestSearchArgs(t *testing.T) {
	args := SearchArgs("daft punk", 10)
	assert.Equal(t, "ytsearch10:daft punk official audio", args[len(args)-1])
}

func TestSearchProvider_PartialOutputOnExitError(t *testing.T) {
	ctrl := gomock.NewController(t)
	runner := NewMockRunner(ctrl)

	runner.EXPECT().
		Run(gomock.Any(), gomock.Any()).
		Return([]byte(`{"entries":[null,{"webpage_url":"https://y/2","title":"Two"}]}`), errors.New("yt-dlp exited with 1"))

	res := NewSearchChain(runner, Options{}, zerolog.Nop()).Resolve(context.Background(), SearchQuery{Text: "x"})
	require.True(t, res.OK())
	assert.Len(t, res.Value, 1)
}

func TestSearchProvider_MissingEntriesIsBadShape(t *testing.T) {
	ctrl := gomock.NewController(t)
	runner := NewMockRunner(ctrl)
	runner.EXPECT().Run(gomock.Any(), gomock.Any()).Return([]byte(`{"title":"x"}`), nil)

	res := callProvider(t, NewSearchProvider(runner, Options{}), SearchQuery{Text: "x"})
	require.False(t, res.OK())
	assert.Equal(t, fallback.ReasonBadShape, res.Failure.Reason)
}

func TestStreamProvider(t *testing.T) {
	ctrl := gomock.NewController(t)
	runner := NewMockRunner(ctrl)

	runner.EXPECT().
		Run(gomock.Any(), StreamArgs("https://y/1")).
		Return([]byte(`{"id":"1","url":"https://cdn/stream"}`), nil)

	res := NewStreamChain(runner, Options{}, zerolog.Nop()).
		Resolve(context.Background(), StreamQuery{Source: "youtube", Ref: "https://y/1"})
	require.True(t, res.OK())
	assert.Equal(t, "https://cdn/stream", res.Value.StreamURL)
}

func TestStreamProvider_UnsupportedSource(t *testing.T) {
	ctrl := gomock.NewController(t)
	runner := NewMockRunner(ctrl)

	res := NewStreamChain(runner, Options{}, zerolog.Nop()).
		Resolve(context.Background(), StreamQuery{Source: "soundcloud", Ref: "x"})
	require.False(t, res.OK())
	assert.Equal(t, "Could not find stream URL", res.Failure.Message())
}

func TestStreamProvider_MissingBinaryIsConfig(t *testing.T) {
	runner := NewExecRunner("/nonexistent/yt-dlp-binary")

	res := NewStreamChain(runner, Options{StreamTimeout: time.Second}, zerolog.Nop()).
		Resolve(context.Background(), StreamQuery{Source: "youtube", Ref: "https://y/1"})
	require.False(t, res.OK())
	assert.ErrorIs(t, res.Err(), fallback.ErrConfig)
	assert.Equal(t, "yt-dlp not found in system", res.Failure.Message())
}

func callProvider[Q, T any](t *testing.T, p fallback.Provider[Q, T], q Q) fallback.Result[T] {
	t.Helper()
	return fallback.Call(context.Background(), p, q, zerolog.Nop())
}
