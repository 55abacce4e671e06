package fallback

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type query struct{ text string }

func constProvider(name, value string) Provider[query, string] {
	return Provider[query, string]{
		Name:    name,
		Timeout: time.Second,
		Call: func(context.Context, query) (string, error) {
			return value, nil
		},
	}
}

func failingProvider(name string, err error, calls *int32) Provider[query, string] {
	return Provider[query, string]{
		Name:    name,
		Timeout: time.Second,
		Call: func(context.Context, query) (string, error) {
			if calls != nil {
				atomic.AddInt32(calls, 1)
			}
			return "", err
		},
	}
}

func TestResolve_FirstSuccessWins(t *testing.T) {
	var laterCalls int32
	chain := NewChain("lyrics", zerolog.Nop(),
		constProvider("ovh", "hello"),
		failingProvider("lrclib", errors.New("boom"), &laterCalls),
	)

	res := chain.Resolve(context.Background(), query{})
	require.True(t, res.OK())
	assert.Equal(t, "hello", res.Value)
	assert.Equal(t, "ovh", res.Provider)
	assert.Zero(t, atomic.LoadInt32(&laterCalls), "later providers must not be consulted")
}

func TestResolve_FallsThroughToSecond(t *testing.T) {
	chain := NewChain("lyrics", zerolog.Nop(),
		failingProvider("ovh", &StatusError{Code: http.StatusNotFound}, nil),
		constProvider("lrclib", "L"),
	)

	res := chain.Resolve(context.Background(), query{})
	require.True(t, res.OK())
	assert.Equal(t, "L", res.Value)
	assert.Equal(t, "lrclib", res.Provider)
}

func TestResolve_AggregatesInOrder(t *testing.T) {
	chain := NewChain("lyrics", zerolog.Nop(),
		failingProvider("a", context.DeadlineExceeded, nil),
		failingProvider("b", &StatusError{Code: http.StatusBadGateway}, nil),
		failingProvider("c", ShapeErrorf("no lyrics"), nil),
		failingProvider("d", errors.New("weird"), nil),
	)

	res := chain.Resolve(context.Background(), query{})
	require.False(t, res.OK())
	f := res.Failure
	assert.Equal(t, ReasonAggregated, f.Reason)
	assert.Equal(t, []Reason{ReasonTimeout, ReasonBadStatus, ReasonBadShape, ReasonUnknown}, f.Reasons())
	assert.Equal(t, http.StatusBadGateway, f.Causes[1].Status)
	assert.Equal(t, []string{"a", "b", "c", "d"}, []string{
		f.Causes[0].Provider, f.Causes[1].Provider, f.Causes[2].Provider, f.Causes[3].Provider,
	})
	assert.ErrorIs(t, res.Err(), ErrNotFound)
}

func TestResolve_EmptyChain(t *testing.T) {
	chain := NewChain[query, string]("search", zerolog.Nop())

	res := chain.Resolve(context.Background(), query{})
	require.False(t, res.OK())
	assert.Equal(t, ReasonAggregated, res.Failure.Reason)
	assert.Empty(t, res.Failure.Causes)
}

func TestResolve_IdempotentForPureProviders(t *testing.T) {
	chain := NewChain("lyrics", zerolog.Nop(),
		failingProvider("a", ShapeErrorf("x"), nil),
		constProvider("b", "same"),
	)

	first := chain.Resolve(context.Background(), query{})
	second := chain.Resolve(context.Background(), query{})
	assert.Equal(t, first, second)
}

func TestResolve_PanicIsIsolated(t *testing.T) {
	chain := NewChain("stream", zerolog.Nop(),
		Provider[query, string]{
			Name:    "panicky",
			Timeout: time.Second,
			Call: func(context.Context, query) (string, error) {
				panic("kaboom")
			},
		},
		constProvider("steady", "ok"),
	)

	res := chain.Resolve(context.Background(), query{})
	require.True(t, res.OK())
	assert.Equal(t, "ok", res.Value)
}

func TestResolve_CancelledContextMarksRemaining(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var calls int32
	chain := NewChain("lyrics", zerolog.Nop(),
		failingProvider("a", errors.New("x"), &calls),
		failingProvider("b", errors.New("y"), &calls),
	)

	res := chain.Resolve(ctx, query{})
	require.False(t, res.OK())
	assert.Len(t, res.Failure.Causes, 2)
	assert.Equal(t, []Reason{ReasonUnknown, ReasonUnknown}, res.Failure.Reasons())
	assert.Zero(t, atomic.LoadInt32(&calls))
}

func TestResolve_AllConfigCollapsesToConfig(t *testing.T) {
	chain := NewChain("metadata", zerolog.Nop(),
		failingProvider("tmdb", ConfigErrorf("TMDB API key not configured"), nil),
	)

	res := chain.Resolve(context.Background(), query{})
	require.False(t, res.OK())
	assert.Equal(t, ReasonConfig, res.Failure.Reason)
	assert.ErrorIs(t, res.Err(), ErrConfig)
	assert.Equal(t, "TMDB API key not configured", res.Failure.Message())
}

func TestCall_TimeoutIsBounded(t *testing.T) {
	p := Provider[query, string]{
		Name:    "slow",
		Timeout: 20 * time.Millisecond,
		Call: func(ctx context.Context, _ query) (string, error) {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(5 * time.Second):
				return "late", nil
			}
		},
	}

	start := time.Now()
	res := Call(context.Background(), p, query{}, zerolog.Nop())
	require.False(t, res.OK())
	assert.Equal(t, ReasonTimeout, res.Failure.Reason)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestCall_InvalidProviderIsConfig(t *testing.T) {
	cases := []Provider[query, string]{
		{Name: "", Timeout: time.Second, Call: func(context.Context, query) (string, error) { return "", nil }},
		{Name: "x", Timeout: 0, Call: func(context.Context, query) (string, error) { return "", nil }},
		{Name: "x", Timeout: time.Second},
	}
	for i, p := range cases {
		t.Run(fmt.Sprintf("case%d", i), func(t *testing.T) {
			res := Call(context.Background(), p, query{}, zerolog.Nop())
			require.False(t, res.OK())
			assert.Equal(t, ReasonConfig, res.Failure.Reason)
		})
	}
}

func TestCall_RetriesTransientOnly(t *testing.T) {
	var calls int32
	p := Provider[query, string]{
		Name:     "tmdb",
		Timeout:  time.Second,
		Attempts: 2,
		Call: func(context.Context, query) (string, error) {
			if atomic.AddInt32(&calls, 1) == 1 {
				return "", &StatusError{Code: http.StatusServiceUnavailable}
			}
			return "ok", nil
		},
	}
	res := Call(context.Background(), p, query{}, zerolog.Nop())
	require.True(t, res.OK())
	assert.EqualValues(t, 2, atomic.LoadInt32(&calls))

	calls = 0
	p.Call = func(context.Context, query) (string, error) {
		atomic.AddInt32(&calls, 1)
		return "", &StatusError{Code: http.StatusNotFound}
	}
	res = Call(context.Background(), p, query{}, zerolog.Nop())
	require.False(t, res.OK())
	assert.Equal(t, http.StatusNotFound, res.Failure.Status)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		reason Reason
	}{
		{"status", fmt.Errorf("wrapped: %w", &StatusError{Code: 500}), ReasonBadStatus},
		{"shape", ShapeErrorf("missing"), ReasonBadShape},
		{"config", ConfigErrorf("no key"), ReasonConfig},
		{"deadline", context.DeadlineExceeded, ReasonTimeout},
		{"dial", &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}, ReasonConnection},
		{"dns", &net.DNSError{Err: "no such host", Name: "nowhere.invalid"}, ReasonConnection},
		{"other", errors.New("mystery"), ReasonUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reason, _ := Classify(tt.err)
			assert.Equal(t, tt.reason, reason)
		})
	}
}

func TestGetJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			assert.Equal(t, UserAgent, r.Header.Get("User-Agent"))
			assert.Equal(t, "k", r.URL.Query().Get("api_key"))
			w.Write([]byte(`{"lyrics":"hi","n":3}`))
		case "/missing":
			http.Error(w, "nope", http.StatusNotFound)
		default:
			w.Write([]byte(`<html>`))
		}
	}))
	defer srv.Close()

	var out map[string]any
	err := GetJSON(context.Background(), srv.Client(), srv.URL+"/ok", map[string][]string{"api_key": {"k"}}, &out)
	require.NoError(t, err)
	assert.Equal(t, "hi", out["lyrics"])
	assert.Equal(t, float64(3), NumberOr(out, "n", 0))

	err = GetJSON(context.Background(), srv.Client(), srv.URL+"/missing", nil, &out)
	reason, status := Classify(err)
	assert.Equal(t, ReasonBadStatus, reason)
	assert.Equal(t, http.StatusNotFound, status)

	err = GetJSON(context.Background(), srv.Client(), srv.URL+"/html", nil, &out)
	reason, _ = Classify(err)
	assert.Equal(t, ReasonBadShape, reason)
}

func TestGetJSON_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	var out map[string]any
	err := GetJSON(context.Background(), http.DefaultClient, addr, nil, &out)
	reason, _ := Classify(err)
	assert.Equal(t, ReasonConnection, reason)
}
