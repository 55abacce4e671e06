package lyrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"heimdall/services/fallback"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name    string
		payload map[string]any
		fields  []string
		want    string
		wantErr bool
	}{
		{"ovh", map[string]any{"lyrics": "la la"}, ovhFields, "la la", false},
		{"lrclib plain", map[string]any{"plainLyrics": "P", "syncedLyrics": "S"}, lrclibFields, "P", false},
		{"lrclib synced only", map[string]any{"syncedLyrics": "S"}, lrclibFields, "S", false},
		{"blank plain falls to synced", map[string]any{"plainLyrics": " ", "syncedLyrics": "S"}, lrclibFields, "S", false},
		{"empty lyrics", map[string]any{"lyrics": ""}, ovhFields, "", true},
		{"no field", map[string]any{"error": "No lyrics found"}, ovhFields, "", true},
		{"nil", nil, ovhFields, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Normalize(tt.payload, tt.fields)
			if tt.wantErr {
				if reason, _ := fallback.Classify(err); reason != fallback.ReasonBadShape {
					t.Fatalf("expected bad-shape, got %v (%v)", reason, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Lyrics != tt.want {
				t.Errorf("got %q, want %q", got.Lyrics, tt.want)
			}
		})
	}
}

func TestChain_FallsBackToLRCLIB(t *testing.T) {
	ovh := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.EscapedPath(), "/AC%2FDC/Back%20in%20Black") {
			t.Errorf("unexpected ovh path %q", r.URL.EscapedPath())
		}
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"No lyrics found"}`))
	}))
	defer ovh.Close()

	lrclib := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("artist_name") != "AC/DC" || r.URL.Query().Get("track_name") != "Back in Black" {
			t.Errorf("unexpected lrclib query %q", r.URL.RawQuery)
		}
		w.Write([]byte(`{"plainLyrics":"","syncedLyrics":"[00:01.00] Back in black"}`))
	}))
	defer lrclib.Close()

	chain, err := NewChain([]ProviderConfig{
		{Name: ProviderOVH, BaseURL: ovh.URL + "/v1", Timeout: time.Second},
		{Name: ProviderLRCLIB, BaseURL: lrclib.URL + "/api/get", Timeout: time.Second},
	}, http.DefaultClient, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewChain: %v", err)
	}

	res := chain.Resolve(context.Background(), Query{Artist: "AC/DC", Title: "Back in Black"})
	if !res.OK() {
		t.Fatalf("expected success, got %v", res.Err())
	}
	if res.Provider != ProviderLRCLIB {
		t.Errorf("expected lrclib to answer, got %s", res.Provider)
	}
	if res.Value.Lyrics != "[00:01.00] Back in black" {
		t.Errorf("unexpected lyrics %q", res.Value.Lyrics)
	}
}

func TestChain_SlowFirstProviderTimesOut(t *testing.T) {
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer slow.Close()

	fast := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"plainLyrics":"L"}`))
	}))
	defer fast.Close()

	chain, err := NewChain([]ProviderConfig{
		{Name: ProviderOVH, BaseURL: slow.URL, Timeout: 50 * time.Millisecond},
		{Name: ProviderLRCLIB, BaseURL: fast.URL, Timeout: time.Second},
	}, http.DefaultClient, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewChain: %v", err)
	}

	start := time.Now()
	res := chain.Resolve(context.Background(), Query{Artist: "A", Title: "B"})
	if !res.OK() || res.Value.Lyrics != "L" {
		t.Fatalf("expected L from lrclib, got %+v", res)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("resolution took %v, expected the slow provider to be cut off", elapsed)
	}
}

func TestChain_AllFail(t *testing.T) {
	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer down.Close()

	chain, err := NewChain([]ProviderConfig{
		{Name: ProviderOVH, BaseURL: down.URL},
		{Name: ProviderLRCLIB, BaseURL: down.URL},
	}, http.DefaultClient, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewChain: %v", err)
	}

	res := chain.Resolve(context.Background(), Query{Artist: "A", Title: "B"})
	if res.OK() {
		t.Fatal("expected failure")
	}
	if res.Failure.Reason != fallback.ReasonAggregated || len(res.Failure.Causes) != 2 {
		t.Fatalf("unexpected failure %+v", res.Failure)
	}
	for _, c := range res.Failure.Causes {
		if c.Reason != fallback.ReasonBadStatus || c.Status != http.StatusInternalServerError {
			t.Errorf("unexpected cause %+v", c)
		}
	}
}

func TestNewChain_UnknownProvider(t *testing.T) {
	if _, err := NewChain([]ProviderConfig{{Name: "genius"}}, nil, zerolog.Nop()); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}

func TestNewChain_DefaultOrder(t *testing.T) {
	chain, err := NewChain(nil, nil, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewChain: %v", err)
	}
	got := chain.Providers()
	if len(got) != 2 || got[0] != ProviderOVH || got[1] != ProviderLRCLIB {
		t.Errorf("unexpected default order %v", got)
	}
}
