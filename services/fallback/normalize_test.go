package fallback

import (
	"encoding/json"
	"testing"
)

func TestFirstString_SkipsBlank(t *testing.T) {
	m := map[string]any{"plainLyrics": "   ", "syncedLyrics": "[00:01] hi"}

	got, ok := FirstString(m, "plainLyrics", "syncedLyrics")
	if !ok || got != "[00:01] hi" {
		t.Fatalf("expected synced lyrics, got %q (ok=%v)", got, ok)
	}

	if _, ok := FirstString(m, "lyrics"); ok {
		t.Fatal("expected no match for absent field")
	}
	if _, ok := FirstString(map[string]any{"lyrics": 42}, "lyrics"); ok {
		t.Fatal("expected non-string field to be ignored")
	}
}

func TestRequireString(t *testing.T) {
	_, err := RequireString(map[string]any{}, "url")
	if reason, _ := Classify(err); reason != ReasonBadShape {
		t.Fatalf("expected bad-shape, got %v", reason)
	}
}

func TestNumberOr(t *testing.T) {
	m := map[string]any{"a": json.Number("12.5"), "b": "nope", "c": 7}
	if got := NumberOr(m, "a", 0); got != 12.5 {
		t.Errorf("a: got %v", got)
	}
	if got := NumberOr(m, "b", 1); got != 1 {
		t.Errorf("b: got %v", got)
	}
	if got := NumberOr(m, "c", 0); got != 7 {
		t.Errorf("c: got %v", got)
	}
	if got := NumberOr(m, "missing", 0); got != 0 {
		t.Errorf("missing: got %v", got)
	}
}

func TestDecodeObject(t *testing.T) {
	if _, err := DecodeObject([]byte(`null`)); err == nil {
		t.Error("expected error for null payload")
	}
	if _, err := DecodeObject([]byte(`[1,2]`)); err == nil {
		t.Error("expected error for array payload")
	}
	m, err := DecodeObject([]byte(`{"url":"https://x"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if StringOr(m, "", "url") != "https://x" {
		t.Errorf("unexpected url: %v", m["url"])
	}
}
