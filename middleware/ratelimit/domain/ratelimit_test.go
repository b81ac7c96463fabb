package domain

import (
	"testing"
	"time"
)

func TestWhitelist_MatchesPrefixCaseSensitive(t *testing.T) {
	w := Whitelist{"/ws/", "/metrics", "/health"}

	cases := map[string]bool{
		"/ws/chat":     true,
		"/metrics":     true,
		"/healthz":     true,
		"/Metrics":     false,
		"/products":    false,
		"/api/metrics": false,
		"":             false,
	}
	for path, want := range cases {
		if got := w.Matches(path); got != want {
			t.Fatalf("Matches(%q) = %v, want %v", path, got, want)
		}
	}
}

func TestWhitelist_EmptyPrefixNeverMatches(t *testing.T) {
	if (Whitelist{""}).Matches("/products") {
		t.Fatalf("empty prefix must not whitelist every path")
	}
}

func TestRetryAfterSeconds_RoundsUpWithFloor(t *testing.T) {
	cases := []struct {
		wait time.Duration
		want time.Duration
	}{
		{0, time.Second},
		{time.Millisecond, time.Second},
		{500 * time.Millisecond, time.Second},
		{time.Second, time.Second},
		{1001 * time.Millisecond, 2 * time.Second},
		{2500 * time.Millisecond, 3 * time.Second},
	}
	for _, c := range cases {
		if got := RetryAfterSeconds(c.wait); got != c.want {
			t.Fatalf("RetryAfterSeconds(%s) = %s, want %s", c.wait, got, c.want)
		}
	}
}
