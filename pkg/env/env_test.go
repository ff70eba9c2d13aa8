package env

import "testing"

func TestGetPrefersPrefixedKey(t *testing.T) {
	t.Setenv("ORDERDESK_LOG_FORMAT", "console")
	t.Setenv("LOG_FORMAT", "json")
	if got := Get("LOG_FORMAT", "text"); got != "console" {
		t.Fatalf("expected prefixed value, got %q", got)
	}
}

func TestGetFallsBack(t *testing.T) {
	t.Setenv("ORDERDESK_LOG_FORMAT", "")
	t.Setenv("LOG_FORMAT", "json")
	if got := Get("LOG_FORMAT", "text"); got != "json" {
		t.Fatalf("expected bare value, got %q", got)
	}
	t.Setenv("LOG_FORMAT", "")
	if got := Get("LOG_FORMAT", "text"); got != "text" {
		t.Fatalf("expected fallback, got %q", got)
	}
}
