package runner

import (
	"testing"
	"time"

	"docpilot/internal/spec"
)

// TestFormatRunID verifies run ID formatting.
func TestFormatRunID(t *testing.T) {
	timestamp := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	got := FormatRunID(timestamp, "deadbeefcafe", "0123456789abcdef")
	if got != "20240102T030405Z-deadbeef-0123456" {
		t.Fatalf("unexpected run id: %q", got)
	}
}

func TestFormatRunIDSanitizesRef(t *testing.T) {
	timestamp := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	got := FormatRunID(timestamp, "deadbeef", "origin/main")
	if got != "20240102T030405Z-deadbeef-origin_" {
		t.Fatalf("unexpected run id: %q", got)
	}
	if got := FormatRunID(timestamp, "deadbeef", "rel-1.2"); got != "20240102T030405Z-deadbeef-rel-1.2" {
		t.Fatalf("expected dashes and dots kept, got %q", got)
	}
	if got := FormatRunID(timestamp, "deadbeef", "a b+c"); got != "20240102T030405Z-deadbeef-a_b_c" {
		t.Fatalf("unexpected sanitized ref: %q", got)
	}
	if got := FormatRunID(timestamp, "deadbeef", ""); got != "20240102T030405Z-deadbeef" {
		t.Fatalf("unexpected run id without ref: %q", got)
	}
}

func TestNewRunIDIsStableForConfig(t *testing.T) {
	timestamp := time.Date(2024, 6, 7, 8, 9, 10, 0, time.UTC)
	cfg := spec.Config{Version: 1, Product: "docs", MaxFixAttempts: 2}
	first, err := NewRunID(timestamp, cfg, "abcdef0123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := NewRunID(timestamp, cfg, "abcdef0123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first != second {
		t.Fatalf("expected stable run id, got %q and %q", first, second)
	}
	cfg.MaxFixAttempts = 3
	third, err := NewRunID(timestamp, cfg, "abcdef0123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if third == first {
		t.Fatalf("expected config change to change run id")
	}
}
