package runner

import (
	"fmt"
	"strings"
	"time"

	"docpilot/internal/canonical"
	"docpilot/internal/spec"
)

const (
	configHashLen = 8
	refLen        = 7
)

// NewRunID stamps a run with its start time, the config it ran with and the
// source revision it was generated from.
func NewRunID(now time.Time, cfg spec.Config, sourceRef string) (string, error) {
	hash, err := ConfigHash(cfg)
	if err != nil {
		return "", err
	}
	return FormatRunID(now, hash, sourceRef), nil
}

// ConfigHash is the canonical digest of the run configuration.
func ConfigHash(cfg spec.Config) (string, error) {
	hash, err := canonical.Fingerprint(cfg)
	if err != nil {
		return "", fmt.Errorf("hash config: %w", err)
	}
	return hash, nil
}

func FormatRunID(now time.Time, configHash, sourceRef string) string {
	parts := []string{now.UTC().Format("20060102T150405Z"), truncate(configHash, configHashLen)}
	if ref := sanitizeRef(truncate(sourceRef, refLen)); ref != "" {
		parts = append(parts, ref)
	}
	return strings.Join(parts, "-")
}

func truncate(value string, n int) string {
	if len(value) > n {
		return value[:n]
	}
	return value
}

// sanitizeRef keeps run IDs a single path segment for refs like "origin/main".
func sanitizeRef(ref string) string {
	var b strings.Builder
	for _, r := range ref {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return strings.Trim(b.String(), ".")
}
