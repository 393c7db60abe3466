package builtin

import (
	"fmt"
	"path/filepath"
	"strings"
)

const defaultScanDir = "work"

func stringOption(opts map[string]any, key, fallback string) (string, error) {
	raw, ok := opts[key]
	if !ok || raw == nil {
		return fallback, nil
	}
	value, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("%s must be a string", key)
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback, nil
	}
	return value, nil
}

func stringListOption(opts map[string]any, key string, fallback []string) ([]string, error) {
	raw, ok := opts[key]
	if !ok || raw == nil {
		return fallback, nil
	}
	var items []any
	switch typed := raw.(type) {
	case []string:
		for _, item := range typed {
			items = append(items, item)
		}
	case []any:
		items = typed
	default:
		return nil, fmt.Errorf("%s must be a list of strings", key)
	}
	out := make([]string, 0, len(items))
	for i, item := range items {
		value, ok := item.(string)
		if !ok || strings.TrimSpace(value) == "" {
			return nil, fmt.Errorf("%s[%d] must be a non-empty string", key, i)
		}
		out = append(out, strings.TrimSpace(value))
	}
	return out, nil
}

// scanDirOption returns the run-relative directory a gate walks.
func scanDirOption(opts map[string]any) (string, error) {
	dir, err := stringOption(opts, "dir", defaultScanDir)
	if err != nil {
		return "", err
	}
	if filepath.IsAbs(dir) {
		return "", fmt.Errorf("dir must be relative to the run directory")
	}
	clean := filepath.Clean(dir)
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("dir must stay inside the run directory")
	}
	return clean, nil
}

func unknownKeys(opts map[string]any, allowed ...string) []string {
	known := make(map[string]bool, len(allowed))
	for _, key := range allowed {
		known[key] = true
	}
	var problems []string
	for key := range opts {
		if !known[key] {
			problems = append(problems, fmt.Sprintf("unknown option %q", key))
		}
	}
	return sortedStrings(problems)
}

func checkScanOptions(opts map[string]any, _ string) []string {
	problems := unknownKeys(opts, "dir")
	if _, err := scanDirOption(opts); err != nil {
		problems = append(problems, err.Error())
	}
	return problems
}
