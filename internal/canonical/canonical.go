// Package canonical produces deterministic JSON encodings for hashing and
// for artifacts that must be byte-stable across runs.
package canonical

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"golang.org/x/text/unicode/norm"
)

// JSON returns compact JSON with sorted object keys and NFC-normalized strings.
func JSON(value any) ([]byte, error) {
	normalized, err := Normalize(value)
	if err != nil {
		return nil, err
	}
	return encode(normalized, "")
}

// IndentJSON is JSON with two-space indentation and a trailing newline, for
// files people read.
func IndentJSON(value any) ([]byte, error) {
	normalized, err := Normalize(value)
	if err != nil {
		return nil, err
	}
	data, err := encode(normalized, "  ")
	if err != nil {
		return nil, err
	}
	return data, nil
}

// Fingerprint returns the SHA-256 hex digest of the canonical JSON for value.
func Fingerprint(value any) (string, error) {
	data, err := JSON(value)
	if err != nil {
		return "", err
	}
	return Digest(data), nil
}

// Digest returns the SHA-256 hex digest of data.
func Digest(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Normalize converts value into the generic JSON tree (map[string]any,
// []any, string, json.Number, bool, nil) with NFC-normalized strings.
func Normalize(value any) (any, error) {
	var tree any
	switch v := value.(type) {
	case json.RawMessage:
		if err := decode(v, &tree); err != nil {
			return nil, fmt.Errorf("canonical json raw: %w", err)
		}
	case []byte:
		if err := decode(v, &tree); err != nil {
			return nil, fmt.Errorf("canonical json bytes: %w", err)
		}
	default:
		data, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("canonical json marshal: %w", err)
		}
		if err := decode(data, &tree); err != nil {
			return nil, fmt.Errorf("canonical json decode: %w", err)
		}
	}
	return normalizeTree(tree), nil
}

func decode(data []byte, out *any) error {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()
	return decoder.Decode(out)
}

func normalizeTree(value any) any {
	switch v := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, inner := range v {
			out[norm.NFC.String(key)] = normalizeTree(inner)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i := range v {
			out[i] = normalizeTree(v[i])
		}
		return out
	case string:
		return norm.NFC.String(v)
	default:
		return v
	}
}

// encode relies on encoding/json sorting map keys.
func encode(tree any, indent string) ([]byte, error) {
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	if indent != "" {
		encoder.SetIndent("", indent)
	}
	if err := encoder.Encode(tree); err != nil {
		return nil, fmt.Errorf("canonical json encode: %w", err)
	}
	if indent == "" {
		return bytes.TrimRight(buf.Bytes(), "\n"), nil
	}
	return buf.Bytes(), nil
}
