package canonical

import (
	"encoding/json"
	"testing"
)

func TestJSONSortsKeysRecursively(t *testing.T) {
	got, err := JSON(map[string]any{
		"b": 1,
		"a": map[string]any{"z": true, "y": []any{"x"}},
	})
	if err != nil {
		t.Fatalf("json: %v", err)
	}
	want := `{"a":{"y":["x"],"z":true},"b":1}`
	if string(got) != want {
		t.Fatalf("got %s want %s", got, want)
	}
}

func TestJSONNormalizesUnicodeToNFC(t *testing.T) {
	decomposed, err := JSON(map[string]string{"title": "Cafe\u0301"})
	if err != nil {
		t.Fatalf("json: %v", err)
	}
	composed, err := JSON(map[string]string{"title": "Caf\u00e9"})
	if err != nil {
		t.Fatalf("json: %v", err)
	}
	if string(decomposed) != string(composed) {
		t.Fatalf("expected NFC normalization: %s vs %s", decomposed, composed)
	}
}

func TestJSONPreservesLargeIntegers(t *testing.T) {
	got, err := JSON(json.RawMessage(`{"n":12345678901234567890}`))
	if err != nil {
		t.Fatalf("json: %v", err)
	}
	if string(got) != `{"n":12345678901234567890}` {
		t.Fatalf("unexpected encoding %s", got)
	}
}

func TestFingerprintIgnoresStructFieldOrder(t *testing.T) {
	type first struct {
		A string `json:"a"`
		B string `json:"b"`
	}
	type second struct {
		B string `json:"b"`
		A string `json:"a"`
	}
	left, err := Fingerprint(first{A: "1", B: "2"})
	if err != nil {
		t.Fatalf("fingerprint: %v", err)
	}
	right, err := Fingerprint(second{A: "1", B: "2"})
	if err != nil {
		t.Fatalf("fingerprint: %v", err)
	}
	if left != right || len(left) != 64 {
		t.Fatalf("expected equal 64-char digests, got %s and %s", left, right)
	}
}

func TestIndentJSONEndsWithNewline(t *testing.T) {
	got, err := IndentJSON(map[string]int{"a": 1})
	if err != nil {
		t.Fatalf("indent: %v", err)
	}
	if string(got) != "{\n  \"a\": 1\n}\n" {
		t.Fatalf("unexpected output %q", got)
	}
}
