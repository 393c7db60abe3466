package objectstore

import (
	"errors"
	"testing"
	"time"

	"docpilot/internal/testutil"
)

func TestConfigValidate(t *testing.T) {
	valid := Config{Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "b", Bucket: "golden"}
	if err := valid.Validate(); err != nil {
		t.Fatalf("Validate() err=%v", err)
	}
	invalid := valid
	invalid.Endpoint = "http://localhost:9000"
	if err := invalid.Validate(); err == nil {
		t.Fatalf("Validate() expected error for scheme in endpoint")
	}
	invalid = valid
	invalid.Bucket = ""
	if err := invalid.Validate(); err == nil {
		t.Fatalf("Validate() expected error for missing bucket")
	}
}

func TestNewMinioDoesNotDial(t *testing.T) {
	store, err := NewMinio(Config{Endpoint: "127.0.0.1:1", AccessKey: "a", SecretKey: "b", Bucket: "golden"})
	if err != nil || store == nil {
		t.Fatalf("NewMinio() err=%v", err)
	}
}

func TestMemoryStore(t *testing.T) {
	ctx := testutil.Context(t, time.Second)
	store := NewMemory()
	if _, err := store.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	for _, key := range []string{"golden/b.json", "golden/a.json", "other/c.json"} {
		if err := store.Put(ctx, key, []byte(key), "application/json"); err != nil {
			t.Fatalf("put %s: %v", key, err)
		}
	}
	keys, err := store.List(ctx, "golden/")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(keys) != 2 || keys[0] != "golden/a.json" {
		t.Fatalf("unexpected keys %v", keys)
	}
	data, err := store.Get(ctx, "golden/b.json")
	if err != nil || string(data) != "golden/b.json" {
		t.Fatalf("unexpected get %q %v", data, err)
	}
}
