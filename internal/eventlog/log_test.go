package eventlog

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"docpilot/internal/testutil"
)

func newTestLog(t *testing.T) (*Log, string) {
	t.Helper()
	path := PathFor(t.TempDir())
	clock := testutil.NewSteppingClock(time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC), time.Second)
	counter := 0
	log, existing, err := Open(path, "run-1", Options{
		Now: clock.Now,
		NewID: func() string {
			counter++
			return fmt.Sprintf("evt-%d", counter)
		},
	})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if len(existing) != 0 {
		t.Fatalf("expected empty log, got %d events", len(existing))
	}
	return log, path
}

func TestAppendAndReadAllPreservesOrder(t *testing.T) {
	log, path := newTestLog(t)
	types := []Type{TypeRunCreated, TypeRunStateChanged, TypeStageStarted, TypeStageCompleted}
	for i, eventType := range types {
		event, err := log.Append(eventType, map[string]int{"index": i})
		if err != nil {
			t.Fatalf("append %s: %v", eventType, err)
		}
		if event.Seq != int64(i+1) {
			t.Fatalf("expected seq %d, got %d", i+1, event.Seq)
		}
	}

	events, err := ReadAll(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(events) != len(types) {
		t.Fatalf("expected %d events, got %d", len(types), len(events))
	}
	for i, event := range events {
		if event.Type != types[i] || event.RunID != "run-1" {
			t.Fatalf("event %d: unexpected %+v", i, event)
		}
		var payload map[string]int
		if err := event.Decode(&payload); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if payload["index"] != i {
			t.Fatalf("event %d: unexpected payload %v", i, payload)
		}
	}

	again, err := log.ReadAll()
	if err != nil || len(again) != len(events) {
		t.Fatalf("expected repeatable read, got %d events err=%v", len(again), err)
	}
}

func TestAppendRejectsUnknownType(t *testing.T) {
	log, path := newTestLog(t)
	if _, err := log.Append(Type("SOMETHING"), nil); !errors.Is(err, ErrInvalidEvent) {
		t.Fatalf("expected ErrInvalidEvent, got %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("expected no file to be written, got %v", err)
	}
}

func TestReadAllRecoversValidPrefixFromTornTail(t *testing.T) {
	log, path := newTestLog(t)
	for _, eventType := range []Type{TypeRunCreated, TypeRunStateChanged} {
		if _, err := log.Append(eventType, nil); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := f.WriteString(`{"event_id":"evt-3","seq":3,"ty`); err != nil {
		t.Fatalf("write: %v", err)
	}
	_ = f.Close()

	events, err := ReadAll(path)
	if len(events) != 2 {
		t.Fatalf("expected valid prefix of 2 events, got %d", len(events))
	}
	var corrupt *CorruptLogError
	if !errors.As(err, &corrupt) {
		t.Fatalf("expected CorruptLogError, got %v", err)
	}
	if !corrupt.Trailing || corrupt.Line != 3 || !IsRecoverable(err) {
		t.Fatalf("expected recoverable trailing corruption at line 3, got %+v", corrupt)
	}
}

func TestReadAllFlagsMidFileCorruptionAsUnrecoverable(t *testing.T) {
	log, path := newTestLog(t)
	if _, err := log.Append(TypeRunCreated, nil); err != nil {
		t.Fatalf("append: %v", err)
	}
	data := testutil.ReadFile(t, path)
	corrupted := data + "not json\n" + strings.Replace(data, `"seq":1`, `"seq":2`, 1)
	if err := os.WriteFile(path, []byte(corrupted), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	events, err := ReadAll(path)
	if len(events) != 1 {
		t.Fatalf("expected 1 valid event, got %d", len(events))
	}
	if err == nil || IsRecoverable(err) {
		t.Fatalf("expected unrecoverable corruption, got %v", err)
	}
}

func TestReadAllRejectsSequenceGap(t *testing.T) {
	log, path := newTestLog(t)
	if _, err := log.Append(TypeRunCreated, nil); err != nil {
		t.Fatalf("append: %v", err)
	}
	data := testutil.ReadFile(t, path)
	gap := data + strings.Replace(data, `"seq":1`, `"seq":3`, 1)
	if err := os.WriteFile(path, []byte(gap), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	_, err := ReadAll(path)
	if !errors.Is(err, ErrInvalidEvent) {
		t.Fatalf("expected ErrInvalidEvent for seq gap, got %v", err)
	}
}

func TestOpenTruncatesTornTailAndContinuesSequence(t *testing.T) {
	log, path := newTestLog(t)
	if _, err := log.Append(TypeRunCreated, nil); err != nil {
		t.Fatalf("append: %v", err)
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	_, _ = f.WriteString(`{"partial":`)
	_ = f.Close()

	reopened, existing, err := Open(path, "run-1", Options{})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if len(existing) != 1 {
		t.Fatalf("expected 1 existing event, got %d", len(existing))
	}
	event, err := reopened.Append(TypeRunStateChanged, nil)
	if err != nil {
		t.Fatalf("append after reopen: %v", err)
	}
	if event.Seq != 2 {
		t.Fatalf("expected seq 2, got %d", event.Seq)
	}
	events, err := ReadAll(path)
	if err != nil || len(events) != 2 {
		t.Fatalf("expected clean log of 2 events, got %d err=%v", len(events), err)
	}
}

func TestOpenRejectsForeignRun(t *testing.T) {
	log, path := newTestLog(t)
	if _, err := log.Append(TypeRunCreated, nil); err != nil {
		t.Fatalf("append: %v", err)
	}
	if _, _, err := Open(path, "run-2", Options{}); err == nil {
		t.Fatalf("expected error opening another run's log")
	}
}

func TestReadAllMissingFile(t *testing.T) {
	_, err := ReadAll(filepath.Join(t.TempDir(), FileName))
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}
