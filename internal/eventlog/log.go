package eventlog

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"docpilot/internal/logging"
)

// FileName is the event log file inside a run directory.
const FileName = "events.jsonl"

// PathFor returns the event log path for a run directory.
func PathFor(runDir string) string {
	return filepath.Join(runDir, FileName)
}

// Options customizes clocks and id generation, mainly for tests.
type Options struct {
	Now    func() time.Time
	NewID  func() string
	Logger *slog.Logger
}

// Log appends events for a single run. It is safe for concurrent use, but a
// run has exactly one writer: the orchestrator.
type Log struct {
	path    string
	runID   string
	mu      sync.Mutex
	lastSeq int64
	now     func() time.Time
	newID   func() string
	logger  *slog.Logger
}

// Open prepares a log for appending and returns the events already recorded.
// A torn trailing record left by a crash is truncated after a warning so that
// new appends start on a clean line; corruption in the middle of the file is
// returned as an error.
func Open(path, runID string, opts Options) (*Log, []Event, error) {
	if strings.TrimSpace(path) == "" {
		return nil, nil, fmt.Errorf("event log path is required")
	}
	if strings.TrimSpace(runID) == "" {
		return nil, nil, fmt.Errorf("run id is required")
	}
	log := &Log{
		path:   path,
		runID:  runID,
		now:    opts.Now,
		newID:  opts.NewID,
		logger: logging.OrDiscard(opts.Logger),
	}
	if log.now == nil {
		log.now = time.Now
	}
	if log.newID == nil {
		log.newID = uuid.NewString
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("create event log dir: %w", err)
	}

	events, validSize, err := readFile(path)
	switch {
	case err == nil:
	case errors.Is(err, os.ErrNotExist):
		events = nil
	case IsRecoverable(err):
		log.logger.Warn("event log has a corrupt trailing record; truncating to valid prefix",
			"path", path, "events", len(events), "error", err)
		if truncErr := os.Truncate(path, validSize); truncErr != nil {
			return nil, nil, fmt.Errorf("truncate event log: %w", truncErr)
		}
	default:
		return nil, nil, err
	}
	for _, event := range events {
		if event.RunID != runID {
			return nil, nil, fmt.Errorf("event log %s belongs to run %q, not %q", path, event.RunID, runID)
		}
	}
	if len(events) > 0 {
		log.lastSeq = events[len(events)-1].Seq
	}
	return log, events, nil
}

// Path returns the file backing the log.
func (l *Log) Path() string {
	return l.path
}

// RunID returns the run the log belongs to.
func (l *Log) RunID() string {
	return l.runID
}

// Append marshals payload, writes one record and syncs it to disk before
// returning. The sequence number only advances once the record is durable.
func (l *Log) Append(eventType Type, payload any) (Event, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var raw json.RawMessage
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return Event{}, fmt.Errorf("marshal %s payload: %w", eventType, err)
		}
		raw = data
	}
	event := Event{
		EventID:   l.newID(),
		Seq:       l.lastSeq + 1,
		Type:      eventType,
		RunID:     l.runID,
		Timestamp: l.now().UTC(),
		Payload:   raw,
	}
	if err := Validate(event); err != nil {
		return Event{}, err
	}
	line, err := json.Marshal(event)
	if err != nil {
		return Event{}, fmt.Errorf("marshal event: %w", err)
	}
	line = append(line, '\n')
	if err := appendDurable(l.path, line); err != nil {
		return Event{}, err
	}
	l.lastSeq = event.Seq
	return event, nil
}

// ReadAll returns the log's events in append order.
func (l *Log) ReadAll() ([]Event, error) {
	return ReadAll(l.path)
}

// ReadAll reads every event from path in append order. It never modifies the
// file. On corruption the valid prefix is returned together with a
// *CorruptLogError; see IsRecoverable.
func ReadAll(path string) ([]Event, error) {
	events, _, err := readFile(path)
	return events, err
}

func appendDurable(path string, line []byte) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open event log: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return fmt.Errorf("stat event log: %w", err)
	}
	_, writeErr := f.Write(line)
	syncErr := f.Sync()
	if writeErr != nil || syncErr != nil {
		// Drop any partial bytes so the next append starts on a clean line.
		_ = f.Truncate(info.Size())
		_ = f.Close()
		if writeErr != nil {
			return fmt.Errorf("append event: %w", writeErr)
		}
		return fmt.Errorf("sync event log: %w", syncErr)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close event log: %w", err)
	}
	return nil
}

// readFile parses path and returns the events plus the byte size of the
// valid prefix.
func readFile(path string) ([]Event, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("open event log: %w", err)
	}
	defer f.Close()

	reader := bufio.NewReader(f)
	events := []Event{}
	var offset int64
	lineNo := 0
	for {
		line, readErr := reader.ReadBytes('\n')
		if len(line) > 0 {
			lineNo++
			complete := line[len(line)-1] == '\n'
			trimmed := bytes.TrimSpace(line)
			if len(trimmed) == 0 {
				if complete {
					offset += int64(len(line))
				}
			} else {
				if !complete {
					return events, offset, &CorruptLogError{Path: path, Line: lineNo, Trailing: true, Err: errors.New("unterminated record")}
				}
				event, parseErr := parseRecord(trimmed, events)
				if parseErr != nil {
					return events, offset, &CorruptLogError{Path: path, Line: lineNo, Trailing: restIsEmpty(reader), Err: parseErr}
				}
				events = append(events, event)
				offset += int64(len(line))
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return events, offset, fmt.Errorf("read event log: %w", readErr)
		}
	}
	return events, offset, nil
}

func parseRecord(line []byte, prior []Event) (Event, error) {
	var event Event
	if err := json.Unmarshal(line, &event); err != nil {
		return Event{}, err
	}
	if err := Validate(event); err != nil {
		return Event{}, err
	}
	if len(prior) > 0 {
		last := prior[len(prior)-1]
		if event.RunID != last.RunID {
			return Event{}, fmt.Errorf("%w: run_id %q differs from %q", ErrInvalidEvent, event.RunID, last.RunID)
		}
		if event.Seq != last.Seq+1 {
			return Event{}, fmt.Errorf("%w: seq %d does not follow %d", ErrInvalidEvent, event.Seq, last.Seq)
		}
	} else if event.Seq != 1 {
		return Event{}, fmt.Errorf("%w: first seq is %d", ErrInvalidEvent, event.Seq)
	}
	return event, nil
}

func restIsEmpty(reader *bufio.Reader) bool {
	rest, err := io.ReadAll(reader)
	if err != nil {
		return false
	}
	return len(bytes.TrimSpace(rest)) == 0
}
