package eventlog

import (
	"errors"
	"fmt"
)

// CorruptLogError reports a record that could not be parsed. Events read
// before the bad record are still returned alongside it.
type CorruptLogError struct {
	Path string
	Line int
	// Trailing is set when the bad record is the last one in the file. A
	// trailing tear is recoverable: the valid prefix is complete history up
	// to the crash.
	Trailing bool
	Err      error
}

func (e *CorruptLogError) Error() string {
	kind := "corrupt record"
	if e.Trailing {
		kind = "corrupt trailing record"
	}
	return fmt.Sprintf("event log %s: %s at line %d: %v", e.Path, kind, e.Line, e.Err)
}

func (e *CorruptLogError) Unwrap() error {
	return e.Err
}

// IsRecoverable reports whether err is a trailing-record corruption, which
// callers should surface as a warning and continue with the valid prefix.
func IsRecoverable(err error) bool {
	var corrupt *CorruptLogError
	if errors.As(err, &corrupt) {
		return corrupt.Trailing
	}
	return false
}
