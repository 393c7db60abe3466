package runner

import (
	"context"
	"errors"
)

// ErrBatchNotImplemented is returned by RunBatch. Runs execute one at a time.
var ErrBatchNotImplemented = errors.New("batch execution is not implemented")

// RunBatch is the extension point for executing several runs concurrently.
func RunBatch(_ context.Context, _ []RunParams) ([]Result, error) {
	return nil, ErrBatchNotImplemented
}
