package golden

import (
	"fmt"
	"os"
	"time"
)

// CaptureRequest names the run being accepted as a reference.
type CaptureRequest struct {
	RunDir  string
	RunID   string
	Product string
	GitRef  string
	Roots   []string
}

// Capture hashes a run's artifacts into metadata without storing it.
func Capture(req CaptureRequest, now time.Time) (Metadata, error) {
	if info, err := os.Stat(req.RunDir); err != nil {
		return Metadata{}, fmt.Errorf("run dir: %w", err)
	} else if !info.IsDir() {
		return Metadata{}, fmt.Errorf("run dir %s is not a directory", req.RunDir)
	}
	hashes, err := HashRun(req.RunDir, req.Roots)
	if err != nil {
		return Metadata{}, err
	}
	meta := Metadata{
		RunID:       req.RunID,
		ProductName: req.Product,
		GitRef:      req.GitRef,
		Artifacts:   hashes,
		CapturedAt:  now.UTC(),
	}
	if err := meta.Validate(); err != nil {
		return Metadata{}, err
	}
	return meta, nil
}

// VerifyRun hashes a candidate run and compares it with a stored reference.
func VerifyRun(reference Metadata, runDir string, roots []string) (Verification, error) {
	hashes, err := HashRun(runDir, roots)
	if err != nil {
		return Verification{}, err
	}
	return Compare(reference.Artifacts, hashes), nil
}
