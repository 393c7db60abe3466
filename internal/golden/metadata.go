package golden

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"
)

// ErrGoldenRunNotFound is returned when no reference exists for a product
// and ref.
var ErrGoldenRunNotFound = errors.New("golden run not found")

// Metadata is the accepted reference for one run.
type Metadata struct {
	RunID       string            `json:"run_id"`
	ProductName string            `json:"product_name"`
	GitRef      string            `json:"git_ref"`
	Artifacts   map[string]string `json:"artifacts"`
	CapturedAt  time.Time         `json:"captured_at"`
}

// Key identifies a reference set.
type Key struct {
	Product string
	GitRef  string
}

func (k Key) Validate() error {
	if strings.TrimSpace(k.Product) == "" {
		return fmt.Errorf("product is required")
	}
	if strings.ContainsAny(k.Product, `/\`) || k.Product == "." || k.Product == ".." {
		return fmt.Errorf("product %q must not contain path separators", k.Product)
	}
	if strings.TrimSpace(k.GitRef) == "" {
		return fmt.Errorf("git ref is required")
	}
	return nil
}

// refSegment turns a git ref such as refs/heads/main into one path segment.
func refSegment(ref string) string {
	return url.PathEscape(ref)
}

func (m Metadata) Key() Key {
	return Key{Product: m.ProductName, GitRef: m.GitRef}
}

// Paths lists artifact paths alphabetically.
func (m Metadata) Paths() []string {
	paths := make([]string, 0, len(m.Artifacts))
	for path := range m.Artifacts {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}

func (m Metadata) Validate() error {
	if err := m.Key().Validate(); err != nil {
		return err
	}
	return validateRunID(m.RunID)
}

// validateRunID keeps a run id to a single file name inside the store.
func validateRunID(runID string) error {
	if strings.TrimSpace(runID) == "" {
		return fmt.Errorf("run id is required")
	}
	if strings.ContainsAny(runID, `/\`) || runID == "." || runID == ".." {
		return fmt.Errorf("run id %q must not contain path separators", runID)
	}
	return nil
}
