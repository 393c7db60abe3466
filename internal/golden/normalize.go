// Package golden captures reference artifact hashes for accepted runs and
// verifies later runs against them.
package golden

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"docpilot/internal/canonical"
)

// TimestampKeys are object keys removed before hashing structured artifacts.
var TimestampKeys = map[string]struct{}{
	"generated_at": {},
	"timestamp":    {},
	"captured_at":  {},
	"created_at":   {},
	"updated_at":   {},
	"started_at":   {},
	"finished_at":  {},
}

// RunIDPlaceholder replaces string values equal to the run ID.
const RunIDPlaceholder = "{run_id}"

// IdentityKeys are object keys naming the run itself. Run IDs embed the start
// time, so they are removed along with the timestamps.
var IdentityKeys = map[string]struct{}{
	"run_id": {},
}

// DefaultRoots are the run-relative directories whose files are hashed.
var DefaultRoots = []string{"artifacts", "work"}

// ReportFiles are run-level structured files hashed alongside the roots.
var ReportFiles = []string{"validation_report.json"}

// Normalizer neutralizes the two tolerated sources of non-determinism: the
// absolute run directory and wall-clock timestamps, including the run ID
// derived from the start time.
type Normalizer struct {
	prefixes []string
	runID    string
}

// NewNormalizer strips runDir and its symlink-resolved form from strings and
// treats the base name of runDir as the run ID.
func NewNormalizer(runDir string) Normalizer {
	var prefixes []string
	add := func(dir string) {
		if dir == "" {
			return
		}
		dir = filepath.Clean(dir)
		for _, existing := range prefixes {
			if existing == dir {
				return
			}
		}
		prefixes = append(prefixes, dir)
	}
	if abs, err := filepath.Abs(runDir); err == nil {
		add(abs)
		if resolved, err := filepath.EvalSymlinks(abs); err == nil {
			add(resolved)
		}
	}
	// Longest first so a resolved path never leaves a partial prefix behind.
	sort.Slice(prefixes, func(i, j int) bool { return len(prefixes[i]) > len(prefixes[j]) })
	runID := filepath.Base(filepath.Clean(runDir))
	if runID == "." || runID == string(filepath.Separator) {
		runID = ""
	}
	return Normalizer{prefixes: prefixes, runID: runID}
}

// JSON returns the canonical normalized form of a JSON document.
func (n Normalizer) JSON(data []byte) ([]byte, error) {
	tree, err := canonical.Normalize(data)
	if err != nil {
		return nil, err
	}
	return canonical.JSON(n.Tree(tree))
}

// Value normalizes any JSON-marshalable value.
func (n Normalizer) Value(value any) ([]byte, error) {
	tree, err := canonical.Normalize(value)
	if err != nil {
		return nil, err
	}
	return canonical.JSON(n.Tree(tree))
}

// Tree returns a normalized copy of a generic JSON tree.
func (n Normalizer) Tree(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(typed))
		for key, inner := range typed {
			if _, drop := TimestampKeys[key]; drop {
				continue
			}
			if _, drop := IdentityKeys[key]; drop {
				continue
			}
			out[key] = n.Tree(inner)
		}
		return out
	case []any:
		out := make([]any, len(typed))
		for i := range typed {
			out[i] = n.Tree(typed[i])
		}
		return out
	case string:
		return n.String(typed)
	default:
		return value
	}
}

// String removes run directory prefixes from a path-like string. A prefix is
// only removed where it ends a path segment, so sibling directories that
// share its spelling are left intact.
func (n Normalizer) String(value string) string {
	for _, prefix := range n.prefixes {
		value = stripDirPrefix(value, prefix)
	}
	if n.runID != "" && value == n.runID {
		return RunIDPlaceholder
	}
	return value
}

func stripDirPrefix(value, prefix string) string {
	var b strings.Builder
	for {
		i := strings.Index(value, prefix)
		if i < 0 {
			b.WriteString(value)
			return b.String()
		}
		end := i + len(prefix)
		switch {
		case end == len(value):
			b.WriteString(value[:i])
			value = ""
		case value[end] == '/' || value[end] == filepath.Separator:
			b.WriteString(value[:i])
			value = value[end+1:]
		default:
			b.WriteString(value[:end])
			value = value[end:]
		}
	}
}

// HashFile hashes one run file. JSON files are normalized first; everything
// else is hashed byte for byte.
func (n Normalizer) HashFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	if strings.EqualFold(filepath.Ext(path), ".json") {
		normalized, err := n.JSON(data)
		if err != nil {
			return "", fmt.Errorf("normalize %s: %w", path, err)
		}
		data = normalized
	}
	return canonical.Digest(data), nil
}

// HashRun hashes every file under the given run-relative roots plus the
// run-level report files. Keys are slash-separated run-relative paths.
func HashRun(runDir string, roots []string) (map[string]string, error) {
	if len(roots) == 0 {
		roots = DefaultRoots
	}
	n := NewNormalizer(runDir)
	hashes := map[string]string{}
	for _, root := range roots {
		base := filepath.Join(runDir, filepath.FromSlash(root))
		if _, err := os.Stat(base); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, err
		}
		err := filepath.WalkDir(base, func(path string, entry fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if entry.IsDir() {
				return nil
			}
			rel, err := filepath.Rel(runDir, path)
			if err != nil {
				return err
			}
			hash, err := n.HashFile(path)
			if err != nil {
				return err
			}
			hashes[filepath.ToSlash(rel)] = hash
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("hash %s: %w", root, err)
		}
	}
	for _, name := range ReportFiles {
		path := filepath.Join(runDir, name)
		if _, err := os.Stat(path); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, err
		}
		hash, err := n.HashFile(path)
		if err != nil {
			return nil, err
		}
		hashes[name] = hash
	}
	return hashes, nil
}
