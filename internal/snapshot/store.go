package snapshot

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"time"

	"docpilot/internal/canonical"
	"docpilot/internal/fsutil"
)

// FileName is the snapshot file inside a run directory.
const FileName = "snapshot.json"

// PathFor returns the snapshot location inside runDir.
func PathFor(runDir string) string {
	return filepath.Join(runDir, FileName)
}

// Save overwrites the snapshot at path atomically.
func Save(path string, snap Snapshot) error {
	data, err := canonical.IndentJSON(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return fsutil.WriteFileAtomic(path, data)
}

// Load reads a snapshot written by Save.
func Load(path string) (Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Snapshot{}, err
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("parse snapshot %s: %w", path, err)
	}
	return snap, nil
}

// Equal compares the semantically meaningful fields of two snapshots.
// UpdatedAt is ignored.
func Equal(a, b Snapshot) bool {
	diff, err := Diff(a, b)
	return err == nil && len(diff) == 0
}

// Diff lists the top-level fields that differ between a and b, ignoring
// UpdatedAt.
func Diff(a, b Snapshot) ([]string, error) {
	left, err := semanticFields(a)
	if err != nil {
		return nil, err
	}
	right, err := semanticFields(b)
	if err != nil {
		return nil, err
	}
	keys := map[string]struct{}{}
	for key := range left {
		keys[key] = struct{}{}
	}
	for key := range right {
		keys[key] = struct{}{}
	}
	var diff []string
	for key := range keys {
		if !reflect.DeepEqual(left[key], right[key]) {
			diff = append(diff, key)
		}
	}
	sort.Strings(diff)
	return diff, nil
}

func semanticFields(snap Snapshot) (map[string]any, error) {
	snap.UpdatedAt = time.Time{}
	if snap.CompletedStages == nil {
		snap.CompletedStages = []string{}
	}
	tree, err := canonical.Normalize(snap)
	if err != nil {
		return nil, err
	}
	fields, ok := tree.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("snapshot did not normalize to an object")
	}
	delete(fields, "updated_at")
	return fields, nil
}
