package golden

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"docpilot/internal/canonical"
	"docpilot/internal/fsutil"
)

// Store keeps golden metadata under root/<product>/<escaped ref>/<run_id>.json.
type Store struct {
	root string
}

func NewStore(root string) *Store {
	return &Store{root: root}
}

func (s *Store) Root() string {
	return s.root
}

func (s *Store) dir(key Key) string {
	return filepath.Join(s.root, key.Product, refSegment(key.GitRef))
}

// PathFor returns where a run's metadata is stored.
func (s *Store) PathFor(key Key, runID string) string {
	return filepath.Join(s.dir(key), runID+".json")
}

// Save writes meta atomically, replacing an earlier capture of the same run.
func (s *Store) Save(meta Metadata) (string, error) {
	if err := meta.Validate(); err != nil {
		return "", err
	}
	data, err := canonical.IndentJSON(meta)
	if err != nil {
		return "", fmt.Errorf("encode golden metadata: %w", err)
	}
	path := s.PathFor(meta.Key(), meta.RunID)
	if err := fsutil.WriteFileAtomic(path, data); err != nil {
		return "", err
	}
	return path, nil
}

// Load reads one stored run.
func (s *Store) Load(key Key, runID string) (Metadata, error) {
	if err := key.Validate(); err != nil {
		return Metadata{}, err
	}
	if err := validateRunID(runID); err != nil {
		return Metadata{}, err
	}
	meta, err := readMetadata(s.PathFor(key, runID))
	if errors.Is(err, os.ErrNotExist) {
		return Metadata{}, fmt.Errorf("%w: %s@%s run %s", ErrGoldenRunNotFound, key.Product, key.GitRef, runID)
	}
	return meta, err
}

// List returns every stored run for key ordered by run id.
func (s *Store) List(key Key) ([]Metadata, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(s.dir(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var out []Metadata
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		meta, err := readMetadata(filepath.Join(s.dir(key), entry.Name()))
		if err != nil {
			return nil, err
		}
		out = append(out, meta)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RunID < out[j].RunID })
	return out, nil
}

// ListAll returns every stored run for every product and ref.
func (s *Store) ListAll() ([]Metadata, error) {
	var out []Metadata
	err := filepath.WalkDir(s.root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) && path == s.root {
				return fs.SkipDir
			}
			return err
		}
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			return nil
		}
		meta, err := readMetadata(path)
		if err != nil {
			return err
		}
		out = append(out, meta)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ProductName != out[j].ProductName {
			return out[i].ProductName < out[j].ProductName
		}
		if out[i].GitRef != out[j].GitRef {
			return out[i].GitRef < out[j].GitRef
		}
		return out[i].RunID < out[j].RunID
	})
	return out, nil
}

// Latest returns the most recent run for key. Run ids start with a UTC
// timestamp, so the greatest id is the newest capture.
func (s *Store) Latest(key Key) (Metadata, error) {
	runs, err := s.List(key)
	if err != nil {
		return Metadata{}, err
	}
	if len(runs) == 0 {
		return Metadata{}, fmt.Errorf("%w: %s@%s", ErrGoldenRunNotFound, key.Product, key.GitRef)
	}
	return runs[len(runs)-1], nil
}

// Delete removes one stored run.
func (s *Store) Delete(key Key, runID string) error {
	if err := key.Validate(); err != nil {
		return err
	}
	if err := validateRunID(runID); err != nil {
		return err
	}
	err := os.Remove(s.PathFor(key, runID))
	if os.IsNotExist(err) {
		return fmt.Errorf("%w: %s@%s run %s", ErrGoldenRunNotFound, key.Product, key.GitRef, runID)
	}
	return err
}

func readMetadata(path string) (Metadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Metadata{}, err
	}
	var meta Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return Metadata{}, fmt.Errorf("parse golden metadata %s: %w", path, err)
	}
	if meta.Artifacts == nil {
		meta.Artifacts = map[string]string{}
	}
	return meta, nil
}
