package golden

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"

	"docpilot/internal/canonical"
	"docpilot/internal/objectstore"
)

// Mirror copies golden metadata between the local store and an object store
// using the same product/ref/run layout.
type Mirror struct {
	Local  *Store
	Remote objectstore.Store
	Prefix string
}

func (m *Mirror) objectKey(key Key, runID string) string {
	parts := []string{key.Product, refSegment(key.GitRef), runID + ".json"}
	if prefix := strings.Trim(m.Prefix, "/"); prefix != "" {
		parts = append([]string{prefix}, parts...)
	}
	return path.Join(parts...)
}

// Publish uploads a locally stored run and returns its object key.
func (m *Mirror) Publish(ctx context.Context, key Key, runID string) (string, error) {
	meta, err := m.Local.Load(key, runID)
	if err != nil {
		return "", err
	}
	data, err := canonical.IndentJSON(meta)
	if err != nil {
		return "", err
	}
	objectKey := m.objectKey(key, runID)
	if err := m.Remote.Put(ctx, objectKey, data, "application/json"); err != nil {
		return "", err
	}
	return objectKey, nil
}

// Fetch downloads a run into the local store. An empty runID fetches the
// greatest run id published for key.
func (m *Mirror) Fetch(ctx context.Context, key Key, runID string) (Metadata, error) {
	if err := key.Validate(); err != nil {
		return Metadata{}, err
	}
	if runID == "" {
		latest, err := m.latestRemote(ctx, key)
		if err != nil {
			return Metadata{}, err
		}
		runID = latest
	}
	data, err := m.Remote.Get(ctx, m.objectKey(key, runID))
	if err != nil {
		return Metadata{}, fmt.Errorf("fetch %s@%s run %s: %w", key.Product, key.GitRef, runID, err)
	}
	var meta Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return Metadata{}, fmt.Errorf("parse remote golden metadata: %w", err)
	}
	if meta.Key() != key || meta.RunID != runID {
		return Metadata{}, fmt.Errorf("remote object for %s holds %s@%s run %s", runID, meta.ProductName, meta.GitRef, meta.RunID)
	}
	if _, err := m.Local.Save(meta); err != nil {
		return Metadata{}, err
	}
	return meta, nil
}

func (m *Mirror) latestRemote(ctx context.Context, key Key) (string, error) {
	dir := path.Dir(m.objectKey(key, "x"))
	keys, err := m.Remote.List(ctx, dir+"/")
	if err != nil {
		return "", err
	}
	latest := ""
	for _, objectKey := range keys {
		name := path.Base(objectKey)
		if !strings.HasSuffix(name, ".json") || path.Dir(objectKey) != dir {
			continue
		}
		if runID := strings.TrimSuffix(name, ".json"); runID > latest {
			latest = runID
		}
	}
	if latest == "" {
		return "", fmt.Errorf("%w: %s@%s in object store", ErrGoldenRunNotFound, key.Product, key.GitRef)
	}
	return latest, nil
}
