package builtin

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

var markdownExts = []string{".md", ".markdown"}

// walkFiles lists files under runDir/dir whose extension is in exts, as
// slash-separated paths relative to runDir, in lexical order. A missing scan
// directory yields no files.
func walkFiles(ctx context.Context, runDir, dir string, exts []string) ([]string, error) {
	root := filepath.Join(runDir, dir)
	if _, err := os.Stat(root); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var files []string
	err := filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if entry.IsDir() {
			return nil
		}
		if !hasExt(path, exts) {
			return nil
		}
		rel, err := filepath.Rel(runDir, path)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

func hasExt(path string, exts []string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, candidate := range exts {
		if ext == candidate {
			return true
		}
	}
	return false
}

func sortedStrings(values []string) []string {
	sort.Strings(values)
	return values
}
