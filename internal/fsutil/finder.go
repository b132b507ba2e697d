// Package fsutil provides file system utility functions shared by the tasks:
// glob expansion relative to a root, staleness stamps and output writers.
package fsutil

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Glob expands the given doublestar patterns against root and returns the
// matching regular files as slash-separated paths relative to root, sorted
// and de-duplicated. Patterns prefixed with "!" exclude matches of the
// remaining patterns.
func Glob(root string, patterns ...string) ([]string, error) {
	var include, exclude []string
	for _, p := range patterns {
		if strings.HasPrefix(p, "!") {
			exclude = append(exclude, strings.TrimPrefix(p, "!"))
			continue
		}
		include = append(include, p)
	}
	for _, p := range append(append([]string{}, include...), exclude...) {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid glob pattern %q", p)
		}
	}

	if _, err := os.Stat(root); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	fsys := os.DirFS(root)
	seen := make(map[string]struct{})
	var out []string
	for _, pattern := range include {
		matches, err := doublestar.Glob(fsys, pattern)
		if err != nil {
			return nil, fmt.Errorf("failed to expand %q in %s: %w", pattern, root, err)
		}
		for _, m := range matches {
			if _, ok := seen[m]; ok {
				continue
			}
			info, err := fs.Stat(fsys, m)
			if err != nil || !info.Mode().IsRegular() {
				continue
			}
			if Excluded(m, exclude) {
				continue
			}
			seen[m] = struct{}{}
			out = append(out, m)
		}
	}
	sort.Strings(out)
	return out, nil
}

// Excluded reports whether rel matches any of the patterns.
func Excluded(rel string, patterns []string) bool {
	for _, p := range patterns {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
	}
	return false
}

// Dirs returns every directory under root, root included.
func Dirs(root string) ([]string, error) {
	var dirs []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			dirs = append(dirs, path)
		}
		return nil
	})
	return dirs, err
}
