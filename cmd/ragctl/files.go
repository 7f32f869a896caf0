package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
)

const defaultIngestGlob = "**/*.pdf"

// collectFiles expands each argument into files. Directories are searched
// with the glob pattern; plain files are taken as given.
func collectFiles(paths []string, pattern string) ([]string, error) {
	if pattern == "" {
		pattern = defaultIngestGlob
	}
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("invalid glob pattern %q", pattern)
	}

	seen := make(map[string]struct{})
	var files []string
	add := func(path string) {
		if _, ok := seen[path]; ok {
			return
		}
		seen[path] = struct{}{}
		files = append(files, path)
	}

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			add(path)
			continue
		}

		matches, err := doublestar.Glob(os.DirFS(path), pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("failed to search %s: %w", path, err)
		}
		sort.Strings(matches)
		for _, match := range matches {
			add(filepath.Join(path, filepath.FromSlash(match)))
		}
	}
	return files, nil
}
