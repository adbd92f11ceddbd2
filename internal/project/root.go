// Package project locates the project root the checker runs in.
package project

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// DefaultMarkers are the files that identify a project root.
var DefaultMarkers = []string{"package.json"}

// FindRoot walks up from startDir and returns the first directory that
// contains any of markers.
func FindRoot(startDir string, markers []string) (root string, ok bool, err error) {
	if startDir == "" {
		startDir = "."
	}
	if len(markers) == 0 {
		markers = DefaultMarkers
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("resolving start directory: %w", err)
	}
	for {
		for _, marker := range markers {
			candidate := filepath.Join(dir, marker)
			if _, err := os.Stat(candidate); err == nil {
				return dir, true, nil
			} else if !errors.Is(err, os.ErrNotExist) {
				return "", false, fmt.Errorf("stat %q: %w", candidate, err)
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// Resolver returns a root lookup bound to the current working directory.
// Lookup errors are treated as "no root found".
func Resolver(markers []string) func() (string, bool) {
	return func() (string, bool) {
		wd, err := os.Getwd()
		if err != nil {
			return "", false
		}
		return lookup(wd, markers)
	}
}

// ResolverFrom is like Resolver but searches upward from start.
func ResolverFrom(start string, markers []string) func() (string, bool) {
	return func() (string, bool) { return lookup(start, markers) }
}

func lookup(start string, markers []string) (string, bool) {
	root, ok, err := FindRoot(start, markers)
	if err != nil {
		return "", false
	}
	return root, ok
}
