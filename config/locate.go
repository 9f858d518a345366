package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// FileName is the project-local breakpoint file looked up by Locate.
const FileName = ".simple-debug.json"

// ErrNotFound is returned by Locate when no directory between the start
// directory and the filesystem root contains FileName.
var ErrNotFound = errors.New(FileName + " not found in the project or its parents")

// Locate walks from startDir up to the filesystem root and returns the
// absolute path of the first FileName it finds. An empty startDir means the
// current working directory.
//
// Only existence is checked; the file is not opened.
func Locate(startDir string) (string, error) {
	if startDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("failed to get working directory: %w", err)
		}
		startDir = wd
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", startDir, err)
	}

	for {
		candidate := filepath.Join(dir, FileName)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// root reached
			return "", ErrNotFound
		}
		dir = parent
	}
}
