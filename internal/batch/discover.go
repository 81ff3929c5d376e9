package batch

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
)

// ErrInputNotFound is returned when the input path does not exist.
var ErrInputNotFound = errors.New("input not found")

// Discover lists the inputs named by path: the file itself, or every file
// directly inside the directory, sorted by name. Symlinks are followed.
// Subdirectories and other non-regular entries are ignored; a dangling link is
// kept so it fails as an item.
func Discover(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrInputNotFound, path)
		}
		return nil, fmt.Errorf("failed to stat input: %w", err)
	}

	if !info.IsDir() {
		return []string{path}, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read input directory: %w", err)
	}

	var files []string
	for _, e := range entries {
		p := filepath.Join(path, e.Name())
		fi, err := os.Stat(p)
		if err == nil && !fi.Mode().IsRegular() {
			continue
		}
		files = append(files, p)
	}
	sort.Strings(files)
	return files, nil
}
