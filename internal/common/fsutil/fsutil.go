package fsutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ExpandHome replaces a leading "~" or "~/" with the user's home directory.
func ExpandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("home dir: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}

// ErrNotRegularFile is returned by RegularFile for directories and devices.
var ErrNotRegularFile = errors.New("not a regular file")

// RegularFile expands path and checks that it names an existing regular
// file. It returns the expanded path.
func RegularFile(path string) (string, error) {
	p, err := ExpandHome(path)
	if err != nil {
		return "", err
	}
	st, err := os.Stat(p)
	if err != nil {
		return "", err
	}
	if !st.Mode().IsRegular() {
		return "", fmt.Errorf("%s: %w", p, ErrNotRegularFile)
	}
	return p, nil
}
