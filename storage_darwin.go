//go:build darwin

package vmr

import (
	"os"
	"path/filepath"
)

// getDefaultCacheDir returns the default cache directory for macOS.
// Returns ~/Library/Caches/vmr/
func getDefaultCacheDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, "Library", "Caches", "vmr"), nil
}
