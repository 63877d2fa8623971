package cli

import (
	"fmt"
	"os"
	"path/filepath"
)

// ResolveFile checks that the path exists and is a regular file, then
// returns the absolute path.
func ResolveFile(filePath string) (string, error) {
	info, err := os.Stat(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("file not found: %s", filePath)
		}
		return "", fmt.Errorf("failed to access %s: %w", filePath, err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("path is a directory, not a file: %s", filePath)
	}

	absPath, err := filepath.Abs(filePath)
	if err == nil {
		filePath = absPath
	}
	return filePath, nil
}
