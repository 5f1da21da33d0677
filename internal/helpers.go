package internal

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"
)

// Panics if given non-nil error.
// Should be used only in case of non-recoverable developer error.
func PanicOnError(err error) {
	if err != nil {
		panic(err)
	}
}

// Writes data to a temporary file, syncs it and renames it over path, so
// readers never observe a half written file.
func WriteFileAtomic(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory: %w", err)
		}
	}

	if err := renameio.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("replace file: %w", err)
	}

	return nil
}
