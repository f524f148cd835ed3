package persistence

import (
	"fmt"
	"os"

	"github.com/klauspost/compress/gzip"
)

// writeBackup compresses the current data file next to it before it is
// overwritten. A missing source file is a no-op.
func writeBackup(path string) error {
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read data file for backup: %w", err)
	}

	out, err := os.Create(path + ".bak.gz")
	if err != nil {
		return fmt.Errorf("failed to create backup file: %w", err)
	}
	defer out.Close()

	zw := gzip.NewWriter(out)
	if _, err := zw.Write(raw); err != nil {
		zw.Close()
		return fmt.Errorf("failed to write backup: %w", err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("failed to finish backup: %w", err)
	}
	return nil
}
