package export

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"bilancio/internal/core"
)

// WriteBackup writes txns to a new file in dir named by BackupFileName and
// returns its path. The file is written to a temporary name first and
// renamed, so a partial backup never carries the final name.
func WriteBackup(dir string, txns []core.Transaction, now time.Time) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create backup dir: %w", err)
	}
	path := filepath.Join(dir, BackupFileName(now))

	f, err := os.CreateTemp(dir, ".backup-*.csv")
	if err != nil {
		return "", fmt.Errorf("create backup file: %w", err)
	}
	tmp := f.Name()
	defer os.Remove(tmp)

	if err := WriteCSV(f, txns); err != nil {
		f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close backup file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return "", fmt.Errorf("rename backup file: %w", err)
	}
	return path, nil
}
