package storage

import (
	"fmt"
	"os"
	"path/filepath"
)

// maxReadSize caps ReadFileContent so a misdirected drop cannot balloon
// memory. 1MB covers any text file worth inlining.
const maxReadSize = 1_000_000

// SaveDroppedFile persists raw dropped bytes under {dataDir}/drops with a
// millisecond-timestamp prefix to avoid name collisions, returning the full
// stored path.
func (s *Store) SaveDroppedFile(fileName string, content []byte) (string, error) {
	dropsDir := filepath.Join(s.dataDir, "drops")
	if err := os.MkdirAll(dropsDir, 0o755); err != nil {
		return "", fmt.Errorf("creating drops dir: %w", err)
	}

	unique := fmt.Sprintf("%d_%s", s.nowMillis(), filepath.Base(fileName))
	path := filepath.Join(dropsDir, unique)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return "", fmt.Errorf("writing dropped file: %w", err)
	}
	return path, nil
}

// ReadFileContent returns the text content of a file, refusing files larger
// than 1MB with ErrFileTooLarge.
func ReadFileContent(path string) (string, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("reading file metadata: %w", err)
	}
	if fi.Size() > maxReadSize {
		return "", fmt.Errorf("%w: %s (%d bytes)", ErrFileTooLarge, path, fi.Size())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading file: %w", err)
	}
	return string(data), nil
}
