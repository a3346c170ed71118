package fsops

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/petasbytes/go-translator/internal/safety"
)

// EnsureDir creates root (and parents) if missing.
func EnsureDir(root string) error {
	return os.MkdirAll(root, 0o755)
}

// WriteFile replaces the file stored under key inside root.
// The content is written to a sibling temp file first and renamed into place,
// so readers observe either the old or the new document.
func WriteFile(root, key string, data []byte) error {
	absPath, err := safety.ResolveKey(root, key)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(absPath), "."+filepath.Base(absPath)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName) // best-effort cleanup
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpName, absPath); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("rename %s: %w", absPath, err)
	}
	return nil
}
