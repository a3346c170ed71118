package fsops

import (
	"os"

	"github.com/petasbytes/go-translator/internal/safety"
)

// ReadFile reads the file stored under key inside root.
// It validates the key via safety; a missing file is reported as an error
// satisfying errors.Is(err, os.ErrNotExist).
func ReadFile(root, key string) ([]byte, error) {
	absPath, err := safety.ResolveKey(root, key)
	if err != nil {
		return nil, err // propagate PathError unchanged
	}

	fi, err := os.Stat(absPath)
	if err != nil {
		return nil, err
	}
	if fi.IsDir() {
		return nil, safety.PathError{Code: "ERR_NOT_A_FILE", Message: "path is a directory"}
	}

	return os.ReadFile(absPath)
}
