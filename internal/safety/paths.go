// Package safety confines storage keys to a backend root directory.
package safety

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// PathError is a machine-readable rejection of a storage path.
type PathError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error returns a compact, single-line JSON string so log lines stay greppable.
func (e PathError) Error() string {
	b, _ := json.Marshal(e)
	return string(b)
}

const (
	CodeOutsideRoot = "ERR_PATH_OUTSIDE_ROOT"
	CodeInvalidKey  = "ERR_INVALID_KEY"
)

// ResolveRoot returns the absolute, symlink-resolved form of root.
// An empty root means the current working directory.
func ResolveRoot(root string) (string, error) {
	if root == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("getwd: %w", err)
		}
		root = cwd
	}

	abs, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("abs(root): %w", err)
	}

	// The root may not exist yet (it is created by EnsureRoot); fall back to the absolute path.
	if r, err := filepath.EvalSymlinks(abs); err == nil {
		abs = r
	}
	return abs, nil
}

// ValidateKey rejects keys that are not a single plain file name.
func ValidateKey(key string) error {
	switch {
	case key == "", key == ".", key == "..":
		return PathError{Code: CodeInvalidKey, Message: "empty or relative key"}
	case strings.ContainsAny(key, `/\`):
		return PathError{Code: CodeInvalidKey, Message: "key contains a path separator"}
	case strings.HasPrefix(key, "."):
		return PathError{Code: CodeInvalidKey, Message: "hidden keys are not allowed"}
	case strings.ContainsRune(key, 0):
		return PathError{Code: CodeInvalidKey, Message: "key contains NUL"}
	}
	return nil
}

// ValidateRelPath resolves relPath against absRoot and returns an absolute path
// inside the root. It rejects absolute inputs, parent traversal, and symlink
// escapes. On violation, returns a PathError.
func ValidateRelPath(absRoot, relPath string) (string, error) {
	if filepath.IsAbs(relPath) {
		return "", PathError{Code: CodeOutsideRoot, Message: "absolute paths are not allowed"}
	}

	cleaned := filepath.Clean(relPath)
	if cleaned == "" {
		cleaned = "."
	}
	candidate := filepath.Join(absRoot, cleaned)

	// Best-effort symlink resolution.
	// 1) Resolve the whole candidate if it exists.
	// 2) Otherwise resolve the parent dir and rejoin the final segment. This reveals
	//    escapes via a symlinked parent when the leaf does not exist yet.
	if resolved, err := filepath.EvalSymlinks(candidate); err == nil {
		candidate = resolved
	} else {
		parent := filepath.Dir(candidate)
		if resolvedParent, err2 := filepath.EvalSymlinks(parent); err2 == nil {
			candidate = filepath.Join(resolvedParent, filepath.Base(candidate))
		}
	}

	// Boundary check using filepath.Rel (robust against partial prefix matches)
	rel, err := filepath.Rel(absRoot, candidate)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel) {
		return "", PathError{Code: CodeOutsideRoot, Message: "requested path resolves outside the storage root"}
	}
	return candidate, nil
}

// ResolveKey validates key and returns its absolute path under root.
func ResolveKey(root, key string) (string, error) {
	if err := ValidateKey(key); err != nil {
		return "", err
	}
	absRoot, err := ResolveRoot(root)
	if err != nil {
		return "", err
	}
	return ValidateRelPath(absRoot, key)
}
