package storage

import (
	"context"
	"errors"
	"io/fs"

	"github.com/petasbytes/go-translator/internal/fsops"
)

// Local stores documents as files directly under Root.
type Local struct {
	Root string
}

// NewLocal returns a Local backend rooted at root.
func NewLocal(root string) *Local {
	return &Local{Root: root}
}

func (l *Local) Read(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, unavailable("read", key, err)
	}
	data, err := fsops.ReadFile(l.Root, key)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, unavailable("read", key, err)
	}
	return data, nil
}

func (l *Local) Write(ctx context.Context, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return unavailable("write", key, err)
	}
	if err := fsops.WriteFile(l.Root, key, data); err != nil {
		return unavailable("write", key, err)
	}
	return nil
}

func (l *Local) EnsureRoot(ctx context.Context) error {
	if err := fsops.EnsureDir(l.Root); err != nil {
		return unavailable("ensure root", "", err)
	}
	return nil
}

func (l *Local) String() string {
	return "local:" + l.Root
}
