package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Transport executes one command on the remote host. stdin may be nil.
// A deadline on ctx bounds the local wait only; the remote process is not
// guaranteed to stop when Run returns.
type Transport interface {
	Run(ctx context.Context, command string, stdin io.Reader) ([]byte, error)
}

// ErrTimeout is returned when ctx expires before the command exits.
var ErrTimeout = errors.New("remote: command timed out")

// ExitError reports a command that ran and exited with a non-zero status.
type ExitError struct {
	Status int
	Stderr string
}

func (e *ExitError) Error() string {
	if e.Stderr == "" {
		return fmt.Sprintf("remote: exit status %d", e.Status)
	}
	return fmt.Sprintf("remote: exit status %d: %s", e.Status, e.Stderr)
}

// Quote returns s as a single POSIX shell word.
func Quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// contextError maps an expired or cancelled ctx onto the package errors.
func contextError(ctx context.Context) error {
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return ErrTimeout
	case ctx.Err() != nil:
		return ctx.Err()
	}
	return nil
}
