package remote

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// Exec runs commands through the system ssh binary.
type Exec struct {
	Host string
	User string
	Port int

	// Options are extra ssh arguments placed before the destination.
	Options []string

	// Command builds the local process for a remote command. Nil means ssh.
	Command func(ctx context.Context, remoteCmd string) *exec.Cmd
}

// Destination returns user@host, or host when no user is configured.
func (e *Exec) Destination() string {
	if e.User == "" {
		return e.Host
	}
	return e.User + "@" + e.Host
}

func (e *Exec) command(ctx context.Context, remoteCmd string) *exec.Cmd {
	if e.Command != nil {
		return e.Command(ctx, remoteCmd)
	}
	args := []string{"-o", "BatchMode=yes"}
	if e.Port > 0 {
		args = append(args, "-p", strconv.Itoa(e.Port))
	}
	args = append(args, e.Options...)
	args = append(args, e.Destination(), "--", remoteCmd)
	return exec.CommandContext(ctx, "ssh", args...)
}

// Run implements Transport.
func (e *Exec) Run(ctx context.Context, command string, stdin io.Reader) ([]byte, error) {
	cmd := e.command(ctx, command)
	cmd.Stdin = stdin
	// Bound the wait on pipe-copying goroutines once the process is killed.
	cmd.WaitDelay = 2 * time.Second

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if cerr := contextError(ctx); cerr != nil {
		return nil, cerr
	}
	if err != nil {
		var ee *exec.ExitError
		if errors.As(err, &ee) {
			return nil, &ExitError{Status: ee.ExitCode(), Stderr: strings.TrimSpace(stderr.String())}
		}
		return nil, fmt.Errorf("remote: run %s: %w", cmd.Path, err)
	}
	return stdout.Bytes(), nil
}
