package storage

import (
	"bytes"
	"context"
	"io"
	"path"
	"time"

	"github.com/petasbytes/go-translator/internal/remote"
	"github.com/petasbytes/go-translator/internal/safety"
)

// DefaultRemoteTimeout bounds every remote command.
const DefaultRemoteTimeout = 10 * time.Second

// Remote stores documents under Root on a host reachable only through a
// command-execution transport. Document bytes always travel on the command's
// stdin or stdout; only paths are interpolated into command strings.
type Remote struct {
	Transport remote.Transport
	Root      string
	Timeout   time.Duration

	// Name identifies the host in String, e.g. "root@10.0.0.1".
	Name string
}

// NewRemote returns a Remote backend with the default timeout.
func NewRemote(t remote.Transport, root, name string) *Remote {
	return &Remote{Transport: t, Root: root, Timeout: DefaultRemoteTimeout, Name: name}
}

func (r *Remote) path(key string) (string, error) {
	if err := safety.ValidateKey(key); err != nil {
		return "", err
	}
	return path.Join(r.Root, key), nil
}

func (r *Remote) run(ctx context.Context, cmd string, stdin []byte) ([]byte, error) {
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = DefaultRemoteTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var in io.Reader
	if stdin != nil {
		in = bytes.NewReader(stdin)
	}
	return r.Transport.Run(ctx, posix(cmd), in)
}

// posix runs cmd under sh so its syntax does not depend on the remote user's login shell.
func posix(cmd string) string {
	return "sh -c " + remote.Quote(cmd)
}

// Read prints the document, or "{}" when it does not exist. An empty object
// is reported as absent.
func (r *Remote) Read(ctx context.Context, key string) ([]byte, error) {
	p, err := r.path(key)
	if err != nil {
		return nil, unavailable("read", key, err)
	}
	q := remote.Quote(p)
	out, err := r.run(ctx, "if [ -f "+q+" ]; then cat -- "+q+"; else printf '{}'; fi", nil)
	if err != nil {
		return nil, unavailable("read", key, err)
	}
	if string(bytes.TrimSpace(out)) == "{}" {
		return nil, nil
	}
	return out, nil
}

// Write streams data to a temp file next to the target and renames it into place.
func (r *Remote) Write(ctx context.Context, key string, data []byte) error {
	p, err := r.path(key)
	if err != nil {
		return unavailable("write", key, err)
	}
	if data == nil {
		data = []byte{}
	}
	cmd := "mkdir -p -- " + remote.Quote(r.Root) +
		" && cat > " + remote.Quote(p+".tmp") +
		" && mv -f -- " + remote.Quote(p+".tmp") + " " + remote.Quote(p)
	if _, err := r.run(ctx, cmd, data); err != nil {
		return unavailable("write", key, err)
	}
	return nil
}

func (r *Remote) EnsureRoot(ctx context.Context) error {
	if _, err := r.run(ctx, "mkdir -p -- "+remote.Quote(r.Root), nil); err != nil {
		return unavailable("ensure root", "", err)
	}
	return nil
}

func (r *Remote) String() string {
	return "remote:" + r.Name + ":" + r.Root
}
