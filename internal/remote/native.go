package remote

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
	"golang.org/x/crypto/ssh/knownhosts"
)

// NativeConfig configures an in-process SSH client.
type NativeConfig struct {
	Host string
	Port int
	User string

	// KeyFile is a private key used in addition to any ssh-agent keys.
	KeyFile string
	// KnownHostsFile verifies the server host key.
	KnownHostsFile string
	// Insecure skips host key verification.
	Insecure bool
	// HostKeyCallback overrides KnownHostsFile and Insecure when set.
	HostKeyCallback ssh.HostKeyCallback

	DialTimeout time.Duration
}

// Native runs commands over a single reused golang.org/x/crypto/ssh connection.
type Native struct {
	addr   string
	config *ssh.ClientConfig

	mu        sync.Mutex
	client    *ssh.Client
	agentConn net.Conn
}

// NewNative prepares the client configuration. No connection is made until the first Run.
func NewNative(cfg NativeConfig) (*Native, error) {
	if cfg.Host == "" {
		return nil, errors.New("remote: host is required")
	}
	port := cfg.Port
	if port == 0 {
		port = 22
	}

	n := &Native{addr: net.JoinHostPort(cfg.Host, strconv.Itoa(port))}

	var auth []ssh.AuthMethod
	if sock := os.Getenv("SSH_AUTH_SOCK"); sock != "" {
		conn, err := net.Dial("unix", sock)
		if err == nil {
			n.agentConn = conn
			auth = append(auth, ssh.PublicKeysCallback(agent.NewClient(conn).Signers))
		}
	}
	if cfg.KeyFile != "" {
		b, err := os.ReadFile(cfg.KeyFile)
		if err != nil {
			n.Close()
			return nil, fmt.Errorf("remote: read key %s: %w", cfg.KeyFile, err)
		}
		signer, err := ssh.ParsePrivateKey(b)
		if err != nil {
			n.Close()
			return nil, fmt.Errorf("remote: parse key %s: %w", cfg.KeyFile, err)
		}
		auth = append(auth, ssh.PublicKeys(signer))
	}

	hostKey := cfg.HostKeyCallback
	switch {
	case hostKey != nil:
	case cfg.Insecure:
		hostKey = ssh.InsecureIgnoreHostKey()
	default:
		if cfg.KnownHostsFile == "" {
			n.Close()
			return nil, errors.New("remote: known_hosts file is required unless insecure is set")
		}
		cb, err := knownhosts.New(cfg.KnownHostsFile)
		if err != nil {
			n.Close()
			return nil, fmt.Errorf("remote: load known_hosts: %w", err)
		}
		hostKey = cb
	}

	timeout := cfg.DialTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	n.config = &ssh.ClientConfig{
		User:            cfg.User,
		Auth:            auth,
		HostKeyCallback: hostKey,
		Timeout:         timeout,
	}
	return n, nil
}

func (n *Native) dial(ctx context.Context) (*ssh.Client, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.client != nil {
		return n.client, nil
	}

	d := net.Dialer{Timeout: n.config.Timeout}
	conn, err := d.DialContext(ctx, "tcp", n.addr)
	if err != nil {
		return nil, fmt.Errorf("remote: dial %s: %w", n.addr, err)
	}
	// The handshake has no context of its own.
	if dl, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(dl)
	}
	c, chans, reqs, err := ssh.NewClientConn(conn, n.addr, n.config)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("remote: handshake %s: %w", n.addr, err)
	}
	_ = conn.SetDeadline(time.Time{})

	n.client = ssh.NewClient(c, chans, reqs)
	return n.client, nil
}

// drop forgets a broken connection so the next Run redials.
func (n *Native) drop(c *ssh.Client) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.client == c {
		_ = n.client.Close()
		n.client = nil
	}
}

// Run implements Transport.
func (n *Native) Run(ctx context.Context, command string, stdin io.Reader) ([]byte, error) {
	client, err := n.dial(ctx)
	if err != nil {
		if cerr := contextError(ctx); cerr != nil {
			return nil, cerr
		}
		return nil, err
	}

	sess, err := client.NewSession()
	if err != nil {
		n.drop(client)
		return nil, fmt.Errorf("remote: new session: %w", err)
	}
	defer sess.Close()

	var stdout, stderr bytes.Buffer
	sess.Stdin = stdin
	sess.Stdout = &stdout
	sess.Stderr = &stderr

	done := make(chan error, 1)
	go func() { done <- sess.Run(command) }()

	select {
	case <-ctx.Done():
		// Closing the session abandons the wait; the remote process may keep running.
		_ = sess.Close()
		return nil, contextError(ctx)
	case err := <-done:
		if err == nil {
			return stdout.Bytes(), nil
		}
		var ee *ssh.ExitError
		if errors.As(err, &ee) {
			return nil, &ExitError{Status: ee.ExitStatus(), Stderr: strings.TrimSpace(stderr.String())}
		}
		var missing *ssh.ExitMissingError
		if errors.As(err, &missing) {
			return nil, &ExitError{Status: -1, Stderr: strings.TrimSpace(stderr.String())}
		}
		n.drop(client)
		return nil, fmt.Errorf("remote: run: %w", err)
	}
}

// Close releases the SSH connection and agent socket.
func (n *Native) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	var err error
	if n.client != nil {
		err = n.client.Close()
		n.client = nil
	}
	if n.agentConn != nil {
		_ = n.agentConn.Close()
		n.agentConn = nil
	}
	return err
}
