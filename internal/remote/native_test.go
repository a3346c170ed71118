package remote_test

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"net"
	"os/exec"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"

	"github.com/petasbytes/go-translator/internal/remote"
)

// startSSHServer serves "exec" requests by running them with the local sh.
func startSSHServer(t *testing.T) (host string, port int, hostKey ssh.PublicKey) {
	t.Helper()

	_, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	signer, err := ssh.NewSignerFromKey(priv)
	require.NoError(t, err)

	cfg := &ssh.ServerConfig{NoClientAuth: true}
	cfg.AddHostKey(signer)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	go func() {
		for {
			nc, err := ln.Accept()
			if err != nil {
				return
			}
			go serveSSH(nc, cfg)
		}
	}()

	h, p, err := net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)
	port, err = strconv.Atoi(p)
	require.NoError(t, err)
	return h, port, signer.PublicKey()
}

func serveSSH(nc net.Conn, cfg *ssh.ServerConfig) {
	_, chans, reqs, err := ssh.NewServerConn(nc, cfg)
	if err != nil {
		return
	}
	go ssh.DiscardRequests(reqs)

	for nch := range chans {
		if nch.ChannelType() != "session" {
			_ = nch.Reject(ssh.UnknownChannelType, "session only")
			continue
		}
		ch, in, err := nch.Accept()
		if err != nil {
			continue
		}
		go func() {
			defer ch.Close()
			for req := range in {
				if req.Type != "exec" {
					_ = req.Reply(false, nil)
					continue
				}
				var payload struct{ Command string }
				if err := ssh.Unmarshal(req.Payload, &payload); err != nil {
					_ = req.Reply(false, nil)
					return
				}
				_ = req.Reply(true, nil)

				cmd := exec.Command("sh", "-c", payload.Command)
				cmd.Stdin = ch
				cmd.Stdout = ch
				cmd.Stderr = ch.Stderr()
				status := 0
				if err := cmd.Run(); err != nil {
					var ee *exec.ExitError
					if errors.As(err, &ee) {
						status = ee.ExitCode()
					} else {
						status = 255
					}
				}
				_, _ = ch.SendRequest("exit-status", false, ssh.Marshal(struct{ Status uint32 }{uint32(status)}))
				return
			}
		}()
	}
}

func newNative(t *testing.T) *remote.Native {
	t.Helper()
	t.Setenv("SSH_AUTH_SOCK", "")
	host, port, key := startSSHServer(t)
	n, err := remote.NewNative(remote.NativeConfig{
		Host:            host,
		Port:            port,
		User:            "translator",
		HostKeyCallback: ssh.FixedHostKey(key),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = n.Close() })
	return n
}

func TestNative_StdinRoundTrip(t *testing.T) {
	n := newNative(t)

	out, err := n.Run(context.Background(), "cat", strings.NewReader(adversarial))
	require.NoError(t, err)
	assert.Equal(t, adversarial, string(out))

	// The connection is reused for a second command.
	out, err = n.Run(context.Background(), "printf ok", nil)
	require.NoError(t, err)
	assert.Equal(t, "ok", string(out))
}

func TestNative_ExitStatus(t *testing.T) {
	n := newNative(t)

	_, err := n.Run(context.Background(), "exit 4", nil)
	var ee *remote.ExitError
	require.True(t, errors.As(err, &ee), "expected ExitError, got %T: %v", err, err)
	assert.Equal(t, 4, ee.Status)
}

func TestNewNative_RequiresHostKeyPolicy(t *testing.T) {
	t.Setenv("SSH_AUTH_SOCK", "")
	_, err := remote.NewNative(remote.NativeConfig{Host: "example.invalid"})
	assert.Error(t, err)

	n, err := remote.NewNative(remote.NativeConfig{Host: "example.invalid", Insecure: true})
	require.NoError(t, err)
	assert.NoError(t, n.Close())
}
