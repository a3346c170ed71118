package storage

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/petasbytes/go-translator/internal/remote"
)

// Backend kinds accepted by Open.
const (
	KindLocal  = "local"
	KindRemote = "remote"
	KindGCS    = "gcs"
	KindRedis  = "redis"
)

// Remote transport names.
const (
	TransportExec   = "exec"
	TransportNative = "native"
)

// Options selects and configures exactly one backend.
type Options struct {
	Kind string

	LocalRoot string

	RemoteHost       string
	RemotePort       int
	RemoteUser       string
	RemoteRoot       string
	RemoteTransport  string
	RemoteKey        string
	RemoteKnownHosts string
	RemoteInsecure   bool
	RemoteTimeout    time.Duration

	GCSBucket      string
	GCSPrefix      string
	GCSCredentials string

	RedisURL    string
	RedisPrefix string
}

// Open builds the configured backend, wraps it with instrumentation and calls
// EnsureRoot once. An EnsureRoot failure is logged and does not fail Open.
func Open(ctx context.Context, opts Options, logger log.FieldLogger) (*Instrumented, error) {
	if logger == nil {
		logger = log.StandardLogger()
	}

	var b Backend
	switch opts.Kind {
	case KindLocal:
		if opts.LocalRoot == "" {
			return nil, fmt.Errorf("local backend: root is required")
		}
		b = NewLocal(opts.LocalRoot)
	case KindRemote:
		t, name, err := openTransport(opts)
		if err != nil {
			return nil, err
		}
		rb := NewRemote(t, opts.RemoteRoot, name)
		if opts.RemoteTimeout > 0 {
			rb.Timeout = opts.RemoteTimeout
		}
		b = rb
	case KindGCS:
		if opts.GCSBucket == "" {
			return nil, fmt.Errorf("gcs backend: bucket is required")
		}
		client, err := NewGCSClient(ctx, opts.GCSCredentials)
		if err != nil {
			return nil, fmt.Errorf("gcs backend: %w", err)
		}
		b = NewGCS(client, opts.GCSBucket, opts.GCSPrefix)
	case KindRedis:
		rb, err := NewRedis(opts.RedisURL, opts.RedisPrefix)
		if err != nil {
			return nil, fmt.Errorf("redis backend: %w", err)
		}
		b = rb
	default:
		return nil, fmt.Errorf("unknown storage backend %q", opts.Kind)
	}

	ib := Instrument(b, opts.Kind, logger)
	if err := ib.EnsureRoot(ctx); err != nil {
		logger.WithError(err).WithField("backend", b.String()).Warn("could not prepare storage root")
	} else {
		logger.WithField("backend", b.String()).Info("storage ready")
	}
	return ib, nil
}

func openTransport(opts Options) (remote.Transport, string, error) {
	if opts.RemoteHost == "" || opts.RemoteRoot == "" {
		return nil, "", fmt.Errorf("remote backend: host and root are required")
	}
	name := opts.RemoteHost
	if opts.RemoteUser != "" {
		name = opts.RemoteUser + "@" + opts.RemoteHost
	}
	if opts.RemotePort != 0 && opts.RemotePort != 22 {
		name += ":" + strconv.Itoa(opts.RemotePort)
	}

	switch opts.RemoteTransport {
	case "", TransportExec:
		e := &remote.Exec{Host: opts.RemoteHost, User: opts.RemoteUser, Port: opts.RemotePort}
		if opts.RemoteKey != "" {
			e.Options = append(e.Options, "-i", opts.RemoteKey)
		}
		if opts.RemoteKnownHosts != "" {
			e.Options = append(e.Options, "-o", "UserKnownHostsFile="+opts.RemoteKnownHosts)
		}
		if opts.RemoteInsecure {
			e.Options = append(e.Options, "-o", "StrictHostKeyChecking=no")
		}
		return e, name, nil
	case TransportNative:
		n, err := remote.NewNative(remote.NativeConfig{
			Host:           opts.RemoteHost,
			Port:           opts.RemotePort,
			User:           opts.RemoteUser,
			KeyFile:        opts.RemoteKey,
			KnownHostsFile: opts.RemoteKnownHosts,
			Insecure:       opts.RemoteInsecure,
		})
		if err != nil {
			return nil, "", fmt.Errorf("remote backend: %w", err)
		}
		return n, name, nil
	default:
		return nil, "", fmt.Errorf("unknown remote transport %q", opts.RemoteTransport)
	}
}

// Close releases clients held by the wrapped backend, if any.
func (i *Instrumented) Close() error {
	switch b := i.Backend.(type) {
	case io.Closer:
		return b.Close()
	case *Remote:
		if c, ok := b.Transport.(io.Closer); ok {
			return c.Close()
		}
	}
	return nil
}
