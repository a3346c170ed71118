package storage

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/petasbytes/go-translator/internal/metrics"
)

// Instrumented records metrics for every call on the wrapped backend and logs failures.
type Instrumented struct {
	Backend
	kind   string
	logger log.FieldLogger
}

// Instrument wraps b. kind labels the metrics ("local", "remote", ...).
func Instrument(b Backend, kind string, logger log.FieldLogger) *Instrumented {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Instrumented{Backend: b, kind: kind, logger: logger.WithField("backend", b.String())}
}

func (i *Instrumented) Read(ctx context.Context, key string) ([]byte, error) {
	start := time.Now()
	data, err := i.Backend.Read(ctx, key)
	metrics.ObserveStorage(i.kind, "read", start, len(data), err)
	if err != nil {
		i.logger.WithError(err).WithField("key", key).Debug("storage read failed")
	}
	return data, err
}

func (i *Instrumented) Write(ctx context.Context, key string, data []byte) error {
	start := time.Now()
	err := i.Backend.Write(ctx, key, data)
	n := len(data)
	if err != nil {
		n = 0
		i.logger.WithError(err).WithField("key", key).Debug("storage write failed")
	}
	metrics.ObserveStorage(i.kind, "write", start, n, err)
	return err
}

func (i *Instrumented) EnsureRoot(ctx context.Context) error {
	start := time.Now()
	err := i.Backend.EnsureRoot(ctx)
	metrics.ObserveStorage(i.kind, "ensure_root", start, 0, err)
	return err
}

// Unwrap returns the wrapped backend.
func (i *Instrumented) Unwrap() Backend {
	return i.Backend
}
