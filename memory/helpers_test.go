package memory_test

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/petasbytes/go-translator/memory"
)

// memBackend is an in-memory storage.Backend that counts calls and can fail on demand.
type memBackend struct {
	mu        sync.Mutex
	docs      map[string][]byte
	reads     int
	writes    int
	failRead  bool
	failWrite bool
}

func newMemBackend() *memBackend {
	return &memBackend{docs: map[string][]byte{}}
}

func (m *memBackend) Read(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reads++
	if m.failRead {
		return nil, errors.New("read failed")
	}
	d, ok := m.docs[key]
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), d...), nil
}

func (m *memBackend) Write(_ context.Context, key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes++
	if m.failWrite {
		return errors.New("write failed")
	}
	m.docs[key] = append([]byte(nil), data...)
	return nil
}

func (m *memBackend) EnsureRoot(context.Context) error { return nil }
func (m *memBackend) String() string                   { return "mem" }

func (m *memBackend) set(key string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[key] = data
}

func (m *memBackend) counts() (reads, writes int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reads, m.writes
}

// tickingClock returns a clock advancing one second per call.
func tickingClock() func() time.Time {
	var mu sync.Mutex
	t := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t = t.Add(time.Second)
		return t
	}
}

var instantCmp = cmp.Comparer(func(a, b memory.Instant) bool { return a.Equal(b.Time) && a.Raw() == b.Raw() })

// texts flattens messages for compact comparison.
func texts(msgs []memory.Message) [][2]string {
	out := make([][2]string, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, [2]string{string(m.Role), m.Content})
	}
	return out
}
