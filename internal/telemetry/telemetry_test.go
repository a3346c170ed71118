package telemetry_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/petasbytes/go-translator/internal/telemetry"
)

func TestEmit_Disabled_WritesNothing(t *testing.T) {
	base := t.TempDir()
	t.Setenv("TRN_ARTIFACTS_DIR", base)
	t.Setenv("TRN_OBSERVE_JSON", "0")
	if telemetry.ObserveEnabled() {
		t.Skip("observe enabled at process start")
	}

	telemetry.Emit("test_event", map[string]any{"foo": "bar"})

	if _, err := os.Stat(filepath.Join(base, "events.jsonl")); !os.IsNotExist(err) {
		t.Fatalf("expected no events file, stat err=%v", err)
	}
}

func TestEmit_HappyPath(t *testing.T) {
	base := t.TempDir()
	t.Setenv("TRN_ARTIFACTS_DIR", base)
	t.Setenv("TRN_OBSERVE_JSON", "1")

	fields := map[string]any{"foo": "bar", "num": 42}
	telemetry.Emit("test_event", fields)

	data, err := os.ReadFile(filepath.Join(base, "events.jsonl"))
	if err != nil {
		t.Fatalf("failed to read events.jsonl: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(lines))
	}

	var event map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &event); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if event["event"] != "test_event" {
		t.Fatalf("event mismatch: %v", event["event"])
	}
	if event["foo"] != "bar" || event["num"] != float64(42) {
		t.Fatalf("fields not preserved: %v", event)
	}
	ts, ok := event["time"].(string)
	if !ok {
		t.Fatalf("time missing: %v", event)
	}
	if _, err := time.Parse(time.RFC3339Nano, ts); err != nil {
		t.Fatalf("time not RFC3339Nano: %v", err)
	}

	// Caller map must not be mutated.
	if _, ok := fields["event"]; ok {
		t.Fatal("caller map was mutated")
	}
}

func TestEmit_ConcurrentLinesStayWhole(t *testing.T) {
	base := t.TempDir()
	t.Setenv("TRN_ARTIFACTS_DIR", base)
	t.Setenv("TRN_OBSERVE_JSON", "1")

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			telemetry.Emit("concurrent", map[string]any{"i": i, "pad": strings.Repeat("x", 512)})
		}(i)
	}
	wg.Wait()

	data, err := os.ReadFile(filepath.Join(base, "events.jsonl"))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != n {
		t.Fatalf("expected %d lines, got %d", n, len(lines))
	}
	for i, l := range lines {
		var m map[string]any
		if err := json.Unmarshal([]byte(l), &m); err != nil {
			t.Fatalf("line %d is not valid JSON: %v", i, err)
		}
	}
}
