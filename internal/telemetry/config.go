package telemetry

import "os"

// DefaultArtifactsDir holds events.jsonl unless TRN_ARTIFACTS_DIR is set.
const DefaultArtifactsDir = ".translator"

// ObserveEnabled reports whether TRN_OBSERVE_JSON=1. It is read on every call.
func ObserveEnabled() bool {
	return os.Getenv("TRN_OBSERVE_JSON") == "1"
}

// ArtifactsDir is where events.jsonl is written.
func ArtifactsDir() string {
	if d := os.Getenv("TRN_ARTIFACTS_DIR"); d != "" {
		return d
	}
	return DefaultArtifactsDir
}
