package main

import (
	"os"
	"path/filepath"
	"testing"
)

// writeScript writes a replay script into a temp dir and returns its path
func writeScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "script.txt")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("failed to write script: %v", err)
	}
	return path
}

// withFlags sets global flags for the duration of a test
func withFlags(t *testing.T, json, metrics, beQuiet bool) {
	t.Helper()
	oldJSON, oldMetrics, oldQuiet := jsonOut, metricsOut, quiet
	jsonOut, metricsOut, quiet = json, metrics, beQuiet
	t.Cleanup(func() {
		jsonOut, metricsOut, quiet = oldJSON, oldMetrics, oldQuiet
	})
}
