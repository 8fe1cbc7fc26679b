// Package testdb holds helpers shared by the integration tests of this module.
package testdb

import (
	"log/slog"
	"os"
	"os/exec"
	"testing"

	"github.com/pressly/dockertester/pkg/dockermanage"
)

// Runtime returns the container runtime selected by the DOCKERTESTER_* environment. The test is
// skipped in -short mode, and when the cli runtime is selected but no docker binary is installed.
func Runtime(t *testing.T) dockermanage.Runtime {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping docker integration test in short mode")
	}
	cfg, err := dockermanage.LoadConfig()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Runtime == dockermanage.RuntimeCLI {
		if _, err := exec.LookPath(cfg.DockerBinary); err != nil {
			t.Skipf("skipping docker integration test: %v", err)
		}
	}
	rt, err := dockermanage.NewRuntime(cfg, Logger(cfg.Debug))
	if err != nil {
		t.Fatal(err)
	}
	if engine, ok := rt.(*dockermanage.EngineRuntime); ok {
		t.Cleanup(func() {
			if err := engine.Close(); err != nil {
				t.Errorf("close docker client: %v", err)
			}
		})
	}
	return rt
}

// Logger returns a text logger writing to stderr.
func Logger(debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
