package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/joho/godotenv"
	"github.com/peterbourgon/ff/v4"

	"github.com/pressly/dockertester/pkg/dockermanage"
	"github.com/pressly/dockertester/pkg/dockermanage/dockerpostgres"
)

// state holds the state of the CLI and is passed to each command. It is used to configure the
// environment, the container runtime, and output streams.
type state struct {
	version string
	environ []string
	stdout  io.Writer
	stderr  io.Writer
	runtime dockermanage.Runtime
	// postgresOptions are appended to the options of every fixture the CLI provisions.
	postgresOptions []dockerpostgres.Option

	root   rootFlags
	rootFS *ff.FlagSet
}

// rootFlags are the flags shared by every command.
type rootFlags struct {
	envFile      string
	runtime      string
	dockerBinary string
	verbose      bool
}

func (s *state) writeJSON(v any) error {
	by, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(s.stdout, "%s\n", by)
	return err
}

func (s *state) getenv(key string) string {
	for _, kv := range s.environ {
		if k, v, ok := strings.Cut(kv, "="); ok && k == key {
			return v
		}
	}
	return ""
}

func (s *state) logger(debug bool) *slog.Logger {
	level := slog.LevelWarn
	switch {
	case debug:
		level = slog.LevelDebug
	case s.root.verbose:
		level = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(s.stderr, &slog.HandlerOptions{Level: level}))
}

// containerRuntime returns the runtime for a command and a function releasing it. Flags take
// precedence over the DOCKERTESTER_* environment, which may be seeded from --env-file.
func (s *state) containerRuntime() (dockermanage.Runtime, *slog.Logger, func() error, error) {
	noop := func() error { return nil }
	if s.runtime != nil {
		return s.runtime, s.logger(false), noop, nil
	}
	if s.root.envFile != "" {
		// Variables already present in the environment win over the file.
		if err := godotenv.Load(s.root.envFile); err != nil {
			return nil, nil, nil, fmt.Errorf("load env file: %w", err)
		}
	}
	cfg, err := dockermanage.LoadConfig()
	if err != nil {
		return nil, nil, nil, err
	}
	if s.root.runtime != "" {
		cfg.Runtime = s.root.runtime
	}
	if s.root.dockerBinary != "" {
		cfg.DockerBinary = s.root.dockerBinary
	}
	logger := s.logger(cfg.Debug)
	rt, err := dockermanage.NewRuntime(cfg, logger)
	if err != nil {
		return nil, nil, nil, err
	}
	if engine, ok := rt.(*dockermanage.EngineRuntime); ok {
		return rt, logger, engine.Close, nil
	}
	return rt, logger, noop, nil
}

// hold blocks until ctx is canceled when enabled.
func (s *state) hold(ctx context.Context, enabled bool) {
	if !enabled {
		return
	}
	fmt.Fprintln(s.stderr, "press ctrl-c to tear down")
	<-ctx.Done()
}
