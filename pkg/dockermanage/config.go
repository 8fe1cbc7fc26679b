package dockermanage

import (
	"fmt"
	"log/slog"

	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix prefixes every environment variable read by [LoadConfig].
const EnvPrefix = "DOCKERTESTER"

const (
	RuntimeCLI    = "cli"
	RuntimeEngine = "engine"
)

// Config selects and configures a [Runtime] from the environment.
type Config struct {
	// Runtime is either "cli" or "engine". Read from DOCKERTESTER_RUNTIME.
	Runtime string `envconfig:"RUNTIME" default:"cli"`
	// DockerBinary is the docker executable used by the cli runtime. Read from
	// DOCKERTESTER_DOCKER_BINARY.
	DockerBinary string `envconfig:"DOCKER_BINARY" default:"docker"`
	// Debug enables debug logging of runtime calls. Read from DOCKERTESTER_DEBUG.
	Debug bool `envconfig:"DEBUG" default:"false"`
}

// LoadConfig reads the DOCKERTESTER_* environment variables.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// NewRuntime returns the runtime selected by cfg. The caller owns the runtime; an
// [EngineRuntime] should be closed when no longer needed.
func NewRuntime(cfg Config, logger *slog.Logger) (Runtime, error) {
	switch cfg.Runtime {
	case RuntimeCLI, "":
		return NewCLIRuntime(cfg.DockerBinary, logger), nil
	case RuntimeEngine:
		return NewEngineRuntime(logger)
	default:
		return nil, fmt.Errorf("unknown runtime %q: must be %q or %q", cfg.Runtime, RuntimeCLI, RuntimeEngine)
	}
}

// NewRuntimeFromEnv combines [LoadConfig] and [NewRuntime].
func NewRuntimeFromEnv(logger *slog.Logger) (Runtime, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, err
	}
	return NewRuntime(cfg, logger)
}
