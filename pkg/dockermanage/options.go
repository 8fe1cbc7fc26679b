package dockermanage

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"

	"github.com/pressly/dockertester/pkg/readiness"
)

const (
	// ManagedLabelKey marks containers started by this package. The value indicates the container
	// type (e.g., "postgres"). Presence of the key means the container is managed.
	ManagedLabelKey = "pressly.dockertester"
)

// Option configures [Start].
type Option interface {
	apply(*config) error
}

type optionFunc func(*config) error

func (f optionFunc) apply(cfg *config) error {
	return f(cfg)
}

type config struct {
	image  string
	port   string
	args   []string
	labels map[string]string
	policy readiness.Policy
	logger *slog.Logger
}

func defaultConfig() *config {
	return &config{
		labels: map[string]string{
			ManagedLabelKey: "",
		},
		policy: readiness.DefaultPolicy(),
	}
}

func (cfg *config) descriptor() Descriptor {
	return Descriptor{
		Image:  cfg.image,
		Port:   cfg.port,
		Args:   slices.Clone(cfg.args),
		Labels: maps.Clone(cfg.labels),
	}
}

// WithImage sets the container image (for example: docker/getting-started).
func WithImage(image string) Option {
	return optionFunc(func(cfg *config) error {
		image = strings.TrimSpace(image)
		if image == "" {
			return errors.New("image must not be empty")
		}
		cfg.image = image
		return nil
	})
}

// WithContainerPort sets the internal TCP port whose host binding is resolved, for example "5432"
// or "5432/tcp".
func WithContainerPort(port string) Option {
	return optionFunc(func(cfg *config) error {
		n, err := parsePort(port)
		if err != nil {
			return fmt.Errorf("invalid container port: %w", err)
		}
		cfg.port = fmt.Sprint(n)
		return nil
	})
}

// WithArgs appends run arguments. They are passed to the runtime verbatim, in order.
func WithArgs(args ...string) Option {
	return optionFunc(func(cfg *config) error {
		cfg.args = append(cfg.args, args...)
		return nil
	})
}

// WithEnv appends a single environment variable as "-e key=value".
func WithEnv(key, value string) Option {
	return optionFunc(func(cfg *config) error {
		key = strings.TrimSpace(key)
		if key == "" {
			return errors.New("env key must not be empty")
		}
		if strings.Contains(key, "=") {
			return fmt.Errorf("env key must not contain '=': %s", key)
		}
		cfg.args = append(cfg.args, "-e", key+"="+value)
		return nil
	})
}

// WithLabel sets a single container label.
func WithLabel(key, value string) Option {
	return optionFunc(func(cfg *config) error {
		key = strings.TrimSpace(key)
		if key == "" {
			return errors.New("label key must not be empty")
		}
		cfg.labels[key] = value
		return nil
	})
}

// WithLabels merges labels into container labels.
func WithLabels(labels map[string]string) Option {
	return optionFunc(func(cfg *config) error {
		for key, value := range maps.Clone(labels) {
			key = strings.TrimSpace(key)
			if key == "" {
				return errors.New("label key must not be empty")
			}
			cfg.labels[key] = value
		}
		return nil
	})
}

// WithPolicy sets the readiness policy used while waiting for the container to run. Defaults to
// [readiness.DefaultPolicy].
func WithPolicy(policy readiness.Policy) Option {
	return optionFunc(func(cfg *config) error {
		if policy.Attempts <= 0 {
			return fmt.Errorf("attempts must be positive: %d", policy.Attempts)
		}
		cfg.policy = policy
		return nil
	})
}

// WithLogger sets the logger for lifecycle events. Defaults to discarding output.
func WithLogger(logger *slog.Logger) Option {
	return optionFunc(func(cfg *config) error {
		cfg.logger = logger
		return nil
	})
}
