package dockerpostgres

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"strings"

	"github.com/pressly/dockertester/pkg/dockermanage"
	"github.com/pressly/dockertester/pkg/readiness"
)

const (
	// DefaultImage is the default PostgreSQL image.
	DefaultImage = "postgres:14-alpine"

	// DefaultPoolSize is the maximum number of connections of a pool returned by [Fixture.Pool].
	DefaultPoolSize = 5

	containerPort = "5432"
)

// Option configures [New].
type Option interface {
	apply(*config) error
}

type optionFunc func(*config) error

func (f optionFunc) apply(cfg *config) error {
	return f(cfg)
}

type config struct {
	image     string
	labels    map[string]string
	policy    readiness.Policy
	migrator  Migrator
	poolSize  int
	connector ConnectFunc
	logger    *slog.Logger
}

func defaultConfig() *config {
	return &config{
		image: DefaultImage,
		labels: map[string]string{
			dockermanage.ManagedLabelKey: "postgres",
		},
		policy:    readiness.DefaultPolicy(),
		migrator:  GooseMigrator(),
		poolSize:  DefaultPoolSize,
		connector: ping,
	}
}

// WithImage sets the PostgreSQL image.
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

// WithLabels merges labels into container labels. The managed label cannot be overridden.
func WithLabels(labels map[string]string) Option {
	return optionFunc(func(cfg *config) error {
		for key, value := range maps.Clone(labels) {
			key = strings.TrimSpace(key)
			if key == "" {
				return errors.New("label key must not be empty")
			}
			if key == dockermanage.ManagedLabelKey {
				continue
			}
			cfg.labels[key] = value
		}
		return nil
	})
}

// WithPolicy sets the readiness policy used for both the container status and the admin
// connection. Defaults to [readiness.DefaultPolicy].
func WithPolicy(policy readiness.Policy) Option {
	return optionFunc(func(cfg *config) error {
		if policy.Attempts <= 0 {
			return fmt.Errorf("attempts must be positive: %d", policy.Attempts)
		}
		cfg.policy = policy
		return nil
	})
}

// WithMigrator sets the migration runner. Defaults to [GooseMigrator].
func WithMigrator(m Migrator) Option {
	return optionFunc(func(cfg *config) error {
		if m == nil {
			return errors.New("migrator must not be nil")
		}
		cfg.migrator = m
		return nil
	})
}

// WithPoolSize sets the maximum number of connections of pools returned by [Fixture.Pool].
func WithPoolSize(n int) Option {
	return optionFunc(func(cfg *config) error {
		if n <= 0 {
			return fmt.Errorf("pool size must be positive: %d", n)
		}
		cfg.poolSize = n
		return nil
	})
}

// WithConnector replaces the function used to check that the server accepts connections.
func WithConnector(fn ConnectFunc) Option {
	return optionFunc(func(cfg *config) error {
		if fn == nil {
			return errors.New("connector must not be nil")
		}
		cfg.connector = fn
		return nil
	})
}

// WithLogger sets the logger for provisioning events. Defaults to discarding output.
func WithLogger(logger *slog.Logger) Option {
	return optionFunc(func(cfg *config) error {
		cfg.logger = logger
		return nil
	})
}
