package dockermanage

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"
)

const (
	// ShortIDLength is the length of the container identifiers handed out by this package.
	ShortIDLength = 12

	// StatusRunning is the runtime status of a started, not yet exited, container.
	StatusRunning = "running"
)

// Runtime is the container runtime used to run containers. Implementations must be safe for
// concurrent use by multiple goroutines; every call addresses a single container.
type Runtime interface {
	// Launch starts the container described by d, detached, with all its exposed ports published
	// to ephemeral host ports. It returns the short container identifier.
	Launch(ctx context.Context, d Descriptor) (string, error)
	// InspectStatus returns the runtime status of the container, e.g. "created" or "running".
	InspectStatus(ctx context.Context, id string) (string, error)
	// InspectPortMapping returns the raw host bindings published for the container's TCP port. The
	// output is decoded with [DecodeBindings].
	InspectPortMapping(ctx context.Context, id, port string) ([]byte, error)
	// Stop stops the container.
	Stop(ctx context.Context, id string) error
	// Remove removes the container together with its anonymous volumes.
	Remove(ctx context.Context, id string) error
	// ListManaged returns the identifiers of all containers, running or not, labeled with
	// [ManagedLabelKey].
	ListManaged(ctx context.Context) ([]string, error)
}

// Executor is implemented by runtimes that can run a command inside a running container.
type Executor interface {
	// Exec runs cmd in the container and returns its standard output.
	Exec(ctx context.Context, id string, cmd []string) ([]byte, error)
}

// Descriptor describes a container to launch. It is consumed once by [Runtime.Launch].
type Descriptor struct {
	// Image is the image reference, for example "postgres:14-alpine".
	Image string
	// Port is the internal TCP port whose host binding is resolved after launch, e.g. "5432".
	Port string
	// Args are extra run arguments, passed verbatim and in order before the image, for example
	// []string{"-e", "POSTGRES_USER=postgres"}.
	Args []string
	// Labels are container labels.
	Labels map[string]string
}

// Validate reports whether the descriptor can be launched.
func (d Descriptor) Validate() error {
	if strings.TrimSpace(d.Image) == "" {
		return errors.New("image is required")
	}
	if _, err := parsePort(d.Port); err != nil {
		return err
	}
	return nil
}

// labelArgs renders labels as run arguments, sorted by key so the command line is stable.
func (d Descriptor) labelArgs() []string {
	keys := slices.Sorted(maps.Keys(d.Labels))
	args := make([]string, 0, 2*len(keys))
	for _, key := range keys {
		args = append(args, "--label", key+"="+d.Labels[key])
	}
	return args
}

// ShortID truncates a runtime-reported container identifier to [ShortIDLength] characters.
func ShortID(raw string) (string, error) {
	line, _, _ := strings.Cut(strings.TrimSpace(raw), "\n")
	line = strings.TrimSpace(line)
	if len(line) < ShortIDLength {
		return "", fmt.Errorf("unexpected container id %q", line)
	}
	return line[:ShortIDLength], nil
}

func parsePort(port string) (int, error) {
	port = strings.TrimSuffix(strings.TrimSpace(port), "/tcp")
	if port == "" {
		return 0, errors.New("container port is required")
	}
	n, err := strconv.Atoi(port)
	if err != nil {
		return 0, fmt.Errorf("invalid port %q: %w", port, err)
	}
	if n <= 0 || n > 65535 {
		return 0, fmt.Errorf("port must be in range 1-65535: %d", n)
	}
	return n, nil
}
