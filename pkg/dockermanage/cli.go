package dockermanage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
)

// DefaultDockerBinary is the command used by [CLIRuntime] when no binary is configured.
const DefaultDockerBinary = "docker"

// CLIRuntime drives containers through the docker command-line tool.
type CLIRuntime struct {
	binary string
	logger *slog.Logger
}

var (
	_ Runtime  = (*CLIRuntime)(nil)
	_ Executor = (*CLIRuntime)(nil)
)

// NewCLIRuntime returns a runtime that invokes binary, or [DefaultDockerBinary] when binary is
// empty. A nil logger discards output.
func NewCLIRuntime(binary string, logger *slog.Logger) *CLIRuntime {
	if binary == "" {
		binary = DefaultDockerBinary
	}
	return &CLIRuntime{
		binary: binary,
		logger: componentLogger(logger, "dockermanage.cli"),
	}
}

// Launch runs "docker run -P -d [labels...] <args...> <image>".
func (r *CLIRuntime) Launch(ctx context.Context, d Descriptor) (string, error) {
	if err := d.Validate(); err != nil {
		return "", fmt.Errorf("%w: %w", ErrLaunch, err)
	}
	args := []string{"-P", "-d"}
	args = append(args, d.labelArgs()...)
	args = append(args, d.Args...)
	args = append(args, d.Image)
	out, err := r.run(ctx, "run", args...)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrLaunch, err)
	}
	id, err := ShortID(string(out))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrLaunch, err)
	}
	return id, nil
}

// InspectStatus runs "docker inspect -f {{.State.Status}} <id>".
func (r *CLIRuntime) InspectStatus(ctx context.Context, id string) (string, error) {
	out, err := r.run(ctx, "inspect", "-f", "{{.State.Status}}", id)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInspect, err)
	}
	return strings.TrimSpace(string(out)), nil
}

// InspectPortMapping renders the host bindings of port as a quoted bracketed list of JSON objects.
func (r *CLIRuntime) InspectPortMapping(ctx context.Context, id, port string) ([]byte, error) {
	out, err := r.run(ctx, "inspect", "-f", portMappingTemplate(port), id)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInspect, err)
	}
	return out, nil
}

// Stop runs "docker stop <id>".
func (r *CLIRuntime) Stop(ctx context.Context, id string) error {
	if _, err := r.run(ctx, "stop", id); err != nil {
		return fmt.Errorf("%w: %w", ErrTeardown, err)
	}
	return nil
}

// Remove runs "docker rm -v <id>".
func (r *CLIRuntime) Remove(ctx context.Context, id string) error {
	if _, err := r.run(ctx, "rm", "-v", id); err != nil {
		return fmt.Errorf("%w: %w", ErrTeardown, err)
	}
	return nil
}

// ListManaged runs "docker ps -a -q --filter label=<ManagedLabelKey>".
func (r *CLIRuntime) ListManaged(ctx context.Context) ([]string, error) {
	out, err := r.run(ctx, "ps", "-a", "-q", "--filter", "label="+ManagedLabelKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInspect, err)
	}
	var ids []string
	for _, line := range strings.Split(string(out), "\n") {
		if id, err := ShortID(line); err == nil {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// Exec runs "docker exec <id> <cmd...>".
func (r *CLIRuntime) Exec(ctx context.Context, id string, cmd []string) ([]byte, error) {
	if len(cmd) == 0 {
		return nil, errors.New("command must not be empty")
	}
	return r.run(ctx, "exec", append([]string{id}, cmd...)...)
}

func (r *CLIRuntime) run(ctx context.Context, op string, args ...string) ([]byte, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, r.binary, append([]string{op}, args...)...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	r.logger.Debug("docker command", slog.String("op", op), slog.Any("args", args))
	if err := cmd.Run(); err != nil {
		return nil, &RuntimeError{
			Op:     op,
			Args:   args,
			Stderr: strings.TrimSpace(stderr.String()),
			Err:    err,
		}
	}
	return stdout.Bytes(), nil
}

// portMappingTemplate returns the inspect template that prints the bindings of the TCP port as a
// single-quoted, bracketed sequence of JSON objects.
func portMappingTemplate(port string) string {
	port = strings.TrimSuffix(strings.TrimSpace(port), "/tcp")
	return `'[{{range $k,$v := (index .NetworkSettings.Ports "` + port + `/tcp")}}{{json $v}}{{end}}]'`
}

func componentLogger(logger *slog.Logger, name string) *slog.Logger {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return logger.With(slog.String("logger", name))
}
