package dockermanage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"testing"

	"go.uber.org/multierr"

	"github.com/pressly/dockertester/pkg/readiness"
)

// Handle owns one running container. ID and Endpoint never change after [Start] returns.
type Handle struct {
	// ID is the short container identifier.
	ID string
	// Image is the image the container was started from.
	Image string
	// Endpoint is the host address published for the container port.
	Endpoint Endpoint

	runtime Runtime
	logger  *slog.Logger

	closeOnce sync.Once
	closeErr  error
}

// Start launches a container, resolves its published endpoint and waits until the runtime reports
// it as running.
//
// If the container was launched but a later step fails, it is torn down before Start returns and
// the returned error is a [*StartError] carrying the container ID.
func Start(ctx context.Context, rt Runtime, options ...Option) (_ *Handle, retErr error) {
	if rt == nil {
		return nil, errors.New("runtime must not be nil")
	}
	cfg := defaultConfig()
	for _, opt := range options {
		if opt == nil {
			continue
		}
		if err := opt.apply(cfg); err != nil {
			return nil, err
		}
	}
	if cfg.image == "" {
		return nil, errors.New("image is required")
	}
	if cfg.port == "" {
		return nil, errors.New("container port is required")
	}
	logger := componentLogger(cfg.logger, "dockermanage")

	id, err := rt.Launch(ctx, cfg.descriptor())
	if err != nil {
		return nil, fmt.Errorf("start %s: %w", cfg.image, err)
	}
	h := &Handle{
		ID:      id,
		Image:   cfg.image,
		runtime: rt,
		logger:  logger,
	}
	defer func() {
		if retErr != nil {
			retErr = &StartError{ID: id, Err: retErr, Teardown: h.Close(context.WithoutCancel(ctx))}
		}
	}()

	endpoint, err := Resolve(ctx, rt, id, cfg.port)
	if err != nil {
		return nil, fmt.Errorf("resolve endpoint: %w", err)
	}
	h.Endpoint = endpoint

	err = readiness.Poll(ctx, cfg.policy, func(ctx context.Context) error {
		status, err := rt.InspectStatus(ctx, id)
		if err != nil {
			return err
		}
		if status != StatusRunning {
			logger.Info("waiting for container", slog.String("container_id", id), slog.String("status", status))
			return fmt.Errorf("container status %q", status)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("wait for running status: %w", err)
	}

	logger.Info(
		"docker container started",
		slog.String("container_id", id),
		slog.String("image", cfg.image),
		slog.String("host", endpoint.Host),
		slog.Int("port", endpoint.Port),
	)
	return h, nil
}

// Close stops and removes the container. Only the first call has an effect; later calls return
// the first call's result. If stopping fails, removal is not attempted.
func (h *Handle) Close(ctx context.Context) error {
	if h == nil {
		return nil
	}
	h.closeOnce.Do(func() {
		h.closeErr = h.teardown(ctx)
	})
	return h.closeErr
}

func (h *Handle) teardown(ctx context.Context) error {
	if h.runtime == nil {
		return fmt.Errorf("%w: container %s: handle has no runtime", ErrTeardown, h.ID)
	}
	if err := h.runtime.Stop(ctx, h.ID); err != nil {
		h.logger.Error("stop container", slog.String("container_id", h.ID), slog.Any("error", err))
		return fmt.Errorf("stop container %s: %w", h.ID, err)
	}
	if err := h.runtime.Remove(ctx, h.ID); err != nil {
		h.logger.Error("remove container", slog.String("container_id", h.ID), slog.Any("error", err))
		return fmt.Errorf("remove container %s: %w", h.ID, err)
	}
	h.logger.Info("docker container removed", slog.String("container_id", h.ID))
	return nil
}

// Cleanup registers h.Close with tb.Cleanup. A teardown failure leaks a container and fails the
// test immediately.
func Cleanup(tb testing.TB, h *Handle) {
	tb.Helper()
	tb.Cleanup(func() {
		if err := h.Close(context.Background()); err != nil {
			tb.Fatalf("container %s leaked: %v", h.ID, err)
		}
	})
}

// Prune stops and removes every container labeled with [ManagedLabelKey]. It keeps going after a
// failure and returns all errors combined.
func Prune(ctx context.Context, rt Runtime) (removed []string, retErr error) {
	ids, err := rt.ListManaged(ctx)
	if err != nil {
		return nil, fmt.Errorf("list managed containers: %w", err)
	}
	for _, id := range ids {
		h := &Handle{ID: id, runtime: rt, logger: componentLogger(nil, "dockermanage")}
		if err := h.Close(ctx); err != nil {
			retErr = multierr.Append(retErr, err)
			continue
		}
		removed = append(removed, id)
	}
	return removed, retErr
}
