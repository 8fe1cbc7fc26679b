package dockermanage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"strings"

	"github.com/containerd/errdefs"
	"github.com/moby/moby/api/types/container"
	"github.com/moby/moby/api/types/network"
	"github.com/moby/moby/client"
)

// EngineRuntime drives containers through the Docker Engine API.
//
// Run arguments are translated rather than passed through: -e/--env, -l/--label and --name are
// supported, anything else fails the launch with [ErrLaunch].
type EngineRuntime struct {
	client       *client.Client
	logger       *slog.Logger
	pullProgress io.Writer
}

var _ Runtime = (*EngineRuntime)(nil)

// NewEngineRuntime creates a runtime backed by the Docker client configured from environment.
func NewEngineRuntime(logger *slog.Logger) (*EngineRuntime, error) {
	dockerClient, err := client.New(
		client.FromEnv,
		client.WithAPIVersionNegotiation(),
	)
	if err != nil {
		return nil, fmt.Errorf("create Docker client: %w", err)
	}
	return &EngineRuntime{
		client:       dockerClient,
		logger:       componentLogger(logger, "dockermanage.engine"),
		pullProgress: io.Discard,
	}, nil
}

// Close closes the underlying Docker client.
func (r *EngineRuntime) Close() error {
	return r.client.Close()
}

// Launch pulls the image if needed, then creates and starts a container with all exposed ports
// published.
func (r *EngineRuntime) Launch(ctx context.Context, d Descriptor) (_ string, retErr error) {
	if err := d.Validate(); err != nil {
		return "", fmt.Errorf("%w: %w", ErrLaunch, err)
	}
	run, err := parseRunArgs(d.Args)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrLaunch, err)
	}
	containerPort, err := network.ParsePort(strings.TrimSuffix(d.Port, "/tcp") + "/tcp")
	if err != nil {
		return "", fmt.Errorf("%w: invalid container port: %w", ErrLaunch, err)
	}
	if err := r.pullImageIfNotExists(ctx, d.Image); err != nil {
		return "", fmt.Errorf("%w: pull image %s: %w", ErrLaunch, d.Image, err)
	}

	labels := maps.Clone(d.Labels)
	if labels == nil {
		labels = make(map[string]string)
	}
	maps.Copy(labels, run.labels)

	resp, err := r.client.ContainerCreate(ctx, client.ContainerCreateOptions{
		Name: run.name,
		Config: &container.Config{
			Image: d.Image,
			Env:   run.env,
			ExposedPorts: network.PortSet{
				containerPort: struct{}{},
			},
			Labels: labels,
		},
		HostConfig: &container.HostConfig{
			PublishAllPorts: true,
		},
	})
	if err != nil {
		return "", r.engineError(ErrLaunch, "create", err, d.Image)
	}
	defer func() {
		if retErr != nil {
			cleanupCtx := context.WithoutCancel(ctx)
			_, err := r.client.ContainerRemove(cleanupCtx, resp.ID, client.ContainerRemoveOptions{Force: true})
			if err != nil {
				r.logger.Error(
					"remove container after start failure",
					slog.String("container_id", resp.ID),
					slog.Any("error", err),
				)
			}
		}
	}()

	if _, err := r.client.ContainerStart(ctx, resp.ID, client.ContainerStartOptions{}); err != nil {
		return "", r.engineError(ErrLaunch, "start", err, resp.ID)
	}
	id, err := ShortID(resp.ID)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrLaunch, err)
	}
	return id, nil
}

// InspectStatus returns the container state reported by the engine.
func (r *EngineRuntime) InspectStatus(ctx context.Context, id string) (string, error) {
	inspect, err := r.client.ContainerInspect(ctx, id, client.ContainerInspectOptions{})
	if err != nil {
		return "", r.engineError(ErrInspect, "inspect", err, id)
	}
	if inspect.Container.State == nil {
		return "", fmt.Errorf("%w: container %s has no state", ErrInspect, id)
	}
	return string(inspect.Container.State.Status), nil
}

// InspectPortMapping returns the bindings of the TCP port encoded as a JSON array, the same shape
// [CLIRuntime] produces, so both runtimes share [DecodeBindings].
func (r *EngineRuntime) InspectPortMapping(ctx context.Context, id, port string) ([]byte, error) {
	containerPort, err := network.ParsePort(strings.TrimSuffix(port, "/tcp") + "/tcp")
	if err != nil {
		return nil, fmt.Errorf("%w: invalid container port: %w", ErrInspect, err)
	}
	inspect, err := r.client.ContainerInspect(ctx, id, client.ContainerInspectOptions{})
	if err != nil {
		return nil, r.engineError(ErrInspect, "inspect", err, id)
	}
	bindings := []network.PortBinding{}
	if settings := inspect.Container.NetworkSettings; settings != nil {
		bindings = append(bindings, settings.Ports[containerPort]...)
	}
	data, err := json.Marshal(bindings)
	if err != nil {
		return nil, fmt.Errorf("%w: encode port bindings: %w", ErrInspect, err)
	}
	return data, nil
}

// Stop stops a running container.
func (r *EngineRuntime) Stop(ctx context.Context, id string) error {
	if _, err := r.client.ContainerStop(ctx, id, client.ContainerStopOptions{}); err != nil {
		return r.engineError(ErrTeardown, "stop", err, id)
	}
	r.logger.Info("docker container stopped", slog.String("container_id", id))
	return nil
}

// Remove removes a stopped container and its anonymous volumes.
func (r *EngineRuntime) Remove(ctx context.Context, id string) error {
	if _, err := r.client.ContainerRemove(ctx, id, client.ContainerRemoveOptions{RemoveVolumes: true}); err != nil {
		return r.engineError(ErrTeardown, "rm", err, id)
	}
	return nil
}

// ListManaged returns all container IDs started by this package.
func (r *EngineRuntime) ListManaged(ctx context.Context) ([]string, error) {
	result, err := r.client.ContainerList(ctx, client.ContainerListOptions{
		All:     true,
		Filters: client.Filters{}.Add("label", ManagedLabelKey),
	})
	if err != nil {
		return nil, r.engineError(ErrInspect, "ps", err)
	}
	ids := make([]string, 0, len(result.Items))
	for _, c := range result.Items {
		if id, err := ShortID(c.ID); err == nil {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (r *EngineRuntime) pullImageIfNotExists(ctx context.Context, imageName string) (retErr error) {
	if _, err := r.client.ImageInspect(ctx, imageName); err == nil {
		return nil
	} else if !errdefs.IsNotFound(err) {
		return fmt.Errorf("inspect image: %w", err)
	}

	r.logger.Info("pulling image", slog.String("image", imageName))
	reader, err := r.client.ImagePull(ctx, imageName, client.ImagePullOptions{})
	if err != nil {
		return fmt.Errorf("pull image: %w", err)
	}
	defer func() {
		retErr = errors.Join(retErr, reader.Close())
	}()
	if _, err := io.Copy(r.pullProgress, reader); err != nil {
		return fmt.Errorf("stream pull output: %w", err)
	}
	return nil
}

func (r *EngineRuntime) engineError(sentinel error, op string, err error, args ...string) error {
	return fmt.Errorf("%w: %w", sentinel, &RuntimeError{Op: op, Args: args, Err: err})
}

type runArgs struct {
	env    []string
	labels map[string]string
	name   string
}

// parseRunArgs translates the subset of docker run arguments the engine runtime understands.
func parseRunArgs(args []string) (runArgs, error) {
	run := runArgs{labels: make(map[string]string)}
	for i := 0; i < len(args); i++ {
		flag, value, hasValue := strings.Cut(args[i], "=")
		switch flag {
		case "-e", "--env", "-l", "--label", "--name":
		default:
			return run, fmt.Errorf("unsupported run argument %q", args[i])
		}
		if !hasValue {
			if i+1 >= len(args) {
				return run, fmt.Errorf("run argument %s requires a value", flag)
			}
			i++
			value = args[i]
		}
		switch flag {
		case "-e", "--env":
			run.env = append(run.env, value)
		case "-l", "--label":
			key, v, _ := strings.Cut(value, "=")
			run.labels[key] = v
		case "--name":
			run.name = value
		}
	}
	return run, nil
}
