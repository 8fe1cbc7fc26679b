// Package dockermanagetest provides an in-memory [dockermanage.Runtime] for tests that must not
// depend on a docker daemon.
package dockermanagetest

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/pressly/dockertester/pkg/dockermanage"
)

// DefaultPortMapping is the port mapping reported when Runtime.PortMapping is empty.
const DefaultPortMapping = `'[{"HostIp":"0.0.0.0","HostPort":"5432"}]'`

// Call records one runtime invocation.
type Call struct {
	Op string
	ID string
}

// Runtime is a fake container runtime. Configure the exported fields before use; they must not
// be modified concurrently with calls.
type Runtime struct {
	// Statuses are returned by successive InspectStatus calls. The last entry repeats. Defaults to
	// "running".
	Statuses []string
	// PortMapping is the raw output of InspectPortMapping. Defaults to DefaultPortMapping.
	PortMapping string
	// LaunchErr, InspectErr, StopErr and RemoveErr fail the matching operation when set.
	LaunchErr  error
	InspectErr error
	StopErr    error
	RemoveErr  error
	// ExecOutput is returned by Exec.
	ExecOutput []byte

	mu          sync.Mutex
	next        int
	statusCalls int
	calls       []Call
	launched    []dockermanage.Descriptor
	containers  map[string]bool
}

var (
	_ dockermanage.Runtime  = (*Runtime)(nil)
	_ dockermanage.Executor = (*Runtime)(nil)
)

func (r *Runtime) record(op, id string) {
	r.calls = append(r.calls, Call{Op: op, ID: id})
}

func (r *Runtime) Launch(_ context.Context, d dockermanage.Descriptor) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record("run", "")
	if r.LaunchErr != nil {
		return "", fmt.Errorf("%w: %w", dockermanage.ErrLaunch, r.LaunchErr)
	}
	if err := d.Validate(); err != nil {
		return "", fmt.Errorf("%w: %w", dockermanage.ErrLaunch, err)
	}
	r.next++
	id := fmt.Sprintf("%012x", 0xc0ffee000000+r.next)
	if r.containers == nil {
		r.containers = make(map[string]bool)
	}
	r.containers[id] = true
	r.launched = append(r.launched, d)
	return id, nil
}

func (r *Runtime) InspectStatus(_ context.Context, id string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record("inspect-status", id)
	if r.InspectErr != nil {
		return "", fmt.Errorf("%w: %w", dockermanage.ErrInspect, r.InspectErr)
	}
	if len(r.Statuses) == 0 {
		return dockermanage.StatusRunning, nil
	}
	i := min(r.statusCalls, len(r.Statuses)-1)
	r.statusCalls++
	return r.Statuses[i], nil
}

func (r *Runtime) InspectPortMapping(_ context.Context, id, _ string) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record("inspect-ports", id)
	if r.InspectErr != nil {
		return nil, fmt.Errorf("%w: %w", dockermanage.ErrInspect, r.InspectErr)
	}
	if r.PortMapping == "" {
		return []byte(DefaultPortMapping), nil
	}
	return []byte(r.PortMapping), nil
}

func (r *Runtime) Stop(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record("stop", id)
	if r.StopErr != nil {
		return fmt.Errorf("%w: %w", dockermanage.ErrTeardown, r.StopErr)
	}
	return nil
}

func (r *Runtime) Remove(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record("rm", id)
	if r.RemoveErr != nil {
		return fmt.Errorf("%w: %w", dockermanage.ErrTeardown, r.RemoveErr)
	}
	delete(r.containers, id)
	return nil
}

func (r *Runtime) ListManaged(context.Context) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record("ps", "")
	ids := make([]string, 0, len(r.containers))
	for id := range r.containers {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids, nil
}

func (r *Runtime) Exec(_ context.Context, id string, cmd []string) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record("exec", id)
	if len(cmd) == 0 {
		return nil, errors.New("command must not be empty")
	}
	return r.ExecOutput, nil
}

// Calls returns the recorded invocations in order.
func (r *Runtime) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.calls)
}

// Ops returns the recorded operation names joined by spaces, e.g. "run inspect-ports stop rm".
func (r *Runtime) Ops() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ops := make([]string, 0, len(r.calls))
	for _, c := range r.calls {
		ops = append(ops, c.Op)
	}
	return strings.Join(ops, " ")
}

// Count returns how many times op was invoked.
func (r *Runtime) Count(op string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int
	for _, c := range r.calls {
		if c.Op == op {
			n++
		}
	}
	return n
}

// Launched returns the descriptors passed to Launch.
func (r *Runtime) Launched() []dockermanage.Descriptor {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.launched)
}

// Running returns the identifiers of launched containers not yet removed.
func (r *Runtime) Running() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.containers))
	for id := range r.containers {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
