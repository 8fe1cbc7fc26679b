package dockermanage

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrLaunch is returned when the runtime fails to start a container.
	ErrLaunch = errors.New("launch failed")

	// ErrInspect is returned when the runtime fails to report on a container.
	ErrInspect = errors.New("inspect failed")

	// ErrPortResolution is returned when no usable host binding exists for a container port.
	ErrPortResolution = errors.New("port resolution failed")

	// ErrTeardown is returned when a container could not be stopped or removed. A teardown failure
	// leaks a container, so test helpers treat it as fatal.
	ErrTeardown = errors.New("teardown failed")

	// ErrUnsupported is returned when a runtime cannot perform an operation.
	ErrUnsupported = errors.New("unsupported by runtime")
)

// RuntimeError describes a failed runtime invocation. Stderr holds the runtime's diagnostic
// output verbatim.
type RuntimeError struct {
	// Op is the runtime operation, for example "run" or "inspect".
	Op string
	// Args are the arguments the operation was invoked with.
	Args []string
	// Stderr is the diagnostic text reported by the runtime. May be empty.
	Stderr string
	// Err is the underlying error, such as an *exec.ExitError or an Engine API error.
	Err error
}

func (e *RuntimeError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "docker %s", e.Op)
	if len(e.Args) > 0 {
		fmt.Fprintf(&b, " %s", strings.Join(e.Args, " "))
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	if e.Stderr != "" {
		fmt.Fprintf(&b, ": %s", e.Stderr)
	}
	return b.String()
}

func (e *RuntimeError) Unwrap() error { return e.Err }

// StartError is returned by [Start] when a step after the launch failed. The container was torn
// down unless Teardown is non-nil, in which case ID names the container that is still around.
type StartError struct {
	// ID is the short identifier of the launched container.
	ID string
	// Err is the failure that aborted the start.
	Err error
	// Teardown is the error of the automatic teardown, nil when the container was removed.
	Teardown error
}

func (e *StartError) Error() string {
	msg := fmt.Sprintf("container %s: %v", e.ID, e.Err)
	if e.Teardown != nil {
		msg += "; " + e.Teardown.Error()
	}
	return msg
}

func (e *StartError) Unwrap() []error {
	if e.Teardown == nil {
		return []error{e.Err}
	}
	return []error{e.Err, e.Teardown}
}
