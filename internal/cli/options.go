package cli

import (
	"fmt"
	"io"

	"github.com/pressly/dockertester/pkg/dockermanage"
)

// Options are used to configure the command execution and are passed to the Run or Main function.
type Options interface {
	apply(*state) error
}

type optionFunc func(*state) error

func (f optionFunc) apply(s *state) error { return f(s) }

// WithEnviron sets the environment used to look up NO_COLOR when rendering help. Flag defaults
// and the DOCKERTESTER_* runtime configuration are still read from the process environment.
func WithEnviron(env []string) Options {
	return optionFunc(func(s *state) error {
		s.environ = env
		return nil
	})
}

// WithStdout sets the writer for stdout.
func WithStdout(w io.Writer) Options {
	return optionFunc(func(s *state) error {
		if w == nil {
			return fmt.Errorf("stdout cannot be nil")
		}
		if s.stdout != nil {
			return fmt.Errorf("stdout already set")
		}
		s.stdout = w
		return nil
	})
}

// WithStderr sets the writer for stderr.
func WithStderr(w io.Writer) Options {
	return optionFunc(func(s *state) error {
		if w == nil {
			return fmt.Errorf("stderr cannot be nil")
		}
		if s.stderr != nil {
			return fmt.Errorf("stderr already set")
		}
		s.stderr = w
		return nil
	})
}

// WithRuntime sets the container runtime used by every command, bypassing the --runtime and
// --docker-binary flags and the DOCKERTESTER_* environment. The caller keeps ownership of rt.
func WithRuntime(rt dockermanage.Runtime) Options {
	return optionFunc(func(s *state) error {
		if rt == nil {
			return fmt.Errorf("runtime cannot be nil")
		}
		if s.runtime != nil {
			return fmt.Errorf("runtime already set")
		}
		s.runtime = rt
		return nil
	})
}

// WithVersion sets the version string for the command. This is typically set by the build system
// when the binary is built. It is used to print the version when the --version flag is passed.
func WithVersion(version string) Options {
	return optionFunc(func(s *state) error {
		if version == "" {
			return fmt.Errorf("version cannot be empty")
		}
		if s.version != "" {
			return fmt.Errorf("version already set")
		}
		s.version = version
		return nil
	})
}
