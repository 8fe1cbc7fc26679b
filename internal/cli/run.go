package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/peterbourgon/ff/v4"
)

const envPrefix = "DOCKERTESTER"

func run(ctx context.Context, args []string, opts ...Options) (retErr error) {
	defer func() {
		if r := recover(); r != nil {
			retErr = fmt.Errorf("panic: %v", r)
		}
	}()
	st, err := newStateWithDefaults(opts...)
	if err != nil {
		return err
	}

	root, err := newRootCommand(st)
	if err != nil {
		return err
	}
	commands := []func(*state) (*ff.Command, error){
		newRunCommand,
		newPostgresCommand,
		newSchemaCommand,
		newPruneCommand,
		newVersionCommand,
	}
	for _, cmd := range commands {
		c, err := cmd(st)
		if err != nil {
			return err
		}
		root.Subcommands = append(root.Subcommands, c)
	}

	// Parse the flags and return help if requested.
	if err := root.Parse(
		args,
		ff.WithEnvVarPrefix(envPrefix),
	); err != nil {
		if errors.Is(err, ff.ErrHelp) {
			fmt.Fprintf(st.stderr, "\n%s\n", createHelp(st, root))
			return nil
		}
		return err
	}
	if err := checkRequiredFlags(root); err != nil {
		return err
	}
	if err := root.Run(ctx); err != nil {
		if errors.Is(err, ff.ErrHelp) {
			fmt.Fprintf(st.stderr, "\n%s\n", createHelp(st, root))
			return nil
		}
		return err
	}
	return nil
}

func newStateWithDefaults(opts ...Options) (*state, error) {
	state := &state{
		environ: os.Environ(),
	}
	for _, opt := range opts {
		if err := opt.apply(state); err != nil {
			return nil, err
		}
	}
	if state.stdout == nil {
		state.stdout = os.Stdout
	}
	if state.stderr == nil {
		state.stderr = os.Stderr
	}
	return state, nil
}

func checkRequiredFlags(cmd *ff.Command) error {
	if cmd != nil {
		cmd = cmd.GetSelected()
	}
	names := requiredFlags[cmd.Name]
	if len(names) == 0 {
		return nil
	}
	var missing []string
	if err := cmd.Flags.WalkFlags(func(f ff.Flag) error {
		name, ok := f.GetLongName()
		if !ok {
			return fmt.Errorf("flag %v doesn't have a long name", f)
		}
		if slices.Contains(names, name) && !f.IsSet() {
			missing = append(missing, "--"+name)
		}
		return nil
	}); err != nil {
		return err
	}
	if len(missing) > 0 {
		return fmt.Errorf("required flags not set: %v", strings.Join(missing, ", "))
	}
	return nil
}
