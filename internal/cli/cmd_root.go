package cli

import (
	"context"
	"fmt"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffval"
)

const rootName = "dockertester"

func newRootCommand(st *state) (*ff.Command, error) {
	fs := ff.NewFlagSet(rootName)
	var showVersion bool
	if err := addFlags(fs,
		ff.FlagConfig{
			LongName:    "env-file",
			Usage:       "load DOCKERTESTER_* variables from a .env file",
			Value:       ffval.NewValue(&st.root.envFile),
			Placeholder: "string",
		},
		ff.FlagConfig{
			LongName:    "runtime",
			Usage:       "container runtime: cli or engine (default from DOCKERTESTER_RUNTIME)",
			Value:       ffval.NewValue(&st.root.runtime),
			Placeholder: "string",
		},
		ff.FlagConfig{
			LongName:    "docker-binary",
			Usage:       "docker binary used by the cli runtime (default from DOCKERTESTER_DOCKER_BINARY)",
			Value:       ffval.NewValue(&st.root.dockerBinary),
			Placeholder: "string",
		},
		ff.FlagConfig{
			ShortName: 'v',
			LongName:  "verbose",
			Usage:     "log container lifecycle events",
			Value:     ffval.NewValue(&st.root.verbose),
		},
		ff.FlagConfig{
			LongName: "version",
			Usage:    "print the dockertester version",
			Value:    ffval.NewValue(&showVersion),
		},
	); err != nil {
		return nil, err
	}
	st.rootFS = fs
	return &ff.Command{
		Name:  rootName,
		Usage: rootName + " [flags] <command> [flags] [args...]",
		Flags: fs,
		Exec: func(ctx context.Context, args []string) error {
			if showVersion {
				return printVersion(st)
			}
			if len(args) > 0 {
				return fmt.Errorf("unknown command %q", args[0])
			}
			return ff.ErrHelp
		},
	}, nil
}
