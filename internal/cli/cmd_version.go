package cli

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/peterbourgon/ff/v4"
)

func newVersionCommand(st *state) (*ff.Command, error) {
	return &ff.Command{
		Name:      "version",
		Usage:     rootName + " version",
		ShortHelp: "Print the dockertester version",
		Flags:     ff.NewFlagSet("version").SetParent(st.rootFS),
		Exec: func(context.Context, []string) error {
			return printVersion(st)
		},
	}, nil
}

func printVersion(st *state) error {
	version := st.version
	if version == "" {
		version = "(devel)"
		if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
			version = info.Main.Version
		}
	}
	_, err := fmt.Fprintf(st.stdout, "dockertester version: %s\n", version)
	return err
}
