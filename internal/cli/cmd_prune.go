package cli

import (
	"context"
	"fmt"

	"github.com/peterbourgon/ff/v4"
	"go.uber.org/multierr"

	"github.com/pressly/dockertester/pkg/dockermanage"
)

func newPruneCommand(st *state) (*ff.Command, error) {
	fs := ff.NewFlagSet("prune").SetParent(st.rootFS)
	var useJSON bool
	if err := addFlags(fs, newJSONFlag(&useJSON)); err != nil {
		return nil, err
	}
	return &ff.Command{
		Name:      "prune",
		Usage:     rootName + " prune [flags]",
		ShortHelp: "Stop and remove every container started by dockertester",
		Flags:     fs,
		Exec: func(ctx context.Context, _ []string) (retErr error) {
			rt, _, release, err := st.containerRuntime()
			if err != nil {
				return err
			}
			defer func() { retErr = multierr.Append(retErr, release()) }()

			removed, pruneErr := dockermanage.Prune(ctx, rt)
			if useJSON {
				if removed == nil {
					removed = []string{}
				}
				return multierr.Append(pruneErr, st.writeJSON(map[string][]string{"removed": removed}))
			}
			for _, id := range removed {
				fmt.Fprintln(st.stdout, id)
			}
			fmt.Fprintf(st.stderr, "removed %d containers\n", len(removed))
			return pruneErr
		},
	}, nil
}
