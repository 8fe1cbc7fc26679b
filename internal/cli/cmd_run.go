package cli

import (
	"context"
	"fmt"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffval"
	"go.uber.org/multierr"

	"github.com/pressly/dockertester/pkg/dockermanage"
)

type containerOutput struct {
	ID      string `json:"id"`
	Image   string `json:"image"`
	Host    string `json:"host"`
	Port    int    `json:"port"`
	Address string `json:"address"`
}

func newRunCommand(st *state) (*ff.Command, error) {
	fs := ff.NewFlagSet("run").SetParent(st.rootFS)
	var (
		image   string
		port    string
		useJSON bool
		hold    bool
	)
	if err := addFlags(fs,
		newImageFlag(&image, "image to run"),
		ff.FlagConfig{
			LongName:    "port",
			Usage:       "container TCP port to publish",
			NoDefault:   true,
			Value:       ffval.NewValue(&port),
			Placeholder: "string",
		},
		newJSONFlag(&useJSON),
		newHoldFlag(&hold),
	); err != nil {
		return nil, err
	}
	return &ff.Command{
		Name:      "run",
		Usage:     rootName + " run --image=IMAGE --port=PORT [flags] [-- docker run args...]",
		ShortHelp: "Start a container and wait until it is running",
		LongHelp:  runCmdLongHelp,
		Flags:     fs,
		Exec: func(ctx context.Context, args []string) (retErr error) {
			rt, logger, release, err := st.containerRuntime()
			if err != nil {
				return err
			}
			defer func() { retErr = multierr.Append(retErr, release()) }()

			h, err := dockermanage.Start(ctx, rt,
				dockermanage.WithImage(image),
				dockermanage.WithContainerPort(port),
				dockermanage.WithArgs(args...),
				dockermanage.WithLabel(dockermanage.ManagedLabelKey, "run"),
				dockermanage.WithLogger(logger),
			)
			if err != nil {
				return err
			}
			defer func() { retErr = multierr.Append(retErr, h.Close(context.WithoutCancel(ctx))) }()

			out := containerOutput{
				ID:      h.ID,
				Image:   h.Image,
				Host:    h.Endpoint.DialHost(),
				Port:    h.Endpoint.Port,
				Address: h.Endpoint.Address(),
			}
			if useJSON {
				if err := st.writeJSON(out); err != nil {
					return err
				}
			} else {
				fmt.Fprintf(st.stdout, "%s\t%s\t%s\n", out.ID, out.Image, out.Address)
			}
			st.hold(ctx, hold)
			return nil
		},
	}, nil
}

const runCmdLongHelp = `
Start a container from --image with all exposed ports published, resolve the host binding of
--port and wait until docker reports the container as running. Arguments after -- are passed to
docker run verbatim.

The container is stopped and removed when the command is interrupted, or right away with
--hold=false.
`
