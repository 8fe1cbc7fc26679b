package cli

import (
	"context"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffval"
	"go.uber.org/multierr"

	"github.com/pressly/dockertester/pkg/dockermanage/dockerpostgres"
	"github.com/pressly/dockertester/pkg/postgres/pgdump"
)

func newSchemaCommand(st *state) (*ff.Command, error) {
	fs := ff.NewFlagSet("schema").SetParent(st.rootFS)
	var (
		pf          fixtureFlags
		asMigration bool
	)
	if err := pf.register(fs); err != nil {
		return nil, err
	}
	if err := addFlags(fs, ff.FlagConfig{
		LongName: "goose",
		Usage:    "print the schema as a goose migration",
		Value:    ffval.NewValue(&asMigration),
	}); err != nil {
		return nil, err
	}
	return &ff.Command{
		Name:      "schema",
		Usage:     rootName + " schema --dir=DIR [flags]",
		ShortHelp: "Print the schema produced by a migrations directory",
		LongHelp:  schemaCmdLongHelp,
		Flags:     fs,
		Exec: func(ctx context.Context, _ []string) (retErr error) {
			rt, logger, release, err := st.containerRuntime()
			if err != nil {
				return err
			}
			defer func() { retErr = multierr.Append(retErr, release()) }()
			opts, err := pf.options(st, logger)
			if err != nil {
				return err
			}
			f, err := dockerpostgres.New(ctx, rt, pf.dir, opts...)
			if err != nil {
				return err
			}
			defer func() { retErr = multierr.Append(retErr, f.Close(context.WithoutCancel(ctx))) }()

			schema, err := f.DumpSchema(ctx)
			if err != nil {
				return err
			}
			if asMigration {
				schema = pgdump.GooseMigration(schema)
			}
			_, err = st.stdout.Write(schema)
			return err
		},
	}, nil
}

const schemaCmdLongHelp = `
Apply the migrations in --dir to a throwaway PostgreSQL database and print the resulting schema,
as dumped by pg_dump without comments, settings or migration bookkeeping tables. With --goose
the schema is printed as a goose migration, suitable for squashing a migrations directory.

Requires the cli runtime, which can exec pg_dump inside the container.
`
