package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffval"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/pressly/dockertester/pkg/dockermanage"
	"github.com/pressly/dockertester/pkg/dockermanage/dockerpostgres"
)

const (
	migratorGoose         = "goose"
	migratorGolangMigrate = "golang-migrate"
)

func migratorFor(name string) (dockerpostgres.Migrator, error) {
	switch name {
	case migratorGoose, "":
		return dockerpostgres.GooseMigrator(), nil
	case migratorGolangMigrate:
		return dockerpostgres.GolangMigrator(), nil
	default:
		return nil, fmt.Errorf("unknown migrator %q: must be %q or %q", name, migratorGoose, migratorGolangMigrate)
	}
}

type fixtureOutput struct {
	ContainerID string `json:"container_id"`
	Host        string `json:"host"`
	Port        int    `json:"port"`
	User        string `json:"user"`
	Password    string `json:"password"`
	Database    string `json:"database"`
	DatabaseURL string `json:"database_url"`
}

// fixtureFlags are shared by the commands that provision PostgreSQL fixtures.
type fixtureFlags struct {
	dir      string
	migrator string
	image    string
}

func (f *fixtureFlags) register(fs *ff.FlagSet) error {
	f.image = dockerpostgres.DefaultImage
	return addFlags(fs,
		newDirFlag(&f.dir),
		newMigratorFlag(&f.migrator),
		newImageFlag(&f.image, "postgres image"),
	)
}

func (f *fixtureFlags) options(st *state, logger *slog.Logger) ([]dockerpostgres.Option, error) {
	m, err := migratorFor(f.migrator)
	if err != nil {
		return nil, err
	}
	opts := []dockerpostgres.Option{
		dockerpostgres.WithImage(f.image),
		dockerpostgres.WithMigrator(m),
		dockerpostgres.WithLogger(logger),
	}
	return append(opts, st.postgresOptions...), nil
}

func newPostgresCommand(st *state) (*ff.Command, error) {
	fs := ff.NewFlagSet("postgres").SetParent(st.rootFS)
	var (
		pf      fixtureFlags
		count   int
		useJSON bool
		hold    bool
	)
	if err := pf.register(fs); err != nil {
		return nil, err
	}
	if err := addFlags(fs,
		ff.FlagConfig{
			LongName:    "count",
			Usage:       "number of databases to provision concurrently",
			Value:       ffval.NewValueDefault(&count, 1),
			Placeholder: "int",
		},
		newJSONFlag(&useJSON),
		newHoldFlag(&hold),
	); err != nil {
		return nil, err
	}
	return &ff.Command{
		Name:      "postgres",
		Usage:     rootName + " postgres --dir=DIR [flags]",
		ShortHelp: "Provision migrated PostgreSQL databases",
		LongHelp:  postgresCmdLongHelp,
		Flags:     fs,
		Exec: func(ctx context.Context, _ []string) (retErr error) {
			if count < 1 {
				return fmt.Errorf("count must be positive: %d", count)
			}
			rt, logger, release, err := st.containerRuntime()
			if err != nil {
				return err
			}
			defer func() { retErr = multierr.Append(retErr, release()) }()
			opts, err := pf.options(st, logger)
			if err != nil {
				return err
			}

			fixtures, err := provision(ctx, rt, pf.dir, count, opts)
			defer func() {
				for _, f := range fixtures {
					retErr = multierr.Append(retErr, f.Close(context.WithoutCancel(ctx)))
				}
			}()
			if err != nil {
				return err
			}

			out := make([]fixtureOutput, 0, len(fixtures))
			for _, f := range fixtures {
				out = append(out, fixtureOutput{
					ContainerID: f.Container.ID,
					Host:        f.Host,
					Port:        f.Port,
					User:        f.User,
					Password:    f.Password,
					Database:    f.Database,
					DatabaseURL: f.DatabaseURL(),
				})
			}
			if useJSON {
				if err := st.writeJSON(out); err != nil {
					return err
				}
			} else {
				for _, o := range out {
					fmt.Fprintln(st.stdout, o.DatabaseURL)
				}
			}
			st.hold(ctx, hold)
			return nil
		},
	}, nil
}

// provision starts count fixtures concurrently. The successfully provisioned fixtures are returned
// even when err is non-nil, so the caller can release them.
func provision(ctx context.Context, rt dockermanage.Runtime, dir string, count int, opts []dockerpostgres.Option) ([]*dockerpostgres.Fixture, error) {
	results := make([]*dockerpostgres.Fixture, count)
	g, gctx := errgroup.WithContext(ctx)
	for i := range results {
		g.Go(func() error {
			f, err := dockerpostgres.New(gctx, rt, dir, opts...)
			if err != nil {
				return err
			}
			results[i] = f
			return nil
		})
	}
	err := g.Wait()
	fixtures := make([]*dockerpostgres.Fixture, 0, count)
	for _, f := range results {
		if f != nil {
			fixtures = append(fixtures, f)
		}
	}
	return fixtures, err
}

const postgresCmdLongHelp = `
Provision one or more PostgreSQL databases. Each database runs in its own container with a
generated user, password and database name, and has the migrations in --dir applied.

The database URLs are printed on stdout. The containers are torn down when the command is
interrupted, or right away with --hold=false.
`
