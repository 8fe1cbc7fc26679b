package cli

import (
	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffval"
)

// requiredFlags lists, per command, the flags that must be set explicitly.
var requiredFlags = map[string][]string{
	"run":      {"image", "port"},
	"postgres": {"dir"},
	"schema":   {"dir"},
}

func newDirFlag(s *string) ff.FlagConfig {
	return ff.FlagConfig{
		LongName:    "dir",
		Usage:       "directory with migration files",
		NoDefault:   true,
		Value:       ffval.NewValue(s),
		Placeholder: "string",
	}
}

func newImageFlag(s *string, usage string) ff.FlagConfig {
	return ff.FlagConfig{
		LongName:    "image",
		Usage:       usage,
		Value:       ffval.NewValueDefault(s, *s),
		Placeholder: "string",
	}
}

func newMigratorFlag(s *string) ff.FlagConfig {
	return ff.FlagConfig{
		LongName:    "migrator",
		Usage:       "migration tool: goose or golang-migrate",
		Value:       ffval.NewValueDefault(s, migratorGoose),
		Placeholder: "string",
	}
}

func newJSONFlag(b *bool) ff.FlagConfig {
	return ff.FlagConfig{
		LongName: "json",
		Usage:    "output as JSON",
		Value:    ffval.NewValue(b),
	}
}

func newHoldFlag(b *bool) ff.FlagConfig {
	return ff.FlagConfig{
		LongName: "hold",
		Usage:    "keep containers until interrupted",
		Value:    ffval.NewValueDefault(b, true),
	}
}

func addFlags(fs *ff.FlagSet, configs ...ff.FlagConfig) error {
	for _, cfg := range configs {
		if _, err := fs.AddFlag(cfg); err != nil {
			return err
		}
	}
	return nil
}
