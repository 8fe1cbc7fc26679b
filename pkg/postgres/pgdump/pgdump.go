// Package pgdump builds pg_dump invocations and cleans up their output so that schema dumps of
// two databases can be compared or turned into migrations.
package pgdump

// BookkeepingTables are the migration state tables of the supported migrators. They are never
// part of a dumped schema.
var BookkeepingTables = []string{
	"goose_db_version",
	"schema_migrations",
}

// Args returns the argv of a schema-only pg_dump of database connecting as user, with
// [BookkeepingTables] and any extra tables excluded. The first element is "pg_dump".
func Args(database, user string, exclude ...string) []string {
	args := []string{
		"pg_dump",
		"--schema-only",
		"--no-owner",
		"--no-privileges",
		"-U", user,
		"-d", database,
	}
	for _, table := range append(BookkeepingTables[:len(BookkeepingTables):len(BookkeepingTables)], exclude...) {
		args = append(args, "--exclude-table="+table)
	}
	return args
}
