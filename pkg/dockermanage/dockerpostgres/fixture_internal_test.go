package dockerpostgres

import (
	"testing"

	"github.com/pressly/dockertester/pkg/dockermanage"
	"github.com/pressly/dockertester/pkg/dockermanage/dockermanagetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDumpSchema(t *testing.T) {
	t.Parallel()

	rt := &dockermanagetest.Runtime{
		ExecOutput: []byte("--\n-- PostgreSQL database dump\n--\n\nSET lock_timeout = 0;\n\nCREATE TABLE public.todos (\n    id integer NOT NULL\n);\n"),
	}
	h, err := dockermanage.Start(t.Context(), rt,
		dockermanage.WithImage(DefaultImage),
		dockermanage.WithContainerPort(containerPort),
	)
	require.NoError(t, err)
	f := &Fixture{Database: "test_postgres_1", User: "postgres_user_1", Container: h, runtime: rt}

	schema, err := f.DumpSchema(t.Context())
	require.NoError(t, err)
	assert.Equal(t, "CREATE TABLE todos (\n    id integer NOT NULL\n);\n", string(schema))
	assert.Equal(t, 1, rt.Count("exec"))

	require.NoError(t, f.Close(t.Context()))
	require.NoError(t, f.Close(t.Context()))
	assert.Equal(t, 1, rt.Count("rm"))
}
