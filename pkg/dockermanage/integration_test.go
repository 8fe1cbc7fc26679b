package dockermanage_test

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"testing"

	"github.com/pressly/dockertester/internal/testdb"
	"github.com/pressly/dockertester/pkg/dockermanage"
	"github.com/pressly/dockertester/pkg/readiness"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartGettingStarted(t *testing.T) {
	t.Parallel()

	rt := testdb.Runtime(t)
	ctx := t.Context()

	h, err := dockermanage.Start(ctx, rt,
		dockermanage.WithImage("docker/getting-started"),
		dockermanage.WithContainerPort("80"),
		dockermanage.WithLogger(testdb.Logger(false)),
	)
	require.NoError(t, err)
	dockermanage.Cleanup(t, h)

	assert.Len(t, h.ID, dockermanage.ShortIDLength)
	assert.NotEmpty(t, h.Endpoint.Host)
	assert.True(t, h.Endpoint.Valid())

	status, err := rt.InspectStatus(ctx, h.ID)
	require.NoError(t, err)
	assert.Equal(t, dockermanage.StatusRunning, status)

	// The web server may need a moment after the container reports running.
	err = readiness.Poll(ctx, readiness.DefaultPolicy(), func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://"+net.JoinHostPort(h.Endpoint.DialHost(), strconv.Itoa(h.Endpoint.Port)), nil)
		if err != nil {
			return err
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return err
		}
		return resp.Body.Close()
	})
	require.NoError(t, err)
}

func TestStartAndClose(t *testing.T) {
	t.Parallel()

	rt := testdb.Runtime(t)
	ctx := t.Context()

	h, err := dockermanage.Start(ctx, rt,
		dockermanage.WithImage("docker/getting-started"),
		dockermanage.WithContainerPort("80"),
	)
	require.NoError(t, err)
	require.NoError(t, h.Close(ctx))
	require.NoError(t, h.Close(ctx))

	ids, err := rt.ListManaged(ctx)
	require.NoError(t, err)
	assert.NotContains(t, ids, h.ID)
}
