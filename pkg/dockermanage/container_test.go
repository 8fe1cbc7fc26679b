package dockermanage_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pressly/dockertester/pkg/dockermanage"
	"github.com/pressly/dockertester/pkg/dockermanage/dockermanagetest"
	"github.com/pressly/dockertester/pkg/readiness"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fastPolicy keeps the default attempt budget but does not wait between attempts.
func fastPolicy() readiness.Policy {
	return readiness.Policy{
		Attempts: readiness.DefaultAttempts,
		Delay:    func(int) time.Duration { return 0 },
	}
}

func startOptions(extra ...dockermanage.Option) []dockermanage.Option {
	return append([]dockermanage.Option{
		dockermanage.WithImage("docker/getting-started"),
		dockermanage.WithContainerPort("80"),
		dockermanage.WithPolicy(fastPolicy()),
	}, extra...)
}

func TestStart(t *testing.T) {
	t.Parallel()

	t.Run("ready", func(t *testing.T) {
		t.Parallel()
		rt := &dockermanagetest.Runtime{
			Statuses:    []string{"created", "created", "running"},
			PortMapping: `'[{"HostIp":"0.0.0.0","HostPort":"49160"}]'`,
		}
		h, err := dockermanage.Start(t.Context(), rt, startOptions(
			dockermanage.WithEnv("FOO", "bar"),
			dockermanage.WithArgs("--name", "getting-started"),
			dockermanage.WithLabel("suite", "unit"),
		)...)
		require.NoError(t, err)
		assert.Len(t, h.ID, dockermanage.ShortIDLength)
		assert.Equal(t, dockermanage.Endpoint{Host: "0.0.0.0", Port: 49160}, h.Endpoint)
		assert.Equal(t, "docker/getting-started", h.Image)
		assert.Equal(t, "run inspect-ports inspect-status inspect-status inspect-status", rt.Ops())

		launched := rt.Launched()
		require.Len(t, launched, 1)
		assert.Equal(t, "80", launched[0].Port)
		assert.Equal(t, []string{"-e", "FOO=bar", "--name", "getting-started"}, launched[0].Args)
		assert.Equal(t, map[string]string{
			dockermanage.ManagedLabelKey: "",
			"suite":                      "unit",
		}, launched[0].Labels)

		require.NoError(t, h.Close(t.Context()))
		assert.Empty(t, rt.Running())
	})
	t.Run("launch failure tears nothing down", func(t *testing.T) {
		t.Parallel()
		rt := &dockermanagetest.Runtime{LaunchErr: errors.New("pull access denied")}
		h, err := dockermanage.Start(t.Context(), rt, startOptions()...)
		require.ErrorIs(t, err, dockermanage.ErrLaunch)
		assert.Contains(t, err.Error(), "pull access denied")
		assert.Nil(t, h)
		assert.Equal(t, "run", rt.Ops())
	})
	t.Run("readiness timeout tears down", func(t *testing.T) {
		t.Parallel()
		rt := &dockermanagetest.Runtime{Statuses: []string{"restarting"}}
		h, err := dockermanage.Start(t.Context(), rt, startOptions()...)
		require.ErrorIs(t, err, readiness.ErrTimeout)
		assert.Nil(t, h)
		assert.Contains(t, err.Error(), "c0ffee000001")
		assert.Contains(t, err.Error(), `"restarting"`)
		assert.Equal(t, 10, rt.Count("inspect-status"))
		assert.Equal(t, 1, rt.Count("stop"))
		assert.Equal(t, 1, rt.Count("rm"))
		assert.Empty(t, rt.Running())
	})
	t.Run("port resolution failure tears down", func(t *testing.T) {
		t.Parallel()
		rt := &dockermanagetest.Runtime{PortMapping: `'[]'`}
		_, err := dockermanage.Start(t.Context(), rt, startOptions()...)
		require.ErrorIs(t, err, dockermanage.ErrPortResolution)
		assert.Equal(t, "run inspect-ports stop rm", rt.Ops())
	})
	t.Run("teardown error is reported with the start error", func(t *testing.T) {
		t.Parallel()
		rt := &dockermanagetest.Runtime{
			PortMapping: `'[]'`,
			StopErr:     errors.New("daemon gone"),
		}
		_, err := dockermanage.Start(t.Context(), rt, startOptions()...)
		require.ErrorIs(t, err, dockermanage.ErrPortResolution)
		require.ErrorIs(t, err, dockermanage.ErrTeardown)
		assert.Contains(t, err.Error(), "daemon gone")
	})
	t.Run("failed teardown keeps the container id", func(t *testing.T) {
		t.Parallel()
		rt := &dockermanagetest.Runtime{
			Statuses: []string{"restarting"},
			StopErr:  errors.New("daemon gone"),
		}
		h, err := dockermanage.Start(t.Context(), rt, startOptions()...)
		require.ErrorIs(t, err, readiness.ErrTimeout)
		require.ErrorIs(t, err, dockermanage.ErrTeardown)
		assert.Nil(t, h)

		var startErr *dockermanage.StartError
		require.ErrorAs(t, err, &startErr)
		assert.Equal(t, "c0ffee000001", startErr.ID)
		require.ErrorIs(t, startErr.Teardown, dockermanage.ErrTeardown)
		assert.Equal(t, []string{"c0ffee000001"}, rt.Running())

		// The id is enough to finish the cleanup once the daemon recovers.
		rt.StopErr = nil
		require.NoError(t, rt.Stop(t.Context(), startErr.ID))
		require.NoError(t, rt.Remove(t.Context(), startErr.ID))
		assert.Empty(t, rt.Running())
	})
	t.Run("successful teardown is reported without error", func(t *testing.T) {
		t.Parallel()
		rt := &dockermanagetest.Runtime{PortMapping: `'[]'`}
		_, err := dockermanage.Start(t.Context(), rt, startOptions()...)
		var startErr *dockermanage.StartError
		require.ErrorAs(t, err, &startErr)
		assert.Equal(t, "c0ffee000001", startErr.ID)
		require.NoError(t, startErr.Teardown)
		require.ErrorIs(t, startErr.Err, dockermanage.ErrPortResolution)
	})
	t.Run("invalid options", func(t *testing.T) {
		t.Parallel()
		rt := &dockermanagetest.Runtime{}
		_, err := dockermanage.Start(t.Context(), rt, dockermanage.WithContainerPort("80"))
		require.EqualError(t, err, "image is required")
		_, err = dockermanage.Start(t.Context(), rt, dockermanage.WithImage("nginx"))
		require.EqualError(t, err, "container port is required")
		_, err = dockermanage.Start(t.Context(), rt, dockermanage.WithImage("nginx"), dockermanage.WithContainerPort("http"))
		require.Error(t, err)
		_, err = dockermanage.Start(t.Context(), rt, dockermanage.WithImage("nginx"), dockermanage.WithEnv("A=B", "c"))
		require.Error(t, err)
		_, err = dockermanage.Start(t.Context(), nil, startOptions()...)
		require.Error(t, err)
		assert.Empty(t, rt.Ops())
	})
}

func TestHandleClose(t *testing.T) {
	t.Parallel()

	t.Run("single effective teardown", func(t *testing.T) {
		t.Parallel()
		rt := &dockermanagetest.Runtime{}
		h, err := dockermanage.Start(t.Context(), rt, startOptions()...)
		require.NoError(t, err)
		for range 3 {
			require.NoError(t, h.Close(t.Context()))
		}
		assert.Equal(t, 1, rt.Count("stop"))
		assert.Equal(t, 1, rt.Count("rm"))
	})
	t.Run("stop failure skips remove", func(t *testing.T) {
		t.Parallel()
		rt := &dockermanagetest.Runtime{}
		h, err := dockermanage.Start(t.Context(), rt, startOptions()...)
		require.NoError(t, err)
		rt.StopErr = errors.New("No such container")
		err = h.Close(t.Context())
		require.ErrorIs(t, err, dockermanage.ErrTeardown)
		assert.Contains(t, err.Error(), "No such container")
		assert.Equal(t, 0, rt.Count("rm"))
		// The failure is sticky.
		require.ErrorIs(t, h.Close(t.Context()), dockermanage.ErrTeardown)
		assert.Equal(t, 1, rt.Count("stop"))
	})
	t.Run("remove failure", func(t *testing.T) {
		t.Parallel()
		rt := &dockermanagetest.Runtime{}
		h, err := dockermanage.Start(t.Context(), rt, startOptions()...)
		require.NoError(t, err)
		rt.RemoveErr = errors.New("removal in progress")
		require.ErrorIs(t, h.Close(t.Context()), dockermanage.ErrTeardown)
	})
	t.Run("cleanup", func(t *testing.T) {
		t.Parallel()
		rt := &dockermanagetest.Runtime{}
		t.Run("inner", func(t *testing.T) {
			h, err := dockermanage.Start(t.Context(), rt, startOptions()...)
			require.NoError(t, err)
			dockermanage.Cleanup(t, h)
			assert.Len(t, rt.Running(), 1)
		})
		assert.Empty(t, rt.Running())
		assert.Equal(t, 1, rt.Count("rm"))
	})
	t.Run("handle without runtime", func(t *testing.T) {
		t.Parallel()
		h := &dockermanage.Handle{ID: "c0ffee000001"}
		err := h.Close(t.Context())
		require.ErrorIs(t, err, dockermanage.ErrTeardown)
		assert.Contains(t, err.Error(), "c0ffee000001")
	})
	t.Run("nil handle", func(t *testing.T) {
		t.Parallel()
		var h *dockermanage.Handle
		require.NoError(t, h.Close(context.Background()))
	})
}

func TestPrune(t *testing.T) {
	t.Parallel()

	rt := &dockermanagetest.Runtime{}
	for range 3 {
		_, err := dockermanage.Start(t.Context(), rt, startOptions()...)
		require.NoError(t, err)
	}
	require.Len(t, rt.Running(), 3)

	removed, err := dockermanage.Prune(t.Context(), rt)
	require.NoError(t, err)
	assert.Equal(t, []string{"c0ffee000001", "c0ffee000002", "c0ffee000003"}, removed)
	assert.Empty(t, rt.Running())

	rt.StopErr = errors.New("daemon gone")
	_, err = dockermanage.Start(t.Context(), rt, startOptions()...)
	require.NoError(t, err)
	removed, err = dockermanage.Prune(t.Context(), rt)
	require.ErrorIs(t, err, dockermanage.ErrTeardown)
	assert.Empty(t, removed)
}
