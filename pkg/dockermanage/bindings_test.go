package dockermanage_test

import (
	"testing"

	"github.com/pressly/dockertester/pkg/dockermanage"
	"github.com/pressly/dockertester/pkg/dockermanage/dockermanagetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeBindings(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
		want []dockermanage.Binding
	}{
		{
			name: "quoted single binding",
			raw:  `'[{"HostIp":"0.0.0.0","HostPort":"5432"}]'`,
			want: []dockermanage.Binding{{HostIP: "0.0.0.0", HostPort: "5432"}},
		},
		{
			name: "trailing newline from docker",
			raw:  "'[{\"HostIp\":\"0.0.0.0\",\"HostPort\":\"49153\"}]'\n",
			want: []dockermanage.Binding{{HostIP: "0.0.0.0", HostPort: "49153"}},
		},
		{
			name: "adjacent objects for ipv4 and ipv6",
			raw:  `'[{"HostIp":"0.0.0.0","HostPort":"49153"}{"HostIp":"::","HostPort":"49153"}]'`,
			want: []dockermanage.Binding{
				{HostIP: "0.0.0.0", HostPort: "49153"},
				{HostIP: "::", HostPort: "49153"},
			},
		},
		{
			name: "json array with separators",
			raw:  `[{"HostIp":"127.0.0.1","HostPort":"1"},{"HostIp":"::1","HostPort":"2"}]`,
			want: []dockermanage.Binding{
				{HostIP: "127.0.0.1", HostPort: "1"},
				{HostIP: "::1", HostPort: "2"},
			},
		},
		{
			name: "field aliases",
			raw:  `[{"host_ip":"10.0.0.1","host_port":"80"},{"HostIP":"10.0.0.2","hostPort":81}]`,
			want: []dockermanage.Binding{
				{HostIP: "10.0.0.1", HostPort: "80"},
				{HostIP: "10.0.0.2", HostPort: "81"},
			},
		},
		{
			name: "missing fields default to empty",
			raw:  `'[{"HostPort":"5432"}{"HostIp":"0.0.0.0"}{}]'`,
			want: []dockermanage.Binding{
				{HostPort: "5432"},
				{HostIP: "0.0.0.0"},
				{},
			},
		},
		{
			name: "empty list",
			raw:  `'[]'`,
			want: []dockermanage.Binding{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := dockermanage.DecodeBindings([]byte(tt.raw))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeBindingsInvalid(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{
		``,
		`''`,
		`no value`,
		`{"HostIp":"0.0.0.0","HostPort":"5432"}`,
		`'[{"HostIp":"0.0.0.0",]'`,
		`[{"HostIp":["0.0.0.0"]}]`,
	} {
		_, err := dockermanage.DecodeBindings([]byte(raw))
		assert.Error(t, err, "input: %q", raw)
	}
}

func TestResolve(t *testing.T) {
	t.Parallel()

	t.Run("single binding", func(t *testing.T) {
		t.Parallel()
		rt := &dockermanagetest.Runtime{PortMapping: `'[{"HostIp":"0.0.0.0","HostPort":"5432"}]'`}
		endpoint, err := dockermanage.Resolve(t.Context(), rt, "c0ffee000001", "5432")
		require.NoError(t, err)
		assert.Equal(t, dockermanage.Endpoint{Host: "0.0.0.0", Port: 5432}, endpoint)
		assert.True(t, endpoint.Valid())
	})
	t.Run("first binding wins", func(t *testing.T) {
		t.Parallel()
		rt := &dockermanagetest.Runtime{PortMapping: `'[{"HostIp":"::","HostPort":"40001"}{"HostIp":"0.0.0.0","HostPort":"40002"}]'`}
		endpoint, err := dockermanage.Resolve(t.Context(), rt, "c0ffee000001", "80")
		require.NoError(t, err)
		assert.Equal(t, dockermanage.Endpoint{Host: "::", Port: 40001}, endpoint)
	})
	t.Run("no bindings", func(t *testing.T) {
		t.Parallel()
		rt := &dockermanagetest.Runtime{PortMapping: `'[]'`}
		endpoint, err := dockermanage.Resolve(t.Context(), rt, "c0ffee000001", "5432")
		require.ErrorIs(t, err, dockermanage.ErrPortResolution)
		assert.Contains(t, err.Error(), "5432/tcp")
		assert.Equal(t, dockermanage.Endpoint{}, endpoint)
	})
	t.Run("partial binding fails fast", func(t *testing.T) {
		t.Parallel()
		for _, mapping := range []string{
			`'[{"HostPort":"5432"}]'`,
			`'[{"HostIp":"0.0.0.0"}]'`,
			`'[{"HostIp":"0.0.0.0","HostPort":"0"}]'`,
			`'[{"HostIp":"0.0.0.0","HostPort":"70000"}]'`,
		} {
			rt := &dockermanagetest.Runtime{PortMapping: mapping}
			_, err := dockermanage.Resolve(t.Context(), rt, "c0ffee000001", "5432")
			assert.ErrorIs(t, err, dockermanage.ErrPortResolution, "mapping: %s", mapping)
		}
	})
}

func TestEndpoint(t *testing.T) {
	t.Parallel()

	tests := []struct {
		endpoint dockermanage.Endpoint
		dialHost string
		address  string
	}{
		{dockermanage.Endpoint{Host: "0.0.0.0", Port: 5432}, "127.0.0.1", "0.0.0.0:5432"},
		{dockermanage.Endpoint{Host: "::", Port: 5432}, "::1", "[::]:5432"},
		{dockermanage.Endpoint{Host: "127.0.0.1", Port: 1}, "127.0.0.1", "127.0.0.1:1"},
		{dockermanage.Endpoint{Host: "docker.local", Port: 80}, "docker.local", "docker.local:80"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.dialHost, tt.endpoint.DialHost())
		assert.Equal(t, tt.address, tt.endpoint.Address())
	}
	assert.False(t, dockermanage.Endpoint{Port: 5432}.Valid())
	assert.False(t, dockermanage.Endpoint{Host: "0.0.0.0"}.Valid())
}
