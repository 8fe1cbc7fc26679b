package dockermanage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/netip"
	"strconv"
)

// Field name aliases accepted for a port binding. Docker reports HostIp and HostPort; the other
// spellings show up in tooling that re-encodes inspect output.
var (
	hostIPAliases   = []string{"HostIp", "HostIP", "host_ip", "hostIp", "hostIP"}
	hostPortAliases = []string{"HostPort", "host_port", "hostPort"}
)

// Binding is one host binding of a published container port, as reported by the runtime.
type Binding struct {
	HostIP   string
	HostPort string
}

// Endpoint is the externally reachable address of a published container port.
type Endpoint struct {
	Host string
	Port int
}

// Valid reports whether the endpoint has a host and a port in range.
func (e Endpoint) Valid() bool {
	return e.Host != "" && e.Port > 0 && e.Port <= 65535
}

// Address returns host:port, bracketing IPv6 hosts.
func (e Endpoint) Address() string {
	return net.JoinHostPort(e.Host, strconv.Itoa(e.Port))
}

// DialHost returns a host suitable for dialing. Unspecified addresses (0.0.0.0 and ::) are mapped
// to the loopback address of the same family; every other host is returned unchanged.
func (e Endpoint) DialHost() string {
	addr, err := netip.ParseAddr(e.Host)
	if err != nil || !addr.IsUnspecified() {
		return e.Host
	}
	if addr.Is6() {
		return netip.IPv6Loopback().String()
	}
	return "127.0.0.1"
}

// DecodeBindings decodes the port mapping output of [Runtime.InspectPortMapping].
//
// The input may be wrapped in single quotes and whitespace. Inside the brackets it accepts either
// a regular JSON array or a run of JSON objects with no separators, which is what the docker
// inspect template prints when a port is bound more than once. Missing fields decode as empty
// strings.
func DecodeBindings(raw []byte) ([]Binding, error) {
	raw = bytes.TrimSpace(raw)
	raw = bytes.Trim(raw, "'")
	raw = bytes.TrimSpace(raw)
	if len(raw) < 2 || raw[0] != '[' || raw[len(raw)-1] != ']' {
		return nil, fmt.Errorf("port mapping is not a list: %q", raw)
	}

	var objects []map[string]json.RawMessage
	if err := json.Unmarshal(raw, &objects); err != nil {
		// Not a JSON array. Fall back to a stream of adjacent objects.
		objects = objects[:0]
		dec := json.NewDecoder(bytes.NewReader(raw[1 : len(raw)-1]))
		for {
			var obj map[string]json.RawMessage
			if err := dec.Decode(&obj); err != nil {
				if errors.Is(err, io.EOF) {
					break
				}
				return nil, fmt.Errorf("decode port mapping %q: %w", raw, err)
			}
			objects = append(objects, obj)
		}
	}

	bindings := make([]Binding, 0, len(objects))
	for _, obj := range objects {
		hostIP, err := lookupAlias(obj, hostIPAliases)
		if err != nil {
			return nil, err
		}
		hostPort, err := lookupAlias(obj, hostPortAliases)
		if err != nil {
			return nil, err
		}
		bindings = append(bindings, Binding{HostIP: hostIP, HostPort: hostPort})
	}
	return bindings, nil
}

// lookupAlias returns the first alias present in obj. Values may be JSON strings or numbers.
func lookupAlias(obj map[string]json.RawMessage, aliases []string) (string, error) {
	for _, alias := range aliases {
		v, ok := obj[alias]
		if !ok || string(v) == "null" {
			continue
		}
		var s string
		if err := json.Unmarshal(v, &s); err == nil {
			return s, nil
		}
		var n json.Number
		if err := json.Unmarshal(v, &n); err != nil {
			return "", fmt.Errorf("field %s: unexpected value %s", alias, v)
		}
		return n.String(), nil
	}
	return "", nil
}

// Resolve returns the host endpoint published for the container's TCP port. The first binding
// reported by the runtime wins.
func Resolve(ctx context.Context, rt Runtime, id, port string) (Endpoint, error) {
	raw, err := rt.InspectPortMapping(ctx, id, port)
	if err != nil {
		return Endpoint{}, err
	}
	bindings, err := DecodeBindings(raw)
	if err != nil {
		return Endpoint{}, fmt.Errorf("%w: container %s: %w", ErrPortResolution, id, err)
	}
	if len(bindings) == 0 {
		return Endpoint{}, fmt.Errorf("%w: container %s: no host bindings for %s/tcp", ErrPortResolution, id, port)
	}
	return endpointFromBinding(bindings[0])
}

func endpointFromBinding(b Binding) (Endpoint, error) {
	if b.HostIP == "" {
		return Endpoint{}, fmt.Errorf("%w: binding has no host ip", ErrPortResolution)
	}
	hostPort, err := strconv.Atoi(b.HostPort)
	if err != nil {
		return Endpoint{}, fmt.Errorf("%w: parse host port %q: %w", ErrPortResolution, b.HostPort, err)
	}
	endpoint := Endpoint{Host: b.HostIP, Port: hostPort}
	if !endpoint.Valid() {
		return Endpoint{}, fmt.Errorf("%w: host port out of range: %d", ErrPortResolution, hostPort)
	}
	return endpoint, nil
}
