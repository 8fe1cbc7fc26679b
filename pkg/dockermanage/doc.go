// Package dockermanage provides lightweight Docker container lifecycle helpers for integration
// testing.
//
// A [Runtime] issues launch, inspect, stop and remove operations against the container runtime.
// [CLIRuntime] drives the docker command-line tool and is the default; [EngineRuntime] talks to
// the Docker Engine API directly.
//
// [Start] launches a container, resolves the host endpoint published for its port, and waits
// until the runtime reports it as running. The returned [Handle] owns the container: call
// [Handle.Close] (usually with defer, or through [Cleanup] in tests) to stop and remove it. If
// Start fails after the container was launched, the container is torn down before Start returns.
//
// Every container started through this package is tagged with the [ManagedLabelKey] label, which
// allows [Prune] to clean up containers leaked by a crashed test binary.
//
// Database-specific sub-packages (e.g., dockerpostgres) build ready-to-use fixtures on top.
package dockermanage
