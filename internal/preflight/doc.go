// Package preflight validates the runtime environment before the daemon
// accepts jobs: directory access, external binaries, disk headroom, and
// delivery configuration.
package preflight
