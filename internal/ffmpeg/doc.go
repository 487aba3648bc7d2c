// Package ffmpeg constructs ffmpeg argument lists for every operation the bot
// offers. Builders are pure functions from (input, output, Options) to a
// Command value; nothing in this package executes a process. The runner
// subpackage owns execution, cancellation, and the progress line protocol.
package ffmpeg
