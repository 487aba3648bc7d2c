// Command ffmpegbot is the CLI for the media-processing pipeline: a daemon
// that drains the job queue, queue inspection, one-shot local processing,
// and configuration helpers.
package main
