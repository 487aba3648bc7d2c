// Package logging builds the slog loggers used across the bot.
//
// Two handler formats are supported: a human-oriented console handler that
// prints "TIMESTAMP LEVEL component: message key=value" lines, and a JSON
// handler for structured collection. Attribute helpers keep call sites terse
// and consistent, and ProgressSampler suppresses repetitive progress logs so
// a running ffmpeg job does not flood the log with per-line updates.
package logging
