// Package config loads, normalizes, and validates the bot's TOML
// configuration. Load applies defaults first, then overlays the config file,
// expands every path field, and validates the result so the rest of the
// program can trust the values it receives.
package config
