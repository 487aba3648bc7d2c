// Package settings persists per-user processing preferences in SQLite.
// A user without a stored row gets the built-in defaults; writes upsert
// the full record so reads never see a partial settings set.
package settings
