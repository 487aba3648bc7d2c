package settings

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is bumped when the settings schema changes; a mismatched
// database must be cleared rather than migrated in place.
const schemaVersion = 1

// ErrSchemaMismatch indicates the settings schema version doesn't match the
// expected version.
var ErrSchemaMismatch = errors.New("settings schema version mismatch")

// Store persists per-user settings backed by SQLite. The store keeps its own
// version table so it can share a database file with the job queue.
type Store struct {
	db   *sql.DB
	path string
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

// Open initializes or connects to the settings database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

const settingsColumns = `user_id, video_codec, audio_codec, crf, preset, resolution,
	audio_bitrate, output_format, keep_source, watermark_enabled, watermark_text,
	watermark_position, metadata_title, metadata_author, destination, updated_at`

// Get returns the stored settings for userID, or the defaults when the user
// has never saved anything.
func (s *Store) Get(ctx context.Context, userID int64) (Settings, error) {
	ctx = ensureContext(ctx)

	var result Settings
	err := retryOnBusy(ctx, func() error {
		row := s.db.QueryRowContext(ctx,
			"SELECT "+settingsColumns+" FROM user_settings WHERE user_id = ?", userID)
		scanned, scanErr := scanSettings(row)
		if scanErr != nil {
			return scanErr
		}
		result = scanned
		return nil
	})
	if errors.Is(err, sql.ErrNoRows) {
		defaults := Defaults()
		defaults.UserID = userID
		return defaults, nil
	}
	if err != nil {
		return Settings{}, fmt.Errorf("load settings for user %d: %w", userID, err)
	}
	return result, nil
}

// Set stores the full settings record for userID, replacing any existing row.
func (s *Store) Set(ctx context.Context, userID int64, settings Settings) error {
	ctx = ensureContext(ctx)

	settings.UserID = userID
	settings.normalize()
	if err := settings.validate(); err != nil {
		return err
	}
	settings.UpdatedAt = time.Now().UTC()

	err := retryOnBusy(ctx, func() error {
		_, execErr := s.db.ExecContext(ctx, `
			INSERT INTO user_settings (`+settingsColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(user_id) DO UPDATE SET
				video_codec = excluded.video_codec,
				audio_codec = excluded.audio_codec,
				crf = excluded.crf,
				preset = excluded.preset,
				resolution = excluded.resolution,
				audio_bitrate = excluded.audio_bitrate,
				output_format = excluded.output_format,
				keep_source = excluded.keep_source,
				watermark_enabled = excluded.watermark_enabled,
				watermark_text = excluded.watermark_text,
				watermark_position = excluded.watermark_position,
				metadata_title = excluded.metadata_title,
				metadata_author = excluded.metadata_author,
				destination = excluded.destination,
				updated_at = excluded.updated_at`,
			settings.UserID,
			settings.VideoCodec,
			settings.AudioCodec,
			settings.CRF,
			settings.Preset,
			settings.Resolution,
			settings.AudioBitrate,
			settings.OutputFormat,
			boolToInt(settings.KeepSource),
			boolToInt(settings.WatermarkEnabled),
			settings.WatermarkText,
			settings.WatermarkPosition,
			settings.MetadataTitle,
			settings.MetadataAuthor,
			settings.Destination,
			settings.UpdatedAt.Format(time.RFC3339Nano),
		)
		return execErr
	})
	if err != nil {
		return fmt.Errorf("save settings for user %d: %w", userID, err)
	}
	return nil
}

// Update applies fn to the user's current settings (defaults if unset) and
// stores the result.
func (s *Store) Update(ctx context.Context, userID int64, fn func(*Settings)) (Settings, error) {
	current, err := s.Get(ctx, userID)
	if err != nil {
		return Settings{}, err
	}
	fn(&current)
	if err := s.Set(ctx, userID, current); err != nil {
		return Settings{}, err
	}
	return s.Get(ctx, userID)
}

// Reset deletes the user's stored settings so subsequent reads return the
// defaults.
func (s *Store) Reset(ctx context.Context, userID int64) error {
	ctx = ensureContext(ctx)
	err := retryOnBusy(ctx, func() error {
		_, execErr := s.db.ExecContext(ctx, "DELETE FROM user_settings WHERE user_id = ?", userID)
		return execErr
	})
	if err != nil {
		return fmt.Errorf("reset settings for user %d: %w", userID, err)
	}
	return nil
}

func (s *Store) initSchema(ctx context.Context) error {
	var tableExists int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='settings_schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check settings_schema_version table: %w", err)
	}

	if tableExists == 0 {
		return s.createSchema(ctx)
	}

	var version int
	err = s.db.QueryRowContext(ctx, "SELECT version FROM settings_schema_version LIMIT 1").Scan(&version)
	if err != nil {
		return fmt.Errorf("read settings schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d (delete the database to recreate)",
			ErrSchemaMismatch, version, schemaVersion)
	}
	return nil
}

func (s *Store) createSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create settings schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO settings_schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("record settings schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit settings schema: %w", err)
	}
	return nil
}

func scanSettings(row *sql.Row) (Settings, error) {
	var (
		result     Settings
		keepSource int
		watermark  int
		updatedAt  string
	)
	err := row.Scan(
		&result.UserID,
		&result.VideoCodec,
		&result.AudioCodec,
		&result.CRF,
		&result.Preset,
		&result.Resolution,
		&result.AudioBitrate,
		&result.OutputFormat,
		&keepSource,
		&watermark,
		&result.WatermarkText,
		&result.WatermarkPosition,
		&result.MetadataTitle,
		&result.MetadataAuthor,
		&result.Destination,
		&updatedAt,
	)
	if err != nil {
		return Settings{}, err
	}
	result.KeepSource = keepSource != 0
	result.WatermarkEnabled = watermark != 0
	if parsed, parseErr := time.Parse(time.RFC3339Nano, updatedAt); parseErr == nil {
		result.UpdatedAt = parsed
	}
	return result, nil
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}
