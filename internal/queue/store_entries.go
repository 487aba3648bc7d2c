package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const entryColumns = "id, job_id, user_id, operation, options, input_path, status, error_message, created_at, updated_at"

// Enqueue inserts a new pending job for a user, returning its 1-based
// position in that user's backlog. Enqueueing beyond the configured cap
// returns ErrQueueFull.
func (s *Store) Enqueue(ctx context.Context, userID int64, operation, optionsJSON, inputPath string) (Entry, int, error) {
	ctx = ensureContext(ctx)
	if optionsJSON == "" {
		optionsJSON = "{}"
	}

	var entry Entry
	var position int
	err := retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin enqueue tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		var pending int
		if err := tx.QueryRowContext(ctx,
			"SELECT COUNT(1) FROM jobs WHERE user_id = ? AND status = ?",
			userID, string(StatusPending),
		).Scan(&pending); err != nil {
			return fmt.Errorf("count pending: %w", err)
		}
		if pending >= s.maxDepth {
			return ErrQueueFull
		}

		now := time.Now().UTC()
		jobID := uuid.NewString()
		res, err := tx.ExecContext(ctx,
			`INSERT INTO jobs (job_id, user_id, operation, options, input_path, status, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			jobID, userID, operation, optionsJSON, inputPath, string(StatusPending),
			now.Format(time.RFC3339Nano), now.Format(time.RFC3339Nano),
		)
		if err != nil {
			return fmt.Errorf("insert job: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("job id: %w", err)
		}

		entry = Entry{
			ID:          id,
			JobID:       jobID,
			UserID:      userID,
			Operation:   operation,
			OptionsJSON: optionsJSON,
			InputPath:   inputPath,
			Status:      StatusPending,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		position = pending + 1
		return tx.Commit()
	})
	if err != nil {
		return Entry{}, 0, err
	}
	return entry, position, nil
}

// ClaimNext atomically pops the oldest pending job for a user and marks it
// probing. ErrNotFound when the user has no pending jobs.
func (s *Store) ClaimNext(ctx context.Context, userID int64) (Entry, error) {
	ctx = ensureContext(ctx)

	var entry Entry
	err := retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin claim tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		row := tx.QueryRowContext(ctx,
			"SELECT "+entryColumns+" FROM jobs WHERE user_id = ? AND status = ? ORDER BY id LIMIT 1",
			userID, string(StatusPending),
		)
		scanned, scanErr := scanEntry(row)
		if scanErr != nil {
			if errors.Is(scanErr, sql.ErrNoRows) {
				return ErrNotFound
			}
			return scanErr
		}

		now := time.Now().UTC()
		if _, err := tx.ExecContext(ctx,
			"UPDATE jobs SET status = ?, updated_at = ? WHERE id = ?",
			string(StatusProbing), now.Format(time.RFC3339Nano), scanned.ID,
		); err != nil {
			return fmt.Errorf("claim job: %w", err)
		}
		scanned.Status = StatusProbing
		scanned.UpdatedAt = now
		entry = scanned
		return tx.Commit()
	})
	if err != nil {
		return Entry{}, err
	}
	return entry, nil
}

// SetStatus transitions a job, recording the error message for failures.
func (s *Store) SetStatus(ctx context.Context, jobID string, status Status, errorMessage string) error {
	return s.execWithRetry(ctx,
		"UPDATE jobs SET status = ?, error_message = ?, updated_at = ? WHERE job_id = ?",
		string(status), errorMessage, time.Now().UTC().Format(time.RFC3339Nano), jobID,
	)
}

// Depth reports how many jobs a user has pending.
func (s *Store) Depth(ctx context.Context, userID int64) (int, error) {
	ctx = ensureContext(ctx)
	var depth int
	err := retryOnBusy(ctx, func() error {
		return s.db.QueryRowContext(ctx,
			"SELECT COUNT(1) FROM jobs WHERE user_id = ? AND status = ?",
			userID, string(StatusPending),
		).Scan(&depth)
	})
	return depth, err
}

// HasActive reports whether a user has a job in a processing status.
func (s *Store) HasActive(ctx context.Context, userID int64) (bool, error) {
	ctx = ensureContext(ctx)
	var count int
	err := retryOnBusy(ctx, func() error {
		return s.db.QueryRowContext(ctx,
			"SELECT COUNT(1) FROM jobs WHERE user_id = ? AND status IN (?, ?, ?)",
			userID, string(StatusProbing), string(StatusBuilding), string(StatusRunning),
		).Scan(&count)
	})
	return count > 0, err
}

// List returns entries ordered newest-first, optionally filtered by status.
func (s *Store) List(ctx context.Context, filter ...Status) ([]Entry, error) {
	ctx = ensureContext(ctx)

	query := "SELECT " + entryColumns + " FROM jobs"
	args := make([]any, 0, len(filter))
	if len(filter) > 0 {
		query += " WHERE status IN ("
		for i, status := range filter {
			if i > 0 {
				query += ", "
			}
			query += "?"
			args = append(args, string(status))
		}
		query += ")"
	}
	query += " ORDER BY id DESC"

	var entries []Entry
	err := retryOnBusy(ctx, func() error {
		rows, err := s.db.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		entries = entries[:0]
		for rows.Next() {
			entry, err := scanEntry(rows)
			if err != nil {
				return err
			}
			entries = append(entries, entry)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// ClearUser removes every non-processing job for a user, returning how many
// rows were deleted.
func (s *Store) ClearUser(ctx context.Context, userID int64) (int64, error) {
	ctx = ensureContext(ctx)
	var removed int64
	err := retryOnBusy(ctx, func() error {
		res, err := s.db.ExecContext(ctx,
			"DELETE FROM jobs WHERE user_id = ? AND status NOT IN (?, ?, ?)",
			userID, string(StatusProbing), string(StatusBuilding), string(StatusRunning),
		)
		if err != nil {
			return err
		}
		removed, err = res.RowsAffected()
		return err
	})
	return removed, err
}

// RecoverStale fails processing jobs whose last update is older than the
// threshold. Run at startup so a crash never leaves jobs stuck "running".
func (s *Store) RecoverStale(ctx context.Context, olderThan time.Duration) (int64, error) {
	ctx = ensureContext(ctx)
	cutoff := time.Now().UTC().Add(-olderThan).Format(time.RFC3339Nano)

	var recovered int64
	err := retryOnBusy(ctx, func() error {
		res, err := s.db.ExecContext(ctx,
			`UPDATE jobs SET status = ?, error_message = ?, updated_at = ?
			 WHERE status IN (?, ?, ?) AND updated_at < ?`,
			string(StatusFailed), "job interrupted by restart",
			time.Now().UTC().Format(time.RFC3339Nano),
			string(StatusProbing), string(StatusBuilding), string(StatusRunning),
			cutoff,
		)
		if err != nil {
			return err
		}
		recovered, err = res.RowsAffected()
		return err
	})
	return recovered, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (Entry, error) {
	var entry Entry
	var status, createdAt, updatedAt string
	if err := row.Scan(
		&entry.ID, &entry.JobID, &entry.UserID, &entry.Operation, &entry.OptionsJSON,
		&entry.InputPath, &status, &entry.ErrorMessage, &createdAt, &updatedAt,
	); err != nil {
		return Entry{}, err
	}
	entry.Status = Status(status)
	if ts, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
		entry.CreatedAt = ts
	}
	if ts, err := time.Parse(time.RFC3339Nano, updatedAt); err == nil {
		entry.UpdatedAt = ts
	}
	return entry, nil
}
