package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"

	"github.com/tomide-ak/invoice-bridge/constants"
)

// SQLiteOutcomes is the local/dev outcome store. Timestamps are stored as
// RFC 3339 text so the rows stay portable across drivers.
type SQLiteOutcomes struct {
	db     *sql.DB
	logger *slog.Logger
}

// OpenSQLite opens (and creates, if missing) a sqlite database at dsn.
func OpenSQLite(dsn string, logger *slog.Logger) (*SQLiteOutcomes, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dsn, err)
	}
	return &SQLiteOutcomes{db: db, logger: logger}, nil
}

func (r *SQLiteOutcomes) Close() error {
	return r.db.Close()
}

// EnsureSchema creates the outcomes table when it does not exist yet.
func (r *SQLiteOutcomes) EnsureSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS outcomes (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			tracking_id  TEXT NOT NULL,
			filename     TEXT NOT NULL,
			status       TEXT NOT NULL,
			xml_locator  TEXT NOT NULL DEFAULT '',
			edi_locator  TEXT NOT NULL DEFAULT '',
			failed_step  TEXT NOT NULL DEFAULT '',
			message      TEXT NOT NULL DEFAULT '',
			step_errors  TEXT NOT NULL DEFAULT '[]',
			created_at   TEXT NOT NULL,
			deleted_at   TEXT
		)
	`)
	if err != nil {
		return fmt.Errorf("ensure outcomes schema: %w", err)
	}
	return nil
}

func (r *SQLiteOutcomes) SaveSuccess(ctx context.Context, o SuccessOutcome) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO outcomes (tracking_id, filename, status, xml_locator, edi_locator, message, step_errors, created_at)
		VALUES (?, ?, ?, ?, ?, ?, '[]', ?)
	`, o.TrackingID, o.Filename, string(constants.OutcomeSuccess), o.XMLLocator, o.EDILocator, o.Message,
		time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("save success outcome: %w", err)
	}
	r.logger.Info("repo.outcome.saved", "tracking_id", o.TrackingID, "status", string(constants.OutcomeSuccess))
	return nil
}

func (r *SQLiteOutcomes) SaveFailure(ctx context.Context, o FailureOutcome) error {
	stepErrors, err := json.Marshal(o.StepErrors)
	if err != nil {
		return fmt.Errorf("marshal step errors: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO outcomes (tracking_id, filename, status, xml_locator, edi_locator, failed_step, message, step_errors, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, o.TrackingID, o.Filename, string(constants.OutcomeFailed), o.XMLLocator, o.EDILocator, o.FailedStep,
		o.Message, string(stepErrors), time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("save failure outcome: %w", err)
	}
	r.logger.Info("repo.outcome.saved", "tracking_id", o.TrackingID, "status", string(constants.OutcomeFailed))
	return nil
}

func (r *SQLiteOutcomes) List(ctx context.Context, limit int) ([]Outcome, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, tracking_id, filename, status, xml_locator, edi_locator, failed_step, message, step_errors, created_at, deleted_at
		FROM outcomes
		WHERE deleted_at IS NULL
		ORDER BY created_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list outcomes: %w", err)
	}
	defer rows.Close()

	var out []Outcome
	for rows.Next() {
		var o Outcome
		var stepErrors, createdAt string
		var deletedAt sql.NullString
		if err := rows.Scan(&o.ID, &o.TrackingID, &o.Filename, &o.Status, &o.XMLLocator,
			&o.EDILocator, &o.FailedStep, &o.Message, &stepErrors, &createdAt, &deletedAt); err != nil {
			return nil, fmt.Errorf("scan outcome: %w", err)
		}
		if stepErrors != "" {
			if err := json.Unmarshal([]byte(stepErrors), &o.StepErrors); err != nil {
				return nil, fmt.Errorf("decode step errors: %w", err)
			}
		}
		if o.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
			return nil, fmt.Errorf("parse created_at: %w", err)
		}
		if deletedAt.Valid {
			t, err := time.Parse(time.RFC3339Nano, deletedAt.String)
			if err != nil {
				return nil, fmt.Errorf("parse deleted_at: %w", err)
			}
			o.DeletedAt = &t
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (r *SQLiteOutcomes) Counts(ctx context.Context) (Counts, error) {
	var c Counts
	err := r.db.QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(CASE WHEN status = ? AND deleted_at IS NULL THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = ? AND deleted_at IS NULL THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN deleted_at IS NOT NULL THEN 1 ELSE 0 END), 0)
		FROM outcomes
	`, string(constants.OutcomeSuccess), string(constants.OutcomeFailed)).
		Scan(&c.Successful, &c.Failed, &c.Deleted)
	if err != nil {
		return Counts{}, fmt.Errorf("count outcomes: %w", err)
	}
	return c, nil
}

func (r *SQLiteOutcomes) SoftDelete(ctx context.Context, trackingID string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE outcomes SET deleted_at = ?
		WHERE tracking_id = ? AND deleted_at IS NULL
	`, time.Now().UTC().Format(time.RFC3339Nano), trackingID)
	if err != nil {
		return fmt.Errorf("soft delete outcome: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("soft delete outcome: %w", err)
	}
	if n == 0 {
		return ErrOutcomeNotFound
	}
	return nil
}
