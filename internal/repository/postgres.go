package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tomide-ak/invoice-bridge/constants"
)

// PostgresOutcomes stores outcomes in postgres via pgx.
type PostgresOutcomes struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func NewPostgresOutcomes(pool *pgxpool.Pool, logger *slog.Logger) *PostgresOutcomes {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresOutcomes{pool: pool, logger: logger}
}

// EnsureSchema creates the outcomes table when it does not exist yet.
func (r *PostgresOutcomes) EnsureSchema(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS outcomes (
			id           BIGSERIAL PRIMARY KEY,
			tracking_id  TEXT NOT NULL,
			filename     TEXT NOT NULL,
			status       TEXT NOT NULL,
			xml_locator  TEXT NOT NULL DEFAULT '',
			edi_locator  TEXT NOT NULL DEFAULT '',
			failed_step  TEXT NOT NULL DEFAULT '',
			message      TEXT NOT NULL DEFAULT '',
			step_errors  JSONB NOT NULL DEFAULT '[]'::jsonb,
			created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
			deleted_at   TIMESTAMPTZ
		)
	`)
	if err != nil {
		return fmt.Errorf("ensure outcomes schema: %w", err)
	}
	return nil
}

func (r *PostgresOutcomes) SaveSuccess(ctx context.Context, o SuccessOutcome) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO outcomes (tracking_id, filename, status, xml_locator, edi_locator, message, step_errors)
		VALUES ($1, $2, $3, $4, $5, $6, '[]'::jsonb)
	`, o.TrackingID, o.Filename, string(constants.OutcomeSuccess), o.XMLLocator, o.EDILocator, o.Message)
	if err != nil {
		return fmt.Errorf("save success outcome: %w", err)
	}
	r.logger.Info("repo.outcome.saved", "tracking_id", o.TrackingID, "status", string(constants.OutcomeSuccess))
	return nil
}

func (r *PostgresOutcomes) SaveFailure(ctx context.Context, o FailureOutcome) error {
	stepErrors, err := json.Marshal(o.StepErrors)
	if err != nil {
		return fmt.Errorf("marshal step errors: %w", err)
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO outcomes (tracking_id, filename, status, xml_locator, edi_locator, failed_step, message, step_errors)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, o.TrackingID, o.Filename, string(constants.OutcomeFailed), o.XMLLocator, o.EDILocator, o.FailedStep, o.Message, stepErrors)
	if err != nil {
		return fmt.Errorf("save failure outcome: %w", err)
	}
	r.logger.Info("repo.outcome.saved", "tracking_id", o.TrackingID, "status", string(constants.OutcomeFailed))
	return nil
}

func (r *PostgresOutcomes) List(ctx context.Context, limit int) ([]Outcome, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, tracking_id, filename, status, xml_locator, edi_locator, failed_step, message, step_errors, created_at, deleted_at
		FROM outcomes
		WHERE deleted_at IS NULL
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list outcomes: %w", err)
	}
	defer rows.Close()

	var out []Outcome
	for rows.Next() {
		var o Outcome
		var stepErrors []byte
		if err := rows.Scan(&o.ID, &o.TrackingID, &o.Filename, &o.Status, &o.XMLLocator,
			&o.EDILocator, &o.FailedStep, &o.Message, &stepErrors, &o.CreatedAt, &o.DeletedAt); err != nil {
			return nil, fmt.Errorf("scan outcome: %w", err)
		}
		if len(stepErrors) > 0 {
			if err := json.Unmarshal(stepErrors, &o.StepErrors); err != nil {
				return nil, fmt.Errorf("decode step errors: %w", err)
			}
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (r *PostgresOutcomes) Counts(ctx context.Context) (Counts, error) {
	var c Counts
	err := r.pool.QueryRow(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE status = $1 AND deleted_at IS NULL),
			COUNT(*) FILTER (WHERE status = $2 AND deleted_at IS NULL),
			COUNT(*) FILTER (WHERE deleted_at IS NOT NULL)
		FROM outcomes
	`, string(constants.OutcomeSuccess), string(constants.OutcomeFailed)).
		Scan(&c.Successful, &c.Failed, &c.Deleted)
	if err != nil {
		return Counts{}, fmt.Errorf("count outcomes: %w", err)
	}
	return c, nil
}

func (r *PostgresOutcomes) SoftDelete(ctx context.Context, trackingID string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE outcomes SET deleted_at = now()
		WHERE tracking_id = $1 AND deleted_at IS NULL
	`, trackingID)
	if err != nil {
		return fmt.Errorf("soft delete outcome: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrOutcomeNotFound
	}
	return nil
}
