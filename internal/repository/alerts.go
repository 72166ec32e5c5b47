package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/plata-bot/plata/internal/domain"
)

// AlertRepository is the dedup ledger for financial alerts.
type AlertRepository interface {
	// TryClaim atomically records that an alert of the given type fired for
	// the user on day. It returns false when the day was already claimed, so
	// at most one alert of a type fires per user per calendar day.
	TryClaim(ctx context.Context, userID int64, alertType domain.AlertType, day time.Time) (bool, error)
}

type alertRepository struct {
	db  *sql.DB
	log *slog.Logger
}

// NewAlertRepository creates a new SQL-backed alert dedup repository.
func NewAlertRepository(db *sql.DB, log *slog.Logger) AlertRepository {
	return &alertRepository{
		db:  db,
		log: log,
	}
}

// TryClaim inserts the dedup row; the unique constraint turns a repeat claim
// into a no-op with zero rows affected.
func (r *alertRepository) TryClaim(ctx context.Context, userID int64, alertType domain.AlertType, day time.Time) (bool, error) {
	const query = `
		INSERT INTO financial_alerts (user_id, alert_type, alert_date)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, alert_type, alert_date) DO NOTHING
	`

	date := day.Format("2006-01-02")

	result, err := r.db.ExecContext(ctx, query, userID, alertType, date)
	if err != nil {
		if r.log != nil {
			r.log.Error("failed to claim alert slot", slog.Int64("user_id", userID), slog.Any("error", err))
		}
		return false, fmt.Errorf("claim alert slot: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("claim alert slot rows: %w", err)
	}

	return affected > 0, nil
}
