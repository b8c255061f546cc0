package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"billingengine/internal/billing"
)

type ActivityRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewActivityRepository(db *pgxpool.Pool, logger *zap.Logger) *ActivityRepository {
	return &ActivityRepository{db: db, logger: logger}
}

// Insert stores rec once per event id. It reports false for a redelivered event.
func (r *ActivityRepository) Insert(ctx context.Context, rec billing.ActivityRecord) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		INSERT INTO activity_log (event_id, actor_id, action, document_kind, document_id, from_status, to_status, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (event_id) DO NOTHING`,
		rec.EventID,
		rec.ActorID,
		rec.Action,
		string(rec.DocumentKind),
		rec.DocumentID,
		rec.FromStatus,
		rec.ToStatus,
		rec.Timestamp,
	)
	if err != nil {
		r.logger.Error("Failed to insert activity record",
			zap.String("event_id", rec.EventID),
			zap.Int64("document_id", rec.DocumentID),
			zap.Error(err),
		)
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}
