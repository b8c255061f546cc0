package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"billingengine/internal/billing"
)

type TimesheetRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewTimesheetRepository(db *pgxpool.Pool, logger *zap.Logger) *TimesheetRepository {
	return &TimesheetRepository{db: db, logger: logger}
}

func (r *TimesheetRepository) ListByProject(ctx context.Context, projectID int64) ([]billing.Timesheet, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, project_id, date, hours, billable, description
		FROM timesheets
		WHERE project_id = $1
		ORDER BY date, id`, projectID)
	if err != nil {
		r.logger.Error("Failed to query timesheets", zap.Int64("project_id", projectID), zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	out := []billing.Timesheet{}
	for rows.Next() {
		var t billing.Timesheet
		if err := rows.Scan(&t.ID, &t.ProjectID, &t.Date, &t.Hours, &t.Billable, &t.Description); err != nil {
			r.logger.Error("Failed to scan timesheet row", zap.Int64("project_id", projectID), zap.Error(err))
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
