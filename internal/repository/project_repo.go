package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"billingengine/internal/billing"
)

type ProjectRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewProjectRepository(db *pgxpool.Pool, logger *zap.Logger) *ProjectRepository {
	return &ProjectRepository{db: db, logger: logger}
}

const projectColumns = `id, name, hourly_rate, start_date, end_date, status`

func scanProject(row pgx.Row) (billing.Project, error) {
	var p billing.Project
	err := row.Scan(&p.ID, &p.Name, &p.HourlyRate, &p.StartDate, &p.EndDate, &p.Status)
	return p, err
}

func (r *ProjectRepository) Get(ctx context.Context, id int64) (billing.Project, error) {
	r.logger.Debug("Loading project", zap.Int64("project_id", id))
	p, err := scanProject(r.db.QueryRow(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return billing.Project{}, fmt.Errorf("project %d: %w", id, ErrNotFound)
	}
	if err != nil {
		r.logger.Error("Failed to load project", zap.Int64("project_id", id), zap.Error(err))
		return billing.Project{}, err
	}
	return p, nil
}

// ListActive returns the projects shown on the billing dashboard.
func (r *ProjectRepository) ListActive(ctx context.Context) ([]billing.Project, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE status = 'active' ORDER BY id`)
	if err != nil {
		r.logger.Error("Failed to query active projects", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	projects := []billing.Project{}
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			r.logger.Error("Failed to scan project row", zap.Error(err))
			return nil, err
		}
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	r.logger.Debug("Active projects listed", zap.Int("count", len(projects)))
	return projects, nil
}
