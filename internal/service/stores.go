package service

import (
	"context"
	"time"

	"billingengine/internal/billing"
	"billingengine/internal/repository"
)

// The interfaces below are satisfied by the pgx repositories; tests use fakes.

type ProjectStore interface {
	Get(ctx context.Context, id int64) (billing.Project, error)
	ListActive(ctx context.Context) ([]billing.Project, error)
}

type TimesheetStore interface {
	ListByProject(ctx context.Context, projectID int64) ([]billing.Timesheet, error)
}

type QuoteStore interface {
	Get(ctx context.Context, id int64) (billing.Quote, error)
	ListByProject(ctx context.Context, projectID int64) ([]billing.Quote, error)
	ListAll(ctx context.Context) ([]billing.Quote, error)
	UpdateStatus(ctx context.Context, d billing.Decision, msgs []repository.Message) error
	ReplaceItems(ctx context.Context, id int64, items []billing.LineItem, totals billing.Totals) error
}

type InvoiceStore interface {
	Get(ctx context.Context, id int64) (billing.Invoice, error)
	ListByProject(ctx context.Context, projectID int64) ([]billing.Invoice, error)
	ListAll(ctx context.Context) ([]billing.Invoice, error)
	ListOverdueCandidates(ctx context.Context, today time.Time) ([]billing.Invoice, error)
	UpdateStatus(ctx context.Context, d billing.Decision, msgs []repository.Message) error
	ReplaceItems(ctx context.Context, id int64, items []billing.LineItem, totals billing.Totals) error
}

var (
	_ ProjectStore   = (*repository.ProjectRepository)(nil)
	_ TimesheetStore = (*repository.TimesheetRepository)(nil)
	_ QuoteStore     = (*repository.QuoteRepository)(nil)
	_ InvoiceStore   = (*repository.InvoiceRepository)(nil)
)
