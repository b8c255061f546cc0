package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"billingengine/internal/billing"
)

type InvoiceRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewInvoiceRepository(db *pgxpool.Pool, logger *zap.Logger) *InvoiceRepository {
	return &InvoiceRepository{db: db, logger: logger}
}

const invoiceColumns = `id, number, contact_id, project_id, status, issue_date, due_date, items,
	paid_cents, subtotal_cents, tax_cents, total_cents`

func scanInvoice(row pgx.Row) (billing.Invoice, error) {
	var (
		inv                        billing.Invoice
		status                     string
		paid, subtotal, tax, total int64
	)
	err := row.Scan(&inv.ID, &inv.Number, &inv.ContactID, &inv.ProjectID, &status, &inv.IssueDate, &inv.DueDate,
		&inv.Items, &paid, &subtotal, &tax, &total)
	inv.Status = billing.InvoiceStatus(status)
	inv.PaidAmount = billing.Money(paid)
	inv.Subtotal, inv.TaxAmount, inv.Total = billing.Money(subtotal), billing.Money(tax), billing.Money(total)
	return inv, err
}

func (r *InvoiceRepository) Get(ctx context.Context, id int64) (billing.Invoice, error) {
	inv, err := scanInvoice(r.db.QueryRow(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE id = $1`, id))
	if err != nil {
		err = notFound(err, "invoice", id)
		r.logger.Debug("Failed to load invoice", zap.Int64("invoice_id", id), zap.Error(err))
		return billing.Invoice{}, err
	}
	return inv, nil
}

func (r *InvoiceRepository) ListByProject(ctx context.Context, projectID int64) ([]billing.Invoice, error) {
	return r.list(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE project_id = $1 ORDER BY issue_date DESC, id DESC`, projectID)
}

func (r *InvoiceRepository) ListAll(ctx context.Context) ([]billing.Invoice, error) {
	return r.list(ctx, `SELECT `+invoiceColumns+` FROM invoices ORDER BY id`)
}

// ListOverdueCandidates returns SENT invoices whose due date is before today.
func (r *InvoiceRepository) ListOverdueCandidates(ctx context.Context, today time.Time) ([]billing.Invoice, error) {
	y, m, d := today.Date()
	return r.list(ctx, `SELECT `+invoiceColumns+` FROM invoices
		WHERE status = 'SENT' AND due_date IS NOT NULL AND due_date < $1
		ORDER BY due_date, id`, time.Date(y, m, d, 0, 0, 0, 0, time.UTC))
}

func (r *InvoiceRepository) list(ctx context.Context, query string, args ...interface{}) ([]billing.Invoice, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to query invoices", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	invoices := []billing.Invoice{}
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			r.logger.Error("Failed to scan invoice row", zap.Error(err))
			return nil, err
		}
		invoices = append(invoices, inv)
	}
	return invoices, rows.Err()
}

func (r *InvoiceRepository) UpdateStatus(ctx context.Context, d billing.Decision, msgs []Message) error {
	if err := applyStatus(ctx, r.db, "invoices", d, "", msgs); err != nil {
		r.logger.Warn("Invoice status update not applied",
			zap.Int64("invoice_id", d.DocumentID),
			zap.String("from", d.From),
			zap.String("to", d.To),
			zap.Error(err),
		)
		return err
	}
	r.logger.Info("Invoice status updated",
		zap.Int64("invoice_id", d.DocumentID),
		zap.String("from", d.From),
		zap.String("to", d.To),
		zap.Int("events", len(msgs)),
	)
	return nil
}

func (r *InvoiceRepository) ReplaceItems(ctx context.Context, id int64, items []billing.LineItem, totals billing.Totals) error {
	if err := replaceItems(ctx, r.db, "invoices", id, items, totals); err != nil {
		r.logger.Warn("Invoice items not replaced", zap.Int64("invoice_id", id), zap.Error(err))
		return err
	}
	r.logger.Info("Invoice items replaced",
		zap.Int64("invoice_id", id),
		zap.Int("items", len(items)),
		zap.String("total", totals.Total.String()),
	)
	return nil
}
