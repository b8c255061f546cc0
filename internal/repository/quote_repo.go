package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"billingengine/internal/billing"
)

type QuoteRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewQuoteRepository(db *pgxpool.Pool, logger *zap.Logger) *QuoteRepository {
	return &QuoteRepository{db: db, logger: logger}
}

const quoteColumns = `id, number, contact_id, project_id, status, issue_date, expiry_date, items,
	subtotal_cents, tax_cents, total_cents, converted_to_invoice, invoice_id`

func scanQuote(row pgx.Row) (billing.Quote, error) {
	var (
		q                    billing.Quote
		status               string
		subtotal, tax, total int64
	)
	err := row.Scan(&q.ID, &q.Number, &q.ContactID, &q.ProjectID, &status, &q.IssueDate, &q.ExpiryDate,
		&q.Items, &subtotal, &tax, &total, &q.ConvertedToInvoice, &q.InvoiceID)
	q.Status = billing.QuoteStatus(status)
	q.Subtotal, q.TaxAmount, q.Total = billing.Money(subtotal), billing.Money(tax), billing.Money(total)
	return q, err
}

func (r *QuoteRepository) Get(ctx context.Context, id int64) (billing.Quote, error) {
	q, err := scanQuote(r.db.QueryRow(ctx, `SELECT `+quoteColumns+` FROM quotes WHERE id = $1`, id))
	if err != nil {
		err = notFound(err, "quote", id)
		r.logger.Debug("Failed to load quote", zap.Int64("quote_id", id), zap.Error(err))
		return billing.Quote{}, err
	}
	return q, nil
}

func (r *QuoteRepository) ListByProject(ctx context.Context, projectID int64) ([]billing.Quote, error) {
	return r.list(ctx, `SELECT `+quoteColumns+` FROM quotes WHERE project_id = $1 ORDER BY issue_date DESC, id DESC`, projectID)
}

// ListAll feeds the dashboard summary.
func (r *QuoteRepository) ListAll(ctx context.Context) ([]billing.Quote, error) {
	return r.list(ctx, `SELECT `+quoteColumns+` FROM quotes ORDER BY id`)
}

func (r *QuoteRepository) list(ctx context.Context, query string, args ...interface{}) ([]billing.Quote, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to query quotes", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	quotes := []billing.Quote{}
	for rows.Next() {
		q, err := scanQuote(rows)
		if err != nil {
			r.logger.Error("Failed to scan quote row", zap.Error(err))
			return nil, err
		}
		quotes = append(quotes, q)
	}
	return quotes, rows.Err()
}

// UpdateStatus applies d with a compare-and-swap on the current status. Moving to
// INVOICED also sets the conversion flag so every reader sees the same evidence.
func (r *QuoteRepository) UpdateStatus(ctx context.Context, d billing.Decision, msgs []Message) error {
	start := time.Now()
	err := applyStatus(ctx, r.db, "quotes", d,
		`, converted_to_invoice = converted_to_invoice OR $1::text = 'INVOICED'`, msgs)
	if err != nil {
		r.logger.Warn("Quote status update not applied",
			zap.Int64("quote_id", d.DocumentID),
			zap.String("from", d.From),
			zap.String("to", d.To),
			zap.Error(err),
		)
		return err
	}
	r.logger.Info("Quote status updated",
		zap.Int64("quote_id", d.DocumentID),
		zap.String("from", d.From),
		zap.String("to", d.To),
		zap.Int("events", len(msgs)),
		zap.Duration("took", time.Since(start)),
	)
	return nil
}

func (r *QuoteRepository) ReplaceItems(ctx context.Context, id int64, items []billing.LineItem, totals billing.Totals) error {
	if err := replaceItems(ctx, r.db, "quotes", id, items, totals); err != nil {
		r.logger.Warn("Quote items not replaced", zap.Int64("quote_id", id), zap.Error(err))
		return err
	}
	r.logger.Info("Quote items replaced",
		zap.Int64("quote_id", id),
		zap.Int("items", len(items)),
		zap.String("total", totals.Total.String()),
	)
	return nil
}
