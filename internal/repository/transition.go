package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"billingengine/internal/billing"
	"billingengine/pkg/outbox"
)

// Message is an event written to the outbox in the same transaction as the status change.
type Message struct {
	RoutingKey string
	Payload    interface{}
}

// applyStatus performs the compare-and-swap status write for d and stores msgs. extraSet
// is appended to the SET clause and may only reference the new status as $1.
func applyStatus(ctx context.Context, db *pgxpool.Pool, table string, d billing.Decision, extraSet string, msgs []Message) error {
	tx, err := db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := fmt.Sprintf(`UPDATE %s SET status = $1, updated_at = NOW()%s WHERE id = $2 AND status = $3`, table, extraSet)
	tag, err := tx.Exec(ctx, query, d.To, d.DocumentID, d.From)
	if err != nil {
		return fmt.Errorf("update %s status: %w", table, err)
	}
	if tag.RowsAffected() == 0 {
		return missingOrConflict(ctx, tx, table, d.DocumentID)
	}

	id := d.DocumentID
	for _, m := range msgs {
		if err := outbox.InsertEventInTx(ctx, tx, string(d.Kind), &id, m.RoutingKey, m.Payload); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

// replaceItems writes items and their recomputed totals while the document is still DRAFT.
func replaceItems(ctx context.Context, db *pgxpool.Pool, table string, id int64, items []billing.LineItem, t billing.Totals) error {
	raw, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("marshal items: %w", err)
	}

	tx, err := db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := fmt.Sprintf(`
		UPDATE %s
		SET items = $1, subtotal_cents = $2, tax_cents = $3, total_cents = $4, updated_at = NOW()
		WHERE id = $5 AND status = 'DRAFT'`, table)
	tag, err := tx.Exec(ctx, query, raw, int64(t.Subtotal), int64(t.TaxAmount), int64(t.Total), id)
	if err != nil {
		return fmt.Errorf("update %s items: %w", table, err)
	}
	if tag.RowsAffected() == 0 {
		return missingOrConflict(ctx, tx, table, id)
	}
	return tx.Commit(ctx)
}

func missingOrConflict(ctx context.Context, tx pgx.Tx, table string, id int64) error {
	var exists bool
	if err := tx.QueryRow(ctx, fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM %s WHERE id = $1)`, table), id).Scan(&exists); err != nil {
		return fmt.Errorf("check %s %d: %w", table, id, err)
	}
	if !exists {
		return fmt.Errorf("%s %d: %w", table, id, ErrNotFound)
	}
	return fmt.Errorf("%s %d: %w", table, id, ErrStatusConflict)
}

func notFound(err error, what string, id int64) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s %d: %w", what, id, ErrNotFound)
	}
	return err
}
