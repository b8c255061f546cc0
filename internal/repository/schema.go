package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"billingengine/pkg/outbox"
)

// Amounts are stored in minor units; items are stored as the jsonb array the documents
// were saved with.
const schema = `
CREATE TABLE IF NOT EXISTS projects (
    id           BIGSERIAL PRIMARY KEY,
    name         TEXT          NOT NULL,
    hourly_rate  NUMERIC(12,2) NOT NULL DEFAULT 0,
    start_date   DATE,
    end_date     DATE,
    status       TEXT          NOT NULL DEFAULT 'active',
    created_at   TIMESTAMPTZ   NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS timesheets (
    id           BIGSERIAL PRIMARY KEY,
    project_id   BIGINT        NOT NULL REFERENCES projects(id),
    date         DATE          NOT NULL,
    hours        NUMERIC(8,2)  NOT NULL CONSTRAINT timesheets_hours_check CHECK (hours > 0),
    billable     BOOLEAN       NOT NULL DEFAULT TRUE,
    description  TEXT          NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_timesheets_project ON timesheets (project_id);
-- tables created with the old hours >= 0 check get the stricter one for new rows
ALTER TABLE timesheets DROP CONSTRAINT IF EXISTS timesheets_hours_check;
ALTER TABLE timesheets ADD CONSTRAINT timesheets_hours_check CHECK (hours > 0) NOT VALID;

CREATE TABLE IF NOT EXISTS quotes (
    id                    BIGSERIAL PRIMARY KEY,
    number                TEXT        NOT NULL,
    contact_id            BIGINT      NOT NULL,
    project_id            BIGINT      REFERENCES projects(id),
    status                TEXT        NOT NULL DEFAULT 'DRAFT',
    issue_date            DATE        NOT NULL DEFAULT CURRENT_DATE,
    expiry_date           DATE,
    items                 JSONB       NOT NULL DEFAULT '[]',
    subtotal_cents        BIGINT      NOT NULL DEFAULT 0,
    tax_cents             BIGINT      NOT NULL DEFAULT 0,
    total_cents           BIGINT      NOT NULL DEFAULT 0,
    converted_to_invoice  BOOLEAN     NOT NULL DEFAULT FALSE,
    invoice_id            BIGINT,
    updated_at            TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_quotes_project ON quotes (project_id);

CREATE TABLE IF NOT EXISTS invoices (
    id              BIGSERIAL PRIMARY KEY,
    number          TEXT        NOT NULL,
    contact_id      BIGINT      NOT NULL,
    project_id      BIGINT      REFERENCES projects(id),
    status          TEXT        NOT NULL DEFAULT 'DRAFT',
    issue_date      DATE        NOT NULL DEFAULT CURRENT_DATE,
    due_date        DATE,
    items           JSONB       NOT NULL DEFAULT '[]',
    paid_cents      BIGINT      NOT NULL DEFAULT 0,
    subtotal_cents  BIGINT      NOT NULL DEFAULT 0,
    tax_cents       BIGINT      NOT NULL DEFAULT 0,
    total_cents     BIGINT      NOT NULL DEFAULT 0,
    updated_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_invoices_project ON invoices (project_id);
CREATE INDEX IF NOT EXISTS idx_invoices_sent_due ON invoices (due_date) WHERE status = 'SENT';

CREATE TABLE IF NOT EXISTS activity_log (
    id             BIGSERIAL PRIMARY KEY,
    event_id       UUID        NOT NULL UNIQUE,
    actor_id       TEXT        NOT NULL,
    action         TEXT        NOT NULL,
    document_kind  TEXT        NOT NULL,
    document_id    BIGINT      NOT NULL,
    from_status    TEXT        NOT NULL,
    to_status      TEXT        NOT NULL,
    occurred_at    TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_activity_document ON activity_log (document_kind, document_id);
`

// Migrate creates missing tables. It is idempotent.
func Migrate(ctx context.Context, db *pgxpool.Pool) error {
	if _, err := db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply billing schema: %w", err)
	}
	if _, err := db.Exec(ctx, outbox.Schema); err != nil {
		return fmt.Errorf("failed to apply outbox schema: %w", err)
	}
	return nil
}
