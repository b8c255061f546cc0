package events

import (
	"time"

	"billingengine/internal/billing"
)

// Routing keys on the billing exchange.
const (
	DocumentTransitioned = "document.transitioned"
	QuoteSent            = "quote.sent"
	InvoiceSent          = "invoice.sent"
	InvoiceOverdue       = "invoice.overdue"
)

// ActivityLogQueue is the durable queue read by the activity log writer.
const ActivityLogQueue = "billing.activity_log.q"

// DocumentTransitionedPayload is the activity record plus the trace id of the request
// that applied it.
type DocumentTransitionedPayload struct {
	billing.ActivityRecord
	TraceID string `json:"trace_id,omitempty"`
}

// DocumentSentPayload triggers the external email sender for quote.sent and invoice.sent.
type DocumentSentPayload struct {
	DocumentKind billing.DocumentKind `json:"document_kind"`
	DocumentID   int64                `json:"document_id"`
	Number       string               `json:"number"`
	ContactID    int64                `json:"contact_id"`
	Total        billing.Money        `json:"total"`
	ActorID      string               `json:"actor_id"`
	TraceID      string               `json:"trace_id,omitempty"`
}

type InvoiceOverduePayload struct {
	InvoiceID  int64         `json:"invoice_id"`
	Number     string        `json:"number"`
	DueDate    *time.Time    `json:"due_date,omitempty"`
	BalanceDue billing.Money `json:"balance_due"`
	TraceID    string        `json:"trace_id,omitempty"`
}

// SentRoutingKey returns the notification key for a DRAFT -> SENT transition.
func SentRoutingKey(kind billing.DocumentKind) string {
	if kind == billing.KindInvoice {
		return InvoiceSent
	}
	return QuoteSent
}
