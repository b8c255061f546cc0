package billing

import "time"

// ItemKind is the classification of a line item.
type ItemKind string

const (
	KindItem      ItemKind = "ITEM"
	KindHeader    ItemKind = "HEADER"
	KindTimesheet ItemKind = "TIMESHEET"
)

// DocumentKind distinguishes quotes from invoices in decisions and activity records.
type DocumentKind string

const (
	KindQuote   DocumentKind = "quote"
	KindInvoice DocumentKind = "invoice"
)

type QuoteStatus string

const (
	QuoteDraft    QuoteStatus = "DRAFT"
	QuoteSent     QuoteStatus = "SENT"
	QuoteAccepted QuoteStatus = "ACCEPTED"
	QuoteRejected QuoteStatus = "REJECTED"
	QuoteInvoiced QuoteStatus = "INVOICED"
	// QuoteExpired is derived on read and never stored.
	QuoteExpired QuoteStatus = "EXPIRED"
)

type InvoiceStatus string

const (
	InvoiceDraft   InvoiceStatus = "DRAFT"
	InvoiceSent    InvoiceStatus = "SENT"
	InvoicePaid    InvoiceStatus = "PAID"
	InvoiceOverdue InvoiceStatus = "OVERDUE"
)

// LineItem is one row of a document's items. Type is kept as the raw stored tag because
// older rows may not carry one; use a Classifier to read it.
type LineItem struct {
	Type        string  `json:"type,omitempty"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Quantity    float64 `json:"quantity"`
	Rate        float64 `json:"rate"`
	TaxRate     float64 `json:"tax_rate"`
	ItemID      *int64  `json:"item_id,omitempty"`
}

type Quote struct {
	ID                 int64       `json:"id"`
	Number             string      `json:"number"`
	ContactID          int64       `json:"contact_id"`
	ProjectID          *int64      `json:"project_id,omitempty"`
	Status             QuoteStatus `json:"status"`
	IssueDate          time.Time   `json:"issue_date"`
	ExpiryDate         *time.Time  `json:"expiry_date,omitempty"`
	Items              []LineItem  `json:"items"`
	Subtotal           Money       `json:"subtotal"`
	TaxAmount          Money       `json:"tax_amount"`
	Total              Money       `json:"total"`
	ConvertedToInvoice bool        `json:"converted_to_invoice"`
	InvoiceID          *int64      `json:"invoice_id,omitempty"`
}

// IsConverted treats the status, the flag and the invoice reference as equivalent evidence.
func (q Quote) IsConverted() bool {
	return q.Status == QuoteInvoiced || q.ConvertedToInvoice || q.InvoiceID != nil
}

type Invoice struct {
	ID         int64         `json:"id"`
	Number     string        `json:"number"`
	ContactID  int64         `json:"contact_id"`
	ProjectID  *int64        `json:"project_id,omitempty"`
	Status     InvoiceStatus `json:"status"`
	IssueDate  time.Time     `json:"issue_date"`
	DueDate    *time.Time    `json:"due_date,omitempty"`
	Items      []LineItem    `json:"items"`
	PaidAmount Money         `json:"paid_amount"`
	Subtotal   Money         `json:"subtotal"`
	TaxAmount  Money         `json:"tax_amount"`
	Total      Money         `json:"total"`
}

type Timesheet struct {
	ID          int64     `json:"id"`
	ProjectID   int64     `json:"project_id"`
	Date        time.Time `json:"date"`
	Hours       float64   `json:"hours"`
	Billable    bool      `json:"billable"`
	Description string    `json:"description,omitempty"`
}

type Project struct {
	ID         int64      `json:"id"`
	Name       string     `json:"name"`
	HourlyRate float64    `json:"hourly_rate"`
	StartDate  *time.Time `json:"start_date,omitempty"`
	EndDate    *time.Time `json:"end_date,omitempty"`
	Status     string     `json:"status"`
}

// dateOnly drops the time of day, keeping the calendar day as seen in t's location.
func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
