package billing

import "time"

// DocumentSummary is the dashboard aggregate over quotes and invoices.
type DocumentSummary struct {
	QuotesByStatus   map[QuoteStatus]int   `json:"quotes_by_status"`
	InvoicesByStatus map[InvoiceStatus]int `json:"invoices_by_status"`
	QuotedTotal      Money                 `json:"quoted_total"`
	InvoicedTotal    Money                 `json:"invoiced_total"`
	Outstanding      Money                 `json:"outstanding"`
	Collected        Money                 `json:"collected"`
	Credit           Money                 `json:"credit"`
}

// SummarizeDocuments recomputes every document through Aggregate so the dashboard prints
// the same numbers as the detail and list views. Quoted total covers open quotes (DRAFT,
// SENT); expired, rejected and converted quotes are counted but not summed.
func SummarizeDocuments(quotes []Quote, invoices []Invoice, today time.Time, opts AggregateOptions) DocumentSummary {
	s := DocumentSummary{
		QuotesByStatus:   make(map[QuoteStatus]int),
		InvoicesByStatus: make(map[InvoiceStatus]int),
	}
	for _, q := range quotes {
		status := EffectiveQuoteStatus(q, today)
		s.QuotesByStatus[status]++
		if status == QuoteDraft || status == QuoteSent {
			s.QuotedTotal += AggregateQuote(q, opts).Total
		}
	}
	for _, inv := range invoices {
		status := EffectiveInvoiceStatus(inv, today)
		s.InvoicesByStatus[status]++
		if status == InvoiceDraft {
			continue
		}
		t := AggregateInvoice(inv, opts)
		s.InvoicedTotal += t.Total
		s.Collected += t.PaidAmount
		s.Credit += t.Credit
		if (status == InvoiceSent || status == InvoiceOverdue) && t.BalanceDue > 0 {
			s.Outstanding += t.BalanceDue
		}
	}
	return s
}
