package billing

import (
	"testing"
	"time"
)

func TestSummarizeDocuments(t *testing.T) {
	today := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)
	item := []LineItem{{Name: "x", Quantity: 1, Rate: 100, TaxRate: 10}}

	quotes := []Quote{
		{Status: QuoteDraft, Items: item},
		{Status: QuoteSent, Items: item},
		{Status: QuoteSent, ExpiryDate: datep(2024, 6, 1), Items: item},
		{Status: QuoteSent, ConvertedToInvoice: true, Items: item},
	}
	invoices := []Invoice{
		{Status: InvoiceDraft, Items: item},
		{Status: InvoiceSent, Items: item, PaidAmount: 1000},
		{Status: InvoiceOverdue, Items: item},
		{Status: InvoicePaid, Items: item, PaidAmount: 12000},
		// stored totals are ignored in favour of a fresh aggregate
		{Status: InvoiceSent, Items: item, PaidAmount: 11000, Total: 99999},
	}

	s := SummarizeDocuments(quotes, invoices, today, AggregateOptions{})

	if s.QuotesByStatus[QuoteExpired] != 1 || s.QuotesByStatus[QuoteInvoiced] != 1 || s.QuotesByStatus[QuoteSent] != 1 {
		t.Fatalf("quotes by status = %v", s.QuotesByStatus)
	}
	if s.QuotedTotal != 22000 {
		t.Fatalf("quoted total = %s, want 220.00", s.QuotedTotal)
	}
	if s.InvoicesByStatus[InvoiceSent] != 2 || s.InvoicesByStatus[InvoiceDraft] != 1 {
		t.Fatalf("invoices by status = %v", s.InvoicesByStatus)
	}
	if s.InvoicedTotal != 44000 {
		t.Fatalf("invoiced total = %s, want 440.00", s.InvoicedTotal)
	}
	// 100.00 (sent) + 110.00 (overdue)
	if s.Outstanding != 21000 {
		t.Fatalf("outstanding = %s, want 210.00", s.Outstanding)
	}
	if s.Collected != 24000 {
		t.Fatalf("collected = %s, want 240.00", s.Collected)
	}
	if s.Credit != 1000 {
		t.Fatalf("credit = %s, want 10.00", s.Credit)
	}
}
