package billing

import (
	"errors"
	"testing"
	"time"
)

func TestValidateQuoteTransition(t *testing.T) {
	tests := []struct {
		name    string
		quote   Quote
		to      QuoteStatus
		wantErr error
	}{
		{"draft to sent", Quote{Status: QuoteDraft}, QuoteSent, nil},
		{"draft to rejected", Quote{Status: QuoteDraft}, QuoteRejected, nil},
		{"sent to accepted", Quote{Status: QuoteSent}, QuoteAccepted, nil},
		{"sent to rejected", Quote{Status: QuoteSent}, QuoteRejected, nil},
		{"sent to invoiced", Quote{Status: QuoteSent}, QuoteInvoiced, nil},
		{"draft to accepted", Quote{Status: QuoteDraft}, QuoteAccepted, ErrInvalidTransition},
		{"sent to draft", Quote{Status: QuoteSent}, QuoteDraft, ErrInvalidTransition},
		{"accepted is terminal", Quote{Status: QuoteAccepted}, QuoteInvoiced, ErrDocumentLocked},
		{"rejected is terminal", Quote{Status: QuoteRejected}, QuoteSent, ErrDocumentLocked},
		{"converted via flag", Quote{Status: QuoteSent, ConvertedToInvoice: true}, QuoteAccepted, ErrDocumentLocked},
		{"expired is derived", Quote{Status: QuoteSent}, QuoteExpired, ErrValidation},
		{"unknown target", Quote{Status: QuoteDraft}, "ARCHIVED", ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := ValidateQuoteTransition(tt.quote, tt.to)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if d.To != string(tt.to) || d.From != string(tt.quote.Status) || d.Kind != KindQuote {
					t.Fatalf("decision = %+v", d)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestSentQuotePastExpiryCanStillBeAccepted(t *testing.T) {
	expiry := time.Now().AddDate(0, 0, -3)
	if _, err := ValidateQuoteTransition(Quote{Status: QuoteSent, ExpiryDate: &expiry}, QuoteAccepted); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateInvoiceTransition(t *testing.T) {
	tests := []struct {
		name    string
		from    InvoiceStatus
		to      InvoiceStatus
		wantErr error
	}{
		{"draft to sent", InvoiceDraft, InvoiceSent, nil},
		{"sent to paid", InvoiceSent, InvoicePaid, nil},
		{"overdue to paid", InvoiceOverdue, InvoicePaid, nil},
		{"draft to paid", InvoiceDraft, InvoicePaid, ErrInvalidTransition},
		{"paid is terminal", InvoicePaid, InvoiceSent, ErrDocumentLocked},
		{"overdue is not a manual target", InvoiceSent, InvoiceOverdue, ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ValidateInvoiceTransition(Invoice{ID: 1, Status: tt.from}, tt.to)
			if tt.wantErr == nil && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestOverdueDecision(t *testing.T) {
	d, err := OverdueDecision(Invoice{ID: 4, Status: InvoiceSent})
	if err != nil || d.To != string(InvoiceOverdue) {
		t.Fatalf("d=%+v err=%v", d, err)
	}
	if _, err := OverdueDecision(Invoice{ID: 4, Status: InvoicePaid}); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("err = %v", err)
	}
}

func TestEditAcceptedQuoteIsLocked(t *testing.T) {
	err := CheckQuoteEditable(Quote{ID: 9, Status: QuoteAccepted})
	if !errors.Is(err, ErrDocumentLocked) {
		t.Fatalf("err = %v, want DocumentLocked", err)
	}
	var locked *DocumentLockedError
	if !errors.As(err, &locked) || locked.Status != string(QuoteAccepted) || locked.ID != 9 {
		t.Fatalf("locked = %+v", locked)
	}
	if err := CheckQuoteEditable(Quote{Status: QuoteDraft}); err != nil {
		t.Fatalf("draft should be editable: %v", err)
	}
	if err := CheckQuoteEditable(Quote{Status: QuoteDraft, InvoiceID: int64p(1)}); err == nil {
		t.Fatal("converted draft should be locked")
	}
}

func TestInvoiceEditAndDelete(t *testing.T) {
	if err := CheckInvoiceEditable(Invoice{Status: InvoiceDraft}); err != nil {
		t.Fatal(err)
	}
	if err := CheckInvoiceEditable(Invoice{Status: InvoiceSent}); !errors.Is(err, ErrDocumentLocked) {
		t.Fatalf("err = %v", err)
	}
	if err := CheckInvoiceDeletable(Invoice{Status: InvoiceOverdue}); !errors.Is(err, ErrDocumentLocked) {
		t.Fatalf("err = %v", err)
	}
	if err := CheckQuoteDeletable(Quote{Status: QuoteRejected}); err != nil {
		t.Fatal(err)
	}
	if err := CheckQuoteDeletable(Quote{Status: QuoteSent, ConvertedToInvoice: true}); !errors.Is(err, ErrDocumentLocked) {
		t.Fatalf("err = %v", err)
	}
}

func TestNewActivityRecord(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	d := Decision{Kind: KindQuote, DocumentID: 3, From: "DRAFT", To: "SENT"}
	rec := NewActivityRecord(d, "42", now)

	if rec.EventID == "" || rec.ActorID != "42" || rec.Action != "quote.mark_sent" {
		t.Fatalf("rec = %+v", rec)
	}
	if rec.FromStatus != "DRAFT" || rec.ToStatus != "SENT" || !rec.Timestamp.Equal(now) {
		t.Fatalf("rec = %+v", rec)
	}
	if !NotifiesRecipient(d) {
		t.Fatal("DRAFT -> SENT should notify")
	}
	if ActionName(Decision{Kind: KindQuote, To: "INVOICED"}) != "quote.convert" {
		t.Fatal("unexpected action name")
	}
}
