package billing

import "fmt"

// Decision is an allowed transition. The validator never performs the write; the caller
// applies it with a compare-and-swap on From.
type Decision struct {
	Kind       DocumentKind `json:"document_kind"`
	DocumentID int64        `json:"document_id"`
	From       string       `json:"from_status"`
	To         string       `json:"to_status"`
}

var quoteTransitions = map[QuoteStatus][]QuoteStatus{
	QuoteDraft: {QuoteSent, QuoteRejected},
	QuoteSent:  {QuoteAccepted, QuoteRejected, QuoteInvoiced},
}

var invoiceTransitions = map[InvoiceStatus][]InvoiceStatus{
	InvoiceDraft:   {InvoiceSent},
	InvoiceSent:    {InvoicePaid},
	InvoiceOverdue: {InvoicePaid},
}

func validQuoteStatus(s QuoteStatus) bool {
	switch s {
	case QuoteDraft, QuoteSent, QuoteAccepted, QuoteRejected, QuoteInvoiced:
		return true
	}
	return false
}

func validInvoiceStatus(s InvoiceStatus) bool {
	switch s {
	case InvoiceDraft, InvoiceSent, InvoicePaid, InvoiceOverdue:
		return true
	}
	return false
}

// lifecycleQuoteStatus is the status transitions are validated against: conversion
// evidence counts as INVOICED, expiry does not.
func lifecycleQuoteStatus(q Quote) QuoteStatus {
	if q.IsConverted() {
		return QuoteInvoiced
	}
	return q.Status
}

func ValidateQuoteTransition(q Quote, to QuoteStatus) (Decision, error) {
	if to == QuoteExpired {
		return Decision{}, &ValidationError{Field: "status", Message: "EXPIRED is derived and cannot be stored"}
	}
	if !validQuoteStatus(to) {
		return Decision{}, &ValidationError{Field: "status", Message: fmt.Sprintf("unknown quote status %q", to)}
	}
	from := lifecycleQuoteStatus(q)
	next, ok := quoteTransitions[from]
	if !ok {
		return Decision{}, &DocumentLockedError{Kind: KindQuote, ID: q.ID, Status: string(from), Op: "change status"}
	}
	for _, allowed := range next {
		if allowed == to {
			return Decision{Kind: KindQuote, DocumentID: q.ID, From: string(from), To: string(to)}, nil
		}
	}
	return Decision{}, &TransitionError{Kind: KindQuote, ID: q.ID, From: string(from), To: string(to)}
}

func ValidateInvoiceTransition(inv Invoice, to InvoiceStatus) (Decision, error) {
	if to == InvoiceOverdue {
		return Decision{}, &ValidationError{Field: "status", Message: "OVERDUE is set by the overdue run, not by a manual transition"}
	}
	if !validInvoiceStatus(to) {
		return Decision{}, &ValidationError{Field: "status", Message: fmt.Sprintf("unknown invoice status %q", to)}
	}
	next, ok := invoiceTransitions[inv.Status]
	if !ok {
		return Decision{}, &DocumentLockedError{Kind: KindInvoice, ID: inv.ID, Status: string(inv.Status), Op: "change status"}
	}
	for _, allowed := range next {
		if allowed == to {
			return Decision{Kind: KindInvoice, DocumentID: inv.ID, From: string(inv.Status), To: string(to)}, nil
		}
	}
	return Decision{}, &TransitionError{Kind: KindInvoice, ID: inv.ID, From: string(inv.Status), To: string(to)}
}

// OverdueDecision is the transition the overdue run applies. It is not reachable through
// ValidateInvoiceTransition.
func OverdueDecision(inv Invoice) (Decision, error) {
	if inv.Status != InvoiceSent {
		return Decision{}, &TransitionError{Kind: KindInvoice, ID: inv.ID, From: string(inv.Status), To: string(InvoiceOverdue)}
	}
	return Decision{Kind: KindInvoice, DocumentID: inv.ID, From: string(InvoiceSent), To: string(InvoiceOverdue)}, nil
}

// CheckQuoteEditable allows full field mutation only in DRAFT.
func CheckQuoteEditable(q Quote) error {
	if s := lifecycleQuoteStatus(q); s != QuoteDraft {
		return &DocumentLockedError{Kind: KindQuote, ID: q.ID, Status: string(s), Op: "edit"}
	}
	return nil
}

func CheckInvoiceEditable(inv Invoice) error {
	if inv.Status != InvoiceDraft {
		return &DocumentLockedError{Kind: KindInvoice, ID: inv.ID, Status: string(inv.Status), Op: "edit"}
	}
	return nil
}

// CheckQuoteDeletable refuses converted quotes; the resulting invoice still points at them.
func CheckQuoteDeletable(q Quote) error {
	if q.IsConverted() {
		return &DocumentLockedError{Kind: KindQuote, ID: q.ID, Status: string(QuoteInvoiced), Op: "delete"}
	}
	return nil
}

func CheckInvoiceDeletable(inv Invoice) error {
	if inv.Status != InvoiceDraft {
		return &DocumentLockedError{Kind: KindInvoice, ID: inv.ID, Status: string(inv.Status), Op: "delete"}
	}
	return nil
}
