package billing

import "time"

// EffectiveQuoteStatus is the status shown to users. It depends on today and is never
// written back: conversion evidence wins, then a SENT quote past its expiry date reads
// as EXPIRED. Dates are compared by calendar day.
func EffectiveQuoteStatus(q Quote, today time.Time) QuoteStatus {
	if q.IsConverted() {
		return QuoteInvoiced
	}
	if q.Status == QuoteSent && q.ExpiryDate != nil && dateOnly(*q.ExpiryDate).Before(dateOnly(today)) {
		return QuoteExpired
	}
	return q.Status
}

// EffectiveInvoiceStatus returns the stored status. OVERDUE is stored by the scheduled
// overdue run, not derived here.
func EffectiveInvoiceStatus(inv Invoice, _ time.Time) InvoiceStatus {
	return inv.Status
}

// IsOverdueCandidate reports whether the overdue run should store OVERDUE for inv.
func IsOverdueCandidate(inv Invoice, today time.Time) bool {
	return inv.Status == InvoiceSent && inv.DueDate != nil && dateOnly(*inv.DueDate).Before(dateOnly(today))
}
