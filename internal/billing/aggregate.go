package billing

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// LineAmount is the display value of one line. HEADER lines carry zero amounts.
type LineAmount struct {
	Index  int      `json:"index"`
	Kind   ItemKind `json:"kind"`
	Amount Money    `json:"amount"`
	Tax    Money    `json:"tax"`
}

// Totals is the flat, serializable output consumed by the renderer and the views.
type Totals struct {
	Lines        []LineAmount `json:"lines"`
	Subtotal     Money        `json:"subtotal"`
	TaxAmount    Money        `json:"tax_amount"`
	Total        Money        `json:"total"`
	PaidAmount   Money        `json:"paid_amount"`
	BalanceDue   Money        `json:"balance_due"`
	Credit       Money        `json:"credit"`
	TotalInWords string       `json:"total_in_words"`
}

type AggregateOptions struct {
	Classifier Classifier
	Words      WordsOptions
}

func (o AggregateOptions) classifier() Classifier {
	if o.Classifier == nil {
		return DefaultClassifier
	}
	return o.Classifier
}

// Aggregate computes document totals. Input is assumed to have passed ValidateItems;
// negative values are summed as given. Each line is rounded before summing so that the
// subtotal always equals the sum of the printed line amounts.
func Aggregate(items []LineItem, paid Money, opts AggregateOptions) Totals {
	classifier := opts.classifier()
	t := Totals{
		Lines:      make([]LineAmount, 0, len(items)),
		PaidAmount: paid,
	}
	for i, item := range items {
		kind := classifier.Classify(item)
		line := LineAmount{Index: i, Kind: kind}
		if IsMonetary(kind) {
			line.Amount, line.Tax = lineAmount(item.Quantity, item.Rate, item.TaxRate)
			t.Subtotal += line.Amount
			t.TaxAmount += line.Tax
		}
		t.Lines = append(t.Lines, line)
	}
	t.Total = t.Subtotal + t.TaxAmount
	t.BalanceDue = t.Total - paid
	if t.BalanceDue < 0 {
		t.Credit = -t.BalanceDue
	}
	t.TotalInWords = AmountInWords(t.Total, opts.Words)
	return t
}

// AggregateQuote is Aggregate with no payments.
func AggregateQuote(q Quote, opts AggregateOptions) Totals {
	return Aggregate(q.Items, 0, opts)
}

func AggregateInvoice(inv Invoice, opts AggregateOptions) Totals {
	return Aggregate(inv.Items, inv.PaidAmount, opts)
}

// ValidateItems is the caller-side precondition check for Aggregate.
func ValidateItems(items []LineItem, classifier Classifier) error {
	if classifier == nil {
		classifier = DefaultClassifier
	}
	for i, item := range items {
		field := fmt.Sprintf("items[%d]", i)
		kind := classifier.Classify(item)
		if item.Type != "" {
			if _, ok := parseKind(item.Type); !ok {
				return &ValidationError{Field: field + ".type", Message: fmt.Sprintf("unknown type %q", item.Type)}
			}
		}
		if item.Name == "" && kind != KindHeader {
			return &ValidationError{Field: field + ".name", Message: "is required"}
		}
		if !IsMonetary(kind) {
			continue
		}
		if !isFinite(item.Quantity) || item.Quantity < 0 {
			return &ValidationError{Field: field + ".quantity", Message: "must be a non-negative number"}
		}
		if !isFinite(item.Rate) || item.Rate < 0 {
			return &ValidationError{Field: field + ".rate", Message: "must be a non-negative number"}
		}
		if !isFinite(item.TaxRate) || item.TaxRate < 0 || item.TaxRate > 100 {
			return &ValidationError{Field: field + ".tax_rate", Message: "must be between 0 and 100"}
		}
		if decimal.NewFromFloat(item.Quantity).Mul(decimal.NewFromFloat(item.Rate)).GreaterThan(maxLineAmount) {
			return &ValidationError{Field: field, Message: fmt.Sprintf("quantity times rate exceeds %d", MaxLineAmount)}
		}
	}
	return nil
}

// Drift describes persisted totals that disagree with recomputed ones.
type Drift struct {
	Field    string
	Stored   Money
	Computed Money
}

// VerifyStoredTotals compares stored header totals with a fresh aggregate.
func VerifyStoredTotals(subtotal, taxAmount, total Money, computed Totals) []Drift {
	var drift []Drift
	if subtotal != computed.Subtotal {
		drift = append(drift, Drift{Field: "subtotal", Stored: subtotal, Computed: computed.Subtotal})
	}
	if taxAmount != computed.TaxAmount {
		drift = append(drift, Drift{Field: "tax_amount", Stored: taxAmount, Computed: computed.TaxAmount})
	}
	if total != computed.Total {
		drift = append(drift, Drift{Field: "total", Stored: total, Computed: computed.Total})
	}
	return drift
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
