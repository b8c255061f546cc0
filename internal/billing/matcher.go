package billing

import (
	"time"

	"github.com/shopspring/decimal"
)

// Unbilled is the reconciliation of logged hours against billed timesheet lines.
type Unbilled struct {
	BillableHours  float64 `json:"billable_hours"`
	BilledHours    float64 `json:"billed_hours"`
	UnbilledHours  float64 `json:"unbilled_hours"`
	UnbilledAmount Money   `json:"unbilled_amount"`
}

// ProjectBilling is the per-project dashboard row.
type ProjectBilling struct {
	ProjectID int64 `json:"project_id"`
	Unbilled
	Progress float64 `json:"progress"`
}

// ComputeUnbilled reconciles a project's timesheets against the TIMESHEET lines of its
// documents. Every invoice counts; quotes count only while not converted, since a converted
// quote's hours reappear on the resulting invoice. Documents are rescanned on every call.
func ComputeUnbilled(project Project, timesheets []Timesheet, quotes []Quote, invoices []Invoice, classifier Classifier) Unbilled {
	if classifier == nil {
		classifier = DefaultClassifier
	}

	billable := decimal.Zero
	for _, ts := range timesheets {
		if ts.Billable {
			billable = billable.Add(decimal.NewFromFloat(ts.Hours))
		}
	}

	billed := decimal.Zero
	for _, q := range quotes {
		if q.IsConverted() {
			continue
		}
		billed = billed.Add(timesheetQuantity(q.Items, classifier))
	}
	for _, inv := range invoices {
		billed = billed.Add(timesheetQuantity(inv.Items, classifier))
	}

	unbilled := billable.Sub(billed)
	if unbilled.IsNegative() {
		unbilled = decimal.Zero
	}

	return Unbilled{
		BillableHours:  billable.InexactFloat64(),
		BilledHours:    billed.InexactFloat64(),
		UnbilledHours:  unbilled.InexactFloat64(),
		UnbilledAmount: MoneyFromDecimal(unbilled.Mul(decimal.NewFromFloat(project.HourlyRate))),
	}
}

func timesheetQuantity(items []LineItem, classifier Classifier) decimal.Decimal {
	sum := decimal.Zero
	for _, item := range items {
		if classifier.Classify(item) == KindTimesheet {
			sum = sum.Add(decimal.NewFromFloat(item.Quantity))
		}
	}
	return sum
}

// ReconcileProject combines ComputeUnbilled and Progress.
func ReconcileProject(project Project, timesheets []Timesheet, quotes []Quote, invoices []Invoice, classifier Classifier, today time.Time) ProjectBilling {
	u := ComputeUnbilled(project, timesheets, quotes, invoices, classifier)
	return ProjectBilling{
		ProjectID: project.ID,
		Unbilled:  u,
		Progress:  Progress(project, u.BillableHours, u.BilledHours, today),
	}
}

// ZeroProjectBilling is substituted for a project whose inputs could not be loaded.
func ZeroProjectBilling(projectID int64) ProjectBilling {
	return ProjectBilling{ProjectID: projectID}
}
