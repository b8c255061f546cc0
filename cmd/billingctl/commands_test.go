package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestWordsCommand(t *testing.T) {
	out, err := run(t, "words", "1234.50")
	if err != nil {
		t.Fatal(err)
	}
	if got := strings.TrimSpace(out); got != "One Thousand Two Hundred Thirty Four and Fifty Cents" {
		t.Fatalf("got %q", got)
	}

	out, err = run(t, "words", "150000", "--numbering", "indian")
	if err != nil {
		t.Fatal(err)
	}
	if got := strings.TrimSpace(out); got != "One Lakh Fifty Thousand" {
		t.Fatalf("got %q", got)
	}

	if _, err := run(t, "words", "abc"); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestTotalsCommandReportsDrift(t *testing.T) {
	path := writeTemp(t, "invoice.json", `{
		"id": 9,
		"status": "SENT",
		"issue_date": "2024-01-01T00:00:00Z",
		"paid_amount": 50,
		"total": 999,
		"items": [
			{"type": "HEADER", "name": "Phase 1"},
			{"name": "Work on 2024-01-02", "quantity": 2, "rate": 100, "tax_rate": 10}
		]
	}`)

	out, err := run(t, "totals", path, "--kind", "invoice", "--today", "2024-02-01")
	if err != nil {
		t.Fatal(err)
	}
	var got struct {
		Totals struct {
			Total      json.Number `json:"total"`
			BalanceDue json.Number `json:"balance_due"`
		} `json:"totals"`
		Drift []struct{ Field string } `json:"drift"`
	}
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("%v: %s", err, out)
	}
	if got.Totals.Total != "220.00" || got.Totals.BalanceDue != "170.00" {
		t.Fatalf("totals = %+v", got.Totals)
	}
	if len(got.Drift) == 0 {
		t.Fatal("expected drift against stored total 999")
	}
}

func TestTotalsCommandRejectsUnknownKind(t *testing.T) {
	path := writeTemp(t, "doc.json", `{"id": 1, "items": []}`)
	if _, err := run(t, "totals", path, "--kind", "receipt"); err == nil {
		t.Fatal("expected error")
	}
}

func TestReconcileCommand(t *testing.T) {
	path := writeTemp(t, "snapshot.json", `{
		"project": {"id": 3, "name": "Site", "hourly_rate": 80},
		"timesheets": [
			{"hours": 5, "billable": true},
			{"hours": 2, "billable": false}
		],
		"quotes": [
			{"id": 1, "status": "INVOICED", "items": [{"name": "Work on 2024-01-02", "quantity": 5, "rate": 80}]}
		],
		"invoices": [
			{"id": 2, "status": "SENT", "items": [{"type": "TIMESHEET", "name": "Timesheet", "quantity": 1.5, "rate": 80}]}
		]
	}`)

	out, err := run(t, "reconcile", path, "--today", "2024-03-01")
	if err != nil {
		t.Fatal(err)
	}
	var pb struct {
		BillableHours  float64     `json:"billable_hours"`
		BilledHours    float64     `json:"billed_hours"`
		UnbilledHours  float64     `json:"unbilled_hours"`
		UnbilledAmount json.Number `json:"unbilled_amount"`
	}
	if err := json.Unmarshal([]byte(out), &pb); err != nil {
		t.Fatalf("%v: %s", err, out)
	}
	if pb.BillableHours != 5 || pb.BilledHours != 1.5 || pb.UnbilledHours != 3.5 || pb.UnbilledAmount != "280.00" {
		t.Fatalf("pb = %+v", pb)
	}
}

func TestReconcileCommandAcceptsDateOnlyFields(t *testing.T) {
	path := writeTemp(t, "snapshot.json", `{
		"project": {"id": 4, "name": "Shop", "hourly_rate": 50, "start_date": "2024-01-01", "end_date": "2024-01-11"},
		"timesheets": [
			{"date": "2024-01-05", "hours": 2, "billable": true},
			{"date": "2024-01-06T09:00:00Z", "hours": 1, "billable": true}
		],
		"quotes": [],
		"invoices": [
			{"id": 1, "status": "SENT", "issue_date": "2024-01-02", "due_date": "2024-01-31", "items": []}
		]
	}`)

	out, err := run(t, "reconcile", path, "--today", "2024-01-06")
	if err != nil {
		t.Fatal(err)
	}
	var pb struct {
		BillableHours float64 `json:"billable_hours"`
		Progress      float64 `json:"progress"`
	}
	if err := json.Unmarshal([]byte(out), &pb); err != nil {
		t.Fatalf("%v: %s", err, out)
	}
	if pb.BillableHours != 3 || pb.Progress != 50 {
		t.Fatalf("pb = %+v", pb)
	}
}

func TestTotalsCommandAcceptsDateOnlyExpiry(t *testing.T) {
	path := writeTemp(t, "quote.json", `{
		"id": 5,
		"status": "SENT",
		"issue_date": "2024-01-02",
		"expiry_date": "2024-01-31",
		"items": [{"name": "Design", "quantity": 1, "rate": 100}]
	}`)

	out, err := run(t, "totals", path, "--kind", "quote", "--today", "2024-03-01")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, `"effective_status": "EXPIRED"`) {
		t.Fatalf("output = %s", out)
	}
}
