package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"billingengine/internal/billing"
	"billingengine/internal/repository"
	"billingengine/internal/service"
)

type fakeDocuments struct {
	err       error
	gotActor  string
	gotStatus string
	gotItems  []billing.LineItem
}

func (f *fakeDocuments) GetQuote(_ context.Context, id int64) (service.QuoteView, error) {
	return service.QuoteView{Quote: billing.Quote{ID: id}}, f.err
}

func (f *fakeDocuments) GetInvoice(_ context.Context, id int64) (service.InvoiceView, error) {
	return service.InvoiceView{Invoice: billing.Invoice{ID: id}}, f.err
}

func (f *fakeDocuments) ListProjectQuotes(context.Context, int64) ([]service.QuoteView, error) {
	return []service.QuoteView{{Quote: billing.Quote{ID: 1}}}, f.err
}

func (f *fakeDocuments) ListProjectInvoices(context.Context, int64) ([]service.InvoiceView, error) {
	return []service.InvoiceView{}, f.err
}

func (f *fakeDocuments) TransitionQuote(_ context.Context, actor string, id int64, to billing.QuoteStatus) (service.QuoteView, error) {
	f.gotActor, f.gotStatus = actor, string(to)
	return service.QuoteView{Quote: billing.Quote{ID: id, Status: to}}, f.err
}

func (f *fakeDocuments) TransitionInvoice(_ context.Context, actor string, id int64, to billing.InvoiceStatus) (service.InvoiceView, error) {
	f.gotActor, f.gotStatus = actor, string(to)
	return service.InvoiceView{Invoice: billing.Invoice{ID: id, Status: to}}, f.err
}

func (f *fakeDocuments) ReplaceQuoteItems(_ context.Context, id int64, items []billing.LineItem) (service.QuoteView, error) {
	f.gotItems = items
	return service.QuoteView{Quote: billing.Quote{ID: id, Items: items}}, f.err
}

func (f *fakeDocuments) ReplaceInvoiceItems(_ context.Context, id int64, items []billing.LineItem) (service.InvoiceView, error) {
	f.gotItems = items
	return service.InvoiceView{Invoice: billing.Invoice{ID: id, Items: items}}, f.err
}

type fakeBilling struct {
	report *service.DashboardReport
	err    error
}

func (f *fakeBilling) ProjectBilling(_ context.Context, id int64) (billing.ProjectBilling, error) {
	return billing.ProjectBilling{ProjectID: id}, f.err
}

func (f *fakeBilling) Dashboard(context.Context) (*service.DashboardReport, error) {
	return f.report, f.err
}

func newTestEngine(docs DocumentService, bill BillingService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	dh := NewDocumentHandler(docs, zap.NewNop())
	bh := NewBillingHandler(bill, zap.NewNop())
	r.GET("/quotes/:id", dh.GetQuote)
	r.GET("/projects/:id/quotes", dh.ListProjectQuotes)
	r.POST("/quotes/:id/status", dh.TransitionQuote)
	r.POST("/invoices/:id/status", dh.TransitionInvoice)
	r.PUT("/invoices/:id/items", dh.ReplaceInvoiceItems)
	r.GET("/projects/:id/billing", bh.ProjectBilling)
	r.GET("/dashboard/billing", bh.Dashboard)
	return r
}

func do(r http.Handler, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestTransitionPassesActorAndStatus(t *testing.T) {
	docs := &fakeDocuments{}
	r := newTestEngine(docs, &fakeBilling{})

	w := do(r, http.MethodPost, "/quotes/5/status", `{"status":"SENT"}`, map[string]string{ActorHeader: "user-9"})
	if w.Code != http.StatusOK {
		t.Fatalf("code = %d body = %s", w.Code, w.Body)
	}
	if docs.gotActor != "user-9" || docs.gotStatus != "SENT" {
		t.Fatalf("actor = %q status = %q", docs.gotActor, docs.gotStatus)
	}
}

func TestTransitionErrorMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"validation", &billing.ValidationError{Field: "actor_id", Message: "is required"}, http.StatusBadRequest},
		{"locked", &billing.DocumentLockedError{Kind: billing.KindInvoice, ID: 3, Status: "PAID", Op: "change status"}, http.StatusConflict},
		{"invalid transition", &billing.TransitionError{Kind: billing.KindInvoice, ID: 3, From: "DRAFT", To: "PAID"}, http.StatusUnprocessableEntity},
		{"conflict", fmt.Errorf("invoice 3: %w", repository.ErrStatusConflict), http.StatusConflict},
		{"not found", fmt.Errorf("invoice 3: %w", repository.ErrNotFound), http.StatusNotFound},
		{"internal", errors.New("connection reset"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := newTestEngine(&fakeDocuments{err: tc.err}, &fakeBilling{})
			w := do(r, http.MethodPost, "/invoices/3/status", `{"status":"PAID"}`, nil)
			if w.Code != tc.want {
				t.Fatalf("code = %d, want %d (%s)", w.Code, tc.want, w.Body)
			}
		})
	}
}

func TestValidationErrorCarriesField(t *testing.T) {
	r := newTestEngine(&fakeDocuments{err: &billing.ValidationError{Field: "items[0].rate", Message: "must be a non-negative number"}}, &fakeBilling{})
	w := do(r, http.MethodPut, "/invoices/3/items", `{"items":[{"name":"x","quantity":1,"rate":-1}]}`, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("code = %d", w.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["field"] != "items[0].rate" {
		t.Fatalf("body = %v", body)
	}
}

func TestInternalErrorIsNotLeaked(t *testing.T) {
	r := newTestEngine(&fakeDocuments{err: errors.New("pq: password authentication failed")}, &fakeBilling{})
	w := do(r, http.MethodGet, "/quotes/1", "", nil)
	if w.Code != http.StatusInternalServerError || strings.Contains(w.Body.String(), "password") {
		t.Fatalf("code = %d body = %s", w.Code, w.Body)
	}
}

func TestBadRequests(t *testing.T) {
	r := newTestEngine(&fakeDocuments{}, &fakeBilling{})

	if w := do(r, http.MethodGet, "/quotes/abc", "", nil); w.Code != http.StatusBadRequest {
		t.Fatalf("non-numeric id: code = %d", w.Code)
	}
	if w := do(r, http.MethodPost, "/quotes/1/status", `{}`, nil); w.Code != http.StatusBadRequest {
		t.Fatalf("missing status: code = %d", w.Code)
	}
	if w := do(r, http.MethodPut, "/invoices/1/items", `{"items":`, nil); w.Code != http.StatusBadRequest {
		t.Fatalf("broken json: code = %d", w.Code)
	}
}

func TestReplaceItemsDecodesMoneyFields(t *testing.T) {
	docs := &fakeDocuments{}
	r := newTestEngine(docs, &fakeBilling{})

	w := do(r, http.MethodPut, "/invoices/2/items", `{"items":[{"type":"HEADER","name":"Phase"},{"name":"Build","quantity":2.5,"rate":40,"tax_rate":18}]}`, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("code = %d body = %s", w.Code, w.Body)
	}
	if len(docs.gotItems) != 2 || docs.gotItems[1].Quantity != 2.5 || docs.gotItems[1].TaxRate != 18 {
		t.Fatalf("items = %+v", docs.gotItems)
	}
}

func TestDashboardReportsFailuresWith200(t *testing.T) {
	report := &service.DashboardReport{
		Projects: []billing.ProjectBilling{billing.ZeroProjectBilling(4)},
		Failures: []service.ProjectFailure{{ProjectID: 4, Reason: "timeout", Error: "context deadline exceeded"}},
	}
	r := newTestEngine(&fakeDocuments{}, &fakeBilling{report: report})

	w := do(r, http.MethodGet, "/dashboard/billing", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("code = %d", w.Code)
	}
	var got struct {
		Failures []service.ProjectFailure `json:"failures"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if len(got.Failures) != 1 || got.Failures[0].Reason != "timeout" {
		t.Fatalf("failures = %+v", got.Failures)
	}
}

func TestDashboardFatalError(t *testing.T) {
	r := newTestEngine(&fakeDocuments{}, &fakeBilling{err: errors.New("list active projects: timeout")})
	if w := do(r, http.MethodGet, "/dashboard/billing", "", nil); w.Code != http.StatusInternalServerError {
		t.Fatalf("code = %d", w.Code)
	}
}

func TestProjectBillingNotFound(t *testing.T) {
	r := newTestEngine(&fakeDocuments{}, &fakeBilling{err: repository.ErrNotFound})
	if w := do(r, http.MethodGet, "/projects/8/billing", "", nil); w.Code != http.StatusNotFound {
		t.Fatalf("code = %d", w.Code)
	}
}
