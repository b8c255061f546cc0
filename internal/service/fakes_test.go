package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"billingengine/internal/billing"
	"billingengine/internal/repository"
)

type fakeProjects struct {
	projects []billing.Project
	listErr  error
}

func (f *fakeProjects) Get(_ context.Context, id int64) (billing.Project, error) {
	for _, p := range f.projects {
		if p.ID == id {
			return p, nil
		}
	}
	return billing.Project{}, fmt.Errorf("project %d: %w", id, repository.ErrNotFound)
}

func (f *fakeProjects) ListActive(context.Context) ([]billing.Project, error) {
	return f.projects, f.listErr
}

type fakeTimesheets struct {
	byProject map[int64][]billing.Timesheet
	fail      map[int64]error
	// block makes the lookup wait for ctx cancellation
	block map[int64]bool
}

func (f *fakeTimesheets) ListByProject(ctx context.Context, id int64) ([]billing.Timesheet, error) {
	if f.block[id] {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if err := f.fail[id]; err != nil {
		return nil, err
	}
	return f.byProject[id], nil
}

type statusWrite struct {
	decision billing.Decision
	msgs     []repository.Message
}

type fakeQuotes struct {
	mu        sync.Mutex
	quotes    map[int64]billing.Quote
	listErr   error
	updateErr error
	writes    []statusWrite
	replaced  map[int64]billing.Totals
}

func (f *fakeQuotes) Get(_ context.Context, id int64) (billing.Quote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	q, ok := f.quotes[id]
	if !ok {
		return billing.Quote{}, fmt.Errorf("quote %d: %w", id, repository.ErrNotFound)
	}
	return q, nil
}

func (f *fakeQuotes) ListByProject(_ context.Context, projectID int64) ([]billing.Quote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []billing.Quote
	for _, q := range f.quotes {
		if q.ProjectID != nil && *q.ProjectID == projectID {
			out = append(out, q)
		}
	}
	return out, nil
}

func (f *fakeQuotes) ListAll(context.Context) ([]billing.Quote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]billing.Quote, 0, len(f.quotes))
	for _, q := range f.quotes {
		out = append(out, q)
	}
	return out, nil
}

func (f *fakeQuotes) UpdateStatus(_ context.Context, d billing.Decision, msgs []repository.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}
	f.writes = append(f.writes, statusWrite{decision: d, msgs: msgs})
	q := f.quotes[d.DocumentID]
	q.Status = billing.QuoteStatus(d.To)
	f.quotes[d.DocumentID] = q
	return nil
}

func (f *fakeQuotes) ReplaceItems(_ context.Context, id int64, items []billing.LineItem, totals billing.Totals) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.replaced == nil {
		f.replaced = map[int64]billing.Totals{}
	}
	f.replaced[id] = totals
	q := f.quotes[id]
	q.Items = items
	f.quotes[id] = q
	return nil
}

type fakeInvoices struct {
	mu         sync.Mutex
	invoices   map[int64]billing.Invoice
	candidates []billing.Invoice
	updateErrs map[int64]error
	writes     []statusWrite
	replaced   map[int64]billing.Totals
	projectErr map[int64]error
}

func (f *fakeInvoices) Get(_ context.Context, id int64) (billing.Invoice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	inv, ok := f.invoices[id]
	if !ok {
		return billing.Invoice{}, fmt.Errorf("invoice %d: %w", id, repository.ErrNotFound)
	}
	return inv, nil
}

func (f *fakeInvoices) ListByProject(_ context.Context, projectID int64) ([]billing.Invoice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.projectErr[projectID]; err != nil {
		return nil, err
	}
	var out []billing.Invoice
	for _, inv := range f.invoices {
		if inv.ProjectID != nil && *inv.ProjectID == projectID {
			out = append(out, inv)
		}
	}
	return out, nil
}

func (f *fakeInvoices) ListAll(context.Context) ([]billing.Invoice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]billing.Invoice, 0, len(f.invoices))
	for _, inv := range f.invoices {
		out = append(out, inv)
	}
	return out, nil
}

func (f *fakeInvoices) ListOverdueCandidates(context.Context, time.Time) ([]billing.Invoice, error) {
	return f.candidates, nil
}

func (f *fakeInvoices) UpdateStatus(_ context.Context, d billing.Decision, msgs []repository.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.updateErrs[d.DocumentID]; err != nil {
		return err
	}
	f.writes = append(f.writes, statusWrite{decision: d, msgs: msgs})
	return nil
}

func (f *fakeInvoices) ReplaceItems(_ context.Context, id int64, _ []billing.LineItem, totals billing.Totals) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.replaced == nil {
		f.replaced = map[int64]billing.Totals{}
	}
	f.replaced[id] = totals
	return nil
}

var errDBDown = errors.New("connection refused")

func int64p(v int64) *int64 { return &v }

func datep(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
