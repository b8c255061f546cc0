package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"billingengine/internal/billing"
	"billingengine/internal/repository"
	"billingengine/pkg/circuitbreaker"
	"billingengine/pkg/logger"
	"billingengine/pkg/metrics"
	"billingengine/pkg/otel"
)

type ReconcileService struct {
	projects    ProjectStore
	timesheets  TimesheetStore
	quotes      QuoteStore
	invoices    InvoiceStore
	breaker     *circuitbreaker.CircuitBreaker
	opts        billing.AggregateOptions
	timeout     time.Duration
	concurrency int
	now         func() time.Time
	logger      *zap.Logger
}

func NewReconcileService(
	projects ProjectStore,
	timesheets TimesheetStore,
	quotes QuoteStore,
	invoices InvoiceStore,
	opts billing.AggregateOptions,
	logger *zap.Logger,
) *ReconcileService {
	return &ReconcileService{
		projects:    projects,
		timesheets:  timesheets,
		quotes:      quotes,
		invoices:    invoices,
		breaker:     circuitbreaker.New(circuitbreaker.DefaultConfig()),
		opts:        opts,
		timeout:     5 * time.Second,
		concurrency: 8,
		now:         time.Now,
		logger:      logger,
	}
}

// WithLimits sets the per-project timeout and the number of projects computed at once.
func (s *ReconcileService) WithLimits(timeout time.Duration, concurrency int) *ReconcileService {
	if timeout > 0 {
		s.timeout = timeout
	}
	if concurrency > 0 {
		s.concurrency = concurrency
	}
	return s
}

func (s *ReconcileService) WithBreaker(cb *circuitbreaker.CircuitBreaker) *ReconcileService {
	s.breaker = cb
	return s
}

func (s *ReconcileService) WithClock(now func() time.Time) *ReconcileService {
	s.now = now
	return s
}

// ProjectFailure is the serializable form of a PartialComputationFailure.
type ProjectFailure struct {
	ProjectID int64  `json:"project_id"`
	Reason    string `json:"reason"`
	Error     string `json:"error"`
}

type DashboardTotals struct {
	BillableHours  float64       `json:"billable_hours"`
	BilledHours    float64       `json:"billed_hours"`
	UnbilledHours  float64       `json:"unbilled_hours"`
	UnbilledAmount billing.Money `json:"unbilled_amount"`
}

type DashboardReport struct {
	GeneratedAt time.Time                `json:"generated_at"`
	Projects    []billing.ProjectBilling `json:"projects"`
	Failures    []ProjectFailure         `json:"failures"`
	Totals      DashboardTotals          `json:"totals"`
	Documents   *billing.DocumentSummary `json:"documents,omitempty"`
	// DocumentsError is set when the document summary could not be built.
	DocumentsError string `json:"documents_error,omitempty"`
}

// ProjectBilling reconciles one project. Lookup errors are returned to the caller.
func (s *ReconcileService) ProjectBilling(ctx context.Context, projectID int64) (billing.ProjectBilling, error) {
	ctx, span := otel.StartSpan(ctx, "billing.project_billing")
	defer span.End()
	span.SetAttributes(attribute.Int64("project_id", projectID))

	project, err := s.projects.Get(ctx, projectID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return billing.ProjectBilling{}, err
	}
	pb, err := s.reconcileOne(ctx, project, s.now())
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return billing.ProjectBilling{}, err
	}
	return pb, nil
}

// Dashboard reconciles every active project. A project whose lookups fail or time out
// contributes zeroed metrics and a failure entry; only listing the projects is fatal.
func (s *ReconcileService) Dashboard(ctx context.Context) (*DashboardReport, error) {
	ctx, span := otel.StartSpan(ctx, "billing.dashboard")
	defer span.End()
	log := logger.WithTrace(ctx, s.logger)

	projects, err := s.projects.ListActive(ctx)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("list active projects: %w", err)
	}

	today := s.now()
	results := make([]billing.ProjectBilling, len(projects))
	failures := make([]*billing.PartialComputationFailure, len(projects))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, p := range projects {
		g.Go(func() error {
			pb, err := s.reconcileOne(gctx, p, today)
			if err != nil {
				results[i] = billing.ZeroProjectBilling(p.ID)
				failures[i] = &billing.PartialComputationFailure{ProjectID: p.ID, Err: err}
				return nil
			}
			results[i] = pb
			return nil
		})
	}
	_ = g.Wait()

	report := &DashboardReport{
		GeneratedAt: today.UTC(),
		Projects:    results,
		Failures:    []ProjectFailure{},
	}

	var billable, billed, unbilled decimal.Decimal
	for i, pb := range results {
		if f := failures[i]; f != nil {
			reason := failureReason(f.Err)
			metrics.IncrementReconcileFailure(reason)
			log.Warn("Project billing computation failed, reporting zeroed metrics",
				zap.Int64("project_id", f.ProjectID),
				zap.String("reason", reason),
				zap.Error(f),
			)
			report.Failures = append(report.Failures, ProjectFailure{ProjectID: f.ProjectID, Reason: reason, Error: f.Err.Error()})
			continue
		}
		billable = billable.Add(decimal.NewFromFloat(pb.BillableHours))
		billed = billed.Add(decimal.NewFromFloat(pb.BilledHours))
		unbilled = unbilled.Add(decimal.NewFromFloat(pb.UnbilledHours))
		report.Totals.UnbilledAmount += pb.UnbilledAmount
	}
	report.Totals.BillableHours = billable.InexactFloat64()
	report.Totals.BilledHours = billed.InexactFloat64()
	report.Totals.UnbilledHours = unbilled.InexactFloat64()

	summary, err := s.documentSummary(ctx, today)
	if err != nil {
		log.Error("Failed to build document summary", zap.Error(err))
		report.DocumentsError = err.Error()
	} else {
		report.Documents = &summary
	}

	log.Info("Billing dashboard computed",
		zap.Int("projects", len(projects)),
		zap.Int("failures", len(report.Failures)),
		zap.String("unbilled_amount", report.Totals.UnbilledAmount.String()),
	)
	return report, nil
}

func (s *ReconcileService) documentSummary(ctx context.Context, today time.Time) (billing.DocumentSummary, error) {
	var (
		quotes   []billing.Quote
		invoices []billing.Invoice
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		quotes, err = s.quotes.ListAll(gctx)
		return err
	})
	g.Go(func() (err error) {
		invoices, err = s.invoices.ListAll(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return billing.DocumentSummary{}, err
	}
	return billing.SummarizeDocuments(quotes, invoices, today, s.opts), nil
}

// reconcileOne fetches the project's timesheets, quotes and invoices concurrently under
// the per-project timeout.
func (s *ReconcileService) reconcileOne(ctx context.Context, p billing.Project, today time.Time) (billing.ProjectBilling, error) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var (
		timesheets []billing.Timesheet
		quotes     []billing.Quote
		invoices   []billing.Invoice
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.guard(func() (err error) {
			timesheets, err = s.timesheets.ListByProject(gctx, p.ID)
			return err
		})
	})
	g.Go(func() error {
		return s.guard(func() (err error) {
			quotes, err = s.quotes.ListByProject(gctx, p.ID)
			return err
		})
	})
	g.Go(func() error {
		return s.guard(func() (err error) {
			invoices, err = s.invoices.ListByProject(gctx, p.ID)
			return err
		})
	})
	if err := g.Wait(); err != nil {
		// a lookup that returned after the deadline reports the deadline
		if ctx.Err() != nil && !errors.Is(err, circuitbreaker.ErrOpen) {
			err = fmt.Errorf("lookups did not finish within %s: %w", s.timeout, ctx.Err())
		}
		metrics.RecordReconcileDuration("partial", time.Since(start))
		return billing.ProjectBilling{}, err
	}

	pb := billing.ReconcileProject(p, timesheets, quotes, invoices, s.opts.Classifier, today)
	metrics.RecordReconcileDuration("ok", time.Since(start))
	return pb, nil
}

func (s *ReconcileService) guard(fn func() error) error {
	if s.breaker == nil {
		return fn()
	}
	return s.breaker.Execute(fn, func(err error) bool {
		return errors.Is(err, repository.ErrNotFound) || errors.Is(err, context.Canceled)
	})
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, circuitbreaker.ErrOpen):
		return "circuit_open"
	default:
		return "lookup"
	}
}
