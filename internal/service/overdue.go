package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"billingengine/internal/billing"
	"billingengine/internal/events"
	"billingengine/internal/repository"
	"billingengine/pkg/metrics"
	"billingengine/pkg/otel"
	"billingengine/pkg/trace"
)

// OverdueStore is the part of the invoice repository the overdue run needs.
type OverdueStore interface {
	ListOverdueCandidates(ctx context.Context, today time.Time) ([]billing.Invoice, error)
	UpdateStatus(ctx context.Context, d billing.Decision, msgs []repository.Message) error
}

// Orchestrator is the scheduled process that stores OVERDUE on SENT invoices past their
// due date.
type Orchestrator struct {
	invoices OverdueStore
	opts     billing.AggregateOptions
	now      func() time.Time
	logger   *zap.Logger
}

func NewOrchestrator(invoices OverdueStore, opts billing.AggregateOptions, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{
		invoices: invoices,
		opts:     opts,
		now:      time.Now,
		logger:   logger,
	}
}

func (o *Orchestrator) WithClock(now func() time.Time) *Orchestrator {
	o.now = now
	return o
}

// CheckAndMarkOverdue marks every candidate and returns how many were moved. An invoice
// paid or changed concurrently loses the compare-and-swap and is skipped.
func (o *Orchestrator) CheckAndMarkOverdue(ctx context.Context) (int, error) {
	ctx, traceID := trace.Ensure(ctx)
	ctx, span := otel.StartSpan(ctx, "billing.mark_overdue")
	defer span.End()

	today := o.now()
	log := o.logger.With(zap.String("trace_id", traceID))

	candidates, err := o.invoices.ListOverdueCandidates(ctx, today)
	if err != nil {
		log.Error("Failed to list overdue candidates", zap.Error(err))
		return 0, err
	}
	if len(candidates) == 0 {
		log.Debug("No overdue invoices found")
		return 0, nil
	}

	marked := 0
	for _, inv := range candidates {
		if !billing.IsOverdueCandidate(inv, today) {
			continue
		}
		d, err := billing.OverdueDecision(inv)
		if err != nil {
			continue
		}

		totals := billing.AggregateInvoice(inv, o.opts)
		msgs := []repository.Message{
			{
				RoutingKey: events.InvoiceOverdue,
				Payload: events.InvoiceOverduePayload{
					InvoiceID:  inv.ID,
					Number:     inv.Number,
					DueDate:    inv.DueDate,
					BalanceDue: totals.BalanceDue,
					TraceID:    traceID,
				},
			},
			{
				RoutingKey: events.DocumentTransitioned,
				Payload: events.DocumentTransitionedPayload{
					ActivityRecord: billing.NewActivityRecord(d, billing.SystemActor, today),
					TraceID:        traceID,
				},
			},
		}

		if err := o.invoices.UpdateStatus(ctx, d, msgs); err != nil {
			if errors.Is(err, repository.ErrStatusConflict) || errors.Is(err, repository.ErrNotFound) {
				log.Info("Invoice changed before it could be marked overdue",
					zap.Int64("invoice_id", inv.ID),
					zap.Error(err),
				)
				continue
			}
			log.Error("Failed to mark invoice overdue", zap.Int64("invoice_id", inv.ID), zap.Error(err))
			return marked, err
		}
		marked++
		metrics.OverdueMarked.Inc()
		metrics.IncrementTransition(string(billing.KindInvoice), d.To, "applied")
	}

	log.Info("Overdue check completed",
		zap.Int("candidates", len(candidates)),
		zap.Int("marked", marked),
	)
	return marked, nil
}

// Run calls CheckAndMarkOverdue immediately and then every interval until ctx is done.
func (o *Orchestrator) Run(ctx context.Context, interval time.Duration) {
	if _, err := o.CheckAndMarkOverdue(ctx); err != nil {
		o.logger.Error("Overdue check failed", zap.Error(err))
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			o.logger.Info("Overdue orchestrator stopped")
			return
		case <-ticker.C:
			if _, err := o.CheckAndMarkOverdue(ctx); err != nil {
				o.logger.Error("Overdue check failed", zap.Error(err))
			}
		}
	}
}
