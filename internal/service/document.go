package service

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"billingengine/internal/billing"
	"billingengine/internal/events"
	"billingengine/internal/repository"
	"billingengine/pkg/logger"
	"billingengine/pkg/metrics"
	"billingengine/pkg/otel"
	"billingengine/pkg/trace"
)

// QuoteView is what detail and list endpoints render. Money fields of the embedded quote
// carry the recomputed totals, not the stored ones.
type QuoteView struct {
	billing.Quote
	EffectiveStatus billing.QuoteStatus `json:"effective_status"`
	Totals          billing.Totals      `json:"totals"`
	Editable        bool                `json:"editable"`
	Deletable       bool                `json:"deletable"`
}

type InvoiceView struct {
	billing.Invoice
	EffectiveStatus billing.InvoiceStatus `json:"effective_status"`
	Totals          billing.Totals        `json:"totals"`
	Editable        bool                  `json:"editable"`
	Deletable       bool                  `json:"deletable"`
}

type DocumentService struct {
	quotes   QuoteStore
	invoices InvoiceStore
	opts     billing.AggregateOptions
	now      func() time.Time
	logger   *zap.Logger
}

func NewDocumentService(quotes QuoteStore, invoices InvoiceStore, opts billing.AggregateOptions, logger *zap.Logger) *DocumentService {
	return &DocumentService{
		quotes:   quotes,
		invoices: invoices,
		opts:     opts,
		now:      time.Now,
		logger:   logger,
	}
}

func (s *DocumentService) WithClock(now func() time.Time) *DocumentService {
	s.now = now
	return s
}

func (s *DocumentService) GetQuote(ctx context.Context, id int64) (QuoteView, error) {
	q, err := s.quotes.Get(ctx, id)
	if err != nil {
		return QuoteView{}, err
	}
	return s.quoteView(ctx, q, true), nil
}

func (s *DocumentService) GetInvoice(ctx context.Context, id int64) (InvoiceView, error) {
	inv, err := s.invoices.Get(ctx, id)
	if err != nil {
		return InvoiceView{}, err
	}
	return s.invoiceView(ctx, inv, true), nil
}

func (s *DocumentService) ListProjectQuotes(ctx context.Context, projectID int64) ([]QuoteView, error) {
	quotes, err := s.quotes.ListByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	views := make([]QuoteView, 0, len(quotes))
	for _, q := range quotes {
		views = append(views, s.quoteView(ctx, q, false))
	}
	return views, nil
}

func (s *DocumentService) ListProjectInvoices(ctx context.Context, projectID int64) ([]InvoiceView, error) {
	invoices, err := s.invoices.ListByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	views := make([]InvoiceView, 0, len(invoices))
	for _, inv := range invoices {
		views = append(views, s.invoiceView(ctx, inv, false))
	}
	return views, nil
}

// TransitionQuote validates and applies a status change requested by actorID. The write
// is a compare-and-swap; ErrStatusConflict means another writer got there first.
func (s *DocumentService) TransitionQuote(ctx context.Context, actorID string, id int64, to billing.QuoteStatus) (QuoteView, error) {
	ctx, span := otel.StartSpan(ctx, "billing.transition_quote")
	defer span.End()
	span.SetAttributes(attribute.Int64("quote_id", id), attribute.String("to", string(to)))

	if actorID == "" {
		return QuoteView{}, &billing.ValidationError{Field: "actor_id", Message: "is required"}
	}
	q, err := s.quotes.Get(ctx, id)
	if err != nil {
		return QuoteView{}, err
	}
	d, err := billing.ValidateQuoteTransition(q, to)
	if err != nil {
		metrics.IncrementTransition(string(billing.KindQuote), string(to), "rejected")
		return QuoteView{}, err
	}

	totals := billing.AggregateQuote(q, s.opts)
	msgs := s.transitionMessages(ctx, d, actorID, q.Number, q.ContactID, totals.Total)
	if err := s.quotes.UpdateStatus(ctx, d, msgs); err != nil {
		s.recordWriteFailure(d, err)
		return QuoteView{}, err
	}
	metrics.IncrementTransition(string(d.Kind), d.To, "applied")

	q.Status = to
	if to == billing.QuoteInvoiced {
		q.ConvertedToInvoice = true
	}
	return s.quoteView(ctx, q, false), nil
}

func (s *DocumentService) TransitionInvoice(ctx context.Context, actorID string, id int64, to billing.InvoiceStatus) (InvoiceView, error) {
	ctx, span := otel.StartSpan(ctx, "billing.transition_invoice")
	defer span.End()
	span.SetAttributes(attribute.Int64("invoice_id", id), attribute.String("to", string(to)))

	if actorID == "" {
		return InvoiceView{}, &billing.ValidationError{Field: "actor_id", Message: "is required"}
	}
	inv, err := s.invoices.Get(ctx, id)
	if err != nil {
		return InvoiceView{}, err
	}
	d, err := billing.ValidateInvoiceTransition(inv, to)
	if err != nil {
		metrics.IncrementTransition(string(billing.KindInvoice), string(to), "rejected")
		return InvoiceView{}, err
	}

	totals := billing.AggregateInvoice(inv, s.opts)
	msgs := s.transitionMessages(ctx, d, actorID, inv.Number, inv.ContactID, totals.Total)
	if err := s.invoices.UpdateStatus(ctx, d, msgs); err != nil {
		s.recordWriteFailure(d, err)
		return InvoiceView{}, err
	}
	metrics.IncrementTransition(string(d.Kind), d.To, "applied")

	inv.Status = to
	return s.invoiceView(ctx, inv, false), nil
}

// ReplaceQuoteItems replaces the items of a DRAFT quote and stores the recomputed totals.
func (s *DocumentService) ReplaceQuoteItems(ctx context.Context, id int64, items []billing.LineItem) (QuoteView, error) {
	q, err := s.quotes.Get(ctx, id)
	if err != nil {
		return QuoteView{}, err
	}
	if err := billing.CheckQuoteEditable(q); err != nil {
		return QuoteView{}, err
	}
	if err := billing.ValidateItems(items, s.opts.Classifier); err != nil {
		return QuoteView{}, err
	}
	totals := billing.Aggregate(items, 0, s.opts)
	if err := s.quotes.ReplaceItems(ctx, id, items, totals); err != nil {
		return QuoteView{}, err
	}
	q.Items = items
	q.Subtotal, q.TaxAmount, q.Total = totals.Subtotal, totals.TaxAmount, totals.Total
	return s.quoteView(ctx, q, false), nil
}

func (s *DocumentService) ReplaceInvoiceItems(ctx context.Context, id int64, items []billing.LineItem) (InvoiceView, error) {
	inv, err := s.invoices.Get(ctx, id)
	if err != nil {
		return InvoiceView{}, err
	}
	if err := billing.CheckInvoiceEditable(inv); err != nil {
		return InvoiceView{}, err
	}
	if err := billing.ValidateItems(items, s.opts.Classifier); err != nil {
		return InvoiceView{}, err
	}
	totals := billing.Aggregate(items, inv.PaidAmount, s.opts)
	if err := s.invoices.ReplaceItems(ctx, id, items, totals); err != nil {
		return InvoiceView{}, err
	}
	inv.Items = items
	inv.Subtotal, inv.TaxAmount, inv.Total = totals.Subtotal, totals.TaxAmount, totals.Total
	return s.invoiceView(ctx, inv, false), nil
}

func (s *DocumentService) transitionMessages(ctx context.Context, d billing.Decision, actorID, number string, contactID int64, total billing.Money) []repository.Message {
	traceID := trace.FromContext(ctx)
	msgs := []repository.Message{{
		RoutingKey: events.DocumentTransitioned,
		Payload: events.DocumentTransitionedPayload{
			ActivityRecord: billing.NewActivityRecord(d, actorID, s.now()),
			TraceID:        traceID,
		},
	}}
	if billing.NotifiesRecipient(d) {
		msgs = append(msgs, repository.Message{
			RoutingKey: events.SentRoutingKey(d.Kind),
			Payload: events.DocumentSentPayload{
				DocumentKind: d.Kind,
				DocumentID:   d.DocumentID,
				Number:       number,
				ContactID:    contactID,
				Total:        total,
				ActorID:      actorID,
				TraceID:      traceID,
			},
		})
	}
	return msgs
}

func (s *DocumentService) recordWriteFailure(d billing.Decision, err error) {
	result := "error"
	if errors.Is(err, repository.ErrStatusConflict) {
		result = "conflict"
	}
	metrics.IncrementTransition(string(d.Kind), d.To, result)
}

func (s *DocumentService) quoteView(ctx context.Context, q billing.Quote, checkDrift bool) QuoteView {
	totals := billing.AggregateQuote(q, s.opts)
	if checkDrift {
		s.logDrift(ctx, billing.KindQuote, q.ID, billing.VerifyStoredTotals(q.Subtotal, q.TaxAmount, q.Total, totals))
	}
	q.Subtotal, q.TaxAmount, q.Total = totals.Subtotal, totals.TaxAmount, totals.Total
	return QuoteView{
		Quote:           q,
		EffectiveStatus: billing.EffectiveQuoteStatus(q, s.now()),
		Totals:          totals,
		Editable:        billing.CheckQuoteEditable(q) == nil,
		Deletable:       billing.CheckQuoteDeletable(q) == nil,
	}
}

func (s *DocumentService) invoiceView(ctx context.Context, inv billing.Invoice, checkDrift bool) InvoiceView {
	totals := billing.AggregateInvoice(inv, s.opts)
	if checkDrift {
		s.logDrift(ctx, billing.KindInvoice, inv.ID, billing.VerifyStoredTotals(inv.Subtotal, inv.TaxAmount, inv.Total, totals))
	}
	inv.Subtotal, inv.TaxAmount, inv.Total = totals.Subtotal, totals.TaxAmount, totals.Total
	return InvoiceView{
		Invoice:         inv,
		EffectiveStatus: billing.EffectiveInvoiceStatus(inv, s.now()),
		Totals:          totals,
		Editable:        billing.CheckInvoiceEditable(inv) == nil,
		Deletable:       billing.CheckInvoiceDeletable(inv) == nil,
	}
}

// logDrift reports stored totals that disagree with the items. The stored row is left alone.
func (s *DocumentService) logDrift(ctx context.Context, kind billing.DocumentKind, id int64, drift []billing.Drift) {
	if len(drift) == 0 {
		return
	}
	metrics.IncrementTotalsDrift(string(kind))
	log := logger.WithTrace(ctx, s.logger)
	for _, d := range drift {
		log.Warn("Stored totals drift from recomputed totals",
			zap.String("document_kind", string(kind)),
			zap.Int64("document_id", id),
			zap.String("field", d.Field),
			zap.String("stored", d.Stored.String()),
			zap.String("computed", d.Computed.String()),
		)
	}
}
