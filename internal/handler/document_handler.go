package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"billingengine/internal/billing"
	"billingengine/internal/service"
	"billingengine/pkg/logger"
)

// ActorHeader carries the authenticated user id set by the gateway.
const ActorHeader = "X-Actor-ID"

type DocumentService interface {
	GetQuote(ctx context.Context, id int64) (service.QuoteView, error)
	GetInvoice(ctx context.Context, id int64) (service.InvoiceView, error)
	ListProjectQuotes(ctx context.Context, projectID int64) ([]service.QuoteView, error)
	ListProjectInvoices(ctx context.Context, projectID int64) ([]service.InvoiceView, error)
	TransitionQuote(ctx context.Context, actorID string, id int64, to billing.QuoteStatus) (service.QuoteView, error)
	TransitionInvoice(ctx context.Context, actorID string, id int64, to billing.InvoiceStatus) (service.InvoiceView, error)
	ReplaceQuoteItems(ctx context.Context, id int64, items []billing.LineItem) (service.QuoteView, error)
	ReplaceInvoiceItems(ctx context.Context, id int64, items []billing.LineItem) (service.InvoiceView, error)
}

type DocumentHandler struct {
	svc    DocumentService
	logger *zap.Logger
}

func NewDocumentHandler(svc DocumentService, logger *zap.Logger) *DocumentHandler {
	return &DocumentHandler{svc: svc, logger: logger}
}

type statusRequest struct {
	Status string `json:"status" binding:"required"`
}

type itemsRequest struct {
	Items []billing.LineItem `json:"items"`
}

func (h *DocumentHandler) GetQuote(c *gin.Context) {
	log := logger.WithTrace(c.Request.Context(), h.logger)
	id, ok := parseID(c, log, "GetQuote")
	if !ok {
		return
	}
	view, err := h.svc.GetQuote(c.Request.Context(), id)
	if err != nil {
		writeError(c, log.With(zap.Int64("quote_id", id)), "GetQuote", err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *DocumentHandler) GetInvoice(c *gin.Context) {
	log := logger.WithTrace(c.Request.Context(), h.logger)
	id, ok := parseID(c, log, "GetInvoice")
	if !ok {
		return
	}
	view, err := h.svc.GetInvoice(c.Request.Context(), id)
	if err != nil {
		writeError(c, log.With(zap.Int64("invoice_id", id)), "GetInvoice", err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *DocumentHandler) ListProjectQuotes(c *gin.Context) {
	log := logger.WithTrace(c.Request.Context(), h.logger)
	id, ok := parseID(c, log, "ListProjectQuotes")
	if !ok {
		return
	}
	views, err := h.svc.ListProjectQuotes(c.Request.Context(), id)
	if err != nil {
		writeError(c, log.With(zap.Int64("project_id", id)), "ListProjectQuotes", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"quotes": views})
}

func (h *DocumentHandler) ListProjectInvoices(c *gin.Context) {
	log := logger.WithTrace(c.Request.Context(), h.logger)
	id, ok := parseID(c, log, "ListProjectInvoices")
	if !ok {
		return
	}
	views, err := h.svc.ListProjectInvoices(c.Request.Context(), id)
	if err != nil {
		writeError(c, log.With(zap.Int64("project_id", id)), "ListProjectInvoices", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"invoices": views})
}

func (h *DocumentHandler) TransitionQuote(c *gin.Context) {
	log := logger.WithTrace(c.Request.Context(), h.logger)
	id, ok := parseID(c, log, "TransitionQuote")
	if !ok {
		return
	}
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("TransitionQuote: invalid body", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "status required"})
		return
	}

	actor := c.GetHeader(ActorHeader)
	view, err := h.svc.TransitionQuote(c.Request.Context(), actor, id, billing.QuoteStatus(req.Status))
	if err != nil {
		writeError(c, log.With(zap.Int64("quote_id", id), zap.String("to", req.Status)), "TransitionQuote", err)
		return
	}
	log.Info("TransitionQuote: success",
		zap.Int64("quote_id", id),
		zap.String("to", req.Status),
		zap.String("actor_id", actor),
	)
	c.JSON(http.StatusOK, view)
}

func (h *DocumentHandler) TransitionInvoice(c *gin.Context) {
	log := logger.WithTrace(c.Request.Context(), h.logger)
	id, ok := parseID(c, log, "TransitionInvoice")
	if !ok {
		return
	}
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("TransitionInvoice: invalid body", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "status required"})
		return
	}

	actor := c.GetHeader(ActorHeader)
	view, err := h.svc.TransitionInvoice(c.Request.Context(), actor, id, billing.InvoiceStatus(req.Status))
	if err != nil {
		writeError(c, log.With(zap.Int64("invoice_id", id), zap.String("to", req.Status)), "TransitionInvoice", err)
		return
	}
	log.Info("TransitionInvoice: success",
		zap.Int64("invoice_id", id),
		zap.String("to", req.Status),
		zap.String("actor_id", actor),
	)
	c.JSON(http.StatusOK, view)
}

func (h *DocumentHandler) ReplaceQuoteItems(c *gin.Context) {
	log := logger.WithTrace(c.Request.Context(), h.logger)
	id, ok := parseID(c, log, "ReplaceQuoteItems")
	if !ok {
		return
	}
	var req itemsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("ReplaceQuoteItems: invalid body", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid items"})
		return
	}
	view, err := h.svc.ReplaceQuoteItems(c.Request.Context(), id, req.Items)
	if err != nil {
		writeError(c, log.With(zap.Int64("quote_id", id)), "ReplaceQuoteItems", err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *DocumentHandler) ReplaceInvoiceItems(c *gin.Context) {
	log := logger.WithTrace(c.Request.Context(), h.logger)
	id, ok := parseID(c, log, "ReplaceInvoiceItems")
	if !ok {
		return
	}
	var req itemsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("ReplaceInvoiceItems: invalid body", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid items"})
		return
	}
	view, err := h.svc.ReplaceInvoiceItems(c.Request.Context(), id, req.Items)
	if err != nil {
		writeError(c, log.With(zap.Int64("invoice_id", id)), "ReplaceInvoiceItems", err)
		return
	}
	c.JSON(http.StatusOK, view)
}
