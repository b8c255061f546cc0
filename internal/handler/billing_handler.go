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

type BillingService interface {
	ProjectBilling(ctx context.Context, projectID int64) (billing.ProjectBilling, error)
	Dashboard(ctx context.Context) (*service.DashboardReport, error)
}

type BillingHandler struct {
	svc    BillingService
	logger *zap.Logger
}

func NewBillingHandler(svc BillingService, logger *zap.Logger) *BillingHandler {
	return &BillingHandler{svc: svc, logger: logger}
}

func (h *BillingHandler) ProjectBilling(c *gin.Context) {
	log := logger.WithTrace(c.Request.Context(), h.logger)
	id, ok := parseID(c, log, "ProjectBilling")
	if !ok {
		return
	}

	pb, err := h.svc.ProjectBilling(c.Request.Context(), id)
	if err != nil {
		writeError(c, log.With(zap.Int64("project_id", id)), "ProjectBilling", err)
		return
	}
	c.JSON(http.StatusOK, pb)
}

// Dashboard answers 200 even when some projects failed; they are listed under "failures".
func (h *BillingHandler) Dashboard(c *gin.Context) {
	log := logger.WithTrace(c.Request.Context(), h.logger)

	report, err := h.svc.Dashboard(c.Request.Context())
	if err != nil {
		writeError(c, log, "Dashboard", err)
		return
	}
	log.Info("Dashboard: success",
		zap.Int("project_count", len(report.Projects)),
		zap.Int("failure_count", len(report.Failures)),
	)
	c.JSON(http.StatusOK, report)
}
