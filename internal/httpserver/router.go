package httpserver

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"billingengine/internal/handler"
	"billingengine/pkg/metrics"
	"billingengine/pkg/otel"
	"billingengine/pkg/trace"
)

// Pinger is satisfied by *pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ConnChecker is satisfied by *mq.Consumer and *mq.Publisher.
type ConnChecker interface {
	IsConnected() bool
}

type Deps struct {
	Billing   *handler.BillingHandler
	Documents *handler.DocumentHandler
	DB        Pinger
	// MQ is optional; nil skips the broker readiness check.
	MQ     ConnChecker
	Logger *zap.Logger
}

func NewRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(TraceMiddleware())
	r.Use(RequestLogger(d.Logger))
	r.Use(otel.GinMiddleware())

	registerHealth(r, d.DB, d.MQ)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	if d.Billing != nil {
		r.GET("/projects/:id/billing", d.Billing.ProjectBilling)
		r.GET("/dashboard/billing", d.Billing.Dashboard)
	}
	if d.Documents != nil {
		r.GET("/projects/:id/quotes", d.Documents.ListProjectQuotes)
		r.GET("/projects/:id/invoices", d.Documents.ListProjectInvoices)

		r.GET("/quotes/:id", d.Documents.GetQuote)
		r.PUT("/quotes/:id/items", d.Documents.ReplaceQuoteItems)
		r.POST("/quotes/:id/status", d.Documents.TransitionQuote)

		r.GET("/invoices/:id", d.Documents.GetInvoice)
		r.PUT("/invoices/:id/items", d.Documents.ReplaceInvoiceItems)
		r.POST("/invoices/:id/status", d.Documents.TransitionInvoice)
	}
	return r
}

// NewHealthRouter serves only health, readiness and metrics. The runner uses it.
func NewHealthRouter(db Pinger, mq ConnChecker, logger *zap.Logger) *gin.Engine {
	return NewRouter(Deps{DB: db, MQ: mq, Logger: logger})
}

// TraceMiddleware 读取或生成 X-Trace-ID, 写入 request context 和响应头
func TraceMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		if id := c.GetHeader(trace.HeaderName); id != "" {
			ctx = trace.WithContext(ctx, id)
		}
		ctx, id := trace.Ensure(ctx)
		c.Request = c.Request.WithContext(ctx)
		c.Header(trace.HeaderName, id)
		c.Next()
	}
}

// RequestLogger 请求日志 + 请求耗时指标
func RequestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.RecordHTTPRequestDuration(c.Request.Method, route, strconv.Itoa(c.Writer.Status()), latency)

		logger.Info("HTTP Request",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("query", query),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
			zap.String("user_agent", c.Request.UserAgent()),
			zap.String("trace_id", trace.FromContext(c.Request.Context())),
		)
	}
}

func registerHealth(r *gin.Engine, db Pinger, mq ConnChecker) {
	// Health endpoints
	ok := func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) }
	head := func(c *gin.Context) { c.Status(http.StatusOK) }
	r.GET("/healthz", ok)
	r.HEAD("/healthz", head)
	r.GET("/health", ok)
	r.HEAD("/health", head)

	r.GET("/readyz", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 1*time.Second)
		defer cancel()

		if db != nil {
			if err := db.Ping(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "db_not_ready", "error": err.Error()})
				return
			}
		}
		if mq != nil && !mq.IsConnected() {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "mq_not_ready"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
}
