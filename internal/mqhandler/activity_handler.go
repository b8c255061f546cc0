package mqhandler

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"billingengine/internal/billing"
	"billingengine/internal/events"
	"billingengine/pkg/logger"
)

const activityHandlerName = "activity_log"

type ActivityWriter interface {
	Insert(ctx context.Context, rec billing.ActivityRecord) (bool, error)
}

type Deduper interface {
	AcquireOnce(ctx context.Context, handler, key string) bool
	Release(ctx context.Context, handler, key string)
}

// ActivityHandler writes document.transitioned events into activity_log.
type ActivityHandler struct {
	repo   ActivityWriter
	dedup  Deduper
	logger *zap.Logger
}

func NewActivityHandler(repo ActivityWriter, dedup Deduper, logger *zap.Logger) *ActivityHandler {
	return &ActivityHandler{repo: repo, dedup: dedup, logger: logger}
}

// HandleDocumentTransitioned -- 写入 activity_log
// A malformed payload is logged and acked; requeueing it would never succeed.
func (h *ActivityHandler) HandleDocumentTransitioned(ctx context.Context, raw json.RawMessage) error {
	log := logger.WithTrace(ctx, h.logger)

	var p events.DocumentTransitionedPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		log.Error("Failed to unmarshal document transitioned payload, dropping", zap.Error(err))
		return nil
	}
	if p.EventID == "" {
		log.Error("Document transitioned payload without event_id, dropping",
			zap.Int64("document_id", p.DocumentID),
		)
		return nil
	}

	if h.dedup != nil && !h.dedup.AcquireOnce(ctx, activityHandlerName, p.EventID) {
		return nil
	}

	inserted, err := h.repo.Insert(ctx, p.ActivityRecord)
	if err != nil {
		if h.dedup != nil {
			h.dedup.Release(ctx, activityHandlerName, p.EventID)
		}
		log.Error("Failed to write activity record",
			zap.String("event_id", p.EventID),
			zap.Error(err),
		)
		return err
	}

	if !inserted {
		log.Info("Activity record already stored", zap.String("event_id", p.EventID))
		return nil
	}
	log.Info("Activity record stored",
		zap.String("event_id", p.EventID),
		zap.String("action", p.Action),
		zap.String("actor_id", p.ActorID),
		zap.Int64("document_id", p.DocumentID),
	)
	return nil
}
