package gateway

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Veraticus/spice-gateway/internal/common"
	"github.com/Veraticus/spice-gateway/internal/model"
	"github.com/google/uuid"
)

type auditEntry struct {
	start      time.Time
	parsed     any
	err        error
	module     model.Module
	userID     string
	rawText    string
	modelName  string
	status     model.AuditStatus
	confidence float64
}

// recordAudit writes one record. Sink failures are logged and never reach the caller.
func (g *Gateway) recordAudit(ctx context.Context, e auditEntry) {
	if g.audit == nil {
		return
	}

	var parsed string
	if e.parsed != nil {
		if raw, err := json.Marshal(e.parsed); err == nil {
			parsed = string(raw)
		}
	}

	now := g.clock.Now()
	rec := model.AuditRecord{
		ID:            uuid.NewString(),
		CreatedAt:     now,
		Module:        e.module,
		UserID:        e.userID,
		RawText:       e.rawText,
		ParsedJSON:    parsed,
		Model:         e.modelName,
		Status:        e.status,
		FailureReason: common.FailureReason(e.err),
		Confidence:    model.ClampConfidence(e.confidence),
		DurationMS:    now.Sub(e.start).Milliseconds(),
	}

	if err := g.audit.RecordAudit(context.WithoutCancel(ctx), rec); err != nil {
		g.logger.Warn("failed to write audit record",
			"module", e.module,
			"status", e.status,
			"error", err)
	}
}

// outcomeStatus maps the resolution error onto the audit status.
func outcomeStatus(err error) model.AuditStatus {
	if err != nil {
		return model.AuditFallback
	}
	return model.AuditSuccess
}
