package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/trinityvault/trinity/pkg/slogx"
)

// AuditSink records security-relevant account events. Optional collaborator;
// the slog-backed default is fine for most deployments.
type AuditSink interface {
	Record(ctx context.Context, event string, at time.Time)
}

type slogAudit struct {
	logger *slog.Logger
}

// NewSlogAudit returns an AuditSink that writes audit events to the service
// logger.
func NewSlogAudit(logger *slog.Logger) AuditSink {
	return &slogAudit{logger: logger}
}

func (a *slogAudit) Record(ctx context.Context, event string, at time.Time) {
	l := a.logger
	if l == nil {
		l = slogx.FromContext(ctx)
	}
	l.Info("audit_event", "event", event, "at", at.UTC().Format(time.RFC3339))
}
