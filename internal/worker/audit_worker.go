package worker

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/token-service/internal/events"
)

// StartAuditWorker registers handlers that write token lifecycle events to the audit log.
func StartAuditWorker(dispatcher events.Dispatcher, logger *zap.Logger) {
	if dispatcher == nil {
		return
	}
	audit := logger.Named("audit")

	dispatcher.Subscribe(events.EventTokenIssued, func(_ context.Context, e events.Event) error {
		fields := auditFields(e)
		if p, ok := e.Payload.(events.TokenIssuedPayload); ok {
			fields = append(fields, zap.Time("expires_at", p.ExpiresAt))
		}
		audit.Info("token issued", fields...)
		return nil
	})

	dispatcher.Subscribe(events.EventTokenRevoked, func(_ context.Context, e events.Event) error {
		fields := auditFields(e)
		if p, ok := e.Payload.(events.TokenRevokedPayload); ok {
			fields = append(fields, zap.String("token_id", p.TokenID), zap.Time("expires_at", p.ExpiresAt))
		}
		audit.Info("token revoked", fields...)
		return nil
	})

	dispatcher.Subscribe(events.EventTokenRejected, func(_ context.Context, e events.Event) error {
		fields := auditFields(e)
		if p, ok := e.Payload.(events.TokenRejectedPayload); ok {
			fields = append(fields, zap.String("reason", p.Reason))
		}
		audit.Debug("token rejected", fields...)
		return nil
	})
}

func auditFields(e events.Event) []zap.Field {
	return []zap.Field{
		zap.String("event_id", e.ID),
		zap.String("subject", e.Subject),
		zap.Time("at", e.Timestamp),
	}
}
