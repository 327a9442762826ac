package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/meetingintel/recordkeeper/internal/core/domain"
	"github.com/meetingintel/recordkeeper/internal/core/ports"
	"github.com/meetingintel/recordkeeper/internal/pkg/metrics"
)

// AuditSink accepts audit entries without blocking.
type AuditSink interface {
	TryEnqueue(e *domain.AuditEntry) bool
}

// AuditRecorder builds audit entries and hands them to a background sink.
// Nothing it does can fail the calling operation.
type AuditRecorder struct {
	sink AuditSink
	now  func() time.Time
	log  zerolog.Logger
}

// NewAuditRecorder returns an AuditRecorder writing to sink.
func NewAuditRecorder(sink AuditSink, log zerolog.Logger) *AuditRecorder {
	return &AuditRecorder{
		sink: sink,
		now:  time.Now,
		log:  log.With().Str("component", "audit").Logger(),
	}
}

// Record audits a mutation against rc's active workspace.
func (a *AuditRecorder) Record(rc *domain.RequestContext, op domain.Operation, entityType, entityID, detail string) {
	if rc == nil {
		return
	}
	active := rc.Active()
	a.enqueue(&domain.AuditEntry{
		IdentityKey:   rc.IdentityKey(),
		WorkspaceID:   active.WorkspaceID,
		WorkspaceName: active.WorkspaceName,
		Operation:     op,
		EntityType:    entityType,
		EntityID:      entityID,
		Detail:        detail,
		AccessMethod:  rc.Method(),
	})
}

// RecordFor audits a management action by actor on ws.
func (a *AuditRecorder) RecordFor(actor *domain.Actor, ws *domain.Workspace, op domain.Operation, entityType, entityID, detail string) {
	if actor == nil || ws == nil {
		return
	}
	a.enqueue(&domain.AuditEntry{
		IdentityKey:   actor.Identity.Key,
		WorkspaceID:   ws.ID,
		WorkspaceName: ws.Name,
		Operation:     op,
		EntityType:    entityType,
		EntityID:      entityID,
		Detail:        detail,
		AccessMethod:  actor.Method,
	})
}

func (a *AuditRecorder) enqueue(e *domain.AuditEntry) {
	e.ID = uuid.NewString()
	e.Timestamp = a.now().UTC()
	e.Detail = domain.TruncateDetail(e.Detail)
	if !a.sink.TryEnqueue(e) {
		a.log.Warn().
			Str("workspace_id", e.WorkspaceID).
			Str("operation", string(e.Operation)).
			Str("entity_type", e.EntityType).
			Msg("audit queue full, entry dropped")
	}
}

// NewAuditWriter returns the queue handler that persists audit entries.
// Write failures are logged and counted, never returned.
func NewAuditWriter(repo ports.AuditRepository, exec *Executor, log zerolog.Logger) func(ctx context.Context, e *domain.AuditEntry) error {
	log = log.With().Str("component", "audit_writer").Logger()
	return func(ctx context.Context, e *domain.AuditEntry) error {
		err := exec.Do(ctx, "audit.insert", func(ctx context.Context) error {
			return repo.Insert(ctx, e)
		})
		if err != nil {
			metrics.AuditWritesTotal.WithLabelValues("error").Inc()
			log.Error().Err(err).
				Str("identity", e.IdentityKey).
				Str("workspace_id", e.WorkspaceID).
				Str("operation", string(e.Operation)).
				Str("entity_type", e.EntityType).
				Str("entity_id", e.EntityID).
				Msg("audit write failed")
			return nil
		}
		metrics.AuditWritesTotal.WithLabelValues("ok").Inc()
		return nil
	}
}
