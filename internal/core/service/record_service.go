package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/meetingintel/recordkeeper/internal/core/domain"
	"github.com/meetingintel/recordkeeper/internal/core/ports"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

type recordService struct {
	pools ports.PoolProvider
	exec  *Executor
	audit ports.AuditRecorder
	now   func() time.Time
	log   zerolog.Logger
}

// NewRecordService returns a RecordService. Every call is authorized against
// the request context before the tenant pool is touched, and mutations are
// audited only after they succeed.
func NewRecordService(pools ports.PoolProvider, exec *Executor, audit ports.AuditRecorder, log zerolog.Logger) ports.RecordService {
	return &recordService{
		pools: pools,
		exec:  exec,
		audit: audit,
		now:   time.Now,
		log:   log.With().Str("component", "records").Logger(),
	}
}

func (s *recordService) repo(ctx context.Context, rc *domain.RequestContext) (ports.RecordRepository, error) {
	pool, err := s.pools.Pool(ctx, rc.Active().BackingStore)
	if err != nil {
		return nil, fmt.Errorf("tenant pool: %w", err)
	}
	return pool.Records(), nil
}

func (s *recordService) List(ctx context.Context, rc *domain.RequestContext, t domain.RecordType, limit int) ([]*domain.Record, error) {
	if err := Authorize(rc, domain.OpRead, nil); err != nil {
		return nil, err
	}
	repo, err := s.repo(ctx, rc)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	return Run(ctx, s.exec, "records.list", func(ctx context.Context) ([]*domain.Record, error) {
		return repo.List(ctx, t, limit)
	})
}

func (s *recordService) Get(ctx context.Context, rc *domain.RequestContext, t domain.RecordType, id string) (*domain.Record, error) {
	if err := Authorize(rc, domain.OpRead, nil); err != nil {
		return nil, err
	}
	repo, err := s.repo(ctx, rc)
	if err != nil {
		return nil, err
	}
	return s.get(ctx, repo, t, id)
}

func (s *recordService) get(ctx context.Context, repo ports.RecordRepository, t domain.RecordType, id string) (*domain.Record, error) {
	return Run(ctx, s.exec, "records.get", func(ctx context.Context) (*domain.Record, error) {
		return repo.Get(ctx, t, id)
	})
}

func (s *recordService) Create(ctx context.Context, rc *domain.RequestContext, in ports.CreateRecordInput) (*domain.Record, error) {
	if err := Authorize(rc, domain.OpCreate, nil); err != nil {
		return nil, err
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", domain.ErrInvalidInput)
	}
	repo, err := s.repo(ctx, rc)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	rec := &domain.Record{
		ID:        uuid.NewString(),
		Type:      in.Type,
		Title:     title,
		Content:   in.Content,
		Status:    in.Status,
		CreatedBy: rc.IdentityKey(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.exec.Do(ctx, "records.insert", func(ctx context.Context) error {
		return repo.Insert(ctx, rec)
	}); err != nil {
		return nil, err
	}

	s.audit.Record(rc, domain.OpCreate, string(rec.Type), rec.ID, rec.Title)
	return rec, nil
}

func (s *recordService) Update(ctx context.Context, rc *domain.RequestContext, t domain.RecordType, id string, patch domain.RecordPatch) (*domain.Record, error) {
	// Role and archive checks first, so a viewer learns nothing about the record.
	if err := Authorize(rc, domain.OpUpdate, nil); err != nil {
		return nil, err
	}
	if patch.Empty() {
		return nil, fmt.Errorf("%w: nothing to update", domain.ErrInvalidInput)
	}
	repo, err := s.repo(ctx, rc)
	if err != nil {
		return nil, err
	}
	current, err := s.get(ctx, repo, t, id)
	if err != nil {
		return nil, err
	}
	if err := Authorize(rc, domain.OpUpdate, current.Ref()); err != nil {
		return nil, err
	}

	updated, err := Run(ctx, s.exec, "records.update", func(ctx context.Context) (*domain.Record, error) {
		return repo.Update(ctx, t, id, patch, s.now().UTC())
	})
	if err != nil {
		return nil, err
	}

	s.audit.Record(rc, domain.OpUpdate, string(t), id, patchDetail(patch))
	return updated, nil
}

func (s *recordService) Delete(ctx context.Context, rc *domain.RequestContext, t domain.RecordType, id string) error {
	if err := Authorize(rc, domain.OpDelete, nil); err != nil {
		return err
	}
	repo, err := s.repo(ctx, rc)
	if err != nil {
		return err
	}
	if err := s.exec.Do(ctx, "records.delete", func(ctx context.Context) error {
		return repo.Delete(ctx, t, id)
	}); err != nil {
		return err
	}

	s.audit.Record(rc, domain.OpDelete, string(t), id, "")
	return nil
}

func patchDetail(p domain.RecordPatch) string {
	var fields []string
	if p.Title != nil {
		fields = append(fields, "title")
	}
	if p.Content != nil {
		fields = append(fields, "content")
	}
	if p.Status != nil {
		fields = append(fields, "status="+*p.Status)
	}
	return "updated " + strings.Join(fields, ",")
}
