package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/meetingintel/recordkeeper/internal/api/middleware"
	"github.com/meetingintel/recordkeeper/internal/core/domain"
	"github.com/meetingintel/recordkeeper/internal/core/ports"
)

// ---------------------------------------------------------------------------
// Service stubs
// ---------------------------------------------------------------------------

type stubResolver struct {
	setFn   func(p domain.Principal, selector string) (domain.Membership, error)
	cleared []string
}

func (s *stubResolver) Resolve(context.Context, domain.Principal, string) (*domain.RequestContext, error) {
	panic("not used by handlers")
}

func (s *stubResolver) Identify(context.Context, domain.Principal) (*domain.Actor, error) {
	panic("not used by handlers")
}

func (s *stubResolver) SetActiveWorkspace(_ context.Context, p domain.Principal, selector string) (domain.Membership, error) {
	return s.setFn(p, selector)
}

func (s *stubResolver) ClearActiveWorkspace(_ context.Context, p domain.Principal) error {
	s.cleared = append(s.cleared, p.Key)
	return nil
}

type stubRecordService struct {
	listFn   func(t domain.RecordType, limit int) ([]*domain.Record, error)
	getFn    func(t domain.RecordType, id string) (*domain.Record, error)
	createFn func(in ports.CreateRecordInput) (*domain.Record, error)
	updateFn func(t domain.RecordType, id string, patch domain.RecordPatch) (*domain.Record, error)
	deleteFn func(t domain.RecordType, id string) error
}

func (s *stubRecordService) List(_ context.Context, _ *domain.RequestContext, t domain.RecordType, limit int) ([]*domain.Record, error) {
	return s.listFn(t, limit)
}

func (s *stubRecordService) Get(_ context.Context, _ *domain.RequestContext, t domain.RecordType, id string) (*domain.Record, error) {
	return s.getFn(t, id)
}

func (s *stubRecordService) Create(_ context.Context, _ *domain.RequestContext, in ports.CreateRecordInput) (*domain.Record, error) {
	return s.createFn(in)
}

func (s *stubRecordService) Update(_ context.Context, _ *domain.RequestContext, t domain.RecordType, id string, patch domain.RecordPatch) (*domain.Record, error) {
	return s.updateFn(t, id, patch)
}

func (s *stubRecordService) Delete(_ context.Context, _ *domain.RequestContext, t domain.RecordType, id string) error {
	return s.deleteFn(t, id)
}

type stubAdminService struct {
	createFn   func(in ports.CreateWorkspaceInput) (*domain.Workspace, error)
	archiveFn  func(id string, archived bool) (*domain.Workspace, error)
	addFn      func(wsID, key string, role domain.Role) (*domain.Member, error)
	changeFn   func(wsID, key string, role domain.Role) error
	removeFn   func(wsID, key string) error
	auditFn    func(wsID string, limit int) ([]*domain.AuditEntry, error)
	members    []domain.Member
	workspaces []*domain.Workspace
}

func (s *stubAdminService) CreateWorkspace(_ context.Context, _ *domain.Actor, in ports.CreateWorkspaceInput) (*domain.Workspace, error) {
	return s.createFn(in)
}

func (s *stubAdminService) ListWorkspaces(context.Context, *domain.Actor) ([]*domain.Workspace, error) {
	return s.workspaces, nil
}

func (s *stubAdminService) SetArchived(_ context.Context, _ *domain.Actor, id string, archived bool) (*domain.Workspace, error) {
	return s.archiveFn(id, archived)
}

func (s *stubAdminService) ListMembers(context.Context, *domain.Actor, string) ([]domain.Member, error) {
	return s.members, nil
}

func (s *stubAdminService) AddMember(_ context.Context, _ *domain.Actor, wsID, key string, role domain.Role) (*domain.Member, error) {
	return s.addFn(wsID, key, role)
}

func (s *stubAdminService) ChangeRole(_ context.Context, _ *domain.Actor, wsID, key string, role domain.Role) error {
	return s.changeFn(wsID, key, role)
}

func (s *stubAdminService) RemoveMember(_ context.Context, _ *domain.Actor, wsID, key string) error {
	return s.removeFn(wsID, key)
}

func (s *stubAdminService) ListAudit(_ context.Context, _ *domain.Actor, wsID string, limit int) ([]*domain.AuditEntry, error) {
	return s.auditFn(wsID, limit)
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func newEcho() *echo.Echo {
	e := echo.New()
	e.Validator = NewValidator()
	return e
}

// newRequest builds an echo context. body may be empty.
func newRequest(e *echo.Echo, method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func withParams(c echo.Context, kv ...string) {
	names := make([]string, 0, len(kv)/2)
	values := make([]string, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		names = append(names, kv[i])
		values = append(values, kv[i+1])
	}
	c.SetParamNames(names...)
	c.SetParamValues(values...)
}

func memberContext(role domain.Role) *domain.RequestContext {
	active := domain.Membership{WorkspaceID: "ws-1", WorkspaceName: "team-a", WorkspaceDisplayName: "Team A", Role: role, IsDefault: true}
	other := domain.Membership{WorkspaceID: "ws-2", WorkspaceName: "team-b", Role: domain.RoleViewer}
	return domain.NewRequestContext(
		domain.Identity{ID: "id-1", Key: "alice@example.com"},
		[]domain.Membership{active, other},
		active,
		domain.AccessAPIKey,
	)
}

func withRequestContext(c echo.Context, rc *domain.RequestContext) {
	middleware.WithRequestContext(c, rc)
}
