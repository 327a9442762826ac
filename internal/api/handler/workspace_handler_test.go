package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/meetingintel/recordkeeper/internal/api/middleware"
	"github.com/meetingintel/recordkeeper/internal/core/domain"
)

func TestWorkspaceHandler_List_MarksActive(t *testing.T) {
	e := newEcho()
	h := NewWorkspaceHandler(&stubResolver{})
	c, rec := newRequest(e, http.MethodGet, "/v1/workspaces", "")
	withRequestContext(c, memberContext(domain.RoleMember))

	if err := h.List(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp workspacesResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp.Identity != "alice@example.com" {
		t.Fatalf("unexpected identity %q", resp.Identity)
	}
	if len(resp.Workspaces) != 2 {
		t.Fatalf("expected 2 workspaces, got %d", len(resp.Workspaces))
	}
	if !resp.Workspaces[0].Active || resp.Workspaces[1].Active {
		t.Fatalf("only ws-1 should be active: %+v", resp.Workspaces)
	}
}

func TestWorkspaceHandler_List_RequiresContext(t *testing.T) {
	e := newEcho()
	h := NewWorkspaceHandler(&stubResolver{})
	c, _ := newRequest(e, http.MethodGet, "/v1/workspaces", "")

	if err := h.List(c); err == nil {
		t.Fatalf("expected error without request context")
	}
}

func TestWorkspaceHandler_Current(t *testing.T) {
	e := newEcho()
	h := NewWorkspaceHandler(&stubResolver{})
	c, rec := newRequest(e, http.MethodGet, "/v1/workspaces/current", "")
	withRequestContext(c, memberContext(domain.RoleChair))

	if err := h.Current(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	var view workspaceView
	if err := json.Unmarshal(rec.Body.Bytes(), &view); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if view.ID != "ws-1" || view.Role != domain.RoleChair || !view.Active {
		t.Fatalf("unexpected view: %+v", view)
	}
}

func TestWorkspaceHandler_SetActive(t *testing.T) {
	e := newEcho()
	res := &stubResolver{
		setFn: func(p domain.Principal, selector string) (domain.Membership, error) {
			if p.Key != "alice@example.com" || selector != "team-b" {
				t.Fatalf("unexpected args: %s %s", p.Key, selector)
			}
			return domain.Membership{WorkspaceID: "ws-2", WorkspaceName: "team-b", Role: domain.RoleViewer}, nil
		},
	}
	h := NewWorkspaceHandler(res)
	c, rec := newRequest(e, http.MethodPut, "/v1/workspaces/active", `{"workspace":"team-b"}`)
	middleware.WithPrincipal(c, domain.Principal{Key: "alice@example.com"})

	if err := h.SetActive(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestWorkspaceHandler_SetActive_NotMember(t *testing.T) {
	e := newEcho()
	res := &stubResolver{
		setFn: func(domain.Principal, string) (domain.Membership, error) {
			return domain.Membership{}, domain.Forbidden("not a member")
		},
	}
	h := NewWorkspaceHandler(res)
	c, _ := newRequest(e, http.MethodPut, "/v1/workspaces/active", `{"workspace":"other"}`)
	middleware.WithPrincipal(c, domain.Principal{Key: "alice@example.com"})

	if err := h.SetActive(c); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestWorkspaceHandler_SetActive_MissingWorkspace(t *testing.T) {
	e := newEcho()
	h := NewWorkspaceHandler(&stubResolver{})
	c, _ := newRequest(e, http.MethodPut, "/v1/workspaces/active", `{}`)
	middleware.WithPrincipal(c, domain.Principal{Key: "alice@example.com"})

	if err := h.SetActive(c); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestWorkspaceHandler_ClearActive(t *testing.T) {
	e := newEcho()
	res := &stubResolver{}
	h := NewWorkspaceHandler(res)
	c, rec := newRequest(e, http.MethodDelete, "/v1/workspaces/active", "")
	middleware.WithPrincipal(c, domain.Principal{Key: "alice@example.com"})

	if err := h.ClearActive(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if len(res.cleared) != 1 || res.cleared[0] != "alice@example.com" {
		t.Fatalf("override not cleared: %v", res.cleared)
	}
}
