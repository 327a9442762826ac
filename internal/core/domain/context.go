package domain

// Operation is the kind of action a request wants to perform.
type Operation string

const (
	OpRead            Operation = "read"
	OpCreate          Operation = "create"
	OpUpdate          Operation = "update"
	OpDelete          Operation = "delete"
	OpManageMembers   Operation = "manage_members"
	OpManageWorkspace Operation = "manage_workspace"
)

// Mutates reports whether op changes state. Only read does not.
func (op Operation) Mutates() bool { return op != OpRead }

// EntityRef identifies the entity an operation targets. CreatedBy is the
// identity key recorded when the entity was created.
type EntityRef struct {
	Type      string
	ID        string
	CreatedBy string
}

// RequestContext is the resolved, immutable access context of one request.
// It is built by the workspace resolver and never modified afterwards.
type RequestContext struct {
	identity    Identity
	memberships []Membership
	active      Membership
	method      AccessMethod
}

// NewRequestContext copies its inputs so later mutation by the caller cannot
// leak into the context.
func NewRequestContext(identity Identity, memberships []Membership, active Membership, method AccessMethod) *RequestContext {
	ms := make([]Membership, len(memberships))
	copy(ms, memberships)
	return &RequestContext{
		identity:    identity,
		memberships: ms,
		active:      active,
		method:      method,
	}
}

func (rc *RequestContext) Identity() Identity { return rc.identity }

func (rc *RequestContext) IdentityKey() string { return rc.identity.Key }

func (rc *RequestContext) IsAdmin() bool { return rc.identity.IsAdmin }

func (rc *RequestContext) Active() Membership { return rc.active }

func (rc *RequestContext) Method() AccessMethod { return rc.method }

// Memberships returns a copy of every membership the identity holds.
func (rc *RequestContext) Memberships() []Membership {
	ms := make([]Membership, len(rc.memberships))
	copy(ms, rc.memberships)
	return ms
}

// MembershipIn returns the identity's membership in workspaceID, if any.
func (rc *RequestContext) MembershipIn(workspaceID string) (Membership, bool) {
	for _, m := range rc.memberships {
		if m.WorkspaceID == workspaceID {
			return m, true
		}
	}
	return Membership{}, false
}

// Actor is an identity acting on management endpoints, where no single
// active workspace applies.
type Actor struct {
	Identity    Identity
	Memberships []Membership
	Method      AccessMethod
}

// RoleIn returns the actor's role in workspaceID, if it is a member.
func (a *Actor) RoleIn(workspaceID string) (Role, bool) {
	for _, m := range a.Memberships {
		if m.WorkspaceID == workspaceID {
			return m.Role, true
		}
	}
	return "", false
}
