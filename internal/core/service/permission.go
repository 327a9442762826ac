package service

import (
	"github.com/meetingintel/recordkeeper/internal/core/domain"
)

type capability int

const (
	capRead capability = iota
	capCreate
	capUpdateOwn
	capUpdateAny
	capDelete
	capManageMembers
)

// capabilities is the role table. Anything absent is denied.
var capabilities = map[domain.Role]map[capability]bool{
	domain.RoleViewer: {
		capRead: true,
	},
	domain.RoleMember: {
		capRead:      true,
		capCreate:    true,
		capUpdateOwn: true,
	},
	domain.RoleChair: {
		capRead:          true,
		capCreate:        true,
		capUpdateOwn:     true,
		capUpdateAny:     true,
		capDelete:        true,
		capManageMembers: true,
	},
}

func can(role domain.Role, c capability) bool {
	return capabilities[role][c]
}

// Authorize decides whether rc may perform op against its active workspace.
// target is the entity being acted on; nil skips ownership checks.
//
// The administrator flag is honoured for manage_workspace and manage_members
// only. Data operations are decided by the active membership's role alone.
func Authorize(rc *domain.RequestContext, op domain.Operation, target *domain.EntityRef) error {
	if rc == nil {
		return domain.Forbidden("no request context")
	}
	if op == domain.OpManageWorkspace {
		if rc.IsAdmin() {
			return nil
		}
		return domain.Forbidden("workspace management requires administrator")
	}

	active := rc.Active()
	if active.IsArchived && op.Mutates() {
		return domain.Forbidden("workspace archived")
	}

	role := active.Role
	switch op {
	case domain.OpRead:
		if can(role, capRead) {
			return nil
		}
	case domain.OpCreate:
		if can(role, capCreate) {
			return nil
		}
	case domain.OpUpdate:
		if can(role, capUpdateAny) {
			return nil
		}
		if can(role, capUpdateOwn) && (target == nil || ownedBy(target, rc.IdentityKey())) {
			return nil
		}
	case domain.OpDelete:
		if can(role, capDelete) {
			return nil
		}
	case domain.OpManageMembers:
		if rc.IsAdmin() || can(role, capManageMembers) {
			return nil
		}
	default:
		return domain.Forbidden("unknown operation " + string(op))
	}
	return domain.Forbidden(string(role) + " may not " + string(op))
}

// AuthorizeManagement decides management operations that target a workspace
// other than (or without) an active one: org-level workspace administration,
// membership changes, and viewing members or audit entries (op read).
func AuthorizeManagement(actor *domain.Actor, ws *domain.Workspace, op domain.Operation) error {
	if actor == nil {
		return domain.Forbidden("no actor")
	}
	admin := actor.Identity.IsAdmin

	switch op {
	case domain.OpManageWorkspace:
		if admin {
			return nil
		}
		return domain.Forbidden("workspace management requires administrator")
	case domain.OpManageMembers, domain.OpRead:
		if ws == nil {
			return domain.Forbidden("no workspace")
		}
		if ws.IsArchived && op.Mutates() {
			return domain.Forbidden("workspace archived")
		}
		if admin {
			return nil
		}
		if role, ok := actor.RoleIn(ws.ID); ok && can(role, capManageMembers) {
			return nil
		}
		return domain.Forbidden("member management requires chair")
	default:
		return domain.Forbidden("unsupported management operation " + string(op))
	}
}

func ownedBy(target *domain.EntityRef, identityKey string) bool {
	return target.CreatedBy != "" && domain.NormalizeKey(target.CreatedBy) == domain.NormalizeKey(identityKey)
}
