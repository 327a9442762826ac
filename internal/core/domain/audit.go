package domain

import "time"

// MaxAuditDetail caps the free-text detail stored with an audit entry, in runes.
const MaxAuditDetail = 500

// AuditEntry is an append-only record of a successful mutation.
type AuditEntry struct {
	ID            string       `json:"id"`
	IdentityKey   string       `json:"identity_key"`
	WorkspaceID   string       `json:"workspace_id"`
	WorkspaceName string       `json:"workspace_name"`
	Operation     Operation    `json:"operation"`
	EntityType    string       `json:"entity_type"`
	EntityID      string       `json:"entity_id,omitempty"`
	Detail        string       `json:"detail,omitempty"`
	AccessMethod  AccessMethod `json:"access_method"`
	Timestamp     time.Time    `json:"timestamp"`
}

// TruncateDetail shortens s to at most MaxAuditDetail runes.
func TruncateDetail(s string) string {
	r := []rune(s)
	if len(r) <= MaxAuditDetail {
		return s
	}
	return string(r[:MaxAuditDetail])
}
