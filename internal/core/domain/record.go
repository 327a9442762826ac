package domain

import "time"

// RecordType is the kind of business record stored in a tenant store.
type RecordType string

const (
	RecordMeeting  RecordType = "meetings"
	RecordAction   RecordType = "actions"
	RecordDecision RecordType = "decisions"
)

// ParseRecordType validates s as a RecordType.
func ParseRecordType(s string) (RecordType, error) {
	switch t := RecordType(s); t {
	case RecordMeeting, RecordAction, RecordDecision:
		return t, nil
	default:
		return "", ErrRecordNotFound
	}
}

// Record is a meeting, action item or decision inside one workspace.
type Record struct {
	ID        string     `json:"id"`
	Type      RecordType `json:"type"`
	Title     string     `json:"title"`
	Content   string     `json:"content,omitempty"`
	Status    string     `json:"status,omitempty"`
	CreatedBy string     `json:"created_by"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Ref returns the permission target for r.
func (r *Record) Ref() *EntityRef {
	return &EntityRef{Type: string(r.Type), ID: r.ID, CreatedBy: r.CreatedBy}
}

// RecordPatch carries the optional fields of an update. Nil means unchanged.
type RecordPatch struct {
	Title   *string
	Content *string
	Status  *string
}

// Empty reports whether the patch changes nothing.
func (p RecordPatch) Empty() bool {
	return p.Title == nil && p.Content == nil && p.Status == nil
}
