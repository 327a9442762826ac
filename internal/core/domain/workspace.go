package domain

import (
	"regexp"
	"time"
)

// BackingStoreID names a tenant data store. It is an opaque handle: only the
// connection registry turns it into a usable pool.
type BackingStoreID string

// Workspace is a tenant partition with its own backing store.
type Workspace struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	DisplayName  string         `json:"display_name"`
	BackingStore BackingStoreID `json:"-"`
	IsDefault    bool           `json:"is_default"`
	IsArchived   bool           `json:"is_archived"`
	CreatedAt    time.Time      `json:"created_at"`
}

var slugPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]{0,98}[a-z0-9]$`)

var reservedNames = map[string]struct{}{
	"admin": {}, "api": {}, "mcp": {}, "sse": {}, "health": {}, "oauth": {},
	"default": {}, "system": {}, "control": {}, "master": {},
}

// ValidateWorkspaceName reports whether name is a usable workspace slug:
// lower-case letters, digits and hyphens, 2-100 characters, not reserved.
func ValidateWorkspaceName(name string) error {
	if !slugPattern.MatchString(name) {
		return ErrInvalidInput
	}
	if _, reserved := reservedNames[name]; reserved {
		return ErrInvalidInput
	}
	return nil
}
