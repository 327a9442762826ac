package domain

import "errors"

// Access-control failures. Callers outside the core only ever see the
// sentinel; the reason travels inside Denial and is meant for logs.
var (
	ErrUnauthenticated         = errors.New("authentication failed")
	ErrForbidden               = errors.New("access denied")
	ErrControlStoreUnavailable = errors.New("control store unavailable")
)

// Storage failures.
var (
	ErrTransientStorage   = errors.New("transient storage fault")
	ErrStorageUnavailable = errors.New("storage unavailable")
	ErrRegistryClosed     = errors.New("connection registry closed")
)

// Lookup and input failures.
var (
	ErrRecordNotFound     = errors.New("record not found")
	ErrWorkspaceNotFound  = errors.New("workspace not found")
	ErrWorkspaceExists    = errors.New("workspace already exists")
	ErrIdentityNotFound   = errors.New("identity not found")
	ErrCredentialNotFound = errors.New("credential not found")
	ErrMembershipNotFound = errors.New("membership not found")
	ErrMembershipExists   = errors.New("membership already exists")
	ErrInvalidInput       = errors.New("invalid input")
)

// Denial is an AuthenticationFailure or AuthorizationFailure with the
// internal reason attached. Error() deliberately omits the reason.
type Denial struct {
	Kind   error
	Reason string
}

func (d *Denial) Error() string { return d.Kind.Error() }

func (d *Denial) Unwrap() error { return d.Kind }

// Unauthenticated returns an AuthenticationFailure carrying reason.
func Unauthenticated(reason string) error {
	return &Denial{Kind: ErrUnauthenticated, Reason: reason}
}

// Forbidden returns an AuthorizationFailure carrying reason.
func Forbidden(reason string) error {
	return &Denial{Kind: ErrForbidden, Reason: reason}
}

// DenialReason extracts the internal reason from err, or "" if err is not a Denial.
func DenialReason(err error) string {
	var d *Denial
	if errors.As(err, &d) {
		return d.Reason
	}
	return ""
}
