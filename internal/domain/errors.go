package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for the domain layer. Every typed error below matches one
// of these through errors.Is, so callers can branch without type switches.
var (
	ErrNotFound           = errors.New("domain: not found")
	ErrConflict           = errors.New("domain: conflict")
	ErrUnauthorized       = errors.New("domain: unauthorized")
	ErrForbidden          = errors.New("domain: forbidden")
	ErrInvalidCredentials = errors.New("domain: invalid credentials")
	ErrTenantStatus       = errors.New("domain: tenant not active")
	ErrInvalidReference   = errors.New("domain: invalid reference")
	ErrStatement          = errors.New("domain: malformed statement")
	ErrStorage            = errors.New("domain: storage failure")
	ErrValidation         = errors.New("domain: validation failed")
)

// ErrTenantRequired is returned when a tenant-owned table is touched in
// multi-tenant mode without a tenant context.
var ErrTenantRequired = &PermissionError{Action: "access tenant data without a tenant context"}

// StatementError reports a statement that could not be dispatched, such as a
// placeholder/value count mismatch or a forbidden tenant column.
type StatementError struct {
	Query  string
	Reason string
}

func (e *StatementError) Error() string {
	return "statement: " + e.Reason
}

func (e *StatementError) Is(target error) bool { return target == ErrStatement }

// StorageKind classifies a backend failure.
type StorageKind int

const (
	StorageOther StorageKind = iota
	StorageConnectivity
	StorageConstraint
)

func (k StorageKind) String() string {
	switch k {
	case StorageConnectivity:
		return "connectivity"
	case StorageConstraint:
		return "constraint"
	default:
		return "other"
	}
}

// StorageError wraps a native backend error. The message of the native error
// is preserved; Unique marks unique-constraint violations.
type StorageError struct {
	Op      string
	Backend string
	Kind    StorageKind
	Unique  bool
	Err     error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s (%s, %s): %v", e.Op, e.Backend, e.Kind, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func (e *StorageError) Is(target error) bool {
	switch target {
	case ErrStorage:
		return true
	case ErrConflict:
		return e.Unique
	}
	return false
}

// Retryable reports whether the failure is transient. The core never retries
// on its own; callers decide.
func (e *StorageError) Retryable() bool { return e.Kind == StorageConnectivity }

// ReferenceError is returned when a foreign id does not resolve inside the
// current tenant.
type ReferenceError struct {
	Field string
	ID    string
}

func (e *ReferenceError) Error() string {
	return fmt.Sprintf("reference %s=%q does not exist", e.Field, e.ID)
}

func (e *ReferenceError) Is(target error) bool { return target == ErrInvalidReference }

// PermissionError is returned when an authorization decision denies an action.
type PermissionError struct {
	Action string
}

func (e *PermissionError) Error() string {
	return "permission denied: " + e.Action
}

func (e *PermissionError) Is(target error) bool { return target == ErrForbidden }

// NotFoundError is returned for missing rows and for cross-tenant reads, which
// must be indistinguishable from missing rows.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	if e.ID == "" {
		return e.Resource + " not found"
	}
	return fmt.Sprintf("%s %q not found", e.Resource, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// TenantStatusError is returned at login when the user's tenant is not active.
type TenantStatusError struct {
	Slug   string
	Status TenantStatus
}

func (e *TenantStatusError) Error() string {
	return fmt.Sprintf("tenant %q is %s", e.Slug, e.Status)
}

func (e *TenantStatusError) Is(target error) bool { return target == ErrTenantStatus }

// ValidationError reports an input that fails a domain rule.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Reason
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }
