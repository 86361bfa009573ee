package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind is the registry-independent failure taxonomy. Every registry
// failure is mapped onto one of these before it leaves the engine.
type ErrorKind string

const (
	KindAuthFailure       ErrorKind = "auth_failure"
	KindPermissionDenied  ErrorKind = "permission_denied"
	KindValidationFailure ErrorKind = "validation_failure"
	KindObjectNotFound    ErrorKind = "object_not_found"
	KindRateLimited       ErrorKind = "rate_limited"
	KindUnknown           ErrorKind = "unknown"
)

var (
	ErrAuthFailure       = errors.New("registry authentication failed")
	ErrPermissionDenied  = errors.New("registry permission denied")
	ErrValidationFailure = errors.New("registry rejected input")
	ErrObjectNotFound    = errors.New("registry object does not exist")
	ErrRateLimited       = errors.New("registry rate limit exceeded")
	ErrRegistryUnknown   = errors.New("registry error")
)

func (k ErrorKind) sentinel() error {
	switch k {
	case KindAuthFailure:
		return ErrAuthFailure
	case KindPermissionDenied:
		return ErrPermissionDenied
	case KindValidationFailure:
		return ErrValidationFailure
	case KindObjectNotFound:
		return ErrObjectNotFound
	case KindRateLimited:
		return ErrRateLimited
	default:
		return ErrRegistryUnknown
	}
}

// RegistryError is a classified registry failure. Request and Response hold
// the raw protocol payloads for operator debugging.
type RegistryError struct {
	Kind     ErrorKind
	Registry string
	Command  string
	Code     int
	Message  string
	Fields   []string
	Request  []byte
	Response []byte
	Cause    error
}

func (e *RegistryError) Error() string {
	var b strings.Builder
	b.WriteString("registry")
	if e.Registry != "" {
		fmt.Fprintf(&b, " %s", e.Registry)
	}
	fmt.Fprintf(&b, " [%s]", e.Kind)
	if e.Command != "" {
		fmt.Fprintf(&b, " %s", e.Command)
	}
	if e.Code != 0 {
		fmt.Fprintf(&b, ": %d", e.Code)
	}
	if e.Message != "" {
		fmt.Fprintf(&b, " %s", e.Message)
	}
	if len(e.Fields) > 0 {
		fmt.Fprintf(&b, " (fields: %s)", strings.Join(e.Fields, ", "))
	}
	if e.Cause != nil {
		fmt.Fprintf(&b, ": %v", e.Cause)
	}
	return b.String()
}

func (e *RegistryError) Unwrap() error {
	return e.Cause
}

// Is lets callers match a classified error against the kind sentinels, e.g.
// errors.Is(err, domain.ErrObjectNotFound).
func (e *RegistryError) Is(target error) bool {
	return target == e.Kind.sentinel()
}

// KindOf extracts the kind of a classified error. Unclassified errors are
// reported as KindUnknown.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var re *RegistryError
	if errors.As(err, &re) {
		return re.Kind
	}
	return KindUnknown
}

// IsKind reports whether err is a classified error of kind k.
func IsKind(err error, k ErrorKind) bool {
	var re *RegistryError
	if errors.As(err, &re) {
		return re.Kind == k
	}
	return false
}
