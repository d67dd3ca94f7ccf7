package scans

import (
	"errors"
	"fmt"
)

// Kind classifies pipeline failures.
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindAuthorization
	KindNotFound
	KindStorage
	KindAnalysis
	KindRepository
	KindNotify
	KindRender
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuthorization:
		return "authorization"
	case KindNotFound:
		return "not found"
	case KindStorage:
		return "storage"
	case KindAnalysis:
		return "analysis"
	case KindRepository:
		return "repository"
	case KindNotify:
		return "notify"
	case KindRender:
		return "render"
	default:
		return "unknown"
	}
}

// Error is the tagged error every component returns. Op names the failing
// operation, e.g. "blob.store" or "repo.create".
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Op == "" && e.Err == nil:
		return e.Kind.String() + " error"
	case e.Err == nil:
		return fmt.Sprintf("%s: %s error", e.Op, e.Kind)
	case e.Op == "":
		return fmt.Sprintf("%s error: %v", e.Kind, e.Err)
	default:
		return fmt.Sprintf("%s: %s error: %v", e.Op, e.Kind, e.Err)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the bare sentinels below by kind, so
// errors.Is(err, ErrNotFound) works for any wrapped not-found error.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || t.Op != "" || t.Err != nil {
		return false
	}
	return t.Kind == e.Kind
}

var (
	ErrValidation    = &Error{Kind: KindValidation}
	ErrAuthorization = &Error{Kind: KindAuthorization}
	ErrNotFound      = &Error{Kind: KindNotFound}
	ErrStorage       = &Error{Kind: KindStorage}
	ErrAnalysis      = &Error{Kind: KindAnalysis}
	ErrRepository    = &Error{Kind: KindRepository}
	ErrNotify        = &Error{Kind: KindNotify}
	ErrRender        = &Error{Kind: KindRender}
)

// E wraps err with kind and op. An err that already carries a kind keeps it.
func E(kind Kind, op string, err error) error {
	var existing *Error
	if err != nil && errors.As(err, &existing) {
		return &Error{Kind: existing.Kind, Op: op, Err: err}
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// Errorf builds a tagged error from a format string.
func Errorf(kind Kind, op, format string, args ...any) error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// KindOf returns the kind of the outermost tagged error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
