// Package apperror defines the error taxonomy shared by every service.
//
// Domain packages declare their sentinel errors with the constructors in this
// package, so callers can match either a specific condition
// (errors.Is(err, productdomain.ErrInvalidSKU)) or a whole class
// (errors.Is(err, apperror.ErrValidation)).
package apperror

import (
	"errors"
	"fmt"
)

// Kind classifies an error for transport mapping.
type Kind string

const (
	KindValidation Kind = "validation_error"
	KindNotFound   Kind = "not_found"
	KindConflict   Kind = "conflict"
	KindStorage    Kind = "storage_error"
	KindInternal   Kind = "internal_error"
)

// Error is the concrete error carried through the service layer.
type Error struct {
	Kind  Kind
	Field string
	Code  string
	Err   error
}

var (
	ErrValidation = &Error{Kind: KindValidation}
	ErrNotFound   = &Error{Kind: KindNotFound}
	ErrConflict   = &Error{Kind: KindConflict}
	ErrStorage    = &Error{Kind: KindStorage}
	ErrInternal   = &Error{Kind: KindInternal}
)

func (e *Error) Error() string {
	code := e.Code
	if code == "" {
		code = string(e.Kind)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", code, e.Err)
	}
	return code
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches class sentinels (no code) by kind, everything else by kind, field and code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || t == nil {
		return false
	}
	if t.Code == "" {
		return t.Kind == e.Kind
	}
	return t.Kind == e.Kind && t.Code == e.Code && t.Field == e.Field
}

// NewValidation declares a validation sentinel for a field.
func NewValidation(field, code string) *Error {
	return &Error{Kind: KindValidation, Field: field, Code: code}
}

// NewNotFound declares a not-found sentinel for an entity.
func NewNotFound(entity string) *Error {
	return &Error{Kind: KindNotFound, Field: entity, Code: entity + "_not_found"}
}

// NewConflict declares a conflict sentinel for a field.
func NewConflict(field, code string) *Error {
	return &Error{Kind: KindConflict, Field: field, Code: code}
}

// Storage wraps a store failure. The operation name ends up in the code so
// logs show which write failed.
func Storage(op string, err error) error {
	if err == nil {
		return nil
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return err
	}
	return &Error{Kind: KindStorage, Field: op, Code: "storage_error", Err: err}
}

// Internal wraps an invariant violation detected at runtime.
func Internal(code string, err error) error {
	return &Error{Kind: KindInternal, Code: code, Err: err}
}

// KindOf reports the kind of err, or KindInternal when err is not an *Error.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// As returns the first *Error in the chain of err.
func As(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

func IsValidation(err error) bool { return errors.Is(err, ErrValidation) }
func IsNotFound(err error) bool   { return errors.Is(err, ErrNotFound) }
func IsConflict(err error) bool   { return errors.Is(err, ErrConflict) }
func IsStorage(err error) bool    { return errors.Is(err, ErrStorage) }
