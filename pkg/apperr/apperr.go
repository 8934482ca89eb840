// Package apperr classifies domain errors into a small set of kinds with
// stable machine-readable codes.
package apperr

import "errors"

type Kind string

const (
	KindNotFound            Kind = "not_found"
	KindValidation          Kind = "validation_error"
	KindConflict            Kind = "conflict"
	KindDomainRuleViolation Kind = "domain_rule_violation"
	KindUnauthorized        Kind = "unauthorized"
	KindForbidden           Kind = "forbidden"
)

// Error is a sentinel domain error. Instances are compared by identity, so
// declare them once as package-level vars and wrap with %w when adding context.
type Error struct {
	Kind Kind
	Code string
}

func (e *Error) Error() string {
	return e.Code
}

func New(kind Kind, code string) *Error {
	return &Error{Kind: kind, Code: code}
}

func NotFound(code string) *Error            { return New(KindNotFound, code) }
func Validation(code string) *Error          { return New(KindValidation, code) }
func Conflict(code string) *Error            { return New(KindConflict, code) }
func DomainRuleViolation(code string) *Error { return New(KindDomainRuleViolation, code) }
func Unauthorized(code string) *Error        { return New(KindUnauthorized, code) }
func Forbidden(code string) *Error           { return New(KindForbidden, code) }

// As extracts the first *Error in err's chain.
func As(err error) (*Error, bool) {
	var target *Error
	if errors.As(err, &target) && target != nil {
		return target, true
	}
	return nil, false
}

// KindOf returns the kind of err, or the empty kind when err is not classified.
func KindOf(err error) Kind {
	if e, ok := As(err); ok {
		return e.Kind
	}
	return ""
}

func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
