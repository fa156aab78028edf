package normalizer

import (
	"errors"
	"fmt"

	language "github.com/hanpama/gqlengine/internal/language"
)

// ErrorKind classifies a normalization failure.
type ErrorKind string

const (
	UnknownOperation       ErrorKind = "UnknownOperation"
	AmbiguousOperation     ErrorKind = "AmbiguousOperation"
	UnknownRootType        ErrorKind = "UnknownRootType"
	UnknownType            ErrorKind = "UnknownType"
	VariableTypeInputable  ErrorKind = "VariableTypeInputable"
	DuplicateVariable      ErrorKind = "DuplicateVariable"
	UnknownField           ErrorKind = "UnknownField"
	SelectionMismatch      ErrorKind = "SelectionMismatch"
	UnknownArgument        ErrorKind = "UnknownArgument"
	UnknownVariable        ErrorKind = "UnknownVariable"
	VariableTypeMismatch   ErrorKind = "VariableTypeMismatch"
	UnknownFragment        ErrorKind = "UnknownFragment"
	FragmentCycle          ErrorKind = "FragmentCycle"
	FragmentOnNonComposite ErrorKind = "FragmentOnNonComposite"
	FragmentTypeMismatch   ErrorKind = "FragmentTypeMismatch"
	FieldConflict          ErrorKind = "FieldConflict"
	UnknownDirective       ErrorKind = "UnknownDirective"
	DirectiveLocation      ErrorKind = "DirectiveLocation"
	DuplicateDirective     ErrorKind = "DuplicateDirective"
	DirectiveUsage         ErrorKind = "DirectiveUsage"
	// Coercion wraps a *schema.CoercionError raised while binding a literal.
	Coercion ErrorKind = "Coercion"
)

// Error is a located normalization failure. The whole request fails with it
// before any resolver runs.
type Error struct {
	Kind      ErrorKind
	Message   string
	Locations []language.Location
	Err       error
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Err }

// IsKind reports whether err is a normalization Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var ne *Error
	return errors.As(err, &ne) && ne.Kind == kind
}

func errorf(kind ErrorKind, pos *language.Position, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Locations: language.LocationOf(pos)}
}

func wrap(kind ErrorKind, pos *language.Position, err error) *Error {
	return &Error{Kind: kind, Message: err.Error(), Locations: language.LocationOf(pos), Err: err}
}
