package sym

import (
	"errors"
	"fmt"
	"strings"
)

// TemplateError represents an error detected while constructing,
// rewriting, or evaluating an operator template.
//
// Template errors include:
//   - Tag mismatch: a boundary-side node carries a tag inconsistent with
//     its enclosing boundary pair
//   - Boundary namespace: a quantity used as both a volume and a boundary
//     dependency of the same pair
//   - Illegal boundary operator: an operator that cannot act on boundary
//     data appears in a boundary-side expression
//   - Unbound variable: evaluation found no environment entry for a name
//
// TemplateError includes structured fields so callers can react to the
// category and the offending tags or names rather than parse messages.
type TemplateError struct {
	// Code identifies the error category.
	Code TemplateErrorCode

	// Message is a human-readable description.
	Message string

	// Tag is the offending tag (tag mismatch, illegal boundary operator).
	Tag Tag

	// WantTag is the tag the enclosing boundary pair carries.
	WantTag Tag

	// Names lists the offending quantities (boundary namespace errors),
	// sorted.
	Names []string

	// Op renders the offending operator (illegal boundary operator,
	// bad operand errors).
	Op string
}

// TemplateErrorCode categorizes template errors.
type TemplateErrorCode string

const (
	// ErrCodeTagMismatch indicates a boundary-side node disagrees with its
	// pair's tag.
	ErrCodeTagMismatch TemplateErrorCode = "TAG_MISMATCH"

	// ErrCodeBoundaryNamespace indicates a quantity is used as both a
	// volume and a boundary dependency.
	ErrCodeBoundaryNamespace TemplateErrorCode = "BOUNDARY_NAMESPACE"

	// ErrCodeIllegalBoundaryOp indicates an operator that cannot act on
	// boundary data inside a boundary-side expression.
	ErrCodeIllegalBoundaryOp TemplateErrorCode = "ILLEGAL_BOUNDARY_OP"

	// ErrCodeUnboundVariable indicates evaluation found no binding for a
	// variable or scalar parameter.
	ErrCodeUnboundVariable TemplateErrorCode = "UNBOUND_VARIABLE"

	// ErrCodeBadOperand indicates a value or node of the wrong shape for
	// the operation applied to it.
	ErrCodeBadOperand TemplateErrorCode = "BAD_OPERAND"

	// ErrCodeInternal indicates a broken invariant inside the package,
	// such as an unhandled node variant.
	ErrCodeInternal TemplateErrorCode = "INTERNAL"
)

// Error implements the error interface.
func (e *TemplateError) Error() string {
	switch {
	case e.Code == ErrCodeTagMismatch && e.WantTag != "":
		return fmt.Sprintf("%s: %s (tag=%s, want=%s)", e.Code, e.Message, e.Tag, e.WantTag)
	case len(e.Names) > 0:
		return fmt.Sprintf("%s: %s: %s", e.Code, e.Message, strings.Join(e.Names, ", "))
	case e.Op != "":
		return fmt.Sprintf("%s: %s (op=%s)", e.Code, e.Message, e.Op)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsTagMismatch returns true if the error is a tag mismatch.
// Uses errors.As to handle wrapped errors.
func IsTagMismatch(err error) bool { return hasCode(err, ErrCodeTagMismatch) }

// IsBoundaryNamespace returns true if the error is a volume/boundary
// namespace collision.
func IsBoundaryNamespace(err error) bool { return hasCode(err, ErrCodeBoundaryNamespace) }

// IsIllegalBoundaryOp returns true if the error is an illegal boundary
// operator.
func IsIllegalBoundaryOp(err error) bool { return hasCode(err, ErrCodeIllegalBoundaryOp) }

// IsUnboundVariable returns true if the error is an unbound variable.
func IsUnboundVariable(err error) bool { return hasCode(err, ErrCodeUnboundVariable) }

// IsBadOperand returns true if the error is a bad operand.
func IsBadOperand(err error) bool { return hasCode(err, ErrCodeBadOperand) }

func hasCode(err error, code TemplateErrorCode) bool {
	var te *TemplateError
	if errors.As(err, &te) {
		return te.Code == code
	}
	return false
}

// NewTagMismatchError creates a TemplateError for a boundary-side node
// whose tag disagrees with the enclosing pair.
func NewTagMismatchError(got, want Tag, what string) *TemplateError {
	return &TemplateError{
		Code:    ErrCodeTagMismatch,
		Message: fmt.Sprintf("%s tagged inconsistently with enclosing boundary pair", what),
		Tag:     got,
		WantTag: want,
	}
}

// NewBoundaryNamespaceError creates a TemplateError for quantities used on
// both sides of a boundary pair.
func NewBoundaryNamespaceError(names []string) *TemplateError {
	return &TemplateError{
		Code:    ErrCodeBoundaryNamespace,
		Message: "quantities used as both boundary and volume data",
		Names:   names,
	}
}

// NewIllegalBoundaryOpError creates a TemplateError for an operator bound
// to boundary data it cannot act on.
func NewIllegalBoundaryOpError(op Operator) *TemplateError {
	return &TemplateError{
		Code:    ErrCodeIllegalBoundaryOp,
		Message: "operator cannot be applied to boundary data",
		Op:      FormatOp(op),
	}
}

// NewUnboundVariableError creates a TemplateError for a name with no
// environment entry.
func NewUnboundVariableError(name string) *TemplateError {
	return &TemplateError{
		Code:    ErrCodeUnboundVariable,
		Message: fmt.Sprintf("no value bound for %q", name),
	}
}

// NewBadOperandError creates a TemplateError for a value or node of the
// wrong shape for the operation applied to it.
func NewBadOperandError(format string, args ...any) *TemplateError {
	return badOperandErr(format, args...)
}

func internalErr(format string, args ...any) *TemplateError {
	return &TemplateError{
		Code:    ErrCodeInternal,
		Message: fmt.Sprintf(format, args...),
	}
}

func badOperandErr(format string, args ...any) *TemplateError {
	return &TemplateError{
		Code:    ErrCodeBadOperand,
		Message: fmt.Sprintf(format, args...),
	}
}
