package vellum

import (
	"errors"
	"fmt"
	"strings"
)

// Standard sentinel errors. Every typed error in this package reports
// errors.Is against exactly one of them.
var (
	// ErrInvalidArgument is returned when a caller supplies a malformed input.
	ErrInvalidArgument = errors.New("vellum: invalid argument")

	// ErrNotFound is returned when a table, column, alias or parameter does not exist.
	ErrNotFound = errors.New("vellum: not found")

	// ErrUnsupportedExpression is returned when a predicate node cannot be compiled.
	ErrUnsupportedExpression = errors.New("vellum: unsupported expression")

	// ErrAmbiguousAlias is returned when an alias is registered twice in one builder.
	ErrAmbiguousAlias = errors.New("vellum: ambiguous alias")

	// ErrTokenReplaceFailure is returned when a parameter token could not be
	// located while rewriting statement text.
	ErrTokenReplaceFailure = errors.New("vellum: token replace failure")

	// ErrUncoveredIndex is returned when a keyset column list is not backed by
	// a unique index or the primary key.
	ErrUncoveredIndex = errors.New("vellum: uncovered index")
)

// NotFoundError represents a missing catalog object or builder reference.
type NotFoundError struct {
	kind string
	name string
}

// Error returns the error string.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("vellum: %s %q not found", e.kind, e.name)
}

// Is reports whether the target error matches NotFoundError.
// This allows errors.Is(notFoundErr, ErrNotFound) to return true.
func (e *NotFoundError) Is(err error) bool {
	return err == ErrNotFound
}

// Kind returns the kind of the missing object (table, column, alias, parameter).
func (e *NotFoundError) Kind() string {
	return e.kind
}

// Name returns the name that was looked up.
func (e *NotFoundError) Name() string {
	return e.name
}

// NewNotFoundError returns a new NotFoundError for the given object kind and name.
func NewNotFoundError(kind, name string) *NotFoundError {
	return &NotFoundError{kind: kind, name: name}
}

// IsNotFound returns true if the error is a NotFoundError.
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	var e *NotFoundError
	return errors.As(err, &e) || errors.Is(err, ErrNotFound)
}

// InvalidArgumentError represents a rejected argument.
type InvalidArgumentError struct {
	Name    string
	Message string
}

// Error returns the error string.
func (e *InvalidArgumentError) Error() string {
	if e.Name == "" {
		return "vellum: invalid argument: " + e.Message
	}
	return fmt.Sprintf("vellum: invalid argument %q: %s", e.Name, e.Message)
}

// Is reports whether the target error matches ErrInvalidArgument.
func (e *InvalidArgumentError) Is(err error) bool {
	return err == ErrInvalidArgument
}

// NewInvalidArgumentError returns a new InvalidArgumentError.
func NewInvalidArgumentError(name, format string, args ...any) *InvalidArgumentError {
	return &InvalidArgumentError{Name: name, Message: fmt.Sprintf(format, args...)}
}

// IsInvalidArgument returns true if the error is an InvalidArgumentError.
func IsInvalidArgument(err error) bool {
	if err == nil {
		return false
	}
	var e *InvalidArgumentError
	return errors.As(err, &e) || errors.Is(err, ErrInvalidArgument)
}

// UnsupportedExpressionError is returned by the predicate compiler for a node
// it does not know how to render.
type UnsupportedExpressionError struct {
	Expr   string
	Reason string
}

// Error returns the error string.
func (e *UnsupportedExpressionError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("vellum: unsupported expression %s", e.Expr)
	}
	return fmt.Sprintf("vellum: unsupported expression %s: %s", e.Expr, e.Reason)
}

// Is reports whether the target error matches ErrUnsupportedExpression.
func (e *UnsupportedExpressionError) Is(err error) bool {
	return err == ErrUnsupportedExpression
}

// NewUnsupportedExpressionError returns an error for the given node. The node
// is described by its Go type.
func NewUnsupportedExpressionError(node any, reason string) *UnsupportedExpressionError {
	return &UnsupportedExpressionError{Expr: fmt.Sprintf("%T", node), Reason: reason}
}

// IsUnsupportedExpression returns true if the error is an UnsupportedExpressionError.
func IsUnsupportedExpression(err error) bool {
	if err == nil {
		return false
	}
	var e *UnsupportedExpressionError
	return errors.As(err, &e) || errors.Is(err, ErrUnsupportedExpression)
}

// AmbiguousAliasError is returned when a join alias is already taken.
type AmbiguousAliasError struct {
	Alias string
}

// Error returns the error string.
func (e *AmbiguousAliasError) Error() string {
	return fmt.Sprintf("vellum: alias %q is already in use", e.Alias)
}

// Is reports whether the target error matches ErrAmbiguousAlias.
func (e *AmbiguousAliasError) Is(err error) bool {
	return err == ErrAmbiguousAlias
}

// IsAmbiguousAlias returns true if the error is an AmbiguousAliasError.
func IsAmbiguousAlias(err error) bool {
	if err == nil {
		return false
	}
	var e *AmbiguousAliasError
	return errors.As(err, &e) || errors.Is(err, ErrAmbiguousAlias)
}

// TokenReplaceError is returned when rewriting a parameter token found no
// complete occurrence of it in the statement text.
type TokenReplaceError struct {
	Token       string
	Replacement string
}

// Error returns the error string.
func (e *TokenReplaceError) Error() string {
	return fmt.Sprintf("vellum: token %q not found while rewriting to %q", e.Token, e.Replacement)
}

// Is reports whether the target error matches ErrTokenReplaceFailure.
func (e *TokenReplaceError) Is(err error) bool {
	return err == ErrTokenReplaceFailure
}

// IsTokenReplaceFailure returns true if the error is a TokenReplaceError.
func IsTokenReplaceFailure(err error) bool {
	if err == nil {
		return false
	}
	var e *TokenReplaceError
	return errors.As(err, &e) || errors.Is(err, ErrTokenReplaceFailure)
}

// UncoveredIndexError is returned when no unique index or primary key starts
// with the requested key columns.
type UncoveredIndexError struct {
	Table   string
	Columns []string
}

// Error returns the error string.
func (e *UncoveredIndexError) Error() string {
	return fmt.Sprintf("vellum: columns (%s) of %s are not covered by a unique index or primary key",
		strings.Join(e.Columns, ", "), e.Table)
}

// Is reports whether the target error matches ErrUncoveredIndex.
func (e *UncoveredIndexError) Is(err error) bool {
	return err == ErrUncoveredIndex
}

// IsUncoveredIndex returns true if the error is an UncoveredIndexError.
func IsUncoveredIndex(err error) bool {
	if err == nil {
		return false
	}
	var e *UncoveredIndexError
	return errors.As(err, &e) || errors.Is(err, ErrUncoveredIndex)
}
