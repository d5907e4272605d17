// Package diagnostics is the typed error taxonomy every pass in the
// pipeline reports through. It follows the fluent builder idiom of
// internal/errors.go in the teacher repo (NewX().WithY().WithZ()) rather
// than a plain struct literal, so call sites read as a sentence and every
// diagnostic carries a stable code regardless of which pass raised it.
package diagnostics

import (
	"fmt"

	"github.com/standardbeagle/rbtc/internal/core"
)

// Code is a stable, stringly-typed identifier for one diagnostic kind. It
// never changes meaning across releases; new diagnostics get a new Code
// rather than reusing one.
type Code string

const (
	CodeUnresolvedConstant    Code = "unresolved-constant"
	CodeRedefinedClassAsModule Code = "redefined-class-as-module"
	CodeMethodRedefinedArity  Code = "method-redefined-arity-mismatch"
	CodeUnresolvedMethod      Code = "unresolved-method"
	CodeTypeMismatch          Code = "type-mismatch"
	CodeArgCountMismatch      Code = "arg-count-mismatch"
	CodeArgTypeMismatch       Code = "arg-type-mismatch"
	CodeReturnTypeMismatch    Code = "return-type-mismatch"
	CodeDeadBranch            Code = "dead-branch"
	CodeCastToUntyped         Code = "cast-to-untyped"
	CodeAbstractMethodCalled  Code = "abstract-method-called"
	CodeInternalPassError     Code = "internal-pass-error"
)

// Severity buckets a Code for display/filtering.
type Severity uint8

const (
	SeverityError Severity = iota
	SeverityWarning
	SeverityInfo
)

// Diagnostic is one reported problem, addressable at a source location.
type Diagnostic struct {
	code       Code
	severity   Severity
	loc        core.Loc
	message    string
	suggestion string
}

// New starts a builder for code at loc. Chain With* calls on the result.
func New(code Code, loc core.Loc, message string) *Diagnostic {
	return &Diagnostic{code: code, severity: SeverityError, loc: loc, message: message}
}

// WithSeverity overrides the default SeverityError.
func (d *Diagnostic) WithSeverity(s Severity) *Diagnostic {
	d.severity = s
	return d
}

// WithSuggestion attaches a "did you mean X?" hint.
func (d *Diagnostic) WithSuggestion(s string) *Diagnostic {
	d.suggestion = s
	return d
}

func (d *Diagnostic) Code() Code           { return d.code }
func (d *Diagnostic) Severity() Severity   { return d.severity }
func (d *Diagnostic) Loc() core.Loc        { return d.loc }
func (d *Diagnostic) Message() string      { return d.message }
func (d *Diagnostic) Suggestion() string   { return d.suggestion }

// Error implements the error interface so a Diagnostic can travel through
// ordinary Go error-handling paths (e.g. a pass that must abort returns one
// wrapped in an error).
func (d *Diagnostic) Error() string {
	if d.suggestion != "" {
		return fmt.Sprintf("%s: %s (did you mean %q?)", d.code, d.message, d.suggestion)
	}
	return fmt.Sprintf("%s: %s", d.code, d.message)
}
