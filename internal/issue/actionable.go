// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"errors"
	"strings"
)

// ActionableError is a user-facing error: the operation that failed, the
// file it concerned and what the user can do about it.
//
//	return issue.Wrap(err, "load configuration").
//		WithResource("/etc/kmodule/config.cue").
//		Suggest("Check that the file contains valid CUE syntax")
type ActionableError struct {
	// Operation is a verb phrase such as "insert module".
	Operation string
	// Resource is the file or module involved, if any.
	Resource    string
	Suggestions []string
	Cause       error
}

// Wrap attaches operation to err. It returns nil for a nil err.
func Wrap(err error, operation string) *ActionableError {
	if err == nil {
		return nil
	}
	return &ActionableError{Operation: operation, Cause: err}
}

// WithResource sets the file or module the operation concerned.
func (e *ActionableError) WithResource(resource string) *ActionableError {
	e.Resource = resource
	return e
}

// Suggest appends hints for fixing the problem.
func (e *ActionableError) Suggest(hints ...string) *ActionableError {
	e.Suggestions = append(e.Suggestions, hints...)
	return e
}

// Error returns "failed to <operation>[: <resource>][: <cause>]".
func (e *ActionableError) Error() string {
	parts := []string{"failed to " + e.Operation}
	if e.Resource != "" {
		parts = append(parts, e.Resource)
	}
	if e.Cause != nil {
		parts = append(parts, e.Cause.Error())
	}
	return strings.Join(parts, ": ")
}

func (e *ActionableError) Unwrap() error { return e.Cause }

// HasSuggestions reports whether any hint was attached.
func (e *ActionableError) HasSuggestions() bool { return len(e.Suggestions) > 0 }

// Format renders the message followed by one bullet per suggestion. Verbose
// output adds the cause tree, one indented line per wrapped error, including
// every branch of errors that wrap several.
func (e *ActionableError) Format(verbose bool) string {
	var sb strings.Builder
	sb.WriteString(e.Error())

	if len(e.Suggestions) > 0 {
		sb.WriteString("\n")
		for _, s := range e.Suggestions {
			sb.WriteString("\n  • " + s)
		}
	}

	if verbose && e.Cause != nil {
		sb.WriteString("\n\nError chain:")
		writeCauses(&sb, e.Cause, 1)
	}
	return sb.String()
}

func writeCauses(sb *strings.Builder, err error, depth int) {
	sb.WriteString("\n" + strings.Repeat("  ", depth) + "- " + err.Error())
	switch u := err.(type) {
	case interface{ Unwrap() error }:
		if next := u.Unwrap(); next != nil {
			writeCauses(sb, next, depth+1)
		}
	case interface{ Unwrap() []error }:
		for _, next := range u.Unwrap() {
			if next != nil {
				writeCauses(sb, next, depth+1)
			}
		}
	}
}

// As is errors.As for *ActionableError.
func As(err error) (*ActionableError, bool) {
	var ae *ActionableError
	ok := errors.As(err, &ae)
	return ae, ok
}
