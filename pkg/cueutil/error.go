// SPDX-License-Identifier: MPL-2.0

package cueutil

import (
	"fmt"
	"strconv"
	"strings"

	cueerrors "cuelang.org/go/cue/errors"
)

type (
	// ValidationError lists what is wrong with a document.
	ValidationError struct {
		File     string
		Problems []Problem
	}

	// Problem is one finding, located by the dotted path of the field it
	// concerns. Path is empty for syntax errors.
	Problem struct {
		Path    string
		Message string
	}

	// SizeError is returned for documents larger than the configured limit.
	SizeError struct {
		File  string
		Size  int64
		Limit int64
	}
)

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if len(e.Problems) == 1 {
		return e.File + ": " + e.Problems[0].String()
	}
	lines := make([]string, 0, len(e.Problems))
	for _, p := range e.Problems {
		lines = append(lines, p.String())
	}
	return fmt.Sprintf("%s: %d problems:\n  %s", e.File, len(e.Problems), strings.Join(lines, "\n  "))
}

// Paths returns the field paths of the problems, in report order.
func (e *ValidationError) Paths() []string {
	paths := make([]string, 0, len(e.Problems))
	for _, p := range e.Problems {
		if p.Path != "" {
			paths = append(paths, p.Path)
		}
	}
	return paths
}

func (p Problem) String() string {
	if p.Path == "" {
		return p.Message
	}
	return p.Path + ": " + p.Message
}

// Error implements the error interface.
func (e *SizeError) Error() string {
	return fmt.Sprintf("%s: file size %d bytes exceeds maximum %d bytes", e.File, e.Size, e.Limit)
}

// newValidationError flattens err, a CUE error list or any other error, into
// problems for file.
func newValidationError(file string, err error) *ValidationError {
	verr := &ValidationError{File: file}
	list := cueerrors.Errors(err)
	if len(list) == 0 {
		verr.Problems = []Problem{{Message: err.Error()}}
		return verr
	}
	for _, e := range list {
		path := fieldPath(cueerrors.Path(e))
		format, args := e.Msg()
		msg := fmt.Sprintf(format, args...)
		if format == "" {
			// Wrapped non-CUE errors carry no message format of their own.
			msg = e.Error()
			if len(list) == 1 {
				msg = err.Error()
			}
		}
		verr.Problems = append(verr.Problems, Problem{Path: path, Message: msg})
	}
	return verr
}

// fieldPath renders CUE path selectors as "a.b[0].c". Leading definition
// selectors such as "#Config" name the schema, not the document, and are
// dropped.
func fieldPath(sel []string) string {
	for len(sel) > 0 && strings.HasPrefix(sel[0], "#") {
		sel = sel[1:]
	}
	var sb strings.Builder
	for i, s := range sel {
		if _, err := strconv.Atoi(s); err == nil && i > 0 {
			sb.WriteString("[" + s + "]")
			continue
		}
		if i > 0 {
			sb.WriteByte('.')
		}
		sb.WriteString(s)
	}
	return sb.String()
}
