// SPDX-License-Identifier: MPL-2.0

package cueutil

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

// Schema is a CUE definition documents are unified with before decoding.
//
// CUE contexts are not safe for concurrent use, so every Decode compiles the
// schema into a fresh context; CompileSchema only checks that it compiles.
type Schema struct {
	source     []byte
	definition cue.Path
}

// CompileSchema checks that src compiles and defines definition (for example
// "#Config").
func CompileSchema(src, definition string) (*Schema, error) {
	s := &Schema{source: []byte(src), definition: cue.ParsePath(definition)}
	if err := s.definition.Err(); err != nil {
		return nil, fmt.Errorf("invalid schema definition %q: %w", definition, err)
	}
	if _, err := s.root(cuecontext.New()); err != nil {
		return nil, err
	}
	return s, nil
}

// MustCompileSchema is CompileSchema for embedded schemas; it panics on error.
func MustCompileSchema(src, definition string) *Schema {
	s, err := CompileSchema(src, definition)
	if err != nil {
		panic(err)
	}
	return s
}

func (s *Schema) root(ctx *cue.Context) (cue.Value, error) {
	v := ctx.CompileBytes(s.source, cue.Filename("schema.cue"))
	if err := v.Err(); err != nil {
		return cue.Value{}, fmt.Errorf("schema does not compile: %w", err)
	}
	def := v.LookupPath(s.definition)
	if !def.Exists() {
		return cue.Value{}, fmt.Errorf("schema has no definition %s", s.definition)
	}
	return def, nil
}

// Decode unifies data with the schema, validates the result and decodes it
// into dst. Problems in data are reported as a *ValidationError.
func (s *Schema) Decode(data []byte, dst any, opts ...Option) error {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if int64(len(data)) > o.maxFileSize {
		return &SizeError{File: o.filename, Size: int64(len(data)), Limit: o.maxFileSize}
	}

	ctx := cuecontext.New()
	def, err := s.root(ctx)
	if err != nil {
		return err
	}

	doc := ctx.CompileBytes(data, cue.Filename(o.filename))
	if err := doc.Err(); err != nil {
		return newValidationError(o.filename, err)
	}

	unified := def.Unify(doc)
	if err := unified.Validate(cue.Concrete(o.concrete)); err != nil {
		return newValidationError(o.filename, err)
	}
	if err := unified.Decode(dst); err != nil {
		return newValidationError(o.filename, err)
	}
	return nil
}
