// SPDX-License-Identifier: MPL-2.0

// Package cueutil checks CUE documents against an embedded schema and decodes
// them into Go values.
//
//	//go:embed config_schema.cue
//	var schemaSource string
//
//	var schema = cueutil.MustCompileSchema(schemaSource, "#Config")
//
//	var fields map[string]any
//	if err := schema.Decode(data, &fields, cueutil.WithFilename(path)); err != nil {
//		return err // *cueutil.ValidationError names each offending field
//	}
package cueutil
