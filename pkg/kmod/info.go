// SPDX-License-Identifier: MPL-2.0

package kmod

import (
	"bytes"
	"encoding/json"
	"errors"
	"io/fs"
	"strings"

	"github.com/charmbracelet/log"
)

// BuiltinFilename is reported as the file name of built-in modules.
const BuiltinFilename = "(builtin)"

// Metadata keys that are grouped rather than copied verbatim.
const (
	keyAlias    = "alias"
	keyParm     = "parm"
	keyParmType = "parmtype"
	keyName     = "name"
	keyFilename = "filename"
)

type (
	// ParamEntry describes one module parameter, merged from its "parm" and
	// "parmtype" metadata lines.
	ParamEntry struct {
		Description    string
		HasDescription bool
		Type           string
		HasType        bool
	}

	// ModuleInfo is a module's metadata grouped into categories.
	ModuleInfo struct {
		// Name is set only for built-in modules; image files carry their own
		// "name" field in Fields.
		Name string
		// Filename is the image path or BuiltinFilename.
		Filename string
		// Aliases holds every alias value in metadata order, duplicates kept.
		Aliases []string
		// Params maps parameter names to their merged description and type.
		Params OrderedMap[ParamEntry]
		// Fields holds every other key; a repeated key keeps its last value.
		Fields OrderedMap[string]

		// keys records top-level key order for rendering.
		keys []string
	}
)

// String composes the human-readable parameter text: "desc (type)" when both
// are known, otherwise whichever one is present.
func (p ParamEntry) String() string {
	switch {
	case p.HasDescription && p.HasType:
		return p.Description + " (" + p.Type + ")"
	case p.HasType:
		return p.Type
	default:
		return p.Description
	}
}

// MarshalJSON encodes the composed parameter text.
func (p ParamEntry) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

// Keys returns the top-level keys in the order they first appeared:
// name (built-ins only), filename, then metadata keys, with "alias" and
// "parm" placed where their first line appeared.
func (mi *ModuleInfo) Keys() []string {
	return append([]string(nil), mi.keys...)
}

// Param returns the composed text for the named parameter.
func (mi *ModuleInfo) Param(name string) (string, bool) {
	p, ok := mi.Params.Get(name)
	if !ok {
		return "", false
	}
	return p.String(), true
}

// Field returns the scalar value of key. "name" and "filename" resolve to the
// dedicated fields when set.
func (mi *ModuleInfo) Field(key string) (string, bool) {
	switch {
	case key == keyFilename:
		return mi.Filename, true
	case key == keyName && mi.Name != "":
		return mi.Name, true
	}
	return mi.Fields.Get(key)
}

// MarshalJSON encodes the info as a flat object in Keys order, with "alias"
// as an array and "parm" as an object.
func (mi *ModuleInfo) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range mi.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		var value any
		switch key {
		case keyAlias:
			value = mi.Aliases
		case keyParm:
			value = &mi.Params
		default:
			value, _ = mi.Field(key)
		}
		vb, err := json.Marshal(value)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (mi *ModuleInfo) addKey(key string) {
	for _, k := range mi.keys {
		if k == key {
			return
		}
	}
	mi.keys = append(mi.keys, key)
}

// Extract groups the module's raw metadata into a ModuleInfo, logging
// diagnostics to the package logger.
func Extract(m *Module) (*ModuleInfo, error) {
	return extract(m, Logger())
}

func extract(m *Module, logger *log.Logger) (*ModuleInfo, error) {
	mi := &ModuleInfo{}
	if m.IsBuiltin() {
		mi.Name = m.Name()
		mi.Filename = BuiltinFilename
		mi.addKey(keyName)
	} else {
		mi.Filename = m.Path()
	}
	mi.addKey(keyFilename)

	entries, err := m.Info()
	if err != nil {
		if m.IsBuiltin() && errors.Is(err, fs.ErrNotExist) {
			return mi, nil
		}
		return nil, &LookupError{Module: m.Name(), Cause: err}
	}

	for _, e := range entries {
		switch e.Key {
		case keyAlias:
			mi.Aliases = append(mi.Aliases, e.Value)
			mi.addKey(keyAlias)
		case keyParm, keyParmType:
			name, value, ok := strings.Cut(e.Value, ":")
			if !ok {
				logger.Warn("skipping malformed parameter line", "module", m.Name(), "line", e.String())
				continue
			}
			p, _ := mi.Params.Get(name)
			if e.Key == keyParm {
				p.Description, p.HasDescription = value, true
			} else {
				p.Type, p.HasType = value, true
			}
			mi.Params.Set(name, p)
			mi.addKey(keyParm)
		default:
			if m.IsBuiltin() && e.Key == keyName {
				continue
			}
			mi.Fields.Set(e.Key, e.Value)
			mi.addKey(e.Key)
		}
	}
	return mi, nil
}
