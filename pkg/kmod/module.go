// SPDX-License-Identifier: MPL-2.0

package kmod

import (
	"fmt"
	"io/fs"
	"slices"
	"strings"
)

// Module is a handle to one kernel module, backed either by an image file or
// by the kernel image itself (built-in). Handles are created per lookup; two
// handles for the same module never share state. Live kernel state is read
// on every call and is only a point-in-time snapshot.
type Module struct {
	name    string
	path    string
	builtin bool

	idx *Index
	sys sysfs

	info []InfoEntry
}

// Name returns the normalized module name.
func (m *Module) Name() string { return m.name }

// Path returns the image path, or "" for a built-in module.
func (m *Module) Path() string { return m.path }

// IsBuiltin reports whether the module is compiled into the kernel.
func (m *Module) IsBuiltin() bool { return m.builtin }

// String returns the module name.
func (m *Module) String() string { return m.name }

// Info returns the raw metadata entries, read from the image on first use.
// For built-in modules the entries come from modules.builtin.modinfo; when
// that database has nothing for the module the error wraps fs.ErrNotExist.
func (m *Module) Info() ([]InfoEntry, error) {
	if m.info != nil {
		return slices.Clone(m.info), nil
	}

	var (
		entries []InfoEntry
		err     error
	)
	switch {
	case m.builtin:
		var ok bool
		if m.idx != nil {
			entries, ok = m.idx.BuiltinInfo(m.name)
		}
		if !ok {
			return nil, fmt.Errorf("no built-in modinfo for %s: %w", m.name, fs.ErrNotExist)
		}
	case m.path != "":
		entries, err = readModinfo(m.path)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("module %s has no image: %w", m.name, fs.ErrNotExist)
	}

	if entries == nil {
		entries = []InfoEntry{}
	}
	m.info = entries
	return slices.Clone(entries), nil
}

// Dependencies returns the names of the modules this one needs loaded first.
// The index is authoritative for indexed modules; other modules fall back to
// the "depends" field of their own metadata.
func (m *Module) Dependencies() ([]string, error) {
	if m.idx != nil {
		if deps, ok := m.idx.Deps(m.name); ok {
			return deps, nil
		}
	}
	if m.builtin {
		return nil, nil
	}

	entries, err := m.Info()
	if err != nil {
		return nil, err
	}
	value, _ := infoValue(entries, "depends")
	var deps []string
	for _, dep := range strings.Split(value, ",") {
		if dep = strings.TrimSpace(dep); dep != "" {
			deps = append(deps, NormalizeName(dep))
		}
	}
	return deps, nil
}

// InitState reports the module's current lifecycle state.
func (m *Module) InitState() (InitState, error) {
	if m.builtin {
		return InitStateBuiltin, nil
	}
	return m.sys.initState(m.name)
}

// Refcount reports the module's current reference count, or
// RefcountUnsupported.
func (m *Module) Refcount() (int, error) {
	return m.sys.refcount(m.name)
}

// Holders lists the loaded modules that currently depend on this one.
func (m *Module) Holders() ([]string, error) {
	return m.sys.holders(m.name)
}

func readModinfo(path string) ([]InfoEntry, error) {
	image, err := readImage(path)
	if err != nil {
		return nil, err
	}
	return parseModinfo(image)
}
