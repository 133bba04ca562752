// SPDX-License-Identifier: MPL-2.0

package kmod

import (
	"errors"
	"fmt"
	"os"
)

// Resolver turns user-supplied identifiers (paths, names, aliases) into
// module handles. A nil index limits the resolver to paths and to modules
// currently present in sysfs.
type Resolver struct {
	idx *Index
	sys sysfs
}

// NewResolver creates a resolver over idx reading kernel state below sysRoot.
func NewResolver(idx *Index, sysRoot string) *Resolver {
	if sysRoot == "" {
		sysRoot = DefaultSysRoot
	}
	return &Resolver{idx: idx, sys: sysfs{root: sysRoot}}
}

// Index returns the index the resolver consults, which may be nil.
func (r *Resolver) Index() *Index { return r.idx }

// ByPath opens the module image at path. The file must be a regular file with
// a module extension whose content parses as a module.
func (r *Resolver) ByPath(path string) (*Module, error) {
	if !HasModuleExt(path) {
		return nil, &ModuleNotFoundError{Identifier: path, Cause: fmt.Errorf("not a module file name (want %s)", ModuleExt)}
	}
	fi, err := os.Stat(path)
	if err != nil {
		return nil, &ModuleNotFoundError{Identifier: path, Cause: err}
	}
	if !fi.Mode().IsRegular() {
		return nil, &ModuleNotFoundError{Identifier: path, Cause: errors.New("not a regular file")}
	}

	info, err := readModinfo(path)
	if err != nil {
		return nil, &ModuleNotFoundError{Identifier: path, Cause: err}
	}
	if info == nil {
		info = []InfoEntry{}
	}

	return &Module{
		name: NameFromPath(path),
		path: path,
		idx:  r.idx,
		sys:  r.sys,
		info: info,
	}, nil
}

// ByName looks up a loadable, built-in or currently loaded module by its exact
// name. Built-in modules have an empty path.
func (r *Resolver) ByName(name string) (*Module, error) {
	name = NormalizeName(name)
	if name == "" {
		return nil, &ModuleNotFoundError{Identifier: name, Cause: errors.New("empty module name")}
	}

	m := &Module{name: name, idx: r.idx, sys: r.sys}
	if r.idx != nil {
		if path, ok := r.idx.PathOf(name); ok {
			m.path = path
			return m, nil
		}
		if r.idx.IsBuiltin(name) {
			m.builtin = true
			return m, nil
		}
	}
	if r.sys.present(name) {
		return m, nil
	}
	return nil, &ModuleNotFoundError{Identifier: name}
}

// ByAlias resolves alias through the index and returns one handle per matching
// module, in index order.
func (r *Resolver) ByAlias(alias string) ([]*Module, error) {
	if r.idx == nil {
		return nil, &ModuleNotFoundError{Identifier: alias, Cause: errors.New("no module index available")}
	}
	names := r.idx.ResolveAlias(alias)
	if len(names) == 0 {
		return nil, &ModuleNotFoundError{Identifier: alias}
	}

	mods := make([]*Module, 0, len(names))
	for _, name := range names {
		m, err := r.ByName(name)
		if err != nil {
			return nil, err
		}
		mods = append(mods, m)
	}
	return mods, nil
}

// Lookup dispatches on the identifier's form: an existing module file is
// opened by path; anything else is tried as a name and then as an alias.
func (r *Resolver) Lookup(identifier string) ([]*Module, error) {
	if IsModulePath(identifier) {
		m, err := r.ByPath(identifier)
		if err != nil {
			return nil, err
		}
		return []*Module{m}, nil
	}

	m, err := r.ByName(identifier)
	if err == nil {
		return []*Module{m}, nil
	}
	if !errors.Is(err, ErrModuleNotFound) {
		return nil, err
	}
	return r.ByAlias(identifier)
}
