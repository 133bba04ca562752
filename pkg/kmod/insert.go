// SPDX-License-Identifier: MPL-2.0

package kmod

import (
	"fmt"
	"os"
	"strings"

	"github.com/invowk/kmodule/internal/dag"

	"github.com/charmbracelet/log"
)

// Inserter loads modules and their missing dependencies into the kernel.
type Inserter struct {
	res    *Resolver
	kernel Kernel
	logger *log.Logger
}

// NewInserter creates an inserter that resolves through res and loads through
// kernel. A nil logger selects the package logger.
func NewInserter(res *Resolver, kernel Kernel, logger *log.Logger) *Inserter {
	if logger == nil {
		logger = Logger()
	}
	return &Inserter{res: res, kernel: kernel, logger: logger.With("op", "insert")}
}

// Insert loads the module image at path. Dependencies that are not already
// present in the kernel are loaded first, in dependency order, without
// parameters; params ("key=value" strings) are joined with spaces and passed
// unchanged for the target module only. Dependencies loaded before a failure
// stay loaded.
func (in *Inserter) Insert(path string, params []string) error {
	target, err := in.res.ByPath(path)
	if err != nil {
		return &InsertError{Module: path, Kind: InsertSystemError, Cause: err}
	}

	order, handles, err := in.closure(target)
	if err != nil {
		return err
	}

	for _, name := range order {
		if name == target.Name() {
			continue
		}
		dep := handles[name]
		if in.present(dep) {
			continue
		}
		if err := in.load(dep, ""); err != nil {
			return err
		}
	}

	return in.load(target, strings.Join(params, " "))
}

// closure walks the dependency graph reachable from target and returns it in
// load order, target last, together with a handle per module.
func (in *Inserter) closure(target *Module) ([]string, map[string]*Module, error) {
	g := dag.New()
	g.AddNode(target.Name())
	handles := map[string]*Module{target.Name(): target}

	queue := []*Module{target}
	for len(queue) > 0 {
		m := queue[0]
		queue = queue[1:]

		deps, err := m.Dependencies()
		if err != nil {
			return nil, nil, &InsertError{Module: m.Name(), Kind: InsertSystemError, Cause: err}
		}
		for _, name := range deps {
			g.AddDependency(m.Name(), name)
			if _, seen := handles[name]; seen {
				continue
			}
			dep, err := in.res.ByName(name)
			if err != nil {
				return nil, nil, &InsertError{Module: name, Kind: InsertSystemError, Cause: err}
			}
			handles[name] = dep
			// A module already in the kernel has its own dependencies
			// satisfied, and may have no image to read them from.
			if !in.present(dep) {
				queue = append(queue, dep)
			}
		}
	}

	order, err := g.TopologicalSort()
	if err != nil {
		return nil, nil, &InsertError{Module: target.Name(), Kind: InsertSystemError, Cause: err}
	}
	return order, handles, nil
}

// present reports whether m is already in the kernel, loaded or built in. An
// unreadable state counts as absent so the kernel gets to decide.
func (in *Inserter) present(m *Module) bool {
	state, err := m.InitState()
	if err != nil {
		in.logger.Debug("cannot read dependency state, inserting anyway", "module", m.Name(), "error", err)
		return false
	}
	switch state {
	case InitStateLive, InitStateComing, InitStateBuiltin:
		in.logger.Debug("dependency already present", "module", m.Name(), "state", state)
		return true
	}
	return false
}

// load hands one module image to the kernel. Plain images go through
// finit_module; compressed ones are decompressed here and passed to
// init_module.
func (in *Inserter) load(m *Module, params string) error {
	if m.Path() == "" {
		return &InsertError{Module: m.Name(), Kind: InsertSystemError, Cause: fmt.Errorf("module %s has no image file", m.Name())}
	}

	var err error
	if CompressionOf(m.Path()) == CompressionNone {
		f, openErr := os.Open(m.Path())
		if openErr != nil {
			return &InsertError{Module: m.Name(), Kind: InsertSystemError, Cause: openErr}
		}
		err = in.kernel.FinitModule(f, params)
		f.Close()
	} else {
		image, readErr := readImage(m.Path())
		if readErr != nil {
			return &InsertError{Module: m.Name(), Kind: InsertSystemError, Cause: readErr}
		}
		err = in.kernel.InitModule(image, params)
	}

	if err != nil {
		insErr := &InsertError{Module: m.Name(), Kind: insertErrorKind(err), Cause: err}
		in.logger.Error(insErr.Error())
		return insErr
	}
	in.logger.Info("inserted module", "module", m.Name(), "path", m.Path())
	return nil
}
