// SPDX-License-Identifier: MPL-2.0

package kmod

import (
	"github.com/charmbracelet/log"
)

type (
	// Options configures a Context. The zero value targets the running kernel
	// of the host.
	Options struct {
		// RootDir is prepended to lib/modules; "" means "/".
		RootDir string
		// KernelRelease selects lib/modules/<release>; "" means the running kernel.
		KernelRelease string
		// SysRoot is the sysfs mount point; "" means DefaultSysRoot.
		SysRoot string
		// ProcRoot is the procfs mount point; "" means DefaultProcRoot.
		ProcRoot string
		// Kernel issues the module system calls; nil means SystemKernel().
		Kernel Kernel
		// Logger receives diagnostics; nil means the shared package logger.
		Logger *log.Logger
	}

	// Context bundles the module index, the resolver and the kernel primitives
	// that every operation needs. It is built once and is safe for concurrent
	// lookups; insertions and removals are serialized by the kernel.
	Context struct {
		opts     Options
		idx      *Index
		idxErr   error
		resolver *Resolver
	}
)

// New builds a Context. A module tree that cannot be indexed does not fail
// construction: path insertion and removal work without an index, and the
// index error is returned by the first operation that needs it.
func New(opts Options) *Context {
	if opts.SysRoot == "" {
		opts.SysRoot = DefaultSysRoot
	}
	if opts.ProcRoot == "" {
		opts.ProcRoot = DefaultProcRoot
	}
	if opts.Kernel == nil {
		opts.Kernel = SystemKernel()
	}

	ctx := &Context{opts: opts}
	ctx.idx, ctx.idxErr = BuildIndex(opts.RootDir, opts.KernelRelease)
	if ctx.idxErr != nil {
		ctx.logger().Debug("module index unavailable", "error", ctx.idxErr)
	}
	ctx.resolver = NewResolver(ctx.idx, opts.SysRoot)
	return ctx
}

// Index returns the module index and the error that prevented building it.
func (c *Context) Index() (*Index, error) { return c.idx, c.idxErr }

// Resolver returns the resolver shared by all operations of the context.
func (c *Context) Resolver() *Resolver { return c.resolver }

// InsertModule loads the module image at path, and any dependency the kernel
// does not have yet, passing params to the target module only.
func (c *Context) InsertModule(path string, params []string) error {
	return NewInserter(c.resolver, c.opts.Kernel, c.logger()).Insert(path, params)
}

// RemoveModules unloads identifiers in order; see Remover.Remove.
func (c *Context) RemoveModules(identifiers []string, opts RemoveOptions) (*RemoveReport, error) {
	return NewRemover(c.resolver, c.opts.Kernel, c.logger()).Remove(identifiers, opts)
}

// QueryModuleInfo returns the grouped metadata of every module identifier
// resolves to: a single module for a path or name, possibly several for an
// alias. The first module whose metadata cannot be read fails the whole query.
func (c *Context) QueryModuleInfo(identifier string) ([]*ModuleInfo, error) {
	if c.idx == nil && !IsModulePath(identifier) {
		if _, err := c.resolver.ByName(identifier); err != nil {
			return nil, c.idxErr
		}
	}

	mods, err := c.resolver.Lookup(identifier)
	if err != nil {
		return nil, err
	}

	logger := c.logger()
	infos := make([]*ModuleInfo, 0, len(mods))
	for _, m := range mods {
		mi, err := extract(m, logger)
		if err != nil {
			return nil, err
		}
		infos = append(infos, mi)
	}
	return infos, nil
}

// LoadedModules lists the modules currently loaded in the kernel.
func (c *Context) LoadedModules() ([]LoadedModule, error) {
	return LoadedModules(c.opts.ProcRoot)
}

func (c *Context) logger() *log.Logger {
	if c.opts.Logger != nil {
		return c.opts.Logger
	}
	return Logger()
}
