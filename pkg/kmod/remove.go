// SPDX-License-Identifier: MPL-2.0

package kmod

import (
	"github.com/charmbracelet/log"
)

type (
	// RemoveOptions controls a removal batch.
	RemoveOptions struct {
		// Force skips the in-use check and asks the kernel to unload the module
		// even if it is in use.
		Force bool
		// Wait makes the kernel block until the module is no longer in use
		// instead of failing immediately.
		Wait bool
		// Verbose raises diagnostic verbosity; it never changes outcomes.
		Verbose int
	}

	// RemoveResult is the outcome for one identifier of a batch.
	RemoveResult struct {
		Identifier string
		Module     string
		Removed    bool
		// Err explains why the module was not removed; nil when Removed.
		Err *RemoveError
	}

	// RemoveReport lists per-identifier outcomes in batch order. Identifiers
	// after a resolution failure are absent.
	RemoveReport struct {
		Results []RemoveResult
	}

	// Remover unloads modules after checking that nothing holds them.
	Remover struct {
		res    *Resolver
		kernel Kernel
		logger *log.Logger
	}
)

// Removed returns the names of the modules that were unloaded.
func (r *RemoveReport) Removed() []string {
	var names []string
	for _, res := range r.Results {
		if res.Removed {
			names = append(names, res.Module)
		}
	}
	return names
}

// FirstError returns the first per-module error of the batch, or nil.
func (r *RemoveReport) FirstError() error {
	for _, res := range r.Results {
		if res.Err != nil {
			return res.Err
		}
	}
	return nil
}

// NewRemover creates a remover resolving through res and unloading through
// kernel. A nil logger selects the package logger.
func NewRemover(res *Resolver, kernel Kernel, logger *log.Logger) *Remover {
	if logger == nil {
		logger = Logger()
	}
	return &Remover{res: res, kernel: kernel, logger: logger}
}

// Remove unloads each identifier in order. Existing module files are resolved
// by path, anything else by name.
//
// A resolution failure stops the batch at once and is returned as is. A
// module refused by the in-use check, or one the kernel fails to unload, is
// logged and recorded, and the batch moves on; the first such error is
// returned once the batch is done.
//
// The in-use check and the unload are separate steps: another process may
// change the module's holders in between.
func (rm *Remover) Remove(identifiers []string, opts RemoveOptions) (*RemoveReport, error) {
	logger := rm.logger.With("op", "remove")
	logger.SetLevel(VerboseLevel(opts.Verbose))

	flags := removeFlags(opts.Force, opts.Wait)
	report := &RemoveReport{}

	for _, id := range identifiers {
		var (
			m   *Module
			err error
		)
		if IsModulePath(id) {
			m, err = rm.res.ByPath(id)
		} else {
			m, err = rm.res.ByName(id)
		}
		if err != nil {
			logger.Error("could not use module", "module", id, "error", err)
			return report, err
		}

		result := RemoveResult{Identifier: id, Module: m.Name()}

		if !opts.Force {
			if refusal := checkInUse(m, logger); refusal != nil {
				logger.Error(refusal.Error())
				result.Err = refusal
				report.Results = append(report.Results, result)
				continue
			}
		}

		logger.Debug("removing module", "module", m.Name(), "force", opts.Force, "wait", opts.Wait)
		if err := rm.kernel.DeleteModule(m.Name(), flags); err != nil {
			result.Err = &RemoveError{Module: m.Name(), Kind: RemoveSystemError, Cause: err}
			logger.Error(result.Err.Error())
		} else {
			result.Removed = true
			logger.Info("removed module", "module", m.Name())
		}
		report.Results = append(report.Results, result)
	}

	return report, report.FirstError()
}

// checkInUse returns a refusal when m must not be unloaded: it is built in,
// not loaded, held by other modules, or referenced. Unreadable holders or
// refcount refuse as a system error. A kernel without unload reference
// counting does not block removal.
func checkInUse(m *Module, logger *log.Logger) *RemoveError {
	state, err := m.InitState()
	if err != nil {
		return &RemoveError{Module: m.Name(), Kind: RemoveNotLoaded, Cause: err}
	}
	if state == InitStateBuiltin {
		return &RemoveError{Module: m.Name(), Kind: RemoveNotRemovable}
	}
	if !state.Loaded() {
		return &RemoveError{Module: m.Name(), Kind: RemoveNotLoaded}
	}

	holders, err := m.Holders()
	if err != nil {
		return &RemoveError{Module: m.Name(), Kind: RemoveSystemError, Cause: err}
	}
	if len(holders) > 0 {
		return &RemoveError{Module: m.Name(), Kind: RemoveBusy, Holders: holders}
	}

	refcnt, err := m.Refcount()
	switch {
	case err != nil:
		return &RemoveError{Module: m.Name(), Kind: RemoveSystemError, Cause: err}
	case refcnt > 0:
		return &RemoveError{Module: m.Name(), Kind: RemoveBusy}
	case refcnt == RefcountUnsupported:
		logger.Error("module unloading is not supported", "module", m.Name())
	}
	return nil
}
