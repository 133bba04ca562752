// SPDX-License-Identifier: MPL-2.0

package kmod

import "os"

const (
	// RemoveNoWait returns immediately instead of waiting for the module's
	// reference count to drop (O_NONBLOCK for delete_module).
	RemoveNoWait RemoveFlags = 1 << iota
	// RemoveForce unloads the module even if it is in use (O_TRUNC for
	// delete_module). Requires CONFIG_MODULE_FORCE_UNLOAD.
	RemoveForce
)

type (
	// RemoveFlags controls delete_module behaviour.
	RemoveFlags int

	// Kernel is the set of kernel primitives the inserter and remover rely on.
	// The default implementation issues the Linux system calls; tests supply
	// a recording fake.
	Kernel interface {
		// FinitModule loads the module image read from f.
		FinitModule(f *os.File, params string) error
		// InitModule loads an in-memory module image.
		InitModule(image []byte, params string) error
		// DeleteModule unloads the named module.
		DeleteModule(name string, flags RemoveFlags) error
	}
)

// Has reports whether all bits of flag are set.
func (f RemoveFlags) Has(flag RemoveFlags) bool { return f&flag == flag }

// removeFlags computes delete_module flags: no-wait by default, force maps
// directly, and wait clears no-wait.
func removeFlags(force, wait bool) RemoveFlags {
	flags := RemoveNoWait
	if force {
		flags |= RemoveForce
	}
	if wait {
		flags &^= RemoveNoWait
	}
	return flags
}
