// SPDX-License-Identifier: MPL-2.0

package kmod

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// DefaultSysRoot is where sysfs is mounted.
const DefaultSysRoot = "/sys"

// RefcountUnsupported is reported when the kernel exposes no reference count
// for a module, which happens when module unloading is compiled out.
const RefcountUnsupported = -1

const (
	// InitStateUnknown means the state file held an unrecognized value or could
	// not be read.
	InitStateUnknown InitState = iota
	// InitStateNotLoaded means the module is not present in the running kernel.
	InitStateNotLoaded
	// InitStateBuiltin means the module is compiled into the kernel image.
	InitStateBuiltin
	// InitStateLive means the module is loaded and initialized.
	InitStateLive
	// InitStateComing means the module is being initialized.
	InitStateComing
	// InitStateGoing means the module is being unloaded.
	InitStateGoing
)

// InitState is a snapshot of a module's lifecycle state in the running kernel.
type InitState int

// String returns the state name as sysfs spells it.
func (s InitState) String() string {
	switch s {
	case InitStateNotLoaded:
		return "not loaded"
	case InitStateBuiltin:
		return "builtin"
	case InitStateLive:
		return "live"
	case InitStateComing:
		return "coming"
	case InitStateGoing:
		return "going"
	default:
		return "unknown"
	}
}

// Loaded reports whether the state describes a module present in the kernel
// as a separately loaded object.
func (s InitState) Loaded() bool {
	return s == InitStateLive || s == InitStateComing || s == InitStateGoing
}

// sysfs reads per-module state below <root>/module/<name>. Every call reads
// the filesystem again; nothing is cached.
type sysfs struct {
	root string
}

func (s sysfs) moduleDir(name string) string {
	return filepath.Join(s.root, "module", NormalizeName(name))
}

// present reports whether the kernel exposes a directory for name, which is
// the case for loaded modules and for built-ins that have parameters.
func (s sysfs) present(name string) bool {
	fi, err := os.Stat(s.moduleDir(name))
	return err == nil && fi.IsDir()
}

// initState reads <module>/initstate. A missing file with an existing module
// directory denotes a built-in module.
func (s sysfs) initState(name string) (InitState, error) {
	data, err := os.ReadFile(filepath.Join(s.moduleDir(name), "initstate"))
	if errors.Is(err, fs.ErrNotExist) {
		if s.present(name) {
			return InitStateBuiltin, nil
		}
		return InitStateNotLoaded, nil
	}
	if err != nil {
		return InitStateUnknown, fmt.Errorf("read initstate of %s: %w", name, err)
	}

	switch strings.TrimSpace(string(data)) {
	case "live":
		return InitStateLive, nil
	case "coming":
		return InitStateComing, nil
	case "going":
		return InitStateGoing, nil
	default:
		return InitStateUnknown, nil
	}
}

// refcount reads <module>/refcnt, returning RefcountUnsupported when the file
// does not exist.
func (s sysfs) refcount(name string) (int, error) {
	data, err := os.ReadFile(filepath.Join(s.moduleDir(name), "refcnt"))
	if errors.Is(err, fs.ErrNotExist) {
		return RefcountUnsupported, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read refcnt of %s: %w", name, err)
	}
	n, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("parse refcnt of %s: %w", name, err)
	}
	return n, nil
}

// holders lists <module>/holders, in directory order.
func (s sysfs) holders(name string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(s.moduleDir(name), "holders"))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read holders of %s: %w", name, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names, nil
}
