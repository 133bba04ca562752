// SPDX-License-Identifier: MPL-2.0

package kmod

import (
	"errors"
	"fmt"
	"strings"
	"syscall"
)

const (
	// InsertSystemError is any insertion failure not covered by a dedicated kind.
	InsertSystemError InsertErrorKind = iota
	// InsertInvalidFormat means the image is not a valid module (ENOEXEC).
	InsertInvalidFormat
	// InsertUnknownSymbol means the module references a symbol the kernel lacks (ENOENT).
	InsertUnknownSymbol
	// InsertWrongSymbolVersion means a symbol CRC did not match (ESRCH).
	InsertWrongSymbolVersion
	// InsertInvalidParameters means the kernel rejected the parameter string (EINVAL).
	InsertInvalidParameters
)

const (
	// RemoveSystemError is a failed delete_module call.
	RemoveSystemError RemoveErrorKind = iota
	// RemoveNotRemovable means the module is built into the kernel.
	RemoveNotRemovable
	// RemoveNotLoaded means the module is not currently loaded.
	RemoveNotLoaded
	// RemoveBusy means the module has holders or a positive refcount.
	RemoveBusy
)

var (
	// ErrIndexBuild is the sentinel error wrapped by IndexBuildError.
	ErrIndexBuild = errors.New("module index build failed")
	// ErrModuleNotFound is the sentinel error wrapped by ModuleNotFoundError.
	ErrModuleNotFound = errors.New("module not found")
	// ErrInsert is the sentinel error wrapped by InsertError.
	ErrInsert = errors.New("module insertion failed")
	// ErrRemove is the sentinel error wrapped by RemoveError.
	ErrRemove = errors.New("module removal failed")
	// ErrLookup is the sentinel error wrapped by LookupError.
	ErrLookup = errors.New("module metadata lookup failed")
	// ErrUnsupportedPlatform is returned by kernel primitives on non-Linux hosts.
	ErrUnsupportedPlatform = errors.New("kernel module operations are only supported on linux")
)

type (
	// InsertErrorKind classifies insertion failures so callers can branch on them.
	InsertErrorKind int

	// RemoveErrorKind classifies removal failures and refusals.
	RemoveErrorKind int

	// IndexBuildError is returned when the module directory or its dependency
	// database cannot be used.
	IndexBuildError struct {
		Dir string
		// Line is the 1-based modules.dep line that failed to parse, 0 otherwise.
		Line  int
		Cause error
	}

	// ModuleNotFoundError is returned when a path, name or alias resolves to nothing.
	ModuleNotFoundError struct {
		Identifier string
		Cause      error
	}

	// InsertError is returned when a module (or one of its dependencies) could not
	// be inserted.
	InsertError struct {
		Module string
		Kind   InsertErrorKind
		Cause  error
	}

	// RemoveError describes why a module was not removed.
	RemoveError struct {
		Module  string
		Kind    RemoveErrorKind
		Holders []string
		Cause   error
	}

	// LookupError is returned when module metadata cannot be read.
	LookupError struct {
		Module string
		Cause  error
	}
)

// String returns the human-readable description of the insert error kind.
func (k InsertErrorKind) String() string {
	switch k {
	case InsertInvalidFormat:
		return "invalid module format"
	case InsertUnknownSymbol:
		return "unknown symbol in module"
	case InsertWrongSymbolVersion:
		return "module has wrong symbol version"
	case InsertInvalidParameters:
		return "invalid parameters"
	default:
		return "system error"
	}
}

// String returns the human-readable description of the remove error kind.
func (k RemoveErrorKind) String() string {
	switch k {
	case RemoveNotRemovable:
		return "module is builtin"
	case RemoveNotLoaded:
		return "module is not currently loaded"
	case RemoveBusy:
		return "module is in use"
	default:
		return "system error"
	}
}

// Error implements the error interface.
func (e *IndexBuildError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("cannot build module index for %s: line %d: %v", e.Dir, e.Line, e.Cause)
	}
	return fmt.Sprintf("cannot build module index for %s: %v", e.Dir, e.Cause)
}

// Unwrap returns ErrIndexBuild and the underlying cause.
func (e *IndexBuildError) Unwrap() []error { return unwrapWith(ErrIndexBuild, e.Cause) }

// Error implements the error interface.
func (e *ModuleNotFoundError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("module %s not found: %v", e.Identifier, e.Cause)
	}
	return fmt.Sprintf("module %s not found", e.Identifier)
}

// Unwrap returns ErrModuleNotFound and the underlying cause.
func (e *ModuleNotFoundError) Unwrap() []error { return unwrapWith(ErrModuleNotFound, e.Cause) }

// Error implements the error interface.
func (e *InsertError) Error() string {
	if e.Kind == InsertSystemError && e.Cause != nil {
		return fmt.Sprintf("could not insert module %s: %v", e.Module, e.Cause)
	}
	return fmt.Sprintf("could not insert module %s: %s", e.Module, e.Kind)
}

// Unwrap returns ErrInsert and the underlying cause.
func (e *InsertError) Unwrap() []error { return unwrapWith(ErrInsert, e.Cause) }

// Error implements the error interface.
func (e *RemoveError) Error() string {
	switch {
	case e.Kind == RemoveBusy && len(e.Holders) > 0:
		return fmt.Sprintf("module %s is in use by: %s", e.Module, strings.Join(e.Holders, " "))
	case e.Kind == RemoveSystemError && e.Cause != nil:
		return fmt.Sprintf("could not remove module %s: %v", e.Module, e.Cause)
	default:
		return fmt.Sprintf("could not remove module %s: %s", e.Module, e.Kind)
	}
}

// Unwrap returns ErrRemove and the underlying cause.
func (e *RemoveError) Unwrap() []error { return unwrapWith(ErrRemove, e.Cause) }

// Error implements the error interface.
func (e *LookupError) Error() string {
	return fmt.Sprintf("could not get modinfo for %s: %v", e.Module, e.Cause)
}

// Unwrap returns ErrLookup and the underlying cause.
func (e *LookupError) Unwrap() []error { return unwrapWith(ErrLookup, e.Cause) }

// insertErrorKind maps the errno returned by the kernel loader onto an
// InsertErrorKind. The mapping mirrors the messages insmod prints.
func insertErrorKind(err error) InsertErrorKind {
	var errno syscall.Errno
	if !errors.As(err, &errno) {
		return InsertSystemError
	}
	switch errno {
	case syscall.ENOEXEC:
		return InsertInvalidFormat
	case syscall.ENOENT:
		return InsertUnknownSymbol
	case syscall.ESRCH:
		return InsertWrongSymbolVersion
	case syscall.EINVAL:
		return InsertInvalidParameters
	default:
		return InsertSystemError
	}
}

// unwrapWith returns the sentinel followed by cause, omitting a nil cause.
func unwrapWith(sentinel, cause error) []error {
	if cause == nil {
		return []error{sentinel}
	}
	return []error{sentinel, cause}
}
