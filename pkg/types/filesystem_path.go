// SPDX-License-Identifier: MPL-2.0

package types

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrInvalidFilesystemPath is wrapped by InvalidFilesystemPathError.
var ErrInvalidFilesystemPath = errors.New("invalid filesystem path")

type (
	// FilesystemPath names a file or directory: a module image, a config file,
	// or a mount point such as /sys. It may be relative.
	//
	// Fields that accept "unset" treat "" specially before calling IsValid;
	// IsValid itself rejects blank paths.
	FilesystemPath string

	// InvalidFilesystemPathError reports a blank FilesystemPath.
	InvalidFilesystemPathError struct {
		Value FilesystemPath
	}
)

func (p FilesystemPath) String() string { return string(p) }

// IsValid reports whether p names something, i.e. is not blank.
func (p FilesystemPath) IsValid() (bool, []error) {
	if strings.TrimSpace(string(p)) != "" {
		return true, nil
	}
	return false, []error{&InvalidFilesystemPathError{Value: p}}
}

// Join appends elem to p with filepath.Join semantics.
func (p FilesystemPath) Join(elem ...string) FilesystemPath {
	return FilesystemPath(filepath.Join(append([]string{string(p)}, elem...)...))
}

// Dir returns the directory containing p.
func (p FilesystemPath) Dir() FilesystemPath {
	return FilesystemPath(filepath.Dir(string(p)))
}

func (e *InvalidFilesystemPathError) Error() string {
	return fmt.Sprintf("path %q is blank", e.Value)
}

func (e *InvalidFilesystemPathError) Unwrap() error { return ErrInvalidFilesystemPath }
