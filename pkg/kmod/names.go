// SPDX-License-Identifier: MPL-2.0

package kmod

import (
	"os"
	"path/filepath"
	"strings"
)

// ModuleExt is the file extension of an uncompressed kernel module image.
const ModuleExt = ".ko"

// moduleExts lists every recognized module file suffix. Compressed variants are
// decompressed in-process before loading.
var moduleExts = []string{ModuleExt, ModuleExt + ".xz", ModuleExt + ".zst", ModuleExt + ".gz"}

// HasModuleExt reports whether path ends in a recognized module file extension.
func HasModuleExt(path string) bool {
	for _, ext := range moduleExts {
		if strings.HasSuffix(path, ext) {
			return true
		}
	}
	return false
}

// IsModulePath reports whether s names an existing regular file with a module
// extension. It is the single classification point between path lookups and
// name/alias lookups.
func IsModulePath(s string) bool {
	if !HasModuleExt(s) {
		return false
	}
	fi, err := os.Stat(s)
	return err == nil && fi.Mode().IsRegular()
}

// NormalizeName converts dashes to underscores, the form the kernel uses for
// module names.
func NormalizeName(name string) string {
	return strings.ReplaceAll(name, "-", "_")
}

// NameFromPath derives the module name from an image path: the base name up to
// its first dot, normalized.
func NameFromPath(path string) string {
	base := filepath.Base(path)
	if i := strings.IndexByte(base, '.'); i >= 0 {
		base = base[:i]
	}
	return NormalizeName(base)
}
