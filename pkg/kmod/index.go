// SPDX-License-Identifier: MPL-2.0

package kmod

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// Index database file names inside <root>/lib/modules/<release>.
const (
	depFile            = "modules.dep"
	aliasFile          = "modules.alias"
	symbolsFile        = "modules.symbols"
	builtinFile        = "modules.builtin"
	builtinModinfoFile = "modules.builtin.modinfo"
)

type (
	// Index is an immutable snapshot of the module databases for one
	// (root directory, kernel release) pair. It is never mutated after
	// BuildIndex returns and may be shared between goroutines.
	Index struct {
		dir     string
		release string

		// deps maps a module name to its image path and dependency names,
		// in modules.dep order.
		deps  map[string]depEntry
		names []string

		aliases []aliasEntry

		builtin     map[string]bool
		builtinInfo map[string][]InfoEntry
	}

	depEntry struct {
		path string
		deps []string
	}
)

// BuildIndex reads the module databases under <rootDir>/lib/modules/<release>.
// An empty release selects the running kernel. modules.dep is required; the
// alias, symbol and built-in databases are optional.
func BuildIndex(rootDir, release string) (*Index, error) {
	if release == "" {
		r, err := RunningRelease()
		if err != nil {
			return nil, &IndexBuildError{Dir: ModulesDir(rootDir, ""), Cause: err}
		}
		release = r
	}

	dir := ModulesDir(rootDir, release)
	fi, err := os.Stat(dir)
	if err != nil {
		return nil, &IndexBuildError{Dir: dir, Cause: err}
	}
	if !fi.IsDir() {
		return nil, &IndexBuildError{Dir: dir, Cause: fmt.Errorf("%s is not a directory", dir)}
	}

	idx := &Index{
		dir:         dir,
		release:     release,
		deps:        make(map[string]depEntry),
		builtin:     make(map[string]bool),
		builtinInfo: make(map[string][]InfoEntry),
	}

	if err := idx.loadDeps(); err != nil {
		return nil, err
	}
	for _, name := range []string{aliasFile, symbolsFile} {
		if err := idx.loadAliases(name); err != nil {
			return nil, err
		}
	}
	if err := idx.loadBuiltin(); err != nil {
		return nil, err
	}
	if err := idx.loadBuiltinModinfo(); err != nil {
		return nil, err
	}

	return idx, nil
}

// Dir returns the module directory the index was built from.
func (idx *Index) Dir() string { return idx.dir }

// Release returns the kernel release the index was built for.
func (idx *Index) Release() string { return idx.release }

// Modules returns the names of all modules listed in modules.dep, in file order.
func (idx *Index) Modules() []string { return slices.Clone(idx.names) }

// Deps returns the dependency names recorded for name in modules.dep.
func (idx *Index) Deps(name string) ([]string, bool) {
	e, ok := idx.deps[NormalizeName(name)]
	if !ok {
		return nil, false
	}
	return slices.Clone(e.deps), true
}

// PathOf returns the absolute image path of an indexed module.
func (idx *Index) PathOf(name string) (string, bool) {
	e, ok := idx.deps[NormalizeName(name)]
	return e.path, ok
}

// IsBuiltin reports whether name is compiled into the kernel image.
func (idx *Index) IsBuiltin(name string) bool {
	return idx.builtin[NormalizeName(name)]
}

// BuiltinInfo returns the modinfo entries recorded for a built-in module.
// The second result is false when modules.builtin.modinfo has no entry for it.
func (idx *Index) BuiltinInfo(name string) ([]InfoEntry, bool) {
	entries, ok := idx.builtinInfo[NormalizeName(name)]
	return slices.Clone(entries), ok
}

// Has reports whether name is known to the index, either as a loadable or a
// built-in module.
func (idx *Index) Has(name string) bool {
	name = NormalizeName(name)
	_, ok := idx.deps[name]
	return ok || idx.builtin[name]
}

func (idx *Index) loadDeps() error {
	path := filepath.Join(idx.dir, depFile)
	f, err := os.Open(path)
	if err != nil {
		return &IndexBuildError{Dir: idx.dir, Cause: err}
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		modPath, rest, ok := strings.Cut(line, ":")
		modPath = strings.TrimSpace(modPath)
		if !ok || modPath == "" {
			return &IndexBuildError{Dir: idx.dir, Line: lineNo, Cause: fmt.Errorf("malformed %s entry %q", depFile, line)}
		}

		name := NameFromPath(modPath)
		if _, dup := idx.deps[name]; dup {
			continue
		}

		var deps []string
		for _, dep := range strings.Fields(rest) {
			deps = append(deps, NameFromPath(dep))
		}
		idx.deps[name] = depEntry{path: idx.absPath(modPath), deps: deps}
		idx.names = append(idx.names, name)
	}
	if err := scanner.Err(); err != nil {
		return &IndexBuildError{Dir: idx.dir, Cause: err}
	}
	return nil
}

func (idx *Index) loadAliases(file string) error {
	f, err := os.Open(filepath.Join(idx.dir, file))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return &IndexBuildError{Dir: idx.dir, Cause: err}
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) != 3 || fields[0] != "alias" {
			continue
		}
		idx.aliases = append(idx.aliases, aliasEntry{pattern: NormalizeAlias(fields[1]), module: NormalizeName(fields[2])})
	}
	if err := scanner.Err(); err != nil {
		return &IndexBuildError{Dir: idx.dir, Cause: err}
	}
	return nil
}

func (idx *Index) loadBuiltin() error {
	data, err := os.ReadFile(filepath.Join(idx.dir, builtinFile))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return &IndexBuildError{Dir: idx.dir, Cause: err}
	}
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		idx.builtin[NameFromPath(line)] = true
	}
	return nil
}

// loadBuiltinModinfo parses the NUL-separated "module.key=value" records the
// kernel build writes for built-in modules.
func (idx *Index) loadBuiltinModinfo() error {
	data, err := os.ReadFile(filepath.Join(idx.dir, builtinModinfoFile))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return &IndexBuildError{Dir: idx.dir, Cause: err}
	}
	for _, rec := range bytes.Split(data, []byte{0}) {
		if len(rec) == 0 {
			continue
		}
		modKey, value, ok := strings.Cut(string(rec), "=")
		if !ok {
			continue
		}
		mod, key, ok := strings.Cut(modKey, ".")
		if !ok || mod == "" || key == "" {
			continue
		}
		mod = NormalizeName(mod)
		idx.builtinInfo[mod] = append(idx.builtinInfo[mod], InfoEntry{Key: key, Value: value})
		// modules.builtin may be absent on older trees; modinfo records still
		// identify the module as built-in.
		idx.builtin[mod] = true
	}
	return nil
}

func (idx *Index) absPath(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(idx.dir, p)
}
