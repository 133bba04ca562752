// SPDX-License-Identifier: MPL-2.0

package kmodtest

import (
	"bytes"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"
)

type (
	// Tree is a scratch root holding lib/modules/<release>, sys and proc.
	Tree struct {
		t       testing.TB
		Root    string
		Release string
	}

	// loadState describes a module in the fake sysfs.
	loadState struct {
		initstate  string
		refcnt     int
		noRefcnt   bool
		holders    []string
		noHolders  bool
		badHolders bool
		noInitFile bool
	}

	// LoadOption configures a module created by Tree.Load.
	LoadOption func(*loadState)
)

// NewTree creates an empty tree for release below t.TempDir().
func NewTree(t testing.TB, release string) *Tree {
	t.Helper()
	tree := &Tree{t: t, Root: t.TempDir(), Release: release}
	for _, dir := range []string{tree.ModulesDir(), tree.SysRoot(), tree.ProcRoot()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("failed to create %s: %v", dir, err)
		}
	}
	return tree
}

// ModulesDir returns <root>/lib/modules/<release>.
func (tr *Tree) ModulesDir() string {
	return filepath.Join(tr.Root, "lib", "modules", tr.Release)
}

// SysRoot returns the fake sysfs mount point.
func (tr *Tree) SysRoot() string { return filepath.Join(tr.Root, "sys") }

// ProcRoot returns the fake procfs mount point.
func (tr *Tree) ProcRoot() string { return filepath.Join(tr.Root, "proc") }

// AddModule writes a module image with the given .modinfo entries to rel,
// relative to the modules directory, compressing it according to its
// extension. It returns the absolute path.
func (tr *Tree) AddModule(rel string, entries ...string) string {
	tr.t.Helper()
	return tr.AddImage(rel, ModuleImage(entries...))
}

// AddImage writes image to rel, relative to the modules directory,
// compressing it according to its extension.
func (tr *Tree) AddImage(rel string, image []byte) string {
	tr.t.Helper()
	path := filepath.Join(tr.ModulesDir(), rel)
	tr.write(path, Compress(tr.t, path, image))
	return path
}

// WriteDep writes modules.dep.
func (tr *Tree) WriteDep(lines ...string) { tr.writeLines("modules.dep", lines) }

// WriteAlias writes modules.alias.
func (tr *Tree) WriteAlias(lines ...string) { tr.writeLines("modules.alias", lines) }

// WriteSymbols writes modules.symbols.
func (tr *Tree) WriteSymbols(lines ...string) { tr.writeLines("modules.symbols", lines) }

// WriteBuiltin writes modules.builtin.
func (tr *Tree) WriteBuiltin(lines ...string) { tr.writeLines("modules.builtin", lines) }

// WriteBuiltinModinfo writes modules.builtin.modinfo from "module.key=value"
// records.
func (tr *Tree) WriteBuiltinModinfo(records ...string) {
	tr.t.Helper()
	var buf bytes.Buffer
	for _, r := range records {
		buf.WriteString(r)
		buf.WriteByte(0)
	}
	tr.write(filepath.Join(tr.ModulesDir(), "modules.builtin.modinfo"), buf.Bytes())
}

// WriteProcModules writes proc/modules.
func (tr *Tree) WriteProcModules(lines ...string) {
	tr.t.Helper()
	tr.write(filepath.Join(tr.ProcRoot(), "modules"), []byte(joinLines(lines)))
}

// Load makes name appear loaded in sysfs. By default the module is live with
// a zero refcount and no holders.
func (tr *Tree) Load(name string, opts ...LoadOption) {
	tr.t.Helper()
	st := loadState{initstate: "live"}
	for _, opt := range opts {
		opt(&st)
	}

	dir := filepath.Join(tr.SysRoot(), "module", name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		tr.t.Fatalf("failed to create %s: %v", dir, err)
	}
	if !st.noInitFile {
		tr.write(filepath.Join(dir, "initstate"), []byte(st.initstate+"\n"))
	}
	if !st.noRefcnt {
		tr.write(filepath.Join(dir, "refcnt"), []byte(strconv.Itoa(st.refcnt)+"\n"))
	}
	if st.noHolders {
		return
	}
	holders := filepath.Join(dir, "holders")
	if st.badHolders {
		tr.write(holders, nil)
		return
	}
	if err := os.MkdirAll(holders, 0o755); err != nil {
		tr.t.Fatalf("failed to create %s: %v", holders, err)
	}
	for _, h := range st.holders {
		tr.write(filepath.Join(holders, h), nil)
	}
}

// LoadBuiltin makes name appear in sysfs the way built-in modules do: a
// directory without initstate, refcnt or holders.
func (tr *Tree) LoadBuiltin(name string) {
	tr.t.Helper()
	tr.Load(name, func(s *loadState) {
		s.noInitFile = true
		s.noRefcnt = true
		s.noHolders = true
	})
}

// WithInitState sets the initstate file content ("live", "coming", "going").
func WithInitState(state string) LoadOption {
	return func(s *loadState) { s.initstate = state }
}

// WithRefcount sets the refcnt file content.
func WithRefcount(n int) LoadOption {
	return func(s *loadState) { s.refcnt = n }
}

// WithoutRefcount omits the refcnt file, as kernels without module unloading do.
func WithoutRefcount() LoadOption {
	return func(s *loadState) { s.noRefcnt = true }
}

// WithHolders lists the modules holding this one.
func WithHolders(names ...string) LoadOption {
	return func(s *loadState) { s.holders = append(s.holders, names...) }
}

// WithUnreadableHolders puts a plain file where the holders directory belongs,
// so listing holders fails.
func WithUnreadableHolders() LoadOption {
	return func(s *loadState) { s.badHolders = true }
}

// Compress encodes image according to the extension of path: .xz, .zst and
// .gz are compressed, anything else is returned unchanged.
func Compress(t testing.TB, path string, image []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	switch {
	case strings.HasSuffix(path, ".xz"):
		w, err := xz.NewWriter(&buf)
		if err != nil {
			t.Fatalf("xz writer: %v", err)
		}
		mustFinish(t, w.Write, w.Close, image)
	case strings.HasSuffix(path, ".zst"):
		w, err := zstd.NewWriter(&buf)
		if err != nil {
			t.Fatalf("zstd writer: %v", err)
		}
		mustFinish(t, w.Write, w.Close, image)
	case strings.HasSuffix(path, ".gz"):
		w := gzip.NewWriter(&buf)
		mustFinish(t, w.Write, w.Close, image)
	default:
		return image
	}
	return buf.Bytes()
}

func mustFinish(t testing.TB, write func([]byte) (int, error), closeFn func() error, data []byte) {
	t.Helper()
	if _, err := write(data); err != nil {
		t.Fatalf("compress: %v", err)
	}
	if err := closeFn(); err != nil {
		t.Fatalf("compress: %v", err)
	}
}

func (tr *Tree) writeLines(name string, lines []string) {
	tr.t.Helper()
	tr.write(filepath.Join(tr.ModulesDir(), name), []byte(joinLines(lines)))
}

func (tr *Tree) write(path string, data []byte) {
	tr.t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		tr.t.Fatalf("failed to create %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		tr.t.Fatalf("failed to write %s: %v", path, err)
	}
}

func joinLines(lines []string) string {
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n") + "\n"
}
