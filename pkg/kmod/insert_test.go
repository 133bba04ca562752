// SPDX-License-Identifier: MPL-2.0

package kmod

import (
	"errors"
	"path/filepath"
	"slices"
	"syscall"
	"testing"

	"github.com/invowk/kmodule/internal/dag"
	"github.com/invowk/kmodule/internal/testutil/kmodtest"
)

func TestInserter_LoadsDependenciesFirst(t *testing.T) {
	t.Parallel()

	tree := ext4Tree(t)
	kernel := &fakeKernel{}
	in := NewInserter(mustResolver(t, tree), kernel, quietLogger())

	path := filepath.Join(tree.ModulesDir(), "kernel/fs/ext4/ext4.ko")
	if err := in.Insert(path, []string{"errors=remount-ro", "debug=1"}); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	want := []kernelCall{
		{op: "finit", module: "crc16"},
		{op: "finit", module: "jbd2"},
		{op: "finit", module: "ext4", params: "errors=remount-ro debug=1"},
	}
	if !slices.Equal(kernel.calls, want) {
		t.Errorf("calls = %+v, want %+v", kernel.calls, want)
	}
}

func TestInserter_SkipsPresentDependencies(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		setup func(*kmodtest.Tree)
		want  []string
	}{
		{
			name:  "live",
			setup: func(tr *kmodtest.Tree) { tr.Load("jbd2") },
			want:  []string{"crc16", "ext4"},
		},
		{
			name:  "coming",
			setup: func(tr *kmodtest.Tree) { tr.Load("crc16", kmodtest.WithInitState("coming")) },
			want:  []string{"jbd2", "ext4"},
		},
		{
			name:  "builtin",
			setup: func(tr *kmodtest.Tree) { tr.LoadBuiltin("crc16") },
			want:  []string{"jbd2", "ext4"},
		},
		{
			name:  "going is reloaded",
			setup: func(tr *kmodtest.Tree) { tr.Load("crc16", kmodtest.WithInitState("going")) },
			want:  []string{"crc16", "jbd2", "ext4"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			tree := ext4Tree(t)
			tt.setup(tree)
			kernel := &fakeKernel{}
			in := NewInserter(mustResolver(t, tree), kernel, quietLogger())

			if err := in.Insert(filepath.Join(tree.ModulesDir(), "kernel/fs/ext4/ext4.ko"), nil); err != nil {
				t.Fatalf("Insert() error = %v", err)
			}
			if got := kernel.modules(); !slices.Equal(got, tt.want) {
				t.Errorf("loaded %v, want %v", got, tt.want)
			}
		})
	}
}

func TestInserter_BuiltinDependencyFromIndex(t *testing.T) {
	t.Parallel()

	tree := kmodtest.NewTree(t, testRelease)
	path := tree.AddModule("kernel/fs/btrfs/btrfs.ko", "name=btrfs")
	tree.WriteDep("kernel/fs/btrfs/btrfs.ko: kernel/lib/libcrc32c.ko")
	tree.WriteBuiltin("kernel/lib/libcrc32c.ko")
	kernel := &fakeKernel{}

	in := NewInserter(mustResolver(t, tree), kernel, quietLogger())
	if err := in.Insert(path, nil); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	if got := kernel.modules(); !slices.Equal(got, []string{"btrfs"}) {
		t.Errorf("loaded %v, want [btrfs]", got)
	}
}

func TestInserter_CompressedImages(t *testing.T) {
	t.Parallel()

	for _, ext := range []string{".ko.xz", ".ko.zst", ".ko.gz"} {
		t.Run(ext, func(t *testing.T) {
			t.Parallel()
			tree := kmodtest.NewTree(t, testRelease)
			path := tree.AddModule("kernel/fs/xfs/xfs"+ext, "license=GPL", "name=xfs")
			tree.WriteDep("kernel/fs/xfs/xfs" + ext + ":")
			kernel := &fakeKernel{}

			in := NewInserter(mustResolver(t, tree), kernel, quietLogger())
			if err := in.Insert(path, []string{"a=1"}); err != nil {
				t.Fatalf("Insert() error = %v", err)
			}
			want := []kernelCall{{op: "init", module: "xfs", params: "a=1"}}
			if !slices.Equal(kernel.calls, want) {
				t.Errorf("calls = %+v, want %+v", kernel.calls, want)
			}
		})
	}
}

func TestInserter_ErrorKinds(t *testing.T) {
	t.Parallel()

	tests := []struct {
		errno syscall.Errno
		want  InsertErrorKind
	}{
		{syscall.ENOEXEC, InsertInvalidFormat},
		{syscall.ENOENT, InsertUnknownSymbol},
		{syscall.ESRCH, InsertWrongSymbolVersion},
		{syscall.EINVAL, InsertInvalidParameters},
		{syscall.EPERM, InsertSystemError},
		{syscall.EEXIST, InsertSystemError},
	}
	for _, tt := range tests {
		t.Run(tt.errno.Error(), func(t *testing.T) {
			t.Parallel()
			tree := ext4Tree(t)
			kernel := &fakeKernel{fail: map[string]error{"crc16": tt.errno}}
			in := NewInserter(mustResolver(t, tree), kernel, quietLogger())

			err := in.Insert(filepath.Join(tree.ModulesDir(), "kernel/lib/crc16.ko"), nil)
			var insErr *InsertError
			if !errors.As(err, &insErr) {
				t.Fatalf("Insert() error = %v, want *InsertError", err)
			}
			if insErr.Kind != tt.want {
				t.Errorf("Kind = %v, want %v", insErr.Kind, tt.want)
			}
			if !errors.Is(err, ErrInsert) || !errors.Is(err, tt.errno) {
				t.Errorf("error chain of %v misses ErrInsert or %v", err, tt.errno)
			}
		})
	}
}

func TestInserter_DependencyFailureStops(t *testing.T) {
	t.Parallel()

	tree := ext4Tree(t)
	kernel := &fakeKernel{fail: map[string]error{"jbd2": syscall.EINVAL}}
	in := NewInserter(mustResolver(t, tree), kernel, quietLogger())

	err := in.Insert(filepath.Join(tree.ModulesDir(), "kernel/fs/ext4/ext4.ko"), []string{"x=1"})
	var insErr *InsertError
	if !errors.As(err, &insErr) {
		t.Fatalf("Insert() error = %v, want *InsertError", err)
	}
	if insErr.Module != "jbd2" {
		t.Errorf("Module = %q, want jbd2", insErr.Module)
	}
	if got := kernel.modules(); !slices.Equal(got, []string{"crc16", "jbd2"}) {
		t.Errorf("calls = %v, want [crc16 jbd2]", got)
	}
}

func TestInserter_MissingTarget(t *testing.T) {
	t.Parallel()

	tree := ext4Tree(t)
	kernel := &fakeKernel{}
	in := NewInserter(mustResolver(t, tree), kernel, quietLogger())

	err := in.Insert(filepath.Join(tree.Root, "missing.ko"), nil)
	var insErr *InsertError
	if !errors.As(err, &insErr) || insErr.Kind != InsertSystemError {
		t.Fatalf("Insert() error = %v, want system *InsertError", err)
	}
	if !errors.Is(err, ErrModuleNotFound) {
		t.Errorf("error = %v, want ErrModuleNotFound in chain", err)
	}
	if len(kernel.calls) != 0 {
		t.Errorf("kernel was called: %+v", kernel.calls)
	}
}

func TestInserter_DependencyCycle(t *testing.T) {
	t.Parallel()

	tree := kmodtest.NewTree(t, testRelease)
	path := tree.AddModule("extra/a.ko", "name=a")
	tree.AddModule("extra/b.ko", "name=b")
	tree.WriteDep("extra/a.ko: extra/b.ko", "extra/b.ko: extra/a.ko")
	kernel := &fakeKernel{}

	err := NewInserter(mustResolver(t, tree), kernel, quietLogger()).Insert(path, nil)
	var cycleErr *dag.CycleError
	if !errors.As(err, &cycleErr) {
		t.Fatalf("Insert() error = %v, want *dag.CycleError in chain", err)
	}
	if len(kernel.calls) != 0 {
		t.Errorf("kernel was called: %+v", kernel.calls)
	}
}

func TestInserter_WithoutIndex(t *testing.T) {
	t.Parallel()

	tree := kmodtest.NewTree(t, testRelease)
	path := tree.AddModule("vboxsf.ko", "depends=vboxguest", "name=vboxsf")
	kernel := &fakeKernel{}
	in := NewInserter(NewResolver(nil, tree.SysRoot()), kernel, quietLogger())

	if err := in.Insert(path, nil); !errors.Is(err, ErrModuleNotFound) {
		t.Fatalf("Insert() error = %v, want ErrModuleNotFound for the unresolvable dependency", err)
	}

	tree.Load("vboxguest")
	if err := in.Insert(path, nil); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	if got := kernel.modules(); !slices.Equal(got, []string{"vboxsf"}) {
		t.Errorf("loaded %v, want [vboxsf]", got)
	}
}

func TestInserter_LoadedDependencyOutsideIndex(t *testing.T) {
	t.Parallel()

	tree := ext4Tree(t)
	path := tree.AddModule("extra/vboxsf.ko", "depends=vboxguest", "name=vboxsf")
	tree.Load("vboxguest")
	kernel := &fakeKernel{}

	if err := NewInserter(mustResolver(t, tree), kernel, quietLogger()).Insert(path, nil); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	if got := kernel.modules(); !slices.Equal(got, []string{"vboxsf"}) {
		t.Errorf("loaded %v, want [vboxsf]", got)
	}
}
