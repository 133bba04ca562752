// SPDX-License-Identifier: MPL-2.0

package kmod

import (
	"io"
	"os"
	"sync"
	"testing"

	"github.com/invowk/kmodule/internal/testutil/kmodtest"

	"github.com/charmbracelet/log"
)

const testRelease = "6.1.0-test"

type (
	// kernelCall records one primitive invocation of fakeKernel.
	kernelCall struct {
		op     string // "finit", "init" or "delete"
		module string
		params string
		flags  RemoveFlags
	}

	// fakeKernel records module system calls instead of issuing them.
	fakeKernel struct {
		mu    sync.Mutex
		calls []kernelCall
		// fail maps module names to the error their call returns.
		fail map[string]error
	}
)

func (k *fakeKernel) FinitModule(f *os.File, params string) error {
	return k.record(kernelCall{op: "finit", module: NameFromPath(f.Name()), params: params})
}

func (k *fakeKernel) InitModule(image []byte, params string) error {
	name := "?"
	if entries, err := parseModinfo(image); err == nil {
		if v, ok := infoValue(entries, keyName); ok {
			name = v
		}
	}
	return k.record(kernelCall{op: "init", module: name, params: params})
}

func (k *fakeKernel) DeleteModule(name string, flags RemoveFlags) error {
	return k.record(kernelCall{op: "delete", module: name, flags: flags})
}

func (k *fakeKernel) record(c kernelCall) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.calls = append(k.calls, c)
	return k.fail[c.module]
}

// modules returns the module names of every recorded call, in order.
func (k *fakeKernel) modules() []string {
	k.mu.Lock()
	defer k.mu.Unlock()
	names := make([]string, 0, len(k.calls))
	for _, c := range k.calls {
		names = append(names, c.module)
	}
	return names
}

func quietLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{Level: log.DebugLevel})
}

// ext4Tree is a small tree with a dependency chain ext4 -> jbd2 -> crc16.
func ext4Tree(t *testing.T) *kmodtest.Tree {
	t.Helper()
	tree := kmodtest.NewTree(t, testRelease)
	tree.AddModule("kernel/fs/ext4/ext4.ko",
		"alias=fs-ext4", "license=GPL", "depends=jbd2,crc16", "name=ext4")
	tree.AddModule("kernel/fs/jbd2/jbd2.ko", "license=GPL", "depends=crc16", "name=jbd2")
	tree.AddModule("kernel/lib/crc16.ko", "license=GPL", "depends=", "name=crc16")
	tree.WriteDep(
		"kernel/fs/ext4/ext4.ko: kernel/fs/jbd2/jbd2.ko kernel/lib/crc16.ko",
		"kernel/fs/jbd2/jbd2.ko: kernel/lib/crc16.ko",
		"kernel/lib/crc16.ko:",
	)
	tree.WriteAlias("alias fs-ext4 ext4", "alias ext3 ext4")
	return tree
}

func mustIndex(t *testing.T, tree *kmodtest.Tree) *Index {
	t.Helper()
	idx, err := BuildIndex(tree.Root, tree.Release)
	if err != nil {
		t.Fatalf("BuildIndex() error = %v", err)
	}
	return idx
}

func mustResolver(t *testing.T, tree *kmodtest.Tree) *Resolver {
	t.Helper()
	return NewResolver(mustIndex(t, tree), tree.SysRoot())
}
