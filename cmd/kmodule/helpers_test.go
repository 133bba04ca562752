// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/invowk/kmodule/internal/testutil"
	"github.com/invowk/kmodule/internal/testutil/kmodtest"
	"github.com/invowk/kmodule/pkg/kmod"
	"github.com/invowk/kmodule/pkg/types"
)

const testRelease = "6.1.0-test"

type (
	// fakeKernel records module system calls as "op module [detail]" strings.
	fakeKernel struct {
		mu    sync.Mutex
		calls []string
		fail  map[string]error
	}

	cliResult struct {
		stdout string
		stderr string
		code   types.ExitCode
		err    error
	}
)

func (k *fakeKernel) FinitModule(f *os.File, params string) error {
	return k.record("finit", kmod.NameFromPath(f.Name()), params)
}

func (k *fakeKernel) InitModule(_ []byte, params string) error {
	return k.record("init", "image", params)
}

func (k *fakeKernel) DeleteModule(name string, flags kmod.RemoveFlags) error {
	detail := ""
	if flags.Has(kmod.RemoveForce) {
		detail = "force"
	}
	if !flags.Has(kmod.RemoveNoWait) {
		detail += "wait"
	}
	return k.record("delete", name, detail)
}

func (k *fakeKernel) record(op, module, detail string) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	call := op + " " + module
	if detail != "" {
		call += " " + detail
	}
	k.calls = append(k.calls, call)
	return k.fail[module]
}

func (k *fakeKernel) recorded() []string {
	k.mu.Lock()
	defer k.mu.Unlock()
	return append([]string(nil), k.calls...)
}

// moduleTree builds ext4 -> jbd2 -> crc16 plus a parameterized module, an
// alias shared by two modules and a built-in module.
func moduleTree(t *testing.T) *kmodtest.Tree {
	t.Helper()
	tree := kmodtest.NewTree(t, testRelease)
	tree.AddModule("kernel/fs/ext4/ext4.ko",
		"alias=fs-ext4", "alias=fs-ext3", "license=GPL", "depends=jbd2,crc16", "name=ext4")
	tree.AddModule("kernel/fs/jbd2/jbd2.ko.xz", "license=GPL", "depends=crc16", "name=jbd2")
	tree.AddModule("kernel/lib/crc16.ko", "license=GPL", "depends=", "name=crc16")
	tree.AddModule("kernel/drivers/net/dummy.ko",
		"parm=numdummies:Number of dummy pseudo devices", "parmtype=numdummies:int",
		"license=GPL", "alias=rtnl-link-dummy", "depends=", "name=dummy")
	tree.WriteDep(
		"kernel/fs/ext4/ext4.ko: kernel/fs/jbd2/jbd2.ko.xz kernel/lib/crc16.ko",
		"kernel/fs/jbd2/jbd2.ko.xz: kernel/lib/crc16.ko",
		"kernel/lib/crc16.ko:",
		"kernel/drivers/net/dummy.ko:",
	)
	tree.WriteAlias(
		"alias fs-ext4 ext4",
		"alias fs-ext3 ext4",
		"alias rtnl-link-dummy dummy",
		"alias net-pf-* dummy",
		"alias net-pf-* crc16",
	)
	tree.WriteBuiltin("kernel/drivers/char/mem.ko")
	tree.WriteBuiltinModinfo("mem.license=GPL", "mem.description=/dev/mem driver")
	return tree
}

// writeTreeConfig writes a config pointing kmodule at tree, followed by extra
// CUE, and returns its path.
func writeTreeConfig(t *testing.T, tree *kmodtest.Tree, extra string) string {
	t.Helper()
	content := fmt.Sprintf("root_dir: %q\nkernel_release: %q\nsys_root: %q\nproc_root: %q\n%s",
		tree.Root, tree.Release, tree.SysRoot(), tree.ProcRoot(), extra)
	path := filepath.Join(t.TempDir(), "config.cue")
	testutil.MustWriteFile(t, path, []byte(content))
	return path
}

// runCLI executes kmodule in-process against kernel.
func runCLI(t *testing.T, kernel kmod.Kernel, args ...string) cliResult {
	t.Helper()
	var stdout, stderr bytes.Buffer
	app := NewApp(Dependencies{Kernel: kernel, Stdout: &stdout, Stderr: &stderr})
	root := NewRootCommand(app)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return cliResult{stdout: stdout.String(), stderr: stderr.String(), code: exitCodeOf(err), err: err}
}
