// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"slices"
	"strings"
	"syscall"
	"testing"

	"github.com/invowk/kmodule/pkg/kmod"
	"github.com/invowk/kmodule/pkg/types"
)

var errPermission = syscall.EPERM

func TestInsmod(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		path      string
		params    []string
		fail      map[string]error
		loaded    []string
		wantCode  types.ExitCode
		wantCalls []string
		wantErr   string
	}{
		{
			name:      "dependencies first",
			path:      "kernel/fs/ext4/ext4.ko",
			params:    []string{"debug=1", "nodelalloc"},
			wantCode:  types.ExitSuccess,
			wantCalls: []string{"finit crc16", "init image", "finit ext4 debug=1 nodelalloc"},
		},
		{
			name:      "loaded dependencies are skipped",
			path:      "kernel/fs/ext4/ext4.ko",
			loaded:    []string{"crc16", "jbd2"},
			wantCode:  types.ExitSuccess,
			wantCalls: []string{"finit ext4"},
		},
		{
			name:     "missing file",
			path:     "kernel/fs/nosuch.ko",
			wantCode: types.ExitFailure,
			wantErr:  "Module not found",
		},
		{
			name:      "already loaded",
			path:      "kernel/lib/crc16.ko",
			fail:      map[string]error{"crc16": syscall.EEXIST},
			wantCode:  types.ExitFailure,
			wantCalls: []string{"finit crc16"},
			wantErr:   "Module already loaded",
		},
		{
			name:      "invalid format",
			path:      "kernel/drivers/net/dummy.ko",
			fail:      map[string]error{"dummy": syscall.ENOEXEC},
			wantCode:  types.ExitFailure,
			wantCalls: []string{"finit dummy"},
			wantErr:   "Invalid module format",
		},
		{
			name:      "dependency failure stops insertion",
			path:      "kernel/fs/ext4/ext4.ko",
			fail:      map[string]error{"crc16": syscall.ENOENT},
			wantCode:  types.ExitFailure,
			wantCalls: []string{"finit crc16"},
			wantErr:   "Unknown symbol",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			tree := moduleTree(t)
			for _, name := range tt.loaded {
				tree.Load(name)
			}
			kernel := &fakeKernel{fail: tt.fail}

			args := append([]string{"--config", writeTreeConfig(t, tree, ""), "insmod", tree.ModulesDir() + "/" + tt.path}, tt.params...)
			res := runCLI(t, kernel, args...)

			if res.code != tt.wantCode {
				t.Errorf("exit code = %d, want %d\nstderr:\n%s", res.code, tt.wantCode, res.stderr)
			}
			if calls := kernel.recorded(); !slices.Equal(calls, tt.wantCalls) {
				t.Errorf("kernel calls = %q, want %q", calls, tt.wantCalls)
			}
			if tt.wantErr != "" && !strings.Contains(res.stderr, tt.wantErr) {
				t.Errorf("stderr missing %q:\n%s", tt.wantErr, res.stderr)
			}
		})
	}
}

func TestInsmod_ErrorChain(t *testing.T) {
	t.Parallel()

	tree := moduleTree(t)
	kernel := &fakeKernel{fail: map[string]error{"crc16": syscall.EEXIST}}
	res := runCLI(t, kernel, "--config", writeTreeConfig(t, tree, ""), "-v", "insmod", tree.ModulesDir()+"/kernel/lib/crc16.ko")

	var insErr *kmod.InsertError
	if !errors.As(res.err, &insErr) || insErr.Module != "crc16" {
		t.Fatalf("error = %v, want InsertError for crc16", res.err)
	}
	if !strings.Contains(res.stderr, "Error chain:") {
		t.Errorf("verbose output should include the error chain:\n%s", res.stderr)
	}
}

func TestInsmod_Usage(t *testing.T) {
	t.Parallel()

	res := runCLI(t, &fakeKernel{}, "--config", writeTreeConfig(t, moduleTree(t), ""), "insmod")
	if res.code != types.ExitUsage {
		t.Errorf("exit code = %d, want %d", res.code, types.ExitUsage)
	}
	if !strings.Contains(res.stderr, "Run 'kmodule insmod --help' for usage.") {
		t.Errorf("stderr should point at the help:\n%s", res.stderr)
	}
}
