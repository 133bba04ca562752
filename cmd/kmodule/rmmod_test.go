// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/invowk/kmodule/internal/testutil/kmodtest"
	"github.com/invowk/kmodule/pkg/kmod"
	"github.com/invowk/kmodule/pkg/types"
)

func TestRmmod(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		configure string
		args      []string
		wantCode  types.ExitCode
		wantCalls []string
		wantErr   string
	}{
		{
			name:      "unused module",
			args:      []string{"crc16"},
			wantCode:  types.ExitSuccess,
			wantCalls: []string{"delete crc16"},
		},
		{
			name:      "by path",
			args:      []string{"PATH:kernel/lib/crc16.ko"},
			wantCode:  types.ExitSuccess,
			wantCalls: []string{"delete crc16"},
		},
		{
			name:     "held module",
			args:     []string{"jbd2"},
			wantCode: types.ExitFailure,
			wantErr:  "Module in use",
		},
		{
			name:      "refusal does not stop the batch",
			args:      []string{"jbd2", "crc16"},
			wantCode:  types.ExitFailure,
			wantCalls: []string{"delete crc16"},
			wantErr:   "jbd2",
		},
		{
			name:     "unknown module aborts the batch",
			args:     []string{"nosuch", "crc16"},
			wantCode: types.ExitFailure,
			wantErr:  "Module not found",
		},
		{
			name:     "builtin module",
			args:     []string{"mem"},
			wantCode: types.ExitFailure,
			wantErr:  "Module is built in",
		},
		{
			name:     "not loaded",
			args:     []string{"dummy"},
			wantCode: types.ExitFailure,
			wantErr:  "Module not loaded",
		},
		{
			name:      "force flag skips the in-use check",
			args:      []string{"-f", "jbd2"},
			wantCode:  types.ExitSuccess,
			wantCalls: []string{"delete jbd2 force"},
		},
		{
			name:      "wait flag",
			args:      []string{"--wait", "crc16"},
			wantCode:  types.ExitSuccess,
			wantCalls: []string{"delete crc16 wait"},
		},
		{
			name:      "config enables force and wait",
			configure: "remove: {\n\tforce: true\n\twait: true\n}\n",
			args:      []string{"jbd2"},
			wantCode:  types.ExitSuccess,
			wantCalls: []string{"delete jbd2 forcewait"},
		},
		{
			name:     "no arguments",
			wantCode: types.ExitUsage,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			tree := moduleTree(t)
			tree.Load("crc16", kmodtest.WithRefcount(0))
			tree.Load("jbd2", kmodtest.WithRefcount(1), kmodtest.WithHolders("ext4"))
			tree.LoadBuiltin("mem")
			cfg := writeTreeConfig(t, tree, tt.configure)

			args := make([]string, 0, len(tt.args))
			for _, a := range tt.args {
				if rel, ok := strings.CutPrefix(a, "PATH:"); ok {
					a = tree.ModulesDir() + "/" + rel
				}
				args = append(args, a)
			}

			kernel := &fakeKernel{}
			res := runCLI(t, kernel, append([]string{"--config", cfg, "rmmod"}, args...)...)

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

func TestRmmod_Verbose(t *testing.T) {
	t.Parallel()

	tree := moduleTree(t)
	tree.Load("crc16")
	tree.Load("dummy")

	res := runCLI(t, &fakeKernel{}, "--config", writeTreeConfig(t, tree, ""), "rmmod", "-vv", "crc16", "dummy")
	if res.code != types.ExitSuccess {
		t.Fatalf("exit code = %d, stderr:\n%s", res.code, res.stderr)
	}
	for _, want := range []string{"removed crc16", "removed dummy"} {
		if !strings.Contains(res.stdout, want) {
			t.Errorf("stdout missing %q:\n%s", want, res.stdout)
		}
	}
	if !strings.Contains(res.stderr, "removed module") {
		t.Errorf("info diagnostics should be logged at -vv:\n%s", res.stderr)
	}
}

func TestRmmod_KernelFailure(t *testing.T) {
	t.Parallel()

	tree := moduleTree(t)
	tree.Load("crc16")

	kernel := &fakeKernel{fail: map[string]error{"crc16": errPermission}}
	res := runCLI(t, kernel, "--config", writeTreeConfig(t, tree, ""), "rmmod", "crc16")

	if res.code != types.ExitFailure {
		t.Errorf("exit code = %d, want %d", res.code, types.ExitFailure)
	}
	var rmErr *kmod.RemoveError
	if !errors.As(res.err, &rmErr) || rmErr.Kind != kmod.RemoveSystemError {
		t.Fatalf("error = %v, want RemoveSystemError", res.err)
	}
	if !strings.Contains(res.stderr, "CAP_SYS_MODULE") {
		t.Errorf("stderr should explain the permission problem:\n%s", res.stderr)
	}
}
