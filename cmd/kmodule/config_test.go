// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/invowk/kmodule/internal/config"
	"github.com/invowk/kmodule/internal/testutil"
	"github.com/invowk/kmodule/pkg/types"
)

func TestConfigShow(t *testing.T) {
	t.Parallel()

	cfgPath := filepath.Join(t.TempDir(), "config.cue")
	testutil.MustWriteFile(t, cfgPath, []byte("kernel_release: \"6.1.0-18-amd64\"\nremove: force: true\n"))

	tests := []struct {
		format string
		want   []string
	}{
		{"cue", []string{`kernel_release: "6.1.0-18-amd64"`, "force: true"}},
		{"toml", []string{"[remove]", "force = true", "6.1.0-18-amd64"}},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			t.Parallel()
			res := runCLI(t, &fakeKernel{}, "--config", cfgPath, "config", "show", "--format", tt.format)
			if res.code != types.ExitSuccess {
				t.Fatalf("exit code = %d, stderr:\n%s", res.code, res.stderr)
			}
			for _, want := range tt.want {
				if !strings.Contains(res.stdout, want) {
					t.Errorf("output missing %q:\n%s", want, res.stdout)
				}
			}
		})
	}
}

func TestConfigShow_JSON(t *testing.T) {
	t.Parallel()

	cfgPath := filepath.Join(t.TempDir(), "config.cue")
	testutil.MustWriteFile(t, cfgPath, []byte("log: level: \"info\"\n"))

	res := runCLI(t, &fakeKernel{}, "--config", cfgPath, "config", "show", "--format", "json")
	if res.code != types.ExitSuccess {
		t.Fatalf("exit code = %d, stderr:\n%s", res.code, res.stderr)
	}

	var got config.Config
	if err := json.Unmarshal([]byte(res.stdout), &got); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, res.stdout)
	}
	want := *config.DefaultConfig()
	want.Log.Level = config.LogLevelInfo
	if got != want {
		t.Errorf("config = %+v, want %+v", got, want)
	}
}

func TestConfigShow_UnknownFormat(t *testing.T) {
	t.Parallel()

	res := runCLI(t, &fakeKernel{}, "--config", filepath.Join(t.TempDir(), "none.cue"), "config", "show", "--format", "yaml")
	if res.code != types.ExitUsage {
		t.Errorf("exit code = %d, want %d", res.code, types.ExitUsage)
	}
	if !strings.Contains(res.stderr, `unknown format "yaml"`) {
		t.Errorf("stderr should name the format:\n%s", res.stderr)
	}
}

func TestConfigShow_BrokenConfigFallsBack(t *testing.T) {
	t.Parallel()

	cfgPath := filepath.Join(t.TempDir(), "config.cue")
	testutil.MustWriteFile(t, cfgPath, []byte("log: {\n"))

	res := runCLI(t, &fakeKernel{}, "--config", cfgPath, "config", "show")
	if res.code != types.ExitSuccess {
		t.Fatalf("exit code = %d, stderr:\n%s", res.code, res.stderr)
	}
	if !strings.Contains(res.stderr, "Warning:") {
		t.Errorf("expected a warning about the broken config:\n%s", res.stderr)
	}
	if !strings.Contains(res.stdout, `sys_root: "/sys"`) {
		t.Errorf("expected the default configuration:\n%s", res.stdout)
	}
}

func TestConfigInit(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "kmodule")
	cfgPath := filepath.Join(dir, config.ConfigFileName+"."+config.ConfigFileExt)

	res := runCLI(t, &fakeKernel{}, "--config", cfgPath, "config", "init")
	if res.code != types.ExitSuccess {
		t.Fatalf("exit code = %d, stderr:\n%s", res.code, res.stderr)
	}
	if !strings.Contains(res.stdout, "Created config file:") {
		t.Errorf("stdout = %q, want creation notice", res.stdout)
	}
	if _, err := os.Stat(cfgPath); err != nil {
		t.Fatalf("config file not created: %v", err)
	}

	res = runCLI(t, &fakeKernel{}, "--config", cfgPath, "config", "init")
	if res.code != types.ExitSuccess || !strings.Contains(res.stdout, "already exists") {
		t.Errorf("second init: code %d, stdout %q", res.code, res.stdout)
	}
}

func TestConfigPath(t *testing.T) {
	t.Parallel()

	cfgPath := filepath.Join(t.TempDir(), "config.cue")
	testutil.MustWriteFile(t, cfgPath, []byte("ui: verbose: true\n"))

	res := runCLI(t, &fakeKernel{}, "--config", cfgPath, "config", "path")
	if got := strings.TrimSpace(res.stdout); got != cfgPath {
		t.Errorf("config path = %q, want %q", got, cfgPath)
	}

	res = runCLI(t, &fakeKernel{}, "--config", filepath.Join(t.TempDir(), "missing.cue"), "config", "path")
	if !strings.Contains(res.stdout, "(not found, using defaults)") {
		t.Errorf("stdout = %q, want the default location", res.stdout)
	}
}
