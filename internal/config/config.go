// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/invowk/kmodule/internal/issue"
	"github.com/invowk/kmodule/pkg/cueutil"
	"github.com/invowk/kmodule/pkg/types"

	"github.com/spf13/viper"
)

const (
	// AppName is the application name.
	AppName = "kmodule"
	// ConfigFileName is the name of the config file (without extension).
	ConfigFileName = "config"
	// ConfigFileExt is the config file extension.
	ConfigFileExt = "cue"
	// EnvConfigDir overrides the configuration directory.
	EnvConfigDir = "KMODULE_CONFIG_DIR"
)

var (
	//go:embed config_schema.cue
	configSchemaSource string

	configSchema = cueutil.MustCompileSchema(configSchemaSource, "#Config")
)

// ConfigDir returns the kmodule configuration directory: $KMODULE_CONFIG_DIR
// when set, otherwise ~/Library/Application Support/kmodule on macOS and
// $XDG_CONFIG_HOME/kmodule (defaulting to ~/.config/kmodule) elsewhere.
//
//nolint:revive // ConfigDir is more descriptive than Dir for external callers
func ConfigDir() (string, error) {
	if dir := os.Getenv(EnvConfigDir); dir != "" {
		return dir, nil
	}

	var configDir string

	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, "Library", "Application Support")
	default: // Linux and others
		configDir = os.Getenv("XDG_CONFIG_HOME")
		if configDir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("failed to get home directory: %w", err)
			}
			configDir = filepath.Join(home, ".config")
		}
	}

	return filepath.Join(configDir, AppName), nil
}

// loadWithOptions performs option-driven config loading without mutating
// package-level state. It returns the path of the file that was loaded, or ""
// when only defaults apply.
func loadWithOptions(ctx context.Context, opts LoadOptions) (*Config, string, error) {
	select {
	case <-ctx.Done():
		return nil, "", fmt.Errorf("load config canceled: %w", ctx.Err())
	default:
	}

	if err := opts.Validate(); err != nil {
		return nil, "", err
	}

	v := viper.New()

	defaults := DefaultConfig()
	v.SetDefault("root_dir", defaults.RootDir)
	v.SetDefault("kernel_release", defaults.KernelRelease)
	v.SetDefault("sys_root", defaults.SysRoot)
	v.SetDefault("proc_root", defaults.ProcRoot)
	v.SetDefault("log.syslog", defaults.Log.Syslog)
	v.SetDefault("log.level", defaults.Log.Level)
	v.SetDefault("remove.force", defaults.Remove.Force)
	v.SetDefault("remove.wait", defaults.Remove.Wait)
	v.SetDefault("ui.color_scheme", defaults.UI.ColorScheme)
	v.SetDefault("ui.verbose", defaults.UI.Verbose)

	resolvedPath := ""

	// A config file given with --config is used exclusively.
	if opts.ConfigFilePath != "" {
		path := string(opts.ConfigFilePath)
		if !fileExists(path) {
			return nil, "", issue.Wrap(fmt.Errorf("config file not found: %s", path), "load configuration").
				WithResource(path).
				Suggest(
					"Verify the file path is correct",
					"Check that the file exists and is readable",
					"Use 'kmodule config init' to create a default configuration",
				)
		}
		if err := loadCUEIntoViper(v, path); err != nil {
			return nil, "", loadError(path, err)
		}
		resolvedPath = path
	} else {
		cfgDir, err := configDirWithOverride(string(opts.ConfigDirPath))
		if err != nil {
			return nil, "", err
		}

		cuePath := filepath.Join(cfgDir, ConfigFileName+"."+ConfigFileExt)
		if fileExists(cuePath) {
			if err := loadCUEIntoViper(v, cuePath); err != nil {
				return nil, "", loadError(cuePath, err)
			}
			resolvedPath = cuePath
		}
		// If no config file found, use defaults (no error)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, "", fmt.Errorf("failed to parse config: %w", err)
	}

	// CUE checks shapes; the typed values check what CUE does not express.
	if valid, errs := cfg.IsValid(); !valid {
		return nil, "", issue.Wrap(errs[0], "validate configuration").
			WithResource(resolvedPath).
			Suggest("Check the values reported below against 'kmodule config show'")
	}

	return &cfg, resolvedPath, nil
}

func loadError(path string, err error) error {
	return issue.Wrap(err, "load configuration").
		WithResource(path).
		Suggest(
			"Check that the file contains valid CUE syntax",
			"Verify the configuration values match the expected schema",
			"See 'kmodule config --help' for configuration options",
		)
}

// configDirWithOverride resolves the configuration directory, honoring
// explicit provider options before platform defaults.
func configDirWithOverride(configDirPath string) (string, error) {
	if configDirPath != "" {
		return configDirPath, nil
	}

	return ConfigDir()
}

// loadCUEIntoViper parses a CUE file, validates it against the #Config schema,
// and merges its contents into Viper.
//
// Config fields are optional, so the file is decoded into a map that Viper
// merges over its defaults rather than into a Config directly.
func loadCUEIntoViper(v *viper.Viper, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var fields map[string]any
	if err := configSchema.Decode(data, &fields, cueutil.WithFilename(path)); err != nil {
		return err
	}

	// Merge into Viper (preserves defaults)
	if err := v.MergeConfigMap(fields); err != nil {
		return fmt.Errorf("failed to merge config: %w", err)
	}

	return nil
}

// fileExists checks if a file exists and is not a directory
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return false
	}
	return err == nil && !info.IsDir()
}

// DefaultConfigPath returns where the config file is looked up when --config
// is not given.
func DefaultConfigPath() (types.FilesystemPath, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return types.FilesystemPath(dir).Join(ConfigFileName + "." + ConfigFileExt), nil
}

// CreateDefaultConfig writes the default config file into dir (the platform
// config directory when dir is empty) unless one already exists. It returns
// the file path and whether it was created.
func CreateDefaultConfig(dir string) (string, bool, error) {
	cfgDir, err := configDirWithOverride(dir)
	if err != nil {
		return "", false, err
	}

	if err := os.MkdirAll(cfgDir, 0o755); err != nil {
		return "", false, fmt.Errorf("failed to create config directory: %w", err)
	}

	cfgPath := filepath.Join(cfgDir, ConfigFileName+"."+ConfigFileExt)

	if _, err := os.Stat(cfgPath); err == nil {
		return cfgPath, false, nil
	}

	if err := os.WriteFile(cfgPath, []byte(GenerateCUE(DefaultConfig())), 0o644); err != nil {
		return "", false, fmt.Errorf("failed to write config file: %w", err)
	}

	return cfgPath, true, nil
}

// GenerateCUE generates a CUE representation of the configuration
func GenerateCUE(cfg *Config) string {
	var sb strings.Builder

	sb.WriteString("// kmodule configuration file\n\n")

	fmt.Fprintf(&sb, "root_dir: %q\n", cfg.RootDir)
	fmt.Fprintf(&sb, "kernel_release: %q\n", cfg.KernelRelease)
	fmt.Fprintf(&sb, "sys_root: %q\n", cfg.SysRoot)
	fmt.Fprintf(&sb, "proc_root: %q\n", cfg.ProcRoot)

	sb.WriteString("\nlog: {\n")
	fmt.Fprintf(&sb, "\tsyslog: %v\n", cfg.Log.Syslog)
	fmt.Fprintf(&sb, "\tlevel: %q\n", cfg.Log.Level)
	sb.WriteString("}\n")

	sb.WriteString("\nremove: {\n")
	fmt.Fprintf(&sb, "\tforce: %v\n", cfg.Remove.Force)
	fmt.Fprintf(&sb, "\twait: %v\n", cfg.Remove.Wait)
	sb.WriteString("}\n")

	sb.WriteString("\nui: {\n")
	fmt.Fprintf(&sb, "\tcolor_scheme: %q\n", cfg.UI.ColorScheme)
	fmt.Fprintf(&sb, "\tverbose: %v\n", cfg.UI.Verbose)
	sb.WriteString("}\n")

	return sb.String()
}
