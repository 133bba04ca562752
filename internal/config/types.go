// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/invowk/kmodule/pkg/types"
)

const (
	// ColorSchemeAuto detects the terminal color scheme automatically.
	ColorSchemeAuto ColorScheme = "auto"
	// ColorSchemeDark forces dark color scheme.
	ColorSchemeDark ColorScheme = "dark"
	// ColorSchemeLight forces light color scheme.
	ColorSchemeLight ColorScheme = "light"

	// LogLevelError reports failures only.
	LogLevelError LogLevel = "error"
	// LogLevelWarn adds skipped metadata and similar warnings.
	LogLevelWarn LogLevel = "warn"
	// LogLevelInfo adds one line per inserted or removed module.
	LogLevelInfo LogLevel = "info"
	// LogLevelDebug adds dependency walks and kernel state reads.
	LogLevelDebug LogLevel = "debug"
)

var (
	// ErrInvalidColorScheme is returned when a ColorScheme value is not recognized.
	ErrInvalidColorScheme = errors.New("invalid color scheme")
	// ErrInvalidLogLevel is returned when a LogLevel value is not recognized.
	ErrInvalidLogLevel = errors.New("invalid log level")
	// ErrInvalidKernelRelease is returned when a KernelRelease cannot name a directory.
	ErrInvalidKernelRelease = errors.New("invalid kernel release")
	// ErrInvalidRootDir is returned when a RootDir value is whitespace-only.
	ErrInvalidRootDir = errors.New("invalid root directory")
	// ErrInvalidLogConfig is the sentinel error wrapped by InvalidLogConfigError.
	ErrInvalidLogConfig = errors.New("invalid log config")
	// ErrInvalidUIConfig is the sentinel error wrapped by InvalidUIConfigError.
	ErrInvalidUIConfig = errors.New("invalid UI config")
	// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")
)

type (
	// ColorScheme specifies the terminal color scheme preference.
	ColorScheme string

	// InvalidColorSchemeError is returned when a ColorScheme value is not recognized.
	// It wraps ErrInvalidColorScheme for errors.Is() compatibility.
	InvalidColorSchemeError struct {
		Value ColorScheme
	}

	// LogLevel is the minimum severity of diagnostics that get reported.
	LogLevel string

	// InvalidLogLevelError is returned when a LogLevel value is not recognized.
	InvalidLogLevelError struct {
		Value LogLevel
	}

	// KernelRelease names a directory below lib/modules, as `uname -r` prints it.
	// The zero value ("") selects the running kernel.
	KernelRelease string

	// InvalidKernelReleaseError is returned when a KernelRelease contains a path
	// separator or whitespace.
	InvalidKernelReleaseError struct {
		Value KernelRelease
	}

	// RootDir is prepended to lib/modules. The zero value ("") means "/".
	// Non-zero values must not be whitespace-only.
	RootDir string

	// InvalidRootDirError is returned when a RootDir value is non-empty but
	// whitespace-only.
	InvalidRootDirError struct {
		Value RootDir
	}

	// InvalidLogConfigError is returned when a LogConfig has invalid fields.
	InvalidLogConfigError struct {
		FieldErrors []error
	}

	// InvalidUIConfigError is returned when a UIConfig has invalid fields.
	// It wraps ErrInvalidUIConfig for errors.Is() compatibility and collects
	// field-level validation errors.
	InvalidUIConfigError struct {
		FieldErrors []error
	}

	// InvalidConfigError is returned when a Config has invalid fields.
	// It wraps ErrInvalidConfig for errors.Is() compatibility and collects
	// field-level validation errors from all sub-components.
	InvalidConfigError struct {
		FieldErrors []error
	}

	// Config holds the application configuration.
	Config struct {
		// RootDir is prepended to lib/modules when locating the module tree
		RootDir RootDir `json:"root_dir" toml:"root_dir" mapstructure:"root_dir"`
		// KernelRelease selects the module tree; empty means the running kernel
		KernelRelease KernelRelease `json:"kernel_release" toml:"kernel_release" mapstructure:"kernel_release"`
		// SysRoot is the sysfs mount point
		SysRoot types.FilesystemPath `json:"sys_root" toml:"sys_root" mapstructure:"sys_root"`
		// ProcRoot is the procfs mount point
		ProcRoot types.FilesystemPath `json:"proc_root" toml:"proc_root" mapstructure:"proc_root"`
		// Log configures diagnostics
		Log LogConfig `json:"log" toml:"log" mapstructure:"log"`
		// Remove sets rmmod defaults
		Remove RemoveConfig `json:"remove" toml:"remove" mapstructure:"remove"`
		// UI configures the user interface
		UI UIConfig `json:"ui" toml:"ui" mapstructure:"ui"`
	}

	// LogConfig configures where diagnostics go and how much is reported.
	LogConfig struct {
		// Syslog routes diagnostics to the system log instead of stderr
		Syslog bool `json:"syslog" toml:"syslog" mapstructure:"syslog"`
		// Level is the minimum severity reported
		Level LogLevel `json:"level" toml:"level" mapstructure:"level"`
	}

	// RemoveConfig holds defaults for module removal; command-line flags
	// can only turn them on.
	RemoveConfig struct {
		// Force unloads modules even when they are in use
		Force bool `json:"force" toml:"force" mapstructure:"force"`
		// Wait blocks until the module is no longer in use
		Wait bool `json:"wait" toml:"wait" mapstructure:"wait"`
	}

	// UIConfig configures the user interface.
	UIConfig struct {
		// ColorScheme sets the color scheme ("auto", "dark", "light")
		ColorScheme ColorScheme `json:"color_scheme" toml:"color_scheme" mapstructure:"color_scheme"`
		// Verbose enables verbose output
		Verbose bool `json:"verbose" toml:"verbose" mapstructure:"verbose"`
	}
)

// IsValid returns whether the LogConfig has valid fields.
func (c LogConfig) IsValid() (bool, []error) {
	if valid, fieldErrs := c.Level.IsValid(); !valid {
		return false, []error{&InvalidLogConfigError{FieldErrors: fieldErrs}}
	}
	return true, nil
}

// Error implements the error interface for InvalidLogConfigError.
func (e *InvalidLogConfigError) Error() string {
	return fmt.Sprintf("invalid log config: %d field error(s)", len(e.FieldErrors))
}

// Unwrap returns ErrInvalidLogConfig for errors.Is() compatibility.
func (e *InvalidLogConfigError) Unwrap() error { return ErrInvalidLogConfig }

// IsValid returns whether the UIConfig has valid fields.
// It delegates to ColorScheme.IsValid(); bool fields need no validation.
func (c UIConfig) IsValid() (bool, []error) {
	var errs []error
	if valid, fieldErrs := c.ColorScheme.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if len(errs) > 0 {
		return false, []error{&InvalidUIConfigError{FieldErrors: errs}}
	}
	return true, nil
}

// Error implements the error interface for InvalidUIConfigError.
func (e *InvalidUIConfigError) Error() string {
	return fmt.Sprintf("invalid UI config: %d field error(s)", len(e.FieldErrors))
}

// Unwrap returns ErrInvalidUIConfig for errors.Is() compatibility.
func (e *InvalidUIConfigError) Unwrap() error { return ErrInvalidUIConfig }

// IsValid returns whether the Config has valid fields.
// RemoveConfig has only bool fields and needs no validation.
func (c Config) IsValid() (bool, []error) {
	var errs []error
	if valid, fieldErrs := c.RootDir.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if valid, fieldErrs := c.KernelRelease.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if valid, fieldErrs := c.SysRoot.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if valid, fieldErrs := c.ProcRoot.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if valid, fieldErrs := c.Log.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if valid, fieldErrs := c.UI.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if len(errs) > 0 {
		return false, []error{&InvalidConfigError{FieldErrors: errs}}
	}
	return true, nil
}

// Error implements the error interface for InvalidConfigError.
func (e *InvalidConfigError) Error() string {
	return fmt.Sprintf("invalid config: %d field error(s)", len(e.FieldErrors))
}

// Unwrap returns ErrInvalidConfig for errors.Is() compatibility.
func (e *InvalidConfigError) Unwrap() error { return ErrInvalidConfig }

// String returns the string representation of the RootDir.
func (d RootDir) String() string { return string(d) }

// IsValid returns whether the RootDir is valid.
// The zero value ("") is valid (means "/").
func (d RootDir) IsValid() (bool, []error) {
	if d != "" && strings.TrimSpace(string(d)) == "" {
		return false, []error{&InvalidRootDirError{Value: d}}
	}
	return true, nil
}

// Error implements the error interface for InvalidRootDirError.
func (e *InvalidRootDirError) Error() string {
	return fmt.Sprintf("invalid root directory %q: must not be whitespace-only", e.Value)
}

// Unwrap returns ErrInvalidRootDir for errors.Is() compatibility.
func (e *InvalidRootDirError) Unwrap() error { return ErrInvalidRootDir }

// String returns the string representation of the KernelRelease.
func (r KernelRelease) String() string { return string(r) }

// IsValid returns whether the KernelRelease can name a single directory.
// The zero value ("") is valid (means "running kernel").
func (r KernelRelease) IsValid() (bool, []error) {
	if strings.ContainsAny(string(r), "/ \t\n") || r == "." || r == ".." {
		return false, []error{&InvalidKernelReleaseError{Value: r}}
	}
	return true, nil
}

// Error implements the error interface for InvalidKernelReleaseError.
func (e *InvalidKernelReleaseError) Error() string {
	return fmt.Sprintf("invalid kernel release %q: must be a single directory name", e.Value)
}

// Unwrap returns ErrInvalidKernelRelease for errors.Is() compatibility.
func (e *InvalidKernelReleaseError) Unwrap() error { return ErrInvalidKernelRelease }

// Error implements the error interface.
func (e *InvalidColorSchemeError) Error() string {
	return fmt.Sprintf("invalid color scheme %q (valid: auto, dark, light)", e.Value)
}

// Unwrap returns ErrInvalidColorScheme so callers can use errors.Is for programmatic detection.
func (e *InvalidColorSchemeError) Unwrap() error {
	return ErrInvalidColorScheme
}

// String returns the string representation of the ColorScheme.
func (cs ColorScheme) String() string { return string(cs) }

// IsValid returns whether the ColorScheme is one of the defined color schemes,
// and a list of validation errors if it is not.
func (cs ColorScheme) IsValid() (bool, []error) {
	switch cs {
	case ColorSchemeAuto, ColorSchemeDark, ColorSchemeLight:
		return true, nil
	default:
		return false, []error{&InvalidColorSchemeError{Value: cs}}
	}
}

// Error implements the error interface.
func (e *InvalidLogLevelError) Error() string {
	return fmt.Sprintf("invalid log level %q (valid: error, warn, info, debug)", e.Value)
}

// Unwrap returns ErrInvalidLogLevel so callers can use errors.Is for programmatic detection.
func (e *InvalidLogLevelError) Unwrap() error { return ErrInvalidLogLevel }

// String returns the string representation of the LogLevel.
func (l LogLevel) String() string { return string(l) }

// IsValid returns whether the LogLevel is one of the defined levels.
func (l LogLevel) IsValid() (bool, []error) {
	switch l {
	case LogLevelError, LogLevelWarn, LogLevelInfo, LogLevelDebug:
		return true, nil
	default:
		return false, []error{&InvalidLogLevelError{Value: l}}
	}
}

// Verbosity converts the level into the verbosity count the module
// operations take: error 0, warn 1, info 2, debug 4.
func (l LogLevel) Verbosity() int {
	switch l {
	case LogLevelWarn:
		return 1
	case LogLevelInfo:
		return 2
	case LogLevelDebug:
		return 4
	default:
		return 0
	}
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		RootDir:       "",
		KernelRelease: "",
		SysRoot:       "/sys",
		ProcRoot:      "/proc",
		Log: LogConfig{
			Syslog: false,
			Level:  LogLevelError,
		},
		Remove: RemoveConfig{},
		UI: UIConfig{
			ColorScheme: ColorSchemeAuto,
			Verbose:     false,
		},
	}
}
