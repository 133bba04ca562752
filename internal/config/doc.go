// SPDX-License-Identifier: MPL-2.0

// Package config handles kmodule configuration using Viper with CUE as the file format.
//
// Configuration is loaded from ~/.config/kmodule/config.cue (or $XDG_CONFIG_HOME on Linux,
// ~/Library/Application Support/kmodule/config.cue on macOS). It selects the module tree
// (root directory and kernel release), the sysfs and procfs mount points, diagnostic
// logging, removal defaults and UI settings.
//
// Configuration validation is performed against a CUE schema (config_schema.cue) to ensure
// type safety and provide clear error messages for invalid configurations.
package config
