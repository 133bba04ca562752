// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/invowk/kmodule/internal/config"
	"github.com/invowk/kmodule/pkg/types"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
)

// newConfigCommand creates the `kmodule config` command tree.
func newConfigCommand(app *App) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage kmodule configuration",
		Long: `Manage kmodule configuration.

Configuration is stored in:
  - Linux: ~/.config/kmodule/config.cue
  - macOS: ~/Library/Application Support/kmodule/config.cue`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	var format string
	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := renderConfig(app.cfg, format)
			if err != nil {
				return usageError(cmd, err)
			}
			fmt.Fprint(cmd.OutOrStdout(), out)
			return nil
		},
	}
	showCmd.Flags().StringVar(&format, "format", "cue", "output format (cue, toml, json)")

	cfgCmd.AddCommand(showCmd)

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create default configuration file",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			var dir types.FilesystemPath
			if app.cfgFile != "" {
				dir = types.FilesystemPath(app.cfgFile).Dir()
			}
			path, created, err := config.CreateDefaultConfig(string(dir))
			if err != nil {
				return app.fail("create configuration", err)
			}
			if created {
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", SuccessStyle.Render("Created config file:"), path)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", WarningStyle.Render("Config file already exists:"), path)
			}
			return nil
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration file path",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			if app.cfgPath != "" {
				fmt.Fprintln(cmd.OutOrStdout(), app.cfgPath)
				return nil
			}
			path, err := config.DefaultConfigPath()
			if err != nil {
				return app.fail("locate configuration", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), path.String()+" "+SubtitleStyle.Render("(not found, using defaults)"))
			return nil
		},
	})

	return cfgCmd
}

// renderConfig encodes cfg in the requested format.
func renderConfig(cfg *config.Config, format string) (string, error) {
	switch format {
	case "cue", "":
		return config.GenerateCUE(cfg), nil
	case "toml":
		out, err := toml.Marshal(cfg)
		if err != nil {
			return "", err
		}
		return string(out), nil
	case "json":
		out, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return "", err
		}
		return string(out) + "\n", nil
	default:
		return "", fmt.Errorf("unknown format %q (valid: cue, toml, json)", format)
	}
}
