// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/invowk/kmodule/pkg/kmod"
	"github.com/invowk/kmodule/pkg/types"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

// NewRootCommand builds the kmodule command tree around app.
func NewRootCommand(app *App) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "kmodule",
		Short: "Load, unload and inspect Linux kernel modules",
		Long: TitleStyle.Render("kmodule") + SubtitleStyle.Render(" - Load, unload and inspect Linux kernel modules") + `

kmodule reads the module databases under /lib/modules/<release> and talks
to the kernel directly, without libkmod.

` + SubtitleStyle.Render("Examples:") + `
  kmodule insmod ./hello.ko who=world    Insert a module with parameters
  kmodule rmmod -w hello                 Remove a module, waiting until unused
  kmodule modinfo ext4                   Show module metadata
  kmodule modinfo -k 6.1.0-18-amd64 fs-ext4
  kmodule lsmod                          List loaded modules`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return app.setup(cmd.Context())
		},
	}

	rootCmd.SetOut(app.stdout)
	rootCmd.SetErr(app.stderr)
	rootCmd.SetFlagErrorFunc(usageError)

	rootCmd.PersistentFlags().StringVar(&app.cfgFile, "config", "", "config file (default is $HOME/.config/kmodule/config.cue)")
	rootCmd.PersistentFlags().CountVarP(&app.flagVerbose, "verbose", "v", "increase diagnostic verbosity (repeatable)")
	rootCmd.PersistentFlags().BoolVarP(&app.flagSyslog, "syslog", "s", false, "send diagnostics to syslog instead of stderr")

	rootCmd.AddCommand(newInsmodCommand(app))
	rootCmd.AddCommand(newRmmodCommand(app))
	rootCmd.AddCommand(newModinfoCommand(app))
	rootCmd.AddCommand(newLsmodCommand(app))
	rootCmd.AddCommand(newConfigCommand(app))

	return rootCmd
}

// usageError reports a command-line mistake and maps it to the usage exit code.
func usageError(cmd *cobra.Command, err error) error {
	fmt.Fprintln(cmd.ErrOrStderr(), ErrorStyle.Render("Error:")+" "+err.Error())
	fmt.Fprintf(cmd.ErrOrStderr(), "Run '%s --help' for usage.\n", cmd.CommandPath())
	return &ExitError{Code: types.ExitUsage, Err: err}
}

// usageArgs wraps a positional argument validator so that violations exit
// with the usage code.
func usageArgs(validate cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := validate(cmd, args); err != nil {
			return usageError(cmd, err)
		}
		return nil
	}
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// errorHandler prints errors fang receives, except those the commands have
// already reported.
func errorHandler(w io.Writer, styles fang.Styles, err error) {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return
	}
	fang.DefaultErrorHandler(w, styles, err)
}

// Main runs kmodule with the process arguments and returns its exit code.
func Main() int {
	defer func() { _ = kmod.SetLogging(false) }()

	app := NewApp(Dependencies{})
	err := fang.Execute(
		context.Background(),
		NewRootCommand(app),
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
		fang.WithErrorHandler(errorHandler),
	)
	return int(exitCodeOf(err))
}

// Execute runs kmodule and exits the process. It is called by main.main().
func Execute() {
	os.Exit(Main())
}
