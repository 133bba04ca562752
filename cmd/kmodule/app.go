// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/invowk/kmodule/internal/config"
	"github.com/invowk/kmodule/internal/issue"
	"github.com/invowk/kmodule/pkg/kmod"
	"github.com/invowk/kmodule/pkg/types"

	"github.com/charmbracelet/log"
)

type (
	// App wires CLI services and shared dependencies. It is the composition root
	// for the CLI layer: every Cobra handler receives an App and builds its module
	// Context through it.
	App struct {
		Config config.SourceProvider
		kernel kmod.Kernel
		stdout io.Writer
		stderr io.Writer

		// Global flag values.
		cfgFile     string
		flagVerbose int
		flagSyslog  bool

		// Resolved by setup before any subcommand runs.
		cfg       *config.Config
		cfgPath   string
		verbosity int
		logger    *log.Logger
	}

	// Dependencies defines the injection points for building an App. Nil fields
	// are replaced with production defaults by NewApp.
	Dependencies struct {
		Config config.SourceProvider
		// Kernel issues module system calls; tests supply a recording fake.
		Kernel kmod.Kernel
		Stdout io.Writer
		Stderr io.Writer
	}
)

// NewApp creates an App with defaults for omitted dependencies.
func NewApp(deps Dependencies) *App {
	if deps.Stdout == nil {
		deps.Stdout = os.Stdout
	}
	if deps.Stderr == nil {
		deps.Stderr = os.Stderr
	}
	if deps.Config == nil {
		deps.Config = config.NewProvider()
	}
	if deps.Kernel == nil {
		deps.Kernel = kmod.SystemKernel()
	}

	return &App{
		Config: deps.Config,
		kernel: deps.Kernel,
		stdout: deps.Stdout,
		stderr: deps.Stderr,
		cfg:    config.DefaultConfig(),
	}
}

// setup loads the configuration and configures diagnostics. A configuration
// that cannot be loaded is reported as a warning and the defaults apply.
func (a *App) setup(ctx context.Context) error {
	cfg, path, err := a.Config.LoadWithSource(ctx, config.LoadOptions{ConfigFilePath: types.FilesystemPath(a.cfgFile)})
	if err != nil {
		if ctx.Err() != nil {
			return err
		}
		fmt.Fprintln(a.stderr, WarningStyle.Render("Warning:")+" "+formatErrorForDisplay(err, a.flagVerbose > 0))
		cfg, path = config.DefaultConfig(), ""
	}
	a.cfg, a.cfgPath = cfg, path

	a.verbosity = max(a.flagVerbose, cfg.Log.Level.Verbosity())
	level := kmod.VerboseLevel(a.verbosity)

	if a.flagSyslog || cfg.Log.Syslog {
		if err := kmod.SetLogging(true); err != nil {
			fmt.Fprintln(a.stderr, WarningStyle.Render("Warning:")+" cannot open syslog: "+err.Error())
		} else {
			kmod.Logger().SetLevel(level)
			a.logger = nil
			return nil
		}
	}
	a.logger = log.NewWithOptions(a.stderr, log.Options{Prefix: "kmod", Level: level})
	return nil
}

// verbose reports whether errors should include their full chain.
func (a *App) verbose() bool {
	return a.verbosity > 0 || a.cfg.UI.Verbose
}

// newContext builds the module Context for one command. Empty overrides fall
// back to the configuration.
func (a *App) newContext(rootDir, release string) *kmod.Context {
	if rootDir == "" {
		rootDir = string(a.cfg.RootDir)
	}
	if release == "" {
		release = string(a.cfg.KernelRelease)
	}
	return kmod.New(kmod.Options{
		RootDir:       rootDir,
		KernelRelease: release,
		SysRoot:       string(a.cfg.SysRoot),
		ProcRoot:      string(a.cfg.ProcRoot),
		Kernel:        a.kernel,
		Logger:        a.logger,
	})
}

// formatErrorForDisplay formats an error for user display.
// ActionableErrors include their suggestions; verbose mode adds the chain.
func formatErrorForDisplay(err error, verboseMode bool) string {
	if ae, ok := issue.As(err); ok {
		return ae.Format(verboseMode)
	}
	return err.Error()
}
