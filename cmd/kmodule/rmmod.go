// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/invowk/kmodule/pkg/kmod"

	"github.com/spf13/cobra"
)

func newRmmodCommand(app *App) *cobra.Command {
	var force, wait bool

	cmd := &cobra.Command{
		Use:   "rmmod [flags] <module>...",
		Short: "Remove modules from the kernel",
		Long: `Remove each module, in the order given.

A module can be named or given as a path to its image file. Modules that are
built in, not loaded, or still used by other modules are skipped and reported;
a module that cannot be found stops the batch.

The remove.force and remove.wait config settings turn the matching flags on
by default.`,
		Example: `  kmodule rmmod dummy
  kmodule rmmod -w -v snd_hda_intel snd_hda_codec`,
		Args: usageArgs(cobra.MinimumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := kmod.RemoveOptions{
				Force:   force || app.cfg.Remove.Force,
				Wait:    wait || app.cfg.Remove.Wait,
				Verbose: app.verbosity,
			}

			report, err := app.newContext("", "").RemoveModules(args, opts)
			if report != nil && app.verbosity > 0 {
				for _, res := range report.Results {
					if res.Removed {
						fmt.Fprintln(cmd.OutOrStdout(), SuccessStyle.Render("removed")+" "+CmdStyle.Render(res.Module))
					}
				}
			}
			if err != nil {
				return app.fail("remove modules", err)
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "remove modules even if they are in use (dangerous)")
	cmd.Flags().BoolVarP(&wait, "wait", "w", false, "wait until modules are no longer in use")

	return cmd
}
