// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newInsmodCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "insmod <path> [key=value ...]",
		Short: "Insert a module file into the kernel",
		Long: `Insert the module image at <path> into the kernel.

Dependencies listed in modules.dep (or in the module's own "depends" field)
that are not loaded yet are inserted first. Parameters apply to the named
module only and are passed to the kernel unchanged.`,
		Example: `  kmodule insmod ./hello.ko
  kmodule insmod /lib/modules/6.1.0/kernel/drivers/net/dummy.ko.xz numdummies=2`,
		Args: usageArgs(cobra.MinimumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, params := args[0], args[1:]
			if err := app.newContext("", "").InsertModule(path, params); err != nil {
				return app.fail("insert module", err)
			}
			if app.verbosity > 0 {
				fmt.Fprintln(cmd.OutOrStdout(), SuccessStyle.Render("inserted")+" "+CmdStyle.Render(path))
			}
			return nil
		},
	}
}
