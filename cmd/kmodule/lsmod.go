// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/invowk/kmodule/pkg/kmod"

	"github.com/spf13/cobra"
)

func newLsmodCommand(app *App) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "lsmod [name...]",
		Short: "List loaded modules",
		Long: `List the modules currently loaded into the kernel, as reported by
/proc/modules. With names, only those modules are listed and a warning is
printed for each one that is not loaded.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			mods, err := kmod.LoadedModules(string(app.cfg.ProcRoot))
			if err != nil {
				return app.fail("list loaded modules", err)
			}
			mods = filterLoaded(app.stderr, mods, args)

			if asJSON {
				if mods == nil {
					mods = []kmod.LoadedModule{}
				}
				out, err := json.MarshalIndent(mods, "", "  ")
				if err != nil {
					return app.fail("encode module list", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(out))
				return nil
			}
			writeLoaded(cmd.OutOrStdout(), mods)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the list as JSON")

	return cmd
}

// filterLoaded keeps the modules named in names, in the order given, warning
// about names that are not loaded. No names keeps everything.
func filterLoaded(stderr io.Writer, mods []kmod.LoadedModule, names []string) []kmod.LoadedModule {
	if len(names) == 0 {
		return mods
	}
	byName := make(map[string]kmod.LoadedModule, len(mods))
	for _, m := range mods {
		byName[kmod.NormalizeName(m.Name)] = m
	}

	var out []kmod.LoadedModule
	for _, name := range names {
		m, ok := byName[kmod.NormalizeName(name)]
		if !ok {
			fmt.Fprintln(stderr, WarningStyle.Render("Warning:")+" module "+CmdStyle.Render(name)+" is not loaded")
			continue
		}
		out = append(out, m)
	}
	return out
}

// writeLoaded prints the classic lsmod table.
func writeLoaded(w io.Writer, mods []kmod.LoadedModule) {
	fmt.Fprintf(w, "%-19s %8s  %s\n", "Module", "Size", "Used by")
	for _, m := range mods {
		refs := "-"
		if m.Refcount != kmod.RefcountUnsupported {
			refs = strconv.Itoa(m.Refcount)
		}
		line := fmt.Sprintf("%-19s %8d  %s", m.Name, m.Size, refs)
		if len(m.UsedBy) > 0 {
			line += " " + strings.Join(m.UsedBy, ",")
		}
		fmt.Fprintln(w, line)
	}
}
