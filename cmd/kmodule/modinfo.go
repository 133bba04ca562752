// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/invowk/kmodule/pkg/kmod"

	"github.com/spf13/cobra"
)

const (
	infoKeyAlias = "alias"
	infoKeyParm  = "parm"
)

type modinfoOptions struct {
	baseDir string
	release string
	field   string
	json    bool
}

func newModinfoCommand(app *App) *cobra.Command {
	var opts modinfoOptions

	cmd := &cobra.Command{
		Use:   "modinfo [flags] <module|alias|path>...",
		Short: "Show information about kernel modules",
		Long: `Show the metadata of modules given by name, alias or path.

Names and aliases are looked up in lib/modules/<release>; an alias may match
several modules, each of which is shown. Built-in modules report their
metadata from modules.builtin.modinfo.`,
		Example: `  kmodule modinfo ext4
  kmodule modinfo -F parm snd_hda_intel
  kmodule modinfo --basedir /mnt/image -k 6.1.0-18-amd64 fs-ext4
  kmodule modinfo --json ./hello.ko`,
		Args: usageArgs(cobra.MinimumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.field != "" && opts.json {
				return usageError(cmd, errors.New("--field and --json cannot be used together"))
			}
			return runModinfo(app, cmd.OutOrStdout(), opts, args)
		},
	}

	cmd.Flags().StringVarP(&opts.baseDir, "basedir", "b", "", "root directory holding lib/modules")
	cmd.Flags().StringVarP(&opts.release, "kernel", "k", "", "kernel release to inspect (default: running kernel)")
	cmd.Flags().StringVarP(&opts.field, "field", "F", "", "print only this field's values")
	cmd.Flags().BoolVar(&opts.json, "json", false, "print the metadata as JSON")

	return cmd
}

// runModinfo prints every identifier's modules. An identifier that fails is
// reported and the remaining ones are still shown; the first failure decides
// the exit status.
func runModinfo(app *App, w io.Writer, opts modinfoOptions, identifiers []string) error {
	kctx := app.newContext(opts.baseDir, opts.release)

	var (
		all      []*kmod.ModuleInfo
		firstErr error
	)
	for _, id := range identifiers {
		infos, err := kctx.QueryModuleInfo(id)
		if err != nil {
			if firstErr == nil {
				firstErr = app.fail("query module info", err)
			}
			continue
		}
		if opts.json {
			all = append(all, infos...)
			continue
		}
		for _, mi := range infos {
			if opts.field != "" {
				writeField(w, mi, opts.field)
			} else {
				writeInfo(w, mi)
			}
		}
	}

	if opts.json && len(all) > 0 {
		out, err := json.MarshalIndent(all, "", "  ")
		if err != nil {
			return app.fail("encode module info", err)
		}
		fmt.Fprintln(w, string(out))
	}
	return firstErr
}

// writeInfo prints one "key: value" line per value, key right-aligned; aliases
// get a line each and parameters are printed as "name: description".
func writeInfo(w io.Writer, mi *kmod.ModuleInfo) {
	for _, key := range mi.Keys() {
		switch key {
		case infoKeyAlias:
			for _, alias := range mi.Aliases {
				fmt.Fprintf(w, "%15s: %s\n", key, alias)
			}
		case infoKeyParm:
			for name, p := range mi.Params.All() {
				fmt.Fprintf(w, "%15s: %-15s: %s\n", key, name, p)
			}
		default:
			value, _ := mi.Field(key)
			fmt.Fprintf(w, "%15s: %s\n", key, value)
		}
	}
}

// writeField prints the bare values of one key, one per line.
func writeField(w io.Writer, mi *kmod.ModuleInfo, field string) {
	switch field {
	case infoKeyAlias:
		for _, alias := range mi.Aliases {
			fmt.Fprintln(w, alias)
		}
	case infoKeyParm:
		for name, p := range mi.Params.All() {
			fmt.Fprintf(w, "%s:%s\n", name, p)
		}
	default:
		if value, ok := mi.Field(field); ok {
			fmt.Fprintln(w, value)
		}
	}
}
