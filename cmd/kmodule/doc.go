// SPDX-License-Identifier: MPL-2.0

// Package cmd contains all CLI commands for kmodule.
//
// The root command wires configuration, logging and the module Context; each
// subcommand (insmod, rmmod, modinfo, lsmod, config) is a thin adapter over
// pkg/kmod that renders results and maps failures to exit codes and issue
// catalog entries.
package cmd
