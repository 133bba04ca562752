// SPDX-License-Identifier: MPL-2.0

// Package kmod manages the lifecycle of Linux kernel modules without shelling
// out to modprobe or linking libkmod.
//
// A Context indexes the module databases under lib/modules/<release>
// (modules.dep, modules.alias, modules.symbols, modules.builtin and
// modules.builtin.modinfo) and resolves paths, names and aliases into Module
// handles. Handles expose the module's .modinfo metadata and a snapshot of its
// state in the running kernel, read from sysfs.
//
// Insertion loads missing dependencies first, in dependency order, through
// finit_module (plain images) or init_module (xz, zstd and gzip images).
// Removal checks holders and reference counts before delete_module and keeps
// going past modules that are in use. Extract groups metadata into aliases,
// parameters and scalar fields the way modinfo prints them.
//
// Diagnostics go to a shared charmbracelet/log logger writing to stderr;
// SetLogging routes them to syslog instead.
package kmod
