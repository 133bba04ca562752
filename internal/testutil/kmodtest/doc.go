// SPDX-License-Identifier: MPL-2.0

// Package kmodtest builds fake module trees for tests: ELF module images with
// a .modinfo section, the lib/modules databases, and the sysfs and procfs
// files that describe loaded modules.
//
// The package does not import pkg/kmod so that kmod's in-package tests can use
// it without an import cycle.
//
// # Usage
//
//	import "github.com/invowk/kmodule/internal/testutil/kmodtest"
//
//	tree := kmodtest.NewTree(t, "6.1.0-test")
//	tree.AddModule("kernel/fs/ext4.ko", "license=GPL", "depends=jbd2")
//	tree.WriteDep("kernel/fs/ext4.ko: kernel/fs/jbd2.ko")
//	tree.Load("jbd2", kmodtest.WithRefcount(1), kmodtest.WithHolders("ext4"))
package kmodtest
