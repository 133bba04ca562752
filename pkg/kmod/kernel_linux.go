// SPDX-License-Identifier: MPL-2.0

//go:build linux

package kmod

import (
	"os"

	"golang.org/x/sys/unix"
)

// syscallKernel issues the Linux module system calls directly.
type syscallKernel struct{}

// SystemKernel returns the Kernel backed by finit_module(2), init_module(2)
// and delete_module(2). Callers need CAP_SYS_MODULE.
func SystemKernel() Kernel { return syscallKernel{} }

func (syscallKernel) FinitModule(f *os.File, params string) error {
	return unix.FinitModule(int(f.Fd()), params, 0)
}

func (syscallKernel) InitModule(image []byte, params string) error {
	return unix.InitModule(image, params)
}

func (syscallKernel) DeleteModule(name string, flags RemoveFlags) error {
	var sysFlags int
	if flags.Has(RemoveNoWait) {
		sysFlags |= unix.O_NONBLOCK
	}
	if flags.Has(RemoveForce) {
		sysFlags |= unix.O_TRUNC
	}
	return unix.DeleteModule(name, sysFlags)
}
