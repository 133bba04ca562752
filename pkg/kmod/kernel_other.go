// SPDX-License-Identifier: MPL-2.0

//go:build !linux

package kmod

import "os"

type unsupportedKernel struct{}

// SystemKernel returns a Kernel whose operations fail with
// ErrUnsupportedPlatform.
func SystemKernel() Kernel { return unsupportedKernel{} }

func (unsupportedKernel) FinitModule(*os.File, string) error { return ErrUnsupportedPlatform }

func (unsupportedKernel) InitModule([]byte, string) error { return ErrUnsupportedPlatform }

func (unsupportedKernel) DeleteModule(string, RemoveFlags) error { return ErrUnsupportedPlatform }
