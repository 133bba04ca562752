// SPDX-License-Identifier: MPL-2.0

//go:build windows || plan9

package kmod

import (
	"errors"
	"io"
)

var openSyslog = func() (io.WriteCloser, error) {
	return nil, errors.New("syslog is not available on this platform")
}
