// SPDX-License-Identifier: MPL-2.0

//go:build !windows && !plan9

package kmod

import (
	"io"
	"log/syslog"
)

// openSyslog connects to the local syslog daemon. Swapped in tests.
var openSyslog = func() (io.WriteCloser, error) {
	return syslog.New(syslog.LOG_ERR|syslog.LOG_DAEMON, "kmodule")
}
