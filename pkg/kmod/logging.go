// SPDX-License-Identifier: MPL-2.0

package kmod

import (
	"io"
	"os"
	"sync"

	"github.com/charmbracelet/log"
)

// logPrefix tags every diagnostic the package emits.
const logPrefix = "kmod"

// sink is the process-wide diagnostic destination. Diagnostics go to stderr
// until SetLogging(true) routes them to syslog; SetLogging(false) closes the
// syslog connection and routes them back to stderr. It is the only
// process-wide mutable state of the package.
var sink = struct {
	mu     sync.Mutex
	syslog io.WriteCloser
	logger *log.Logger
}{
	logger: log.NewWithOptions(os.Stderr, log.Options{Prefix: logPrefix, Level: log.ErrorLevel}),
}

// Logger returns the shared package logger.
func Logger() *log.Logger {
	sink.mu.Lock()
	defer sink.mu.Unlock()
	return sink.logger
}

// SetLogging toggles the syslog sink. Enabling an enabled sink and disabling
// a disabled one are no-ops.
func SetLogging(enabled bool) error {
	sink.mu.Lock()
	defer sink.mu.Unlock()

	if enabled {
		if sink.syslog != nil {
			return nil
		}
		w, err := openSyslog()
		if err != nil {
			return err
		}
		sink.syslog = w
		sink.logger.SetOutput(w)
		return nil
	}

	if sink.syslog == nil {
		return nil
	}
	sink.logger.SetOutput(os.Stderr)
	err := sink.syslog.Close()
	sink.syslog = nil
	return err
}

// LoggingEnabled reports whether diagnostics currently go to syslog.
func LoggingEnabled() bool {
	sink.mu.Lock()
	defer sink.mu.Unlock()
	return sink.syslog != nil
}

// VerboseLevel maps a verbosity count onto a log level. Zero keeps only
// errors, the rmmod default; each increment reveals the next level down.
func VerboseLevel(verbose int) log.Level {
	switch {
	case verbose <= 0:
		return log.ErrorLevel
	case verbose == 1:
		return log.WarnLevel
	case verbose <= 3:
		return log.InfoLevel
	default:
		return log.DebugLevel
	}
}
