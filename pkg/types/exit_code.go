// SPDX-License-Identifier: MPL-2.0

package types

import (
	"errors"
	"fmt"
)

// Exit statuses of the kmodule commands.
const (
	// ExitSuccess means every requested module operation succeeded.
	ExitSuccess ExitCode = 0
	// ExitFailure means a module operation failed.
	ExitFailure ExitCode = 1
	// ExitUsage means the command line could not be used.
	ExitUsage ExitCode = 2
)

// ErrInvalidExitCode is wrapped by InvalidExitCodeError.
var ErrInvalidExitCode = errors.New("invalid exit code")

type (
	// ExitCode is the process exit status of a kmodule command.
	ExitCode int

	// InvalidExitCodeError reports a status kmodule never exits with.
	InvalidExitCodeError struct {
		Value ExitCode
	}
)

func (e *InvalidExitCodeError) Error() string {
	return fmt.Sprintf("invalid exit code %d (want %d, %d or %d)", int(e.Value), ExitSuccess, ExitFailure, ExitUsage)
}

func (e *InvalidExitCodeError) Unwrap() error { return ErrInvalidExitCode }

// Validate rejects codes other than ExitSuccess, ExitFailure and ExitUsage.
func (c ExitCode) Validate() error {
	switch c {
	case ExitSuccess, ExitFailure, ExitUsage:
		return nil
	}
	return &InvalidExitCodeError{Value: c}
}

// IsSuccess reports whether c is ExitSuccess.
func (c ExitCode) IsSuccess() bool { return c == ExitSuccess }

// IsUsage reports whether c is ExitUsage.
func (c ExitCode) IsUsage() bool { return c == ExitUsage }

// String names the status, e.g. "2 (usage)".
func (c ExitCode) String() string {
	switch c {
	case ExitSuccess:
		return "0 (success)"
	case ExitFailure:
		return "1 (failure)"
	case ExitUsage:
		return "2 (usage)"
	}
	return fmt.Sprintf("%d", int(c))
}
