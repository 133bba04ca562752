// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"syscall"

	"github.com/invowk/kmodule/internal/config"
	"github.com/invowk/kmodule/internal/dag"
	"github.com/invowk/kmodule/internal/issue"
	"github.com/invowk/kmodule/pkg/kmod"
	"github.com/invowk/kmodule/pkg/types"

	"golang.org/x/term"
)

// ServiceError is an error that carries optional rendering information for
// the CLI layer. When the CLI layer receives a ServiceError, it renders the
// styled error message (if present) before the issue help section.
// Always create via newServiceError to enforce the Err-must-be-non-nil invariant.
type ServiceError struct {
	// Err is the underlying error (must not be nil).
	Err error
	// IssueID is the optional issue catalog ID for rendering help text.
	IssueID issue.Id
	// StyledMessage is the optional pre-rendered styled error text.
	StyledMessage string
}

// newServiceError creates a ServiceError with a nil-Err panic guard.
func newServiceError(err error, issueID issue.Id, styledMessage string) *ServiceError {
	if err == nil {
		panic("ServiceError: Err must not be nil")
	}
	return &ServiceError{
		Err:           err,
		IssueID:       issueID,
		StyledMessage: styledMessage,
	}
}

// Error implements the error interface.
func (e *ServiceError) Error() string { return e.Err.Error() }

// Unwrap returns the underlying error for errors.Is/As chains.
func (e *ServiceError) Unwrap() error { return e.Err }

// renderServiceError prints the styled message, then the issue help section
// rendered with the given glamour style.
func renderServiceError(stderr io.Writer, svcErr *ServiceError, style string) {
	if svcErr == nil {
		return
	}

	if svcErr.StyledMessage != "" {
		fmt.Fprint(stderr, svcErr.StyledMessage)
	}

	if svcErr.IssueID == 0 {
		return
	}

	if catalogEntry := issue.Get(svcErr.IssueID); catalogEntry != nil {
		rendered, renderErr := catalogEntry.Render(style)
		if renderErr != nil {
			slog.Warn("failed to render issue catalog entry", "issueID", svcErr.IssueID, "error", renderErr)
		} else {
			fmt.Fprint(stderr, rendered)
		}
	}
}

// classifyError picks the issue catalog entry that explains err, or 0.
func classifyError(err error) issue.Id {
	var (
		notFound *kmod.ModuleNotFoundError
		indexErr *kmod.IndexBuildError
		rmErr    *kmod.RemoveError
		insErr   *kmod.InsertError
		cycleErr *dag.CycleError
		cfgErr   *config.InvalidConfigError
	)

	switch {
	case errors.Is(err, kmod.ErrUnsupportedPlatform):
		return issue.PlatformNotSupportedId
	case errors.Is(err, syscall.EPERM), errors.Is(err, os.ErrPermission):
		return issue.PermissionDeniedId
	case errors.As(err, &cycleErr):
		return issue.DependencyCycleId
	case errors.As(err, &rmErr):
		switch rmErr.Kind {
		case kmod.RemoveBusy:
			return issue.ModuleBusyId
		case kmod.RemoveNotLoaded:
			return issue.ModuleNotLoadedId
		case kmod.RemoveNotRemovable:
			return issue.ModuleBuiltinId
		}
	case errors.As(err, &insErr):
		switch {
		case insErr.Kind == kmod.InsertInvalidFormat:
			return issue.InvalidModuleFormatId
		case insErr.Kind == kmod.InsertUnknownSymbol, insErr.Kind == kmod.InsertWrongSymbolVersion:
			return issue.UnknownSymbolId
		case errors.Is(err, syscall.EEXIST):
			return issue.ModuleExistsId
		case errors.As(err, &notFound):
			return issue.ModuleNotFoundId
		}
	case errors.As(err, &notFound):
		return issue.ModuleNotFoundId
	case errors.As(err, &indexErr):
		return issue.ModuleIndexUnavailableId
	case errors.As(err, &cfgErr):
		return issue.ConfigLoadFailedId
	}
	return 0
}

// fail reports a failed operation to stderr and returns the ExitError the
// command should return.
func (a *App) fail(operation string, err error) error {
	ae, ok := issue.As(err)
	if !ok {
		ae = issue.Wrap(err, operation)
	}
	styled := ErrorStyle.Render("Error:") + " " + ae.Format(a.verbose()) + "\n"
	svcErr := newServiceError(ae, classifyError(err), styled)
	renderServiceError(a.stderr, svcErr, a.issueStyle())
	return &ExitError{Code: types.ExitFailure, Err: svcErr}
}

// issueStyle selects the glamour style for issue help: plain text unless
// stderr is a terminal.
func (a *App) issueStyle() string {
	f, ok := a.stderr.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return "notty"
	}
	if a.cfg != nil && a.cfg.UI.ColorScheme == config.ColorSchemeLight {
		return "light"
	}
	return "dark"
}
