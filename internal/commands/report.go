package commands

import (
	"errors"
	"fmt"
	"io"

	"mtrack/internal/config"
	"mtrack/internal/exitcode"
	"mtrack/internal/service"
)

// report prints err and maps it to an exit code. An expired session prints
// nothing here: the session observer already told the user.
func report(errOut io.Writer, err error) int {
	switch {
	case err == nil:
		return exitcode.Success
	case errors.Is(err, service.ErrSessionExpired):
		return exitcode.AuthError
	case errors.Is(err, service.ErrNotLoggedIn):
		fmt.Fprintln(errOut, notLoggedIn)
		return exitcode.AuthError
	case service.IsValidation(err), errors.Is(err, ErrRefRequired):
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError
	case service.IsBusiness(err), service.IsTransport(err):
		fmt.Fprintf(errOut, "error: backend error: %v\n", err)
		return exitcode.BackendError
	}
	fmt.Fprintf(errOut, "error: %v\n", err)
	return exitcode.BackendError
}

// usage prints a user error.
func usage(errOut io.Writer, format string, args ...any) int {
	fmt.Fprintf(errOut, "error: "+format+"\n", args...)
	return exitcode.UserError
}

// done prints an informational line unless --quiet is set.
func done(cfg *config.Config, out io.Writer, format string, args ...any) {
	if cfg.Quiet {
		return
	}
	fmt.Fprintf(out, format+"\n", args...)
}

const notLoggedIn = "error: not logged in (run: mtrack login <username>)"
