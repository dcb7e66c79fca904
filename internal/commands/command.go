// Package commands provides the command interface and implementations.
package commands

import (
	"context"
	"flag"
	"io"

	"go.uber.org/zap"

	"mtrack/internal/config"
	"mtrack/internal/service"
)

// Command defines the interface for CLI commands.
type Command interface {
	// Name returns the primary command name.
	Name() string

	// Aliases returns alternative names for the command.
	Aliases() []string

	// Synopsis returns a short description for help output.
	Synopsis() string

	// Usage returns the usage string for help output.
	Usage() string

	// NeedsAuth returns true if the command requires a session.
	// Commands like help, version, login, signup, logout return false.
	NeedsAuth() bool

	// RegisterFlags registers command-specific flags.
	RegisterFlags(fs *flag.FlagSet)

	// Run executes the command.
	// cfg is always provided (config dir, settings).
	// env is nil for commands that never touch the backend (help, version).
	// args contains positional arguments after flag parsing.
	// Returns exit code.
	Run(ctx context.Context, cfg *config.Config, env *Env, args []string, out, errOut io.Writer) int
}

// Session is the part of the session gate commands use.
type Session interface {
	IsLoggedIn() bool
	Login(token string) error
	Logout() error
	OnExpired(fn func()) (unsubscribe func())
}

// Env is what a command runs against.
type Env struct {
	Service service.Service
	Session Session
	Log     *zap.Logger

	// Stdin feeds password prompts and the interactive browser.
	Stdin io.Reader
}

func (e *Env) logger() *zap.Logger {
	if e == nil || e.Log == nil {
		return zap.NewNop()
	}
	return e.Log
}

// Offline is implemented by commands that never touch the backend. They run
// with a nil Env, so a broken backend setting cannot stop them.
type Offline interface {
	Offline() bool
}
