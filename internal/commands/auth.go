package commands

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"mtrack/internal/config"
	"mtrack/internal/exitcode"
	"mtrack/internal/service"
)

func init() {
	Register(&LoginCmd{})
	Register(&SignupCmd{})
	Register(&LogoutCmd{})
	Register(&StatusCmd{})
}

// credentials reads the username argument and the password from the flag or,
// failing that, from the first line of stdin.
func credentials(env *Env, args []string, password string) (service.Credentials, error) {
	if len(args) != 1 || strings.TrimSpace(args[0]) == "" {
		return service.Credentials{}, errors.New("username required")
	}
	if password == "" && env.Stdin != nil {
		sc := bufio.NewScanner(env.Stdin)
		if sc.Scan() {
			password = strings.TrimRight(sc.Text(), "\r")
		}
		if err := sc.Err(); err != nil {
			return service.Credentials{}, fmt.Errorf("failed to read password: %w", err)
		}
	}
	if password == "" {
		return service.Credentials{}, errors.New("password required (--password or stdin)")
	}
	return service.Credentials{Username: strings.TrimSpace(args[0]), Password: password}, nil
}

// LoginCmd implements the login command.
type LoginCmd struct {
	password string
}

func (c *LoginCmd) Name() string      { return "login" }
func (c *LoginCmd) Aliases() []string { return nil }
func (c *LoginCmd) Synopsis() string  { return "Log in and store the session token" }
func (c *LoginCmd) Usage() string     { return "mtrack login [--password <p>] <username>" }
func (c *LoginCmd) NeedsAuth() bool   { return false }

func (c *LoginCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.password, "password", "", "")
	fs.StringVar(&c.password, "p", "", "")
}

func (c *LoginCmd) Run(ctx context.Context, cfg *config.Config, env *Env, args []string, out, errOut io.Writer) int {
	creds, err := credentials(env, args, c.password)
	if err != nil {
		return usage(errOut, "%v", err)
	}

	token, err := env.Service.Login(ctx, creds)
	if err != nil {
		var be *service.BusinessError
		if errors.As(err, &be) {
			fmt.Fprintf(errOut, "error: login failed: %s\n", be.Message)
			return exitcode.AuthError
		}
		return report(errOut, err)
	}

	if err := cfg.EnsureDir(); err != nil {
		fmt.Fprintf(errOut, "error: failed to create config directory: %v\n", err)
		return exitcode.AuthError
	}
	if err := env.Session.Login(token); err != nil {
		fmt.Fprintf(errOut, "error: failed to save token: %v\n", err)
		return exitcode.AuthError
	}
	env.logger().Debug("logged in")

	done(cfg, out, "ok")
	return exitcode.Success
}

// SignupCmd implements the signup command.
type SignupCmd struct {
	password string
}

func (c *SignupCmd) Name() string      { return "signup" }
func (c *SignupCmd) Aliases() []string { return []string{"register"} }
func (c *SignupCmd) Synopsis() string  { return "Create an account" }
func (c *SignupCmd) Usage() string     { return "mtrack signup [--password <p>] <username>" }
func (c *SignupCmd) NeedsAuth() bool   { return false }

func (c *SignupCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.password, "password", "", "")
	fs.StringVar(&c.password, "p", "", "")
}

func (c *SignupCmd) Run(ctx context.Context, cfg *config.Config, env *Env, args []string, out, errOut io.Writer) int {
	creds, err := credentials(env, args, c.password)
	if err != nil {
		return usage(errOut, "%v", err)
	}
	user, err := env.Service.Signup(ctx, creds)
	if err != nil {
		return report(errOut, err)
	}
	done(cfg, out, "ok: signed up as %s (run: mtrack login %s)", user.Username, user.Username)
	return exitcode.Success
}

// LogoutCmd implements the logout command.
type LogoutCmd struct{}

func (c *LogoutCmd) Name() string      { return "logout" }
func (c *LogoutCmd) Aliases() []string { return nil }
func (c *LogoutCmd) Synopsis() string  { return "Remove the stored session token" }
func (c *LogoutCmd) Usage() string     { return "mtrack logout" }
func (c *LogoutCmd) NeedsAuth() bool   { return false }

func (c *LogoutCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *LogoutCmd) Run(ctx context.Context, cfg *config.Config, env *Env, args []string, out, errOut io.Writer) int {
	if !env.Session.IsLoggedIn() {
		done(cfg, out, "not logged in")
		return exitcode.Success
	}
	if err := env.Session.Logout(); err != nil {
		fmt.Fprintf(errOut, "error: failed to remove token: %v\n", err)
		return exitcode.AuthError
	}
	done(cfg, out, "ok")
	return exitcode.Success
}

// StatusCmd implements the status command.
type StatusCmd struct{}

func (c *StatusCmd) Name() string      { return "status" }
func (c *StatusCmd) Aliases() []string { return []string{"whoami"} }
func (c *StatusCmd) Synopsis() string  { return "Show session state and backend address" }
func (c *StatusCmd) Usage() string     { return "mtrack status" }
func (c *StatusCmd) NeedsAuth() bool   { return false }

func (c *StatusCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *StatusCmd) Run(ctx context.Context, cfg *config.Config, env *Env, args []string, out, errOut io.Writer) int {
	state := "not logged in"
	if env.Session.IsLoggedIn() {
		state = "logged in"
	}
	fmt.Fprintf(out, "%s\napi: %s\n", state, cfg.APIURL)
	return exitcode.Success
}
