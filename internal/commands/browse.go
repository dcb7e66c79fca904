package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"mtrack/internal/config"
	"mtrack/internal/exitcode"
	"mtrack/internal/page"
	"mtrack/internal/tui"
)

func init() {
	Register(&BrowseCmd{})
}

// BrowseCmd implements the browse command.
type BrowseCmd struct{}

func (c *BrowseCmd) Name() string      { return "browse" }
func (c *BrowseCmd) Aliases() []string { return []string{"ui"} }
func (c *BrowseCmd) Synopsis() string  { return "Browse and filter items interactively" }
func (c *BrowseCmd) Usage() string     { return "mtrack browse <category>" }
func (c *BrowseCmd) NeedsAuth() bool   { return true }

func (c *BrowseCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *BrowseCmd) Run(ctx context.Context, cfg *config.Config, env *Env, args []string, out, errOut io.Writer) int {
	if len(args) != 1 {
		return usage(errOut, "category reference required")
	}
	id, err := ResolveCategory(ctx, env.Service, args[0])
	if err != nil {
		return report(errOut, err)
	}

	p := page.NewCategoryPage(env.Service, nil, env.logger())
	final, err := tui.Run(ctx, p, id, env.Stdin, out)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError
	}
	if final.Expired() {
		return exitcode.AuthError
	}
	return exitcode.Success
}
