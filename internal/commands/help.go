package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"

	"mtrack/internal/config"
	"mtrack/internal/exitcode"
)

func init() {
	Register(&HelpCmd{})
}

// HelpCmd implements the help command.
type HelpCmd struct {
	// Registry resolves "help <command>"; nil means DefaultRegistry.
	Registry *Registry
}

func (c *HelpCmd) Name() string      { return "help" }
func (c *HelpCmd) Aliases() []string { return nil }
func (c *HelpCmd) Synopsis() string  { return "Print usage" }
func (c *HelpCmd) Usage() string     { return "mtrack help [<command>]" }
func (c *HelpCmd) NeedsAuth() bool   { return false }

func (c *HelpCmd) Offline() bool { return true }

func (c *HelpCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *HelpCmd) Run(ctx context.Context, cfg *config.Config, env *Env, args []string, out, errOut io.Writer) int {
	if len(args) == 0 {
		fmt.Fprint(out, helpText)
		return exitcode.Success
	}
	reg := c.Registry
	if reg == nil {
		reg = DefaultRegistry
	}
	cmd, ok := reg.Find(args[0])
	if !ok {
		return usage(errOut, "unknown command: %s", args[0])
	}
	fmt.Fprintf(out, "%s\n\nUsage:\n  %s\n", cmd.Synopsis(), cmd.Usage())
	if aliases := cmd.Aliases(); len(aliases) > 0 {
		fmt.Fprintf(out, "\nAliases: %s\n", strings.Join(aliases, ", "))
	}
	return exitcode.Success
}

const helpText = `Usage:
  mtrack signup [common flags] [--password <p>] <username>
  mtrack login [common flags] [--password <p>] <username>
  mtrack logout [common flags]
  mtrack status [common flags]

  mtrack categories [common flags] [--search <term>]
  mtrack addcategory [common flags] [--description <text>] <name>
  mtrack editcategory [common flags] [--name <name>] [--description <text>] <category>
  mtrack rmcategory [common flags] <category>

  mtrack fields [common flags] <category>
  mtrack addfield [common flags] [--options "a, b"] <category> <name> <type>
  mtrack editfield [common flags] [--name <name>] [--type <type>] [--options "a, b"] <category> <field>
  mtrack rmfield [common flags] <category> <field>

  mtrack show [common flags] [--search <term>] [--where <Field=Value>]... <category>
  mtrack additem [common flags] <category> <Field=Value>...
  mtrack edititem [common flags] <category> <item-id> <Field=Value>...
  mtrack rmitem [common flags] <item-id>...
  mtrack browse [common flags] <category>

  mtrack help [<command>]
  mtrack version

A <category> is an id or a name; a <field> is an id or a name.
Field types: Text, Notes, Number, Date, Boolean, Select.
Without --password the password is read from the first line of stdin.

Common flags:
  --config <dir>   Override config directory
  --api <url>      Override the backend URL (also MTRACK_API_URL)
  --quiet          Suppress informational output
  --debug          Print debug logs to stderr
`
