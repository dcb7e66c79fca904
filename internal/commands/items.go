package commands

import (
	"context"
	"flag"
	"io"
	"strings"

	"mtrack/internal/config"
	"mtrack/internal/exitcode"
	"mtrack/internal/output"
	"mtrack/internal/page"
)

func init() {
	Register(&ShowCmd{})
	Register(&AddItemCmd{})
	Register(&EditItemCmd{})
	Register(&RmItemCmd{})
}

// openCategory resolves ref and opens the category page on it.
func openCategory(ctx context.Context, env *Env, ref string) (*page.CategoryPage, error) {
	id, err := ResolveCategory(ctx, env.Service, ref)
	if err != nil {
		return nil, err
	}
	p := page.NewCategoryPage(env.Service, nil, env.logger())
	if err := p.Open(ctx, id); err != nil {
		return nil, err
	}
	return p, nil
}

// ShowCmd implements the show command.
type ShowCmd struct {
	search string
	where  []string
}

func (c *ShowCmd) Name() string      { return "show" }
func (c *ShowCmd) Aliases() []string { return []string{"items"} }
func (c *ShowCmd) Synopsis() string  { return "List the items of a category" }
func (c *ShowCmd) Usage() string {
	return "mtrack show [--search <term>] [--where <Field=Value>]... <category>"
}
func (c *ShowCmd) NeedsAuth() bool { return true }

func (c *ShowCmd) RegisterFlags(fs *flag.FlagSet) {
	c.where = nil
	fs.StringVar(&c.search, "search", "", "")
	fs.StringVar(&c.search, "s", "", "")
	fs.Func("where", "", func(s string) error {
		c.where = append(c.where, s)
		return nil
	})
}

func (c *ShowCmd) Run(ctx context.Context, cfg *config.Config, env *Env, args []string, out, errOut io.Writer) int {
	if len(args) != 1 {
		return usage(errOut, "category reference required")
	}
	filters, err := ParseAssignments(c.where)
	if err != nil {
		return usage(errOut, "%v", err)
	}
	p, err := openCategory(ctx, env, args[0])
	if err != nil {
		return report(errOut, err)
	}

	p.SetSearch(c.search)
	fields := p.Fields()
	for name, value := range filters {
		f, err := FindField(fields, name)
		if err != nil {
			return usage(errOut, "unknown field in --where: %s", name)
		}
		p.SetFilter(f.Name, value)
	}

	pr := output.New(out)
	if !cfg.Quiet {
		pr.CategoryHeader(p.Category())
	}
	pr.Items(fields, p.Displayed())
	return exitcode.Success
}

// AddItemCmd implements the additem command.
type AddItemCmd struct{}

func (c *AddItemCmd) Name() string      { return "additem" }
func (c *AddItemCmd) Aliases() []string { return nil }
func (c *AddItemCmd) Synopsis() string  { return "Create an item" }
func (c *AddItemCmd) Usage() string     { return "mtrack additem <category> <Field=Value>..." }
func (c *AddItemCmd) NeedsAuth() bool   { return true }

func (c *AddItemCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *AddItemCmd) Run(ctx context.Context, cfg *config.Config, env *Env, args []string, out, errOut io.Writer) int {
	if len(args) == 0 {
		return usage(errOut, "category reference required")
	}
	raw, err := ParseAssignments(args[1:])
	if err != nil {
		return usage(errOut, "%v", err)
	}
	p, err := openCategory(ctx, env, args[0])
	if err != nil {
		return report(errOut, err)
	}
	it, err := p.AddItem(ctx, raw)
	if err != nil {
		return report(errOut, err)
	}
	done(cfg, out, "ok %d", it.ID)
	return exitcode.Success
}

// EditItemCmd implements the edititem command.
type EditItemCmd struct{}

func (c *EditItemCmd) Name() string      { return "edititem" }
func (c *EditItemCmd) Aliases() []string { return nil }
func (c *EditItemCmd) Synopsis() string  { return "Change fields of an item" }
func (c *EditItemCmd) Usage() string {
	return "mtrack edititem <category> <item-id> <Field=Value>..."
}
func (c *EditItemCmd) NeedsAuth() bool { return true }

func (c *EditItemCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *EditItemCmd) Run(ctx context.Context, cfg *config.Config, env *Env, args []string, out, errOut io.Writer) int {
	if len(args) < 3 {
		return usage(errOut, "usage: %s", c.Usage())
	}
	id, err := ParseID("item", args[1])
	if err != nil {
		return usage(errOut, "%v", err)
	}
	raw, err := ParseAssignments(args[2:])
	if err != nil {
		return usage(errOut, "%v", err)
	}
	p, err := openCategory(ctx, env, args[0])
	if err != nil {
		return report(errOut, err)
	}
	if _, err := p.UpdateItem(ctx, id, raw); err != nil {
		return report(errOut, err)
	}
	done(cfg, out, "ok")
	return exitcode.Success
}

// RmItemCmd implements the rmitem command.
type RmItemCmd struct{}

func (c *RmItemCmd) Name() string      { return "rmitem" }
func (c *RmItemCmd) Aliases() []string { return nil }
func (c *RmItemCmd) Synopsis() string  { return "Delete items" }
func (c *RmItemCmd) Usage() string     { return "mtrack rmitem <item-id>..." }
func (c *RmItemCmd) NeedsAuth() bool   { return true }

func (c *RmItemCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *RmItemCmd) Run(ctx context.Context, cfg *config.Config, env *Env, args []string, out, errOut io.Writer) int {
	if len(args) == 0 {
		return usage(errOut, "item id required")
	}
	ids := make([]int64, 0, len(args))
	for _, a := range args {
		id, err := ParseID("item", a)
		if err != nil {
			return usage(errOut, "%v", err)
		}
		ids = append(ids, id)
	}

	// Items are deleted in order; the first failure stops the run.
	var removed []string
	for i, id := range ids {
		if err := env.Service.DeleteItem(ctx, id); err != nil {
			if len(removed) > 0 {
				done(cfg, out, "ok %s", strings.Join(removed, " "))
			}
			return report(errOut, err)
		}
		removed = append(removed, args[i])
	}
	done(cfg, out, "ok %s", strings.Join(removed, " "))
	return exitcode.Success
}
