package commands

import (
	"context"
	"flag"
	"io"

	"mtrack/internal/config"
	"mtrack/internal/exitcode"
	"mtrack/internal/output"
	"mtrack/internal/page"
)

func init() {
	Register(&CategoriesCmd{})
	Register(&AddCategoryCmd{})
	Register(&EditCategoryCmd{})
	Register(&RmCategoryCmd{})
}

// CategoriesCmd implements the categories command.
type CategoriesCmd struct {
	search string
}

func (c *CategoriesCmd) Name() string      { return "categories" }
func (c *CategoriesCmd) Aliases() []string { return []string{"ls"} }
func (c *CategoriesCmd) Synopsis() string  { return "List categories" }
func (c *CategoriesCmd) Usage() string     { return "mtrack categories [--search <term>]" }
func (c *CategoriesCmd) NeedsAuth() bool   { return true }

func (c *CategoriesCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.search, "search", "", "")
	fs.StringVar(&c.search, "s", "", "")
}

func (c *CategoriesCmd) Run(ctx context.Context, cfg *config.Config, env *Env, args []string, out, errOut io.Writer) int {
	if len(args) > 0 {
		return usage(errOut, "unexpected argument: %s", args[0])
	}
	p := page.NewCategoriesPage(env.Service, nil, env.logger())
	if err := p.Load(ctx); err != nil {
		return report(errOut, err)
	}
	p.Search(c.search)
	output.New(out).Categories(p.Displayed())
	return exitcode.Success
}

// AddCategoryCmd implements the addcategory command.
type AddCategoryCmd struct {
	description string
}

func (c *AddCategoryCmd) Name() string      { return "addcategory" }
func (c *AddCategoryCmd) Aliases() []string { return nil }
func (c *AddCategoryCmd) Synopsis() string  { return "Create a category" }
func (c *AddCategoryCmd) Usage() string {
	return "mtrack addcategory [--description <text>] <name>"
}
func (c *AddCategoryCmd) NeedsAuth() bool { return true }

func (c *AddCategoryCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.description, "description", "", "")
	fs.StringVar(&c.description, "d", "", "")
}

func (c *AddCategoryCmd) Run(ctx context.Context, cfg *config.Config, env *Env, args []string, out, errOut io.Writer) int {
	if len(args) != 1 {
		return usage(errOut, "category name required")
	}
	p := page.NewCategoriesPage(env.Service, nil, env.logger())
	cat, err := p.Create(ctx, args[0], c.description)
	if err != nil {
		return report(errOut, err)
	}
	done(cfg, out, "ok %d", cat.ID)
	return exitcode.Success
}

// EditCategoryCmd implements the editcategory command.
type EditCategoryCmd struct {
	name        string
	description string
}

func (c *EditCategoryCmd) Name() string      { return "editcategory" }
func (c *EditCategoryCmd) Aliases() []string { return nil }
func (c *EditCategoryCmd) Synopsis() string  { return "Rename or redescribe a category" }
func (c *EditCategoryCmd) Usage() string {
	return "mtrack editcategory [--name <name>] [--description <text>] <category>"
}
func (c *EditCategoryCmd) NeedsAuth() bool { return true }

func (c *EditCategoryCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.name, "name", "", "")
	fs.StringVar(&c.description, "description", "", "")
	fs.StringVar(&c.description, "d", "", "")
}

func (c *EditCategoryCmd) Run(ctx context.Context, cfg *config.Config, env *Env, args []string, out, errOut io.Writer) int {
	if len(args) != 1 {
		return usage(errOut, "category reference required")
	}
	if c.name == "" && c.description == "" {
		return usage(errOut, "nothing to change (use --name or --description)")
	}
	id, err := ResolveCategory(ctx, env.Service, args[0])
	if err != nil {
		return report(errOut, err)
	}

	// The backend requires a name on every update; keep the current one.
	name := c.name
	if name == "" {
		current, err := env.Service.GetCategory(ctx, id)
		if err != nil {
			return report(errOut, err)
		}
		name = current.Name
	}

	p := page.NewCategoriesPage(env.Service, nil, env.logger())
	if _, err := p.Update(ctx, id, name, c.description); err != nil {
		return report(errOut, err)
	}
	done(cfg, out, "ok")
	return exitcode.Success
}

// RmCategoryCmd implements the rmcategory command.
type RmCategoryCmd struct{}

func (c *RmCategoryCmd) Name() string      { return "rmcategory" }
func (c *RmCategoryCmd) Aliases() []string { return nil }
func (c *RmCategoryCmd) Synopsis() string  { return "Delete a category with its fields and items" }
func (c *RmCategoryCmd) Usage() string     { return "mtrack rmcategory <category>" }
func (c *RmCategoryCmd) NeedsAuth() bool   { return true }

func (c *RmCategoryCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *RmCategoryCmd) Run(ctx context.Context, cfg *config.Config, env *Env, args []string, out, errOut io.Writer) int {
	if len(args) != 1 {
		return usage(errOut, "category reference required")
	}
	id, err := ResolveCategory(ctx, env.Service, args[0])
	if err != nil {
		return report(errOut, err)
	}
	p := page.NewCategoriesPage(env.Service, nil, env.logger())
	if err := p.Delete(ctx, id); err != nil {
		return report(errOut, err)
	}
	done(cfg, out, "ok")
	return exitcode.Success
}
