package commands

import (
	"context"
	"flag"
	"io"

	"mtrack/internal/config"
	"mtrack/internal/exitcode"
	"mtrack/internal/output"
	"mtrack/internal/schema"
	"mtrack/internal/service"
)

func init() {
	Register(&FieldsCmd{})
	Register(&AddFieldCmd{})
	Register(&EditFieldCmd{})
	Register(&RmFieldCmd{})
}

// categoryFields resolves ref and loads the category's schema.
func categoryFields(ctx context.Context, env *Env, ref string) ([]service.Field, error) {
	catID, err := ResolveCategory(ctx, env.Service, ref)
	if err != nil {
		return nil, err
	}
	return schema.NewRegistry(env.Service, env.logger()).List(ctx, catID)
}

// FieldsCmd implements the fields command.
type FieldsCmd struct{}

func (c *FieldsCmd) Name() string      { return "fields" }
func (c *FieldsCmd) Aliases() []string { return nil }
func (c *FieldsCmd) Synopsis() string  { return "List the fields of a category" }
func (c *FieldsCmd) Usage() string     { return "mtrack fields <category>" }
func (c *FieldsCmd) NeedsAuth() bool   { return true }

func (c *FieldsCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *FieldsCmd) Run(ctx context.Context, cfg *config.Config, env *Env, args []string, out, errOut io.Writer) int {
	if len(args) != 1 {
		return usage(errOut, "category reference required")
	}
	fields, err := categoryFields(ctx, env, args[0])
	if err != nil {
		return report(errOut, err)
	}
	output.New(out).Fields(fields)
	return exitcode.Success
}

// AddFieldCmd implements the addfield command.
type AddFieldCmd struct {
	options string
}

func (c *AddFieldCmd) Name() string      { return "addfield" }
func (c *AddFieldCmd) Aliases() []string { return nil }
func (c *AddFieldCmd) Synopsis() string  { return "Add a field to a category" }
func (c *AddFieldCmd) Usage() string {
	return "mtrack addfield [--options \"a, b\"] <category> <name> <type>"
}
func (c *AddFieldCmd) NeedsAuth() bool { return true }

func (c *AddFieldCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.options, "options", "", "")
	fs.StringVar(&c.options, "o", "", "")
}

func (c *AddFieldCmd) Run(ctx context.Context, cfg *config.Config, env *Env, args []string, out, errOut io.Writer) int {
	if len(args) != 3 {
		return usage(errOut, "usage: %s", c.Usage())
	}
	typ, err := service.ParseFieldType(args[2])
	if err != nil {
		return usage(errOut, "%v", err)
	}
	p, err := openCategory(ctx, env, args[0])
	if err != nil {
		return report(errOut, err)
	}
	f, err := p.AddField(ctx, args[1], typ, c.options)
	if err != nil {
		return report(errOut, err)
	}
	done(cfg, out, "ok %d", f.ID)
	return exitcode.Success
}

// EditFieldCmd implements the editfield command.
type EditFieldCmd struct {
	name    string
	typ     string
	options string
}

func (c *EditFieldCmd) Name() string      { return "editfield" }
func (c *EditFieldCmd) Aliases() []string { return nil }
func (c *EditFieldCmd) Synopsis() string  { return "Rename or retype a field" }
func (c *EditFieldCmd) Usage() string {
	return "mtrack editfield [--name <name>] [--type <type>] [--options \"a, b\"] <category> <field>"
}
func (c *EditFieldCmd) NeedsAuth() bool { return true }

func (c *EditFieldCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.name, "name", "", "")
	fs.StringVar(&c.typ, "type", "", "")
	fs.StringVar(&c.options, "options", "", "")
	fs.StringVar(&c.options, "o", "", "")
}

func (c *EditFieldCmd) Run(ctx context.Context, cfg *config.Config, env *Env, args []string, out, errOut io.Writer) int {
	if len(args) != 2 {
		return usage(errOut, "usage: %s", c.Usage())
	}
	if c.name == "" && c.typ == "" && c.options == "" {
		return usage(errOut, "nothing to change (use --name, --type or --options)")
	}
	p, err := openCategory(ctx, env, args[0])
	if err != nil {
		return report(errOut, err)
	}
	ref, err := FindField(p.Fields(), args[1])
	if err != nil {
		return report(errOut, err)
	}
	current, err := p.Field(ctx, ref.ID)
	if err != nil {
		return report(errOut, err)
	}

	// Unset flags keep the current definition.
	name, typ, options := current.Name, current.Type, schema.JoinOptions(current.Options)
	if c.name != "" {
		name = c.name
	}
	if c.typ != "" {
		if typ, err = service.ParseFieldType(c.typ); err != nil {
			return usage(errOut, "%v", err)
		}
	}
	if c.options != "" {
		options = c.options
	}

	if _, err := p.UpdateField(ctx, current.ID, name, typ, options); err != nil {
		return report(errOut, err)
	}
	done(cfg, out, "ok")
	return exitcode.Success
}

// RmFieldCmd implements the rmfield command.
type RmFieldCmd struct{}

func (c *RmFieldCmd) Name() string      { return "rmfield" }
func (c *RmFieldCmd) Aliases() []string { return nil }
func (c *RmFieldCmd) Synopsis() string  { return "Delete a field (item data is kept)" }
func (c *RmFieldCmd) Usage() string     { return "mtrack rmfield <category> <field>" }
func (c *RmFieldCmd) NeedsAuth() bool   { return true }

func (c *RmFieldCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *RmFieldCmd) Run(ctx context.Context, cfg *config.Config, env *Env, args []string, out, errOut io.Writer) int {
	if len(args) != 2 {
		return usage(errOut, "usage: %s", c.Usage())
	}
	p, err := openCategory(ctx, env, args[0])
	if err != nil {
		return report(errOut, err)
	}
	f, err := FindField(p.Fields(), args[1])
	if err != nil {
		return report(errOut, err)
	}
	if err := p.DeleteField(ctx, f.ID); err != nil {
		return report(errOut, err)
	}
	done(cfg, out, "ok")
	return exitcode.Success
}
