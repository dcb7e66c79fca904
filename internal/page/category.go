package page

import (
	"context"
	"errors"
	"slices"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"mtrack/internal/fieldcodec"
	"mtrack/internal/filter"
	"mtrack/internal/record"
	"mtrack/internal/schema"
	"mtrack/internal/service"
)

// ErrNotOpen is returned by mutations before a category was opened.
var ErrNotOpen = errors.New("no category open")

// CategoryPage is the detail screen of one category: its fields and items.
type CategoryPage struct {
	svc service.Service
	reg *schema.Registry
	log *zap.Logger

	items *record.Store[service.Item]
	sel   *filter.Selector[service.Item]

	mu       sync.Mutex
	category service.Category
	fields   []service.Field
	criteria filter.Criteria
	loading  record.Ticket // outstanding open, 0 if none
}

// NewCategoryPage creates a category detail controller.
func NewCategoryPage(svc service.Service, reg *schema.Registry, log *zap.Logger) *CategoryPage {
	if log == nil {
		log = zap.NewNop()
	}
	if reg == nil {
		reg = schema.NewRegistry(svc, log)
	}
	items := record.New[service.Item]()
	return &CategoryPage{
		svc:   svc,
		reg:   reg,
		log:   log,
		items: items,
		sel:   filter.NewSelector[service.Item](items),
	}
}

// Open fetches the category, its fields and its items in parallel. Either
// all three succeed and the page shows them, or the page is left as it was.
// An open superseded by a later one returns ErrSuperseded.
func (p *CategoryPage) Open(ctx context.Context, categoryID int64) error {
	t := p.items.BeginLoad()
	p.mu.Lock()
	p.loading = t
	p.mu.Unlock()
	defer func() {
		p.mu.Lock()
		if p.loading == t {
			p.loading = 0
		}
		p.mu.Unlock()
	}()

	var (
		category service.Category
		fields   []service.Field
		items    []service.Item
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		category, err = p.svc.GetCategory(gctx, categoryID)
		return err
	})
	g.Go(func() (err error) {
		fields, err = p.reg.List(gctx, categoryID)
		return err
	})
	g.Go(func() (err error) {
		items, err = p.svc.ListItems(gctx, categoryID)
		return err
	})
	if err := g.Wait(); err != nil {
		p.log.Debug("open failed", zap.Int64("category", categoryID), zap.Error(err))
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.items.Commit(t, items) {
		return ErrSuperseded
	}
	if p.category.ID != categoryID {
		p.criteria = filter.Criteria{}
	}
	p.category = category
	p.fields = fields
	return nil
}

// Loading reports whether an open is outstanding.
func (p *CategoryPage) Loading() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loading != 0
}

// Category returns the open category.
func (p *CategoryPage) Category() service.Category {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.category
}

// Fields returns the field definitions of the open category.
func (p *CategoryPage) Fields() []service.Field {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.fields)
}

// FilterableFields returns the fields offered as equality filters: those
// with a closed set of values.
func (p *CategoryPage) FilterableFields() []service.Field {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []service.Field
	for _, f := range p.fields {
		if f.Type == service.FieldSelect {
			out = append(out, f)
		}
	}
	return out
}

// Items returns the master list.
func (p *CategoryPage) Items() []service.Item { return p.items.All() }

// Item returns one item of the master list.
func (p *CategoryPage) Item(id int64) (service.Item, bool) { return p.items.Get(id) }

func (p *CategoryPage) open() (int64, []service.Field, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.category.ID == 0 {
		return 0, nil, ErrNotOpen
	}
	return p.category.ID, slices.Clone(p.fields), nil
}

// AddItem creates an item from raw form input keyed by field name.
func (p *CategoryPage) AddItem(ctx context.Context, raw map[string]string) (service.Item, error) {
	categoryID, fields, err := p.open()
	if err != nil {
		return service.Item{}, err
	}
	data, err := fieldcodec.BuildData(fields, raw, nil)
	if err != nil {
		return service.Item{}, err
	}
	it, err := p.svc.CreateItem(ctx, categoryID, data)
	if err != nil {
		return service.Item{}, err
	}
	p.items.Insert(it)
	return it, nil
}

// UpdateItem applies raw form input to an item. Fields missing from raw keep
// their value, and so do keys without a field definition.
func (p *CategoryPage) UpdateItem(ctx context.Context, id int64, raw map[string]string) (service.Item, error) {
	_, fields, err := p.open()
	if err != nil {
		return service.Item{}, err
	}
	current, ok := p.items.Get(id)
	if !ok {
		return service.Item{}, &service.ValidationError{Field: "item", Reason: "no such item in this category"}
	}
	base := current.Data
	if base == nil {
		base = map[string]any{}
	}
	data, err := fieldcodec.BuildData(fields, raw, base)
	if err != nil {
		return service.Item{}, err
	}
	it, err := p.svc.UpdateItem(ctx, id, data)
	if err != nil {
		return service.Item{}, err
	}
	if it.CategoryID == 0 {
		it.CategoryID = current.CategoryID
	}
	p.items.Replace(id, it)
	return it, nil
}

// DeleteItem deletes an item.
func (p *CategoryPage) DeleteItem(ctx context.Context, id int64) error {
	if _, _, err := p.open(); err != nil {
		return err
	}
	if err := p.svc.DeleteItem(ctx, id); err != nil {
		return err
	}
	p.items.Remove(id)
	return nil
}

// Field re-reads one field of the open category from the backend.
func (p *CategoryPage) Field(ctx context.Context, fieldID int64) (service.Field, error) {
	categoryID, _, err := p.open()
	if err != nil {
		return service.Field{}, err
	}
	f, err := p.reg.Get(ctx, fieldID)
	if err != nil {
		return service.Field{}, err
	}
	if f.CategoryID != 0 && f.CategoryID != categoryID {
		return service.Field{}, &service.ValidationError{Field: "field", Reason: "not part of this category"}
	}
	p.syncFields(categoryID)
	return f, nil
}

// AddField creates a field in the open category.
func (p *CategoryPage) AddField(ctx context.Context, name string, typ service.FieldType, rawOptions string) (service.Field, error) {
	categoryID, _, err := p.open()
	if err != nil {
		return service.Field{}, err
	}
	f, err := p.reg.Add(ctx, categoryID, name, typ, rawOptions)
	if err != nil {
		return service.Field{}, err
	}
	p.syncFields(categoryID)
	return f, nil
}

// UpdateField replaces a field definition. A rename is migrated by the
// backend, so the items are reloaded to pick up the new keys.
func (p *CategoryPage) UpdateField(ctx context.Context, fieldID int64, name string, typ service.FieldType, rawOptions string) (service.Field, error) {
	categoryID, _, err := p.open()
	if err != nil {
		return service.Field{}, err
	}
	old, _ := p.reg.Lookup(fieldID)
	f, err := p.reg.Update(ctx, fieldID, name, typ, rawOptions)
	if err != nil {
		return service.Field{}, err
	}
	p.syncFields(categoryID)
	if old.Name != "" && old.Name != f.Name {
		p.dropFilter(old.Name)
		if err := p.reloadItems(ctx, categoryID); err != nil && !errors.Is(err, ErrSuperseded) {
			return f, err
		}
	}
	return f, nil
}

// DeleteField removes a field definition. Item data is left untouched.
func (p *CategoryPage) DeleteField(ctx context.Context, fieldID int64) error {
	categoryID, _, err := p.open()
	if err != nil {
		return err
	}
	old, _ := p.reg.Lookup(fieldID)
	if err := p.reg.Delete(ctx, fieldID); err != nil {
		return err
	}
	p.syncFields(categoryID)
	p.dropFilter(old.Name)
	return nil
}

func (p *CategoryPage) syncFields(categoryID int64) {
	fields := p.reg.Fields(categoryID)
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.category.ID == categoryID {
		p.fields = fields
	}
}

func (p *CategoryPage) reloadItems(ctx context.Context, categoryID int64) error {
	t := p.items.BeginLoad()
	items, err := p.svc.ListItems(ctx, categoryID)
	if err != nil {
		return err
	}
	if !p.items.Commit(t, items) {
		return ErrSuperseded
	}
	return nil
}

// SetSearch sets the free-text search term.
func (p *CategoryPage) SetSearch(term string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.criteria = filter.Criteria{SearchTerm: term, Equals: p.criteria.Equals}
}

// SetFilter requires field to equal value. An empty value clears the filter.
func (p *CategoryPage) SetFilter(field, value string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.criteria = p.criteria.With(field, value)
}

// ClearFilters resets the search term and every equality filter.
func (p *CategoryPage) ClearFilters() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.criteria = filter.Criteria{}
}

func (p *CategoryPage) dropFilter(field string) {
	if field == "" {
		return
	}
	p.SetFilter(field, "")
}

// Criteria returns the current filter state.
func (p *CategoryPage) Criteria() filter.Criteria {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.criteria
}

// Displayed returns the items matching the current filter state.
func (p *CategoryPage) Displayed() filter.Result[service.Item] {
	return p.sel.Select(p.Criteria())
}
