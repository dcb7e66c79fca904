// Package page holds the controllers behind each screen: they fetch, mutate
// master lists after confirmed backend calls, and expose the displayed view.
package page

import (
	"context"
	"errors"
	"strings"
	"sync"

	"go.uber.org/zap"

	"mtrack/internal/filter"
	"mtrack/internal/record"
	"mtrack/internal/schema"
	"mtrack/internal/service"
)

// ErrSuperseded is returned by a load whose result was dropped because a
// newer load began meanwhile.
var ErrSuperseded = errors.New("superseded by a newer load")

// CategoriesPage is the category list.
type CategoriesPage struct {
	svc service.Service
	reg *schema.Registry
	log *zap.Logger

	store *record.Store[service.Category]
	sel   *filter.Selector[service.Category]

	mu     sync.Mutex
	search string
}

// NewCategoriesPage creates the category list controller. reg may be nil.
func NewCategoriesPage(svc service.Service, reg *schema.Registry, log *zap.Logger) *CategoriesPage {
	if log == nil {
		log = zap.NewNop()
	}
	store := record.New[service.Category]()
	return &CategoriesPage{
		svc:   svc,
		reg:   reg,
		log:   log,
		store: store,
		sel:   filter.NewSelector[service.Category](store),
	}
}

// Load fetches all categories.
func (p *CategoriesPage) Load(ctx context.Context) error {
	t := p.store.BeginLoad()
	cats, err := p.svc.ListCategories(ctx)
	if err != nil {
		return err
	}
	if !p.store.Commit(t, cats) {
		return ErrSuperseded
	}
	return nil
}

// Loaded reports whether a load completed.
func (p *CategoriesPage) Loaded() bool { return p.store.Loaded() }

// Get returns a category from the master list.
func (p *CategoriesPage) Get(id int64) (service.Category, bool) { return p.store.Get(id) }

// Create validates and creates a category. An empty description gets the
// backend default.
func (p *CategoriesPage) Create(ctx context.Context, name, description string) (service.Category, error) {
	name = strings.TrimSpace(name)
	if err := schema.ValidateCategory(name, description); err != nil {
		return service.Category{}, err
	}
	c, err := p.svc.CreateCategory(ctx, name, description)
	if err != nil {
		return service.Category{}, err
	}
	p.store.Insert(c)
	p.log.Debug("category created", zap.Int64("id", c.ID))
	return c, nil
}

// Update renames or redescribes a category. An empty description keeps the
// current one.
func (p *CategoriesPage) Update(ctx context.Context, id int64, name, description string) (service.Category, error) {
	name = strings.TrimSpace(name)
	if err := schema.ValidateCategory(name, description); err != nil {
		return service.Category{}, err
	}
	c, err := p.svc.UpdateCategory(ctx, id, name, description)
	if err != nil {
		return service.Category{}, err
	}
	p.store.Replace(id, c)
	return c, nil
}

// Delete removes a category. The backend deletes its fields and items.
func (p *CategoriesPage) Delete(ctx context.Context, id int64) error {
	if err := p.svc.DeleteCategory(ctx, id); err != nil {
		return err
	}
	p.store.Remove(id)
	if p.reg != nil {
		p.reg.Forget(id)
	}
	return nil
}

// Search sets the name search term.
func (p *CategoriesPage) Search(term string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.search = term
}

// Displayed returns the categories matching the search term.
func (p *CategoriesPage) Displayed() filter.Result[service.Category] {
	p.mu.Lock()
	c := filter.Criteria{SearchTerm: p.search}
	p.mu.Unlock()
	return p.sel.Select(c)
}
