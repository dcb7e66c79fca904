package schema

import (
	"context"
	"slices"
	"strconv"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"mtrack/internal/service"
)

// Registry is the client-side view of field definitions, one ordered list per
// category. The view changes only after the backend confirmed a change.
type Registry struct {
	svc   service.Service
	log   *zap.Logger
	group singleflight.Group

	mu    sync.RWMutex
	views map[int64][]service.Field // category id -> fields in API order
}

// NewRegistry creates a registry backed by svc.
func NewRegistry(svc service.Service, log *zap.Logger) *Registry {
	if log == nil {
		log = zap.NewNop()
	}
	return &Registry{svc: svc, log: log, views: make(map[int64][]service.Field)}
}

// List fetches the fields of a category and replaces the local view.
// Concurrent calls for the same category share one request.
func (r *Registry) List(ctx context.Context, categoryID int64) ([]service.Field, error) {
	v, err, shared := r.group.Do(strconv.FormatInt(categoryID, 10), func() (any, error) {
		fields, err := r.svc.ListFields(ctx, categoryID)
		if err != nil {
			return nil, err
		}
		r.mu.Lock()
		r.views[categoryID] = slices.Clone(fields)
		r.mu.Unlock()
		return fields, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		r.log.Debug("shared field list", zap.Int64("category", categoryID))
	}
	return slices.Clone(v.([]service.Field)), nil
}

// Fields returns the local view of a category, or nil when it was never loaded.
func (r *Registry) Fields(categoryID int64) []service.Field {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.views[categoryID])
}

// Lookup finds a field in any loaded view.
func (r *Registry) Lookup(fieldID int64) (service.Field, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, f, ok := r.locateLocked(fieldID)
	return f, ok
}

// Get fetches one field definition from the backend. A field that is part
// of a loaded view is refreshed there too.
func (r *Registry) Get(ctx context.Context, fieldID int64) (service.Field, error) {
	f, err := r.svc.GetField(ctx, fieldID)
	if err != nil {
		return service.Field{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if categoryID, _, ok := r.locateLocked(fieldID); ok {
		if f.CategoryID == 0 {
			f.CategoryID = categoryID
		}
		if f.CategoryID == categoryID {
			fields := slices.Clone(r.views[categoryID])
			i := slices.IndexFunc(fields, func(x service.Field) bool { return x.ID == fieldID })
			fields[i] = f
			r.views[categoryID] = fields
		}
	}
	return f, nil
}

// Add validates and creates a field. rawOptions is the comma-separated option
// list and only matters for Select fields.
func (r *Registry) Add(ctx context.Context, categoryID int64, name string, typ service.FieldType, rawOptions string) (service.Field, error) {
	existing, err := r.ensure(ctx, categoryID)
	if err != nil {
		return service.Field{}, err
	}
	in, err := Validate(existing, service.FieldInput{Name: name, Type: typ, Options: ParseOptions(rawOptions)}, 0)
	if err != nil {
		return service.Field{}, err
	}

	f, err := r.svc.CreateField(ctx, categoryID, in)
	if err != nil {
		return service.Field{}, err
	}
	if f.CategoryID == 0 {
		f.CategoryID = categoryID
	}

	r.mu.Lock()
	r.views[categoryID] = append(r.views[categoryID], f)
	r.mu.Unlock()
	r.log.Debug("field added", zap.Int64("category", categoryID), zap.String("name", f.Name))
	return f, nil
}

// Update validates and replaces a field definition. The field must be part
// of a loaded view. Changing the type away from Select drops the options.
func (r *Registry) Update(ctx context.Context, fieldID int64, name string, typ service.FieldType, rawOptions string) (service.Field, error) {
	r.mu.RLock()
	categoryID, _, ok := r.locateLocked(fieldID)
	existing := slices.Clone(r.views[categoryID])
	r.mu.RUnlock()
	if !ok {
		return service.Field{}, invalidf("field", "unknown field %d", fieldID)
	}

	in, err := Validate(existing, service.FieldInput{Name: name, Type: typ, Options: ParseOptions(rawOptions)}, fieldID)
	if err != nil {
		return service.Field{}, err
	}

	f, err := r.svc.UpdateField(ctx, fieldID, in)
	if err != nil {
		return service.Field{}, err
	}
	f.CategoryID = categoryID

	r.mu.Lock()
	if i := slices.IndexFunc(r.views[categoryID], func(x service.Field) bool { return x.ID == fieldID }); i >= 0 {
		r.views[categoryID][i] = f
	}
	r.mu.Unlock()
	return f, nil
}

// Delete removes a field definition. Item data keyed by the field is left
// alone; it becomes inert.
func (r *Registry) Delete(ctx context.Context, fieldID int64) error {
	if err := r.svc.DeleteField(ctx, fieldID); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if categoryID, _, ok := r.locateLocked(fieldID); ok {
		r.views[categoryID] = slices.DeleteFunc(r.views[categoryID], func(x service.Field) bool { return x.ID == fieldID })
	}
	return nil
}

// Forget drops the view of a deleted category.
func (r *Registry) Forget(categoryID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.views, categoryID)
}

func (r *Registry) ensure(ctx context.Context, categoryID int64) ([]service.Field, error) {
	r.mu.RLock()
	fields, ok := r.views[categoryID]
	r.mu.RUnlock()
	if ok {
		return slices.Clone(fields), nil
	}
	return r.List(ctx, categoryID)
}

func (r *Registry) locateLocked(fieldID int64) (int64, service.Field, bool) {
	for categoryID, fields := range r.views {
		for _, f := range fields {
			if f.ID == fieldID {
				return categoryID, f, true
			}
		}
	}
	return 0, service.Field{}, false
}
