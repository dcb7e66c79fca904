// Package testutil provides testing utilities.
package testutil

import (
	"context"
	"maps"
	"slices"
	"sync"

	"mtrack/internal/service"
)

// ErrNotFound is returned when a resource is not found.
var ErrNotFound = &service.BusinessError{Status: "error", Message: "not found"}

// FakeToken is the token issued by FakeService.Login.
const FakeToken = "fake-token"

// FakeService is an in-memory implementation of service.Service for testing.
type FakeService struct {
	mu         sync.RWMutex
	nextID     int64
	users      map[string]string // username -> password
	categories []service.Category
	fields     []service.Field
	items      []service.Item

	// BeforeCall, when set, runs at the start of every method with the
	// method name. Tests use it to count calls or to block.
	BeforeCall func(method string)

	// Error injection for testing
	LoginErr          error
	SignupErr         error
	ListCategoriesErr error
	GetCategoryErr    error
	CreateCategoryErr error
	UpdateCategoryErr error
	DeleteCategoryErr error
	ListFieldsErr     error
	GetFieldErr       error
	CreateFieldErr    error
	UpdateFieldErr    error
	DeleteFieldErr    error
	ListItemsErr      error
	GetItemErr        error
	CreateItemErr     error
	UpdateItemErr     error
	DeleteItemErr     error
}

// NewFakeService creates an empty FakeService.
func NewFakeService() *FakeService {
	return &FakeService{users: make(map[string]string)}
}

func (f *FakeService) before(method string) {
	if f.BeforeCall != nil {
		f.BeforeCall(method)
	}
}

func (f *FakeService) id() int64 {
	f.nextID++
	return f.nextID
}

// AddUser registers an account for Login.
func (f *FakeService) AddUser(username, password string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[username] = password
}

// AddCategory seeds a category and returns its id.
func (f *FakeService) AddCategory(name, description string) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	if description == "" {
		description = service.DefaultDescription
	}
	c := service.Category{ID: f.id(), Name: name, Description: description}
	f.categories = append(f.categories, c)
	return c.ID
}

// AddField seeds a field and returns its id.
func (f *FakeService) AddField(categoryID int64, name string, typ service.FieldType, options ...string) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	fd := service.Field{ID: f.id(), CategoryID: categoryID, Name: name, Type: typ, Options: options}
	f.fields = append(f.fields, fd)
	return fd.ID
}

// AddItem seeds an item and returns its id.
func (f *FakeService) AddItem(categoryID int64, data map[string]any) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	it := service.Item{ID: f.id(), CategoryID: categoryID, Data: maps.Clone(data)}
	f.items = append(f.items, it)
	return it.ID
}

// ItemData returns a copy of the stored data of an item.
func (f *FakeService) ItemData(id int64) map[string]any {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, it := range f.items {
		if it.ID == id {
			return maps.Clone(it.Data)
		}
	}
	return nil
}

// Login implements service.Service.
func (f *FakeService) Login(ctx context.Context, creds service.Credentials) (string, error) {
	f.before("Login")
	if f.LoginErr != nil {
		return "", f.LoginErr
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	if pw, ok := f.users[creds.Username]; !ok || pw != creds.Password {
		return "", &service.BusinessError{Code: 401, Message: "Incorrect username or password"}
	}
	return FakeToken, nil
}

// Signup implements service.Service.
func (f *FakeService) Signup(ctx context.Context, creds service.Credentials) (service.User, error) {
	f.before("Signup")
	if f.SignupErr != nil {
		return service.User{}, f.SignupErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[creds.Username]; ok {
		return service.User{}, &service.BusinessError{Code: 400, Message: "Username already registered"}
	}
	f.users[creds.Username] = creds.Password
	return service.User{ID: f.id(), Username: creds.Username}, nil
}

// ListCategories implements service.Service.
func (f *FakeService) ListCategories(ctx context.Context) ([]service.Category, error) {
	f.before("ListCategories")
	if f.ListCategoriesErr != nil {
		return nil, f.ListCategoriesErr
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	return slices.Clone(f.categories), nil
}

// GetCategory implements service.Service.
func (f *FakeService) GetCategory(ctx context.Context, id int64) (service.Category, error) {
	f.before("GetCategory")
	if f.GetCategoryErr != nil {
		return service.Category{}, f.GetCategoryErr
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, c := range f.categories {
		if c.ID == id {
			return c, nil
		}
	}
	return service.Category{}, ErrNotFound
}

// CreateCategory implements service.Service.
func (f *FakeService) CreateCategory(ctx context.Context, name, description string) (service.Category, error) {
	f.before("CreateCategory")
	if f.CreateCategoryErr != nil {
		return service.Category{}, f.CreateCategoryErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if description == "" {
		description = service.DefaultDescription
	}
	c := service.Category{ID: f.id(), Name: name, Description: description}
	f.categories = append(f.categories, c)
	return c, nil
}

// UpdateCategory implements service.Service.
func (f *FakeService) UpdateCategory(ctx context.Context, id int64, name, description string) (service.Category, error) {
	f.before("UpdateCategory")
	if f.UpdateCategoryErr != nil {
		return service.Category{}, f.UpdateCategoryErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, c := range f.categories {
		if c.ID == id {
			c.Name = name
			if description != "" {
				c.Description = description
			}
			f.categories[i] = c
			return c, nil
		}
	}
	return service.Category{}, ErrNotFound
}

// DeleteCategory implements service.Service.
func (f *FakeService) DeleteCategory(ctx context.Context, id int64) error {
	f.before("DeleteCategory")
	if f.DeleteCategoryErr != nil {
		return f.DeleteCategoryErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	n := len(f.categories)
	f.categories = slices.DeleteFunc(f.categories, func(c service.Category) bool { return c.ID == id })
	if len(f.categories) == n {
		return ErrNotFound
	}
	f.fields = slices.DeleteFunc(f.fields, func(fd service.Field) bool { return fd.CategoryID == id })
	f.items = slices.DeleteFunc(f.items, func(it service.Item) bool { return it.CategoryID == id })
	return nil
}

func (f *FakeService) hasCategory(id int64) bool {
	return slices.ContainsFunc(f.categories, func(c service.Category) bool { return c.ID == id })
}

// ListFields implements service.Service.
func (f *FakeService) ListFields(ctx context.Context, categoryID int64) ([]service.Field, error) {
	f.before("ListFields")
	if f.ListFieldsErr != nil {
		return nil, f.ListFieldsErr
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	if !f.hasCategory(categoryID) {
		return nil, ErrNotFound
	}
	var out []service.Field
	for _, fd := range f.fields {
		if fd.CategoryID == categoryID {
			fd.Options = slices.Clone(fd.Options)
			out = append(out, fd)
		}
	}
	return out, nil
}

// GetField implements service.Service.
func (f *FakeService) GetField(ctx context.Context, id int64) (service.Field, error) {
	f.before("GetField")
	if f.GetFieldErr != nil {
		return service.Field{}, f.GetFieldErr
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, fd := range f.fields {
		if fd.ID == id {
			return fd, nil
		}
	}
	return service.Field{}, ErrNotFound
}

// CreateField implements service.Service.
func (f *FakeService) CreateField(ctx context.Context, categoryID int64, in service.FieldInput) (service.Field, error) {
	f.before("CreateField")
	if f.CreateFieldErr != nil {
		return service.Field{}, f.CreateFieldErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.hasCategory(categoryID) {
		return service.Field{}, &service.BusinessError{Status: "error", Message: "Category not found"}
	}
	fd := service.Field{ID: f.id(), CategoryID: categoryID, Name: in.Name, Type: in.Type, Options: slices.Clone(in.Options)}
	f.fields = append(f.fields, fd)
	return fd, nil
}

// UpdateField implements service.Service. Renames are migrated across the
// category's items the way the real backend does.
func (f *FakeService) UpdateField(ctx context.Context, id int64, in service.FieldInput) (service.Field, error) {
	f.before("UpdateField")
	if f.UpdateFieldErr != nil {
		return service.Field{}, f.UpdateFieldErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, fd := range f.fields {
		if fd.ID != id {
			continue
		}
		if fd.Name != in.Name {
			for _, it := range f.items {
				if v, ok := it.Data[fd.Name]; ok && it.CategoryID == fd.CategoryID {
					delete(it.Data, fd.Name)
					it.Data[in.Name] = v
				}
			}
		}
		fd.Name, fd.Type, fd.Options = in.Name, in.Type, slices.Clone(in.Options)
		f.fields[i] = fd
		return fd, nil
	}
	return service.Field{}, &service.BusinessError{Status: "error", Message: "Field not found or update failed"}
}

// DeleteField implements service.Service.
func (f *FakeService) DeleteField(ctx context.Context, id int64) error {
	f.before("DeleteField")
	if f.DeleteFieldErr != nil {
		return f.DeleteFieldErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, fd := range f.fields {
		if fd.ID == id {
			f.fields = slices.Delete(f.fields, i, i+1)
			return nil
		}
	}
	return &service.BusinessError{Status: "error", Message: "Field not found"}
}

// ListItems implements service.Service.
func (f *FakeService) ListItems(ctx context.Context, categoryID int64) ([]service.Item, error) {
	f.before("ListItems")
	if f.ListItemsErr != nil {
		return nil, f.ListItemsErr
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	if !f.hasCategory(categoryID) {
		return nil, ErrNotFound
	}
	var out []service.Item
	for _, it := range f.items {
		if it.CategoryID == categoryID {
			it.Data = maps.Clone(it.Data)
			out = append(out, it)
		}
	}
	return out, nil
}

// GetItem implements service.Service.
func (f *FakeService) GetItem(ctx context.Context, id int64) (service.Item, error) {
	f.before("GetItem")
	if f.GetItemErr != nil {
		return service.Item{}, f.GetItemErr
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, it := range f.items {
		if it.ID == id {
			it.Data = maps.Clone(it.Data)
			return it, nil
		}
	}
	return service.Item{}, &service.BusinessError{Status: "error", Message: "Item not found"}
}

// CreateItem implements service.Service.
func (f *FakeService) CreateItem(ctx context.Context, categoryID int64, data map[string]any) (service.Item, error) {
	f.before("CreateItem")
	if f.CreateItemErr != nil {
		return service.Item{}, f.CreateItemErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.hasCategory(categoryID) {
		return service.Item{}, &service.BusinessError{Status: "error", Message: "Category not found"}
	}
	it := service.Item{ID: f.id(), CategoryID: categoryID, Data: maps.Clone(data)}
	f.items = append(f.items, it)
	it.Data = maps.Clone(data)
	return it, nil
}

// UpdateItem implements service.Service.
func (f *FakeService) UpdateItem(ctx context.Context, id int64, data map[string]any) (service.Item, error) {
	f.before("UpdateItem")
	if f.UpdateItemErr != nil {
		return service.Item{}, f.UpdateItemErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, it := range f.items {
		if it.ID == id {
			it.Data = maps.Clone(data)
			f.items[i] = it
			it.Data = maps.Clone(data)
			return it, nil
		}
	}
	return service.Item{}, &service.BusinessError{Status: "error", Message: "Item not found"}
}

// DeleteItem implements service.Service.
func (f *FakeService) DeleteItem(ctx context.Context, id int64) error {
	f.before("DeleteItem")
	if f.DeleteItemErr != nil {
		return f.DeleteItemErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	n := len(f.items)
	f.items = slices.DeleteFunc(f.items, func(it service.Item) bool { return it.ID == id })
	if len(f.items) == n {
		return &service.BusinessError{Status: "error", Message: "Item not found"}
	}
	return nil
}

var _ service.Service = (*FakeService)(nil)
