// Package service defines the backend-agnostic interface for tracker operations.
package service

import "context"

// Service defines the interface for tracker backend operations.
// Commands and pages never talk HTTP directly; everything goes through here.
// Every method except Login and Signup is gated by the session.
type Service interface {
	// Login exchanges credentials for an access token.
	Login(ctx context.Context, creds Credentials) (string, error)

	// Signup registers a new account.
	Signup(ctx context.Context, creds Credentials) (User, error)

	// ListCategories returns all categories of the logged-in user in API order.
	ListCategories(ctx context.Context) ([]Category, error)

	// GetCategory returns one category.
	GetCategory(ctx context.Context, id int64) (Category, error)

	// CreateCategory creates a category and returns it with its generated id.
	CreateCategory(ctx context.Context, name, description string) (Category, error)

	// UpdateCategory renames or redescribes a category.
	UpdateCategory(ctx context.Context, id int64, name, description string) (Category, error)

	// DeleteCategory deletes a category; the backend removes its fields and items.
	DeleteCategory(ctx context.Context, id int64) error

	// ListFields returns the field definitions of a category in API order.
	ListFields(ctx context.Context, categoryID int64) ([]Field, error)

	// GetField returns one field definition.
	GetField(ctx context.Context, id int64) (Field, error)

	// CreateField adds a field definition to a category.
	CreateField(ctx context.Context, categoryID int64, in FieldInput) (Field, error)

	// UpdateField replaces a field definition. A rename is migrated by the
	// backend across the category's items.
	UpdateField(ctx context.Context, id int64, in FieldInput) (Field, error)

	// DeleteField removes a field definition.
	DeleteField(ctx context.Context, id int64) error

	// ListItems returns the items of a category in API order.
	ListItems(ctx context.Context, categoryID int64) ([]Item, error)

	// GetItem returns one item.
	GetItem(ctx context.Context, id int64) (Item, error)

	// CreateItem creates an item with the given data.
	CreateItem(ctx context.Context, categoryID int64, data map[string]any) (Item, error)

	// UpdateItem replaces an item's data.
	UpdateItem(ctx context.Context, id int64, data map[string]any) (Item, error)

	// DeleteItem deletes an item.
	DeleteItem(ctx context.Context, id int64) error
}
