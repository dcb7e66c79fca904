// Package rest implements the service.Service interface over the tracker's
// JSON envelope API.
package rest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"mtrack/internal/service"
	"mtrack/internal/session"
)

const (
	// LoginPath is the form-encoded token endpoint.
	LoginPath = "/login"

	// SignupPath registers a new account.
	SignupPath = "/signup"

	// LoginTimeout bounds the token exchange.
	LoginTimeout = 30 * time.Second
)

// Client implements service.Service. Every call except Login and Signup goes
// through the session gate.
type Client struct {
	gate *session.Gate
	log  *zap.Logger
}

var _ service.Service = (*Client)(nil)

// New creates a client on top of gate.
func New(gate *session.Gate, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{gate: gate, log: log}
}

// Login exchanges credentials for an access token. The backend expects an
// OAuth2 password grant (form-encoded username and password) and answers with
// {access_token, token_type}, or {detail} on failure.
func (c *Client) Login(ctx context.Context, creds service.Credentials) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, LoginTimeout)
	defer cancel()

	conf := &oauth2.Config{
		Endpoint: oauth2.Endpoint{
			TokenURL:  c.gate.BaseURL() + LoginPath,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.gate.HTTPClient())

	tok, err := conf.PasswordCredentialsToken(ctx, creds.Username, creds.Password)
	if err != nil {
		var re *oauth2.RetrieveError
		if errors.As(err, &re) {
			code := 0
			if re.Response != nil {
				code = re.Response.StatusCode
			}
			msg := detailMessage(re.Body)
			if msg == "" {
				msg = re.ErrorDescription
			}
			if msg == "" {
				msg = "login failed"
			}
			return "", &service.BusinessError{Code: code, Message: msg, Err: err}
		}
		c.log.Warn("login failed", zap.Error(err))
		return "", &service.TransportError{Op: "POST " + LoginPath, Err: err}
	}
	return tok.AccessToken, nil
}

// Signup registers a new account. The endpoint answers with the bare user
// object rather than an envelope.
func (c *Client) Signup(ctx context.Context, creds service.Credentials) (service.User, error) {
	body, err := json.Marshal(creds)
	if err != nil {
		return service.User{}, err
	}
	resp, err := c.gate.DoPublic(ctx, session.Request{Method: http.MethodPost, Path: SignupPath, Body: body})
	if err != nil {
		return service.User{}, err
	}
	if !resp.OK() {
		return service.User{}, httpError(resp)
	}
	var u service.User
	if err := json.Unmarshal(resp.Body, &u); err != nil {
		return service.User{}, &service.TransportError{Op: "POST " + SignupPath, Err: fmt.Errorf("malformed response: %w", err)}
	}
	return u, nil
}

// ListCategories returns all categories in API order.
func (c *Client) ListCategories(ctx context.Context) ([]service.Category, error) {
	var out []service.Category
	if err := c.call(ctx, http.MethodGet, "/categories", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetCategory returns one category.
func (c *Client) GetCategory(ctx context.Context, id int64) (service.Category, error) {
	var out service.Category
	err := c.call(ctx, http.MethodGet, categoryPath(id), nil, &out)
	return out, err
}

type categoryInput struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// CreateCategory creates a category. An empty description lets the backend
// apply its default.
func (c *Client) CreateCategory(ctx context.Context, name, description string) (service.Category, error) {
	var out service.Category
	err := c.call(ctx, http.MethodPost, "/categories", categoryInput{Name: name, Description: description}, &out)
	return out, err
}

// UpdateCategory renames a category. An empty description keeps the current one.
func (c *Client) UpdateCategory(ctx context.Context, id int64, name, description string) (service.Category, error) {
	var out service.Category
	err := c.call(ctx, http.MethodPut, categoryPath(id), categoryInput{Name: name, Description: description}, &out)
	return out, err
}

// DeleteCategory deletes a category together with its fields and items.
func (c *Client) DeleteCategory(ctx context.Context, id int64) error {
	return c.call(ctx, http.MethodDelete, categoryPath(id), nil, nil)
}

// ListFields returns the field definitions of a category.
func (c *Client) ListFields(ctx context.Context, categoryID int64) ([]service.Field, error) {
	var out []service.Field
	if err := c.call(ctx, http.MethodGet, categoryPath(categoryID)+"/fields", nil, &out); err != nil {
		return nil, err
	}
	return withCategory(out, categoryID), nil
}

// GetField returns one field definition.
func (c *Client) GetField(ctx context.Context, id int64) (service.Field, error) {
	var out service.Field
	err := c.call(ctx, http.MethodGet, fieldPath(id), nil, &out)
	return out, err
}

// CreateField adds a field definition to a category.
func (c *Client) CreateField(ctx context.Context, categoryID int64, in service.FieldInput) (service.Field, error) {
	var out service.Field
	if err := c.call(ctx, http.MethodPost, categoryPath(categoryID)+"/fields", in, &out); err != nil {
		return service.Field{}, err
	}
	if out.CategoryID == 0 {
		out.CategoryID = categoryID
	}
	return out, nil
}

// UpdateField replaces a field definition.
func (c *Client) UpdateField(ctx context.Context, id int64, in service.FieldInput) (service.Field, error) {
	var out service.Field
	err := c.call(ctx, http.MethodPut, fieldPath(id), in, &out)
	return out, err
}

// DeleteField removes a field definition.
func (c *Client) DeleteField(ctx context.Context, id int64) error {
	return c.call(ctx, http.MethodDelete, fieldPath(id), nil, nil)
}

// ListItems returns the items of a category.
func (c *Client) ListItems(ctx context.Context, categoryID int64) ([]service.Item, error) {
	var out []service.Item
	if err := c.call(ctx, http.MethodGet, categoryPath(categoryID)+"/items", nil, &out); err != nil {
		return nil, err
	}
	for i := range out {
		if out[i].CategoryID == 0 {
			out[i].CategoryID = categoryID
		}
	}
	return out, nil
}

// GetItem returns one item.
func (c *Client) GetItem(ctx context.Context, id int64) (service.Item, error) {
	var out service.Item
	err := c.call(ctx, http.MethodGet, itemPath(id), nil, &out)
	return out, err
}

type itemInput struct {
	Data map[string]any `json:"data"`
}

// CreateItem creates an item.
func (c *Client) CreateItem(ctx context.Context, categoryID int64, data map[string]any) (service.Item, error) {
	var out service.Item
	if err := c.call(ctx, http.MethodPost, categoryPath(categoryID)+"/items", itemInput{Data: data}, &out); err != nil {
		return service.Item{}, err
	}
	if out.CategoryID == 0 {
		out.CategoryID = categoryID
	}
	return out, nil
}

// UpdateItem replaces an item's data.
func (c *Client) UpdateItem(ctx context.Context, id int64, data map[string]any) (service.Item, error) {
	var out service.Item
	err := c.call(ctx, http.MethodPut, itemPath(id), itemInput{Data: data}, &out)
	return out, err
}

// DeleteItem deletes an item.
func (c *Client) DeleteItem(ctx context.Context, id int64) error {
	return c.call(ctx, http.MethodDelete, itemPath(id), nil, nil)
}

// call sends in as JSON (when non-nil) and decodes the envelope's data into out.
func (c *Client) call(ctx context.Context, method, path string, in, out any) error {
	var body []byte
	if in != nil {
		var err error
		body, err = json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
	}
	resp, err := c.gate.Do(ctx, session.Request{Method: method, Path: path, Body: body})
	if err != nil {
		return err
	}
	if err := decode(method+" "+path, resp, out); err != nil {
		if service.IsTransport(err) {
			c.log.Warn("malformed response", zap.String("op", method+" "+path), zap.Error(err))
		}
		return err
	}
	return nil
}

func categoryPath(id int64) string { return fmt.Sprintf("/categories/%d", id) }
func fieldPath(id int64) string    { return fmt.Sprintf("/fields/%d", id) }
func itemPath(id int64) string     { return fmt.Sprintf("/items/%d", id) }

func withCategory(fields []service.Field, categoryID int64) []service.Field {
	for i := range fields {
		if fields[i].CategoryID == 0 {
			fields[i].CategoryID = categoryID
		}
	}
	return fields
}
