// Package category wraps the /categories endpoints.
package category

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jrsteele09/go-vocab-client/httpclient"
	"github.com/jrsteele09/go-vocab-client/internal/envelope"
	errs "github.com/jrsteele09/go-vocab-client/internal/errors"
	"github.com/pkg/errors"
)

const (
	PathCategories = "/categories"
	PathStats      = PathCategories + "/stats"
	PathSearch     = PathCategories + "/search"
)

// Category is a user-owned label grouping vocabularies.
type Category struct {
	ID              string    `json:"_id"`
	Name            string    `json:"name"`
	Description     string    `json:"description,omitempty"`
	Color           string    `json:"color,omitempty"`
	CreatedBy       string    `json:"createdBy,omitempty"`
	VocabularyCount int       `json:"vocabularyCount,omitempty"`
	CreatedAt       time.Time `json:"createdAt,omitzero"`
	UpdatedAt       time.Time `json:"updatedAt,omitzero"`
}

type CreateRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Color       string `json:"color,omitempty"`
}

// UpdateRequest only sends the fields that are set.
type UpdateRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	Color       *string `json:"color,omitempty"`
}

type Client struct {
	http *httpclient.Client
}

func New(c *httpclient.Client) *Client {
	return &Client{http: c}
}

func (c *Client) List(ctx context.Context) ([]Category, error) {
	return c.list(ctx, "Client.List", PathCategories, nil)
}

func (c *Client) Get(ctx context.Context, id string) (*Category, error) {
	if strings.TrimSpace(id) == "" {
		return nil, errors.Wrap(errs.ErrValidation, "[Client.Get] category id is required")
	}
	return c.item(ctx, "Client.Get", http.MethodGet, itemPath(id), nil)
}

func (c *Client) Create(ctx context.Context, req CreateRequest) (*Category, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, errors.Wrap(errs.ErrValidation, "[Client.Create] category name is required")
	}
	return c.item(ctx, "Client.Create", http.MethodPost, PathCategories, req)
}

func (c *Client) Update(ctx context.Context, id string, req UpdateRequest) (*Category, error) {
	if strings.TrimSpace(id) == "" {
		return nil, errors.Wrap(errs.ErrValidation, "[Client.Update] category id is required")
	}
	return c.item(ctx, "Client.Update", http.MethodPatch, itemPath(id), req)
}

func (c *Client) Delete(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return errors.Wrap(errs.ErrValidation, "[Client.Delete] category id is required")
	}
	if err := c.http.Delete(ctx, itemPath(id), nil); err != nil {
		return errors.Wrapf(err, "[Client.Delete] failed to delete category %s", id)
	}
	return nil
}

// Stats returns the categories with their vocabulary counts filled in.
func (c *Client) Stats(ctx context.Context) ([]Category, error) {
	return c.list(ctx, "Client.Stats", PathStats, nil)
}

// Search matches categories by name. An empty query lists everything.
func (c *Client) Search(ctx context.Context, query string) ([]Category, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return c.List(ctx)
	}
	return c.list(ctx, "Client.Search", PathSearch, url.Values{"q": {query}})
}

func (c *Client) list(ctx context.Context, op, path string, query url.Values) ([]Category, error) {
	var opts []httpclient.RequestOption
	if query != nil {
		opts = append(opts, httpclient.WithQuery(query))
	}
	var raw json.RawMessage
	if err := c.http.Get(ctx, path, &raw, opts...); err != nil {
		return nil, errors.Wrapf(err, "[%s] failed to fetch categories", op)
	}
	out, err := envelope.List[Category](raw, "categories")
	if err != nil {
		return nil, errors.Wrapf(errs.Join(errs.ErrInvalidResponse, err), "[%s] failed to decode categories", op)
	}
	return out, nil
}

func (c *Client) item(ctx context.Context, op, method, path string, body any) (*Category, error) {
	var raw json.RawMessage
	if err := c.http.Do(ctx, method, path, body, &raw); err != nil {
		return nil, errors.Wrapf(err, "[%s] category request failed", op)
	}
	out, err := envelope.Item[Category](raw, "category")
	if err != nil {
		return nil, errors.Wrapf(errs.Join(errs.ErrInvalidResponse, err), "[%s] failed to decode category", op)
	}
	return out, nil
}

func itemPath(id string) string {
	return PathCategories + "/" + url.PathEscape(id)
}
