// Package admin wraps the administrator endpoints. The API decides who may call
// them; the console only links here for admin accounts.
package admin

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"

	"github.com/jrsteele09/go-vocab-client/category"
	"github.com/jrsteele09/go-vocab-client/httpclient"
	"github.com/jrsteele09/go-vocab-client/internal/envelope"
	errs "github.com/jrsteele09/go-vocab-client/internal/errors"
	"github.com/jrsteele09/go-vocab-client/users"
	"github.com/jrsteele09/go-vocab-client/vocabulary"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const (
	PathUsers        = "/admin/users"
	PathVocabularies = "/admin/vocabularies"
	PathCategories   = "/admin/categories"
	PathStats        = "/admin/stats"

	pathUser = "/users/"
)

type Client struct {
	http *httpclient.Client
}

func New(c *httpclient.Client) *Client {
	return &Client{http: c}
}

func (c *Client) Users(ctx context.Context, filter UserFilter) ([]User, error) {
	q := url.Values{}
	setFilter(q, "search", filter.Search)
	setFilter(q, "role", filter.Role)
	return list[User](ctx, c.http, "Client.Users", PathUsers, "users", q)
}

// UpdateUserRole changes an account's role and returns the updated account.
func (c *Client) UpdateUserRole(ctx context.Context, userID string, role users.RoleType) (*User, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, errors.Wrap(errs.ErrValidation, "[Client.UpdateUserRole] user id is required")
	}
	parsed, ok := users.ParseRole(string(role))
	if !ok {
		return nil, errors.Wrapf(errs.ErrValidation, "[Client.UpdateUserRole] unknown role %q", role)
	}

	var raw json.RawMessage
	body := map[string]users.RoleType{"role": parsed}
	if err := c.http.Patch(ctx, pathUser+url.PathEscape(userID), body, &raw); err != nil {
		return nil, errors.Wrapf(err, "[Client.UpdateUserRole] failed to update role of %s", userID)
	}
	u, err := envelope.Item[User](raw, "user")
	if err != nil {
		return nil, errors.Wrap(errs.Join(errs.ErrInvalidResponse, err), "[Client.UpdateUserRole] failed to decode user")
	}
	return u, nil
}

func (c *Client) DeleteUser(ctx context.Context, userID string) error {
	return c.delete(ctx, "Client.DeleteUser", pathUser, userID)
}

func (c *Client) Vocabularies(ctx context.Context, filter VocabularyFilter) ([]Vocabulary, error) {
	q := url.Values{}
	setFilter(q, "search", filter.Search)
	setFilter(q, "category", filter.Category)
	return list[Vocabulary](ctx, c.http, "Client.Vocabularies", PathVocabularies, "vocabularies", q)
}

func (c *Client) DeleteVocabulary(ctx context.Context, id string) error {
	return c.delete(ctx, "Client.DeleteVocabulary", vocabulary.PathVocabularies+"/", id)
}

func (c *Client) Categories(ctx context.Context) ([]Category, error) {
	return list[Category](ctx, c.http, "Client.Categories", PathCategories, "categories", nil)
}

func (c *Client) DeleteCategory(ctx context.Context, id string) error {
	return c.delete(ctx, "Client.DeleteCategory", category.PathCategories+"/", id)
}

// DashboardStats reads /admin/stats. When that endpoint fails the totals are
// counted from the three list endpoints instead, fetched concurrently.
func (c *Client) DashboardStats(ctx context.Context) (*DashboardStats, error) {
	var raw json.RawMessage
	err := c.http.Get(ctx, PathStats, &raw)
	if err == nil {
		stats, decodeErr := envelope.Item[DashboardStats](raw, "stats")
		if decodeErr == nil {
			return stats, nil
		}
		err = decodeErr
	}
	if ctx.Err() != nil {
		return nil, errors.Wrap(err, "[Client.DashboardStats] failed to fetch stats")
	}
	log.Debug().Err(err).Msg("stats endpoint unavailable, counting from lists")

	stats := &DashboardStats{Computed: true}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		list, err := c.Users(gctx, UserFilter{})
		stats.TotalUsers = len(list)
		return err
	})
	g.Go(func() error {
		list, err := c.Vocabularies(gctx, VocabularyFilter{})
		stats.TotalVocabularies = len(list)
		return err
	})
	g.Go(func() error {
		list, err := c.Categories(gctx)
		stats.TotalCategories = len(list)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, errors.Wrap(err, "[Client.DashboardStats] failed to count totals")
	}
	return stats, nil
}

func (c *Client) delete(ctx context.Context, op, prefix, id string) error {
	if strings.TrimSpace(id) == "" {
		return errors.Wrapf(errs.ErrValidation, "[%s] id is required", op)
	}
	if err := c.http.Delete(ctx, prefix+url.PathEscape(id), nil); err != nil {
		return errors.Wrapf(err, "[%s] failed to delete %s", op, id)
	}
	return nil
}

func list[T any](ctx context.Context, hc *httpclient.Client, op, path, name string, q url.Values) ([]T, error) {
	var raw json.RawMessage
	if err := hc.Get(ctx, path, &raw, httpclient.WithQuery(q)); err != nil {
		return nil, errors.Wrapf(err, "[%s] failed to fetch %s", op, name)
	}
	out, err := envelope.List[T](raw, name)
	if err != nil {
		return nil, errors.Wrapf(errs.Join(errs.ErrInvalidResponse, err), "[%s] failed to decode %s", op, name)
	}
	return out, nil
}

func setFilter(q url.Values, key, value string) {
	value = strings.TrimSpace(value)
	if value == "" || strings.EqualFold(value, "all") {
		return
	}
	q.Set(key, value)
}
