// Package vocabulary wraps the /vocabularies endpoints.
package vocabulary

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/jrsteele09/go-vocab-client/category"
	"github.com/jrsteele09/go-vocab-client/httpclient"
	"github.com/jrsteele09/go-vocab-client/internal/envelope"
	errs "github.com/jrsteele09/go-vocab-client/internal/errors"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const (
	PathVocabularies = "/vocabularies"
	PathSearch       = PathVocabularies + "/search"
)

var objectID = regexp.MustCompile(`^[0-9a-fA-F]{24}$`)

// CategoryLister resolves category ids to names.
type CategoryLister interface {
	List(ctx context.Context) ([]category.Category, error)
}

type Client struct {
	http       *httpclient.Client
	categories CategoryLister
}

// New returns a client. With a nil lister category ids are returned as-is.
func New(c *httpclient.Client, categories CategoryLister) *Client {
	return &Client{http: c, categories: categories}
}

func (c *Client) List(ctx context.Context) ([]Vocabulary, error) {
	return c.list(ctx, "Client.List", PathVocabularies, nil)
}

func (c *Client) Get(ctx context.Context, id string) (*Vocabulary, error) {
	if strings.TrimSpace(id) == "" {
		return nil, errors.Wrap(errs.ErrValidation, "[Client.Get] vocabulary id is required")
	}
	return c.item(ctx, "Client.Get", http.MethodGet, itemPath(id), nil)
}

func (c *Client) Create(ctx context.Context, req CreateRequest) (*Vocabulary, error) {
	if err := req.Validate(); err != nil {
		return nil, errors.Wrap(err, "[Client.Create] invalid vocabulary")
	}
	return c.item(ctx, "Client.Create", http.MethodPost, PathVocabularies, req)
}

func (c *Client) Update(ctx context.Context, id string, req UpdateRequest) (*Vocabulary, error) {
	if strings.TrimSpace(id) == "" {
		return nil, errors.Wrap(errs.ErrValidation, "[Client.Update] vocabulary id is required")
	}
	if err := req.Validate(); err != nil {
		return nil, errors.Wrap(err, "[Client.Update] invalid vocabulary")
	}
	return c.item(ctx, "Client.Update", http.MethodPatch, itemPath(id), req)
}

func (c *Client) Delete(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return errors.Wrap(errs.ErrValidation, "[Client.Delete] vocabulary id is required")
	}
	if err := c.http.Delete(ctx, itemPath(id), nil); err != nil {
		return errors.Wrapf(err, "[Client.Delete] failed to delete vocabulary %s", id)
	}
	return nil
}

// ByCategory lists the vocabularies filed under one category. The API embeds the
// category objects here, so no id lookup is needed.
func (c *Client) ByCategory(ctx context.Context, categoryID string) ([]Vocabulary, error) {
	if strings.TrimSpace(categoryID) == "" {
		return nil, errors.Wrap(errs.ErrValidation, "[Client.ByCategory] category id is required")
	}
	path := category.PathCategories + "/" + url.PathEscape(categoryID) + PathVocabularies

	var raw json.RawMessage
	if err := c.http.Get(ctx, path, &raw); err != nil {
		return nil, errors.Wrap(err, "[Client.ByCategory] failed to fetch vocabularies")
	}
	items, ok := envelope.Lookup(raw, "data", "vocabularies")
	if !ok || !envelope.IsArray(items) {
		log.Warn().Str("category", categoryID).Msg("unexpected by-category response, no vocabularies found")
		return []Vocabulary{}, nil
	}
	var out []Vocabulary
	if err := json.Unmarshal(items, &out); err != nil {
		return nil, errors.Wrap(errs.Join(errs.ErrInvalidResponse, err), "[Client.ByCategory] failed to decode vocabularies")
	}
	if out == nil {
		out = []Vocabulary{}
	}
	return out, nil
}

// Search matches saved words.
func (c *Client) Search(ctx context.Context, word string) ([]Vocabulary, error) {
	word = strings.TrimSpace(word)
	if word == "" {
		return nil, errors.Wrap(errs.ErrValidation, "[Client.Search] search word is required")
	}
	return c.list(ctx, "Client.Search", PathSearch, url.Values{"word": {word}})
}

func (c *Client) list(ctx context.Context, op, path string, query url.Values) ([]Vocabulary, error) {
	var opts []httpclient.RequestOption
	if query != nil {
		opts = append(opts, httpclient.WithQuery(query))
	}
	var raw json.RawMessage
	if err := c.http.Get(ctx, path, &raw, opts...); err != nil {
		return nil, errors.Wrapf(err, "[%s] failed to fetch vocabularies", op)
	}
	out, err := envelope.List[Vocabulary](raw, "vocabularies")
	if err != nil {
		return nil, errors.Wrapf(errs.Join(errs.ErrInvalidResponse, err), "[%s] failed to decode vocabularies", op)
	}
	c.resolveCategories(ctx, out)
	return out, nil
}

func (c *Client) item(ctx context.Context, op, method, path string, body any) (*Vocabulary, error) {
	var raw json.RawMessage
	if err := c.http.Do(ctx, method, path, body, &raw); err != nil {
		return nil, errors.Wrapf(err, "[%s] vocabulary request failed", op)
	}
	out, err := envelope.Item[Vocabulary](raw, "vocabulary")
	if err != nil {
		return nil, errors.Wrapf(errs.Join(errs.ErrInvalidResponse, err), "[%s] failed to decode vocabulary", op)
	}
	resolved := []Vocabulary{*out}
	c.resolveCategories(ctx, resolved)
	return &resolved[0], nil
}

// resolveCategories swaps object ids for category names in place. Unknown ids and
// anything that is not an object id are left alone, as is everything when the
// category list cannot be fetched.
func (c *Client) resolveCategories(ctx context.Context, vocabs []Vocabulary) {
	if c.categories == nil || !hasObjectIDs(vocabs) {
		return
	}
	cats, err := c.categories.List(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("failed to map category ids to names")
		return
	}
	names := make(map[string]string, len(cats))
	for _, cat := range cats {
		names[cat.ID] = cat.Name
	}
	for i := range vocabs {
		for j, ref := range vocabs[i].Categories {
			if name, ok := names[ref]; ok && objectID.MatchString(ref) && name != "" {
				vocabs[i].Categories[j] = name
			}
		}
	}
}

func hasObjectIDs(vocabs []Vocabulary) bool {
	for _, v := range vocabs {
		for _, ref := range v.Categories {
			if objectID.MatchString(ref) {
				return true
			}
		}
	}
	return false
}

func itemPath(id string) string {
	return PathVocabularies + "/" + url.PathEscape(id)
}
