// Package cli implements the myvocab subcommands on top of the shared session
// state. Every command declares the access it needs and is gated before it runs.
package cli

import (
	"bufio"
	"context"
	"io"
	"strings"

	"github.com/jrsteele09/go-vocab-client/admin"
	"github.com/jrsteele09/go-vocab-client/auth"
	"github.com/jrsteele09/go-vocab-client/category"
	"github.com/jrsteele09/go-vocab-client/guard"
	"github.com/jrsteele09/go-vocab-client/httpclient"
	"github.com/jrsteele09/go-vocab-client/internal/config"
	"github.com/jrsteele09/go-vocab-client/navigation"
	"github.com/jrsteele09/go-vocab-client/session"
	"github.com/jrsteele09/go-vocab-client/tokenstore"
	"github.com/jrsteele09/go-vocab-client/vocabulary"
	"github.com/pkg/errors"
)

// App wires the clients for one invocation.
type App struct {
	cfg      config.Config
	paths    guard.Paths
	store    *tokenstore.Store
	location *navigation.Location
	client   *httpclient.Client

	auth         *auth.Service
	watcher      *session.Watcher
	categories   *category.Client
	vocabularies *vocabulary.Client
	admin        *admin.Client

	in  *bufio.Reader
	out io.Writer
}

// AppOption modifies an App.
type AppOption func(*App)

// WithStore replaces the configured token store.
func WithStore(store *tokenstore.Store) AppOption {
	return func(a *App) { a.store = store }
}

// WithIO sets where prompts are read from and output is written to.
func WithIO(in io.Reader, out io.Writer) AppOption {
	return func(a *App) {
		a.in = bufio.NewReader(in)
		a.out = out
	}
}

func NewApp(cfg config.Config, options ...AppOption) (*App, error) {
	a := &App{
		cfg:      cfg,
		paths:    guard.Paths{Login: cfg.GetLoginPath(), Home: cfg.GetHomePath()},
		location: navigation.New(cfg.GetHomePath()),
		in:       bufio.NewReader(strings.NewReader("")),
		out:      io.Discard,
	}
	for _, opt := range options {
		opt(a)
	}
	if a.store == nil {
		a.store = tokenstore.Open(cfg, cfg.GetAPIBaseURL())
	}

	client, err := httpclient.New(cfg.GetAPIBaseURL(), a.store,
		httpclient.WithNavigator(a.location),
		httpclient.WithLoginPath(cfg.GetLoginPath()),
		httpclient.WithTimeout(cfg.GetRequestTimeout()),
		httpclient.WithRefreshTimeout(cfg.GetRefreshTimeout()),
	)
	if err != nil {
		return nil, errors.Wrap(err, "[NewApp] failed to create http client")
	}
	a.client = client

	if a.auth, err = auth.NewService(client, auth.WithLogoutTimeout(cfg.GetLogoutTimeout())); err != nil {
		return nil, errors.Wrap(err, "[NewApp] failed to create auth service")
	}
	a.watcher = session.NewWatcher(a.auth, a.store)
	a.categories = category.New(client)
	a.vocabularies = vocabulary.New(client, a.categories)
	a.admin = admin.New(client)
	return a, nil
}

// Close stops the watcher and releases the store.
func (a *App) Close() {
	a.watcher.Close()
	a.store.Close()
}

func (a *App) Watcher() *session.Watcher { return a.watcher }

// prompt reads one line, used for secrets that were not passed as flags.
func (a *App) prompt(ctx context.Context, label string) (string, error) {
	a.printf("%s: ", label)
	line, err := a.in.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", errors.Wrapf(err, "[App.prompt] failed to read %s", strings.ToLower(label))
	}
	if ctx.Err() != nil {
		return "", ctx.Err()
	}
	return strings.TrimRight(line, "\r\n"), nil
}
