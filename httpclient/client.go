// Package httpclient talks JSON to the vocabulary API. It attaches the stored access
// token to every request and, when the API answers 401, refreshes the token once and
// replays the request.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	errs "github.com/jrsteele09/go-vocab-client/internal/errors"
	"github.com/jrsteele09/go-vocab-client/tokenstore"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/publicsuffix"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"
)

const (
	defaultTimeout        = 10 * time.Second
	defaultRefreshTimeout = 10 * time.Second
	maxResponseBytes      = 4 << 20

	RequestIDHeader = "X-Request-ID"
)

// Navigator is where the client sends the user when the session cannot be refreshed.
type Navigator interface {
	CurrentPath() string
	Navigate(path string)
}

// Refresher exchanges the refresh cookie for a new access token. Implementations
// must use DoRaw so the refresh request is never itself refreshed.
type Refresher interface {
	RefreshToken(ctx context.Context) (string, error)
}

// RefresherFunc adapts a function to Refresher.
type RefresherFunc func(ctx context.Context) (string, error)

func (f RefresherFunc) RefreshToken(ctx context.Context) (string, error) { return f(ctx) }

type Client struct {
	baseURL        string
	store          *tokenstore.Store
	httpClient     *http.Client
	rawClient      *http.Client
	navigator      Navigator
	loginPath      string
	refreshTimeout time.Duration
	timeout        time.Duration

	mu        sync.RWMutex
	refresher Refresher
	sf        singleflight.Group
}

type Option func(*Client)

// WithHTTPClient uses a copy of hc as the underlying client. A nil Jar is given the
// shared cookie jar; hc itself is left untouched.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			clone := *hc
			c.httpClient = &clone
		}
	}
}

func WithNavigator(n Navigator) Option {
	return func(c *Client) { c.navigator = n }
}

func WithLoginPath(path string) Option {
	return func(c *Client) {
		if path != "" {
			c.loginPath = path
		}
	}
}

// WithTimeout bounds each request, whatever client WithHTTPClient supplies.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithRefreshTimeout bounds a refresh, which runs detached from the caller's context.
func WithRefreshTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.refreshTimeout = d
		}
	}
}

func WithRefresher(r Refresher) Option {
	return func(c *Client) { c.refresher = r }
}

func New(baseURL string, store *tokenstore.Store, opts ...Option) (*Client, error) {
	parsed, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("[httpclient.New] invalid base url %q", baseURL)
	}
	if store == nil {
		return nil, errors.New("[httpclient.New] token store is required")
	}

	c := &Client{
		baseURL:        strings.TrimRight(parsed.String(), "/"),
		store:          store,
		httpClient:     &http.Client{Timeout: defaultTimeout},
		loginPath:      "/login",
		refreshTimeout: defaultRefreshTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.timeout > 0 {
		c.httpClient.Timeout = c.timeout
	}

	if c.httpClient.Jar == nil {
		jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
		if err != nil {
			return nil, fmt.Errorf("[httpclient.New] cookie jar: %w", err)
		}
		c.httpClient.Jar = jar
	}
	// The refresh path shares transport and cookies but has no retry logic of its own.
	c.rawClient = &http.Client{
		Transport: c.httpClient.Transport,
		Jar:       c.httpClient.Jar,
		Timeout:   c.httpClient.Timeout,
	}
	return c, nil
}

// SetRefresher installs the refresher after construction; the auth service and the
// client depend on each other.
func (c *Client) SetRefresher(r Refresher) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.refresher = r
}

func (c *Client) BaseURL() string { return c.baseURL }

func (c *Client) Store() *tokenstore.Store { return c.store }

// Jar exposes the cookie jar shared by both request paths.
func (c *Client) Jar() http.CookieJar { return c.httpClient.Jar }

func (c *Client) Get(ctx context.Context, path string, out any, opts ...RequestOption) error {
	return c.Do(ctx, http.MethodGet, path, nil, out, opts...)
}

func (c *Client) Post(ctx context.Context, path string, body, out any, opts ...RequestOption) error {
	return c.Do(ctx, http.MethodPost, path, body, out, opts...)
}

func (c *Client) Put(ctx context.Context, path string, body, out any, opts ...RequestOption) error {
	return c.Do(ctx, http.MethodPut, path, body, out, opts...)
}

func (c *Client) Patch(ctx context.Context, path string, body, out any, opts ...RequestOption) error {
	return c.Do(ctx, http.MethodPatch, path, body, out, opts...)
}

func (c *Client) Delete(ctx context.Context, path string, out any, opts ...RequestOption) error {
	return c.Do(ctx, http.MethodDelete, path, nil, out, opts...)
}

// Do sends one API request and decodes a 2xx JSON body into out (nil discards it).
// A 401 triggers at most one refresh and one replay for this call.
func (c *Client) Do(ctx context.Context, method, path string, body, out any, opts ...RequestOption) error {
	ro := newRequestOptions(opts)
	payload, err := encodeBody(body)
	if err != nil {
		return fmt.Errorf("%s %s: encode body: %w", method, path, err)
	}

	refreshed := false
	token, _ := c.store.AccessToken()

	if token != "" && !ro.skipRefresh && c.expired(token) {
		refreshed = true
		log.Debug().Str("method", method).Str("path", path).Msg("access token expired, refreshing before request")
		if token, err = c.refresh(ctx); err != nil {
			return c.refreshError(method, path, err)
		}
	}

	resp, err := c.send(ctx, c.httpClient, method, path, payload, token, ro)
	if err != nil {
		return err
	}

	if resp.status == http.StatusUnauthorized && !ro.skipRefresh && !refreshed {
		refreshed = true
		if current, ok := c.store.AccessToken(); ok && current != token {
			// Another request already refreshed while this one was in flight.
			token = current
		} else if token, err = c.refresh(ctx); err != nil {
			return c.refreshError(method, path, err)
		}

		if resp, err = c.send(ctx, c.httpClient, method, path, payload, token, ro); err != nil {
			return err
		}
	}

	if resp.status < 200 || resp.status >= 300 {
		apiErr := newAPIError(method, path, resp.status, resp.body)
		// A 401 after this request's one refresh means the new token was refused too.
		apiErr.sessionExpired = refreshed && resp.status == http.StatusUnauthorized
		return apiErr
	}
	return decode(method, path, resp.body, out)
}

// DoRaw sends a request without credentials other than cookies and never refreshes.
// It returns the raw 2xx body.
func (c *Client) DoRaw(ctx context.Context, method, path string, body any, opts ...RequestOption) ([]byte, error) {
	payload, err := encodeBody(body)
	if err != nil {
		return nil, fmt.Errorf("%s %s: encode body: %w", method, path, err)
	}
	resp, err := c.send(ctx, c.rawClient, method, path, payload, "", newRequestOptions(opts))
	if err != nil {
		return nil, err
	}
	if resp.status < 200 || resp.status >= 300 {
		return nil, newAPIError(method, path, resp.status, resp.body)
	}
	return resp.body, nil
}

func (c *Client) getRefresher() Refresher {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.refresher
}

// refresh shares one refresh between every caller that needs it at the same time.
// The refresh itself is detached from the first caller's cancellation.
func (c *Client) refresh(ctx context.Context) (string, error) {
	refresher := c.getRefresher()
	if refresher == nil {
		return "", errors.New("no refresher configured")
	}

	ch := c.sf.DoChan("refresh", func() (any, error) {
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.refreshTimeout)
		defer cancel()

		token, err := refresher.RefreshToken(rctx)
		if err == nil && token == "" {
			err = errs.ErrInvalidResponse
		}
		if err != nil {
			if !IsTransient(err) {
				log.Info().Err(err).Msg("session refresh rejected, signing out")
				c.store.Clear()
				c.redirectToLogin()
			}
			return "", err
		}
		if current, _ := c.store.AccessToken(); current != token {
			c.store.SetAccessToken(token)
		}
		return token, nil
	})

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

func (c *Client) refreshError(method, path string, err error) error {
	if IsTransient(err) {
		return fmt.Errorf("%s %s: refresh: %w", method, path, err)
	}
	return fmt.Errorf("%s %s: %w: %w", method, path, errs.ErrSessionExpired, err)
}

func (c *Client) redirectToLogin() {
	if c.navigator == nil {
		return
	}
	if c.navigator.CurrentPath() != c.loginPath {
		c.navigator.Navigate(c.loginPath)
	}
}

// expired reports a JWT whose exp is already past. Opaque tokens never expire here.
func (c *Client) expired(token string) bool {
	exp, ok := TokenExpiry(token)
	return ok && !exp.After(time.Now())
}

// TokenExpiry reads exp from a JWT without verifying it. Opaque tokens report false.
func TokenExpiry(token string) (time.Time, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

type response struct {
	status int
	body   []byte
}

func (c *Client) send(ctx context.Context, hc *http.Client, method, path string, payload []byte, token string, ro requestOptions) (*response, error) {
	target := c.baseURL + ensureLeadingSlash(path)
	if len(ro.query) > 0 {
		target += "?" + ro.query.Encode()
	}

	var bodyReader io.Reader
	if payload != nil {
		bodyReader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("%s %s: create request: %w", method, path, err)
	}

	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set(RequestIDHeader, requestID)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range ro.headers {
		req.Header.Set(k, v)
	}
	if token != "" {
		(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}).SetAuthHeader(req)
	}

	start := time.Now()
	resp, err := hc.Do(req)
	if err != nil {
		log.Debug().Err(err).Str("method", method).Str("path", path).Str("request_id", requestID).Msg("request failed")
		return nil, networkError(method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, networkError(method, path, err)
	}

	log.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Str("request_id", requestID).
		Dur("elapsed", time.Since(start)).
		Msg("api request")

	return &response{status: resp.StatusCode, body: data}, nil
}

func encodeBody(body any) ([]byte, error) {
	switch b := body.(type) {
	case nil:
		return nil, nil
	case []byte:
		return b, nil
	case json.RawMessage:
		return b, nil
	default:
		return json.Marshal(body)
	}
}

func decode(method, path string, body []byte, out any) error {
	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%s %s: %w: %w", method, path, errs.ErrInvalidResponse, err)
	}
	return nil
}

func ensureLeadingSlash(path string) string {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "/"
	}
	if strings.HasPrefix(trimmed, "/") {
		return trimmed
	}
	return "/" + trimmed
}
