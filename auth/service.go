// Package auth performs the session-changing calls against the API (login, register,
// logout, refresh) and keeps the token store in step with their results.
package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"github.com/jrsteele09/go-vocab-client/httpclient"
	errs "github.com/jrsteele09/go-vocab-client/internal/errors"
	"github.com/jrsteele09/go-vocab-client/tokenstore"
	"github.com/jrsteele09/go-vocab-client/users"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// API endpoints used by the service.
const (
	PathLogin       = "/auth/login"
	PathRegister    = "/auth/register"
	PathLogout      = "/auth/logout"
	PathRefresh     = "/auth/refresh-token"
	PathVerifyEmail = "/auth/verify-email"
	PathGoogle      = "/auth/google"
	PathMe          = "/users/me"

	defaultLogoutTimeout = 3 * time.Second
)

// Session is the client-side record of who is signed in.
type Session struct {
	AccessToken string
	User        *users.Profile // nil until the profile has been fetched
}

// RegisterRequest is the payload for a new account.
type RegisterRequest struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
	Username        string `json:"username"`
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Service is safe for concurrent use.
type Service struct {
	client        *httpclient.Client
	store         *tokenstore.Store
	logoutTimeout time.Duration
}

// ServiceOption modifies a Service.
type ServiceOption func(*Service)

// WithLogoutTimeout bounds the best-effort logout request.
func WithLogoutTimeout(d time.Duration) ServiceOption {
	return func(s *Service) {
		if d > 0 {
			s.logoutTimeout = d
		}
	}
}

// NewService builds the service and registers it as the client's refresher.
func NewService(client *httpclient.Client, options ...ServiceOption) (*Service, error) {
	if client == nil {
		return nil, errors.New("[NewService] http client is required")
	}

	s := &Service{
		client:        client,
		store:         client.Store(),
		logoutTimeout: defaultLogoutTimeout,
	}
	for _, opt := range options {
		opt(s)
	}

	client.SetRefresher(s)
	return s, nil
}

func (s *Service) Store() *tokenstore.Store { return s.store }

// Current returns what the store holds right now.
func (s *Service) Current() (*Session, bool) {
	token, ok := s.store.AccessToken()
	if !ok {
		return nil, false
	}
	user, _ := s.store.User()
	return &Session{AccessToken: token, User: user}, true
}

// Login posts the credentials and persists the returned token and user.
func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	var raw json.RawMessage
	err := s.client.Post(ctx, PathLogin, credentials{Email: email, Password: password}, &raw, httpclient.SkipRefresh())
	if err != nil {
		return nil, classify("Service.Login", err, KindInvalidCredentials, "Login failed. Please check your credentials.")
	}

	sess, ok := parseSession(raw)
	if !ok {
		return nil, &Error{Op: "Service.Login", Kind: KindInvalidResponse, Message: "Unexpected response from server."}
	}

	s.store.SetAccessToken(sess.AccessToken)
	if sess.User != nil {
		s.store.SetUser(sess.User)
	} else {
		s.store.Remove(tokenstore.KeyUser)
	}
	log.Debug().Str("user", userID(sess.User)).Msg("logged in")
	return sess, nil
}

// Register never touches the session: the account has to verify its email first.
func (s *Service) Register(ctx context.Context, req RegisterRequest) error {
	if err := s.client.Post(ctx, PathRegister, req, nil, httpclient.SkipRefresh()); err != nil {
		return classify("Service.Register", err, KindValidation, "Registration failed.")
	}
	return nil
}

// Logout tells the server, within the logout timeout, and always clears the store.
// It never fails.
func (s *Service) Logout(ctx context.Context) error {
	defer s.store.Clear()

	lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.logoutTimeout)
	defer cancel()

	if err := s.client.Post(lctx, PathLogout, nil, nil, httpclient.SkipRefresh()); err != nil {
		log.Warn().Err(err).Msg("logout request failed, clearing local session anyway")
	}
	return nil
}

// RefreshToken exchanges the refresh cookie for a new access token and stores it.
// A rejection or an unusable response clears the store; a transport failure does not.
func (s *Service) RefreshToken(ctx context.Context) (string, error) {
	raw, err := s.client.DoRaw(ctx, http.MethodPost, PathRefresh, nil)
	if err != nil {
		if !httpclient.IsTransient(err) {
			s.store.Clear()
		}
		return "", errors.Wrap(err, "[Service.RefreshToken] refresh request failed")
	}

	token, ok := parseAccessToken(raw)
	if !ok {
		s.store.Clear()
		return "", errors.Wrap(errs.ErrInvalidResponse, "[Service.RefreshToken] no access token in response")
	}

	if current, _ := s.store.AccessToken(); current != token {
		s.store.SetAccessToken(token)
	}
	return token, nil
}

// VerifyEmail confirms an address with the token from the verification email.
func (s *Service) VerifyEmail(ctx context.Context, token string) error {
	if token == "" {
		return &Error{Op: "Service.VerifyEmail", Kind: KindValidation, Field: "token", Message: "Verification token is required."}
	}
	err := s.client.Get(ctx, PathVerifyEmail, nil,
		httpclient.WithQuery(url.Values{"token": {token}}),
		httpclient.SkipRefresh(),
	)
	if err != nil {
		return classify("Service.VerifyEmail", err, KindValidation, "Email verification failed.")
	}
	return nil
}

// InitiateGoogleAuth asks the API where to send the browser for Google sign-in.
func (s *Service) InitiateGoogleAuth(ctx context.Context) (string, error) {
	var raw json.RawMessage
	if err := s.client.Get(ctx, PathGoogle, &raw, httpclient.SkipRefresh()); err != nil {
		return "", classify("Service.InitiateGoogleAuth", err, KindHTTP, "Could not start Google sign-in.")
	}
	u, ok := parseGoogleURL(raw)
	if !ok {
		return "", &Error{Op: "Service.InitiateGoogleAuth", Kind: KindInvalidResponse, Message: "No authorization URL in response."}
	}
	return u, nil
}

// CompleteOAuth adopts the token handed back by the OAuth redirect and loads the profile.
func (s *Service) CompleteOAuth(ctx context.Context, accessToken string) (*Session, error) {
	if accessToken == "" {
		return nil, &Error{Op: "Service.CompleteOAuth", Kind: KindValidation, Field: "accessToken", Message: "Missing access token."}
	}

	s.store.Remove(tokenstore.KeyUser)
	s.store.SetAccessToken(accessToken)

	user, err := s.FetchProfile(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "[Service.CompleteOAuth] failed to load profile")
	}
	return &Session{AccessToken: accessToken, User: user}, nil
}

// FetchProfile loads GET /users/me and caches it. Any failure other than a transport
// error means the token is unusable, so the store is cleared.
func (s *Service) FetchProfile(ctx context.Context) (*users.Profile, error) {
	var raw json.RawMessage
	if err := s.client.Get(ctx, PathMe, &raw); err != nil {
		authErr := classify("Service.FetchProfile", err, KindHTTP, "Could not load your profile.")
		if authErr.Kind != KindNetwork {
			s.store.Clear()
		}
		return nil, authErr
	}

	user, ok := parseProfile(raw)
	if !ok {
		s.store.Clear()
		return nil, &Error{Op: "Service.FetchProfile", Kind: KindInvalidResponse, Message: "Unexpected profile response."}
	}
	s.store.SetUser(user)
	return user, nil
}

func userID(u *users.Profile) string {
	if u == nil {
		return ""
	}
	return firstNonEmpty(u.ID, u.Email)
}
