package auth_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/go-vocab-client/auth"
	"github.com/jrsteele09/go-vocab-client/httpclient"
	errs "github.com/jrsteele09/go-vocab-client/internal/errors"
	"github.com/jrsteele09/go-vocab-client/navigation"
	"github.com/jrsteele09/go-vocab-client/tokenstore"
	"github.com/jrsteele09/go-vocab-client/users"
	"github.com/stretchr/testify/require"
)

const (
	testEmail    = "a@b.com"
	testPassword = "Password123"
)

// testFixture holds all test dependencies
type testFixture struct {
	server   *httptest.Server
	mux      *http.ServeMux
	store    *tokenstore.Store
	location *navigation.Location
	client   *httpclient.Client
	service  *auth.Service
}

func setupTestFixture(t *testing.T, opts ...auth.ServiceOption) *testFixture {
	t.Helper()

	f := &testFixture{
		mux:      http.NewServeMux(),
		store:    tokenstore.New(nil),
		location: navigation.New("/"),
	}
	f.server = httptest.NewServer(f.mux)
	t.Cleanup(f.server.Close)
	t.Cleanup(f.store.Close)

	client, err := httpclient.New(f.server.URL, f.store, httpclient.WithNavigator(f.location))
	require.NoError(t, err)
	f.client = client

	service, err := auth.NewService(client, opts...)
	require.NoError(t, err)
	f.service = service
	return f
}

func (f *testFixture) handle(pattern string, status int, body string) {
	f.mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, status, body)
	})
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func TestNewService_RequiresClient(t *testing.T) {
	_, err := auth.NewService(nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "http client is required")
}

func TestLogin(t *testing.T) {
	t.Run("canonical envelope", func(t *testing.T) {
		f := setupTestFixture(t)
		f.mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			require.Equal(t, testEmail, body["email"])
			require.Equal(t, testPassword, body["password"])
			writeJSON(w, http.StatusOK, `{"message":"ok","data":{"token":{"accessToken":"tok1"},"account":{"id":"u1","email":"a@b.com","username":"a","role":"admin"}}}`)
		})

		sess, err := f.service.Login(context.Background(), testEmail, testPassword)
		require.NoError(t, err)
		require.Equal(t, "tok1", sess.AccessToken)
		require.Equal(t, "u1", sess.User.ID)
		require.True(t, sess.User.IsAdmin())

		token, _ := f.store.AccessToken()
		require.Equal(t, "tok1", token)
		cached, ok := f.store.User()
		require.True(t, ok)
		require.Equal(t, "a@b.com", cached.Email)
	})

	shapes := []struct {
		name string
		body string
		user bool
	}{
		{name: "token at top level", body: `{"token":{"accessToken":"tok1"},"user":{"_id":"u1","email":"a@b.com"}}`, user: true},
		{name: "access token under data", body: `{"data":{"accessToken":"tok1","user":{"userId":"u1","email":"a@b.com"}}}`, user: true},
		{name: "flat without user", body: `{"accessToken":"tok1"}`, user: false},
	}
	for _, tt := range shapes {
		t.Run(tt.name, func(t *testing.T) {
			f := setupTestFixture(t)
			f.store.Set(tokenstore.KeyUser, `{"email":"stale@b.com"}`)
			f.handle("POST /auth/login", http.StatusOK, tt.body)

			sess, err := f.service.Login(context.Background(), testEmail, testPassword)
			require.NoError(t, err)
			require.Equal(t, "tok1", sess.AccessToken)

			cached, ok := f.store.User()
			require.Equal(t, tt.user, ok)
			if tt.user {
				require.Equal(t, "u1", sess.User.ID)
				require.Equal(t, "a@b.com", cached.Email)
			}
		})
	}

	t.Run("rejected credentials", func(t *testing.T) {
		f := setupTestFixture(t)
		f.handle("POST /auth/login", http.StatusUnauthorized, `{"message":"Invalid email or password"}`)

		_, err := f.service.Login(context.Background(), testEmail, "wrong")
		require.ErrorIs(t, err, errs.ErrInvalidCredentials)
		require.Equal(t, "Invalid email or password", auth.UserMessage(err))

		var authErr *auth.Error
		require.ErrorAs(t, err, &authErr)
		require.Equal(t, auth.KindInvalidCredentials, authErr.Kind)
		_, ok := f.store.AccessToken()
		require.False(t, ok)
	})

	t.Run("server error is not invalid credentials", func(t *testing.T) {
		f := setupTestFixture(t)
		f.handle("POST /auth/login", http.StatusInternalServerError, `{}`)

		_, err := f.service.Login(context.Background(), testEmail, testPassword)
		require.NotErrorIs(t, err, errs.ErrInvalidCredentials)
		require.ErrorIs(t, err, errs.ErrHTTP)
	})

	t.Run("no token in response", func(t *testing.T) {
		f := setupTestFixture(t)
		f.handle("POST /auth/login", http.StatusOK, `{"data":{}}`)

		_, err := f.service.Login(context.Background(), testEmail, testPassword)
		require.ErrorIs(t, err, errs.ErrInvalidResponse)
	})

	t.Run("network failure", func(t *testing.T) {
		f := setupTestFixture(t)
		f.server.Close()

		_, err := f.service.Login(context.Background(), testEmail, testPassword)
		require.ErrorIs(t, err, errs.ErrNetwork)
		require.Contains(t, auth.UserMessage(err), "Network error")
	})
}

func TestRegister(t *testing.T) {
	req := auth.RegisterRequest{Email: testEmail, Password: testPassword, ConfirmPassword: testPassword, Username: "a"}

	t.Run("success leaves the session alone", func(t *testing.T) {
		f := setupTestFixture(t)
		f.mux.HandleFunc("POST /auth/register", func(w http.ResponseWriter, r *http.Request) {
			var body auth.RegisterRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			require.Equal(t, req, body)
			writeJSON(w, http.StatusCreated, `{"message":"Check your email","data":{"token":{"accessToken":"ignored"}}}`)
		})

		require.NoError(t, f.service.Register(context.Background(), req))
		_, ok := f.store.AccessToken()
		require.False(t, ok)
	})

	t.Run("first field error from array", func(t *testing.T) {
		f := setupTestFixture(t)
		f.handle("POST /auth/register", http.StatusBadRequest,
			`{"message":"Validation failed","errors":[{"field":"email","message":"Email already exists"},{"field":"username","message":"Too short"}]}`)

		err := f.service.Register(context.Background(), req)
		require.ErrorIs(t, err, errs.ErrValidation)

		var authErr *auth.Error
		require.ErrorAs(t, err, &authErr)
		require.Equal(t, "email", authErr.Field)
		require.Equal(t, "Email already exists", authErr.Message)
	})

	t.Run("first field error from object", func(t *testing.T) {
		f := setupTestFixture(t)
		f.handle("POST /auth/register", http.StatusUnprocessableEntity,
			`{"errors":{"username":{"message":"Username taken"},"email":"Invalid email"}}`)

		err := f.service.Register(context.Background(), req)
		var authErr *auth.Error
		require.ErrorAs(t, err, &authErr)
		require.Equal(t, "email", authErr.Field)
		require.Equal(t, "Invalid email", authErr.Message)
	})

	t.Run("message only", func(t *testing.T) {
		f := setupTestFixture(t)
		f.handle("POST /auth/register", http.StatusConflict, `{"message":"User already exists"}`)

		err := f.service.Register(context.Background(), req)
		require.ErrorIs(t, err, errs.ErrValidation)
		require.Equal(t, "User already exists", auth.UserMessage(err))
	})
}

func TestLogout_AlwaysClears(t *testing.T) {
	seed := func(f *testFixture) {
		f.store.SetAccessToken("tok1")
		f.store.SetUser(&users.Profile{Email: testEmail})
	}
	assertCleared := func(t *testing.T, f *testFixture) {
		t.Helper()
		_, ok := f.store.AccessToken()
		require.False(t, ok)
		_, ok = f.store.User()
		require.False(t, ok)
	}

	t.Run("server accepts", func(t *testing.T) {
		f := setupTestFixture(t)
		seed(f)
		var header atomic.Value
		f.mux.HandleFunc("POST /auth/logout", func(w http.ResponseWriter, r *http.Request) {
			header.Store(r.Header.Get("Authorization"))
			writeJSON(w, http.StatusOK, `{}`)
		})

		require.NoError(t, f.service.Logout(context.Background()))
		require.Equal(t, "Bearer tok1", header.Load())
		assertCleared(t, f)
	})

	t.Run("server fails", func(t *testing.T) {
		f := setupTestFixture(t)
		seed(f)
		f.handle("POST /auth/logout", http.StatusInternalServerError, `{}`)

		require.NoError(t, f.service.Logout(context.Background()))
		assertCleared(t, f)
	})

	t.Run("server times out", func(t *testing.T) {
		f := setupTestFixture(t, auth.WithLogoutTimeout(50*time.Millisecond))
		seed(f)
		release := make(chan struct{})
		t.Cleanup(func() { close(release) })
		f.mux.HandleFunc("POST /auth/logout", func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-release:
			case <-r.Context().Done():
			}
		})

		start := time.Now()
		require.NoError(t, f.service.Logout(context.Background()))
		require.Less(t, time.Since(start), 2*time.Second)
		assertCleared(t, f)
	})

	t.Run("caller context already cancelled", func(t *testing.T) {
		f := setupTestFixture(t)
		seed(f)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		require.NoError(t, f.service.Logout(ctx))
		assertCleared(t, f)
	})
}

func TestRefreshToken(t *testing.T) {
	shapes := map[string]string{
		"data.token": `{"data":{"token":{"accessToken":"tok2"}}}`,
		"token":      `{"token":{"accessToken":"tok2"}}`,
		"data":       `{"data":{"accessToken":"tok2"}}`,
		"top level":  `{"accessToken":"tok2"}`,
	}
	for name, body := range shapes {
		t.Run(name, func(t *testing.T) {
			f := setupTestFixture(t)
			f.store.SetAccessToken("tok1")
			f.handle("POST /auth/refresh-token", http.StatusOK, body)

			token, err := f.service.RefreshToken(context.Background())
			require.NoError(t, err)
			require.Equal(t, "tok2", token)
			stored, _ := f.store.AccessToken()
			require.Equal(t, "tok2", stored)
		})
	}

	t.Run("rejection clears the store", func(t *testing.T) {
		f := setupTestFixture(t)
		f.store.SetAccessToken("tok1")
		f.handle("POST /auth/refresh-token", http.StatusUnauthorized, `{"message":"Invalid refresh token"}`)

		_, err := f.service.RefreshToken(context.Background())
		require.ErrorIs(t, err, errs.ErrUnauthorized)
		_, ok := f.store.AccessToken()
		require.False(t, ok)
	})

	t.Run("unusable body clears the store", func(t *testing.T) {
		f := setupTestFixture(t)
		f.store.SetAccessToken("tok1")
		f.handle("POST /auth/refresh-token", http.StatusOK, `{"data":{}}`)

		_, err := f.service.RefreshToken(context.Background())
		require.ErrorIs(t, err, errs.ErrInvalidResponse)
		_, ok := f.store.AccessToken()
		require.False(t, ok)
	})

	t.Run("network failure keeps the store", func(t *testing.T) {
		f := setupTestFixture(t)
		f.store.SetAccessToken("tok1")
		f.server.Close()

		_, err := f.service.RefreshToken(context.Background())
		require.ErrorIs(t, err, errs.ErrNetwork)
		token, _ := f.store.AccessToken()
		require.Equal(t, "tok1", token)
	})
}

func TestService_IsTheClientRefresher(t *testing.T) {
	f := setupTestFixture(t)
	f.location.Navigate("/vocabularies")
	f.store.SetAccessToken("tok1")
	f.handle("POST /auth/refresh-token", http.StatusOK, `{"data":{"token":{"accessToken":"tok2"}}}`)

	var mu sync.Mutex
	var authHeaders []string
	f.mux.HandleFunc("GET /vocabularies", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		authHeaders = append(authHeaders, r.Header.Get("Authorization"))
		mu.Unlock()
		if r.Header.Get("Authorization") != "Bearer tok2" {
			writeJSON(w, http.StatusUnauthorized, `{}`)
			return
		}
		writeJSON(w, http.StatusOK, `{"data":[]}`)
	})

	require.NoError(t, f.client.Get(context.Background(), "/vocabularies", nil))
	mu.Lock()
	require.Equal(t, []string{"Bearer tok1", "Bearer tok2"}, authHeaders)
	mu.Unlock()

	t.Run("refresh rejection sends the user to login", func(t *testing.T) {
		g := setupTestFixture(t)
		g.location.Navigate("/vocabularies")
		g.store.SetAccessToken("tok1")
		g.handle("POST /auth/refresh-token", http.StatusUnauthorized, `{}`)
		g.handle("GET /vocabularies", http.StatusUnauthorized, `{}`)

		err := g.client.Get(context.Background(), "/vocabularies", nil)
		require.ErrorIs(t, err, errs.ErrSessionExpired)
		require.Equal(t, "/login", g.location.CurrentPath())
		_, ok := g.store.AccessToken()
		require.False(t, ok)
	})
}

func TestVerifyEmail(t *testing.T) {
	f := setupTestFixture(t)
	f.mux.HandleFunc("GET /auth/verify-email", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("token") != "good" {
			writeJSON(w, http.StatusBadRequest, `{"message":"Invalid or expired verification token"}`)
			return
		}
		writeJSON(w, http.StatusOK, `{"message":"Email verified"}`)
	})

	require.NoError(t, f.service.VerifyEmail(context.Background(), "good"))

	err := f.service.VerifyEmail(context.Background(), "bad")
	require.ErrorIs(t, err, errs.ErrValidation)
	require.Equal(t, "Invalid or expired verification token", auth.UserMessage(err))

	require.ErrorIs(t, f.service.VerifyEmail(context.Background(), ""), errs.ErrValidation)
}

func TestInitiateGoogleAuth(t *testing.T) {
	for name, body := range map[string]string{
		"url":      `{"url":"https://accounts.google.com/o/oauth2/auth?x=1"}`,
		"data.url": `{"data":{"url":"https://accounts.google.com/o/oauth2/auth?x=1"}}`,
	} {
		t.Run(name, func(t *testing.T) {
			f := setupTestFixture(t)
			f.handle("GET /auth/google", http.StatusOK, body)

			u, err := f.service.InitiateGoogleAuth(context.Background())
			require.NoError(t, err)
			require.Equal(t, "https://accounts.google.com/o/oauth2/auth?x=1", u)
		})
	}

	f := setupTestFixture(t)
	f.handle("GET /auth/google", http.StatusOK, `{}`)
	_, err := f.service.InitiateGoogleAuth(context.Background())
	require.ErrorIs(t, err, errs.ErrInvalidResponse)
}

func TestFetchProfile(t *testing.T) {
	t.Run("caches the profile", func(t *testing.T) {
		f := setupTestFixture(t)
		f.store.SetAccessToken("tok1")
		f.mux.HandleFunc("GET /users/me", func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "Bearer tok1", r.Header.Get("Authorization"))
			writeJSON(w, http.StatusOK, `{"data":{"email":"a@b.com","username":"a","createdAt":"2024-05-01T10:00:00.000Z"}}`)
		})

		p, err := f.service.FetchProfile(context.Background())
		require.NoError(t, err)
		require.Equal(t, "a@b.com", p.Email)
		require.Equal(t, "a", p.Username)
		require.Equal(t, 2024, p.CreatedAt.Year())

		cached, ok := f.store.User()
		require.True(t, ok)
		require.Equal(t, "a", cached.Username)
	})

	t.Run("nested user", func(t *testing.T) {
		f := setupTestFixture(t)
		f.store.SetAccessToken("tok1")
		f.handle("GET /users/me", http.StatusOK, `{"data":{"data":{"user":{"id":"u1","email":"a@b.com"}}}}`)

		p, err := f.service.FetchProfile(context.Background())
		require.NoError(t, err)
		require.Equal(t, "u1", p.ID)
	})

	t.Run("rejection clears the store", func(t *testing.T) {
		f := setupTestFixture(t)
		f.store.SetAccessToken("tok1")
		f.handle("GET /users/me", http.StatusNotFound, `{"message":"User not found"}`)

		_, err := f.service.FetchProfile(context.Background())
		require.ErrorIs(t, err, errs.ErrNotFound)
		_, ok := f.store.AccessToken()
		require.False(t, ok)
	})

	t.Run("network failure keeps the store", func(t *testing.T) {
		f := setupTestFixture(t)
		f.store.SetAccessToken("tok1")
		f.server.Close()

		_, err := f.service.FetchProfile(context.Background())
		require.ErrorIs(t, err, errs.ErrNetwork)
		_, ok := f.store.AccessToken()
		require.True(t, ok)
	})
}

func TestCompleteOAuth(t *testing.T) {
	f := setupTestFixture(t)
	f.store.Set(tokenstore.KeyUser, `{"email":"previous@b.com"}`)
	f.mux.HandleFunc("GET /users/me", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer oauth-token", r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, `{"data":{"user":{"id":"g1","email":"g@b.com","username":"g"}}}`)
	})

	sess, err := f.service.CompleteOAuth(context.Background(), "oauth-token")
	require.NoError(t, err)
	require.Equal(t, "oauth-token", sess.AccessToken)
	require.Equal(t, "g@b.com", sess.User.Email)

	current, ok := f.service.Current()
	require.True(t, ok)
	require.Equal(t, "g1", current.User.ID)

	_, err = f.service.CompleteOAuth(context.Background(), "")
	require.True(t, errors.Is(err, errs.ErrValidation))
}

func TestTokenSource(t *testing.T) {
	f := setupTestFixture(t)

	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": exp.Unix(),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	t.Run("stored jwt carries its expiry", func(t *testing.T) {
		f.store.SetAccessToken(token)
		defer f.store.Clear()

		tok, err := f.service.TokenSource(context.Background()).Token()
		require.NoError(t, err)
		require.Equal(t, token, tok.AccessToken)
		require.True(t, exp.Equal(tok.Expiry))
	})

	t.Run("refreshes when the store is empty", func(t *testing.T) {
		f.handle("POST /auth/refresh-token", http.StatusOK, `{"accessToken":"tok2"}`)

		tok, err := f.service.TokenSource(context.Background()).Token()
		require.NoError(t, err)
		require.Equal(t, "tok2", tok.AccessToken)
		require.Equal(t, "Bearer", tok.TokenType)
	})
}
