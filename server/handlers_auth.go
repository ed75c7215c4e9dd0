package server

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/jrsteele09/go-vocab-client/auth"
	errs "github.com/jrsteele09/go-vocab-client/internal/errors"
	"github.com/rs/zerolog/log"
)

const registeredNotice = "Registration successful. Please check your email to verify your account."

// LoginFormData preserves what the user typed when the form is shown again.
type LoginFormData struct {
	Email string
}

// RegisterFormData preserves the non-secret fields and names the rejected one.
type RegisterFormData struct {
	Username string
	Email    string
	Field    string
}

// LoginPageHandler displays the login page (GET /login)
func (s *Server) LoginPageHandler() http.HandlerFunc {
	tmpl := mustParseTemplate("login.html")

	return func(w http.ResponseWriter, r *http.Request) {
		data := LoginFormData{Email: r.URL.Query().Get("email")}
		render(w, tmpl, http.StatusOK, s.page(r, "Sign in", data))
	}
}

// LoginSubmissionHandler processes the login form submission
func (s *Server) LoginSubmissionHandler() http.HandlerFunc {
	tmpl := mustParseTemplate("login.html")

	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form data", http.StatusBadRequest)
			return
		}
		email := strings.TrimSpace(r.PostForm.Get("email"))
		password := r.PostForm.Get("password")
		data := LoginFormData{Email: email}

		if email == "" || password == "" {
			pd := s.page(r, "Sign in", data)
			pd.Error = "Email and password are required."
			render(w, tmpl, http.StatusBadRequest, pd)
			return
		}

		if _, err := s.services.Watcher.Login(r.Context(), email, password); err != nil {
			log.Debug().Err(err).Str("email", email).Msg("console login failed")
			pd := s.page(r, "Sign in", data)
			pd.Error = auth.UserMessage(err)
			render(w, tmpl, statusForError(err), pd)
			return
		}
		http.Redirect(w, r, s.paths.Home, http.StatusSeeOther)
	}
}

// LogoutHandler always ends on the login page, whatever the server said.
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_ = s.services.Watcher.Logout(r.Context())
		http.Redirect(w, r, s.paths.Login, http.StatusSeeOther)
	}
}

func (s *Server) RegisterPageHandler() http.HandlerFunc {
	tmpl := mustParseTemplate("register.html")

	return func(w http.ResponseWriter, r *http.Request) {
		render(w, tmpl, http.StatusOK, s.page(r, "Register", RegisterFormData{}))
	}
}

func (s *Server) RegisterSubmissionHandler() http.HandlerFunc {
	tmpl := mustParseTemplate("register.html")

	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form data", http.StatusBadRequest)
			return
		}
		req := auth.RegisterRequest{
			Username:        strings.TrimSpace(r.PostForm.Get("username")),
			Email:           strings.TrimSpace(r.PostForm.Get("email")),
			Password:        r.PostForm.Get("password"),
			ConfirmPassword: r.PostForm.Get("confirmPassword"),
		}
		data := RegisterFormData{Username: req.Username, Email: req.Email}

		fail := func(status int, field, message string) {
			data.Field = field
			pd := s.page(r, "Register", data)
			pd.Error = message
			render(w, tmpl, status, pd)
		}

		if req.Password != req.ConfirmPassword {
			fail(http.StatusBadRequest, "confirmPassword", "Passwords do not match.")
			return
		}

		if err := s.services.Watcher.Register(r.Context(), req); err != nil {
			var authErr *auth.Error
			field := ""
			if errors.As(err, &authErr) {
				field = authErr.Field
			}
			fail(statusForError(err), field, auth.UserMessage(err))
			return
		}
		http.Redirect(w, r, s.paths.Login+"?"+url.Values{"notice": {registeredNotice}}.Encode(), http.StatusSeeOther)
	}
}

// VerifyEmailHandler confirms the address from the link in the verification email.
func (s *Server) VerifyEmailHandler() http.HandlerFunc {
	tmpl := mustParseTemplate("message.html")

	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.services.Auth.VerifyEmail(r.Context(), r.URL.Query().Get("token")); err != nil {
			pd := s.page(r, "Email verification failed", s.paths.Login)
			pd.Error = auth.UserMessage(err)
			render(w, tmpl, statusForError(err), pd)
			return
		}
		pd := s.page(r, "Email verified", s.paths.Login)
		pd.Notice = "Your email address has been verified. You can now sign in."
		render(w, tmpl, http.StatusOK, pd)
	}
}

// GoogleAuthHandler sends the browser to the API's Google authorization URL.
func (s *Server) GoogleAuthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		target, err := s.services.Auth.InitiateGoogleAuth(r.Context())
		if err != nil {
			s.redirectWithError(w, r, s.paths.Login, err)
			return
		}
		http.Redirect(w, r, target, http.StatusSeeOther)
	}
}

// OAuthSuccessHandler adopts the access token the API appends to the redirect.
func (s *Server) OAuthSuccessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := s.services.Auth.CompleteOAuth(r.Context(), r.URL.Query().Get("accessToken")); err != nil {
			s.redirectWithError(w, r, s.paths.Login, err)
			return
		}
		s.services.Watcher.Refresh()
		http.Redirect(w, r, s.paths.Home, http.StatusSeeOther)
	}
}

func (s *Server) redirectWithError(w http.ResponseWriter, r *http.Request, target string, err error) {
	log.Debug().Err(err).Str("path", r.URL.Path).Msg("console request failed")
	http.Redirect(w, r, target+"?"+url.Values{"error": {auth.UserMessage(err)}}.Encode(), http.StatusSeeOther)
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, errs.ErrInvalidCredentials), errors.Is(err, errs.ErrSessionExpired):
		return http.StatusUnauthorized
	case errors.Is(err, errs.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, errs.ErrAlreadyAuthenticated):
		return http.StatusConflict
	case errors.Is(err, errs.ErrNotFound):
		return http.StatusNotFound
	}
	return http.StatusBadGateway
}
