package server

import (
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"net/url"
	"strings"

	"github.com/jrsteele09/go-vocab-client/admin"
	"github.com/jrsteele09/go-vocab-client/auth"
	"github.com/jrsteele09/go-vocab-client/category"
	errs "github.com/jrsteele09/go-vocab-client/internal/errors"
	"github.com/jrsteele09/go-vocab-client/vocabulary"
	"github.com/rs/zerolog/log"
)

type VocabulariesPageData struct {
	Query        string
	Category     string
	Categories   []category.Category
	Vocabularies []vocabulary.Vocabulary
}

type AdminPageData struct {
	Stats *admin.DashboardStats
	Users []admin.User
}

// IndexHandler renders the home page
func (s *Server) IndexHandler() http.HandlerFunc {
	tmpl := mustParseTemplate("index.html")

	return func(w http.ResponseWriter, r *http.Request) {
		render(w, tmpl, http.StatusOK, s.page(r, "Home", nil))
	}
}

func (s *Server) VocabulariesHandler() http.HandlerFunc {
	tmpl := mustParseTemplate("vocabularies.html")

	return func(w http.ResponseWriter, r *http.Request) {
		if s.services.Vocabularies == nil {
			http.Error(w, "vocabularies are not available", http.StatusServiceUnavailable)
			return
		}
		data := VocabulariesPageData{
			Query:    strings.TrimSpace(r.URL.Query().Get("q")),
			Category: strings.TrimSpace(r.URL.Query().Get("category")),
		}

		if s.services.Categories != nil {
			cats, err := s.services.Categories.List(r.Context())
			if err != nil {
				log.Warn().Err(err).Msg("failed to load categories for the filter")
			}
			data.Categories = cats
		}

		var err error
		switch {
		case data.Category != "":
			data.Vocabularies, err = s.services.Vocabularies.ByCategory(r.Context(), data.Category)
		case data.Query != "":
			data.Vocabularies, err = s.services.Vocabularies.Search(r.Context(), data.Query)
		default:
			data.Vocabularies, err = s.services.Vocabularies.List(r.Context())
		}
		if err != nil {
			s.apiFailure(w, r, tmpl, "Vocabularies", data, err)
			return
		}
		render(w, tmpl, http.StatusOK, s.page(r, "Vocabularies", data))
	}
}

// CategoriesHandler lists categories with their word counts, falling back to the
// plain list when the stats endpoint fails.
func (s *Server) CategoriesHandler() http.HandlerFunc {
	tmpl := mustParseTemplate("categories.html")

	return func(w http.ResponseWriter, r *http.Request) {
		if s.services.Categories == nil {
			http.Error(w, "categories are not available", http.StatusServiceUnavailable)
			return
		}
		cats, err := s.services.Categories.Stats(r.Context())
		if err != nil && !errors.Is(err, errs.ErrSessionExpired) {
			log.Debug().Err(err).Msg("category stats unavailable, listing instead")
			cats, err = s.services.Categories.List(r.Context())
		}
		if err != nil {
			s.apiFailure(w, r, tmpl, "Categories", []category.Category{}, err)
			return
		}
		render(w, tmpl, http.StatusOK, s.page(r, "Categories", cats))
	}
}

func (s *Server) AdminDashboardHandler() http.HandlerFunc {
	tmpl := mustParseTemplate("admin.html")

	return func(w http.ResponseWriter, r *http.Request) {
		if s.services.Admin == nil {
			http.Error(w, "admin is not available", http.StatusServiceUnavailable)
			return
		}
		data := AdminPageData{}
		stats, err := s.services.Admin.DashboardStats(r.Context())
		if err != nil {
			s.apiFailure(w, r, tmpl, "Admin", data, err)
			return
		}
		data.Stats = stats

		filter := admin.UserFilter{Search: r.URL.Query().Get("q"), Role: r.URL.Query().Get("role")}
		if data.Users, err = s.services.Admin.Users(r.Context(), filter); err != nil {
			s.apiFailure(w, r, tmpl, "Admin", data, err)
			return
		}
		render(w, tmpl, http.StatusOK, s.page(r, "Admin", data))
	}
}

// HealthHandler reports the console's own view of the session.
func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body := map[string]any{
			"status":        "ok",
			"session":       s.services.Watcher.State().Status.String(),
			"storeDegraded": s.services.Auth.Store().Degraded(),
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(body)
	}
}

// apiFailure sends an expired session to the login page and renders anything else
// on the page itself.
func (s *Server) apiFailure(w http.ResponseWriter, r *http.Request, tmpl *template.Template, title string, data any, err error) {
	if errors.Is(err, errs.ErrSessionExpired) {
		http.Redirect(w, r, s.paths.Login+"?"+url.Values{"error": {"Your session has expired. Please log in again."}}.Encode(), http.StatusSeeOther)
		return
	}
	log.Warn().Err(err).Str("path", r.URL.Path).Msg("api request failed")
	pd := s.page(r, title, data)
	pd.Error = auth.UserMessage(err)
	render(w, tmpl, statusForError(err), pd)
}
