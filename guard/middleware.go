package guard

import (
	"html/template"
	"net/http"

	"github.com/jrsteele09/go-vocab-client/session"
	"github.com/rs/zerolog/log"
)

// StateSource is satisfied by *session.Watcher.
type StateSource interface {
	State() session.State
}

var pageTemplate = template.Must(template.New("guard").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
{{if .Refresh}}<meta http-equiv="refresh" content="{{.Refresh}}">{{end}}
<title>{{.Title}}</title>
</head>
<body>
<p>{{.Message}}</p>
{{if .Location}}<p><a href="{{.Location}}">Continue</a></p>{{end}}
</body>
</html>
`))

type page struct {
	Title    string
	Message  string
	Location string
	Refresh  string
}

// Middleware gates a handler on the decision for access. Protected content is never
// rendered until the state has resolved.
func (p Paths) Middleware(source StateSource, access Access) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			decision := p.Decide(access, source.State())
			switch decision.Outcome {
			case Render:
				next(w, r)
			case Loading:
				w.Header().Set("Cache-Control", "no-store")
				writePage(w, http.StatusOK, page{Title: "Loading", Message: "Loading...", Refresh: "1"})
			case Redirect:
				http.Redirect(w, r, decision.Location, http.StatusSeeOther)
			case Interstitial:
				writePage(w, http.StatusOK, page{
					Title:    "Already signed in",
					Message:  "You are already signed in. Redirecting...",
					Location: decision.Location,
					Refresh:  "2;url=" + decision.Location,
				})
			}
		}
	}
}

// Middleware uses the default paths.
func Middleware(source StateSource, access Access) func(http.HandlerFunc) http.HandlerFunc {
	return DefaultPaths.Middleware(source, access)
}

func writePage(w http.ResponseWriter, status int, pg page) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := pageTemplate.Execute(w, pg); err != nil {
		log.Err(err).Msg("guard: rendering page")
	}
}
