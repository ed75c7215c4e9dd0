// Package guard decides whether a route may render for the current session state.
package guard

import (
	"github.com/jrsteele09/go-vocab-client/session"
)

// Access is the requirement a route declares.
type Access int

const (
	Public        Access = iota // anyone, regardless of state
	Authenticated               // signed-in users
	Admin                       // signed-in users with the admin role
	GuestOnly                   // login and register pages
)

func (a Access) String() string {
	switch a {
	case Authenticated:
		return "authenticated"
	case Admin:
		return "admin"
	case GuestOnly:
		return "guest-only"
	}
	return "public"
}

type Outcome int

const (
	Render       Outcome = iota
	Loading              // state not resolved yet, show nothing protected
	Redirect             // send the user to Location
	Interstitial         // already signed in: show a notice, then go to Location
)

func (o Outcome) String() string {
	switch o {
	case Loading:
		return "loading"
	case Redirect:
		return "redirect"
	case Interstitial:
		return "interstitial"
	}
	return "render"
}

type Decision struct {
	Outcome  Outcome
	Location string
}

// Paths are the redirect targets.
type Paths struct {
	Login string
	Home  string
}

var DefaultPaths = Paths{Login: "/login", Home: "/"}

// Decide applies the default paths.
func Decide(access Access, state session.State) Decision {
	return DefaultPaths.Decide(access, state)
}

func (p Paths) Decide(access Access, state session.State) Decision {
	if access == Public {
		return Decision{Outcome: Render}
	}
	if !state.Resolved() {
		return Decision{Outcome: Loading}
	}

	signedIn := state.Status == session.StatusAuthenticated
	switch access {
	case Authenticated:
		if !signedIn {
			return Decision{Outcome: Redirect, Location: p.Login}
		}
	case Admin:
		if !signedIn {
			return Decision{Outcome: Redirect, Location: p.Login}
		}
		if !state.User.IsAdmin() {
			return Decision{Outcome: Redirect, Location: p.Home}
		}
	case GuestOnly:
		if signedIn {
			return Decision{Outcome: Interstitial, Location: p.Home}
		}
	}
	return Decision{Outcome: Render}
}
