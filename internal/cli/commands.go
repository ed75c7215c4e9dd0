package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/jrsteele09/go-vocab-client/guard"
	errs "github.com/jrsteele09/go-vocab-client/internal/errors"
	"github.com/rs/zerolog/log"
)

// ErrUsage marks a bad invocation; the caller prints usage.
var ErrUsage = errors.New("usage")

var (
	ErrNotSignedIn    = errors.New("not signed in: run `myvocab login` first")
	ErrAdminRequired  = errors.New("admin access required")
	ErrStateUnsettled = errors.New("session state did not resolve")
)

type command struct {
	name    string
	summary string
	access  guard.Access
	route   string // where the command lives in the console, for navigation
	run     func(ctx context.Context, a *App, args []string) error
}

var commands = map[string]command{}

func register(c command) {
	commands[c.name] = c
}

func init() {
	register(command{name: "login", summary: "sign in with email and password", access: guard.GuestOnly, route: "/login", run: runLogin})
	register(command{name: "register", summary: "create an account", access: guard.GuestOnly, route: "/register", run: runRegister})
	register(command{name: "logout", summary: "sign out of this and every other process", access: guard.Public, route: "/logout", run: runLogout})
	register(command{name: "whoami", summary: "show the signed-in account", access: guard.Authenticated, route: "/", run: runWhoami})
	register(command{name: "verify-email", summary: "confirm an email address with its token", access: guard.Public, route: "/verify-email", run: runVerifyEmail})
	register(command{name: "google-login", summary: "print the Google sign-in URL", access: guard.GuestOnly, route: "/auth/google", run: runGoogleLogin})
	register(command{name: "oauth-complete", summary: "finish a Google sign-in with the returned access token", access: guard.Public, route: "/oauth-success", run: runOAuthComplete})
	register(command{name: "serve", summary: "run the local web console", access: guard.Public, route: "/", run: runServe})
	register(command{name: "vocab", summary: "manage vocabularies", access: guard.Authenticated, route: "/vocabularies", run: runVocab})
	register(command{name: "category", summary: "manage categories", access: guard.Authenticated, route: "/categories", run: runCategory})
	register(command{name: "admin", summary: "administer users and content", access: guard.Admin, route: "/admin", run: runAdmin})
}

// Run executes one command. The session is resolved first and the command's
// access requirement decides whether it runs.
func (a *App) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return ErrUsage
	}
	cmd, ok := commands[args[0]]
	if !ok {
		return fmt.Errorf("%w: unknown command %q", ErrUsage, args[0])
	}

	state := a.watcher.Start(ctx)
	a.location.Navigate(cmd.route)

	decision := a.paths.Decide(cmd.access, state)
	log.Debug().Str("command", cmd.name).Str("session", state.Status.String()).Str("decision", decision.Outcome.String()).Msg("gate")

	switch decision.Outcome {
	case guard.Loading:
		return ErrStateUnsettled
	case guard.Redirect:
		if decision.Location == a.paths.Login {
			return ErrNotSignedIn
		}
		return ErrAdminRequired
	case guard.Interstitial:
		a.printf("You are already signed in as %s.\n", state.User.DisplayName())
		return nil
	}

	err := cmd.run(ctx, a, args[1:])
	if a.location.CurrentPath() == a.paths.Login && cmd.route != a.paths.Login {
		a.printf("Your session has expired. Please run `myvocab login`.\n")
		if err == nil {
			err = errs.ErrSessionExpired
		}
	}
	return err
}

// Usage writes the command list.
func Usage(w io.Writer) {
	fmt.Fprintln(w, "usage: myvocab [-config file] <command> [flags] [args]")
	fmt.Fprintln(w)
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %-15s %s\n", name, commands[name].summary)
	}
}

func (a *App) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}

// newFlags returns a flag set that reports errors instead of exiting.
func newFlags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func parseFlags(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrUsage, fs.Name(), err)
	}
	return nil
}

// isSet reports whether the named flag was given on the command line.
func isSet(fs *flag.FlagSet, name string) bool {
	set := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}

func requireArg(name string, args []string, what string) (string, error) {
	if len(args) == 0 || strings.TrimSpace(args[0]) == "" {
		return "", fmt.Errorf("%w: %s needs %s", ErrUsage, name, what)
	}
	return args[0], nil
}

// splitList turns "a, b,,c" into [a b c].
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
