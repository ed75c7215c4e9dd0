package cli

import (
	"context"
	"strings"

	"github.com/jrsteele09/go-vocab-client/auth"
)

func runLogin(ctx context.Context, a *App, args []string) error {
	fs := newFlags("login")
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password (prompted when empty)")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	var err error
	if strings.TrimSpace(*email) == "" {
		if *email, err = a.prompt(ctx, "Email"); err != nil {
			return err
		}
	}
	if *password == "" {
		if *password, err = a.prompt(ctx, "Password"); err != nil {
			return err
		}
	}

	user, err := a.watcher.Login(ctx, strings.TrimSpace(*email), *password)
	if err != nil {
		return err
	}
	a.printf("Signed in as %s (%s).\n", user.DisplayName(), user.Email)
	return nil
}

func runRegister(ctx context.Context, a *App, args []string) error {
	fs := newFlags("register")
	req := auth.RegisterRequest{}
	fs.StringVar(&req.Email, "email", "", "account email")
	fs.StringVar(&req.Username, "username", "", "display name")
	fs.StringVar(&req.Password, "password", "", "password (prompted when empty)")
	fs.StringVar(&req.ConfirmPassword, "confirm", "", "password again (prompted when empty)")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	var err error
	if req.Password == "" {
		if req.Password, err = a.prompt(ctx, "Password"); err != nil {
			return err
		}
	}
	if req.ConfirmPassword == "" {
		if req.ConfirmPassword, err = a.prompt(ctx, "Confirm password"); err != nil {
			return err
		}
	}

	if err := a.watcher.Register(ctx, req); err != nil {
		return err
	}
	a.printf("Registration successful. Please check your email to verify your account.\n")
	return nil
}

func runLogout(ctx context.Context, a *App, _ []string) error {
	if err := a.watcher.Logout(ctx); err != nil {
		return err
	}
	a.printf("Signed out.\n")
	return nil
}

func runWhoami(_ context.Context, a *App, _ []string) error {
	user := a.watcher.State().User
	a.printf("%s\n", user.DisplayName())
	a.printf("  email:    %s\n", user.Email)
	a.printf("  role:     %s\n", user.EffectiveRole())
	a.printf("  verified: %t\n", user.IsEmailVerified)
	return nil
}

func runVerifyEmail(ctx context.Context, a *App, args []string) error {
	token, err := requireArg("verify-email", args, "the token from the verification email")
	if err != nil {
		return err
	}
	if err := a.auth.VerifyEmail(ctx, token); err != nil {
		return err
	}
	a.printf("Email verified. You can now sign in.\n")
	return nil
}

func runGoogleLogin(ctx context.Context, a *App, _ []string) error {
	target, err := a.auth.InitiateGoogleAuth(ctx)
	if err != nil {
		return err
	}
	a.printf("Open this URL in your browser to sign in with Google:\n%s\n", target)
	a.printf("Then run `myvocab oauth-complete <accessToken>` or let `myvocab serve` receive the redirect.\n")
	return nil
}

func runOAuthComplete(ctx context.Context, a *App, args []string) error {
	token, err := requireArg("oauth-complete", args, "the access token from the redirect")
	if err != nil {
		return err
	}
	sess, err := a.auth.CompleteOAuth(ctx, token)
	if err != nil {
		return err
	}
	a.watcher.Refresh()
	a.printf("Signed in as %s (%s).\n", sess.User.DisplayName(), sess.User.Email)
	return nil
}
