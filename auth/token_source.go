package auth

import (
	"context"

	"github.com/jrsteele09/go-vocab-client/httpclient"
	"golang.org/x/oauth2"
)

// TokenSource exposes the session as an oauth2.TokenSource, refreshing through the
// API once the cached token expires.
func (s *Service) TokenSource(ctx context.Context) oauth2.TokenSource {
	var current *oauth2.Token
	if token, ok := s.store.AccessToken(); ok {
		current = s.oauthToken(token)
	}
	return oauth2.ReuseTokenSource(current, &refreshSource{ctx: ctx, service: s})
}

type refreshSource struct {
	ctx     context.Context
	service *Service
}

func (r *refreshSource) Token() (*oauth2.Token, error) {
	token, err := r.service.RefreshToken(r.ctx)
	if err != nil {
		return nil, err
	}
	return r.service.oauthToken(token), nil
}

func (s *Service) oauthToken(token string) *oauth2.Token {
	t := &oauth2.Token{AccessToken: token, TokenType: "Bearer"}
	if exp, ok := httpclient.TokenExpiry(token); ok {
		t.Expiry = exp
	}
	return t
}
