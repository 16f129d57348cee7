package graph

import (
	"context"

	"golang.org/x/oauth2"
)

// AuthCodeURL builds the consent URL for connecting a mailbox.
func (s *Service) AuthCodeURL(state, redirectURL string) string {
	return s.oauthConfig.AuthCodeURL(state, oauth2.SetAuthURLParam("redirect_uri", redirectURL))
}

// Exchange trades an authorization code for a token pair.
func (s *Service) Exchange(ctx context.Context, code, redirectURL string) (*oauth2.Token, error) {
	return s.oauthConfig.Exchange(ctx, code, oauth2.SetAuthURLParam("redirect_uri", redirectURL))
}

// Refresh trades a refresh token for a fresh token pair. Failures (revoked
// grant, network) propagate un-retried; retry policy lives with the caller.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	src := s.oauthConfig.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	return src.Token()
}

// Scope returns the scope set requested on connect.
func (s *Service) Scope() []string {
	return s.oauthConfig.Scopes
}
