package oauth

import (
	"context"
	"fmt"

	"github.com/coldreach/autoreply/pkg/types"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

var googleScopes = []string{
	"https://www.googleapis.com/auth/gmail.readonly",
	"https://www.googleapis.com/auth/gmail.send",
}

// GoogleClient handles the OAuth handshake for the linked Gmail account
type GoogleClient struct {
	clientID     string
	clientSecret string
	redirectURL  string
}

// NewGoogleClient creates a new Google OAuth client from config
func NewGoogleClient(cfg types.OAuthClientConfig) *GoogleClient {
	return &GoogleClient{
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		redirectURL:  cfg.RedirectURL,
	}
}

func (g *GoogleClient) Name() types.ProviderName {
	return types.ProviderGmail
}

// IsConfigured returns true if Google OAuth is configured
func (g *GoogleClient) IsConfigured() bool {
	return g.clientID != "" && g.clientSecret != "" && g.redirectURL != ""
}

// AuthorizeURL generates the Google OAuth authorization URL
func (g *GoogleClient) AuthorizeURL(state string) (string, error) {
	// Request offline access to get a refresh token, and always prompt for
	// consent so we get one even if the user previously authorized
	return g.oauthConfig().AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent select_account"),
	), nil
}

// Exchange exchanges an authorization code for a token bundle
func (g *GoogleClient) Exchange(ctx context.Context, code string) (*types.Credentials, error) {
	token, err := g.oauthConfig().Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchange failed: %w", err)
	}

	creds := &types.Credentials{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		TokenType:    token.TokenType,
	}
	if !token.Expiry.IsZero() {
		expiry := token.Expiry
		creds.Expiry = &expiry
	}

	return creds, nil
}

func (g *GoogleClient) oauthConfig() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     g.clientID,
		ClientSecret: g.clientSecret,
		RedirectURL:  g.redirectURL,
		Scopes:       googleScopes,
		Endpoint:     google.Endpoint,
	}
}
