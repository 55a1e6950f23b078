package oauth

import (
	"context"
	"fmt"

	"github.com/coldreach/autoreply/pkg/types"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/microsoft"
)

var microsoftScopes = []string{
	"https://graph.microsoft.com/Mail.ReadWrite",
	"https://graph.microsoft.com/Mail.Send",
	"https://graph.microsoft.com/User.Read",
	"offline_access",
}

// MicrosoftClient handles the OAuth handshake for the linked Outlook account.
// Uses the AzureAD "common" tenant since this is a single consumer account.
type MicrosoftClient struct {
	clientID     string
	clientSecret string
	redirectURL  string
}

// NewMicrosoftClient creates a new Microsoft OAuth client from config
func NewMicrosoftClient(cfg types.OAuthClientConfig) *MicrosoftClient {
	return &MicrosoftClient{
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		redirectURL:  cfg.RedirectURL,
	}
}

func (m *MicrosoftClient) Name() types.ProviderName {
	return types.ProviderOutlook
}

// IsConfigured returns true if Microsoft OAuth is configured
func (m *MicrosoftClient) IsConfigured() bool {
	return m.clientID != "" && m.clientSecret != "" && m.redirectURL != ""
}

// AuthorizeURL generates the Microsoft OAuth authorization URL
func (m *MicrosoftClient) AuthorizeURL(state string) (string, error) {
	return m.oauthConfig().AuthCodeURL(state, oauth2.AccessTypeOffline), nil
}

// Exchange exchanges an authorization code for a token bundle
func (m *MicrosoftClient) Exchange(ctx context.Context, code string) (*types.Credentials, error) {
	token, err := m.oauthConfig().Exchange(ctx, code)
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

func (m *MicrosoftClient) oauthConfig() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     m.clientID,
		ClientSecret: m.clientSecret,
		RedirectURL:  m.redirectURL,
		Scopes:       microsoftScopes,
		Endpoint:     microsoft.AzureADEndpoint("common"),
	}
}
