package apiv1

import (
	"fmt"
	"net/http"

	"github.com/coldreach/autoreply/pkg/oauth"
	"github.com/coldreach/autoreply/pkg/repository"
	"github.com/coldreach/autoreply/pkg/types"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// OAuthGroup handles the account-linking handshake for both providers
type OAuthGroup struct {
	registry *oauth.Registry
	states   *oauth.StateStore
	tokens   repository.TokenStore
}

// NewOAuthGroup creates and registers OAuth routes
func NewOAuthGroup(g *echo.Group, registry *oauth.Registry, states *oauth.StateStore, tokens repository.TokenStore) *OAuthGroup {
	og := &OAuthGroup{
		registry: registry,
		states:   states,
		tokens:   tokens,
	}

	g.GET("/:provider", og.BeginAuth)
	g.GET("/:provider/callback", og.Callback)

	return og
}

// BeginAuth redirects the browser to the provider's consent screen
func (og *OAuthGroup) BeginAuth(c echo.Context) error {
	provider, err := og.registry.Get(types.ProviderName(c.Param("provider")))
	if err != nil {
		return ErrorResponse(c, http.StatusNotFound, err.Error())
	}

	state := og.states.Create(provider.Name())
	authorizeURL, err := provider.AuthorizeURL(state)
	if err != nil {
		log.Error().Err(err).Str("provider", string(provider.Name())).Msg("failed to build authorize URL")
		return ErrorResponse(c, http.StatusInternalServerError, "failed to begin authorization")
	}

	return c.Redirect(http.StatusFound, authorizeURL)
}

// Callback exchanges the authorization code and stores the token bundle
func (og *OAuthGroup) Callback(c echo.Context) error {
	providerName := types.ProviderName(c.Param("provider"))

	if errMsg := c.QueryParam("error"); errMsg != "" {
		log.Warn().Str("provider", string(providerName)).Str("error", errMsg).Msg("authorization denied")
		return ErrorResponse(c, http.StatusBadRequest, fmt.Sprintf("authorization denied: %s", errMsg))
	}

	stateProvider, ok := og.states.Consume(c.QueryParam("state"))
	if !ok || stateProvider != providerName {
		return ErrorResponse(c, http.StatusBadRequest, "invalid or expired state")
	}

	code := c.QueryParam("code")
	if code == "" {
		return ErrorResponse(c, http.StatusBadRequest, "missing authorization code")
	}

	provider, err := og.registry.Get(providerName)
	if err != nil {
		return ErrorResponse(c, http.StatusNotFound, err.Error())
	}

	creds, err := provider.Exchange(c.Request().Context(), code)
	if err != nil {
		log.Error().Err(err).Str("provider", string(providerName)).Msg("token exchange failed")
		return ErrorResponse(c, http.StatusBadGateway, "token exchange failed")
	}

	og.tokens.Save(providerName, creds)
	log.Info().Str("provider", string(providerName)).Msg("account connected")

	return c.String(http.StatusOK, fmt.Sprintf("%s account connected successfully!", providerName))
}
