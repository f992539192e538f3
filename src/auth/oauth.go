package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/facebook"

	"meme-market/src/interfaces"
	"meme-market/src/logger"
	"meme-market/src/models"
)

const (
	// CallbackPath is where the identity provider redirects after consent.
	CallbackPath = "/oauth-authorized"

	defaultProfileURL = "https://graph.facebook.com/me"
)

// Profile is the subset of the provider's user object we keep.
type Profile struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// -----------------------------------------------------------------------------
// OAuthProvider runs the authorization code flow against a social login
// provider (Facebook by default) and fetches the caller's profile.
// -----------------------------------------------------------------------------

type OAuthProvider struct {
	Config     *oauth2.Config
	ProfileURL string
	Network    interfaces.INetworkManager
	Logger     *logger.Logger
}

// -----------------------------------------------------------------------------

func NewOAuthProvider(cfg *models.MConfig, network interfaces.INetworkManager, log *logger.Logger) *OAuthProvider {
	endpoint := facebook.Endpoint
	if cfg.Auth.AuthURL != "" {
		endpoint.AuthURL = cfg.Auth.AuthURL
	}
	if cfg.Auth.TokenURL != "" {
		endpoint.TokenURL = cfg.Auth.TokenURL
	}

	profileURL := cfg.Auth.ProfileURL
	if profileURL == "" {
		profileURL = defaultProfileURL
	}

	return &OAuthProvider{
		Config: &oauth2.Config{
			ClientID:     cfg.Auth.ClientID,
			ClientSecret: cfg.Auth.ClientSecret,
			Endpoint:     endpoint,
			RedirectURL:  strings.TrimRight(cfg.Auth.ServerName, "/") + CallbackPath,
			Scopes:       cfg.Auth.Scopes,
		},
		ProfileURL: profileURL,
		Network:    network,
		Logger:     log,
	}
}

// -----------------------------------------------------------------------------

// AuthCodeURL is the consent page the browser is sent to.
func (p *OAuthProvider) AuthCodeURL(state string) string {
	return p.Config.AuthCodeURL(state)
}

// Exchange trades an authorization code for a token and loads the profile it grants access to.
func (p *OAuthProvider) Exchange(ctx context.Context, code string) (*Profile, error) {
	token, err := p.Config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchange authorization code: %w", err)
	}

	body, err := p.Network.Get(ctx, p.ProfileURL, map[string]string{
		"access_token": token.AccessToken,
		"fields":       "id,name",
	})
	if err != nil {
		return nil, fmt.Errorf("fetch profile: %w", err)
	}

	var profile Profile
	if err := json.Unmarshal(body, &profile); err != nil {
		return nil, fmt.Errorf("decode profile: %w", err)
	}
	if profile.ID == "" {
		return nil, fmt.Errorf("profile response has no id")
	}

	p.Logger.Debug("Fetched profile %s (%s)", profile.Name, profile.ID)
	return &profile, nil
}
