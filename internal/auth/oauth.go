package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
	"golang.org/x/oauth2/google"

	"github.com/muzerhq/muzer/internal/model"
)

// Profile is the provider-agnostic result of a completed OAuth exchange.
// Email is the identity key for the sign-in upsert; it may be empty if
// the user hides it at the provider, in which case sign-in is denied
// upstream (fail closed).
type Profile struct {
	Provider model.Provider
	Email    string
	Name     string
}

// Provider wraps golang.org/x/oauth2 for one OAuth identity provider
// (Google or GitHub), using the standard Authorization Code flow:
//
//  1. Redirect the user to the provider's authorization endpoint.
//  2. The provider redirects back to our callback with a short-lived code.
//  3. Exchange the code for an access token (server-to-server, so the
//     token never touches the browser).
//  4. Call the provider's userinfo API for the email and display name.
type Provider struct {
	name   model.Provider
	config *oauth2.Config
}

// NewGoogleProvider creates a Provider for Google sign-in.
// Credentials come from the Google Cloud Console OAuth client; the
// callback URL must match the authorized redirect URI exactly.
func NewGoogleProvider(clientID, clientSecret, callbackURL string) *Provider {
	return &Provider{
		name: model.ProviderGoogle,
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  callbackURL,
			Scopes:       []string{"openid", "profile", "email"},
			Endpoint:     google.Endpoint,
		},
	}
}

// NewGitHubProvider creates a Provider for GitHub sign-in.
// Register an OAuth App under github.com/settings/developers; the
// "user:email" scope is required because GitHub profiles may hide the
// primary email from the /user endpoint.
func NewGitHubProvider(clientID, clientSecret, callbackURL string) *Provider {
	return &Provider{
		name: model.ProviderGithub,
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  callbackURL,
			Scopes:       []string{"read:user", "user:email"},
			Endpoint:     github.Endpoint,
		},
	}
}

// Name returns which provider this is, for logging and the User.Provider
// column.
func (p *Provider) Name() model.Provider {
	return p.name
}

// AuthURL returns the URL to redirect the user to for authorization.
//
// The state is a random string stored in a cookie before redirecting;
// the callback verifies the provider echoed it back, which blocks CSRF
// attempts that splice a victim's browser into an attacker's flow.
func (p *Provider) AuthURL(state string) string {
	return p.config.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// Exchange completes the OAuth flow: trades the authorization code for
// the user's profile. This is the core of the callback handler.
func (p *Provider) Exchange(ctx context.Context, code string) (*Profile, error) {
	oauthToken, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("auth: exchanging OAuth code: %w", err)
	}

	// oauth2.Config.Client returns an *http.Client that adds the
	// "Authorization: Bearer <token>" header to every request.
	client := p.config.Client(ctx, oauthToken)

	switch p.name {
	case model.ProviderGoogle:
		return fetchGoogleProfile(client)
	default:
		return fetchGitHubProfile(client)
	}
}

type googleUserInfo struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

func fetchGoogleProfile(client *http.Client) (*Profile, error) {
	resp, err := client.Get("https://www.googleapis.com/oauth2/v2/userinfo")
	if err != nil {
		return nil, fmt.Errorf("auth: calling Google userinfo API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("auth: Google userinfo API returned status %d", resp.StatusCode)
	}

	var info googleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("auth: decoding Google userinfo response: %w", err)
	}

	return &Profile{
		Provider: model.ProviderGoogle,
		Email:    info.Email,
		Name:     info.Name,
	}, nil
}

type githubUserInfo struct {
	Login string `json:"login"`
	Name  string `json:"name"`
	Email string `json:"email"` // empty if hidden in GitHub settings
}

type githubEmail struct {
	Email   string `json:"email"`
	Primary bool   `json:"primary"`
}

func fetchGitHubProfile(client *http.Client) (*Profile, error) {
	resp, err := client.Get("https://api.github.com/user")
	if err != nil {
		return nil, fmt.Errorf("auth: calling GitHub /user API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("auth: GitHub /user API returned status %d", resp.StatusCode)
	}

	var info githubUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("auth: decoding GitHub /user response: %w", err)
	}

	// GitHub hides the primary email from /user when the user marks it
	// private; /user/emails still returns it under the user:email scope.
	if info.Email == "" {
		email, err := fetchGitHubPrimaryEmail(client)
		if err != nil {
			return nil, err
		}
		info.Email = email
	}

	name := info.Name
	if name == "" {
		name = info.Login
	}

	return &Profile{
		Provider: model.ProviderGithub,
		Email:    info.Email,
		Name:     name,
	}, nil
}

func fetchGitHubPrimaryEmail(client *http.Client) (string, error) {
	resp, err := client.Get("https://api.github.com/user/emails")
	if err != nil {
		return "", fmt.Errorf("auth: calling GitHub /user/emails API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("auth: GitHub /user/emails API returned status %d", resp.StatusCode)
	}

	var emails []githubEmail
	if err := json.NewDecoder(resp.Body).Decode(&emails); err != nil {
		return "", fmt.Errorf("auth: decoding GitHub /user/emails response: %w", err)
	}

	for _, e := range emails {
		if e.Primary {
			return e.Email, nil
		}
	}
	if len(emails) > 0 {
		return emails[0].Email, nil
	}

	// No email at all — sign-in will be denied by the service layer.
	return "", nil
}
