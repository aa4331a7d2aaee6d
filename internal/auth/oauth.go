package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"

	"github.com/rs/xid"
	"github.com/sakif/gitgate/internal/apperror"
)

// Profile is the provider-neutral view of a GitHub account that the rest of
// the system consumes. The session service upserts users from it.
type Profile struct {
	ExternalID string // GitHub's numeric user ID, as a string
	Username   string // display name, falling back to the login
	Email      string // primary email, empty if none is exposed
	AvatarURL  string
}

// githubUser is the portion of the GitHub /user API response we care about.
// GitHub returns a much larger object — we only unmarshal what we need.
//
// https://docs.github.com/en/rest/users/users#get-the-authenticated-user
type githubUser struct {
	ID        int64  `json:"id"`
	Login     string `json:"login"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url"`
}

// githubEmail is one entry of the GitHub /user/emails response.
type githubEmail struct {
	Email   string `json:"email"`
	Primary bool   `json:"primary"`
}

// GitHubProvider wraps golang.org/x/oauth2 for the GitHub Authorization Code
// flow.
//
// OAUTH 2.0 AUTHORIZATION CODE FLOW:
//  1. We redirect the user to GitHub's authorization endpoint with our
//     ClientID and the requested scopes.
//  2. The user approves the request on GitHub.
//  3. GitHub redirects back to our callback URL with a short-lived code.
//  4. We exchange the code for an access token (server-to-server, using the
//     ClientSecret — the token never touches the browser).
//  5. We call the GitHub API with the token to read the user's profile.
type GitHubProvider struct {
	config *oauth2.Config

	// apiBaseURL lets tests point the profile calls at an httptest server.
	apiBaseURL string
}

// NewGitHubProvider creates a GitHubProvider with the given credentials.
//
// redirectURL must exactly match the "Authorization callback URL" configured
// in the GitHub OAuth App settings.
//
// Scopes:
//   - "read:user"  — public profile (ID, login, name, avatar)
//   - "user:email" — email addresses, so we can pick the primary one
func NewGitHubProvider(clientID, clientSecret, redirectURL string) *GitHubProvider {
	return &GitHubProvider{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       []string{"read:user", "user:email"},
			Endpoint:     github.Endpoint,
		},
		apiBaseURL: "https://api.github.com",
	}
}

// AuthURL builds the provider authorization URL and a fresh random state
// value, both returned to the caller.
//
// The state rides along to GitHub and comes back on the callback. It is
// meant to be checked there against a value the server remembered.
// TODO: persist the state (short-lived cookie) and verify it in the
// callback handler — currently it is generated but never checked, which
// leaves the flow open to login CSRF.
func (p *GitHubProvider) AuthURL() (url, state string) {
	state = xid.New().String()
	return p.config.AuthCodeURL(state, oauth2.AccessTypeOnline), state
}

// Exchange trades the authorization code for a GitHub access token.
//
// Failures wrap apperror.ErrProviderExchange. When GitHub itself reports an
// error (bad/expired/reused code), oauth2 surfaces it as *oauth2.RetrieveError
// and we keep its description — that detail ends up in logs, never in the
// client-facing response.
func (p *GitHubProvider) Exchange(ctx context.Context, code string) (string, error) {
	token, err := p.config.Exchange(ctx, code)
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) && retrieveErr.ErrorCode != "" {
			return "", fmt.Errorf("auth: %w: %s: %s",
				apperror.ErrProviderExchange, retrieveErr.ErrorCode, retrieveErr.ErrorDescription)
		}
		return "", fmt.Errorf("auth: %w: %v", apperror.ErrProviderExchange, err)
	}
	if token.AccessToken == "" {
		return "", fmt.Errorf("auth: %w: provider returned an empty access token", apperror.ErrProviderExchange)
	}
	return token.AccessToken, nil
}

// FetchProfile reads the authenticated user's profile with the provider
// access token obtained from Exchange.
//
// Two API calls are made: /user for the profile and /user/emails to find the
// address marked primary (GitHub omits the email from /user unless the user
// made it public). Any network or HTTP failure from either call wraps
// apperror.ErrProviderProfile.
func (p *GitHubProvider) FetchProfile(ctx context.Context, accessToken string) (*Profile, error) {
	// oauth2.Config.Client returns an *http.Client that adds the
	// "Authorization: Bearer <token>" header to every request.
	client := p.config.Client(ctx, &oauth2.Token{AccessToken: accessToken})

	var ghUser githubUser
	if err := p.getJSON(client, "/user", &ghUser); err != nil {
		return nil, err
	}
	if ghUser.ID == 0 {
		return nil, fmt.Errorf("auth: %w: provider returned an invalid user (ID = 0)", apperror.ErrProviderProfile)
	}

	var emails []githubEmail
	if err := p.getJSON(client, "/user/emails", &emails); err != nil {
		return nil, err
	}

	var primaryEmail string
	for _, e := range emails {
		if e.Primary {
			primaryEmail = e.Email
			break
		}
	}

	// Prefer the display name; not everyone sets one, so fall back to the
	// login.
	username := ghUser.Name
	if username == "" {
		username = ghUser.Login
	}

	return &Profile{
		ExternalID: fmt.Sprintf("%d", ghUser.ID),
		Username:   username,
		Email:      primaryEmail,
		AvatarURL:  ghUser.AvatarURL,
	}, nil
}

// getJSON performs one authenticated GET against the GitHub API and decodes
// the JSON body into out.
func (p *GitHubProvider) getJSON(client *http.Client, path string, out any) error {
	resp, err := client.Get(p.apiBaseURL + path)
	if err != nil {
		return fmt.Errorf("auth: %w: calling GitHub %s: %v", apperror.ErrProviderProfile, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("auth: %w: GitHub %s returned status %d", apperror.ErrProviderProfile, path, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("auth: %w: decoding GitHub %s response: %v", apperror.ErrProviderProfile, path, err)
	}
	return nil
}
