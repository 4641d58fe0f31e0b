package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

// Profile is the provider account data used to find or create a user.
type Profile struct {
	Login string `json:"login"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Names splits the display name, falling back to the login.
func (p Profile) Names() (first, last string) {
	name := strings.TrimSpace(p.Name)
	if name == "" {
		return strings.TrimSpace(p.Login), ""
	}
	parts := strings.Fields(name)
	if len(parts) == 1 {
		return parts[0], ""
	}
	return parts[0], strings.Join(parts[1:], " ")
}

// OAuthProvider runs the authorization-code round trip with an identity
// provider.
type OAuthProvider interface {
	AuthCodeURL(state string) string
	Profile(ctx context.Context, code string) (Profile, error)
}

// GitHubProvider exchanges codes with GitHub and reads the account profile.
type GitHubProvider struct {
	oauth      *oauth2.Config
	apiBaseURL string
}

// NewGitHubProvider builds a provider from config. Callers should check
// cfg.Enabled() first.
func NewGitHubProvider(cfg config.GitHubConfig) (*GitHubProvider, error) {
	if !cfg.Enabled() {
		return nil, fmt.Errorf("github oauth is not configured")
	}
	base := strings.TrimRight(cfg.APIBaseURL, "/")
	if base == "" {
		base = "https://api.github.com"
	}
	return &GitHubProvider{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.CallbackURL,
			Scopes:       []string{"user:email"},
			Endpoint:     github.Endpoint,
		},
		apiBaseURL: base,
	}, nil
}

// WithEndpoint overrides the token endpoints, used against a fake provider.
func (g *GitHubProvider) WithEndpoint(endpoint oauth2.Endpoint) *GitHubProvider {
	cfg := *g.oauth
	cfg.Endpoint = endpoint
	return &GitHubProvider{oauth: &cfg, apiBaseURL: g.apiBaseURL}
}

func (g *GitHubProvider) AuthCodeURL(state string) string {
	return g.oauth.AuthCodeURL(state)
}

// Profile exchanges code for a token and loads /user, falling back to the
// primary verified address from /user/emails.
func (g *GitHubProvider) Profile(ctx context.Context, code string) (Profile, error) {
	token, err := g.oauth.Exchange(ctx, code)
	if err != nil {
		return Profile{}, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "github authorization failed")
	}
	client := g.oauth.Client(ctx, token)
	client.Timeout = 10 * time.Second

	var profile Profile
	if err := g.getJSON(ctx, client, "/user", &profile); err != nil {
		return Profile{}, err
	}
	if strings.TrimSpace(profile.Email) != "" {
		return profile, nil
	}

	var emails []struct {
		Email    string `json:"email"`
		Primary  bool   `json:"primary"`
		Verified bool   `json:"verified"`
	}
	if err := g.getJSON(ctx, client, "/user/emails", &emails); err != nil {
		return Profile{}, err
	}
	for _, e := range emails {
		if e.Primary && e.Verified {
			profile.Email = e.Email
			break
		}
	}
	return profile, nil
}

func (g *GitHubProvider) getJSON(ctx context.Context, client *http.Client, path string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.apiBaseURL+path, nil)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build github request")
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := client.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "github request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return pkgerrors.Newf(pkgerrors.CodeDependency, "github %s returned %d", path, resp.StatusCode).
			WithDetails(map[string]any{"body": string(body)})
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode github response")
	}
	return nil
}
