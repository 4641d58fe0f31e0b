package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/angelmondragon/storefront-backend/pkg/config"
)

func newFakeGitHub(t *testing.T, userEmail string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/login/oauth/access_token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"access_token": "tok", "token_type": "bearer"})
	})
	mux.HandleFunc("/user", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"login": "octo", "name": "Octo Cat", "email": userEmail})
	})
	mux.HandleFunc("/user/emails", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]map[string]any{
			{"email": "old@example.com", "primary": false, "verified": true},
			{"email": "primary@example.com", "primary": true, "verified": true},
		})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestProvider(t *testing.T, srv *httptest.Server) *GitHubProvider {
	t.Helper()
	p, err := NewGitHubProvider(config.GitHubConfig{
		ClientID:     "id",
		ClientSecret: "secret",
		CallbackURL:  "http://localhost/api/sessions/githubcallback",
		APIBaseURL:   srv.URL,
	})
	require.NoError(t, err)
	return p.WithEndpoint(oauth2.Endpoint{
		AuthURL:   srv.URL + "/login/oauth/authorize",
		TokenURL:  srv.URL + "/login/oauth/access_token",
		AuthStyle: oauth2.AuthStyleInParams,
	})
}

func TestGitHubProfileUsesPublicEmail(t *testing.T) {
	srv := newFakeGitHub(t, "octo@example.com")
	p := newTestProvider(t, srv)

	profile, err := p.Profile(context.Background(), "code")
	require.NoError(t, err)
	require.Equal(t, "octo", profile.Login)
	require.Equal(t, "octo@example.com", profile.Email)
}

func TestGitHubProfileFallsBackToPrimaryEmail(t *testing.T) {
	srv := newFakeGitHub(t, "")
	p := newTestProvider(t, srv)

	profile, err := p.Profile(context.Background(), "code")
	require.NoError(t, err)
	require.Equal(t, "primary@example.com", profile.Email)
}

func TestGitHubAuthCodeURLCarriesState(t *testing.T) {
	srv := newFakeGitHub(t, "")
	p := newTestProvider(t, srv)

	u := p.AuthCodeURL("signed-state")
	require.True(t, strings.HasPrefix(u, srv.URL+"/login/oauth/authorize?"))
	require.Contains(t, u, "state=signed-state")
	require.Contains(t, u, "client_id=id")
}

func TestNewGitHubProviderRequiresCredentials(t *testing.T) {
	_, err := NewGitHubProvider(config.GitHubConfig{})
	require.Error(t, err)
}
