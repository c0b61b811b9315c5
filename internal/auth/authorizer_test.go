package auth

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func TestSelectPrecedence(t *testing.T) {
	dir := t.TempDir()

	withToken := NewTokenFile(filepath.Join(dir, "rt"))
	require.NoError(t, withToken.Save("persisted"))
	withoutToken := NewTokenFile(filepath.Join(dir, "missing"))

	tests := []struct {
		name         string
		clientSecret string
		tokens       *TokenFile
		want         any
	}{
		{name: "token file wins", clientSecret: "secret", tokens: withToken, want: &RefreshTokenAuthorizer{}},
		{name: "client secret next", clientSecret: "secret", tokens: withoutToken, want: &ClientSecretAuthorizer{}},
		{name: "interactive last", clientSecret: "", tokens: withoutToken, want: &InteractiveAuthorizer{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Select("client-id", tt.clientSecret, tt.tokens, strings.NewReader(""), io.Discard)
			assert.IsType(t, tt.want, got)
		})
	}
}

func TestRefreshTokenAuthorizer(t *testing.T) {
	var form url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		form = r.PostForm
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"access_token": "fresh-access", "token_type": "Bearer", "expires_in": 3600}`)
	}))
	defer srv.Close()

	tokens := NewTokenFile(filepath.Join(t.TempDir(), "rt"))
	require.NoError(t, tokens.Save("the-refresh-token"))

	a := &RefreshTokenAuthorizer{
		ClientID: "client-id",
		Tokens:   tokens,
		Endpoint: oauth2.Endpoint{AuthURL: srv.URL + "/authorize", TokenURL: srv.URL + "/token"},
	}
	src, err := a.TokenSource(context.Background())
	require.NoError(t, err)

	token, err := src.Token()
	require.NoError(t, err)
	assert.Equal(t, "fresh-access", token.AccessToken)
	assert.Equal(t, "refresh_token", form.Get("grant_type"))
	assert.Equal(t, "the-refresh-token", form.Get("refresh_token"))
}

func TestRefreshTokenAuthorizerStale(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error": "invalid_grant", "error_description": "refresh token revoked"}`)
	}))
	defer srv.Close()

	tokens := NewTokenFile(filepath.Join(t.TempDir(), "rt"))
	require.NoError(t, tokens.Save("revoked-token"))

	a := &RefreshTokenAuthorizer{
		ClientID: "client-id",
		Tokens:   tokens,
		Endpoint: oauth2.Endpoint{AuthURL: srv.URL + "/authorize", TokenURL: srv.URL + "/token"},
	}
	src, err := a.TokenSource(context.Background())
	require.NoError(t, err)

	_, err = src.Token()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCredentialStale)
	assert.Contains(t, err.Error(), tokens.Path())
}

func TestRefreshTokenAuthorizerMissingFile(t *testing.T) {
	a := &RefreshTokenAuthorizer{
		ClientID: "client-id",
		Tokens:   NewTokenFile(filepath.Join(t.TempDir(), "missing")),
	}
	_, err := a.TokenSource(context.Background())
	require.Error(t, err)
}

func TestClientSecretAuthorizer(t *testing.T) {
	var form url.Values
	var authHeader string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		form = r.PostForm
		authHeader = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"access_token": "cc-access", "token_type": "Bearer", "expires_in": 3600}`)
	}))
	defer srv.Close()

	a := &ClientSecretAuthorizer{ClientID: "client-id", ClientSecret: "shhh", TokenURL: srv.URL + "/token"}
	src, err := a.TokenSource(context.Background())
	require.NoError(t, err)

	token, err := src.Token()
	require.NoError(t, err)
	assert.Equal(t, "cc-access", token.AccessToken)
	assert.Equal(t, "client_credentials", form.Get("grant_type"))
	assert.Contains(t, authHeader, "Basic ")
}

func TestInteractiveAuthorizer(t *testing.T) {
	var form url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		form = r.PostForm
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"access_token": "ia-access", "refresh_token": "ia-refresh", "token_type": "Bearer", "expires_in": 3600}`)
	}))
	defer srv.Close()

	tokens := NewTokenFile(filepath.Join(t.TempDir(), "rt"))
	var out strings.Builder
	a := &InteractiveAuthorizer{
		ClientID: "client-id",
		Tokens:   tokens,
		In:       strings.NewReader("pasted-code\n"),
		Out:      &out,
		Endpoint: oauth2.Endpoint{AuthURL: srv.URL + "/authorize", TokenURL: srv.URL + "/token"},
	}
	src, err := a.TokenSource(context.Background())
	require.NoError(t, err)

	token, err := src.Token()
	require.NoError(t, err)
	assert.Equal(t, "ia-access", token.AccessToken)

	// The exchange carried the pasted code and the PKCE verifier.
	assert.Equal(t, "authorization_code", form.Get("grant_type"))
	assert.Equal(t, "pasted-code", form.Get("code"))
	assert.NotEmpty(t, form.Get("code_verifier"))

	// The login URL asked for offline access with a PKCE challenge.
	assert.Contains(t, out.String(), srv.URL+"/authorize")
	assert.Contains(t, out.String(), "access_type=offline")
	assert.Contains(t, out.String(), "code_challenge=")

	// The refresh token is persisted, not echoed to the terminal.
	saved, err := tokens.Load()
	require.NoError(t, err)
	assert.Equal(t, "ia-refresh", saved)
	assert.NotContains(t, out.String(), "ia-refresh")
	assert.Contains(t, out.String(), tokens.Path())
}

func TestInteractiveAuthorizerNoRefreshToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"access_token": "ia-access", "token_type": "Bearer", "expires_in": 3600}`)
	}))
	defer srv.Close()

	tokens := NewTokenFile(filepath.Join(t.TempDir(), "rt"))
	a := &InteractiveAuthorizer{
		ClientID: "client-id",
		Tokens:   tokens,
		In:       strings.NewReader("code\n"),
		Out:      io.Discard,
		Endpoint: oauth2.Endpoint{AuthURL: srv.URL + "/authorize", TokenURL: srv.URL + "/token"},
	}
	_, err := a.TokenSource(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "refresh token")
	assert.False(t, tokens.Exists())
}

func TestInteractiveAuthorizerEmptyCode(t *testing.T) {
	a := &InteractiveAuthorizer{
		ClientID: "client-id",
		Tokens:   NewTokenFile(filepath.Join(t.TempDir(), "rt")),
		In:       strings.NewReader("\n"),
		Out:      io.Discard,
	}
	_, err := a.TokenSource(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no authorization code")
}

func TestInteractiveAuthorizerExtraScopes(t *testing.T) {
	var out strings.Builder
	a := &InteractiveAuthorizer{
		ClientID: "client-id",
		Tokens:   NewTokenFile(filepath.Join(t.TempDir(), "rt")),
		In:       strings.NewReader("\n"),
		Out:      &out,
		Scopes:   []string{"urn:globus:auth:scope:transfer.api.globus.org:all[*https://auth.globus.org/scopes/ep-1/data_access]"},
	}
	// The empty code stops the flow after the URL is printed.
	_, err := a.TokenSource(context.Background())
	require.Error(t, err)
	assert.Contains(t, out.String(), url.QueryEscape(TransferScope))
	assert.Contains(t, out.String(), "data_access")
}
