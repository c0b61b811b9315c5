package auth

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/SuperDARNCanada/globus/internal/transfer"
)

func consentTestClient(t *testing.T, handler http.Handler) *transfer.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	tokens := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "test-token"})
	return transfer.NewClient(tokens, transfer.WithBaseURL(srv.URL))
}

func TestMissingScopes(t *testing.T) {
	scopeFor := func(endpointID string) string {
		return fmt.Sprintf("urn:globus:auth:scope:transfer.api.globus.org:all[*https://auth.globus.org/scopes/%s/data_access]", endpointID)
	}

	client := consentTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Path shape: /operation/endpoint/{id}/ls
		endpointID := strings.Split(r.URL.Path, "/")[3]
		switch endpointID {
		case "ep-open":
			fmt.Fprint(w, `{"DATA": []}`)
		case "ep-gone":
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"code": "ClientError.NotFound", "message": "no such endpoint"}`)
		default:
			w.WriteHeader(http.StatusForbidden)
			fmt.Fprintf(w, `{"code": "ConsentRequired", "message": "Missing required data_access consent", "required_scopes": [%q]}`, scopeFor(endpointID))
		}
	}))

	// ep-gone answers with an ordinary API error: the probe got past
	// authorization there, so it contributes no scopes. The duplicate
	// ep-locked probe must not duplicate its scope.
	scopes, err := MissingScopes(context.Background(), client, "ep-open", "ep-locked", "ep-gone", "ep-locked")
	require.NoError(t, err)
	require.Len(t, scopes, 1)
	assert.Contains(t, scopes[0], "ep-locked")
}

func TestMissingScopesAllGranted(t *testing.T) {
	client := consentTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"DATA": []}`)
	}))

	scopes, err := MissingScopes(context.Background(), client, "ep-1", "ep-2")
	require.NoError(t, err)
	assert.Empty(t, scopes)
}

func TestMissingScopesUnauthorized(t *testing.T) {
	client := consentTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"code": "AuthenticationFailed", "message": "bad token"}`)
	}))

	_, err := MissingScopes(context.Background(), client, "ep-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ep-1")
}
