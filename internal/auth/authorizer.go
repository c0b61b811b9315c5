// Package auth produces the authorization the transfer client runs with.
// One capability, three strategies, selected by precedence: a persisted
// refresh token, a configured client secret, or an interactive login that
// persists a refresh token for future runs.
package auth

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// Globus Auth OAuth2 endpoints and the scope covering the Transfer API.
const (
	AuthorizeURL = "https://auth.globus.org/v2/oauth2/authorize"
	TokenURL     = "https://auth.globus.org/v2/oauth2/token"

	// RedirectURL is the out-of-band page that displays the authorization
	// code for the operator to paste back into the terminal.
	RedirectURL = "https://auth.globus.org/v2/web/auth-code"

	// TransferScope grants full access to the Transfer API.
	TransferScope = "urn:globus:auth:scope:transfer.api.globus.org:all"

	// ConsentsURL is where granted consents are reviewed and revoked.
	ConsentsURL = "https://auth.globus.org/v2/web/consents"
)

// ErrCredentialStale flags a persisted refresh token the service no longer
// accepts. The remedy is to delete the token file and log in again.
var ErrCredentialStale = errors.New("refresh token rejected")

// Authorizer yields the token source the transfer client authenticates
// with.
type Authorizer interface {
	TokenSource(ctx context.Context) (oauth2.TokenSource, error)
}

// Select picks the authorization strategy by precedence: the persisted
// refresh token when the token file exists, the client-secret flow when a
// secret is configured, interactive login otherwise. in and out carry the
// interactive prompt when it comes to that.
func Select(clientID, clientSecret string, tokens *TokenFile, in io.Reader, out io.Writer) Authorizer {
	if tokens.Exists() {
		return &RefreshTokenAuthorizer{ClientID: clientID, Tokens: tokens}
	}
	if clientSecret != "" {
		return &ClientSecretAuthorizer{ClientID: clientID, ClientSecret: clientSecret}
	}
	return &InteractiveAuthorizer{ClientID: clientID, Tokens: tokens, In: in, Out: out}
}

// RefreshTokenAuthorizer reuses the refresh token persisted by an earlier
// interactive login. This is the unattended path scheduled runs take.
type RefreshTokenAuthorizer struct {
	ClientID string
	Tokens   *TokenFile

	// Endpoint overrides the Globus Auth endpoints. The zero value selects
	// the public deployment.
	Endpoint oauth2.Endpoint
}

func (a *RefreshTokenAuthorizer) TokenSource(ctx context.Context) (oauth2.TokenSource, error) {
	token, err := a.Tokens.Load()
	if err != nil {
		return nil, err
	}
	conf := &oauth2.Config{
		ClientID: a.ClientID,
		Endpoint: endpointOrDefault(a.Endpoint),
		Scopes:   []string{TransferScope},
	}
	src := conf.TokenSource(ctx, &oauth2.Token{RefreshToken: token})
	return &staleCheckSource{src: src, path: a.Tokens.Path()}, nil
}

// staleCheckSource converts a service-side refresh rejection into
// ErrCredentialStale with the remedy spelled out. The rejection only
// surfaces on first use, so the check has to live in the token source.
type staleCheckSource struct {
	src  oauth2.TokenSource
	path string
}

func (s *staleCheckSource) Token() (*oauth2.Token, error) {
	token, err := s.src.Token()
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) && retrieveErr.ErrorCode == "invalid_grant" {
			return nil, fmt.Errorf("%w: delete %s and log in again", ErrCredentialStale, s.path)
		}
		return nil, err
	}
	return token, nil
}

// ClientSecretAuthorizer is the confidential-client (service account) flow.
// Not normally used; deployments that register a client secret prefer it
// over per-operator refresh tokens.
type ClientSecretAuthorizer struct {
	ClientID     string
	ClientSecret string

	// TokenURL overrides the Globus Auth token endpoint. Empty selects the
	// public deployment.
	TokenURL string
}

func (a *ClientSecretAuthorizer) TokenSource(ctx context.Context) (oauth2.TokenSource, error) {
	tokenURL := a.TokenURL
	if tokenURL == "" {
		tokenURL = TokenURL
	}
	conf := &clientcredentials.Config{
		ClientID:     a.ClientID,
		ClientSecret: a.ClientSecret,
		TokenURL:     tokenURL,
		Scopes:       []string{TransferScope},
	}
	return conf.TokenSource(ctx), nil
}

// InteractiveAuthorizer walks the operator through a browser login and
// persists the resulting refresh token so later runs authenticate without
// prompting.
type InteractiveAuthorizer struct {
	ClientID string
	Tokens   *TokenFile
	In       io.Reader
	Out      io.Writer

	// Scopes are requested in addition to TransferScope. The consent
	// discovery pass uses this to pick up per-endpoint scopes.
	Scopes []string

	// Endpoint overrides the Globus Auth endpoints. The zero value selects
	// the public deployment.
	Endpoint oauth2.Endpoint
}

func (a *InteractiveAuthorizer) TokenSource(ctx context.Context) (oauth2.TokenSource, error) {
	conf := &oauth2.Config{
		ClientID:    a.ClientID,
		Endpoint:    endpointOrDefault(a.Endpoint),
		RedirectURL: RedirectURL,
		Scopes:      append([]string{TransferScope}, a.Scopes...),
	}

	verifier := oauth2.GenerateVerifier()
	authURL := conf.AuthCodeURL(uuid.NewString(), oauth2.AccessTypeOffline, oauth2.S256ChallengeOption(verifier))
	fmt.Fprintf(a.Out, "Please go to this URL and log in:\n\n  %s\n\n", authURL)
	fmt.Fprint(a.Out, "Enter the code you get after login here: ")

	line, err := bufio.NewReader(a.In).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to read authorization code: %w", err)
	}
	code := strings.TrimSpace(line)
	if code == "" {
		return nil, fmt.Errorf("no authorization code entered")
	}

	token, err := conf.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, fmt.Errorf("failed to exchange authorization code: %w", err)
	}
	if token.RefreshToken == "" {
		return nil, fmt.Errorf("login response carried no refresh token")
	}
	if err := a.Tokens.Save(token.RefreshToken); err != nil {
		return nil, err
	}

	fmt.Fprintf(a.Out, "\nRefresh token written to %s for future runs.\n", a.Tokens.Path())
	fmt.Fprintf(a.Out, "Refresh tokens are lifetime credentials; keep the file secret. Consents are managed at %s\n", ConsentsURL)

	return conf.TokenSource(ctx, token), nil
}

func endpointOrDefault(e oauth2.Endpoint) oauth2.Endpoint {
	if e.AuthURL == "" && e.TokenURL == "" {
		return oauth2.Endpoint{AuthURL: AuthorizeURL, TokenURL: TokenURL}
	}
	return e
}
