package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/SuperDARNCanada/globus/internal/transfer"
)

// MissingScopes probes each endpoint with a trivial root listing and
// collects the additional authorization scopes the service demands.
// Stricter deployments answer the probe with ConsentRequired before looking
// at the path at all; any other API error means the probe got past
// authorization and no extra consent is needed there. The returned scopes
// are deduplicated, in first-seen order; empty means every consent is
// already in place.
func MissingScopes(ctx context.Context, client *transfer.Client, endpointIDs ...string) ([]string, error) {
	seen := make(map[string]bool)
	var scopes []string
	for _, id := range endpointIDs {
		_, err := client.ListDirectory(ctx, id, "/", "")
		if err == nil {
			continue
		}

		var apiErr *transfer.APIError
		if !errors.As(err, &apiErr) || apiErr.StatusCode == http.StatusUnauthorized {
			return nil, fmt.Errorf("failed to probe endpoint %s: %w", id, err)
		}
		if !transfer.IsConsentRequired(err) {
			continue
		}
		for _, scope := range apiErr.RequiredScopes {
			if !seen[scope] {
				seen[scope] = true
				scopes = append(scopes, scope)
			}
		}
	}
	return scopes, nil
}
