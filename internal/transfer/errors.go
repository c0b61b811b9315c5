package transfer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// APIError is a decoded Transfer API error document. The service reports
// every failure as JSON with a machine-readable code; ConsentRequired
// additionally carries the authorization scopes the caller is missing.
type APIError struct {
	StatusCode     int      `json:"-"`
	Code           string   `json:"code"`
	Message        string   `json:"message"`
	RequestID      string   `json:"request_id"`
	RequiredScopes []string `json:"required_scopes"`
}

func (e *APIError) Error() string {
	code := e.Code
	if code == "" {
		code = fmt.Sprintf("HTTP %d", e.StatusCode)
	}
	if e.RequestID != "" {
		return fmt.Sprintf("transfer API error %s: %s (request id %s)", code, e.Message, e.RequestID)
	}
	return fmt.Sprintf("transfer API error %s: %s", code, e.Message)
}

// decodeAPIError turns a non-2xx response body into an APIError. Bodies
// that are not the usual JSON document (proxies, gateways) are kept as the
// raw message so diagnostics never get swallowed.
func decodeAPIError(statusCode int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: statusCode}
	if err := json.Unmarshal(body, apiErr); err != nil || (apiErr.Code == "" && apiErr.Message == "") {
		*apiErr = APIError{
			StatusCode: statusCode,
			Message:    truncate(strings.TrimSpace(string(body)), 200),
		}
	}
	return apiErr
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n] + "..."
	}
	return s
}

// IsConsentRequired reports whether err is the service demanding additional
// authorization scopes before it will touch an endpoint.
func IsConsentRequired(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == "ConsentRequired"
}

// IsTransient reports whether err is worth retrying: request timeouts and
// service-side API errors clear on retry against the mirror, while
// credential rejections and connection-level failures do not.
func IsTransient(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return false
		}
		return true
	}
	var uerr *url.Error
	if errors.As(err, &uerr) {
		return uerr.Timeout()
	}
	return errors.Is(err, context.DeadlineExceeded)
}
