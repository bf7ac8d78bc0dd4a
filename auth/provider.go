// Package auth manages the OAuth2 access token used to call the Zoho Books API.
//
// A TokenManager trades a refresh token (or a one-time authorization code)
// for short-lived access tokens at the Zoho accounts server, caches the
// current token in memory and replaces it lazily when it expires or when the
// API rejects it.
package auth

import (
	"context"
	"net/http"
)

// AuthorizationScheme is the Authorization header scheme Zoho expects in
// front of an access token.
const AuthorizationScheme = "Zoho-oauthtoken"

// Provider defines the interface for token sources that can obtain access
// tokens and inject them into HTTP requests.
type Provider interface {
	// Token retrieves a valid access token, using the cached value when it
	// has not expired.
	Token(ctx context.Context) (string, error)

	// ForceRefresh discards the cached token and acquires a new one. The API
	// client calls it once after the server answers 401.
	ForceRefresh(ctx context.Context) (string, error)

	// InjectHeader injects the access token into the Authorization header of
	// the provided HTTP request.
	InjectHeader(ctx context.Context, req *http.Request) error

	// Close releases any resources held by the provider.
	Close() error
}

// SetAuthorization writes token into the request's Authorization header.
func SetAuthorization(req *http.Request, token string) {
	req.Header.Set("Authorization", AuthorizationScheme+" "+token)
}
