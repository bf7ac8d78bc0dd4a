package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

// StaticTokenProvider returns a pre-issued access token. It is useful for
// self-client tokens generated in the Zoho API console and in tests.
type StaticTokenProvider struct {
	token string
}

// NewStaticTokenProvider creates a new static token provider with the given token.
func NewStaticTokenProvider(token string) *StaticTokenProvider {
	return &StaticTokenProvider{
		token: strings.TrimSpace(token),
	}
}

// Token returns the static token immediately without any network calls.
func (p *StaticTokenProvider) Token(ctx context.Context) (string, error) {
	if p.token == "" {
		return "", &AuthenticationError{Err: errors.New("static token is empty")}
	}
	return p.token, nil
}

// ForceRefresh cannot obtain anything new and returns the same token.
func (p *StaticTokenProvider) ForceRefresh(ctx context.Context) (string, error) {
	return p.Token(ctx)
}

// InjectHeader injects the static token into the Authorization header.
func (p *StaticTokenProvider) InjectHeader(ctx context.Context, req *http.Request) error {
	token, err := p.Token(ctx)
	if err != nil {
		return err
	}
	SetAuthorization(req, token)
	return nil
}

// Close is a no-op for static token providers.
func (p *StaticTokenProvider) Close() error {
	return nil
}
