package auth

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/oauth2"
)

// ErrNoRefreshToken is returned when the authorization code has already been
// exchanged and the accounts server did not hand out a refresh token.
var ErrNoRefreshToken = errors.New("authorization code already used and no refresh token was issued")

// AuthenticationError reports a failed token acquisition: bad credentials, a
// revoked refresh token or an accounts server outage.
type AuthenticationError struct {
	StatusCode int    // HTTP status of the token endpoint, 0 if no response
	ErrorCode  string // OAuth2 "error" field, e.g. invalid_client
	Body       string // raw token endpoint response body
	Err        error
}

func (e *AuthenticationError) Error() string {
	var b strings.Builder
	b.WriteString("zoho auth: token request failed")
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " with status %d", e.StatusCode)
	}
	if e.ErrorCode != "" {
		fmt.Fprintf(&b, ": %s", e.ErrorCode)
	} else if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

// codeRejected reports whether the accounts server answered an exchange
// with an OAuth2 error such as invalid_code, after which the code is spent.
func codeRejected(err error) bool {
	var authErr *AuthenticationError
	return errors.As(err, &authErr) && authErr.ErrorCode != ""
}

func (e *AuthenticationError) Unwrap() error {
	return e.Err
}

// asAuthenticationError converts errors returned by x/oauth2 into an
// AuthenticationError that keeps the provider's body.
func asAuthenticationError(err error) error {
	if err == nil {
		return nil
	}
	var authErr *AuthenticationError
	if errors.As(err, &authErr) {
		return authErr
	}
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		out := &AuthenticationError{
			ErrorCode: retrieveErr.ErrorCode,
			Body:      strings.TrimSpace(string(retrieveErr.Body)),
			Err:       err,
		}
		if retrieveErr.Response != nil {
			out.StatusCode = retrieveErr.Response.StatusCode
		}
		return out
	}
	return &AuthenticationError{Err: err}
}
