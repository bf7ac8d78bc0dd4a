package metrics

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"unicode"

	"github.com/torosent/zohobooks/auth"
	"github.com/torosent/zohobooks/books"
)

// ErrorLabel names the kind of a failed attempt for the error breakdown.
// Known error types are found anywhere in the chain; anything else is
// labelled after the innermost error's type.
func ErrorLabel(err error) string {
	if err == nil {
		return "Unknown error"
	}

	var apiErr *books.APIError
	if errors.As(err, &apiErr) {
		return fmt.Sprintf("HTTP %d %s", apiErr.StatusCode, statusText(apiErr.StatusCode))
	}
	var authErr *auth.AuthenticationError
	if errors.As(err, &authErr) {
		return "Authentication error"
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "Context deadline exceeded"
	case errors.Is(err, context.Canceled):
		return "Cancelled"
	case errors.Is(err, books.ErrInvalidInput):
		return "Invalid input"
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return "Network timeout"
		}
		return "Network error"
	}

	return TypeLabel(fmt.Sprintf("%T", innermost(err)))
}

// innermost follows single-error wrapping down to the root cause.
func innermost(err error) error {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err
		}
		err = next
	}
}

// TypeLabel turns a Go type name such as "*json.SyntaxError" into
// "Syntax Error (json)".
func TypeLabel(typeName string) string {
	name := strings.TrimPrefix(strings.TrimSpace(typeName), "*")
	if name == "" {
		return "Unknown error"
	}
	if idx := strings.LastIndex(name, "/"); idx != -1 {
		name = name[idx+1:]
	}

	pkg, ident, found := strings.Cut(name, ".")
	if !found {
		pkg, ident = "", name
	}

	words := splitIdentifier(ident)
	if len(words) == 0 {
		return ident
	}
	label := strings.Join(words, " ")
	if pkg == "" || pkg == "main" {
		return label
	}
	return fmt.Sprintf("%s (%s)", label, pkg)
}

// splitIdentifier breaks a mixed-case identifier into words. Acronym runs
// stay upper case, other words are capitalised.
func splitIdentifier(ident string) []string {
	runes := []rune(ident)
	var words []string
	start := 0
	flush := func(end int) {
		if end <= start {
			return
		}
		word := string(runes[start:end])
		if strings.ToUpper(word) != word {
			word = strings.ToUpper(word[:1]) + strings.ToLower(word[1:])
		}
		words = append(words, word)
		start = end
	}

	for i := 1; i < len(runes); i++ {
		prev, cur := runes[i-1], runes[i]
		nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
		switch {
		case unicode.IsUpper(cur) && (unicode.IsLower(prev) || unicode.IsDigit(prev)):
			flush(i)
		case unicode.IsUpper(cur) && unicode.IsUpper(prev) && nextLower:
			flush(i)
		case unicode.IsDigit(cur) && !unicode.IsDigit(prev):
			flush(i)
		}
	}
	flush(len(runes))
	return words
}
