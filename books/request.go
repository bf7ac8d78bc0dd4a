package books

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"
)

// Request describes one call against the Zoho Books API.
type Request struct {
	Method string
	// Path is relative to the API base URL, e.g. "/invoices/123".
	Path  string
	Query url.Values
	// Body is encoded as JSON when non-nil.
	Body any
	// Envelope is the response property the payload is nested under, e.g.
	// "invoice" or "invoices". Empty means the whole body is the payload.
	Envelope string
}

// Response is a successful, fully read API response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Empty reports whether the response carried no body, as some delete
// endpoints do.
func (r *Response) Empty() bool {
	return r == nil || len(bytes.TrimSpace(r.Body)) == 0
}

// Decode unmarshals the payload found under envelope into v. An empty
// envelope decodes the whole body.
func (r *Response) Decode(envelope string, v any) error {
	if r.Empty() {
		return fmt.Errorf("zoho books: empty response body")
	}
	raw := r.Body
	if envelope != "" {
		result := gjson.GetBytes(r.Body, escapeKey(envelope))
		if !result.Exists() {
			return fmt.Errorf("zoho books: response has no %q field", envelope)
		}
		raw = []byte(result.Raw)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("zoho books: decode %s: %w", envelopeName(envelope), err)
	}
	return nil
}

// Message returns the {code, message} pair Zoho includes in every body.
func (r *Response) Message() Message {
	if r.Empty() {
		return Message{Message: "success"}
	}
	return Message{
		Code:    int(gjson.GetBytes(r.Body, "code").Int()),
		Message: gjson.GetBytes(r.Body, "message").String(),
	}
}

// PageContext returns the pagination block of a list response. Responses
// without one yield a context with HasMorePage false.
func (r *Response) PageContext() (PageContext, error) {
	var pc PageContext
	if r.Empty() {
		return pc, nil
	}
	result := gjson.GetBytes(r.Body, "page_context")
	if !result.Exists() {
		return pc, nil
	}
	if err := json.Unmarshal([]byte(result.Raw), &pc); err != nil {
		return pc, fmt.Errorf("zoho books: decode page_context: %w", err)
	}
	return pc, nil
}

// Do issues req through c and decodes the payload under req.Envelope into T.
// An empty response body yields the zero T and a nil error.
func Do[T any](ctx context.Context, c *Client, req Request) (T, error) {
	var out T
	resp, err := c.Raw(ctx, req)
	if err != nil {
		return out, err
	}
	if resp.Empty() {
		return out, nil
	}
	if err := resp.Decode(req.Envelope, &out); err != nil {
		return out, err
	}
	return out, nil
}

func encodeBody(body any) ([]byte, error) {
	switch v := body.(type) {
	case nil:
		return nil, nil
	case []byte:
		return v, nil
	case json.RawMessage:
		return v, nil
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("zoho books: encode request body: %w", err)
		}
		return data, nil
	}
}

// escapeKey makes a literal property name safe for gjson path syntax.
func escapeKey(key string) string {
	var b strings.Builder
	for _, r := range key {
		switch r {
		case '.', '*', '?', '|', '#', '@', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

func envelopeName(envelope string) string {
	if envelope == "" {
		return "response"
	}
	return envelope
}
