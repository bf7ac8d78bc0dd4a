package books

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// maxListPages bounds ListAll in case a server keeps reporting more pages.
const maxListPages = 1000

// validator is implemented by create and update payloads that have
// required fields.
type validator interface {
	Validate() error
}

// resource implements the CRUD accessors shared by every Zoho Books
// resource. T is the record returned by the API, C the create payload and U
// the update payload. single and plural are the response envelope keys.
type resource[T any, C any, U any] struct {
	client *Client
	path   string
	single string
	plural string
}

// List fetches one page. Pagination options are passed through unchanged;
// use ListAll to walk every page.
func (r resource[T, C, U]) List(ctx context.Context, opts *ListOptions) (*Page[T], error) {
	resp, err := r.client.Raw(ctx, Request{
		Method:   http.MethodGet,
		Path:     r.path,
		Query:    opts.Values(),
		Envelope: r.plural,
	})
	if err != nil {
		return nil, err
	}

	page := &Page[T]{}
	if !resp.Empty() {
		if err := resp.Decode(r.plural, &page.Items); err != nil {
			return nil, err
		}
	}
	if page.Context, err = resp.PageContext(); err != nil {
		return nil, err
	}
	return page, nil
}

// ListAll walks pages starting at opts.Page (or 1) until the server reports
// no further page, returning the records in server order.
func (r resource[T, C, U]) ListAll(ctx context.Context, opts *ListOptions) ([]T, error) {
	current := opts.clone()
	if current.Page <= 0 {
		current.Page = 1
	}

	var all []T
	for i := 0; i < maxListPages; i++ {
		page, err := r.List(ctx, &current)
		if err != nil {
			return nil, fmt.Errorf("list %s page %d: %w", r.plural, current.Page, err)
		}
		all = append(all, page.Items...)
		if !page.Context.HasMorePage || len(page.Items) == 0 {
			return all, nil
		}
		current.Page++
	}
	return nil, fmt.Errorf("list %s: more than %d pages", r.plural, maxListPages)
}

// Get fetches one record by id.
func (r resource[T, C, U]) Get(ctx context.Context, id string) (*T, error) {
	path, err := r.itemPath(id)
	if err != nil {
		return nil, err
	}
	record, err := Do[T](ctx, r.client, Request{
		Method:   http.MethodGet,
		Path:     path,
		Envelope: r.single,
	})
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// Create sends the payload and returns the record as stored by the server,
// including generated identifiers and computed totals.
func (r resource[T, C, U]) Create(ctx context.Context, input C) (*T, error) {
	if err := validate(input); err != nil {
		return nil, err
	}
	record, err := Do[T](ctx, r.client, Request{
		Method:   http.MethodPost,
		Path:     r.path,
		Body:     input,
		Envelope: r.single,
	})
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// Update sends the changed fields of the record with the given id.
func (r resource[T, C, U]) Update(ctx context.Context, id string, input U) (*T, error) {
	path, err := r.itemPath(id)
	if err != nil {
		return nil, err
	}
	if err := validate(input); err != nil {
		return nil, err
	}
	record, err := Do[T](ctx, r.client, Request{
		Method:   http.MethodPut,
		Path:     path,
		Body:     input,
		Envelope: r.single,
	})
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// Delete removes the record with the given id.
func (r resource[T, C, U]) Delete(ctx context.Context, id string) (*Message, error) {
	path, err := r.itemPath(id)
	if err != nil {
		return nil, err
	}
	return r.client.message(ctx, http.MethodDelete, path)
}

func (r resource[T, C, U]) itemPath(id string, suffix ...string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", fmt.Errorf("%s id: %w", r.single, ErrInvalidInput)
	}
	parts := append([]string{r.path, url.PathEscape(id)}, suffix...)
	return strings.Join(parts, "/"), nil
}

// message issues a call whose response carries only {code, message}.
func (c *Client) message(ctx context.Context, method, path string) (*Message, error) {
	resp, err := c.Raw(ctx, Request{Method: method, Path: path})
	if err != nil {
		return nil, err
	}
	msg := resp.Message()
	return &msg, nil
}

func validate(input any) error {
	v, ok := input.(validator)
	if !ok {
		return nil
	}
	if err := v.Validate(); err != nil {
		if errors.Is(err, ErrInvalidInput) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return nil
}
