package books

import (
	"net/url"
	"strconv"
	"strings"
)

// PageContext is the pagination metadata Zoho attaches to list responses.
type PageContext struct {
	Page        int    `json:"page"`
	PerPage     int    `json:"per_page"`
	HasMorePage bool   `json:"has_more_page"`
	ReportName  string `json:"report_name,omitempty"`
	SortColumn  string `json:"sort_column,omitempty"`
	SortOrder   string `json:"sort_order,omitempty"`
}

// ListOptions are passed through as query parameters on list calls. The
// zero value asks for the server defaults (page 1, 200 per page).
type ListOptions struct {
	Page       int
	PerPage    int
	SortColumn string
	SortOrder  string // "A" or "D"
	SearchText string
	// Filters holds resource specific parameters such as "status",
	// "customer_id" or "filter_by".
	Filters map[string]string
}

// Values encodes the options as query parameters.
func (o *ListOptions) Values() url.Values {
	values := url.Values{}
	if o == nil {
		return values
	}
	if o.Page > 0 {
		values.Set("page", strconv.Itoa(o.Page))
	}
	if o.PerPage > 0 {
		values.Set("per_page", strconv.Itoa(o.PerPage))
	}
	if s := strings.TrimSpace(o.SortColumn); s != "" {
		values.Set("sort_column", s)
	}
	if s := strings.TrimSpace(o.SortOrder); s != "" {
		values.Set("sort_order", s)
	}
	if s := strings.TrimSpace(o.SearchText); s != "" {
		values.Set("search_text", s)
	}
	for key, value := range o.Filters {
		if strings.TrimSpace(key) == "" {
			continue
		}
		values.Set(key, value)
	}
	return values
}

func (o *ListOptions) clone() ListOptions {
	if o == nil {
		return ListOptions{}
	}
	out := *o
	if o.Filters != nil {
		out.Filters = make(map[string]string, len(o.Filters))
		for k, v := range o.Filters {
			out.Filters[k] = v
		}
	}
	return out
}

// Page is one page of a list call.
type Page[T any] struct {
	Items   []T
	Context PageContext
}
