package books

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/time/rate"

	"github.com/torosent/zohobooks/auth"
	"github.com/torosent/zohobooks/internal/tracing"
)

const (
	defaultTimeout   = 30 * time.Second
	defaultUserAgent = "zohobooks-go"

	// RequestIDHeader carries a per-attempt identifier for log correlation.
	RequestIDHeader = "X-Request-Id"
)

// Observation describes one HTTP attempt made by the client.
type Observation struct {
	Method     string
	Path       string
	Resource   string
	StatusCode int
	Attempt    int
	Latency    time.Duration
	Err        error
}

// Recorder receives an Observation for every attempt.
type Recorder interface {
	Observe(Observation)
}

// Client is an authenticated Zoho Books API client. It is safe for
// concurrent use.
type Client struct {
	organizationID string
	baseURL        string
	httpClient     *http.Client
	provider       auth.Provider
	limiter        *rate.Limiter
	tracer         trace.Tracer
	propagate      bool
	recorder       Recorder
	logger         zerolog.Logger
	userAgent      string

	Taxes    *TaxService
	Invoices *InvoiceService
	Contacts *ContactService
	Items    *ItemService
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API base URL (default: US data center).
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	}
}

// WithDataCenter selects the API host of dc.
func WithDataCenter(dc auth.DataCenter) Option {
	return func(c *Client) {
		c.baseURL = dc.APIURL()
	}
}

// WithHTTPClient sets the HTTP client used for API calls.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithTimeout sets the per-attempt timeout. A client passed through
// WithHTTPClient is copied, never modified.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			hc := *c.httpClient
			hc.Timeout = d
			c.httpClient = &hc
		}
	}
}

// WithRateLimit paces requests to at most perMinute per minute. Zoho Books
// allows 100 requests per minute per organization.
func WithRateLimit(perMinute int) Option {
	return func(c *Client) {
		if perMinute <= 0 {
			c.limiter = nil
			return
		}
		// Burst equal to the budget to match Zoho's per-minute window.
		c.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), perMinute)
	}
}

// WithLimiter installs a caller-provided limiter.
func WithLimiter(limiter *rate.Limiter) Option {
	return func(c *Client) {
		c.limiter = limiter
	}
}

// WithLogger sets the logger for request events.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithTracer enables a client span per attempt. When propagate is true, W3C
// trace context headers are added to outgoing requests.
func WithTracer(tracer trace.Tracer, propagate bool) Option {
	return func(c *Client) {
		if tracer != nil {
			c.tracer = tracer
		}
		c.propagate = propagate
	}
}

// WithRecorder sets the sink for per-attempt observations.
func WithRecorder(recorder Recorder) Option {
	return func(c *Client) {
		c.recorder = recorder
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(userAgent string) Option {
	return func(c *Client) {
		if strings.TrimSpace(userAgent) != "" {
			c.userAgent = userAgent
		}
	}
}

// New creates a client for one organization. provider supplies access
// tokens; it is typically an *auth.TokenManager.
func New(organizationID string, provider auth.Provider, opts ...Option) (*Client, error) {
	organizationID = strings.TrimSpace(organizationID)
	if organizationID == "" {
		return nil, errors.New("zoho books: organization id is required")
	}
	if provider == nil {
		return nil, errors.New("zoho books: token provider is required")
	}

	c := &Client{
		organizationID: organizationID,
		baseURL:        auth.DataCenterUS.APIURL(),
		httpClient:     &http.Client{Timeout: defaultTimeout},
		provider:       provider,
		tracer:         noop.NewTracerProvider().Tracer("zohobooks"),
		logger:         zerolog.Nop(),
		userAgent:      defaultUserAgent,
	}
	for _, opt := range opts {
		opt(c)
	}
	if _, err := url.Parse(c.baseURL); err != nil || c.baseURL == "" {
		return nil, fmt.Errorf("zoho books: invalid base URL %q", c.baseURL)
	}

	c.Taxes = &TaxService{resource[Tax, TaxInput, TaxInput]{client: c, path: "/settings/taxes", single: "tax", plural: "taxes"}}
	c.Invoices = newInvoiceService(c)
	c.Contacts = &ContactService{resource[Contact, CreateContact, UpdateContact]{client: c, path: "/contacts", single: "contact", plural: "contacts"}}
	c.Items = &ItemService{resource[Item, ItemInput, ItemInput]{client: c, path: "/items", single: "item", plural: "items"}}

	return c, nil
}

// OrganizationID returns the organization every request is scoped to.
func (c *Client) OrganizationID() string {
	return c.organizationID
}

// Raw performs an authenticated request and returns the response body
// without decoding it. A 401 response triggers exactly one forced token
// refresh and one retry. Any other status >= 400, or a second 401, is
// returned as *APIError.
func (c *Client) Raw(ctx context.Context, req Request) (*Response, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if req.Method == "" {
		req.Method = http.MethodGet
	}
	req.Method = strings.ToUpper(req.Method)

	payload, err := encodeBody(req.Body)
	if err != nil {
		return nil, err
	}

	token, err := c.provider.Token(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := c.send(ctx, req, payload, token, 1)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized {
		c.logger.Warn().
			Str("method", req.Method).
			Str("path", req.Path).
			Msg("zoho books: access token rejected, refreshing and retrying once")

		token, err = c.provider.ForceRefresh(ctx)
		if err != nil {
			return nil, err
		}
		resp, err = c.send(ctx, req, payload, token, 2)
		if err != nil {
			return nil, err
		}
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, newAPIError(req.Method, req.Path, resp.StatusCode, resp.Body)
	}
	return resp, nil
}

func (c *Client) send(ctx context.Context, req Request, payload []byte, token string, attempt int) (*Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("zoho books: rate limiter: %w", err)
		}
	}

	ctx, span := tracing.StartRequestSpan(ctx, c.tracer, req.Method, req.Path, attempt)

	start := time.Now()
	resp, err := c.roundTrip(ctx, req, payload, token)
	latency := time.Since(start)

	obs := Observation{
		Method:   req.Method,
		Path:     req.Path,
		Resource: resourceName(req.Path),
		Attempt:  attempt,
		Latency:  latency,
		Err:      err,
	}
	if resp != nil {
		obs.StatusCode = resp.StatusCode
		if resp.StatusCode >= http.StatusBadRequest && obs.Err == nil {
			obs.Err = newAPIError(req.Method, req.Path, resp.StatusCode, resp.Body)
		}
	}
	if c.recorder != nil {
		c.recorder.Observe(obs)
	}
	tracing.EndSpan(span, obs.Err, attribute.Int("http.response.status_code", obs.StatusCode))

	event := c.logger.Debug()
	if err != nil {
		event = c.logger.Error().Err(err)
	}
	event.
		Str("method", req.Method).
		Str("path", req.Path).
		Int("status", obs.StatusCode).
		Int("attempt", attempt).
		Dur("latency", latency).
		Msg("zoho books: request completed")

	return resp, err
}

func (c *Client) roundTrip(ctx context.Context, req Request, payload []byte, token string) (*Response, error) {
	target, err := c.buildURL(req.Path, req.Query)
	if err != nil {
		return nil, err
	}

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, body)
	if err != nil {
		return nil, fmt.Errorf("zoho books: create request: %w", err)
	}

	auth.SetAuthorization(httpReq, token)
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", c.userAgent)
	httpReq.Header.Set(RequestIDHeader, ulid.Make().String())
	if payload != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if c.propagate {
		tracing.InjectHTTPHeaders(ctx, httpReq.Header)
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("zoho books: %s %s: %w", req.Method, req.Path, err)
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("zoho books: read response: %w", err)
	}

	return &Response{
		StatusCode: httpResp.StatusCode,
		Header:     httpResp.Header,
		Body:       data,
	}, nil
}

// buildURL joins the base URL, path and query, always adding the
// organization id.
func (c *Client) buildURL(path string, query url.Values) (string, error) {
	u, err := url.Parse(c.baseURL + "/" + strings.TrimLeft(path, "/"))
	if err != nil {
		return "", fmt.Errorf("zoho books: invalid path %q: %w", path, err)
	}
	values := u.Query()
	for key, vals := range query {
		for _, v := range vals {
			values.Add(key, v)
		}
	}
	values.Set("organization_id", c.organizationID)
	u.RawQuery = values.Encode()
	return u.String(), nil
}

// resourceName maps "/settings/taxes/123" to "taxes" and "/invoices/1/status/void"
// to "invoices".
func resourceName(path string) string {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) > 1 && parts[0] == "settings" {
		return parts[1]
	}
	return parts[0]
}
