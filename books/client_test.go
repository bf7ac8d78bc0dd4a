package books

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"golang.org/x/time/rate"

	"github.com/torosent/zohobooks/auth"
)

const testOrg = "10234695"

// fakeProvider hands out "stale" until ForceRefresh is called, then "fresh".
type fakeProvider struct {
	mu           sync.Mutex
	refreshed    bool
	tokenCalls   int
	refreshCalls int
	refreshErr   error
}

func (p *fakeProvider) Token(context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tokenCalls++
	if p.refreshed {
		return "fresh", nil
	}
	return "stale", nil
}

func (p *fakeProvider) ForceRefresh(context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.refreshCalls++
	if p.refreshErr != nil {
		return "", p.refreshErr
	}
	p.refreshed = true
	return "fresh", nil
}

func (p *fakeProvider) InjectHeader(ctx context.Context, req *http.Request) error {
	token, err := p.Token(ctx)
	if err != nil {
		return err
	}
	auth.SetAuthorization(req, token)
	return nil
}

func (p *fakeProvider) Close() error { return nil }

func (p *fakeProvider) counts() (int, int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.tokenCalls, p.refreshCalls
}

type recorderFunc func(Observation)

func (f recorderFunc) Observe(obs Observation) { f(obs) }

func newTestClient(t *testing.T, handler http.HandlerFunc, opts ...Option) (*Client, *fakeProvider) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	provider := &fakeProvider{}
	client, err := New(testOrg, provider, append([]Option{WithBaseURL(srv.URL)}, opts...)...)
	require.NoError(t, err)
	return client, provider
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	io.WriteString(w, body)
}

func TestNewValidatesArguments(t *testing.T) {
	_, err := New(" ", &fakeProvider{})
	assert.Error(t, err)

	_, err = New(testOrg, nil)
	assert.Error(t, err)

	client, err := New(testOrg, &fakeProvider{})
	require.NoError(t, err)
	assert.Equal(t, auth.DataCenterUS.APIURL(), client.baseURL)
	assert.Equal(t, testOrg, client.OrganizationID())
	assert.NotNil(t, client.Taxes)
	assert.NotNil(t, client.Invoices)
	assert.NotNil(t, client.Contacts)
	assert.NotNil(t, client.Items)

	eu, err := New(testOrg, &fakeProvider{}, WithDataCenter(auth.DataCenterEU))
	require.NoError(t, err)
	assert.Equal(t, "https://www.zohoapis.eu/books/v3", eu.baseURL)
}

func TestWithTimeoutLeavesCallerClientAlone(t *testing.T) {
	own := &http.Client{Timeout: time.Minute}
	client, err := New(testOrg, &fakeProvider{}, WithHTTPClient(own), WithTimeout(5*time.Second))
	require.NoError(t, err)

	assert.Equal(t, time.Minute, own.Timeout)
	assert.Equal(t, 5*time.Second, client.httpClient.Timeout)
	assert.NotSame(t, own, client.httpClient)
}

func TestRequestCarriesOrganizationAndToken(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, testOrg, r.URL.Query().Get("organization_id"))
		assert.Equal(t, "overdue", r.URL.Query().Get("status"))
		assert.Equal(t, "Zoho-oauthtoken stale", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		assert.Equal(t, "zohobooks-go", r.Header.Get("User-Agent"))
		assert.Len(t, r.Header.Get(RequestIDHeader), 26)
		writeJSON(w, http.StatusOK, `{"code":0,"message":"success","invoices":[]}`)
	})

	_, err := client.Invoices.List(context.Background(), &ListOptions{Filters: map[string]string{"status": "overdue"}})
	require.NoError(t, err)
}

func TestOrganizationIDCannotBeOverridden(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, []string{testOrg}, r.URL.Query()["organization_id"])
		writeJSON(w, http.StatusOK, `{"code":0,"message":"success"}`)
	})

	_, err := client.Raw(context.Background(), Request{
		Path:  "/items",
		Query: map[string][]string{"organization_id": {"999"}},
	})
	require.NoError(t, err)
}

func TestUnauthorizedRefreshesOnceAndRetries(t *testing.T) {
	var hits atomic.Int32
	var observed []Observation
	client, provider := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.Header.Get("Authorization") != "Zoho-oauthtoken fresh" {
			writeJSON(w, http.StatusUnauthorized, `{"code":57,"message":"You are not authorized to perform this operation"}`)
			return
		}
		writeJSON(w, http.StatusOK, `{"code":0,"message":"success","invoice":{"invoice_id":"982000000567114","total":40.6}}`)
	}, WithRecorder(recorderFunc(func(obs Observation) { observed = append(observed, obs) })))

	invoice, err := client.Invoices.Get(context.Background(), "982000000567114")
	require.NoError(t, err)
	assert.Equal(t, "982000000567114", invoice.InvoiceID)
	assert.Equal(t, 40.6, invoice.Total)

	assert.Equal(t, int32(2), hits.Load())
	tokens, refreshes := provider.counts()
	assert.Equal(t, 1, tokens)
	assert.Equal(t, 1, refreshes)

	require.Len(t, observed, 2)
	assert.Equal(t, 1, observed[0].Attempt)
	assert.Equal(t, http.StatusUnauthorized, observed[0].StatusCode)
	assert.True(t, IsUnauthorized(observed[0].Err))
	assert.Equal(t, 2, observed[1].Attempt)
	assert.Equal(t, http.StatusOK, observed[1].StatusCode)
	assert.NoError(t, observed[1].Err)
	assert.Equal(t, "invoices", observed[1].Resource)
}

func TestUnauthorizedRetryResendsBody(t *testing.T) {
	var (
		mu     sync.Mutex
		bodies []string
	)
	client, provider := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		bodies = append(bodies, string(body))
		mu.Unlock()
		if r.Header.Get("Authorization") != "Zoho-oauthtoken fresh" {
			writeJSON(w, http.StatusUnauthorized, `{"code":57,"message":"You are not authorized to perform this operation"}`)
			return
		}
		writeJSON(w, http.StatusCreated, `{"code":0,"message":"The tax has been added.","tax":{"tax_id":"982000000566009","tax_name":"VAT","tax_percentage":20}}`)
	})

	tax, err := client.Taxes.Create(context.Background(), TaxInput{TaxName: "VAT", TaxPercentage: 20})
	require.NoError(t, err)
	assert.Equal(t, "982000000566009", tax.TaxID)

	_, refreshes := provider.counts()
	assert.Equal(t, 1, refreshes)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, bodies, 2)
	assert.JSONEq(t, `{"tax_name":"VAT","tax_percentage":20}`, bodies[0])
	assert.Equal(t, bodies[0], bodies[1])
}

func TestSecondUnauthorizedIsReturned(t *testing.T) {
	var hits atomic.Int32
	client, provider := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		writeJSON(w, http.StatusUnauthorized, `{"code":57,"message":"You are not authorized to perform this operation"}`)
	})

	_, err := client.Taxes.List(context.Background(), nil)
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, 57, apiErr.Code)
	assert.Equal(t, "GET", apiErr.Method)
	assert.Equal(t, "/settings/taxes", apiErr.Path)
	assert.True(t, IsUnauthorized(err))

	assert.Equal(t, int32(2), hits.Load(), "exactly one retry")
	_, refreshes := provider.counts()
	assert.Equal(t, 1, refreshes)
}

func TestRefreshFailureIsReturned(t *testing.T) {
	var hits atomic.Int32
	client, provider := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		writeJSON(w, http.StatusUnauthorized, `{"code":14,"message":"Invalid OAuth access token."}`)
	})
	provider.refreshErr = &auth.AuthenticationError{StatusCode: http.StatusBadRequest, Err: errors.New("invalid_client")}

	_, err := client.Contacts.Get(context.Background(), "1")
	var authErr *auth.AuthenticationError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, int32(1), hits.Load(), "no retry without a new token")
}

func TestOtherErrorsDoNotRefresh(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		code   int
		check  func(error) bool
	}{
		{"not found", http.StatusNotFound, `{"code":1002,"message":"Invoice does not exist."}`, 1002, IsNotFound},
		{"rate limited", http.StatusTooManyRequests, `{"code":44,"message":"Too many requests"}`, 44, IsRateLimited},
		{"bad request", http.StatusBadRequest, `{"code":4,"message":"Invalid value passed for customer_id"}`, 4, nil},
		{"server error text", http.StatusBadGateway, `upstream unavailable`, 0, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var hits atomic.Int32
			client, provider := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				hits.Add(1)
				writeJSON(w, tt.status, tt.body)
			})

			_, err := client.Invoices.Get(context.Background(), "42")
			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.Equal(t, tt.code, apiErr.Code)
			assert.Equal(t, "/invoices/42", apiErr.Path)
			if tt.code == 0 {
				assert.Contains(t, err.Error(), "upstream unavailable")
			}
			if tt.check != nil {
				assert.True(t, tt.check(err))
			}

			assert.Equal(t, int32(1), hits.Load())
			_, refreshes := provider.counts()
			assert.Zero(t, refreshes)
		})
	}
}

func TestTransportErrorIsWrapped(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	client, err := New(testOrg, &fakeProvider{}, WithBaseURL(srv.URL))
	require.NoError(t, err)

	_, err = client.Items.List(context.Background(), nil)
	require.Error(t, err)
	var apiErr *APIError
	assert.False(t, errors.As(err, &apiErr))
	assert.Contains(t, err.Error(), "GET /items")
}

func TestRateLimiterPacesRequests(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"code":0,"message":"success","items":[]}`)
	}, WithLimiter(rate.NewLimiter(rate.Every(40*time.Millisecond), 1)))

	start := time.Now()
	for i := 0; i < 3; i++ {
		_, err := client.Items.List(context.Background(), nil)
		require.NoError(t, err)
	}
	assert.GreaterOrEqual(t, time.Since(start), 70*time.Millisecond)
}

func TestRateLimiterHonoursContext(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{}`)
	}, WithLimiter(rate.NewLimiter(rate.Every(time.Hour), 1)))

	_, err := client.Raw(context.Background(), Request{Path: "/items"})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = client.Raw(ctx, Request{Path: "/items"})
	assert.Error(t, err)
}

func TestWithRateLimitDisabled(t *testing.T) {
	client, err := New(testOrg, &fakeProvider{}, WithRateLimit(100), WithRateLimit(0))
	require.NoError(t, err)
	assert.Nil(t, client.limiter)

	client, err = New(testOrg, &fakeProvider{}, WithRateLimit(100))
	require.NoError(t, err)
	require.NotNil(t, client.limiter)
	assert.Equal(t, 100, client.limiter.Burst())
}

func TestTracingSpansAndPropagation(t *testing.T) {
	prev := otel.GetTextMapPropagator()
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() { otel.SetTextMapPropagator(prev) })

	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))

	var traceparents []string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		traceparents = append(traceparents, r.Header.Get("traceparent"))
		if r.Header.Get("Authorization") == "Zoho-oauthtoken stale" {
			writeJSON(w, http.StatusUnauthorized, `{"code":57,"message":"not authorized"}`)
			return
		}
		writeJSON(w, http.StatusOK, `{"code":0,"message":"success","contact":{"contact_id":"460000000026049"}}`)
	}, WithTracer(tp.Tracer("test"), true))

	_, err := client.Contacts.Get(context.Background(), "460000000026049")
	require.NoError(t, err)

	spans := sr.Ended()
	require.Len(t, spans, 2)
	for _, span := range spans {
		assert.Equal(t, "GET /contacts/{id}", span.Name())
	}
	require.Len(t, traceparents, 2)
	assert.NotEmpty(t, traceparents[0])
	assert.NotEqual(t, traceparents[0], traceparents[1], "each attempt has its own span")
}

func TestResourceName(t *testing.T) {
	tests := map[string]string{
		"/settings/taxes":         "taxes",
		"/settings/taxes/1":       "taxes",
		"/invoices/1/status/void": "invoices",
		"contacts":                "contacts",
		"/items/9":                "items",
	}
	for path, want := range tests {
		assert.Equal(t, want, resourceName(path), path)
	}
}
