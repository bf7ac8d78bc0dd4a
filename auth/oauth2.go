package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
)

const (
	// DefaultScope grants access to every Zoho Books API.
	DefaultScope = "ZohoBooks.fullaccess.all"

	defaultExpiryLeeway  = time.Minute
	defaultTokenLifetime = time.Hour
)

// Credentials identify the OAuth2 client and the grant used to obtain
// access tokens. Exactly one of RefreshToken and AuthorizationCode is needed.
type Credentials struct {
	OrganizationID    string
	ClientID          string
	ClientSecret      string
	RefreshToken      string
	AuthorizationCode string
	RedirectURI       string
	Scopes            []string
}

// Validate reports the first missing field.
func (c Credentials) Validate() error {
	switch {
	case strings.TrimSpace(c.ClientID) == "":
		return errors.New("client id is required")
	case strings.TrimSpace(c.ClientSecret) == "":
		return errors.New("client secret is required")
	case strings.TrimSpace(c.RefreshToken) == "" && strings.TrimSpace(c.AuthorizationCode) == "":
		return errors.New("either a refresh token or an authorization code is required")
	}
	return nil
}

// Token is the cached access token and the instant it stops being used.
type Token struct {
	AccessToken string
	ExpiresAt   time.Time
}

// TokenManager implements Provider on top of the Zoho accounts server. It is
// safe for concurrent use; concurrent callers that find the token expired
// share a single acquisition call.
type TokenManager struct {
	creds      Credentials
	config     *oauth2.Config
	httpClient *http.Client
	leeway     time.Duration
	now        func() time.Time
	logger     zerolog.Logger

	mu              sync.Mutex
	token           Token
	refreshToken    string
	codeExchanged   bool
	fetchInProgress bool
	fetchCond       *sync.Cond
}

// Option configures a TokenManager.
type Option func(*TokenManager)

// WithDataCenter points the manager at the accounts server of dc.
func WithDataCenter(dc DataCenter) Option {
	return func(m *TokenManager) {
		m.config.Endpoint.TokenURL = dc.TokenURL()
		m.config.Endpoint.AuthURL = dc.AuthURL()
	}
}

// WithTokenURL overrides the token endpoint.
func WithTokenURL(tokenURL string) Option {
	return func(m *TokenManager) {
		m.config.Endpoint.TokenURL = tokenURL
	}
}

// WithAuthURL overrides the consent endpoint used by AuthCodeURL.
func WithAuthURL(authURL string) Option {
	return func(m *TokenManager) {
		m.config.Endpoint.AuthURL = authURL
	}
}

// WithHTTPClient sets the client used for token endpoint calls.
func WithHTTPClient(client *http.Client) Option {
	return func(m *TokenManager) {
		if client != nil {
			m.httpClient = client
		}
	}
}

// WithExpiryLeeway sets how long before the provider-declared expiry the
// token is considered stale.
func WithExpiryLeeway(d time.Duration) Option {
	return func(m *TokenManager) {
		if d >= 0 {
			m.leeway = d
		}
	}
}

// WithLogger sets the logger for token lifecycle events.
func WithLogger(logger zerolog.Logger) Option {
	return func(m *TokenManager) {
		m.logger = logger
	}
}

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(m *TokenManager) {
		if now != nil {
			m.now = now
		}
	}
}

// NewTokenManager creates a token manager for the given credentials. No
// network call is made until the first Token call.
func NewTokenManager(creds Credentials, opts ...Option) (*TokenManager, error) {
	if err := creds.Validate(); err != nil {
		return nil, fmt.Errorf("invalid credentials: %w", err)
	}

	scopes := creds.Scopes
	if len(scopes) == 0 {
		scopes = []string{DefaultScope}
	}

	m := &TokenManager{
		creds: creds,
		config: &oauth2.Config{
			ClientID:     creds.ClientID,
			ClientSecret: creds.ClientSecret,
			RedirectURL:  creds.RedirectURI,
			Scopes:       scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:  DataCenterUS.AuthURL(),
				TokenURL: DataCenterUS.TokenURL(),
				// Zoho expects the client credentials as form parameters.
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		leeway:       defaultExpiryLeeway,
		now:          time.Now,
		logger:       zerolog.Nop(),
		refreshToken: strings.TrimSpace(creds.RefreshToken),
	}
	m.fetchCond = sync.NewCond(&m.mu)

	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Token returns a non-expired access token, acquiring a new one if none is
// cached or the cached one has expired.
func (m *TokenManager) Token(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.validLocked() {
		return m.token.AccessToken, nil
	}

	// If another goroutine is already fetching, wait for it
	for m.fetchInProgress {
		m.fetchCond.Wait()
		if m.validLocked() {
			return m.token.AccessToken, nil
		}
	}

	return m.acquireLocked(ctx)
}

// ForceRefresh discards the cached token and acquires a new one regardless
// of its expiry.
func (m *TokenManager) ForceRefresh(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for m.fetchInProgress {
		m.fetchCond.Wait()
	}

	m.token = Token{}
	m.logger.Info().Msg("zoho auth: forcing access token refresh")
	return m.acquireLocked(ctx)
}

// Current returns a copy of the cached token without refreshing it.
func (m *TokenManager) Current() Token {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token
}

// RefreshToken returns the refresh token in use. After an authorization
// code exchange it is the one issued by the accounts server, which callers
// should persist since the code cannot be exchanged again.
func (m *TokenManager) RefreshToken() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.refreshToken
}

// InjectHeader injects the access token into the Authorization header.
func (m *TokenManager) InjectHeader(ctx context.Context, req *http.Request) error {
	token, err := m.Token(ctx)
	if err != nil {
		return fmt.Errorf("failed to get token: %w", err)
	}
	SetAuthorization(req, token)
	return nil
}

// AuthCodeURL builds the consent page URL a user visits to grant offline
// access. The resulting authorization code can be passed back through
// Credentials.AuthorizationCode.
func (m *TokenManager) AuthCodeURL(state string) string {
	return consentURL(m.config, state)
}

// ConsentURL builds the consent page URL before any grant exists, when a
// TokenManager cannot be created yet. An empty authURL selects dc.
func ConsentURL(dc DataCenter, authURL, clientID, redirectURI, state string, scopes ...string) string {
	if strings.TrimSpace(authURL) == "" {
		authURL = dc.AuthURL()
	}
	if len(scopes) == 0 {
		scopes = []string{DefaultScope}
	}
	return consentURL(&oauth2.Config{
		ClientID:    clientID,
		RedirectURL: redirectURI,
		Scopes:      scopes,
		Endpoint:    oauth2.Endpoint{AuthURL: authURL},
	}, state)
}

func consentURL(cfg *oauth2.Config, state string) string {
	return cfg.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
	)
}

// Close releases resources held by the manager.
func (m *TokenManager) Close() error {
	m.httpClient.CloseIdleConnections()
	return nil
}

func (m *TokenManager) validLocked() bool {
	return m.token.AccessToken != "" && m.now().Before(m.token.ExpiresAt)
}

// acquireLocked performs one acquisition call. The caller holds m.mu; the
// lock is released for the duration of the network call.
func (m *TokenManager) acquireLocked(ctx context.Context) (string, error) {
	m.fetchInProgress = true
	refreshToken := m.refreshToken
	exchange := refreshToken == "" && !m.codeExchanged
	if exchange {
		m.codeExchanged = true
	}
	m.mu.Unlock()

	tok, err := m.fetch(ctx, refreshToken, exchange)

	m.mu.Lock()
	m.fetchInProgress = false
	m.fetchCond.Broadcast()

	if err != nil {
		if exchange && !codeRejected(err) {
			// The code was never consumed; the next call may exchange it.
			m.codeExchanged = false
		}
		m.logger.Error().Err(err).Msg("zoho auth: token acquisition failed")
		return "", err
	}

	issued := m.now()
	lifetime := time.Duration(tok.ExpiresIn) * time.Second
	if lifetime <= 0 {
		if !tok.Expiry.IsZero() {
			lifetime = time.Until(tok.Expiry)
		} else {
			lifetime = defaultTokenLifetime
		}
	}

	m.token = Token{
		AccessToken: tok.AccessToken,
		ExpiresAt:   issued.Add(lifetime - m.leeway),
	}
	if tok.RefreshToken != "" {
		m.refreshToken = tok.RefreshToken
	}

	m.logger.Debug().
		Time("expires_at", m.token.ExpiresAt).
		Bool("authorization_code", exchange).
		Msg("zoho auth: obtained new access token")

	return m.token.AccessToken, nil
}

func (m *TokenManager) fetch(ctx context.Context, refreshToken string, exchange bool) (*oauth2.Token, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, m.httpClient)

	var (
		tok *oauth2.Token
		err error
	)
	switch {
	case refreshToken != "":
		tok, err = m.config.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
	case exchange:
		tok, err = m.config.Exchange(ctx, strings.TrimSpace(m.creds.AuthorizationCode))
	default:
		err = ErrNoRefreshToken
	}
	if err != nil {
		return nil, asAuthenticationError(err)
	}
	if tok.AccessToken == "" {
		return nil, &AuthenticationError{Err: errors.New("no access token in response")}
	}
	return tok, nil
}
