package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/torosent/zohobooks/auth"
)

// OutputFormat selects how the CLI prints records.
type OutputFormat string

const (
	OutputJSON  OutputFormat = "json"
	OutputYAML  OutputFormat = "yaml"
	OutputTable OutputFormat = "table"
)

// LogFormat selects the logger encoding.
type LogFormat string

const (
	LogFormatConsole LogFormat = "console"
	LogFormatJSON    LogFormat = "json"
)

// DefaultRateLimit is Zoho Books' per-organization budget in requests per
// minute.
const DefaultRateLimit = 100

type Config struct {
	OrganizationID string        `mapstructure:"organization_id"`
	DataCenter     string        `mapstructure:"data_center"`
	BaseURL        string        `mapstructure:"base_url"`
	Timeout        time.Duration `mapstructure:"timeout"`
	RateLimit      int           `mapstructure:"rate_limit"` // requests per minute, 0 disables
	Output         OutputFormat  `mapstructure:"output"`
	Query          string        `mapstructure:"query"`
	Stats          bool          `mapstructure:"stats"`
	LogLevel       string        `mapstructure:"log_level"`
	LogFormat      LogFormat     `mapstructure:"log_format"`
	Auth           AuthConfig    `mapstructure:"auth"`
	Tracing        TracingConfig `mapstructure:"tracing"`
	ConfigFile     string        `mapstructure:"-"`
	EnvFile        string        `mapstructure:"-"`
}

type AuthConfig struct {
	ClientID            string        `mapstructure:"client_id"`
	ClientSecret        string        `mapstructure:"client_secret"`
	RefreshToken        string        `mapstructure:"refresh_token"`
	AuthorizationCode   string        `mapstructure:"authorization_code"`
	RedirectURI         string        `mapstructure:"redirect_uri"`
	Scopes              []string      `mapstructure:"scopes"`
	TokenURL            string        `mapstructure:"token_url"`
	AuthURL             string        `mapstructure:"auth_url"`
	StaticToken         string        `mapstructure:"static_token"`
	RefreshBeforeExpiry time.Duration `mapstructure:"refresh_before_expiry"`
}

// UsesStaticToken reports whether a pre-issued access token replaces the
// OAuth2 grant.
func (a AuthConfig) UsesStaticToken() bool {
	return strings.TrimSpace(a.StaticToken) != ""
}

// Credentials converts the settings into token manager credentials.
func (c Config) Credentials() auth.Credentials {
	return auth.Credentials{
		OrganizationID:    c.OrganizationID,
		ClientID:          c.Auth.ClientID,
		ClientSecret:      c.Auth.ClientSecret,
		RefreshToken:      c.Auth.RefreshToken,
		AuthorizationCode: c.Auth.AuthorizationCode,
		RedirectURI:       c.Auth.RedirectURI,
		Scopes:            c.Auth.Scopes,
	}
}

type TracingConfig struct {
	Endpoint    string  `mapstructure:"endpoint"`
	Protocol    string  `mapstructure:"protocol"` // grpc or http
	ServiceName string  `mapstructure:"service_name"`
	Insecure    bool    `mapstructure:"insecure"`
	SampleRate  float64 `mapstructure:"sample_rate"`
	Propagate   *bool   `mapstructure:"propagate"`
}

// Enabled reports whether an exporter endpoint is configured.
func (t TracingConfig) Enabled() bool {
	return strings.TrimSpace(t.Endpoint) != "" || os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT") != ""
}

// ShouldPropagate defaults to true when tracing is enabled.
func (t TracingConfig) ShouldPropagate() bool {
	if t.Propagate != nil {
		return *t.Propagate
	}
	return t.Enabled()
}

type ValidationError struct {
	issues []string
}

func (e ValidationError) Error() string {
	if len(e.issues) == 0 {
		return "validation failed"
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(e.issues, "; "))
}

func (e ValidationError) Issues() []string {
	return append([]string(nil), e.issues...)
}

// Validate checks everything needed to call the API.
func (c Config) Validate() error {
	issues := c.commonIssues()

	if strings.TrimSpace(c.OrganizationID) == "" {
		issues = append(issues, "organization_id is required (flag --organization-id or ZOHO_ORGANIZATION_ID)")
	}
	issues = append(issues, validateAuthConfig(c.Auth)...)

	if c.Auth.UsesStaticToken() {
		fmt.Fprintln(os.Stderr, "WARNING: static access tokens expire after an hour and cannot be refreshed. Prefer a refresh token.")
	}

	if len(issues) > 0 {
		return ValidationError{issues: issues}
	}
	return nil
}

// ValidateConsent checks what is needed to build a consent URL, which
// happens before any grant exists.
func (c Config) ValidateConsent() error {
	issues := c.commonIssues()
	if strings.TrimSpace(c.Auth.ClientID) == "" {
		issues = append(issues, "auth: client_id is required")
	}
	if strings.TrimSpace(c.Auth.RedirectURI) == "" {
		issues = append(issues, "auth: redirect_uri is required")
	}
	if len(issues) > 0 {
		return ValidationError{issues: issues}
	}
	return nil
}

// ValidateCredentials checks what is needed to obtain an access token
// without calling the API.
func (c Config) ValidateCredentials() error {
	issues := append(c.commonIssues(), validateAuthConfig(c.Auth)...)
	if len(issues) > 0 {
		return ValidationError{issues: issues}
	}
	return nil
}

func (c Config) commonIssues() []string {
	var issues []string

	if _, err := auth.ParseDataCenter(c.DataCenter); err != nil {
		issues = append(issues, err.Error())
	}
	if c.Timeout < 0 {
		issues = append(issues, "timeout must be >= 0")
	}
	if c.RateLimit < 0 {
		issues = append(issues, "rate_limit must be >= 0")
	}
	switch c.Output {
	case "", OutputJSON, OutputYAML, OutputTable:
	default:
		issues = append(issues, fmt.Sprintf("output must be 'json', 'yaml' or 'table', got %q", c.Output))
	}
	switch c.LogFormat {
	case "", LogFormatConsole, LogFormatJSON:
	default:
		issues = append(issues, fmt.Sprintf("log_format must be 'console' or 'json', got %q", c.LogFormat))
	}
	if c.Auth.RefreshBeforeExpiry < 0 {
		issues = append(issues, "auth: refresh_before_expiry must be >= 0")
	}
	issues = append(issues, validateTracingConfig(c.Tracing)...)

	return issues
}

func validateAuthConfig(a AuthConfig) []string {
	if a.UsesStaticToken() {
		return nil
	}

	var issues []string
	if strings.TrimSpace(a.ClientID) == "" {
		issues = append(issues, "auth: client_id is required")
	}
	if strings.TrimSpace(a.ClientSecret) == "" {
		issues = append(issues, "auth: client_secret is required")
	}
	hasRefresh := strings.TrimSpace(a.RefreshToken) != ""
	hasCode := strings.TrimSpace(a.AuthorizationCode) != ""
	switch {
	case !hasRefresh && !hasCode:
		issues = append(issues, "auth: refresh_token or authorization_code is required")
	case !hasRefresh && strings.TrimSpace(a.RedirectURI) == "":
		issues = append(issues, "auth: redirect_uri is required with authorization_code")
	}
	return issues
}

func validateTracingConfig(t TracingConfig) []string {
	var issues []string
	switch strings.ToLower(t.Protocol) {
	case "", "grpc", "http":
	default:
		issues = append(issues, fmt.Sprintf("tracing: protocol must be 'grpc' or 'http', got %q", t.Protocol))
	}
	if t.SampleRate < 0 || t.SampleRate > 1 {
		issues = append(issues, fmt.Sprintf("tracing: sample_rate must be between 0.0 and 1.0, got %g", t.SampleRate))
	}
	return issues
}
