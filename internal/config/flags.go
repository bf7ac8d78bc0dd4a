package config

import (
	"strings"
	"time"

	"github.com/spf13/pflag"
)

// RegisterFlags adds the global zohobooks flags to fs. Flags override the
// config file and the environment when set.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "Path to configuration file (JSON or YAML)")
	fs.String("env-file", ".env", "Path to a dotenv file with ZOHO_* variables")

	// Organization and endpoints
	fs.String("organization-id", "", "Zoho Books organization id")
	fs.String("data-center", "", "Zoho data center: us, eu, in, au, jp, ca, cn or sa")
	fs.String("base-url", "", "Override the API base URL")
	fs.Duration("timeout", 30*time.Second, "Per-request timeout")
	fs.Int("rate-limit", DefaultRateLimit, "Maximum requests per minute (0 disables pacing)")

	// Credentials
	fs.String("client-id", "", "OAuth2 client id")
	fs.String("client-secret", "", "OAuth2 client secret")
	fs.String("refresh-token", "", "OAuth2 refresh token")
	fs.String("auth-code", "", "One-time authorization code from the consent page")
	fs.String("redirect-uri", "", "Redirect URI registered for the client")
	fs.StringSlice("scope", nil, "OAuth2 scopes (default ZohoBooks.fullaccess.all)")
	fs.String("token-url", "", "Override the OAuth2 token endpoint")
	fs.String("auth-url", "", "Override the OAuth2 consent endpoint")
	fs.String("static-token", "", "Use a pre-issued access token instead of a grant")
	fs.Duration("refresh-before-expiry", time.Minute, "Treat tokens as expired this long before their expiry")

	// Output
	fs.StringP("output", "o", string(OutputJSON), "Output format: json, yaml or table")
	fs.StringP("query", "q", "", "gjson path applied to the result before printing")
	fs.Bool("stats", false, "Print request statistics to stderr on exit")
	fs.String("log-level", "warn", "Log level: debug, info, warn, error or disabled")
	fs.String("log-format", string(LogFormatConsole), "Log format: console or json")

	// Tracing
	fs.String("tracing-endpoint", "", "OTLP collector endpoint (enables tracing)")
	fs.String("tracing-protocol", "grpc", "OTLP protocol: grpc or http")
	fs.String("tracing-service-name", "", "Service name reported to the collector")
	fs.Bool("tracing-insecure", false, "Use plaintext to reach the collector")
	fs.Float64("tracing-sample-rate", 1.0, "Fraction of requests to trace")
	fs.Bool("tracing-propagate", true, "Send W3C trace context headers to the API")
}

func stringOverrides(cfg *Config) map[string]*string {
	return map[string]*string{
		"organization-id":      &cfg.OrganizationID,
		"data-center":          &cfg.DataCenter,
		"base-url":             &cfg.BaseURL,
		"client-id":            &cfg.Auth.ClientID,
		"client-secret":        &cfg.Auth.ClientSecret,
		"refresh-token":        &cfg.Auth.RefreshToken,
		"auth-code":            &cfg.Auth.AuthorizationCode,
		"redirect-uri":         &cfg.Auth.RedirectURI,
		"token-url":            &cfg.Auth.TokenURL,
		"auth-url":             &cfg.Auth.AuthURL,
		"static-token":         &cfg.Auth.StaticToken,
		"query":                &cfg.Query,
		"log-level":            &cfg.LogLevel,
		"tracing-endpoint":     &cfg.Tracing.Endpoint,
		"tracing-protocol":     &cfg.Tracing.Protocol,
		"tracing-service-name": &cfg.Tracing.ServiceName,
	}
}

// applyFlagOverrides copies every flag the user set into cfg.
func applyFlagOverrides(cfg *Config, fs *pflag.FlagSet) error {
	for name, target := range stringOverrides(cfg) {
		if !changed(fs, name) {
			continue
		}
		val, err := fs.GetString(name)
		if err != nil {
			return err
		}
		*target = strings.TrimSpace(val)
	}

	if changed(fs, "output") {
		val, err := fs.GetString("output")
		if err != nil {
			return err
		}
		cfg.Output = OutputFormat(strings.ToLower(strings.TrimSpace(val)))
	}
	if changed(fs, "log-format") {
		val, err := fs.GetString("log-format")
		if err != nil {
			return err
		}
		cfg.LogFormat = LogFormat(strings.ToLower(strings.TrimSpace(val)))
	}
	if changed(fs, "scope") {
		val, err := fs.GetStringSlice("scope")
		if err != nil {
			return err
		}
		cfg.Auth.Scopes = val
	}
	if changed(fs, "timeout") {
		val, err := fs.GetDuration("timeout")
		if err != nil {
			return err
		}
		cfg.Timeout = val
	}
	if changed(fs, "refresh-before-expiry") {
		val, err := fs.GetDuration("refresh-before-expiry")
		if err != nil {
			return err
		}
		cfg.Auth.RefreshBeforeExpiry = val
	}
	if changed(fs, "rate-limit") {
		val, err := fs.GetInt("rate-limit")
		if err != nil {
			return err
		}
		cfg.RateLimit = val
	}
	if changed(fs, "stats") {
		val, err := fs.GetBool("stats")
		if err != nil {
			return err
		}
		cfg.Stats = val
	}
	if changed(fs, "tracing-insecure") {
		val, err := fs.GetBool("tracing-insecure")
		if err != nil {
			return err
		}
		cfg.Tracing.Insecure = val
	}
	if changed(fs, "tracing-sample-rate") {
		val, err := fs.GetFloat64("tracing-sample-rate")
		if err != nil {
			return err
		}
		cfg.Tracing.SampleRate = val
	}
	if changed(fs, "tracing-propagate") {
		val, err := fs.GetBool("tracing-propagate")
		if err != nil {
			return err
		}
		cfg.Tracing.Propagate = &val
	}
	return nil
}

func changed(fs *pflag.FlagSet, name string) bool {
	return fs != nil && fs.Lookup(name) != nil && fs.Changed(name)
}
