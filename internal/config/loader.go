package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Environment variables read when a setting is still empty after the config
// file. Flags win over both.
const (
	EnvOrganizationID = "ZOHO_ORGANIZATION_ID"
	EnvDataCenter     = "ZOHO_DATA_CENTER"
	EnvClientID       = "ZOHO_CLIENT_ID"
	EnvClientSecret   = "ZOHO_CLIENT_SECRET"
	EnvRefreshToken   = "ZOHO_REFRESH_TOKEN"
	EnvAuthCode       = "ZOHO_AUTH_CODE"
	EnvRedirectURI    = "ZOHO_REDIRECT_URI"
	EnvAccessToken    = "ZOHO_ACCESS_TOKEN"
)

// Loader builds a Config from files, the environment and flags.
type Loader struct{}

// NewLoader creates a new configuration Loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load resolves settings in this order, later sources winning: defaults,
// config file, environment (including the dotenv file) for settings still
// empty, then flags that were explicitly set. flags must have been
// registered with RegisterFlags and parsed.
func (Loader) Load(flags *pflag.FlagSet) (*Config, error) {
	configPath := flagValue(flags, "config")
	envFile := flagValue(flags, "env-file")

	if err := loadEnvFile(envFile, changed(flags, "env-file")); err != nil {
		return nil, err
	}

	cfgViper := viper.New()
	if configPath != "" {
		cfgViper.SetConfigFile(configPath)
		if err := cfgViper.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", configPath, err)
		}
	}

	cfg := defaults()
	cfg.ConfigFile = configPath
	cfg.EnvFile = envFile

	if err := applyConfigSettings(cfg, cfgViper.AllSettings()); err != nil {
		return nil, err
	}
	applyEnvFallbacks(cfg, os.Getenv)
	if err := applyFlagOverrides(cfg, flags); err != nil {
		return nil, err
	}

	cfg.Output = OutputFormat(strings.ToLower(string(cfg.Output)))
	cfg.LogFormat = LogFormat(strings.ToLower(string(cfg.LogFormat)))
	cfg.DataCenter = strings.ToLower(cfg.DataCenter)
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Timeout:   30 * time.Second,
		RateLimit: DefaultRateLimit,
		Output:    OutputJSON,
		LogLevel:  "warn",
		LogFormat: LogFormatConsole,
		Auth: AuthConfig{
			RefreshBeforeExpiry: time.Minute,
		},
		Tracing: TracingConfig{
			Protocol:   "grpc",
			SampleRate: 1.0,
		},
	}
}

// loadEnvFile exports the variables in path that are not already set. A
// missing default file is ignored; a missing explicit one is an error.
func loadEnvFile(path string, explicit bool) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) && !explicit {
			return nil
		}
		return fmt.Errorf("env file: %w", err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("env file %s: %w", path, err)
	}
	return nil
}

func applyEnvFallbacks(cfg *Config, getenv func(string) string) {
	fallbacks := []struct {
		target *string
		env    string
	}{
		{&cfg.OrganizationID, EnvOrganizationID},
		{&cfg.DataCenter, EnvDataCenter},
		{&cfg.Auth.ClientID, EnvClientID},
		{&cfg.Auth.ClientSecret, EnvClientSecret},
		{&cfg.Auth.RefreshToken, EnvRefreshToken},
		{&cfg.Auth.AuthorizationCode, EnvAuthCode},
		{&cfg.Auth.RedirectURI, EnvRedirectURI},
		{&cfg.Auth.StaticToken, EnvAccessToken},
	}
	for _, f := range fallbacks {
		if *f.target != "" {
			continue
		}
		*f.target = strings.TrimSpace(getenv(f.env))
	}
}

// applyConfigSettings copies values from a config file into cfg. Keys are
// accepted in snake_case, kebab-case or camelCase.
func applyConfigSettings(cfg *Config, settings map[string]interface{}) error {
	if len(settings) == 0 {
		return nil
	}

	if raw, ok := lookupSetting(settings, "organization_id", "organization-id", "organizationid", "org_id"); ok {
		val, err := asIdentifier(raw)
		if err != nil {
			return fmt.Errorf("organization_id: %w", err)
		}
		cfg.OrganizationID = val
	}
	if raw, ok := lookupSetting(settings, "data_center", "data-center", "datacenter", "dc"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("data_center: %w", err)
		}
		cfg.DataCenter = strings.TrimSpace(val)
	}
	if raw, ok := lookupSetting(settings, "base_url", "base-url", "baseurl"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("base_url: %w", err)
		}
		cfg.BaseURL = strings.TrimSpace(val)
	}
	if raw, ok := lookupSetting(settings, "timeout"); ok {
		dur, err := asDuration(raw)
		if err != nil {
			return fmt.Errorf("timeout: %w", err)
		}
		cfg.Timeout = dur
	}
	if raw, ok := lookupSetting(settings, "rate_limit", "rate-limit", "ratelimit"); ok {
		val, err := asInt(raw)
		if err != nil {
			return fmt.Errorf("rate_limit: %w", err)
		}
		cfg.RateLimit = val
	}
	if raw, ok := lookupSetting(settings, "output"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("output: %w", err)
		}
		if val = strings.TrimSpace(val); val != "" {
			cfg.Output = OutputFormat(val)
		}
	}
	if raw, ok := lookupSetting(settings, "query"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("query: %w", err)
		}
		cfg.Query = strings.TrimSpace(val)
	}
	if raw, ok := lookupSetting(settings, "stats"); ok {
		val, err := asBool(raw)
		if err != nil {
			return fmt.Errorf("stats: %w", err)
		}
		cfg.Stats = val
	}
	if raw, ok := lookupSetting(settings, "log_level", "log-level", "loglevel"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("log_level: %w", err)
		}
		if val = strings.TrimSpace(val); val != "" {
			cfg.LogLevel = val
		}
	}
	if raw, ok := lookupSetting(settings, "log_format", "log-format", "logformat"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("log_format: %w", err)
		}
		if val = strings.TrimSpace(val); val != "" {
			cfg.LogFormat = LogFormat(val)
		}
	}
	if raw, ok := lookupSetting(settings, "auth"); ok {
		authCfg, err := parseAuth(raw, cfg.Auth)
		if err != nil {
			return fmt.Errorf("auth: %w", err)
		}
		cfg.Auth = authCfg
	}
	if raw, ok := lookupSetting(settings, "tracing"); ok {
		tracingCfg, err := parseTracing(raw, cfg.Tracing)
		if err != nil {
			return fmt.Errorf("tracing: %w", err)
		}
		cfg.Tracing = tracingCfg
	}
	return nil
}

func parseAuth(value interface{}, base AuthConfig) (AuthConfig, error) {
	if value == nil {
		return base, nil
	}
	settings, err := toStringKeyMap(value)
	if err != nil {
		return AuthConfig{}, err
	}

	out := base
	strFields := []struct {
		target *string
		keys   []string
	}{
		{&out.ClientID, []string{"client_id", "client-id", "clientid"}},
		{&out.ClientSecret, []string{"client_secret", "client-secret", "clientsecret"}},
		{&out.RefreshToken, []string{"refresh_token", "refresh-token", "refreshtoken"}},
		{&out.AuthorizationCode, []string{"authorization_code", "authorization-code", "authorizationcode", "code"}},
		{&out.RedirectURI, []string{"redirect_uri", "redirect-uri", "redirecturi"}},
		{&out.TokenURL, []string{"token_url", "token-url", "tokenurl"}},
		{&out.AuthURL, []string{"auth_url", "auth-url", "authurl"}},
		{&out.StaticToken, []string{"static_token", "static-token", "statictoken", "access_token"}},
	}
	for _, f := range strFields {
		raw, ok := lookupSetting(settings, f.keys...)
		if !ok {
			continue
		}
		val, err := asIdentifier(raw)
		if err != nil {
			return AuthConfig{}, fmt.Errorf("%s: %w", f.keys[0], err)
		}
		*f.target = val
	}

	if raw, ok := lookupSetting(settings, "scopes", "scope"); ok {
		scopes, err := asStringSlice(raw)
		if err != nil {
			return AuthConfig{}, fmt.Errorf("scopes: %w", err)
		}
		out.Scopes = scopes
	}
	if raw, ok := lookupSetting(settings, "refresh_before_expiry", "refresh-before-expiry", "refreshbeforeexpiry"); ok {
		dur, err := asDuration(raw)
		if err != nil {
			return AuthConfig{}, fmt.Errorf("refresh_before_expiry: %w", err)
		}
		out.RefreshBeforeExpiry = dur
	}
	return out, nil
}

func parseTracing(value interface{}, base TracingConfig) (TracingConfig, error) {
	if value == nil {
		return base, nil
	}
	settings, err := toStringKeyMap(value)
	if err != nil {
		return TracingConfig{}, err
	}

	out := base
	if raw, ok := lookupSetting(settings, "endpoint"); ok {
		val, err := asString(raw)
		if err != nil {
			return TracingConfig{}, fmt.Errorf("endpoint: %w", err)
		}
		out.Endpoint = strings.TrimSpace(val)
	}
	if raw, ok := lookupSetting(settings, "protocol"); ok {
		val, err := asString(raw)
		if err != nil {
			return TracingConfig{}, fmt.Errorf("protocol: %w", err)
		}
		out.Protocol = strings.ToLower(strings.TrimSpace(val))
	}
	if raw, ok := lookupSetting(settings, "service_name", "service-name", "servicename"); ok {
		val, err := asString(raw)
		if err != nil {
			return TracingConfig{}, fmt.Errorf("service_name: %w", err)
		}
		out.ServiceName = strings.TrimSpace(val)
	}
	if raw, ok := lookupSetting(settings, "insecure"); ok {
		val, err := asBool(raw)
		if err != nil {
			return TracingConfig{}, fmt.Errorf("insecure: %w", err)
		}
		out.Insecure = val
	}
	if raw, ok := lookupSetting(settings, "sample_rate", "sample-rate", "samplerate"); ok {
		val, err := asFloat64(raw)
		if err != nil {
			return TracingConfig{}, fmt.Errorf("sample_rate: %w", err)
		}
		out.SampleRate = val
	}
	if raw, ok := lookupSetting(settings, "propagate"); ok {
		val, err := asBool(raw)
		if err != nil {
			return TracingConfig{}, fmt.Errorf("propagate: %w", err)
		}
		out.Propagate = &val
	}
	return out, nil
}

func flagValue(flags *pflag.FlagSet, name string) string {
	if flags == nil {
		return ""
	}
	f := flags.Lookup(name)
	if f == nil {
		return ""
	}
	return strings.TrimSpace(f.Value.String())
}
