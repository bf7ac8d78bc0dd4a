package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"

	"github.com/torosent/zohobooks/internal/config"
)

func parseFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("zohobooks", pflag.ContinueOnError)
	config.RegisterFlags(fs)
	if err := fs.Parse(args); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	return fs
}

func clearZohoEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		config.EnvOrganizationID, config.EnvDataCenter, config.EnvClientID,
		config.EnvClientSecret, config.EnvRefreshToken, config.EnvAuthCode,
		config.EnvRedirectURI, config.EnvAccessToken,
	} {
		t.Setenv(key, "")
	}
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	clearZohoEnv(t)
	testChdir(t, t.TempDir())

	cfg, err := config.NewLoader().Load(parseFlags(t))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Timeout != 30*time.Second {
		t.Errorf("Timeout = %s, want 30s", cfg.Timeout)
	}
	if cfg.RateLimit != config.DefaultRateLimit {
		t.Errorf("RateLimit = %d, want %d", cfg.RateLimit, config.DefaultRateLimit)
	}
	if cfg.Output != config.OutputJSON {
		t.Errorf("Output = %q, want json", cfg.Output)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("LogLevel = %q, want warn", cfg.LogLevel)
	}
	if cfg.Auth.RefreshBeforeExpiry != time.Minute {
		t.Errorf("RefreshBeforeExpiry = %s, want 1m", cfg.Auth.RefreshBeforeExpiry)
	}
	if cfg.Tracing.Enabled() {
		t.Error("Tracing.Enabled() = true, want false")
	}
}

func TestLoadConfigFileYAML(t *testing.T) {
	clearZohoEnv(t)
	dir := t.TempDir()
	testChdir(t, dir)
	path := writeFile(t, dir, "zoho.yaml", `
organization_id: 10234695
data_center: eu
rate_limit: 60
output: table
auth:
  client_id: 1000.CLIENT
  client_secret: secret
  refresh_token: 1000.refresh
  refresh_before_expiry: 2m
tracing:
  endpoint: localhost:4317
  protocol: http
  insecure: true
`)

	cfg, err := config.NewLoader().Load(parseFlags(t, "--config", path, "--output", "yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.ConfigFile != path {
		t.Errorf("ConfigFile = %q, want %q", cfg.ConfigFile, path)
	}
	if cfg.OrganizationID != "10234695" {
		t.Errorf("OrganizationID = %q, want 10234695", cfg.OrganizationID)
	}
	if cfg.DataCenter != "eu" {
		t.Errorf("DataCenter = %q, want eu", cfg.DataCenter)
	}
	if cfg.RateLimit != 60 {
		t.Errorf("RateLimit = %d, want 60", cfg.RateLimit)
	}
	if cfg.Output != config.OutputYAML {
		t.Errorf("Output = %q, want flag value yaml", cfg.Output)
	}
	if cfg.Auth.RefreshBeforeExpiry != 2*time.Minute {
		t.Errorf("RefreshBeforeExpiry = %s, want 2m", cfg.Auth.RefreshBeforeExpiry)
	}
	if !cfg.Tracing.Enabled() || cfg.Tracing.Protocol != "http" || !cfg.Tracing.Insecure {
		t.Errorf("Tracing = %+v", cfg.Tracing)
	}
	if !cfg.Tracing.ShouldPropagate() {
		t.Error("Tracing.ShouldPropagate() = false, want true when enabled")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestLoadConfigFileJSONNumericOrganization(t *testing.T) {
	clearZohoEnv(t)
	dir := t.TempDir()
	testChdir(t, dir)
	path := writeFile(t, dir, "zoho.json", `{"organizationId": 649249007, "auth": {"static_token": "1000.tok"}}`)

	cfg, err := config.NewLoader().Load(parseFlags(t, "--config", path))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.OrganizationID != "649249007" {
		t.Errorf("OrganizationID = %q, want 649249007", cfg.OrganizationID)
	}
	if !cfg.Auth.UsesStaticToken() {
		t.Error("UsesStaticToken() = false, want true")
	}
}

func TestLoadEnvironmentAndDotenv(t *testing.T) {
	clearZohoEnv(t)
	dir := t.TempDir()
	testChdir(t, dir)
	writeFile(t, dir, ".env", strings.Join([]string{
		"ZOHO_CLIENT_ID=dotenv-client",
		"ZOHO_CLIENT_SECRET=dotenv-secret",
		"ZOHO_REFRESH_TOKEN=dotenv-refresh",
	}, "\n"))
	// Unset variables are filled from .env, set ones are kept.
	os.Unsetenv(config.EnvClientID)
	os.Unsetenv(config.EnvClientSecret)
	os.Unsetenv(config.EnvRefreshToken)
	t.Cleanup(func() {
		os.Unsetenv(config.EnvClientID)
		os.Unsetenv(config.EnvClientSecret)
		os.Unsetenv(config.EnvRefreshToken)
	})
	t.Setenv(config.EnvOrganizationID, "42")

	cfg, err := config.NewLoader().Load(parseFlags(t, "--client-secret", "flag-secret"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.OrganizationID != "42" {
		t.Errorf("OrganizationID = %q, want 42", cfg.OrganizationID)
	}
	if cfg.Auth.ClientID != "dotenv-client" {
		t.Errorf("ClientID = %q, want dotenv-client", cfg.Auth.ClientID)
	}
	if cfg.Auth.ClientSecret != "flag-secret" {
		t.Errorf("ClientSecret = %q, want flag-secret", cfg.Auth.ClientSecret)
	}
	if cfg.Auth.RefreshToken != "dotenv-refresh" {
		t.Errorf("RefreshToken = %q, want dotenv-refresh", cfg.Auth.RefreshToken)
	}
}

func TestLoadMissingExplicitEnvFile(t *testing.T) {
	clearZohoEnv(t)
	testChdir(t, t.TempDir())

	_, err := config.NewLoader().Load(parseFlags(t, "--env-file", "does-not-exist.env"))
	if err == nil {
		t.Fatal("Load() error = nil, want error for a missing explicit env file")
	}
}

func TestLoadMissingConfigFile(t *testing.T) {
	clearZohoEnv(t)
	testChdir(t, t.TempDir())

	if _, err := config.NewLoader().Load(parseFlags(t, "--config", "missing.yaml")); err == nil {
		t.Fatal("Load() error = nil, want error for a missing config file")
	}
}

func TestConfigValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.Config
		wantMsg []string
	}{
		{
			name:    "missing everything",
			cfg:     config.Config{},
			wantMsg: []string{"organization_id is required", "client_id is required", "client_secret is required", "refresh_token or authorization_code"},
		},
		{
			name: "auth code without redirect",
			cfg: config.Config{
				OrganizationID: "1",
				Auth:           config.AuthConfig{ClientID: "id", ClientSecret: "s", AuthorizationCode: "code"},
			},
			wantMsg: []string{"redirect_uri is required"},
		},
		{
			name: "bad enums and ranges",
			cfg: config.Config{
				OrganizationID: "1",
				DataCenter:     "mars",
				Output:         "xml",
				LogFormat:      "logfmt",
				RateLimit:      -1,
				Timeout:        -time.Second,
				Auth:           config.AuthConfig{StaticToken: "tok"},
				Tracing:        config.TracingConfig{Protocol: "zipkin", SampleRate: 2},
			},
			wantMsg: []string{"data center", "output must be", "log_format", "rate_limit", "timeout", "tracing: protocol", "sample_rate"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			var verr config.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("Validate() error = %v, want ValidationError", err)
			}
			joined := strings.Join(verr.Issues(), "\n")
			for _, want := range tt.wantMsg {
				if !strings.Contains(joined, want) {
					t.Errorf("issues %q missing %q", joined, want)
				}
			}
		})
	}
}

func TestValidateAcceptsStaticToken(t *testing.T) {
	cfg := config.Config{OrganizationID: "1", Auth: config.AuthConfig{StaticToken: "1000.abc"}}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestValidateConsent(t *testing.T) {
	cfg := config.Config{Auth: config.AuthConfig{ClientID: "id"}}
	if err := cfg.ValidateConsent(); err == nil || !strings.Contains(err.Error(), "redirect_uri") {
		t.Errorf("ValidateConsent() error = %v, want redirect_uri issue", err)
	}
	cfg.Auth.RedirectURI = "http://localhost/cb"
	if err := cfg.ValidateConsent(); err != nil {
		t.Errorf("ValidateConsent() error = %v", err)
	}
}

func TestValidateCredentialsSkipsOrganization(t *testing.T) {
	cfg := config.Config{Auth: config.AuthConfig{ClientID: "id", ClientSecret: "s", RefreshToken: "r"}}
	if err := cfg.ValidateCredentials(); err != nil {
		t.Errorf("ValidateCredentials() error = %v", err)
	}
	cfg.Auth.RefreshToken = ""
	if err := cfg.ValidateCredentials(); err == nil {
		t.Error("ValidateCredentials() error = nil, want missing grant")
	}
}

func TestCredentials(t *testing.T) {
	cfg := config.Config{
		OrganizationID: "7",
		Auth:           config.AuthConfig{ClientID: "id", ClientSecret: "s", RefreshToken: "r", Scopes: []string{"a"}},
	}
	creds := cfg.Credentials()
	if creds.OrganizationID != "7" || creds.ClientID != "id" || creds.RefreshToken != "r" || len(creds.Scopes) != 1 {
		t.Errorf("Credentials() = %+v", creds)
	}
	if err := creds.Validate(); err != nil {
		t.Errorf("Credentials().Validate() error = %v", err)
	}
}
