package main

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/torosent/zohobooks/auth"
	"github.com/torosent/zohobooks/internal/config"
)

func buildAuthProvider(cfg *config.Config, logger zerolog.Logger) (auth.Provider, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if cfg.Auth.UsesStaticToken() {
		return auth.NewStaticTokenProvider(cfg.Auth.StaticToken), nil
	}
	return buildTokenManager(cfg, logger)
}

func buildTokenManager(cfg *config.Config, logger zerolog.Logger) (*auth.TokenManager, error) {
	dc, err := auth.ParseDataCenter(cfg.DataCenter)
	if err != nil {
		return nil, err
	}
	opts := []auth.Option{
		auth.WithDataCenter(dc),
		auth.WithExpiryLeeway(cfg.Auth.RefreshBeforeExpiry),
		auth.WithLogger(logger),
	}
	if cfg.Auth.TokenURL != "" {
		opts = append(opts, auth.WithTokenURL(cfg.Auth.TokenURL))
	}
	if cfg.Auth.AuthURL != "" {
		opts = append(opts, auth.WithAuthURL(cfg.Auth.AuthURL))
	}
	return auth.NewTokenManager(cfg.Credentials(), opts...)
}

type tokenInfo struct {
	AccessToken  string    `json:"access_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	RefreshToken string    `json:"refresh_token,omitempty"`
}

func newAuthCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Obtain OAuth2 grants and access tokens",
	}
	cmd.AddCommand(newAuthURLCommand(a), newAuthTokenCommand(a))
	return cmd
}

func newAuthURLCommand(a *app) *cobra.Command {
	var state string
	cmd := &cobra.Command{
		Use:   "url",
		Short: "Print the consent page URL that yields an authorization code",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.load(cmd); err != nil {
				return err
			}
			if err := a.cfg.ValidateConsent(); err != nil {
				return err
			}
			dc, err := auth.ParseDataCenter(a.cfg.DataCenter)
			if err != nil {
				return err
			}
			u := auth.ConsentURL(dc, a.cfg.Auth.AuthURL, a.cfg.Auth.ClientID, a.cfg.Auth.RedirectURI, state, a.cfg.Auth.Scopes...)
			_, err = fmt.Fprintln(a.stdout, u)
			return err
		},
	}
	cmd.Flags().StringVar(&state, "state", "zohobooks", "Opaque value echoed back to the redirect URI")
	return cmd
}

func newAuthTokenCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "token",
		Short: "Acquire an access token and print it",
		Long: `Acquire an access token from the refresh token or authorization code.

When an authorization code is used, the printed refresh_token must be saved:
the code cannot be exchanged a second time.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.load(cmd); err != nil {
				return err
			}
			if err := a.cfg.ValidateCredentials(); err != nil {
				return err
			}
			if a.cfg.Auth.UsesStaticToken() {
				return fmt.Errorf("a static token is configured; nothing to acquire")
			}

			manager, err := buildTokenManager(a.cfg, a.logger)
			if err != nil {
				return err
			}
			defer manager.Close()

			token, err := manager.Token(cmd.Context())
			if err != nil {
				return err
			}
			info := tokenInfo{
				AccessToken:  token,
				ExpiresAt:    manager.Current().ExpiresAt,
				RefreshToken: manager.RefreshToken(),
			}
			return a.print(info, nil)
		},
	}
}
