package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/torosent/zohobooks/auth"
	"github.com/torosent/zohobooks/books"
	"github.com/torosent/zohobooks/internal/config"
	"github.com/torosent/zohobooks/internal/logging"
	"github.com/torosent/zohobooks/internal/metrics"
	"github.com/torosent/zohobooks/internal/output"
	"github.com/torosent/zohobooks/internal/tracing"
)

const shutdownTimeout = 5 * time.Second

// app holds the streams and the settings resolved for one invocation.
type app struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	cfg    *config.Config
	logger zerolog.Logger
}

func (a *app) load(cmd *cobra.Command) error {
	cfg, err := config.NewLoader().Load(cmd.Flags())
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.LogLevel, string(cfg.LogFormat), a.stderr)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = logger
	return nil
}

// withClient loads and validates the settings, builds an API client and
// runs fn with it. Token provider, tracing and statistics are torn down
// after fn returns.
func (a *app) withClient(cmd *cobra.Command, fn func(ctx context.Context, client *books.Client) error) error {
	if err := a.load(cmd); err != nil {
		return err
	}
	if err := a.cfg.Validate(); err != nil {
		return err
	}
	ctx := cmd.Context()

	provider, err := buildAuthProvider(a.cfg, a.logger)
	if err != nil {
		return err
	}
	defer provider.Close()

	tp, err := tracing.Init(ctx, a.cfg.Tracing)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			a.logger.Warn().Err(err).Msg("tracing shutdown failed")
		}
	}()

	collector := metrics.NewCollector()
	opts, err := clientOptions(a.cfg, a.logger, tp, collector)
	if err != nil {
		return err
	}
	client, err := books.New(a.cfg.OrganizationID, provider, opts...)
	if err != nil {
		return err
	}

	started := time.Now()
	err = fn(ctx, client)
	if a.cfg.Stats {
		a.report(collector.Stats(time.Since(started)))
	}
	return err
}

// report writes the request statistics to stderr, as JSON when the
// records are printed as JSON.
func (a *app) report(stats metrics.Stats) {
	if a.cfg.Output != config.OutputJSON {
		output.PrintReport(a.stderr, stats)
		return
	}
	if err := output.PrintJSONReport(a.stderr, stats); err != nil {
		a.logger.Warn().Err(err).Msg("writing statistics failed")
	}
}

func clientOptions(cfg *config.Config, logger zerolog.Logger, tp *tracing.Provider, recorder books.Recorder) ([]books.Option, error) {
	opts := []books.Option{
		books.WithTimeout(cfg.Timeout),
		books.WithRateLimit(cfg.RateLimit),
		books.WithLogger(logger),
		books.WithTracer(tp.Tracer(), tp.ShouldPropagate()),
		books.WithRecorder(recorder),
	}
	if cfg.BaseURL != "" {
		return append(opts, books.WithBaseURL(cfg.BaseURL)), nil
	}
	dc, err := auth.ParseDataCenter(cfg.DataCenter)
	if err != nil {
		return nil, err
	}
	return append(opts, books.WithDataCenter(dc)), nil
}

func (a *app) print(v any, columns []string) error {
	p := output.Printer{
		Out:     a.stdout,
		Format:  string(a.cfg.Output),
		Query:   a.cfg.Query,
		Columns: columns,
	}
	if err := p.Print(v); err != nil {
		return fmt.Errorf("print result: %w", err)
	}
	return nil
}
