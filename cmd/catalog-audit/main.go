// Command catalog-audit lists the products of a catalog account whose SKUs
// have no product reference code.
package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/pterm/pterm"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Sternrassler/catalog-audit/pkg/audit"
	"github.com/Sternrassler/catalog-audit/pkg/client"
	"github.com/Sternrassler/catalog-audit/pkg/config"
	"github.com/Sternrassler/catalog-audit/pkg/logging"
	"github.com/Sternrassler/catalog-audit/pkg/metrics"
	"github.com/Sternrassler/catalog-audit/pkg/pagination"
	"github.com/Sternrassler/catalog-audit/pkg/progress"
	"github.com/Sternrassler/catalog-audit/pkg/sink"
)

const version = "0.1.0"

// flagKeys maps command-line flags to configuration keys.
var flagKeys = map[string]string{
	"output":       "output",
	"base-url":     "base_url",
	"page-size":    "page_size",
	"batch-size":   "batch_size",
	"concurrency":  "concurrency",
	"max-retries":  "retry.max_attempts",
	"on-failure":   "on_failure",
	"log-level":    "log.level",
	"redis-addr":   "redis.addr",
	"metrics-addr": "metrics.addr",
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog-audit [account] [app-key] [app-token]",
		Short: "Find catalog products whose SKUs lack a ProductRefId",
		Long: `catalog-audit enumerates every SKU of a catalog account, fetches each
SKU's detail record and writes the sorted list of products whose SKUs have
no product reference code (ProductRefId) to a text file.

Credentials can be given as arguments, flags in a config file, or the
environment variables CATALOG_AUDIT_ACCOUNT, CATALOG_AUDIT_APP_KEY and
CATALOG_AUDIT_APP_TOKEN.

Examples:
  catalog-audit mystore $APP_KEY $APP_TOKEN
  catalog-audit mystore $APP_KEY $APP_TOKEN --concurrency 20 --on-failure abort
  catalog-audit --config audit.yaml --redis-addr localhost:6379`,
		Args:          cobra.MaximumNArgs(3),
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, args)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return run(ctx, cfg, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	f := cmd.Flags()
	f.String("config", "", "Config file (yaml, toml or json)")
	f.StringP("output", "o", sink.DefaultPath, "Output file for invalid product ids")
	f.String("base-url", "", "Catalog API base URL (default https://{account}.vtexcommercestable.com.br)")
	f.Int("page-size", 500, "SKU ids per listing page")
	f.Int("batch-size", 1000, "SKUs per batch; batches run one after another")
	f.Int("concurrency", 50, "Maximum in-flight detail requests within a batch")
	f.Int("max-retries", 3, "Attempts per request, including the first")
	f.String("on-failure", "skip", "What to do with a SKU that cannot be fetched: skip or abort")
	f.String("log-level", "info", "Log level: debug, info, warn, error")
	f.Bool("log-json", false, "Write JSON log lines instead of console output")
	f.String("redis-addr", "", "Also store the result in Redis at this address")
	f.String("metrics-addr", "", "Serve Prometheus metrics on this address during the run")

	return cmd
}

// loadConfig layers defaults, config file, environment, flags and
// positional arguments, in increasing precedence.
func loadConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	configFile, _ := cmd.Flags().GetString("config")
	v, err := config.New(configFile)
	if err != nil {
		return nil, err
	}

	if err := bindFlags(cmd, v); err != nil {
		return nil, err
	}

	for i, key := range []string{"account", "app_key", "app_token"} {
		if i < len(args) {
			v.Set(key, args[i])
		}
	}

	cfg, err := config.LoadWithViper(v)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func bindFlags(cmd *cobra.Command, v *viper.Viper) error {
	for flag, key := range flagKeys {
		if err := v.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
			return errors.Wrapf(err, "bind flag --%s", flag)
		}
	}
	if cmd.Flags().Changed("log-json") {
		jsonLogs, _ := cmd.Flags().GetBool("log-json")
		v.Set("log.pretty", !jsonLogs)
	}
	return nil
}

// run performs one audit and writes its result. Nothing is written when
// the audit fails.
func run(ctx context.Context, cfg *config.Config, stdout, stderr io.Writer) error {
	logCfg := cfg.LoggingConfig()
	logCfg.Output = stderr
	logging.Setup(logCfg)
	logger := logging.NewLogger("cli")

	if cfg.Metrics.Addr != "" {
		srv := metrics.NewServer(cfg.Metrics.Addr)
		srv.Start()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			stopMetrics(shutdownCtx, logger, srv)
		}()
	}

	c, err := client.New(cfg.ClientConfig())
	if err != nil {
		return err
	}

	primary := sink.Multi{
		sink.NewConsoleSink(stdout),
		sink.NewFileSink(cfg.Output),
	}
	var secondary sink.Multi
	if cfg.Redis.Addr != "" {
		redisClient, err := sink.Dial(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return err
		}
		defer redisClient.Close()
		secondary = append(secondary, sink.NewRedisSink(redisClient, cfg.Account, cfg.Redis.TTL))
	}

	var observer progress.Observer = progress.NewLogObserver(logging.NewLogger("progress"))
	if cfg.Log.Pretty {
		bar := progress.NewBarObserver(stderr)
		defer bar.Stop()
		observer = bar
	}

	logger.Info().
		Str("account", cfg.Account).
		Str("base_url", c.BaseURL()).
		Str("output", cfg.Output).
		Msg("Starting catalog audit")

	auditor := audit.NewAuditor(
		pagination.NewPaginator(c, cfg.PaginationConfig(), observer),
		audit.NewOrchestrator(c, cfg.AuditConfig(), observer),
	)
	report, err := auditor.Run(ctx)
	if err != nil {
		return err
	}

	if err := writeResults(ctx, logger, primary, secondary, report); err != nil {
		return err
	}

	logger.Info().
		Str("run_id", report.RunID).
		Str("output", cfg.Output).
		Int("invalid_products", len(report.InvalidProductIDs)).
		Int("failed_skus", len(report.FailedSKUs)).
		Msg("Results written")
	return nil
}

type shutdowner interface {
	Shutdown(ctx context.Context) error
}

// stopMetrics shuts the metrics server down and logs a failure.
func stopMetrics(ctx context.Context, logger zerolog.Logger, srv shutdowner) {
	if err := srv.Shutdown(ctx); err != nil {
		logger.Warn().Err(err).Msg("Metrics server shutdown failed")
	}
}

// writeResults writes the report to the primary sinks, then to the
// secondary ones. Only a primary failure fails the run.
func writeResults(ctx context.Context, logger zerolog.Logger, primary, secondary sink.Sink, report *audit.Report) error {
	if err := primary.Write(ctx, report); err != nil {
		return errors.Wrap(err, "write results")
	}
	if secondary == nil {
		return nil
	}
	if err := secondary.Write(ctx, report); err != nil {
		logger.Warn().
			Err(err).
			Str("run_id", report.RunID).
			Msg("Secondary sink failed, output file is intact")
	}
	return nil
}

// printError writes err and its hints for the operator.
func printError(w io.Writer, err error) {
	pterm.Error.WithWriter(w).Println(err.Error())
	for _, hint := range errors.GetAllHints(err) {
		pterm.Info.WithWriter(w).Println(hint)
	}
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		printError(os.Stderr, err)
		os.Exit(1)
	}
}
