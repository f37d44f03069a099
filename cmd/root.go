package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/KaramelBytes/tensorloom-cli/internal/ai"
	"github.com/KaramelBytes/tensorloom-cli/internal/analysis"
	cfgpkg "github.com/KaramelBytes/tensorloom-cli/internal/config"
	"github.com/KaramelBytes/tensorloom-cli/internal/logging"
	"github.com/KaramelBytes/tensorloom-cli/internal/query"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	cfgFile string
	debug   bool
	// Overrides applied on top of the loaded config when set
	flagSeed             uint64
	flagHTTPTimeoutSec   int
	flagRetryMaxAttempts int
	flagRetryBaseDelayMs int
	flagRetryMaxDelayMs  int

	// Loaded configuration and logger, set before every command runs
	cfg    *cfgpkg.Global
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "tensorloom",
	Short: "TensorLoom CLI: turn tabular files into tensors and ask questions about them",
	Long: `TensorLoom parses CSV/TSV, XLSX, JSON, text and DOCX files, builds a dense
numeric tensor from the numeric columns, and runs correlation, anomaly,
clustering and forecast analytics. Questions in plain language are routed to
the matching analysis and answered with numbers from the data.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		l, err := logging.New(debug)
		if err != nil {
			return err
		}
		logger = l
		c, err := cfgpkg.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c
		applyOverrides(cmd)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// Execute is the entry point called by main.main()
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "✗ Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.tensorloom/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging on stderr")
	rootCmd.PersistentFlags().Uint64Var(&flagSeed, "seed", 0, "random seed for clustering (overrides config; 0 = time-seeded)")
	rootCmd.PersistentFlags().IntVar(&flagHTTPTimeoutSec, "http-timeout", 0, "HTTP client timeout in seconds (overrides config)")
	rootCmd.PersistentFlags().IntVar(&flagRetryMaxAttempts, "retry-max", 0, "max retry attempts on 429/5xx (overrides config)")
	rootCmd.PersistentFlags().IntVar(&flagRetryBaseDelayMs, "retry-base-ms", 0, "base retry backoff in ms (overrides config)")
	rootCmd.PersistentFlags().IntVar(&flagRetryMaxDelayMs, "retry-max-ms", 0, "max retry backoff cap in ms (overrides config)")
}

func applyOverrides(cmd *cobra.Command) {
	f := cmd.Flags()
	if f.Changed("seed") {
		cfg.Seed = flagSeed
	}
	if f.Changed("http-timeout") && flagHTTPTimeoutSec > 0 {
		cfg.HTTPTimeoutSec = flagHTTPTimeoutSec
	}
	if f.Changed("retry-max") && flagRetryMaxAttempts > 0 {
		cfg.RetryMaxAttempts = flagRetryMaxAttempts
	}
	if f.Changed("retry-base-ms") && flagRetryBaseDelayMs > 0 {
		cfg.RetryBaseDelayMs = flagRetryBaseDelayMs
	}
	if f.Changed("retry-max-ms") && flagRetryMaxDelayMs > 0 {
		cfg.RetryMaxDelayMs = flagRetryMaxDelayMs
	}
}

// newNarrator builds the narrator for provider, falling back to the config's.
func newNarrator(provider string) (ai.Narrator, error) {
	if provider == "" {
		provider = cfg.NarratorProvider
	}
	return ai.GetNarrator(provider, ai.RuntimeConfig{
		Model:       cfg.NarratorModel,
		MaxTokens:   cfg.MaxTokens,
		Temperature: cfg.Temperature,
		HTTPTimeout: time.Duration(cfg.HTTPTimeoutSec) * time.Second,
		RetryMax:    cfg.RetryMaxAttempts,
		BaseDelay:   time.Duration(cfg.RetryBaseDelayMs) * time.Millisecond,
		MaxDelay:    time.Duration(cfg.RetryMaxDelayMs) * time.Millisecond,
		APIKey:      cfg.APIKey,
		Host:        cfg.OllamaHost,
	})
}

// newDispatcher wires the configured kernel parameters into a query dispatcher.
func newDispatcher(n ai.Narrator) *query.Dispatcher {
	return query.New(query.Options{
		AnomalyThreshold: cfg.QueryAnomalyThreshold,
		ClusterK:         cfg.ClusterK,
		ClusterMaxIter:   cfg.ClusterMaxIter,
		Horizon:          cfg.ForecastHorizon,
		Rand:             analysis.NewRand(cfg.Seed),
		Narrator:         n,
		Logger:           logger,
	})
}
