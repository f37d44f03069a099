package cmd

import (
	"fmt"

	"github.com/KaramelBytes/tensorloom-cli/internal/analysis"
	"github.com/KaramelBytes/tensorloom-cli/internal/logging"
	"github.com/KaramelBytes/tensorloom-cli/internal/tensor"
	"github.com/KaramelBytes/tensorloom-cli/internal/utils"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	anaInput      inputFlags
	anaOutputPath string
	anaFormat     string
	anaThreshold  float64
	anaClusters   int
	anaForecast   string
	anaHorizon    int
	anaSampleRows int
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file>",
	Short: "Build a tensor from a file and produce an insight report",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := analysis.ParseFormat(anaFormat)
		if err != nil {
			return err
		}
		rec, err := loadRecord(args[0], &anaInput)
		if err != nil {
			return err
		}
		out, err := renderReport(cmd, rec, format)
		if err != nil {
			return err
		}
		if anaOutputPath != "" {
			if err := utils.SafeWriteFile(anaOutputPath, out); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote analysis to %s\n", anaOutputPath)
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return nil
	},
}

// reportOptions merges config defaults with the analyze flags set on cmd.
func reportOptions(cmd *cobra.Command) analysis.ReportOptions {
	opt := analysis.DefaultReportOptions()
	opt.AnomalyThreshold = cfg.ReportAnomalyThreshold
	opt.ClusterMaxIter = cfg.ClusterMaxIter
	opt.Horizon = cfg.ForecastHorizon
	opt.Rand = analysis.NewRand(cfg.Seed)
	f := cmd.Flags()
	if f.Changed("anomaly-threshold") && anaThreshold > 0 {
		opt.AnomalyThreshold = anaThreshold
	}
	if f.Changed("clusters") {
		opt.Clusters = anaClusters
	}
	if f.Changed("horizon") && anaHorizon > 0 {
		opt.Horizon = anaHorizon
	}
	if f.Changed("sample-rows") {
		opt.SampleRows = anaSampleRows
		if anaSampleRows == 0 {
			opt.SampleRows = -1
		}
	}
	opt.ForecastField = anaForecast
	return opt
}

func renderReport(cmd *cobra.Command, rec *tensor.Record, format analysis.Format) ([]byte, error) {
	rep, err := analysis.Analyze(rec, reportOptions(cmd))
	if err != nil {
		logger.Warn("analysis failed", logging.Agent(logging.ErrorHandling), zap.String("file", rec.Source), zap.Error(err))
		return nil, err
	}
	logger.Debug("report ready", logging.Agent(logging.Analytics), zap.String("file", rec.Source),
		zap.Int("anomalies", len(rep.Anomalies)))
	return rep.Render(format)
}

func registerReportFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&anaFormat, "format", "f", "markdown", "report format: markdown|json|yaml")
	cmd.Flags().Float64Var(&anaThreshold, "anomaly-threshold", 0, "Z-score threshold for anomalies (default from config, 2.5)")
	cmd.Flags().IntVar(&anaClusters, "clusters", 0, "run k-means with this many clusters (0 = skip)")
	cmd.Flags().StringVar(&anaForecast, "forecast", "", "field to forecast with a linear trend")
	cmd.Flags().IntVar(&anaHorizon, "horizon", 0, "number of forecast points (default from config, 10)")
	cmd.Flags().IntVar(&anaSampleRows, "sample-rows", 5, "number of leading tensor rows to include (0 = none)")
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	anaInput.register(analyzeCmd)
	registerReportFlags(analyzeCmd)
	analyzeCmd.Flags().StringVarP(&anaOutputPath, "output", "o", "", "optional path to write the report")
}
