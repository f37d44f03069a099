package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/KaramelBytes/tensorloom-cli/internal/analysis"
	"github.com/KaramelBytes/tensorloom-cli/internal/logging"
	"github.com/KaramelBytes/tensorloom-cli/internal/utils"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	abInput       inputFlags
	abOutDir      string
	abConcurrency int
	abQuiet       bool
)

var analyzeBatchCmd = &cobra.Command{
	Use:   "analyze-batch <files...>",
	Short: "Analyze many files concurrently; reports are emitted in input order",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		files := expandInputs(args)
		if len(files) == 0 {
			return errors.New("no input files matched")
		}
		format, err := analysis.ParseFormat(anaFormat)
		if err != nil {
			return err
		}
		limit := cfg.BatchConcurrency
		if cmd.Flags().Changed("concurrency") && abConcurrency > 0 {
			limit = abConcurrency
		}
		if limit <= 0 {
			limit = 1
		}

		var targets []string
		if abOutDir != "" {
			targets = outputTargets(abOutDir, files, format)
		}

		out := cmd.OutOrStdout()
		reports := make([][]byte, len(files))
		g, ctx := errgroup.WithContext(cmd.Context())
		g.SetLimit(limit)
		for i, path := range files {
			g.Go(func() error {
				if err := ctx.Err(); err != nil {
					return err
				}
				rec, err := loadRecord(path, &abInput)
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				body, err := renderReport(cmd, rec, format)
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				if targets != nil {
					if err := utils.SafeWriteFile(targets[i], body); err != nil {
						return fmt.Errorf("%s: write output: %w", path, err)
					}
				}
				reports[i] = body
				logger.Debug("batch item done", logging.Agent(logging.Analytics), zap.String("file", path))
				return nil
			})
		}
		err = g.Wait()
		// Report whatever finished, in input order, before surfacing the error.
		total := len(files)
		for i, path := range files {
			if reports[i] == nil {
				continue
			}
			switch {
			case targets != nil:
				if !abQuiet {
					fmt.Fprintf(out, "[%d/%d] ✓ %s → %s\n", i+1, total, filepath.Base(path), targets[i])
				}
			case !abQuiet:
				fmt.Fprintf(out, "[%d/%d] %s\n", i+1, total, filepath.Base(path))
				fmt.Fprintln(out, string(reports[i]))
			}
		}
		return err
	},
}

// expandInputs resolves globs and literal paths, dropping duplicates, sorted.
func expandInputs(args []string) []string {
	var files []string
	seen := map[string]struct{}{}
	for _, arg := range args {
		matches, _ := filepath.Glob(arg)
		if len(matches) == 0 {
			if _, err := os.Stat(arg); err == nil {
				matches = []string{arg}
			}
		}
		for _, m := range matches {
			if _, ok := seen[m]; ok {
				continue
			}
			seen[m] = struct{}{}
			files = append(files, m)
		}
	}
	sort.Strings(files)
	return files
}

// outputTargets names one report per input inside dir. Inputs sharing a base
// name get a "__N" suffix so none overwrite another.
func outputTargets(dir string, files []string, format analysis.Format) []string {
	ext := "md"
	if format != analysis.FormatMarkdown {
		ext = string(format)
	}
	used := map[string]int{}
	out := make([]string, len(files))
	for i, f := range files {
		name := utils.OutputName(dir, f, "report."+ext)
		key := strings.ToLower(name)
		used[key]++
		if n := used[key]; n > 1 {
			base := strings.TrimSuffix(filepath.Base(f), filepath.Ext(f))
			name = filepath.Join(dir, fmt.Sprintf("%s__%d.report.%s", base, n, ext))
		}
		out[i] = name
	}
	return out
}

func init() {
	rootCmd.AddCommand(analyzeBatchCmd)
	abInput.register(analyzeBatchCmd)
	registerReportFlags(analyzeBatchCmd)
	analyzeBatchCmd.Flags().StringVar(&abOutDir, "out-dir", "", "write one report per input into this directory")
	analyzeBatchCmd.Flags().IntVar(&abConcurrency, "concurrency", 0, "files analyzed at once (default from config, 4)")
	analyzeBatchCmd.Flags().BoolVarP(&abQuiet, "quiet", "q", false, "suppress per-file output")
}
