package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/KaramelBytes/tensorloom-cli/internal/logging"
	"github.com/KaramelBytes/tensorloom-cli/internal/parser"
	"github.com/KaramelBytes/tensorloom-cli/internal/tensor"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// inputFlags are the parsing and tensor options shared by every command that
// reads a data file.
type inputFlags struct {
	kind       string
	delimiter  string
	inference  string
	sheetName  string
	sheetIndex int
}

func (f *inputFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.kind, "type", "", "input type: tabular|json|text (auto-detect by extension if omitted)")
	cmd.Flags().StringVar(&f.delimiter, "delimiter", "", "CSV delimiter: ',' | ';' | 'tab'")
	cmd.Flags().StringVar(&f.inference, "inference", "", "numeric column inference: majority|first-row (default from config)")
	cmd.Flags().StringVar(&f.sheetName, "sheet-name", "", "XLSX: sheet name to analyze")
	cmd.Flags().IntVar(&f.sheetIndex, "sheet-index", 1, "XLSX: 1-based sheet index (used if --sheet-name not provided)")
}

func (f *inputFlags) options() (parser.Options, tensor.Inference, error) {
	kind, err := parser.ParseKind(f.kind)
	if err != nil {
		return parser.Options{}, "", err
	}
	opt := parser.Options{Kind: kind, SheetName: f.sheetName, SheetIndex: f.sheetIndex}
	switch f.delimiter {
	case "":
	case ",":
		opt.Delimiter = ','
	case "\t", "tab":
		opt.Delimiter = '\t'
	case ";":
		opt.Delimiter = ';'
	default:
		return parser.Options{}, "", fmt.Errorf("unsupported --delimiter: %s", f.delimiter)
	}
	mode := f.inference
	if mode == "" {
		mode = cfg.ColumnInference
	}
	inf, err := tensor.ParseInference(mode)
	if err != nil {
		return parser.Options{}, "", err
	}
	return opt, inf, nil
}

// loadRecord parses path and builds its tensor record.
func loadRecord(path string, f *inputFlags) (*tensor.Record, error) {
	popt, inf, err := f.options()
	if err != nil {
		return nil, err
	}
	tbl, err := parser.ParseFile(path, popt)
	if err != nil {
		logger.Warn("parse failed", logging.Agent(logging.ErrorHandling), zap.String("file", path), zap.Error(err))
		return nil, err
	}
	logger.Debug("parsed", logging.Agent(logging.Ingestion), zap.String("file", path),
		zap.Int("rows", len(tbl.Rows)), zap.Strings("headers", tbl.Headers))
	rec := tensor.Build(tbl, tensor.Options{Inference: inf, Source: filepath.Base(path)})
	logger.Debug("tensor built", logging.Agent(logging.Tensor),
		zap.Ints("shape", rec.Shape), zap.Strings("fields", rec.Fields), zap.Float64("sparsity", rec.Sparsity))
	for _, w := range rec.Warnings {
		logger.Debug("tensor warning", logging.Agent(logging.Tensor), zap.String("warning", w))
	}
	return rec, nil
}
