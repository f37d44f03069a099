package analysis

import (
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"sort"
	"strings"

	"github.com/KaramelBytes/tensorloom-cli/internal/tensor"
	"gopkg.in/yaml.v3"
)

// ReportOptions controls which kernels the insight report runs.
type ReportOptions struct {
	// AnomalyThreshold defaults to ReportAnomalyThreshold.
	AnomalyThreshold float64
	// CorrelationPairs limits listed pairs; 0 means 10.
	CorrelationPairs int
	// Clusters enables k-means with this k when > 0.
	Clusters       int
	ClusterMaxIter int
	Rand           *rand.Rand
	// ForecastField enables the forecast for the named field.
	ForecastField string
	Horizon       int
	// SampleRows is the number of leading tensor rows to include; 0 means 5, negative disables.
	SampleRows int
}

// DefaultReportOptions returns reasonable defaults for the insight report.
func DefaultReportOptions() ReportOptions {
	return ReportOptions{
		AnomalyThreshold: ReportAnomalyThreshold,
		CorrelationPairs: 10,
		ClusterMaxIter:   DefaultClusterIterations,
		Horizon:          DefaultHorizon,
		SampleRows:       5,
	}
}

// Report is a markdown-friendly analysis of a tensor record.
type Report struct {
	Name             string          `json:"name" yaml:"name"`
	Shape            []int           `json:"shape" yaml:"shape"`
	Sparsity         float64         `json:"sparsity" yaml:"sparsity"`
	Fields           []FieldSummary  `json:"fields" yaml:"fields"`
	Corr             *CorrMatrix     `json:"correlation,omitempty" yaml:"correlation,omitempty"`
	TopPairs         []PairCorr      `json:"topPairs,omitempty" yaml:"topPairs,omitempty"`
	AnomalyThreshold float64         `json:"anomalyThreshold" yaml:"anomalyThreshold"`
	Anomalies        []Anomaly       `json:"anomalies" yaml:"anomalies"`
	Clusters         *ClusterSummary `json:"clusters,omitempty" yaml:"clusters,omitempty"`
	Forecast         *ForecastResult `json:"forecast,omitempty" yaml:"forecast,omitempty"`
	Samples          [][]float64     `json:"samples,omitempty" yaml:"samples,omitempty"`
	Warnings         []string        `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// FieldSummary captures statistics per numeric field.
type FieldSummary struct {
	Name   string  `json:"name" yaml:"name"`
	Min    float64 `json:"min" yaml:"min"`
	Max    float64 `json:"max" yaml:"max"`
	Mean   float64 `json:"mean" yaml:"mean"`
	StdDev float64 `json:"stdDev" yaml:"stdDev"`
	Zeros  int     `json:"zeros" yaml:"zeros"`
}

// ClusterSummary is the report view of a k-means run, with per-cluster means
// in the original units.
type ClusterSummary struct {
	K          int         `json:"k" yaml:"k"`
	Iterations int         `json:"iterations" yaml:"iterations"`
	Sizes      []int       `json:"sizes" yaml:"sizes"`
	Means      [][]float64 `json:"means" yaml:"means"`
	Fields     []string    `json:"fields" yaml:"fields"`
}

// Analyze runs the kernels selected by opt over rec.
func Analyze(rec *tensor.Record, opt ReportOptions) (*Report, error) {
	if opt.AnomalyThreshold <= 0 {
		opt.AnomalyThreshold = ReportAnomalyThreshold
	}
	if opt.CorrelationPairs <= 0 {
		opt.CorrelationPairs = 10
	}
	if opt.SampleRows == 0 {
		opt.SampleRows = 5
	}
	rep := &Report{
		Name:             rec.Source,
		Shape:            append([]int(nil), rec.Shape...),
		Sparsity:         rec.Sparsity,
		AnomalyThreshold: opt.AnomalyThreshold,
		Warnings:         append([]string(nil), rec.Warnings...),
	}
	for j, f := range rec.Fields {
		fs := FieldSummary{Name: f, Min: rec.Stats.Min[j], Max: rec.Stats.Max[j], Mean: rec.Stats.Mean[j], StdDev: rec.Stats.StdDev[j]}
		for _, row := range rec.Tensor {
			if row[j] == 0 {
				fs.Zeros++
			}
		}
		rep.Fields = append(rep.Fields, fs)
	}
	if len(rec.Tensor) == 0 || len(rec.Fields) == 0 {
		rep.Warnings = append(rep.Warnings, "no numeric data: analytics skipped")
		return rep, nil
	}
	if opt.SampleRows > 0 {
		for i := 0; i < len(rec.Tensor) && i < opt.SampleRows; i++ {
			rep.Samples = append(rep.Samples, rec.Tensor[i])
		}
	}

	if len(rec.Fields) >= 2 {
		corr, err := Correlation(rec.Tensor, rec.Fields)
		if err != nil {
			return nil, fmt.Errorf("correlation: %w", err)
		}
		rep.Corr = corr
		rep.TopPairs = corr.TopPairs(opt.CorrelationPairs)
	}

	anoms, err := DetectAnomalies(rec.Tensor, rec.Stats, opt.AnomalyThreshold)
	if err != nil {
		return nil, fmt.Errorf("anomalies: %w", err)
	}
	rep.Anomalies = anoms

	if opt.Clusters > 0 {
		cr, err := KMeans(rec.Tensor, ClusterOptions{K: opt.Clusters, MaxIter: opt.ClusterMaxIter, Rand: opt.Rand})
		if err != nil {
			return nil, fmt.Errorf("clustering: %w", err)
		}
		k := len(cr.Centroids)
		rep.Clusters = &ClusterSummary{
			K:          k,
			Iterations: cr.Iterations,
			Sizes:      cr.Sizes(),
			Means:      ClusterMeans(rec.Tensor, cr.Clusters, k),
			Fields:     append([]string(nil), rec.Fields...),
		}
	}

	if opt.ForecastField != "" {
		idx := rec.FieldIndex(opt.ForecastField)
		if idx < 0 {
			return nil, fmt.Errorf("forecast: %w: unknown field %q (have %s)", ErrColumnOutOfRange, opt.ForecastField, strings.Join(rec.Fields, ", "))
		}
		fc, err := Forecast(rec.Tensor, rec.Fields, idx, opt.Horizon)
		if err != nil {
			return nil, fmt.Errorf("forecast: %w", err)
		}
		rep.Forecast = fc
	}
	return rep, nil
}

// Format is an output encoding for reports and records.
type Format string

const (
	FormatMarkdown Format = "markdown"
	FormatJSON     Format = "json"
	FormatYAML     Format = "yaml"
)

// ParseFormat validates a user-supplied output format. Empty means markdown.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "markdown", "md":
		return FormatMarkdown, nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unsupported format %q (use markdown|json|yaml)", s)
	}
}

// Encode renders v as JSON or YAML.
func Encode(v any, f Format) ([]byte, error) {
	switch f {
	case FormatJSON:
		b, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("marshal json: %w", err)
		}
		return append(b, '\n'), nil
	case FormatYAML:
		b, err := yaml.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("marshal yaml: %w", err)
		}
		return b, nil
	default:
		return nil, fmt.Errorf("format %q is not a data encoding", f)
	}
}

// Render encodes the report in the requested format.
func (r *Report) Render(f Format) ([]byte, error) {
	if f == FormatMarkdown || f == "" {
		return []byte(r.Markdown()), nil
	}
	return Encode(r, f)
}

// Markdown renders a compact report suitable for terminals or standalone docs.
func (r *Report) Markdown() string {
	var b strings.Builder
	b.WriteString("[TENSOR SUMMARY]\n")
	if r.Name != "" {
		b.WriteString(fmt.Sprintf("File: %s\n", r.Name))
	}
	if len(r.Shape) == 2 {
		b.WriteString(fmt.Sprintf("Shape: [%d, %d]\n", r.Shape[0], r.Shape[1]))
	}
	b.WriteString(fmt.Sprintf("Sparsity: %.1f%%\n", r.Sparsity*100))

	if len(r.Fields) > 0 {
		b.WriteString("\n[FIELDS]\n")
		for _, f := range r.Fields {
			b.WriteString(fmt.Sprintf("- %s: min %.4g, max %.4g, mean %.4g, std %.4g", safeName(f.Name), f.Min, f.Max, f.Mean, f.StdDev))
			if f.Zeros > 0 {
				b.WriteString(fmt.Sprintf(" (zeros %d)", f.Zeros))
			}
			b.WriteString("\n")
		}
	}

	if len(r.TopPairs) > 0 {
		b.WriteString("\n[CORRELATIONS]\n")
		for _, p := range r.TopPairs {
			b.WriteString(fmt.Sprintf("- %s ~ %s: r=%.3f (%s)\n", p.A, p.B, p.R, Strength(p.R)))
		}
	}

	if len(r.Fields) > 0 && len(r.Shape) == 2 && r.Shape[0] > 0 {
		b.WriteString("\n[ANOMALIES]\n")
		if len(r.Anomalies) == 0 {
			b.WriteString(fmt.Sprintf("- none above |z|>%.1f\n", r.AnomalyThreshold))
		} else {
			b.WriteString(fmt.Sprintf("- %d rows above |z|>%.1f\n", len(r.Anomalies), r.AnomalyThreshold))
			lim := len(r.Anomalies)
			if lim > 20 {
				lim = 20
			}
			for _, a := range r.Anomalies[:lim] {
				b.WriteString(fmt.Sprintf("  • row %d: %s\n", a.Index, strings.Join(a.Features, ", ")))
			}
			if lim < len(r.Anomalies) {
				b.WriteString(fmt.Sprintf("  • … %d more\n", len(r.Anomalies)-lim))
			}
		}
	}

	if c := r.Clusters; c != nil {
		b.WriteString(fmt.Sprintf("\n[CLUSTERS]\nk=%d, iterations=%d\n", c.K, c.Iterations))
		for k, size := range c.Sizes {
			b.WriteString(fmt.Sprintf("- cluster %d (n=%d)", k, size))
			if m := c.Means[k]; m != nil {
				parts := make([]string, 0, len(m))
				for j, v := range m {
					parts = append(parts, fmt.Sprintf("%s %.4g", c.Fields[j], v))
				}
				b.WriteString(": mean ")
				b.WriteString(strings.Join(parts, ", "))
			}
			b.WriteString("\n")
		}
	}

	if f := r.Forecast; f != nil {
		b.WriteString("\n[FORECAST]\n")
		b.WriteString(fmt.Sprintf("- %s: slope %.4g per row, intercept %.4g\n", f.Field, f.Slope, f.Intercept))
		vals := make([]string, len(f.Predicted))
		for i, v := range f.Predicted {
			vals[i] = fmt.Sprintf("%.4g", v)
		}
		b.WriteString(fmt.Sprintf("- next %d: %s\n", len(f.Predicted), strings.Join(vals, ", ")))
	}

	if len(r.Samples) > 0 {
		b.WriteString("\n[HEAD ROWS]\n| ")
		for i, f := range r.Fields {
			if i > 0 {
				b.WriteString(" | ")
			}
			b.WriteString(safeName(f.Name))
		}
		b.WriteString(" |\n|")
		for range r.Fields {
			b.WriteString(" --- |")
		}
		b.WriteString("\n")
		for _, row := range r.Samples {
			b.WriteString("| ")
			for i, v := range row {
				if i > 0 {
					b.WriteString(" | ")
				}
				b.WriteString(fmt.Sprintf("%.4g", v))
			}
			b.WriteString(" |\n")
		}
	}

	if len(r.Warnings) > 0 {
		b.WriteString("\n[NOTES]\n")
		ws := append([]string(nil), r.Warnings...)
		sort.Strings(ws)
		for _, w := range ws {
			b.WriteString("- ")
			b.WriteString(w)
			b.WriteString("\n")
		}
	}
	return b.String()
}

func safeName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "(unnamed)"
	}
	return strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "/")
}
