package query

import (
	"fmt"
	"math"
	"strings"

	"github.com/KaramelBytes/tensorloom-cli/internal/analysis"
	"github.com/KaramelBytes/tensorloom-cli/internal/intent"
	"github.com/KaramelBytes/tensorloom-cli/internal/tensor"
)

// maxListed caps how many rows or pairs an answer spells out.
const maxListed = 10

type answer struct {
	text   string
	field  string
	visual *VisualData
}

func (d *Dispatcher) predict(rec *tensor.Record, q, field string) (answer, error) {
	target := 0
	if field != "" {
		target = rec.FieldIndex(field)
	}
	horizon := d.opt.Horizon
	if n, ok := intent.Horizon(q); ok {
		horizon = n
	}
	fc, err := analysis.Forecast(rec.Tensor, rec.Fields, target, horizon)
	if err != nil {
		return answer{}, err
	}
	direction := "flat"
	switch {
	case fc.Slope > 1e-9:
		direction = "upward"
	case fc.Slope < -1e-9:
		direction = "downward"
	}
	text := fmt.Sprintf("Forecast for %s: %s trend (slope %.4f per row, intercept %.4f). Next %d values: %s.",
		fc.Field, direction, fc.Slope, fc.Intercept, len(fc.Predicted), joinFloats(fc.Predicted))
	return answer{text: text, field: fc.Field, visual: &VisualData{Type: VisualPrediction, Prediction: fc}}, nil
}

func (d *Dispatcher) cluster(rec *tensor.Record, q string) (answer, error) {
	k := d.opt.ClusterK
	if n, ok := intent.ClusterCount(q); ok {
		k = n
	}
	cr, err := analysis.KMeans(rec.Tensor, analysis.ClusterOptions{K: k, MaxIter: d.opt.ClusterMaxIter, Rand: d.opt.Rand})
	if err != nil {
		return answer{}, err
	}
	// k may have been lowered to the row count.
	k = len(cr.Centroids)
	sizes := cr.Sizes()
	means := analysis.ClusterMeans(rec.Tensor, cr.Clusters, k)
	var b strings.Builder
	fmt.Fprintf(&b, "Identified %d clusters across %d rows after %d iterations.", k, len(rec.Tensor), cr.Iterations)
	for c := range sizes {
		fmt.Fprintf(&b, " Cluster %d: %d rows", c, sizes[c])
		if sizes[c] > 0 {
			var parts []string
			for j, f := range rec.Fields {
				if j == 3 {
					parts = append(parts, "...")
					break
				}
				parts = append(parts, fmt.Sprintf("%s≈%.2f", f, means[c][j]))
			}
			fmt.Fprintf(&b, " (%s)", strings.Join(parts, ", "))
		}
		b.WriteString(".")
	}
	return answer{text: b.String(), visual: &VisualData{Type: VisualClustering, Clustering: &ClusteringVisual{
		K:          k,
		Labels:     cr.Clusters,
		Sizes:      sizes,
		Means:      means,
		Fields:     append([]string(nil), rec.Fields...),
		Iterations: cr.Iterations,
	}}}, nil
}

func (d *Dispatcher) anomaly(rec *tensor.Record, field string) (answer, error) {
	th := d.opt.AnomalyThreshold
	anoms, err := analysis.DetectAnomalies(rec.Tensor, rec.Stats, th)
	if err != nil {
		return answer{}, err
	}
	scope := "any field"
	if field != "" {
		scope = field
		var kept []analysis.Anomaly
		for _, a := range anoms {
			for _, f := range a.Features {
				if f == field {
					kept = append(kept, a)
					break
				}
			}
		}
		anoms = kept
	}
	visual := &VisualData{Type: VisualAnomaly, Anomaly: &AnomalyVisual{Threshold: th, Rows: len(rec.Tensor), Anomalies: anoms}}
	if len(anoms) == 0 {
		text := fmt.Sprintf("No anomalies in %s: no row deviates more than %.1f standard deviations across %d rows.", scope, th, len(rec.Tensor))
		return answer{text: text, field: field, visual: visual}, nil
	}
	var rows []string
	for i, a := range anoms {
		if i == maxListed {
			rows = append(rows, fmt.Sprintf("and %d more", len(anoms)-maxListed))
			break
		}
		var cells []string
		for j, z := range analysis.ZScores(rec.Tensor[a.Index], rec.Stats) {
			if z > th {
				cells = append(cells, fmt.Sprintf("%s z=%.2f", rec.Fields[j], z))
			}
		}
		rows = append(rows, fmt.Sprintf("row %d (%s)", a.Index, strings.Join(cells, ", ")))
	}
	text := fmt.Sprintf("Found %d anomalous rows in %s (Z-score above %.1f out of %d rows): %s.",
		len(anoms), scope, th, len(rec.Tensor), strings.Join(rows, "; "))
	return answer{text: text, field: field, visual: visual}, nil
}

func (d *Dispatcher) correlation(rec *tensor.Record, field string) (answer, error) {
	corr, err := analysis.Correlation(rec.Tensor, rec.Fields)
	if err != nil {
		return answer{}, err
	}
	visual := &VisualData{Type: VisualCorrelation, Correlation: corr}
	if len(rec.Fields) < 2 {
		return answer{text: fmt.Sprintf("Only one numeric field (%s); there is nothing to correlate it with.", rec.Fields[0]), visual: visual}, nil
	}
	pairs := corr.TopPairs(0)
	if field != "" {
		var kept []analysis.PairCorr
		for _, p := range pairs {
			if p.A == field || p.B == field {
				kept = append(kept, p)
			}
		}
		pairs = kept
	}
	if len(pairs) > 3 {
		pairs = pairs[:3]
	}
	lead := "Strongest relationships"
	if field != "" {
		lead = "Strongest relationships with " + field
	}
	return answer{text: lead + ": " + describePairs(pairs) + ".", field: field, visual: visual}, nil
}

func (d *Dispatcher) summary(rec *tensor.Record) answer {
	return answer{text: summaryText(rec), visual: summaryVisual(rec)}
}

func (d *Dispatcher) general(rec *tensor.Record) (answer, error) {
	text := summaryText(rec)
	visual := summaryVisual(rec)
	if len(rec.Fields) >= 2 {
		corr, err := analysis.Correlation(rec.Tensor, rec.Fields)
		if err != nil {
			return answer{}, err
		}
		visual.Correlation = corr
		text += " Strongest relationship: " + describePairs(corr.TopPairs(1)) + "."
	}
	return answer{text: text, visual: visual}, nil
}

func summaryText(rec *tensor.Record) string {
	var b strings.Builder
	fmt.Fprintf(&b, "The dataset has %d rows and %d numeric fields (%.1f%% zeros).", rec.Rows(), len(rec.Fields), rec.Sparsity*100)
	for j, f := range rec.Fields {
		if j == maxListed {
			fmt.Fprintf(&b, " %d more fields omitted.", len(rec.Fields)-maxListed)
			break
		}
		fmt.Fprintf(&b, " %s: mean %.2f, std %.2f, range [%.2f, %.2f].",
			f, rec.Stats.Mean[j], rec.Stats.StdDev[j], rec.Stats.Min[j], rec.Stats.Max[j])
	}
	return b.String()
}

func summaryVisual(rec *tensor.Record) *VisualData {
	return &VisualData{Type: VisualSummary, Summary: &SummaryVisual{
		Shape:    append([]int(nil), rec.Shape...),
		Sparsity: rec.Sparsity,
		Stats:    rec.Stats,
	}}
}

func describePairs(pairs []analysis.PairCorr) string {
	if len(pairs) == 0 {
		return "none"
	}
	out := make([]string, 0, len(pairs))
	for _, p := range pairs {
		sign := "positive"
		if p.R < 0 {
			sign = "negative"
		}
		if analysis.Strength(p.R) == "negligible" {
			sign = "relationship"
		}
		out = append(out, fmt.Sprintf("%s and %s (r=%.2f, %s %s)", p.A, p.B, p.R, analysis.Strength(p.R), sign))
	}
	return strings.Join(out, "; ")
}

func joinFloats(vs []float64) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		if math.Abs(v) >= 1e6 {
			parts[i] = fmt.Sprintf("%.3g", v)
			continue
		}
		parts[i] = fmt.Sprintf("%.2f", v)
	}
	return strings.Join(parts, ", ")
}
