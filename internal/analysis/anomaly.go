package analysis

import (
	"fmt"
	"math"

	"github.com/KaramelBytes/tensorloom-cli/internal/tensor"
)

const (
	// QueryAnomalyThreshold is the Z-score cut used when answering questions.
	QueryAnomalyThreshold = 3.0
	// ReportAnomalyThreshold is the Z-score cut used by the insight report.
	ReportAnomalyThreshold = 2.5
)

// Anomaly is a flagged row and the fields whose Z-score exceeded the threshold.
type Anomaly struct {
	Index    int      `json:"index" yaml:"index"`
	Features []string `json:"features" yaml:"features"`
}

// DetectAnomalies flags every row with at least one |value-mean|/stdDev above
// threshold. A zero stdDev is not special-cased: a differing value yields +Inf
// and is flagged, an equal value yields NaN and is not.
func DetectAnomalies(matrix [][]float64, stats tensor.Stats, threshold float64) ([]Anomaly, error) {
	cols, err := shape(matrix)
	if err != nil {
		return nil, err
	}
	if len(stats.Mean) != cols || len(stats.StdDev) != cols || len(stats.Fields) != cols {
		return nil, fmt.Errorf("%w: stats cover %d fields, matrix has %d columns", ErrColumnOutOfRange, len(stats.Fields), cols)
	}
	var out []Anomaly
	for i, row := range matrix {
		var feats []string
		for j, v := range row {
			z := math.Abs(v-stats.Mean[j]) / stats.StdDev[j]
			if z > threshold {
				feats = append(feats, stats.Fields[j])
			}
		}
		if len(feats) > 0 {
			out = append(out, Anomaly{Index: i, Features: feats})
		}
	}
	return out, nil
}

// ZScores returns the per-cell Z-scores of one row.
func ZScores(row []float64, stats tensor.Stats) []float64 {
	out := make([]float64, len(row))
	for j, v := range row {
		if j >= len(stats.Mean) {
			break
		}
		out[j] = math.Abs(v-stats.Mean[j]) / stats.StdDev[j]
	}
	return out
}
