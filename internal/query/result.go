package query

import (
	"time"

	"github.com/KaramelBytes/tensorloom-cli/internal/analysis"
	"github.com/KaramelBytes/tensorloom-cli/internal/intent"
	"github.com/KaramelBytes/tensorloom-cli/internal/tensor"
)

// Result is the answer to one question.
type Result struct {
	ID     string        `json:"id" yaml:"id"`
	Query  string        `json:"query" yaml:"query"`
	Intent intent.Intent `json:"intent" yaml:"intent"`
	// Field is the field the answer focused on, if any. Follow-up questions use it.
	Field      string      `json:"field,omitempty" yaml:"field,omitempty"`
	Result     string      `json:"result" yaml:"result"`
	Narrative  string      `json:"narrative,omitempty" yaml:"narrative,omitempty"`
	Timestamp  time.Time   `json:"timestamp" yaml:"timestamp"`
	VisualData *VisualData `json:"visualData,omitempty" yaml:"visualData,omitempty"`
}

// Text is the narrative when one was produced, otherwise the computed explanation.
func (r *Result) Text() string {
	if r.Narrative != "" {
		return r.Narrative
	}
	return r.Result
}

// VisualType discriminates the payload carried in VisualData.
type VisualType string

const (
	VisualPrediction  VisualType = "prediction"
	VisualClustering  VisualType = "clustering"
	VisualAnomaly     VisualType = "anomaly"
	VisualCorrelation VisualType = "correlation"
	VisualSummary     VisualType = "summary"
)

// VisualData is chart input for a result. Type names the populated member;
// general answers carry a summary plus the correlation matrix.
type VisualData struct {
	Type        VisualType               `json:"type" yaml:"type"`
	Prediction  *analysis.ForecastResult `json:"prediction,omitempty" yaml:"prediction,omitempty"`
	Clustering  *ClusteringVisual        `json:"clustering,omitempty" yaml:"clustering,omitempty"`
	Anomaly     *AnomalyVisual           `json:"anomaly,omitempty" yaml:"anomaly,omitempty"`
	Correlation *analysis.CorrMatrix     `json:"correlation,omitempty" yaml:"correlation,omitempty"`
	Summary     *SummaryVisual           `json:"summary,omitempty" yaml:"summary,omitempty"`
}

type ClusteringVisual struct {
	K          int         `json:"k" yaml:"k"`
	Labels     []int       `json:"labels" yaml:"labels"`
	Sizes      []int       `json:"sizes" yaml:"sizes"`
	Means      [][]float64 `json:"means" yaml:"means"`
	Fields     []string    `json:"fields" yaml:"fields"`
	Iterations int         `json:"iterations" yaml:"iterations"`
}

type AnomalyVisual struct {
	Threshold float64            `json:"threshold" yaml:"threshold"`
	Rows      int                `json:"rows" yaml:"rows"`
	Anomalies []analysis.Anomaly `json:"anomalies" yaml:"anomalies"`
}

type SummaryVisual struct {
	Shape    []int        `json:"shape" yaml:"shape"`
	Sparsity float64      `json:"sparsity" yaml:"sparsity"`
	Stats    tensor.Stats `json:"stats" yaml:"stats"`
}
