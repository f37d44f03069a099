// Package tensor turns a parsed table into a dense numeric matrix with
// per-column descriptive statistics.
package tensor

import (
	"fmt"
	"math"
	"strings"

	"github.com/KaramelBytes/tensorloom-cli/internal/parser"
)

// Inference decides which columns are retained as numeric.
type Inference string

const (
	// InferMajority keeps a column when more than half of its present cells are numeric.
	InferMajority Inference = "majority"
	// InferFirstRow keeps a column only when its first row is numeric.
	InferFirstRow Inference = "first-row"
)

// ParseInference validates a user-supplied inference mode. Empty means majority.
func ParseInference(s string) (Inference, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "majority", "vote":
		return InferMajority, nil
	case "first-row", "firstrow", "first":
		return InferFirstRow, nil
	default:
		return "", fmt.Errorf("unsupported column inference %q (use majority|first-row)", s)
	}
}

// Options controls tensor construction.
type Options struct {
	Inference Inference
	// Source is a display name carried on the record.
	Source string
}

// Stats holds one entry per numeric field, aligned by index with Fields.
type Stats struct {
	Min    []float64 `json:"min" yaml:"min"`
	Max    []float64 `json:"max" yaml:"max"`
	Mean   []float64 `json:"mean" yaml:"mean"`
	StdDev []float64 `json:"stdDev" yaml:"stdDev"`
	Fields []string  `json:"fields" yaml:"fields"`
}

// Record is a dense 2-D view of the numeric columns of a table.
type Record struct {
	Source     string      `json:"source,omitempty" yaml:"source,omitempty"`
	Dimensions int         `json:"dimensions" yaml:"dimensions"`
	Shape      []int       `json:"shape" yaml:"shape"`
	DataType   string      `json:"dataType" yaml:"dataType"`
	Sparsity   float64     `json:"sparsity" yaml:"sparsity"`
	Fields     []string    `json:"fields" yaml:"fields"`
	Tensor     [][]float64 `json:"tensor" yaml:"tensor"`
	Stats      Stats       `json:"stats" yaml:"stats"`
	Warnings   []string    `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// Rows is the number of rows in the tensor.
func (r *Record) Rows() int { return r.Shape[0] }

// FieldIndex returns the column of a field by case-insensitive name, or -1.
func (r *Record) FieldIndex(name string) int {
	for i, f := range r.Fields {
		if strings.EqualFold(f, name) {
			return i
		}
	}
	return -1
}

// Build selects numeric columns from t and computes their statistics.
func Build(t *parser.Table, opt Options) *Record {
	mode := opt.Inference
	if mode == "" {
		mode = InferMajority
	}
	rec := &Record{Source: opt.Source, Dimensions: 2, DataType: "float64"}

	for _, h := range t.Headers {
		if isNumericColumn(t, h, mode) {
			rec.Fields = append(rec.Fields, h)
		} else if len(t.Rows) > 0 {
			rec.Warnings = append(rec.Warnings, fmt.Sprintf("column %q dropped: not numeric", h))
		}
	}

	n, m := len(t.Rows), len(rec.Fields)
	rec.Shape = []int{n, m}
	rec.Tensor = make([][]float64, n)
	coerced := make([]int, m)
	for i, row := range t.Rows {
		vec := make([]float64, m)
		for j, f := range rec.Fields {
			if v, ok := row[f]; ok && v.IsNum {
				vec[j] = v.Num
			} else {
				coerced[j]++
			}
		}
		rec.Tensor[i] = vec
	}
	for j, c := range coerced {
		if c > 0 {
			rec.Warnings = append(rec.Warnings, fmt.Sprintf("column %q: %d non-numeric cells treated as 0", rec.Fields[j], c))
		}
	}
	rec.Stats = ComputeStats(rec.Tensor, rec.Fields)
	rec.Sparsity = Sparsity(rec.Tensor)
	return rec
}

func isNumericColumn(t *parser.Table, header string, mode Inference) bool {
	if len(t.Rows) == 0 {
		return false
	}
	if mode == InferFirstRow {
		v, ok := t.Rows[0][header]
		return ok && v.IsNum
	}
	var num, present int
	for _, row := range t.Rows {
		v, ok := row[header]
		if !ok || (!v.IsNum && strings.TrimSpace(v.Str) == "") {
			continue
		}
		present++
		if v.IsNum {
			num++
		}
	}
	return num > 0 && num*2 > present
}

// ComputeStats makes one pass over the matrix keeping running min, max, sum
// and sum of squares per column. Variance is population variance clamped at 0.
func ComputeStats(matrix [][]float64, fields []string) Stats {
	m := len(fields)
	s := Stats{
		Min:    make([]float64, m),
		Max:    make([]float64, m),
		Mean:   make([]float64, m),
		StdDev: make([]float64, m),
		Fields: append([]string(nil), fields...),
	}
	if len(matrix) == 0 {
		return s
	}
	sum := make([]float64, m)
	sumSq := make([]float64, m)
	for j := range s.Min {
		s.Min[j] = math.Inf(1)
		s.Max[j] = math.Inf(-1)
	}
	for _, row := range matrix {
		for j := 0; j < m && j < len(row); j++ {
			v := row[j]
			if v < s.Min[j] {
				s.Min[j] = v
			}
			if v > s.Max[j] {
				s.Max[j] = v
			}
			sum[j] += v
			sumSq[j] += v * v
		}
	}
	n := float64(len(matrix))
	for j := 0; j < m; j++ {
		mean := sum[j] / n
		variance := sumSq[j]/n - mean*mean
		if variance < 0 {
			variance = 0
		}
		// Rounding in sum/n can put the mean a hair outside [min, max].
		s.Mean[j] = math.Min(math.Max(mean, s.Min[j]), s.Max[j])
		s.StdDev[j] = math.Sqrt(variance)
	}
	return s
}

// Sparsity is the fraction of cells that are exactly zero.
func Sparsity(matrix [][]float64) float64 {
	var zeros, total int
	for _, row := range matrix {
		for _, v := range row {
			total++
			if v == 0 {
				zeros++
			}
		}
	}
	if total == 0 {
		return 0
	}
	return float64(zeros) / float64(total)
}
