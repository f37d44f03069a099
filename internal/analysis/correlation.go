package analysis

import (
	"fmt"
	"math"
	"sort"
)

// CorrMatrix holds a symmetric Pearson correlation matrix across numeric columns.
type CorrMatrix struct {
	Columns []string    `json:"fields" yaml:"fields"`
	Values  [][]float64 `json:"matrix" yaml:"matrix"` // row-major, Values[i][j]
}

// PairCorr is a simple correlation pair summary.
type PairCorr struct {
	A string  `json:"a" yaml:"a"`
	B string  `json:"b" yaml:"b"`
	R float64 `json:"r" yaml:"r"`
}

// Correlation computes the Pearson coefficient for every column pair.
// The diagonal is 1 and a column without variance correlates 0 with the rest.
func Correlation(matrix [][]float64, fields []string) (*CorrMatrix, error) {
	cols, err := shape(matrix)
	if err != nil {
		return nil, err
	}
	if len(fields) != cols {
		return nil, fmt.Errorf("%w: %d fields for %d columns", ErrColumnOutOfRange, len(fields), cols)
	}
	vals := make([][]float64, cols)
	for i := range vals {
		vals[i] = make([]float64, cols)
		vals[i][i] = 1
	}
	constant := make([]bool, cols)
	for c := 0; c < cols; c++ {
		constant[c] = true
		for _, row := range matrix {
			if row[c] != matrix[0][c] {
				constant[c] = false
				break
			}
		}
	}
	n := float64(len(matrix))
	for i := 0; i < cols; i++ {
		for j := i + 1; j < cols; j++ {
			if constant[i] || constant[j] {
				continue
			}
			var sumX, sumY float64
			for _, row := range matrix {
				sumX += row[i]
				sumY += row[j]
			}
			meanX, meanY := sumX/n, sumY/n
			var cov, varX, varY float64
			for _, row := range matrix {
				dx := row[i] - meanX
				dy := row[j] - meanY
				cov += dx * dy
				varX += dx * dx
				varY += dy * dy
			}
			var r float64
			if varX != 0 && varY != 0 {
				r = cov / (math.Sqrt(varX) * math.Sqrt(varY))
			}
			if r > 1 {
				r = 1
			} else if r < -1 {
				r = -1
			}
			if math.IsNaN(r) {
				r = 0
			}
			vals[i][j] = r
			vals[j][i] = r
		}
	}
	return &CorrMatrix{Columns: append([]string(nil), fields...), Values: vals}, nil
}

// TopPairs lists off-diagonal pairs ordered by |r|, strongest first.
// limit <= 0 returns every pair.
func (c *CorrMatrix) TopPairs(limit int) []PairCorr {
	if c == nil {
		return nil
	}
	var pairs []PairCorr
	n := len(c.Columns)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			pairs = append(pairs, PairCorr{A: c.Columns[i], B: c.Columns[j], R: c.Values[i][j]})
		}
	}
	sort.SliceStable(pairs, func(i, j int) bool {
		ai, aj := math.Abs(pairs[i].R), math.Abs(pairs[j].R)
		if ai == aj {
			return pairs[i].A+pairs[i].B < pairs[j].A+pairs[j].B
		}
		return ai > aj
	})
	if limit > 0 && len(pairs) > limit {
		pairs = pairs[:limit]
	}
	return pairs
}

// Strength describes |r| in words.
func Strength(r float64) string {
	a := math.Abs(r)
	switch {
	case a >= 0.7:
		return "strong"
	case a >= 0.4:
		return "moderate"
	case a >= 0.2:
		return "weak"
	default:
		return "negligible"
	}
}
