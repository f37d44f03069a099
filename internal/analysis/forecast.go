package analysis

import "fmt"

const (
	// DefaultHorizon is the number of projected points when none is requested.
	DefaultHorizon = 10
	// MaxHorizon bounds the number of projected points.
	MaxHorizon = 10000
)

// ForecastResult is a least-squares line through one column against row index.
type ForecastResult struct {
	Field      string    `json:"field" yaml:"field"`
	Historical []float64 `json:"historical" yaml:"historical"`
	Predicted  []float64 `json:"predicted" yaml:"predicted"`
	Slope      float64   `json:"slope" yaml:"slope"`
	Intercept  float64   `json:"intercept" yaml:"intercept"`
}

// Forecast fits y = slope*x + intercept with x the row index and projects
// horizon points past the last row. A single row gives a flat line.
// horizon <= 0 means DefaultHorizon; above MaxHorizon is an error.
func Forecast(matrix [][]float64, fields []string, target, horizon int) (*ForecastResult, error) {
	cols, err := shape(matrix)
	if err != nil {
		return nil, err
	}
	if target < 0 || target >= cols {
		return nil, fmt.Errorf("%w: target %d, matrix has %d columns", ErrColumnOutOfRange, target, cols)
	}
	if horizon <= 0 {
		horizon = DefaultHorizon
	}
	if horizon > MaxHorizon {
		return nil, fmt.Errorf("%w: %d points requested, at most %d", ErrInvalidHorizon, horizon, MaxHorizon)
	}
	n := len(matrix)
	ys := make([]float64, n)
	var sumX, sumY float64
	for i, row := range matrix {
		ys[i] = row[target]
		sumX += float64(i)
		sumY += ys[i]
	}
	meanX, meanY := sumX/float64(n), sumY/float64(n)
	var sxy, sxx float64
	for i, y := range ys {
		dx := float64(i) - meanX
		sxy += dx * (y - meanY)
		sxx += dx * dx
	}
	var slope float64
	if sxx != 0 {
		slope = sxy / sxx
	}
	intercept := meanY - slope*meanX

	pred := make([]float64, horizon)
	for h := range pred {
		pred[h] = slope*float64(n+h) + intercept
	}
	res := &ForecastResult{Historical: ys, Predicted: pred, Slope: slope, Intercept: intercept}
	if target < len(fields) {
		res.Field = fields[target]
	}
	return res, nil
}
