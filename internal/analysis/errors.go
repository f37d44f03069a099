package analysis

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyMatrix is returned when a kernel receives no rows.
	ErrEmptyMatrix = errors.New("matrix has no rows")
	// ErrRaggedMatrix is returned when rows differ in length.
	ErrRaggedMatrix = errors.New("matrix rows have different lengths")
	// ErrInvalidK is returned for a non-positive cluster count.
	ErrInvalidK = errors.New("cluster count must be positive")
	// ErrInvalidHorizon is returned for a forecast horizon above MaxHorizon.
	ErrInvalidHorizon = errors.New("forecast horizon out of range")
	// ErrColumnOutOfRange is returned when a column index or field list does not fit the matrix.
	ErrColumnOutOfRange = errors.New("column out of range")
)

// shape validates a dense matrix and returns its column count.
func shape(matrix [][]float64) (int, error) {
	if len(matrix) == 0 {
		return 0, ErrEmptyMatrix
	}
	cols := len(matrix[0])
	for i, row := range matrix {
		if len(row) != cols {
			return 0, fmt.Errorf("%w: row %d has %d values, want %d", ErrRaggedMatrix, i, len(row), cols)
		}
	}
	return cols, nil
}
