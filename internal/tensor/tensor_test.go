package tensor

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/KaramelBytes/tensorloom-cli/internal/parser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, csv string) *parser.Table {
	t.Helper()
	tb, err := parser.Parse([]byte(csv), parser.Options{})
	require.NoError(t, err)
	return tb
}

func TestBuild_ShapeFieldsAndStats(t *testing.T) {
	rec := Build(mustParse(t, "a,b\n1,2\n3,4\n5,6\n100,200"), Options{Source: "outlier.csv"})

	assert.Equal(t, []int{4, 2}, rec.Shape)
	assert.Equal(t, []string{"a", "b"}, rec.Fields)
	assert.Equal(t, 2, rec.Dimensions)
	assert.Equal(t, "float64", rec.DataType)
	assert.Equal(t, "outlier.csv", rec.Source)
	assert.Equal(t, 4, rec.Rows())
	assert.Equal(t, [][]float64{{1, 2}, {3, 4}, {5, 6}, {100, 200}}, rec.Tensor)

	assert.Equal(t, []float64{1, 2}, rec.Stats.Min)
	assert.Equal(t, []float64{100, 200}, rec.Stats.Max)
	assert.InDelta(t, 27.25, rec.Stats.Mean[0], 1e-9)
	assert.InDelta(t, 53, rec.Stats.Mean[1], 1e-9)
	// population std of a: sqrt(mean(x^2) - mean^2)
	assert.InDelta(t, math.Sqrt((1+9+25+10000)/4.0-27.25*27.25), rec.Stats.StdDev[0], 1e-9)
	assert.Equal(t, rec.Fields, rec.Stats.Fields)
	assert.Zero(t, rec.Sparsity)
	assert.Empty(t, rec.Warnings)
}

func TestBuild_DropsTextColumns(t *testing.T) {
	rec := Build(mustParse(t, "name,score\nann,1\nbob,0\n"), Options{})
	assert.Equal(t, []string{"score"}, rec.Fields)
	assert.Equal(t, []int{2, 1}, rec.Shape)
	assert.Contains(t, rec.Warnings, `column "name" dropped: not numeric`)
	assert.InDelta(t, 0.5, rec.Sparsity, 1e-12)
}

func TestBuild_InferenceModes(t *testing.T) {
	csv := "a,b,c\n,1,x\n2,2,3\n3,3,y\n"

	first := Build(mustParse(t, csv), Options{Inference: InferFirstRow})
	assert.Equal(t, []string{"b"}, first.Fields, "first-row drops a column whose first cell is blank")

	major := Build(mustParse(t, csv), Options{})
	assert.Equal(t, []string{"a", "b"}, major.Fields, "c has one numeric cell out of three")
	assert.Equal(t, [][]float64{{0, 1}, {2, 2}, {3, 3}}, major.Tensor)
	assert.Contains(t, major.Warnings, `column "a": 1 non-numeric cells treated as 0`)
	assert.InDelta(t, 1.0/6.0, major.Sparsity, 1e-12)
}

func TestBuild_MajorityRequiresMoreThanHalf(t *testing.T) {
	rec := Build(mustParse(t, "a\n1\nx\n"), Options{Inference: InferMajority})
	assert.Empty(t, rec.Fields)
	assert.Equal(t, []int{2, 0}, rec.Shape)
}

func TestBuild_EmptyTable(t *testing.T) {
	rec := Build(mustParse(t, "a,b\n"), Options{})
	assert.Empty(t, rec.Fields)
	assert.Equal(t, []int{0, 0}, rec.Shape)
	assert.Empty(t, rec.Warnings)
	assert.Zero(t, rec.Sparsity)
}

func TestStatsConsistency(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	for trial := 0; trial < 200; trial++ {
		rows, cols := 1+rng.IntN(30), 1+rng.IntN(5)
		matrix := make([][]float64, rows)
		for i := range matrix {
			matrix[i] = make([]float64, cols)
			for j := range matrix[i] {
				switch j % 3 {
				case 0:
					matrix[i][j] = 0.1 // constant column exercises rounding
				case 1:
					matrix[i][j] = rng.NormFloat64() * 1e6
				default:
					matrix[i][j] = float64(rng.IntN(5))
				}
			}
		}
		fields := make([]string, cols)
		s := ComputeStats(matrix, fields)
		for j := 0; j < cols; j++ {
			require.LessOrEqual(t, s.Min[j], s.Mean[j], "trial %d col %d", trial, j)
			require.LessOrEqual(t, s.Mean[j], s.Max[j], "trial %d col %d", trial, j)
			require.GreaterOrEqual(t, s.StdDev[j], 0.0, "trial %d col %d", trial, j)
			require.False(t, math.IsNaN(s.StdDev[j]))
		}
	}
}

func TestFieldIndexAndInference(t *testing.T) {
	rec := &Record{Fields: []string{"Revenue", "cost"}}
	assert.Equal(t, 0, rec.FieldIndex("revenue"))
	assert.Equal(t, 1, rec.FieldIndex("COST"))
	assert.Equal(t, -1, rec.FieldIndex("margin"))

	for in, want := range map[string]Inference{"": InferMajority, "Vote": InferMajority, "first": InferFirstRow} {
		got, err := ParseInference(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseInference("schema")
	assert.Error(t, err)
}
