package encode

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestCombVectorSoundness checks every (row, col) lookup against the
// uncompressed matrix, for a sparse matrix that favors the comb form.
func TestCombVectorSoundness(t *testing.T) {
	const rows, cols, def = 12, 8, 99
	matrix := make([][]int, rows)
	for r := range matrix {
		matrix[r] = make([]int, cols)
		for c := range matrix[r] {
			matrix[r][c] = def
		}
	}
	// One non-default entry per row, staggered so rows pack tightly.
	for r := 0; r < rows; r++ {
		matrix[r][r%cols] = r
	}

	table := compress(matrix, rows, cols, def)
	assert.True(t, table.Compressed(), "a one-entry-per-row matrix should choose the comb form")
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			assert.Equal(t, matrix[r][c], table.Get(r, c), "cell (%d,%d)", r, c)
		}
	}
}

func TestDenseMatrixStaysFull(t *testing.T) {
	const rows, cols, def = 4, 4, -1
	matrix := make([][]int, rows)
	for r := range matrix {
		matrix[r] = make([]int, cols)
		for c := range matrix[r] {
			matrix[r][c] = r*cols + c
		}
	}
	table := compress(matrix, rows, cols, def)
	assert.False(t, table.Compressed(), "a fully dense matrix gains nothing from displacement")
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			assert.Equal(t, matrix[r][c], table.Get(r, c))
		}
	}
}

func TestCombOutOfRangeReadsDefault(t *testing.T) {
	matrix := [][]int{{7, 3}}
	table := compress(matrix, 1, 2, 3)
	assert.Equal(t, 3, table.Get(-1, 0))
	assert.Equal(t, 3, table.Get(0, 5))
	assert.Equal(t, 3, table.Get(2, 0))
}

func TestPackedMatrixWidths(t *testing.T) {
	cases := []struct {
		max   int
		width int
	}{
		{1, 1},
		{3, 2},
		{15, 4},
		{200, 8},
	}
	for _, tc := range cases {
		matrix := [][]int{{0, tc.max}, {tc.max, 0}}
		m := newPackedMatrix(matrix, 2, 2)
		require.Equal(t, tc.width, m.BitsPerEntry, "max value %d", tc.max)
		for r := 0; r < 2; r++ {
			for c := 0; c < 2; c++ {
				assert.Equal(t, matrix[r][c], m.Get(r, c))
			}
		}
	}
}

func TestPackedMatrixSaturates(t *testing.T) {
	m := newPackedMatrix([][]int{{400}}, 1, 1)
	assert.Equal(t, 255, m.Get(0, 0))
}
