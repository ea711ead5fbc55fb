package blocking

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPlan(t *testing.T) {
	t.Run("rejects non-positive block size", func(t *testing.T) {
		_, err := NewPlan(10, 5, 0)
		require.Error(t, err)
		_, err = NewPlan(10, 5, -3)
		require.Error(t, err)
	})

	t.Run("rejects negative extents", func(t *testing.T) {
		_, err := NewPlan(-1, 5, 2)
		require.Error(t, err)
		_, err = NewPlan(10, -5, 2)
		require.Error(t, err)
	})
}

func TestPlan_Partition(t *testing.T) {
	tests := []struct {
		name      string
		h, w, b   int
		wantTiles int
	}{
		{"exact multiple", 100, 10, 50, 2},
		{"remainder tile", 101, 10, 50, 3},
		{"single oversized block", 7, 3, 50, 1},
		{"block of one row", 4, 2, 1, 4},
		{"empty window", 0, 10, 50, 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p, err := NewPlan(tc.h, tc.w, tc.b)
			require.NoError(t, err)
			require.Equal(t, tc.wantTiles, p.NumTiles())

			rowSum := 0
			nextRow := 0
			cur := p.Tiles()
			for {
				tile, ok := cur.Next()
				if !ok {
					break
				}
				// contiguous, strictly increasing offsets
				assert.Equal(t, nextRow, tile.Offset.Row)
				assert.Equal(t, 0, tile.Offset.Col)
				assert.Equal(t, tc.w, tile.Size.Cols)
				assert.Greater(t, tile.Size.Rows, 0)
				assert.LessOrEqual(t, tile.Size.Rows, tc.b)
				nextRow += tile.Size.Rows
				rowSum += tile.Size.Rows
			}
			assert.Equal(t, tc.h, rowSum)
		})
	}
}

func TestPlan_TilesIsRestartable(t *testing.T) {
	p, err := NewPlan(10, 4, 3)
	require.NoError(t, err)

	first := p.Tiles()
	tile, ok := first.Next()
	require.True(t, ok)
	assert.Equal(t, 0, tile.Offset.Row)
	_, _ = first.Next()

	// A second request starts over at tile zero regardless of the first
	// cursor's position.
	second := p.Tiles()
	tile, ok = second.Next()
	require.True(t, ok)
	assert.Equal(t, 0, tile.Offset.Row)
}

func TestPlan_TilePanicsOutOfRange(t *testing.T) {
	p, err := NewPlan(10, 4, 3)
	require.NoError(t, err)
	assert.Panics(t, func() { p.Tile(4) })
	assert.Panics(t, func() { p.Tile(-1) })
}
