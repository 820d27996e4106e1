package energy

import (
	"testing"

	"github.com/MeKo-Tech/segenergy/internal/volume"
	"github.com/stretchr/testify/require"
)

// labelsFromRows builds a 2D label map from rows of digits; '.' is background.
func labelsFromRows(t *testing.T, rows ...string) volume.Array[int64] {
	t.Helper()
	h, w := len(rows), len(rows[0])
	out := volume.New[int64](h, w)
	for y, r := range rows {
		require.Len(t, r, w)
		for x, c := range r {
			if c != '.' {
				out.Data[y*w+x] = int64(c - '0')
			}
		}
	}
	return out
}

// fillRect sets the half-open rectangle [y0, y1) x [x0, x1) of a to id.
func fillRect(a volume.Array[int64], id int64, y0, x0, y1, x1 int) {
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			a.Set(id, y, x)
		}
	}
}

// manyInstances returns a 2D map with a grid of differently sized rectangles.
func manyInstances() volume.Array[int64] {
	labels := volume.New[int64](48, 64)
	id := int64(1)
	for gy := 0; gy < 4; gy++ {
		for gx := 0; gx < 5; gx++ {
			h, w := 3+gy*2, 4+gx
			fillRect(labels, id, gy*12+1, gx*12+1, gy*12+1+h, gx*12+1+w)
			id++
		}
	}
	return labels
}
