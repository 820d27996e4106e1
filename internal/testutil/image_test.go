package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRectLabels(t *testing.T) {
	labels := RectLabels(4, 5, Rect{Y0: 1, X0: 1, Y1: 3, X1: 4, ID: 7}, Rect{Y0: 2, X0: 3, Y1: 9, X1: 9, ID: 2})
	assert.Equal(t, []int{4, 5}, labels.Shape)
	assert.Equal(t, []int64{
		0, 0, 0, 0, 0,
		0, 7, 7, 7, 0,
		0, 7, 7, 2, 2,
		0, 0, 0, 2, 2,
	}, labels.Data)
}

func TestDiskLabels(t *testing.T) {
	labels := DiskLabels(5, 5, Disk{CY: 2, CX: 2, R: 1, ID: 3})
	n := 0
	for _, v := range labels.Data {
		if v == 3 {
			n++
		}
	}
	assert.Equal(t, 5, n)
	assert.Equal(t, int64(3), labels.At(2, 2))
	assert.Equal(t, int64(0), labels.At(1, 1))
}

func TestLabelImageRoundTrip(t *testing.T) {
	labels := RectLabels(6, 8, Rect{Y0: 1, X0: 2, Y1: 5, X1: 6, ID: 300})
	path := WriteLabelImage(t, t.TempDir(), "labels.png", labels)

	img := LoadGrayImage(t, path)
	assert.Equal(t, 8, img.Bounds().Dx())
	assert.Equal(t, 6, img.Bounds().Dy())
	assert.Equal(t, uint16(300), img.Gray16At(3, 2).Y)
	assert.Equal(t, uint16(0), img.Gray16At(0, 0).Y)
}
