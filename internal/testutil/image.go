package testutil

import (
	"image"
	"image/color"
	"path/filepath"
	"testing"

	"github.com/MeKo-Tech/segenergy/internal/volume"
	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/require"
)

// Rect is an axis-aligned instance [Y0, Y1) x [X0, X1) carrying label ID.
type Rect struct {
	Y0, X0, Y1, X1 int
	ID             int64
}

// Disk is a filled circle instance carrying label ID.
type Disk struct {
	CY, CX, R int
	ID        int64
}

// RectLabels returns an (h, w) label map with the rectangles painted in
// order; later rectangles overwrite earlier ones.
func RectLabels(h, w int, rects ...Rect) volume.Array[int64] {
	labels := volume.New[int64](h, w)
	for _, r := range rects {
		for y := max(r.Y0, 0); y < min(r.Y1, h); y++ {
			for x := max(r.X0, 0); x < min(r.X1, w); x++ {
				labels.Data[y*w+x] = r.ID
			}
		}
	}
	return labels
}

// DiskLabels returns an (h, w) label map with the disks painted in order.
func DiskLabels(h, w int, disks ...Disk) volume.Array[int64] {
	labels := volume.New[int64](h, w)
	for _, d := range disks {
		for y := range h {
			for x := range w {
				dy, dx := y-d.CY, x-d.CX
				if dy*dy+dx*dx <= d.R*d.R {
					labels.Data[y*w+x] = d.ID
				}
			}
		}
	}
	return labels
}

// LabelImage renders a 2D label map as a 16-bit gray image.
func LabelImage(labels volume.Array[int64]) *image.Gray16 {
	h, w := labels.Shape[0], labels.Shape[1]
	img := image.NewGray16(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.SetGray16(x, y, color.Gray16{Y: uint16(labels.Data[y*w+x])})
		}
	}
	return img
}

// WriteLabelImage saves labels as a 16-bit gray image named name in dir
// and returns its path.
func WriteLabelImage(t *testing.T, dir, name string, labels volume.Array[int64]) string {
	t.Helper()

	require.NoError(t, EnsureDir(dir))
	path := filepath.Join(dir, name)
	require.NoError(t, imaging.Save(LabelImage(labels), path), "Failed to save label image: %s", path)
	return path
}

// LoadGrayImage opens an image and returns it as 16-bit gray.
func LoadGrayImage(t *testing.T, path string) *image.Gray16 {
	t.Helper()

	img, err := imaging.Open(path)
	require.NoError(t, err, "Failed to open image: %s", path)
	if g, ok := img.(*image.Gray16); ok {
		return g
	}
	b := img.Bounds()
	out := image.NewGray16(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			out.Set(x, y, img.At(x, y))
		}
	}
	return out
}
