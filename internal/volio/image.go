package volio

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"path/filepath"
	"slices"
	"strings"

	"github.com/MeKo-Tech/segenergy/internal/volume"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
)

// SupportedLabelExtensions lists the lossless formats label maps are read from.
var SupportedLabelExtensions = []string{".png", ".tif", ".tiff", ".bmp"}

// IsSupportedLabelImage reports whether path has a supported label extension.
func IsSupportedLabelImage(path string) bool {
	return slices.Contains(SupportedLabelExtensions, strings.ToLower(filepath.Ext(path)))
}

// LoadLabels decodes a label image into a 2D label map of shape (H, W).
func LoadLabels(path string) (volume.Array[int64], error) {
	if !IsSupportedLabelImage(path) {
		return volume.Array[int64]{}, &IOError{
			Operation: "load",
			Path:      path,
			Err:       fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path)),
		}
	}
	img, err := imaging.Open(path)
	if err != nil {
		return volume.Array[int64]{}, &IOError{Operation: "load", Path: path, Err: err}
	}
	return LabelsFromImage(img), nil
}

// LoadLabelStack loads equally sized label images as a (Z, H, W) stack.
func LoadLabelStack(paths []string) (volume.Array[int64], error) {
	parts := make([]volume.Array[int64], 0, len(paths))
	for _, p := range paths {
		labels, err := LoadLabels(p)
		if err != nil {
			return volume.Array[int64]{}, err
		}
		parts = append(parts, labels)
	}
	stack, err := volume.Stack(parts)
	if err != nil {
		return volume.Array[int64]{}, &IOError{Operation: "stack", Err: err}
	}
	return stack, nil
}

// LabelsFromImage converts an image to a label map. Gray images use their
// intensity, paletted images their palette index, and color images the
// packed 24-bit RGB value.
func LabelsFromImage(img image.Image) volume.Array[int64] {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	out := volume.New[int64](h, w)

	var at func(x, y int) int64
	switch src := img.(type) {
	case *image.Gray:
		at = func(x, y int) int64 { return int64(src.GrayAt(x, y).Y) }
	case *image.Gray16:
		at = func(x, y int) int64 { return int64(src.Gray16At(x, y).Y) }
	case *image.Paletted:
		at = func(x, y int) int64 { return int64(src.ColorIndexAt(x, y)) }
	default:
		at = func(x, y int) int64 {
			c := color.NRGBAModel.Convert(src.At(x, y)).(color.NRGBA)
			return int64(c.R)<<16 | int64(c.G)<<8 | int64(c.B)
		}
	}
	for y := range h {
		for x := range w {
			out.Data[y*w+x] = at(b.Min.X+x, b.Min.Y+y)
		}
	}
	return out
}

// EnergyImage renders a 2D energy map as 16-bit gray, scaling [lo, 1] to
// the full range. Values below lo, such as the background value of an
// instance map rendered with lo = 0, map to black.
func EnergyImage(energy volume.Array[float64], lo float64) (*image.Gray16, error) {
	if energy.NDim() != 2 {
		return nil, fmt.Errorf("%w: got shape %v", ErrRank, energy.Shape)
	}
	if lo >= 1 {
		return nil, fmt.Errorf("energy image lower bound %v (must be < 1)", lo)
	}
	h, w := energy.Shape[0], energy.Shape[1]
	img := image.NewGray16(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			v := min(max((energy.Data[y*w+x]-lo)/(1-lo), 0), 1)
			if math.IsNaN(v) {
				v = 0
			}
			img.SetGray16(x, y, color.Gray16{Y: uint16(math.Round(v * math.MaxUint16))})
		}
	}
	return img, nil
}

// ClassImage renders a 2D quantized map as 8-bit gray holding the class index.
func ClassImage(classes volume.Array[int64]) (*image.Gray, error) {
	if classes.NDim() != 2 {
		return nil, fmt.Errorf("%w: got shape %v", ErrRank, classes.Shape)
	}
	h, w := classes.Shape[0], classes.Shape[1]
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.SetGray(x, y, color.Gray{Y: uint8(min(max(classes.Data[y*w+x], 0), math.MaxUint8))})
		}
	}
	return img, nil
}

// SaveImage writes img to path; the format follows the extension.
func SaveImage(img image.Image, path string) error {
	if !IsSupportedLabelImage(path) {
		return &IOError{
			Operation: "save",
			Path:      path,
			Err:       fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path)),
		}
	}
	if err := imaging.Save(img, path); err != nil {
		return &IOError{Operation: "save", Path: path, Err: err}
	}
	return nil
}

// SaveEnergy writes a 2D energy map as a 16-bit gray image; see EnergyImage.
func SaveEnergy(energy volume.Array[float64], lo float64, path string) error {
	img, err := EnergyImage(energy, lo)
	if err != nil {
		return &IOError{Operation: "save", Path: path, Err: err}
	}
	return SaveImage(img, path)
}

// SaveClasses writes a 2D quantized map as an 8-bit gray image.
func SaveClasses(classes volume.Array[int64], path string) error {
	img, err := ClassImage(classes)
	if err != nil {
		return &IOError{Operation: "save", Path: path, Err: err}
	}
	return SaveImage(img, path)
}
