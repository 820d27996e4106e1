package morph

import (
	"math"

	"github.com/MeKo-Tech/segenergy/internal/mempool"
	"github.com/MeKo-Tech/segenergy/internal/volume"
)

// gaussianTruncate is the kernel half-width in standard deviations.
const gaussianTruncate = 4.0

// GaussianKernel returns a normalized 1D Gaussian kernel of half-width
// int(4*sigma + 0.5). For sigma <= 0 it returns the identity kernel.
func GaussianKernel(sigma float64) []float64 {
	if sigma <= 0 {
		return []float64{1}
	}
	half := int(gaussianTruncate*sigma + 0.5)
	kernel := make([]float64, 2*half+1)
	twoSigmaSq := 2 * sigma * sigma
	var sum float64
	for i := range kernel {
		x := float64(i - half)
		kernel[i] = math.Exp(-(x * x) / twoSigmaSq)
		sum += kernel[i]
	}
	for i := range kernel {
		kernel[i] /= sum
	}
	return kernel
}

// GaussianBlur smooths field with an isotropic Gaussian of standard
// deviation sigma, one separable pass per axis. Samples beyond the frame
// repeat the nearest edge value.
func GaussianBlur(field volume.Array[float64], sigma float64) volume.Array[float64] {
	out := field.Clone()
	kernel := GaussianKernel(sigma)
	if len(kernel) == 1 {
		return out
	}
	for ax := range field.NDim() {
		convolveAxis(out, ax, kernel)
	}
	return out
}

func convolveAxis(a volume.Array[float64], ax int, kernel []float64) {
	n := a.Shape[ax]
	outer := volume.Size(a.Shape[:ax])
	inner := volume.Size(a.Shape[ax+1:])
	half := len(kernel) / 2

	line := mempool.Float64.Get(n)
	defer mempool.Float64.Put(line)
	for o := range outer {
		for i := range inner {
			start := o*n*inner + i
			for q := range n {
				line[q] = a.Data[start+q*inner]
			}
			for q := range n {
				var acc float64
				for k, w := range kernel {
					p := min(max(q+k-half, 0), n-1)
					acc += w * line[p]
				}
				a.Data[start+q*inner] = acc
			}
		}
	}
}

// ToField converts a mask to a 0/1 scalar field.
func ToField(mask volume.Array[bool]) volume.Array[float64] {
	return volume.Map(mask, func(v bool) float64 {
		if v {
			return 1
		}
		return 0
	})
}

// Threshold returns the elements of field strictly greater than t.
func Threshold(field volume.Array[float64], t float64) volume.Array[bool] {
	return volume.Map(field, func(v float64) bool { return v > t })
}
