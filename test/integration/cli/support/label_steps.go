package support

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/MeKo-Tech/segenergy/internal/testutil"
	"github.com/MeKo-Tech/segenergy/internal/volio"
	"github.com/MeKo-Tech/segenergy/internal/volume"
	"github.com/cucumber/godog"
	"github.com/disintegration/imaging"
)

// Instances drawn by the fixtures are 8x6 rectangles two pixels apart.
const (
	fixtureRectH = 8
	fixtureRectW = 6
	fixtureGap   = 2
)

// fixtureLabels lays out n rectangular instances with ids 1..n in a row.
func fixtureLabels(n int) volume.Array[int64] {
	h := fixtureRectH + 2*fixtureGap
	w := n*(fixtureRectW+fixtureGap) + fixtureGap
	rects := make([]testutil.Rect, n)
	for i := range n {
		x0 := fixtureGap + i*(fixtureRectW+fixtureGap)
		rects[i] = testutil.Rect{
			Y0: fixtureGap, X0: x0,
			Y1: fixtureGap + fixtureRectH, X1: x0 + fixtureRectW,
			ID: int64(i + 1),
		}
	}
	return testutil.RectLabels(h, w, rects...)
}

// aLabelImageWithInstances writes a 16-bit label image into the scenario directory.
func (testCtx *TestContext) aLabelImageWithInstances(name string, n int) error {
	if err := os.MkdirAll(filepath.Dir(testCtx.Path(name)), 0o750); err != nil {
		return err
	}
	if err := imaging.Save(testutil.LabelImage(fixtureLabels(n)), testCtx.Path(name)); err != nil {
		return fmt.Errorf("failed to write label image %s: %w", name, err)
	}
	testCtx.TrackFile(name)
	return nil
}

// aRawLabelVolumeWithInstances writes n instances repeated over depth slices.
func (testCtx *TestContext) aRawLabelVolumeWithInstances(name string, n, depth int) error {
	slice := fixtureLabels(n)
	parts := make([]volume.Array[int64], depth)
	for z := range parts {
		parts[z] = slice
	}
	labels, err := volume.Stack(parts)
	if err != nil {
		return err
	}
	if err := volio.SaveRaw(labels, testCtx.Path(name)); err != nil {
		return fmt.Errorf("failed to write label volume %s: %w", name, err)
	}
	testCtx.TrackFile(name)
	return nil
}

// aRawEnergyMap writes an energy ramp from 0 to 1 in raster order.
func (testCtx *TestContext) aRawEnergyMap(name string, h, w int) error {
	energy := volume.New[float64](h, w)
	for i := range energy.Data {
		energy.Data[i] = float64(i) / float64(max(energy.Len()-1, 1))
	}
	if err := volio.SaveRaw(energy, testCtx.Path(name)); err != nil {
		return fmt.Errorf("failed to write energy map %s: %w", name, err)
	}
	testCtx.TrackFile(name)
	return nil
}

// channelFirstLogits writes (classes, h, w) logits peaking at one class.
func (testCtx *TestContext) channelFirstLogits(name string, classes, peak, h, w int) error {
	if peak < 0 || peak >= classes {
		return fmt.Errorf("peak class %d outside 0..%d", peak, classes-1)
	}
	logits := volume.New[float64](classes, h, w)
	plane := h * w
	for i := range plane {
		logits.Data[peak*plane+i] = 10
	}
	if err := volio.SaveRaw(logits, testCtx.Path(name)); err != nil {
		return fmt.Errorf("failed to write logits %s: %w", name, err)
	}
	testCtx.TrackFile(name)
	return nil
}

// theRawVolumeShouldHaveShape compares the header shape of a raw volume, e.g. "2x12x26".
func (testCtx *TestContext) theRawVolumeShouldHaveShape(name, want string) error {
	dims, err := parseShape(want)
	if err != nil {
		return err
	}
	_, shape, err := testCtx.rawHeader(name)
	if err != nil {
		return err
	}
	if !slices.Equal(shape, dims) {
		return fmt.Errorf("raw volume %s has shape %v, want %v", name, shape, dims)
	}
	return nil
}

// theRawVolumeShouldHoldElements compares the element type of a raw volume.
func (testCtx *TestContext) theRawVolumeShouldHoldElements(name, want string) error {
	dtype, _, err := testCtx.rawHeader(name)
	if err != nil {
		return err
	}
	if dtype.String() != want {
		return fmt.Errorf("raw volume %s holds %s elements, want %s", name, dtype, want)
	}
	return nil
}

// theEnergyMapShouldSpan checks min and max of a float64 raw volume.
func (testCtx *TestContext) theEnergyMapShouldSpan(name string, lo, hi float64) error {
	energy, err := volio.LoadRaw[float64](testCtx.Path(name))
	if err != nil {
		return err
	}
	if energy.Len() == 0 {
		return fmt.Errorf("energy map %s is empty", name)
	}
	gotLo, gotHi := slices.Min(energy.Data), slices.Max(energy.Data)
	const tol = 1e-9
	if gotLo < lo-tol || gotHi > hi+tol {
		return fmt.Errorf("energy map %s spans [%g, %g], want within [%g, %g]", name, gotLo, gotHi, lo, hi)
	}
	return nil
}

func (testCtx *TestContext) rawHeader(name string) (volio.DType, []int, error) {
	f, err := os.Open(testCtx.Path(name))
	if err != nil {
		return 0, nil, err
	}
	defer f.Close()
	return volio.ReadRawHeader(f)
}

func parseShape(s string) ([]int, error) {
	parts := strings.Split(s, "x")
	dims := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid shape %q: %w", s, err)
		}
		dims[i] = n
	}
	return dims, nil
}

// RegisterLabelSteps registers fixture and raw-volume step definitions.
func (testCtx *TestContext) RegisterLabelSteps(sc *godog.ScenarioContext) {
	sc.Step(`^a label image "([^"]*)" with (\d+) instances?$`, testCtx.aLabelImageWithInstances)
	sc.Step(`^a raw label volume "([^"]*)" with (\d+) instances? over (\d+) slices?$`,
		testCtx.aRawLabelVolumeWithInstances)
	sc.Step(`^a raw energy map "([^"]*)" of (\d+)x(\d+)$`, testCtx.aRawEnergyMap)
	sc.Step(`^channel-first logits "([^"]*)" with (\d+) classes peaking at class (\d+) over (\d+)x(\d+)$`,
		testCtx.channelFirstLogits)
	sc.Step(`^the raw volume "([^"]*)" should have shape "([^"]*)"$`, testCtx.theRawVolumeShouldHaveShape)
	sc.Step(`^the raw volume "([^"]*)" should hold (uint8|int64|float64) elements$`,
		testCtx.theRawVolumeShouldHoldElements)
	sc.Step(`^the energy map "([^"]*)" should lie within \[([-\d.]+), ([-\d.]+)\]$`,
		testCtx.theEnergyMapShouldSpan)
}
