package hub75

import (
	"fmt"
	"math"
)

// lutTable maps 8-bit channel input to panel intensity in 8.8 fixed
// point, scaled to (1<<depth)-1. The fractional bits feed temporal
// dithering; the non-dithered path rounds them away. Tables are immutable
// once built; reconfiguration swaps the whole pointer.
type lutTable [256]uint32

// buildLUT bakes the transfer curve for one gamma mode at one bit depth.
func buildLUT(mode GammaMode, depth int, custom *[256]float64) (*lutTable, error) {
	maxVal := float64(int(1)<<depth - 1)
	var t lutTable

	switch mode {
	case GammaCIE1931:
		// CIE 1931 lightness: linear below L=8, cubic above.
		for i := range t {
			l := float64(i) / 255.0 * 100.0
			var y float64
			if l <= 8 {
				y = l / 902.3
			} else {
				y = math.Pow((l+16)/116, 3)
			}
			t[i] = uint32(math.Round(y * maxVal * 256))
		}

	case Gamma22:
		for i := range t {
			y := math.Pow(float64(i)/255.0, 2.2)
			t[i] = uint32(math.Round(y * maxVal * 256))
		}

	case GammaNone:
		for i := range t {
			t[i] = uint32(i) * uint32(maxVal) * 256 / 255
		}

	case GammaCustom:
		if custom == nil {
			return nil, fmt.Errorf("%w: custom gamma without table", ErrConfig)
		}
		for i := range t {
			y := custom[i]
			if y < 0 {
				y = 0
			} else if y > 1 {
				y = 1
			}
			t[i] = uint32(math.Round(y * maxVal * 256))
		}

	default:
		return nil, fmt.Errorf("%w: gamma mode %s", ErrConfig, mode)
	}

	return &t, nil
}
