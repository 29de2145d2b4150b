package hub75

import "testing"

func TestFourScanIdentity(t *testing.T) {
	x, y := fourScanRemap(32, 16, 64, FourScanNone)
	if x != 32 || y != 16 {
		t.Errorf("standard panel remapped (32,16) to (%d,%d)", x, y)
	}
}

func TestFourScan16px(t *testing.T) {
	cases := []struct {
		x, y   int
		wx, wy int
	}{
		// Upper half of each 8-row group folds into the right panel copy.
		{10, 0, 74, 0},
		{10, 4, 10, 0},
		{0, 3, 64, 3},
		{0, 7, 0, 3},
		{63, 8, 127, 4},
		{63, 15, 63, 7},
	}
	for _, tc := range cases {
		x, y := fourScanRemap(tc.x, tc.y, 64, FourScan16px)
		if x != tc.wx || y != tc.wy {
			t.Errorf("16px (%d,%d) = (%d,%d), want (%d,%d)", tc.x, tc.y, x, y, tc.wx, tc.wy)
		}
	}
}

func TestFourScan32px(t *testing.T) {
	cases := []struct {
		x, y   int
		wx, wy int
	}{
		{10, 0, 74, 0},
		{10, 8, 10, 0},
		{0, 7, 64, 7},
		{0, 15, 0, 7},
		{63, 16, 127, 8},
		{63, 31, 63, 15},
	}
	for _, tc := range cases {
		x, y := fourScanRemap(tc.x, tc.y, 64, FourScan32px)
		if x != tc.wx || y != tc.wy {
			t.Errorf("32px (%d,%d) = (%d,%d), want (%d,%d)", tc.x, tc.y, x, y, tc.wx, tc.wy)
		}
	}
}

func TestFourScan64px(t *testing.T) {
	// The middle two 8-row groups trade places before the fold.
	cases := []struct {
		x, y   int
		wx, wy int
	}{
		{0, 0, 64, 0},
		{0, 8, 64, 8},
		{0, 16, 0, 0},
		{0, 24, 0, 8},
		{0, 32, 64, 16},
		{0, 63, 0, 31},
	}
	for _, tc := range cases {
		x, y := fourScanRemap(tc.x, tc.y, 64, FourScan64px)
		if x != tc.wx || y != tc.wy {
			t.Errorf("64px (%d,%d) = (%d,%d), want (%d,%d)", tc.x, tc.y, x, y, tc.wx, tc.wy)
		}
	}
}

func TestFourScanBijective(t *testing.T) {
	cases := []struct {
		mode   FourScan
		w, h   int
		fw, fh int
	}{
		{FourScan16px, 64, 16, 128, 8},
		{FourScan32px, 64, 32, 128, 16},
		{FourScan64px, 64, 64, 128, 32},
	}
	for _, tc := range cases {
		t.Run(tc.mode.String(), func(t *testing.T) {
			seen := make(map[int]bool, tc.w*tc.h)
			for y := 0; y < tc.h; y++ {
				for x := 0; x < tc.w; x++ {
					fx, fy := fourScanRemap(x, y, tc.w, tc.mode)
					if fx < 0 || fx >= tc.fw || fy < 0 || fy >= tc.fh {
						t.Fatalf("(%d,%d) folded out of bounds: (%d,%d)", x, y, fx, fy)
					}
					key := fy*tc.fw + fx
					if seen[key] {
						t.Fatalf("(%d,%d) folds onto an occupied cell (%d,%d)", x, y, fx, fy)
					}
					seen[key] = true
				}
			}
			if len(seen) != tc.w*tc.h {
				t.Fatalf("fold covered %d of %d cells", len(seen), tc.w*tc.h)
			}
		})
	}
}

func TestFourScanChained(t *testing.T) {
	// Folding is per panel; a pixel on the second panel of a chain folds
	// within that panel's doubled slot range.
	x, y := fourScanRemap(64, 0, 64, FourScan32px)
	if x != 192 || y != 0 {
		t.Errorf("chained (64,0) = (%d,%d), want (192,0)", x, y)
	}
	x, y = fourScanRemap(64, 8, 64, FourScan32px)
	if x != 128 || y != 0 {
		t.Errorf("chained (64,8) = (%d,%d), want (128,0)", x, y)
	}
}
