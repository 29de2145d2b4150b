package hub75

// oeMaskSet holds one blanking template per bit plane: BitOE set where
// output stays off for the current brightness, BitLat on the final word.
// Address bits are ORed in per row at encode time. The set is immutable;
// brightness changes build a fresh one and swap the pointer.
type oeMaskSet struct {
	brightness uint8 // effective basis × intensity
	planes     [][]Word
}

// effectiveBrightness folds the coarse basis level and the fine
// intensity multiplier into the single 0..255 value the OE windows are
// cut from.
func effectiveBrightness(basis uint8, intensity float64) uint8 {
	if intensity < 0 {
		intensity = 0
	} else if intensity > 1 {
		intensity = 1
	}
	return uint8(float64(basis) * intensity)
}

// buildOEMasks cuts the per-plane output-enable windows for one
// brightness level.
//
// Duty is a centered window whose width scales with the plane's BCM
// weight and the brightness value. Independent of the window, the latch
// word, latchBlanking words before it and latchBlanking words at the row
// start always stay blanked so row transitions cannot ghost.
func buildOEMasks(g Geometry, sched Schedule, latchBlanking int, brightness uint8) *oeMaskSet {
	set := &oeMaskSet{
		brightness: brightness,
		planes:     make([][]Word, g.BitDepth),
	}
	w := g.RowWords

	for bit := 0; bit < g.BitDepth; bit++ {
		buf := make([]Word, w)

		// Window width shrinks for the planes that repeat: their light
		// already scales with the repeat count.
		bitplane := (2*g.BitDepth - bit) % g.BitDepth
		bitshift := (g.BitDepth - sched.TransitionBit - 1) >> 1
		rightshift := bitplane - bitshift - 2
		if rightshift < 0 {
			rightshift = 0
		}

		maxPixels := (w - latchBlanking) >> rightshift
		displayPixels := (maxPixels * int(brightness)) >> 8
		if brightness > 0 && displayPixels == 0 {
			displayPixels = 1
		}
		if displayPixels > maxPixels-1 {
			displayPixels = maxPixels - 1
		}

		xMin := (w - displayPixels) / 2
		xMax := (w + displayPixels) / 2

		for x := 0; x < w; x++ {
			if x < xMin || x >= xMax {
				buf[x] |= BitOE
			}
		}

		last := w - 1
		buf[last] |= BitOE | BitLat
		for i := 1; i <= latchBlanking && last-i >= 0; i++ {
			buf[last-i] |= BitOE
		}
		for i := 0; i < latchBlanking && i < w; i++ {
			buf[i] |= BitOE
		}

		set.planes[bit] = buf
	}
	return set
}

// rowAddress returns the address bits plane bit carries on row pair.
// Plane 0 keeps the previous row's address so the address lines settle
// across the latch; every other plane addresses its own row.
func rowAddress(pair, pairs, bit int) Word {
	if bit == 0 {
		if pair == 0 {
			return AddrWord(pairs - 1)
		}
		return AddrWord(pair - 1)
	}
	return AddrWord(pair)
}

// encodePlane assembles one bit plane of one row pair: bit-sliced color
// from the quantized channel values, with the blanking template and row
// address merged into every word.
func encodePlane(dst, mask []Word, addr Word, bit int, upR, upG, upB, loR, loG, loB []uint16) {
	sel := uint16(1) << bit
	for x := range dst {
		w := mask[x] | addr
		if upR[x]&sel != 0 {
			w |= BitR1
		}
		if upG[x]&sel != 0 {
			w |= BitG1
		}
		if upB[x]&sel != 0 {
			w |= BitB1
		}
		if loR[x]&sel != 0 {
			w |= BitR2
		}
		if loG[x]&sel != 0 {
			w |= BitG2
		}
		if loB[x]&sel != 0 {
			w |= BitB2
		}
		dst[x] = w
	}
}
