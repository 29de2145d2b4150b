package hub75

// bayer4x4 is the ordered-dither threshold map, spread across the 8
// fractional LUT bits: sixteen levels of sixteen, offset by eight so the
// mean threshold sits at half an intensity step.
var bayer4x4 = [16]uint32{
	8, 136, 40, 168,
	200, 72, 232, 104,
	56, 184, 24, 152,
	248, 120, 216, 88,
}

// ditherStride rotates the threshold map between frames. 7 is coprime to
// 16, so every cell walks the full threshold sequence over 16 frames
// instead of beating against small refresh divisors.
const ditherStride = 7

// ditherPhase derives the map rotation for a frame counter.
func ditherPhase(frame uint64) int {
	return int(frame*ditherStride) & 15
}

// quantize folds the fractional LUT bits of v into the integer intensity
// for the cell at (x, y). With dithering the rounding threshold varies
// per cell and frame, trading static banding in dark gradients for
// refresh-rate temporal noise; without it the fraction rounds to nearest.
func quantize(v uint32, x, y, phase int, dither bool) uint16 {
	if !dither {
		return uint16((v + 128) >> 8)
	}
	idx := (x & 3) | ((y & 3) << 2)
	return uint16((v + bayer4x4[(idx+phase)&15]) >> 8)
}
