package hub75

// fourScanRemap folds a chain-space coordinate into the space the shift
// registers of a four-scan panel see: half the rows at twice the width,
// folded per panel. x spans the whole chain, y is local to one panel.
// Standard panels pass through unchanged.
func fourScanRemap(x, y, panelW int, mode FourScan) (int, int) {
	switch mode {
	case FourScan16px:
		if y&4 == 0 {
			x += ((x / panelW) + 1) * panelW
		} else {
			x += (x / panelW) * panelW
		}
		y = (y>>3)*4 + (y & 0b0011)

	case FourScan32px:
		if y&8 == 0 {
			x += ((x / panelW) + 1) * panelW
		} else {
			x += (x / panelW) * panelW
		}
		y = (y>>4)*8 + (y & 0b0111)

	case FourScan64px:
		// 64px panels swap two row groups before the standard fold.
		if (y & 8) != ((y & 16) >> 1) {
			y = ((y & 0b11000) ^ 0b11000) + (y & 0b11100111)
		}
		if y&8 == 0 {
			x += ((x / panelW) + 1) * panelW
		} else {
			x += (x / panelW) * panelW
		}
		y = (y>>4)*8 + (y & 0b0111)
	}
	return x, y
}
