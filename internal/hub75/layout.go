package hub75

// layoutRemap places a logical canvas coordinate into chain space. The
// chain is always wired horizontally, panel 0 first; multi-row grids
// fold it through the mounting pattern. The returned x spans the whole
// chain row, the returned y is local to one panel.
//
// Serpentine layouts rotate alternate panel rows 180°, which shortens
// cable runs; their x mirrors and y inverts on those rows. Zigzag
// layouts keep every panel upright.
func layoutRemap(x, y int, layout PanelLayout, panelW, panelH, rows, cols int) (int, int) {
	if layout == LayoutHorizontal {
		return x, y
	}

	row := y / panelH // which horizontal row of panels
	localY := y % panelH
	virtualResX := cols * panelW
	dmaResX := panelW*rows*cols - 1 // last chain-space x, for mirroring

	switch layout {
	case LayoutTopLeftDown:
		// Even rows reversed X, inverted Y; odd rows normal.
		if row&1 == 0 {
			x = dmaResX - x - row*virtualResX
			y = panelH - 1 - localY
		} else {
			x = (rows-(row+1))*virtualResX + x
			y = localY
		}

	case LayoutTopRightDown:
		// Odd rows reversed X, inverted Y; even rows normal.
		if row&1 == 1 {
			x = dmaResX - x - row*virtualResX
			y = panelH - 1 - localY
		} else {
			x = (rows-(row+1))*virtualResX + x
			y = localY
		}

	case LayoutBottomLeftUp:
		// Chain starts at the physical bottom row.
		inv := rows - 1 - row
		if inv&1 == 1 {
			x = (rows-(inv+1))*virtualResX + x
			y = localY
		} else {
			x = dmaResX - inv*virtualResX - x
			y = panelH - 1 - localY
		}

	case LayoutBottomRightUp:
		inv := rows - 1 - row
		if inv&1 == 0 {
			x = (rows-(inv+1))*virtualResX + x
			y = localY
		} else {
			x = dmaResX - inv*virtualResX - x
			y = panelH - 1 - localY
		}

	case LayoutTopLeftDownZigzag, LayoutTopRightDownZigzag:
		x = (rows-(row+1))*virtualResX + x
		y = localY

	case LayoutBottomLeftUpZigzag, LayoutBottomRightUpZigzag:
		inv := rows - 1 - row
		x = (rows-(inv+1))*virtualResX + x
		y = localY
	}

	return x, y
}

// indexMap is the precomputed composition of layout remap, four-scan
// fold and upper/lower row split: for every word slot of every row-pair
// burst, the frame-buffer pixel index feeding it. Built once at engine
// start so the refresh loop does nothing but array lookups.
type indexMap struct {
	pairs, words int
	upper        [][]int32 // [pair][slot] -> y*width+x, -1 unfed
	lower        [][]int32
}

func buildIndexMap(g Geometry, layout PanelLayout, fourScan FourScan) *indexMap {
	m := &indexMap{pairs: g.RowPairs, words: g.RowWords}
	m.upper = make([][]int32, g.RowPairs)
	m.lower = make([][]int32, g.RowPairs)
	for p := 0; p < g.RowPairs; p++ {
		up := make([]int32, g.RowWords)
		lo := make([]int32, g.RowWords)
		for i := range up {
			up[i], lo[i] = -1, -1
		}
		m.upper[p], m.lower[p] = up, lo
	}

	for y := 0; y < g.Height; y++ {
		for x := 0; x < g.Width; x++ {
			cx, cy := layoutRemap(x, y, layout, g.PanelW, g.PanelH, g.GridRows, g.GridCols)
			cx, cy = fourScanRemap(cx, cy, g.PanelW, fourScan)

			idx := int32(y*g.Width + x)
			if cy >= g.RowPairs {
				m.lower[cy-g.RowPairs][cx] = idx
			} else {
				m.upper[cy][cx] = idx
			}
		}
	}
	return m
}
