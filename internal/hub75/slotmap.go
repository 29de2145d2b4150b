package hub75

// SlotMap exposes the composed logical→physical pixel mapping (layout
// grid, four-scan fold, chain concatenation) outside the engine, for
// sinks that reconstruct images from the word stream.
type SlotMap struct {
	geo Geometry
	m   *indexMap
}

// NewSlotMap validates cfg and precomputes its pixel mapping.
func NewSlotMap(cfg Config) (*SlotMap, error) {
	geo, err := cfg.Validate()
	if err != nil {
		return nil, err
	}
	return &SlotMap{geo: geo, m: buildIndexMap(geo, cfg.Layout, cfg.FourScan)}, nil
}

// Geometry returns the validated chain shape.
func (s *SlotMap) Geometry() Geometry { return s.geo }

// Pixel returns the logical coordinate feeding the given chain slot.
// lower selects the second color bus. ok is false for slots no pixel
// feeds.
func (s *SlotMap) Pixel(pair, slot int, lower bool) (x, y int, ok bool) {
	if pair < 0 || pair >= s.geo.RowPairs || slot < 0 || slot >= s.geo.RowWords {
		return 0, 0, false
	}
	var idx int32
	if lower {
		idx = s.m.lower[pair][slot]
	} else {
		idx = s.m.upper[pair][slot]
	}
	if idx < 0 {
		return 0, 0, false
	}
	return int(idx) % s.geo.Width, int(idx) / s.geo.Width, true
}
