package hub75

import "testing"

func TestSlotMapSinglePanel(t *testing.T) {
	m, err := NewSlotMap(testConfig())
	if err != nil {
		t.Fatalf("NewSlotMap: %v", err)
	}

	x, y, ok := m.Pixel(0, 10, false)
	if !ok || x != 10 || y != 0 {
		t.Errorf("upper pair 0 slot 10 = (%d,%d,%v), want (10,0)", x, y, ok)
	}
	x, y, ok = m.Pixel(0, 10, true)
	if !ok || x != 10 || y != 32 {
		t.Errorf("lower pair 0 slot 10 = (%d,%d,%v), want (10,32)", x, y, ok)
	}
	x, y, ok = m.Pixel(31, 63, true)
	if !ok || x != 63 || y != 63 {
		t.Errorf("lower pair 31 slot 63 = (%d,%d,%v), want (63,63)", x, y, ok)
	}

	if _, _, ok := m.Pixel(32, 0, false); ok {
		t.Error("out-of-range pair accepted")
	}
	if _, _, ok := m.Pixel(0, 64, false); ok {
		t.Error("out-of-range slot accepted")
	}
}

func TestSlotMapChain(t *testing.T) {
	cfg := testConfig()
	cfg.Chain = 2
	m, err := NewSlotMap(cfg)
	if err != nil {
		t.Fatalf("NewSlotMap: %v", err)
	}

	// Slot 100 sits on the second panel, local column 36.
	x, y, ok := m.Pixel(0, 100, false)
	if !ok || x != 100 || y != 0 {
		t.Errorf("pair 0 slot 100 = (%d,%d,%v), want (100,0)", x, y, ok)
	}
	if g := m.Geometry(); g.Width != 128 || g.RowWords != 128 {
		t.Errorf("geometry %d wide, %d words", g.Width, g.RowWords)
	}
}

func TestSlotMapRejectsBadConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Scan = Scan1x4
	if _, err := NewSlotMap(cfg); err == nil {
		t.Error("NewSlotMap accepted a mismatched scan pattern")
	}
}
