package hub75

import "testing"

func TestInitWordsNone(t *testing.T) {
	for _, d := range []ShiftDriver{DriverGeneric, DriverMBI5124} {
		if got := initWords(d, 64); got != nil {
			t.Errorf("%s: %d preamble bursts, want none", d, len(got))
		}
	}
}

func TestFM6126APreamble(t *testing.T) {
	const n = 64
	bursts := initWords(DriverFM6126A, n)
	if len(bursts) != 4 {
		t.Fatalf("%d bursts, want 4", len(bursts))
	}
	reg1, reg2, blank, latch := bursts[0], bursts[1], bursts[2], bursts[3]

	const allData = BitR1 | BitG1 | BitB1 | BitR2 | BitG2 | BitB2

	// Registers clock across the whole row with output held off.
	for name, row := range map[string][]Word{"reg1": reg1, "reg2": reg2} {
		if len(row) != n {
			t.Fatalf("%s: %d words, want %d", name, len(row), n)
		}
		for i, w := range row {
			if !w.Blanked() {
				t.Fatalf("%s word %d: OE released during preamble", name, i)
			}
			if d := w & allData; d != 0 && d != allData {
				t.Fatalf("%s word %d: partial data bus %04x", name, i, uint16(w))
			}
		}
	}

	// The register number is keyed by how long LAT is held: the last 11
	// words for register 1, the last 12 for register 2.
	countLat := func(row []Word) int {
		c := 0
		for _, w := range row {
			if w.Latch() {
				c++
			}
		}
		return c
	}
	if got := countLat(reg1); got != 11 {
		t.Errorf("reg1 latch held %d words, want 11", got)
	}
	if got := countLat(reg2); got != 12 {
		t.Errorf("reg2 latch held %d words, want 12", got)
	}
	if reg1[n-12].Latch() {
		t.Error("reg1 latch starts a word early")
	}
	if !reg1[n-11].Latch() || !reg1[n-1].Latch() {
		t.Error("reg1 latch tail broken")
	}

	// Register bits repeat every 16 columns.
	for i := 16; i < n-12; i++ {
		if (reg1[i]&allData != 0) != (reg1[i-16]&allData != 0) {
			t.Errorf("reg1 pattern not 16-periodic at %d", i)
		}
	}

	// A dark row flushes the register data out of the shift chain.
	for i, w := range blank {
		if w != BitOE {
			t.Fatalf("blank word %d = %04x", i, uint16(w))
		}
	}

	// Final pulse latches the dark row and releases OE.
	if len(latch) != 2 || latch[0] != BitLat|BitOE || latch[1] != 0 {
		t.Fatalf("latch burst = %04x", latch)
	}
}

func TestICN2038SMatchesFM6126A(t *testing.T) {
	a := initWords(DriverFM6126A, 32)
	b := initWords(DriverICN2038S, 32)
	if len(a) != len(b) {
		t.Fatalf("burst counts differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if len(a[i]) != len(b[i]) {
			t.Fatalf("burst %d lengths differ", i)
		}
		for j := range a[i] {
			if a[i][j] != b[i][j] {
				t.Fatalf("burst %d word %d differs", i, j)
			}
		}
	}
}
