package hub75

// initWords builds the register preamble some shift driver chips need
// before the first frame, as word bursts for the engine's sink. Generic
// and MBI5124 chips need none (MBI5124 instead wants the clock phase
// inverted, which the sink handles).
func initWords(driver ShiftDriver, rowWords int) [][]Word {
	switch driver {
	case DriverFM6126A, DriverICN2038S:
		return fm6126aInit(rowWords)
	}
	return nil
}

// fm6126aInit is the FM6126A/ICN2038S power-up sequence: two 16-bit
// config registers clocked across a full row, a blank row, then a latch
// pulse with output re-enabled. Register bits repeat every 16 columns;
// holding the latch for the last 11 (REG1) or 12 (REG2) words tells the
// chip which register it is loading. Output stays disabled throughout.
func fm6126aInit(rowWords int) [][]Word {
	reg1 := [16]bool{false, false, false, false, false, true, true, true,
		true, true, true, false, false, false, false, false} // global brightness
	reg2 := [16]bool{false, false, false, false, false, false, false, false,
		false, true, false, false, false, false, false, false} // enable output

	const allData = BitR1 | BitG1 | BitB1 | BitR2 | BitG2 | BitB2

	regRow := func(pattern [16]bool, latchFrom int) []Word {
		row := make([]Word, rowWords)
		for i := range row {
			w := BitOE
			if pattern[i%16] {
				w |= allData
			}
			if i > latchFrom {
				w |= BitLat
			}
			row[i] = w
		}
		return row
	}

	blank := make([]Word, rowWords)
	for i := range blank {
		blank[i] = BitOE
	}

	return [][]Word{
		regRow(reg1, rowWords-12),
		regRow(reg2, rowWords-13),
		blank,
		{BitLat | BitOE, 0}, // latch the blank row, then release OE
	}
}
