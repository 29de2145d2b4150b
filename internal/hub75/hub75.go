// Package hub75 drives chained HUB75 RGB LED matrix panels. It turns an
// RGB frame buffer into binary-code-modulated row bursts, with row address,
// latch and output-enable control merged into every bus word, and paces the
// output to a configured minimum refresh rate.
//
// The package is transport agnostic: a Sink serializes words to hardware
// (see internal/driver) or to a simulator. The engine owns geometry,
// gamma correction, bit-plane encoding and refresh pacing.
package hub75

import "errors"

// Word is one 16-bit sample of the HUB75 bus: six color lines, five
// address lines, latch and output-enable.
//
// Bit layout matches the wire order sinks expect:
//
//	0..2   R1, G1, B1  (upper half color)
//	3..5   R2, G2, B2  (lower half color)
//	6..10  A..E        (row address)
//	11     LAT         (latch, set on the last word of a plane)
//	12     OE          (set = output disabled; the pin is active low)
type Word uint16

const (
	BitR1 Word = 1 << 0
	BitG1 Word = 1 << 1
	BitB1 Word = 1 << 2
	BitR2 Word = 1 << 3
	BitG2 Word = 1 << 4
	BitB2 Word = 1 << 5

	BitLat Word = 1 << 11
	BitOE  Word = 1 << 12

	addrShift      = 6
	addrMask  Word = 0x1F << addrShift
)

// AddrWord returns the address-line bits for a row index.
func AddrWord(row int) Word { return Word(row&0x1F) << addrShift }

// Addr extracts the row address carried by the word.
func (w Word) Addr() int { return int(w&addrMask) >> addrShift }

// Latch reports whether the latch line is asserted.
func (w Word) Latch() bool { return w&BitLat != 0 }

// Blanked reports whether output is disabled for this word.
func (w Word) Blanked() bool { return w&BitOE != 0 }

// Upper returns the three color bits of the upper half.
func (w Word) Upper() (r, g, b bool) {
	return w&BitR1 != 0, w&BitG1 != 0, w&BitB1 != 0
}

// Lower returns the three color bits of the lower half.
func (w Word) Lower() (r, g, b bool) {
	return w&BitR2 != 0, w&BitG2 != 0, w&BitB2 != 0
}

// Sink consumes encoded row bursts. Implementations serialize each word to
// the panel bus (or a simulator) in order and must not retain the slice
// past the call.
type Sink interface {
	// WriteRow clocks out one burst, repeated repeat times back to back.
	// The address, latch and blanking state are carried in the words.
	WriteRow(words []Word, repeat int) error
	// Close releases the underlying transport.
	Close() error
}

// Error kinds. Callers match with errors.Is; detail rides on the wrapped
// message.
var (
	// ErrConfig tags rejected configurations (bad geometry, missing pins,
	// unattainable refresh rate).
	ErrConfig = errors.New("hub75: invalid config")

	// ErrResource tags failures to acquire an output transport (GPIO
	// lines, SPI port, simulator).
	ErrResource = errors.New("hub75: resource unavailable")

	// ErrTiming tags refresh passes that blew their time budget. The
	// engine counts these (see Metrics) rather than aborting.
	ErrTiming = errors.New("hub75: timing violation")
)
