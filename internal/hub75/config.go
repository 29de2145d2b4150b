package hub75

import (
	"fmt"
	"io"
	"math/bits"
	"strings"
)

// Limits carried over from the panel hardware: LUT tables exist for 6..12
// bits, and the address bus tops out at five lines.
const (
	MinBitDepth = 6
	MaxBitDepth = 12
	MaxChain    = 8
	MaxClockHz  = 40_000_000
)

// ScanPattern is the multiplex ratio of the panel. The value is the
// denominator: a 1/32 scan panel lights one of 32 row pairs at a time.
type ScanPattern int

const (
	Scan1x2  ScanPattern = 2
	Scan1x4  ScanPattern = 4
	Scan1x8  ScanPattern = 8
	Scan1x16 ScanPattern = 16
	Scan1x32 ScanPattern = 32
)

// RowPairs returns the number of row pairs the pattern multiplexes over.
func (s ScanPattern) RowPairs() int { return int(s) }

// AddressLines returns how many address lines the pattern needs (A..E).
func (s ScanPattern) AddressLines() int {
	if s <= 1 {
		return 0
	}
	return bits.Len(uint(s) - 1)
}

func (s ScanPattern) String() string { return fmt.Sprintf("1/%d", int(s)) }

// ParseScanPattern parses the "1/N" form used in config files.
func ParseScanPattern(v string) (ScanPattern, error) {
	switch strings.TrimSpace(v) {
	case "1/2":
		return Scan1x2, nil
	case "1/4":
		return Scan1x4, nil
	case "1/8":
		return Scan1x8, nil
	case "1/16":
		return Scan1x16, nil
	case "1/32":
		return Scan1x32, nil
	}
	return 0, fmt.Errorf("%w: unknown scan pattern %q", ErrConfig, v)
}

// GammaMode selects the intensity transfer curve baked into the LUT.
type GammaMode int

const (
	GammaNone GammaMode = iota // linear
	GammaCIE1931
	Gamma22
	GammaCustom // caller-supplied table
)

func (g GammaMode) String() string {
	switch g {
	case GammaNone:
		return "none"
	case GammaCIE1931:
		return "cie1931"
	case Gamma22:
		return "gamma22"
	case GammaCustom:
		return "custom"
	}
	return fmt.Sprintf("gamma(%d)", int(g))
}

// ParseGammaMode parses the config-file spelling of a gamma mode.
func ParseGammaMode(v string) (GammaMode, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "none", "linear":
		return GammaNone, nil
	case "cie1931", "cie":
		return GammaCIE1931, nil
	case "gamma22", "2.2":
		return Gamma22, nil
	case "custom":
		return GammaCustom, nil
	}
	return 0, fmt.Errorf("%w: unknown gamma mode %q", ErrConfig, v)
}

// FourScan identifies the folded wiring of so-called four-scan panels,
// where one shift register row serves two logical rows side by side.
type FourScan int

const (
	FourScanNone FourScan = iota
	FourScan16px          // 16px high four-scan panel
	FourScan32px          // 32px high four-scan panel
	FourScan64px          // 64px high four-scan panel
)

func (f FourScan) String() string {
	switch f {
	case FourScanNone:
		return "none"
	case FourScan16px:
		return "16px"
	case FourScan32px:
		return "32px"
	case FourScan64px:
		return "64px"
	}
	return fmt.Sprintf("fourscan(%d)", int(f))
}

// ParseFourScan parses the config-file spelling of a four-scan wiring.
func ParseFourScan(v string) (FourScan, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "none":
		return FourScanNone, nil
	case "16px", "16":
		return FourScan16px, nil
	case "32px", "32":
		return FourScan32px, nil
	case "64px", "64":
		return FourScan64px, nil
	}
	return 0, fmt.Errorf("%w: unknown four-scan wiring %q", ErrConfig, v)
}

// panelHeight returns the logical panel height the wiring implies, or 0
// for standard panels (any height).
func (f FourScan) panelHeight() int {
	switch f {
	case FourScan16px:
		return 16
	case FourScan32px:
		return 32
	case FourScan64px:
		return 64
	}
	return 0
}

// PanelLayout describes how a grid of panels is stitched into one chain.
// The chain is always wired horizontally (panel 0 first); the layout says
// where each chain position sits in the logical canvas and whether it is
// mounted upside down.
type PanelLayout int

const (
	LayoutHorizontal PanelLayout = iota // single row, left to right

	// Serpentine grids: alternate panel rows are rotated 180°.
	LayoutTopLeftDown
	LayoutTopRightDown
	LayoutBottomLeftUp
	LayoutBottomRightUp

	// Zigzag grids: every panel upright, longer cable runs.
	LayoutTopLeftDownZigzag
	LayoutTopRightDownZigzag
	LayoutBottomLeftUpZigzag
	LayoutBottomRightUpZigzag
)

func (l PanelLayout) String() string {
	switch l {
	case LayoutHorizontal:
		return "horizontal"
	case LayoutTopLeftDown:
		return "top_left_down"
	case LayoutTopRightDown:
		return "top_right_down"
	case LayoutBottomLeftUp:
		return "bottom_left_up"
	case LayoutBottomRightUp:
		return "bottom_right_up"
	case LayoutTopLeftDownZigzag:
		return "top_left_down_zigzag"
	case LayoutTopRightDownZigzag:
		return "top_right_down_zigzag"
	case LayoutBottomLeftUpZigzag:
		return "bottom_left_up_zigzag"
	case LayoutBottomRightUpZigzag:
		return "bottom_right_up_zigzag"
	}
	return fmt.Sprintf("layout(%d)", int(l))
}

// ParsePanelLayout parses the config-file spelling of a layout.
func ParsePanelLayout(v string) (PanelLayout, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "horizontal":
		return LayoutHorizontal, nil
	case "top_left_down":
		return LayoutTopLeftDown, nil
	case "top_right_down":
		return LayoutTopRightDown, nil
	case "bottom_left_up":
		return LayoutBottomLeftUp, nil
	case "bottom_right_up":
		return LayoutBottomRightUp, nil
	case "top_left_down_zigzag":
		return LayoutTopLeftDownZigzag, nil
	case "top_right_down_zigzag":
		return LayoutTopRightDownZigzag, nil
	case "bottom_left_up_zigzag":
		return LayoutBottomLeftUpZigzag, nil
	case "bottom_right_up_zigzag":
		return LayoutBottomRightUpZigzag, nil
	}
	return 0, fmt.Errorf("%w: unknown panel layout %q", ErrConfig, v)
}

// ShiftDriver identifies the shift register chip on the panel. Some chips
// need a register preamble before the first frame (see InitPanel), some
// need an inverted clock phase.
type ShiftDriver int

const (
	DriverGeneric ShiftDriver = iota
	DriverFM6126A
	DriverICN2038S // FM6126A-compatible preamble
	DriverMBI5124  // no preamble, needs inverted clock phase
	DriverFM6124   // unsupported
	DriverDP3246   // unsupported
)

func (d ShiftDriver) String() string {
	switch d {
	case DriverGeneric:
		return "generic"
	case DriverFM6126A:
		return "fm6126a"
	case DriverICN2038S:
		return "icn2038s"
	case DriverMBI5124:
		return "mbi5124"
	case DriverFM6124:
		return "fm6124"
	case DriverDP3246:
		return "dp3246"
	}
	return fmt.Sprintf("driver(%d)", int(d))
}

// ParseShiftDriver parses the config-file spelling of a shift driver.
func ParseShiftDriver(v string) (ShiftDriver, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "generic":
		return DriverGeneric, nil
	case "fm6126a":
		return DriverFM6126A, nil
	case "icn2038s":
		return DriverICN2038S, nil
	case "mbi5124":
		return DriverMBI5124, nil
	case "fm6124":
		return DriverFM6124, nil
	case "dp3246":
		return DriverDP3246, nil
	}
	return 0, fmt.Errorf("%w: unknown shift driver %q", ErrConfig, v)
}

// Pins holds the GPIO assignment of the fourteen HUB75 signals, BCM
// numbering. -1 marks an unconnected line. The engine never touches pins
// itself; sinks consume this.
type Pins struct {
	R1, G1, B1 int // upper color bus
	R2, G2, B2 int // lower color bus
	A, B, C, D int // address lines
	E          int // address line, 1/32 scan only
	Lat        int
	OE         int
	Clk        int
}

// UnassignedPins returns a Pins with every line marked unconnected.
func UnassignedPins() Pins {
	return Pins{
		R1: -1, G1: -1, B1: -1,
		R2: -1, G2: -1, B2: -1,
		A: -1, B: -1, C: -1, D: -1, E: -1,
		Lat: -1, OE: -1, Clk: -1,
	}
}

// AddressLineCount returns how many address lines are assigned, counting
// from A up to the first unconnected line.
func (p Pins) AddressLineCount() int {
	n := 0
	for _, pin := range [5]int{p.A, p.B, p.C, p.D, p.E} {
		if pin < 0 {
			break
		}
		n++
	}
	return n
}

// DumpTo writes the pin assignment as human-readable text.
func (p Pins) DumpTo(w io.Writer) {
	fmt.Fprintf(w, "HUB75 Pin Configuration:\n")
	fmt.Fprintf(w, "  Data (Upper): R1=%d, G1=%d, B1=%d\n", p.R1, p.G1, p.B1)
	fmt.Fprintf(w, "  Data (Lower): R2=%d, G2=%d, B2=%d\n", p.R2, p.G2, p.B2)
	fmt.Fprintf(w, "  Address: A=%d, B=%d, C=%d, D=%d, E=%d\n", p.A, p.B, p.C, p.D, p.E)
	fmt.Fprintf(w, "  Control: LAT=%d, OE=%d, CLK=%d\n", p.Lat, p.OE, p.Clk)
}

// Config describes one panel chain. Width and Height are for a single
// panel; the logical canvas grows with Chain and the layout grid.
//
// A Config is plain data. Validate derives the immutable Geometry the
// engine runs on; nothing downstream reads a Config that did not pass
// Validate.
type Config struct {
	Width  int
	Height int
	Scan   ScanPattern

	Chain      int
	Layout     PanelLayout
	LayoutRows int // 0 = derived from Layout and Chain
	LayoutCols int
	FourScan   FourScan
	Driver     ShiftDriver

	Pins Pins

	ClockHz       int
	BitDepth      int
	MinRefresh    int // Hz the schedule must reach
	LatchBlanking int // blanked words on both sides of the latch

	Brightness uint8
	Gamma      GammaMode
	GammaTable *[256]float64 // 0..1 weights, GammaCustom only

	DoubleBuffer     bool
	TemporalDither   bool
	ClkPhaseInverted bool
}

// DefaultConfig returns the baseline 64×64 single panel setup. Pins are
// left unassigned; supply real ones before driving hardware.
func DefaultConfig() Config {
	return Config{
		Width:         64,
		Height:        64,
		Scan:          Scan1x32,
		Chain:         1,
		Layout:        LayoutHorizontal,
		FourScan:      FourScanNone,
		Driver:        DriverGeneric,
		Pins:          UnassignedPins(),
		ClockHz:       20_000_000,
		BitDepth:      8,
		MinRefresh:    60,
		LatchBlanking: 1,
		Brightness:    128,
		Gamma:         GammaCIE1931,
	}
}

// Geometry is the validated, derived shape of the chain. All fields are
// fixed for the life of an engine.
type Geometry struct {
	PanelW, PanelH     int // one panel, logical pixels
	GridRows, GridCols int
	Chain              int
	Width, Height      int // logical canvas

	FoldedW, FoldedH int // one panel as the shift registers see it
	RowWords         int // words per row burst across the whole chain
	RowPairs         int
	AddressLines     int
	BitDepth         int

	Schedule Schedule
}

// Validate checks the configuration and derives its Geometry. It is pure;
// all errors wrap ErrConfig.
func (c Config) Validate() (Geometry, error) {
	var g Geometry

	if c.Width < 1 || c.Height < 2 {
		return g, fmt.Errorf("%w: panel size %dx%d", ErrConfig, c.Width, c.Height)
	}
	if c.Height%2 != 0 {
		return g, fmt.Errorf("%w: panel height %d must be even", ErrConfig, c.Height)
	}
	if c.Chain < 1 || c.Chain > MaxChain {
		return g, fmt.Errorf("%w: chain length %d (1..%d)", ErrConfig, c.Chain, MaxChain)
	}
	if c.BitDepth < MinBitDepth || c.BitDepth > MaxBitDepth {
		return g, fmt.Errorf("%w: bit depth %d (%d..%d)", ErrConfig, c.BitDepth, MinBitDepth, MaxBitDepth)
	}
	if c.ClockHz < 1 || c.ClockHz > MaxClockHz {
		return g, fmt.Errorf("%w: clock %d Hz (1..%d)", ErrConfig, c.ClockHz, MaxClockHz)
	}
	if c.MinRefresh < 1 {
		return g, fmt.Errorf("%w: min refresh %d Hz", ErrConfig, c.MinRefresh)
	}
	switch c.Driver {
	case DriverFM6124, DriverDP3246:
		return g, fmt.Errorf("%w: shift driver %s not supported", ErrConfig, c.Driver)
	}
	if c.Gamma == GammaCustom && c.GammaTable == nil {
		return g, fmt.Errorf("%w: custom gamma without table", ErrConfig)
	}

	// Four-scan wirings exist for fixed panel heights.
	if h := c.FourScan.panelHeight(); h != 0 && c.Height != h {
		return g, fmt.Errorf("%w: %s four-scan wiring on %dpx high panel", ErrConfig, c.FourScan, c.Height)
	}

	// Folded shape: four-scan panels present half the rows at twice the
	// width to the shift registers.
	g.PanelW, g.PanelH = c.Width, c.Height
	g.FoldedW, g.FoldedH = c.Width, c.Height
	if c.FourScan != FourScanNone {
		g.FoldedW, g.FoldedH = 2*c.Width, c.Height/2
	}

	// The scan pattern must agree with the folded height.
	wantPairs := g.FoldedH / 2
	if c.Scan.RowPairs() != wantPairs {
		return g, fmt.Errorf("%w: scan %s implies %d row pairs, panel has %d",
			ErrConfig, c.Scan, c.Scan.RowPairs(), wantPairs)
	}

	// Layout grid. Horizontal is a single row; grids must account for
	// every chained panel.
	rows, cols := c.LayoutRows, c.LayoutCols
	if c.Layout == LayoutHorizontal {
		if rows > 1 {
			return g, fmt.Errorf("%w: horizontal layout with %d rows", ErrConfig, rows)
		}
		rows, cols = 1, c.Chain
	} else {
		if rows < 1 || cols < 1 {
			return g, fmt.Errorf("%w: layout %s needs explicit rows×cols", ErrConfig, c.Layout)
		}
		if rows*cols != c.Chain {
			return g, fmt.Errorf("%w: layout %dx%d does not cover chain of %d",
				ErrConfig, rows, cols, c.Chain)
		}
	}
	g.GridRows, g.GridCols = rows, cols
	g.Chain = c.Chain
	g.Width = c.Width * cols
	g.Height = c.Height * rows

	g.RowWords = g.FoldedW * c.Chain
	g.RowPairs = wantPairs
	g.AddressLines = c.Scan.AddressLines()
	g.BitDepth = c.BitDepth

	if c.LatchBlanking < 0 || 2*c.LatchBlanking >= g.RowWords {
		return g, fmt.Errorf("%w: latch blanking %d on %d-word rows", ErrConfig, c.LatchBlanking, g.RowWords)
	}

	// Data and control pins must all be assigned, plus as many address
	// lines as the scan pattern needs.
	for _, pin := range []struct {
		name string
		n    int
	}{
		{"R1", c.Pins.R1}, {"G1", c.Pins.G1}, {"B1", c.Pins.B1},
		{"R2", c.Pins.R2}, {"G2", c.Pins.G2}, {"B2", c.Pins.B2},
		{"LAT", c.Pins.Lat}, {"OE", c.Pins.OE}, {"CLK", c.Pins.Clk},
	} {
		if pin.n < 0 {
			return g, fmt.Errorf("%w: pin %s unassigned", ErrConfig, pin.name)
		}
	}
	if have := c.Pins.AddressLineCount(); have < g.AddressLines {
		return g, fmt.Errorf("%w: scan %s needs %d address lines, %d assigned",
			ErrConfig, c.Scan, g.AddressLines, have)
	}

	// The BCM schedule must reach the floor even after full LSB
	// degradation; otherwise the panel cannot be driven as configured.
	sched := computeSchedule(g.RowWords, g.RowPairs, c.BitDepth, c.ClockHz, c.MinRefresh)
	if sched.RefreshHz < float64(c.MinRefresh) {
		return g, fmt.Errorf("%w: %s reaches %.1f Hz, %d Hz required (slower clock, depth or chain needed)",
			ErrConfig, c.Scan, sched.RefreshHz, c.MinRefresh)
	}
	g.Schedule = sched

	return g, nil
}
