package hub75

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"periph.io/x/conn/v3/display"
)

var _ display.Drawer = (*Engine)(nil)

// Metrics is a point-in-time snapshot of the engine counters.
type Metrics struct {
	Frames           uint64
	TimingViolations uint64
	PlannedHz        float64
	MeasuredHz       float64
	TransitionBit    int
	FrameTime        time.Duration
}

// Engine turns frame buffer contents into paced BCM row bursts on a
// Sink. Exactly one goroutine runs Run; any other goroutine may draw,
// swap buffers and adjust brightness or gamma concurrently. Everything
// the refresh loop touches per pass is either pre-allocated or swapped
// in whole via atomics, so the hot path neither allocates nor locks.
type Engine struct {
	cfg  Config
	geo  Geometry
	sink Sink
	log  zerolog.Logger

	bufs  *bufferPair
	index *indexMap

	lut   atomic.Pointer[lutTable]
	masks atomic.Pointer[oeMaskSet]

	basis         atomic.Uint32 // coarse brightness 1..255
	intensity     atomic.Uint64 // float64 bits, 0..1
	latchBlanking atomic.Int32

	// refresh loop scratch, sized at New
	planes                       [][]Word
	upR, upG, upB, loR, loG, loB []uint16

	frames     atomic.Uint64
	violations atomic.Uint64
	cycleNs    atomic.Uint64 // last full frame cycle, pacing included
	running    atomic.Bool

	lastSlowWarn time.Time // refresh goroutine only
}

// New validates cfg and builds an engine writing to sink. The sink is
// owned by the engine from here on; Close releases it.
func New(sink Sink, cfg Config, log zerolog.Logger) (*Engine, error) {
	geo, err := cfg.Validate()
	if err != nil {
		return nil, err
	}

	lut, err := buildLUT(cfg.Gamma, cfg.BitDepth, cfg.GammaTable)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		cfg:   cfg,
		geo:   geo,
		sink:  sink,
		log:   log,
		bufs:  newBufferPair(geo.Width, geo.Height, cfg.DoubleBuffer),
		index: buildIndexMap(geo, cfg.Layout, cfg.FourScan),
	}
	e.lut.Store(lut)

	basis := cfg.Brightness
	if basis == 0 {
		basis = 1
	}
	e.basis.Store(uint32(basis))
	e.intensity.Store(math.Float64bits(1.0))
	e.latchBlanking.Store(int32(cfg.LatchBlanking))
	e.masks.Store(buildOEMasks(geo, geo.Schedule, cfg.LatchBlanking, effectiveBrightness(basis, 1.0)))

	e.planes = make([][]Word, geo.BitDepth)
	for bit := range e.planes {
		e.planes[bit] = make([]Word, geo.RowWords)
	}
	e.upR = make([]uint16, geo.RowWords)
	e.upG = make([]uint16, geo.RowWords)
	e.upB = make([]uint16, geo.RowWords)
	e.loR = make([]uint16, geo.RowWords)
	e.loG = make([]uint16, geo.RowWords)
	e.loB = make([]uint16, geo.RowWords)

	if cfg.Driver == DriverMBI5124 && !cfg.ClkPhaseInverted {
		log.Warn().Msg("MBI5124 panels usually need clk_phase_inverted")
	}

	return e, nil
}

// Geometry returns the validated derived shape the engine runs on.
func (e *Engine) Geometry() Geometry { return e.geo }

// Run drives continuous refresh passes until ctx ends. On the way out it
// finishes the current row burst, blanks every row and returns nil; sink
// write failures end the loop with an error.
func (e *Engine) Run(ctx context.Context) error {
	if !e.running.CompareAndSwap(false, true) {
		return fmt.Errorf("hub75: refresh loop already running")
	}
	defer e.running.Store(false)

	if rows := initWords(e.cfg.Driver, e.geo.RowWords); rows != nil {
		e.log.Info().Str("driver", e.cfg.Driver.String()).Msg("sending shift driver preamble")
		for _, row := range rows {
			if err := e.sink.WriteRow(row, 1); err != nil {
				return fmt.Errorf("hub75: shift driver preamble: %w", err)
			}
		}
	}

	sched := e.geo.Schedule
	e.log.Info().
		Str("scan", e.cfg.Scan.String()).
		Int("depth", e.geo.BitDepth).
		Int("transition_bit", sched.TransitionBit).
		Float64("refresh_hz", sched.RefreshHz).
		Dur("frame_time", sched.FrameTime).
		Msg("refresh loop starting")

	var prevStart time.Time
	for {
		start := time.Now()
		if !prevStart.IsZero() {
			e.cycleNs.Store(uint64(start.Sub(prevStart)))
		}
		prevStart = start

		fb := e.bufs.Front()
		lut := e.lut.Load()
		masks := e.masks.Load()
		phase := ditherPhase(e.frames.Load())

		for pair := 0; pair < e.geo.RowPairs; pair++ {
			if ctx.Err() != nil {
				err := e.blank()
				e.log.Info().Uint64("frames", e.frames.Load()).Msg("refresh loop stopped")
				return err
			}

			e.fillScratch(fb, lut, pair, phase)

			for bit := 0; bit < e.geo.BitDepth; bit++ {
				addr := rowAddress(pair, e.geo.RowPairs, bit)
				encodePlane(e.planes[bit], masks.planes[bit], addr, bit,
					e.upR, e.upG, e.upB, e.loR, e.loG, e.loB)
				if err := e.sink.WriteRow(e.planes[bit], sched.PlaneRepeats(bit)); err != nil {
					return fmt.Errorf("hub75: row %d plane %d: %w", pair, bit, err)
				}
			}
		}

		e.frames.Add(1)
		e.bufs.applyPending()

		elapsed := time.Since(start)
		if elapsed > sched.FrameTime {
			e.violations.Add(1)
			e.warnSlow(elapsed, sched.FrameTime)
		} else {
			// Sinks faster than the wire (simulators) get paced to plan.
			time.Sleep(sched.FrameTime - elapsed)
		}
	}
}

// fillScratch preprocesses one row pair out of the frame buffer: gamma
// LUT, then fraction fold with or without temporal dithering. Slots no
// pixel maps to stay dark.
func (e *Engine) fillScratch(fb *FrameBuffer, lut *lutTable, pair, phase int) {
	up := e.index.upper[pair]
	lo := e.index.lower[pair]
	dither := e.cfg.TemporalDither
	yu := pair
	yl := pair + e.geo.RowPairs

	for x := range up {
		if i := up[x]; i >= 0 {
			r, g, b := fb.rgb(i)
			e.upR[x] = quantize(lut[r], x, yu, phase, dither)
			e.upG[x] = quantize(lut[g], x, yu, phase, dither)
			e.upB[x] = quantize(lut[b], x, yu, phase, dither)
		} else {
			e.upR[x], e.upG[x], e.upB[x] = 0, 0, 0
		}
		if i := lo[x]; i >= 0 {
			r, g, b := fb.rgb(i)
			e.loR[x] = quantize(lut[r], x, yl, phase, dither)
			e.loG[x] = quantize(lut[g], x, yl, phase, dither)
			e.loB[x] = quantize(lut[b], x, yl, phase, dither)
		} else {
			e.loR[x], e.loG[x], e.loB[x] = 0, 0, 0
		}
	}
}

func (e *Engine) warnSlow(elapsed, budget time.Duration) {
	if time.Since(e.lastSlowWarn) < time.Second {
		return
	}
	e.lastSlowWarn = time.Now()
	e.log.Warn().
		Err(ErrTiming).
		Dur("elapsed", elapsed).
		Dur("budget", budget).
		Uint64("total", e.violations.Load()).
		Msg("refresh pass over budget")
}

// blank parks every row dark: address and latch intact, output held off.
func (e *Engine) blank() error {
	buf := e.planes[0]
	for pair := 0; pair < e.geo.RowPairs; pair++ {
		addr := AddrWord(pair)
		for x := range buf {
			buf[x] = addr | BitOE
		}
		buf[len(buf)-1] |= BitLat
		if err := e.sink.WriteRow(buf, 1); err != nil {
			return fmt.Errorf("hub75: blanking row %d: %w", pair, err)
		}
	}
	return nil
}

// ---- Drawing surface ----

// Buffer returns the canvas writers should draw into. With double
// buffering this is the back buffer; call Swap when the frame is ready.
func (e *Engine) Buffer() *FrameBuffer { return e.bufs.Back() }

// Swap requests a front/back exchange at the next frame boundary.
// No-op when double buffering is off.
func (e *Engine) Swap() { e.bufs.Swap() }

// SetPixel writes one pixel to the drawing canvas.
func (e *Engine) SetPixel(x, y int, r, g, b uint8) { e.bufs.Back().SetRGB(x, y, r, g, b) }

// Clear blackens the drawing canvas.
func (e *Engine) Clear() { e.bufs.Back().Clear() }

// DrawPixels blits a block of raw pixels in the given format to the
// drawing canvas.
func (e *Engine) DrawPixels(x, y, w, h int, data []byte, format PixelFormat, order ColorOrder, bigEndian bool) error {
	return e.bufs.Back().DrawPixels(x, y, w, h, data, format, order, bigEndian)
}

// ColorModel implements display.Drawer.
func (e *Engine) ColorModel() color.Model { return color.RGBAModel }

// Bounds implements display.Drawer; it spans the logical canvas.
func (e *Engine) Bounds() image.Rectangle { return image.Rect(0, 0, e.geo.Width, e.geo.Height) }

// Draw composites src into the drawing canvas and requests a swap, so an
// Engine can stand in anywhere a periph display works.
func (e *Engine) Draw(r image.Rectangle, src image.Image, sp image.Point) error {
	draw.Draw(e.bufs.Back(), r, src, sp, draw.Src)
	e.bufs.Swap()
	return nil
}

// Halt blanks the panel, fulfilling the display contract. Call it after
// Run has returned; the refresh loop blanks on its own way out.
func (e *Engine) Halt() error {
	if e.running.Load() {
		return nil
	}
	return e.blank()
}

func (e *Engine) String() string {
	return fmt.Sprintf("hub75: %dx%d chain=%d scan=%s", e.geo.Width, e.geo.Height, e.geo.Chain, e.cfg.Scan)
}

// Close blanks the panel and releases the sink.
func (e *Engine) Close() error {
	if err := e.Halt(); err != nil {
		e.log.Warn().Err(err).Msg("blank on close failed")
	}
	if err := e.sink.Close(); err != nil {
		return fmt.Errorf("hub75: closing sink: %w", err)
	}
	return nil
}

// ---- Runtime adjustment ----

// SetBrightness sets the coarse brightness basis (1..255; 0 clamps to
// 1). Takes effect at the next frame boundary.
func (e *Engine) SetBrightness(b uint8) {
	if b == 0 {
		b = 1
	}
	e.basis.Store(uint32(b))
	e.rebuildMasks()
}

// Brightness returns the coarse brightness basis.
func (e *Engine) Brightness() uint8 { return uint8(e.basis.Load()) }

// SetIntensity sets the fine 0..1 dimming multiplier on top of the
// brightness basis. Takes effect at the next frame boundary.
func (e *Engine) SetIntensity(f float64) {
	if f < 0 {
		f = 0
	} else if f > 1 {
		f = 1
	}
	e.intensity.Store(math.Float64bits(f))
	e.rebuildMasks()
}

// Intensity returns the fine dimming multiplier.
func (e *Engine) Intensity() float64 { return math.Float64frombits(e.intensity.Load()) }

// SetLatchBlanking changes the number of words blanked around the latch.
func (e *Engine) SetLatchBlanking(n int) error {
	if n < 0 || 2*n >= e.geo.RowWords {
		return fmt.Errorf("%w: latch blanking %d on %d-word rows", ErrConfig, n, e.geo.RowWords)
	}
	e.latchBlanking.Store(int32(n))
	e.rebuildMasks()
	return nil
}

// SetGammaMode swaps the transfer curve. Takes effect at the next frame
// boundary; the frame buffer is untouched.
func (e *Engine) SetGammaMode(mode GammaMode) error {
	lut, err := buildLUT(mode, e.geo.BitDepth, e.cfg.GammaTable)
	if err != nil {
		return err
	}
	e.lut.Store(lut)
	return nil
}

// SetGammaTable installs a custom 256-entry transfer curve of 0..1
// weights.
func (e *Engine) SetGammaTable(table *[256]float64) error {
	lut, err := buildLUT(GammaCustom, e.geo.BitDepth, table)
	if err != nil {
		return err
	}
	e.cfg.GammaTable = table
	e.lut.Store(lut)
	return nil
}

// rebuildMasks recuts the OE windows for the current brightness state.
// Runs on the caller's goroutine; the refresh loop picks the new set up
// at its next pass.
func (e *Engine) rebuildMasks() {
	eff := effectiveBrightness(uint8(e.basis.Load()), math.Float64frombits(e.intensity.Load()))
	e.masks.Store(buildOEMasks(e.geo, e.geo.Schedule, int(e.latchBlanking.Load()), eff))
}

// Metrics returns a snapshot of the engine counters. MeasuredHz derives
// from the last full frame cycle and is zero until two frames have run.
func (e *Engine) Metrics() Metrics {
	m := Metrics{
		Frames:           e.frames.Load(),
		TimingViolations: e.violations.Load(),
		PlannedHz:        e.geo.Schedule.RefreshHz,
		TransitionBit:    e.geo.Schedule.TransitionBit,
		FrameTime:        e.geo.Schedule.FrameTime,
	}
	if ns := e.cycleNs.Load(); ns > 0 {
		m.MeasuredHz = float64(time.Second) / float64(ns)
	}
	return m
}

// RefreshRate reports the planned and the last measured refresh in Hz.
func (e *Engine) RefreshRate() (planned, measured float64) {
	m := e.Metrics()
	return m.PlannedHz, m.MeasuredHz
}

// Schedule reports the plane the repeat ladder starts at and the planned
// frame time.
func (e *Engine) Schedule() (transitionBit int, frameTime time.Duration) {
	return e.geo.Schedule.TransitionBit, e.geo.Schedule.FrameTime
}
