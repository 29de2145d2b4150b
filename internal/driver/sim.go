package driver

import (
	"errors"
	"image"
	"image/color"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"periph.io/x/conn/v3/display"

	"github.com/coreman2200/funtimes-ledwall/internal/hub75"
)

// SimChecks counts protocol faults seen in the word stream. A clean
// engine keeps all of them at zero.
type SimChecks struct {
	MissingLatch uint64 // data burst without LAT on its final word
	StrayLatch   uint64 // LAT raised mid-burst
	AddressRange uint64 // address beyond the scan's row pairs
}

// Sim decodes row bursts the way a panel would and integrates lit time
// per pixel. It models the shift-then-latch pipeline: the words of a
// burst gate whatever was latched at the end of the previous repetition,
// so light attribution matches real glass, ghosting and all.
//
// Every rowPairs*bitDepth data bursts it folds the accumulators into an
// image.RGBA, where each channel is the duty cycle of that LED scaled to
// 0..255. Attached drawers get the frame at a throttled rate; OnFrame
// callbacks get every frame.
type Sim struct {
	mu    sync.Mutex
	geo   hub75.Geometry
	slots *hub75.SlotMap
	log   zerolog.Logger

	// upper[a][i] and lower[a][i] are canvas indices for shift slot i
	// while address a is selected, -1 where no pixel feeds the slot.
	upper [][]int
	lower [][]int

	cells    []simCell
	latched  []hub75.Word
	latchBuf []hub75.Word
	bursts   int
	frames   uint64
	last     *image.RGBA
	checks   SimChecks
	closed   bool

	drawers  []display.Drawer
	onFrame  []func(*image.RGBA)
	throttle time.Duration
	lastDraw time.Time
}

type simCell struct {
	on   [3]uint64 // lit word-times per channel
	span uint64    // word-times this pixel's row was addressed
}

// NewSim builds a simulator sink for cfg. The config must validate.
func NewSim(cfg hub75.Config, log zerolog.Logger) (*Sim, error) {
	slots, err := hub75.NewSlotMap(cfg)
	if err != nil {
		return nil, err
	}
	geo := slots.Geometry()
	s := &Sim{
		geo:      geo,
		slots:    slots,
		log:      log,
		cells:    make([]simCell, geo.Width*geo.Height),
		throttle: 50 * time.Millisecond,
	}
	s.upper = make([][]int, geo.RowPairs)
	s.lower = make([][]int, geo.RowPairs)
	for a := 0; a < geo.RowPairs; a++ {
		up := make([]int, geo.RowWords)
		lo := make([]int, geo.RowWords)
		for i := 0; i < geo.RowWords; i++ {
			up[i] = canvasIndex(slots, geo, a, i, false)
			lo[i] = canvasIndex(slots, geo, a, i, true)
		}
		s.upper[a] = up
		s.lower[a] = lo
	}
	log.Debug().
		Int("width", geo.Width).
		Int("height", geo.Height).
		Int("row_words", geo.RowWords).
		Msg("simulator sink ready")
	return s, nil
}

func canvasIndex(slots *hub75.SlotMap, geo hub75.Geometry, pair, slot int, lower bool) int {
	x, y, ok := slots.Pixel(pair, slot, lower)
	if !ok {
		return -1
	}
	return y*geo.Width + x
}

// AttachDrawer registers a preview target. Frames are pushed no faster
// than the throttle interval.
func (s *Sim) AttachDrawer(d display.Drawer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drawers = append(s.drawers, d)
}

// OnFrame registers fn to run with every completed frame, from the
// WriteRow goroutine. Treat the image as read-only.
func (s *Sim) OnFrame(fn func(*image.RGBA)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onFrame = append(s.onFrame, fn)
}

// SetThrottle caps how often attached drawers repaint. Zero repaints on
// every frame.
func (s *Sim) SetThrottle(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.throttle = d
}

// Frames reports how many complete frames have been integrated.
func (s *Sim) Frames() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frames
}

// Frame returns the most recent integrated frame, nil before the first
// one completes. Treat it as read-only.
func (s *Sim) Frame() *image.RGBA {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// Checks returns the protocol fault counters.
func (s *Sim) Checks() SimChecks {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.checks
}

// WriteRow implements hub75.Sink.
func (s *Sim) WriteRow(words []hub75.Word, repeat int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.New("driver: sim is closed")
	}
	if repeat < 1 {
		repeat = 1
	}
	if len(words) != s.geo.RowWords {
		// Register writes and blanking pulses. Whatever they leave in
		// the shift chain is not row data.
		s.latched = nil
		return nil
	}
	lit := 0
	for _, w := range words {
		if !w.Blanked() {
			lit++
		}
	}
	if lit == 0 {
		// Dark seam between passes: preamble filler or a halt. Anything
		// integrated since the last frame will never complete.
		s.latch(words)
		s.resetPartial()
		return nil
	}

	addr := words[0].Addr()
	if addr >= s.geo.RowPairs {
		s.fault(&s.checks.AddressRange, "row address out of range", addr)
		s.latch(words)
		return nil
	}
	if !words[len(words)-1].Latch() {
		s.fault(&s.checks.MissingLatch, "data burst without trailing latch", addr)
	}
	for _, w := range words[:len(words)-1] {
		if w.Latch() {
			s.fault(&s.checks.StrayLatch, "latch raised mid-burst", addr)
			break
		}
	}

	up, lo := s.upper[addr], s.lower[addr]
	if s.latched != nil {
		// Repetition 1 shows the previously latched row.
		s.accumulate(up, lo, s.latched, uint64(lit))
	}
	if repeat > 1 {
		s.accumulate(up, lo, words, uint64(lit*(repeat-1)))
	}
	span := uint64(len(words) * repeat)
	for i := range up {
		if u := up[i]; u >= 0 {
			s.cells[u].span += span
		}
		if l := lo[i]; l >= 0 {
			s.cells[l].span += span
		}
	}
	s.latch(words)

	s.bursts++
	if s.bursts >= s.geo.RowPairs*s.geo.BitDepth {
		s.emit()
	}
	return nil
}

// Close implements hub75.Sink.
func (s *Sim) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *Sim) fault(counter *uint64, msg string, addr int) {
	*counter++
	if *counter == 1 {
		s.log.Warn().Int("addr", addr).Msg(msg)
	}
}

func (s *Sim) latch(words []hub75.Word) {
	if s.latchBuf == nil {
		s.latchBuf = make([]hub75.Word, len(words))
	}
	copy(s.latchBuf, words)
	s.latched = s.latchBuf
}

func (s *Sim) accumulate(up, lo []int, data []hub75.Word, t uint64) {
	for i, w := range data {
		if u := up[i]; u >= 0 {
			if r, g, b := w.Upper(); r || g || b {
				c := &s.cells[u]
				if r {
					c.on[0] += t
				}
				if g {
					c.on[1] += t
				}
				if b {
					c.on[2] += t
				}
			}
		}
		if l := lo[i]; l >= 0 {
			if r, g, b := w.Lower(); r || g || b {
				c := &s.cells[l]
				if r {
					c.on[0] += t
				}
				if g {
					c.on[1] += t
				}
				if b {
					c.on[2] += t
				}
			}
		}
	}
}

func (s *Sim) resetPartial() {
	for i := range s.cells {
		s.cells[i] = simCell{}
	}
	s.bursts = 0
}

func (s *Sim) emit() {
	img := image.NewRGBA(image.Rect(0, 0, s.geo.Width, s.geo.Height))
	for i, c := range s.cells {
		px := color.RGBA{A: 0xFF}
		if c.span > 0 {
			px.R = uint8(c.on[0] * 255 / c.span)
			px.G = uint8(c.on[1] * 255 / c.span)
			px.B = uint8(c.on[2] * 255 / c.span)
		}
		img.SetRGBA(i%s.geo.Width, i/s.geo.Width, px)
	}
	s.last = img
	s.frames++
	for _, fn := range s.onFrame {
		fn(img)
	}
	if len(s.drawers) > 0 && time.Since(s.lastDraw) >= s.throttle {
		s.lastDraw = time.Now()
		for _, d := range s.drawers {
			if err := d.Draw(d.Bounds(), img, image.Point{}); err != nil {
				s.log.Warn().Err(err).Str("drawer", d.String()).Msg("preview draw failed")
			}
		}
	}
	s.resetPartial()
}

var _ hub75.Sink = (*Sim)(nil)
