package hub75

import (
	"context"
	"errors"
	"image"
	"image/color"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// captureSink records every burst the engine writes. The engine reuses
// its plane buffers, so words are copied. cancelAfter stops the run via
// cancel once that many bursts have arrived.
type captureSink struct {
	mu          sync.Mutex
	bursts      [][]Word
	repeats     []int
	closed      bool
	failAt      int   // 1-based burst index to fail on, 0 = never
	failErr     error
	cancelAfter int
	cancel      context.CancelFunc
}

func (s *captureSink) WriteRow(words []Word, repeat int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.bursts) + 1
	if s.failAt > 0 && n >= s.failAt {
		return s.failErr
	}
	cp := make([]Word, len(words))
	copy(cp, words)
	s.bursts = append(s.bursts, cp)
	s.repeats = append(s.repeats, repeat)

	if s.cancelAfter > 0 && n >= s.cancelAfter && s.cancel != nil {
		s.cancel()
	}
	return nil
}

func (s *captureSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *captureSink) burstCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.bursts)
}

func (s *captureSink) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bursts = s.bursts[:0]
	s.repeats = s.repeats[:0]
}

// runPasses drives the engine for n full refresh passes plus the
// shutdown blanking and waits for Run to return.
func runPasses(t *testing.T, e *Engine, sink *captureSink, preamble, n int) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	sink.cancel = cancel
	sink.cancelAfter = preamble + n*e.geo.RowPairs*e.geo.BitDepth

	if err := e.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}
}

func testEngine(t *testing.T, mod func(*Config)) (*Engine, *captureSink) {
	t.Helper()
	cfg := testConfig()
	cfg.Gamma = GammaNone
	cfg.Brightness = 255
	if mod != nil {
		mod(&cfg)
	}
	sink := &captureSink{}
	e, err := New(sink, cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return e, sink
}

func TestEngineFrameStructure(t *testing.T) {
	e, sink := testEngine(t, nil)
	runPasses(t, e, sink, 0, 1)

	// One pass is pairs×depth data bursts; shutdown appends one blanking
	// burst per pair.
	wantData := 32 * 8
	if got := sink.burstCount(); got != wantData+32 {
		t.Fatalf("%d bursts, want %d", got, wantData+32)
	}

	for i := 0; i < wantData; i++ {
		pair, bit := i/8, i%8
		burst := sink.bursts[i]
		if len(burst) != 64 {
			t.Fatalf("burst %d: %d words, want 64", i, len(burst))
		}
		if !burst[63].Latch() {
			t.Errorf("pair %d plane %d: no latch at end of row", pair, bit)
		}
		if want := rowAddress(pair, 32, bit).Addr(); burst[0].Addr() != want {
			t.Errorf("pair %d plane %d: address %d, want %d", pair, bit, burst[0].Addr(), want)
		}
		if want := e.geo.Schedule.PlaneRepeats(bit); sink.repeats[i] != want {
			t.Errorf("pair %d plane %d: repeat %d, want %d", pair, bit, sink.repeats[i], want)
		}
	}

	// Plane weighting at full depth.
	wantRepeats := []int{1, 1, 2, 4, 8, 16, 32, 64}
	for bit, want := range wantRepeats {
		if got := sink.repeats[bit]; got != want {
			t.Errorf("plane %d repeat = %d, want %d", bit, got, want)
		}
	}

	// Shutdown blanking: every word dark, addresses walk the pairs.
	for pair := 0; pair < 32; pair++ {
		burst := sink.bursts[wantData+pair]
		for x, w := range burst {
			if !w.Blanked() {
				t.Fatalf("blank row %d word %d: OE released", pair, x)
			}
		}
		if burst[0].Addr() != pair {
			t.Errorf("blank row %d: address %d", pair, burst[0].Addr())
		}
		if !burst[63].Latch() {
			t.Errorf("blank row %d: no latch", pair)
		}
	}

	if m := e.Metrics(); m.Frames != 1 {
		t.Errorf("frames = %d, want 1", m.Frames)
	}
}

func TestEngineEncodesPixels(t *testing.T) {
	e, sink := testEngine(t, nil)

	e.SetPixel(32, 0, 255, 0, 0) // upper half of pair 0
	e.SetPixel(5, 40, 0, 255, 0) // lower half of pair 8
	runPasses(t, e, sink, 0, 1)

	const dataMask = BitR1 | BitG1 | BitB1 | BitR2 | BitG2 | BitB2

	for bit := 0; bit < 8; bit++ {
		// Full-scale red: every plane of pair 0 carries R1 at slot 32.
		w := sink.bursts[0*8+bit][32]
		if w&dataMask != BitR1 {
			t.Errorf("pair 0 plane %d slot 32 = %04x, want R1 only", bit, uint16(w))
		}
		// Full-scale green on the lower row of pair 8.
		w = sink.bursts[8*8+bit][5]
		if w&dataMask != BitG2 {
			t.Errorf("pair 8 plane %d slot 5 = %04x, want G2 only", bit, uint16(w))
		}
	}

	// Everything else stays dark.
	w := sink.bursts[3*8][32]
	if w&dataMask != 0 {
		t.Errorf("pair 3 slot 32 = %04x, want dark", uint16(w))
	}
}

func TestEngineMidScaleUsesLUT(t *testing.T) {
	e, sink := testEngine(t, nil)

	// Linear curve: 128 maps to intensity 128, bit pattern 1000_0000.
	e.SetPixel(0, 0, 128, 0, 0)
	runPasses(t, e, sink, 0, 1)

	for bit := 0; bit < 8; bit++ {
		lit := sink.bursts[bit][0]&BitR1 != 0
		want := bit == 7
		if lit != want {
			t.Errorf("plane %d slot 0: lit=%v, want %v", bit, lit, want)
		}
	}
}

func TestEngineDoubleBuffer(t *testing.T) {
	e, sink := testEngine(t, func(c *Config) { c.DoubleBuffer = true })

	e.SetPixel(10, 0, 255, 255, 255)

	// Without a swap the drawn pixel never reaches the wire.
	runPasses(t, e, sink, 0, 1)
	if w := sink.bursts[0][10]; w&(BitR1|BitG1|BitB1) != 0 {
		t.Fatalf("back buffer leaked to the wire: %04x", uint16(w))
	}
	sink.reset()

	// Swap applies at the end of the first pass of the next run; the
	// second pass shows the pixel.
	e.Swap()
	runPasses(t, e, sink, 0, 2)

	pass2 := 32 * 8
	if w := sink.bursts[0][10]; w&(BitR1|BitG1|BitB1) != 0 {
		t.Errorf("pass 1 already shows the swapped frame: %04x", uint16(w))
	}
	if w := sink.bursts[pass2][10]; w&(BitR1|BitG1|BitB1) != BitR1|BitG1|BitB1 {
		t.Errorf("pass 2 slot 10 = %04x, want white", uint16(w))
	}
}

func TestEnginePreamble(t *testing.T) {
	e, sink := testEngine(t, func(c *Config) { c.Driver = DriverFM6126A })
	runPasses(t, e, sink, 4, 1)

	if got := sink.burstCount(); got != 4+32*8+32 {
		t.Fatalf("%d bursts, want %d", got, 4+32*8+32)
	}
	// Registers first, output disabled until the final pulse.
	for i := 0; i < 3; i++ {
		for x, w := range sink.bursts[i] {
			if !w.Blanked() {
				t.Fatalf("preamble burst %d word %d: OE released", i, x)
			}
		}
		if sink.repeats[i] != 1 {
			t.Errorf("preamble burst %d repeated %d times", i, sink.repeats[i])
		}
	}
	if last := sink.bursts[3]; len(last) != 2 || last[1] != 0 {
		t.Fatalf("preamble pulse = %04x", last)
	}
}

func TestEngineSinkError(t *testing.T) {
	cfg := testConfig()
	wire := errors.New("wire fault")
	sink := &captureSink{failAt: 20, failErr: wire}
	e, err := New(sink, cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err = e.Run(ctx)
	if !errors.Is(err, wire) {
		t.Fatalf("Run error = %v, want wrapped wire fault", err)
	}
}

func TestEngineRunExclusive(t *testing.T) {
	e, sink := testEngine(t, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- e.Run(ctx)
	}()

	// Wait until the loop is demonstrably running.
	for sink.burstCount() == 0 {
		time.Sleep(time.Millisecond)
	}

	if err := e.Run(ctx); err == nil {
		t.Error("second Run did not refuse")
	}

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run: %v", err)
	}

	// The loop is re-armable after it returns.
	sink.reset()
	runPasses(t, e, sink, 0, 1)
}

func TestEngineBrightnessControls(t *testing.T) {
	e, _ := testEngine(t, nil)

	span := func() int {
		min, max := litSpan(e.masks.Load().planes[0])
		if min < 0 {
			return 0
		}
		return max - min
	}

	full := span()
	e.SetBrightness(64)
	if e.Brightness() != 64 {
		t.Errorf("Brightness = %d", e.Brightness())
	}
	quarter := span()
	if quarter >= full {
		t.Errorf("quarter brightness window %d not narrower than %d", quarter, full)
	}

	e.SetIntensity(0.5)
	if got := e.Intensity(); got != 0.5 {
		t.Errorf("Intensity = %v", got)
	}
	dimmed := span()
	if dimmed >= quarter {
		t.Errorf("intensity window %d not narrower than %d", dimmed, quarter)
	}

	// Zero basis clamps to 1 so the panel never locks dark.
	e.SetBrightness(0)
	if e.Brightness() != 1 {
		t.Errorf("Brightness after 0 = %d", e.Brightness())
	}

	e.SetIntensity(1.0)
	e.SetBrightness(255)
	if span() != full {
		t.Error("restoring brightness did not restore the window")
	}
}

func TestEngineLatchBlanking(t *testing.T) {
	e, _ := testEngine(t, nil)

	if err := e.SetLatchBlanking(2); err != nil {
		t.Fatalf("SetLatchBlanking: %v", err)
	}
	plane := e.masks.Load().planes[0]
	if !plane[61].Blanked() || !plane[1].Blanked() {
		t.Error("widened latch margins not applied")
	}

	if err := e.SetLatchBlanking(32); !errors.Is(err, ErrConfig) {
		t.Errorf("oversized latch blanking: err = %v", err)
	}
	if err := e.SetLatchBlanking(-1); !errors.Is(err, ErrConfig) {
		t.Errorf("negative latch blanking: err = %v", err)
	}
}

func TestEngineGammaSwap(t *testing.T) {
	e, _ := testEngine(t, nil)

	if got := e.lut.Load()[128]; got != 128<<8 {
		t.Fatalf("linear [128] = %d", got)
	}
	if err := e.SetGammaMode(Gamma22); err != nil {
		t.Fatalf("SetGammaMode: %v", err)
	}
	if got := e.lut.Load()[128]; got != 14330 {
		t.Errorf("gamma22 [128] = %d, want 14330", got)
	}

	// Custom mode needs a table first.
	if err := e.SetGammaMode(GammaCustom); err == nil {
		t.Error("custom mode accepted without a table")
	}
	var table [256]float64
	for i := range table {
		table[i] = 1
	}
	if err := e.SetGammaTable(&table); err != nil {
		t.Fatalf("SetGammaTable: %v", err)
	}
	if got := e.lut.Load()[0]; got != 65280 {
		t.Errorf("custom [0] = %d, want 65280", got)
	}
	if err := e.SetGammaMode(GammaCustom); err != nil {
		t.Errorf("custom mode with table: %v", err)
	}
}

func TestEngineHaltAndClose(t *testing.T) {
	e, sink := testEngine(t, nil)

	if err := e.Halt(); err != nil {
		t.Fatalf("Halt: %v", err)
	}
	if got := sink.burstCount(); got != 32 {
		t.Errorf("halt wrote %d bursts, want 32", got)
	}

	if err := e.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !sink.closed {
		t.Error("Close did not release the sink")
	}
}

func TestEngineDraw(t *testing.T) {
	e, _ := testEngine(t, nil)

	if got := e.Bounds(); got != image.Rect(0, 0, 64, 64) {
		t.Fatalf("bounds = %v", got)
	}
	src := image.NewUniform(color.RGBA{R: 200, G: 100, B: 50, A: 255})
	if err := e.Draw(e.Bounds(), src, image.Point{}); err != nil {
		t.Fatalf("Draw: %v", err)
	}
	if got := e.Buffer().At(63, 63); got != (color.RGBA{R: 200, G: 100, B: 50, A: 255}) {
		t.Errorf("canvas corner = %v", got)
	}
}

func TestEngineMetrics(t *testing.T) {
	e, sink := testEngine(t, nil)
	runPasses(t, e, sink, 0, 2)

	m := e.Metrics()
	if m.Frames != 2 {
		t.Errorf("frames = %d, want 2", m.Frames)
	}
	if m.TransitionBit != 0 {
		t.Errorf("transition bit = %d", m.TransitionBit)
	}
	if m.PlannedHz < 72 || m.PlannedHz > 73 {
		t.Errorf("planned = %.2f Hz", m.PlannedHz)
	}
	if m.FrameTime.Round(time.Microsecond) != 13824*time.Microsecond {
		t.Errorf("frame time = %v", m.FrameTime)
	}
	// Two full passes ran, so the cycle clock has a sample. The loop
	// sleeps out its budget, so the measured rate cannot beat the plan
	// by much.
	if m.MeasuredHz <= 0 {
		t.Error("measured rate missing after two frames")
	}
	if m.MeasuredHz > m.PlannedHz*1.5 {
		t.Errorf("measured %.1f Hz implausibly above plan %.1f", m.MeasuredHz, m.PlannedHz)
	}

	planned, measured := e.RefreshRate()
	if planned != m.PlannedHz || measured <= 0 {
		t.Errorf("RefreshRate = %.2f, %.2f", planned, measured)
	}
	bit, ft := e.Schedule()
	if bit != m.TransitionBit || ft != m.FrameTime {
		t.Errorf("Schedule = %d, %v", bit, ft)
	}
}

func TestNewRejectsBadConfig(t *testing.T) {
	cfg := testConfig()
	cfg.BitDepth = 3
	if _, err := New(&captureSink{}, cfg, zerolog.Nop()); !errors.Is(err, ErrConfig) {
		t.Errorf("New: err = %v, want ErrConfig", err)
	}
}

func TestNewClampsZeroBrightness(t *testing.T) {
	cfg := testConfig()
	cfg.Brightness = 0
	e, err := New(&captureSink{}, cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if e.Brightness() != 1 {
		t.Errorf("Brightness = %d, want 1", e.Brightness())
	}
}
