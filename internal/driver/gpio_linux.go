//go:build linux

package driver

import (
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"github.com/warthog618/go-gpiocdev"

	"github.com/coreman2200/funtimes-ledwall/internal/hub75"
)

// GPIO bit-bangs the color bus, address lines and strobes through the
// Linux GPIO character device. The pixel clock is bounded by syscall
// rate, far below what DMA reaches, so this is for bring-up and short
// chains rather than flicker-free video.
type GPIO struct {
	mu     sync.Mutex
	closed bool

	data [6]*gpiocdev.Line // R1 G1 B1 R2 G2 B2, word bit order
	addr []*gpiocdev.Line  // A upward, assigned lines only
	lat  *gpiocdev.Line
	oe   *gpiocdev.Line
	clk  *gpiocdev.Line
	all  []*gpiocdev.Line

	idle, active int // clock levels, swapped when the phase is inverted
	lastAddr     int
	log          zerolog.Logger
}

// NewGPIO requests every assigned line on chip as an output, initially
// low with the panel blanked. An empty chip means gpiochip0.
func NewGPIO(chip string, cfg hub75.Config, log zerolog.Logger) (*GPIO, error) {
	geo, err := cfg.Validate()
	if err != nil {
		return nil, err
	}
	if chip == "" {
		chip = "gpiochip0"
	}
	g := &GPIO{idle: 0, active: 1, lastAddr: -1, log: log}
	if cfg.ClkPhaseInverted {
		g.idle, g.active = g.active, g.idle
	}
	request := func(pin int) (*gpiocdev.Line, error) {
		l, err := gpiocdev.RequestLine(chip, pin, gpiocdev.AsOutput(0))
		if err != nil {
			return nil, fmt.Errorf("%w: %s line %d: %v", hub75.ErrResource, chip, pin, err)
		}
		g.all = append(g.all, l)
		return l, nil
	}

	p := cfg.Pins
	for i, pin := range [6]int{p.R1, p.G1, p.B1, p.R2, p.G2, p.B2} {
		if g.data[i], err = request(pin); err != nil {
			g.release()
			return nil, err
		}
	}
	for _, pin := range []int{p.A, p.B, p.C, p.D, p.E}[:geo.AddressLines] {
		l, err := request(pin)
		if err != nil {
			g.release()
			return nil, err
		}
		g.addr = append(g.addr, l)
	}
	if g.lat, err = request(p.Lat); err != nil {
		g.release()
		return nil, err
	}
	if g.oe, err = request(p.OE); err != nil {
		g.release()
		return nil, err
	}
	if g.clk, err = request(p.Clk); err != nil {
		g.release()
		return nil, err
	}
	if err := g.oe.SetValue(1); err != nil {
		g.release()
		return nil, fmt.Errorf("driver: blanking oe: %w", err)
	}
	log.Info().Str("chip", chip).Int("lines", len(g.all)).Msg("gpio lines requested")
	return g, nil
}

// WriteRow implements hub75.Sink. The address flips before any clocking,
// which lands inside the blanked latch seam of the previous burst.
func (g *GPIO) WriteRow(words []hub75.Word, repeat int) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return errors.New("driver: gpio is closed")
	}
	if len(words) == 0 {
		return nil
	}
	if repeat < 1 {
		repeat = 1
	}
	if a := words[0].Addr(); a != g.lastAddr {
		for i, l := range g.addr {
			if err := l.SetValue((a >> i) & 1); err != nil {
				return fmt.Errorf("driver: address line %d: %w", i, err)
			}
		}
		g.lastAddr = a
	}
	for r := 0; r < repeat; r++ {
		for _, w := range words {
			if err := g.shiftWord(w); err != nil {
				return err
			}
		}
	}
	return g.clk.SetValue(g.idle)
}

func (g *GPIO) shiftWord(w hub75.Word) error {
	if err := g.clk.SetValue(g.idle); err != nil {
		return fmt.Errorf("driver: clk: %w", err)
	}
	for i, l := range g.data {
		if err := l.SetValue(int(w>>i) & 1); err != nil {
			return fmt.Errorf("driver: data line %d: %w", i, err)
		}
	}
	if err := g.oe.SetValue(levelOf(w.Blanked())); err != nil {
		return fmt.Errorf("driver: oe: %w", err)
	}
	if err := g.lat.SetValue(levelOf(w.Latch())); err != nil {
		return fmt.Errorf("driver: lat: %w", err)
	}
	if err := g.clk.SetValue(g.active); err != nil {
		return fmt.Errorf("driver: clk: %w", err)
	}
	return nil
}

func levelOf(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Close blanks the panel and releases every line.
func (g *GPIO) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return nil
	}
	g.closed = true
	if g.oe != nil {
		g.oe.SetValue(1)
	}
	g.release()
	return nil
}

func (g *GPIO) release() {
	for _, l := range g.all {
		l.Close()
	}
	g.all = nil
}

var _ hub75.Sink = (*GPIO)(nil)
