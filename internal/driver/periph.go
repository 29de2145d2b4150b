package driver

import (
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"

	"github.com/coreman2200/funtimes-ledwall/internal/hub75"
)

// Periph drives the same lines as the cdev sink but through periph.io
// pin handles, riding whatever host driver periph loaded. Helps on
// boards where /dev/gpiochip* is fenced off but a memory-mapped driver
// exists.
type Periph struct {
	mu     sync.Mutex
	closed bool

	data [6]gpio.PinIO
	addr []gpio.PinIO
	lat  gpio.PinIO
	oe   gpio.PinIO
	clk  gpio.PinIO
	all  []gpio.PinIO

	idle, active gpio.Level
	lastAddr     int
	log          zerolog.Logger
}

// NewPeriph initializes the periph host and resolves every assigned pin
// by its GPIO number.
func NewPeriph(cfg hub75.Config, log zerolog.Logger) (*Periph, error) {
	geo, err := cfg.Validate()
	if err != nil {
		return nil, err
	}
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("%w: periph host: %v", hub75.ErrResource, err)
	}
	d := &Periph{idle: gpio.Low, active: gpio.High, lastAddr: -1, log: log}
	if cfg.ClkPhaseInverted {
		d.idle, d.active = d.active, d.idle
	}
	lookup := func(pin int) (gpio.PinIO, error) {
		p := gpioreg.ByName(fmt.Sprintf("GPIO%d", pin))
		if p == nil {
			return nil, fmt.Errorf("%w: no pin GPIO%d", hub75.ErrResource, pin)
		}
		if err := p.Out(gpio.Low); err != nil {
			return nil, fmt.Errorf("%w: GPIO%d: %v", hub75.ErrResource, pin, err)
		}
		d.all = append(d.all, p)
		return p, nil
	}

	pins := cfg.Pins
	for i, pin := range [6]int{pins.R1, pins.G1, pins.B1, pins.R2, pins.G2, pins.B2} {
		if d.data[i], err = lookup(pin); err != nil {
			return nil, err
		}
	}
	for _, pin := range []int{pins.A, pins.B, pins.C, pins.D, pins.E}[:geo.AddressLines] {
		p, err := lookup(pin)
		if err != nil {
			return nil, err
		}
		d.addr = append(d.addr, p)
	}
	if d.lat, err = lookup(pins.Lat); err != nil {
		return nil, err
	}
	if d.oe, err = lookup(pins.OE); err != nil {
		return nil, err
	}
	if d.clk, err = lookup(pins.Clk); err != nil {
		return nil, err
	}
	if err := d.oe.Out(gpio.High); err != nil {
		return nil, fmt.Errorf("driver: blanking oe: %w", err)
	}
	log.Info().Int("pins", len(d.all)).Msg("periph pins acquired")
	return d, nil
}

// WriteRow implements hub75.Sink.
func (d *Periph) WriteRow(words []hub75.Word, repeat int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return errors.New("driver: periph is closed")
	}
	if len(words) == 0 {
		return nil
	}
	if repeat < 1 {
		repeat = 1
	}
	if a := words[0].Addr(); a != d.lastAddr {
		for i, p := range d.addr {
			if err := p.Out(gpio.Level(a>>i&1 == 1)); err != nil {
				return fmt.Errorf("driver: address pin %d: %w", i, err)
			}
		}
		d.lastAddr = a
	}
	for r := 0; r < repeat; r++ {
		for _, w := range words {
			if err := d.shiftWord(w); err != nil {
				return err
			}
		}
	}
	return d.clk.Out(d.idle)
}

func (d *Periph) shiftWord(w hub75.Word) error {
	if err := d.clk.Out(d.idle); err != nil {
		return fmt.Errorf("driver: clk: %w", err)
	}
	for i, p := range d.data {
		if err := p.Out(gpio.Level(w>>i&1 == 1)); err != nil {
			return fmt.Errorf("driver: data pin %d: %w", i, err)
		}
	}
	if err := d.oe.Out(gpio.Level(w.Blanked())); err != nil {
		return fmt.Errorf("driver: oe: %w", err)
	}
	if err := d.lat.Out(gpio.Level(w.Latch())); err != nil {
		return fmt.Errorf("driver: lat: %w", err)
	}
	if err := d.clk.Out(d.active); err != nil {
		return fmt.Errorf("driver: clk: %w", err)
	}
	return nil
}

// Close blanks the panel and halts every pin.
func (d *Periph) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	if d.oe != nil {
		d.oe.Out(gpio.High)
	}
	for _, p := range d.all {
		p.Halt()
	}
	d.all = nil
	return nil
}

var _ hub75.Sink = (*Periph)(nil)
