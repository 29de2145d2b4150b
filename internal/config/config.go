// Package config maps the on-disk yaml settings onto the matrix engine
// configuration and the app-level options around it.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/coreman2200/funtimes-ledwall/internal/hub75"
)

type PanelCfg struct {
	Width      int    `yaml:"width"`
	Height     int    `yaml:"height"`
	Scan       string `yaml:"scan"` // e.g. "1/32"
	Chain      int    `yaml:"chain"`
	Layout     string `yaml:"layout"`
	LayoutRows int    `yaml:"layout_rows,omitempty"`
	LayoutCols int    `yaml:"layout_cols,omitempty"`
	FourScan   string `yaml:"four_scan,omitempty"`
	Driver     string `yaml:"shift_driver"`
}

type PinsCfg struct {
	R1 int `yaml:"r1"`
	G1 int `yaml:"g1"`
	B1 int `yaml:"b1"`
	R2 int `yaml:"r2"`
	G2 int `yaml:"g2"`
	B2 int `yaml:"b2"`
	A  int `yaml:"a"`
	B  int `yaml:"b"`
	C  int `yaml:"c"`
	D  int `yaml:"d"`
	E  int `yaml:"e"`

	Lat int `yaml:"lat"`
	OE  int `yaml:"oe"`
	Clk int `yaml:"clk"`
}

type TimingCfg struct {
	ClockHz          int  `yaml:"clock_hz"`
	BitDepth         int  `yaml:"bit_depth"`
	MinRefresh       int  `yaml:"min_refresh"`
	LatchBlanking    int  `yaml:"latch_blanking"`
	ClkPhaseInverted bool `yaml:"clk_phase_inverted,omitempty"`
}

type RenderCfg struct {
	Brightness     int    `yaml:"brightness"`
	Gamma          string `yaml:"gamma"`
	DoubleBuffer   bool   `yaml:"double_buffer"`
	TemporalDither bool   `yaml:"temporal_dither"`
}

type Config struct {
	Driver  string `yaml:"driver"` // "auto" | "gpio" | "periph" | "sim"
	Chip    string `yaml:"chip,omitempty"`
	HTTP    string `yaml:"http"` // listen address, empty disables the server
	Pattern string `yaml:"pattern"`
	SVG     string `yaml:"svg,omitempty"` // path, registered as source "svg"
	FPS     int    `yaml:"fps"`
	Strip   int    `yaml:"strip,omitempty"` // mirror strip length, 0 disables

	Panel  PanelCfg  `yaml:"panel"`
	Pins   PinsCfg   `yaml:"pins"`
	Timing TimingCfg `yaml:"timing"`
	Render RenderCfg `yaml:"render"`
}

// Default mirrors hub75.DefaultConfig plus app-level defaults. Pins stay
// unassigned; hardware drivers refuse to start without real ones.
func Default() *Config {
	m := hub75.DefaultConfig()
	return &Config{
		Driver:  "auto",
		HTTP:    ":8080",
		Pattern: "gradient",
		FPS:     30,
		Panel: PanelCfg{
			Width:  m.Width,
			Height: m.Height,
			Scan:   m.Scan.String(),
			Chain:  m.Chain,
			Layout: m.Layout.String(),
			Driver: m.Driver.String(),
		},
		Pins: PinsCfg{
			R1: -1, G1: -1, B1: -1,
			R2: -1, G2: -1, B2: -1,
			A: -1, B: -1, C: -1, D: -1, E: -1,
			Lat: -1, OE: -1, Clk: -1,
		},
		Timing: TimingCfg{
			ClockHz:       m.ClockHz,
			BitDepth:      m.BitDepth,
			MinRefresh:    m.MinRefresh,
			LatchBlanking: m.LatchBlanking,
		},
		Render: RenderCfg{
			Brightness: int(m.Brightness),
			Gamma:      m.Gamma.String(),
		},
	}
}

// Load reads path over the defaults, so partial files work.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	c := Default()
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, err
	}
	return c, nil
}

func Save(path string, c *Config) error {
	b, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0644)
}

// Matrix converts the settings into an engine config. String fields go
// through the hub75 parsers; empty strings keep the engine defaults.
func (c *Config) Matrix() (hub75.Config, error) {
	m := hub75.DefaultConfig()
	if c.Panel.Width != 0 {
		m.Width = c.Panel.Width
	}
	if c.Panel.Height != 0 {
		m.Height = c.Panel.Height
	}
	if c.Panel.Scan != "" {
		scan, err := hub75.ParseScanPattern(c.Panel.Scan)
		if err != nil {
			return m, err
		}
		m.Scan = scan
	}
	if c.Panel.Chain != 0 {
		m.Chain = c.Panel.Chain
	}
	layout, err := hub75.ParsePanelLayout(c.Panel.Layout)
	if err != nil {
		return m, err
	}
	m.Layout = layout
	m.LayoutRows = c.Panel.LayoutRows
	m.LayoutCols = c.Panel.LayoutCols
	fourScan, err := hub75.ParseFourScan(c.Panel.FourScan)
	if err != nil {
		return m, err
	}
	m.FourScan = fourScan
	shift, err := hub75.ParseShiftDriver(c.Panel.Driver)
	if err != nil {
		return m, err
	}
	m.Driver = shift

	m.Pins = hub75.Pins{
		R1: c.Pins.R1, G1: c.Pins.G1, B1: c.Pins.B1,
		R2: c.Pins.R2, G2: c.Pins.G2, B2: c.Pins.B2,
		A: c.Pins.A, B: c.Pins.B, C: c.Pins.C, D: c.Pins.D, E: c.Pins.E,
		Lat: c.Pins.Lat, OE: c.Pins.OE, Clk: c.Pins.Clk,
	}

	if c.Timing.ClockHz != 0 {
		m.ClockHz = c.Timing.ClockHz
	}
	if c.Timing.BitDepth != 0 {
		m.BitDepth = c.Timing.BitDepth
	}
	if c.Timing.MinRefresh != 0 {
		m.MinRefresh = c.Timing.MinRefresh
	}
	m.LatchBlanking = c.Timing.LatchBlanking
	m.ClkPhaseInverted = c.Timing.ClkPhaseInverted

	if c.Render.Brightness < 0 || c.Render.Brightness > 255 {
		return m, fmt.Errorf("%w: brightness %d out of range", hub75.ErrConfig, c.Render.Brightness)
	}
	m.Brightness = uint8(c.Render.Brightness)
	gamma, err := hub75.ParseGammaMode(c.Render.Gamma)
	if err != nil {
		return m, err
	}
	m.Gamma = gamma
	m.DoubleBuffer = c.Render.DoubleBuffer
	m.TemporalDither = c.Render.TemporalDither
	return m, nil
}
