package pattern

import (
	"image"
	"image/color"
	"image/draw"
)

// Cycle floods the whole canvas with one saturated channel at a time,
// red then green then blue, for checking color wiring and balance.
// Params: "Hold" (seconds per channel; default 1).
type Cycle struct {
	name string
}

func NewCycle(name string) *Cycle { return &Cycle{name: name} }

func (c *Cycle) Name() string { return c.name }

func (c *Cycle) Presets() []string { return nil }

func (c *Cycle) ApplyPreset(string, Params) {}

func (c *Cycle) Render(dst draw.Image, t float64, p Params) {
	hold := p.value("Hold", 1)
	if hold <= 0 {
		hold = 1
	}
	fill := color.RGBA{A: 255}
	switch int(t/hold) % 3 {
	case 0:
		fill.R = 255
	case 1:
		fill.G = 255
	default:
		fill.B = 255
	}
	draw.Draw(dst, dst.Bounds(), image.NewUniform(fill), image.Point{}, draw.Src)
}
