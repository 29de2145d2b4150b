package pattern

import (
	"image"
	"image/color"
	"image/draw"
	"math"
)

// Solid fills the canvas with one color. An optional "PulseHz" param
// modulates brightness sinusoidally.
type Solid struct {
	name string
	c    color.RGBA
}

func NewSolid(name string, c color.RGBA) *Solid { return &Solid{name: name, c: c} }

func (s *Solid) Name() string { return s.name }

func (s *Solid) Presets() []string {
	return []string{"Red", "Green", "Blue", "White", "Amber", "Black"}
}

func (s *Solid) ApplyPreset(name string, _ Params) {
	switch name {
	case "Red":
		s.c = color.RGBA{R: 255, A: 255}
	case "Green":
		s.c = color.RGBA{G: 255, A: 255}
	case "Blue":
		s.c = color.RGBA{B: 255, A: 255}
	case "White":
		s.c = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	case "Amber":
		s.c = color.RGBA{R: 255, G: 128, A: 255}
	case "Black":
		s.c = color.RGBA{A: 255}
	}
}

func (s *Solid) Render(dst draw.Image, t float64, p Params) {
	c := s.c
	if hz := p.value("PulseHz", 0); hz > 0 {
		scale := 0.5 + 0.5*math.Sin(2*math.Pi*hz*t)
		c.R = uint8(float64(c.R) * scale)
		c.G = uint8(float64(c.G) * scale)
		c.B = uint8(float64(c.B) * scale)
	}
	draw.Draw(dst, dst.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
}
