package pattern

import (
	"image/color"
	"image/draw"
	"math"
)

// Gradient sweeps a hue ramp across one axis of the canvas, optionally
// rotating over time.
// Params:
//   - "Axis"  (0=X, 1=Y; default 0)
//   - "Speed" (ramp cycles per second; default 0)
type Gradient struct {
	name string
}

func NewGradient(name string) *Gradient { return &Gradient{name: name} }

func (g *Gradient) Name() string { return g.name }

func (g *Gradient) Presets() []string { return []string{"Horizontal", "Vertical", "Rainbow"} }

func (g *Gradient) ApplyPreset(name string, p Params) {
	if p == nil {
		return
	}
	switch name {
	case "Horizontal":
		p["Axis"] = 0
	case "Vertical":
		p["Axis"] = 1
	case "Rainbow":
		p["Speed"] = 0.1
	}
}

func (g *Gradient) Render(dst draw.Image, t float64, p Params) {
	b := dst.Bounds()
	axis := int(p.value("Axis", 0))
	speed := p.value("Speed", 0)
	denX := b.Dx() - 1
	if denX < 1 {
		denX = 1
	}
	denY := b.Dy() - 1
	if denY < 1 {
		denY = 1
	}
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			var v float64
			if axis == 1 {
				v = float64(y-b.Min.Y) / float64(denY)
			} else {
				v = float64(x-b.Min.X) / float64(denX)
			}
			phase := v*2*math.Pi + t*2*math.Pi*speed
			dst.Set(x, y, color.RGBA{
				R: wave(phase),
				G: wave(phase + 2*math.Pi/3),
				B: wave(phase + 4*math.Pi/3),
				A: 255,
			})
		}
	}
}

func wave(phase float64) uint8 {
	return uint8(255 * (0.5 + 0.5*math.Sin(phase)))
}
