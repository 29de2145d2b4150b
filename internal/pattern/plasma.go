package pattern

import (
	"image/color"
	"image/draw"
	"math"
)

// Plasma renders the classic four-wave interference demo.
// Params:
//   - "Scale" (feature size in pixels; default 16)
//   - "Speed" (animation rate; default 0.5)
type Plasma struct {
	name string
}

func NewPlasma(name string) *Plasma { return &Plasma{name: name} }

func (pl *Plasma) Name() string { return pl.name }

func (pl *Plasma) Presets() []string { return []string{"Calm", "Storm"} }

func (pl *Plasma) ApplyPreset(name string, p Params) {
	if p == nil {
		return
	}
	switch name {
	case "Calm":
		p["Scale"] = 24
		p["Speed"] = 0.2
	case "Storm":
		p["Scale"] = 10
		p["Speed"] = 1.5
	}
}

func (pl *Plasma) Render(dst draw.Image, t float64, p Params) {
	b := dst.Bounds()
	scale := p.value("Scale", 16)
	if scale <= 0 {
		scale = 16
	}
	tt := t * p.value("Speed", 0.5) * 2 * math.Pi
	for y := b.Min.Y; y < b.Max.Y; y++ {
		fy := float64(y-b.Min.Y) / scale
		for x := b.Min.X; x < b.Max.X; x++ {
			fx := float64(x-b.Min.X) / scale
			v := math.Sin(fx+tt) +
				math.Sin((fy+tt)/2) +
				math.Sin((fx+fy+tt)/2) +
				math.Sin(math.Sqrt(fx*fx+fy*fy)+tt)
			phase := v * math.Pi / 2
			dst.Set(x, y, color.RGBA{
				R: wave(phase),
				G: wave(phase + 2*math.Pi/3),
				B: wave(phase + 4*math.Pi/3),
				A: 255,
			})
		}
	}
}
