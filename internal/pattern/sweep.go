package pattern

import (
	"image"
	"image/color"
	"image/draw"
)

// Sweep walks a single white pixel across the canvas in raster order.
// Watching it traverse a chain is the quickest way to spot a swapped
// layout or a miswired address line.
// Params: "Rate" (pixels per second; default 60).
type Sweep struct {
	name string
}

func NewSweep(name string) *Sweep { return &Sweep{name: name} }

func (s *Sweep) Name() string { return s.name }

func (s *Sweep) Presets() []string { return []string{"Slow", "Fast"} }

func (s *Sweep) ApplyPreset(name string, p Params) {
	if p == nil {
		return
	}
	switch name {
	case "Slow":
		p["Rate"] = 10
	case "Fast":
		p["Rate"] = 240
	}
}

func (s *Sweep) Render(dst draw.Image, t float64, p Params) {
	b := dst.Bounds()
	n := b.Dx() * b.Dy()
	if n == 0 {
		return
	}
	rate := p.value("Rate", 60)
	if rate <= 0 {
		rate = 60
	}
	draw.Draw(dst, b, image.Black, image.Point{}, draw.Src)
	idx := int(t*rate) % n
	if idx < 0 {
		idx += n
	}
	dst.Set(b.Min.X+idx%b.Dx(), b.Min.Y+idx/b.Dx(), color.RGBA{R: 255, G: 255, B: 255, A: 255})
}
