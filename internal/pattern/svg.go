package pattern

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"sync"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
)

// SVG rasterizes a vector graphic to the canvas size and blits it over
// black each frame. Rasterization is cached until the canvas size
// changes, so a static logo costs one scan-convert total.
type SVG struct {
	name string
	icon *oksvg.SvgIcon

	mu    sync.Mutex
	cache *image.RGBA
}

// NewSVGFile loads and parses the SVG at path.
func NewSVGFile(name, path string) (*SVG, error) {
	icon, err := oksvg.ReadIcon(path, oksvg.WarnErrorMode)
	if err != nil {
		return nil, fmt.Errorf("pattern: svg %s: %w", path, err)
	}
	return &SVG{name: name, icon: icon}, nil
}

// NewSVG parses an in-memory SVG document.
func NewSVG(name string, data []byte) (*SVG, error) {
	icon, err := oksvg.ReadIconStream(bytes.NewReader(data), oksvg.WarnErrorMode)
	if err != nil {
		return nil, fmt.Errorf("pattern: svg %s: %w", name, err)
	}
	return &SVG{name: name, icon: icon}, nil
}

func (s *SVG) Name() string { return s.name }

func (s *SVG) Presets() []string { return nil }

func (s *SVG) ApplyPreset(string, Params) {}

func (s *SVG) Render(dst draw.Image, t float64, p Params) {
	b := dst.Bounds()
	if b.Empty() {
		return
	}
	img := s.rasterize(b.Dx(), b.Dy())
	draw.Draw(dst, b, image.Black, image.Point{}, draw.Src)
	draw.Draw(dst, b, img, image.Point{}, draw.Over)
}

func (s *SVG) rasterize(w, h int) *image.RGBA {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c := s.cache; c != nil && c.Bounds().Dx() == w && c.Bounds().Dy() == h {
		return c
	}
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	s.icon.SetTarget(0, 0, float64(w), float64(h))
	scanner := rasterx.NewScannerGV(w, h, img, img.Bounds())
	s.icon.Draw(rasterx.NewDasher(w, h, scanner), 1.0)
	s.cache = img
	return img
}
