// Package pattern holds the built-in frame sources used for bring-up,
// wiring checks and demos.
package pattern

import (
	"image/color"
	"image/draw"
	"sort"
)

// Params tunes a source. Keys are source-specific; unknown keys are
// ignored.
type Params map[string]float64

func (p Params) value(key string, def float64) float64 {
	if p == nil {
		return def
	}
	if v, ok := p[key]; ok {
		return v
	}
	return def
}

// Source renders frames onto a canvas. t is seconds since the show
// started.
type Source interface {
	Name() string
	Presets() []string
	ApplyPreset(name string, p Params)
	Render(dst draw.Image, t float64, p Params)
}

// Registry maps source names to implementations.
type Registry struct{ m map[string]Source }

func NewRegistry() *Registry { return &Registry{m: map[string]Source{}} }

func (r *Registry) Register(s Source) {
	if s == nil {
		return
	}
	r.m[s.Name()] = s
}

func (r *Registry) Get(name string) (Source, bool) {
	s, ok := r.m[name]
	return s, ok
}

func (r *Registry) List() []string {
	out := make([]string, 0, len(r.m))
	for k := range r.m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Builtin returns a registry with every built-in source registered.
func Builtin() *Registry {
	r := NewRegistry()
	r.Register(NewSolid("solid", color.RGBA{R: 255, G: 128, A: 255}))
	r.Register(NewGradient("gradient"))
	r.Register(NewPlasma("plasma"))
	r.Register(NewSweep("sweep"))
	r.Register(NewCycle("rgb"))
	return r
}
