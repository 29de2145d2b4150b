// Package app wires the refresh engine, the pattern sources and the
// websocket hub into one running show.
package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"periph.io/x/conn/v3/display"

	"github.com/coreman2200/funtimes-ledwall/internal/config"
	"github.com/coreman2200/funtimes-ledwall/internal/diagnostics"
	"github.com/coreman2200/funtimes-ledwall/internal/hub75"
	"github.com/coreman2200/funtimes-ledwall/internal/pattern"
	"github.com/coreman2200/funtimes-ledwall/internal/ws"
)

const diagInterval = time.Second

// Conductor owns the frame clock. It runs the engine, ticks the active
// pattern into the engine canvas, and feeds the hub with previews and
// health events.
type Conductor struct {
	Eng *hub75.Engine
	Reg *pattern.Registry
	Hub *ws.Hub

	log        zerolog.Logger
	driverName string
	configPath string
	cfg        *config.Config
	fps        atomic.Int64
	started    time.Time

	mu         sync.Mutex
	src        pattern.Source
	name       string
	params     pattern.Params
	violations uint64

	canvas  *image.RGBA
	encode  bytes.Buffer
	drawers []display.Drawer
}

// NewConductor builds a conductor around eng. startPattern falls back
// to the first registered source when unknown.
func NewConductor(eng *hub75.Engine, reg *pattern.Registry, hub *ws.Hub, log zerolog.Logger, startPattern string) *Conductor {
	c := &Conductor{
		Eng:     eng,
		Reg:     reg,
		Hub:     hub,
		log:     log,
		params:  pattern.Params{},
		canvas:  image.NewRGBA(eng.Bounds()),
		started: time.Now(),
	}
	c.fps.Store(30)
	if _, ok := reg.Get(startPattern); !ok {
		if names := reg.List(); len(names) > 0 {
			log.Warn().Str("pattern", startPattern).Str("using", names[0]).Msg("pattern not registered")
			startPattern = names[0]
		}
	}
	c.src, _ = reg.Get(startPattern)
	c.name = startPattern
	if hub != nil {
		hub.OnControl(c.applyControl)
		hub.TopologyFunc(c.topology)
	}
	return c
}

// SetFPS sets the pattern tick rate. Takes effect on the next tick.
func (c *Conductor) SetFPS(fps int) {
	if fps <= 0 {
		fps = 30
	}
	c.fps.Store(int64(fps))
}

func (c *Conductor) FPS() int { return int(c.fps.Load()) }

// SetDriverName records the active sink name for topology and health
// reports.
func (c *Conductor) SetDriverName(name string) { c.driverName = name }

// AttachDrawer mirrors every rendered canvas to d. Attach before Run.
func (c *Conductor) AttachDrawer(d display.Drawer) {
	if d != nil {
		c.drawers = append(c.drawers, d)
	}
}

// Persist makes control changes write back to path. cfg is the loaded
// file, updated in place before each save.
func (c *Conductor) Persist(path string, cfg *config.Config) {
	c.configPath = path
	c.cfg = cfg
}

// SetPattern switches the active source by name.
func (c *Conductor) SetPattern(name string) error {
	src, ok := c.Reg.Get(name)
	if !ok {
		c.pushDiag(diagnostics.Diagnostic{
			Severity: diagnostics.Warn, Code: "PATTERN.UNKNOWN", Summary: "Unknown pattern name",
			Evidence: map[string]any{"name": name},
		})
		return fmt.Errorf("app: unknown pattern %q", name)
	}
	c.mu.Lock()
	c.src = src
	c.name = name
	c.mu.Unlock()
	c.pushDiag(diagnostics.Diagnostic{
		Severity: diagnostics.Info, Code: "PATTERN.CHANGED", Summary: "Pattern changed", Detail: name,
	})
	return nil
}

func (c *Conductor) Pattern() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.name
}

// Run drives the engine, the pattern clock and the diag stream until
// ctx is done.
func (c *Conductor) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return c.Eng.Run(ctx) })
	g.Go(func() error { return c.runFrames(ctx) })
	g.Go(func() error { return c.runDiag(ctx) })
	return g.Wait()
}

func (c *Conductor) runFrames(ctx context.Context) error {
	fps := c.fps.Load()
	tick := time.NewTicker(time.Second / time.Duration(fps))
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-tick.C:
			if now := c.fps.Load(); now != fps {
				fps = now
				tick.Reset(time.Second / time.Duration(fps))
			}
			c.renderOnce(time.Since(c.started).Seconds())
		}
	}
}

func (c *Conductor) renderOnce(t float64) {
	c.mu.Lock()
	src := c.src
	params := make(pattern.Params, len(c.params))
	for k, v := range c.params {
		params[k] = v
	}
	c.mu.Unlock()
	if src == nil {
		return
	}
	src.Render(c.canvas, t, params)
	_ = c.Eng.Draw(c.Eng.Bounds(), c.canvas, image.Point{})
	for _, d := range c.drawers {
		if err := d.Draw(d.Bounds(), c.canvas, image.Point{}); err != nil {
			c.log.Debug().Err(err).Str("drawer", d.String()).Msg("mirror draw")
		}
	}

	if c.Hub == nil || c.Hub.FrameClients() == 0 {
		return
	}
	c.encode.Reset()
	if err := png.Encode(&c.encode, c.canvas); err != nil {
		c.log.Debug().Err(err).Msg("encode preview")
		return
	}
	c.Hub.BroadcastFrame(c.encode.Bytes())
}

func (c *Conductor) runDiag(ctx context.Context) error {
	tick := time.NewTicker(diagInterval)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-tick.C:
			snap := c.Snapshot()
			if c.Hub != nil {
				c.Hub.PushDiag(snap)
			}
			c.checkTiming(snap)
		}
	}
}

// checkTiming raises a warning whenever the engine fell behind since
// the last look.
func (c *Conductor) checkTiming(snap diagnostics.Snapshot) {
	c.mu.Lock()
	prev := c.violations
	c.violations = snap.TimingViolations
	c.mu.Unlock()
	if snap.TimingViolations <= prev {
		return
	}
	c.pushDiag(diagnostics.Diagnostic{
		Severity: diagnostics.Warn,
		Code:     "TIMING.SLOW",
		Summary:  "Refresh running behind",
		Evidence: map[string]any{
			"new":         snap.TimingViolations - prev,
			"total":       snap.TimingViolations,
			"planned_hz":  snap.PlannedHz,
			"measured_hz": snap.MeasuredHz,
		},
	})
}

func (c *Conductor) pushDiag(d diagnostics.Diagnostic) {
	if c.Hub != nil {
		c.Hub.PushDiag(d)
	}
}

// Snapshot reports the current engine and show state.
func (c *Conductor) Snapshot() diagnostics.Snapshot {
	snap := diagnostics.FromEngine(c.Eng, c.started)
	snap.Pattern = c.Pattern()
	snap.Driver = c.driverName
	return snap
}

// HandleHealth serves the snapshot as JSON.
func (c *Conductor) HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(c.Snapshot())
}

func (c *Conductor) topology() map[string]any {
	geo := c.Eng.Geometry()
	c.mu.Lock()
	name := c.name
	var presets []string
	if c.src != nil {
		presets = c.src.Presets()
	}
	c.mu.Unlock()
	return map[string]any{
		"width":      geo.Width,
		"height":     geo.Height,
		"chain":      geo.Chain,
		"rowPairs":   geo.RowPairs,
		"driver":     c.driverName,
		"pattern":    name,
		"patterns":   c.Reg.List(),
		"presets":    presets,
		"fps":        c.FPS(),
		"brightness": c.Eng.Brightness(),
	}
}

func (c *Conductor) applyControl(msg map[string]any) {
	if v, ok := msg["pattern"].(string); ok {
		_ = c.SetPattern(v)
	}
	if v, ok := msg["preset"].(string); ok {
		c.mu.Lock()
		if c.src != nil {
			c.src.ApplyPreset(v, c.params)
		}
		c.mu.Unlock()
	}
	if v, ok := msg["params"].(map[string]any); ok {
		c.mu.Lock()
		for k, raw := range v {
			if f, ok2 := raw.(float64); ok2 {
				c.params[k] = f
			}
		}
		c.mu.Unlock()
	}
	if v, ok := msg["brightness"].(float64); ok {
		c.Eng.SetBrightness(uint8(clamp(v, 0, 255)))
	}
	if v, ok := msg["intensity"].(float64); ok {
		c.Eng.SetIntensity(v)
	}
	if v, ok := msg["gamma"].(string); ok {
		if mode, err := hub75.ParseGammaMode(v); err != nil {
			c.pushDiag(diagnostics.Diagnostic{
				Severity: diagnostics.Warn, Code: "CONTROL.BAD", Summary: "Bad gamma mode",
				Evidence: map[string]any{"gamma": v},
			})
		} else if err := c.Eng.SetGammaMode(mode); err != nil {
			c.pushDiag(diagnostics.Diagnostic{
				Severity: diagnostics.Warn, Code: "CONTROL.BAD", Summary: "Gamma mode rejected",
				Detail: err.Error(),
			})
		}
	}
	if v, ok := msg["latchBlanking"].(float64); ok {
		if err := c.Eng.SetLatchBlanking(int(v)); err != nil {
			c.pushDiag(diagnostics.Diagnostic{
				Severity: diagnostics.Warn, Code: "CONTROL.BAD", Summary: "Latch blanking rejected",
				Detail: err.Error(),
			})
		}
	}
	if v, ok := msg["fps"].(float64); ok {
		c.SetFPS(int(v))
	}

	// Persist config after any change
	c.saveConfig()
}

func (c *Conductor) saveConfig() {
	if c.configPath == "" || c.cfg == nil {
		return
	}
	c.cfg.Pattern = c.Pattern()
	c.cfg.FPS = c.FPS()
	c.cfg.Render.Brightness = int(c.Eng.Brightness())
	if err := config.Save(c.configPath, c.cfg); err != nil {
		c.log.Warn().Err(err).Str("path", c.configPath).Msg("config save failed")
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
