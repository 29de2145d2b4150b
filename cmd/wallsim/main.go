// wallsim runs the refresh engine against the simulator and paints the
// integrated output in the terminal. Handy for eyeballing patterns and
// timing behavior without a panel on the desk.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/coreman2200/funtimes-ledwall/internal/app"
	"github.com/coreman2200/funtimes-ledwall/internal/driver"
	"github.com/coreman2200/funtimes-ledwall/internal/hub75"
	"github.com/coreman2200/funtimes-ledwall/internal/pattern"
)

func main() {
	var (
		width      = flag.Int("width", 64, "panel width")
		height     = flag.Int("height", 64, "panel height")
		chain      = flag.Int("chain", 1, "chained panels")
		scan       = flag.String("scan", "", "scan pattern, e.g. 1/32 (derived from height when empty)")
		name       = flag.String("pattern", "plasma", "pattern to run")
		preset     = flag.String("preset", "", "preset applied to the pattern")
		fps        = flag.Int("fps", 30, "frames per second")
		brightness = flag.Int("brightness", 255, "brightness 0..255")
		duration   = flag.Duration("for", 0, "stop after this long (0 runs until interrupted)")
	)
	flag.Parse()

	// The panel art goes to stdout, so logs go to stderr.
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})

	cfg := hub75.DefaultConfig()
	cfg.Width = *width
	cfg.Height = *height
	cfg.Chain = *chain
	if *scan != "" {
		s, err := hub75.ParseScanPattern(*scan)
		if err != nil {
			log.Fatal().Err(err).Msg("bad scan")
		}
		cfg.Scan = s
	} else {
		cfg.Scan = hub75.ScanPattern(*height / 2)
	}
	if *brightness >= 0 && *brightness <= 255 {
		cfg.Brightness = uint8(*brightness)
	}

	geo, err := cfg.Validate()
	if err != nil {
		log.Fatal().Err(err).Msg("bad panel config")
	}

	sim, err := driver.NewSim(cfg, log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("sim init failed")
	}
	sim.AttachDrawer(driver.NewTerminal(os.Stdout, geo.Width, geo.Height))

	eng, err := hub75.New(sim, cfg, log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("engine init failed")
	}

	reg := pattern.Builtin()
	cond := app.NewConductor(eng, reg, nil, log.Logger, *name)
	cond.SetFPS(*fps)
	cond.SetDriverName("sim")
	if *preset != "" {
		if src, ok := reg.Get(cond.Pattern()); ok {
			src.ApplyPreset(*preset, nil)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if *duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *duration)
		defer cancel()
	}

	if err := cond.Run(ctx); err != nil {
		log.Error().Err(err).Msg("show stopped")
	}
	if err := eng.Close(); err != nil {
		log.Error().Err(err).Msg("close failed")
	}

	checks := sim.Checks()
	if n := checks.MissingLatch + checks.StrayLatch + checks.AddressRange; n > 0 {
		log.Warn().Uint64("faults", n).Msg("protocol checks tripped")
	}
	snap := cond.Snapshot()
	log.Info().
		Uint64("frames", snap.Frames).
		Float64("measured_hz", snap.MeasuredHz).
		Msg("done")
}
