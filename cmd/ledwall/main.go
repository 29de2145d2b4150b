package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/coreman2200/funtimes-ledwall/internal/app"
	"github.com/coreman2200/funtimes-ledwall/internal/config"
	"github.com/coreman2200/funtimes-ledwall/internal/driver"
	"github.com/coreman2200/funtimes-ledwall/internal/hub75"
	"github.com/coreman2200/funtimes-ledwall/internal/pattern"
	"github.com/coreman2200/funtimes-ledwall/internal/ws"
)

func main() {
	// ---- Flags (config.yaml holds the rest; flags override it) ----
	var (
		configPath  = flag.String("config", "config.yaml", "path to config.yaml")
		driverKind  = flag.String("driver", "", "driver: auto | gpio | periph | sim")
		chip        = flag.String("chip", "", "gpio chip name, e.g. gpiochip0")
		httpAddr    = flag.String("http", "", "HTTP listen address")
		patternName = flag.String("pattern", "", "starting pattern")
		svgPath     = flag.String("svg", "", "svg file registered as pattern \"svg\"")
		fps         = flag.Int("fps", 0, "pattern frames per second")
		brightness  = flag.Int("brightness", -1, "brightness 0..255")
		stripLen    = flag.Int("strip", 0, "mirror strip length in LEDs")
		printConfig = flag.Bool("print-config", false, "print the effective config and pin map, then exit")
	)
	flag.Parse()

	// ---- Logging ----
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen})

	// ---- Load config.yaml (optional) ----
	cfg := config.Default()
	if c, err := config.Load(*configPath); err != nil {
		log.Warn().Err(err).Str("path", *configPath).Msg("config load failed; using defaults")
	} else {
		cfg = c
	}

	// ---- Flag overrides ----
	if *driverKind != "" {
		cfg.Driver = *driverKind
	}
	if *chip != "" {
		cfg.Chip = *chip
	}
	if *httpAddr != "" {
		cfg.HTTP = *httpAddr
	}
	if *patternName != "" {
		cfg.Pattern = *patternName
	}
	if *svgPath != "" {
		cfg.SVG = *svgPath
	}
	if *fps > 0 {
		cfg.FPS = *fps
	}
	if *brightness >= 0 {
		cfg.Render.Brightness = *brightness
	}
	if *stripLen > 0 {
		cfg.Strip = *stripLen
	}

	m, err := cfg.Matrix()
	if err != nil {
		log.Fatal().Err(err).Msg("bad matrix config")
	}

	if *printConfig {
		b, _ := yaml.Marshal(cfg)
		os.Stdout.Write(b)
		fmt.Println()
		m.Pins.DumpTo(os.Stdout)
		return
	}

	// ---- Patterns ----
	reg := pattern.Builtin()
	if cfg.SVG != "" {
		if src, err := pattern.NewSVGFile("svg", cfg.SVG); err != nil {
			log.Warn().Err(err).Str("path", cfg.SVG).Msg("svg load failed")
		} else {
			reg.Register(src)
		}
	}

	// ---- Sink & engine ----
	kind, err := driver.ParseKind(cfg.Driver)
	if err != nil {
		log.Fatal().Err(err).Msg("bad driver")
	}
	sink, resolved, err := driver.Open(kind, cfg.Chip, m, log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("driver init failed")
	}
	eng, err := hub75.New(sink, m, log.Logger)
	if err != nil {
		_ = sink.Close()
		log.Fatal().Err(err).Msg("engine init failed")
	}

	// ---- Show ----
	hub := ws.NewHub(log.Logger)
	cond := app.NewConductor(eng, reg, hub, log.Logger, cfg.Pattern)
	cond.SetFPS(cfg.FPS)
	cond.SetDriverName(string(resolved))
	cond.Persist(*configPath, cfg)
	if cfg.Strip > 0 {
		if st, err := driver.NewStrip(cfg.Strip, log.Logger); err != nil {
			log.Warn().Err(err).Msg("strip mirror unavailable")
		} else {
			cond.AttachDrawer(st)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- cond.Run(ctx) }()

	// ---- HTTP routes ----
	var srv *http.Server
	if cfg.HTTP != "" {
		mux := http.NewServeMux()
		mux.HandleFunc("/ws/frames", hub.HandleFrames)
		mux.HandleFunc("/ws/diag", hub.HandleDiag)
		mux.HandleFunc("/ws/control", hub.HandleControl)
		mux.HandleFunc("/healthz", cond.HandleHealth)

		srv = &http.Server{
			Addr:         cfg.HTTP,
			Handler:      withCORS(mux),
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		}
		go func() {
			log.Info().Str("addr", cfg.HTTP).Str("driver", string(resolved)).Msg("HTTP server starting")
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatal().Err(err).Msg("http server crashed")
			}
		}()
	}

	// ---- Graceful shutdown ----
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	select {
	case s := <-ch:
		log.Info().Str("signal", s.String()).Msg("shutting down")
		cancel()
		<-done
	case err := <-done:
		cancel()
		if err != nil {
			log.Error().Err(err).Msg("show stopped")
		}
	}

	if srv != nil {
		_ = srv.Close()
	}
	hub.Close()
	if err := eng.Close(); err != nil {
		log.Error().Err(err).Msg("close failed")
	}
}

func withCORS(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(200)
			return
		}
		h.ServeHTTP(w, r)
	})
}
