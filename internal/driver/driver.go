// Package driver carries the encoded row-word stream somewhere useful:
// GPIO lines through the Linux character device, periph.io pin handles,
// or a software simulator that folds the stream back into images so the
// rest of the stack runs without matrix hardware attached.
package driver

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/coreman2200/funtimes-ledwall/internal/hub75"
)

// Kind names a sink implementation.
type Kind string

const (
	KindAuto   Kind = "auto"
	KindGPIO   Kind = "gpio"
	KindPeriph Kind = "periph"
	KindSim    Kind = "sim"
)

// ParseKind normalizes a user-supplied driver name. Empty means auto.
func ParseKind(v string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(v)))
	switch k {
	case "":
		return KindAuto, nil
	case KindAuto, KindGPIO, KindPeriph, KindSim:
		return k, nil
	}
	return "", fmt.Errorf("driver: unknown kind %q (want auto, gpio, periph or sim)", v)
}

// Open builds the sink for kind and reports what it ended up with. Auto
// tries the hardware paths first and falls back to the simulator, so the
// same binary runs on the bench and on a dev machine.
func Open(kind Kind, chip string, cfg hub75.Config, log zerolog.Logger) (hub75.Sink, Kind, error) {
	switch kind {
	case KindGPIO:
		s, err := NewGPIO(chip, cfg, log)
		return s, KindGPIO, err
	case KindPeriph:
		s, err := NewPeriph(cfg, log)
		return s, KindPeriph, err
	case KindSim:
		s, err := NewSim(cfg, log)
		return s, KindSim, err
	case KindAuto:
		g, err := NewGPIO(chip, cfg, log)
		if err == nil {
			return g, KindGPIO, nil
		}
		log.Warn().Err(err).Msg("gpio lines unavailable")
		p, err := NewPeriph(cfg, log)
		if err == nil {
			return p, KindPeriph, nil
		}
		log.Warn().Err(err).Msg("periph pins unavailable")
		log.Warn().Msg("no matrix hardware found, driving the simulator")
		s, err := NewSim(cfg, log)
		return s, KindSim, err
	}
	return nil, kind, fmt.Errorf("driver: unknown kind %q", kind)
}
