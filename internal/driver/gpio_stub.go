//go:build !linux

package driver

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/coreman2200/funtimes-ledwall/internal/hub75"
)

// GPIO needs the Linux character device.
type GPIO struct{}

func NewGPIO(chip string, cfg hub75.Config, log zerolog.Logger) (*GPIO, error) {
	return nil, fmt.Errorf("gpio driver not supported on this platform")
}

func (g *GPIO) WriteRow(words []hub75.Word, repeat int) error {
	return fmt.Errorf("gpio driver not supported on this platform")
}

func (g *GPIO) Close() error { return nil }
