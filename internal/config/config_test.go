package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/coreman2200/funtimes-ledwall/internal/config"
	"github.com/coreman2200/funtimes-ledwall/internal/hub75"
)

func withPins(c *Config) *Config {
	c.Pins = PinsCfg{
		R1: 5, G1: 13, B1: 6,
		R2: 12, G2: 16, B2: 23,
		A: 22, B: 26, C: 27, D: 20, E: 24,
		Lat: 21, OE: 4, Clk: 17,
	}
	return c
}

func TestDefaultMatrix(t *testing.T) {
	m, err := withPins(Default()).Matrix()
	require.NoError(t, err)

	assert.Equal(t, 64, m.Width)
	assert.Equal(t, 64, m.Height)
	assert.Equal(t, hub75.Scan1x32, m.Scan)
	assert.Equal(t, 1, m.Chain)
	assert.Equal(t, 20_000_000, m.ClockHz)
	assert.Equal(t, uint8(128), m.Brightness)
	assert.Equal(t, hub75.GammaCIE1931, m.Gamma)
	assert.Equal(t, 21, m.Pins.Lat)

	_, err = m.Validate()
	assert.NoError(t, err)
}

func TestLoadMergesPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wall.yaml")
	partial := "pattern: plasma\nfps: 60\npanel:\n  width: 128\n  chain: 2\n"
	require.NoError(t, os.WriteFile(path, []byte(partial), 0644))

	c, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "plasma", c.Pattern)
	assert.Equal(t, 60, c.FPS)
	assert.Equal(t, 128, c.Panel.Width)
	assert.Equal(t, 2, c.Panel.Chain)
	// Untouched fields keep their defaults.
	assert.Equal(t, 64, c.Panel.Height)
	assert.Equal(t, "auto", c.Driver)
	assert.Equal(t, ":8080", c.HTTP)
	assert.Equal(t, 8, c.Timing.BitDepth)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wall.yaml")
	c := withPins(Default())
	c.Pattern = "sweep"
	c.Panel.Driver = "fm6126a"
	c.Render.TemporalDither = true
	require.NoError(t, Save(path, c))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, c, got)
}

func TestMatrixParsesEnums(t *testing.T) {
	c := withPins(Default())
	c.Panel.Height = 32
	c.Panel.Scan = "1/16"
	c.Panel.Layout = "top_right_down"
	c.Panel.Driver = "fm6126a"
	c.Render.Gamma = "2.2"

	m, err := c.Matrix()
	require.NoError(t, err)
	assert.Equal(t, hub75.Scan1x16, m.Scan)
	assert.Equal(t, hub75.LayoutTopRightDown, m.Layout)
	assert.Equal(t, hub75.DriverFM6126A, m.Driver)
	assert.Equal(t, hub75.Gamma22, m.Gamma)
}

func TestMatrixRejectsBadValues(t *testing.T) {
	c := Default()
	c.Panel.Scan = "1/3"
	_, err := c.Matrix()
	assert.ErrorIs(t, err, hub75.ErrConfig)

	c = Default()
	c.Render.Brightness = 300
	_, err = c.Matrix()
	assert.ErrorIs(t, err, hub75.ErrConfig)

	c = Default()
	c.Panel.FourScan = "48px"
	_, err = c.Matrix()
	assert.ErrorIs(t, err, hub75.ErrConfig)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
