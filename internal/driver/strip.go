package driver

import (
	"fmt"
	"image"
	"image/color"
	"sync"

	"github.com/rs/zerolog"
	"periph.io/x/conn/v3/display"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/devices/v3/nrzled"
	"periph.io/x/extra/devices/screen"
	"periph.io/x/host/v3"

	"github.com/coreman2200/funtimes-ledwall/internal/hub75"
)

// stripBitRate is the NRZ data rate the SPI clock is derived from.
const stripBitRate physic.Frequency = 800

// Strip mirrors the canvas onto an addressable LED strip: each frame it
// samples the middle scanline at n points and pushes the row over SPI as
// NRZ data. Without an SPI port it falls back to periph's console
// screen, so the mirror still shows something on a dev box.
type Strip struct {
	mu     sync.Mutex
	drawer display.Drawer
	row    *image.NRGBA
	n      int
}

// NewStrip opens the first SPI port and binds n strip pixels to it.
func NewStrip(n int, log zerolog.Logger) (*Strip, error) {
	if n <= 0 {
		n = 100
	}
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("%w: periph host: %v", hub75.ErrResource, err)
	}
	s := &Strip{n: n, row: image.NewNRGBA(image.Rect(0, 0, n, 1))}
	ss, err := spireg.Open("")
	if err != nil {
		log.Warn().Err(err).Msg("no SPI port, mirroring the strip to the console")
		s.drawer = screen.New(n)
		return s, nil
	}
	opts := nrzled.Opts{
		NumPixels: n,
		Channels:  3,
		Freq:      ((stripBitRate * 3) + 100) * physic.KiloHertz,
	}
	d, err := nrzled.NewSPI(ss, &opts)
	if err != nil {
		return nil, fmt.Errorf("%w: nrzled: %v", hub75.ErrResource, err)
	}
	d.Halt()
	s.drawer = d
	log.Info().Int("pixels", n).Msg("strip mirror on spi")
	return s, nil
}

func (s *Strip) String() string { return fmt.Sprintf("strip mirror %dpx", s.n) }

func (s *Strip) ColorModel() color.Model { return s.drawer.ColorModel() }

func (s *Strip) Bounds() image.Rectangle { return s.drawer.Bounds() }

// Draw samples src's middle scanline across its width and forwards the
// row to the strip. r and sp are ignored; the strip has no useful
// sub-rectangles.
func (s *Strip) Draw(r image.Rectangle, src image.Image, sp image.Point) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sb := src.Bounds()
	if sb.Empty() {
		return nil
	}
	y := sb.Min.Y + sb.Dy()/2
	for i := 0; i < s.n; i++ {
		x := sb.Min.X
		if s.n > 1 {
			x += i * (sb.Dx() - 1) / (s.n - 1)
		}
		c := color.NRGBAModel.Convert(src.At(x, y)).(color.NRGBA)
		s.row.SetNRGBA(i, 0, c)
	}
	return s.drawer.Draw(s.drawer.Bounds(), s.row, image.Point{})
}

func (s *Strip) Halt() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.drawer.Halt()
}

var _ display.Drawer = (*Strip)(nil)
