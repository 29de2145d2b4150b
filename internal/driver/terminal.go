package driver

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"io"
	"sync"

	"periph.io/x/conn/v3/display"
)

// Terminal paints frames into an ANSI terminal using half-block glyphs,
// two pixel rows per text line, truecolor escapes per cell. It satisfies
// display.Drawer so it can stand in wherever a panel preview is wanted.
type Terminal struct {
	mu    sync.Mutex
	w     io.Writer
	img   *image.RGBA
	buf   []byte
	lines int
	drawn bool
}

// NewTerminal builds a drawer of the given pixel size writing to w.
func NewTerminal(w io.Writer, width, height int) *Terminal {
	return &Terminal{
		w:     w,
		img:   image.NewRGBA(image.Rect(0, 0, width, height)),
		lines: (height + 1) / 2,
	}
}

func (t *Terminal) String() string {
	b := t.img.Bounds()
	return fmt.Sprintf("terminal %dx%d", b.Dx(), b.Dy())
}

func (t *Terminal) ColorModel() color.Model { return color.RGBAModel }

func (t *Terminal) Bounds() image.Rectangle { return t.img.Bounds() }

// Draw composites src into the backing image and repaints the whole
// frame in place, cursoring back up over the previous one.
func (t *Terminal) Draw(r image.Rectangle, src image.Image, sp image.Point) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	draw.Draw(t.img, r.Intersect(t.img.Bounds()), src, sp, draw.Src)

	b := t.buf[:0]
	if t.drawn {
		b = fmt.Appendf(b, "\x1b[%dA\r", t.lines)
	}
	bounds := t.img.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y; y += 2 {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			up := t.img.RGBAAt(x, y)
			var lo color.RGBA
			if y+1 < bounds.Max.Y {
				lo = t.img.RGBAAt(x, y+1)
			}
			b = fmt.Appendf(b, "\x1b[38;2;%d;%d;%dm\x1b[48;2;%d;%d;%dm▀",
				up.R, up.G, up.B, lo.R, lo.G, lo.B)
		}
		b = append(b, "\x1b[0m\n"...)
	}
	t.buf = b
	_, err := t.w.Write(b)
	t.drawn = true
	return err
}

// Halt resets terminal attributes and leaves the last frame on screen.
func (t *Terminal) Halt() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.drawn = false
	_, err := io.WriteString(t.w, "\x1b[0m")
	return err
}

var _ display.Drawer = (*Terminal)(nil)
