package hub75

import (
	"fmt"
	"image"
	"image/color"
	"sync/atomic"
)

// PixelFormat describes the wire layout of bulk pixel data handed to
// DrawPixels.
type PixelFormat int

const (
	FormatRGB888    PixelFormat = iota // 3 bytes per pixel: R G B
	FormatRGB888x32                    // 4 bytes per pixel with one padding byte
	FormatRGB565                       // 2 bytes per pixel
)

// ColorOrder is the component order of FormatRGB888x32 data.
type ColorOrder int

const (
	OrderRGB ColorOrder = iota
	OrderBGR
)

// FrameBuffer is a dense RGB canvas sized to the logical chain. It
// implements draw.Image, so image-based sources can composite straight
// into it. Pixels are stored as written; gamma correction happens on the
// read path each refresh pass.
type FrameBuffer struct {
	w, h int
	pix  []uint8 // 3 bytes per pixel, row-major
}

// NewFrameBuffer allocates a zeroed (black) canvas.
func NewFrameBuffer(w, h int) *FrameBuffer {
	return &FrameBuffer{w: w, h: h, pix: make([]uint8, 3*w*h)}
}

func (f *FrameBuffer) ColorModel() color.Model { return color.RGBAModel }

func (f *FrameBuffer) Bounds() image.Rectangle { return image.Rect(0, 0, f.w, f.h) }

func (f *FrameBuffer) At(x, y int) color.Color {
	if x < 0 || y < 0 || x >= f.w || y >= f.h {
		return color.RGBA{}
	}
	i := 3 * (y*f.w + x)
	return color.RGBA{R: f.pix[i], G: f.pix[i+1], B: f.pix[i+2], A: 0xFF}
}

func (f *FrameBuffer) Set(x, y int, c color.Color) {
	if x < 0 || y < 0 || x >= f.w || y >= f.h {
		return
	}
	r, g, b, _ := c.RGBA()
	i := 3 * (y*f.w + x)
	f.pix[i] = uint8(r >> 8)
	f.pix[i+1] = uint8(g >> 8)
	f.pix[i+2] = uint8(b >> 8)
}

// SetRGB writes one pixel without going through color.Color.
func (f *FrameBuffer) SetRGB(x, y int, r, g, b uint8) {
	if x < 0 || y < 0 || x >= f.w || y >= f.h {
		return
	}
	i := 3 * (y*f.w + x)
	f.pix[i], f.pix[i+1], f.pix[i+2] = r, g, b
}

// rgb returns the channels of pixel index i (y*w+x). Callers guarantee
// the index; this sits on the encode hot path.
func (f *FrameBuffer) rgb(i int32) (r, g, b uint8) {
	o := 3 * i
	return f.pix[o], f.pix[o+1], f.pix[o+2]
}

// Clear blackens the canvas.
func (f *FrameBuffer) Clear() {
	for i := range f.pix {
		f.pix[i] = 0
	}
}

// Fill floods the canvas with one color.
func (f *FrameBuffer) Fill(r, g, b uint8) {
	for i := 0; i < len(f.pix); i += 3 {
		f.pix[i], f.pix[i+1], f.pix[i+2] = r, g, b
	}
}

// DrawPixels blits a w×h block of tightly packed raw pixels at (x, y),
// decoding them per format. The block clips against the canvas; data is
// always indexed with the caller's stride, so a clipped blit still reads
// the right source pixels.
func (f *FrameBuffer) DrawPixels(x, y, w, h int, data []byte, format PixelFormat, order ColorOrder, bigEndian bool) error {
	if w < 0 || h < 0 {
		return fmt.Errorf("hub75: negative blit size %dx%d", w, h)
	}

	bpp := 0
	switch format {
	case FormatRGB888:
		bpp = 3
	case FormatRGB888x32:
		bpp = 4
	case FormatRGB565:
		bpp = 2
	default:
		return fmt.Errorf("hub75: unknown pixel format %d", format)
	}
	if len(data) < w*h*bpp {
		return fmt.Errorf("hub75: pixel data %d bytes, need %d for %dx%d", len(data), w*h*bpp, w, h)
	}

	for dy := 0; dy < h; dy++ {
		py := y + dy
		if py < 0 || py >= f.h {
			continue
		}
		for dx := 0; dx < w; dx++ {
			px := x + dx
			if px < 0 || px >= f.w {
				continue
			}

			var r8, g8, b8 uint8
			p := data[(dy*w+dx)*bpp:]

			switch format {
			case FormatRGB888:
				r8, g8, b8 = p[0], p[1], p[2]

			case FormatRGB888x32:
				if order == OrderRGB {
					if bigEndian {
						// xRGB: [x][R][G][B]
						r8, g8, b8 = p[1], p[2], p[3]
					} else {
						// xRGB little endian lands as [B][G][R][x]
						r8, g8, b8 = p[2], p[1], p[0]
					}
				} else {
					if bigEndian {
						// xBGR: [x][B][G][R]
						r8, g8, b8 = p[3], p[2], p[1]
					} else {
						// xBGR little endian lands as [R][G][B][x]
						r8, g8, b8 = p[0], p[1], p[2]
					}
				}

			case FormatRGB565:
				var v uint16
				if bigEndian {
					v = uint16(p[0])<<8 | uint16(p[1])
				} else {
					v = uint16(p[1])<<8 | uint16(p[0])
				}
				r5 := (v >> 11) & 0x1F
				g6 := (v >> 5) & 0x3F
				b5 := v & 0x1F
				r8 = uint8((r5*527 + 23) >> 6)
				g8 = uint8((g6*259 + 33) >> 6)
				b8 = uint8((b5*527 + 23) >> 6)
			}

			i := 3 * (py*f.w + px)
			f.pix[i], f.pix[i+1], f.pix[i+2] = r8, g8, b8
		}
	}
	return nil
}

// bufferPair holds the engine's one or two canvases. With double
// buffering the writer draws into Back while the refresh loop reads
// Front; Swap records the request and the loop applies it at the next
// frame boundary, so a pass never mixes buffers. Single buffered, Front
// and Back are the same canvas and writers race the beam.
type bufferPair struct {
	bufs    [2]*FrameBuffer
	front   atomic.Uint32
	pending atomic.Bool
	double  bool
}

func newBufferPair(w, h int, double bool) *bufferPair {
	p := &bufferPair{double: double}
	p.bufs[0] = NewFrameBuffer(w, h)
	if double {
		p.bufs[1] = NewFrameBuffer(w, h)
	} else {
		p.bufs[1] = p.bufs[0]
	}
	return p
}

// Front is the canvas the refresh loop reads.
func (p *bufferPair) Front() *FrameBuffer { return p.bufs[p.front.Load()&1] }

// Back is the canvas writers draw into.
func (p *bufferPair) Back() *FrameBuffer {
	if !p.double {
		return p.bufs[0]
	}
	return p.bufs[1-p.front.Load()&1]
}

// Swap requests a front/back exchange. No-op when single buffered.
func (p *bufferPair) Swap() {
	if p.double {
		p.pending.Store(true)
	}
}

// applyPending flips the buffers if a swap is due. Refresh loop only,
// between frames.
func (p *bufferPair) applyPending() {
	if p.pending.CompareAndSwap(true, false) {
		p.front.Store(1 - p.front.Load()&1)
	}
}
