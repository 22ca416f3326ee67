// Package raster provides Buffer, an owned 2D grid of B,G,R[,A] byte pixels
// with a row stride.
//
// Two access paths are offered over the same storage: Pixel/SetPixel for
// bounds-checked per-pixel work, and Row for hot loops that process one
// scanline at a time. Rows returned by Row never alias each other, so
// different rows may be written concurrently without locking.
package raster

import (
	"github.com/pkg/errors"

	"rasterkit/internal/colormodel"
)

// Supported pixel sizes.
const (
	BGR  = 3
	BGRA = 4
)

// rowAlignment matches the 4-byte scanline alignment used by common bitmap layouts.
const rowAlignment = 4

// Buffer is a mutable raster owned by a single caller at a time.
type Buffer struct {
	data          []byte
	width         int
	height        int
	stride        int
	bytesPerPixel int
}

// Point is a pixel coordinate.
type Point struct {
	X, Y int
}

// Rect is a pixel region; the max corner is exclusive.
type Rect struct {
	Min, Max Point
}

func (r Rect) Dx() int { return r.Max.X - r.Min.X }
func (r Rect) Dy() int { return r.Max.Y - r.Min.Y }

// New allocates a zeroed buffer with 4-byte aligned rows.
func New(width, height, bytesPerPixel int) (*Buffer, error) {
	if err := ValidateDimensions(width, height, "New"); err != nil {
		return nil, err
	}
	if err := validateBytesPerPixel(bytesPerPixel); err != nil {
		return nil, err
	}

	rowBytes := width * bytesPerPixel
	stride := (rowBytes + rowAlignment - 1) / rowAlignment * rowAlignment

	return &Buffer{
		data:          make([]byte, stride*height),
		width:         width,
		height:        height,
		stride:        stride,
		bytesPerPixel: bytesPerPixel,
	}, nil
}

// NewFilled allocates a buffer with every pixel set to c.
func NewFilled(width, height, bytesPerPixel int, c colormodel.Color) (*Buffer, error) {
	buf, err := New(width, height, bytesPerPixel)
	if err != nil {
		return nil, err
	}
	buf.Fill(c)
	return buf, nil
}

// NewBlank returns a white canvas.
func NewBlank(width, height int) (*Buffer, error) {
	return NewFilled(width, height, BGRA, colormodel.White)
}

// FromBytes copies raw scanline data into a new buffer. data must hold at
// least stride*height bytes and stride must cover width*bytesPerPixel.
func FromBytes(data []byte, width, height, stride, bytesPerPixel int) (*Buffer, error) {
	if err := ValidateDimensions(width, height, "FromBytes"); err != nil {
		return nil, err
	}
	if err := validateBytesPerPixel(bytesPerPixel); err != nil {
		return nil, err
	}
	if stride < width*bytesPerPixel {
		return nil, errors.Wrapf(ErrInvalidDimension, "stride %d shorter than row of %d bytes", stride, width*bytesPerPixel)
	}
	if len(data) < stride*height {
		return nil, errors.Wrapf(ErrInvalidDimension, "got %d bytes, need %d for %dx%d stride %d",
			len(data), stride*height, width, height, stride)
	}

	owned := make([]byte, stride*height)
	copy(owned, data)

	return &Buffer{
		data:          owned,
		width:         width,
		height:        height,
		stride:        stride,
		bytesPerPixel: bytesPerPixel,
	}, nil
}

func (b *Buffer) Width() int         { return b.width }
func (b *Buffer) Height() int        { return b.height }
func (b *Buffer) Stride() int        { return b.stride }
func (b *Buffer) BytesPerPixel() int { return b.bytesPerPixel }

// HasAlpha reports whether pixels carry a fourth alpha byte.
func (b *Buffer) HasAlpha() bool {
	return b.bytesPerPixel == BGRA
}

func (b *Buffer) Bounds() Rect {
	return Rect{Max: Point{X: b.width, Y: b.height}}
}

// PixelCount returns width*height.
func (b *Buffer) PixelCount() int {
	return b.width * b.height
}

// Clone returns a deep copy sharing no storage with b.
func (b *Buffer) Clone() *Buffer {
	data := make([]byte, len(b.data))
	copy(data, b.data)
	return &Buffer{
		data:          data,
		width:         b.width,
		height:        b.height,
		stride:        b.stride,
		bytesPerPixel: b.bytesPerPixel,
	}
}

// InBounds reports whether (x, y) addresses a pixel of the buffer.
func (b *Buffer) InBounds(x, y int) bool {
	return x >= 0 && x < b.width && y >= 0 && y < b.height
}

// Pixel returns the colour at (x, y).
func (b *Buffer) Pixel(x, y int) (colormodel.Color, error) {
	if !b.InBounds(x, y) {
		return colormodel.Color{}, b.outOfBounds(x, y)
	}
	off := b.offset(x, y)
	return colormodel.Color{R: b.data[off+2], G: b.data[off+1], B: b.data[off]}, nil
}

// SetPixel writes the colour at (x, y). Alpha, when present, is set opaque.
func (b *Buffer) SetPixel(x, y int, c colormodel.Color) error {
	if !b.InBounds(x, y) {
		return b.outOfBounds(x, y)
	}
	off := b.offset(x, y)
	b.data[off] = c.B
	b.data[off+1] = c.G
	b.data[off+2] = c.R
	if b.bytesPerPixel == BGRA {
		b.data[off+3] = 255
	}
	return nil
}

// Row returns the pixel bytes of scanline y, excluding stride padding. The
// slice capacity ends at the row, so appending to it reallocates instead of
// overwriting the next scanline. Returns nil for y outside the buffer.
func (b *Buffer) Row(y int) []byte {
	if y < 0 || y >= b.height {
		return nil
	}
	start := y * b.stride
	end := start + b.width*b.bytesPerPixel
	return b.data[start:end:end]
}

// Bytes exposes the full backing storage including padding. Intended for
// adapters that hand the buffer to another pixel container.
func (b *Buffer) Bytes() []byte {
	return b.data
}

// Fill sets every pixel to c.
func (b *Buffer) Fill(c colormodel.Color) {
	bpp := b.bytesPerPixel
	for y := 0; y < b.height; y++ {
		row := b.Row(y)
		for x := 0; x < len(row); x += bpp {
			row[x] = c.B
			row[x+1] = c.G
			row[x+2] = c.R
			if bpp == BGRA {
				row[x+3] = 255
			}
		}
	}
}

// Equal reports whether both buffers have the same geometry and pixel
// bytes. Stride padding is not compared.
func (b *Buffer) Equal(other *Buffer) bool {
	if other == nil || b.width != other.width || b.height != other.height || b.bytesPerPixel != other.bytesPerPixel {
		return false
	}
	for y := 0; y < b.height; y++ {
		if string(b.Row(y)) != string(other.Row(y)) {
			return false
		}
	}
	return true
}

func (b *Buffer) offset(x, y int) int {
	return y*b.stride + x*b.bytesPerPixel
}

func (b *Buffer) outOfBounds(x, y int) error {
	return errors.Wrapf(ErrOutOfBounds, "coordinates (%d,%d) for size %dx%d", x, y, b.width, b.height)
}

func validateBytesPerPixel(bytesPerPixel int) error {
	if bytesPerPixel != BGR && bytesPerPixel != BGRA {
		return errors.Wrapf(ErrInvalidArgument, "unsupported bytes per pixel %d", bytesPerPixel)
	}
	return nil
}
