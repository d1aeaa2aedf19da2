package raster

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"

	_ "image/gif"
)

// Image is a tightly packed opaque RGB raster. Pix holds 3 bytes per pixel
// in row-major order; PixOffset maps coordinates into it for hot loops that
// bypass the accessor methods.
type Image struct {
	Width  int
	Height int
	Pix    []uint8
}

// NewImage allocates an all-black image of the given dimensions.
func NewImage(width, height int) *Image {
	return &Image{
		Width:  width,
		Height: height,
		Pix:    make([]uint8, width*height*3),
	}
}

// PixOffset returns the index of the first channel byte of (x, y).
func (m *Image) PixOffset(x, y int) int {
	return (y*m.Width + x) * 3
}

// At returns the channel values at (x, y).
func (m *Image) At(x, y int) (r, g, b uint8) {
	i := m.PixOffset(x, y)
	return m.Pix[i], m.Pix[i+1], m.Pix[i+2]
}

// Set writes the channel values at (x, y).
func (m *Image) Set(x, y int, r, g, b uint8) {
	i := m.PixOffset(x, y)
	m.Pix[i] = r
	m.Pix[i+1] = g
	m.Pix[i+2] = b
}

// Luminance returns the Rec. 601 luma of the pixel at (x, y).
func (m *Image) Luminance(x, y int) float64 {
	i := m.PixOffset(x, y)
	return 0.299*float64(m.Pix[i]) + 0.587*float64(m.Pix[i+1]) + 0.114*float64(m.Pix[i+2])
}

// Clone returns an independent copy of the image.
func (m *Image) Clone() *Image {
	out := &Image{
		Width:  m.Width,
		Height: m.Height,
		Pix:    make([]uint8, len(m.Pix)),
	}
	copy(out.Pix, m.Pix)
	return out
}

// NRGBA returns a standard-library copy of the image with full alpha.
func (m *Image) NRGBA() *image.NRGBA {
	out := image.NewNRGBA(image.Rect(0, 0, m.Width, m.Height))
	si := 0
	for di := 0; di < len(out.Pix); di += 4 {
		out.Pix[di] = m.Pix[si]
		out.Pix[di+1] = m.Pix[si+1]
		out.Pix[di+2] = m.Pix[si+2]
		out.Pix[di+3] = 0xff
		si += 3
	}
	return out
}

// Decode reads a JPEG, PNG, or GIF stream into an Image.
func Decode(r io.Reader) (*Image, error) {
	src, format, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	m := FromImage(src)
	if m.Width == 0 || m.Height == 0 {
		return nil, fmt.Errorf("decode image: %s image has no pixels", format)
	}
	return m, nil
}

// DecodeBytes decodes an in-memory encoded image.
func DecodeBytes(data []byte) (*Image, error) {
	return Decode(bytes.NewReader(data))
}

// FromImage converts any image to the packed RGB form, compositing partial
// or full transparency over opaque white.
func FromImage(src image.Image) *Image {
	b := src.Bounds()
	m := NewImage(b.Dx(), b.Dy())

	switch src := src.(type) {
	case *image.NRGBA:
		for y := 0; y < m.Height; y++ {
			si := src.PixOffset(b.Min.X, b.Min.Y+y)
			di := m.PixOffset(0, y)
			for x := 0; x < m.Width; x++ {
				r, g, bl, a := src.Pix[si], src.Pix[si+1], src.Pix[si+2], src.Pix[si+3]
				switch a {
				case 0xff:
					m.Pix[di], m.Pix[di+1], m.Pix[di+2] = r, g, bl
				case 0:
					m.Pix[di], m.Pix[di+1], m.Pix[di+2] = 0xff, 0xff, 0xff
				default:
					m.Pix[di] = overWhite(r, a)
					m.Pix[di+1] = overWhite(g, a)
					m.Pix[di+2] = overWhite(bl, a)
				}
				si += 4
				di += 3
			}
		}
	case *image.RGBA:
		for y := 0; y < m.Height; y++ {
			si := src.PixOffset(b.Min.X, b.Min.Y+y)
			di := m.PixOffset(0, y)
			for x := 0; x < m.Width; x++ {
				// Premultiplied channels never exceed alpha, so adding the
				// white remainder cannot overflow.
				a := src.Pix[si+3]
				m.Pix[di] = src.Pix[si] + (0xff - a)
				m.Pix[di+1] = src.Pix[si+1] + (0xff - a)
				m.Pix[di+2] = src.Pix[si+2] + (0xff - a)
				si += 4
				di += 3
			}
		}
	case *image.YCbCr:
		for y := 0; y < m.Height; y++ {
			di := m.PixOffset(0, y)
			for x := 0; x < m.Width; x++ {
				c := src.YCbCrAt(b.Min.X+x, b.Min.Y+y)
				r, g, bl := color.YCbCrToRGB(c.Y, c.Cb, c.Cr)
				m.Pix[di], m.Pix[di+1], m.Pix[di+2] = r, g, bl
				di += 3
			}
		}
	case *image.Gray:
		for y := 0; y < m.Height; y++ {
			si := src.PixOffset(b.Min.X, b.Min.Y+y)
			di := m.PixOffset(0, y)
			for x := 0; x < m.Width; x++ {
				v := src.Pix[si]
				m.Pix[di], m.Pix[di+1], m.Pix[di+2] = v, v, v
				si++
				di += 3
			}
		}
	default:
		for y := 0; y < m.Height; y++ {
			di := m.PixOffset(0, y)
			for x := 0; x < m.Width; x++ {
				r, g, bl, a := src.At(b.Min.X+x, b.Min.Y+y).RGBA()
				white := 0xffff - a
				m.Pix[di] = uint8((r + white) >> 8)
				m.Pix[di+1] = uint8((g + white) >> 8)
				m.Pix[di+2] = uint8((bl + white) >> 8)
				di += 3
			}
		}
	}
	return m
}

// overWhite composites a straight-alpha channel value over white.
func overWhite(c, a uint8) uint8 {
	return uint8((uint32(c)*uint32(a) + 0xff*uint32(0xff-a)) / 0xff)
}

// EncodePNG serializes the image as PNG.
func EncodePNG(m *Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, m.NRGBA()); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// EncodeJPEG serializes the image as JPEG at the given quality (1-100).
func EncodeJPEG(m *Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, m.NRGBA(), &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}
