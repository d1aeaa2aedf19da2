package raster

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"math"
	"testing"
)

// opaqueWrapper hides the concrete type so FromImage takes the generic path.
type opaqueWrapper struct {
	image.Image
}

func TestFromImageAlphaOverWhite(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 3, 1))
	src.SetNRGBA(0, 0, color.NRGBA{R: 10, G: 20, B: 30, A: 255})
	src.SetNRGBA(1, 0, color.NRGBA{A: 0})
	src.SetNRGBA(2, 0, color.NRGBA{R: 0, G: 0, B: 0, A: 128})

	m := FromImage(src)
	if m.Width != 3 || m.Height != 1 {
		t.Fatalf("unexpected dimensions %dx%d", m.Width, m.Height)
	}

	if r, g, b := m.At(0, 0); r != 10 || g != 20 || b != 30 {
		t.Fatalf("opaque pixel altered: got (%d,%d,%d)", r, g, b)
	}
	if r, g, b := m.At(1, 0); r != 255 || g != 255 || b != 255 {
		t.Fatalf("transparent pixel should be white: got (%d,%d,%d)", r, g, b)
	}
	if r, g, b := m.At(2, 0); r != 127 || g != 127 || b != 127 {
		t.Fatalf("half-alpha black should blend to 127: got (%d,%d,%d)", r, g, b)
	}
}

func TestFromImageGenericPathMatchesFastPath(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 4, 2))
	src.SetNRGBA(0, 0, color.NRGBA{R: 200, G: 100, B: 50, A: 255})
	src.SetNRGBA(1, 0, color.NRGBA{A: 0})
	src.SetNRGBA(2, 0, color.NRGBA{R: 0, G: 0, B: 0, A: 128})
	src.SetNRGBA(3, 1, color.NRGBA{R: 255, G: 255, B: 0, A: 255})

	fast := FromImage(src)
	generic := FromImage(opaqueWrapper{src})
	if !bytes.Equal(fast.Pix, generic.Pix) {
		t.Fatal("generic conversion diverges from the NRGBA fast path")
	}
}

func TestFromImageNonZeroOrigin(t *testing.T) {
	src := image.NewNRGBA(image.Rect(5, 7, 8, 9))
	src.SetNRGBA(5, 7, color.NRGBA{R: 1, G: 2, B: 3, A: 255})
	src.SetNRGBA(7, 8, color.NRGBA{R: 9, G: 8, B: 7, A: 255})

	m := FromImage(src)
	if m.Width != 3 || m.Height != 2 {
		t.Fatalf("unexpected dimensions %dx%d", m.Width, m.Height)
	}
	if r, g, b := m.At(0, 0); r != 1 || g != 2 || b != 3 {
		t.Fatalf("origin pixel misplaced: got (%d,%d,%d)", r, g, b)
	}
	if r, g, b := m.At(2, 1); r != 9 || g != 8 || b != 7 {
		t.Fatalf("offset pixel misplaced: got (%d,%d,%d)", r, g, b)
	}
}

func TestDecodePNGRoundTrip(t *testing.T) {
	m := NewImage(5, 4)
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			m.Set(x, y, uint8(x*40), uint8(y*60), uint8(x*y*10))
		}
	}

	data, err := EncodePNG(m)
	if err != nil {
		t.Fatal(err)
	}
	back, err := DecodeBytes(data)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(m.Pix, back.Pix) {
		t.Fatal("png round trip changed pixel data")
	}
}

func TestEncodeJPEGFlatImageNearIdentity(t *testing.T) {
	m := NewImage(16, 16)
	for i := range m.Pix {
		m.Pix[i] = 128
	}

	data, err := EncodeJPEG(m, 95)
	if err != nil {
		t.Fatal(err)
	}
	back, err := DecodeBytes(data)
	if err != nil {
		t.Fatal(err)
	}
	if back.Width != 16 || back.Height != 16 {
		t.Fatalf("unexpected dimensions %dx%d", back.Width, back.Height)
	}
	for i := range back.Pix {
		diff := int(back.Pix[i]) - 128
		if diff < -2 || diff > 2 {
			t.Fatalf("flat gray drifted by %d at byte %d", diff, i)
		}
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	if _, err := DecodeBytes([]byte("not an image")); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestLuminance(t *testing.T) {
	m := NewImage(3, 1)
	m.Set(0, 0, 255, 255, 255)
	m.Set(1, 0, 0, 255, 0)
	m.Set(2, 0, 0, 0, 0)

	tests := []struct {
		x    int
		want float64
	}{
		{0, 255},
		{1, 0.587 * 255},
		{2, 0},
	}
	for _, tt := range tests {
		if got := m.Luminance(tt.x, 0); math.Abs(got-tt.want) > 1e-9 {
			t.Fatalf("luminance at x=%d: got %f, want %f", tt.x, got, tt.want)
		}
	}
}

func TestCloneIsIndependent(t *testing.T) {
	m := NewImage(2, 2)
	m.Set(0, 0, 50, 60, 70)

	c := m.Clone()
	c.Set(0, 0, 1, 2, 3)

	if r, g, b := m.At(0, 0); r != 50 || g != 60 || b != 70 {
		t.Fatalf("clone mutation leaked into original: (%d,%d,%d)", r, g, b)
	}
}

func TestNRGBAFullAlpha(t *testing.T) {
	m := NewImage(2, 1)
	m.Set(0, 0, 11, 22, 33)
	m.Set(1, 0, 44, 55, 66)

	out := m.NRGBA()
	if got := out.NRGBAAt(1, 0); got != (color.NRGBA{R: 44, G: 55, B: 66, A: 255}) {
		t.Fatalf("unexpected pixel %+v", got)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, out); err != nil {
		t.Fatal(err)
	}
}
