package testsupport

import (
	"testing"

	"argus/internal/raster"
)

// SolidImage returns a raster filled with a single color.
func SolidImage(width, height int, r, g, b uint8) *raster.Image {
	img := raster.NewImage(width, height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, r, g, b)
		}
	}
	return img
}

// NoiseImage returns a raster filled with deterministic pseudo-random pixels.
func NoiseImage(width, height int, seed uint32) *raster.Image {
	img := raster.NewImage(width, height)
	state := seed
	for i := range img.Pix {
		state = state*1664525 + 1013904223
		img.Pix[i] = uint8(state >> 24)
	}
	return img
}

// SolidPNG returns the PNG encoding of a single-color image.
func SolidPNG(t testing.TB, width, height int, r, g, b uint8) []byte {
	t.Helper()

	data, err := raster.EncodePNG(SolidImage(width, height, r, g, b))
	if err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return data
}

// NoisePNG returns the PNG encoding of a deterministic pseudo-random image.
func NoisePNG(t testing.TB, width, height int, seed uint32) []byte {
	t.Helper()

	data, err := raster.EncodePNG(NoiseImage(width, height, seed))
	if err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return data
}
