package imageloader

import (
	"bytes"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"testing"
	"time"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"

	"github.com/jo-hoe/gopicker/internal/picker"
)

func solidImage(width, height int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func encodeWith(t *testing.T, encode func(*bytes.Buffer, image.Image) error) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := encode(&buf, solidImage(8, 4, color.RGBA{255, 0, 0, 255})); err != nil {
		t.Fatalf("failed to encode test image: %v", err)
	}
	return buf.Bytes()
}

func TestLoader_Load_RasterFormats(t *testing.T) {
	tests := []struct {
		name     string
		encode   func(*bytes.Buffer, image.Image) error
		wantMIME string
		same     bool
	}{
		{"png", func(b *bytes.Buffer, i image.Image) error { return png.Encode(b, i) }, "image/png", true},
		{"jpeg", func(b *bytes.Buffer, i image.Image) error { return jpeg.Encode(b, i, nil) }, "image/jpeg", true},
		{"gif", func(b *bytes.Buffer, i image.Image) error { return gif.Encode(b, i, nil) }, "image/gif", true},
		{"bmp", func(b *bytes.Buffer, i image.Image) error { return bmp.Encode(b, i) }, "image/bmp", true},
		{"tiff", func(b *bytes.Buffer, i image.Image) error { return tiff.Encode(b, i, nil) }, "image/png", false},
	}

	loader := NewLoader(0, 0, 0, 0)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := encodeWith(t, tt.encode)
			res, err := loader.Load(data)
			if err != nil {
				t.Fatalf("Load error: %v", err)
			}
			if res.MIMEType != tt.wantMIME {
				t.Errorf("MIMEType: got %s, want %s", res.MIMEType, tt.wantMIME)
			}
			if tt.same != bytes.Equal(res.Data, data) {
				t.Errorf("expected bytes passed through = %v", tt.same)
			}

			img, err := Decode(res)
			if err != nil {
				t.Fatalf("Decode error: %v", err)
			}
			if img.Bounds().Dx() != 8 || img.Bounds().Dy() != 4 {
				t.Errorf("unexpected bounds %v", img.Bounds())
			}
		})
	}
}

func TestLoader_Load_Errors(t *testing.T) {
	loader := NewLoader(16, 0, 0, 0)

	if _, err := loader.Load(nil); !errors.Is(err, ErrEmptyImage) {
		t.Errorf("expected ErrEmptyImage, got %v", err)
	}
	if _, err := loader.Load(bytes.Repeat([]byte{1}, 17)); !errors.Is(err, ErrImageTooLarge) {
		t.Errorf("expected ErrImageTooLarge, got %v", err)
	}
	if _, err := loader.Load([]byte("garbage")); !errors.Is(err, ErrUndecodableImage) {
		t.Errorf("expected ErrUndecodableImage, got %v", err)
	}
}

// pngChunk frames data as a PNG chunk with length and CRC
func pngChunk(kind string, data []byte) []byte {
	var buf bytes.Buffer
	_ = binary.Write(&buf, binary.BigEndian, uint32(len(data)))
	buf.WriteString(kind)
	buf.Write(data)
	_ = binary.Write(&buf, binary.BigEndian, crc32.ChecksumIEEE(append([]byte(kind), data...)))
	return buf.Bytes()
}

// pngHeaderOnly declares an RGBA image of the given size without any pixel data
func pngHeaderOnly(width, height uint32) []byte {
	ihdr := make([]byte, 13)
	binary.BigEndian.PutUint32(ihdr[0:4], width)
	binary.BigEndian.PutUint32(ihdr[4:8], height)
	ihdr[8] = 8 // bit depth
	ihdr[9] = 6 // RGBA

	data := []byte("\x89PNG\r\n\x1a\n")
	data = append(data, pngChunk("IHDR", ihdr)...)
	return append(data, pngChunk("IEND", nil)...)
}

func TestLoader_Load_PixelLimit(t *testing.T) {
	t.Run("small file declaring huge dimensions", func(t *testing.T) {
		data := pngHeaderOnly(40000, 40000)
		loader := NewLoader(1<<20, 40_000_000, 0, 0)
		if _, err := loader.Load(data); !errors.Is(err, ErrImageTooLarge) {
			t.Fatalf("expected ErrImageTooLarge for a %d byte upload, got %v", len(data), err)
		}
	})

	t.Run("boundary", func(t *testing.T) {
		data := encodeWith(t, func(b *bytes.Buffer, i image.Image) error { return png.Encode(b, i) })
		if _, err := NewLoader(0, 31, 0, 0).Load(data); !errors.Is(err, ErrImageTooLarge) {
			t.Errorf("expected 8x4 image to exceed 31 pixels, got %v", err)
		}
		if _, err := NewLoader(0, 32, 0, 0).Load(data); err != nil {
			t.Errorf("expected 8x4 image to fit 32 pixels, got %v", err)
		}
	})

	t.Run("svg", func(t *testing.T) {
		svg := []byte(`<svg xmlns="http://www.w3.org/2000/svg" width="5000" height="5000"></svg>`)
		if _, err := NewLoader(0, 1_000_000, 0, 0).Load(svg); !errors.Is(err, ErrImageTooLarge) {
			t.Errorf("expected ErrImageTooLarge, got %v", err)
		}
	})
}

func TestLoader_Load_RasterMentioningSVGNamespace(t *testing.T) {
	plain := encodeWith(t, func(b *bytes.Buffer, i image.Image) error { return png.Encode(b, i) })
	text := pngChunk("tEXt", []byte("XML:com.adobe.xmp\x00<x:xmpmeta><svg xmlns=\"http://www.w3.org/2000/svg\"/></x:xmpmeta>"))

	// signature (8) + IHDR chunk (25)
	data := append([]byte{}, plain[:33]...)
	data = append(data, text...)
	data = append(data, plain[33:]...)

	res, err := NewLoader(0, 0, 0, 0).Load(data)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if res.MIMEType != "image/png" || !bytes.Equal(res.Data, data) {
		t.Errorf("expected the PNG to pass through, got %s", res.MIMEType)
	}
	if _, err := Decode(res); err != nil {
		t.Errorf("Decode error: %v", err)
	}
}

func TestLoader_Load_SVG(t *testing.T) {
	svg := []byte(`<svg xmlns="http://www.w3.org/2000/svg" width="20px" height="10"><rect x="0" y="0" width="20" height="10" fill="#ff0000"/></svg>`)

	res, err := NewLoader(0, 0, 0, 0).Load(svg)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if res.MIMEType != "image/png" {
		t.Fatalf("expected rasterised PNG, got %s", res.MIMEType)
	}
	img, err := png.Decode(bytes.NewReader(res.Data))
	if err != nil {
		t.Fatalf("png.Decode error: %v", err)
	}
	if img.Bounds().Dx() != 20 || img.Bounds().Dy() != 10 {
		t.Fatalf("unexpected size %v", img.Bounds())
	}
	r, g, b, _ := img.At(10, 5).RGBA()
	if r>>8 < 200 || g>>8 > 50 || b>>8 > 50 {
		t.Errorf("expected red centre pixel, got (%d,%d,%d)", r>>8, g>>8, b>>8)
	}
}

func TestLoader_Load_SVGFallbackSize(t *testing.T) {
	svg := []byte(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 10 10"><circle cx="5" cy="5" r="4" stroke-width="1"/></svg>`)

	if _, err := NewLoader(0, 0, 0, 0).Load(svg); !errors.Is(err, ErrUndecodableImage) {
		t.Fatalf("expected ErrUndecodableImage without fallback size, got %v", err)
	}

	res, err := NewLoader(0, 0, 32, 16).Load(svg)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	cfg, err := png.DecodeConfig(bytes.NewReader(res.Data))
	if err != nil {
		t.Fatalf("png.DecodeConfig error: %v", err)
	}
	if cfg.Width != 32 || cfg.Height != 16 {
		t.Errorf("expected fallback size 32x16, got %dx%d", cfg.Width, cfg.Height)
	}
}

func TestParseSvgExplicitSize(t *testing.T) {
	tests := []struct {
		name   string
		svg    string
		w, h   int
		wantOk bool
	}{
		{"double quotes", `<svg width="100" height="50">`, 100, 50, true},
		{"single quotes with units", `<svg width='64px' height='32px'>`, 64, 32, true},
		{"spaces around equals", `<svg width = "7" height = "9">`, 7, 9, true},
		{"only stroke-width", `<svg stroke-width="3" height="9">`, 0, 0, false},
		{"viewBox only", `<svg viewBox="0 0 10 10">`, 0, 0, false},
		{"zero width", `<svg width="0" height="10">`, 0, 0, false},
		{"no svg tag", `<html></html>`, 0, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, h, ok := parseSvgExplicitSize([]byte(tt.svg))
			if ok != tt.wantOk || w != tt.w || h != tt.h {
				t.Errorf("got (%d,%d,%v), want (%d,%d,%v)", w, h, ok, tt.w, tt.h, tt.wantOk)
			}
		})
	}
}

func TestDecode_Invalid(t *testing.T) {
	_, err := Decode(picker.ImageResource{MIMEType: "image/png", Data: []byte("nope")})
	if !errors.Is(err, ErrUndecodableImage) {
		t.Errorf("expected ErrUndecodableImage, got %v", err)
	}
}

func TestImageCache(t *testing.T) {
	cache := NewImageCache()
	if _, ok := cache.Get("a"); ok {
		t.Fatal("expected miss on empty cache")
	}

	img := solidImage(1, 1, color.Black)
	cache.Put("a", img)
	got, ok := cache.Get("a")
	if !ok || got != img {
		t.Fatalf("expected cached image, got %v %v", got, ok)
	}
	if cache.Len() != 1 {
		t.Errorf("expected len 1, got %d", cache.Len())
	}

	cache.Evict("a")
	if _, ok := cache.Get("a"); ok {
		t.Error("expected miss after Evict")
	}
}

func TestImageCache_EvictOlderThan(t *testing.T) {
	cache := NewImageCache()
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return now }

	cache.Put("old", solidImage(1, 1, color.Black))
	now = now.Add(time.Hour)
	cache.Put("fresh", solidImage(1, 1, color.White))

	if n := cache.EvictOlderThan(now.Add(-time.Minute)); n != 1 {
		t.Fatalf("expected 1 eviction, got %d", n)
	}
	if _, ok := cache.Get("old"); ok {
		t.Error("expected old entry to be evicted")
	}
	if _, ok := cache.Get("fresh"); !ok {
		t.Error("expected fresh entry to remain")
	}
}
