package imaging

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"
)

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return buf.Bytes()
}

func TestNormalizeDownscalesLargeImage(t *testing.T) {
	p := NewProcessor(Config{MaxSide: 512, MinSide: 64})

	out, err := p.Normalize(encodePNG(t, 1024, 768))
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if out.Width != 512 || out.Height != 384 {
		t.Fatalf("size = %dx%d, want 512x384", out.Width, out.Height)
	}
	if out.ContentType != "image/jpeg" {
		t.Fatalf("content type = %s", out.ContentType)
	}
	if _, _, err := image.Decode(bytes.NewReader(out.Data)); err != nil {
		t.Fatalf("output not decodable: %v", err)
	}
}

func TestNormalizeKeepsSmallImageSize(t *testing.T) {
	p := NewProcessor(Config{MaxSide: 1024, MinSide: 64})

	out, err := p.Normalize(encodePNG(t, 300, 200))
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if out.Width != 300 || out.Height != 200 {
		t.Fatalf("size = %dx%d, want 300x200", out.Width, out.Height)
	}
}

func TestNormalizeRejectsTinyImage(t *testing.T) {
	p := NewProcessor(Config{MinSide: 256})
	if _, err := p.Normalize(encodePNG(t, 100, 100)); err != ErrTooSmall {
		t.Fatalf("err = %v, want ErrTooSmall", err)
	}
}

func TestNormalizeRejectsGarbage(t *testing.T) {
	p := NewProcessor(DefaultConfig())
	if _, err := p.Normalize([]byte("not an image")); err != ErrUnsupported {
		t.Fatalf("err = %v, want ErrUnsupported", err)
	}
}
