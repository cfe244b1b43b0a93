package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"

	"github.com/disintegration/imaging"
)

var (
	ErrTooSmall    = errors.New("image is below the minimum resolution")
	ErrUnsupported = errors.New("unsupported image format")
)

// Config for source image normalisation
type Config struct {
	MaxSide int // longest side after resizing (default 1024)
	MinSide int // shortest accepted side (default 256)
	Quality int // JPEG quality 1-100 (default 90)
}

// DefaultConfig returns default processing config
func DefaultConfig() Config {
	return Config{
		MaxSide: 1024,
		MinSide: 256,
		Quality: 90,
	}
}

// Normalized is a source photo ready to be sent to a generation model.
type Normalized struct {
	Data        []byte
	ContentType string
	Width       int
	Height      int
}

// Processor prepares user photos for generation requests
type Processor struct {
	config Config
}

// NewProcessor creates image processor
func NewProcessor(config Config) *Processor {
	def := DefaultConfig()
	if config.MaxSide <= 0 {
		config.MaxSide = def.MaxSide
	}
	if config.MinSide <= 0 {
		config.MinSide = def.MinSide
	}
	if config.Quality <= 0 || config.Quality > 100 {
		config.Quality = def.Quality
	}
	return &Processor{config: config}
}

// Normalize decodes data, applies EXIF orientation, fits it inside MaxSide
// and re-encodes it as JPEG.
func (p *Processor) Normalize(data []byte) (*Normalized, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		if errors.Is(err, image.ErrFormat) {
			return nil, ErrUnsupported
		}
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	b := img.Bounds()
	if b.Dx() < p.config.MinSide || b.Dy() < p.config.MinSide {
		return nil, ErrTooSmall
	}

	if b.Dx() > p.config.MaxSide || b.Dy() > p.config.MaxSide {
		img = imaging.Fit(img, p.config.MaxSide, p.config.MaxSide, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: p.config.Quality}); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}

	out := img.Bounds()
	return &Normalized{
		Data:        buf.Bytes(),
		ContentType: "image/jpeg",
		Width:       out.Dx(),
		Height:      out.Dy(),
	}, nil
}
