package imageloader

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/png"
	"log/slog"

	_ "image/gif"
	_ "image/jpeg"

	"github.com/disintegration/imaging"
	"github.com/jo-hoe/gopicker/internal/picker"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

var (
	ErrEmptyImage       = errors.New("empty image upload")
	ErrImageTooLarge    = errors.New("image upload too large")
	ErrUndecodableImage = errors.New("undecodable image")
)

// browserFormats are passed through untouched; any other decodable format is re-encoded as PNG
var browserFormats = map[string]string{
	"png":  "image/png",
	"jpeg": "image/jpeg",
	"gif":  "image/gif",
	"webp": "image/webp",
	"bmp":  "image/bmp",
}

// Loader turns uploaded bytes into a displayable image resource
type Loader struct {
	maxBytes          int64
	maxPixels         int64
	svgFallbackWidth  int
	svgFallbackHeight int
}

// NewLoader creates a loader. maxBytes <= 0 and maxPixels <= 0 disable the
// respective limit; the SVG fallback size is used only for SVGs without
// explicit width and height.
func NewLoader(maxBytes, maxPixels int64, svgFallbackWidth, svgFallbackHeight int) *Loader {
	return &Loader{
		maxBytes:          maxBytes,
		maxPixels:         maxPixels,
		svgFallbackWidth:  svgFallbackWidth,
		svgFallbackHeight: svgFallbackHeight,
	}
}

// Load validates an upload and returns it as an image resource
func (l *Loader) Load(data []byte) (picker.ImageResource, error) {
	slog.Debug("Loader: start", "input_size_bytes", len(data))

	if len(data) == 0 {
		return picker.ImageResource{}, ErrEmptyImage
	}
	if l.maxBytes > 0 && int64(len(data)) > l.maxBytes {
		return picker.ImageResource{}, fmt.Errorf("%w: %d bytes exceeds limit of %d", ErrImageTooLarge, len(data), l.maxBytes)
	}

	// raster formats first, so metadata mentioning the SVG namespace does not
	// divert a JPEG or PNG
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		if isSVGData(data) {
			return l.loadSVG(data)
		}
		slog.Debug("Loader: failed to decode image header", "error", err)
		return picker.ImageResource{}, fmt.Errorf("%w: %w", ErrUndecodableImage, err)
	}
	slog.Debug("Loader: detected raster image",
		"format", format,
		"width", cfg.Width,
		"height", cfg.Height)

	// decoding allocates the full pixel buffer up front, whatever the file size
	if err := l.checkPixels(cfg.Width, cfg.Height); err != nil {
		return picker.ImageResource{}, err
	}

	if mime, ok := browserFormats[format]; ok {
		return picker.ImageResource{MIMEType: mime, Data: data}, nil
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return picker.ImageResource{}, fmt.Errorf("%w: %w", ErrUndecodableImage, err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return picker.ImageResource{}, fmt.Errorf("failed to encode image to PNG: %w", err)
	}
	slog.Debug("Loader: re-encoded image as PNG", "format", format, "output_size_bytes", buf.Len())
	return picker.ImageResource{MIMEType: "image/png", Data: buf.Bytes()}, nil
}

// Decode returns the pixels of a resource as a browser would show them,
// with EXIF orientation applied.
func Decode(res picker.ImageResource) (image.Image, error) {
	img, err := imaging.Decode(bytes.NewReader(res.Data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUndecodableImage, err)
	}
	return img, nil
}

func (l *Loader) loadSVG(data []byte) (picker.ImageResource, error) {
	w, h, err := l.svgSize(data)
	if err != nil {
		return picker.ImageResource{}, fmt.Errorf("%w: %w", ErrUndecodableImage, err)
	}
	if err := l.checkPixels(w, h); err != nil {
		return picker.ImageResource{}, err
	}
	out, err := renderSVGToPNG(data, w, h)
	if err != nil {
		return picker.ImageResource{}, fmt.Errorf("%w: %w", ErrUndecodableImage, err)
	}
	return picker.ImageResource{MIMEType: "image/png", Data: out}, nil
}

func (l *Loader) svgSize(data []byte) (int, int, error) {
	if w, h, ok := parseSvgExplicitSize(data); ok {
		slog.Debug("Loader: SVG has explicit size", "width", w, "height", h)
		return w, h, nil
	}

	if l.svgFallbackWidth <= 0 || l.svgFallbackHeight <= 0 {
		return 0, 0, fmt.Errorf("SVG fallback size not set; cannot render SVG without explicit size")
	}
	slog.Debug("Loader: SVG lacks explicit size; using fallback",
		"width", l.svgFallbackWidth, "height", l.svgFallbackHeight)
	return l.svgFallbackWidth, l.svgFallbackHeight, nil
}

func (l *Loader) checkPixels(width, height int) error {
	if l.maxPixels <= 0 {
		return nil
	}
	if pixels := int64(width) * int64(height); pixels > l.maxPixels {
		return fmt.Errorf("%w: %dx%d exceeds limit of %d pixels", ErrImageTooLarge, width, height, l.maxPixels)
	}
	return nil
}
