package imageloader

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"strings"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
)

const (
	svgSniffLimit = 4096
	svgTagLimit   = 8192
	svgNamespace  = "http://www.w3.org/2000/svg"
)

// isSVGData looks for an <svg> tag or the SVG namespace near the start of data
func isSVGData(data []byte) bool {
	head := bytes.ToLower(data[:min(len(data), svgSniffLimit)])
	return bytes.Contains(head, []byte("<svg")) || bytes.Contains(head, []byte(svgNamespace))
}

// parseSvgExplicitSize reads width and height from the root <svg> tag.
// A viewBox alone is not treated as a pixel size.
func parseSvgExplicitSize(data []byte) (int, int, bool) {
	s := strings.ToLower(string(data[:min(len(data), svgTagLimit)]))
	start := strings.Index(s, "<svg")
	if start < 0 {
		return 0, 0, false
	}
	tag := s[start:]
	if end := strings.IndexByte(tag, '>'); end >= 0 {
		tag = tag[:end]
	}

	w, wOk := svgLengthAttr(tag, "width")
	h, hOk := svgLengthAttr(tag, "height")
	if !wOk || !hOk {
		return 0, 0, false
	}
	return w, h, true
}

// svgLengthAttr returns the leading integer of a quoted attribute such as width="120px"
func svgLengthAttr(tag, attr string) (int, bool) {
	for rest := tag; ; {
		idx := strings.Index(rest, attr)
		if idx < 0 {
			return 0, false
		}
		// skip matches inside longer names like stroke-width
		if idx > 0 && rest[idx-1] != ' ' && rest[idx-1] != '\t' && rest[idx-1] != '\n' {
			rest = rest[idx+len(attr):]
			continue
		}
		after := strings.TrimLeft(rest[idx+len(attr):], " \t\n")
		if !strings.HasPrefix(after, "=") {
			rest = rest[idx+len(attr):]
			continue
		}
		value := strings.TrimLeft(after[1:], " \t\n")
		if value == "" || (value[0] != '"' && value[0] != '\'') {
			return 0, false
		}
		quote := value[0]
		value = value[1:]
		if end := strings.IndexByte(value, quote); end >= 0 {
			value = value[:end]
		}
		return leadingInt(value)
	}
}

func leadingInt(s string) (int, bool) {
	n, digits := 0, 0
	for _, ch := range strings.TrimSpace(s) {
		if ch < '0' || ch > '9' {
			break
		}
		n = n*10 + int(ch-'0')
		digits++
	}
	return n, digits > 0 && n > 0
}

// renderSVGToPNG rasterises an SVG onto a white canvas of the given size
func renderSVGToPNG(svgData []byte, width, height int) ([]byte, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid target dimensions for SVG rendering: %dx%d", width, height)
	}
	icon, err := oksvg.ReadIconStream(bytes.NewReader(svgData))
	if err != nil {
		return nil, fmt.Errorf("failed to parse SVG: %w", err)
	}
	icon.SetTarget(0, 0, float64(width), float64(height))

	canvas := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)

	scanner := rasterx.NewScannerGV(width, height, canvas, canvas.Bounds())
	icon.Draw(rasterx.NewDasher(width, height, scanner), 1.0)

	var buf bytes.Buffer
	if err := png.Encode(&buf, canvas); err != nil {
		return nil, fmt.Errorf("failed to encode rendered SVG as PNG: %w", err)
	}
	return buf.Bytes(), nil
}
