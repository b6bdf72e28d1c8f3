// CLAUDE:SUMMARY Scales a page screenshot down to thumbnail size and encodes it as JPEG or PNG.
package browser

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"

	"golang.org/x/image/draw"

	"github.com/hazyhaar/tabview/thumbnail"
)

const jpegQuality = 80

// captureClip returns the page region to screenshot for a width×height
// thumbnail: the full viewport width, cropped from the top to the
// thumbnail's aspect ratio.
func captureClip(viewportW, viewportH, width, height int) (w, h float64) {
	w = float64(viewportW)
	h = w * float64(height) / float64(width)
	if h > float64(viewportH) {
		h = float64(viewportH)
	}
	return w, h
}

// scaleImage decodes a screenshot, scales it to exactly width×height and
// encodes it in format ("jpeg" or "png").
func scaleImage(shot []byte, width, height int, format string) (thumbnail.Image, error) {
	src, _, err := image.Decode(bytes.NewReader(shot))
	if err != nil {
		return thumbnail.Image{}, fmt.Errorf("browser: decode screenshot: %w", err)
	}

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)

	var buf bytes.Buffer
	switch format {
	case "png":
		if err := png.Encode(&buf, dst); err != nil {
			return thumbnail.Image{}, fmt.Errorf("browser: encode png: %w", err)
		}
		return thumbnail.Image{Data: buf.Bytes(), MIME: "image/png"}, nil
	default:
		if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: jpegQuality}); err != nil {
			return thumbnail.Image{}, fmt.Errorf("browser: encode jpeg: %w", err)
		}
		return thumbnail.Image{Data: buf.Bytes(), MIME: "image/jpeg"}, nil
	}
}
