package filehandler

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"

	"github.com/rs/zerolog/log"
	"golang.org/x/image/draw"
)

// DefaultThumbnailMaxDimension is the maximum dimension (width or height) for
// the preview thumbnail shown in the UI.
const DefaultThumbnailMaxDimension = 300

// MaxThumbnailPixels is the largest width*height that will be decoded for a
// thumbnail. Bigger images keep their full-size preview.
const MaxThumbnailPixels = 40_000_000

// ErrTooManyPixels is returned by GenerateThumbnail when the image header
// declares more than MaxThumbnailPixels.
var ErrTooManyPixels = errors.New("image exceeds thumbnail pixel budget")

// GenerateThumbnail creates a low-resolution copy of an image for display.
// Returns the thumbnail bytes, MIME type, and any error.
//
// Strategy:
//   - JPEG/PNG larger than maxDimension: resize with golang.org/x/image/draw
//     and re-encode in the source format (PNG keeps transparency)
//   - JPEG/PNG already small enough: return the original bytes
//   - GIF: return the original bytes so animation survives
func GenerateThumbnail(data []byte, mimeType string, maxDimension int) ([]byte, string, error) {
	mimeType = NormalizeMIMEType(mimeType)

	log.Debug().
		Str("mime_type", mimeType).
		Int("input_size", len(data)).
		Int("max_dimension", maxDimension).
		Msg("Generating thumbnail")

	switch mimeType {
	case "image/jpeg", "image/png":
		return generateThumbnailPureGo(data, mimeType, maxDimension)
	case "image/gif":
		return data, mimeType, nil
	default:
		return nil, "", fmt.Errorf("unsupported format for thumbnail: %s", mimeType)
	}
}

func generateThumbnailPureGo(data []byte, mimeType string, maxDimension int) ([]byte, string, error) {
	// Decoding allocates the full raster, so check the header first.
	w, h, err := ImageDimensions(data)
	if err != nil {
		return nil, "", err
	}
	if int64(w)*int64(h) > MaxThumbnailPixels {
		return nil, "", fmt.Errorf("%w: %dx%d", ErrTooManyPixels, w, h)
	}

	var img image.Image
	switch mimeType {
	case "image/jpeg":
		img, err = jpeg.Decode(bytes.NewReader(data))
	case "image/png":
		img, err = png.Decode(bytes.NewReader(data))
	}
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := img.Bounds()
	origWidth := bounds.Dx()
	origHeight := bounds.Dy()

	if origWidth <= maxDimension && origHeight <= maxDimension {
		return data, mimeType, nil
	}

	newWidth, newHeight := calculateThumbnailDimensions(origWidth, origHeight, maxDimension)

	resized := image.NewRGBA(image.Rect(0, 0, newWidth, newHeight))
	draw.CatmullRom.Scale(resized, resized.Bounds(), img, bounds, draw.Over, nil)

	var buf bytes.Buffer
	if mimeType == "image/png" {
		err = png.Encode(&buf, resized)
	} else {
		err = jpeg.Encode(&buf, resized, &jpeg.Options{Quality: 80})
	}
	if err != nil {
		return nil, "", fmt.Errorf("failed to encode thumbnail: %w", err)
	}

	log.Debug().
		Int("orig_width", origWidth).
		Int("orig_height", origHeight).
		Int("new_width", newWidth).
		Int("new_height", newHeight).
		Int("output_size", buf.Len()).
		Msg("Thumbnail generated (pure Go)")

	return buf.Bytes(), mimeType, nil
}

// calculateThumbnailDimensions calculates new dimensions maintaining aspect ratio.
// Neither side is ever scaled below one pixel.
func calculateThumbnailDimensions(width, height, maxDimension int) (int, int) {
	if width <= maxDimension && height <= maxDimension {
		return width, height
	}

	if width > height {
		newHeight := int(float64(height) * float64(maxDimension) / float64(width))
		return maxDimension, max(newHeight, 1)
	}

	newWidth := int(float64(width) * float64(maxDimension) / float64(height))
	return max(newWidth, 1), maxDimension
}
