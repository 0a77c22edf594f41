package imaging

import (
	"fmt"
	"image"

	"github.com/anthonynsimon/bild/channel"
	"github.com/anthonynsimon/bild/segment"
)

// DefaultMaskThreshold is the alpha at or above which a pixel counts as
// opaque.
const DefaultMaskThreshold = 128

// MaskResult is a 1-bit transparency mask encoded as a grayscale PNG.
// White marks pixels to draw, black marks transparent ones.
type MaskResult struct {
	Width             int    `json:"width"`
	Height            int    `json:"height"`
	Threshold         uint8  `json:"threshold"`
	TransparentPixels int    `json:"transparent_pixels"`
	ImageBase64       string `json:"image_base64"`
	MimeType          string `json:"mime_type"`
}

// Mask builds the shape mask of img from its alpha channel. Rows that were
// never decoded read as transparent and are masked out.
func Mask(img image.Image, threshold uint8) (*MaskResult, error) {
	if threshold == 0 {
		threshold = DefaultMaskThreshold
	}
	bits := MaskImage(img, threshold)

	transparent := 0
	for _, v := range bits.Pix {
		if v == 0 {
			transparent++
		}
	}
	data, err := encodePNG(bits)
	if err != nil {
		return nil, fmt.Errorf("failed to encode mask: %w", err)
	}
	b := bits.Bounds()
	return &MaskResult{
		Width:             b.Dx(),
		Height:            b.Dy(),
		Threshold:         threshold,
		TransparentPixels: transparent,
		ImageBase64:       data,
		MimeType:          "image/png",
	}, nil
}

// MaskImage returns the thresholded alpha channel of img: 0xFF where alpha
// >= threshold, 0 elsewhere.
func MaskImage(img image.Image, threshold uint8) *image.Gray {
	alpha := channel.Extract(img, channel.Alpha)
	return segment.Threshold(alpha, threshold)
}
