package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"
	"math"

	"github.com/disintegration/imaging"
)

// MaxIconSize bounds the requested icon edge length.
const MaxIconSize = 1024

// Region is a rectangle in image coordinates; (X1,Y1) inclusive, (X2,Y2)
// exclusive.
type Region struct {
	X1 int
	Y1 int
	X2 int
	Y2 int
}

func (r Region) rect() image.Rectangle { return image.Rect(r.X1, r.Y1, r.X2, r.Y2) }

// RenderResult is a rendered image encoded as base64 PNG.
type RenderResult struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`
}

// RenderIcon scales img, or the region of it, to fit inside a width x height
// box while keeping the aspect ratio. A zero edge is derived from the other.
//
// Downscaling uses a Lanczos filter. Upscaling uses nearest neighbour so
// small pixel-art icons stay sharp.
func RenderIcon(img image.Image, width, height int, region *Region) (*RenderResult, error) {
	if width < 0 || height < 0 || width > MaxIconSize || height > MaxIconSize {
		return nil, fmt.Errorf("icon size %dx%d outside 0..%d", width, height, MaxIconSize)
	}
	if width == 0 && height == 0 {
		return nil, fmt.Errorf("icon width or height is required")
	}

	src := img
	if region != nil {
		bounds := img.Bounds()
		r := region.rect()
		if r.Dx() <= 0 || r.Dy() <= 0 {
			return nil, fmt.Errorf("invalid region: x1 must be < x2, y1 must be < y2")
		}
		if !r.In(bounds) {
			return nil, fmt.Errorf("region (%d,%d)-(%d,%d) outside image bounds (%d,%d)-(%d,%d)",
				r.Min.X, r.Min.Y, r.Max.X, r.Max.Y, bounds.Min.X, bounds.Min.Y, bounds.Max.X, bounds.Max.Y)
		}
		src = imaging.Crop(img, r)
	}

	sw, sh := src.Bounds().Dx(), src.Bounds().Dy()
	tw, th := fitBox(sw, sh, width, height)

	filter := imaging.Lanczos
	if tw > sw || th > sh {
		filter = imaging.NearestNeighbor
	}
	out := imaging.Resize(src, tw, th, filter)

	data, err := encodePNG(out)
	if err != nil {
		return nil, fmt.Errorf("failed to encode icon: %w", err)
	}
	return &RenderResult{
		Width:       tw,
		Height:      th,
		ImageBase64: data,
		MimeType:    "image/png",
	}, nil
}

// fitBox returns the largest size with the aspect ratio of sw x sh that fits
// in w x h. Each edge is at least 1.
func fitBox(sw, sh, w, h int) (int, int) {
	scale := math.Inf(1)
	if w > 0 {
		scale = float64(w) / float64(sw)
	}
	if h > 0 {
		scale = math.Min(scale, float64(h)/float64(sh))
	}
	tw := int(math.Round(float64(sw) * scale))
	th := int(math.Round(float64(sh) * scale))
	if tw < 1 {
		tw = 1
	}
	if th < 1 {
		th = 1
	}
	return tw, th
}

func encodePNG(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
