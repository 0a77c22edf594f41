package raster

import (
	"fmt"

	"github.com/ironsheep/image-import-mcp/internal/gamma"
)

// Layout describes how samples are interleaved in a raw source row.
type Layout int

const (
	// RGB is three samples per pixel.
	RGB Layout = iota
	// RGBA is four samples per pixel, alpha last.
	RGBA
	// Gray is one luminance sample per pixel.
	Gray
	// GrayAlpha is luminance followed by alpha.
	GrayAlpha
)

// SamplesPerPixel returns the number of bytes one pixel occupies.
func (l Layout) SamplesPerPixel() int {
	switch l {
	case RGB:
		return 3
	case RGBA:
		return 4
	case GrayAlpha:
		return 2
	default:
		return 1
	}
}

// HasAlpha reports whether the layout carries an alpha sample.
func (l Layout) HasAlpha() bool { return l == RGBA || l == GrayAlpha }

// IsGray reports whether the layout carries a single luminance sample.
func (l Layout) IsGray() bool { return l == Gray || l == GrayAlpha }

// Order is the order of the color samples inside one pixel.
type Order int

const (
	// Forward is R, G, B.
	Forward Order = iota
	// Reversed is B, G, R, as stored by little endian formats such as BMP.
	Reversed
)

// Scanline is the reusable per-row working buffer of a decoder. Its channel
// arrays are sized to the image width once and overwritten for every row.
type Scanline struct {
	Width int
	Red   []uint8
	Green []uint8
	Blue  []uint8
	Alpha []uint8

	// Gray is set when the last row came from a luminance source.
	Gray bool
	// HasAlpha is set when Alpha holds data for the last row.
	HasAlpha bool
}

// NewScanline allocates a scanline for rows of width pixels.
func NewScanline(width int) *Scanline {
	buf := make([]uint8, width*4)
	return &Scanline{
		Width: width,
		Red:   buf[0:width:width],
		Green: buf[width : 2*width : 2*width],
		Blue:  buf[2*width : 3*width : 3*width],
		Alpha: buf[3*width : 4*width : 4*width],
	}
}

// Clone returns an independent copy of s.
func (s *Scanline) Clone() *Scanline {
	c := NewScanline(s.Width)
	copy(c.Red, s.Red)
	copy(c.Green, s.Green)
	copy(c.Blue, s.Blue)
	copy(c.Alpha, s.Alpha)
	c.Gray, c.HasAlpha = s.Gray, s.HasAlpha
	return c
}

// Opaque reports whether the row has no alpha or every alpha sample is 0xFF.
func (s *Scanline) Opaque() bool {
	if !s.HasAlpha {
		return true
	}
	for _, a := range s.Alpha {
		if a != 0xFF {
			return false
		}
	}
	return true
}

// ResetAlpha marks every pixel opaque and enables the alpha channel.
func (s *Scanline) ResetAlpha() {
	for i := range s.Alpha {
		s.Alpha[i] = 0xFF
	}
	s.HasAlpha = true
}

// SetPixel stores one pixel. tbl corrects the color samples; alpha is stored
// as is.
func (s *Scanline) SetPixel(x int, r, g, b uint8, tbl *gamma.Table) {
	s.Red[x] = tbl.Apply(r)
	s.Green[x] = tbl.Apply(g)
	s.Blue[x] = tbl.Apply(b)
}

// FromRaw fills the scanline from one row of interleaved samples. Grayscale
// sources replicate luminance into red, green and blue. When tbl is non-nil
// every color sample passes through it; alpha is always copied unmodified.
// It fails if row holds fewer than Width pixels.
func (s *Scanline) FromRaw(row []byte, layout Layout, order Order, tbl *gamma.Table) error {
	spp := layout.SamplesPerPixel()
	need := s.Width * spp
	if len(row) < need {
		return fmt.Errorf("raw row holds %d bytes, need %d", len(row), need)
	}
	s.Gray = layout.IsGray()
	s.HasAlpha = layout.HasAlpha()

	switch {
	case layout.IsGray():
		s.grayFromRaw(row, s.HasAlpha, tbl)
	case order == Reversed:
		s.bgrFromRaw(row, spp, tbl)
	default:
		s.rgbFromRaw(row, spp, tbl)
	}
	return nil
}

func (s *Scanline) grayFromRaw(row []byte, alpha bool, tbl *gamma.Table) {
	step := 1
	if alpha {
		step = 2
	}
	for x, i := 0, 0; x < s.Width; x, i = x+1, i+step {
		v := tbl.Apply(row[i])
		s.Red[x], s.Green[x], s.Blue[x] = v, v, v
		if alpha {
			s.Alpha[x] = row[i+1]
		}
	}
}

func (s *Scanline) rgbFromRaw(row []byte, spp int, tbl *gamma.Table) {
	for x, i := 0, 0; x < s.Width; x, i = x+1, i+spp {
		s.Red[x] = tbl.Apply(row[i])
		s.Green[x] = tbl.Apply(row[i+1])
		s.Blue[x] = tbl.Apply(row[i+2])
		if spp == 4 {
			s.Alpha[x] = row[i+3]
		}
	}
}

func (s *Scanline) bgrFromRaw(row []byte, spp int, tbl *gamma.Table) {
	for x, i := 0, 0; x < s.Width; x, i = x+1, i+spp {
		s.Blue[x] = tbl.Apply(row[i])
		s.Green[x] = tbl.Apply(row[i+1])
		s.Red[x] = tbl.Apply(row[i+2])
		if spp == 4 {
			s.Alpha[x] = row[i+3]
		}
	}
}
