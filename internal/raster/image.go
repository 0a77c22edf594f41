// Package raster defines the canonical decoded image shared by every
// decoder, together with the per-row scanline buffer decoders fill and the
// assembler that commits finished rows.
//
// # Row Model
//
// An Image is a sequence of rows. Each row holds red, green and blue arrays
// of exactly Width samples and, optionally, an alpha array. A row without an
// alpha array is fully opaque; decoders only store alpha for rows that have
// at least one sample below 0xFF, so the decision is made per row.
//
// A row that was never committed (for example because the file was truncated)
// has no channel data at all. Such rows read back as transparent black and
// are counted out of DecodedRows.
//
// # Thread Safety
//
// An Image is immutable once returned by Assembler.Finish and can be read
// from any number of goroutines.
package raster

import (
	"image"
	"image/color"
)

// MaxDimension bounds the declared width and height accepted by decoders.
const MaxDimension = 8000

// Status tells whether every declared row was decoded.
type Status int

const (
	// Complete means all declared rows were read.
	Complete Status = iota
	// Truncated means the pixel stream ended early; missing rows are empty.
	Truncated
)

func (s Status) String() string {
	if s == Truncated {
		return "truncated"
	}
	return "complete"
}

// Row is one committed row of the image. Alpha is nil for opaque rows; all
// channels are nil for rows that were never decoded.
type Row struct {
	Red   []uint8
	Green []uint8
	Blue  []uint8
	Alpha []uint8
}

// Present reports whether the row was decoded.
func (r Row) Present() bool { return r.Red != nil }

// Image is the canonical, format independent decoded image. It implements
// image.Image with the NRGBA color model so downstream code can hand it to
// any standard image routine.
type Image struct {
	width       int
	height      int
	compression int
	status      Status
	rows        []Row
}

// Width returns the image width in pixels.
func (m *Image) Width() int { return m.width }

// Height returns the declared image height in pixels.
func (m *Image) Height() int { return m.height }

// Compression returns the compression hint the image was assembled with.
func (m *Image) Compression() int { return m.compression }

// Status reports whether the decode was complete or truncated.
func (m *Image) Status() Status { return m.status }

// Row returns row y. The returned slices must not be modified.
func (m *Image) Row(y int) Row {
	if y < 0 || y >= m.height {
		return Row{}
	}
	return m.rows[y]
}

// DecodedRows counts rows that carry channel data.
func (m *Image) DecodedRows() int {
	n := 0
	for _, r := range m.rows {
		if r.Present() {
			n++
		}
	}
	return n
}

// HasAlpha reports whether any row stores an alpha array.
func (m *Image) HasAlpha() bool {
	for _, r := range m.rows {
		if r.Alpha != nil {
			return true
		}
	}
	return false
}

// ColorModel implements image.Image.
func (m *Image) ColorModel() color.Model { return color.NRGBAModel }

// Bounds implements image.Image.
func (m *Image) Bounds() image.Rectangle { return image.Rect(0, 0, m.width, m.height) }

// At implements image.Image.
func (m *Image) At(x, y int) color.Color {
	return m.NRGBAAt(x, y)
}

// NRGBAAt returns the pixel at (x, y); out of range and undecoded pixels are
// transparent black.
func (m *Image) NRGBAAt(x, y int) color.NRGBA {
	if x < 0 || x >= m.width || y < 0 || y >= m.height {
		return color.NRGBA{}
	}
	r := m.rows[y]
	if !r.Present() {
		return color.NRGBA{}
	}
	a := uint8(0xFF)
	if r.Alpha != nil {
		a = r.Alpha[x]
	}
	return color.NRGBA{R: r.Red[x], G: r.Green[x], B: r.Blue[x], A: a}
}

// ToNRGBA flattens the image into a newly allocated *image.NRGBA.
func (m *Image) ToNRGBA() *image.NRGBA {
	dst := image.NewNRGBA(m.Bounds())
	for y, r := range m.rows {
		if !r.Present() {
			continue
		}
		line := dst.Pix[y*dst.Stride : y*dst.Stride+m.width*4]
		for x := 0; x < m.width; x++ {
			line[x*4] = r.Red[x]
			line[x*4+1] = r.Green[x]
			line[x*4+2] = r.Blue[x]
			if r.Alpha != nil {
				line[x*4+3] = r.Alpha[x]
			} else {
				line[x*4+3] = 0xFF
			}
		}
	}
	return dst
}
