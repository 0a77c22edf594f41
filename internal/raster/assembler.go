package raster

import (
	"github.com/ironsheep/image-import-mcp/internal/diag"
)

// Channel identifies one channel of a row.
type Channel int

const (
	ChannelRed Channel = iota
	ChannelGreen
	ChannelBlue
	ChannelAlpha
)

// ChannelMask selects the channels a caller wants stored.
type ChannelMask uint8

const (
	MaskRed ChannelMask = 1 << iota
	MaskGreen
	MaskBlue
	MaskAlpha

	// MaskRGB requests color only; alpha data is decoded but never stored.
	MaskRGB = MaskRed | MaskGreen | MaskBlue
	// MaskAll requests every channel.
	MaskAll = MaskRGB | MaskAlpha
)

// Has reports whether c is selected.
func (m ChannelMask) Has(c Channel) bool {
	return m&(1<<uint(c)) != 0
}

// CheckSize validates declared dimensions against MaxDimension.
func CheckSize(path string, width, height int) error {
	if width <= 0 || height <= 0 || width > MaxDimension || height > MaxDimension {
		return diag.SizeLimit(path, width, height, MaxDimension)
	}
	return nil
}

// Assembler owns an Image while it is being decoded. Rows are committed
// channel by channel; nothing can be read back until Finish.
type Assembler struct {
	img  *Image
	mask ChannelMask
}

// NewAssembler starts an empty image of the given size. A zero mask means
// MaskAll. It fails with a size-limit error for dimensions outside
// 1..MaxDimension.
func NewAssembler(path string, width, height, compression int, mask ChannelMask) (*Assembler, error) {
	if err := CheckSize(path, width, height); err != nil {
		return nil, err
	}
	if mask == 0 {
		mask = MaskAll
	}
	return &Assembler{
		img: &Image{
			width:       width,
			height:      height,
			compression: compression,
			rows:        make([]Row, height),
		},
		mask: mask,
	}, nil
}

// Width returns the width of the image being assembled.
func (a *Assembler) Width() int { return a.img.width }

// Height returns the height of the image being assembled.
func (a *Assembler) Height() int { return a.img.height }

// CommitRow stores a copy of the first Width samples of data as channel c of
// row y. Rows outside the image and short data are ignored.
func (a *Assembler) CommitRow(c Channel, y int, data []uint8) {
	if y < 0 || y >= a.img.height || len(data) < a.img.width {
		return
	}
	if c == ChannelAlpha && !a.mask.Has(ChannelAlpha) {
		return
	}
	row := append([]uint8(nil), data[:a.img.width]...)
	r := &a.img.rows[y]
	switch c {
	case ChannelRed:
		r.Red = row
	case ChannelGreen:
		r.Green = row
	case ChannelBlue:
		r.Blue = row
	case ChannelAlpha:
		r.Alpha = row
	}
}

// CommitScanline commits red, green and blue from s as row y, and alpha only
// when s carries alpha with at least one non-opaque sample.
func (a *Assembler) CommitScanline(y int, s *Scanline) {
	a.CommitRow(ChannelRed, y, s.Red)
	a.CommitRow(ChannelGreen, y, s.Green)
	a.CommitRow(ChannelBlue, y, s.Blue)
	if !s.Opaque() {
		a.CommitRow(ChannelAlpha, y, s.Alpha)
	}
}

// Finish hands the image over to the caller. Rows that lack any color
// channel are cleared so partially committed rows read as missing. The
// assembler must not be used afterwards.
func (a *Assembler) Finish(truncated bool) *Image {
	img := a.img
	a.img = nil
	for i := range img.rows {
		r := &img.rows[i]
		if r.Red == nil || r.Green == nil || r.Blue == nil {
			*r = Row{}
		}
	}
	if truncated || img.DecodedRows() < img.height {
		img.status = Truncated
	}
	return img
}
