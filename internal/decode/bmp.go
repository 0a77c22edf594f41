package decode

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math/bits"

	"github.com/ironsheep/image-import-mcp/internal/diag"
	"github.com/ironsheep/image-import-mcp/internal/gamma"
	"github.com/ironsheep/image-import-mcp/internal/raster"
)

const (
	biRGB           = 0
	biRLE8          = 1
	biRLE4          = 2
	biBitfields     = 3
	biAlphaBitfield = 6

	bmpFileHeaderSize = 14
	bmpCoreHeaderSize = 12
	bmpInfoHeaderSize = 40
)

var le = binary.LittleEndian

// bitfield extracts one channel from a 16 or 32 bit pixel.
type bitfield struct {
	mask  uint32
	shift uint
	width uint
}

func newBitfield(mask uint32) bitfield {
	if mask == 0 {
		return bitfield{}
	}
	shift := uint(bits.TrailingZeros32(mask))
	return bitfield{mask: mask, shift: shift, width: uint(bits.OnesCount32(mask >> shift))}
}

func (f bitfield) get(v uint32) uint8 {
	if f.mask == 0 {
		return 0xFF
	}
	s := (v & f.mask) >> f.shift
	if f.width >= 8 {
		return uint8(s >> (f.width - 8))
	}
	max := uint32(1)<<f.width - 1
	return uint8((s*255 + max/2) / max)
}

// bmpInfo is the part of a BITMAPINFOHEADER (or one of its relatives) the
// decoder needs.
type bmpInfo struct {
	headerSize  uint32
	width       int
	height      int // negative for top-down rows
	bitCount    int
	compression uint32
	colorsUsed  int
	fields      [4]bitfield // red, green, blue, alpha
	hasFields   bool
	entrySize   int // palette bytes per entry
}

func (b *bmpInfo) rowSize() int {
	return ((b.width*b.bitCount + 31) / 32) * 4
}

func (b *bmpInfo) paletteEntries() int {
	if b.bitCount > 8 {
		return 0
	}
	n := 1 << uint(b.bitCount)
	if b.colorsUsed > 0 && b.colorsUsed < n {
		n = b.colorsUsed
	}
	return n
}

// readBMPInfo parses the info header that starts at the current position of
// r, including the bitfield masks that follow a 40 byte header.
func readBMPInfo(r io.Reader) (*bmpInfo, error) {
	var size [4]byte
	if _, err := io.ReadFull(r, size[:]); err != nil {
		return nil, err
	}
	info := &bmpInfo{headerSize: le.Uint32(size[:]), entrySize: 4}

	switch {
	case info.headerSize == bmpCoreHeaderSize:
		var h [8]byte
		if _, err := io.ReadFull(r, h[:]); err != nil {
			return nil, err
		}
		info.width = int(le.Uint16(h[0:]))
		info.height = int(le.Uint16(h[2:]))
		info.bitCount = int(le.Uint16(h[6:]))
		info.entrySize = 3
		return info, nil
	case info.headerSize >= bmpInfoHeaderSize && info.headerSize <= 1024:
	default:
		return nil, fmt.Errorf("unknown info header size %d", info.headerSize)
	}

	h := make([]byte, info.headerSize-4)
	if _, err := io.ReadFull(r, h); err != nil {
		return nil, err
	}
	info.width = int(int32(le.Uint32(h[0:])))
	info.height = int(int32(le.Uint32(h[4:])))
	info.bitCount = int(le.Uint16(h[10:]))
	info.compression = le.Uint32(h[12:])
	info.colorsUsed = int(le.Uint32(h[28:]))

	if info.compression == biBitfields || info.compression == biAlphaBitfield {
		var masks [4]uint32
		switch {
		case len(h) >= 48:
			// V2 and later carry the RGB masks inside the header, V3
			// and later the alpha mask as well.
			for i := 0; i < 4 && 36+4*i+4 <= len(h); i++ {
				masks[i] = le.Uint32(h[36+4*i:])
			}
		default:
			n := 3
			if info.compression == biAlphaBitfield {
				n = 4
			}
			raw := make([]byte, 4*n)
			if _, err := io.ReadFull(r, raw); err != nil {
				return nil, err
			}
			for i := 0; i < n; i++ {
				masks[i] = le.Uint32(raw[4*i:])
			}
		}
		for i := range masks {
			info.fields[i] = newBitfield(masks[i])
		}
		info.hasFields = true
	} else if len(h) >= 52 && info.bitCount == 32 {
		// V4/V5 headers may declare an alpha mask even for BI_RGB data.
		if a := le.Uint32(h[48:]); a != 0 {
			info.fields = [4]bitfield{
				newBitfield(0x00FF0000), newBitfield(0x0000FF00), newBitfield(0x000000FF), newBitfield(a),
			}
			info.hasFields = true
		}
	}
	return info, nil
}

// validate rejects layouts the row decoder cannot handle.
func (b *bmpInfo) validate(path, format string) error {
	switch b.compression {
	case biRGB:
	case biBitfields, biAlphaBitfield:
		if b.bitCount != 16 && b.bitCount != 32 {
			return diag.Unsupported(path, format, fmt.Sprintf("bitfields with %d bits per pixel", b.bitCount))
		}
	case biRLE8, biRLE4:
		return diag.Unsupported(path, format, "run-length compressed bitmaps")
	default:
		return diag.Unsupported(path, format, fmt.Sprintf("compression type %d", b.compression))
	}
	switch b.bitCount {
	case 1, 4, 8, 16, 24, 32:
	default:
		return diag.Unsupported(path, format, fmt.Sprintf("%d bits per pixel", b.bitCount))
	}
	return nil
}

func readBMPPalette(r io.Reader, info *bmpInfo, tbl *gamma.Table) (*palette, error) {
	n := info.paletteEntries()
	if n == 0 {
		return nil, nil
	}
	raw := make([]byte, n*info.entrySize)
	if _, err := io.ReadFull(r, raw); err != nil {
		return nil, err
	}
	pal := newPalette(n)
	for i := 0; i < n; i++ {
		e := raw[i*info.entrySize:]
		pal.set(i, e[2], e[1], e[0], tbl)
	}
	return pal, nil
}

// bmpRows reads height rows of pixel data and hands each to emit with its
// top-down row index. It returns the number of rows read; a short read stops
// the loop and is reported through the returned flag.
func bmpRows(r io.Reader, info *bmpInfo, pal *palette, width, height int, useAlpha bool,
	tbl *gamma.Table, emit func(y int, s *raster.Scanline)) (rows int, truncated bool) {
	y, step := height-1, -1
	if info.height < 0 {
		y, step = 0, 1
	}
	buf := make([]byte, info.rowSize())
	s := raster.NewScanline(width)

	for ; rows < height; rows, y = rows+1, y+step {
		if _, err := io.ReadFull(r, buf); err != nil {
			return rows, true
		}
		bmpRow(s, buf, info, pal, useAlpha, tbl)
		emit(y, s)
	}
	return rows, false
}

func bmpRow(s *raster.Scanline, buf []byte, info *bmpInfo, pal *palette, useAlpha bool, tbl *gamma.Table) {
	s.Gray = false
	s.HasAlpha = false
	switch info.bitCount {
	case 1:
		for x := 0; x < s.Width; x++ {
			pal.put(s, x, int(buf[x>>3]>>(7-uint(x&7))&1))
		}
	case 4:
		for x := 0; x < s.Width; x++ {
			v := buf[x>>1]
			if x&1 == 0 {
				v >>= 4
			}
			pal.put(s, x, int(v&0x0F))
		}
	case 8:
		for x := 0; x < s.Width; x++ {
			pal.put(s, x, int(buf[x]))
		}
	case 16, 32:
		fields := info.fields
		if !info.hasFields {
			if info.bitCount == 16 {
				fields = [4]bitfield{newBitfield(0x7C00), newBitfield(0x03E0), newBitfield(0x001F), {}}
			} else {
				fields = [4]bitfield{newBitfield(0x00FF0000), newBitfield(0x0000FF00), newBitfield(0x000000FF), {}}
			}
		}
		alpha := useAlpha && fields[3].mask != 0
		for x := 0; x < s.Width; x++ {
			var v uint32
			if info.bitCount == 16 {
				v = uint32(le.Uint16(buf[2*x:]))
			} else {
				v = le.Uint32(buf[4*x:])
			}
			s.SetPixel(x, fields[0].get(v), fields[1].get(v), fields[2].get(v), tbl)
			if alpha {
				s.Alpha[x] = fields[3].get(v)
			}
		}
		s.HasAlpha = alpha
	case 24:
		_ = s.FromRaw(buf, raster.RGB, raster.Reversed, tbl)
	}
}

type bmpDecoder struct{}

func (bmpDecoder) Decode(req Request) (*raster.Image, error) {
	f, err := openFile(req.Path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	br := bufio.NewReader(f)
	var fh [bmpFileHeaderSize]byte
	if _, err := io.ReadFull(br, fh[:]); err != nil || fh[0] != 'B' || fh[1] != 'M' {
		return nil, diag.Unsupported(req.Path, "BMP", "missing file header")
	}
	offBits := int64(le.Uint32(fh[10:]))

	info, err := readBMPInfo(br)
	if err != nil {
		return nil, diag.Unsupported(req.Path, "BMP", err.Error())
	}
	if err := info.validate(req.Path, "BMP"); err != nil {
		return nil, err
	}
	width, height := info.width, info.height
	if height < 0 {
		height = -height
	}
	asm, err := req.start(width, height)
	if err != nil {
		return nil, err
	}

	tbl := req.table()
	pal, err := readBMPPalette(br, info, tbl)
	if err != nil {
		return nil, diag.Unsupported(req.Path, "BMP", "truncated color table")
	}
	if offBits > 0 {
		if _, err := f.Seek(offBits, io.SeekStart); err != nil {
			return nil, diag.IO(req.Path, err)
		}
		br.Reset(f)
	}

	useAlpha := info.hasFields
	rows, truncated := bmpRows(br, info, pal, width, height, useAlpha, tbl, asm.CommitScanline)
	return req.finish(asm, rows, truncated), nil
}
