package decode

import (
	"bufio"
	"bytes"
	"io"

	"github.com/ironsheep/image-import-mcp/internal/diag"
	"github.com/ironsheep/image-import-mcp/internal/raster"
)

const (
	icoDirSize   = 6
	icoEntrySize = 16
)

var pngSignature = []byte("\x89PNG\r\n\x1a\n")

// icoDecoder reads Windows icons and cursors. The subimage selects the
// directory entry. Entries are either a headerless BMP followed by a 1-bit
// AND mask, or a complete PNG stream.
type icoDecoder struct {
	png Decoder
}

func (d icoDecoder) Decode(req Request) (*raster.Image, error) {
	f, err := openFile(req.Path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var dir [icoDirSize]byte
	if _, err := io.ReadFull(f, dir[:]); err != nil {
		return nil, diag.Unsupported(req.Path, "ICO", "missing icon directory")
	}
	kind, count := le.Uint16(dir[2:]), int(le.Uint16(dir[4:]))
	if le.Uint16(dir[0:]) != 0 || (kind != 1 && kind != 2) || count == 0 {
		return nil, diag.Unsupported(req.Path, "ICO", "bad icon directory")
	}
	entries := make([]byte, count*icoEntrySize)
	if _, err := io.ReadFull(f, entries); err != nil {
		return nil, diag.Unsupported(req.Path, "ICO", "truncated icon directory")
	}

	index := 0
	if req.Subimage > 0 {
		if req.Subimage < count {
			index = req.Subimage
		} else {
			req.warnf("failed to read subimage %d from image file %q. Reading first available instead.", req.Subimage, req.Path)
		}
	}
	e := entries[index*icoEntrySize:]
	size, offset := int64(le.Uint32(e[8:])), int64(le.Uint32(e[12:]))

	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		return nil, diag.IO(req.Path, err)
	}
	br := bufio.NewReader(f)
	if head, _ := br.Peek(len(pngSignature)); bytes.Equal(head, pngSignature) {
		sd, ok := d.png.(streamDecoder)
		if !ok {
			return nil, diag.LibraryMissing(req.Path, "PNG")
		}
		var r io.Reader = br
		if size > 0 {
			r = io.LimitReader(br, size)
		}
		return sd.decodeStream(&req, r)
	}
	return d.decodeBitmap(&req, br)
}

func (d icoDecoder) decodeBitmap(req *Request, r io.Reader) (*raster.Image, error) {
	info, err := readBMPInfo(r)
	if err != nil {
		return nil, diag.Unsupported(req.Path, "ICO", err.Error())
	}
	if err := info.validate(req.Path, "ICO"); err != nil {
		return nil, err
	}
	// the stored height covers the color bitmap and the mask
	width, height := info.width, info.height/2
	if height < 0 {
		height = -height
	}
	asm, err := req.start(width, height)
	if err != nil {
		return nil, err
	}
	tbl := req.table()
	pal, err := readBMPPalette(r, info, tbl)
	if err != nil {
		return nil, diag.Unsupported(req.Path, "ICO", "truncated color table")
	}

	useAlpha := info.bitCount == 32
	if useAlpha && !info.hasFields {
		info.fields = [4]bitfield{
			newBitfield(0x00FF0000), newBitfield(0x0000FF00), newBitfield(0x000000FF), newBitfield(0xFF000000),
		}
		info.hasFields = true
	}

	// the mask follows every color row, so rows are held until it is read
	held := make([]*raster.Scanline, height)
	rows, truncated := bmpRows(r, info, pal, width, height, useAlpha, tbl, func(y int, s *raster.Scanline) {
		held[y] = s.Clone()
	})

	if !useAlpha && !truncated {
		applyANDMask(r, held, width)
	}
	for y, s := range held {
		if s != nil {
			asm.CommitScanline(y, s)
		}
	}
	return req.finish(asm, rows, truncated), nil
}

// applyANDMask reads the bottom-up 1-bit mask; a set bit makes the pixel
// transparent. A missing mask leaves the remaining rows opaque.
func applyANDMask(r io.Reader, held []*raster.Scanline, width int) {
	buf := make([]byte, ((width+31)/32)*4)
	for i := 0; i < len(held); i++ {
		if _, err := io.ReadFull(r, buf); err != nil {
			return
		}
		s := held[len(held)-1-i]
		if s == nil {
			continue
		}
		s.ResetAlpha()
		for x := 0; x < width; x++ {
			if buf[x>>3]&(0x80>>uint(x&7)) != 0 {
				s.Alpha[x] = 0
			}
		}
	}
}
