//go:build !nogif

package decode

import (
	"bufio"
	"compress/lzw"
	"fmt"
	"io"

	"github.com/ironsheep/image-import-mcp/internal/diag"
	"github.com/ironsheep/image-import-mcp/internal/gamma"
	"github.com/ironsheep/image-import-mcp/internal/raster"
)

const (
	gifExtension   = 0x21
	gifImage       = 0x2C
	gifTrailer     = 0x3B
	gifGraphicCtl  = 0xF9
	gifColorTable  = 0x80
	gifInterlace   = 0x40
	gifTransparent = 0x01
)

// gifPasses are the row offsets and strides of the four interlace passes.
var gifPasses = [4]struct{ start, step int }{{0, 8}, {4, 8}, {2, 4}, {1, 2}}

type gifDecoder struct{}

func newGIFDecoder() Decoder { return gifDecoder{} }

type gifFrame struct {
	width, height int
	interlaced    bool
	colors        *palette
	transparent   int
}

// Decode reads one frame of a GIF file. The subimage selects the frame,
// counting from zero; the graphic control extension in front of that frame
// supplies its transparent index.
func (gifDecoder) Decode(req Request) (*raster.Image, error) {
	f, err := openFile(req.Path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	br := bufio.NewReader(f)
	tbl := req.table()

	var screen [13]byte
	if _, err := io.ReadFull(br, screen[:]); err != nil || string(screen[:3]) != "GIF" {
		return nil, diag.Unsupported(req.Path, "GIF", "missing screen descriptor")
	}
	background := int(screen[11])
	var global *palette
	if screen[10]&gifColorTable != 0 {
		if global, err = readGIFPalette(br, screen[10], tbl); err != nil {
			return nil, diag.Unsupported(req.Path, "GIF", "truncated global color table")
		}
	}

	want := req.Subimage
	if want < 0 {
		want = 0
	}
	transparent := -1
	for index := 0; ; {
		kind, err := br.ReadByte()
		if err != nil {
			return nil, diag.IO(req.Path, fmt.Errorf("no image in gif stream: %w", err))
		}
		switch kind {
		case gifExtension:
			t, err := readGIFExtension(br)
			if err != nil {
				return nil, diag.IO(req.Path, err)
			}
			if t >= 0 {
				transparent = t
			}
		case gifImage:
			frame, err := readGIFDescriptor(br, global, tbl)
			if err != nil {
				return nil, diag.Unsupported(req.Path, "GIF", err.Error())
			}
			if index == want {
				frame.transparent = transparent
				return decodeGIFFrame(&req, br, frame, background)
			}
			if err := skipGIFData(br); err != nil {
				return nil, diag.IO(req.Path, err)
			}
			index++
			transparent = -1
		case gifTrailer:
			if want > 0 && index > 0 {
				req.warnf("failed to read subimage %d from image file %q. Reading first available instead.", req.Subimage, req.Path)
				req.Subimage = 0
				return gifDecoder{}.Decode(req)
			}
			return nil, diag.Unsupported(req.Path, "GIF", "no image data")
		default:
			return nil, diag.Unsupported(req.Path, "GIF", fmt.Sprintf("unknown block 0x%02x", kind))
		}
	}
}

func readGIFPalette(r io.Reader, flags byte, tbl *gamma.Table) (*palette, error) {
	n := 1 << (uint(flags&0x07) + 1)
	raw := make([]byte, 3*n)
	if _, err := io.ReadFull(r, raw); err != nil {
		return nil, err
	}
	p := newPalette(n)
	for i := 0; i < n; i++ {
		p.set(i, raw[3*i], raw[3*i+1], raw[3*i+2], tbl)
	}
	return p, nil
}

// readGIFExtension consumes one extension block and returns the transparent
// index it declares, or -1.
func readGIFExtension(r *bufio.Reader) (int, error) {
	label, err := r.ReadByte()
	if err != nil {
		return -1, err
	}
	size, err := r.ReadByte()
	if err != nil {
		return -1, err
	}
	if label != gifGraphicCtl || size != 4 {
		return -1, skipGIFBlocks(r, int(size))
	}
	var gce [4]byte // flags, delay (2), transparent index
	if _, err := io.ReadFull(r, gce[:]); err != nil {
		return -1, err
	}
	transparent := -1
	if gce[0]&gifTransparent != 0 {
		transparent = int(gce[3])
	}
	return transparent, skipGIFBlocks(r, -1)
}

// skipGIFBlocks discards data sub-blocks up to the terminator. A
// non-negative pending is the length of a sub-block whose size byte was
// already consumed.
func skipGIFBlocks(r *bufio.Reader, pending int) error {
	for {
		n := pending
		pending = -1
		if n < 0 {
			b, err := r.ReadByte()
			if err != nil {
				return err
			}
			n = int(b)
		}
		if n == 0 {
			return nil
		}
		if _, err := r.Discard(n); err != nil {
			return err
		}
	}
}

func readGIFDescriptor(r io.Reader, global *palette, tbl *gamma.Table) (*gifFrame, error) {
	var d [9]byte
	if _, err := io.ReadFull(r, d[:]); err != nil {
		return nil, fmt.Errorf("truncated image descriptor")
	}
	frame := &gifFrame{
		width:      int(le.Uint16(d[4:])),
		height:     int(le.Uint16(d[6:])),
		interlaced: d[8]&gifInterlace != 0,
		colors:     global,
	}
	if d[8]&gifColorTable != 0 {
		local, err := readGIFPalette(r, d[8], tbl)
		if err != nil {
			return nil, fmt.Errorf("truncated local color table")
		}
		frame.colors = local
	}
	if frame.colors == nil {
		return nil, fmt.Errorf("image has no color table")
	}
	return frame, nil
}

func skipGIFData(r *bufio.Reader) error {
	if _, err := r.ReadByte(); err != nil {
		return err
	}
	return skipGIFBlocks(r, -1)
}

func decodeGIFFrame(req *Request, r *bufio.Reader, frame *gifFrame, background int) (*raster.Image, error) {
	asm, err := req.start(frame.width, frame.height)
	if err != nil {
		return nil, err
	}
	litWidth, err := r.ReadByte()
	if err != nil {
		return req.finish(asm, 0, true), nil
	}
	if litWidth < 2 || litWidth > 8 {
		return nil, diag.Unsupported(req.Path, "GIF", fmt.Sprintf("bad LZW code size %d", litWidth))
	}
	lr := lzw.NewReader(&gifBlockReader{r: r}, lzw.LSB, int(litWidth))
	defer lr.Close()

	// rows arrive in pass order and are emitted top to bottom
	pixels := make([][]byte, frame.height)
	read := 0
	order := gifRowOrder(frame.height, frame.interlaced)
	for _, y := range order {
		row := make([]byte, frame.width)
		if _, err := io.ReadFull(lr, row); err != nil {
			break
		}
		pixels[y] = row
		read++
	}

	s := raster.NewScanline(frame.width)
	for y, row := range pixels {
		if row == nil {
			continue
		}
		s.ResetAlpha()
		for x, c := range row {
			i := int(c)
			if i == frame.transparent {
				i = background
				s.Alpha[x] = 0
			}
			frame.colors.put(s, x, i)
		}
		asm.CommitScanline(y, s)
	}
	return req.finish(asm, read, read < frame.height), nil
}

func gifRowOrder(height int, interlaced bool) []int {
	order := make([]int, 0, height)
	if !interlaced {
		for y := 0; y < height; y++ {
			order = append(order, y)
		}
		return order
	}
	for _, p := range gifPasses {
		for y := p.start; y < height; y += p.step {
			order = append(order, y)
		}
	}
	return order
}

// gifBlockReader presents the sub-blocks of an image as one stream.
type gifBlockReader struct {
	r    *bufio.Reader
	left int
	done bool
}

func (b *gifBlockReader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	for b.left == 0 {
		if b.done {
			return 0, io.EOF
		}
		n, err := b.r.ReadByte()
		if err != nil {
			return 0, io.ErrUnexpectedEOF
		}
		if n == 0 {
			b.done = true
			return 0, io.EOF
		}
		b.left = int(n)
	}
	if len(p) > b.left {
		p = p[:b.left]
	}
	n, err := b.r.Read(p)
	b.left -= n
	if err == io.EOF {
		err = io.ErrUnexpectedEOF
	}
	return n, err
}
