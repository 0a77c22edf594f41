package decode

import (
	"bufio"
	"fmt"
	"io"

	"github.com/ironsheep/image-import-mcp/internal/diag"
	"github.com/ironsheep/image-import-mcp/internal/raster"
)

// ppmDecoder reads the binary netpbm variants: P5 (gray), P6 (RGB) and the
// P8 RGBA extension. Samples wider than 8 bits are scaled down before gamma
// correction.
type ppmDecoder struct{}

type pnmHeader struct {
	kind          byte
	width, height int
	maxval        int
}

func (h pnmHeader) layout() raster.Layout {
	switch h.kind {
	case '5':
		return raster.Gray
	case '8':
		return raster.RGBA
	}
	return raster.RGB
}

func (ppmDecoder) Decode(req Request) (*raster.Image, error) {
	f, err := openFile(req.Path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	br := bufio.NewReader(f)
	hdr, err := readPNMHeader(br)
	if err != nil {
		return nil, diag.Unsupported(req.Path, "PPM/PNM", err.Error())
	}
	asm, err := req.start(hdr.width, hdr.height)
	if err != nil {
		return nil, err
	}

	layout := hdr.layout()
	spp := layout.SamplesPerPixel()
	wide := hdr.maxval > 255
	rowBytes := hdr.width * spp
	if wide {
		rowBytes *= 2
	}
	buf := make([]byte, rowBytes)
	samples := make([]byte, hdr.width*spp)
	s := raster.NewScanline(hdr.width)
	tbl := req.table()

	rows := 0
	for ; rows < hdr.height; rows++ {
		if _, err := io.ReadFull(br, buf); err != nil {
			break
		}
		scalePNMSamples(samples, buf, hdr.maxval, wide)
		if err := s.FromRaw(samples, layout, raster.Forward, tbl); err != nil {
			break
		}
		asm.CommitScanline(rows, s)
	}
	return req.finish(asm, rows, rows < hdr.height), nil
}

func scalePNMSamples(dst, src []byte, maxval int, wide bool) {
	for i := range dst {
		var v int
		if wide {
			v = int(src[2*i])<<8 | int(src[2*i+1])
		} else {
			v = int(src[i])
		}
		if maxval != 255 {
			if v > maxval {
				v = maxval
			}
			v = (v*255 + maxval/2) / maxval
		}
		dst[i] = uint8(v)
	}
}

// readPNMHeader parses the magic number, width, height and maxval. Comments
// run from '#' to the end of the line. Exactly one whitespace byte separates
// maxval from the pixel data.
func readPNMHeader(r *bufio.Reader) (pnmHeader, error) {
	var magic [2]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return pnmHeader{}, fmt.Errorf("missing magic number")
	}
	if magic[0] != 'P' {
		return pnmHeader{}, fmt.Errorf("bad magic number")
	}
	switch magic[1] {
	case '5', '6', '8':
	default:
		return pnmHeader{}, fmt.Errorf("only raw P5, P6 and P8 files are supported, got P%c", magic[1])
	}
	h := pnmHeader{kind: magic[1]}
	for i, dst := range []*int{&h.width, &h.height, &h.maxval} {
		v, err := readPNMInt(r)
		if err != nil {
			return pnmHeader{}, fmt.Errorf("bad header field %d: %v", i+1, err)
		}
		*dst = v
	}
	if h.maxval < 1 || h.maxval > 65535 {
		return pnmHeader{}, fmt.Errorf("maxval %d out of range", h.maxval)
	}
	if _, err := r.ReadByte(); err != nil {
		return pnmHeader{}, fmt.Errorf("missing pixel data")
	}
	return h, nil
}

func readPNMInt(r *bufio.Reader) (int, error) {
	c, err := r.ReadByte()
	for err == nil {
		if c == '#' {
			for err == nil && c != '\n' && c != '\r' {
				c, err = r.ReadByte()
			}
			continue
		}
		if c != ' ' && c != '\t' && c != '\n' && c != '\r' && c != '\v' && c != '\f' {
			break
		}
		c, err = r.ReadByte()
	}
	if err != nil {
		return 0, err
	}
	if c < '0' || c > '9' {
		return 0, fmt.Errorf("unexpected %q", c)
	}
	v := 0
	for err == nil && c >= '0' && c <= '9' {
		v = v*10 + int(c-'0')
		if v > 1<<24 {
			return 0, fmt.Errorf("number too large")
		}
		c, err = r.ReadByte()
	}
	if err == nil {
		// the delimiter belongs to the caller
		_ = r.UnreadByte()
	}
	return v, nil
}
