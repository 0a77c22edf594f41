package decode

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/ironsheep/image-import-mcp/internal/diag"
	"github.com/ironsheep/image-import-mcp/internal/gamma"
	"github.com/ironsheep/image-import-mcp/internal/raster"
)

const (
	xcfMagic    = "gimp xcf "
	xcfTileSize = 64

	xcfPropEnd         = 0
	xcfPropColormap    = 1
	xcfPropCompression = 17

	xcfCompressNone = 0
	xcfCompressRLE  = 1
	xcfCompressZlib = 2

	// first version with 64-bit offsets
	xcfWideVersion = 11
	// first version with a precision field
	xcfPrecisionVersion = 4
)

// xcfLayerType is the pixel layout of one layer.
type xcfLayerType uint32

const (
	xcfRGB xcfLayerType = iota
	xcfRGBA
	xcfGray
	xcfGrayA
	xcfIndexed
	xcfIndexedA
)

func (t xcfLayerType) bpp() int {
	switch t {
	case xcfRGB:
		return 3
	case xcfRGBA:
		return 4
	case xcfGray, xcfIndexed:
		return 1
	case xcfGrayA, xcfIndexedA:
		return 2
	}
	return 0
}

var errXCFShort = errors.New("unexpected end of xcf data")

// xcfDecoder reads one layer of a GIMP image. Layers are not composited.
// Without a subimage the bottom-most layer that covers the whole canvas is
// used; a subimage selects a layer by position, top-most first.
type xcfDecoder struct{}

type xcfLayer struct {
	width, height int
	kind          xcfLayerType
	hierarchy     int64
}

// xcfReader is a cursor over an in-memory XCF file. The first failure
// sticks and every later read returns zero.
type xcfReader struct {
	data []byte
	pos  int64
	wide bool
	err  error
}

func (r *xcfReader) seek(off int64) {
	if r.err == nil && (off < 0 || off > int64(len(r.data))) {
		r.err = fmt.Errorf("offset %d out of range", off)
	}
	r.pos = off
}

func (r *xcfReader) next(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || r.pos+int64(n) > int64(len(r.data)) {
		r.err = errXCFShort
		return nil
	}
	b := r.data[r.pos : r.pos+int64(n)]
	r.pos += int64(n)
	return b
}

func (r *xcfReader) u32() uint32 {
	b := r.next(4)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint32(b)
}

func (r *xcfReader) ptr() int64 {
	if !r.wide {
		return int64(r.u32())
	}
	b := r.next(8)
	if b == nil {
		return 0
	}
	v := binary.BigEndian.Uint64(b)
	if v > uint64(len(r.data)) {
		r.err = fmt.Errorf("offset %d out of range", v)
		return 0
	}
	return int64(v)
}

func (xcfDecoder) Decode(req Request) (*raster.Image, error) {
	f, err := openFile(req.Path)
	if err != nil {
		return nil, err
	}
	data, err := io.ReadAll(f)
	f.Close()
	if err != nil {
		return nil, diag.IO(req.Path, err)
	}
	unsupported := func(format string, args ...interface{}) error {
		return diag.Unsupported(req.Path, "XCF", fmt.Sprintf(format, args...))
	}

	r := &xcfReader{data: data}
	magic := r.next(len(xcfMagic))
	if r.err != nil || string(magic) != xcfMagic {
		return nil, unsupported("bad signature")
	}
	version, err := xcfVersion(r.next(5))
	if err != nil {
		return nil, unsupported("%v", err)
	}
	r.wide = version >= xcfWideVersion
	canvasW, canvasH := int(r.u32()), int(r.u32())
	_ = r.u32() // base type; every layer names its own
	if version >= xcfPrecisionVersion {
		if p := r.u32(); !xcf8BitPrecision(version, p) {
			return nil, unsupported("precision %d is not 8-bit", p)
		}
	}

	tbl := req.table()
	compression, colormap := xcfCompressNone, (*palette)(nil)
	for r.err == nil {
		id, length := r.u32(), r.u32()
		if id == xcfPropEnd {
			break
		}
		switch id {
		case xcfPropColormap:
			// some GIMP versions write a wrong length here
			n := int(r.u32())
			raw := r.next(3 * n)
			if raw != nil {
				colormap = newPalette(n)
				for i := 0; i < n; i++ {
					colormap.set(i, raw[3*i], raw[3*i+1], raw[3*i+2], tbl)
				}
			}
		case xcfPropCompression:
			if b := r.next(int(length)); len(b) > 0 {
				compression = int(b[0])
			}
		default:
			r.next(int(length))
		}
	}

	var pointers []int64
	for r.err == nil {
		p := r.ptr()
		if p == 0 {
			break
		}
		pointers = append(pointers, p)
	}
	if r.err != nil {
		return nil, diag.IO(req.Path, fmt.Errorf("reading xcf header: %w", r.err))
	}
	if len(pointers) == 0 {
		return nil, unsupported("image has no layers")
	}
	if compression != xcfCompressNone && compression != xcfCompressRLE && compression != xcfCompressZlib {
		return nil, unsupported("compression %d", compression)
	}

	layers := make([]xcfLayer, 0, len(pointers))
	for _, p := range pointers {
		l, err := readXCFLayer(r, p)
		if err != nil {
			return nil, diag.IO(req.Path, fmt.Errorf("reading xcf layer: %w", err))
		}
		layers = append(layers, l)
	}

	index := -1
	if req.Subimage >= 0 {
		if req.Subimage < len(layers) {
			index = req.Subimage
		} else {
			req.warnf("failed to read subimage %d from image file %q. Reading first available instead.", req.Subimage, req.Path)
		}
	}
	if index < 0 {
		for i, l := range layers {
			if l.width == canvasW && l.height == canvasH {
				index = i
			}
		}
	}
	if index < 0 {
		return nil, unsupported("no layer covers the %dx%d canvas", canvasW, canvasH)
	}
	layer := layers[index]
	if layer.kind.bpp() == 0 {
		return nil, unsupported("layer type %d", layer.kind)
	}
	if (layer.kind == xcfIndexed || layer.kind == xcfIndexedA) && colormap == nil {
		return nil, unsupported("indexed layer without a colormap")
	}
	return decodeXCFLayer(&req, r, layer, compression, colormap, tbl)
}

// xcfVersion parses the version tag and its terminating NUL.
func xcfVersion(tag []byte) (int, error) {
	if len(tag) != 5 || tag[4] != 0 {
		return 0, fmt.Errorf("bad version tag")
	}
	s := string(tag[:4])
	if s == "file" {
		return 0, nil
	}
	if s[0] != 'v' {
		return 0, fmt.Errorf("bad version tag %q", s)
	}
	v, err := strconv.Atoi(s[1:])
	if err != nil || v > xcfWideVersion {
		return 0, fmt.Errorf("version %q is not supported", s)
	}
	return v, nil
}

func xcf8BitPrecision(version int, p uint32) bool {
	if version == xcfPrecisionVersion {
		return p == 0
	}
	return p == 100 || p == 150
}

func readXCFLayer(r *xcfReader, off int64) (xcfLayer, error) {
	r.seek(off)
	l := xcfLayer{
		width:  int(r.u32()),
		height: int(r.u32()),
		kind:   xcfLayerType(r.u32()),
	}
	r.next(int(r.u32())) // name
	for r.err == nil {
		id, length := r.u32(), r.u32()
		if id == xcfPropEnd {
			break
		}
		r.next(int(length))
	}
	l.hierarchy = r.ptr()
	_ = r.ptr() // layer mask
	return l, r.err
}

func decodeXCFLayer(req *Request, r *xcfReader, layer xcfLayer, compression int, colormap *palette, tbl *gamma.Table) (*raster.Image, error) {
	asm, err := req.start(layer.width, layer.height)
	if err != nil {
		return nil, err
	}

	r.seek(layer.hierarchy)
	_, _ = r.u32(), r.u32()
	bpp := int(r.u32())
	r.seek(r.ptr()) // first level
	_, _ = r.u32(), r.u32()
	if r.err != nil {
		return nil, diag.IO(req.Path, fmt.Errorf("reading xcf hierarchy: %w", r.err))
	}
	if bpp != layer.kind.bpp() {
		return nil, diag.Unsupported(req.Path, "XCF", fmt.Sprintf("%d bytes per pixel for layer type %d", bpp, layer.kind))
	}

	tilesX := (layer.width + xcfTileSize - 1) / xcfTileSize
	tilesY := (layer.height + xcfTileSize - 1) / xcfTileSize
	tiles := make([]int64, 0, tilesX*tilesY)
	for len(tiles) < tilesX*tilesY && r.err == nil {
		p := r.ptr()
		if p == 0 {
			break
		}
		tiles = append(tiles, p)
	}

	s := raster.NewScanline(layer.width)
	band := make([][]byte, xcfTileSize)
	for i := range band {
		band[i] = make([]byte, layer.width*bpp)
	}
	tile := make([]byte, xcfTileSize*xcfTileSize*bpp)

	rows := 0
	truncated := false
	for ty := 0; ty < tilesY && !truncated; ty++ {
		th := min(xcfTileSize, layer.height-ty*xcfTileSize)
		for tx := 0; tx < tilesX; tx++ {
			i := ty*tilesX + tx
			if i >= len(tiles) {
				truncated = true
				break
			}
			tw := min(xcfTileSize, layer.width-tx*xcfTileSize)
			buf := tile[:tw*th*bpp]
			if err := readXCFTile(r.data, tiles[i], compression, buf); err != nil {
				truncated = true
				break
			}
			placeXCFTile(band, buf, tx*xcfTileSize, tw, th, bpp, compression == xcfCompressRLE)
		}
		if truncated {
			break
		}
		for y := 0; y < th; y++ {
			xcfRow(s, band[y], layer.kind, colormap, tbl)
			asm.CommitScanline(rows, s)
			rows++
		}
	}
	return req.finish(asm, rows, truncated || rows < layer.height), nil
}

func readXCFTile(data []byte, off int64, compression int, dst []byte) error {
	if off >= int64(len(data)) {
		return errXCFShort
	}
	src := data[off:]
	switch compression {
	case xcfCompressNone:
		if len(src) < len(dst) {
			return errXCFShort
		}
		copy(dst, src)
		return nil
	case xcfCompressRLE:
		return xcfRLE(src, dst)
	default:
		zr, err := zlib.NewReader(bytes.NewReader(src))
		if err != nil {
			return err
		}
		defer zr.Close()
		_, err = io.ReadFull(zr, dst)
		return err
	}
}

// xcfRLE expands the byte-plane run-length encoding used for XCF tiles.
func xcfRLE(src, dst []byte) error {
	n := 0
	for n < len(dst) {
		if len(src) == 0 {
			return errXCFShort
		}
		op := int(src[0])
		src = src[1:]
		switch {
		case op <= 126, op == 127:
			count := op + 1
			if op == 127 {
				if len(src) < 2 {
					return errXCFShort
				}
				count = int(src[0])<<8 | int(src[1])
				src = src[2:]
			}
			if len(src) < 1 || n+count > len(dst) {
				return errXCFShort
			}
			for i := 0; i < count; i++ {
				dst[n+i] = src[0]
			}
			src = src[1:]
			n += count
		default:
			count := 256 - op
			if op == 128 {
				if len(src) < 2 {
					return errXCFShort
				}
				count = int(src[0])<<8 | int(src[1])
				src = src[2:]
			}
			if len(src) < count || n+count > len(dst) {
				return errXCFShort
			}
			copy(dst[n:], src[:count])
			src = src[count:]
			n += count
		}
	}
	return nil
}

// placeXCFTile copies a decoded tile into the band of interleaved rows.
// RLE tiles are stored one byte plane after another.
func placeXCFTile(band [][]byte, tile []byte, left, tw, th, bpp int, planar bool) {
	plane := tw * th
	for y := 0; y < th; y++ {
		row := band[y][left*bpp:]
		for x := 0; x < tw; x++ {
			for c := 0; c < bpp; c++ {
				if planar {
					row[x*bpp+c] = tile[c*plane+y*tw+x]
				} else {
					row[x*bpp+c] = tile[(y*tw+x)*bpp+c]
				}
			}
		}
	}
}

func xcfRow(s *raster.Scanline, row []byte, kind xcfLayerType, colormap *palette, tbl *gamma.Table) {
	switch kind {
	case xcfRGB:
		_ = s.FromRaw(row, raster.RGB, raster.Forward, tbl)
	case xcfRGBA:
		_ = s.FromRaw(row, raster.RGBA, raster.Forward, tbl)
	case xcfGray:
		_ = s.FromRaw(row, raster.Gray, raster.Forward, tbl)
	case xcfGrayA:
		_ = s.FromRaw(row, raster.GrayAlpha, raster.Forward, tbl)
	default:
		step := kind.bpp()
		s.Gray = false
		s.HasAlpha = kind == xcfIndexedA
		for x := 0; x < s.Width; x++ {
			colormap.put(s, x, int(row[x*step]))
			if s.HasAlpha {
				s.Alpha[x] = row[x*step+1]
			}
		}
	}
}
