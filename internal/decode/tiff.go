//go:build !notiff

package decode

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"strings"

	"golang.org/x/image/tiff"

	"github.com/ironsheep/image-import-mcp/internal/diag"
	"github.com/ironsheep/image-import-mcp/internal/raster"
)

type tiffDecoder struct{}

func newTIFFDecoder() Decoder { return tiffDecoder{} }

// Decode reads one directory of a TIFF file. The codec only ever reads the
// first directory, so a subimage is selected by rewriting the header's
// first-directory offset on a copy of the file.
func (tiffDecoder) Decode(req Request) (*raster.Image, error) {
	f, err := openFile(req.Path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, diag.IO(req.Path, err)
	}
	if req.Subimage > 0 {
		if patched, ok := selectTIFFDirectory(data, req.Subimage); ok {
			data = patched
		} else {
			req.warnf("failed to read subimage %d from image file %q. Reading first available instead.", req.Subimage, req.Path)
		}
	}

	cfg, err := tiff.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, tiffError(req.Path, err)
	}
	if err := raster.CheckSize(req.Path, cfg.Width, cfg.Height); err != nil {
		return nil, err
	}
	src, err := tiff.Decode(bytes.NewReader(data))
	if tiffShort(err) {
		return req.partial(cfg.Width, cfg.Height)
	}
	if err != nil {
		return nil, tiffError(req.Path, err)
	}
	return fromImage(&req, src, req.table(), false)
}

// tiffShort reports whether err means the strip or tile data ended early.
func tiffShort(err error) bool {
	if err == nil {
		return false
	}
	var fe tiff.FormatError
	if errors.As(err, &fe) && strings.Contains(string(fe), "not enough pixel data") {
		return true
	}
	return errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF)
}

func tiffError(path string, err error) error {
	var fe tiff.FormatError
	var ue tiff.UnsupportedError
	switch {
	case errors.As(err, &fe), errors.As(err, &ue):
		return diag.Unsupported(path, "TIFF", err.Error())
	}
	return diag.IO(path, err)
}

// selectTIFFDirectory follows the directory chain to entry n and returns a
// copy of data whose header points at it.
func selectTIFFDirectory(data []byte, n int) ([]byte, bool) {
	if len(data) < 8 {
		return nil, false
	}
	var order binary.ByteOrder
	switch string(data[:2]) {
	case "II":
		order = binary.LittleEndian
	case "MM":
		order = binary.BigEndian
	default:
		return nil, false
	}
	off := order.Uint32(data[4:])
	for i := 0; i < n; i++ {
		if off == 0 || uint64(off)+2 > uint64(len(data)) {
			return nil, false
		}
		count := uint64(order.Uint16(data[off:]))
		next := uint64(off) + 2 + 12*count
		if next+4 > uint64(len(data)) {
			return nil, false
		}
		off = order.Uint32(data[next:])
	}
	if off == 0 || uint64(off) >= uint64(len(data)) {
		return nil, false
	}
	out := append([]byte(nil), data...)
	order.PutUint32(out[4:], off)
	return out, true
}
