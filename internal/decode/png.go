//go:build !nopng

package decode

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"image/png"
	"io"
	"strings"

	"github.com/ironsheep/image-import-mcp/internal/diag"
	"github.com/ironsheep/image-import-mcp/internal/gamma"
	"github.com/ironsheep/image-import-mcp/internal/raster"
)

// srgbFileGamma is the encoding gamma implied by an sRGB chunk.
const srgbFileGamma = 1.0 / 2.2

type pngDecoder struct{}

func newPNGDecoder() Decoder { return pngDecoder{} }

func (d pngDecoder) Decode(req Request) (*raster.Image, error) {
	f, err := openFile(req.Path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return d.decodeStream(&req, f)
}

func (pngDecoder) decodeStream(req *Request, r io.Reader) (*raster.Image, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, diag.IO(req.Path, err)
	}
	cfg, err := png.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, pngError(req.Path, err)
	}
	if err := raster.CheckSize(req.Path, cfg.Width, cfg.Height); err != nil {
		return nil, err
	}
	img, err := png.Decode(bytes.NewReader(data))
	if pngShort(err) {
		return req.partial(cfg.Width, cfg.Height)
	}
	if err != nil {
		return nil, pngError(req.Path, err)
	}

	tbl := req.Table
	if fileGamma, ok := pngFileGamma(data); ok || tbl == nil {
		tbl = gamma.New(req.screenGamma() * fileGamma)
	}
	return fromImage(req, img, tbl, false)
}

// pngError classifies a codec failure.
func pngError(path string, err error) error {
	if pngShort(err) {
		return diag.IO(path, fmt.Errorf("png stream ended early: %w", err))
	}
	return diag.Unsupported(path, "PNG", err.Error())
}

// pngShort reports whether err means the stream ended early. The codec
// reports a stream that ends inside the image data as a format error, so
// that case is matched by text.
func pngShort(err error) bool {
	if err == nil {
		return false
	}
	var fe png.FormatError
	if errors.As(err, &fe) && strings.Contains(string(fe), "not enough pixel data") {
		return true
	}
	return errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF)
}

// pngFileGamma scans the chunks ahead of the first IDAT for the encoding
// gamma. An sRGB chunk wins over gAMA. It reports false, with gamma 1.0, when
// neither is present.
func pngFileGamma(data []byte) (float64, bool) {
	if len(data) < len(pngSignature) || !bytes.Equal(data[:len(pngSignature)], pngSignature) {
		return 1.0, false
	}
	var gama float64
	for src := data[len(pngSignature):]; len(src) >= 12; {
		n := binary.BigEndian.Uint32(src)
		if uint64(len(src)) < 12+uint64(n) {
			break
		}
		switch string(src[4:8]) {
		case "IDAT":
			if gama > 0 {
				return gama, true
			}
			return 1.0, false
		case "sRGB":
			return srgbFileGamma, true
		case "gAMA":
			if n == 4 {
				if v := binary.BigEndian.Uint32(src[8:]); v != 0 {
					gama = float64(v) / 100000
				}
			}
		}
		src = src[12+n:]
	}
	if gama > 0 {
		return gama, true
	}
	return 1.0, false
}
