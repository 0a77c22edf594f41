//go:build !nojpeg

package decode

import (
	"bytes"
	"fmt"
	"io"

	"github.com/gen2brain/jpegn"

	"github.com/ironsheep/image-import-mcp/internal/diag"
	"github.com/ironsheep/image-import-mcp/internal/raster"
)

type jpegDecoder struct{}

func newJPEGDecoder() Decoder { return jpegDecoder{} }

// Decode reads the whole stream and hands it to jpegn. Any panic escaping
// the codec is turned into an I/O error; the file is closed on every path.
func (jpegDecoder) Decode(req Request) (img *raster.Image, err error) {
	f, err := openFile(req.Path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	defer func() {
		if r := recover(); r != nil {
			img = nil
			err = diag.IO(req.Path, fmt.Errorf("jpeg decoder failed: %v", r))
		}
	}()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, diag.IO(req.Path, err)
	}
	cfg, err := jpegn.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, diag.IO(req.Path, fmt.Errorf("jpeg header: %w", err))
	}
	if err := raster.CheckSize(req.Path, cfg.Width, cfg.Height); err != nil {
		return nil, err
	}

	// jpegn pads a baseline scan that runs out of data, so a missing end
	// marker is what tells a cut file from a complete one.
	ended := jpegEnded(data)
	src, err := jpegn.Decode(bytes.NewReader(data), &jpegn.Options{})
	if err != nil {
		if !ended {
			return req.partial(cfg.Width, cfg.Height)
		}
		return nil, diag.IO(req.Path, fmt.Errorf("jpeg data: %w", err))
	}
	return fromImage(&req, src, req.table(), !ended)
}

// jpegEnded reports whether data closes with an EOI marker. Trailing zero
// padding is ignored.
func jpegEnded(data []byte) bool {
	return bytes.HasSuffix(bytes.TrimRight(data, "\x00"), []byte{0xFF, 0xD9})
}
