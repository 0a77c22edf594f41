//go:build nojpeg

package decode

import "github.com/ironsheep/image-import-mcp/internal/sniff"

func newJPEGDecoder() Decoder { return missing{format: sniff.JPEG} }
