//go:build notiff

package decode

import "github.com/ironsheep/image-import-mcp/internal/sniff"

func newTIFFDecoder() Decoder { return missing{format: sniff.TIFF} }
