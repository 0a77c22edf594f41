//go:build nogif

package decode

import "github.com/ironsheep/image-import-mcp/internal/sniff"

func newGIFDecoder() Decoder { return missing{format: sniff.GIF} }
