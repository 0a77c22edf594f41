//go:build nopng

package decode

import "github.com/ironsheep/image-import-mcp/internal/sniff"

func newPNGDecoder() Decoder { return missing{format: sniff.PNG} }
