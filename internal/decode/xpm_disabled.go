//go:build noxpm

package decode

import "github.com/ironsheep/image-import-mcp/internal/sniff"

func newXPMDecoder() Decoder { return missing{format: sniff.XPM} }
