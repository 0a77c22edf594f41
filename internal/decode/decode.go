// Package decode turns image files into raster.Image values.
//
// There is one Decoder per file format. A Registry maps the format reported
// by the sniffer to its decoder and knows which codecs were compiled in:
// building with the nopng, nojpeg, nogif, notiff or noxpm tags leaves the
// corresponding format registered but unavailable, and decoding it fails
// with a library-missing error instead of touching the file.
//
// # Decoder Contract
//
// Every decoder opens the file itself and closes it on every exit path. It
// validates the declared dimensions against raster.MaxDimension before
// allocating pixel storage and fails with a size-limit error otherwise.
//
// Decoders that read rows as a stream (BMP, ICO, PPM, XPM, GIF, XCF) stop at
// the first short read and return the rows decoded so far. The returned image
// then reports raster.Truncated and a warning is sent to the request's
// reporter. PNG, JPEG and TIFF go through whole-image codecs, so a damaged
// stream there is an I/O failure instead.
//
// # Thread Safety
//
// Decoders hold no state between calls; a Registry is read-only after
// NewRegistry. Both can be shared between goroutines.
package decode

import (
	"fmt"
	"io"
	"os"

	"github.com/ironsheep/image-import-mcp/internal/diag"
	"github.com/ironsheep/image-import-mcp/internal/gamma"
	"github.com/ironsheep/image-import-mcp/internal/raster"
	"github.com/ironsheep/image-import-mcp/internal/sniff"
)

// Request carries the parameters of one decode call.
type Request struct {
	// Path is the resolved file to read.
	Path string
	// Channels selects the stored channels; zero means all.
	Channels raster.ChannelMask
	// Gamma is the screen gamma. Values <= 0 mean gamma.Default.
	Gamma float64
	// Table is an optional precomputed table for Gamma. When nil it is
	// built from Gamma on demand.
	Table *gamma.Table
	// Subimage selects a frame, directory, entry or layer. Negative means
	// the format's default.
	Subimage int
	// Compression is recorded on the result.
	Compression int
	// Report receives warnings; nil discards them.
	Report diag.Reporter
}

func (r *Request) screenGamma() float64 {
	if r.Gamma <= 0 {
		return gamma.Default
	}
	return r.Gamma
}

func (r *Request) table() *gamma.Table {
	if r.Table != nil {
		return r.Table
	}
	return gamma.New(r.screenGamma())
}

func (r *Request) warnf(format string, args ...interface{}) {
	if r.Report != nil {
		r.Report.Warning(fmt.Sprintf(format, args...))
	}
}

func (r *Request) start(width, height int) (*raster.Assembler, error) {
	return raster.NewAssembler(r.Path, width, height, r.Compression, r.Channels)
}

// finish closes out a streamed decode, reporting a short read.
func (r *Request) finish(asm *raster.Assembler, rows int, truncated bool) *raster.Image {
	img := asm.Finish(truncated)
	if img.Status() == raster.Truncated {
		if r.Report != nil {
			r.Report.Warning(diag.Truncated(r.Path, rows, img.Height()).Error())
		}
	}
	return img
}

// partial returns an image of the declared size with no rows decoded. Codecs
// that decode the whole image at once have nothing to hand back when their
// stream ends early.
func (r *Request) partial(width, height int) (*raster.Image, error) {
	asm, err := r.start(width, height)
	if err != nil {
		return nil, err
	}
	return r.finish(asm, 0, true), nil
}

// Decoder decodes one file format.
type Decoder interface {
	Decode(req Request) (*raster.Image, error)
}

// streamDecoder is implemented by decoders that can read a format embedded
// in another container.
type streamDecoder interface {
	decodeStream(req *Request, r io.Reader) (*raster.Image, error)
}

// DecoderFunc adapts a function to Decoder.
type DecoderFunc func(req Request) (*raster.Image, error)

func (f DecoderFunc) Decode(req Request) (*raster.Image, error) { return f(req) }

// missing stands in for a codec that is not compiled in or was disabled.
type missing struct {
	format sniff.Format
}

func (m missing) Decode(req Request) (*raster.Image, error) {
	return nil, diag.LibraryMissing(req.Path, m.format.String())
}

func isMissing(d Decoder) bool {
	_, ok := d.(missing)
	return ok
}

// Capability describes one format in a Registry.
type Capability struct {
	Format      sniff.Format `json:"-"`
	Name        string       `json:"format"`
	Implemented bool         `json:"implemented"`
	Available   bool         `json:"available"`
}

// Registry maps formats to decoders.
type Registry struct {
	decoders map[sniff.Format]Decoder
}

// NewRegistry builds the registry of compiled-in decoders. Formats listed in
// disabled are registered as unavailable.
func NewRegistry(disabled ...sniff.Format) *Registry {
	png := newPNGDecoder()
	xpm := newXPMDecoder()
	r := &Registry{decoders: map[sniff.Format]Decoder{
		sniff.XPM:   xpm,
		sniff.GZXPM: xpm,
		sniff.ZXPM:  xpm,
		sniff.PNG:   png,
		sniff.JPEG:  newJPEGDecoder(),
		sniff.XCF:   xcfDecoder{},
		sniff.PPM:   ppmDecoder{},
		sniff.PNM:   ppmDecoder{},
		sniff.BMP:   bmpDecoder{},
		sniff.ICO:   icoDecoder{},
		sniff.CUR:   icoDecoder{},
		sniff.GIF:   newGIFDecoder(),
		sniff.TIFF:  newTIFFDecoder(),
	}}
	for _, f := range disabled {
		if _, ok := r.decoders[f]; ok {
			r.decoders[f] = missing{format: f}
		}
	}
	// icons may embed PNG data and share its availability
	for _, f := range []sniff.Format{sniff.ICO, sniff.CUR} {
		if !isMissing(r.decoders[f]) {
			r.decoders[f] = icoDecoder{png: r.decoders[sniff.PNG]}
		}
	}
	return r
}

// Available reports whether f can be decoded by this registry.
func (r *Registry) Available(f sniff.Format) bool {
	d, ok := r.decoders[f]
	return ok && !isMissing(d)
}

// Lookup returns the decoder for f. It fails with a format-unknown error for
// sniff.Unknown, a format-unsupported error for recognized formats without a
// decoder, and a library-missing error for formats whose codec is absent.
func (r *Registry) Lookup(f sniff.Format, path string) (Decoder, error) {
	if f == sniff.Unknown {
		return nil, diag.Unknown(path)
	}
	d, ok := r.decoders[f]
	if !ok {
		return nil, diag.Unsupported(path, f.String(), "")
	}
	if isMissing(d) {
		return nil, diag.LibraryMissing(path, f.String())
	}
	return d, nil
}

// Capabilities lists every known format with its availability.
func (r *Registry) Capabilities() []Capability {
	caps := make([]Capability, 0, len(sniff.Formats))
	for _, f := range sniff.Formats {
		_, implemented := r.decoders[f]
		caps = append(caps, Capability{
			Format:      f,
			Name:        f.String(),
			Implemented: implemented,
			Available:   r.Available(f),
		})
	}
	return caps
}

func openFile(path string) (*os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, diag.OpenFailed(path, err)
	}
	return f, nil
}
