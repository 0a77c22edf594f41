// Package importer is the single entry point of the import pipeline.
//
// Import resolves a logical name with the locator, classifies the file with
// the sniffer and hands it to the decoder registered for that format:
//
//	imp := importer.New(importer.WithSearchPaths(dirs), importer.WithGamma(2.2))
//	res, err := imp.Import("icons/folder.xpm", importer.Options{})
//	if err != nil {
//	    return err
//	}
//	img := res.Image // *raster.Image, an image.Image as well
//
// Every failure is returned and also reported once to the importer's
// diag.Reporter. Truncated files are not failures; check
// res.Image.Status().
package importer

import (
	"errors"

	"github.com/ironsheep/image-import-mcp/internal/decode"
	"github.com/ironsheep/image-import-mcp/internal/diag"
	"github.com/ironsheep/image-import-mcp/internal/gamma"
	"github.com/ironsheep/image-import-mcp/internal/locate"
	"github.com/ironsheep/image-import-mcp/internal/raster"
	"github.com/ironsheep/image-import-mcp/internal/sniff"
)

// Options are the per-call import parameters.
type Options struct {
	// Channels selects the stored channels; zero means all.
	Channels raster.ChannelMask
	// Gamma overrides the importer's screen gamma when positive.
	Gamma float64
	// Compression is recorded on the resulting image.
	Compression int
	// SearchPaths are tried before the importer's own directories.
	SearchPaths []string
}

// Result is a decoded image with the details of how it was found.
type Result struct {
	Image    *raster.Image
	Path     string
	Format   sniff.Format
	Subimage int
}

// Importer dispatches import requests. It is safe for concurrent use.
type Importer struct {
	registry *decode.Registry
	report   diag.Reporter
	dirs     []string
	gamma    float64
}

// Option configures an Importer.
type Option func(*Importer)

// WithRegistry replaces the default decoder registry.
func WithRegistry(r *decode.Registry) Option {
	return func(i *Importer) { i.registry = r }
}

// WithReporter sets the diagnostic sink.
func WithReporter(r diag.Reporter) Option {
	return func(i *Importer) { i.report = r }
}

// WithSearchPaths sets the default search directories.
func WithSearchPaths(dirs []string) Option {
	return func(i *Importer) { i.dirs = append([]string(nil), dirs...) }
}

// WithGamma sets the default screen gamma. Non-positive values are ignored.
func WithGamma(g float64) Option {
	return func(i *Importer) {
		if g > 0 {
			i.gamma = g
		}
	}
}

// New builds an importer with every compiled-in codec, no search
// directories, gamma.Default and a discarding reporter.
func New(opts ...Option) *Importer {
	i := &Importer{gamma: gamma.Default}
	for _, opt := range opts {
		opt(i)
	}
	if i.registry == nil {
		i.registry = decode.NewRegistry()
	}
	if i.report == nil {
		i.report = diag.Discard
	}
	return i
}

// Registry returns the decoder registry in use.
func (i *Importer) Registry() *decode.Registry { return i.registry }

// Gamma returns the default screen gamma.
func (i *Importer) Gamma() float64 { return i.gamma }

// Locate resolves name against opts.SearchPaths followed by the importer's
// directories.
func (i *Importer) Locate(name string, opts Options) (locate.Match, error) {
	return locate.Find(name, i.searchPaths(opts))
}

// Sniff resolves name and classifies the file it points at.
func (i *Importer) Sniff(name string, opts Options) (locate.Match, sniff.Format, error) {
	m, err := i.Locate(name, opts)
	if err != nil {
		return m, sniff.Unknown, err
	}
	f, err := sniff.File(m.Path)
	return m, f, err
}

// Import locates, classifies and decodes name. Decoder warnings go to the
// importer's reporter; a failure is reported to it exactly once.
func (i *Importer) Import(name string, opts Options) (*Result, error) {
	return i.ImportWith(name, opts, nil)
}

// ImportWith is Import with an extra reporter that receives the same
// diagnostics for this call only.
func (i *Importer) ImportWith(name string, opts Options, extra diag.Reporter) (*Result, error) {
	report := i.report
	if extra != nil {
		report = diag.Tee(i.report, extra)
	}
	res, err := i.run(name, opts, report)
	if err != nil {
		report.Error(err.Error())
		return nil, err
	}
	return res, nil
}

func (i *Importer) run(name string, opts Options, report diag.Reporter) (*Result, error) {
	m, format, err := i.Sniff(name, opts)
	if err != nil {
		return nil, err
	}
	d, err := i.registry.Lookup(format, m.Path)
	if err != nil {
		return nil, err
	}

	g := i.gamma
	if opts.Gamma > 0 {
		g = opts.Gamma
	}
	img, err := d.Decode(decode.Request{
		Path:        m.Path,
		Channels:    opts.Channels,
		Gamma:       g,
		Table:       gamma.New(g),
		Subimage:    m.Subimage,
		Compression: opts.Compression,
		Report:      report,
	})
	if err != nil {
		return nil, err
	}
	if img == nil {
		return nil, diag.IO(m.Path, errors.New("decoder returned no image"))
	}
	return &Result{Image: img, Path: m.Path, Format: format, Subimage: m.Subimage}, nil
}

func (i *Importer) searchPaths(opts Options) []string {
	if len(opts.SearchPaths) == 0 {
		return i.dirs
	}
	dirs := make([]string, 0, len(opts.SearchPaths)+len(i.dirs))
	dirs = append(dirs, opts.SearchPaths...)
	return append(dirs, i.dirs...)
}
