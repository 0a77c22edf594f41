package imaging

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/fumiama/imgsz"

	"github.com/ironsheep/image-import-mcp/internal/diag"
	"github.com/ironsheep/image-import-mcp/internal/importer"
	"github.com/ironsheep/image-import-mcp/internal/raster"
	"github.com/ironsheep/image-import-mcp/internal/sniff"
)

// Entry is a cached import together with the warnings its decode produced.
type Entry struct {
	*importer.Result
	Warnings []string
}

type cacheKey struct {
	name        string
	gamma       float64
	channels    raster.ChannelMask
	compression int
	dirs        string
}

// ImageCache keeps decoded images so repeated tool calls on the same file do
// not decode it again.
//
// Entries are keyed by the logical name together with the gamma, channel
// mask, compression hint and search paths of the request, since each of
// those changes the decoded image or the file that is found. Warnings are stored with the
// entry and returned on every hit.
//
// ImageCache is safe for concurrent use by multiple goroutines. Two callers
// missing on the same key at once may both decode; the last one wins.
//
// # Memory Management
//
// Cached images remain in memory until removed via Evict() or Clear().
//
// # Example Usage
//
//	cache := imaging.NewImageCache(importer.New())
//	entry, err := cache.Load("icons/folder.xpm", importer.Options{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(entry.Image.Width(), entry.Warnings)
type ImageCache struct {
	imp     *importer.Importer
	mu      sync.RWMutex
	entries map[cacheKey]*Entry
}

// NewImageCache creates an empty cache that imports through imp.
func NewImageCache(imp *importer.Importer) *ImageCache {
	return &ImageCache{
		imp:     imp,
		entries: make(map[cacheKey]*Entry),
	}
}

// Importer returns the importer behind the cache.
func (c *ImageCache) Importer() *importer.Importer { return c.imp }

// Load returns the cached import of name or imports it now.
//
// Failures are not cached: a file that appears later, or a codec that is
// enabled after a restart, is picked up by the next call.
func (c *ImageCache) Load(name string, opts importer.Options) (*Entry, error) {
	key := c.key(name, opts)

	c.mu.RLock()
	if e, ok := c.entries[key]; ok {
		c.mu.RUnlock()
		return e, nil
	}
	c.mu.RUnlock()

	rec := &diag.Recorder{}
	res, err := c.imp.ImportWith(name, opts, rec)
	if err != nil {
		return nil, err
	}
	e := &Entry{Result: res, Warnings: rec.Warnings()}

	c.mu.Lock()
	c.entries[key] = e
	c.mu.Unlock()

	return e, nil
}

// Clear removes all images from the cache.
func (c *ImageCache) Clear() {
	c.mu.Lock()
	c.entries = make(map[cacheKey]*Entry)
	c.mu.Unlock()
}

// Evict removes every cached variant of name.
func (c *ImageCache) Evict(name string) {
	c.mu.Lock()
	for k := range c.entries {
		if k.name == name {
			delete(c.entries, k)
		}
	}
	c.mu.Unlock()
}

// Len returns the number of cached entries.
func (c *ImageCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *ImageCache) key(name string, opts importer.Options) cacheKey {
	g := opts.Gamma
	if g <= 0 {
		g = c.imp.Gamma()
	}
	ch := opts.Channels
	if ch == 0 {
		ch = raster.MaskAll
	}
	return cacheKey{
		name:        name,
		gamma:       g,
		channels:    ch,
		compression: opts.Compression,
		dirs:        strings.Join(opts.SearchPaths, "\x00"),
	}
}

// ImageInfo contains metadata about an imported image.
type ImageInfo struct {
	// Width is the image width in pixels.
	Width int `json:"width"`

	// Height is the image height in pixels.
	Height int `json:"height"`

	// Format is the format found by content sniffing, e.g. "PNG" or "XPM.gz".
	Format string `json:"format"`

	// HasAlpha is true when at least one row stores alpha, that is when
	// some pixel is not fully opaque.
	HasAlpha bool `json:"has_alpha"`

	// Status is "complete" or "truncated".
	Status string `json:"status"`

	// DecodedRows is the number of rows read from the file. It equals
	// Height unless Status is "truncated".
	DecodedRows int `json:"decoded_rows"`

	// Subimage is the frame, directory or layer index taken from the name,
	// or -1.
	Subimage int `json:"subimage"`

	// Path is the file the logical name resolved to.
	Path string `json:"path"`

	// FileSizeBytes is the size of the file on disk in bytes.
	FileSizeBytes int64 `json:"file_size_bytes"`

	// Warnings lists non-fatal decode diagnostics.
	Warnings []string `json:"warnings,omitempty"`
}

// LoadImageInfo imports name through the cache and describes the result.
//
// Parameters:
//   - cache: The image cache to use for loading. Must not be nil.
//   - name: Logical file name; search paths and a ".N" subimage suffix apply.
//   - opts: Import options. Gamma does not change the metadata but selects
//     the cache entry that is reused later.
//
// Returns:
//   - *ImageInfo: Metadata about the image.
//   - error: Non-nil if the import fails or the file cannot be stat'd.
func LoadImageInfo(cache *ImageCache, name string, opts importer.Options) (*ImageInfo, error) {
	e, err := cache.Load(name, opts)
	if err != nil {
		return nil, err
	}

	stat, err := os.Stat(e.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	img := e.Image
	return &ImageInfo{
		Width:         img.Width(),
		Height:        img.Height(),
		Format:        e.Format.String(),
		HasAlpha:      img.HasAlpha(),
		Status:        img.Status().String(),
		DecodedRows:   img.DecodedRows(),
		Subimage:      e.Subimage,
		Path:          e.Path,
		FileSizeBytes: stat.Size(),
		Warnings:      e.Warnings,
	}, nil
}

// DimensionsResult contains the width and height of an image.
type DimensionsResult struct {
	// Width is the image width in pixels.
	Width int `json:"width"`

	// Height is the image height in pixels.
	Height int `json:"height"`

	// Format is the sniffed format.
	Format string `json:"format"`

	// Source is "header" when the size was read without decoding, or
	// "decode" when the image had to be imported.
	Source string `json:"source"`
}

// GetDimensions returns the dimensions of an image.
//
// PNG and JPEG sizes are read from the file header. Other formats, and any
// name with a subimage suffix, go through a full import via the cache.
func GetDimensions(cache *ImageCache, name string, opts importer.Options) (*DimensionsResult, error) {
	m, format, err := cache.imp.Sniff(name, opts)
	if err != nil {
		return nil, err
	}
	if m.Subimage < 0 && headerProbe(format) && cache.imp.Registry().Available(format) {
		if size, ok := probeSize(m.Path); ok {
			return &DimensionsResult{
				Width:  size.Width,
				Height: size.Height,
				Format: format.String(),
				Source: "header",
			}, nil
		}
	}

	e, err := cache.Load(name, opts)
	if err != nil {
		return nil, err
	}
	return &DimensionsResult{
		Width:  e.Image.Width(),
		Height: e.Image.Height(),
		Format: e.Format.String(),
		Source: "decode",
	}, nil
}

func headerProbe(f sniff.Format) bool {
	return f == sniff.PNG || f == sniff.JPEG
}

// probeSize reads the dimensions from the header. Sizes outside the import
// guard are rejected so the caller falls back to the decoder's error.
func probeSize(path string) (imgsz.Size, bool) {
	f, err := os.Open(path)
	if err != nil {
		return imgsz.Size{}, false
	}
	defer f.Close()

	size, _, err := imgsz.DecodeSize(f)
	if err != nil {
		return imgsz.Size{}, false
	}
	if raster.CheckSize(path, size.Width, size.Height) != nil {
		return imgsz.Size{}, false
	}
	return size, true
}
