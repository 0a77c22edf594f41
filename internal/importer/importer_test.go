package importer

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/gif"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/ironsheep/image-import-mcp/internal/decode"
	"github.com/ironsheep/image-import-mcp/internal/diag"
	"github.com/ironsheep/image-import-mcp/internal/raster"
	"github.com/ironsheep/image-import-mcp/internal/sniff"
)

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

func pngBytes(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode PNG: %v", err)
	}
	return buf.Bytes()
}

func halfClear() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.NRGBA{255, 0, 0, 255})
	img.Set(1, 0, color.NRGBA{0, 255, 0, 255})
	img.Set(0, 1, color.NRGBA{0, 0, 255, 128})
	img.Set(1, 1, color.NRGBA{255, 255, 255, 0})
	return img
}

func TestImport_UnknownFormat(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "blank.dat", make([]byte, 8))

	rec := &diag.Recorder{}
	imp := New(WithReporter(rec), WithSearchPaths([]string{dir}))
	res, err := imp.Import("blank.dat", Options{})
	if !errors.Is(err, diag.ErrFormatUnknown) {
		t.Fatalf("Import error = %v, want format unknown", err)
	}
	if res != nil {
		t.Error("expected no result")
	}
	if got := rec.Errors(); len(got) != 1 {
		t.Errorf("reported errors = %v, want exactly one", got)
	}
}

func TestImport_PNGFromSearchPath(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "logo.png", pngBytes(t, halfClear()))

	imp := New(WithSearchPaths([]string{dir}))
	res, err := imp.Import("logo.png", Options{})
	if err != nil {
		t.Fatalf("Import error: %v", err)
	}
	if res.Format != sniff.PNG {
		t.Errorf("format = %v, want PNG", res.Format)
	}
	if res.Path != filepath.Join(dir, "logo.png") {
		t.Errorf("path = %q", res.Path)
	}
	if res.Subimage != -1 {
		t.Errorf("subimage = %d, want -1", res.Subimage)
	}
	img := res.Image
	if img.Width() != 2 || img.Height() != 2 {
		t.Fatalf("size = %dx%d, want 2x2", img.Width(), img.Height())
	}
	if img.Row(0).Alpha != nil {
		t.Error("opaque row 0 should have no alpha")
	}
	if got := img.NRGBAAt(0, 1); got != (color.NRGBA{0, 0, 255, 128}) {
		t.Errorf("pixel (0,1) = %v", got)
	}
}

func TestImport_PerCallSearchPathWins(t *testing.T) {
	first, second := t.TempDir(), t.TempDir()
	writeFile(t, second, "logo.png", pngBytes(t, halfClear()))
	writeFile(t, first, "logo.png", pngBytes(t, image.NewGray(image.Rect(0, 0, 5, 3))))

	imp := New(WithSearchPaths([]string{second}))
	res, err := imp.Import("logo.png", Options{SearchPaths: []string{first}})
	if err != nil {
		t.Fatalf("Import error: %v", err)
	}
	if res.Image.Width() != 5 {
		t.Errorf("width = %d, want the 5 pixel image from the per-call path", res.Image.Width())
	}
}

func TestImport_SubimageSuffix(t *testing.T) {
	dir := t.TempDir()
	pal := color.Palette{color.RGBA{255, 0, 0, 255}, color.RGBA{0, 0, 255, 255}}
	frame := func(index uint8) *image.Paletted {
		m := image.NewPaletted(image.Rect(0, 0, 2, 2), pal)
		for i := range m.Pix {
			m.Pix[i] = index
		}
		return m
	}
	var buf bytes.Buffer
	err := gif.EncodeAll(&buf, &gif.GIF{
		Image: []*image.Paletted{frame(0), frame(1)},
		Delay: []int{0, 0},
	})
	if err != nil {
		t.Fatal(err)
	}
	writeFile(t, dir, "anim.gif", buf.Bytes())

	imp := New(WithSearchPaths([]string{dir}))
	res, err := imp.Import("anim.gif.1", Options{})
	if err != nil {
		t.Fatalf("Import error: %v", err)
	}
	if res.Subimage != 1 {
		t.Errorf("subimage = %d, want 1", res.Subimage)
	}
	if got := res.Image.NRGBAAt(0, 0); got != (color.NRGBA{0, 0, 255, 255}) {
		t.Errorf("pixel = %v, want the second frame's blue", got)
	}
}

func TestImport_Failures(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "logo.png", pngBytes(t, halfClear()))
	writeFile(t, dir, "scan.pcx", []byte{0x0A, 5, 1, 8, 0, 0, 0, 0})

	tests := []struct {
		name string
		file string
		opts []Option
		want error
	}{
		{"not found", "missing.png", nil, diag.ErrNotFound},
		{"not found is io", "missing.png", nil, diag.ErrIO},
		{"library missing", "logo.png", []Option{WithRegistry(decode.NewRegistry(sniff.PNG))}, diag.ErrLibraryMissing},
		{"unsupported", "scan.pcx", nil, diag.ErrFormatUnsupported},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &diag.Recorder{}
			opts := append([]Option{WithReporter(rec), WithSearchPaths([]string{dir})}, tt.opts...)
			_, err := New(opts...).Import(tt.file, Options{})
			if !errors.Is(err, tt.want) {
				t.Fatalf("Import error = %v, want %v", err, tt.want)
			}
			if len(rec.Errors()) != 1 {
				t.Errorf("reported errors = %v, want one", rec.Errors())
			}
		})
	}
}

func TestImport_ChannelMaskDropsAlpha(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "logo.png", pngBytes(t, halfClear()))

	res, err := New(WithSearchPaths([]string{dir})).Import("logo.png", Options{Channels: raster.MaskRGB})
	if err != nil {
		t.Fatalf("Import error: %v", err)
	}
	if res.Image.HasAlpha() {
		t.Error("alpha was stored although only RGB was requested")
	}
	if got := res.Image.NRGBAAt(1, 1); got.A != 255 {
		t.Errorf("pixel (1,1) alpha = %d, want opaque", got.A)
	}
}

func TestImport_GammaOverride(t *testing.T) {
	dir := t.TempDir()
	gray := image.NewGray(image.Rect(0, 0, 1, 1))
	gray.Pix[0] = 64
	writeFile(t, dir, "dim.png", pngBytes(t, gray))

	imp := New(WithSearchPaths([]string{dir}))
	plain, err := imp.Import("dim.png", Options{})
	if err != nil {
		t.Fatal(err)
	}
	bright, err := imp.Import("dim.png", Options{Gamma: 2.2})
	if err != nil {
		t.Fatal(err)
	}
	if p, b := plain.Image.NRGBAAt(0, 0).R, bright.Image.NRGBAAt(0, 0).R; p != 64 || b <= p {
		t.Errorf("samples = %d (plain), %d (gamma 2.2); want 64 and brighter", p, b)
	}
}

func TestImportWith_ExtraReporter(t *testing.T) {
	dir := t.TempDir()
	base, extra := &diag.Recorder{}, &diag.Recorder{}
	imp := New(WithReporter(base), WithSearchPaths([]string{dir}))

	if _, err := imp.ImportWith("nothing.png", Options{}, extra); err == nil {
		t.Fatal("expected an error")
	}
	if len(base.Errors()) != 1 || len(extra.Errors()) != 1 {
		t.Errorf("errors = %v / %v, want one each", base.Errors(), extra.Errors())
	}
}

func TestNew_Defaults(t *testing.T) {
	imp := New(WithGamma(-3))
	if imp.Gamma() != 1.0 {
		t.Errorf("gamma = %v, want 1.0", imp.Gamma())
	}
	if imp.Registry() == nil {
		t.Error("registry is nil")
	}
}
