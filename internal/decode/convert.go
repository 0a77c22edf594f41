package decode

import (
	"image"
	"image/color"

	"github.com/ironsheep/image-import-mcp/internal/gamma"
	"github.com/ironsheep/image-import-mcp/internal/raster"
)

// fromImage copies a decoded standard library image into a raster image.
// 16-bit samples are reduced to their high byte before tbl is applied; alpha
// is stored un-premultiplied and never corrected. truncated marks an image
// the codec padded out after its stream ended early.
func fromImage(req *Request, src image.Image, tbl *gamma.Table, truncated bool) (*raster.Image, error) {
	b := src.Bounds()
	asm, err := req.start(b.Dx(), b.Dy())
	if err != nil {
		return nil, err
	}
	s := raster.NewScanline(b.Dx())

	for y := 0; y < b.Dy(); y++ {
		switch m := src.(type) {
		case *image.Gray:
			off := m.PixOffset(b.Min.X, b.Min.Y+y)
			_ = s.FromRaw(m.Pix[off:off+b.Dx()], raster.Gray, raster.Forward, tbl)
		case *image.NRGBA:
			off := m.PixOffset(b.Min.X, b.Min.Y+y)
			_ = s.FromRaw(m.Pix[off:off+4*b.Dx()], raster.RGBA, raster.Forward, tbl)
		default:
			genericRow(s, src, b.Min.X, b.Min.Y+y, tbl)
		}
		asm.CommitScanline(y, s)
	}
	return req.finish(asm, b.Dy(), truncated), nil
}

func genericRow(s *raster.Scanline, src image.Image, x0, y int, tbl *gamma.Table) {
	s.Gray = false
	s.HasAlpha = false
	for x := 0; x < s.Width; x++ {
		c := color.NRGBA64Model.Convert(src.At(x0+x, y)).(color.NRGBA64)
		s.SetPixel(x, uint8(c.R>>8), uint8(c.G>>8), uint8(c.B>>8), tbl)
		s.Alpha[x] = uint8(c.A >> 8)
		if c.A>>8 != 0xFF {
			s.HasAlpha = true
		}
	}
}

// palette maps color indices to gamma corrected RGB.
type palette struct {
	r, g, b []uint8
}

func newPalette(n int) *palette {
	return &palette{r: make([]uint8, n), g: make([]uint8, n), b: make([]uint8, n)}
}

func (p *palette) set(i int, r, g, b uint8, tbl *gamma.Table) {
	p.r[i], p.g[i], p.b[i] = tbl.Apply(r), tbl.Apply(g), tbl.Apply(b)
}

func (p *palette) len() int { return len(p.r) }

// put stores color index i at x. Indices past the table read as black.
func (p *palette) put(s *raster.Scanline, x, i int) {
	if i < 0 || i >= len(p.r) {
		s.Red[x], s.Green[x], s.Blue[x] = 0, 0, 0
		return
	}
	s.Red[x], s.Green[x], s.Blue[x] = p.r[i], p.g[i], p.b[i]
}
