package raster

import (
	"errors"
	"testing"

	"github.com/ironsheep/image-import-mcp/internal/diag"
	"github.com/ironsheep/image-import-mcp/internal/gamma"
)

func TestNewAssembler_SizeGuard(t *testing.T) {
	tests := []struct {
		name string
		w, h int
		ok   bool
	}{
		{"smallest", 1, 1, true},
		{"max", MaxDimension, MaxDimension, true},
		{"zero width", 0, 10, false},
		{"negative height", 10, -1, false},
		{"too wide", MaxDimension + 1, 1, false},
		{"too tall", 1, MaxDimension + 1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewAssembler("x", tt.w, tt.h, 0, MaskAll)
			if tt.ok && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tt.ok && !errors.Is(err, diag.ErrSizeLimit) {
				t.Fatalf("expected size limit error, got %v", err)
			}
		})
	}
}

func TestCommitScanline_AlphaOnlyWhenNeeded(t *testing.T) {
	asm, err := NewAssembler("x", 3, 2, 0, MaskAll)
	if err != nil {
		t.Fatal(err)
	}
	s := NewScanline(3)

	// row 0: RGBA but fully opaque
	if err := s.FromRaw([]byte{1, 2, 3, 255, 4, 5, 6, 255, 7, 8, 9, 255}, RGBA, Forward, nil); err != nil {
		t.Fatal(err)
	}
	asm.CommitScanline(0, s)

	// row 1: one translucent pixel
	if err := s.FromRaw([]byte{1, 2, 3, 255, 4, 5, 6, 10, 7, 8, 9, 255}, RGBA, Forward, nil); err != nil {
		t.Fatal(err)
	}
	asm.CommitScanline(1, s)

	img := asm.Finish(false)
	if img.Row(0).Alpha != nil {
		t.Error("opaque row should not store alpha")
	}
	if got := img.Row(1).Alpha; got == nil || got[1] != 10 || got[0] != 255 {
		t.Errorf("row 1 alpha = %v", got)
	}
	if img.Status() != Complete || img.DecodedRows() != 2 {
		t.Errorf("status=%v rows=%d", img.Status(), img.DecodedRows())
	}
	if !img.HasAlpha() {
		t.Error("HasAlpha should be true")
	}
}

func TestCommitScanline_MaskDropsAlpha(t *testing.T) {
	asm, _ := NewAssembler("x", 1, 1, 0, MaskRGB)
	s := NewScanline(1)
	_ = s.FromRaw([]byte{9, 9, 9, 0}, RGBA, Forward, nil)
	asm.CommitScanline(0, s)

	img := asm.Finish(false)
	if img.HasAlpha() {
		t.Error("alpha stored although not requested")
	}
}

func TestCommittedRowIsCopied(t *testing.T) {
	asm, _ := NewAssembler("x", 2, 1, 0, 0)
	s := NewScanline(2)
	_ = s.FromRaw([]byte{10, 20, 30, 40, 50, 60}, RGB, Forward, nil)
	asm.CommitScanline(0, s)

	_ = s.FromRaw([]byte{0, 0, 0, 0, 0, 0}, RGB, Forward, nil)
	img := asm.Finish(false)
	if img.Row(0).Red[0] != 10 {
		t.Error("scanline reuse overwrote committed row")
	}
}

func TestFinish_MissingRowsMarkTruncated(t *testing.T) {
	asm, _ := NewAssembler("x", 2, 3, 0, MaskAll)
	s := NewScanline(2)
	_ = s.FromRaw([]byte{1, 1, 1, 2, 2, 2}, RGB, Forward, nil)
	asm.CommitScanline(0, s)
	// partial row: red only
	asm.CommitRow(ChannelRed, 1, s.Red)

	img := asm.Finish(false)
	if img.Status() != Truncated {
		t.Errorf("status = %v, want truncated", img.Status())
	}
	if img.DecodedRows() != 1 {
		t.Errorf("DecodedRows = %d, want 1", img.DecodedRows())
	}
	if img.Row(1).Present() {
		t.Error("partially committed row should be cleared")
	}
	if c := img.NRGBAAt(0, 2); c.A != 0 {
		t.Errorf("missing row pixel = %+v, want transparent", c)
	}
	if img.Height() != 3 {
		t.Errorf("Height = %d", img.Height())
	}
}

func TestFromRaw_ReversedOrder(t *testing.T) {
	s := NewScanline(2)
	if err := s.FromRaw([]byte{1, 2, 3, 4, 5, 6}, RGB, Reversed, nil); err != nil {
		t.Fatal(err)
	}
	if s.Red[0] != 3 || s.Green[0] != 2 || s.Blue[0] != 1 {
		t.Errorf("pixel 0 = %d,%d,%d want 3,2,1", s.Red[0], s.Green[0], s.Blue[0])
	}
	if s.Red[1] != 6 || s.Blue[1] != 4 {
		t.Errorf("pixel 1 = %d,%d,%d", s.Red[1], s.Green[1], s.Blue[1])
	}
}

func TestFromRaw_GrayReplicates(t *testing.T) {
	s := NewScanline(3)
	if err := s.FromRaw([]byte{0, 200, 100, 50, 255, 0}, GrayAlpha, Forward, nil); err != nil {
		t.Fatal(err)
	}
	for x := 0; x < 3; x++ {
		if s.Red[x] != s.Green[x] || s.Green[x] != s.Blue[x] {
			t.Errorf("pixel %d not gray: %d %d %d", x, s.Red[x], s.Green[x], s.Blue[x])
		}
	}
	if s.Alpha[0] != 200 || s.Alpha[2] != 0 {
		t.Errorf("alpha = %v", s.Alpha)
	}
	if !s.Gray || !s.HasAlpha {
		t.Error("flags not set")
	}
}

func TestFromRaw_GammaSkipsAlpha(t *testing.T) {
	tbl := gamma.New(2.2)
	s := NewScanline(1)
	if err := s.FromRaw([]byte{128, 128, 128, 128}, RGBA, Forward, tbl); err != nil {
		t.Fatal(err)
	}
	if s.Red[0] != tbl[128] {
		t.Errorf("red = %d, want %d", s.Red[0], tbl[128])
	}
	if s.Alpha[0] != 128 {
		t.Errorf("alpha = %d, want unmodified 128", s.Alpha[0])
	}
}

func TestFromRaw_ShortRow(t *testing.T) {
	s := NewScanline(4)
	if err := s.FromRaw(make([]byte, 11), RGB, Forward, nil); err == nil {
		t.Error("expected error for short row")
	}
}

func TestToNRGBA(t *testing.T) {
	asm, _ := NewAssembler("x", 1, 1, 0, MaskAll)
	s := NewScanline(1)
	_ = s.FromRaw([]byte{5, 6, 7}, RGB, Forward, nil)
	asm.CommitScanline(0, s)
	img := asm.Finish(false)

	n := img.ToNRGBA()
	if got := n.Pix[:4]; got[0] != 5 || got[1] != 6 || got[2] != 7 || got[3] != 255 {
		t.Errorf("pix = %v", got)
	}
}
