//go:build !nojpeg

package decode

import (
	"bytes"
	"errors"
	"image"
	"image/jpeg"
	"io"
	"testing"

	"github.com/ironsheep/image-import-mcp/internal/diag"
	"github.com/ironsheep/image-import-mcp/internal/raster"
)

func TestJPEG_Color(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 16, 8))
	for i := 0; i < len(src.Pix); i += 4 {
		src.Pix[i], src.Pix[i+1], src.Pix[i+2], src.Pix[i+3] = 200, 40, 90, 255
	}
	path := encodeFixture(t, "solid.jpg", func(w io.Writer) error {
		return jpeg.Encode(w, src, &jpeg.Options{Quality: 100})
	})
	img := mustDecode(t, newJPEGDecoder(), request(path))

	assertSize(t, img, 16, 8)
	assertNoAlphaRows(t, img)
	got := img.NRGBAAt(5, 5)
	for _, c := range []struct{ got, want uint8 }{{got.R, 200}, {got.G, 40}, {got.B, 90}} {
		if d := int(c.got) - int(c.want); d < -4 || d > 4 {
			t.Fatalf("pixel = %v, want close to {200 40 90}", got)
		}
	}
}

func TestJPEG_GrayIsGray(t *testing.T) {
	src := image.NewGray(image.Rect(0, 0, 8, 8))
	for i := range src.Pix {
		src.Pix[i] = uint8(i * 3)
	}
	path := encodeFixture(t, "gray.jpg", func(w io.Writer) error { return jpeg.Encode(w, src, nil) })
	img := mustDecode(t, newJPEGDecoder(), request(path))
	assertSize(t, img, 8, 8)
	assertGrayPixels(t, img)
}

func TestJPEG_GarbageIsIOError(t *testing.T) {
	path := writeFixture(t, "junk.jpg", []byte("this is not a jpeg stream"))
	img, err := newJPEGDecoder().Decode(request(path))
	if !errors.Is(err, diag.ErrIO) {
		t.Fatalf("error = %v, want I/O", err)
	}
	if img != nil {
		t.Error("expected no image")
	}
}

func TestJPEG_GammaApplied(t *testing.T) {
	src := image.NewGray(image.Rect(0, 0, 8, 8))
	for i := range src.Pix {
		src.Pix[i] = 128
	}
	path := encodeFixture(t, "mid.jpg", func(w io.Writer) error {
		return jpeg.Encode(w, src, &jpeg.Options{Quality: 100})
	})
	plain := mustDecode(t, newJPEGDecoder(), request(path))
	req := request(path)
	req.Gamma = 2.2
	bright := mustDecode(t, newJPEGDecoder(), req)

	if p, b := plain.NRGBAAt(3, 3), bright.NRGBAAt(3, 3); b.R <= p.R {
		t.Errorf("gamma 2.2 sample %v should be brighter than %v", b, p)
	}
}

func TestJPEG_Truncated(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 64, 64))
	seed := uint32(3)
	for i := range src.Pix {
		seed = seed*1664525 + 1013904223
		src.Pix[i] = uint8(seed >> 24)
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, src, &jpeg.Options{Quality: 90}); err != nil {
		t.Fatal(err)
	}
	full := buf.Bytes()
	if !jpegEnded(full) {
		t.Fatal("encoded stream has no end marker")
	}

	rec := &diag.Recorder{}
	req := request(writeFixture(t, "cut.jpg", full[:len(full)/2]))
	req.Report = rec
	img, err := newJPEGDecoder().Decode(req)
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	assertSize(t, img, 64, 64)
	if img.Status() != raster.Truncated {
		t.Errorf("status = %v, want truncated", img.Status())
	}
	if len(rec.Warnings()) != 1 {
		t.Errorf("warnings = %v, want one", rec.Warnings())
	}
}

func TestJPEGEnded(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want bool
	}{
		{"end marker", []byte{0xFF, 0xD8, 0x00, 0xFF, 0xD9}, true},
		{"zero padding", []byte{0xFF, 0xD8, 0xFF, 0xD9, 0, 0}, true},
		{"cut", []byte{0xFF, 0xD8, 0x12, 0x34}, false},
		{"empty", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := jpegEnded(tt.data); got != tt.want {
				t.Errorf("jpegEnded = %v, want %v", got, tt.want)
			}
		})
	}
}
