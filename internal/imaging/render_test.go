package imaging

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"testing"
)

// decodeResult turns a base64 PNG back into an image.
func decodeResult(t *testing.T, data string) image.Image {
	t.Helper()
	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		t.Fatalf("failed to decode base64: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("failed to decode PNG: %v", err)
	}
	return img
}

func TestRenderIcon(t *testing.T) {
	tests := []struct {
		name          string
		srcW, srcH    int
		boxW, boxH    int
		wantW, wantH  int
	}{
		{"downscale square", 100, 100, 32, 32, 32, 32},
		{"downscale keeps aspect", 100, 50, 10, 10, 10, 5},
		{"upscale", 16, 8, 64, 64, 64, 32},
		{"height only", 40, 20, 0, 10, 20, 10},
		{"width only", 20, 40, 5, 0, 5, 10},
		{"never below one pixel", 200, 1, 10, 10, 10, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img := createInMemoryImage(tt.srcW, tt.srcH, color.NRGBA{255, 0, 0, 255})
			result, err := RenderIcon(img, tt.boxW, tt.boxH, nil)
			if err != nil {
				t.Fatalf("RenderIcon failed: %v", err)
			}
			if result.Width != tt.wantW || result.Height != tt.wantH {
				t.Errorf("size: got %dx%d, want %dx%d", result.Width, result.Height, tt.wantW, tt.wantH)
			}
			if result.MimeType != "image/png" {
				t.Errorf("MimeType: got %s, want image/png", result.MimeType)
			}
			out := decodeResult(t, result.ImageBase64)
			if out.Bounds().Dx() != tt.wantW || out.Bounds().Dy() != tt.wantH {
				t.Errorf("encoded size: got %v", out.Bounds())
			}
		})
	}
}

func TestRenderIcon_UpscaleStaysSharp(t *testing.T) {
	img := createPatternImage(2, 2)

	result, err := RenderIcon(img, 8, 8, nil)
	if err != nil {
		t.Fatalf("RenderIcon failed: %v", err)
	}
	out := decodeResult(t, result.ImageBase64)
	want := map[image.Point]color.NRGBA{
		{0, 0}: {255, 0, 0, 255},
		{7, 0}: {0, 255, 0, 255},
		{0, 7}: {0, 0, 255, 255},
		{7, 7}: {255, 255, 255, 255},
		{3, 3}: {255, 0, 0, 255},
	}
	for p, c := range want {
		got := color.NRGBAModel.Convert(out.At(p.X, p.Y)).(color.NRGBA)
		if got != c {
			t.Errorf("pixel %v: got %v, want %v", p, got, c)
		}
	}
}

func TestRenderIcon_Region(t *testing.T) {
	img := createPatternImage(100, 100)

	result, err := RenderIcon(img, 50, 50, &Region{X1: 50, Y1: 50, X2: 100, Y2: 100})
	if err != nil {
		t.Fatalf("RenderIcon failed: %v", err)
	}
	out := decodeResult(t, result.ImageBase64)
	got := color.NRGBAModel.Convert(out.At(25, 25)).(color.NRGBA)
	if got != (color.NRGBA{255, 255, 255, 255}) {
		t.Errorf("region center: got %v, want white", got)
	}
}

func TestRenderIcon_Errors(t *testing.T) {
	img := createInMemoryImage(10, 10, color.NRGBA{0, 0, 0, 255})

	tests := []struct {
		name   string
		w, h   int
		region *Region
	}{
		{"no size", 0, 0, nil},
		{"negative", -1, 10, nil},
		{"too large", MaxIconSize + 1, 10, nil},
		{"region outside", 8, 8, &Region{X1: 5, Y1: 5, X2: 20, Y2: 8}},
		{"empty region", 8, 8, &Region{X1: 5, Y1: 5, X2: 5, Y2: 8}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := RenderIcon(img, tt.w, tt.h, tt.region); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestFitBox(t *testing.T) {
	tests := []struct {
		sw, sh, w, h int
		wantW, wantH int
	}{
		{10, 10, 5, 5, 5, 5},
		{30, 10, 6, 6, 6, 2},
		{10, 30, 6, 6, 2, 6},
		{3, 2, 0, 4, 6, 4},
	}
	for _, tt := range tests {
		w, h := fitBox(tt.sw, tt.sh, tt.w, tt.h)
		if w != tt.wantW || h != tt.wantH {
			t.Errorf("fitBox(%d,%d,%d,%d) = %d,%d; want %d,%d", tt.sw, tt.sh, tt.w, tt.h, w, h, tt.wantW, tt.wantH)
		}
	}
}
