//go:build !noxpm

package decode

import (
	"bytes"
	"compress/gzip"
	"errors"
	"image/color"
	"reflect"
	"testing"

	"github.com/ironsheep/image-import-mcp/internal/diag"
	"github.com/ironsheep/image-import-mcp/internal/raster"
)

const xpm3Icon = `/* XPM */
static char *icon[] = {
/* columns rows colors chars-per-pixel */
"3 2 3 1 ",
"  c None",
". c #FF0000",
"X c red g gray50 m white",
/* pixels */
" .X",
"XX.",
};
`

func checkXPMIcon(t *testing.T, img *raster.Image) {
	t.Helper()
	assertSize(t, img, 3, 2)
	if want := []uint8{0, 0xFF, 0xFF}; !reflect.DeepEqual(img.Row(0).Alpha, want) {
		t.Errorf("row 0 alpha = %v, want %v", img.Row(0).Alpha, want)
	}
	if img.Row(1).Alpha != nil {
		t.Error("opaque row 1 should not carry alpha")
	}
	assertPixel(t, img, 1, 0, color.NRGBA{255, 0, 0, 255})
	assertPixel(t, img, 0, 1, color.NRGBA{255, 0, 0, 255})
}

func TestXPM_C(t *testing.T) {
	img := mustDecode(t, newXPMDecoder(), request(writeFixture(t, "icon.xpm", []byte(xpm3Icon))))
	checkXPMIcon(t, img)
}

func TestXPM_Gzip(t *testing.T) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write([]byte(xpm3Icon)); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	img := mustDecode(t, newXPMDecoder(), request(writeFixture(t, "icon.xpm.gz", buf.Bytes())))
	checkXPMIcon(t, img)
}

func TestXPM_CompressUsesExternalTool(t *testing.T) {
	var called string
	d := xpmDecoder{uncompress: func(path string) ([]byte, error) {
		called = path
		return []byte(xpm3Icon), nil
	}}
	path := writeFixture(t, "icon.xpm.Z", []byte{0x1F, 0x9D, 0x90, 0x00})
	checkXPMIcon(t, mustDecode(t, d, request(path)))
	if called != path {
		t.Errorf("uncompress called with %q, want %q", called, path)
	}
}

func TestGunzipCommand_MissingTool(t *testing.T) {
	t.Setenv("PATH", "")
	_, err := gunzipCommand(writeFixture(t, "icon.xpm.Z", []byte{0x1F, 0x9D}))
	if !errors.Is(err, diag.ErrLibraryMissing) {
		t.Fatalf("error = %v, want library missing", err)
	}
}

func TestXPM_XPM2(t *testing.T) {
	data := "! XPM2\n2 1 2 2\naa c #00ff00\nbb c #123\naabb\n"
	img := mustDecode(t, newXPMDecoder(), request(writeFixture(t, "two.xpm", []byte(data))))
	assertSize(t, img, 2, 1)
	assertNoAlphaRows(t, img)
	assertPixel(t, img, 0, 0, color.NRGBA{0, 255, 0, 255})
	assertPixel(t, img, 1, 0, color.NRGBA{0x11, 0x22, 0x33, 255})
}

func TestXPM_UnknownColorWarns(t *testing.T) {
	data := "/* XPM */\n\"1 1 1 1\",\n\"a c no-such-color\",\n\"a\"\n"
	rec := &diag.Recorder{}
	req := request(writeFixture(t, "odd.xpm", []byte(data)))
	req.Report = rec
	img := mustDecode(t, newXPMDecoder(), req)
	assertPixel(t, img, 0, 0, color.NRGBA{0, 0, 0, 255})
	if len(rec.Warnings()) != 1 {
		t.Errorf("warnings = %v, want one", rec.Warnings())
	}
}

func TestXPM_Truncated(t *testing.T) {
	tests := []struct {
		name string
		data string
		rows int
	}{
		{"missing rows", "/* XPM */\n\"2 3 1 1\",\n\"a c blue\",\n\"aa\",\n", 1},
		{"short row", "/* XPM */\n\"2 3 1 1\",\n\"a c blue\",\n\"aa\",\n\"aa\",\n\"a\"\n", 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img := mustDecode(t, newXPMDecoder(), request(writeFixture(t, "cut.xpm", []byte(tt.data))))
			if img.Status() != raster.Truncated || img.DecodedRows() != tt.rows {
				t.Fatalf("status = %v rows = %d, want truncated with %d rows", img.Status(), img.DecodedRows(), tt.rows)
			}
			assertPixel(t, img, 0, 0, color.NRGBA{0, 0, 255, 255})
		})
	}
}

func TestXPM_Rejections(t *testing.T) {
	tests := []struct {
		name string
		data string
		want error
	}{
		{"no strings", "/* XPM */\n", diag.ErrFormatUnsupported},
		{"bad values", "/* XPM */\n\"two by two\"\n", diag.ErrFormatUnsupported},
		{"short color table", "/* XPM */\n\"1 1 2 1\",\n\"a c red\"\n", diag.ErrFormatUnsupported},
		{"huge color count", "/* XPM */\n\"1 1 9223372036854775807 1\",\n\"a c red\",\n\"a\"\n", diag.ErrFormatUnsupported},
		{"too large","/* XPM */\n\"9000 1 1 1\",\n\"a c red\"\n", diag.ErrSizeLimit},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newXPMDecoder().Decode(request(writeFixture(t, "bad.xpm", []byte(tt.data))))
			if !errors.Is(err, tt.want) {
				t.Fatalf("error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestParseXPMColor(t *testing.T) {
	tests := []struct {
		spec     string
		want     [3]uint8
		none, ok bool
	}{
		{"#fff", [3]uint8{255, 255, 255}, false, true},
		{"#102030", [3]uint8{0x10, 0x20, 0x30}, false, true},
		{"#123456789", [3]uint8{0x12, 0x45, 0x78}, false, true},
		{"#FFFF80000000", [3]uint8{0xFF, 0x80, 0x00}, false, true},
		{"None", [3]uint8{}, true, true},
		{"NONE", [3]uint8{}, true, true},
		{"light gray", [3]uint8{211, 211, 211}, false, true},
		{"Gray50", [3]uint8{128, 128, 128}, false, true},
		{"grey100", [3]uint8{255, 255, 255}, false, true},
		{"#12", [3]uint8{}, false, false},
		{"#ggg", [3]uint8{}, false, false},
		{"gray101", [3]uint8{}, false, false},
		{"chartreuse-ish", [3]uint8{}, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			got, none, ok := parseXPMColor(tt.spec)
			if got != tt.want || none != tt.none || ok != tt.ok {
				t.Errorf("parseXPMColor(%q) = %v, %v, %v; want %v, %v, %v", tt.spec, got, none, ok, tt.want, tt.none, tt.ok)
			}
		})
	}
}

func TestXPMVisual(t *testing.T) {
	tests := []struct {
		def, want string
	}{
		{" c #fff m white", "#fff"},
		{" m black g4 gray", "gray"},
		{" m black g4 gray g #777", "#777"},
		{" s background c light blue", "light blue"},
		{" m white", "white"},
		{" s label", ""},
	}
	for _, tt := range tests {
		if got := xpmVisual(tt.def); got != tt.want {
			t.Errorf("xpmVisual(%q) = %q, want %q", tt.def, got, tt.want)
		}
	}
}
