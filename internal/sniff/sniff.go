// Package sniff classifies image files by their leading bytes.
//
// Classification reads at most HeaderSize bytes and never trusts the file
// extension, with three exceptions: compressed XPM files are recognized by
// their ".xpm.gz" / ".xpm.Z" suffix, and the ICO and CUR signatures are too
// weak to stand alone so they also require a ".ico" or ".cur" name.
//
// Rules are applied in a fixed precedence and the first match wins:
//
//	FF D8 FF            JPEG
//	"XPM" anywhere      XPM
//	?PNG                PNG
//	GIF                 GIF
//	II or MM            TIFF
//	P<digit>            PPM for P5/P6, PNM otherwise
//	0A <=5 01           PCX
//	BM                  BMP
//	00 ? 01 + .ico      ICO
//	00 ? 02 + .cur/.ico CUR
//	"gimp xcf"          XCF     (8 bytes needed)
//	00 00 02 00 00 00 00 00     Targa (8 bytes needed)
//	"#define"           XBM     (8 bytes needed)
package sniff

import (
	"bytes"
	"io"
	"os"
	"strings"

	"github.com/ironsheep/image-import-mcp/internal/diag"
)

// HeaderSize is the number of leading bytes examined.
const HeaderSize = 16

// xcfMagic starts every GIMP XCF file.
const xcfMagic = "gimp xcf"

// Format is the closed set of file formats the sniffer can report.
type Format int

const (
	Unknown Format = iota
	XPM
	GZXPM
	ZXPM
	PNG
	JPEG
	XCF
	PPM
	PNM
	BMP
	ICO
	CUR
	GIF
	TIFF
	PCX
	Targa
	XBM
)

// Formats lists every known format, Unknown excluded, in declaration order.
var Formats = []Format{XPM, GZXPM, ZXPM, PNG, JPEG, XCF, PPM, PNM, BMP, ICO, CUR, GIF, TIFF, PCX, Targa, XBM}

var formatNames = map[Format]string{
	Unknown: "unknown",
	XPM:     "XPM",
	GZXPM:   "XPM.gz",
	ZXPM:    "XPM.Z",
	PNG:     "PNG",
	JPEG:    "JPEG",
	XCF:     "XCF",
	PPM:     "PPM",
	PNM:     "PNM",
	BMP:     "BMP",
	ICO:     "ICO",
	CUR:     "CUR",
	GIF:     "GIF",
	TIFF:    "TIFF",
	PCX:     "PCX",
	Targa:   "Targa",
	XBM:     "XBM",
}

func (f Format) String() string {
	if s, ok := formatNames[f]; ok {
		return s
	}
	return "unknown"
}

// Implemented reports whether the format has a decoder at all. PCX, Targa
// and XBM are recognized but never decoded.
func (f Format) Implemented() bool {
	switch f {
	case Unknown, PCX, Targa, XBM:
		return false
	}
	return true
}

// Parse maps a format name, case-insensitively, to its Format. It accepts
// the String form and a few common aliases.
func Parse(name string) (Format, bool) {
	n := strings.ToUpper(strings.TrimSpace(name))
	switch n {
	case "JPG":
		return JPEG, true
	case "TIF":
		return TIFF, true
	case "TGA":
		return Targa, true
	}
	for f, s := range formatNames {
		if f != Unknown && strings.ToUpper(s) == n {
			return f, true
		}
	}
	return Unknown, false
}

// File classifies the file at path. Reading fewer than HeaderSize bytes is
// not an error.
func File(path string) (Format, error) {
	if f, ok := bySuffix(path); ok {
		return f, nil
	}
	fp, err := os.Open(path)
	if err != nil {
		return Unknown, diag.OpenFailed(path, err)
	}
	defer fp.Close()

	head := make([]byte, HeaderSize)
	n, err := io.ReadFull(fp, head)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return Unknown, diag.IO(path, err)
	}
	return Bytes(head[:n], path), nil
}

// Bytes classifies a header. name is consulted for the suffix based rules
// only. Bytes is deterministic and total: every input maps to one Format.
func Bytes(head []byte, name string) Format {
	if f, ok := bySuffix(name); ok {
		return f
	}
	if len(head) > HeaderSize {
		head = head[:HeaderSize]
	}

	if len(head) >= 4 {
		if f, ok := shortSignature(head, name); ok {
			return f
		}
	}
	if len(head) >= 8 {
		switch {
		case string(head[:8]) == xcfMagic:
			return XCF
		case bytes.Equal(head[:8], []byte{0, 0, 2, 0, 0, 0, 0, 0}):
			return Targa
		case string(head[:7]) == "#define":
			return XBM
		}
	}
	return Unknown
}

func shortSignature(head []byte, name string) (Format, bool) {
	switch {
	case head[0] == 0xFF && head[1] == 0xD8 && head[2] == 0xFF:
		return JPEG, true
	case containsXPM(head):
		return XPM, true
	case head[1] == 'P' && head[2] == 'N' && head[3] == 'G':
		return PNG, true
	case head[0] == 'G' && head[1] == 'I' && head[2] == 'F':
		return GIF, true
	case head[0] == head[1] && (head[0] == 'I' || head[0] == 'M'):
		return TIFF, true
	case head[0] == 'P' && isDigit(head[1]):
		if head[1] == '5' || head[1] == '6' {
			return PPM, true
		}
		return PNM, true
	case head[0] == 0x0A && head[1] <= 5 && head[2] == 1:
		return PCX, true
	case head[0] == 'B' && head[1] == 'M':
		return BMP, true
	case head[0] == 0 && head[2] == 1 && hasSuffixFold(name, ".ico"):
		return ICO, true
	case head[0] == 0 && head[2] == 2 && (hasSuffixFold(name, ".cur") || hasSuffixFold(name, ".ico")):
		return CUR, true
	}
	return Unknown, false
}

// containsXPM searches the header as a C string: text after the first NUL
// is ignored, and so is the final header byte.
func containsXPM(head []byte) bool {
	text := head
	if len(text) >= HeaderSize {
		text = text[:HeaderSize-1]
	}
	if i := bytes.IndexByte(text, 0); i >= 0 {
		text = text[:i]
	}
	return bytes.Contains(text, []byte("XPM"))
}

func bySuffix(name string) (Format, bool) {
	switch {
	case hasSuffixFold(name, ".xpm.gz"):
		return GZXPM, true
	case hasSuffixFold(name, ".xpm.z"):
		return ZXPM, true
	}
	return Unknown, false
}

func hasSuffixFold(s, suffix string) bool {
	return len(s) >= len(suffix) && strings.EqualFold(s[len(s)-len(suffix):], suffix)
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }
