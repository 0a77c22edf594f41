//go:build !noxpm

package decode

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"

	"github.com/ironsheep/image-import-mcp/internal/diag"
	"github.com/ironsheep/image-import-mcp/internal/gamma"
	"github.com/ironsheep/image-import-mcp/internal/raster"
)

var (
	gzipMagic     = []byte{0x1F, 0x8B}
	compressMagic = []byte{0x1F, 0x9D}
)

// xpmVisuals lists color keys in order of preference.
var xpmVisuals = []string{"c", "g", "g4", "m"}

type xpmDecoder struct {
	// uncompress runs an external tool over a .Z file.
	uncompress func(path string) ([]byte, error)
}

func newXPMDecoder() Decoder { return xpmDecoder{uncompress: gunzipCommand} }

// gunzipCommand expands a compress(1) file with gzip, which reads both
// formats.
func gunzipCommand(path string) ([]byte, error) {
	bin, err := exec.LookPath("gzip")
	if err != nil {
		return nil, diag.LibraryMissing(path, "XPM.Z")
	}
	out, err := exec.Command(bin, "-dc", path).Output()
	if err != nil {
		return nil, diag.IO(path, fmt.Errorf("gzip -dc: %w", err))
	}
	return out, nil
}

type xpmHeader struct {
	width, height int
	colors        int
	cpp           int
}

// xpmColormap resolves pixel keys to palette indices.
type xpmColormap struct {
	colors *palette
	clear  []bool
	single [256]int
	multi  map[string]int
	alpha  bool
}

func (m *xpmColormap) lookup(key string) int {
	if len(key) == 1 {
		return m.single[key[0]]
	}
	if i, ok := m.multi[key]; ok {
		return i
	}
	return -1
}

// Decode reads XPM3 (C source) and XPM2 files, plain or compressed. Gzip
// data is expanded in process; compress(1) data goes through the gzip tool.
func (d xpmDecoder) Decode(req Request) (*raster.Image, error) {
	data, err := d.readAll(req.Path)
	if err != nil {
		return nil, err
	}
	strs := xpmStrings(data)
	if len(strs) == 0 {
		return nil, diag.Unsupported(req.Path, "XPM", "no XPM data")
	}
	hdr, err := parseXPMHeader(strs[0])
	if err != nil {
		return nil, diag.Unsupported(req.Path, "XPM", err.Error())
	}
	if err := raster.CheckSize(req.Path, hdr.width, hdr.height); err != nil {
		return nil, err
	}
	if hdr.colors > len(strs)-1 {
		return nil, diag.Unsupported(req.Path, "XPM", "truncated color table")
	}
	cmap, err := buildXPMColormap(&req, hdr, strs[1:1+hdr.colors], req.table())
	if err != nil {
		return nil, diag.Unsupported(req.Path, "XPM", err.Error())
	}

	asm, err := req.start(hdr.width, hdr.height)
	if err != nil {
		return nil, err
	}
	s := raster.NewScanline(hdr.width)
	pixels := strs[1+hdr.colors:]
	rows := 0
	for ; rows < hdr.height && rows < len(pixels); rows++ {
		line := pixels[rows]
		if len(line) < hdr.width*hdr.cpp {
			break
		}
		s.HasAlpha = false
		if cmap.alpha {
			s.ResetAlpha()
		}
		for x := 0; x < hdr.width; x++ {
			i := cmap.lookup(line[x*hdr.cpp : (x+1)*hdr.cpp])
			cmap.colors.put(s, x, i)
			if i >= 0 && cmap.clear[i] {
				s.Alpha[x] = 0
			}
		}
		asm.CommitScanline(rows, s)
	}
	return req.finish(asm, rows, rows < hdr.height), nil
}

func (d xpmDecoder) readAll(path string) ([]byte, error) {
	f, err := openFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	br := bufio.NewReader(f)
	head, _ := br.Peek(2)
	var r io.Reader = br
	switch {
	case bytes.Equal(head, gzipMagic):
		zr, err := gzip.NewReader(br)
		if err != nil {
			return nil, diag.IO(path, err)
		}
		defer zr.Close()
		r = zr
	case bytes.Equal(head, compressMagic):
		return d.uncompress(path)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, diag.IO(path, err)
	}
	return data, nil
}

// xpmStrings extracts the string table. XPM2 files hold one string per
// line after the "! XPM2" line; XPM3 files hold C string literals, with
// comments skipped.
func xpmStrings(data []byte) []string {
	text := string(data)
	if trimmed := strings.TrimLeft(text, " \t\r\n"); strings.HasPrefix(trimmed, "! XPM2") {
		var out []string
		lines := strings.Split(trimmed, "\n")
		for _, l := range lines[1:] {
			l = strings.TrimRight(l, "\r")
			if l == "" || strings.HasPrefix(l, "!") {
				continue
			}
			out = append(out, l)
		}
		return out
	}

	var out []string
	for i := 0; i < len(text); i++ {
		switch {
		case strings.HasPrefix(text[i:], "/*"):
			end := strings.Index(text[i+2:], "*/")
			if end < 0 {
				return out
			}
			i += end + 3
		case text[i] == '"':
			var sb strings.Builder
			j := i + 1
			for ; j < len(text) && text[j] != '"'; j++ {
				if text[j] == '\\' && j+1 < len(text) {
					j++
				}
				sb.WriteByte(text[j])
			}
			if j >= len(text) {
				// an unterminated literal ends the table
				return out
			}
			out = append(out, sb.String())
			i = j
		}
	}
	return out
}

func parseXPMHeader(s string) (xpmHeader, error) {
	f := strings.Fields(s)
	if len(f) < 4 {
		return xpmHeader{}, fmt.Errorf("bad values line %q", s)
	}
	var v [4]int
	for i := range v {
		n, err := strconv.Atoi(f[i])
		if err != nil {
			return xpmHeader{}, fmt.Errorf("bad values line %q", s)
		}
		v[i] = n
	}
	h := xpmHeader{width: v[0], height: v[1], colors: v[2], cpp: v[3]}
	if h.colors < 1 || h.cpp < 1 || h.cpp > 8 {
		return xpmHeader{}, fmt.Errorf("bad color count %d or chars per pixel %d", h.colors, h.cpp)
	}
	return h, nil
}

func buildXPMColormap(req *Request, hdr xpmHeader, lines []string, tbl *gamma.Table) (*xpmColormap, error) {
	m := &xpmColormap{
		colors: newPalette(hdr.colors),
		clear:  make([]bool, hdr.colors),
	}
	for i := range m.single {
		m.single[i] = -1
	}
	if hdr.cpp > 1 {
		m.multi = make(map[string]int, hdr.colors)
	}
	for i, line := range lines {
		if len(line) < hdr.cpp {
			return nil, fmt.Errorf("bad color line %q", line)
		}
		key := line[:hdr.cpp]
		if hdr.cpp == 1 {
			m.single[key[0]] = i
		} else {
			m.multi[key] = i
		}
		spec := xpmVisual(line[hdr.cpp:])
		rgb, none, ok := parseXPMColor(spec)
		if !ok {
			req.warnf("unknown color %q in image file %q, using black", spec, req.Path)
		}
		if none {
			m.clear[i] = true
			m.alpha = true
		}
		m.colors.set(i, rgb[0], rgb[1], rgb[2], tbl)
	}
	return m, nil
}

// xpmVisual returns the color value of the most preferred visual key in a
// color definition. Values may span several words.
func xpmVisual(def string) string {
	values := make(map[string]string)
	key := ""
	var words []string
	flush := func() {
		if key != "" {
			values[key] = strings.Join(words, " ")
		}
		words = words[:0]
	}
	for _, w := range strings.Fields(def) {
		switch w {
		case "c", "m", "g", "g4", "s":
			flush()
			key = w
		default:
			words = append(words, w)
		}
	}
	flush()
	for _, k := range xpmVisuals {
		if v, ok := values[k]; ok && v != "" {
			return v
		}
	}
	return ""
}
