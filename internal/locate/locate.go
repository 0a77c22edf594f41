// Package locate resolves a logical image name to a readable file.
//
// A name is tried as given and then inside each search directory. If that
// fails the same lookup is repeated with ".gz" and ".Z" appended. As a last
// resort a trailing ".<digits>" run is read as a subimage index, stripped,
// and the three lookups are repeated on the shortened name:
//
//	icon.png      -> icon.png
//	icon.png.3    -> icon.png, subimage 3 (unless "icon.png.3" itself exists)
//	photo2        -> never stripped, the digits are not preceded by '.'
package locate

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ironsheep/image-import-mcp/internal/diag"
)

// MaxSearchDirs is the number of search directories honored per lookup.
const MaxSearchDirs = 8

// NoSubimage is the subimage index used when the name carries none.
const NoSubimage = -1

// compressedSuffixes are appended, in order, after the plain name fails.
var compressedSuffixes = []string{".gz", ".Z"}

// Match is a resolved file.
type Match struct {
	Path     string
	Subimage int
}

// Find resolves name against dirs. Only the first MaxSearchDirs entries of
// dirs are used; an entry may itself be a path list and may begin with "~/".
// When nothing is readable it returns an error wrapping diag.ErrNotFound.
func Find(name string, dirs []string) (Match, error) {
	if name == "" {
		return Match{}, diag.NotFound(name)
	}
	if len(dirs) > MaxSearchDirs {
		dirs = dirs[:MaxSearchDirs]
	}
	search := expandDirs(dirs)

	if p, ok := findVariants(name, search); ok {
		return Match{Path: p, Subimage: NoSubimage}, nil
	}

	base, sub, ok := SplitSubimage(name)
	if ok {
		if p, ok := findVariants(base, search); ok {
			return Match{Path: p, Subimage: sub}, nil
		}
	}
	return Match{}, diag.NotFound(name)
}

// SplitSubimage splits a trailing ".<digits>" off name. It reports false when
// the digit run is empty, is not preceded by '.', or would leave an empty
// base name.
func SplitSubimage(name string) (base string, subimage int, ok bool) {
	i := len(name) - 1
	for i > 0 && name[i] >= '0' && name[i] <= '9' {
		i--
	}
	if i <= 0 || i == len(name)-1 || name[i] != '.' {
		return name, NoSubimage, false
	}
	n, err := strconv.Atoi(name[i+1:])
	if err != nil {
		return name, NoSubimage, false
	}
	return name[:i], n, true
}

func findVariants(name string, search []string) (string, bool) {
	if p, ok := findOne(name, search); ok {
		return p, true
	}
	for _, suffix := range compressedSuffixes {
		if p, ok := findOne(name+suffix, search); ok {
			return p, true
		}
	}
	return "", false
}

func findOne(name string, search []string) (string, bool) {
	if readable(name) {
		return name, true
	}
	if filepath.IsAbs(name) {
		return "", false
	}
	for _, dir := range search {
		p := filepath.Join(dir, name)
		if readable(p) {
			return p, true
		}
	}
	return "", false
}

// readable reports whether path is a regular file that can be opened.
func readable(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()
	st, err := f.Stat()
	return err == nil && !st.IsDir()
}

func expandDirs(dirs []string) []string {
	var out []string
	home, _ := os.UserHomeDir()
	for _, entry := range dirs {
		for _, d := range filepath.SplitList(entry) {
			if d == "" {
				continue
			}
			if home != "" && (d == "~" || strings.HasPrefix(d, "~/")) {
				d = filepath.Join(home, d[1:])
			}
			out = append(out, d)
		}
	}
	return out
}
