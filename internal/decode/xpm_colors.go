//go:build !noxpm

package decode

import (
	"strconv"
	"strings"
)

// x11Colors holds the X11 color names XPM files use most. Names are stored
// lower-case without spaces.
var x11Colors = map[string][3]uint8{
	"black":         {0, 0, 0},
	"white":         {255, 255, 255},
	"red":           {255, 0, 0},
	"green":         {0, 255, 0},
	"blue":          {0, 0, 255},
	"yellow":        {255, 255, 0},
	"cyan":          {0, 255, 255},
	"magenta":       {255, 0, 255},
	"gray":          {190, 190, 190},
	"grey":          {190, 190, 190},
	"darkgray":      {169, 169, 169},
	"darkgrey":      {169, 169, 169},
	"lightgray":     {211, 211, 211},
	"lightgrey":     {211, 211, 211},
	"dimgray":       {105, 105, 105},
	"dimgrey":       {105, 105, 105},
	"slategray":     {112, 128, 144},
	"slategrey":     {112, 128, 144},
	"gainsboro":     {220, 220, 220},
	"whitesmoke":    {245, 245, 245},
	"silver":        {192, 192, 192},
	"orange":        {255, 165, 0},
	"darkorange":    {255, 140, 0},
	"brown":         {165, 42, 42},
	"maroon":        {176, 48, 96},
	"purple":        {160, 32, 240},
	"violet":        {238, 130, 238},
	"pink":          {255, 192, 203},
	"gold":          {255, 215, 0},
	"khaki":         {240, 230, 140},
	"beige":         {245, 245, 220},
	"tan":           {210, 180, 140},
	"navy":          {0, 0, 128},
	"navyblue":      {0, 0, 128},
	"darkblue":      {0, 0, 139},
	"lightblue":     {173, 216, 230},
	"skyblue":       {135, 206, 235},
	"steelblue":     {70, 130, 180},
	"royalblue":     {65, 105, 225},
	"darkgreen":     {0, 100, 0},
	"forestgreen":   {34, 139, 34},
	"seagreen":      {46, 139, 87},
	"darkred":       {139, 0, 0},
	"firebrick":     {178, 34, 34},
	"salmon":        {250, 128, 114},
	"coral":         {255, 127, 80},
	"tomato":        {255, 99, 71},
	"turquoise":     {64, 224, 208},
	"wheat":         {245, 222, 179},
	"ivory":         {255, 255, 240},
	"lightyellow":   {255, 255, 224},
	"lemonchiffon":  {255, 250, 205},
	"darkslategray": {47, 79, 79},
	"darkslategrey": {47, 79, 79},
}

// parseXPMColor resolves a color specification. ok is false for names that
// are not known; none is true for the transparent color.
func parseXPMColor(spec string) (rgb [3]uint8, none, ok bool) {
	spec = strings.TrimSpace(spec)
	if strings.EqualFold(spec, "none") {
		return rgb, true, true
	}
	if strings.HasPrefix(spec, "#") {
		rgb, ok = parseHexColor(spec[1:])
		return rgb, false, ok
	}
	name := strings.ToLower(strings.ReplaceAll(spec, " ", ""))
	if c, found := x11Colors[name]; found {
		return c, false, true
	}
	for _, prefix := range []string{"gray", "grey"} {
		if strings.HasPrefix(name, prefix) {
			if n, err := strconv.Atoi(name[len(prefix):]); err == nil && n >= 0 && n <= 100 {
				v := uint8((n*255 + 50) / 100)
				return [3]uint8{v, v, v}, false, true
			}
		}
	}
	return rgb, false, false
}

// parseHexColor accepts 3, 6, 9 or 12 hex digits and keeps the high byte of
// each channel.
func parseHexColor(hex string) ([3]uint8, bool) {
	var rgb [3]uint8
	if len(hex) == 0 || len(hex)%3 != 0 || len(hex) > 12 {
		return rgb, false
	}
	n := len(hex) / 3
	for i := 0; i < 3; i++ {
		v, err := strconv.ParseUint(hex[i*n:(i+1)*n], 16, 16)
		if err != nil {
			return rgb, false
		}
		switch n {
		case 1:
			v *= 0x11
		case 2:
		default:
			v >>= uint(4*n - 8)
		}
		rgb[i] = uint8(v)
	}
	return rgb, true
}
