// Package gamma builds display-gamma lookup tables for 8-bit samples.
package gamma

import "math"

// Default is the screen gamma used when none is configured.
const Default = 1.0

// Table maps a raw 8-bit sample to its gamma corrected value.
// A nil *Table is the identity mapping.
type Table [256]uint8

// IsUnity reports whether g applies no correction. Non-positive and
// non-finite values are treated as unity.
func IsUnity(g float64) bool {
	if g <= 0 || math.IsNaN(g) || math.IsInf(g, 0) {
		return true
	}
	return math.Abs(g-1.0) < 1e-6
}

// New builds the table for gamma g, computing
//
//	out = round(255 * (in/255)^(1/g))
//
// It returns nil when g is unity, so callers can skip the lookup entirely.
func New(g float64) *Table {
	if IsUnity(g) {
		return nil
	}
	var t Table
	inv := 1.0 / g
	for i := range t {
		v := math.Pow(float64(i)/255.0, inv)*255.0 + 0.5
		switch {
		case v <= 0:
			t[i] = 0
		case v >= 255:
			t[i] = 255
		default:
			t[i] = uint8(v)
		}
	}
	return &t
}

// Apply maps v through the table.
func (t *Table) Apply(v uint8) uint8 {
	if t == nil {
		return v
	}
	return t[v]
}

// ApplySlice maps every sample of s in place.
func (t *Table) ApplySlice(s []uint8) {
	if t == nil {
		return
	}
	for i, v := range s {
		s[i] = t[v]
	}
}
