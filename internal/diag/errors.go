// Package diag holds the failure taxonomy of the import pipeline and the
// diagnostic sink that decoders report through.
//
// Every failure returned by the locator, sniffer, decoders and dispatcher is a
// *Error carrying a Kind. Callers test the kind with errors.Is against the
// sentinel values:
//
//	img, err := imp.Import("logo.png", opts)
//	if errors.Is(err, diag.ErrLibraryMissing) {
//	    // codec not compiled in
//	}
package diag

import (
	"errors"
	"fmt"
)

// Kind classifies an import failure.
type Kind int

const (
	// KindIO covers open, read and locate failures.
	KindIO Kind = iota + 1
	// KindFormatUnknown means no signature matched.
	KindFormatUnknown
	// KindFormatUnsupported means the format was recognized but has no decoder,
	// or the file uses a variant of the format that is not implemented.
	KindFormatUnsupported
	// KindSizeLimit means the declared dimensions are non-positive or exceed
	// the import guard.
	KindSizeLimit
	// KindTruncated means the pixel stream ended early. It is never returned
	// as a decode failure; it is only reported as a warning.
	KindTruncated
	// KindLibraryMissing means the codec for the format is not available in
	// this build.
	KindLibraryMissing
)

func (k Kind) String() string {
	switch k {
	case KindIO:
		return "io"
	case KindFormatUnknown:
		return "format-unknown"
	case KindFormatUnsupported:
		return "format-unsupported"
	case KindSizeLimit:
		return "size-limit"
	case KindTruncated:
		return "truncated"
	case KindLibraryMissing:
		return "library-missing"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Sentinels for errors.Is.
var (
	ErrIO                = &Error{Kind: KindIO}
	ErrFormatUnknown     = &Error{Kind: KindFormatUnknown}
	ErrFormatUnsupported = &Error{Kind: KindFormatUnsupported}
	ErrSizeLimit         = &Error{Kind: KindSizeLimit}
	ErrTruncated         = &Error{Kind: KindTruncated}
	ErrLibraryMissing    = &Error{Kind: KindLibraryMissing}

	// ErrNotFound is wrapped by the locator when no candidate is readable.
	ErrNotFound = errors.New("file not found")
)

// Error is a classified import failure.
type Error struct {
	Kind   Kind
	Path   string // offending file, as resolved or as requested
	Format string // format name when known, e.g. "PNG"
	Msg    string // human readable detail
	Err    error  // underlying cause, may be nil
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindIO:
		if e.Msg != "" {
			return fmt.Sprintf("%s: %q", e.Msg, e.Path)
		}
		if e.Err != nil {
			return fmt.Sprintf("cannot read image file %q: %v", e.Path, e.Err)
		}
		return fmt.Sprintf("cannot read image file %q", e.Path)
	case KindFormatUnknown:
		return fmt.Sprintf("unknown format of the image file %q", e.Path)
	case KindFormatUnsupported:
		if e.Msg != "" {
			return fmt.Sprintf("invalid or unsupported %s format in image file %q: %s", e.Format, e.Path, e.Msg)
		}
		return fmt.Sprintf("support for the %s format of image file %q has not been implemented", e.Format, e.Path)
	case KindSizeLimit:
		return fmt.Sprintf("image file %q: %s", e.Path, e.Msg)
	case KindTruncated:
		return fmt.Sprintf("image file %q is truncated: %s", e.Path, e.Msg)
	case KindLibraryMissing:
		return fmt.Sprintf("unable to load file %q - %s image format is not supported", e.Path, e.Format)
	}
	return fmt.Sprintf("image import failed for %q", e.Path)
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is a *Error of the same kind. This lets the
// package sentinels match any error of their kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// IO builds a KindIO error for path.
func IO(path string, err error) *Error {
	return &Error{Kind: KindIO, Path: path, Err: err}
}

// OpenFailed builds the error reported when a file cannot be opened.
func OpenFailed(path string, err error) *Error {
	return &Error{
		Kind: KindIO,
		Path: path,
		Msg:  "cannot open image file for reading, please check permissions",
		Err:  err,
	}
}

// NotFound builds the locator failure for name.
func NotFound(name string) *Error {
	return &Error{Kind: KindIO, Path: name, Msg: "image file not found", Err: ErrNotFound}
}

// Unknown builds a KindFormatUnknown error.
func Unknown(path string) *Error {
	return &Error{Kind: KindFormatUnknown, Path: path}
}

// Unsupported builds a KindFormatUnsupported error. detail may be empty when
// the whole format is unimplemented.
func Unsupported(path, format, detail string) *Error {
	return &Error{Kind: KindFormatUnsupported, Path: path, Format: format, Msg: detail}
}

// SizeLimit builds a KindSizeLimit error for declared dimensions w x h.
func SizeLimit(path string, w, h, max int) *Error {
	return &Error{
		Kind: KindSizeLimit,
		Path: path,
		Msg:  fmt.Sprintf("declared size %dx%d is outside 1..%d", w, h, max),
	}
}

// LibraryMissing builds a KindLibraryMissing error naming format.
func LibraryMissing(path, format string) *Error {
	return &Error{Kind: KindLibraryMissing, Path: path, Format: format}
}

// Truncated builds the warning value for a short pixel stream.
func Truncated(path string, rows, height int) *Error {
	return &Error{
		Kind: KindTruncated,
		Path: path,
		Msg:  fmt.Sprintf("only %d of %d rows could be read", rows, height),
	}
}
