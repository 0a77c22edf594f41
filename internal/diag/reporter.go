package diag

import (
	"log"
	"sync"
)

// Reporter is the diagnostic sink. Decoders use it for non-fatal conditions
// (subimage fallback, truncated data); the dispatcher reports every failure
// to it exactly once.
type Reporter interface {
	Error(msg string)
	Warning(msg string)
}

// LogReporter writes diagnostics to a standard logger.
type LogReporter struct {
	Logger *log.Logger
}

// NewLogReporter returns a reporter writing to l, or to the standard logger
// when l is nil.
func NewLogReporter(l *log.Logger) *LogReporter {
	if l == nil {
		l = log.Default()
	}
	return &LogReporter{Logger: l}
}

func (r *LogReporter) Error(msg string) {
	r.Logger.Printf("ERROR: %s", msg)
}

func (r *LogReporter) Warning(msg string) {
	r.Logger.Printf("WARNING: %s", msg)
}

// Discard drops every diagnostic.
var Discard Reporter = discard{}

type discard struct{}

func (discard) Error(string)   {}
func (discard) Warning(string) {}

// Recorder keeps diagnostics in memory. It is safe for concurrent use.
type Recorder struct {
	mu       sync.Mutex
	errors   []string
	warnings []string
}

func (r *Recorder) Error(msg string) {
	r.mu.Lock()
	r.errors = append(r.errors, msg)
	r.mu.Unlock()
}

func (r *Recorder) Warning(msg string) {
	r.mu.Lock()
	r.warnings = append(r.warnings, msg)
	r.mu.Unlock()
}

// Errors returns a copy of the recorded error messages.
func (r *Recorder) Errors() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.errors...)
}

// Warnings returns a copy of the recorded warning messages.
func (r *Recorder) Warnings() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.warnings...)
}

// Tee fans diagnostics out to every non-nil reporter.
func Tee(reporters ...Reporter) Reporter {
	var rs multi
	for _, r := range reporters {
		if r != nil {
			rs = append(rs, r)
		}
	}
	return rs
}

type multi []Reporter

func (m multi) Error(msg string) {
	for _, r := range m {
		r.Error(msg)
	}
}

func (m multi) Warning(msg string) {
	for _, r := range m {
		r.Warning(msg)
	}
}

// ErrorsOnly passes errors on to r and drops warnings.
func ErrorsOnly(r Reporter) Reporter { return errorsOnly{r} }

type errorsOnly struct{ r Reporter }

func (e errorsOnly) Error(msg string) { e.r.Error(msg) }
func (errorsOnly) Warning(string)     {}
