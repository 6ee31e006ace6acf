package wkrd

import "fmt"

// DiagKind classifies a non-fatal problem found during a parse.
type DiagKind int

const (
	DiagFraming DiagKind = iota
	DiagRecord
	DiagDecode
	DiagAddress
	DiagContext
	DiagResync
)

var diagKindNames = [...]string{"framing", "record", "decode", "address", "context", "resync"}

func (k DiagKind) String() string {
	if int(k) < len(diagKindNames) {
		return diagKindNames[k]
	}
	return fmt.Sprintf("DiagKind(%d)", int(k))
}

// Diagnostic is one recorded problem with the stream offset it relates to.
type Diagnostic struct {
	Kind    DiagKind
	Offset  int64
	Message string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s at %d: %s", d.Kind, d.Offset, d.Message)
}

// DiagnosticSink receives diagnostics as they are found.
type DiagnosticSink interface {
	Report(Diagnostic)
}

// DiagnosticFunc adapts a function to DiagnosticSink.
type DiagnosticFunc func(Diagnostic)

// Report calls f(d).
func (f DiagnosticFunc) Report(d Diagnostic) { f(d) }

type diagKey struct {
	kind  DiagKind
	class string
}

// diagnostics accumulates the problems of one parse.
type diagnostics struct {
	list []Diagnostic
	seen map[diagKey]bool
	sink DiagnosticSink
}

func (d *diagnostics) report(kind DiagKind, offset int64, format string, args ...interface{}) {
	diag := Diagnostic{Kind: kind, Offset: offset, Message: fmt.Sprintf(format, args...)}
	d.list = append(d.list, diag)
	if d.sink != nil {
		d.sink.Report(diag)
	}
}

// reportOnce reports only the first diagnostic of each (kind, class).
func (d *diagnostics) reportOnce(kind DiagKind, class string, offset int64, format string, args ...interface{}) {
	key := diagKey{kind: kind, class: class}
	if d.seen[key] {
		return
	}
	if d.seen == nil {
		d.seen = make(map[diagKey]bool)
	}
	d.seen[key] = true
	d.report(kind, offset, format, args...)
}
