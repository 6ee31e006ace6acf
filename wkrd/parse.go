package wkrd

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
	"golang.org/x/text/encoding"
)

// Options controls a parse.
type Options struct {
	// Dialect selects the record layout. Required.
	Dialect *Dialect

	// Encoding overrides the dialect code page. EncodingAuto guesses it
	// from label text.
	Encoding string

	// Logfile receives trace output. Nil discards it.
	Logfile io.Writer

	// Verbosity is the trace level: 1 zones, 2 records, 3 formula stacks.
	Verbosity int

	// Diagnostics receives each diagnostic as it is found.
	Diagnostics DiagnosticSink

	// NativeTerm keeps TERM and CTERM instead of rewriting them to NPER.
	NativeTerm bool
}

// parser is the state of one parse. Nothing in it outlives the call.
type parser struct {
	d         *Dialect
	s         *Stream
	doc       *Document
	diag      diagnostics
	logfile   io.Writer
	verbosity int
	dc        Decompiler

	enc        encoding.Encoding
	autoEnc    bool
	sample     []byte
	boundaries []int64

	sheets map[int]*Sheet
	stack  []*Sheet
	styles map[int]int
}

func newParser(s *Stream, opts *Options) (*parser, error) {
	if opts == nil || opts.Dialect == nil {
		return nil, errors.New("no dialect selected")
	}
	d := opts.Dialect
	p := &parser{
		d:         d,
		s:         s,
		doc:       newDocument(d.Name),
		logfile:   opts.Logfile,
		verbosity: opts.Verbosity,
		enc:       d.encoding,
		sheets:    make(map[int]*Sheet),
		styles:    make(map[int]int),
	}
	p.diag.sink = opts.Diagnostics
	switch opts.Encoding {
	case "":
	case EncodingAuto:
		p.autoEnc = true
	default:
		enc, err := LookupEncoding(opts.Encoding)
		if err != nil {
			return nil, err
		}
		p.enc = enc
	}
	p.dc = Decompiler{
		Table:      d.opcodes,
		NativeTerm: opts.NativeTerm,
		DecodeText: func(b []byte) string { return decodeText(p.enc, b) },
	}
	if p.logfile != nil && p.verbosity >= 3 {
		p.dc.Trace = p.logfile
	}
	return p, nil
}

func (p *parser) logf(level int, format string, args ...interface{}) {
	if p.logfile != nil && p.verbosity >= level {
		fmt.Fprintf(p.logfile, format, args...)
	}
}

// Parse decodes a whole stream. The only error is a failed header check (a
// *HeaderError) or a failure to read the header; every later problem is
// recorded in Document.Diagnostics.
func Parse(r io.ReadSeeker, opts *Options) (*Document, error) {
	s, err := NewStream(r)
	if err != nil {
		return nil, err
	}
	p, err := newParser(s, opts)
	if err != nil {
		return nil, err
	}
	return p.parse()
}

// ParseFile opens and parses the file at path. A compound document is
// unwrapped to the dialect's native stream first.
func ParseFile(path string, opts *Options) (*Document, error) {
	if opts == nil || opts.Dialect == nil {
		return nil, errors.New("no dialect selected")
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if IsCompoundDocument(content) {
		stream, err := OpenNativeStream(bytes.NewReader(content), opts.Dialect)
		if err != nil {
			return nil, errors.Wrap(err, path)
		}
		return Parse(stream, opts)
	}
	return Parse(bytes.NewReader(content), opts)
}

// ParseSections parses the logical stream made of the given byte ranges of
// r. A zone aborted by a framing failure resumes at the next section.
func ParseSections(r io.ReaderAt, sections []Section, opts *Options) (*Document, error) {
	mr := NewMultiRangeReader(r, sections)
	s, err := NewStream(mr)
	if err != nil {
		return nil, err
	}
	p, err := newParser(s, opts)
	if err != nil {
		return nil, err
	}
	p.boundaries = mr.Boundaries()
	return p.parse()
}

func (p *parser) parse() (*Document, error) {
	version, err := p.d.checkHeader(p.s)
	if err != nil {
		return nil, err
	}
	p.doc.Version = version
	p.logf(1, "%s header version 0x%04x (%s)\n", p.d.Name, version, p.d.versions[version])
	if p.d.begin != nil {
		p.d.begin(p)
	}

	for {
		p.logf(1, "zone start at %d\n", p.s.Tell())
		state, ferr := p.runZone()
		if state == ZoneEndOfSection {
			p.logf(1, "zone end at %d\n", p.s.Tell())
			break
		}
		p.doc.Stats.Aborted++
		p.diag.report(DiagFraming, ferr.Offset, "%s", ferr.Message)
		p.logf(1, "zone aborted: %v\n", ferr)
		p.closeContexts(ferr.Offset)
		if !p.resync(ferr.Offset) {
			break
		}
		p.logf(1, "resync at %d\n", p.s.Tell())
	}
	p.closeContexts(p.s.Tell())
	return p.finish(), nil
}

func (p *parser) finish() *Document {
	if p.autoEnc {
		p.enc = DetectEncoding(p.sample, p.d.encoding)
	}
	for _, sh := range p.doc.Sheets {
		p.doc.Stats.Cells += sh.NCells()
	}
	p.doc.Diagnostics = p.diag.list
	p.doc.stream = p.s
	p.doc.enc = p.enc
	return p.doc
}

// sheetFor returns the worksheet with the given number, creating it.
func (p *parser) sheetFor(number int) *Sheet {
	if sh, ok := p.sheets[number]; ok {
		return sh
	}
	sh := p.doc.NewSheet(ColumnName(number), number, SheetNormal, -1)
	p.sheets[number] = sh
	return sh
}

// targetSheet returns the innermost open sheet context, or the worksheet
// with the given number when none is open.
func (p *parser) targetSheet(number int) *Sheet {
	if n := len(p.stack); n > 0 {
		return p.stack[n-1]
	}
	return p.sheetFor(number)
}

func (p *parser) pushSheet(sh *Sheet) {
	p.stack = append(p.stack, sh)
	p.logf(1, "open sheet %q (depth %d)\n", sh.Name, len(p.stack))
}

func (p *parser) popSheet(offset int64) {
	if len(p.stack) == 0 {
		p.diag.reportOnce(DiagContext, "pop-empty", offset, "sheet end without an open sheet")
		return
	}
	p.stack = p.stack[:len(p.stack)-1]
}

// openSubSheet nests a report or filter sheet inside the current context.
func (p *parser) openSubSheet(name string, kind SheetKind) *Sheet {
	parent := -1
	number := 0
	if n := len(p.stack); n > 0 {
		parent = p.stack[n-1].ID
		number = p.stack[n-1].Number
	}
	sh := p.doc.NewSheet(name, number, kind, parent)
	p.pushSheet(sh)
	return sh
}

func (p *parser) closeContexts(offset int64) {
	if len(p.stack) == 0 {
		return
	}
	p.diag.report(DiagContext, offset, "%d sheet context(s) left open", len(p.stack))
	p.stack = nil
}

// text decodes bytes read during the parse with the current code page.
func (p *parser) text(raw []byte) string {
	return decodeText(p.enc, raw)
}

func (p *parser) collectSample(raw []byte) {
	if !p.autoEnc || len(p.sample) >= maxSample {
		return
	}
	room := maxSample - len(p.sample)
	if len(raw) > room {
		raw = raw[:room]
	}
	p.sample = append(p.sample, raw...)
	p.sample = append(p.sample, ' ')
}
