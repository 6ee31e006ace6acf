package wkrd

import (
	"sort"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/text/encoding"
)

// handlerFunc decodes one record. body is bounded to the record payload; the
// dispatcher moves past the record whatever the handler consumed.
type handlerFunc func(p *parser, rec Record, body *Payload) error

// Header and end-marker keys shared by every dialect.
var (
	keyBOF = RecordKey{Tag: 0x00, Subtype: 0x00}
	keyEOF = RecordKey{Tag: 0x01, Subtype: 0x00}
)

// Dialect describes one on-disk record layout.
type Dialect struct {
	// Name is the short name used to select the dialect.
	Name string

	// Description is a human readable name.
	Description string

	codec    AddressCodec
	opcodes  OpcodeTable
	encoding encoding.Encoding

	// versions maps accepted header version values to a label.
	versions map[uint16]string
	bofLen   int
	bofExact bool

	handlers map[RecordKey]handlerFunc
	names    map[RecordKey]string

	// resyncKeys are records that start a new section.
	resyncKeys map[RecordKey]bool

	// zeroPadding accepts trailing zero bytes as a clean end.
	zeroPadding bool

	// oleStreams names the native stream inside a compound document.
	oleStreams []string

	// begin runs once after the header check.
	begin func(p *parser)
}

// RecordName returns the name of a record kind, or "".
func (d *Dialect) RecordName(k RecordKey) string {
	switch k {
	case keyBOF:
		return "BOF"
	case keyEOF:
		return "EOF"
	}
	return d.names[k]
}

// Codec returns the dialect's cell address codec.
func (d *Dialect) Codec() AddressCodec {
	return d.codec
}

// Opcodes returns the dialect's formula opcode table.
func (d *Dialect) Opcodes() OpcodeTable {
	return d.opcodes
}

// Encoding returns the default code page of the dialect.
func (d *Dialect) Encoding() encoding.Encoding {
	return d.encoding
}

func (d *Dialect) isEnd(rec Record) bool {
	return rec.Key() == keyEOF
}

var dialects = map[string]*Dialect{}

func register(d *Dialect, aliases ...string) {
	dialects[d.Name] = d
	for _, a := range aliases {
		dialects[a] = d
	}
}

func init() {
	register(wksDialect, "wk1", "lotus-dos")
	register(wk3Dialect, "wk4", "lotus")
	register(qproDialect, "wb1", "wb2", "quattro")
}

// LookupDialect returns the dialect registered under name.
func LookupDialect(name string) (*Dialect, error) {
	d, ok := dialects[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, errors.Errorf("unknown dialect %q (known: %s)", name, strings.Join(Dialects(), ", "))
	}
	return d, nil
}

// Dialects returns the primary names of the registered dialects.
func Dialects() []string {
	seen := map[string]bool{}
	var names []string
	for _, d := range dialects {
		if !seen[d.Name] {
			seen[d.Name] = true
			names = append(names, d.Name)
		}
	}
	sort.Strings(names)
	return names
}
