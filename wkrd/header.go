package wkrd

import (
	"bytes"
	"io"
)

// OLESignature is the magic cookie of a compound document.
var OLESignature = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}

// IsCompoundDocument reports whether head starts with the compound document
// signature.
func IsCompoundDocument(head []byte) bool {
	return bytes.HasPrefix(head, OLESignature)
}

// CheckHeader verifies that r starts with the header record of dialect d
// and returns the header version. The cursor is left after the header.
func CheckHeader(r io.ReadSeeker, d *Dialect) (uint16, error) {
	s, err := NewStream(r)
	if err != nil {
		return 0, err
	}
	return d.checkHeader(s)
}

func (d *Dialect) checkHeader(s *Stream) (uint16, error) {
	start := s.Tell()
	if s.Remaining() >= int64(len(OLESignature)) {
		head := make([]byte, len(OLESignature))
		if _, err := s.ReadAt(head, start); err == nil && IsCompoundDocument(head) {
			return 0, NewHeaderError("compound document; extract the %s stream first", d.Name)
		}
	}
	rec, ok := s.NextRecord()
	if !ok {
		return 0, NewHeaderError("no %s header record at offset %d", d.Name, start)
	}
	if rec.Key() != keyBOF {
		return 0, NewHeaderError("expected %s header record, found %s", d.Name, rec.Key())
	}
	if d.bofExact && int(rec.Length) != d.bofLen {
		return 0, NewHeaderError("invalid length (%d) for %s header record", rec.Length, d.Name)
	}
	if int(rec.Length) < d.bofLen || rec.Length < 2 {
		return 0, NewHeaderError("%s header record too short (%d bytes)", d.Name, rec.Length)
	}
	version, err := s.Payload(rec).U16()
	if err != nil {
		return 0, NewHeaderError("incomplete %s header record", d.Name)
	}
	if _, known := d.versions[version]; !known {
		return 0, NewHeaderError("unknown %s version 0x%04x", d.Name, version)
	}
	if err := s.SeekTo(rec.PayloadEnd); err != nil {
		return 0, err
	}
	return version, nil
}
