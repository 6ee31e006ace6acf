package wkrd

import (
	"encoding/binary"
	"fmt"
)

// headerSize is the size of the common record header: tag, subtype, length.
const headerSize = 4

// RecordKey identifies a record kind within a dialect.
type RecordKey struct {
	Tag     uint8
	Subtype uint8
}

func (k RecordKey) String() string {
	return fmt.Sprintf("0x%02x/0x%02x", k.Tag, k.Subtype)
}

// Record is one framed, length-delimited chunk of the stream.
type Record struct {
	Tag          uint8
	Subtype      uint8
	Length       uint16
	Offset       int64
	PayloadStart int64
	PayloadEnd   int64
}

// Key returns the handler key of the record.
func (r Record) Key() RecordKey {
	return RecordKey{Tag: r.Tag, Subtype: r.Subtype}
}

// NextRecord frames the record at the cursor. On success the cursor sits at
// the payload start. If the header cannot be read, or the declared length
// runs past end-of-file, the cursor is not moved and ok is false.
func (s *Stream) NextRecord() (rec Record, ok bool) {
	rec, err := s.header()
	if err != nil {
		return Record{}, false
	}
	rec.PayloadStart = rec.Offset + headerSize
	rec.PayloadEnd = rec.PayloadStart + int64(rec.Length)
	if !s.CheckPosition(rec.PayloadEnd) {
		return Record{}, false
	}
	if err := s.SeekTo(rec.PayloadStart); err != nil {
		return Record{}, false
	}
	return rec, true
}

// PeekHeader reads the raw header at the cursor without validating the
// length, for diagnostics. The cursor is not moved.
func (s *Stream) PeekHeader() (Record, bool) {
	rec, err := s.header()
	return rec, err == nil
}

// header reads the header at the cursor and seeks back to it.
func (s *Stream) header() (Record, error) {
	start := s.pos
	var hdr [headerSize]byte
	if _, err := s.read(hdr[:], s.limit()); err != nil {
		return Record{Offset: start}, err
	}
	if err := s.SeekTo(start); err != nil {
		return Record{Offset: start}, err
	}
	return Record{
		Tag:     hdr[0],
		Subtype: hdr[1],
		Length:  binary.LittleEndian.Uint16(hdr[2:]),
		Offset:  start,
	}, nil
}

// Payload returns a bounded view of the record payload.
func (s *Stream) Payload(rec Record) *Payload {
	return &Payload{s: s, Start: rec.PayloadStart, End: rec.PayloadEnd}
}
