package wkrd

import (
	"encoding/binary"
	"io"
	"math"

	"github.com/pkg/errors"
)

// Stream is a cursor over a seekable byte source. The end-of-file offset is
// computed on first use and cached.
type Stream struct {
	rs  io.ReadSeeker
	pos int64
	eof int64
	buf [8]byte
}

// NewStream wraps rs. The cursor starts at the source's current position.
func NewStream(rs io.ReadSeeker) (*Stream, error) {
	pos, err := rs.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, errors.Wrap(err, "stream position")
	}
	return &Stream{rs: rs, pos: pos, eof: -1}, nil
}

// Tell returns the cursor position.
func (s *Stream) Tell() int64 {
	return s.pos
}

// Len returns the end-of-file offset.
func (s *Stream) Len() (int64, error) {
	if s.eof >= 0 {
		return s.eof, nil
	}
	end, err := s.rs.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, errors.Wrap(err, "seek to end")
	}
	if _, err := s.rs.Seek(s.pos, io.SeekStart); err != nil {
		return 0, errors.Wrap(err, "restore position")
	}
	s.eof = end
	return end, nil
}

// CheckPosition reports whether p lies inside the stream (p == end is the
// position right after the last byte and is inside).
func (s *Stream) CheckPosition(p int64) bool {
	if p < 0 {
		return false
	}
	end, err := s.Len()
	if err != nil {
		return false
	}
	return p <= end
}

// Remaining returns the number of bytes between the cursor and end-of-file.
func (s *Stream) Remaining() int64 {
	end, err := s.Len()
	if err != nil || end < s.pos {
		return 0
	}
	return end - s.pos
}

// SeekTo moves the cursor to the absolute position p.
func (s *Stream) SeekTo(p int64) error {
	if !s.CheckPosition(p) {
		return errors.Wrapf(ErrTruncated, "seek to %d", p)
	}
	if _, err := s.rs.Seek(p, io.SeekStart); err != nil {
		return errors.Wrapf(err, "seek to %d", p)
	}
	s.pos = p
	return nil
}

// read fills dst without passing limit. Nothing is consumed on failure.
func (s *Stream) read(dst []byte, limit int64) ([]byte, error) {
	n := int64(len(dst))
	if s.pos+n > limit || !s.CheckPosition(s.pos+n) {
		return nil, ErrTruncated
	}
	if _, err := io.ReadFull(s.rs, dst); err != nil {
		if _, serr := s.rs.Seek(s.pos, io.SeekStart); serr != nil {
			return nil, errors.Wrap(serr, "restore position")
		}
		if err == io.ErrUnexpectedEOF || err == io.EOF {
			return nil, ErrTruncated
		}
		return nil, errors.Wrap(err, "read")
	}
	s.pos += n
	return dst, nil
}

func (s *Stream) limit() int64 {
	end, err := s.Len()
	if err != nil {
		return s.pos
	}
	return end
}

// ReadU8 reads one byte.
func (s *Stream) ReadU8() (uint8, error) {
	b, err := s.read(s.buf[:1], s.limit())
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// ReadU16 reads a little-endian uint16.
func (s *Stream) ReadU16() (uint16, error) {
	b, err := s.read(s.buf[:2], s.limit())
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

// ReadU32 reads a little-endian uint32.
func (s *Stream) ReadU32() (uint32, error) {
	b, err := s.read(s.buf[:4], s.limit())
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

// ReadF64 reads a little-endian IEEE 754 double.
func (s *Stream) ReadF64() (float64, error) {
	b, err := s.read(s.buf[:8], s.limit())
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(b)), nil
}

// ReadAt reads len(p) bytes at absolute offset off and restores the cursor.
func (s *Stream) ReadAt(p []byte, off int64) (int, error) {
	save := s.pos
	if err := s.SeekTo(off); err != nil {
		return 0, err
	}
	_, err := s.read(p, s.limit())
	if serr := s.SeekTo(save); err == nil {
		err = serr
	}
	if err != nil {
		return 0, err
	}
	return len(p), nil
}

// Payload is a view of one record's payload. Reads share the stream cursor
// and fail with ErrTruncated rather than crossing End.
type Payload struct {
	s     *Stream
	Start int64
	End   int64
}

// Offset returns the absolute cursor position.
func (p *Payload) Offset() int64 {
	return p.s.pos
}

// Remaining returns the unread payload length.
func (p *Payload) Remaining() int {
	if p.s.pos >= p.End {
		return 0
	}
	return int(p.End - p.s.pos)
}

// Len returns the declared payload length.
func (p *Payload) Len() int {
	return int(p.End - p.Start)
}

// U8 reads one byte.
func (p *Payload) U8() (uint8, error) {
	b, err := p.s.read(p.s.buf[:1], p.End)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// U16 reads a little-endian uint16.
func (p *Payload) U16() (uint16, error) {
	b, err := p.s.read(p.s.buf[:2], p.End)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

// I16 reads a little-endian int16.
func (p *Payload) I16() (int16, error) {
	v, err := p.U16()
	return int16(v), err
}

// U32 reads a little-endian uint32.
func (p *Payload) U32() (uint32, error) {
	b, err := p.s.read(p.s.buf[:4], p.End)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

// F64 reads a little-endian IEEE 754 double.
func (p *Payload) F64() (float64, error) {
	b, err := p.s.read(p.s.buf[:8], p.End)
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(b)), nil
}

// Bytes reads n bytes into a new slice.
func (p *Payload) Bytes(n int) ([]byte, error) {
	if n < 0 {
		return nil, ErrTruncated
	}
	return p.s.read(make([]byte, n), p.End)
}

// Skip advances the cursor by n bytes.
func (p *Payload) Skip(n int) error {
	if n < 0 || p.s.pos+int64(n) > p.End {
		return ErrTruncated
	}
	return p.s.SeekTo(p.s.pos + int64(n))
}

// CString reads a NUL-terminated byte string up to the end of the payload and
// returns its location and bytes, excluding the terminator. A missing
// terminator ends the string at the payload end.
func (p *Payload) CString() (TextRef, []byte, error) {
	start := p.s.pos
	rest, err := p.Bytes(p.Remaining())
	if err != nil {
		return TextRef{}, nil, err
	}
	n := len(rest)
	for i, c := range rest {
		if c == 0 {
			n = i
			break
		}
	}
	return TextRef{Offset: start, Length: n}, rest[:n], nil
}
