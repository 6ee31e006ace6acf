package wkrd

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrTruncated is returned by every read that would run past the end of the
// stream or of a record payload.
var ErrTruncated = errors.New("truncated read")

// ErrNoStream is returned when a compound document does not contain the
// dialect's native stream.
var ErrNoStream = errors.New("no native stream in compound document")

// HeaderError reports that the strict format identification failed. It is the
// only error that aborts a whole parse.
type HeaderError struct {
	Message string
}

func (e *HeaderError) Error() string {
	return "unsupported or not this format: " + e.Message
}

// NewHeaderError creates a new HeaderError with the given message.
func NewHeaderError(format string, args ...interface{}) *HeaderError {
	return &HeaderError{Message: fmt.Sprintf(format, args...)}
}

// FramingError reports a record whose declared length runs past the end of
// the stream, or a header that could not be read at all.
type FramingError struct {
	Offset  int64
	Tag     uint8
	Subtype uint8
	Length  uint16
	Message string
}

func (e *FramingError) Error() string {
	return fmt.Sprintf("framing error at offset %d (tag 0x%02x, subtype 0x%02x, length %d): %s",
		e.Offset, e.Tag, e.Subtype, e.Length, e.Message)
}

// DecodeError reports a formula opcode stream that did not reduce to a single
// well-formed result.
type DecodeError struct {
	Offset  int
	Opcode  int
	Message string
}

func (e *DecodeError) Error() string {
	if e.Opcode < 0 {
		return fmt.Sprintf("formula decode error at byte %d: %s", e.Offset, e.Message)
	}
	return fmt.Sprintf("formula decode error at byte %d (opcode 0x%02x): %s", e.Offset, e.Opcode, e.Message)
}

func newDecodeError(pos, opcode int, format string, args ...interface{}) *DecodeError {
	return &DecodeError{Offset: pos, Opcode: opcode, Message: fmt.Sprintf(format, args...)}
}

// AddressError reports a stored coordinate outside the valid bit patterns, or
// a relative coordinate that resolves to a negative index.
type AddressError struct {
	Raw     uint16
	Anchor  int
	Message string
}

func (e *AddressError) Error() string {
	return fmt.Sprintf("bad coordinate 0x%04x (anchor %d): %s", e.Raw, e.Anchor, e.Message)
}

// IsHeaderError reports whether err, or its cause, is a HeaderError.
func IsHeaderError(err error) bool {
	var he *HeaderError
	return errors.As(err, &he)
}
