package wkrdtest

import (
	"bytes"
	"encoding/binary"
	"math"
)

// Builder assembles a record stream.
type Builder struct {
	buf bytes.Buffer
}

// New returns an empty Builder.
func New() *Builder {
	return &Builder{}
}

// Record appends a record whose payload is the concatenation of parts. The
// length field is computed from the parts.
func (b *Builder) Record(tag, subtype byte, parts ...[]byte) *Builder {
	payload := Join(parts...)
	b.buf.WriteByte(tag)
	b.buf.WriteByte(subtype)
	b.buf.Write(U16(uint16(len(payload))))
	b.buf.Write(payload)
	return b
}

// RecordLen appends a record header with an explicit length followed by
// payload, which need not match it.
func (b *Builder) RecordLen(tag, subtype byte, length uint16, payload []byte) *Builder {
	b.buf.WriteByte(tag)
	b.buf.WriteByte(subtype)
	b.buf.Write(U16(length))
	b.buf.Write(payload)
	return b
}

// Raw appends bytes as they are.
func (b *Builder) Raw(p ...byte) *Builder {
	b.buf.Write(p)
	return b
}

// BOF appends a two-byte header record.
func (b *Builder) BOF(version uint16) *Builder {
	return b.Record(0x00, 0x00, U16(version))
}

// BOF6 appends a six-byte header record as written by the Windows 1-2-3.
func (b *Builder) BOF6(version uint16) *Builder {
	return b.Record(0x00, 0x00, U16(version), U16(0), U16(0))
}

// EOF appends the end marker.
func (b *Builder) EOF() *Builder {
	return b.Record(0x01, 0x00)
}

// Len returns the number of bytes written so far.
func (b *Builder) Len() int {
	return b.buf.Len()
}

// Bytes returns a copy of the stream.
func (b *Builder) Bytes() []byte {
	return append([]byte(nil), b.buf.Bytes()...)
}

// Join concatenates byte slices.
func Join(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func U8(v uint8) []byte {
	return []byte{v}
}

func U16(v uint16) []byte {
	return binary.LittleEndian.AppendUint16(nil, v)
}

func I16(v int16) []byte {
	return U16(uint16(v))
}

func F64(v float64) []byte {
	return binary.LittleEndian.AppendUint64(nil, math.Float64bits(v))
}

// CString returns s followed by a NUL.
func CString(s string) []byte {
	return append([]byte(s), 0)
}

// WKSCell is the DOS cell header: format, col, row.
func WKSCell(format uint8, col, row uint16) []byte {
	return Join(U8(format), U16(col), U16(row))
}

// WK3Cell is the Windows 1-2-3 cell header: row, sheet, col.
func WK3Cell(row uint16, sheet, col uint8) []byte {
	return Join(U16(row), U8(sheet), U8(col))
}

// QProCell is the Quattro Pro cell header: col, sheet, row, style.
func QProCell(col, sheet uint8, row, style uint16) []byte {
	return Join(U8(col), U8(sheet), U16(row), U16(style))
}

// Formula returns a formula body: value, code length, code and operands.
func Formula(value float64, code []byte, operands ...[]byte) []byte {
	return Join(F64(value), U16(uint16(len(code))), code, Join(operands...))
}

// Cell2 is a cell operand with a column and row group.
func Cell2(col, row uint16) []byte {
	return Join(U8(1), U16(col), U16(row))
}

// Range2 is a range operand with two column and row groups.
func Range2(c1, r1, c2, r2 uint16) []byte {
	return Join(U8(2), U16(c1), U16(r1), U16(c2), U16(r2))
}

// Cell3 is a cell operand with a column, row and sheet group.
func Cell3(col, row, sheet uint16) []byte {
	return Join(U8(1), U16(col), U16(row), U16(sheet))
}

// Range3 is a range operand with two column, row and sheet groups.
func Range3(c1, r1, s1, c2, r2, s2 uint16) []byte {
	return Join(U8(2), U16(c1), U16(r1), U16(s1), U16(c2), U16(r2), U16(s2))
}

// Rel returns the stored form of a relative offset with a 14-bit field.
func Rel(off int) uint16 {
	return 0x8000 | uint16(off&0x3FFF)
}

// Rel8 returns the stored form of a relative offset with an 8-bit field.
func Rel8(off int) uint16 {
	return 0x8000 | uint16(off&0xFF)
}
