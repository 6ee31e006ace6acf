package wkrd

import (
	"fmt"
	"strconv"
	"strings"
)

// Coordinate encodings. A stored coordinate is 16 bits wide.
const (
	coordAbsMask   = 0xF000
	coordRelMask   = 0xC000
	coordRelFlag   = 0x8000
	coordNoValue   = 0xFFFF
	coordAbsLimit  = 0x1000
	narrowRelMask  = 0x00FF
	narrowHighBits = 0x3F00
	wideRelMask    = 0x3FFF
	wideSignBit    = 0x2000
)

// AddressCodec decodes and encodes stored coordinates. RelBits is the width
// of the relative offset: 8 in the DOS dialect, 14 in later ones.
type AddressCodec struct {
	RelBits uint
}

// Coord is a decoded coordinate. Missing marks the reserved all-ones
// placeholder.
type Coord struct {
	Value    int
	Relative bool
	Missing  bool
}

// Decode resolves raw against anchor.
func (c AddressCodec) Decode(raw uint16, anchor int) (Coord, error) {
	switch {
	case raw == coordNoValue:
		return Coord{Missing: true}, nil
	case raw&coordAbsMask == 0:
		return Coord{Value: int(raw)}, nil
	case raw&coordRelMask != coordRelFlag:
		return Coord{}, &AddressError{Raw: raw, Anchor: anchor, Message: "reserved bit pattern"}
	}

	var off int
	if c.RelBits == 8 {
		if raw&narrowHighBits != 0 {
			return Coord{}, &AddressError{Raw: raw, Anchor: anchor, Message: "relative offset wider than 8 bits"}
		}
		off = int(raw & narrowRelMask)
		if off&0x80 != 0 && off+anchor >= 0x100 {
			off -= 0x100
		}
	} else {
		off = int(raw & wideRelMask)
		if off&wideSignBit != 0 {
			off -= 0x4000
		}
	}
	v := anchor + off
	if v < 0 {
		return Coord{Value: v, Relative: true}, &AddressError{Raw: raw, Anchor: anchor, Message: "relative coordinate resolves before the first index"}
	}
	return Coord{Value: v, Relative: true}, nil
}

// Encode is the inverse of Decode.
func (c AddressCodec) Encode(v Coord, anchor int) (uint16, error) {
	if v.Missing {
		return coordNoValue, nil
	}
	if !v.Relative {
		if v.Value < 0 || v.Value >= coordAbsLimit {
			return 0, &AddressError{Anchor: anchor, Message: fmt.Sprintf("absolute value %d out of range", v.Value)}
		}
		return uint16(v.Value), nil
	}
	off := v.Value - anchor
	var raw uint16
	if c.RelBits == 8 {
		raw = coordRelFlag | uint16(off&narrowRelMask)
	} else {
		if off < -wideSignBit || off >= wideSignBit {
			return 0, &AddressError{Anchor: anchor, Message: fmt.Sprintf("relative offset %d out of range", off)}
		}
		raw = coordRelFlag | uint16(off&wideRelMask)
	}
	if back, err := c.Decode(raw, anchor); err != nil || back.Value != v.Value {
		return 0, &AddressError{Raw: raw, Anchor: anchor, Message: fmt.Sprintf("value %d not representable", v.Value)}
	}
	return raw, nil
}

// Position addresses a cell inside one sheet, zero based.
type Position struct {
	Col int
	Row int
}

func (p Position) String() string {
	return CellName(p.Row, p.Col)
}

// CellRef is a decoded cell reference from a formula operand run.
type CellRef struct {
	Column           int32
	Row              int32
	Sheet            int32
	ColumnIsRelative bool
	RowIsRelative    bool
	SheetIsRelative  bool
	Invalid          bool
}

// Anchor is the location of the cell owning a formula.
type Anchor struct {
	Col   int
	Row   int
	Sheet int
}

// DecodeRef decodes a column/row pair and, when hasSheet is set, a sheet
// number. The sheet is biased against the current sheet of the anchor. A
// coordinate that fails to decode leaves the reference Invalid and the
// error is returned alongside it.
func (c AddressCodec) DecodeRef(col, row, sheet uint16, hasSheet bool, at Anchor) (CellRef, []error) {
	ref := CellRef{Sheet: int32(at.Sheet)}
	var errs []error
	apply := func(raw uint16, anchor int, dst *int32, rel *bool) {
		v, err := c.Decode(raw, anchor)
		switch {
		case err != nil:
			ref.Invalid = true
			errs = append(errs, err)
		case v.Missing:
			ref.Invalid = true
			errs = append(errs, errMissingCoord)
		default:
			*dst = int32(v.Value)
			*rel = v.Relative
		}
	}
	apply(col, at.Col, &ref.Column, &ref.ColumnIsRelative)
	apply(row, at.Row, &ref.Row, &ref.RowIsRelative)
	if hasSheet && sheet != coordNoValue {
		apply(sheet, at.Sheet, &ref.Sheet, &ref.SheetIsRelative)
	}
	return ref, errs
}

// errMissingCoord marks the reserved "no value" placeholder. It is not an
// AddressError and is reported once per document.
var errMissingCoord = &missingCoordError{}

type missingCoordError struct{}

func (*missingCoordError) Error() string { return "coordinate placeholder without a value" }

// ColumnName returns the letter name of a zero-based column index:
// 0 is "A", 25 is "Z", 26 is "AA".
func ColumnName(colx int) string {
	if colx < 0 {
		return "?"
	}
	var b [8]byte
	i := len(b)
	for {
		i--
		b[i] = byte('A' + colx%26)
		colx = colx/26 - 1
		if colx < 0 {
			break
		}
	}
	return string(b[i:])
}

// CellName returns the A1-style name of a zero-based row and column.
func CellName(rowx, colx int) string {
	return ColumnName(colx) + strconv.Itoa(rowx+1)
}

// CellNameRel returns the cell name with "$" in front of absolute parts.
func CellNameRel(rowx, colx int, rowRel, colRel bool) string {
	var b strings.Builder
	if !colRel {
		b.WriteByte('$')
	}
	b.WriteString(ColumnName(colx))
	if !rowRel {
		b.WriteByte('$')
	}
	b.WriteString(strconv.Itoa(rowx + 1))
	return b.String()
}

// QuotedSheetName returns name quoted when it contains characters that are
// not allowed in a bare sheet prefix.
func QuotedSheetName(name string) string {
	if name == "" {
		return "''"
	}
	if strings.ContainsAny(name, "' !:.;,()-+") {
		return "'" + strings.ReplaceAll(name, "'", "''") + "'"
	}
	return name
}
