package wkrd

import (
	"github.com/pkg/errors"
	"golang.org/x/text/encoding/charmap"
)

// DOS worksheet record tags.
const (
	wksRange   = 0x06
	wksWindow1 = 0x07
	wksColW1   = 0x08
	wksBlank   = 0x0C
	wksInteger = 0x0D
	wksNumber  = 0x0E
	wksLabel   = 0x0F
	wksFormula = 0x10
	wksString  = 0x33
)

// wksMaxCols is the column count of a DOS worksheet (A..IV).
const wksMaxCols = 256

func wksCheckCol(col uint16) error {
	if col >= wksMaxCols {
		return errors.Errorf("column %d beyond IV", col)
	}
	return nil
}

// wksDialect is the DOS Lotus 1-2-3 / Symphony worksheet: one sheet, 8-bit
// relative offsets, code page 437.
var wksDialect = &Dialect{
	Name:        "wks",
	Description: "Lotus 1-2-3 for DOS worksheet",
	codec:       AddressCodec{RelBits: 8},
	opcodes:     lotusOpcodes,
	encoding:    charmap.CodePage437,
	versions: map[uint16]string{
		0x0404: "1-2-3 release 1A",
		0x0405: "Symphony",
		0x0406: "1-2-3 release 2",
	},
	bofLen:   2,
	bofExact: true,
	handlers: map[RecordKey]handlerFunc{
		{Tag: wksRange}:   wksReadRange,
		{Tag: wksWindow1}: wksReadWindow1,
		{Tag: wksColW1}:   wksReadColWidth,
		{Tag: wksBlank}:   wksReadBlank,
		{Tag: wksInteger}: wksReadInteger,
		{Tag: wksNumber}:  wksReadNumber,
		{Tag: wksLabel}:   wksReadLabel,
		{Tag: wksFormula}: wksReadFormula,
		{Tag: wksString}:  wksReadString,
	},
	names: map[RecordKey]string{
		{Tag: wksRange}:   "RANGE",
		{Tag: wksWindow1}: "WINDOW1",
		{Tag: wksColW1}:   "COLW1",
		{Tag: wksBlank}:   "BLANK",
		{Tag: wksInteger}: "INTEGER",
		{Tag: wksNumber}:  "NUMBER",
		{Tag: wksLabel}:   "LABEL",
		{Tag: wksFormula}: "FORMULA",
		{Tag: wksString}:  "STRING",
	},
	begin: func(p *parser) {
		p.sheetFor(0)
	},
}

// wksCell reads the cell header: format u8, col u16, row u16.
func wksCell(p *parser, body *Payload) (*Sheet, Position, uint8, error) {
	format, err := body.U8()
	if err != nil {
		return nil, Position{}, 0, err
	}
	col, err := body.U16()
	if err != nil {
		return nil, Position{}, 0, err
	}
	row, err := body.U16()
	if err != nil {
		return nil, Position{}, 0, err
	}
	if err := wksCheckCol(col); err != nil {
		return nil, Position{}, 0, err
	}
	return p.sheetFor(0), Position{Col: int(col), Row: int(row)}, format, nil
}

func wksCoords(body *Payload) (col, row, sheet uint16, hasSheet bool, err error) {
	if col, err = body.U16(); err != nil {
		return
	}
	row, err = body.U16()
	return col, row, 0, false, err
}

func wksReadRange(p *parser, rec Record, body *Payload) error {
	var v [4]uint16
	for i := range v {
		x, err := body.U16()
		if err != nil {
			return err
		}
		v[i] = x
	}
	sh := p.sheetFor(0)
	if v[0] == 0xFFFF {
		// empty worksheet
		return nil
	}
	if err := wksCheckCol(v[2]); err != nil {
		return err
	}
	sh.Dimensions = Range{FirstCol: int(v[0]), FirstRow: int(v[1]), LastCol: int(v[2]), LastRow: int(v[3])}
	sh.HasDimensions = true
	return nil
}

func wksReadWindow1(p *parser, rec Record, body *Payload) error {
	if err := body.Skip(6); err != nil {
		return err
	}
	width, err := body.U16()
	if err != nil {
		return err
	}
	p.sheetFor(0).ColumnWidths.Default = float64(width)
	return nil
}

func wksReadColWidth(p *parser, rec Record, body *Payload) error {
	col, err := body.U16()
	if err != nil {
		return err
	}
	width, err := body.U8()
	if err != nil {
		return err
	}
	if err := wksCheckCol(col); err != nil {
		return err
	}
	p.sheetFor(0).ColumnWidths.Set(int(col), float64(width))
	return nil
}

func wksReadBlank(p *parser, rec Record, body *Payload) error {
	sh, pos, format, err := wksCell(p, body)
	if err != nil {
		return err
	}
	p.setStyle(sh, pos, p.formatStyle(format))
	return nil
}

func wksReadInteger(p *parser, rec Record, body *Payload) error {
	sh, pos, format, err := wksCell(p, body)
	if err != nil {
		return err
	}
	v, err := body.I16()
	if err != nil {
		return err
	}
	p.setNumber(sh, pos, float64(v))
	p.setStyle(sh, pos, p.formatStyle(format))
	return nil
}

func wksReadNumber(p *parser, rec Record, body *Payload) error {
	sh, pos, format, err := wksCell(p, body)
	if err != nil {
		return err
	}
	v, err := body.F64()
	if err != nil {
		return err
	}
	p.setNumber(sh, pos, v)
	p.setStyle(sh, pos, p.formatStyle(format))
	return nil
}

func wksReadLabel(p *parser, rec Record, body *Payload) error {
	sh, pos, format, err := wksCell(p, body)
	if err != nil {
		return err
	}
	p.setStyle(sh, pos, p.formatStyle(format))
	return p.setLabel(sh, pos, body)
}

func wksReadFormula(p *parser, rec Record, body *Payload) error {
	sh, pos, format, err := wksCell(p, body)
	if err != nil {
		return err
	}
	p.setStyle(sh, pos, p.formatStyle(format))
	return p.setFormula(sh, pos, body, wksCoords)
}

func wksReadString(p *parser, rec Record, body *Payload) error {
	col, err := body.U16()
	if err != nil {
		return err
	}
	row, err := body.U16()
	if err != nil {
		return err
	}
	return p.setFormulaResult(p.sheetFor(0), Position{Col: int(col), Row: int(row)}, body)
}
