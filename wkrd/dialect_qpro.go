package wkrd

import "golang.org/x/text/encoding/charmap"

// Quattro Pro for Windows record tags.
const (
	qproDimension   = 0x06
	qproBlank       = 0x0C
	qproInteger     = 0x0D
	qproNumber      = 0x0E
	qproLabel       = 0x0F
	qproFormula     = 0x10
	qproString      = 0x33
	qproBeginSheet  = 0xCA
	qproEndSheet    = 0xCB
	qproColWidth    = 0xD8
	qproRowHeight   = 0xD9
	qproDefaultSize = 0xDA
	qproStyleDef    = 0x01
)

var qproDialect = &Dialect{
	Name:        "qpro",
	Description: "Quattro Pro for Windows notebook",
	codec:       AddressCodec{RelBits: 14},
	opcodes:     quattroOpcodes,
	encoding:    charmap.Windows1252,
	versions: map[uint16]string{
		0x1001: "Quattro Pro 1 (WB1)",
		0x1002: "Quattro Pro 5 (WB2)",
	},
	bofLen:   2,
	bofExact: true,
	handlers: map[RecordKey]handlerFunc{
		{Tag: qproDimension}:                    qproReadDimension,
		{Tag: qproBlank}:                        qproReadBlank,
		{Tag: qproInteger}:                      qproReadInteger,
		{Tag: qproNumber}:                       qproReadNumber,
		{Tag: qproLabel}:                        qproReadLabel,
		{Tag: qproFormula}:                      qproReadFormula,
		{Tag: qproString}:                       qproReadString,
		{Tag: qproBeginSheet}:                   qproReadBeginSheet,
		{Tag: qproEndSheet}:                     qproReadEndSheet,
		{Tag: qproColWidth}:                     qproReadColWidth,
		{Tag: qproRowHeight}:                    qproReadRowHeight,
		{Tag: qproDefaultSize}:                  qproReadDefaultSize,
		{Tag: qproStyleDef, Subtype: zoneStyle}: qproReadStyleDef,
	},
	names: map[RecordKey]string{
		{Tag: qproDimension}:                    "DIMENSION",
		{Tag: qproBlank}:                        "BLANK",
		{Tag: qproInteger}:                      "INTEGER",
		{Tag: qproNumber}:                       "NUMBER",
		{Tag: qproLabel}:                        "LABEL",
		{Tag: qproFormula}:                      "FORMULA",
		{Tag: qproString}:                       "STRING",
		{Tag: qproBeginSheet}:                   "BEGINSHEET",
		{Tag: qproEndSheet}:                     "ENDSHEET",
		{Tag: qproColWidth}:                     "COLWIDTH",
		{Tag: qproRowHeight}:                    "ROWHEIGHT",
		{Tag: qproDefaultSize}:                  "DEFAULTSIZE",
		{Tag: qproStyleDef, Subtype: zoneStyle}: "STYLEDEF",
	},
	resyncKeys: map[RecordKey]bool{
		{Tag: qproBeginSheet}: true,
	},
	zeroPadding: true,
	oleStreams:  []string{"NativeContent_MAIN"},
}

// qproCell reads the cell header: col u8, sheet u8, row u16, style u16.
func qproCell(p *parser, body *Payload) (*Sheet, Position, int, error) {
	col, err := body.U8()
	if err != nil {
		return nil, Position{}, 0, err
	}
	sheet, err := body.U8()
	if err != nil {
		return nil, Position{}, 0, err
	}
	row, err := body.U16()
	if err != nil {
		return nil, Position{}, 0, err
	}
	style, err := body.U16()
	if err != nil {
		return nil, Position{}, 0, err
	}
	return p.targetSheet(int(sheet)), Position{Col: int(col), Row: int(row)}, int(style), nil
}

// currentSheet is the sheet that size records apply to.
func (p *parser) currentSheet() *Sheet {
	return p.targetSheet(0)
}

func qproReadDimension(p *parser, rec Record, body *Payload) error {
	var c1, s1, c2, s2 uint8
	var r1, r2 uint16
	var err error
	if c1, err = body.U8(); err != nil {
		return err
	}
	if s1, err = body.U8(); err != nil {
		return err
	}
	if r1, err = body.U16(); err != nil {
		return err
	}
	if c2, err = body.U8(); err != nil {
		return err
	}
	if s2, err = body.U8(); err != nil {
		return err
	}
	if r2, err = body.U16(); err != nil {
		return err
	}
	for s := int(s1); s <= int(s2); s++ {
		sh := p.sheetFor(s)
		sh.Dimensions = Range{FirstCol: int(c1), FirstRow: int(r1), LastCol: int(c2), LastRow: int(r2)}
		sh.HasDimensions = true
	}
	return nil
}

func qproReadBlank(p *parser, rec Record, body *Payload) error {
	sh, pos, style, err := qproCell(p, body)
	if err != nil {
		return err
	}
	p.setStyle(sh, pos, p.localStyle(style, rec.Offset))
	return nil
}

func qproReadInteger(p *parser, rec Record, body *Payload) error {
	sh, pos, style, err := qproCell(p, body)
	if err != nil {
		return err
	}
	v, err := body.I16()
	if err != nil {
		return err
	}
	p.setNumber(sh, pos, float64(v))
	p.setStyle(sh, pos, p.localStyle(style, rec.Offset))
	return nil
}

func qproReadNumber(p *parser, rec Record, body *Payload) error {
	sh, pos, style, err := qproCell(p, body)
	if err != nil {
		return err
	}
	v, err := body.F64()
	if err != nil {
		return err
	}
	p.setNumber(sh, pos, v)
	p.setStyle(sh, pos, p.localStyle(style, rec.Offset))
	return nil
}

func qproReadLabel(p *parser, rec Record, body *Payload) error {
	sh, pos, style, err := qproCell(p, body)
	if err != nil {
		return err
	}
	p.setStyle(sh, pos, p.localStyle(style, rec.Offset))
	return p.setLabel(sh, pos, body)
}

func qproReadFormula(p *parser, rec Record, body *Payload) error {
	sh, pos, style, err := qproCell(p, body)
	if err != nil {
		return err
	}
	p.setStyle(sh, pos, p.localStyle(style, rec.Offset))
	return p.setFormula(sh, pos, body, wideCoords)
}

func qproReadString(p *parser, rec Record, body *Payload) error {
	col, err := body.U8()
	if err != nil {
		return err
	}
	sheet, err := body.U8()
	if err != nil {
		return err
	}
	row, err := body.U16()
	if err != nil {
		return err
	}
	return p.setFormulaResult(p.targetSheet(int(sheet)), Position{Col: int(col), Row: int(row)}, body)
}

// qproReadBeginSheet opens a page, or a report sub-sheet when a page is
// already open.
func qproReadBeginSheet(p *parser, rec Record, body *Payload) error {
	number, err := body.U8()
	if err != nil {
		return err
	}
	_, raw, err := body.CString()
	if err != nil {
		return err
	}
	if len(p.stack) > 0 {
		p.openSubSheet(p.text(raw), SheetReport)
		return nil
	}
	sh := p.sheetFor(int(number))
	if len(raw) > 0 {
		sh.Name = p.text(raw)
	}
	p.pushSheet(sh)
	return nil
}

func qproReadEndSheet(p *parser, rec Record, body *Payload) error {
	p.popSheet(rec.Offset)
	return nil
}

func qproReadColWidth(p *parser, rec Record, body *Payload) error {
	col, err := body.U8()
	if err != nil {
		return err
	}
	width, err := body.U16()
	if err != nil {
		return err
	}
	p.currentSheet().ColumnWidths.Set(int(col), float64(width)/256)
	return nil
}

func qproReadRowHeight(p *parser, rec Record, body *Payload) error {
	row, err := body.U16()
	if err != nil {
		return err
	}
	height, err := body.U16()
	if err != nil {
		return err
	}
	p.currentSheet().RowHeights.Set(int(row), twipsToPoints(height))
	return nil
}

func qproReadDefaultSize(p *parser, rec Record, body *Payload) error {
	width, err := body.U16()
	if err != nil {
		return err
	}
	height, err := body.U16()
	if err != nil {
		return err
	}
	sh := p.currentSheet()
	sh.ColumnWidths.Default = float64(width) / 256
	sh.RowHeights.Default = twipsToPoints(height)
	return nil
}

func qproReadStyleDef(p *parser, rec Record, body *Payload) error {
	return p.readStyleDef(body)
}
