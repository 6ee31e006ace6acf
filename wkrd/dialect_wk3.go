package wkrd

import "golang.org/x/text/encoding/charmap"

// Windows 1-2-3 record tags. Subtype 1 holds styles, subtype 2 sub-sheets.
const (
	wk3Dimension = 0x06
	wk3ColWidth  = 0x07
	wk3DefWidth  = 0x08
	wk3RowHeight = 0x09
	wk3SheetName = 0x0B
	wk3Label     = 0x16
	wk3Number    = 0x17
	wk3SmallNum  = 0x18
	wk3Formula   = 0x19
	wk3String    = 0x1A

	wk3StyleDef  = 0x01
	wk3CellStyle = 0x02

	wk3SubBegin = 0x01
	wk3SubEnd   = 0x02
)

const (
	zoneMain     = 0x00
	zoneStyle    = 0x01
	zoneSubSheet = 0x02
)

var wk3Dialect = &Dialect{
	Name:        "wk3",
	Description: "Lotus 1-2-3 for Windows workbook",
	codec:       AddressCodec{RelBits: 14},
	opcodes:     lotusOpcodes,
	encoding:    charmap.Windows1252,
	versions: map[uint16]string{
		0x1000: "1-2-3 release 3",
		0x1002: "1-2-3 release 3.1",
		0x1003: "1-2-3 release 4",
		0x1005: "1-2-3 release 5",
	},
	bofLen: 6,
	handlers: map[RecordKey]handlerFunc{
		{Tag: wk3Dimension}:                       wk3ReadDimension,
		{Tag: wk3ColWidth}:                        wk3ReadColWidth,
		{Tag: wk3DefWidth}:                        wk3ReadDefWidth,
		{Tag: wk3RowHeight}:                       wk3ReadRowHeight,
		{Tag: wk3SheetName}:                       wk3ReadSheetName,
		{Tag: wk3Label}:                           wk3ReadLabel,
		{Tag: wk3Number}:                          wk3ReadNumber,
		{Tag: wk3SmallNum}:                        wk3ReadSmallNum,
		{Tag: wk3Formula}:                         wk3ReadFormula,
		{Tag: wk3String}:                          wk3ReadString,
		{Tag: wk3StyleDef, Subtype: zoneStyle}:    wk3ReadStyleDef,
		{Tag: wk3CellStyle, Subtype: zoneStyle}:   wk3ReadCellStyle,
		{Tag: wk3SubBegin, Subtype: zoneSubSheet}: wk3ReadSubBegin,
		{Tag: wk3SubEnd, Subtype: zoneSubSheet}:   wk3ReadSubEnd,
	},
	names: map[RecordKey]string{
		{Tag: wk3Dimension}:                       "DIMENSION",
		{Tag: wk3ColWidth}:                        "COLWIDTH",
		{Tag: wk3DefWidth}:                        "DEFWIDTH",
		{Tag: wk3RowHeight}:                       "ROWHEIGHT",
		{Tag: wk3SheetName}:                       "SHEETNAME",
		{Tag: wk3Label}:                           "LABEL",
		{Tag: wk3Number}:                          "NUMBER",
		{Tag: wk3SmallNum}:                        "SMALLNUM",
		{Tag: wk3Formula}:                         "FORMULA",
		{Tag: wk3String}:                          "STRING",
		{Tag: wk3StyleDef, Subtype: zoneStyle}:    "STYLEDEF",
		{Tag: wk3CellStyle, Subtype: zoneStyle}:   "CELLSTYLE",
		{Tag: wk3SubBegin, Subtype: zoneSubSheet}: "SUBSHEET",
		{Tag: wk3SubEnd, Subtype: zoneSubSheet}:   "SUBSHEETEND",
	},
	resyncKeys: map[RecordKey]bool{
		{Tag: wk3SheetName}: true,
	},
}

// wk3Cell reads the cell header: row u16, sheet u8, col u8.
func wk3Cell(p *parser, body *Payload) (*Sheet, Position, error) {
	row, err := body.U16()
	if err != nil {
		return nil, Position{}, err
	}
	sheet, err := body.U8()
	if err != nil {
		return nil, Position{}, err
	}
	col, err := body.U8()
	if err != nil {
		return nil, Position{}, err
	}
	return p.targetSheet(int(sheet)), Position{Col: int(col), Row: int(row)}, nil
}

// wideCoords reads col u16, row u16, sheet u16.
func wideCoords(body *Payload) (col, row, sheet uint16, hasSheet bool, err error) {
	if col, err = body.U16(); err != nil {
		return
	}
	if row, err = body.U16(); err != nil {
		return
	}
	sheet, err = body.U16()
	return col, row, sheet, true, err
}

func wk3ReadDimension(p *parser, rec Record, body *Payload) error {
	var r1, r2 uint16
	var s1, c1, s2, c2 uint8
	var err error
	if r1, err = body.U16(); err != nil {
		return err
	}
	if s1, err = body.U8(); err != nil {
		return err
	}
	if c1, err = body.U8(); err != nil {
		return err
	}
	if r2, err = body.U16(); err != nil {
		return err
	}
	if s2, err = body.U8(); err != nil {
		return err
	}
	if c2, err = body.U8(); err != nil {
		return err
	}
	for s := int(s1); s <= int(s2); s++ {
		sh := p.sheetFor(s)
		sh.Dimensions = Range{FirstCol: int(c1), FirstRow: int(r1), LastCol: int(c2), LastRow: int(r2)}
		sh.HasDimensions = true
	}
	return nil
}

func wk3ReadColWidth(p *parser, rec Record, body *Payload) error {
	sheet, err := body.U8()
	if err != nil {
		return err
	}
	col, err := body.U8()
	if err != nil {
		return err
	}
	width, err := body.U8()
	if err != nil {
		return err
	}
	p.sheetFor(int(sheet)).ColumnWidths.Set(int(col), float64(width))
	return nil
}

func wk3ReadDefWidth(p *parser, rec Record, body *Payload) error {
	sheet, err := body.U8()
	if err != nil {
		return err
	}
	width, err := body.U8()
	if err != nil {
		return err
	}
	p.sheetFor(int(sheet)).ColumnWidths.Default = float64(width)
	return nil
}

func wk3ReadRowHeight(p *parser, rec Record, body *Payload) error {
	sheet, err := body.U8()
	if err != nil {
		return err
	}
	if err := body.Skip(1); err != nil {
		return err
	}
	row, err := body.U16()
	if err != nil {
		return err
	}
	height, err := body.U16()
	if err != nil {
		return err
	}
	p.sheetFor(int(sheet)).RowHeights.Set(int(row), twipsToPoints(height))
	return nil
}

func wk3ReadSheetName(p *parser, rec Record, body *Payload) error {
	sheet, err := body.U8()
	if err != nil {
		return err
	}
	_, raw, err := body.CString()
	if err != nil {
		return err
	}
	if len(raw) > 0 {
		p.sheetFor(int(sheet)).Name = p.text(raw)
	}
	return nil
}

func wk3ReadLabel(p *parser, rec Record, body *Payload) error {
	sh, pos, err := wk3Cell(p, body)
	if err != nil {
		return err
	}
	return p.setLabel(sh, pos, body)
}

func wk3ReadNumber(p *parser, rec Record, body *Payload) error {
	sh, pos, err := wk3Cell(p, body)
	if err != nil {
		return err
	}
	v, err := body.F64()
	if err != nil {
		return err
	}
	p.setNumber(sh, pos, v)
	return nil
}

func wk3ReadSmallNum(p *parser, rec Record, body *Payload) error {
	sh, pos, err := wk3Cell(p, body)
	if err != nil {
		return err
	}
	v, err := body.I16()
	if err != nil {
		return err
	}
	p.setNumber(sh, pos, float64(v))
	return nil
}

func wk3ReadFormula(p *parser, rec Record, body *Payload) error {
	sh, pos, err := wk3Cell(p, body)
	if err != nil {
		return err
	}
	return p.setFormula(sh, pos, body, wideCoords)
}

func wk3ReadString(p *parser, rec Record, body *Payload) error {
	sh, pos, err := wk3Cell(p, body)
	if err != nil {
		return err
	}
	return p.setFormulaResult(sh, pos, body)
}

func wk3ReadStyleDef(p *parser, rec Record, body *Payload) error {
	return p.readStyleDef(body)
}

func wk3ReadCellStyle(p *parser, rec Record, body *Payload) error {
	sh, pos, err := wk3Cell(p, body)
	if err != nil {
		return err
	}
	id, err := body.U16()
	if err != nil {
		return err
	}
	p.setStyle(sh, pos, p.localStyle(int(id), rec.Offset))
	return nil
}

func wk3ReadSubBegin(p *parser, rec Record, body *Payload) error {
	kind, err := body.U8()
	if err != nil {
		return err
	}
	_, raw, err := body.CString()
	if err != nil {
		return err
	}
	sk := SheetReport
	if kind == 2 {
		sk = SheetFilter
	}
	p.openSubSheet(p.text(raw), sk)
	return nil
}

func wk3ReadSubEnd(p *parser, rec Record, body *Payload) error {
	p.popSheet(rec.Offset)
	return nil
}

func twipsToPoints(v uint16) float64 {
	return float64(v) / 20
}
