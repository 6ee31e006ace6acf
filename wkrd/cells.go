package wkrd

import (
	"github.com/pkg/errors"
)

// Operand run entry kinds following the formula code.
const (
	operandCell  = 0x01
	operandRange = 0x02
)

// coordReader reads one coordinate group of an operand run. hasSheet is
// false for dialects without a sheet component.
type coordReader func(body *Payload) (col, row, sheet uint16, hasSheet bool, err error)

func (p *parser) setNumber(sh *Sheet, pos Position, v float64) *Cell {
	cell := sh.GetOrCreateCell(pos)
	cell.Content = Content{Kind: ContentNumber, Number: v}
	return cell
}

func (p *parser) setStyle(sh *Sheet, pos Position, id int) *Cell {
	cell := sh.GetOrCreateCell(pos)
	cell.Style = id
	return cell
}

// setLabel reads a label string with its optional prefix character. The
// prefix alignment is applied on top of the cell's current style.
func (p *parser) setLabel(sh *Sheet, pos Position, body *Payload) error {
	ref, raw, err := body.CString()
	if err != nil {
		return err
	}
	var align HAlign
	prefixed := false
	if len(raw) > 0 {
		if align, prefixed = labelAlignment(raw[0]); prefixed {
			ref.Offset++
			ref.Length--
			raw = raw[1:]
		}
	}
	cell := sh.GetOrCreateCell(pos)
	cell.Content = Content{Kind: ContentText, Text: ref}
	if prefixed {
		st := p.doc.Style(cell.Style)
		st.HAlign = align
		p.setStyle(sh, pos, p.doc.InternStyle(st))
	}
	p.collectSample(raw)
	return nil
}

// setFormula reads a formula body: value, code length, code and the operand
// run up to the payload end. A formula that fails to decompile leaves the
// cell with its numeric value.
func (p *parser) setFormula(sh *Sheet, pos Position, body *Payload, coords coordReader) error {
	value, err := body.F64()
	if err != nil {
		return err
	}
	codeLen, err := body.U16()
	if err != nil {
		return err
	}
	code, err := body.Bytes(int(codeLen))
	if err != nil {
		return errors.Wrap(err, "formula code")
	}
	at := Anchor{Col: pos.Col, Row: pos.Row, Sheet: sh.Number}
	operands, err := p.readOperands(body, at, coords)

	cell := p.setNumber(sh, pos, value)
	if err == nil {
		var instrs []Instruction
		if p.verbosity >= 3 {
			p.logf(3, "formula %s!%s, %d code bytes, %d operands\n", sh.Name, pos, len(code), len(operands))
		}
		if instrs, err = p.dc.Decompile(code, operands); err == nil {
			cell.Content = Content{
				Kind:    ContentFormula,
				Number:  value,
				Formula: &Formula{Value: value, Instructions: instrs},
			}
			return nil
		}
	}
	p.diag.report(DiagDecode, body.Start, "formula in %s!%s discarded: %v", sh.Name, pos, err)
	return nil
}

func (p *parser) readOperands(body *Payload, at Anchor, coords coordReader) ([]Instruction, error) {
	var operands []Instruction
	for body.Remaining() > 0 {
		kind, err := body.U8()
		if err != nil {
			return nil, err
		}
		switch kind {
		case operandCell:
			ref, err := p.readRef(body, at, coords)
			if err != nil {
				return nil, err
			}
			operands = append(operands, CellInstr(ref))
		case operandRange:
			a, err := p.readRef(body, at, coords)
			if err != nil {
				return nil, err
			}
			b, err := p.readRef(body, at, coords)
			if err != nil {
				return nil, err
			}
			operands = append(operands, RangeInstr(a, b))
		default:
			return nil, newDecodeError(body.Len()-body.Remaining()-1, -1, "unknown operand kind 0x%02x", kind)
		}
	}
	return operands, nil
}

func (p *parser) readRef(body *Payload, at Anchor, coords coordReader) (CellRef, error) {
	offset := body.Offset()
	col, row, sheet, hasSheet, err := coords(body)
	if err != nil {
		return CellRef{}, errors.Wrap(err, "operand coordinates")
	}
	ref, errs := p.d.codec.DecodeRef(col, row, sheet, hasSheet, at)
	for _, e := range errs {
		if e == errMissingCoord {
			p.diag.reportOnce(DiagAddress, "placeholder", offset, "%v", e)
			continue
		}
		p.diag.report(DiagAddress, offset, "reference from %s: %v", Position{Col: at.Col, Row: at.Row}, e)
	}
	return ref, nil
}

// setFormulaResult attaches a string result to the formula at pos.
func (p *parser) setFormulaResult(sh *Sheet, pos Position, body *Payload) error {
	ref, raw, err := body.CString()
	if err != nil {
		return err
	}
	cell := sh.Cell(pos)
	if cell == nil || cell.Content.Kind != ContentFormula {
		return errors.Errorf("string result for %s without a formula", pos)
	}
	cell.Content.Formula.Result = &ref
	p.collectSample(raw)
	return nil
}

// readStyleDef reads the style definition shared by the Windows dialects:
// id u16, format u8, halign u8, valign u8, borders u8, font u16.
func (p *parser) readStyleDef(body *Payload) error {
	id, err := body.U16()
	if err != nil {
		return err
	}
	var b [4]uint8
	for i := range b {
		if b[i], err = body.U8(); err != nil {
			return err
		}
	}
	font, err := body.U16()
	if err != nil {
		return err
	}
	format, protected := decodeFormatByte(b[0])
	st := Style{
		HAlign:    decodeHAlign(b[1]),
		VAlign:    decodeVAlign(b[2]),
		Borders:   Borders(b[3] & 0x0F),
		Font:      int(font),
		Format:    format,
		Protected: protected,
	}
	p.styles[int(id)] = p.doc.InternStyle(st)
	return nil
}

// localStyle maps a file style id to the interned id.
func (p *parser) localStyle(id int, offset int64) int {
	if id == 0 {
		return 0
	}
	if sid, ok := p.styles[id]; ok {
		return sid
	}
	p.diag.reportOnce(DiagRecord, "unknown-style", offset, "style %d used before its definition", id)
	return 0
}

// formatStyle interns the style described by a Lotus format byte.
func (p *parser) formatStyle(b uint8) int {
	format, protected := decodeFormatByte(b)
	return p.doc.InternStyle(Style{Format: format, Protected: protected})
}
