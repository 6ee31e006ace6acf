package wkrd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	wt "github.com/yamitzky/wkrd-go/wkrd/wkrdtest"
)

// wksSample is a one-sheet DOS worksheet:
//
//	A1 "Title" (centred, protected)  A2 42 (fixed 2)  B2 2.5
//	C2 =A2+B2                        C3 ="ok" with string result "done"
func wksSample() []byte {
	return wt.New().
		BOF(0x0406).
		Record(0x06, 0x00, wt.U16(0), wt.U16(0), wt.U16(2), wt.U16(3)).
		Record(0x07, 0x00, wt.U16(0), wt.U16(0), wt.U8(0x71), wt.U8(0), wt.U16(9)).
		Record(0x08, 0x00, wt.U16(1), wt.U8(12)).
		Record(0x0F, 0x00, wt.WKSCell(0xFF, 0, 0), wt.CString("^Title")).
		Record(0x0D, 0x00, wt.WKSCell(0x02, 0, 1), wt.I16(42)).
		Record(0x0E, 0x00, wt.WKSCell(0x71, 1, 1), wt.F64(2.5)).
		Record(0x10, 0x00, wt.WKSCell(0x71, 2, 1), wt.Formula(44.5,
			[]byte{0x01, 0x01, 0x09, 0x03},
			wt.Cell2(wt.Rel8(-2), wt.Rel8(0)), wt.Cell2(wt.Rel8(-1), wt.Rel8(0)))).
		Record(0x10, 0x00, wt.WKSCell(0x71, 2, 2), wt.Formula(0,
			[]byte{0x06, 'o', 'k', 0x00, 0x03})).
		Record(0x33, 0x00, wt.U16(2), wt.U16(2), wt.CString("done")).
		EOF().
		Bytes()
}

// wk3Sample is a two-sheet Windows 1-2-3 workbook with a styled cell, a
// cross-sheet formula and nested sub-sheets.
func wk3Sample() []byte {
	return wt.New().
		BOF6(0x1003).
		Record(0x0B, 0x00, wt.U8(0), wt.CString("Income")).
		Record(0x0B, 0x00, wt.U8(1), wt.CString("Costs")).
		Record(0x06, 0x00, wt.U16(0), wt.U8(0), wt.U8(0), wt.U16(4), wt.U8(1), wt.U8(3)).
		Record(0x08, 0x00, wt.U8(0), wt.U8(10)).
		Record(0x07, 0x00, wt.U8(0), wt.U8(2), wt.U8(20)).
		Record(0x09, 0x00, wt.U8(0), wt.U8(0), wt.U16(3), wt.U16(300)).
		Record(0x01, 0x01, wt.U16(1), wt.U8(0x22), wt.U8(2), wt.U8(3), wt.U8(0x0F), wt.U16(4)).
		Record(0x17, 0x00, wt.WK3Cell(0, 0, 0), wt.F64(100)).
		Record(0x02, 0x01, wt.WK3Cell(0, 0, 0), wt.U16(1)).
		Record(0x18, 0x00, wt.WK3Cell(0, 1, 0), wt.I16(-7)).
		Record(0x19, 0x00, wt.WK3Cell(1, 0, 0), wt.Formula(93,
			[]byte{0x01, 0x01, 0x09, 0x03},
			wt.Cell3(wt.Rel(0), wt.Rel(-1), wt.Rel(0)), wt.Cell3(0, 0, 1))).
		Record(0x01, 0x02, wt.U8(1), wt.CString("Summary")).
		Record(0x16, 0x00, wt.WK3Cell(0, 0, 0), wt.CString("'left")).
		Record(0x01, 0x02, wt.U8(2), wt.CString("Filter")).
		Record(0x17, 0x00, wt.WK3Cell(0, 0, 0), wt.F64(1)).
		Record(0x02, 0x02).
		Record(0x02, 0x02).
		Record(0x16, 0x00, wt.WK3Cell(2, 0, 0), wt.CString("\"right")).
		EOF().
		Bytes()
}

// qproSample is a Quattro Pro notebook with one page holding a report
// sub-sheet, then a cell on a second page outside any page context.
func qproSample() []byte {
	return wt.New().
		BOF(0x1002).
		Record(0x01, 0x01, wt.U16(5), wt.U8(0x72), wt.U8(0), wt.U8(0), wt.U8(0), wt.U16(0)).
		Record(0xCA, 0x00, wt.U8(0), wt.CString("Data")).
		Record(0xDA, 0x00, wt.U16(9*256), wt.U16(240)).
		Record(0xD8, 0x00, wt.U8(1), wt.U16(15*256)).
		Record(0xD9, 0x00, wt.U16(0), wt.U16(400)).
		Record(0x0E, 0x00, wt.QProCell(0, 0, 0, 5), wt.F64(36526)).
		Record(0x0F, 0x00, wt.QProCell(1, 0, 0, 0), wt.CString("name")).
		Record(0x10, 0x00, wt.QProCell(2, 0, 0, 0), wt.Formula(0, []byte{0x74, 0x03})).
		Record(0xCA, 0x00, wt.U8(0), wt.CString("Report")).
		Record(0x0D, 0x00, wt.QProCell(0, 0, 0, 0), wt.I16(1)).
		Record(0xCB, 0x00).
		Record(0xCB, 0x00).
		Record(0x0D, 0x00, wt.QProCell(0, 1, 3, 0), wt.I16(2)).
		EOF().
		Bytes()
}

func parseBytes(t *testing.T, data []byte, opts Options) *Document {
	t.Helper()
	doc, err := Parse(bytes.NewReader(data), &opts)
	require.NoError(t, err)
	require.NotNil(t, doc)
	return doc
}

func cellAt(t *testing.T, sh *Sheet, col, row int) *Cell {
	t.Helper()
	c := sh.Cell(Position{Col: col, Row: row})
	require.NotNil(t, c, "no cell at %s!%s", sh.Name, CellName(row, col))
	return c
}

func textAt(t *testing.T, doc *Document, sh *Sheet, col, row int) string {
	t.Helper()
	c := cellAt(t, sh, col, row)
	require.Equal(t, ContentText, c.Content.Kind)
	s, err := doc.Text(c.Content.Text)
	require.NoError(t, err)
	return s
}
