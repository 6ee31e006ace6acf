package xlsxsink

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/yamitzky/wkrd-go/wkrd"
)

// Limits of the xlsx format.
const (
	maxSheetName = 31
	maxColWidth  = 255
	maxRowHeight = 409
)

// Writer is a wkrd.Sink that builds an xlsx workbook.
type Writer struct {
	doc    *wkrd.Document
	f      *excelize.File
	names  map[int]string // sheet ID -> xlsx name
	byNum  map[int]string // sheet number -> xlsx name
	styles map[wkrd.Style]int
	opened int
	sheet  string
	number int

	skipRow bool
	skipped []string
}

// New returns a Writer for doc. Sheet names are fixed up front so formulas
// can refer to sheets that have not been written yet.
func New(doc *wkrd.Document) *Writer {
	w := &Writer{
		doc:    doc,
		f:      excelize.NewFile(),
		names:  make(map[int]string),
		byNum:  make(map[int]string),
		styles: make(map[wkrd.Style]int),
	}
	used := make(map[string]bool)
	for _, sh := range doc.Sheets {
		name := uniqueName(SheetName(sh.Name), used)
		w.names[sh.ID] = name
		if _, ok := w.byNum[sh.Number]; !ok && sh.Kind == wkrd.SheetNormal {
			w.byNum[sh.Number] = name
		}
	}
	return w
}

// Skipped returns what was left out because it lies beyond the xlsx grid.
func (w *Writer) Skipped() []string {
	return w.skipped
}

func (w *Writer) skip(format string, args ...interface{}) {
	w.skipped = append(w.skipped, fmt.Sprintf("sheet %q: ", w.sheet)+fmt.Sprintf(format, args...))
}

// File returns the underlying workbook.
func (w *Writer) File() *excelize.File {
	return w.f
}

// SheetName makes name acceptable as an xlsx sheet name.
func SheetName(name string) string {
	name = strings.Map(func(r rune) rune {
		if strings.ContainsRune(`[]:*?/\`, r) {
			return '_'
		}
		return r
	}, name)
	name = strings.Trim(name, "'")
	if name == "" {
		name = "Sheet"
	}
	if r := []rune(name); len(r) > maxSheetName {
		name = string(r[:maxSheetName])
	}
	return name
}

func uniqueName(name string, used map[string]bool) string {
	key := strings.ToLower(name)
	if !used[key] {
		used[key] = true
		return name
	}
	for i := 2; ; i++ {
		suffix := "~" + strconv.Itoa(i)
		base := []rune(name)
		if len(base)+len(suffix) > maxSheetName {
			base = base[:maxSheetName-len(suffix)]
		}
		cand := string(base) + suffix
		if !used[strings.ToLower(cand)] {
			used[strings.ToLower(cand)] = true
			return cand
		}
	}
}

func (w *Writer) refSheetName(n int) string {
	if name, ok := w.byNum[n]; ok {
		return name
	}
	return w.doc.SheetName(n)
}

// OpenSheet implements wkrd.Sink.
func (w *Writer) OpenSheet(info wkrd.SheetInfo) error {
	name, ok := w.names[info.Index]
	if !ok {
		name = SheetName(info.Name)
	}
	if w.opened == 0 {
		if err := w.f.SetSheetName(w.f.GetSheetName(0), name); err != nil {
			return errors.Wrapf(err, "rename sheet to %q", name)
		}
	} else if _, err := w.f.NewSheet(name); err != nil {
		return errors.Wrapf(err, "new sheet %q", name)
	}
	w.opened++
	w.sheet = name
	w.number = info.Number

	for _, cr := range info.Columns {
		if cr.Size <= 0 {
			continue
		}
		if cr.Last >= excelize.MaxColumns {
			w.skip("widths of columns %d-%d", max(cr.First, excelize.MaxColumns)+1, cr.Last+1)
			if cr.First >= excelize.MaxColumns {
				continue
			}
			cr.Last = excelize.MaxColumns - 1
		}
		first, err := excelize.ColumnNumberToName(cr.First + 1)
		if err != nil {
			return err
		}
		last, err := excelize.ColumnNumberToName(cr.Last + 1)
		if err != nil {
			return err
		}
		if err := w.f.SetColWidth(name, first, last, clamp(cr.Size, maxColWidth)); err != nil {
			return errors.Wrapf(err, "column width %s:%s", first, last)
		}
	}
	return nil
}

// OpenRow implements wkrd.Sink.
func (w *Writer) OpenRow(row int, height float64) error {
	w.skipRow = row >= excelize.TotalRows
	if w.skipRow {
		w.skip("row %d", row+1)
		return nil
	}
	if height <= 0 {
		return nil
	}
	return w.f.SetRowHeight(w.sheet, row+1, clamp(height, maxRowHeight))
}

// OpenCell implements wkrd.Sink.
func (w *Writer) OpenCell(pos wkrd.Position, style wkrd.Style, v wkrd.Value) error {
	if w.skipRow {
		return nil
	}
	if pos.Col >= excelize.MaxColumns {
		w.skip("cell %s", wkrd.CellName(pos.Row, pos.Col))
		return nil
	}
	cell, err := excelize.CoordinatesToCellName(pos.Col+1, pos.Row+1)
	if err != nil {
		return err
	}
	switch v.Kind {
	case wkrd.ContentNumber:
		err = w.f.SetCellValue(w.sheet, cell, v.Number)
	case wkrd.ContentText:
		err = w.f.SetCellValue(w.sheet, cell, v.Text)
	case wkrd.ContentFormula:
		if v.Text != "" {
			err = w.f.SetCellValue(w.sheet, cell, v.Text)
		} else {
			err = w.f.SetCellValue(w.sheet, cell, v.Number)
		}
		if err == nil {
			formula := wkrd.RenderFormula(v.Instructions, wkrd.RenderOptions{
				ArgSeparator: ",",
				Sheet:        w.number,
				SheetName:    w.refSheetName,
			})
			err = w.f.SetCellFormula(w.sheet, cell, formula)
		}
	}
	if err != nil {
		return errors.Wrapf(err, "cell %s!%s", w.sheet, cell)
	}
	if style == wkrd.DefaultStyle {
		return nil
	}
	id, err := w.styleID(style)
	if err != nil {
		return err
	}
	return w.f.SetCellStyle(w.sheet, cell, cell, id)
}

// CloseRow implements wkrd.Sink.
func (w *Writer) CloseRow() error {
	return nil
}

// CloseSheet implements wkrd.Sink.
func (w *Writer) CloseSheet() error {
	w.sheet = ""
	w.skipRow = false
	return nil
}

func (w *Writer) styleID(st wkrd.Style) (int, error) {
	if id, ok := w.styles[st]; ok {
		return id, nil
	}
	id, err := w.f.NewStyle(convertStyle(st))
	if err != nil {
		return 0, errors.Wrap(err, "new style")
	}
	w.styles[st] = id
	return id, nil
}

var horizontal = map[wkrd.HAlign]string{
	wkrd.AlignLeft:   "left",
	wkrd.AlignRight:  "right",
	wkrd.AlignCenter: "center",
	wkrd.AlignFill:   "fill",
}

var vertical = map[wkrd.VAlign]string{
	wkrd.VAlignTop:    "top",
	wkrd.VAlignMiddle: "center",
	wkrd.VAlignBottom: "bottom",
}

func convertStyle(st wkrd.Style) *excelize.Style {
	out := &excelize.Style{
		Protection: &excelize.Protection{Locked: st.Protected},
	}
	if st.HAlign != wkrd.AlignDefault || st.VAlign != wkrd.VAlignDefault {
		out.Alignment = &excelize.Alignment{
			Horizontal: horizontal[st.HAlign],
			Vertical:   vertical[st.VAlign],
		}
	}
	for _, edge := range []struct {
		bit  wkrd.Borders
		name string
	}{
		{wkrd.BorderLeft, "left"},
		{wkrd.BorderRight, "right"},
		{wkrd.BorderTop, "top"},
		{wkrd.BorderBottom, "bottom"},
	} {
		if st.Borders&edge.bit != 0 {
			out.Border = append(out.Border, excelize.Border{Type: edge.name, Color: "000000", Style: 1})
		}
	}
	if code := st.Format.Code(); code != "General" {
		out.CustomNumFmt = &code
	}
	return out
}

func clamp(v, max float64) float64 {
	if v > max {
		return max
	}
	return v
}

// WriteTo writes the workbook as xlsx.
func (w *Writer) WriteTo(out io.Writer) (int64, error) {
	return w.f.WriteTo(out)
}

// Save writes the workbook to path.
func (w *Writer) Save(path string) error {
	return w.f.SaveAs(path)
}

// Close releases the workbook.
func (w *Writer) Close() error {
	return w.f.Close()
}

// Convert sends every sheet of doc to a new Writer. Cells and sizes beyond
// the xlsx grid are left out and listed by Skipped.
func Convert(doc *wkrd.Document) (*Writer, error) {
	w := New(doc)
	if len(doc.Sheets) == 0 {
		return w, nil
	}
	if err := doc.Send(w); err != nil {
		w.Close()
		return nil, err
	}
	return w, nil
}
