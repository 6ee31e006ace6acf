package wkrd

import (
	"sort"

	"github.com/pkg/errors"
	"golang.org/x/text/encoding"
)

// ContentKind selects what a cell holds.
type ContentKind int

const (
	ContentEmpty ContentKind = iota
	ContentNumber
	ContentText
	ContentFormula
)

// TextRef locates undecoded text bytes in the source stream.
type TextRef struct {
	Offset int64
	Length int
}

// Formula is a decompiled formula with its cached result.
type Formula struct {
	// Value is the numeric result stored with the formula.
	Value float64

	// Result is the string result, when a later record supplied one.
	Result *TextRef

	// Instructions is the infix form of the formula.
	Instructions []Instruction
}

// Content is the value of a cell.
type Content struct {
	Kind    ContentKind
	Number  float64
	Text    TextRef
	Formula *Formula
}

// Cell is one populated position of a sheet.
type Cell struct {
	Pos     Position
	Style   int
	Content Content
}

// SheetKind tells ordinary sheets from nested report and filter sheets.
type SheetKind int

const (
	SheetNormal SheetKind = iota
	SheetReport
	SheetFilter
)

// Range is an inclusive rectangle of cells.
type Range struct {
	FirstCol int
	FirstRow int
	LastCol  int
	LastRow  int
}

// Sheet contains the data of one worksheet.
//
// Cells are created on first reference and never removed during a parse.
type Sheet struct {
	// ID is the index of the sheet in Document.Sheets.
	ID int

	// Number is the sheet number used by cell records and references.
	// Sub-sheets share the number of the sheet they are nested in.
	Number int

	// Name is the sheet name.
	Name string

	// Kind is SheetNormal for worksheets.
	Kind SheetKind

	// Parent is the ID of the enclosing sheet of a sub-sheet, or -1.
	Parent int

	// Dimensions is the used range the file declares, when HasDimensions.
	Dimensions    Range
	HasDimensions bool

	// ColumnWidths holds widths in characters.
	ColumnWidths SizeList

	// RowHeights holds heights in points.
	RowHeights SizeList

	cells map[Position]*Cell
}

// Cell returns the cell at pos, or nil.
func (s *Sheet) Cell(pos Position) *Cell {
	return s.cells[pos]
}

// GetOrCreateCell returns the cell at pos, creating an empty one with the
// default style on first use.
func (s *Sheet) GetOrCreateCell(pos Position) *Cell {
	if c, ok := s.cells[pos]; ok {
		return c
	}
	if s.cells == nil {
		s.cells = make(map[Position]*Cell)
	}
	c := &Cell{Pos: pos}
	s.cells[pos] = c
	return c
}

// NCells returns the number of populated cells.
func (s *Sheet) NCells() int {
	return len(s.cells)
}

// Cells returns the cells in row-major order.
func (s *Sheet) Cells() []*Cell {
	out := make([]*Cell, 0, len(s.cells))
	for _, c := range s.cells {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Pos.Row != out[j].Pos.Row {
			return out[i].Pos.Row < out[j].Pos.Row
		}
		return out[i].Pos.Col < out[j].Pos.Col
	})
	return out
}

// Extent returns one past the largest populated row and column.
func (s *Sheet) Extent() (nrows, ncols int) {
	for pos := range s.cells {
		if pos.Row+1 > nrows {
			nrows = pos.Row + 1
		}
		if pos.Col+1 > ncols {
			ncols = pos.Col + 1
		}
	}
	return nrows, ncols
}

// Stats counts what a parse went through.
type Stats struct {
	Records int
	Unknown int
	Cells   int
	Aborted int
}

// Document is the decoded spreadsheet. It owns every sheet, cell and style
// of one parse.
type Document struct {
	// Dialect is the name of the dialect the stream was decoded with.
	Dialect string

	// Version is the version field of the header record.
	Version uint16

	// Sheets holds every sheet in creation order, sub-sheets included.
	Sheets []*Sheet

	// Styles is the interned style table. Styles[0] is DefaultStyle.
	Styles []Style

	// Diagnostics lists every non-fatal problem found.
	Diagnostics []Diagnostic

	// Stats counts records and cells.
	Stats Stats

	styleIndex map[Style]int
	stream     *Stream
	enc        encoding.Encoding
}

func newDocument(dialect string) *Document {
	return &Document{
		Dialect:    dialect,
		Styles:     []Style{DefaultStyle},
		styleIndex: map[Style]int{DefaultStyle: 0},
	}
}

// Style resolves a style id. Unknown ids resolve to DefaultStyle.
func (d *Document) Style(id int) Style {
	if id <= 0 || id >= len(d.Styles) {
		return DefaultStyle
	}
	return d.Styles[id]
}

// InternStyle returns the id of st, adding it to the table on first use.
func (d *Document) InternStyle(st Style) int {
	if id, ok := d.styleIndex[st]; ok {
		return id
	}
	if d.styleIndex == nil {
		d.styleIndex = make(map[Style]int)
	}
	id := len(d.Styles)
	d.Styles = append(d.Styles, st)
	d.styleIndex[st] = id
	return id
}

// NewSheet appends a sheet to the arena.
func (d *Document) NewSheet(name string, number int, kind SheetKind, parent int) *Sheet {
	sh := &Sheet{ID: len(d.Sheets), Number: number, Name: name, Kind: kind, Parent: parent}
	d.Sheets = append(d.Sheets, sh)
	return sh
}

// SheetByIndex returns a sheet by its index.
func (d *Document) SheetByIndex(sheetx int) (*Sheet, error) {
	if sheetx < 0 || sheetx >= len(d.Sheets) {
		return nil, errors.Errorf("sheet index %d out of range", sheetx)
	}
	return d.Sheets[sheetx], nil
}

// SheetByName returns the first sheet with the given name.
func (d *Document) SheetByName(name string) (*Sheet, error) {
	for _, sh := range d.Sheets {
		if sh.Name == name {
			return sh, nil
		}
	}
	return nil, errors.Errorf("no sheet named <%s>", name)
}

// SheetNames returns the names of all sheets.
func (d *Document) SheetNames() []string {
	names := make([]string, len(d.Sheets))
	for i, sh := range d.Sheets {
		names[i] = sh.Name
	}
	return names
}

// SheetName returns the name of the first sheet with the given number, or
// the default letter name.
func (d *Document) SheetName(number int) string {
	for _, sh := range d.Sheets {
		if sh.Number == number && sh.Kind == SheetNormal {
			return sh.Name
		}
	}
	return ColumnName(number)
}

// Text decodes the bytes referenced by ref with the document code page.
func (d *Document) Text(ref TextRef) (string, error) {
	if ref.Length == 0 {
		return "", nil
	}
	if d.stream == nil {
		return "", errors.New("document has no source stream")
	}
	raw := make([]byte, ref.Length)
	if _, err := d.stream.ReadAt(raw, ref.Offset); err != nil {
		return "", errors.Wrapf(err, "text at %d", ref.Offset)
	}
	return decodeText(d.enc, raw), nil
}

// FormulaString renders f as written in sheet, without the leading "=".
func (d *Document) FormulaString(sheet *Sheet, f *Formula, opts RenderOptions) string {
	if f == nil {
		return ""
	}
	opts.Sheet = sheet.Number
	if opts.SheetName == nil {
		opts.SheetName = d.SheetName
	}
	return RenderFormula(f.Instructions, opts)
}
