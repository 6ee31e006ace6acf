package wkrd

import "github.com/pkg/errors"

// SheetInfo describes a sheet handed to a Sink.
type SheetInfo struct {
	Index   int
	Number  int
	Name    string
	Kind    SheetKind
	Parent  int
	Columns []SizeRange
	Rows    []SizeRange

	// Dimensions is the declared used range, when HasDimensions.
	Dimensions    Range
	HasDimensions bool
}

// Value is the resolved content of a cell handed to a Sink.
type Value struct {
	Kind   ContentKind
	Number float64
	Text   string

	// Formula is the rendered formula without the leading "=".
	Formula      string
	Instructions []Instruction
}

// Sink receives decoded sheets. Calls are nested: OpenSheet, then for each
// populated row OpenRow, OpenCell per cell, CloseRow, then CloseSheet.
type Sink interface {
	OpenSheet(sheet SheetInfo) error
	OpenRow(row int, height float64) error
	OpenCell(pos Position, style Style, value Value) error
	CloseRow() error
	CloseSheet() error
}

// Value resolves the content of c.
func (d *Document) Value(sh *Sheet, c *Cell) (Value, error) {
	v := Value{Kind: c.Content.Kind, Number: c.Content.Number}
	switch c.Content.Kind {
	case ContentText:
		text, err := d.Text(c.Content.Text)
		if err != nil {
			return v, err
		}
		v.Text = text
	case ContentFormula:
		f := c.Content.Formula
		v.Number = f.Value
		v.Instructions = f.Instructions
		v.Formula = d.FormulaString(sh, f, RenderOptions{})
		if f.Result != nil {
			text, err := d.Text(*f.Result)
			if err != nil {
				return v, err
			}
			v.Text = text
		}
	}
	return v, nil
}

// Send walks every sheet in creation order and hands it to sink, rows in
// ascending order and cells by ascending column.
func (d *Document) Send(sink Sink) error {
	for _, sh := range d.Sheets {
		if err := d.SendSheet(sh, sink); err != nil {
			return err
		}
	}
	return nil
}

// SendSheet hands one sheet to sink.
func (d *Document) SendSheet(sh *Sheet, sink Sink) error {
	nrows, ncols := sh.Extent()
	if sh.HasDimensions {
		if sh.Dimensions.LastRow+1 > nrows {
			nrows = sh.Dimensions.LastRow + 1
		}
		if sh.Dimensions.LastCol+1 > ncols {
			ncols = sh.Dimensions.LastCol + 1
		}
	}
	info := SheetInfo{
		Index:         sh.ID,
		Number:        sh.Number,
		Name:          sh.Name,
		Kind:          sh.Kind,
		Parent:        sh.Parent,
		Columns:       sh.ColumnWidths.Compress(ncols),
		Rows:          sh.RowHeights.Compress(nrows),
		Dimensions:    sh.Dimensions,
		HasDimensions: sh.HasDimensions,
	}
	if err := sink.OpenSheet(info); err != nil {
		return errors.Wrapf(err, "sheet %q", sh.Name)
	}
	row := -1
	for _, c := range sh.Cells() {
		if c.Pos.Row != row {
			if row >= 0 {
				if err := sink.CloseRow(); err != nil {
					return err
				}
			}
			row = c.Pos.Row
			if err := sink.OpenRow(row, sh.RowHeights.Size(row)); err != nil {
				return err
			}
		}
		v, err := d.Value(sh, c)
		if err != nil {
			return errors.Wrapf(err, "cell %s!%s", sh.Name, c.Pos)
		}
		if err := sink.OpenCell(c.Pos, d.Style(c.Style), v); err != nil {
			return err
		}
	}
	if row >= 0 {
		if err := sink.CloseRow(); err != nil {
			return err
		}
	}
	return sink.CloseSheet()
}
