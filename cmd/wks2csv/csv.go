package main

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/yamitzky/wkrd-go/wkrd"
)

type field struct {
	text    string
	numeric bool
}

// csvSink buffers the rows of a sheet and writes them, padded to the widest
// row, when the sheet closes. The grid spans the populated cells only.
type csvSink struct {
	cw    *csvWriter
	opts  options
	rows  map[int][]field
	row   int
	cur   []field
	nrows int
	ncols int
}

func (s *csvSink) OpenSheet(wkrd.SheetInfo) error {
	s.rows = make(map[int][]field)
	s.nrows, s.ncols = 0, 0
	return nil
}

func (s *csvSink) OpenRow(row int, _ float64) error {
	s.row = row
	s.cur = nil
	return nil
}

func (s *csvSink) OpenCell(pos wkrd.Position, style wkrd.Style, v wkrd.Value) error {
	for len(s.cur) < pos.Col {
		s.cur = append(s.cur, field{})
	}
	text, numeric := formatValue(v, style, s.opts)
	s.cur = append(s.cur, field{text: text, numeric: numeric})
	if len(s.cur) > s.ncols {
		s.ncols = len(s.cur)
	}
	return nil
}

func (s *csvSink) CloseRow() error {
	s.rows[s.row] = s.cur
	if s.row+1 > s.nrows {
		s.nrows = s.row + 1
	}
	return nil
}

func (s *csvSink) CloseSheet() error {
	line := make([]field, s.ncols)
	for rowx := 0; rowx < s.nrows; rowx++ {
		cells := s.rows[rowx]
		if s.opts.ignoreEmpty && blank(cells) {
			continue
		}
		n := copy(line, cells)
		for i := n; i < len(line); i++ {
			line[i] = field{}
		}
		if err := s.cw.writeRow(line); err != nil {
			return err
		}
	}
	s.rows = nil
	return nil
}

func blank(fields []field) bool {
	for _, f := range fields {
		if f.text != "" {
			return false
		}
	}
	return true
}

func writeSheets(w io.Writer, doc *wkrd.Document, sheets []*wkrd.Sheet, opts options) error {
	sink := &csvSink{cw: newCSVWriter(w, opts), opts: opts}
	for i, sh := range sheets {
		if i > 0 && opts.sheetDelimiter != "" {
			if _, err := fmt.Fprint(w, opts.sheetDelimiter, opts.lineTerminator); err != nil {
				return err
			}
		}
		if err := doc.SendSheet(sh, sink); err != nil {
			return err
		}
	}
	return nil
}

func formatValue(v wkrd.Value, style wkrd.Style, opts options) (string, bool) {
	switch v.Kind {
	case wkrd.ContentText:
		return maybeEscape(v.Text, opts.escape), false
	case wkrd.ContentNumber:
		return formatNumber(v.Number, style, opts)
	case wkrd.ContentFormula:
		if opts.formulas {
			return maybeEscape("="+v.Formula, opts.escape), false
		}
		if v.Text != "" {
			return maybeEscape(v.Text, opts.escape), false
		}
		return formatNumber(v.Number, style, opts)
	default:
		return "", false
	}
}

func formatNumber(value float64, style wkrd.Style, opts options) (string, bool) {
	if style.Format.IsDate() {
		if formatted, ok := formatDate(value, style.Format, opts); ok {
			return maybeEscape(formatted, opts.escape), false
		}
	}
	return formatFloat(value, opts.floatFormat), true
}

func formatFloat(value float64, floatFormat string) string {
	if floatFormat != "" {
		return fmt.Sprintf(floatFormat, value)
	}
	return strconv.FormatFloat(value, 'g', -1, 64)
}

func formatDate(value float64, format wkrd.NumberFormat, opts options) (string, bool) {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return "", false
	}
	t, err := wkrd.SerialTime(value)
	if err != nil {
		return "", false
	}
	switch {
	case opts.nativeDates:
		return t.Format(format.Layout()), true
	case opts.dates != nil:
		return opts.dates.format(t), true
	case value < 1 || format.Kind == wkrd.FormatTime:
		return t.Format("15:04:05"), true
	case value != math.Trunc(value):
		return t.Format(time.DateTime), true
	}
	return t.Format(time.DateOnly), true
}

var escaper = strings.NewReplacer("\r", "\\r", "\n", "\\n", "\t", "\\t")

func maybeEscape(value string, enabled bool) string {
	if !enabled {
		return value
	}
	return escaper.Replace(value)
}

// csvWriter writes rows with a fixed quoting rule.
type csvWriter struct {
	w     io.Writer
	sep   string
	eol   string
	quote func(field) bool
	line  []byte
}

func newCSVWriter(w io.Writer, opts options) *csvWriter {
	cw := &csvWriter{w: w, sep: string(opts.delimiter), eol: opts.lineTerminator}
	switch special := cw.sep + "\"\r\n"; opts.quoting {
	case quotingAll:
		cw.quote = func(field) bool { return true }
	case quotingNonNumeric:
		cw.quote = func(f field) bool { return !f.numeric }
	case quotingMinimal:
		cw.quote = func(f field) bool { return strings.ContainsAny(f.text, special) }
	default:
		cw.quote = func(field) bool { return false }
	}
	return cw
}

func (cw *csvWriter) writeRow(fields []field) error {
	cw.line = cw.line[:0]
	for i, f := range fields {
		if i > 0 {
			cw.line = append(cw.line, cw.sep...)
		}
		if !cw.quote(f) {
			cw.line = append(cw.line, f.text...)
			continue
		}
		cw.line = append(cw.line, '"')
		cw.line = append(cw.line, strings.ReplaceAll(f.text, `"`, `""`)...)
		cw.line = append(cw.line, '"')
	}
	cw.line = append(cw.line, cw.eol...)
	_, err := cw.w.Write(cw.line)
	return err
}
