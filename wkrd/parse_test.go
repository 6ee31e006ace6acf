package wkrd

import (
	"bytes"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	wt "github.com/yamitzky/wkrd-go/wkrd/wkrdtest"
)

func TestParseWKS(t *testing.T) {
	doc := parseBytes(t, wksSample(), Options{Dialect: wksDialect})
	assert.Equal(t, "wks", doc.Dialect)
	assert.Equal(t, uint16(0x0406), doc.Version)
	assert.Empty(t, doc.Diagnostics)
	require.Len(t, doc.Sheets, 1)

	sh := doc.Sheets[0]
	assert.Equal(t, "A", sh.Name)
	assert.True(t, sh.HasDimensions)
	assert.Equal(t, Range{FirstCol: 0, FirstRow: 0, LastCol: 2, LastRow: 3}, sh.Dimensions)
	assert.Equal(t, 9.0, sh.ColumnWidths.Size(0))
	assert.Equal(t, 12.0, sh.ColumnWidths.Size(1))

	assert.Equal(t, "Title", textAt(t, doc, sh, 0, 0))
	assert.Equal(t, Style{HAlign: AlignCenter, Protected: true}, doc.Style(cellAt(t, sh, 0, 0).Style))

	a2 := cellAt(t, sh, 0, 1)
	assert.Equal(t, Content{Kind: ContentNumber, Number: 42}, a2.Content)
	assert.Equal(t, NumberFormat{Kind: FormatFixed, Decimals: 2}, doc.Style(a2.Style).Format)

	b2 := cellAt(t, sh, 1, 1)
	assert.Equal(t, 2.5, b2.Content.Number)
	assert.Equal(t, 0, b2.Style)

	c2 := cellAt(t, sh, 2, 1)
	require.Equal(t, ContentFormula, c2.Content.Kind)
	assert.Equal(t, 44.5, c2.Content.Formula.Value)
	assert.Equal(t, "A2+B2", doc.FormulaString(sh, c2.Content.Formula, RenderOptions{}))

	c3 := cellAt(t, sh, 2, 2)
	require.Equal(t, ContentFormula, c3.Content.Kind)
	require.NotNil(t, c3.Content.Formula.Result)
	result, err := doc.Text(*c3.Content.Formula.Result)
	require.NoError(t, err)
	assert.Equal(t, "done", result)
	assert.Equal(t, `"ok"`, doc.FormulaString(sh, c3.Content.Formula, RenderOptions{}))

	assert.Equal(t, Stats{Records: 10, Cells: 5}, doc.Stats)
}

func TestParseWK3(t *testing.T) {
	doc := parseBytes(t, wk3Sample(), Options{Dialect: wk3Dialect})
	assert.Empty(t, doc.Diagnostics)
	assert.Equal(t, []string{"Income", "Costs", "Summary", "Filter"}, doc.SheetNames())

	income, costs := doc.Sheets[0], doc.Sheets[1]
	for _, sh := range []*Sheet{income, costs} {
		assert.Equal(t, Range{LastCol: 3, LastRow: 4}, sh.Dimensions, sh.Name)
	}
	assert.Equal(t, 10.0, income.ColumnWidths.Size(0))
	assert.Equal(t, 20.0, income.ColumnWidths.Size(2))
	assert.Equal(t, 15.0, income.RowHeights.Size(3))

	a1 := cellAt(t, income, 0, 0)
	assert.Equal(t, 100.0, a1.Content.Number)
	assert.Equal(t, Style{
		HAlign:  AlignRight,
		VAlign:  VAlignBottom,
		Borders: BorderLeft | BorderRight | BorderTop | BorderBottom,
		Font:    4,
		Format:  NumberFormat{Kind: FormatCurrency, Decimals: 2},
	}, doc.Style(a1.Style))
	assert.Equal(t, "$#,##0.00", doc.Style(a1.Style).Format.Code())

	assert.Equal(t, -7.0, cellAt(t, costs, 0, 0).Content.Number)

	a2 := cellAt(t, income, 0, 1)
	require.Equal(t, ContentFormula, a2.Content.Kind)
	assert.Equal(t, "A1+Costs!$A$1", doc.FormulaString(income, a2.Content.Formula, RenderOptions{}))

	assert.Equal(t, "right", textAt(t, doc, income, 0, 2))
	assert.Equal(t, AlignRight, doc.Style(cellAt(t, income, 0, 2).Style).HAlign)
}

func TestSubSheets(t *testing.T) {
	doc := parseBytes(t, wk3Sample(), Options{Dialect: wk3Dialect})
	summary, err := doc.SheetByName("Summary")
	require.NoError(t, err)
	filter, err := doc.SheetByName("Filter")
	require.NoError(t, err)

	assert.Equal(t, SheetReport, summary.Kind)
	assert.Equal(t, -1, summary.Parent)
	assert.Equal(t, SheetFilter, filter.Kind)
	assert.Equal(t, summary.ID, filter.Parent)

	assert.Equal(t, "left", textAt(t, doc, summary, 0, 0))
	assert.Equal(t, AlignLeft, doc.Style(cellAt(t, summary, 0, 0).Style).HAlign)
	assert.Equal(t, 1.0, cellAt(t, filter, 0, 0).Content.Number)
}

func TestParseQPro(t *testing.T) {
	doc := parseBytes(t, qproSample(), Options{Dialect: qproDialect})
	assert.Empty(t, doc.Diagnostics)
	assert.Equal(t, []string{"Data", "Report", "B"}, doc.SheetNames())

	data, report, b := doc.Sheets[0], doc.Sheets[1], doc.Sheets[2]
	assert.Equal(t, 9.0, data.ColumnWidths.Size(0))
	assert.Equal(t, 15.0, data.ColumnWidths.Size(1))
	assert.Equal(t, 20.0, data.RowHeights.Size(0))
	assert.Equal(t, 12.0, data.RowHeights.Size(1))

	a1 := cellAt(t, data, 0, 0)
	assert.Equal(t, 36526.0, a1.Content.Number)
	assert.True(t, doc.Style(a1.Style).Format.IsDate())
	assert.Equal(t, "name", textAt(t, doc, data, 1, 0))

	c1 := cellAt(t, data, 2, 0)
	require.Equal(t, ContentFormula, c1.Content.Kind)
	assert.Equal(t, "NOW()", doc.FormulaString(data, c1.Content.Formula, RenderOptions{}))

	assert.Equal(t, SheetReport, report.Kind)
	assert.Equal(t, data.ID, report.Parent)
	assert.Equal(t, 1.0, cellAt(t, report, 0, 0).Content.Number)

	assert.Equal(t, 1, b.Number)
	assert.Equal(t, 2.0, cellAt(t, b, 0, 3).Content.Number)
}

func TestParseIsRepeatable(t *testing.T) {
	for _, tt := range []struct {
		d    *Dialect
		data []byte
	}{
		{wksDialect, wksSample()},
		{wk3Dialect, wk3Sample()},
		{qproDialect, qproSample()},
	} {
		first := parseBytes(t, tt.data, Options{Dialect: tt.d})
		second := parseBytes(t, tt.data, Options{Dialect: tt.d})
		assert.Equal(t, first.Sheets, second.Sheets, tt.d.Name)
		assert.Equal(t, first.Styles, second.Styles, tt.d.Name)
		assert.Equal(t, first.Stats, second.Stats, tt.d.Name)
	}
}

func TestTruncatedInputNeverPanics(t *testing.T) {
	for _, tt := range []struct {
		d    *Dialect
		data []byte
	}{
		{wksDialect, wksSample()},
		{wk3Dialect, wk3Sample()},
		{qproDialect, qproSample()},
	} {
		for n := 0; n < len(tt.data); n++ {
			var doc *Document
			var err error
			require.NotPanics(t, func() {
				doc, err = Parse(bytes.NewReader(tt.data[:n]), &Options{Dialect: tt.d})
			}, "%s truncated to %d bytes", tt.d.Name, n)
			if err != nil {
				assert.True(t, IsHeaderError(err), "%s truncated to %d bytes: %v", tt.d.Name, n, err)
				continue
			}
			require.NotNil(t, doc)
			require.NotPanics(t, func() {
				doc.Send(&recordingSink{doc: doc})
			})
		}
	}
}

var traceLine = regexp.MustCompile(`(?m)^\s*(\d+): tag=0x[0-9a-f]{2} subtype=0x[0-9a-f]{2} len=(\d+) next=(\d+) `)

func TestDispatcherCursor(t *testing.T) {
	data := wt.New().
		BOF(0x0406).
		Record(0x99, 0x00, []byte("unknown payload")).
		Record(0x0D, 0x00, wt.WKSCell(0x71, 0, 0), wt.I16(1), []byte{0xAA, 0xBB, 0xCC}).
		Record(0x0E, 0x00, wt.WKSCell(0x71, 1, 0), []byte{0x01, 0x02}).
		Record(0x0F, 0x00, wt.WKSCell(0x71, 2, 0), []byte("no terminator")).
		Record(0x08, 0x03, wt.U16(1), wt.U8(12)).
		EOF().
		Bytes()

	var trace strings.Builder
	doc := parseBytes(t, data, Options{Dialect: wksDialect, Logfile: &trace, Verbosity: 2})
	dispatched := traceLine.FindAllStringSubmatch(trace.String(), -1)
	require.Len(t, dispatched, 5)
	for _, m := range dispatched {
		offset, _ := strconv.ParseInt(m[1], 10, 64)
		length, _ := strconv.ParseInt(m[2], 10, 64)
		next, _ := strconv.ParseInt(m[3], 10, 64)
		assert.Equal(t, offset+headerSize+length, next, m[0])
	}
	assert.Equal(t, 2, doc.Stats.Unknown)

	// the short NUMBER payload is the only failing record
	require.Len(t, doc.Diagnostics, 1)
	assert.Equal(t, DiagRecord, doc.Diagnostics[0].Kind)
	assert.Contains(t, doc.Diagnostics[0].Message, "NUMBER")

	sh := doc.Sheets[0]
	assert.Equal(t, 1.0, cellAt(t, sh, 0, 0).Content.Number)
	assert.Nil(t, sh.Cell(Position{Col: 1}))
	assert.Equal(t, "no terminator", textAt(t, doc, sh, 2, 0))
	assert.Equal(t, 0, sh.ColumnWidths.Explicit())
}

func TestWKSColumnLimit(t *testing.T) {
	data := wt.New().
		BOF(0x0406).
		Record(0x06, 0x00, wt.U16(0), wt.U16(0), wt.U16(0xFFFE), wt.U16(0xFFFE)).
		Record(0x08, 0x00, wt.U16(20000), wt.U8(12)).
		Record(0x0D, 0x00, wt.WKSCell(0x71, 0, 0), wt.I16(1)).
		Record(0x0D, 0x00, wt.WKSCell(0x71, 300, 0), wt.I16(2)).
		Record(0x0D, 0x00, wt.WKSCell(0x71, 255, 1), wt.I16(3)).
		EOF().
		Bytes()
	doc := parseBytes(t, data, Options{Dialect: wksDialect})
	require.Len(t, doc.Diagnostics, 3)
	for i, name := range []string{"RANGE", "COLW1", "INTEGER"} {
		assert.Equal(t, DiagRecord, doc.Diagnostics[i].Kind)
		assert.Contains(t, doc.Diagnostics[i].Message, name)
		assert.Contains(t, doc.Diagnostics[i].Message, "beyond IV")
	}

	sh := doc.Sheets[0]
	assert.False(t, sh.HasDimensions)
	assert.Equal(t, 0, sh.ColumnWidths.Explicit())
	assert.Equal(t, 2, sh.NCells())
	assert.Equal(t, 3.0, cellAt(t, sh, 255, 1).Content.Number)
}

func TestEndMarker(t *testing.T) {
	data := wt.New().
		BOF(0x0406).
		Record(0x0D, 0x00, wt.WKSCell(0x71, 0, 0), wt.I16(1)).
		Record(0x01, 0x00, []byte{1, 2, 3}).
		Record(0x0D, 0x00, wt.WKSCell(0x71, 0, 1), wt.I16(2)).
		Bytes()
	doc := parseBytes(t, data, Options{Dialect: wksDialect})
	require.Len(t, doc.Diagnostics, 1)
	assert.Equal(t, DiagRecord, doc.Diagnostics[0].Kind)
	assert.Equal(t, 1, doc.Sheets[0].NCells())
}

func TestCleanEndings(t *testing.T) {
	base := wt.New().BOF(0x0406).Record(0x0D, 0x00, wt.WKSCell(0x71, 0, 0), wt.I16(1))

	// no end marker at all
	doc := parseBytes(t, base.Bytes(), Options{Dialect: wksDialect})
	assert.Empty(t, doc.Diagnostics)

	// end marker missing its length field
	doc = parseBytes(t, append(base.Bytes(), 0x01, 0x00), Options{Dialect: wksDialect})
	assert.Empty(t, doc.Diagnostics)

	// zero padding is only accepted where sector padding is expected
	doc = parseBytes(t, append(base.Bytes(), 0, 0, 0), Options{Dialect: wksDialect})
	require.Len(t, doc.Diagnostics, 1)
	assert.Equal(t, DiagFraming, doc.Diagnostics[0].Kind)
	assert.Equal(t, 1, doc.Stats.Aborted)

	qpro := wt.New().BOF(0x1002).Record(0x0D, 0x00, wt.QProCell(0, 0, 0, 0), wt.I16(1)).Raw(0, 0, 0, 0, 0, 0, 0)
	doc = parseBytes(t, qpro.Bytes(), Options{Dialect: qproDialect})
	assert.Empty(t, doc.Diagnostics)
	assert.Equal(t, 1.0, cellAt(t, doc.Sheets[0], 0, 0).Content.Number)
}

func TestResyncByScan(t *testing.T) {
	data := wt.New().
		BOF6(0x1003).
		Record(0x0B, 0x00, wt.U8(0), wt.CString("One")).
		Record(0x17, 0x00, wt.WK3Cell(0, 0, 0), wt.F64(1)).
		RecordLen(0x17, 0x00, 0xFFFF, nil).
		Record(0x0B, 0x00, wt.U8(1), wt.CString("Two")).
		Record(0x17, 0x00, wt.WK3Cell(0, 1, 0), wt.F64(2)).
		EOF().
		Bytes()

	var seen []Diagnostic
	doc := parseBytes(t, data, Options{
		Dialect:     wk3Dialect,
		Diagnostics: DiagnosticFunc(func(d Diagnostic) { seen = append(seen, d) }),
	})
	require.Len(t, doc.Diagnostics, 2)
	assert.Equal(t, DiagFraming, doc.Diagnostics[0].Kind)
	assert.Equal(t, DiagResync, doc.Diagnostics[1].Kind)
	assert.Contains(t, doc.Diagnostics[1].Message, "SHEETNAME")
	assert.Equal(t, doc.Diagnostics, seen)
	assert.Equal(t, 1, doc.Stats.Aborted)

	two, err := doc.SheetByName("Two")
	require.NoError(t, err)
	assert.Equal(t, 2.0, cellAt(t, two, 0, 0).Content.Number)
}

func TestResyncAtSection(t *testing.T) {
	first := wt.New().
		BOF6(0x1003).
		Record(0x0B, 0x00, wt.U8(0), wt.CString("One")).
		Record(0x17, 0x00, wt.WK3Cell(0, 0, 0), wt.F64(1)).
		RecordLen(0x17, 0x00, 0xFFF0, []byte{0, 0}).
		Bytes()
	second := wt.New().
		Record(0x17, 0x00, wt.WK3Cell(1, 0, 0), wt.F64(2)).
		EOF().
		Bytes()
	src := wt.Join([]byte("JUNK"), first, []byte("MORE JUNK"), second)
	sections := []Section{
		{Offset: 4, Length: int64(len(first))},
		{Offset: int64(4 + len(first) + 9), Length: int64(len(second))},
	}

	doc, err := ParseSections(bytes.NewReader(src), sections, &Options{Dialect: wk3Dialect})
	require.NoError(t, err)
	require.Len(t, doc.Diagnostics, 2)
	assert.Equal(t, DiagFraming, doc.Diagnostics[0].Kind)
	assert.Equal(t, DiagResync, doc.Diagnostics[1].Kind)
	assert.Equal(t, int64(len(first)), doc.Diagnostics[1].Offset)

	one := doc.Sheets[0]
	assert.Equal(t, 1.0, cellAt(t, one, 0, 0).Content.Number)
	assert.Equal(t, 2.0, cellAt(t, one, 0, 1).Content.Number)
}

func TestUnbalancedContexts(t *testing.T) {
	data := wt.New().
		BOF(0x1002).
		Record(0xCB, 0x00).
		Record(0xCB, 0x00).
		Record(0xCA, 0x00, wt.U8(0), wt.CString("Open")).
		EOF().
		Bytes()
	doc := parseBytes(t, data, Options{Dialect: qproDialect})
	require.Len(t, doc.Diagnostics, 2)
	assert.Equal(t, DiagContext, doc.Diagnostics[0].Kind)
	assert.Contains(t, doc.Diagnostics[0].Message, "without an open sheet")
	assert.Equal(t, DiagContext, doc.Diagnostics[1].Kind)
	assert.Contains(t, doc.Diagnostics[1].Message, "left open")
}

func TestAddressDiagnostics(t *testing.T) {
	code := []byte{0x01, 0x01, 0x09, 0x01, 0x09, 0x03}
	data := wt.New().
		BOF6(0x1003).
		Record(0x19, 0x00, wt.WK3Cell(0, 0, 0), wt.Formula(0, code,
			wt.Cell3(0xFFFF, 0, 0), wt.Cell3(0, 0xFFFF, 0), wt.Cell3(wt.Rel(-3), 0, 0))).
		EOF().
		Bytes()
	doc := parseBytes(t, data, Options{Dialect: wk3Dialect})

	var address []Diagnostic
	for _, d := range doc.Diagnostics {
		if d.Kind == DiagAddress {
			address = append(address, d)
		}
	}
	// the placeholder is reported once, the negative column each time
	require.Len(t, address, 2)
	assert.Contains(t, address[0].Message, "placeholder")

	sh := doc.Sheets[0]
	c := cellAt(t, sh, 0, 0)
	require.Equal(t, ContentFormula, c.Content.Kind)
	assert.Equal(t, "#REF!+#REF!+#REF!", doc.FormulaString(sh, c.Content.Formula, RenderOptions{}))
}

func TestBadFormulaKeepsValue(t *testing.T) {
	data := wt.New().
		BOF(0x0406).
		Record(0x10, 0x00, wt.WKSCell(0x71, 0, 0), wt.Formula(12.5, []byte{0x07, 0x03})).
		Record(0x10, 0x00, wt.WKSCell(0x71, 1, 0), wt.Formula(3, []byte{0x01, 0x03}, []byte{0x09})).
		EOF().
		Bytes()
	doc := parseBytes(t, data, Options{Dialect: wksDialect})
	require.Len(t, doc.Diagnostics, 2)
	for _, d := range doc.Diagnostics {
		assert.Equal(t, DiagDecode, d.Kind)
	}
	sh := doc.Sheets[0]
	assert.Equal(t, Content{Kind: ContentNumber, Number: 12.5}, cellAt(t, sh, 0, 0).Content)
	assert.Equal(t, Content{Kind: ContentNumber, Number: 3}, cellAt(t, sh, 1, 0).Content)
}

func TestNativeTermOption(t *testing.T) {
	code := []byte{0x05, 0x01, 0x00, 0x05, 0x02, 0x00, 0x05, 0x03, 0x00, 0x6F, 0x03}
	data := wt.New().
		BOF(0x0406).
		Record(0x10, 0x00, wt.WKSCell(0x71, 0, 0), wt.Formula(0, code)).
		EOF().
		Bytes()

	for _, tt := range []struct {
		native bool
		want   string
	}{
		{false, "NPER(2;-(1);0;3)"},
		{true, "TERM(1;2;3)"},
	} {
		doc := parseBytes(t, data, Options{Dialect: wksDialect, NativeTerm: tt.native})
		sh := doc.Sheets[0]
		c := cellAt(t, sh, 0, 0)
		assert.Equal(t, tt.want, doc.FormulaString(sh, c.Content.Formula, RenderOptions{}))
	}
}

func TestTraceOutput(t *testing.T) {
	var log strings.Builder
	parseBytes(t, wksSample(), Options{Dialect: wksDialect, Logfile: &log, Verbosity: 3})
	out := log.String()
	assert.Contains(t, out, "wks header version 0x0406")
	assert.Contains(t, out, "LABEL")
	assert.Contains(t, out, "formula A!C2")
	assert.Contains(t, out, "depth=")

	log.Reset()
	parseBytes(t, wksSample(), Options{Dialect: wksDialect, Logfile: &log, Verbosity: 1})
	assert.NotContains(t, log.String(), "LABEL")
}

func TestParseOptions(t *testing.T) {
	_, err := Parse(bytes.NewReader(wksSample()), &Options{})
	assert.Error(t, err)
	_, err = Parse(bytes.NewReader(wksSample()), nil)
	assert.Error(t, err)
	_, err = Parse(bytes.NewReader(wksSample()), &Options{Dialect: wksDialect, Encoding: "no-such-code-page"})
	assert.Error(t, err)
}

func TestEncodings(t *testing.T) {
	data := wt.New().
		BOF(0x0406).
		Record(0x0F, 0x00, wt.WKSCell(0x71, 0, 0), []byte{'\'', 'c', 'a', 'f', 0x82, 0}).
		EOF().
		Bytes()

	doc := parseBytes(t, data, Options{Dialect: wksDialect})
	assert.Equal(t, "café", textAt(t, doc, doc.Sheets[0], 0, 0))

	doc = parseBytes(t, data, Options{Dialect: wksDialect, Encoding: "windows-1252"})
	assert.Equal(t, "caf‚", textAt(t, doc, doc.Sheets[0], 0, 0))

	utf := wt.New().
		BOF(0x0406).
		Record(0x0F, 0x00, wt.WKSCell(0x71, 0, 0), wt.CString("'héllo wörld")).
		EOF().
		Bytes()
	doc = parseBytes(t, utf, Options{Dialect: wksDialect, Encoding: EncodingAuto})
	assert.Equal(t, "héllo wörld", textAt(t, doc, doc.Sheets[0], 0, 0))
}

func TestParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.wks")
	require.NoError(t, os.WriteFile(path, wksSample(), 0o644))
	doc, err := ParseFile(path, &Options{Dialect: wksDialect})
	require.NoError(t, err)
	assert.Equal(t, 5, doc.Stats.Cells)

	_, err = ParseFile(path+".missing", &Options{Dialect: wksDialect})
	assert.Error(t, err)
}
