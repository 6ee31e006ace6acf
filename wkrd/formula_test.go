package wkrd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	wt "github.com/yamitzky/wkrd-go/wkrd/wkrdtest"
)

func decompile(t *testing.T, dc Decompiler, code []byte, operands ...Instruction) string {
	t.Helper()
	instrs, err := dc.Decompile(code, operands)
	require.NoError(t, err, "code % x", code)
	return RenderFormula(instrs, RenderOptions{})
}

func relRef(col, row int) CellRef {
	return CellRef{Column: int32(col), Row: int32(row), ColumnIsRelative: true, RowIsRelative: true}
}

func TestDecompileArithmetic(t *testing.T) {
	dc := Decompiler{Table: lotusOpcodes}
	code := []byte{0x05, 0x03, 0x00, 0x05, 0x04, 0x00, 0x05, 0x02, 0x00, 0x0B, 0x09, 0x03}

	instrs, err := dc.Decompile(code, nil)
	require.NoError(t, err)
	assert.Equal(t, []Instruction{IntLit(3), Op("+"), IntLit(4), Op("*"), IntLit(2)}, instrs)
	assert.Equal(t, "3+4*2", RenderFormula(instrs, RenderOptions{}))

	paren := []byte{0x05, 0x01, 0x00, 0x05, 0x02, 0x00, 0x09, 0x04, 0x05, 0x03, 0x00, 0x0B, 0x03}
	assert.Equal(t, "(1+2)*3", decompile(t, dc, paren))
	assert.Equal(t, "-5", decompile(t, dc, []byte{0x05, 0x05, 0x00, 0x08, 0x03}))
	assert.Equal(t, "+5", decompile(t, dc, []byte{0x05, 0x05, 0x00, 0x17, 0x03}))
	assert.Equal(t, "1<>2", decompile(t, dc, []byte{0x05, 0x01, 0x00, 0x05, 0x02, 0x00, 0x0F, 0x03}))
}

func TestDecompileLiterals(t *testing.T) {
	dc := Decompiler{Table: lotusOpcodes}
	assert.Equal(t, "1.5", decompile(t, dc, wt.Join([]byte{0x00}, wt.F64(1.5), []byte{0x03})))
	assert.Equal(t, "-7", decompile(t, dc, []byte{0x05, 0xF9, 0xFF, 0x03}))
	assert.Equal(t, `"hi"`, decompile(t, dc, []byte{0x06, 'h', 'i', 0x00, 0x03}))
	assert.Equal(t, `"a""b"&"c"`, decompile(t, dc, []byte{0x06, 'a', '"', 'b', 0x00, 0x06, 'c', 0x00, 0x18, 0x03}))

	dc.DecodeText = func(b []byte) string { return strings.ToUpper(string(b)) }
	assert.Equal(t, `"HI"`, decompile(t, dc, []byte{0x06, 'h', 'i', 0x00, 0x03}))
}

func TestDecompileOperands(t *testing.T) {
	dc := Decompiler{Table: lotusOpcodes}
	a1, b2 := relRef(0, 0), relRef(1, 1)

	assert.Equal(t, "A1+B2", decompile(t, dc, []byte{0x01, 0x01, 0x09, 0x03}, CellInstr(a1), CellInstr(b2)))
	assert.Equal(t, "SUM(A1:B2)", decompile(t, dc, []byte{0x02, 0x4A, 0x01, 0x03}, RangeInstr(a1, b2)))
	assert.Equal(t, "MAX(A1;3;B2)", decompile(t, dc,
		[]byte{0x01, 0x05, 0x03, 0x00, 0x01, 0x4E, 0x03, 0x03}, CellInstr(a1), CellInstr(b2)))
	assert.Equal(t, "IF(A1>0;1;2)", decompile(t, dc,
		[]byte{0x01, 0x05, 0x00, 0x00, 0x13, 0x05, 0x01, 0x00, 0x05, 0x02, 0x00, 0x35, 0x03}, CellInstr(a1)))
	assert.Equal(t, "PI()", decompile(t, dc, []byte{0x20, 0x03}))

	abs := CellRef{Column: 2, Row: 4}
	assert.Equal(t, "$C$5", decompile(t, dc, []byte{0x01, 0x03}, CellInstr(abs)))
	assert.Equal(t, "#REF!", decompile(t, dc, []byte{0x01, 0x03}, CellInstr(CellRef{Invalid: true})))
}

func TestTermRewrite(t *testing.T) {
	term := []byte{0x05, 0x01, 0x00, 0x05, 0x02, 0x00, 0x05, 0x03, 0x00, 0x6F, 0x03}
	cterm := []byte{0x05, 0x01, 0x00, 0x05, 0x02, 0x00, 0x05, 0x03, 0x00, 0x70, 0x03}

	dc := Decompiler{Table: lotusOpcodes}
	assert.Equal(t, "NPER(2;-(1);0;3)", decompile(t, dc, term))
	assert.Equal(t, "NPER(1;0;-(3);2)", decompile(t, dc, cterm))

	instrs, err := dc.Decompile(term, nil)
	require.NoError(t, err)
	assert.Equal(t, "NPER(2,-(1),0,3)", RenderFormula(instrs, RenderOptions{ArgSeparator: ","}))

	dc.NativeTerm = true
	assert.Equal(t, "TERM(1;2;3)", decompile(t, dc, term))
	assert.Equal(t, "CTERM(1;2;3)", decompile(t, dc, cterm))
}

func TestQuattroOpcodes(t *testing.T) {
	code := []byte{0x74, 0x03}
	dc := Decompiler{Table: quattroOpcodes}
	assert.Equal(t, "NOW()", decompile(t, dc, code))

	dc.Table = lotusOpcodes
	_, err := dc.Decompile(code, nil)
	assert.Error(t, err)
}

func TestDecompileErrors(t *testing.T) {
	dc := Decompiler{Table: lotusOpcodes}
	tests := []struct {
		name     string
		code     []byte
		operands []Instruction
	}{
		{"unused opcode", []byte{0x05, 0x01, 0x00, 0x07, 0x03}, nil},
		{"beyond table", []byte{0xFF, 0x03}, nil},
		{"binary underflow", []byte{0x05, 0x01, 0x00, 0x09, 0x03}, nil},
		{"function underflow", []byte{0x1B, 0x03}, nil},
		{"two values left", []byte{0x05, 0x01, 0x00, 0x05, 0x02, 0x00, 0x03}, nil},
		{"no end marker", []byte{0x05, 0x01, 0x00}, nil},
		{"empty", nil, nil},
		{"missing operand", []byte{0x01, 0x03}, nil},
		{"operand kind mismatch", []byte{0x01, 0x03}, []Instruction{RangeInstr(relRef(0, 0), relRef(1, 1))}},
		{"truncated float", []byte{0x00, 0x01, 0x02}, nil},
		{"truncated int", []byte{0x05, 0x01}, nil},
		{"unterminated text", []byte{0x06, 'a', 'b'}, nil},
		{"missing argument count", []byte{0x4A}, nil},
		{"end marker without operand", []byte{0x03}, nil},
	}
	for _, tt := range tests {
		_, err := dc.Decompile(tt.code, tt.operands)
		var decodeErr *DecodeError
		assert.ErrorAs(t, err, &decodeErr, tt.name)
	}
}

func TestDecompileTrace(t *testing.T) {
	var buf bytes.Buffer
	dc := Decompiler{Table: lotusOpcodes, Trace: &buf}
	decompile(t, dc, []byte{0x05, 0x01, 0x00, 0x08, 0x03})
	assert.Contains(t, buf.String(), "depth=1 top=-1")
}

func TestRenderSheetPrefix(t *testing.T) {
	names := map[int]string{0: "Main", 1: "My Data"}
	opts := RenderOptions{Sheet: 0, SheetName: func(n int) string { return names[n] }}

	other := CellRef{Column: 0, Row: 0, Sheet: 1}
	same := CellRef{Column: 1, Row: 1}
	instrs := []Instruction{CellInstr(other), Op("+"), CellInstr(same)}
	assert.Equal(t, "'My Data'!$A$1+$B$2", RenderFormula(instrs, opts))

	rng := []Instruction{Func("SUM"), Op("("), RangeInstr(other, CellRef{Column: 1, Row: 1, Sheet: 1}), Op(")")}
	assert.Equal(t, "SUM('My Data'!$A$1:$B$2)", RenderFormula(rng, opts))

	cross := []Instruction{RangeInstr(same, other)}
	assert.Equal(t, "$B$2:'My Data'!$A$1", RenderFormula(cross, opts))

	assert.Equal(t, "$A$1", RenderFormula([]Instruction{CellInstr(other)}, RenderOptions{}))
}
