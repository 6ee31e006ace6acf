package wkrd

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// InstrKind selects the variant of an Instruction.
type InstrKind int

const (
	InstrOperator InstrKind = iota
	InstrFunction
	InstrCell
	InstrRange
	InstrInt
	InstrFloat
	InstrText
)

var instrKindNames = [...]string{"operator", "function", "cell", "range", "int", "float", "text"}

func (k InstrKind) String() string {
	if int(k) < len(instrKindNames) {
		return instrKindNames[k]
	}
	return fmt.Sprintf("InstrKind(%d)", int(k))
}

// Instruction is one element of a decompiled, infix formula.
type Instruction struct {
	Kind  InstrKind
	Text  string
	Int   int
	Float float64
	Ref   CellRef
	Ref2  CellRef
}

// Op returns an operator instruction.
func Op(text string) Instruction { return Instruction{Kind: InstrOperator, Text: text} }

// Func returns a function name instruction.
func Func(name string) Instruction { return Instruction{Kind: InstrFunction, Text: name} }

// IntLit returns an integer literal instruction.
func IntLit(v int) Instruction { return Instruction{Kind: InstrInt, Int: v} }

// FloatLit returns a float literal instruction.
func FloatLit(v float64) Instruction { return Instruction{Kind: InstrFloat, Float: v} }

// TextLit returns a text literal instruction.
func TextLit(s string) Instruction { return Instruction{Kind: InstrText, Text: s} }

// CellInstr returns a single cell reference instruction.
func CellInstr(r CellRef) Instruction { return Instruction{Kind: InstrCell, Ref: r} }

// RangeInstr returns a cell range reference instruction.
func RangeInstr(a, b CellRef) Instruction { return Instruction{Kind: InstrRange, Ref: a, Ref2: b} }

func (in Instruction) String() string {
	switch in.Kind {
	case InstrOperator, InstrFunction:
		return in.Text
	case InstrInt:
		return strconv.Itoa(in.Int)
	case InstrFloat:
		return strconv.FormatFloat(in.Float, 'g', -1, 64)
	case InstrText:
		return `"` + strings.ReplaceAll(in.Text, `"`, `""`) + `"`
	case InstrCell:
		return refName(in.Ref)
	case InstrRange:
		return refName(in.Ref) + ":" + refName(in.Ref2)
	}
	return "?"
}

func refName(r CellRef) string {
	if r.Invalid {
		return "#REF!"
	}
	return CellNameRel(int(r.Row), int(r.Column), r.RowIsRelative, r.ColumnIsRelative)
}

// Decompiler turns a postfix opcode stream into an infix instruction list.
type Decompiler struct {
	Table OpcodeTable

	// DecodeText converts text literal bytes. Nil keeps the bytes as is.
	DecodeText func([]byte) string

	// NativeTerm keeps TERM and CTERM instead of rewriting them to NPER.
	NativeTerm bool

	// Trace, when set, receives the stack after every opcode.
	Trace io.Writer
}

// Decompile runs the stack machine over code. Cell and range opcodes take
// the next entry of operands in order. The result has the end-of-formula
// marker stripped.
func (dc *Decompiler) Decompile(code []byte, operands []Instruction) ([]Instruction, error) {
	var stack [][]Instruction
	nextOperand := 0
	pos := 0

	pop := func(n int) [][]Instruction {
		args := make([][]Instruction, n)
		copy(args, stack[len(stack)-n:])
		stack = stack[:len(stack)-n]
		return args
	}

	for pos < len(code) {
		start := pos
		op := code[pos]
		pos++
		ent, ok := dc.Table.Lookup(op)
		if !ok {
			if int(op) >= len(dc.Table) {
				return nil, newDecodeError(start, int(op), "opcode beyond table of %d entries", len(dc.Table))
			}
			return nil, newDecodeError(start, int(op), "unused opcode")
		}

		switch ent.kind {
		case opFloat:
			if pos+8 > len(code) {
				return nil, newDecodeError(start, int(op), "float literal truncated")
			}
			v := math.Float64frombits(binary.LittleEndian.Uint64(code[pos:]))
			pos += 8
			stack = append(stack, []Instruction{FloatLit(v)})
		case opInt:
			if pos+2 > len(code) {
				return nil, newDecodeError(start, int(op), "int literal truncated")
			}
			v := int16(binary.LittleEndian.Uint16(code[pos:]))
			pos += 2
			stack = append(stack, []Instruction{IntLit(int(v))})
		case opText:
			end := bytes.IndexByte(code[pos:], 0)
			if end < 0 {
				return nil, newDecodeError(start, int(op), "text literal not terminated")
			}
			raw := code[pos : pos+end]
			pos += end + 1
			text := string(raw)
			if dc.DecodeText != nil {
				text = dc.DecodeText(raw)
			}
			stack = append(stack, []Instruction{TextLit(text)})
		case opCell, opRange:
			if nextOperand >= len(operands) {
				return nil, newDecodeError(start, int(op), "no operand left for %s", ent.Name)
			}
			o := operands[nextOperand]
			nextOperand++
			if (ent.kind == opCell) != (o.Kind == InstrCell) {
				return nil, newDecodeError(start, int(op), "operand %d is a %s, want %s", nextOperand-1, o.Kind, ent.Name)
			}
			stack = append(stack, []Instruction{o})
		case opEnd, opUnary:
			if len(stack) < 1 {
				return nil, newDecodeError(start, int(op), "%q needs an operand", ent.Name)
			}
			a := pop(1)[0]
			stack = append(stack, append([]Instruction{Op(ent.Name)}, a...))
		case opParen:
			if len(stack) < 1 {
				return nil, newDecodeError(start, int(op), "parentheses need an operand")
			}
			a := pop(1)[0]
			stack = append(stack, paren(nil, a))
		case opBinary:
			if len(stack) < 2 {
				return nil, newDecodeError(start, int(op), "%q needs two operands", ent.Name)
			}
			args := pop(2)
			res := make([]Instruction, 0, len(args[0])+len(args[1])+1)
			res = append(res, args[0]...)
			res = append(res, Op(ent.Name))
			res = append(res, args[1]...)
			stack = append(stack, res)
		case opFunc:
			arity := ent.Arity
			if arity == arityVariadic {
				if pos >= len(code) {
					return nil, newDecodeError(start, int(op), "argument count missing")
				}
				arity = int(code[pos])
				pos++
			}
			if len(stack) < arity {
				return nil, newDecodeError(start, int(op), "%s needs %d arguments, stack has %d", ent.Name, arity, len(stack))
			}
			stack = append(stack, dc.call(ent.Name, pop(arity)))
		}

		if dc.Trace != nil {
			fmt.Fprintf(dc.Trace, "  %3d 0x%02x %-8s depth=%d top=%s\n", start, op, ent.Name, len(stack), joinInstructions(stack[len(stack)-1]))
		}
	}

	if len(stack) != 1 {
		return nil, newDecodeError(pos, -1, "stack depth %d at end of formula", len(stack))
	}
	res := stack[0]
	if len(res) == 0 || res[0].Kind != InstrOperator || res[0].Text != "=" {
		return nil, newDecodeError(pos, -1, "formula does not start with the end marker")
	}
	return res[1:], nil
}

func (dc *Decompiler) call(name string, args [][]Instruction) []Instruction {
	if !dc.NativeTerm && len(args) == 3 {
		zero := []Instruction{IntLit(0)}
		switch name {
		case "TERM":
			// TERM(pmt; pint; fv)
			return emitCall("NPER", [][]Instruction{args[1], negate(args[0]), zero, args[2]})
		case "CTERM":
			// CTERM(pint; fv; pv)
			return emitCall("NPER", [][]Instruction{args[0], zero, negate(args[2]), args[1]})
		}
	}
	return emitCall(name, args)
}

func emitCall(name string, args [][]Instruction) []Instruction {
	res := []Instruction{Func(name), Op("(")}
	for i, a := range args {
		if i > 0 {
			res = append(res, Op(";"))
		}
		res = append(res, a...)
	}
	return append(res, Op(")"))
}

func paren(prefix []Instruction, a []Instruction) []Instruction {
	res := make([]Instruction, 0, len(prefix)+len(a)+2)
	res = append(res, prefix...)
	res = append(res, Op("("))
	res = append(res, a...)
	return append(res, Op(")"))
}

func negate(a []Instruction) []Instruction {
	return paren([]Instruction{Op("-")}, a)
}

func joinInstructions(instrs []Instruction) string {
	var b strings.Builder
	for _, in := range instrs {
		b.WriteString(in.String())
	}
	return b.String()
}

// RenderOptions controls RenderFormula.
type RenderOptions struct {
	// ArgSeparator replaces the ";" argument separator when set.
	ArgSeparator string

	// Sheet is the sheet number of the formula cell. References to other
	// sheets get a sheet prefix.
	Sheet int

	// SheetName resolves a sheet number for prefixes. Nil disables prefixes.
	SheetName func(n int) string
}

// RenderFormula renders an instruction list as formula text without the
// leading "=".
func RenderFormula(instrs []Instruction, opts RenderOptions) string {
	var b strings.Builder
	prefix := func(r CellRef, base int) {
		if opts.SheetName == nil || r.Invalid || int(r.Sheet) == base {
			return
		}
		b.WriteString(QuotedSheetName(opts.SheetName(int(r.Sheet))))
		b.WriteByte('!')
	}
	for _, in := range instrs {
		switch in.Kind {
		case InstrOperator:
			if in.Text == ";" && opts.ArgSeparator != "" {
				b.WriteString(opts.ArgSeparator)
			} else {
				b.WriteString(in.Text)
			}
		case InstrCell:
			prefix(in.Ref, opts.Sheet)
			b.WriteString(refName(in.Ref))
		case InstrRange:
			prefix(in.Ref, opts.Sheet)
			b.WriteString(refName(in.Ref))
			b.WriteByte(':')
			prefix(in.Ref2, int(in.Ref.Sheet))
			b.WriteString(refName(in.Ref2))
		default:
			b.WriteString(in.String())
		}
	}
	return b.String()
}
