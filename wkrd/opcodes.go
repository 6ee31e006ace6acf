package wkrd

type opKind uint8

const (
	opUnused opKind = iota
	opFloat
	opCell
	opRange
	opEnd
	opParen
	opInt
	opText
	opUnary
	opBinary
	opFunc
)

// Arity values with a special meaning.
const (
	arityVariadic = -1
	arityUnused   = -2
)

// Opcode is one entry of a formula opcode table. An Arity of -1 means the
// argument count follows the opcode as one byte.
type Opcode struct {
	Name  string
	Arity int
	kind  opKind
}

// OpcodeTable maps an opcode byte to its operation. Opcodes at or beyond the
// table length are invalid.
type OpcodeTable []Opcode

// Lookup returns the entry for op and whether op is a valid opcode.
func (t OpcodeTable) Lookup(op byte) (Opcode, bool) {
	if int(op) >= len(t) || t[op].kind == opUnused {
		return Opcode{}, false
	}
	return t[op], true
}

func fn(name string, arity int) Opcode {
	return Opcode{Name: name, Arity: arity, kind: opFunc}
}

var unused = Opcode{Arity: arityUnused, kind: opUnused}

// lotusOpcodes is shared by the WKS and WK3 dialects.
var lotusOpcodes = OpcodeTable{
	0x00: {Name: "float", kind: opFloat},
	0x01: {Name: "cell", kind: opCell},
	0x02: {Name: "range", kind: opRange},
	0x03: {Name: "=", Arity: 1, kind: opEnd},
	0x04: {Name: "(", Arity: 1, kind: opParen},
	0x05: {Name: "int", kind: opInt},
	0x06: {Name: "text", kind: opText},
	0x07: unused,
	0x08: {Name: "-", Arity: 1, kind: opUnary},
	0x09: {Name: "+", Arity: 2, kind: opBinary},
	0x0A: {Name: "-", Arity: 2, kind: opBinary},
	0x0B: {Name: "*", Arity: 2, kind: opBinary},
	0x0C: {Name: "/", Arity: 2, kind: opBinary},
	0x0D: {Name: "^", Arity: 2, kind: opBinary},
	0x0E: {Name: "=", Arity: 2, kind: opBinary},
	0x0F: {Name: "<>", Arity: 2, kind: opBinary},
	0x10: {Name: "<=", Arity: 2, kind: opBinary},
	0x11: {Name: ">=", Arity: 2, kind: opBinary},
	0x12: {Name: "<", Arity: 2, kind: opBinary},
	0x13: {Name: ">", Arity: 2, kind: opBinary},
	0x14: fn("AND", 2),
	0x15: fn("OR", 2),
	0x16: fn("NOT", 1),
	0x17: {Name: "+", Arity: 1, kind: opUnary},
	0x18: {Name: "&", Arity: 2, kind: opBinary},
	0x19: fn("NA", 0),
	0x1A: fn("NA", 0), // ERR
	0x1B: fn("ABS", 1),
	0x1C: fn("INT", 1),
	0x1D: fn("SQRT", 1),
	0x1E: fn("LOG10", 1),
	0x1F: fn("LN", 1),
	0x20: fn("PI", 0),
	0x21: fn("SIN", 1),
	0x22: fn("COS", 1),
	0x23: fn("TAN", 1),
	0x24: fn("ATAN2", 2),
	0x25: fn("ATAN", 1),
	0x26: fn("ASIN", 1),
	0x27: fn("ACOS", 1),
	0x28: fn("EXP", 1),
	0x29: fn("MOD", 2),
	0x2A: fn("CHOOSE", arityVariadic),
	0x2B: fn("ISNA", 1),
	0x2C: fn("ISERROR", 1),
	0x2D: fn("FALSE", 0),
	0x2E: fn("TRUE", 0),
	0x2F: fn("RAND", 0),
	0x30: fn("DATE", 3),
	0x31: fn("TODAY", 0),
	0x32: fn("PMT", 3),
	0x33: fn("PV", 3),
	0x34: fn("FV", 3),
	0x35: fn("IF", 3),
	0x36: fn("DAY", 1),
	0x37: fn("MONTH", 1),
	0x38: fn("YEAR", 1),
	0x39: fn("ROUND", 2),
	0x3A: fn("TIME", 3),
	0x3B: fn("HOUR", 1),
	0x3C: fn("MINUTE", 1),
	0x3D: fn("SECOND", 1),
	0x3E: fn("ISNUMBER", 1),
	0x3F: fn("ISTEXT", 1),
	0x40: fn("LEN", 1),
	0x41: fn("VALUE", 1),
	0x42: fn("FIXED", 2),
	0x43: fn("MID", 3),
	0x44: fn("CHAR", 1),
	0x45: fn("CODE", 1),
	0x46: fn("FIND", 3),
	0x47: fn("DATEVALUE", 1),
	0x48: fn("TIMEVALUE", 1),
	0x49: unused,
	0x4A: fn("SUM", arityVariadic),
	0x4B: fn("AVERAGE", arityVariadic),
	0x4C: fn("COUNT", arityVariadic),
	0x4D: fn("MIN", arityVariadic),
	0x4E: fn("MAX", arityVariadic),
	0x4F: fn("VLOOKUP", 3),
	0x50: fn("NPV", 2),
	0x51: fn("VARP", arityVariadic),
	0x52: fn("STDEVP", arityVariadic),
	0x53: fn("IRR", 2),
	0x54: fn("HLOOKUP", 3),
	0x55: fn("DSUM", 3),
	0x56: fn("DAVERAGE", 3),
	0x57: fn("DCOUNT", 3),
	0x58: fn("DMIN", 3),
	0x59: fn("DMAX", 3),
	0x5A: fn("DVARP", 3),
	0x5B: fn("DSTDEVP", 3),
	0x5C: fn("INDEX", 3),
	0x5D: fn("COLUMNS", 1),
	0x5E: fn("ROWS", 1),
	0x5F: fn("REPT", 2),
	0x60: fn("UPPER", 1),
	0x61: fn("LOWER", 1),
	0x62: fn("LEFT", 2),
	0x63: fn("RIGHT", 2),
	0x64: fn("REPLACE", 4),
	0x65: fn("PROPER", 1),
	0x66: fn("CELL", 2),
	0x67: fn("TRIM", 1),
	0x68: fn("CLEAN", 1),
	0x69: fn("T", 1),
	0x6A: fn("N", 1),
	0x6B: fn("EXACT", 2),
	0x6C: unused,
	0x6D: fn("INDIRECT", 1),
	0x6E: fn("RATE", 3),
	0x6F: fn("TERM", 3),
	0x70: fn("CTERM", 3),
	0x71: fn("SLN", 3),
	0x72: fn("SYD", 4),
	0x73: fn("DDB", 4),
}

// quattroOpcodes extends the Lotus table with Quattro Pro functions.
var quattroOpcodes = append(append(OpcodeTable(nil), lotusOpcodes...),
	fn("NOW", 0),
	fn("ISERR", 1),
	fn("SIGN", 1),
)
