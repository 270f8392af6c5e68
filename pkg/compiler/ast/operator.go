package ast

// Operator is the tag of a Binary node.
type Operator int

const (
	OpAdd Operator = iota
	OpSub
	OpMul
	OpDiv
	OpMod
	OpAnd
	OpOr
	OpEq
	OpNeq
	OpLt
	OpGt
	OpLte
	OpGte
)

var operatorSymbols = [...]string{
	OpAdd: "+",
	OpSub: "-",
	OpMul: "*",
	OpDiv: "/",
	OpMod: "%",
	OpAnd: "&",
	OpOr:  "|",
	OpEq:  "==",
	OpNeq: "!=",
	OpLt:  "<",
	OpGt:  ">",
	OpLte: "<=",
	OpGte: ">=",
}

// Operators lists every operator in declaration order.
var Operators = []Operator{OpAdd, OpSub, OpMul, OpDiv, OpMod, OpAnd, OpOr, OpEq, OpNeq, OpLt, OpGt, OpLte, OpGte}

// String returns the source symbol.
func (op Operator) String() string {
	if op >= 0 && int(op) < len(operatorSymbols) {
		return operatorSymbols[op]
	}
	return "?"
}

// LookupOperator maps a source symbol to its Operator.
func LookupOperator(symbol string) (Operator, bool) {
	for i, s := range operatorSymbols {
		if s == symbol {
			return Operator(i), true
		}
	}
	return 0, false
}

// BuiltinTag identifies a builtin primitive.
type BuiltinTag int

const (
	Read BuiltinTag = iota
	Write
	Strlen
	Strget
	Strset
	Strsub
	Strdup
	Strcat
	Strcmp
	Strmake
	Arrmake
	Arrlen
)

// Variadic marks a builtin that accepts one or more arguments.
const Variadic = -1

type builtinInfo struct {
	name   string
	source string
	arity  int
}

var builtinTable = [...]builtinInfo{
	Read:    {"READ", "read", 0},
	Write:   {"WRITE", "write", Variadic},
	Strlen:  {"STRLEN", "strlen", 1},
	Strget:  {"STRGET", "strget", 2},
	Strset:  {"STRSET", "strset", 3},
	Strsub:  {"STRSUB", "strsub", 3},
	Strdup:  {"STRDUP", "strdup", 1},
	Strcat:  {"STRCAT", "strcat", 2},
	Strcmp:  {"STRCMP", "strcmp", 2},
	Strmake: {"STRMAKE", "strmake", 2},
	Arrmake: {"ARRMAKE", "arrmake", 2},
	Arrlen:  {"ARRLEN", "arrlen", 1},
}

// String returns the upper-case tag name used in bytecode listings.
func (t BuiltinTag) String() string {
	if t >= 0 && int(t) < len(builtinTable) {
		return builtinTable[t].name
	}
	return "UNKNOWN"
}

// SourceName returns the name the builtin is called by in source code.
func (t BuiltinTag) SourceName() string {
	if t >= 0 && int(t) < len(builtinTable) {
		return builtinTable[t].source
	}
	return "unknown"
}

// Arity returns the fixed argument count, or Variadic.
func (t BuiltinTag) Arity() int {
	return builtinTable[t].arity
}

// AcceptsArgs reports whether n arguments satisfy the builtin's arity.
func (t BuiltinTag) AcceptsArgs(n int) bool {
	if t.Arity() == Variadic {
		return n >= 1
	}
	return n == t.Arity()
}

// LookupBuiltin maps a source-level name to its tag. "Arrmake" is accepted
// as an alias of "arrmake".
func LookupBuiltin(name string) (BuiltinTag, bool) {
	if name == "Arrmake" {
		return Arrmake, true
	}
	for i, b := range builtinTable {
		if b.source == name {
			return BuiltinTag(i), true
		}
	}
	return 0, false
}
