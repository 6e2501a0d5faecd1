// Package instr defines Phronima's instruction set: the tagged variant
// produced by the parser, threaded through the structurer, block resolver,
// and both execution backends.
package instr

import "github.com/phronima-lang/phronima/internal/token"

// Op names an instruction's operation.
type Op int

const (
	OpPush Op = iota
	OpPop
	OpPlus
	OpMinus
	OpMult
	OpNumOut
	OpCharOut
	OpMem
	OpInitMem
	OpWrite
	OpRead
	OpIf
	OpElse
	OpEnd
	OpWhile
	OpLessThan
	OpGreaterThan
	OpEquals
	OpSwap
	OpDup
	OpTwoDup
	OpNot
	OpGetStackHeight
	OpFunctionDeclaration
	OpFunctionCall
	OpStringLiteral
	OpImport
)

var opNames = map[Op]string{
	OpPush:                "push",
	OpPop:                 "pop",
	OpPlus:                "+",
	OpMinus:               "-",
	OpMult:                "*",
	OpNumOut:              "numout",
	OpCharOut:             "chout",
	OpMem:                 "mem",
	OpInitMem:             "initmem",
	OpWrite:               "write",
	OpRead:                "read",
	OpIf:                  "if",
	OpElse:                "else",
	OpEnd:                 "end",
	OpWhile:               "while",
	OpLessThan:            "<",
	OpGreaterThan:         ">",
	OpEquals:              "=",
	OpSwap:                "swap",
	OpDup:                 "dup",
	OpTwoDup:              "?",
	OpNot:                 "not",
	OpGetStackHeight:      "stackheight",
	OpFunctionDeclaration: "fn",
	OpFunctionCall:        "call",
	OpStringLiteral:       "string",
	OpImport:              "import",
}

func (op Op) String() string {
	if name, ok := opNames[op]; ok {
		return name
	}
	return "invalid"
}

// IsBlock reports whether op is one of If/Else/End/While, the instructions
// that carry a resolved jump Target once the block resolver has run.
func (op Op) IsBlock() bool {
	switch op {
	case OpIf, OpElse, OpEnd, OpWhile:
		return true
	default:
		return false
	}
}

// Instruction is one tagged operation in a function body. Exactly the
// fields relevant to Op are meaningful; the rest are left at their zero
// values.
type Instruction struct {
	Op        Op
	Loc       token.Location
	Byte      byte   // Push
	Name      string // FunctionDeclaration, FunctionCall, Import
	String    string // StringLiteral content, quotes stripped
	Target    int    // If/Else/End/While, resolved jump target
	HasTarget bool
}

// Push returns a Push instruction.
func Push(loc token.Location, b byte) Instruction { return Instruction{Op: OpPush, Loc: loc, Byte: b} }

// Simple returns a non-operand instruction (Pop, Plus, ..., Not, etc).
func Simple(loc token.Location, op Op) Instruction { return Instruction{Op: op, Loc: loc} }

// Block returns an unresolved block instruction (If/Else/End/While).
func Block(loc token.Location, op Op) Instruction { return Instruction{Op: op, Loc: loc} }

// FunctionDeclaration returns a FunctionDeclaration instruction.
func FunctionDeclaration(loc token.Location, name string) Instruction {
	return Instruction{Op: OpFunctionDeclaration, Loc: loc, Name: name}
}

// FunctionCall returns a FunctionCall instruction.
func FunctionCall(loc token.Location, name string) Instruction {
	return Instruction{Op: OpFunctionCall, Loc: loc, Name: name}
}

// StringLiteral returns a StringLiteral instruction, content excluding the
// surrounding quotes.
func StringLiteral(loc token.Location, s string) Instruction {
	return Instruction{Op: OpStringLiteral, Loc: loc, String: s}
}

// Import returns an Import instruction.
func Import(loc token.Location, path string) Instruction {
	return Instruction{Op: OpImport, Loc: loc, Name: path}
}

// WithTarget returns a copy of in with its jump Target set.
func (in Instruction) WithTarget(target int) Instruction {
	in.Target = target
	in.HasTarget = true
	return in
}
