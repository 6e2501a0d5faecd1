// Package parser implements C2: turning a token stream into a flat
// instruction stream of tagged operations.
//
// It generalizes skx-math-compiler's token-to-instruction walk (a single
// token of lookahead, one dispatch per keyword) to Phronima's larger
// keyword table and its `fn`/`import` argument-consuming forms.
package parser

import (
	"fmt"
	"strconv"

	"github.com/phronima-lang/phronima/internal/instr"
	"github.com/phronima-lang/phronima/internal/token"
)

// Error reports a malformed `fn`, `import`, or string-literal token.
type Error struct {
	token.Location
	Message string
}

func (e Error) Error() string {
	return fmt.Sprintf("%v %v", e.Location, e.Message)
}

var keywords = map[string]instr.Op{
	"pop":     instr.OpPop,
	"+":       instr.OpPlus,
	"-":       instr.OpMinus,
	"*":       instr.OpMult,
	"chout":   instr.OpCharOut,
	"numout":  instr.OpNumOut,
	"write":   instr.OpWrite,
	"read":    instr.OpRead,
	"mem":     instr.OpMem,
	"initmem": instr.OpInitMem,
	"if":      instr.OpIf,
	"end":     instr.OpEnd,
	"else":    instr.OpElse,
	"while":   instr.OpWhile,
	"<":       instr.OpLessThan,
	">":       instr.OpGreaterThan,
	"=":       instr.OpEquals,
	"swap":    instr.OpSwap,
	"dup":     instr.OpDup,
	"?":       instr.OpTwoDup,
	"not":     instr.OpNot,
}

// Parse converts a token stream into a flat instruction stream. Block
// instruction targets are left unresolved (filled in later by the block
// resolver).
func Parse(toks []token.Token) ([]instr.Instruction, error) {
	var out []instr.Instruction
	for i := 0; i < len(toks); i++ {
		ins, consumed, err := parseOne(toks, i)
		if err != nil {
			return nil, err
		}
		out = append(out, ins)
		i += consumed
	}
	return out, nil
}

// parseOne parses the instruction starting at toks[i], returning the
// instruction and the number of *additional* tokens it consumed beyond
// toks[i] itself.
func parseOne(toks []token.Token, i int) (instr.Instruction, int, error) {
	tok := toks[i]

	if n, err := strconv.ParseUint(tok.Value, 10, 8); err == nil {
		return instr.Push(tok.Location, byte(n)), 0, nil
	}

	if op, ok := keywords[tok.Value]; ok {
		if op.IsBlock() {
			return instr.Block(tok.Location, op), 0, nil
		}
		return instr.Simple(tok.Location, op), 0, nil
	}

	switch tok.Value {
	case "fn":
		if i+1 >= len(toks) {
			return instr.Instruction{}, 0, parseErr(tok, "fn: expected a function name")
		}
		return instr.FunctionDeclaration(tok.Location, toks[i+1].Value), 1, nil

	case "import":
		if i+1 >= len(toks) {
			return instr.Instruction{}, 0, parseErr(tok, "import: expected a path")
		}
		return instr.Import(tok.Location, toks[i+1].Value), 1, nil
	}

	if len(tok.Value) > 0 && tok.Value[0] == '"' {
		if len(tok.Value) < 2 || tok.Value[len(tok.Value)-1] != '"' {
			return instr.Instruction{}, 0, parseErr(tok, "malformed string literal "+tok.Value)
		}
		return instr.StringLiteral(tok.Location, tok.Value[1:len(tok.Value)-1]), 0, nil
	}

	return instr.FunctionCall(tok.Location, tok.Value), 0, nil
}

func parseErr(tok token.Token, msg string) error {
	return Error{Location: tok.Location, Message: msg}
}
