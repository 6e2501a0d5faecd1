// Package module implements the Module data type plus C3 (the
// structurer) and C5 (the per-function block resolver).
package module

import (
	"fmt"

	"github.com/phronima-lang/phronima/internal/instr"
	"github.com/phronima-lang/phronima/internal/token"
)

// Module maps function names to their instruction bodies, plus an ordered
// queue of import paths still pending resolution.
type Module struct {
	Functions map[string][]instr.Instruction
	Imports   []string
}

// New returns an empty Module.
func New() *Module {
	return &Module{Functions: make(map[string][]instr.Instruction)}
}

// Merge installs every function from other into m, overwriting any
// existing function of the same name: last writer wins. This overwrite
// policy is deliberate and preserved from the original implementation
// rather than "fixed" — see spec.md §4.4 and §9.
func (m *Module) Merge(other *Module) {
	for name, body := range other.Functions {
		m.Functions[name] = body
	}
	m.Imports = append(m.Imports, other.Imports...)
}

// Error reports a mismatched block or function delimiter.
type Error struct {
	token.Location
	Message string
}

func (e Error) Error() string {
	return fmt.Sprintf("%v %v", e.Location, e.Message)
}

type blockKind int

const (
	kindIf blockKind = iota
	kindElse
	kindWhile
	kindFuncDef
)

type openBlock struct {
	kind blockKind
	name string // only meaningful for kindFuncDef
}

// Structure runs C3: a linear scan over the flat instruction stream,
// grouping instructions into named function bodies and collecting
// imports, per spec.md §4.3.
func Structure(instrs []instr.Instruction) (*Module, error) {
	mod := New()
	var (
		blocks  []openBlock
		current string
		body    []instr.Instruction
	)

	for _, in := range instrs {
		switch in.Op {
		case instr.OpImport:
			mod.Imports = append(mod.Imports, in.Name)

		case instr.OpFunctionDeclaration:
			blocks = append(blocks, openBlock{kind: kindFuncDef, name: in.Name})
			current = in.Name
			body = nil

		case instr.OpIf:
			blocks = append(blocks, openBlock{kind: kindIf})
			body = append(body, in)

		case instr.OpWhile:
			blocks = append(blocks, openBlock{kind: kindWhile})
			body = append(body, in)

		case instr.OpElse:
			if len(blocks) == 0 || blocks[len(blocks)-1].kind != kindIf {
				return nil, Error{in.Loc, "else without a matching if"}
			}
			blocks = append(blocks, openBlock{kind: kindElse})
			body = append(body, in)

		case instr.OpEnd:
			if len(blocks) == 0 {
				return nil, Error{in.Loc, "end without a matching opener"}
			}
			top := blocks[len(blocks)-1]
			blocks = blocks[:len(blocks)-1]
			switch top.kind {
			case kindFuncDef:
				mod.Functions[current] = body
				current, body = "", nil
			case kindElse:
				if len(blocks) == 0 || blocks[len(blocks)-1].kind != kindIf {
					return nil, Error{in.Loc, "else without a matching if"}
				}
				blocks = blocks[:len(blocks)-1]
				body = append(body, in)
			default: // kindIf, kindWhile
				body = append(body, in)
			}

		default:
			body = append(body, in)
		}
	}

	if len(blocks) > 0 {
		return nil, Error{Message: "unclosed block or function at end of input"}
	}

	return mod, nil
}

// blockEntry is a (index, kind) pair on the block resolver's work stack.
type blockEntry struct {
	index int
	kind  blockKind
}

// ResolveBlocks runs C5 over a single function body, patching every
// If/Else/While/End with its resolved jump Target, per spec.md §4.5's
// table. It mutates body in place and also returns it.
func ResolveBlocks(body []instr.Instruction) ([]instr.Instruction, error) {
	var stack []blockEntry

	for i := range body {
		switch body[i].Op {
		case instr.OpIf:
			stack = append(stack, blockEntry{i, kindIf})

		case instr.OpWhile:
			stack = append(stack, blockEntry{i, kindWhile})

		case instr.OpElse:
			if len(stack) == 0 || stack[len(stack)-1].kind != kindIf {
				return nil, Error{body[i].Loc, "else without a matching if"}
			}
			k := stack[len(stack)-1].index
			body[k] = body[k].WithTarget(i + 1)
			stack[len(stack)-1] = blockEntry{i, kindElse}

		case instr.OpEnd:
			if len(stack) == 0 {
				return nil, Error{body[i].Loc, "end without a matching opener"}
			}
			top := stack[len(stack)-1]
			switch top.kind {
			case kindIf:
				body[top.index] = body[top.index].WithTarget(i)
				body[i] = body[i].WithTarget(i + 1)
				stack = stack[:len(stack)-1]
			case kindElse:
				body[top.index] = body[top.index].WithTarget(i)
				body[i] = body[i].WithTarget(i + 1)
				stack = stack[:len(stack)-1]
			case kindWhile:
				body[top.index] = body[top.index].WithTarget(i + 1)
				body[i] = body[i].WithTarget(top.index)
				stack = stack[:len(stack)-1]
			}
		}
	}

	if len(stack) > 0 {
		return nil, Error{Message: "unclosed block at end of function"}
	}

	return body, nil
}
