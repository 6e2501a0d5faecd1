// Package bfgen implements C7: compiling a linked, block-resolved module
// into Brainfuck text.
//
// The discipline is geometric rather than value-based, per spec.md §4.7:
// the generator tracks no compile-time stack *values*, only a running
// stack-depth counter used to compute the fixed navigation distance
// between the current top of the operand stack and the reserved low
// memory region (needed by Write/Read/InitMem). Correctness of every
// other fragment rests purely on each fragment's own net head
// displacement matching the instruction's net stack-depth change — the
// same net-displacement law the test suite checks fragment-by-fragment.
//
// Control flow mirrors Sim.run's call-stack mechanism: FunctionCall
// inlines by traversal (push a frame, switch the instruction stream being
// walked) rather than emitting anything of its own, and falling off the
// end of a non-main function pops back to its caller, exactly as
// Sim.step does.
package bfgen

import (
	"fmt"
	"strings"

	"github.com/phronima-lang/phronima/internal/instr"
	"github.com/phronima-lang/phronima/internal/logio"
	"github.com/phronima-lang/phronima/internal/module"
	"github.com/phronima-lang/phronima/internal/token"
)

// Tape geometry. The reserved low region below the operand stack holds
// the 256-cell addressable memory: each addressable byte owns a 3-wide
// slot (index lane, carry lane, data cell), with two always-zero landing
// cells below slot 0 and a sentinel cell between the last slot and the
// stack. The program prologue marches the head from tape cell 0 up to
// stackBase, the empty stack's rest position; a stack of depth d rests
// its head at absolute cell stackBase+d. The prologue march is the same
// move the original compiler opens every program with, widened to cover
// the slot lanes.
const (
	memCells   = 256
	slotStride = 3 // index lane, carry lane, data cell
	memBase    = 2 // two always-zero landing cells below slot 0

	sentinelCell = memBase + memCells*slotStride
	stackBase    = sentinelCell + 1
)

// sentinelValue is the constant InitMem plants in the sentinel cell,
// marking the boundary between the memory slots and the operand stack.
const sentinelValue = 82

// NotImplemented reports codegen requested for an instruction this
// generator deliberately does not support: LessThan, GreaterThan and
// Equals, which compare stack values, and GetStackHeight. None of the four
// has a fragment.
type NotImplemented struct {
	token.Location
	Op string
}

func (e NotImplemented) Error() string {
	return fmt.Sprintf("%v codegen for %v is not implemented", e.Location, e.Op)
}

// Error reports a fatal condition found before or during code generation:
// a missing "main", or a call to an undefined function.
type Error struct {
	token.Location
	Message string
}

func (e Error) Error() string { return fmt.Sprintf("%v %v", e.Location, e.Message) }

// Option configures a Generator at construction time.
type Option interface{ apply(*Generator) }

type optionFunc func(*Generator)

func (f optionFunc) apply(g *Generator) { f(g) }

// WithLogger attaches a logio.Logger for tracing emitted fragments and
// warning on a repeated InitMem.
func WithLogger(log *logio.Logger) Option {
	return optionFunc(func(g *Generator) {
		if log != nil {
			g.logfn = log.Leveledf("codegen")
		}
	})
}

type frame struct {
	name string
	body []instr.Instruction
	pc   int
}

// Generator implements C7 over one linked, block-resolved Module.
type Generator struct {
	mod   *module.Module
	sb    strings.Builder
	depth int
	logfn func(mess string, args ...interface{})

	memInitialized bool
	calls          []frame
}

// New constructs a Generator over mod, ready to Generate from "main".
func New(mod *module.Module, opts ...Option) *Generator {
	g := &Generator{mod: mod}
	for _, opt := range opts {
		opt.apply(g)
	}
	return g
}

// Generate runs C7: it inlines every FunctionCall by traversal, exactly
// as Sim.run's call stack does, and returns the concatenated Brainfuck
// text for the whole program.
func (g *Generator) Generate() (string, error) {
	body, ok := g.mod.Functions["main"]
	if !ok {
		return "", Error{Message: `no "main" function defined`}
	}
	g.calls = []frame{{name: "main", body: body}}

	// Prologue: march from tape cell 0 past the memory slots and the
	// sentinel to the empty stack's rest position. Every fragment's
	// coordinate system hangs off this origin.
	g.write(strings.Repeat(">", stackBase))

	for len(g.calls) > 0 {
		top := &g.calls[len(g.calls)-1]
		if top.pc >= len(top.body) {
			g.calls = g.calls[:len(g.calls)-1]
			continue
		}
		in := top.body[top.pc]
		top.pc++

		if err := g.emit(top.body, top.pc-1, in); err != nil {
			return "", err
		}
	}
	return g.sb.String(), nil
}

func (g *Generator) write(frag string) { g.sb.WriteString(frag) }

// emit appends the fragment for a single instruction and advances the
// compile-time depth counter by its net stack-depth change. body is the
// current frame's instruction stream and i is in's own index within it,
// needed to distinguish the two flavors of End (closing a While versus
// closing an If/Else) by whether its resolved Target jumps backward.
func (g *Generator) emit(body []instr.Instruction, i int, in instr.Instruction) error {
	if g.logfn != nil {
		g.logfn("%v %v depth=%v", in.Loc, in.Op, g.depth)
	}

	switch in.Op {
	case instr.OpPush:
		g.write(">" + strings.Repeat("+", int(in.Byte)))
		g.depth++

	case instr.OpPop:
		g.write("[-]<")
		g.depth--

	case instr.OpPlus:
		g.write("[<+>-]<")
		g.depth--
	case instr.OpMinus:
		g.write("[-<->]<")
		g.depth--
	case instr.OpMult:
		g.write("<[->>+<<]>[->[->+<<<+>>]>[-<+>]<<]>[-]<<")
		g.depth--

	case instr.OpCharOut:
		g.write(".[-]<")
		g.depth--
	case instr.OpNumOut:
		g.write(numOutCore() + "[-]<")
		g.depth--

	case instr.OpMem:
		g.write(">")
		g.depth++

	case instr.OpInitMem:
		if g.memInitialized {
			if g.logfn != nil {
				g.logfn("%v initmem already emitted once; ignoring repeat", in.Loc)
			}
			return nil
		}
		g.memInitialized = true
		// The sentinel cell sits one below the empty stack's rest
		// position, so it is depth+1 cells down from the current top.
		nav, back := strings.Repeat("<", g.depth+1), strings.Repeat(">", g.depth+1)
		g.write(nav + strings.Repeat("+", sentinelValue) + back)

	case instr.OpWrite:
		g.warnUninitializedMem(in)
		g.write(writeIdiom(g.depth))
		g.depth -= 2
	case instr.OpRead:
		g.warnUninitializedMem(in)
		g.write(readIdiom(g.depth))

	case instr.OpSwap:
		g.write("<[->>+<<]>[-<+>]>[-<+>]<")
	case instr.OpDup:
		g.write("[->+>+<<]>>[-<<+>>]<")
		g.depth++
	case instr.OpTwoDup:
		g.write("<[->>+>>+<<<<]>[->>+>>+<<<<]>>>[-<<<<+>>>>]>[-<<<<+>>>>]<<")
		g.depth += 2
	case instr.OpNot:
		g.write(">[-]<-[>-<-]>[<+>-]<")

	case instr.OpIf:
		g.write("[->+>+<<]>>[-<<+>>]<[")
		g.depth++ // the duplicate consumed by this block's matching End

	case instr.OpWhile:
		g.write("[")

	case instr.OpEnd:
		// A While's End jumps backward to its opener; an If/Else End's
		// target is always the instruction after itself. The direction
		// of the jump is the discriminator, not the targeted opcode: an
		// if-End's forward target may happen to index a following While.
		if in.Target < i && body[in.Target].Op == instr.OpWhile {
			g.write("]")
		} else {
			g.write("[-]]<")
			g.depth--
		}

	case instr.OpElse:
		g.write("[-]]<")
		g.write("[->+>+<<]>>[-<<+>>]<")
		g.write(">[-]<-[>-<-]>[<+>-]<")
		g.write("[")

	case instr.OpLessThan, instr.OpGreaterThan, instr.OpEquals, instr.OpGetStackHeight:
		return NotImplemented{Location: in.Loc, Op: in.Op.String()}

	case instr.OpStringLiteral:
		g.write(">")
		g.depth++
		for i := len(in.String) - 1; i >= 0; i-- {
			g.write(">" + strings.Repeat("+", int(in.String[i])))
			g.depth++
		}

	case instr.OpFunctionCall:
		callee, ok := g.mod.Functions[in.Name]
		if !ok {
			return Error{Location: in.Loc, Message: fmt.Sprintf("call to undefined function %q", in.Name)}
		}
		g.calls = append(g.calls, frame{name: in.Name, body: callee})

	case instr.OpFunctionDeclaration, instr.OpImport:
		return Error{Location: in.Loc, Message: fmt.Sprintf("%v is unreachable at codegen", in.Op)}

	default:
		return Error{Location: in.Loc, Message: fmt.Sprintf("unhandled instruction %v", in.Op)}
	}
	return nil
}

// warnUninitializedMem logs when a Write or Read compiles before any
// InitMem has been emitted: the generated program then navigates a
// memory region nothing ever marked out, which is undefined behavior at
// runtime. A warning rather than an error, since only the running
// program can tell whether it matters.
func (g *Generator) warnUninitializedMem(in instr.Instruction) {
	if !g.memInitialized && g.logfn != nil {
		g.logfn("%v %v before initmem; memory behavior is undefined", in.Loc, in.Op)
	}
}

// writeIdiom implements Write: starting from "top = byte, below = addr",
// it delivers byte into the memory slot addr selects and shrinks the
// stack by two. depth is the stack depth at the point Write executes
// (the byte's own position); offsets below are relative to the byte
// cell, whose absolute position is stackBase+depth.
//
// The address is only known at runtime, so the fragment walks it down:
// byte and addr are first ferried into slot 0's carry and index cells,
// then a travel loop steps the pair one slot right per countdown tick,
// dropping a breadcrumb into each vacated carry cell. When the countdown
// hits zero the pair has arrived at slot addr: the byte overwrites the
// slot's data cell, and a second loop walks the breadcrumb trail back
// down, clearing it, to land on the first always-zero cell below slot 0.
// The two loops move the head by runtime-dependent amounts; each ends at
// a statically known cell, recorded with warp.
func writeIdiom(depth int) string {
	head := stackBase + depth
	index0 := memBase - head
	carry0 := memBase + 1 - head
	landing := -head

	c := &bfCursor{}
	c.loopAt(0, func() { // ferry byte into slot 0's carry cell
		c.add(-1)
		c.to(carry0)
		c.add(1)
	})
	c.loopAt(-1, func() { // ferry addr into slot 0's index cell
		c.add(-1)
		c.to(index0)
		c.add(1)
	})
	c.to(index0)
	// travel: one slot right per tick, breadcrumb in each vacated carry
	c.raw("[->[->>>+<<<]+<[->>>+<<<]>>>]")
	// arrived: overwrite the slot's data cell with the byte
	c.raw(">>[-]<[->+<]")
	// walk the breadcrumb trail back down to the landing cell
	c.raw("<<<[[-]<<<]")
	c.warp(landing)
	c.to(-2)
	return c.sb.String()
}

// readIdiom implements Read: it replaces top (addr) in place with a
// non-destructive copy of the selected slot's data cell. depth is the
// stack depth at the point Read executes (addr's own position). Same
// travel scheme as writeIdiom, with only the address making the outward
// trip: on arrival the slot's data cell is copied into its carry cell
// (the index cell, zero on arrival, serving as the restore scratch), and
// the copy rides the breadcrumb trail back down to slot 0, from where it
// is ferried up into addr's old cell.
func readIdiom(depth int) string {
	head := stackBase + depth
	index0 := memBase - head
	carry0 := memBase + 1 - head
	landing := -head

	c := &bfCursor{}
	c.loopAt(0, func() { // ferry addr into slot 0's index cell
		c.add(-1)
		c.to(index0)
		c.add(1)
	})
	c.to(index0)
	// travel: breadcrumb in each slot's carry cell as it is passed
	c.raw("[->+<[->>>+<<<]>>>]")
	// copy the slot's data cell into its carry cell, restoring via index
	c.raw(">>[-<+<+>>]<<[->>+<<]>")
	// carry the copy back down the breadcrumb trail
	c.raw("<<<[[-]>>>[-<<<+>>>]<<<<<<]")
	c.warp(landing)
	c.loopAt(carry0, func() { // ferry the copy up into addr's old cell
		c.add(-1)
		c.to(0)
		c.add(1)
	})
	c.to(0)
	return c.sb.String()
}

// numOutCore is the fixed 8-bit decimal-print idiom. Net head displacement
// is zero; the caller appends the standard "[-]<" cleanup, matching
// CharOut's own print-then-drop shape. See numout.go for the construction.
func numOutCore() string {
	return buildNumOut()
}
