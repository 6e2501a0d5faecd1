// Package sim implements C6: a direct simulator that executes a linked,
// block-resolved module's "main" function against the same fixed memory
// and operand stack the Brainfuck backend targets.
//
// The step/run split and the options-pattern constructor are adapted from
// the teacher VM's internals.go and api.go: Sim.run(ctx) loops calling
// Sim.step() until either the program falls off the end of "main" or ctx
// is cancelled. A fatal runtime condition is returned from step as an
// Error and ends the loop; Run wraps the whole execution in
// panicerr.Recover so that an unexpected panic also comes back as an
// error.
package sim

import (
	"fmt"
	"io"

	"golang.org/x/net/context"

	"github.com/phronima-lang/phronima/internal/instr"
	"github.com/phronima-lang/phronima/internal/logio"
	"github.com/phronima-lang/phronima/internal/mem"
	"github.com/phronima-lang/phronima/internal/module"
	"github.com/phronima-lang/phronima/internal/panicerr"
	"github.com/phronima-lang/phronima/internal/runeio"
	"github.com/phronima-lang/phronima/internal/token"
)

// Error reports a fatal condition encountered while simulating: a missing
// "main", an undefined function call, an operand-stack overflow or
// underflow, a failed character write, or an unhandled instruction.
type Error struct {
	token.Location
	Message string
	Err     error
}

func (e Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%v %v: %v", e.Location, e.Message, e.Err)
	}
	return fmt.Sprintf("%v %v", e.Location, e.Message)
}

func (e Error) Unwrap() error { return e.Err }

type frame struct {
	name string
	body []instr.Instruction
	pc   int
}

// Sim is a single-threaded simulator over one linked Module.
type Sim struct {
	mod        *module.Module
	stack      mem.Stack
	bytes      mem.Bytes
	out        io.Writer
	logfn      func(mess string, args ...interface{})
	renderANSI bool

	calls []frame
}

// Option configures a Sim at construction time.
type Option interface{ apply(*Sim) }

type optionFunc func(*Sim)

func (f optionFunc) apply(s *Sim) { f(s) }

// WithOutput directs CharOut/NumOut output to w instead of the
// default io.Discard.
func WithOutput(w io.Writer) Option {
	return optionFunc(func(s *Sim) { s.out = w })
}

// WithLogger attaches a logio.Logger for step tracing, matching the
// teacher VM's step() trace line (source location, function name,
// instruction, stack contents).
func WithLogger(log *logio.Logger) Option {
	return optionFunc(func(s *Sim) {
		if log != nil {
			s.logfn = log.Leveledf("trace")
		}
	})
}

// WithANSIRendering renders CharOut bytes through runeio.WriteANSIRune
// instead of writing them raw, keeping C1 control bytes legible on a
// terminal that also has step trace lines interleaved into it.
func WithANSIRendering() Option {
	return optionFunc(func(s *Sim) { s.renderANSI = true })
}

// New constructs a Sim over mod, ready to Run starting at "main".
func New(mod *module.Module, opts ...Option) *Sim {
	s := &Sim{mod: mod, out: io.Discard}
	for _, opt := range opts {
		opt.apply(s)
	}
	return s
}

// Run executes "main" to completion: either it falls off the end of its
// body with an empty call stack, or a fatal Error is raised. Panics
// during execution are recovered into an error return, following the
// teacher's panicerr.Recover boundary.
func (s *Sim) Run(ctx context.Context) error {
	return panicerr.Recover("sim", func() error {
		return s.run(ctx)
	})
}

func (s *Sim) run(ctx context.Context) error {
	body, ok := s.mod.Functions["main"]
	if !ok {
		return Error{Message: `no "main" function defined`}
	}
	s.calls = []frame{{name: "main", body: body}}

	for len(s.calls) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.step(); err != nil {
			return err
		}
	}
	return nil
}

// step executes the single next instruction in the top call frame,
// advancing (or replacing) its program counter. It pops the frame and
// returns to the caller's pc when the body is exhausted.
func (s *Sim) step() error {
	top := &s.calls[len(s.calls)-1]
	if top.pc >= len(top.body) {
		s.calls = s.calls[:len(s.calls)-1]
		return nil
	}
	in := top.body[top.pc]
	top.pc++

	if s.logfn != nil {
		s.logfn("%v %v.%v stack=%v", in.Loc, top.name, in.Op, s.stackSnapshot())
	}

	switch in.Op {
	case instr.OpPush:
		return s.push(in, in.Byte)

	case instr.OpPop:
		_, err := s.pop(in)
		return err

	case instr.OpPlus:
		return s.binOp(in, func(a, b byte) byte { return a + b })
	case instr.OpMinus:
		return s.binOp(in, func(a, b byte) byte { return a - b })
	case instr.OpMult:
		return s.binOp(in, func(a, b byte) byte { return a * b })
	case instr.OpLessThan:
		return s.binOp(in, func(a, b byte) byte { return boolByte(a < b) })
	case instr.OpGreaterThan:
		return s.binOp(in, func(a, b byte) byte { return boolByte(a > b) })
	case instr.OpEquals:
		return s.binOp(in, func(a, b byte) byte { return boolByte(a == b) })

	case instr.OpNot:
		v, err := s.pop(in)
		if err != nil {
			return err
		}
		return s.push(in, 1-v)

	case instr.OpNumOut:
		v, err := s.pop(in)
		if err != nil {
			return err
		}
		fmt.Fprintf(s.out, "%d", v)
		return nil

	case instr.OpCharOut:
		v, err := s.pop(in)
		if err != nil {
			return err
		}
		if s.renderANSI {
			if _, err := runeio.WriteANSIRune(s.out, rune(v)); err != nil {
				return Error{Location: in.Loc, Message: "char output failed", Err: err}
			}
		} else {
			s.out.Write([]byte{v})
		}
		return nil

	case instr.OpMem:
		return s.push(in, 0)

	case instr.OpInitMem:
		return nil

	case instr.OpWrite:
		v, err := s.pop(in)
		if err != nil {
			return err
		}
		addr, err := s.pop(in)
		if err != nil {
			return err
		}
		s.bytes.Store(addr, v)
		return nil

	case instr.OpRead:
		addr, err := s.pop(in)
		if err != nil {
			return err
		}
		return s.push(in, s.bytes.Load(addr))

	case instr.OpSwap:
		a, err := s.pop(in)
		if err != nil {
			return err
		}
		b, err := s.pop(in)
		if err != nil {
			return err
		}
		if err := s.push(in, a); err != nil {
			return err
		}
		return s.push(in, b)

	case instr.OpDup:
		v, err := s.peek(in)
		if err != nil {
			return err
		}
		return s.push(in, v)

	case instr.OpTwoDup:
		a, err := s.stack.At(0)
		if err != nil {
			return s.fail(in, "? on a stack shorter than 2", err)
		}
		b, err := s.stack.At(1)
		if err != nil {
			return s.fail(in, "? on a stack shorter than 2", err)
		}
		if err := s.push(in, b); err != nil {
			return err
		}
		return s.push(in, a)

	case instr.OpGetStackHeight:
		return s.push(in, byte(s.stack.Len()))

	case instr.OpIf:
		v, err := s.peek(in)
		if err != nil {
			return err
		}
		if v == 0 {
			top.pc = in.Target
		}
		return nil

	case instr.OpElse:
		top.pc = in.Target
		return nil

	case instr.OpEnd:
		top.pc = in.Target
		return nil

	case instr.OpWhile:
		v, err := s.peek(in)
		if err != nil {
			return err
		}
		if v == 0 {
			top.pc = in.Target
		}
		return nil

	case instr.OpStringLiteral:
		if err := s.push(in, 0); err != nil {
			return err
		}
		for i := len(in.String) - 1; i >= 0; i-- {
			if err := s.push(in, in.String[i]); err != nil {
				return err
			}
		}
		return nil

	case instr.OpFunctionCall:
		callee, ok := s.mod.Functions[in.Name]
		if !ok {
			return s.fail(in, fmt.Sprintf("call to undefined function %q", in.Name), nil)
		}
		s.calls = append(s.calls, frame{name: in.Name, body: callee})
		return nil

	default:
		return s.fail(in, fmt.Sprintf("unhandled instruction %v", in.Op), nil)
	}
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}

func (s *Sim) push(in instr.Instruction, v byte) error {
	if err := s.stack.Push(v); err != nil {
		return s.fail(in, "stack overflow", err)
	}
	return nil
}

func (s *Sim) pop(in instr.Instruction) (byte, error) {
	v, err := s.stack.Pop()
	if err != nil {
		return 0, s.fail(in, "stack underflow", err)
	}
	return v, nil
}

func (s *Sim) peek(in instr.Instruction) (byte, error) {
	v, err := s.stack.Peek()
	if err != nil {
		return 0, s.fail(in, "stack underflow", err)
	}
	return v, nil
}

// binOp pops b then a (a having been pushed first), applies op, and
// pushes the result: the same pop-order the Minus instruction's
// subtraction direction depends on.
func (s *Sim) binOp(in instr.Instruction, op func(a, b byte) byte) error {
	b, err := s.pop(in)
	if err != nil {
		return err
	}
	a, err := s.pop(in)
	if err != nil {
		return err
	}
	return s.push(in, op(a, b))
}

func (s *Sim) fail(in instr.Instruction, msg string, err error) error {
	return Error{Location: in.Loc, Message: msg, Err: err}
}

func (s *Sim) stackSnapshot() []byte {
	n := s.stack.Len()
	out := make([]byte, n)
	for i := uint(0); i < n; i++ {
		v, _ := s.stack.At(n - 1 - i)
		out[i] = v
	}
	return out
}
