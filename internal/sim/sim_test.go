package sim

import (
	"strings"
	"testing"

	"golang.org/x/net/context"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phronima-lang/phronima/internal/instr"
	"github.com/phronima-lang/phronima/internal/lexer"
	"github.com/phronima-lang/phronima/internal/module"
	"github.com/phronima-lang/phronima/internal/parser"
	"github.com/phronima-lang/phronima/internal/token"
)

// simTest compiles src through lex/parse/structure/resolve and runs it,
// following the teacher's fluent vmTestCase pattern scaled down to Sim's
// narrower surface: no options beyond output capture are exercised here
// since Sim has no persistent state worth asserting on beyond stdout.
type simTest struct {
	name    string
	src     string
	want    string
	wantErr bool
}

func (st simTest) run(t *testing.T) {
	mod := compile(t, st.src)
	var out strings.Builder
	s := New(mod, WithOutput(&out))
	err := s.Run(context.Background())
	if st.wantErr {
		require.Error(t, err)
		return
	}
	require.NoError(t, err)
	assert.Equal(t, st.want, out.String())
}

func compile(t *testing.T, src string) *module.Module {
	t.Helper()
	toks, err := lexer.Lex("test.phron", strings.NewReader(src))
	require.NoError(t, err)
	instrs, err := parser.Parse(toks)
	require.NoError(t, err)
	mod, err := module.Structure(instrs)
	require.NoError(t, err)
	for name, body := range mod.Functions {
		resolved, err := module.ResolveBlocks(body)
		require.NoError(t, err)
		mod.Functions[name] = resolved
	}
	return mod
}

// TestSim_EndToEndScenarios reproduces spec.md §8's end-to-end scenarios
// verbatim.
func TestSim_EndToEndScenarios(t *testing.T) {
	cases := []simTest{
		{name: "addition then numout", src: "fn main 34 43 + numout end", want: "77"},
		{name: "two character writes", src: "fn main 72 chout 105 chout end", want: "Hi"},
		{name: "dup then multiply", src: "fn main 5 dup * numout end", want: "25"},
		{name: "if true branch", src: "fn main 1 if 65 chout end end", want: "A"},
		{name: "if false branch via else", src: "fn main 0 if 65 chout else 66 chout end end", want: "B"},
		{name: "while countdown", src: "fn main 3 while dup numout 1 - end pop end", want: "321"},
	}
	for _, tc := range cases {
		t.Run(tc.name, tc.run)
	}
}

func TestSim_FunctionCall(t *testing.T) {
	simTest{
		name: "call a helper function",
		src:  "fn square dup * end fn main 6 square numout end",
		want: "36",
	}.run(t)
}

func TestSim_StackUnderflowIsAnError(t *testing.T) {
	simTest{
		name:    "pop on empty stack",
		src:     "fn main pop end",
		wantErr: true,
	}.run(t)
}

func TestSim_StackOverflowIsAnError(t *testing.T) {
	var b strings.Builder
	b.WriteString("fn main ")
	for i := 0; i < 29745; i++ {
		b.WriteString("1 ")
	}
	b.WriteString("end")
	simTest{
		name:    "push past capacity",
		src:     b.String(),
		wantErr: true,
	}.run(t)
}

func TestSim_UndefinedFunctionCallIsAnError(t *testing.T) {
	simTest{
		name:    "call to a name with no function",
		src:     "fn main nope end",
		wantErr: true,
	}.run(t)
}

func TestSim_WriteReadRoundTrip(t *testing.T) {
	simTest{
		name: "store then load a byte",
		src:  "fn main 5 10 write 5 read numout end",
		want: "10",
	}.run(t)
}

func TestSim_WriteReadDistinctAddresses(t *testing.T) {
	simTest{
		name: "two addresses hold independent values",
		src:  "fn main 5 10 write 7 3 write 5 read numout 7 read numout end",
		want: "103",
	}.run(t)
}

func TestSim_SwapReordersTopTwo(t *testing.T) {
	simTest{
		name: "swap then subtract",
		src:  "fn main 5 10 swap - numout end",
		want: "5",
	}.run(t)
}

func TestSim_TwoDupDuplicatesTopPair(t *testing.T) {
	simTest{
		name: "twodup then sum all four",
		src:  "fn main 3 4 ? + + + numout end",
		want: "14",
	}.run(t)
}

func TestSim_NotFlipsBooleanByte(t *testing.T) {
	simTest{
		name: "not 0 then not 1",
		src:  "fn main 0 not numout 1 not numout end",
		want: "10",
	}.run(t)
}

func TestSim_StringLiteralPushesBytesThenSentinel(t *testing.T) {
	simTest{
		name: "print a string literal via a while loop",
		src:  `fn main "Hi" while chout end pop end`,
		want: "Hi",
	}.run(t)
}

// TestSim_GetStackHeightPushesDepth builds its module by hand:
// GetStackHeight has no surface keyword, so it cannot be reached through
// the compile helper.
func TestSim_GetStackHeightPushesDepth(t *testing.T) {
	at := token.Location{Filepath: "t", Row: 1, Col: 1}
	mod := module.New()
	mod.Functions["main"] = []instr.Instruction{
		instr.Push(at, 9),
		instr.Push(at, 9),
		instr.Simple(at, instr.OpGetStackHeight),
		instr.Simple(at, instr.OpNumOut),
	}
	var out strings.Builder
	require.NoError(t, New(mod, WithOutput(&out)).Run(context.Background()))
	assert.Equal(t, "2", out.String())
}

func TestSim_NoMainFunctionIsAnError(t *testing.T) {
	simTest{
		name:    "module with no main",
		src:     "fn helper 1 pop end",
		wantErr: true,
	}.run(t)
}

// TestSim_ANSIRenderingKeepsControlBytesLegible checks that
// WithANSIRendering routes CharOut through runeio.WriteANSIRune's 7-bit
// C1 rendering rather than writing the raw byte, which a terminal with
// interleaved --trace lines would otherwise mangle.
func TestSim_ANSIRenderingKeepsControlBytesLegible(t *testing.T) {
	mod := compile(t, "fn main 155 chout end") // 0x9b, a C1 control byte
	var out strings.Builder
	s := New(mod, WithOutput(&out), WithANSIRendering())
	require.NoError(t, s.Run(context.Background()))
	assert.Equal(t, "\x1b\x5b", out.String())
}

func TestSim_ContextCancellationStopsExecution(t *testing.T) {
	mod := compile(t, "fn main 1 while end pop end")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := New(mod).Run(ctx)
	require.Error(t, err)
}
