package module

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phronima-lang/phronima/internal/instr"
	"github.com/phronima-lang/phronima/internal/token"
)

func at(row int) token.Location { return token.Location{Filepath: "t", Row: row, Col: 1} }

func TestStructure_SimpleFunction(t *testing.T) {
	instrs := []instr.Instruction{
		instr.FunctionDeclaration(at(1), "main"),
		instr.Push(at(2), 34),
		instr.Push(at(2), 43),
		instr.Simple(at(2), instr.OpPlus),
		instr.Simple(at(2), instr.OpNumOut),
		instr.Block(at(3), instr.OpEnd),
	}
	mod, err := Structure(instrs)
	require.NoError(t, err)
	require.Contains(t, mod.Functions, "main")
	assert.Len(t, mod.Functions["main"], 4)
}

func TestStructure_ImportsCollected(t *testing.T) {
	instrs := []instr.Instruction{
		instr.Import(at(1), "lib.phron"),
		instr.FunctionDeclaration(at(2), "main"),
		instr.Block(at(3), instr.OpEnd),
	}
	mod, err := Structure(instrs)
	require.NoError(t, err)
	assert.Equal(t, []string{"lib.phron"}, mod.Imports)
}

func TestStructure_ElseRequiresMatchingIf(t *testing.T) {
	instrs := []instr.Instruction{
		instr.FunctionDeclaration(at(1), "main"),
		instr.Block(at(2), instr.OpWhile),
		instr.Block(at(2), instr.OpElse),
		instr.Block(at(3), instr.OpEnd),
		instr.Block(at(3), instr.OpEnd),
	}
	_, err := Structure(instrs)
	require.Error(t, err)
}

func TestStructure_UnclosedBlockAtEOF(t *testing.T) {
	instrs := []instr.Instruction{
		instr.FunctionDeclaration(at(1), "main"),
		instr.Block(at(2), instr.OpIf),
	}
	_, err := Structure(instrs)
	require.Error(t, err)
}

func TestStructure_EndWithoutOpener(t *testing.T) {
	instrs := []instr.Instruction{
		instr.FunctionDeclaration(at(1), "main"),
		instr.Block(at(2), instr.OpEnd),
		instr.Block(at(3), instr.OpEnd),
	}
	_, err := Structure(instrs)
	require.Error(t, err)
}

func TestMerge_LastWriterWins(t *testing.T) {
	a := New()
	a.Functions["f"] = []instr.Instruction{instr.Push(at(1), 1)}
	b := New()
	b.Functions["f"] = []instr.Instruction{instr.Push(at(1), 2)}
	a.Merge(b)
	require.Len(t, a.Functions["f"], 1)
	assert.Equal(t, byte(2), a.Functions["f"][0].Byte)
}

// resolveTargets runs ResolveBlocks and returns just the Target of each
// block instruction, keyed by its index, for compact assertions against
// spec.md §4.5's table.
func resolveTargets(t *testing.T, body []instr.Instruction) map[int]int {
	t.Helper()
	resolved, err := ResolveBlocks(body)
	require.NoError(t, err)
	targets := map[int]int{}
	for i, in := range resolved {
		if in.Op.IsBlock() {
			targets[i] = in.Target
		}
	}
	return targets
}

func TestResolveBlocks_IfEnd(t *testing.T) {
	// 0:if 1:push 2:end
	body := []instr.Instruction{
		instr.Block(at(1), instr.OpIf),
		instr.Push(at(1), 1),
		instr.Block(at(1), instr.OpEnd),
	}
	targets := resolveTargets(t, body)
	assert.Equal(t, 2, targets[0]) // If jumps to its End on false
	assert.Equal(t, 3, targets[2]) // End falls through to i+1
}

func TestResolveBlocks_IfElseEnd(t *testing.T) {
	// 0:if 1:push 2:else 3:push 4:end
	body := []instr.Instruction{
		instr.Block(at(1), instr.OpIf),
		instr.Push(at(1), 1),
		instr.Block(at(1), instr.OpElse),
		instr.Push(at(1), 2),
		instr.Block(at(1), instr.OpEnd),
	}
	targets := resolveTargets(t, body)
	assert.Equal(t, 3, targets[0]) // If jumps past its Else on false
	assert.Equal(t, 4, targets[2]) // Else jumps to the End on fallthrough
	assert.Equal(t, 5, targets[4]) // End falls through to i+1
}

func TestResolveBlocks_While(t *testing.T) {
	// 0:while 1:push 2:end
	body := []instr.Instruction{
		instr.Block(at(1), instr.OpWhile),
		instr.Push(at(1), 1),
		instr.Block(at(1), instr.OpEnd),
	}
	targets := resolveTargets(t, body)
	assert.Equal(t, 3, targets[0]) // While jumps past its End on false
	assert.Equal(t, 0, targets[2]) // End jumps back to While
}

func TestResolveBlocks_EverTargetWithinBounds(t *testing.T) {
	body := []instr.Instruction{
		instr.Block(at(1), instr.OpIf),
		instr.Block(at(1), instr.OpElse),
		instr.Block(at(1), instr.OpEnd),
	}
	resolved, err := ResolveBlocks(body)
	require.NoError(t, err)
	for _, in := range resolved {
		if in.Op.IsBlock() {
			assert.LessOrEqual(t, in.Target, len(resolved))
		}
	}
}

func TestResolveBlocks_ElseWithoutIf(t *testing.T) {
	body := []instr.Instruction{
		instr.Block(at(1), instr.OpWhile),
		instr.Block(at(1), instr.OpElse),
		instr.Block(at(1), instr.OpEnd),
	}
	_, err := ResolveBlocks(body)
	require.Error(t, err)
}

func TestResolveBlocks_UnclosedAtEnd(t *testing.T) {
	body := []instr.Instruction{instr.Block(at(1), instr.OpWhile)}
	_, err := ResolveBlocks(body)
	require.Error(t, err)
}
