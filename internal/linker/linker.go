// Package linker implements C4: resolving a module's import queue into a
// single merged module.
//
// The actual file I/O is an external collaborator (spec.md §1, §6): the
// linker only depends on the FileReader interface below, never on the
// filesystem directly. Within a single resolution round the linker fans
// imports out across an errgroup, following the concurrency pattern
// scripts/gen_vm_expects.go uses in the teacher repo for its own
// goroutine-pair pipeline; results are still merged back in queue order,
// so the last-writer-wins policy behaves exactly as a sequential linker
// would.
package linker

import (
	"fmt"
	"io"

	"golang.org/x/net/context"
	"golang.org/x/sync/errgroup"

	"github.com/phronima-lang/phronima/internal/lexer"
	"github.com/phronima-lang/phronima/internal/module"
	"github.com/phronima-lang/phronima/internal/parser"
)

// FileReader opens an import path for reading. The caller owns closing
// the returned reader.
type FileReader interface {
	Open(path string) (io.ReadCloser, error)
}

// Error reports a failure to load or parse an imported file.
type Error struct {
	Path string
	Err  error
}

func (e Error) Error() string { return fmt.Sprintf("import %v: %v", e.Path, e.Err) }
func (e Error) Unwrap() error { return e.Err }

// Link resolves mod's import queue transitively, merging every imported
// module's functions in, and returns the fully linked module (with an
// empty import queue). Re-importing an already-merged path is a silent
// no-op: the design does not detect cycles but does deduplicate by path,
// per spec.md §9's recommendation.
func Link(ctx context.Context, fr FileReader, mod *module.Module) (*module.Module, error) {
	seen := map[string]bool{}
	pending := append([]string(nil), mod.Imports...)
	mod.Imports = nil

	for len(pending) > 0 {
		var todo []string
		for _, path := range pending {
			if seen[path] {
				continue
			}
			seen[path] = true
			todo = append(todo, path)
		}
		pending = nil
		if len(todo) == 0 {
			break
		}

		loaded := make([]*module.Module, len(todo))
		eg, egCtx := errgroup.WithContext(ctx)
		for i, path := range todo {
			i, path := i, path
			eg.Go(func() error {
				if err := egCtx.Err(); err != nil {
					return err
				}
				m, err := loadOne(fr, path)
				if err != nil {
					return Error{Path: path, Err: err}
				}
				loaded[i] = m
				return nil
			})
		}
		if err := eg.Wait(); err != nil {
			return nil, err
		}

		for _, m := range loaded {
			mod.Merge(m)
		}
		// Merge moves each imported module's own imports onto mod's
		// queue; drain them into pending so the linked module's queue
		// ends empty.
		pending = append(pending, mod.Imports...)
		mod.Imports = nil
	}

	return mod, nil
}

func loadOne(fr FileReader, path string) (*module.Module, error) {
	r, err := fr.Open(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	toks, err := lexer.Lex(path, r)
	if err != nil {
		return nil, err
	}
	instrs, err := parser.Parse(toks)
	if err != nil {
		return nil, err
	}
	return module.Structure(instrs)
}
