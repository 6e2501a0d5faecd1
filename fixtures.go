package main

import (
	"os"
	"path/filepath"

	"golang.org/x/net/context"
	"golang.org/x/sync/errgroup"

	"github.com/phronima-lang/phronima/internal/logio"
)

// fixturesDir is where rec mode looks for *.phron sources to recompile.
const fixturesDir = "tests"

// runRec implements rec mode: every "*.phron" file directly under
// fixturesDir is recompiled to its sibling ".bf" file, the same transform
// com performs on a single file, fanned out across an errgroup the same
// way Link fans out its transitive import fetches. One fixture's failure
// cancels the group's shared context so the rest don't keep working past
// the first fatal error.
func runRec(ctx context.Context, log *logio.Logger, trace bool) error {
	entries, err := os.ReadDir(fixturesDir)
	if err != nil {
		return err
	}

	eg, egCtx := errgroup.WithContext(ctx)
	for _, ent := range entries {
		if ent.IsDir() || filepath.Ext(ent.Name()) != ".phron" {
			continue
		}
		path := filepath.Join(fixturesDir, ent.Name())
		eg.Go(func() error {
			if err := runCom(egCtx, log, path, trace); err != nil {
				return err
			}
			if log != nil {
				log.Printf("rec", "%v -> %v", path, path[:len(path)-len(".phron")]+".bf")
			}
			return nil
		})
	}
	return eg.Wait()
}
