package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/net/context"

	"github.com/phronima-lang/phronima/internal/bfgen"
	"github.com/phronima-lang/phronima/internal/flushio"
	"github.com/phronima-lang/phronima/internal/lexer"
	"github.com/phronima-lang/phronima/internal/linker"
	"github.com/phronima-lang/phronima/internal/logio"
	"github.com/phronima-lang/phronima/internal/module"
	"github.com/phronima-lang/phronima/internal/panicerr"
	"github.com/phronima-lang/phronima/internal/parser"
	"github.com/phronima-lang/phronima/internal/sim"
)

func main() {
	log := &logio.Logger{}
	log.SetOutput(os.Stderr)

	if len(os.Args) < 2 {
		fatal(log, errors.New("usage: phronima <sim|com|rec> [--trace] [path]"))
	}

	mode, args := os.Args[1], os.Args[2:]
	fs := flag.NewFlagSet(mode, flag.ExitOnError)
	trace := fs.Bool("trace", false, "enable step/codegen trace logging")
	if err := fs.Parse(args); err != nil {
		fatal(log, err)
	}

	ctx := context.Background()
	var err error
	switch mode {
	case "sim":
		path := fs.Arg(0)
		if path == "" {
			fatal(log, errors.New("sim: missing <path>"))
		}
		err = panicerr.Recover("sim", func() error { return runSim(ctx, log, path, *trace) })
	case "com":
		path := fs.Arg(0)
		if path == "" {
			fatal(log, errors.New("com: missing <path>"))
		}
		err = panicerr.Recover("com", func() error { return runCom(ctx, log, path, *trace) })
	case "rec":
		err = panicerr.Recover("rec", func() error { return runRec(ctx, log, *trace) })
	default:
		fatal(log, fmt.Errorf("unknown mode %q", mode))
	}

	if err != nil {
		fatal(log, err)
	}
}

// fatal prints a single-line diagnostic to stderr in the shape spec.md §6
// requires -- "<file>:<row>:<col> <message>" for errors carrying a source
// location, "Application error: <message>" otherwise -- and exits non-zero.
// It deliberately bypasses Logger.Errorf's own "ERROR: " level prefix so
// the emitted line matches that external contract exactly.
func fatal(log *logio.Logger, err error) {
	if isLocatedError(err) {
		log.Printf("", "%v", err)
	} else {
		log.Printf("", "Application error: %v", err)
	}
	os.Exit(1)
}

// isLocatedError reports whether err (or anything it wraps) is one of
// Phronima's own source-carrying error kinds, whose Error() strings already
// begin with "<file>:<row>:<col>".
func isLocatedError(err error) bool {
	var (
		lexErr   lexer.Error
		parseErr parser.Error
		structErr module.Error
		simErr   sim.Error
		genErr   bfgen.Error
		niErr    bfgen.NotImplemented
	)
	return errors.As(err, &lexErr) ||
		errors.As(err, &parseErr) ||
		errors.As(err, &structErr) ||
		errors.As(err, &simErr) ||
		errors.As(err, &genErr) ||
		errors.As(err, &niErr)
}

// compileModule runs C1-C5 over the file at path: lex, parse, structure,
// link in every transitively imported file, then resolve if/else/while/end
// block targets in every linked function body.
func compileModule(ctx context.Context, path string) (*module.Module, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	toks, err := lexer.Lex(path, f)
	if err != nil {
		return nil, err
	}
	instrs, err := parser.Parse(toks)
	if err != nil {
		return nil, err
	}
	mod, err := module.Structure(instrs)
	if err != nil {
		return nil, err
	}

	mod, err = linker.Link(ctx, osFileReader{base: filepath.Dir(path)}, mod)
	if err != nil {
		return nil, err
	}

	for name, body := range mod.Functions {
		resolved, err := module.ResolveBlocks(body)
		if err != nil {
			return nil, err
		}
		mod.Functions[name] = resolved
	}
	return mod, nil
}

// osFileReader resolves relative import paths against the directory the
// entry file was loaded from, so "import foo.phron" works no matter what
// directory the CLI itself is invoked from.
type osFileReader struct{ base string }

func (fr osFileReader) Open(path string) (io.ReadCloser, error) {
	full := path
	if !filepath.IsAbs(full) {
		full = filepath.Join(fr.base, path)
	}
	return os.Open(full)
}

func runSim(ctx context.Context, log *logio.Logger, path string, trace bool) error {
	mod, err := compileModule(ctx, path)
	if err != nil {
		return err
	}
	opts := []sim.Option{sim.WithOutput(os.Stdout)}
	if trace {
		opts = append(opts, sim.WithLogger(log), sim.WithANSIRendering())
	}
	return sim.New(mod, opts...).Run(ctx)
}

// logTeeWriter adapts a *logio.Writer into a flushio.WriteFlusher: its
// Flush reaches logio.Writer.Sync directly, so a trailing unterminated
// line still reaches Logf instead of sitting in logio.Writer's own
// internal buffer forever.
type logTeeWriter struct{ w *logio.Writer }

func (lw logTeeWriter) Write(p []byte) (int, error) { return lw.w.Write(p) }
func (lw logTeeWriter) Flush() error                { return lw.w.Sync() }

// runCom compiles path to Brainfuck and writes it to the sibling file with
// a ".bf" extension, through a flushio.WriteFlusher so the write is
// buffered and explicitly flushed before the file is closed.
func runCom(ctx context.Context, log *logio.Logger, path string, trace bool) error {
	mod, err := compileModule(ctx, path)
	if err != nil {
		return err
	}
	opts := []bfgen.Option{}
	if trace {
		opts = append(opts, bfgen.WithLogger(log))
	}
	out, err := bfgen.New(mod, opts...).Generate()
	if err != nil {
		return err
	}

	outPath := strings.TrimSuffix(path, filepath.Ext(path)) + ".bf"
	outFile, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer outFile.Close()

	wf := flushio.NewWriteFlusher(outFile)
	if trace {
		// Tee the generated program through the logger too; logTeeWriter's
		// own Flush reaches logio.Writer.Sync directly; it isn't a second
		// buffering layer.
		wf = flushio.WriteFlushers(wf, logTeeWriter{&logio.Writer{Logf: log.Leveledf("codegen-output")}})
	}
	if _, err := io.WriteString(wf, out); err != nil {
		return err
	}
	return wf.Flush()
}
