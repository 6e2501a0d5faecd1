// Package fileinput provides a rune reader that tracks its source location,
// so that callers building located tokens never have to re-derive row and
// column by hand.
package fileinput

import (
	"bytes"
	"fmt"
	"io"

	"github.com/phronima-lang/phronima/internal/runeio"
	"github.com/phronima-lang/phronima/internal/token"
)

// Line combines a running Location with the bytes scanned so far on it,
// facilitating user-facing diagnostics (e.g. printing the offending line).
type Line struct {
	token.Location
	bytes.Buffer
}

func (il Line) String() string { return fmt.Sprintf("%v %q", il.Location, il.Buffer.String()) }

// Input implements sequential rune reading over a single named source,
// tracking both the current and last-completed line so that a caller can
// always report "row, column" for whatever rune it just read.
//
// Unlike a general-purpose multi-stream queue, Input reads exactly one
// stream: Phronima lexes one file at a time (each import is its own lex
// call), so there is no need to chain several readers into a single token
// stream the way an interactive REPL would.
type Input struct {
	name string
	rr   runeio.Reader
	Last Line
	Scan Line
}

// NewInput returns an Input reading r, reporting name as every token's
// Location.Filepath.
func NewInput(name string, r io.Reader) *Input {
	in := &Input{name: name, rr: runeio.NewReader(r)}
	in.Scan.Filepath = name
	in.Scan.Row = 1
	in.Scan.Col = 1
	return in
}

// Name returns the name passed to NewInput.
func (in *Input) Name() string { return in.name }

// Loc returns the location of the next rune ReadRune will return.
func (in *Input) Loc() token.Location {
	return token.Location{Filepath: in.name, Row: in.Scan.Row, Col: in.Scan.Col}
}

// ReadRune reads one rune, appending it to the current scan line and
// advancing row/column bookkeeping. A line feed rolls the current line into
// Last and resets Scan onto the next row.
func (in *Input) ReadRune() (rune, int, error) {
	r, n, err := in.rr.ReadRune()
	if err != nil {
		return 0, n, err
	}
	if r == '\n' {
		in.nextLine()
	} else {
		in.Scan.WriteRune(r)
		in.Scan.Col++
	}
	return r, n, nil
}

func (in *Input) nextLine() {
	in.Last.Reset()
	in.Last.Filepath = in.Scan.Filepath
	in.Last.Row = in.Scan.Row
	in.Last.Write(in.Scan.Bytes())
	in.Scan.Reset()
	in.Scan.Row++
	in.Scan.Col = 1
}
