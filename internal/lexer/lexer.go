// Package lexer implements C1: turning Phronima source text into a
// sequence of located tokens.
//
// It is adapted from fileinput.Input's rune-at-a-time reader, which
// already tracks the (filepath, row, column) triple every Token needs; the
// lexer's only addition is the tokenizing state machine itself (comment
// skipping, whitespace splitting, quoted strings) described by spec §4.1.
package lexer

import (
	"io"
	"unicode"

	"github.com/phronima-lang/phronima/internal/fileinput"
	"github.com/phronima-lang/phronima/internal/token"
)

// Error reports an unterminated string literal: a line ended while the
// lexer was still inside an opening quote.
type Error struct {
	token.Location
}

func (err Error) Error() string {
	return err.Location.String() + " unterminated string literal"
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\r' || r == '\n' || unicode.IsSpace(r)
}

type runeSource struct {
	in      *fileinput.Input
	pending *pendingRune
}

type pendingRune struct {
	r   rune
	loc token.Location
}

func (rs *runeSource) read() (rune, token.Location, error) {
	if rs.pending != nil {
		r, loc := rs.pending.r, rs.pending.loc
		rs.pending = nil
		return r, loc, nil
	}
	loc := rs.in.Loc()
	r, _, err := rs.in.ReadRune()
	return r, loc, err
}

func (rs *runeSource) unread(r rune, loc token.Location) {
	rs.pending = &pendingRune{r, loc}
}

// Lex tokenizes the full contents of r, reporting name as every token's
// source file.
func Lex(name string, r io.Reader) ([]token.Token, error) {
	rs := &runeSource{in: fileinput.NewInput(name, r)}
	var toks []token.Token

	for {
		r, loc, err := skipToToken(rs)
		if err == io.EOF {
			return toks, nil
		}
		if err != nil {
			return nil, err
		}

		var tok token.Token
		if r == '"' {
			tok, err = scanString(rs, loc)
		} else {
			tok, err = scanWord(rs, loc, r)
		}
		if err != nil {
			return nil, err
		}
		toks = append(toks, tok)
	}
}

// skipToToken advances past whitespace and `//` comments, returning the
// first rune of the next token. A `//` is only ever recognized here,
// between tokens, per spec §4.1 — once inside a token, a literal `/` is
// just another character.
func skipToToken(rs *runeSource) (rune, token.Location, error) {
	for {
		r, loc, err := rs.read()
		if err != nil {
			return 0, loc, err
		}
		if isSpace(r) {
			continue
		}
		if r == '/' {
			r2, loc2, err2 := rs.read()
			if err2 == nil && r2 == '/' {
				if serr := skipLine(rs); serr != nil && serr != io.EOF {
					return 0, loc, serr
				}
				continue
			}
			if err2 == nil {
				rs.unread(r2, loc2)
			}
			return r, loc, nil
		}
		return r, loc, nil
	}
}

func skipLine(rs *runeSource) error {
	for {
		r, _, err := rs.read()
		if err != nil {
			return err
		}
		if r == '\n' {
			return nil
		}
	}
}

// scanWord reads a whitespace-delimited token, having already consumed its
// first rune r at loc.
func scanWord(rs *runeSource, loc token.Location, r rune) (token.Token, error) {
	sb := []rune{r}
	for {
		r, _, err := rs.read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return token.Token{}, err
		}
		if isSpace(r) {
			break
		}
		sb = append(sb, r)
	}
	return token.Token{Location: loc, Value: string(sb)}, nil
}

// scanString reads a `"..."` token, having already consumed the opening
// quote at loc.
func scanString(rs *runeSource, loc token.Location) (token.Token, error) {
	sb := []rune{'"'}
	for {
		r, _, err := rs.read()
		if err == io.EOF || r == '\n' {
			return token.Token{}, Error{loc}
		}
		if err != nil {
			return token.Token{}, err
		}
		sb = append(sb, r)
		if r == '"' {
			return token.Token{Location: loc, Value: string(sb)}, nil
		}
	}
}
