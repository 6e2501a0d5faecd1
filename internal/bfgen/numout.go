package bfgen

import "strings"

// buildNumOut emits the fixed decimal-print idiom for NumOut: starting with
// the popped byte at cell 0, it extracts hundreds/tens/ones digits via a
// ripple-carry unary count (driven by two native while-loops counting down
// from 10, each carry detected by a non-destructive copy-and-test of the
// countdown cell) and prints the result with leading-zero suppression,
// returning the head to cell 0.
//
// Cell layout, relative to the starting position (all guaranteed zero on
// entry, per the invariant that cells above the operand stack's top are
// always cleared by whatever instruction last vacated them):
//
//	0 v            the popped value, consumed to 0 by the main loop
//	1 onesLeft     counts down from 10; hitting 0 signals a ones->tens carry
//	2 onesDigit    accumulates 0-9, reset to 0 on carry
//	3 tensLeft     counts down from 10; hitting 0 signals a tens->hundreds carry
//	4 tensDigit    accumulates 0-9, reset to 0 on carry
//	5 hundredsDigit
//	6 copy         scratch: non-destructive copy target for carry tests
//	7 scratch      scratch: second cell the copy idiom needs
//	8 flag         scratch: if/else selector, reused across tests
//	9 flag2        scratch: inner if/else selector (nested tens test)
func buildNumOut() string {
	const (
		vOff = iota
		onesLeftOff
		onesDigitOff
		tensLeftOff
		tensDigitOff
		hundredsDigitOff
		copyOff
		scratchOff
		flagOff
		flag2Off
	)

	c := &bfCursor{}

	c.to(onesLeftOff)
	c.add(10)
	c.to(tensLeftOff)
	c.add(10)
	c.to(vOff)

	c.loopAt(vOff, func() {
		c.add(-1) // v -= 1

		c.to(onesLeftOff)
		c.add(-1)
		c.to(onesDigitOff)
		c.add(1)

		c.dup(onesLeftOff, copyOff, scratchOff)
		c.ifElse(copyOff, flagOff,
			func() {
				// onesLeft still nonzero: no carry this step.
			},
			func() {
				// onesLeft hit 0: ones group complete, carry into tens.
				c.to(onesLeftOff)
				c.add(10)
				c.to(onesDigitOff)
				c.clear()
				c.to(tensLeftOff)
				c.add(-1)
				c.to(tensDigitOff)
				c.add(1)

				c.dup(tensLeftOff, copyOff, scratchOff)
				c.ifElse(copyOff, flag2Off,
					func() {
						// tensLeft still nonzero: no further carry.
					},
					func() {
						// tensLeft hit 0: tens group complete, carry into hundreds.
						c.to(tensLeftOff)
						c.add(10)
						c.to(tensDigitOff)
						c.clear()
						c.to(hundredsDigitOff)
						c.add(1)
					},
				)
			},
		)

		c.to(vOff)
	})

	// The countdown cells are spent scratch once the loop above finishes;
	// the digit cells get consumed by printDigit below, but onesLeft and
	// tensLeft are never otherwise touched again and must still go back to
	// 0 to satisfy the "cells above the stack top are clear" invariant.
	c.to(onesLeftOff)
	c.clear()
	c.to(tensLeftOff)
	c.clear()

	printDigit := func(at int) {
		c.to(at)
		c.add(int('0'))
		c.raw(".")
		c.clear()
	}

	c.dup(hundredsDigitOff, copyOff, scratchOff)
	c.ifElse(copyOff, flagOff,
		func() {
			printDigit(hundredsDigitOff)
			printDigit(tensDigitOff)
			printDigit(onesDigitOff)
		},
		func() {
			c.dup(tensDigitOff, copyOff, scratchOff)
			c.ifElse(copyOff, flag2Off,
				func() {
					printDigit(tensDigitOff)
					printDigit(onesDigitOff)
				},
				func() {
					printDigit(onesDigitOff)
				},
			)
		},
	)

	c.to(vOff)
	return c.sb.String()
}

// bfCursor assembles a Brainfuck fragment while tracking the head's
// position as a relative cell offset, so every move is emitted by `to`
// rather than hand-counted `>`/`<` runs: the offset arithmetic is Go's to
// get right, not a string to proofread character by character.
type bfCursor struct {
	sb  strings.Builder
	pos int
}

func (c *bfCursor) raw(s string) { c.sb.WriteString(s) }

// warp records that a preceding raw loop left the head at pos, without
// emitting any movement of its own. Only meaningful after a loop whose
// construction guarantees where it exits.
func (c *bfCursor) warp(pos int) { c.pos = pos }

func (c *bfCursor) to(target int) {
	switch {
	case target > c.pos:
		c.sb.WriteString(strings.Repeat(">", target-c.pos))
	case target < c.pos:
		c.sb.WriteString(strings.Repeat("<", c.pos-target))
	}
	c.pos = target
}

func (c *bfCursor) add(n int) {
	switch {
	case n > 0:
		c.sb.WriteString(strings.Repeat("+", n))
	case n < 0:
		c.sb.WriteString(strings.Repeat("-", -n))
	}
}

func (c *bfCursor) clear() { c.sb.WriteString("[-]") }

// loopAt emits a `[...]` whose body is produced by fn, called with the
// cursor already positioned at cell. fn may move the cursor freely; loopAt
// restores it to cell before closing the loop, since a BF loop re-tests
// whatever cell the head rests on at each `]`.
func (c *bfCursor) loopAt(cell int, fn func()) {
	c.to(cell)
	c.sb.WriteString("[")
	fn()
	c.to(cell)
	c.sb.WriteString("]")
}

// dup non-destructively copies the value at src into t1 (leaving src
// unchanged) using t2 as scratch; all three cells must start at the same
// relative position they would in the standard two-phase copy idiom: src
// holds the value, t1 and t2 both start at 0. Ends with the cursor at t1.
func (c *bfCursor) dup(src, t1, t2 int) {
	c.loopAt(src, func() {
		c.add(-1)
		c.to(t1)
		c.add(1)
		c.to(t2)
		c.add(1)
	})
	c.loopAt(t2, func() {
		c.add(-1)
		c.to(src)
		c.add(1)
	})
	c.to(t1)
}

// ifElse runs then_ if the value at test is nonzero, else_ otherwise,
// consuming test (and flag, a scratch cell starting at 0) down to 0 along
// the way. This is the standard flag-based BF if/else: flag is set to 1,
// then a single-shot loop on test (cleared immediately on entry, so it
// never iterates more than once) runs then_ and clears flag; a second
// single-shot loop on flag runs else_ only if the first one never fired.
// Ends with the cursor at flag.
func (c *bfCursor) ifElse(test, flag int, then_, else_ func()) {
	c.to(flag)
	c.add(1)
	c.loopAt(test, func() {
		c.clear()
		then_()
		c.to(flag)
		c.add(-1)
	})
	c.loopAt(flag, func() {
		c.clear()
		else_()
	})
}
