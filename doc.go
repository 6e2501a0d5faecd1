/* Package main implements the Phronima toolchain: a concatenative,
stack-oriented language that targets two different backends from the
same linked, block-resolved module.

Phronima programs are a flat sequence of whitespace-separated words
against a single operand stack of bytes, plus a 256-byte directly
addressable memory. There is no compile-time type system and no
variables beyond that memory: every word either pushes a literal,
consumes and produces stack cells, or names a control-flow block
(if/else/while/end) or a function (fn/end, called by name).

The pipeline from source text to a running (or compiled) program is
implemented by six packages; the last two are alternative backends:

  lexer     -- source text to located tokens (internal/lexer)
  parser    -- tokens to a flat tagged instruction stream (internal/parser)
  module    -- instructions grouped into named function bodies, with
               if/else/while/end block targets resolved (internal/module)
  linker    -- the import queue resolved and merged in (internal/linker)
  sim       -- direct execution against a fixed-capacity stack and memory
               (internal/sim)
  bfgen     -- the same linked module compiled to Brainfuck text instead
               (internal/bfgen)

Two backends share one frontend deliberately: the simulator exists to
give every program a fast, debuggable reference execution, while the
Brainfuck generator exists to prove the same module's semantics can be
expressed as straight-line tape-machine code, with no host beyond eight
characters and 30000 wrapping byte cells. Programs that stay within the
shared subset -- no LessThan, GreaterThan, Equals, or GetStackHeight,
none of which the generator implements -- must behave identically under
either backend.

The three CLI modes (sim, com, rec) are thin wrappers around this
pipeline; see main.go and fixtures.go. Diagnostics, memory limits, and
structured logging follow the same options-pattern and panic-isolation
conventions used throughout internal/sim and internal/bfgen.
*/
package main
