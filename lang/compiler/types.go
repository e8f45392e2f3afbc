package compiler

import (
	"github.com/16dprice/rlox/lang/scanner"
	"github.com/16dprice/rlox/lang/token"
)

// FunctionType distinguishes the implicit top-level script function from a
// function declared with `fun`; it controls a handful of compile-time
// checks (e.g. `return` is only meaningful inside a Function).
type FunctionType uint8

const (
	TypeScript FunctionType = iota
	TypeFunction
)

// maxLocals, maxUpvalues and maxConstants mirror the single-byte operand
// encoding: a slot/index must fit in one byte, so at most 256 distinct
// values (0..255) are addressable.
const (
	maxLocals    = 256
	maxUpvalues  = 256
	maxConstants = 256
	maxArgs      = 255
	maxParams    = 255
	maxJump      = 1<<16 - 1
)

// uninitializedDepth is the explicit sentinel recorded for a local between
// its declaration and the end of its initializer — deliberately a named
// constant rather than an overloaded -1 literal, so "uninitialized" reads
// as its own state everywhere it's checked.
const uninitializedDepth = -1

// local is a name bound to a fixed stack slot for the duration of a lexical
// scope.
type local struct {
	name     token.Token
	depth    int
	captured bool // true once some nested function captures this local as an upvalue
}

// upvalueRef records, for one upvalue slot in the function currently being
// compiled, whether it refers to a local slot in the immediately enclosing
// function (isLocal) or to one of that function's own upvalues.
type upvalueRef struct {
	isLocal bool
	index   byte
}

// parserState is shared by every nested Compiler compiling the same source:
// the token stream and diagnostic bookkeeping live here, once, while each
// Compiler tracks its own function's locals/upvalues/scope.
type parserState struct {
	sc       *scanner.Scanner
	source   string
	current  token.Token
	previous token.Token

	hadError  bool
	panicMode bool
	errs      Errors
}

// precedence orders the binding power of infix operators, lowest to
// highest.
type precedence int

const (
	precNone precedence = iota
	precAssignment
	precOr
	precAnd
	precEquality
	precComparison
	precTerm
	precFactor
	precUnary
	precCall
	precPrimary
)

type prefixFn func(c *Compiler, canAssign bool)
type infixFn func(c *Compiler, canAssign bool)

type parseRule struct {
	prefix     prefixFn
	infix      infixFn
	precedence precedence
}
