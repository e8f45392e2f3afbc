package compiler

import (
	"errors"
	"fmt"
	"strings"

	"github.com/16dprice/rlox/lang/token"
)

// Errors aggregates every diagnostic produced during a single compilation.
// Compile errors are non-fatal individually — the compiler keeps parsing
// after reporting one, so a single invocation can surface several — and are
// collected here rather than returned as soon as the first is found.
type Errors []string

func (e Errors) Error() string {
	return strings.Join(e, "\n")
}

// Unwrap lets callers use errors.Is/As across the individual diagnostics.
func (e Errors) Unwrap() []error {
	out := make([]error, len(e))
	for i, s := range e {
		out[i] = errors.New(s)
	}
	return out
}

// format renders a diagnostic as "[line L] Error[ at <lexeme>|at end]: <msg>".
// A token.ILLEGAL token (produced by the scanner) carries no extra "at"
// clause, since its own message already names the problem.
func format(src string, tok token.Token, msg string) string {
	switch tok.Type {
	case token.EOF:
		return fmt.Sprintf("[line %d] Error at end: %s", tok.Line, msg)
	case token.ILLEGAL:
		return fmt.Sprintf("[line %d] Error: %s", tok.Line, msg)
	default:
		return fmt.Sprintf("[line %d] Error at '%s': %s", tok.Line, tok.Lexeme(src), msg)
	}
}
