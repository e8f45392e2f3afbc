package compiler

import (
	"github.com/16dprice/rlox/lang/bytecode"
	"github.com/16dprice/rlox/lang/token"
)

// rules is the Pratt parse table keyed by token type: for each token, what
// prefix (nud) and infix (led) parsing function applies, plus the binding
// power of the infix use.
var rules map[token.Type]parseRule

func init() {
	rules = map[token.Type]parseRule{
		token.LEFT_PAREN:    {prefix: grouping, infix: call, precedence: precCall},
		token.DOT:           {infix: dot, precedence: precCall},
		token.MINUS:         {prefix: unary, infix: binary, precedence: precTerm},
		token.PLUS:          {infix: binary, precedence: precTerm},
		token.SLASH:         {infix: binary, precedence: precFactor},
		token.STAR:          {infix: binary, precedence: precFactor},
		token.BANG:          {prefix: unary},
		token.BANG_EQUAL:    {infix: binary, precedence: precEquality},
		token.EQUAL_EQUAL:   {infix: binary, precedence: precEquality},
		token.GREATER:       {infix: binary, precedence: precComparison},
		token.GREATER_EQUAL: {infix: binary, precedence: precComparison},
		token.LESS:          {infix: binary, precedence: precComparison},
		token.LESS_EQUAL:    {infix: binary, precedence: precComparison},
		token.IDENT:         {prefix: variable},
		token.STRING:        {prefix: stringLit},
		token.NUMBER:        {prefix: number},
		token.AND:           {infix: and_, precedence: precAnd},
		token.OR:            {infix: or_, precedence: precOr},
		token.FALSE:         {prefix: literal},
		token.NIL:           {prefix: literal},
		token.TRUE:          {prefix: literal},
	}
}

func ruleFor(t token.Type) parseRule {
	return rules[t]
}

func (c *Compiler) expression() {
	c.parsePrecedence(precAssignment)
}

// parsePrecedence is the core Pratt loop: consume the current token's
// prefix rule, then keep consuming infix rules whose precedence is at
// least prec. canAssign gates whether a trailing "= expr" is legal at this
// binding power, so "a + b = c" correctly fails to parse an assignment.
func (c *Compiler) parsePrecedence(prec precedence) {
	c.p.advance()
	prefixRule := ruleFor(c.p.previous.Type).prefix
	if prefixRule == nil {
		c.p.error("Expect expression.")
		return
	}
	canAssign := prec <= precAssignment
	prefixRule(c, canAssign)

	for prec <= ruleFor(c.p.current.Type).precedence {
		c.p.advance()
		infixRule := ruleFor(c.p.previous.Type).infix
		infixRule(c, canAssign)
	}

	if canAssign && c.p.match(token.EQUAL) {
		c.p.error("Invalid assignment target.")
	}
}

func number(c *Compiler, _ bool) {
	lexeme := c.p.previous.Lexeme(c.p.source)
	c.emitConstant(bytecode.Number(parseNumber(lexeme)))
}

func stringLit(c *Compiler, _ bool) {
	lexeme := c.p.previous.Lexeme(c.p.source)
	// Lexeme spans the surrounding quotes; trim them.
	c.emitConstant(bytecode.String(lexeme[1 : len(lexeme)-1]))
}

func literal(c *Compiler, _ bool) {
	switch c.p.previous.Type {
	case token.FALSE:
		c.emitOp(bytecode.OpFalse)
	case token.TRUE:
		c.emitOp(bytecode.OpTrue)
	case token.NIL:
		c.emitOp(bytecode.OpNil)
	}
}

func grouping(c *Compiler, _ bool) {
	c.expression()
	c.p.consume(token.RIGHT_PAREN, "Expect ')' after expression.")
}

func unary(c *Compiler, _ bool) {
	opType := c.p.previous.Type
	c.parsePrecedence(precUnary)
	switch opType {
	case token.BANG:
		c.emitOp(bytecode.OpNot)
	case token.MINUS:
		c.emitOp(bytecode.OpNegate)
	}
}

func binary(c *Compiler, _ bool) {
	opType := c.p.previous.Type
	rule := ruleFor(opType)
	c.parsePrecedence(rule.precedence + 1)

	switch opType {
	case token.BANG_EQUAL:
		c.emitOp(bytecode.OpEqual)
		c.emitOp(bytecode.OpNot)
	case token.EQUAL_EQUAL:
		c.emitOp(bytecode.OpEqual)
	case token.GREATER:
		c.emitOp(bytecode.OpGreater)
	case token.GREATER_EQUAL:
		c.emitOp(bytecode.OpLess)
		c.emitOp(bytecode.OpNot)
	case token.LESS:
		c.emitOp(bytecode.OpLess)
	case token.LESS_EQUAL:
		c.emitOp(bytecode.OpGreater)
		c.emitOp(bytecode.OpNot)
	case token.PLUS:
		c.emitOp(bytecode.OpAdd)
	case token.MINUS:
		c.emitOp(bytecode.OpSubtract)
	case token.STAR:
		c.emitOp(bytecode.OpMultiply)
	case token.SLASH:
		c.emitOp(bytecode.OpDivide)
	}
}

func and_(c *Compiler, _ bool) {
	endJump := c.emitJump(bytecode.OpJumpIfFalse)
	c.emitOp(bytecode.OpPop)
	c.parsePrecedence(precAnd)
	c.patchJump(endJump)
}

func or_(c *Compiler, _ bool) {
	elseJump := c.emitJump(bytecode.OpJumpIfFalse)
	endJump := c.emitJump(bytecode.OpJump)

	c.patchJump(elseJump)
	c.emitOp(bytecode.OpPop)
	c.parsePrecedence(precOr)
	c.patchJump(endJump)
}

func call(c *Compiler, _ bool) {
	argCount := c.argumentList()
	c.emitBytes(byte(bytecode.OpCall), argCount)
}

func (c *Compiler) argumentList() byte {
	var count int
	if !c.p.check(token.RIGHT_PAREN) {
		for {
			c.expression()
			if count == maxArgs {
				c.p.error("Can't have more than 255 arguments.")
			}
			count++
			if !c.p.match(token.COMMA) {
				break
			}
		}
	}
	c.p.consume(token.RIGHT_PAREN, "Expect ')' after arguments.")
	return byte(count)
}

func dot(c *Compiler, canAssign bool) {
	c.p.consume(token.IDENT, "Expect property name after '.'.")
	name := c.identifierConstant(c.p.previous)

	if canAssign && c.p.match(token.EQUAL) {
		c.expression()
		c.emitBytes(byte(bytecode.OpSetProperty), name)
		return
	}
	c.emitBytes(byte(bytecode.OpGetProperty), name)
}

func variable(c *Compiler, canAssign bool) {
	c.namedVariable(c.p.previous, canAssign)
}

// namedVariable resolves name as a local, then an upvalue, then finally a
// global, and emits the matching get/set opcode pair.
func (c *Compiler) namedVariable(name token.Token, canAssign bool) {
	var getOp, setOp bytecode.Op
	arg := c.resolveLocal(name)
	if arg != -1 {
		getOp, setOp = bytecode.OpGetLocal, bytecode.OpSetLocal
	} else if arg = c.resolveUpvalue(name); arg != -1 {
		getOp, setOp = bytecode.OpGetUpvalue, bytecode.OpSetUpvalue
	} else {
		arg = int(c.identifierConstant(name))
		getOp, setOp = bytecode.OpGetGlobal, bytecode.OpSetGlobal
	}

	if canAssign && c.p.match(token.EQUAL) {
		c.expression()
		c.emitBytes(byte(setOp), byte(arg))
		return
	}
	c.emitBytes(byte(getOp), byte(arg))
}
