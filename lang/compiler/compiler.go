// Package compiler implements a single-pass Pratt parser that compiles
// source text directly to bytecode: there is no intermediate AST. Each
// nested function being compiled gets its own *Compiler, linked to its
// enclosing compiler so upvalue resolution can walk outward.
package compiler

import (
	"strconv"

	"github.com/16dprice/rlox/lang/bytecode"
	"github.com/16dprice/rlox/lang/scanner"
	"github.com/16dprice/rlox/lang/token"
)

// Compiler holds the state of one nested function being compiled: the
// Function it is building, its locals and upvalues, and a link to the
// compiler for the enclosing function (nil at the top level).
type Compiler struct {
	p *parserState

	enclosing    *Compiler
	function     *bytecode.Function
	functionType FunctionType

	locals     [maxLocals]local
	localCount int
	scopeDepth int

	upvalues [maxUpvalues]upvalueRef
}

// Compile compiles source into the top-level script Function. If any
// compile error was reported, it returns a non-nil *bytecode.Function (so
// callers that want partial results still can) alongside a non-nil error
// aggregating every diagnostic.
func Compile(source string) (*bytecode.Function, error) {
	var sc scanner.Scanner
	sc.Init(source)

	p := &parserState{sc: &sc, source: source}

	c := &Compiler{p: p, function: bytecode.NewFunction(), functionType: TypeScript}
	c.reserveSlotZero()

	p.advance()
	for !p.match(token.EOF) {
		c.declaration()
	}
	fn := c.endCompiler()

	if p.hadError {
		return fn, p.errs
	}
	return fn, nil
}

// reserveSlotZero reserves local slot 0 for the function's own callee
// value (or, at the top level, the script closure itself); its name is
// empty so user code can never reference it.
func (c *Compiler) reserveSlotZero() {
	c.locals[0] = local{depth: 0}
	c.localCount = 1
}

func (c *Compiler) endCompiler() *bytecode.Function {
	c.emitReturn()
	return c.function
}

func (c *Compiler) chunk() *bytecode.Chunk { return c.function.Chunk }

func (c *Compiler) line() int {
	if c.p.previous.Length == 0 && c.p.current.Length == 0 {
		return 1
	}
	return c.p.previous.Line
}

// --- parser driver ---

func (p *parserState) advance() {
	p.previous = p.current
	for {
		p.current = p.sc.ScanToken()
		if p.current.Type != token.ILLEGAL {
			break
		}
		p.errorAtCurrent(p.sc.Message())
	}
}

func (p *parserState) check(t token.Type) bool {
	return p.current.Type == t
}

func (p *parserState) match(t token.Type) bool {
	if !p.check(t) {
		return false
	}
	p.advance()
	return true
}

func (p *parserState) consume(t token.Type, msg string) {
	if p.current.Type == t {
		p.advance()
		return
	}
	p.errorAtCurrent(msg)
}

func (p *parserState) errorAtCurrent(msg string) { p.errorAt(p.current, msg) }
func (p *parserState) error(msg string)          { p.errorAt(p.previous, msg) }

func (p *parserState) errorAt(tok token.Token, msg string) {
	if p.panicMode {
		return
	}
	p.panicMode = true
	p.hadError = true
	p.errs = append(p.errs, format(p.source, tok, msg))
}

func (p *parserState) synchronize() {
	p.panicMode = false
	for p.current.Type != token.EOF {
		if p.previous.Type == token.SEMICOLON {
			return
		}
		switch p.current.Type {
		case token.CLASS, token.FUN, token.VAR, token.FOR, token.IF, token.WHILE, token.PRINT, token.RETURN:
			return
		}
		p.advance()
	}
}

// --- declarations & statements ---

func (c *Compiler) declaration() {
	switch {
	case c.p.match(token.CLASS):
		c.classDeclaration()
	case c.p.match(token.FUN):
		c.funDeclaration()
	case c.p.match(token.VAR):
		c.varDeclaration()
	default:
		c.statement()
	}
	if c.p.panicMode {
		c.p.synchronize()
	}
}

func (c *Compiler) classDeclaration() {
	c.p.consume(token.IDENT, "Expect class name.")
	nameTok := c.p.previous
	nameConst := c.identifierConstant(nameTok)

	c.declareVariable()
	c.emitBytes(byte(bytecode.OpClass), nameConst)
	c.defineVariable(nameConst)

	c.p.consume(token.LEFT_BRACE, "Expect '{' before class body.")
	c.p.consume(token.RIGHT_BRACE, "Expect '}' after class body.")
}

func (c *Compiler) funDeclaration() {
	global := c.parseVariable("Expect function name.")
	c.markInitialized()
	c.function_(TypeFunction)
	c.defineVariable(global)
}

// function_ compiles the parameters and body of a `fun` declaration into a
// brand-new nested Function, then emits OP_CLOSURE (plus its upvalue
// table) into the *enclosing* compiler's chunk.
func (c *Compiler) function_(ft FunctionType) {
	name := c.p.previous.Lexeme(c.p.source)
	child := &Compiler{p: c.p, enclosing: c, function: bytecode.NewFunction(), functionType: ft}
	child.function.Name = name
	child.reserveSlotZero()
	child.scopeDepth = c.scopeDepth + 1

	c.p.consume(token.LEFT_PAREN, "Expect '(' after function name.")
	if !c.p.check(token.RIGHT_PAREN) {
		for {
			child.function.Arity++
			if child.function.Arity > maxParams {
				c.p.errorAtCurrent("Can't have more than 255 parameters.")
			}
			paramConst := child.parseVariable("Expect parameter name.")
			child.defineVariable(paramConst)
			if !c.p.match(token.COMMA) {
				break
			}
		}
	}
	c.p.consume(token.RIGHT_PAREN, "Expect ')' after parameters.")
	c.p.consume(token.LEFT_BRACE, "Expect '{' before function body.")
	child.block()

	fn := child.endCompiler()
	constIdx := c.makeConstant(bytecode.FunctionValue(fn))
	c.emitBytes(byte(bytecode.OpClosure), constIdx)
	for i := 0; i < fn.UpvalueCount; i++ {
		isLocal := byte(0)
		if child.upvalues[i].isLocal {
			isLocal = 1
		}
		c.emitByte(isLocal)
		c.emitByte(child.upvalues[i].index)
	}
}

func (c *Compiler) varDeclaration() {
	global := c.parseVariable("Expect variable name.")
	if c.p.match(token.EQUAL) {
		c.expression()
	} else {
		c.emitOp(bytecode.OpNil)
	}
	c.p.consume(token.SEMICOLON, "Expect ';' after variable declaration.")
	c.defineVariable(global)
}

func (c *Compiler) statement() {
	switch {
	case c.p.match(token.PRINT):
		c.printStatement()
	case c.p.match(token.IF):
		c.ifStatement()
	case c.p.match(token.WHILE):
		c.whileStatement()
	case c.p.match(token.FOR):
		c.forStatement()
	case c.p.match(token.RETURN):
		c.returnStatement()
	case c.p.match(token.LEFT_BRACE):
		c.beginScope()
		c.block()
		c.endScope()
	default:
		c.expressionStatement()
	}
}

func (c *Compiler) block() {
	for !c.p.check(token.RIGHT_BRACE) && !c.p.check(token.EOF) {
		c.declaration()
	}
	c.p.consume(token.RIGHT_BRACE, "Expect '}' after block.")
}

func (c *Compiler) printStatement() {
	c.expression()
	c.p.consume(token.SEMICOLON, "Expect ';' after value.")
	c.emitOp(bytecode.OpPrint)
}

func (c *Compiler) returnStatement() {
	if c.functionType == TypeScript {
		c.p.error("Can't return from top-level code.")
	}
	if c.p.match(token.SEMICOLON) {
		c.emitReturn()
		return
	}
	c.expression()
	c.p.consume(token.SEMICOLON, "Expect ';' after return value.")
	c.emitOp(bytecode.OpReturn)
}

func (c *Compiler) expressionStatement() {
	c.expression()
	c.p.consume(token.SEMICOLON, "Expect ';' after expression.")
	c.emitOp(bytecode.OpPop)
}

func (c *Compiler) ifStatement() {
	c.p.consume(token.LEFT_PAREN, "Expect '(' after 'if'.")
	c.expression()
	c.p.consume(token.RIGHT_PAREN, "Expect ')' after condition.")

	thenJump := c.emitJump(bytecode.OpJumpIfFalse)
	c.emitOp(bytecode.OpPop)
	c.statement()

	elseJump := c.emitJump(bytecode.OpJump)
	c.patchJump(thenJump)
	c.emitOp(bytecode.OpPop)

	if c.p.match(token.ELSE) {
		c.statement()
	}
	c.patchJump(elseJump)
}

func (c *Compiler) whileStatement() {
	loopStart := len(c.chunk().Code)
	c.p.consume(token.LEFT_PAREN, "Expect '(' after 'while'.")
	c.expression()
	c.p.consume(token.RIGHT_PAREN, "Expect ')' after condition.")

	exitJump := c.emitJump(bytecode.OpJumpIfFalse)
	c.emitOp(bytecode.OpPop)
	c.statement()
	c.emitLoop(loopStart)

	c.patchJump(exitJump)
	c.emitOp(bytecode.OpPop)
}

func (c *Compiler) forStatement() {
	c.beginScope()
	c.p.consume(token.LEFT_PAREN, "Expect '(' after 'for'.")

	switch {
	case c.p.match(token.SEMICOLON):
		// no initializer
	case c.p.match(token.VAR):
		c.varDeclaration()
	default:
		c.expressionStatement()
	}

	loopStart := len(c.chunk().Code)
	exitJump := -1
	if !c.p.match(token.SEMICOLON) {
		c.expression()
		c.p.consume(token.SEMICOLON, "Expect ';' after loop condition.")
		exitJump = c.emitJump(bytecode.OpJumpIfFalse)
		c.emitOp(bytecode.OpPop)
	}

	if !c.p.match(token.RIGHT_PAREN) {
		bodyJump := c.emitJump(bytecode.OpJump)
		incrementStart := len(c.chunk().Code)
		c.expression()
		c.emitOp(bytecode.OpPop)
		c.p.consume(token.RIGHT_PAREN, "Expect ')' after for clauses.")

		c.emitLoop(loopStart)
		loopStart = incrementStart
		c.patchJump(bodyJump)
	}

	c.statement()
	c.emitLoop(loopStart)

	if exitJump != -1 {
		c.patchJump(exitJump)
		c.emitOp(bytecode.OpPop)
	}
	c.endScope()
}

// parseNumber converts a NUMBER token's lexeme to a float64; the scanner
// guarantees the lexeme is well-formed, so a parse failure here is a
// compiler bug, not user error.
func parseNumber(lexeme string) float64 {
	v, err := strconv.ParseFloat(lexeme, 64)
	if err != nil {
		panic("compiler: scanner produced an invalid number literal: " + lexeme)
	}
	return v
}
