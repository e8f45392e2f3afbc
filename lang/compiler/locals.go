package compiler

import (
	"encoding/binary"

	"github.com/16dprice/rlox/lang/bytecode"
	"github.com/16dprice/rlox/lang/token"
)

// --- scope management ---

func (c *Compiler) beginScope() { c.scopeDepth++ }

// endScope pops every local declared in the scope just closed. A local
// that was captured by a nested closure must survive on the heap past this
// point, so it gets OP_CLOSE_UPVALUE instead of a plain OP_POP.
func (c *Compiler) endScope() {
	c.scopeDepth--
	for c.localCount > 0 && c.locals[c.localCount-1].depth > c.scopeDepth {
		if c.locals[c.localCount-1].captured {
			c.emitOp(bytecode.OpCloseUpvalue)
		} else {
			c.emitOp(bytecode.OpPop)
		}
		c.localCount--
	}
}

// --- variable declaration ---

func (c *Compiler) parseVariable(errMsg string) byte {
	c.p.consume(token.IDENT, errMsg)
	nameTok := c.p.previous

	c.declareVariable()
	if c.scopeDepth > 0 {
		return 0 // locals aren't looked up by name at runtime
	}
	return c.identifierConstant(nameTok)
}

func (c *Compiler) identifierConstant(tok token.Token) byte {
	return c.makeConstant(bytecode.String(tok.Lexeme(c.p.source)))
}

// declareVariable registers c.p.previous as a new local in the current
// scope. At depth 0 it's a no-op: globals are resolved by name, not slot.
// A name already declared at this exact depth is an error — shadowing a
// name from an *enclosing* scope is fine, so the scan only checks locals
// at the current depth, stopping as soon as it reaches a shallower one.
func (c *Compiler) declareVariable() {
	if c.scopeDepth == 0 {
		return
	}
	name := c.p.previous
	for i := c.localCount - 1; i >= 0; i-- {
		l := &c.locals[i]
		if l.depth != uninitializedDepth && l.depth < c.scopeDepth {
			break
		}
		if l.name.Lexeme(c.p.source) == name.Lexeme(c.p.source) {
			c.p.error("Already a variable with this name in this scope.")
		}
	}
	c.addLocal(name)
}

func (c *Compiler) addLocal(name token.Token) {
	if c.localCount == maxLocals {
		c.p.error("Too many local variables in function.")
		return
	}
	c.locals[c.localCount] = local{name: name, depth: uninitializedDepth}
	c.localCount++
}

// markInitialized records that the local just declared now has a usable
// value; it's a no-op at the top level, where "variables" are globals
// defined by name instead of by slot.
func (c *Compiler) markInitialized() {
	if c.scopeDepth == 0 {
		return
	}
	c.locals[c.localCount-1].depth = c.scopeDepth
}

// defineVariable finishes a variable declaration: at global scope it emits
// OP_DEFINE_GLOBAL, at local scope the value is already sitting in its
// slot on the stack, so only markInitialized is needed.
func (c *Compiler) defineVariable(global byte) {
	if c.scopeDepth > 0 {
		c.markInitialized()
		return
	}
	c.emitBytes(byte(bytecode.OpDefineGlobal), global)
}

// --- local / upvalue resolution ---

// resolveLocal returns the stack slot of name within c's own locals, or -1
// if not found. Reading a local whose depth is still uninitializedDepth
// (i.e. referenced from within its own initializer) is a compile error.
func (c *Compiler) resolveLocal(name token.Token) int {
	for i := c.localCount - 1; i >= 0; i-- {
		l := &c.locals[i]
		if l.name.Lexeme(c.p.source) == name.Lexeme(c.p.source) {
			if l.depth == uninitializedDepth {
				c.p.error("Can't read local variable in its own initializer.")
			}
			return i
		}
	}
	return -1
}

// resolveUpvalue looks for name in any enclosing function, walking
// outward. Every intermediate function along the way gets its own upvalue
// entry pointing at the next one in, so a deeply nested closure still
// reaches the original local through a chain of single-hop references.
func (c *Compiler) resolveUpvalue(name token.Token) int {
	if c.enclosing == nil {
		return -1
	}
	if local := c.enclosing.resolveLocal(name); local != -1 {
		c.enclosing.locals[local].captured = true
		return c.addUpvalue(byte(local), true)
	}
	if up := c.enclosing.resolveUpvalue(name); up != -1 {
		return c.addUpvalue(byte(up), false)
	}
	return -1
}

// addUpvalue interns (index, isLocal) as an upvalue slot on the function
// currently being compiled, reusing an existing slot if one already
// refers to the same source.
func (c *Compiler) addUpvalue(index byte, isLocal bool) int {
	count := c.function.UpvalueCount
	for i := 0; i < count; i++ {
		up := c.upvalues[i]
		if up.index == index && up.isLocal == isLocal {
			return i
		}
	}
	if count == maxUpvalues {
		c.p.error("Too many closure variables in function.")
		return 0
	}
	c.upvalues[count] = upvalueRef{isLocal: isLocal, index: index}
	c.function.UpvalueCount++
	return count
}

// --- bytecode emission ---

func (c *Compiler) emitByte(b byte) {
	c.chunk().Write(b, c.line())
}

func (c *Compiler) emitOp(op bytecode.Op) {
	c.chunk().WriteOp(op, c.line())
}

func (c *Compiler) emitBytes(a, b byte) {
	c.emitByte(a)
	c.emitByte(b)
}

func (c *Compiler) makeConstant(v bytecode.Value) byte {
	idx := c.chunk().AddConstant(v)
	if idx > maxConstants-1 {
		c.p.error("Too many constants in one chunk.")
		return 0
	}
	return byte(idx)
}

func (c *Compiler) emitConstant(v bytecode.Value) {
	c.emitBytes(byte(bytecode.OpConstant), c.makeConstant(v))
}

// emitJump emits a jump opcode followed by a two-byte placeholder operand
// and returns the offset of that placeholder, to be filled in later by
// patchJump once the target address is known.
func (c *Compiler) emitJump(op bytecode.Op) int {
	c.emitOp(op)
	c.emitByte(0xff)
	c.emitByte(0xff)
	return len(c.chunk().Code) - 2
}

// patchJump backfills the placeholder at offset with the distance from
// just after the placeholder to the current end of the chunk.
func (c *Compiler) patchJump(offset int) {
	jump := len(c.chunk().Code) - offset - 2
	if jump > maxJump {
		c.p.error("Too much code to jump over.")
		return
	}
	buf := make([]byte, 2)
	binary.BigEndian.PutUint16(buf, uint16(jump))
	c.chunk().Code[offset] = buf[0]
	c.chunk().Code[offset+1] = buf[1]
}

// emitLoop emits OP_LOOP with a backward offset to loopStart.
func (c *Compiler) emitLoop(loopStart int) {
	c.emitOp(bytecode.OpLoop)
	offset := len(c.chunk().Code) - loopStart + 2
	if offset > maxJump {
		c.p.error("Loop body too large.")
		return
	}
	buf := make([]byte, 2)
	binary.BigEndian.PutUint16(buf, uint16(offset))
	c.emitByte(buf[0])
	c.emitByte(buf[1])
}

func (c *Compiler) emitReturn() {
	c.emitOp(bytecode.OpNil)
	c.emitOp(bytecode.OpReturn)
}
