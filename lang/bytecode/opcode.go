// Package bytecode defines the bytecode instruction set, the chunk format
// that links the compiler and the VM, the runtime Value model, and a
// disassembler for debugging. Value and Chunk are defined in the same
// package because they are mutually referential by design: a Function value
// owns a Chunk, and a Chunk's constant pool may itself contain Function (or
// Closure, Class) values.
package bytecode

import "fmt"

// Op is a single bytecode instruction opcode: one byte, followed by zero or
// more operand bytes depending on the opcode.
type Op byte

//nolint:revive
const (
	OpConstant Op = iota
	OpNil
	OpTrue
	OpFalse
	OpPop

	OpGetLocal
	OpSetLocal
	OpGetGlobal
	OpSetGlobal
	OpDefineGlobal
	OpGetUpvalue
	OpSetUpvalue
	OpCloseUpvalue

	OpEqual
	OpGreater
	OpLess

	OpNot
	OpNegate

	OpAdd
	OpSubtract
	OpMultiply
	OpDivide

	OpPrint

	OpJump
	OpJumpIfFalse
	OpLoop

	OpCall
	OpClosure
	OpReturn

	OpClass
	OpGetProperty
	OpSetProperty

	opCount
)

var opNames = [opCount]string{
	OpConstant:      "OP_CONSTANT",
	OpNil:           "OP_NIL",
	OpTrue:          "OP_TRUE",
	OpFalse:         "OP_FALSE",
	OpPop:           "OP_POP",
	OpGetLocal:      "OP_GET_LOCAL",
	OpSetLocal:      "OP_SET_LOCAL",
	OpGetGlobal:     "OP_GET_GLOBAL",
	OpSetGlobal:     "OP_SET_GLOBAL",
	OpDefineGlobal:  "OP_DEFINE_GLOBAL",
	OpGetUpvalue:    "OP_GET_UPVALUE",
	OpSetUpvalue:    "OP_SET_UPVALUE",
	OpCloseUpvalue:  "OP_CLOSE_UPVALUE",
	OpEqual:         "OP_EQUAL",
	OpGreater:       "OP_GREATER",
	OpLess:          "OP_LESS",
	OpNot:           "OP_NOT",
	OpNegate:        "OP_NEGATE",
	OpAdd:           "OP_ADD",
	OpSubtract:      "OP_SUBTRACT",
	OpMultiply:      "OP_MULTIPLY",
	OpDivide:        "OP_DIVIDE",
	OpPrint:         "OP_PRINT",
	OpJump:          "OP_JUMP",
	OpJumpIfFalse:   "OP_JUMP_IF_FALSE",
	OpLoop:          "OP_LOOP",
	OpCall:          "OP_CALL",
	OpClosure:       "OP_CLOSURE",
	OpReturn:        "OP_RETURN",
	OpClass:         "OP_CLASS",
	OpGetProperty:   "OP_GET_PROPERTY",
	OpSetProperty:   "OP_SET_PROPERTY",
}

func (op Op) String() string {
	if int(op) >= len(opNames) || opNames[op] == "" {
		return fmt.Sprintf("OP_<unknown %d>", byte(op))
	}
	return opNames[op]
}
