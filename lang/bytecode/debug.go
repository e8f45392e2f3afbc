package bytecode

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// Disassemble renders every instruction in chunk as line-oriented text,
// labeled with name. This is debug/tooling support, not part of the
// compiler/VM core: the format is
//
//	CHUNK OFFSET - NNNN | LINE - NNNN <OP_NAME>[: <operand-render>]
//
// Jumps render both their own address and the address they target.
func Disassemble(chunk *Chunk, name string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "== %s ==\n", name)
	for offset := 0; offset < len(chunk.Code); {
		var line string
		offset, line = DisassembleInstruction(chunk, offset)
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return b.String()
}

// DisassembleInstruction renders the single instruction starting at offset
// and returns the offset of the following instruction plus the rendered
// line.
func DisassembleInstruction(chunk *Chunk, offset int) (next int, line string) {
	op := Op(chunk.Code[offset])
	prefix := fmt.Sprintf("CHUNK OFFSET - %04d | LINE - %04d ", offset, chunk.Lines[offset])

	switch op {
	case OpConstant, OpGetGlobal, OpSetGlobal, OpDefineGlobal, OpClass, OpGetProperty, OpSetProperty:
		idx := chunk.Code[offset+1]
		return offset + 2, prefix + fmt.Sprintf("%s: const[%d] = %s", op, idx, chunk.Constants[idx])

	case OpGetLocal, OpSetLocal, OpGetUpvalue, OpSetUpvalue, OpCall:
		slot := chunk.Code[offset+1]
		return offset + 2, prefix + fmt.Sprintf("%s: %d", op, slot)

	case OpJump, OpJumpIfFalse:
		jumpOff := binary.BigEndian.Uint16(chunk.Code[offset+1 : offset+3])
		target := offset + 3 + int(jumpOff)
		return offset + 3, prefix + fmt.Sprintf("%s: %04d -> %04d", op, offset, target)

	case OpLoop:
		jumpOff := binary.BigEndian.Uint16(chunk.Code[offset+1 : offset+3])
		target := offset + 3 - int(jumpOff)
		return offset + 3, prefix + fmt.Sprintf("%s: %04d -> %04d", op, offset, target)

	case OpClosure:
		constIdx := chunk.Code[offset+1]
		next := offset + 2
		constant := chunk.Constants[constIdx]
		line := prefix + fmt.Sprintf("%s: const[%d] = %s", op, constIdx, constant)
		if constant.IsFunction() {
			for i := 0; i < constant.AsFunction().UpvalueCount; i++ {
				isLocal := chunk.Code[next]
				index := chunk.Code[next+1]
				kind := "upvalue"
				if isLocal != 0 {
					kind = "local"
				}
				line += fmt.Sprintf("\nCHUNK OFFSET - %04d |      |                     %s %d", next, kind, index)
				next += 2
			}
		}
		return next, line

	default:
		return offset + 1, prefix + op.String()
	}
}
