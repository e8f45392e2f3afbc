// Package vm implements the stack-based virtual machine that executes
// compiled bytecode: a value stack, a fixed-depth call-frame stack, the
// global environment, and the open-upvalue list that backs closure
// capture.
package vm

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dolthub/swiss"

	"github.com/16dprice/rlox/lang/bytecode"
	"github.com/16dprice/rlox/lang/compiler"
)

// framesMax bounds call-frame depth; exceeding it is a runtime error, not
// a panic.
const framesMax = 64

// stackMax is generous headroom for framesMax frames each using a modest
// number of stack slots; it is not a hard architectural limit the way
// framesMax is, just the initial capacity of the backing slice.
const stackMax = framesMax * 256

// callFrame is the bookkeeping for one active call: which closure is
// executing, where its instruction pointer is, and where its window onto
// the shared value stack begins.
type callFrame struct {
	closure *bytecode.Closure
	ip      int
	slots   int
}

// VM executes one compiled program at a time. Stdout is where PRINT writes;
// Stderr receives runtime error reports. Both default to the real process
// streams but can be redirected for tests or embedding.
type VM struct {
	Stdout io.Writer
	Stderr io.Writer

	stack []bytecode.Value

	frames     [framesMax]callFrame
	frameCount int

	globals      *swiss.Map[string, bytecode.Value]
	openUpvalues *bytecode.Upvalue
}

// New returns a VM with its native function table installed and ready to
// Interpret.
func New() *VM {
	vm := &VM{
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
		stack:   make([]bytecode.Value, 0, stackMax),
		globals: swiss.NewMap[string, bytecode.Value](8),
	}
	vm.defineNative("clock", 0, nativeClock)
	return vm
}

// RuntimeError is returned by Interpret when compilation succeeded but
// execution failed. It carries the message the VM reported plus the call
// stack trace captured at the point of failure, innermost frame first.
type RuntimeError struct {
	Message string
	Trace   []string
}

func (e *RuntimeError) Error() string {
	s := e.Message
	for _, line := range e.Trace {
		s += "\n" + line
	}
	return s
}

// Interpret compiles source and, if compilation succeeds, runs it to
// completion. A compile failure returns the compiler's aggregated Errors
// unchanged; a runtime failure returns a *RuntimeError.
func (vm *VM) Interpret(source string) error {
	fn, err := compiler.Compile(source)
	if err != nil {
		return err
	}

	closure := bytecode.NewClosure(fn)
	vm.push(bytecode.ClosureValue(closure))
	vm.callClosure(closure, 0)

	return vm.run()
}

func (vm *VM) push(v bytecode.Value) {
	vm.stack = append(vm.stack, v)
}

func (vm *VM) pop() bytecode.Value {
	last := len(vm.stack) - 1
	v := vm.stack[last]
	vm.stack = vm.stack[:last]
	return v
}

func (vm *VM) peek(distance int) bytecode.Value {
	return vm.stack[len(vm.stack)-1-distance]
}

func (vm *VM) resetStack() {
	vm.stack = vm.stack[:0]
	vm.frameCount = 0
	vm.openUpvalues = nil
}

// run is the bytecode dispatch loop: read one byte, decode it, execute it,
// repeat, until OP_RETURN unwinds the outermost frame or a runtime error
// occurs.
func (vm *VM) run() error {
	frame := &vm.frames[vm.frameCount-1]

	for {
		op := bytecode.Op(vm.readByte(frame))

		switch op {
		case bytecode.OpConstant:
			vm.push(vm.readConstant(frame))

		case bytecode.OpNil:
			vm.push(bytecode.Nil)
		case bytecode.OpTrue:
			vm.push(bytecode.Bool(true))
		case bytecode.OpFalse:
			vm.push(bytecode.Bool(false))
		case bytecode.OpPop:
			vm.pop()

		case bytecode.OpGetLocal:
			slot := int(vm.readByte(frame))
			vm.push(vm.stack[frame.slots+slot])
		case bytecode.OpSetLocal:
			slot := int(vm.readByte(frame))
			vm.stack[frame.slots+slot] = vm.peek(0)

		case bytecode.OpGetGlobal:
			name := vm.readString(frame)
			v, ok := vm.globals.Get(name)
			if !ok {
				return vm.runtimeError(frame, "Undefined variable '%s'.", name)
			}
			vm.push(v)
		case bytecode.OpDefineGlobal:
			name := vm.readString(frame)
			vm.globals.Put(name, vm.peek(0))
			vm.pop()
		case bytecode.OpSetGlobal:
			name := vm.readString(frame)
			if _, ok := vm.globals.Get(name); !ok {
				return vm.runtimeError(frame, "Undefined variable '%s'.", name)
			}
			vm.globals.Put(name, vm.peek(0))

		case bytecode.OpGetUpvalue:
			slot := vm.readByte(frame)
			vm.push(frame.closure.Upvalues[slot].Value(vm.stack))
		case bytecode.OpSetUpvalue:
			slot := vm.readByte(frame)
			frame.closure.Upvalues[slot].Set(vm.stack, vm.peek(0))
		case bytecode.OpCloseUpvalue:
			vm.closeUpvalues(len(vm.stack) - 1)
			vm.pop()

		case bytecode.OpEqual:
			b, a := vm.pop(), vm.pop()
			vm.push(bytecode.Bool(a.Equal(b)))
		case bytecode.OpGreater:
			if err := vm.numericCompare(frame, func(a, b float64) bool { return a > b }); err != nil {
				return err
			}
		case bytecode.OpLess:
			if err := vm.numericCompare(frame, func(a, b float64) bool { return a < b }); err != nil {
				return err
			}

		case bytecode.OpNot:
			vm.push(bytecode.Bool(vm.pop().IsFalsey()))
		case bytecode.OpNegate:
			if !vm.peek(0).IsNumber() {
				return vm.runtimeError(frame, "Operand must be a number.")
			}
			vm.push(bytecode.Number(-vm.pop().AsNumber()))

		case bytecode.OpAdd:
			if err := vm.add(frame); err != nil {
				return err
			}
		case bytecode.OpSubtract:
			if err := vm.numericBinary(frame, func(a, b float64) float64 { return a - b }); err != nil {
				return err
			}
		case bytecode.OpMultiply:
			if err := vm.numericBinary(frame, func(a, b float64) float64 { return a * b }); err != nil {
				return err
			}
		case bytecode.OpDivide:
			if err := vm.numericBinary(frame, func(a, b float64) float64 { return a / b }); err != nil {
				return err
			}

		case bytecode.OpPrint:
			fmt.Fprintf(vm.Stdout, "%s\n", vm.pop().String())

		case bytecode.OpJump:
			offset := vm.readShort(frame)
			frame.ip += int(offset)
		case bytecode.OpJumpIfFalse:
			offset := vm.readShort(frame)
			if vm.peek(0).IsFalsey() {
				frame.ip += int(offset)
			}
		case bytecode.OpLoop:
			offset := vm.readShort(frame)
			frame.ip -= int(offset)

		case bytecode.OpCall:
			argCount := int(vm.readByte(frame))
			if err := vm.callValue(frame, vm.peek(argCount), argCount); err != nil {
				return err
			}
			frame = &vm.frames[vm.frameCount-1]

		case bytecode.OpClosure:
			fn := vm.readConstant(frame).AsFunction()
			closure := bytecode.NewClosure(fn)
			for i := 0; i < fn.UpvalueCount; i++ {
				isLocal := vm.readByte(frame)
				index := vm.readByte(frame)
				if isLocal != 0 {
					closure.Upvalues[i] = vm.captureUpvalue(frame.slots + int(index))
				} else {
					closure.Upvalues[i] = frame.closure.Upvalues[index]
				}
			}
			vm.push(bytecode.ClosureValue(closure))

		case bytecode.OpReturn:
			result := vm.pop()
			vm.closeUpvalues(frame.slots)
			vm.frameCount--
			if vm.frameCount == 0 {
				vm.pop()
				return nil
			}
			vm.stack = vm.stack[:frame.slots]
			vm.push(result)
			frame = &vm.frames[vm.frameCount-1]

		case bytecode.OpClass:
			name := vm.readString(frame)
			vm.push(bytecode.ClassValue(&bytecode.Class{Name: name}))

		case bytecode.OpGetProperty:
			if !vm.peek(0).IsInstance() {
				return vm.runtimeError(frame, "Only instances have properties.")
			}
			inst := vm.peek(0).AsInstance()
			name := vm.readString(frame)
			v, ok := inst.Fields.Get(name)
			if !ok {
				return vm.runtimeError(frame, "Undefined property '%s'.", name)
			}
			vm.pop()
			vm.push(v)

		case bytecode.OpSetProperty:
			if !vm.peek(1).IsInstance() {
				return vm.runtimeError(frame, "Only instances have fields.")
			}
			inst := vm.peek(1).AsInstance()
			name := vm.readString(frame)
			value := vm.peek(0)
			inst.Fields.Put(name, value)
			vm.pop()
			vm.pop()
			vm.push(value)

		default:
			return vm.runtimeError(frame, "Unknown opcode %d.", byte(op))
		}
	}
}

func (vm *VM) readByte(frame *callFrame) byte {
	b := frame.closure.Function.Chunk.Code[frame.ip]
	frame.ip++
	return b
}

func (vm *VM) readShort(frame *callFrame) uint16 {
	hi := vm.readByte(frame)
	lo := vm.readByte(frame)
	return uint16(hi)<<8 | uint16(lo)
}

func (vm *VM) readConstant(frame *callFrame) bytecode.Value {
	return frame.closure.Function.Chunk.Constants[vm.readByte(frame)]
}

func (vm *VM) readString(frame *callFrame) string {
	return vm.readConstant(frame).AsString()
}

func (vm *VM) numericBinary(frame *callFrame, op func(a, b float64) float64) error {
	if !vm.peek(0).IsNumber() || !vm.peek(1).IsNumber() {
		return vm.runtimeError(frame, "Operands must be numbers.")
	}
	b, a := vm.pop(), vm.pop()
	vm.push(bytecode.Number(op(a.AsNumber(), b.AsNumber())))
	return nil
}

func (vm *VM) numericCompare(frame *callFrame, op func(a, b float64) bool) error {
	if !vm.peek(0).IsNumber() || !vm.peek(1).IsNumber() {
		return vm.runtimeError(frame, "Operands must be numbers.")
	}
	b, a := vm.pop(), vm.pop()
	vm.push(bytecode.Bool(op(a.AsNumber(), b.AsNumber())))
	return nil
}

// add implements OP_ADD's overload set: two numbers add, two strings
// concatenate, and a string paired with a number stringifies the number
// and concatenates, in either order.
func (vm *VM) add(frame *callFrame) error {
	a, b := vm.peek(1), vm.peek(0)

	switch {
	case a.IsNumber() && b.IsNumber():
		b, a := vm.pop(), vm.pop()
		vm.push(bytecode.Number(a.AsNumber() + b.AsNumber()))
	case a.IsString() && b.IsString():
		b, a := vm.pop(), vm.pop()
		vm.push(bytecode.String(a.AsString() + b.AsString()))
	case a.IsString() && b.IsNumber():
		b, a := vm.pop(), vm.pop()
		vm.push(bytecode.String(a.AsString() + b.String()))
	case a.IsNumber() && b.IsString():
		b, a := vm.pop(), vm.pop()
		vm.push(bytecode.String(a.String() + b.AsString()))
	default:
		return vm.runtimeError(frame, "Operands must be two numbers or two strings.")
	}
	return nil
}

// callValue dispatches OP_CALL's callee: a Closure pushes a new frame, a
// NativeFunction runs immediately and collapses its argument window to a
// single result, a Class constructs a fresh Instance, and anything else is
// a runtime error.
func (vm *VM) callValue(frame *callFrame, callee bytecode.Value, argCount int) error {
	switch {
	case callee.IsClosure():
		return vm.callClosure(callee.AsClosure(), argCount)
	case callee.IsNative():
		return vm.callNative(frame, callee.AsNative(), argCount)
	case callee.IsClass():
		if argCount != 0 {
			return vm.runtimeError(frame, "Expected 0 arguments but got %d.", argCount)
		}
		instance := bytecode.NewInstance(callee.AsClass())
		vm.stack = vm.stack[:len(vm.stack)-argCount-1]
		vm.push(bytecode.InstanceValue(instance))
		return nil
	default:
		return vm.runtimeError(frame, "Can only call functions and classes.")
	}
}

func (vm *VM) callClosure(closure *bytecode.Closure, argCount int) error {
	if argCount != closure.Function.Arity {
		return vm.runtimeError(&vm.frames[vm.frameCount-1],
			"Expected %d arguments but got %d.", closure.Function.Arity, argCount)
	}
	if vm.frameCount == framesMax {
		return vm.runtimeError(&vm.frames[vm.frameCount-1], "Stack overflow.")
	}

	vm.frames[vm.frameCount] = callFrame{
		closure: closure,
		ip:      0,
		slots:   len(vm.stack) - argCount - 1,
	}
	vm.frameCount++
	return nil
}

func (vm *VM) callNative(frame *callFrame, native *bytecode.NativeFunction, argCount int) error {
	if argCount != native.Arity {
		return vm.runtimeError(frame, "Expected %d arguments but got %d.", native.Arity, argCount)
	}
	args := vm.stack[len(vm.stack)-argCount:]
	result, err := native.Fn(args)
	if err != nil {
		return vm.runtimeError(frame, "%s", err.Error())
	}
	vm.stack = vm.stack[:len(vm.stack)-argCount-1]
	vm.push(result)
	return nil
}

// captureUpvalue returns the open upvalue already pointing at location, or
// inserts a new one in the right place to keep open_upvalues sorted by
// strictly descending location.
func (vm *VM) captureUpvalue(location int) *bytecode.Upvalue {
	var prev *bytecode.Upvalue
	cur := vm.openUpvalues
	for cur != nil && cur.Location > location {
		prev = cur
		cur = cur.Next
	}
	if cur != nil && cur.Location == location {
		return cur
	}

	created := &bytecode.Upvalue{Open: true, Location: location, Next: cur}
	if prev == nil {
		vm.openUpvalues = created
	} else {
		prev.Next = created
	}
	return created
}

// closeUpvalues closes every open upvalue at or above boundary, copying
// each one's value out of the stack and unlinking it from the list.
func (vm *VM) closeUpvalues(boundary int) {
	for vm.openUpvalues != nil && vm.openUpvalues.Location >= boundary {
		up := vm.openUpvalues
		vm.openUpvalues = up.Next
		up.Close(vm.stack)
	}
}

// runtimeError formats msg, captures a stack trace from frame down through
// every enclosing caller, writes both to Stderr, resets the VM to a clean
// state, and returns the error to the caller of Interpret.
func (vm *VM) runtimeError(frame *callFrame, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)

	trace := make([]string, 0, vm.frameCount)
	for i := vm.frameCount - 1; i >= 0; i-- {
		fr := &vm.frames[i]
		fn := fr.closure.Function
		line := fn.Chunk.Lines[fr.ip-1]
		name := "script"
		if fn.Name != "" {
			name = fn.Name
		}
		trace = append(trace, fmt.Sprintf("[line %d] in %s", line, name))
	}

	fmt.Fprintln(vm.Stderr, msg)
	for _, line := range trace {
		fmt.Fprintln(vm.Stderr, line)
	}

	vm.resetStack()
	return &RuntimeError{Message: msg, Trace: trace}
}

func nativeClock(_ []bytecode.Value) (bytecode.Value, error) {
	return bytecode.Number(float64(time.Now().UnixMilli())), nil
}

func (vm *VM) defineNative(name string, arity int, fn func([]bytecode.Value) (bytecode.Value, error)) {
	vm.globals.Put(name, bytecode.NativeFunctionValue(&bytecode.NativeFunction{
		Name:  name,
		Arity: arity,
		Fn:    fn,
	}))
}
