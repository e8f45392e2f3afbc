package bytecode

import (
	"fmt"
	"strconv"

	"github.com/dolthub/swiss"
)

// Kind identifies which variant of the tagged Value union is populated.
type Kind uint8

//nolint:revive
const (
	KindNil Kind = iota
	KindBoolean
	KindNumber
	KindString
	KindFunction
	KindNativeFunction
	KindClosure
	KindClass
	KindInstance
)

// Value is the runtime value type: a tagged sum with one populated payload
// per Kind. Nil, Boolean, Number and String are copied by value (strings
// are immutable, so sharing the Go string header is safe); Function,
// NativeFunction, Closure, Class and Instance are heap-allocated and
// referenced through a pointer, so copying a Value copies the reference,
// not the underlying object — Instance mutation is visible through every
// alias, matching the spec's shared-ownership model.
type Value struct {
	kind Kind

	boolean bool
	number  float64
	str     string

	fn       *Function
	native   *NativeFunction
	closure  *Closure
	class    *Class
	instance *Instance
}

// Nil is the singular nil value.
var Nil = Value{kind: KindNil}

// Bool constructs a boolean Value.
func Bool(b bool) Value { return Value{kind: KindBoolean, boolean: b} }

// Number constructs a numeric Value.
func Number(n float64) Value { return Value{kind: KindNumber, number: n} }

// String constructs a string Value.
func String(s string) Value { return Value{kind: KindString, str: s} }

// FunctionValue wraps a *Function as a Value.
func FunctionValue(fn *Function) Value { return Value{kind: KindFunction, fn: fn} }

// NativeFunctionValue wraps a *NativeFunction as a Value.
func NativeFunctionValue(nf *NativeFunction) Value { return Value{kind: KindNativeFunction, native: nf} }

// ClosureValue wraps a *Closure as a Value.
func ClosureValue(c *Closure) Value { return Value{kind: KindClosure, closure: c} }

// ClassValue wraps a *Class as a Value.
func ClassValue(c *Class) Value { return Value{kind: KindClass, class: c} }

// InstanceValue wraps a *Instance as a Value.
func InstanceValue(i *Instance) Value { return Value{kind: KindInstance, instance: i} }

func (v Value) Kind() Kind { return v.kind }

func (v Value) IsNil() bool      { return v.kind == KindNil }
func (v Value) IsBoolean() bool  { return v.kind == KindBoolean }
func (v Value) IsNumber() bool   { return v.kind == KindNumber }
func (v Value) IsString() bool   { return v.kind == KindString }
func (v Value) IsFunction() bool { return v.kind == KindFunction }
func (v Value) IsNative() bool   { return v.kind == KindNativeFunction }
func (v Value) IsClosure() bool  { return v.kind == KindClosure }
func (v Value) IsClass() bool    { return v.kind == KindClass }
func (v Value) IsInstance() bool { return v.kind == KindInstance }

func (v Value) AsBoolean() bool            { return v.boolean }
func (v Value) AsNumber() float64          { return v.number }
func (v Value) AsString() string           { return v.str }
func (v Value) AsFunction() *Function      { return v.fn }
func (v Value) AsNative() *NativeFunction  { return v.native }
func (v Value) AsClosure() *Closure        { return v.closure }
func (v Value) AsClass() *Class            { return v.class }
func (v Value) AsInstance() *Instance      { return v.instance }

// IsFalsey reports whether v is nil or the boolean false — the only two
// falsey values in the language.
func (v Value) IsFalsey() bool {
	return v.kind == KindNil || (v.kind == KindBoolean && !v.boolean)
}

// Equal implements value equality: true iff the operands share the same
// Kind and equal payload. Mismatched kinds are never equal, and heap
// objects other than strings compare by identity (pointer equality),
// matching clox's by-reference object equality.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindNil:
		return true
	case KindBoolean:
		return v.boolean == other.boolean
	case KindNumber:
		return v.number == other.number
	case KindString:
		return v.str == other.str
	case KindFunction:
		return v.fn == other.fn
	case KindNativeFunction:
		return v.native == other.native
	case KindClosure:
		return v.closure == other.closure
	case KindClass:
		return v.class == other.class
	case KindInstance:
		return v.instance == other.instance
	}
	return false
}

// String renders v the way OP_PRINT does: bare numbers, bare strings,
// true/false, nil, <fn name>/<script> for functions, the class name for
// classes, and "<name> instance" for instances.
func (v Value) String() string {
	switch v.kind {
	case KindNil:
		return "nil"
	case KindBoolean:
		if v.boolean {
			return "true"
		}
		return "false"
	case KindNumber:
		return strconv.FormatFloat(v.number, 'g', -1, 64)
	case KindString:
		return v.str
	case KindFunction:
		if v.fn.Name == "" {
			return "<script>"
		}
		return fmt.Sprintf("<fn %s>", v.fn.Name)
	case KindNativeFunction:
		return fmt.Sprintf("<native fn %s>", v.native.Name)
	case KindClosure:
		if v.closure.Function.Name == "" {
			return "<script>"
		}
		return fmt.Sprintf("<fn %s>", v.closure.Function.Name)
	case KindClass:
		return v.class.Name
	case KindInstance:
		return fmt.Sprintf("%s instance", v.instance.Class.Name)
	}
	return "<invalid value>"
}

// Function is a compiled function: the compiler fills it in while compiling
// its body and never mutates it after endCompiler returns it.
type Function struct {
	Arity        int
	Chunk        *Chunk
	Name         string
	UpvalueCount int
}

// NewFunction returns a Function ready to be compiled into.
func NewFunction() *Function {
	return &Function{Chunk: NewChunk()}
}

// NativeFunction is a builtin callable implemented in Go.
type NativeFunction struct {
	Name  string
	Arity int
	Fn    func(args []Value) (Value, error)
}

// Upvalue is a capture cell shared by every Closure that captured the same
// stack slot. It starts Open, pointing at a live VM stack slot, and
// transitions one-way to Closed when that slot is about to leave scope: at
// that point its value is copied out of the stack and owned by the cell.
type Upvalue struct {
	Open     bool
	Location int // valid only while Open
	Closed   Value

	// Next threads this cell into the VM's open-upvalue list, sorted by
	// strictly descending Location. Valid only while Open.
	Next *Upvalue
}

// Value returns the upvalue's current value given the VM stack it may still
// point into.
func (u *Upvalue) Value(stack []Value) Value {
	if u.Open {
		return stack[u.Location]
	}
	return u.Closed
}

// Set writes through the upvalue, to the stack slot if still open or to the
// owned cell if closed.
func (u *Upvalue) Set(stack []Value, v Value) {
	if u.Open {
		stack[u.Location] = v
		return
	}
	u.Closed = v
}

// Close transitions the upvalue from Open to Closed, copying its current
// stack value into the cell. It is the caller's responsibility to unlink it
// from the VM's open-upvalue list.
func (u *Upvalue) Close(stack []Value) {
	u.Closed = stack[u.Location]
	u.Open = false
	u.Next = nil
}

// Closure pairs one Function with its captured upvalue cells.
type Closure struct {
	Function *Function
	Upvalues []*Upvalue
}

// NewClosure allocates a Closure with UpvalueCount empty cells, ready for
// OP_CLOSURE to populate.
func NewClosure(fn *Function) *Closure {
	return &Closure{
		Function: fn,
		Upvalues: make([]*Upvalue, fn.UpvalueCount),
	}
}

// Class is an immutable named class. This design has no methods, no
// inheritance and no `this` binding — only mutable instance fields.
type Class struct {
	Name string
}

// Instance is a shared, mutable instance of a Class. Multiple Value handles
// may alias the same Instance; mutation through one is visible through all.
type Instance struct {
	Class  *Class
	Fields *swiss.Map[string, Value]
}

// NewInstance returns a new, field-less instance of class.
func NewInstance(class *Class) *Instance {
	return &Instance{
		Class:  class,
		Fields: swiss.NewMap[string, Value](4),
	}
}
