package bytecode_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/16dprice/rlox/lang/bytecode"
)

func TestValueIsFalsey(t *testing.T) {
	assert.True(t, bytecode.Nil.IsFalsey())
	assert.True(t, bytecode.Bool(false).IsFalsey())
	assert.False(t, bytecode.Bool(true).IsFalsey())
	assert.False(t, bytecode.Number(0).IsFalsey())
	assert.False(t, bytecode.String("").IsFalsey())
}

func TestValueEqual(t *testing.T) {
	assert.True(t, bytecode.Number(1).Equal(bytecode.Number(1)))
	assert.False(t, bytecode.Number(1).Equal(bytecode.Number(2)))
	assert.True(t, bytecode.String("a").Equal(bytecode.String("a")))
	assert.False(t, bytecode.Number(1).Equal(bytecode.String("1")))
	assert.True(t, bytecode.Nil.Equal(bytecode.Nil))

	inst1 := bytecode.InstanceValue(bytecode.NewInstance(&bytecode.Class{Name: "C"}))
	inst2 := bytecode.InstanceValue(bytecode.NewInstance(&bytecode.Class{Name: "C"}))
	assert.False(t, inst1.Equal(inst2), "distinct instances never compare equal")
	assert.True(t, inst1.Equal(inst1))
}

func TestValueString(t *testing.T) {
	assert.Equal(t, "nil", bytecode.Nil.String())
	assert.Equal(t, "true", bytecode.Bool(true).String())
	assert.Equal(t, "false", bytecode.Bool(false).String())
	assert.Equal(t, "3.5", bytecode.Number(3.5).String())
	assert.Equal(t, "hi", bytecode.String("hi").String())

	script := bytecode.FunctionValue(bytecode.NewFunction())
	assert.Equal(t, "<script>", script.String())

	named := bytecode.NewFunction()
	named.Name = "f"
	assert.Equal(t, "<fn f>", bytecode.FunctionValue(named).String())

	class := &bytecode.Class{Name: "Greeter"}
	assert.Equal(t, "Greeter", bytecode.ClassValue(class).String())

	inst := bytecode.NewInstance(class)
	assert.Equal(t, "Greeter instance", bytecode.InstanceValue(inst).String())
}

func TestUpvalueOpenThenClose(t *testing.T) {
	stack := []bytecode.Value{bytecode.Number(1), bytecode.Number(2)}
	up := &bytecode.Upvalue{Open: true, Location: 1}

	assert.Equal(t, bytecode.Number(2), up.Value(stack))
	up.Set(stack, bytecode.Number(42))
	assert.Equal(t, bytecode.Number(42), stack[1])

	up.Close(stack)
	assert.False(t, up.Open)
	assert.Equal(t, bytecode.Number(42), up.Value(nil))

	up.Set(nil, bytecode.Number(7))
	assert.Equal(t, bytecode.Number(7), up.Value(nil))
}

func TestNewInstanceHasEmptyFields(t *testing.T) {
	inst := bytecode.NewInstance(&bytecode.Class{Name: "P"})
	_, ok := inst.Fields.Get("missing")
	assert.False(t, ok)

	inst.Fields.Put("n", bytecode.Number(13))
	v, ok := inst.Fields.Get("n")
	assert.True(t, ok)
	assert.Equal(t, bytecode.Number(13), v)
}
