package vm_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/16dprice/rlox/lang/vm"
)

func run(t *testing.T, source string) (stdout string, err error) {
	t.Helper()
	machine := vm.New()
	var out, errOut bytes.Buffer
	machine.Stdout = &out
	machine.Stderr = &errOut
	err = machine.Interpret(source)
	return out.String(), err
}

func TestInterpretArithmetic(t *testing.T) {
	out, err := run(t, `print 1 + 2 * 3;`)
	require.NoError(t, err)
	assert.Equal(t, "7\n", out)
}

func TestInterpretControlFlow(t *testing.T) {
	out, err := run(t, `var s = 0; for (var i = 0; i < 3; i = i + 1) { s = s + i; } print s;`)
	require.NoError(t, err)
	assert.Equal(t, "3\n", out)
}

func TestInterpretClosuresCaptureByReference(t *testing.T) {
	src := `
		fun make() { var i = 0; fun inc() { i = i + 1; print i; } return inc; }
		var a = make(); a(); a(); var b = make(); b(); a();
	`
	out, err := run(t, src)
	require.NoError(t, err)
	assert.Equal(t, "1\n2\n1\n3\n", out)
}

func TestInterpretStringCoercionInAdd(t *testing.T) {
	out, err := run(t, `print "x=" + 1 + 2;`)
	require.NoError(t, err)
	assert.Equal(t, "x=12\n", out)
}

func TestInterpretClassPropertyRoundTrip(t *testing.T) {
	out, err := run(t, `class P {} var p = P(); p.n = 13; print p.n;`)
	require.NoError(t, err)
	assert.Equal(t, "13\n", out)
}

func TestInterpretClassCallWithArgsIsArityError(t *testing.T) {
	out, err := run(t, `class P {} var p = P(1, 2); print p;`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Expected 0 arguments but got 2.")
	assert.Empty(t, out)
}

func TestInterpretRuntimeArityError(t *testing.T) {
	_, err := run(t, `fun f(a,b){ return a+b; } f(1);`)
	require.Error(t, err)
	var rerr *vm.RuntimeError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, "Expected 2 arguments but got 1.", rerr.Message)
	require.Len(t, rerr.Trace, 1)
}

func TestInterpretUndefinedGlobalRead(t *testing.T) {
	_, err := run(t, `print nope;`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Undefined variable 'nope'.")
}

func TestInterpretCallingNonCallable(t *testing.T) {
	_, err := run(t, `var x = 1; x();`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Can only call functions and classes.")
}

func TestInterpretPropertyAccessOnNonInstance(t *testing.T) {
	_, err := run(t, `var x = 1; print x.n;`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Only instances have properties.")
}

func TestInterpretClock(t *testing.T) {
	out, err := run(t, `print clock() > 0;`)
	require.NoError(t, err)
	assert.Equal(t, "true\n", out)
}

func TestInterpretCompileErrorDoesNotExecute(t *testing.T) {
	out, err := run(t, `print 1 +; print "never";`)
	require.Error(t, err)
	assert.Empty(t, out)
}

func TestInterpretNegateRequiresNumber(t *testing.T) {
	_, err := run(t, `print -"s";`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Operand must be a number.")
}

func TestInterpretEqualityAcrossVariants(t *testing.T) {
	out, err := run(t, `print 1 == "1"; print nil == false;`)
	require.NoError(t, err)
	assert.Equal(t, "false\nfalse\n", out)
}

func TestInterpretMultilineOutput(t *testing.T) {
	out, err := run(t, `print "a"; print "b";`)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(out, "\n"))
}
