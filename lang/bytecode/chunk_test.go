package bytecode_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/16dprice/rlox/lang/bytecode"
)

func TestChunkWriteKeepsCodeAndLinesInSync(t *testing.T) {
	c := bytecode.NewChunk()
	c.WriteOp(bytecode.OpNil, 1)
	c.WriteOp(bytecode.OpReturn, 1)
	require.Len(t, c.Code, 2)
	require.Len(t, c.Lines, 2)
	assert.Equal(t, []int{1, 1}, c.Lines)
}

func TestChunkAddConstantReturnsIndex(t *testing.T) {
	c := bytecode.NewChunk()
	i0 := c.AddConstant(bytecode.Number(1))
	i1 := c.AddConstant(bytecode.String("a"))
	assert.Equal(t, 0, i0)
	assert.Equal(t, 1, i1)
	assert.Equal(t, bytecode.Number(1), c.Constants[i0])
	assert.Equal(t, bytecode.String("a"), c.Constants[i1])
}
