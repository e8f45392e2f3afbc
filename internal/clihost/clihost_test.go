package clihost_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mna/mainer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/16dprice/rlox/internal/clihost"
)

func stdio(in string) (mainer.Stdio, *bytes.Buffer, *bytes.Buffer) {
	var out, errOut bytes.Buffer
	return mainer.Stdio{
		Stdin:  strings.NewReader(in),
		Stdout: &out,
		Stderr: &errOut,
	}, &out, &errOut
}

func TestCmdFileBracketsProgramOutput(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.rlox")
	require.NoError(t, os.WriteFile(path, []byte("print 1 + 2;"), 0o644))

	c := &clihost.Cmd{}
	io, out, _ := stdio("")
	err := c.File(nil, io, []string{path})
	require.NoError(t, err)

	got := out.String()
	assert.Contains(t, got, "==== BEGIN PROGRAM OUTPUT ====")
	assert.Contains(t, got, "3")
	assert.Contains(t, got, "==== END PROGRAM OUTPUT ====")
}

func TestCmdFileReportsCompileError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.rlox")
	require.NoError(t, os.WriteFile(path, []byte("var x = ;"), 0o644))

	c := &clihost.Cmd{}
	io, _, errOut := stdio("")
	err := c.File(nil, io, []string{path})
	require.Error(t, err)
	assert.Contains(t, errOut.String(), "Error at")
}

func TestCmdDebugWritesDisassembly(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "test.rlox")
	require.NoError(t, os.WriteFile(src, []byte("print 1;"), 0o644))

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	defer func() { _ = os.Chdir(wd) }()

	c := &clihost.Cmd{}
	io, out, _ := stdio("")
	require.NoError(t, c.Debug(nil, io, []string{src}))
	assert.Contains(t, out.String(), "disassembly written to")

	data, err := os.ReadFile("./data/debug.txt")
	require.NoError(t, err)
	assert.Contains(t, string(data), "OP_PRINT")
}

func TestCmdReplQuitsOnCommand(t *testing.T) {
	c := &clihost.Cmd{}
	io, out, _ := stdio("print 1;\nquit\n")
	require.NoError(t, c.Repl(nil, io, nil))
	assert.Contains(t, out.String(), "1")
}
