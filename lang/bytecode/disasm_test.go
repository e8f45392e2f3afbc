package bytecode_test

import (
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/16dprice/rlox/internal/filetest"
	"github.com/16dprice/rlox/lang/bytecode"
	"github.com/16dprice/rlox/lang/compiler"
)

var testUpdateDisasmTests = flag.Bool("test.update-disasm-tests", false, "If set, replace expected disassembler test results with actual results.")

// TestDisassemble compiles each source file in testdata/in and checks its
// disassembly against the golden file of the same name plus ".want" in
// testdata/out.
func TestDisassemble(t *testing.T) {
	srcDir, resultDir := filepath.Join("testdata", "in"), filepath.Join("testdata", "out")

	for _, fi := range filetest.SourceFiles(t, srcDir, ".rlox") {
		t.Run(fi.Name(), func(t *testing.T) {
			src, err := os.ReadFile(filepath.Join(srcDir, fi.Name()))
			require.NoError(t, err)

			fn, err := compiler.Compile(string(src))
			require.NoError(t, err)

			out := bytecode.Disassemble(fn.Chunk, fi.Name())
			filetest.DiffOutput(t, fi, out, resultDir, testUpdateDisasmTests)
		})
	}
}
