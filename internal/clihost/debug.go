package clihost

import (
	"context"
	"fmt"
	"os"

	"github.com/mna/mainer"

	"github.com/16dprice/rlox/lang/bytecode"
	"github.com/16dprice/rlox/lang/compiler"
)

const defaultDebugOutputPath = "./data/debug.txt"

// Debug compiles a source file without running it and writes the
// disassembly of its top-level chunk to ./data/debug.txt.
func (c *Cmd) Debug(ctx context.Context, stdio mainer.Stdio, args []string) error {
	path := defaultSourcePath
	if len(args) > 0 {
		path = args[0]
	}

	src, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(stdio.Stderr, "%s\n", err)
		return err
	}

	fn, compErr := compiler.Compile(string(src))
	if compErr != nil {
		fmt.Fprintln(stdio.Stderr, compErr)
		return compErr
	}

	out := bytecode.Disassemble(fn.Chunk, path)
	if err := os.MkdirAll("./data", 0o755); err != nil {
		fmt.Fprintf(stdio.Stderr, "%s\n", err)
		return err
	}
	if err := os.WriteFile(defaultDebugOutputPath, []byte(out), 0o644); err != nil {
		fmt.Fprintf(stdio.Stderr, "%s\n", err)
		return err
	}
	fmt.Fprintf(stdio.Stdout, "disassembly written to %s\n", defaultDebugOutputPath)
	return nil
}
