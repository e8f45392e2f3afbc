package clihost

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/mna/mainer"

	"github.com/16dprice/rlox/lang/vm"
)

const defaultSourcePath = "./data/test.rlox"

// File compiles and runs a source file, bracketing its program output with
// the BEGIN/END markers on stdout. A compile or runtime failure is printed
// and reported as a non-zero exit code; the compiler already aggregates
// every diagnostic it found, and the VM already prints its own stack trace
// to stdio.Stderr before returning.
func (c *Cmd) File(ctx context.Context, stdio mainer.Stdio, args []string) error {
	path := defaultSourcePath
	if len(args) > 0 {
		path = args[0]
	}

	src, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(stdio.Stderr, "%s\n", err)
		return err
	}

	machine := vm.New()
	machine.Stdout = stdio.Stdout
	machine.Stderr = stdio.Stderr

	fmt.Fprintf(stdio.Stdout, "==== BEGIN PROGRAM OUTPUT ====\n\n")
	runErr := machine.Interpret(string(src))
	fmt.Fprintf(stdio.Stdout, "\n\n==== END PROGRAM OUTPUT ====\n\n")

	if runErr != nil {
		var rerr *vm.RuntimeError
		if !errors.As(runErr, &rerr) {
			// compile errors aren't printed by the VM; do it here.
			fmt.Fprintln(stdio.Stderr, runErr)
		}
		return runErr
	}
	return nil
}
