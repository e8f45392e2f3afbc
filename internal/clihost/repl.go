package clihost

import (
	"bufio"
	"context"
	"fmt"
	"strings"

	"github.com/mna/mainer"

	"github.com/16dprice/rlox/lang/vm"
)

// Repl runs an interactive read-eval-print loop: one line of source per
// iteration, each compiled and run against a fresh VM, until the user
// types "quit" or stdin closes. A line that fails to compile or run
// reports its diagnostic and the loop continues.
func (c *Cmd) Repl(ctx context.Context, stdio mainer.Stdio, args []string) error {
	scanner := bufio.NewScanner(stdio.Stdin)
	for {
		fmt.Fprint(stdio.Stdout, "> ")
		if !scanner.Scan() {
			return nil
		}
		line := strings.TrimSpace(scanner.Text())
		if strings.EqualFold(line, "quit") {
			return nil
		}
		if line == "" {
			continue
		}

		machine := vm.New()
		machine.Stdout = stdio.Stdout
		machine.Stderr = stdio.Stderr
		if err := machine.Interpret(line); err != nil {
			fmt.Fprintln(stdio.Stderr, err)
		}
	}
}
