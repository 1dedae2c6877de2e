// ABOUTME: CLI entrypoint for SigmaChain with serve, run, steps, and version commands.
// ABOUTME: Maps command errors to process exit codes.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
)

var version = "dev"

func main() {
	os.Exit(execute(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

// execute runs the CLI and returns the process exit code.
func execute(ctx context.Context, args []string, out, errOut io.Writer) int {
	root := newRootCmd(out, errOut)
	root.SetArgs(args)
	root.SetOut(out)
	root.SetErr(errOut)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return 0
	}
	var failed *runFailedError
	if errors.As(err, &failed) {
		fmt.Fprintf(errOut, "workflow %s %s\n", failed.run.ID, failed.run.Status)
		return 1
	}
	fmt.Fprintf(errOut, "error: %v\n", err)
	return 1
}
