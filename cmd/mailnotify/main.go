package main

import (
	"os"

	"github.com/cristianoliveira/mailnotify/internal/colors"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

// run executes the CLI with args and returns the process exit code.
func run(args []string) int {
	deps := newRuntimeDeps()
	defer deps.Close()

	root := NewRootCmd(deps)
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		colors.Error(err.Error())
		return 1
	}
	return 0
}
