// cli.go - user-friendly subcommand layer on top of the positional
// `<input> [-o out] [--raw]` surface in main.go.
//
// Supports:
//   wavec build <file> [-o output]
//   wavec run <file>
//   wavec help
//   wavec version

package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
)

// RunCLI dispatches the build/run/help/version subcommands.
func RunCLI(args []string) error {
	switch args[0] {
	case "build":
		return cmdBuild(args[1:])
	case "run":
		return cmdRun(args[1:])
	case "help", "--help", "-h":
		return cmdHelp()
	case "version", "--version", "-V":
		fmt.Println(versionString)
		return nil
	default:
		return fmt.Errorf("unknown command: %s\n\nrun 'wavec help' for usage information", args[0])
	}
}

func cmdBuild(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: wavec build <file> [-o output]")
	}
	input := args[0]
	output := ""
	for i := 1; i < len(args); i++ {
		if args[i] == "-o" && i+1 < len(args) {
			output = args[i+1]
			i++
		}
	}
	if output == "" {
		output = filepath.Base(input) + ".out"
	}
	if err := compileFile(input, output, false); err != nil {
		return fmt.Errorf("build failed: %w", err)
	}
	fmt.Printf("built: %s\n", output)
	return nil
}

// cmdRun compiles to a temporary executable under /dev/shm (falling
// back to the OS temp directory) and executes it, forwarding stdio
// and the program's exit code.
func cmdRun(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: wavec run <file>")
	}
	input := args[0]

	tmpDir := "/dev/shm"
	if _, err := os.Stat(tmpDir); os.IsNotExist(err) {
		tmpDir = os.TempDir()
	}
	tmpExec := filepath.Join(tmpDir, fmt.Sprintf("wavec_run_%d", os.Getpid()))

	if err := compileFile(input, tmpExec, false); err != nil {
		return fmt.Errorf("build failed: %w", err)
	}
	defer os.Remove(tmpExec)

	cmd := exec.Command(tmpExec)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	err := cmd.Run()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			os.Exit(exitErr.ExitCode())
		}
		return fmt.Errorf("execution failed: %w", err)
	}
	return nil
}

func cmdHelp() error {
	fmt.Printf(`wavec - a single-pass x86-64 ELF compiler

USAGE:
    wavec <input> [-o output] [--raw]
    wavec <command> [arguments]

COMMANDS:
    build <file>    compile to an executable
    run <file>      compile and run immediately
    help            show this help message
    version         show version information

FLAGS:
    -o, --output <file>    output filename (default: a.out)
    --raw                  write only the raw code buffer, no ELF wrapper
    -v, --verbose          trace each emitted instruction and statement

`)
	return nil
}
