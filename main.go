package main

import (
	"flag"
	"fmt"
	"log"
	"os"
)

const versionString = "wavec 0.1.0"

var verbose bool

// main parses the positional `<input> [-o <output>] [--raw]` surface,
// plus the `build`/`run`/`help`/`version` subcommands layered over it
// (see cli.go), and drives a single compilation.
func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "build", "run", "help", "--help", "-h", "version", "--version", "-V":
			if err := RunCLI(os.Args[1:]); err != nil {
				log.Fatalln(err)
			}
			return
		}
	}

	var output string
	var raw bool
	fs := flag.NewFlagSet("wavec", flag.ExitOnError)
	fs.StringVar(&output, "o", "a.out", "output file")
	fs.StringVar(&output, "output", "a.out", "output file")
	fs.BoolVar(&raw, "raw", false, "write only the raw code buffer, not an ELF executable")
	fs.BoolVar(&verbose, "v", false, "verbose: trace each emitted instruction and statement")
	fs.BoolVar(&verbose, "verbose", false, "verbose: trace each emitted instruction and statement")
	fs.Parse(os.Args[1:])

	args := fs.Args()
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "usage: wavec <input> [-o output] [--raw]")
		os.Exit(1)
	}

	if err := compileFile(args[0], output, raw); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// compileFile reads the source at inputPath, compiles it, and writes
// either the raw code buffer or a complete ELF64 executable to
// outputPath, printing the closing statistics report to stdout.
func compileFile(inputPath, outputPath string, raw bool) error {
	source, err := os.ReadFile(inputPath)
	if err != nil {
		return fmt.Errorf("wavec: %w", err)
	}

	comp := newCompiler(source, verbose)
	comp.compileProgram()

	var out []byte
	if raw {
		out = comp.code.bytes()
	} else {
		out = writeELF(comp.code.bytes(), comp.syms.globalNext)
	}

	if err := os.WriteFile(outputPath, out, 0o755); err != nil {
		return fmt.Errorf("wavec: %w", err)
	}

	fmt.Println(comp.report().String())
	return nil
}
