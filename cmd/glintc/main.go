// Command glintc drives the parser/binder over a single entry file
// and its transitive includes, printing diagnostics and (on request) a
// textual dump of every function overload it bound. Grounded on the
// teacher's cmd/avenir command-dispatch structure, trimmed to the two
// subcommands this core's scope supports (SPEC_FULL.md §4.M).
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/glint-lang/glint/internal/ast"
	"github.com/glint-lang/glint/internal/cache"
	"github.com/glint-lang/glint/internal/diag"
	"github.com/glint-lang/glint/internal/includes"
	"github.com/glint-lang/glint/internal/lexer"
	"github.com/glint-lang/glint/internal/natives"
	"github.com/glint-lang/glint/internal/parser"
	"github.com/glint-lang/glint/internal/symbols"
)

const version = "0.1.0"

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	var err error
	switch cmd {
	case "parse":
		err = cmdParse(os.Args[2:], false)
	case "dump":
		err = cmdParse(os.Args[2:], true)
	case "help", "-h", "--help":
		usage()
	case "version", "-v", "--version":
		fmt.Println("glintc", version)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", cmd)
		usage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Println(`Glint parser/binder CLI

Usage:
  glintc parse <file.glint> [-data=dir] [-sqlite=path] [-pg=dsn]
  glintc dump  <file.glint> [-data=dir] [-sqlite=path] [-pg=dsn] [-typechecked]

Commands:
  parse   Parse the entry file and its includes, print diagnostics, exit
          non-zero on any recorded error.
  dump    Same as parse, but additionally prints every bound function
          overload's signature and body.

Flags:
  -data         Additional include search directory (repeatable)
  -sqlite       Path to a SQLite database backing the native registry
  -pg           Postgres DSN backing the cross-process include cache
  -typechecked  (dump only) list only overloads already marked type-checked`)
}

func cmdParse(args []string, dump bool) error {
	fs := flag.NewFlagSet("glintc", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var dataDirs stringList
	fs.Var(&dataDirs, "data", "additional include search directory")
	sqlitePath := fs.String("sqlite", "", "SQLite database backing the native registry")
	pgDSN := fs.String("pg", "", "Postgres DSN backing the cross-process include cache")
	onlyTypeChecked := fs.Bool("typechecked", false, "(dump only) list only type-checked overloads")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return fmt.Errorf("missing input file")
	}
	input := fs.Arg(0)

	data, err := os.ReadFile(input)
	if err != nil {
		return fmt.Errorf("read %q: %w", input, err)
	}

	var parseCache cache.ParseCache
	if *pgDSN != "" {
		pc, err := cache.OpenPostgresCache(*pgDSN)
		if err != nil {
			return fmt.Errorf("open postgres cache: %w", err)
		}
		defer pc.Close()
		parseCache = pc
	}

	resolver := includes.NewResolver(input, parseCache)
	for _, d := range dataDirs {
		resolver.AddDataDir(d)
	}

	var nat natives.Registry
	if *sqlitePath != "" {
		reg, err := natives.OpenSQLiteRegistry(*sqlitePath)
		if err != nil {
			return fmt.Errorf("open sqlite registry: %w", err)
		}
		defer reg.Close()
		nat = reg
	} else {
		nat = natives.NewMapRegistry()
	}

	lex := lexer.NewWithResolver(filepath.Clean(input), string(data), resolver)
	sym := symbols.New()
	p := parser.New(lex, sym, nat)
	program := p.Parse()

	printer := diag.NewPrinter(os.Stdout)
	nerrs := printer.PrintAll(lex)

	if dump {
		printDump(program, sym, *onlyTypeChecked)
	}

	if nerrs > 0 {
		os.Exit(1)
	}
	return nil
}

func printDump(program *ast.Program, sym *symbols.Table, onlyTypeChecked bool) {
	fmt.Println(ast.Dump(program))
	fmt.Printf("pakfiles: %d\n", len(program.Pakfiles))
	for _, path := range program.Pakfiles {
		fmt.Println("  " + path)
	}
	for _, fn := range sym.Functions() {
		fmt.Print(ast.DumpAll(fn, onlyTypeChecked))
	}
}

// stringList accumulates repeated -data flag occurrences.
type stringList []string

func (s *stringList) String() string { return fmt.Sprint([]string(*s)) }
func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}
