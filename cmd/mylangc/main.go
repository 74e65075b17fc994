package main

import (
	"errors"
	"fmt"
	"io/ioutil"
	"os"

	"github.com/Wicayonima-Reborn/mylang/pkg/ast"
	"github.com/Wicayonima-Reborn/mylang/pkg/borrow"
	"github.com/Wicayonima-Reborn/mylang/pkg/compiler"
	"github.com/Wicayonima-Reborn/mylang/pkg/token"
	"github.com/alecthomas/repr"
	"github.com/urfave/cli/v2"
)

func parseTarget(name string) (compiler.Target, error) {
	switch name {
	case "", "sysv":
		return compiler.X86SysV, nil
	case "win64":
		return compiler.X86Win64, nil
	case "llvm":
		return compiler.LLVM, nil
	}
	return 0, fmt.Errorf("unknown target '%s' (expected sysv, win64, or llvm)", name)
}

func sourceArg(c *cli.Context) (string, string, error) {
	if c.Args().Len() > 1 {
		return "", "", errors.New("too many arguments provided, expected a single source file")
	}

	filename := c.Args().First()
	if filename == "" {
		return "", "", errors.New("source file not provided")
	}

	code, err := ioutil.ReadFile(filename)
	if err != nil {
		return "", "", fmt.Errorf("failed to read source file: %s", err)
	}

	return filename, string(code), nil
}

func build(c *cli.Context, outputBase string, targetName string, debugBorrow bool, debugAST bool) error {
	filename, source, err := sourceArg(c)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	target, err := parseTarget(targetName)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	opts := compiler.Options{Target: target}
	if debugBorrow {
		opts.BorrowTrace = func(pos token.Pos, live map[string]borrow.VarState) {
			fmt.Fprintf(os.Stderr, "borrow state after %d:%d: %s\n", pos.Line, pos.Column, repr.String(live))
		}
	}

	if debugAST {
		m, err := compiler.Frontend(filename, source, opts)
		if err != nil {
			return cli.Exit(err.Error(), 1)
		}
		repr.Println(m.Function)
	}

	artifact, err := compiler.Compile(filename, source, opts)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	outFile := outputBase + artifact.Extension
	if err := ioutil.WriteFile(outFile, []byte(artifact.Code), 0644); err != nil {
		return cli.Exit(fmt.Sprintf("failed to write output file: %s", err), 1)
	}

	fmt.Printf("Successfully generated: %s\n", outFile)
	return nil
}

func dump(c *cli.Context) error {
	filename, source, err := sourceArg(c)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	m, err := compiler.Frontend(filename, source, compiler.Options{})
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	fmt.Print(ast.Print(m.Function))
	return nil
}

func main() {
	var outputBase string
	var targetName string
	var debugBorrow bool
	var debugAST bool

	app := &cli.App{
		Name:  "mylangc",
		Usage: "Compiler for the MyLang language.",
		Commands: []*cli.Command{
			{
				Name:  "build",
				Usage: "Compiles the provided source file to an assembly artifact.",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:        "output",
						Aliases:     []string{"o"},
						Value:       "a",
						Usage:       "Base name of the output artifact.",
						Destination: &outputBase,
					},
					&cli.StringFlag{
						Name:        "target",
						Value:       "sysv",
						Usage:       "Code generation target: sysv, win64, or llvm.",
						Destination: &targetName,
					},
					&cli.BoolFlag{
						Name:        "debug-borrow",
						Usage:       "Trace the ownership table while borrow checking.",
						Destination: &debugBorrow,
					},
					&cli.BoolFlag{
						Name:        "debug-ast",
						Usage:       "Dump the typed AST before code generation.",
						Destination: &debugAST,
					},
				},
				Action: func(c *cli.Context) error {
					return build(c, outputBase, targetName, debugBorrow, debugAST)
				},
			},
			{
				Name:  "dump",
				Usage: "Prints the typed AST of the provided source file.",
				Action: dump,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
