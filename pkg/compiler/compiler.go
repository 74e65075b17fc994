// Package compiler drives the full pipeline: lex, parse, analyze,
// borrow-check, generate. Each phase either completes or the first
// diagnostic is returned; no phase is retried or resumed.
package compiler

import (
	"github.com/Wicayonima-Reborn/mylang/pkg/analyzer"
	"github.com/Wicayonima-Reborn/mylang/pkg/ast"
	"github.com/Wicayonima-Reborn/mylang/pkg/borrow"
	llvmgen "github.com/Wicayonima-Reborn/mylang/pkg/gen/llvm"
	"github.com/Wicayonima-Reborn/mylang/pkg/gen/x86"
	"github.com/Wicayonima-Reborn/mylang/pkg/lexer"
	"github.com/Wicayonima-Reborn/mylang/pkg/parser"
	"github.com/Wicayonima-Reborn/mylang/pkg/token"
)

// Target selects the code generator.
type Target int

const (
	X86SysV Target = iota
	X86Win64
	LLVM
)

// Extension is the artifact file extension for this target.
func (t Target) Extension() string {
	if t == LLVM {
		return ".ll"
	}
	return ".asm"
}

func (t Target) String() string {
	switch t {
	case X86SysV:
		return "sysv"
	case X86Win64:
		return "win64"
	case LLVM:
		return "llvm"
	default:
		return "unknown"
	}
}

// Options configures one compilation.
type Options struct {
	Target Target

	// BorrowTrace, when set, receives the live ownership table after
	// every borrow-checked statement.
	BorrowTrace func(pos token.Pos, live map[string]borrow.VarState)
}

// Artifact is the generated output for one compilation unit.
type Artifact struct {
	Code      string
	Extension string
}

// Frontend runs the analysis half of the pipeline and returns the fully
// annotated, borrow-checked module.
func Frontend(path string, source string, opts Options) (*ast.Module, error) {
	m := &ast.Module{
		Path:   path,
		Source: source,
	}

	if err := lexer.Lex(m); err != nil {
		return nil, err
	}
	if err := parser.Parse(m); err != nil {
		return nil, err
	}
	if err := analyzer.Analyze(m); err != nil {
		return nil, err
	}
	if err := borrow.CheckWithTrace(m, opts.BorrowTrace); err != nil {
		return nil, err
	}

	return m, nil
}

// Compile runs the whole pipeline and returns the generated artifact, or
// the first diagnostic any phase produced.
func Compile(path string, source string, opts Options) (*Artifact, error) {
	m, err := Frontend(path, source, opts)
	if err != nil {
		return nil, err
	}

	var code string
	switch opts.Target {
	case X86Win64:
		asm, genErr := x86.Gen(m, x86.Win64)
		if genErr != nil {
			return nil, genErr
		}
		code = asm
	case LLVM:
		llir, genErr := llvmgen.Gen(m)
		if genErr != nil {
			return nil, genErr
		}
		code = llir
	default:
		asm, genErr := x86.Gen(m, x86.SystemV)
		if genErr != nil {
			return nil, genErr
		}
		code = asm
	}

	return &Artifact{
		Code:      code,
		Extension: opts.Target.Extension(),
	}, nil
}
