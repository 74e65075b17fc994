// Package x86 emits NASM x86_64 assembly from a type-annotated,
// borrow-checked AST. Expressions are evaluated on the machine stack:
// every expression pushes its result, every consumer pops.
//
// The two ABIs differ only in calling convention: System V passes the
// first argument in RDI; Win64 passes it in RCX and requires 32 bytes of
// caller-allocated shadow space ahead of every call.
package x86

import (
	"fmt"
	"strings"

	"github.com/Wicayonima-Reborn/mylang/pkg/ast"
	"github.com/Wicayonima-Reborn/mylang/pkg/diagnostic"
	"github.com/Wicayonima-Reborn/mylang/pkg/token"
)

// ABI selects the target calling convention.
type ABI int

const (
	SystemV ABI = iota
	Win64
)

func (a ABI) String() string {
	if a == Win64 {
		return "win64"
	}
	return "sysv"
}

// ArgReg is the register carrying the first (and only) runtime-call
// argument under this ABI.
func (a ABI) ArgReg() string {
	if a == Win64 {
		return "rcx"
	}
	return "rdi"
}

type literal struct {
	value string
	id    int
}

type generator struct {
	module *ast.Module
	abi    ABI
	b      *strings.Builder

	// Slot frames mirror the lexical scope stack so shadowed names get
	// their own stack slots.
	frames    []map[string]int
	stackSize int

	labelCounter int
	literals     []literal
}

func (g *generator) genError(pos token.Pos, format string, args ...interface{}) *diagnostic.Error {
	return diagnostic.Errorf(diagnostic.Codegen, g.module.Path, pos, format, args...)
}

func (g *generator) emitf(format string, args ...interface{}) {
	fmt.Fprintf(g.b, format, args...)
}

func (g *generator) newLabel() int {
	g.labelCounter++
	return g.labelCounter
}

func (g *generator) registerLiteral(value string) int {
	id := len(g.literals) + 1
	g.literals = append(g.literals, literal{value: value, id: id})
	return id
}

func (g *generator) pushFrame() {
	g.frames = append(g.frames, map[string]int{})
}

func (g *generator) popFrame() {
	g.frames = g.frames[:len(g.frames)-1]
}

// allocSlot reserves an 8-byte frame slot for a variable and returns its
// rbp-relative offset.
func (g *generator) allocSlot(name string) int {
	g.stackSize += 8
	offset := -g.stackSize
	g.frames[len(g.frames)-1][name] = offset
	return offset
}

func (g *generator) findSlot(name string) (int, bool) {
	for i := len(g.frames) - 1; i >= 0; i-- {
		if offset, ok := g.frames[i][name]; ok {
			return offset, true
		}
	}
	return 0, false
}

// emitRuntimeCall wraps a call with the ABI's shadow-space bookkeeping.
func (g *generator) emitRuntimeCall(fn string) {
	if g.abi == Win64 {
		g.emitf("    sub rsp, 32\n")
		g.emitf("    call %s\n", fn)
		g.emitf("    add rsp, 32\n")
	} else {
		g.emitf("    call %s\n", fn)
	}
}

func isStringTyped(e ast.Expression) bool {
	if prim, ok := e.Type().(*ast.Primitive); ok {
		return prim.Name == "string"
	}
	return false
}

func (g *generator) emitExpression(expr ast.Expression) *diagnostic.Error {
	switch e := expr.(type) {
	case *ast.Literal:
		if e.Token.Type == token.STRING {
			id := g.registerLiteral(e.LiteralValue)
			g.emitf("    ; string literal_%d (%s)\n", id, g.abi)
			g.emitf("    lea %s, [rel literal_%d]\n", g.abi.ArgReg(), id)
			g.emitRuntimeCall("runtime_new_string")
			g.emitf("    push rax\n")
			return nil
		}

		g.emitf("    mov rax, %d\n", e.Token.IntValue)
		g.emitf("    push rax\n")
		return nil

	case *ast.VariableExpression:
		offset, ok := g.findSlot(e.Identifier.Lexeme)
		if !ok {
			return g.genError(e.Identifier.Pos, "unknown identifier '%s'", e.Identifier.Lexeme)
		}
		g.emitf("    mov rax, [rbp%+d]\n", offset)
		g.emitf("    push rax\n")
		return nil

	case *ast.CallExpression:
		// Arguments are evaluated right-to-left.
		for i := len(e.Arguments) - 1; i >= 0; i-- {
			if err := g.emitExpression(e.Arguments[i]); err != nil {
				return err
			}
		}

		switch e.Callee.Lexeme {
		case "print", "println":
			arg := e.Arguments[0]
			g.emitf("    pop rax\n")
			g.emitf("    mov %s, rax\n", g.abi.ArgReg())
			if isStringTyped(arg) {
				g.emitRuntimeCall("runtime_print_string")
			} else {
				g.emitRuntimeCall("runtime_print_int")
			}
			// dummy result keeps expression semantics
			g.emitf("    push 0\n")
			return nil

		case "clone":
			g.emitf("    pop rax\n")
			g.emitf("    mov %s, rax\n", g.abi.ArgReg())
			g.emitRuntimeCall("runtime_clone_string")
			g.emitf("    push rax\n")
			return nil
		}

		return g.genError(e.Callee.Pos, "unknown function '%s'", e.Callee.Lexeme)

	case *ast.ReferenceOf:
		target, ok := e.Target.(*ast.VariableExpression)
		if !ok {
			return g.genError(e.AndToken.Pos, "can only take the address of a variable")
		}

		offset, found := g.findSlot(target.Identifier.Lexeme)
		if !found {
			return g.genError(target.Identifier.Pos, "unknown identifier '%s'", target.Identifier.Lexeme)
		}

		g.emitf("    lea rax, [rbp%+d]\n", offset)
		g.emitf("    push rax\n")
		return nil

	case *ast.RangeExpression:
		return g.genError(e.DotDotToken.Pos, "range expressions are only supported as for-loop iterables")

	case *ast.ArrayLiteral:
		return g.genError(e.LeftBracketToken.Pos, "array literals are not supported by this backend")

	case *ast.IndexExpression:
		return g.genError(e.LeftBracketToken.Pos, "indexing is not supported by this backend")
	}

	return g.genError(expr.ErrorToken().Pos, "unsupported expression")
}

func (g *generator) emitStatement(stmt ast.Statement) *diagnostic.Error {
	switch s := stmt.(type) {
	case *ast.VariableDeclaration:
		// RHS first, then binding: the initializer must never see the
		// new slot under a shadowed name.
		if s.Value != nil {
			if err := g.emitExpression(s.Value); err != nil {
				return err
			}
			offset := g.allocSlot(s.Identifier.Lexeme)
			g.emitf("    pop rax\n")
			g.emitf("    mov [rbp%+d], rax\n", offset)
		} else {
			offset := g.allocSlot(s.Identifier.Lexeme)
			g.emitf("    mov qword [rbp%+d], 0\n", offset)
		}
		return nil

	case *ast.ExpressionStatement:
		if err := g.emitExpression(s.Expression); err != nil {
			return err
		}
		// drop the expression statement's result
		g.emitf("    add rsp, 8\n")
		return nil

	case *ast.BlockStatement:
		g.pushFrame()
		defer g.popFrame()

		for _, child := range s.Statements {
			if err := g.emitStatement(child); err != nil {
				return err
			}
		}
		return nil

	case *ast.IfStatement:
		label := g.newLabel()

		if err := g.emitExpression(s.Condition); err != nil {
			return err
		}
		g.emitf("    pop rax\n")
		g.emitf("    cmp rax, 0\n")
		g.emitf("    je .Lelse%d\n", label)

		if err := g.emitStatement(s.IfBlock); err != nil {
			return err
		}
		g.emitf("    jmp .Lend%d\n", label)
		g.emitf(".Lelse%d:\n", label)

		if s.ElseBlock != nil {
			if err := g.emitStatement(s.ElseBlock); err != nil {
				return err
			}
		}
		g.emitf(".Lend%d:\n", label)
		return nil

	case *ast.WhileStatement:
		label := g.newLabel()

		g.emitf(".Lwhile%d:\n", label)
		if err := g.emitExpression(s.Condition); err != nil {
			return err
		}
		g.emitf("    pop rax\n")
		g.emitf("    cmp rax, 0\n")
		g.emitf("    je .Lendwhile%d\n", label)

		if err := g.emitStatement(s.Block); err != nil {
			return err
		}
		g.emitf("    jmp .Lwhile%d\n", label)
		g.emitf(".Lendwhile%d:\n", label)
		return nil

	case *ast.ForStatement:
		rng, ok := s.Iterable.(*ast.RangeExpression)
		if !ok {
			return g.genError(s.ForToken.Pos, "only range iterables are supported by this backend")
		}

		g.pushFrame()
		defer g.popFrame()

		varOffset := g.allocSlot(s.Identifier.Lexeme)
		limitOffset := g.allocSlot(".limit" + s.Identifier.Lexeme)

		if err := g.emitExpression(rng.Low); err != nil {
			return err
		}
		g.emitf("    pop rax\n")
		g.emitf("    mov [rbp%+d], rax\n", varOffset)

		if err := g.emitExpression(rng.High); err != nil {
			return err
		}
		g.emitf("    pop rax\n")
		g.emitf("    mov [rbp%+d], rax\n", limitOffset)

		label := g.newLabel()
		g.emitf(".Lfor%d:\n", label)
		g.emitf("    mov rax, [rbp%+d]\n", varOffset)
		g.emitf("    cmp rax, [rbp%+d]\n", limitOffset)
		g.emitf("    jge .Lendfor%d\n", label)

		if err := g.emitStatement(s.Block); err != nil {
			return err
		}

		g.emitf("    add qword [rbp%+d], 1\n", varOffset)
		g.emitf("    jmp .Lfor%d\n", label)
		g.emitf(".Lendfor%d:\n", label)
		return nil

	case *ast.ReturnStatement, *ast.BreakStatement, *ast.ContinueStatement:
		return g.genError(token.Pos{}, "statement is not supported by this backend")
	}

	return nil
}

// countSlots sizes the frame before emission: one 8-byte slot per
// declaration plus two per for loop (loop variable and range limit).
func countSlots(stmt ast.Statement) int {
	switch s := stmt.(type) {
	case *ast.VariableDeclaration:
		return 1
	case *ast.BlockStatement:
		total := 0
		for _, child := range s.Statements {
			total += countSlots(child)
		}
		return total
	case *ast.IfStatement:
		total := countSlots(s.IfBlock)
		if s.ElseBlock != nil {
			total += countSlots(s.ElseBlock)
		}
		return total
	case *ast.WhileStatement:
		return countSlots(s.Block)
	case *ast.ForStatement:
		return 2 + countSlots(s.Block)
	}
	return 0
}

func (g *generator) emitPrologue(frameSize int) {
	g.emitf("global main\n")
	g.emitf("extern runtime_new_string\n")
	g.emitf("extern runtime_print_int\n")
	g.emitf("extern runtime_print_string\n")
	g.emitf("extern runtime_clone_string\n")
	g.emitf("\n")
	g.emitf("section .text\n")
	g.emitf("main:\n")
	g.emitf("    push rbp\n")
	g.emitf("    mov rbp, rsp\n")
	if frameSize > 0 {
		g.emitf("    sub rsp, %d\n", frameSize)
	}
}

func (g *generator) emitEpilogue() {
	g.emitf("    mov eax, 0\n")
	g.emitf("    mov rsp, rbp\n")
	g.emitf("    pop rbp\n")
	g.emitf("    ret\n")
}

func (g *generator) emitLiterals() {
	if len(g.literals) == 0 {
		return
	}

	g.emitf("\nsection .data\n")
	for _, lit := range g.literals {
		g.emitf("literal_%d: db ", lit.id)
		for i := 0; i < len(lit.value); i++ {
			g.emitf("%d,", lit.value[i])
		}
		g.emitf("0\n")
	}
}

// Gen emits a complete NASM translation unit for the module's function.
// Output is deterministic for a given AST and ABI.
func Gen(m *ast.Module, abi ABI) (string, *diagnostic.Error) {
	g := &generator{
		module: m,
		abi:    abi,
		b:      &strings.Builder{},
	}

	frameSize := countSlots(m.Function.Body) * 8
	if frameSize%16 != 0 {
		frameSize += 16 - frameSize%16
	}

	g.emitPrologue(frameSize)
	if err := g.emitStatement(m.Function.Body); err != nil {
		return "", err
	}
	g.emitEpilogue()
	g.emitLiterals()

	return g.b.String(), nil
}
