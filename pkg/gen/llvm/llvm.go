// Package llvmgen emits LLVM IR from a type-annotated, borrow-checked
// AST. Semantics match the x86 backend: ints are i64, strings are heap
// pointers obtained from the same four runtime entry points.
package llvmgen

import (
	"fmt"

	"github.com/Wicayonima-Reborn/mylang/pkg/ast"
	"github.com/Wicayonima-Reborn/mylang/pkg/diagnostic"
	"github.com/Wicayonima-Reborn/mylang/pkg/token"
	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"
)

type generator struct {
	astModule *ast.Module

	module *ir.Module
	fn     *ir.Func
	block  *ir.Block

	newString   *ir.Func
	printInt    *ir.Func
	printString *ir.Func
	cloneString *ir.Func

	// Slot frames mirror the lexical scope stack, one alloca per
	// variable.
	frames []map[string]value.Value

	literalCount int
	labelCount   int
}

func (g *generator) genError(pos token.Pos, format string, args ...interface{}) *diagnostic.Error {
	return diagnostic.Errorf(diagnostic.Codegen, g.astModule.Path, pos, format, args...)
}

func (g *generator) pushFrame() {
	g.frames = append(g.frames, map[string]value.Value{})
}

func (g *generator) popFrame() {
	g.frames = g.frames[:len(g.frames)-1]
}

func (g *generator) findSlot(name string) (value.Value, bool) {
	for i := len(g.frames) - 1; i >= 0; i-- {
		if slot, ok := g.frames[i][name]; ok {
			return slot, true
		}
	}
	return nil, false
}

func (g *generator) uniqueLabel(prefix string) string {
	g.labelCount++
	return fmt.Sprintf("%s.%d", prefix, g.labelCount)
}

func genType(t ast.Type) (types.Type, bool) {
	switch t := t.(type) {
	case *ast.Primitive:
		if t.Name == "string" {
			return types.I8Ptr, true
		}
		return types.I64, true
	case *ast.Reference:
		inner, ok := genType(t.Inner)
		if !ok {
			return nil, false
		}
		return types.NewPointer(inner), true
	case *ast.Rc:
		inner, ok := genType(t.Inner)
		if !ok {
			return nil, false
		}
		return types.NewPointer(inner), true
	}
	return nil, false
}

// genStringLiteral interns the literal in the data section and builds the
// runtime string from it.
func (g *generator) genStringLiteral(s string) value.Value {
	g.literalCount++
	global := g.module.NewGlobalDef(
		fmt.Sprintf(".str.%d", g.literalCount),
		constant.NewCharArrayFromString(s+"\x00"),
	)
	global.Immutable = true

	pointer := g.block.NewGetElementPtr(
		global.ContentType,
		global,
		constant.NewInt(types.I64, 0),
		constant.NewInt(types.I64, 0),
	)
	return g.block.NewCall(g.newString, pointer)
}

func (g *generator) genExpression(expr ast.Expression) (value.Value, *diagnostic.Error) {
	switch e := expr.(type) {
	case *ast.Literal:
		if e.Token.Type == token.STRING {
			return g.genStringLiteral(e.LiteralValue), nil
		}
		return constant.NewInt(types.I64, e.Token.IntValue), nil

	case *ast.VariableExpression:
		slot, ok := g.findSlot(e.Identifier.Lexeme)
		if !ok {
			return nil, g.genError(e.Identifier.Pos, "unknown identifier '%s'", e.Identifier.Lexeme)
		}

		elType, ok := genType(e.Typ)
		if !ok {
			return nil, g.genError(e.Identifier.Pos, "variable '%s' has a type this backend cannot lower", e.Identifier.Lexeme)
		}
		return g.block.NewLoad(elType, slot), nil

	case *ast.CallExpression:
		// Arguments are evaluated right-to-left.
		arguments := make([]value.Value, len(e.Arguments))
		for i := len(e.Arguments) - 1; i >= 0; i-- {
			arg, err := g.genExpression(e.Arguments[i])
			if err != nil {
				return nil, err
			}
			arguments[i] = arg
		}

		switch e.Callee.Lexeme {
		case "print", "println":
			var call value.Value
			if isStringTyped(e.Arguments[0]) {
				call = g.block.NewCall(g.printString, arguments[0])
			} else {
				call = g.block.NewCall(g.printInt, arguments[0])
			}
			return g.block.NewSExt(call, types.I64), nil

		case "clone":
			return g.block.NewCall(g.cloneString, arguments[0]), nil
		}

		return nil, g.genError(e.Callee.Pos, "unknown function '%s'", e.Callee.Lexeme)

	case *ast.ReferenceOf:
		target, ok := e.Target.(*ast.VariableExpression)
		if !ok {
			return nil, g.genError(e.AndToken.Pos, "can only take the address of a variable")
		}

		slot, found := g.findSlot(target.Identifier.Lexeme)
		if !found {
			return nil, g.genError(target.Identifier.Pos, "unknown identifier '%s'", target.Identifier.Lexeme)
		}
		return slot, nil

	case *ast.RangeExpression:
		return nil, g.genError(e.DotDotToken.Pos, "range expressions are only supported as for-loop iterables")

	case *ast.ArrayLiteral:
		return nil, g.genError(e.LeftBracketToken.Pos, "array literals are not supported by this backend")

	case *ast.IndexExpression:
		return nil, g.genError(e.LeftBracketToken.Pos, "indexing is not supported by this backend")
	}

	return nil, g.genError(expr.ErrorToken().Pos, "unsupported expression")
}

func isStringTyped(e ast.Expression) bool {
	if prim, ok := e.Type().(*ast.Primitive); ok {
		return prim.Name == "string"
	}
	return false
}

// truthiness of an i64: nonzero is true.
func (g *generator) genCondition(expr ast.Expression) (value.Value, *diagnostic.Error) {
	cond, err := g.genExpression(expr)
	if err != nil {
		return nil, err
	}
	return g.block.NewICmp(enum.IPredNE, cond, constant.NewInt(types.I64, 0)), nil
}

func (g *generator) genStatement(stmt ast.Statement) *diagnostic.Error {
	switch s := stmt.(type) {
	case *ast.VariableDeclaration:
		elType, ok := genType(s.Type)
		if !ok {
			return g.genError(s.Identifier.Pos, "variable '%s' has a type this backend cannot lower", s.Identifier.Lexeme)
		}

		// RHS first, then binding: the initializer must never see the
		// new slot under a shadowed name.
		var init value.Value = constant.NewZeroInitializer(elType)
		if s.Value != nil {
			v, err := g.genExpression(s.Value)
			if err != nil {
				return err
			}
			init = v
		}

		slot := g.block.NewAlloca(elType)
		g.frames[len(g.frames)-1][s.Identifier.Lexeme] = slot
		g.block.NewStore(init, slot)
		return nil

	case *ast.ExpressionStatement:
		_, err := g.genExpression(s.Expression)
		return err

	case *ast.BlockStatement:
		g.pushFrame()
		defer g.popFrame()

		for _, child := range s.Statements {
			if err := g.genStatement(child); err != nil {
				return err
			}
		}
		return nil

	case *ast.IfStatement:
		cond, err := g.genCondition(s.Condition)
		if err != nil {
			return err
		}

		thenBlock := g.fn.NewBlock(g.uniqueLabel("if.then"))
		elseBlock := g.fn.NewBlock(g.uniqueLabel("if.else"))
		endBlock := g.fn.NewBlock(g.uniqueLabel("if.end"))
		g.block.NewCondBr(cond, thenBlock, elseBlock)

		g.block = thenBlock
		if err := g.genStatement(s.IfBlock); err != nil {
			return err
		}
		g.block.NewBr(endBlock)

		g.block = elseBlock
		if s.ElseBlock != nil {
			if err := g.genStatement(s.ElseBlock); err != nil {
				return err
			}
		}
		g.block.NewBr(endBlock)

		g.block = endBlock
		return nil

	case *ast.WhileStatement:
		condBlock := g.fn.NewBlock(g.uniqueLabel("while.cond"))
		bodyBlock := g.fn.NewBlock(g.uniqueLabel("while.body"))
		endBlock := g.fn.NewBlock(g.uniqueLabel("while.end"))

		g.block.NewBr(condBlock)
		g.block = condBlock
		cond, err := g.genCondition(s.Condition)
		if err != nil {
			return err
		}
		g.block.NewCondBr(cond, bodyBlock, endBlock)

		g.block = bodyBlock
		if err := g.genStatement(s.Block); err != nil {
			return err
		}
		g.block.NewBr(condBlock)

		g.block = endBlock
		return nil

	case *ast.ForStatement:
		rng, ok := s.Iterable.(*ast.RangeExpression)
		if !ok {
			return g.genError(s.ForToken.Pos, "only range iterables are supported by this backend")
		}

		low, err := g.genExpression(rng.Low)
		if err != nil {
			return err
		}
		high, err := g.genExpression(rng.High)
		if err != nil {
			return err
		}

		g.pushFrame()
		defer g.popFrame()

		slot := g.block.NewAlloca(types.I64)
		g.frames[len(g.frames)-1][s.Identifier.Lexeme] = slot
		g.block.NewStore(low, slot)

		condBlock := g.fn.NewBlock(g.uniqueLabel("for.cond"))
		bodyBlock := g.fn.NewBlock(g.uniqueLabel("for.body"))
		endBlock := g.fn.NewBlock(g.uniqueLabel("for.end"))

		g.block.NewBr(condBlock)
		g.block = condBlock
		current := g.block.NewLoad(types.I64, slot)
		cond := g.block.NewICmp(enum.IPredSLT, current, high)
		g.block.NewCondBr(cond, bodyBlock, endBlock)

		g.block = bodyBlock
		if err := g.genStatement(s.Block); err != nil {
			return err
		}
		next := g.block.NewAdd(g.block.NewLoad(types.I64, slot), constant.NewInt(types.I64, 1))
		g.block.NewStore(next, slot)
		g.block.NewBr(condBlock)

		g.block = endBlock
		return nil

	case *ast.ReturnStatement, *ast.BreakStatement, *ast.ContinueStatement:
		return g.genError(token.Pos{}, "statement is not supported by this backend")
	}

	return nil
}

// Gen lowers the module's function to LLVM IR text. Output is
// deterministic for a given AST.
func Gen(m *ast.Module) (string, *diagnostic.Error) {
	g := &generator{
		astModule: m,
		module:    ir.NewModule(),
	}

	g.newString = g.module.NewFunc("runtime_new_string", types.I8Ptr, ir.NewParam("lit", types.I8Ptr))
	g.printInt = g.module.NewFunc("runtime_print_int", types.I32, ir.NewParam("v", types.I64))
	g.printString = g.module.NewFunc("runtime_print_string", types.I32, ir.NewParam("s", types.I8Ptr))
	g.cloneString = g.module.NewFunc("runtime_clone_string", types.I8Ptr, ir.NewParam("s", types.I8Ptr))

	g.fn = g.module.NewFunc("main", types.I32)
	g.block = g.fn.NewBlock("entry")

	if err := g.genStatement(m.Function.Body); err != nil {
		return "", err
	}

	g.block.NewRet(constant.NewInt(types.I32, 0))
	return g.module.String(), nil
}
